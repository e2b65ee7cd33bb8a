package protocol

import (
	stderrors "errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wippyai/zong-runtime/errors"
	"github.com/wippyai/zong-runtime/internal/wasmbin"
)

func TestDetect(t *testing.T) {
	for _, v := range Versions {
		t.Run(v.String(), func(t *testing.T) {
			got, err := Detect(Imports(v))
			require.NoError(t, err)
			assert.Equal(t, v, got)
		})
	}
}

func TestDetect_Mismatch(t *testing.T) {
	tests := []struct {
		name       string
		imports    []wasmbin.Import
		closest    string
		missing    []string
		unexpected []string
		misordered bool
	}{
		{
			name:    "no imports",
			closest: "v1",
			missing: []string{"print"},
		},
		{
			name:       "misordered",
			imports:    []wasmbin.Import{printBytesImport, printImport},
			closest:    "v3",
			misordered: true,
		},
		{
			name:       "wrong signature",
			imports:    []wasmbin.Import{printImport, withParams(printBytesImport, i64)},
			closest:    "v3",
			missing:    []string{"print_bytes"},
			unexpected: []string{"print_bytes"},
		},
		{
			name:       "read_line without print_bytes",
			imports:    []wasmbin.Import{printImport, readLineImport},
			closest:    "v4",
			missing:    []string{"print_bytes"},
		},
		{
			name:    "read_line alone",
			imports: []wasmbin.Import{readLineImport},
			closest: "v4",
			missing: []string{"print", "print_bytes"},
		},
		{
			name:       "extra import after full set",
			imports:    []wasmbin.Import{printImport, printBytesImport, readLineImport, {Module: "env", Name: "exit", Kind: wasmbin.KindFunc}},
			closest:    "v4",
			unexpected: []string{"exit"},
		},
		{
			name:       "foreign import",
			imports:    []wasmbin.Import{printImport, {Module: "wasi_snapshot_preview1", Name: "fd_write", Kind: wasmbin.KindFunc}},
			closest:    "v1",
			unexpected: []string{"fd_write"},
		},
		{
			name:       "duplicate print",
			imports:    []wasmbin.Import{printImport, printImport},
			closest:    "v1",
			unexpected: []string{"print"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v, err := Detect(tt.imports)
			require.Error(t, err)
			assert.Equal(t, Unknown, v)

			var mm *errors.ImportMismatchError
			require.True(t, stderrors.As(err, &mm))
			assert.Contains(t, mm.Protocol, tt.closest)
			assert.Equal(t, tt.missing, names(mm.Missing))
			assert.Equal(t, tt.unexpected, names(mm.Unexpected))
			assert.Equal(t, tt.misordered, mm.Misordered)
			assert.ErrorIs(t, err, &errors.Error{Phase: errors.PhaseInstantiate, Kind: errors.KindMissingImport})
		})
	}
}

func TestCheck(t *testing.T) {
	require.NoError(t, Check(V2, Imports(V2)))
	require.NoError(t, Check(Unknown, Imports(V3)))

	err := Check(V4, Imports(V3))
	require.Error(t, err)
	var mm *errors.ImportMismatchError
	require.True(t, stderrors.As(err, &mm))
	assert.Equal(t, []string{"read_line"}, names(mm.Missing))

	err = Check(Version(9), Imports(V1))
	require.Error(t, err)
}

func TestParseVersion(t *testing.T) {
	tests := []struct {
		in   string
		want Version
	}{
		{"", Unknown},
		{"auto", Unknown},
		{"v1", V1},
		{"V2", V2},
		{"print+print_bytes", V3},
		{"print+print_bytes+read_line", V4},
		{"print+tstack", V2},
	}
	for _, tt := range tests {
		got, err := ParseVersion(tt.in)
		require.NoError(t, err, tt.in)
		assert.Equal(t, tt.want, got, tt.in)
	}

	_, err := ParseVersion("v5")
	require.Error(t, err)
	assert.True(t, errors.IsUsage(err))
}

func TestRequirements(t *testing.T) {
	assert.False(t, V1.NeedsMemory())
	assert.False(t, V2.NeedsMemory())
	assert.True(t, V3.NeedsMemory())
	assert.True(t, V4.NeedsMemory())

	assert.True(t, V4.NeedsGuestCursor())
	assert.False(t, V3.NeedsGuestCursor())
	assert.True(t, V2.HostSuppliesCursor())

	assert.Len(t, Functions(V2), 1)
	assert.Len(t, Functions(V4), 3)
	assert.Equal(t, ReadLine, Functions(V4)[2].Name)
}

func withParams(imp wasmbin.Import, params ...byte) wasmbin.Import {
	imp.Func = wasmbin.FuncType{Params: params}
	return imp
}

func names(list []errors.Import) []string {
	var out []string
	for _, imp := range list {
		out = append(out, imp.Name)
	}
	return out
}
