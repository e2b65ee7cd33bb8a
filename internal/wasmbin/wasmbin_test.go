package wasmbin_test

import (
	"context"
	"testing"

	"github.com/tetratelabs/wazero"
	"github.com/tetratelabs/wazero/api"

	"github.com/wippyai/zong-runtime/internal/guesttest"
	"github.com/wippyai/zong-runtime/internal/wasmbin"
)

func TestULEB128(t *testing.T) {
	tests := []struct {
		value    uint32
		expected []byte
	}{
		{0, []byte{0x00}},
		{1, []byte{0x01}},
		{127, []byte{0x7f}},
		{128, []byte{0x80, 0x01}},
		{624485, []byte{0xe5, 0x8e, 0x26}},
		{0xffffffff, []byte{0xff, 0xff, 0xff, 0xff, 0x0f}},
	}

	for _, tt := range tests {
		got := wasmbin.EncodeULEB128(tt.value)
		if string(got) != string(tt.expected) {
			t.Errorf("EncodeULEB128(%d) = % x, want % x", tt.value, got, tt.expected)
		}
		v, n, err := wasmbin.DecodeULEB128(got)
		if err != nil || v != tt.value || n != len(got) {
			t.Errorf("DecodeULEB128(% x) = %d, %d, %v", got, v, n, err)
		}
	}

	if _, _, err := wasmbin.DecodeULEB128([]byte{0x80, 0x80}); err == nil {
		t.Error("expected error for truncated input")
	}
	if _, _, err := wasmbin.DecodeULEB128([]byte{0x80, 0x80, 0x80, 0x80, 0x80, 0x01}); err == nil {
		t.Error("expected error for over-long input")
	}
}

func TestSLEB128(t *testing.T) {
	tests := []struct {
		value    int64
		expected []byte
	}{
		{0, []byte{0x00}},
		{-1, []byte{0x7f}},
		{63, []byte{0x3f}},
		{64, []byte{0xc0, 0x00}},
		{-64, []byte{0x40}},
		{-65, []byte{0xbf, 0x7f}},
	}
	for _, tt := range tests {
		got := wasmbin.EncodeSLEB128(tt.value)
		if string(got) != string(tt.expected) {
			t.Errorf("EncodeSLEB128(%d) = % x, want % x", tt.value, got, tt.expected)
		}
	}
}

func TestParseImports(t *testing.T) {
	m := &guesttest.Module{
		Imports: []guesttest.Import{
			guesttest.PrintImport,
			guesttest.TStackImport,
			guesttest.PrintBytesImport,
		},
		MemoryPages:  1,
		MemoryExport: "memory",
		Funcs:        []guesttest.Func{guesttest.Main()},
	}

	imports, err := wasmbin.ParseImports(m.Build())
	if err != nil {
		t.Fatalf("ParseImports: %v", err)
	}
	if len(imports) != 3 {
		t.Fatalf("got %d imports, want 3", len(imports))
	}

	want := []struct {
		key string
		typ string
	}{
		{"env#print", "func(i64)"},
		{"env#tstack", "global mut i32"},
		{"env#print_bytes", "func(i32)"},
	}
	for i, w := range want {
		if imports[i].Key() != w.key || imports[i].TypeString() != w.typ {
			t.Errorf("import %d = %s %s, want %s %s", i, imports[i].Key(), imports[i].TypeString(), w.key, w.typ)
		}
	}
}

func TestParseImports_NoImports(t *testing.T) {
	m := &guesttest.Module{Funcs: []guesttest.Func{guesttest.Main()}}
	imports, err := wasmbin.ParseImports(m.Build())
	if err != nil {
		t.Fatalf("ParseImports: %v", err)
	}
	if len(imports) != 0 {
		t.Errorf("got %d imports, want 0", len(imports))
	}
}

func TestParseImports_Malformed(t *testing.T) {
	valid := (&guesttest.Module{
		Imports: []guesttest.Import{guesttest.PrintImport},
		Funcs:   []guesttest.Func{guesttest.Main()},
	}).Build()

	tests := map[string][]byte{
		"empty":       nil,
		"bad magic":   []byte("\x00asx\x01\x00\x00\x00"),
		"bad version": []byte("\x00asm\x02\x00\x00\x00"),
	}
	// cut inside the import section
	tests["truncated"] = valid[:len(wasmbin.Magic)+12]

	for name, data := range tests {
		t.Run(name, func(t *testing.T) {
			if _, err := wasmbin.ParseImports(data); err == nil {
				t.Error("expected error")
			}
		})
	}

	// import referencing a missing type
	bad := append([]byte(nil), wasmbin.Magic...)
	body := wasmbin.EncodeULEB128(1)
	body = wasmbin.AppendName(body, "env")
	body = wasmbin.AppendName(body, "print")
	body = append(body, wasmbin.KindFunc, 0x05)
	bad = wasmbin.AppendSection(bad, wasmbin.SectionImport, body)
	if _, err := wasmbin.ParseImports(bad); err == nil {
		t.Error("expected error for dangling type index")
	}
}

func TestImportMatches(t *testing.T) {
	a := wasmbin.Import{Module: "env", Name: "print", Kind: wasmbin.KindFunc,
		Func: wasmbin.FuncType{Params: []api.ValueType{api.ValueTypeI64}}}
	b := a
	if !a.Matches(b) {
		t.Error("identical imports should match")
	}
	b.Func = wasmbin.FuncType{Params: []api.ValueType{api.ValueTypeI32}}
	if a.Matches(b) {
		t.Error("different signatures should not match")
	}
	c := wasmbin.Import{Module: "env", Name: "tstack", Kind: wasmbin.KindGlobal,
		Global: wasmbin.GlobalType{ValType: api.ValueTypeI32, Mutable: true}}
	d := c
	d.Global.Mutable = false
	if c.Matches(d) {
		t.Error("mutability is part of the global type")
	}
}

func TestValTypes(t *testing.T) {
	tests := []struct {
		b byte
		t api.ValueType
	}{
		{0x7f, api.ValueTypeI32},
		{0x7e, api.ValueTypeI64},
		{0x7d, api.ValueTypeF32},
		{0x7c, api.ValueTypeF64},
		{0x6f, api.ValueTypeExternref},
		{0x70, wasmbin.ValueTypeFuncref},
	}
	for _, tt := range tests {
		got, ok := wasmbin.ParseValType(tt.b)
		if !ok || got != tt.t {
			t.Errorf("ParseValType(0x%x) = %v, %v", tt.b, got, ok)
		}
		if b := wasmbin.ValTypeToWasm(tt.t); b != tt.b {
			t.Errorf("ValTypeToWasm(%v) = 0x%x, want 0x%x", tt.t, b, tt.b)
		}
	}
	if _, ok := wasmbin.ParseValType(0x40); ok {
		t.Error("0x40 is not a value type")
	}
}

// The generated env module is only ever reached through a guest's imports,
// so the re-exported function is called the same way here.
func TestEnvModuleBuilder(t *testing.T) {
	ctx := context.Background()
	rt := wazero.NewRuntime(ctx)
	defer rt.Close(ctx)

	var got []int64
	_, err := rt.NewHostModuleBuilder("zong-host").
		NewFunctionBuilder().
		WithGoModuleFunction(api.GoModuleFunc(func(ctx context.Context, mod api.Module, stack []uint64) {
			got = append(got, int64(stack[0]))
		}), []api.ValueType{api.ValueTypeI64}, nil).
		Export("print").
		Instantiate(ctx)
	if err != nil {
		t.Fatalf("host module: %v", err)
	}

	b := wasmbin.NewEnvModuleBuilder("zong-host")
	b.AddFunc("print", []api.ValueType{api.ValueTypeI64}, nil)
	b.AddLocalGlobal("tstack", api.ValueTypeI32, true, 0)

	env, err := rt.InstantiateWithConfig(ctx, b.Build(), wazero.NewModuleConfig().WithName("env"))
	if err != nil {
		t.Fatalf("env module: %v", err)
	}

	g := env.ExportedGlobal("tstack")
	if g == nil {
		t.Fatal("tstack not exported")
	}
	if _, ok := g.(api.MutableGlobal); !ok {
		t.Fatal("tstack should be mutable")
	}
	if g.Type() != api.ValueTypeI32 {
		t.Errorf("tstack type = %s", api.ValueTypeName(g.Type()))
	}

	// the guest stores 42 into env.tstack and prints it through env.print
	guest, err := rt.InstantiateWithConfig(ctx, guesttest.TStackGuest(42).Build(),
		wazero.NewModuleConfig().WithName("").WithStartFunctions())
	if err != nil {
		t.Fatalf("guest: %v", err)
	}
	if _, err := guest.ExportedFunction("main").Call(ctx); err != nil {
		t.Fatalf("call: %v", err)
	}
	if len(got) != 1 || got[0] != 42 {
		t.Errorf("host saw %v, want [42]", got)
	}
	if v := api.DecodeI32(g.Get()); v != 42 {
		t.Errorf("tstack = %d, want 42", v)
	}
}
