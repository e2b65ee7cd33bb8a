package tstack

import (
	"context"
	stderrors "errors"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tetratelabs/wazero"
	"github.com/tetratelabs/wazero/api"

	"github.com/wippyai/zong-runtime/errors"
	"github.com/wippyai/zong-runtime/internal/guesttest"
	"github.com/wippyai/zong-runtime/internal/wasmbin"
	"github.com/wippyai/zong-runtime/memory"
)

type cursor struct {
	v      int32
	setErr error
}

func (c *cursor) Get() (int32, error) { return c.v, nil }

func (c *cursor) Set(v int32) error {
	if c.setErr != nil {
		return c.setErr
	}
	c.v = v
	return nil
}

func TestReserve(t *testing.T) {
	mem := memory.NewBuffer(1024)
	c := &cursor{v: 100}
	a := New(c, mem)

	p1, err := a.Reserve(10)
	require.NoError(t, err)
	assert.Equal(t, uint32(100), p1)
	assert.Equal(t, int32(110), c.v)

	p2, err := a.Reserve(0)
	require.NoError(t, err)
	assert.Equal(t, uint32(110), p2, "zero-length reservation returns the cursor")
	assert.Equal(t, int32(110), c.v)

	p3, err := a.Reserve(914)
	require.NoError(t, err)
	assert.Equal(t, uint32(110), p3)
	assert.Equal(t, int32(1024), c.v, "may end exactly at memory end")

	assert.Equal(t, uint64(924), a.Reserved())
	pos, err := a.Position()
	require.NoError(t, err)
	assert.Equal(t, int32(1024), pos)
}

func TestReserve_Failures(t *testing.T) {
	tests := []struct {
		name  string
		start int32
		size  uint32
		n     uint64
	}{
		{"past memory end", 1000, 1024, 25},
		{"negative cursor", -1, 1024, 1},
		{"i32 overflow", math.MaxInt32 - 4, 1024, 5},
		{"huge request", 0, 1024, math.MaxUint64},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := &cursor{v: tt.start}
			a := New(c, memory.NewBuffer(tt.size))
			_, err := a.Reserve(tt.n)
			require.Error(t, err)
			assert.True(t, errors.IsOutOfBounds(err), "got %v", err)
			assert.Equal(t, tt.start, c.v, "cursor unchanged on failure")
			assert.Zero(t, a.Reserved())
		})
	}
}

func TestReserve_SetFailure(t *testing.T) {
	c := &cursor{v: 8, setErr: stderrors.New("read-only")}
	a := New(c, memory.NewBuffer(64))
	_, err := a.Reserve(4)
	require.Error(t, err)
	assert.ErrorIs(t, err, &errors.Error{Phase: errors.PhaseAlloc})
	assert.Zero(t, a.Reserved())
}

func TestReserve_SeesMemoryGrowth(t *testing.T) {
	mem := memory.NewBuffer(16)
	c := &cursor{v: 8}
	a := New(c, mem)

	_, err := a.Reserve(16)
	require.Error(t, err)

	mem.Grow(16)
	p, err := a.Reserve(16)
	require.NoError(t, err)
	assert.Equal(t, uint32(8), p)
}

func TestGlobalCursor(t *testing.T) {
	ctx := context.Background()
	rt := wazero.NewRuntime(ctx)
	defer rt.Close(ctx)

	m := &guesttest.Module{
		MemoryPages:  1,
		MemoryExport: "memory",
		Globals: []guesttest.Global{
			guesttest.TStackGlobal(2048),
			{Name: "immutable", Type: wasmbin.GlobalType{ValType: api.ValueTypeI32}},
			{Name: "wide", Type: wasmbin.GlobalType{ValType: api.ValueTypeI64, Mutable: true}},
		},
	}
	mod, err := rt.Instantiate(ctx, m.Build())
	require.NoError(t, err)

	c, err := NewGlobalCursor(mod.ExportedGlobal(GlobalName))
	require.NoError(t, err)

	a := New(c, memory.Wrap(mod.ExportedMemory("memory")))
	p, err := a.Reserve(6)
	require.NoError(t, err)
	assert.Equal(t, uint32(2048), p)
	assert.Equal(t, int32(2054), api.DecodeI32(mod.ExportedGlobal(GlobalName).Get()), "guest sees the new cursor")

	_, err = a.Reserve(65536)
	require.Error(t, err)
	assert.Equal(t, int32(2054), api.DecodeI32(mod.ExportedGlobal(GlobalName).Get()))

	t.Run("missing", func(t *testing.T) {
		_, err := NewGlobalCursor(mod.ExportedGlobal("nope"))
		assert.ErrorIs(t, err, &errors.Error{Kind: errors.KindMissingExport})
	})
	t.Run("immutable", func(t *testing.T) {
		_, err := NewGlobalCursor(mod.ExportedGlobal("immutable"))
		assert.ErrorIs(t, err, &errors.Error{Kind: errors.KindTypeMismatch})
	})
	t.Run("wrong type", func(t *testing.T) {
		_, err := NewGlobalCursor(mod.ExportedGlobal("wide"))
		assert.ErrorIs(t, err, &errors.Error{Kind: errors.KindTypeMismatch})
	})
}
