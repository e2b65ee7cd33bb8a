// Package tstack implements the transient stack: a bump allocator over a
// mutable i32 global shared between host and guest.
//
// The host only ever moves the cursor forward. Space handed out by Reserve is
// never reclaimed by the host; a guest that wants it back saves the cursor
// before a host call and restores it afterwards.
package tstack

import (
	"math"
	"sync"

	"github.com/tetratelabs/wazero/api"

	zongruntime "github.com/wippyai/zong-runtime"
	"github.com/wippyai/zong-runtime/errors"
)

// GlobalName is the export and import name of the cursor global.
const GlobalName = "tstack"

var path = []string{GlobalName}

var _ zongruntime.Allocator = (*Allocator)(nil)

// Allocator reserves guest memory by advancing a cursor. It is bound to the
// cursor and memory of exactly one guest instance.
type Allocator struct {
	cursor   zongruntime.Cursor
	mem      zongruntime.MemorySizer
	mu       sync.Mutex
	reserved uint64
}

// New creates an allocator over cursor, bounded by the size of mem.
func New(cursor zongruntime.Cursor, mem zongruntime.MemorySizer) *Allocator {
	return &Allocator{cursor: cursor, mem: mem}
}

// Reserve advances the cursor by n bytes and returns its previous value.
// The new end must fit in an i32 and inside current memory; otherwise the
// cursor is left unchanged and an out_of_bounds or overflow error is
// returned.
func (a *Allocator) Reserve(n uint64) (uint32, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	old, err := a.cursor.Get()
	if err != nil {
		return 0, errors.New(errors.PhaseAlloc, errors.KindInvalidData).
			Path(path...).Detail("read cursor").Cause(err).Build()
	}
	if old < 0 {
		return 0, errors.New(errors.PhaseAlloc, errors.KindOutOfBounds).
			Path(path...).Value(old).Detail("negative cursor %d", old).Build()
	}

	end := uint64(old) + n
	if n > math.MaxInt32 || end > math.MaxInt32 {
		return 0, errors.Overflow(errors.PhaseAlloc, path, end, "i32")
	}
	if size := a.mem.Size(); end > uint64(size) {
		return 0, errors.OutOfBounds(errors.PhaseAlloc, path, uint64(old), n, size)
	}

	if err := a.cursor.Set(int32(end)); err != nil {
		return 0, errors.New(errors.PhaseAlloc, errors.KindInvalidData).
			Path(path...).Detail("write cursor").Cause(err).Build()
	}
	a.reserved += n
	return uint32(old), nil
}

// Reserved returns the total number of bytes handed out by this allocator.
func (a *Allocator) Reserved() uint64 {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.reserved
}

// Position returns the current cursor value.
func (a *Allocator) Position() (int32, error) {
	return a.cursor.Get()
}

var _ zongruntime.Cursor = (*GlobalCursor)(nil)

// GlobalCursor adapts a wazero mutable i32 global to zongruntime.Cursor.
type GlobalCursor struct {
	g api.MutableGlobal
}

// NewGlobalCursor validates g and wraps it. A nil global, a non-i32 global or
// an immutable one is an instantiation error.
func NewGlobalCursor(g api.Global) (*GlobalCursor, error) {
	if g == nil {
		return nil, errors.MissingExport(GlobalName, "mutable i32 global")
	}
	if g.Type() != api.ValueTypeI32 {
		return nil, errors.TypeMismatch(errors.PhaseInstantiate, path, "i32", api.ValueTypeName(g.Type()))
	}
	mg, ok := g.(api.MutableGlobal)
	if !ok {
		return nil, errors.TypeMismatch(errors.PhaseInstantiate, path, "mutable global", "immutable global")
	}
	return &GlobalCursor{g: mg}, nil
}

// Get returns the cursor value.
func (c *GlobalCursor) Get() (int32, error) {
	return api.DecodeI32(c.g.Get()), nil
}

// Set stores the cursor value.
func (c *GlobalCursor) Set(value int32) error {
	c.g.Set(api.EncodeI32(value))
	return nil
}
