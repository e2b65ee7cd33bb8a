// Package memory provides bounds-checked access to guest linear memory.
package memory

import (
	"github.com/tetratelabs/wazero/api"

	zongruntime "github.com/wippyai/zong-runtime"
	"github.com/wippyai/zong-runtime/errors"
)

// Wrap returns a View over a wazero memory, or nil if mem is nil.
func Wrap(mem api.Memory) *View {
	if mem == nil {
		return nil
	}
	return &View{Mem: mem}
}

var _ zongruntime.Memory = (*View)(nil)

// View adapts wazero api.Memory to zongruntime.Memory.
// Each access validates [offset, offset+length) against the size of the
// memory at the time of the call, so growth by the guest is always seen.
type View struct {
	Mem api.Memory
}

// Size returns the current memory size in bytes.
func (v *View) Size() uint32 {
	return v.Mem.Size()
}

// Read returns length bytes at offset. The slice aliases guest memory and is
// only valid until the guest runs again.
func (v *View) Read(offset uint32, length uint32) ([]byte, error) {
	if err := Check(v, errors.PhaseDecode, uint64(offset), uint64(length)); err != nil {
		return nil, err
	}
	data, ok := v.Mem.Read(offset, length)
	if !ok {
		return nil, errors.OutOfBounds(errors.PhaseDecode, nil, uint64(offset), uint64(length), v.Mem.Size())
	}
	return data, nil
}

// Write copies data into memory at offset.
func (v *View) Write(offset uint32, data []byte) error {
	if err := Check(v, errors.PhaseEncode, uint64(offset), uint64(len(data))); err != nil {
		return err
	}
	if !v.Mem.Write(offset, data) {
		return errors.OutOfBounds(errors.PhaseEncode, nil, uint64(offset), uint64(len(data)), v.Mem.Size())
	}
	return nil
}

// ReadU32 reads an unsigned 32-bit little-endian value.
func (v *View) ReadU32(offset uint32) (uint32, error) {
	if err := Check(v, errors.PhaseDecode, uint64(offset), 4); err != nil {
		return 0, err
	}
	x, ok := v.Mem.ReadUint32Le(offset)
	if !ok {
		return 0, errors.OutOfBounds(errors.PhaseDecode, nil, uint64(offset), 4, v.Mem.Size())
	}
	return x, nil
}

// ReadU64 reads an unsigned 64-bit little-endian value.
func (v *View) ReadU64(offset uint32) (uint64, error) {
	if err := Check(v, errors.PhaseDecode, uint64(offset), 8); err != nil {
		return 0, err
	}
	x, ok := v.Mem.ReadUint64Le(offset)
	if !ok {
		return 0, errors.OutOfBounds(errors.PhaseDecode, nil, uint64(offset), 8, v.Mem.Size())
	}
	return x, nil
}

// WriteU32 writes an unsigned 32-bit little-endian value.
func (v *View) WriteU32(offset uint32, value uint32) error {
	if err := Check(v, errors.PhaseEncode, uint64(offset), 4); err != nil {
		return err
	}
	if !v.Mem.WriteUint32Le(offset, value) {
		return errors.OutOfBounds(errors.PhaseEncode, nil, uint64(offset), 4, v.Mem.Size())
	}
	return nil
}

// WriteU64 writes an unsigned 64-bit little-endian value.
func (v *View) WriteU64(offset uint32, value uint64) error {
	if err := Check(v, errors.PhaseEncode, uint64(offset), 8); err != nil {
		return err
	}
	if !v.Mem.WriteUint64Le(offset, value) {
		return errors.OutOfBounds(errors.PhaseEncode, nil, uint64(offset), 8, v.Mem.Size())
	}
	return nil
}

// Check reports an out_of_bounds error unless offset+length <= mem.Size().
// The sum is computed so that it cannot wrap.
func Check(mem zongruntime.MemorySizer, phase errors.Phase, offset, length uint64) error {
	size := mem.Size()
	if offset > uint64(size) || length > uint64(size)-offset {
		return errors.OutOfBounds(phase, nil, offset, length, size)
	}
	return nil
}
