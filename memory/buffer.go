package memory

import (
	"encoding/binary"

	zongruntime "github.com/wippyai/zong-runtime"
	"github.com/wippyai/zong-runtime/errors"
)

var _ zongruntime.Memory = (*Buffer)(nil)

// Buffer is a Memory backed by a Go byte slice. It applies the same bounds
// rules as View and is used where no wazero instance exists, such as host
// surface tests.
type Buffer struct {
	Data []byte
}

// NewBuffer creates a zeroed buffer of size bytes.
func NewBuffer(size uint32) *Buffer {
	return &Buffer{Data: make([]byte, size)}
}

// Size returns len(Data).
func (b *Buffer) Size() uint32 {
	return uint32(len(b.Data))
}

// Grow appends n zero bytes, imitating memory.grow.
func (b *Buffer) Grow(n uint32) {
	b.Data = append(b.Data, make([]byte, n)...)
}

func (b *Buffer) Read(offset uint32, length uint32) ([]byte, error) {
	if err := Check(b, errors.PhaseDecode, uint64(offset), uint64(length)); err != nil {
		return nil, err
	}
	return b.Data[offset : offset+length], nil
}

func (b *Buffer) Write(offset uint32, data []byte) error {
	if err := Check(b, errors.PhaseEncode, uint64(offset), uint64(len(data))); err != nil {
		return err
	}
	copy(b.Data[offset:], data)
	return nil
}

func (b *Buffer) ReadU32(offset uint32) (uint32, error) {
	if err := Check(b, errors.PhaseDecode, uint64(offset), 4); err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint32(b.Data[offset:]), nil
}

func (b *Buffer) ReadU64(offset uint32) (uint64, error) {
	if err := Check(b, errors.PhaseDecode, uint64(offset), 8); err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint64(b.Data[offset:]), nil
}

func (b *Buffer) WriteU32(offset uint32, value uint32) error {
	if err := Check(b, errors.PhaseEncode, uint64(offset), 4); err != nil {
		return err
	}
	binary.LittleEndian.PutUint32(b.Data[offset:], value)
	return nil
}

func (b *Buffer) WriteU64(offset uint32, value uint64) error {
	if err := Check(b, errors.PhaseEncode, uint64(offset), 8); err != nil {
		return err
	}
	binary.LittleEndian.PutUint64(b.Data[offset:], value)
	return nil
}
