// Package slice encodes and decodes slice descriptors in guest memory.
//
// A descriptor occupies 16 bytes:
//
//	[0, 4)   items pointer, u32 little-endian
//	[4, 8)   padding, never read or written
//	[8, 16)  length in bytes, u64 little-endian
package slice

import (
	zongruntime "github.com/wippyai/zong-runtime"
	"github.com/wippyai/zong-runtime/errors"
	"github.com/wippyai/zong-runtime/memory"
)

const (
	// Size is the encoded size of a descriptor in bytes.
	Size = 16

	ptrOffset = 0
	lenOffset = 8
)

// Descriptor names a byte range in guest memory.
type Descriptor struct {
	Ptr uint32
	Len uint64
}

// Empty is the {0, 0} sentinel written by read_line on end of input.
var Empty = Descriptor{}

// IsEmpty reports whether d is the sentinel.
func (d Descriptor) IsEmpty() bool {
	return d == Empty
}

// Validate checks that [Ptr, Ptr+Len) lies inside a memory of the given size.
func (d Descriptor) Validate(mem zongruntime.MemorySizer) error {
	return memory.Check(mem, errors.PhaseDecode, uint64(d.Ptr), d.Len)
}

// Bytes returns the bytes the descriptor names. The result aliases guest
// memory.
func (d Descriptor) Bytes(mem zongruntime.Memory) ([]byte, error) {
	if err := d.Validate(mem); err != nil {
		return nil, err
	}
	return mem.Read(d.Ptr, uint32(d.Len))
}

// Decode reads the descriptor stored at addr.
func Decode(mem zongruntime.Memory, addr uint32) (Descriptor, error) {
	if err := memory.Check(mem, errors.PhaseDecode, uint64(addr), Size); err != nil {
		return Descriptor{}, err
	}
	ptr, err := mem.ReadU32(addr + ptrOffset)
	if err != nil {
		return Descriptor{}, err
	}
	n, err := mem.ReadU64(addr + lenOffset)
	if err != nil {
		return Descriptor{}, err
	}
	return Descriptor{Ptr: ptr, Len: n}, nil
}

// Encode writes d at addr. The padding bytes keep whatever the guest left
// there.
func Encode(mem zongruntime.Memory, addr uint32, d Descriptor) error {
	if err := memory.Check(mem, errors.PhaseEncode, uint64(addr), Size); err != nil {
		return err
	}
	if err := mem.WriteU32(addr+ptrOffset, d.Ptr); err != nil {
		return err
	}
	return mem.WriteU64(addr+lenOffset, d.Len)
}

// EncodeEmpty writes the {0, 0} sentinel at addr.
func EncodeEmpty(mem zongruntime.Memory, addr uint32) error {
	return Encode(mem, addr, Empty)
}
