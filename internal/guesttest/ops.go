package guesttest

import "github.com/wippyai/zong-runtime/internal/wasmbin"

// Instruction encoders. Each returns the encoded bytes of one instruction.

func I32Const(v int32) []byte {
	return append([]byte{0x41}, wasmbin.EncodeSLEB128(v)...)
}

func I64Const(v int64) []byte {
	return append([]byte{0x42}, wasmbin.EncodeSLEB128(v)...)
}

func Call(idx uint32) []byte {
	return append([]byte{0x10}, wasmbin.EncodeULEB128(idx)...)
}

func LocalGet(idx uint32) []byte {
	return append([]byte{0x20}, wasmbin.EncodeULEB128(idx)...)
}

func LocalSet(idx uint32) []byte {
	return append([]byte{0x21}, wasmbin.EncodeULEB128(idx)...)
}

func GlobalGet(idx uint32) []byte {
	return append([]byte{0x23}, wasmbin.EncodeULEB128(idx)...)
}

func GlobalSet(idx uint32) []byte {
	return append([]byte{0x24}, wasmbin.EncodeULEB128(idx)...)
}

// I32Store stores an i32 with alignment 2 and the given offset.
func I32Store(offset uint32) []byte {
	return append([]byte{0x36, 0x02}, wasmbin.EncodeULEB128(offset)...)
}

// I64Store stores an i64 with alignment 3 and the given offset.
func I64Store(offset uint32) []byte {
	return append([]byte{0x37, 0x03}, wasmbin.EncodeULEB128(offset)...)
}

func Unreachable() []byte { return []byte{0x00} }

func Drop() []byte { return []byte{0x1a} }

// MemoryGrow grows memory 0 by the page count on the stack and pushes the
// old size.
func MemoryGrow() []byte { return []byte{0x40, 0x00} }

// Concat joins instruction sequences.
func Concat(parts ...[]byte) []byte {
	var out []byte
	for _, p := range parts {
		out = append(out, p...)
	}
	return out
}

// Descriptor returns the 16-byte little-endian slice descriptor {ptr, n}.
func Descriptor(ptr uint32, n uint64) []byte {
	b := make([]byte, 16)
	b[0], b[1], b[2], b[3] = byte(ptr), byte(ptr>>8), byte(ptr>>16), byte(ptr>>24)
	for i := 0; i < 8; i++ {
		b[8+i] = byte(n >> (8 * i))
	}
	return b
}

func I32Add() []byte { return []byte{0x6a} }

// I64ExtendI32S sign-extends the i32 on the stack to i64.
func I64ExtendI32S() []byte { return []byte{0xac} }
