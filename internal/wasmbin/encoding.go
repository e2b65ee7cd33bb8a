// Package wasmbin reads and writes the small parts of the WASM binary format
// the runtime needs: the import section of a guest, and the synthetic env
// module that carries a host-supplied tstack global.
package wasmbin

import (
	"errors"

	"github.com/tetratelabs/wazero/api"
)

// Section ids.
const (
	SectionCustom   byte = 0
	SectionType     byte = 1
	SectionImport   byte = 2
	SectionFunction byte = 3
	SectionTable    byte = 4
	SectionMemory   byte = 5
	SectionGlobal   byte = 6
	SectionExport   byte = 7
	SectionStart    byte = 8
	SectionElement  byte = 9
	SectionCode     byte = 10
	SectionData     byte = 11
)

// External kinds used in import and export entries.
const (
	KindFunc   byte = 0x00
	KindTable  byte = 0x01
	KindMemory byte = 0x02
	KindGlobal byte = 0x03
)

// Magic is the module preamble: "\0asm" and version 1.
var Magic = []byte{0x00, 0x61, 0x73, 0x6d, 0x01, 0x00, 0x00, 0x00}

var errTruncated = errors.New("unexpected end of module")

// EncodeULEB128 encodes an unsigned value in LEB128 format.
func EncodeULEB128(v uint32) []byte {
	var result []byte
	for {
		b := byte(v & 0x7f)
		v >>= 7
		if v != 0 {
			b |= 0x80
		}
		result = append(result, b)
		if v == 0 {
			break
		}
	}
	return result
}

// EncodeSLEB128 encodes a signed value in LEB128 format.
func EncodeSLEB128[T int32 | int64](v T) []byte {
	var result []byte
	for {
		b := byte(v & 0x7f)
		v >>= 7
		if (v == 0 && b&0x40 == 0) || (v == -1 && b&0x40 != 0) {
			result = append(result, b)
			break
		}
		result = append(result, b|0x80)
	}
	return result
}

// DecodeULEB128 decodes an unsigned 32-bit LEB128 value and returns it with
// the number of bytes consumed. It fails on truncated or over-long input.
func DecodeULEB128(data []byte) (uint32, int, error) {
	var result uint32
	var shift uint32
	for i, b := range data {
		if i == 5 {
			return 0, 0, errors.New("uleb128 too long")
		}
		result |= uint32(b&0x7f) << shift
		if b&0x80 == 0 {
			return result, i + 1, nil
		}
		shift += 7
	}
	return 0, 0, errTruncated
}

// AppendName appends a length-prefixed UTF-8 name.
func AppendName(dst []byte, name string) []byte {
	dst = append(dst, EncodeULEB128(uint32(len(name)))...)
	return append(dst, name...)
}

// AppendSection appends a section with the given id and body.
func AppendSection(dst []byte, id byte, body []byte) []byte {
	dst = append(dst, id)
	dst = append(dst, EncodeULEB128(uint32(len(body)))...)
	return append(dst, body...)
}

// ValTypeToWasm converts a wazero value type to WASM encoding.
func ValTypeToWasm(t api.ValueType) byte {
	switch t {
	case api.ValueTypeI32:
		return 0x7f
	case api.ValueTypeI64:
		return 0x7e
	case api.ValueTypeF32:
		return 0x7d
	case api.ValueTypeF64:
		return 0x7c
	case api.ValueTypeExternref:
		return 0x6f
	case ValueTypeFuncref:
		return 0x70
	default:
		return 0x7f
	}
}

// ValueTypeFuncref is the funcref reference type. The wazero api package
// does not export it.
const ValueTypeFuncref api.ValueType = 0x70

// ParseValType converts a WASM encoding to a wazero value type.
func ParseValType(b byte) (api.ValueType, bool) {
	switch b {
	case 0x7f:
		return api.ValueTypeI32, true
	case 0x7e:
		return api.ValueTypeI64, true
	case 0x7d:
		return api.ValueTypeF32, true
	case 0x7c:
		return api.ValueTypeF64, true
	case 0x6f:
		return api.ValueTypeExternref, true
	case 0x70:
		return ValueTypeFuncref, true
	default:
		return 0, false
	}
}
