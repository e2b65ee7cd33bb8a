// Package guesttest assembles small guest modules for tests. It covers the
// subset of the binary format the Zong calling convention exercises: env
// imports, one memory, i32/i64 globals, function bodies and data segments.
package guesttest

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/tetratelabs/wazero/api"

	"github.com/wippyai/zong-runtime/internal/wasmbin"
)

var (
	i32 = api.ValueTypeI32
	i64 = api.ValueTypeI64
)

// Import is a function or global import. Exactly one of Func or Global is set.
type Import struct {
	Module string
	Name   string
	Func   *wasmbin.FuncType
	Global *wasmbin.GlobalType
}

// Global is a locally defined global. Name is the export name; empty means
// not exported.
type Global struct {
	Name string
	Type wasmbin.GlobalType
	Init int64
}

// Func is a locally defined function. Body holds instructions without the
// trailing end opcode.
type Func struct {
	Name   string
	Type   wasmbin.FuncType
	Locals []api.ValueType
	Body   []byte
}

// Data is an active data segment for memory 0.
type Data struct {
	Offset uint32
	Bytes  []byte
}

// Module describes a guest module to assemble.
type Module struct {
	Imports      []Import
	MemoryPages  uint32 // 0 means no memory
	MemoryExport string // empty means not exported
	Globals      []Global
	Funcs        []Func
	Data         []Data
}

// Convenience imports of the env calling convention.
var (
	PrintImport      = Import{Module: "env", Name: "print", Func: &wasmbin.FuncType{Params: []api.ValueType{i64}}}
	PrintBytesImport = Import{Module: "env", Name: "print_bytes", Func: &wasmbin.FuncType{Params: []api.ValueType{i32}}}
	ReadLineImport   = Import{Module: "env", Name: "read_line", Func: &wasmbin.FuncType{Params: []api.ValueType{i32}}}
	TStackImport     = Import{Module: "env", Name: "tstack", Global: &wasmbin.GlobalType{ValType: i32, Mutable: true}}
)

// TStackGlobal is an exported, mutable i32 tstack global starting at init.
func TStackGlobal(init int64) Global {
	return Global{Name: "tstack", Type: wasmbin.GlobalType{ValType: i32, Mutable: true}, Init: init}
}

// Main is an exported () -> () function named "main".
func Main(body ...[]byte) Func {
	return Func{Name: "main", Body: Concat(body...)}
}

// FuncImports returns the number of imported functions, which is the index
// of the first local function.
func (m *Module) FuncImports() uint32 {
	var n uint32
	for _, imp := range m.Imports {
		if imp.Func != nil {
			n++
		}
	}
	return n
}

// Build returns the module bytes.
func (m *Module) Build() []byte {
	wasm := append([]byte(nil), wasmbin.Magic...)

	var types []wasmbin.FuncType
	for _, imp := range m.Imports {
		if imp.Func != nil {
			types = append(types, *imp.Func)
		}
	}
	for _, f := range m.Funcs {
		types = append(types, f.Type)
	}
	if len(types) > 0 {
		section := wasmbin.EncodeULEB128(uint32(len(types)))
		for _, t := range types {
			section = append(section, 0x60)
			section = appendValTypes(section, t.Params)
			section = appendValTypes(section, t.Results)
		}
		wasm = wasmbin.AppendSection(wasm, wasmbin.SectionType, section)
	}

	if len(m.Imports) > 0 {
		section := wasmbin.EncodeULEB128(uint32(len(m.Imports)))
		typeIdx := uint32(0)
		for _, imp := range m.Imports {
			section = wasmbin.AppendName(section, imp.Module)
			section = wasmbin.AppendName(section, imp.Name)
			if imp.Func != nil {
				section = append(section, wasmbin.KindFunc)
				section = append(section, wasmbin.EncodeULEB128(typeIdx)...)
				typeIdx++
				continue
			}
			section = append(section, wasmbin.KindGlobal, wasmbin.ValTypeToWasm(imp.Global.ValType), mutByte(imp.Global.Mutable))
		}
		wasm = wasmbin.AppendSection(wasm, wasmbin.SectionImport, section)
	}

	if len(m.Funcs) > 0 {
		section := wasmbin.EncodeULEB128(uint32(len(m.Funcs)))
		base := m.FuncImports()
		for i := range m.Funcs {
			section = append(section, wasmbin.EncodeULEB128(base+uint32(i))...)
		}
		wasm = wasmbin.AppendSection(wasm, wasmbin.SectionFunction, section)
	}

	if m.MemoryPages > 0 {
		section := []byte{0x01, 0x00}
		section = append(section, wasmbin.EncodeULEB128(m.MemoryPages)...)
		wasm = wasmbin.AppendSection(wasm, wasmbin.SectionMemory, section)
	}

	if len(m.Globals) > 0 {
		section := wasmbin.EncodeULEB128(uint32(len(m.Globals)))
		for _, g := range m.Globals {
			section = append(section, wasmbin.ValTypeToWasm(g.Type.ValType), mutByte(g.Type.Mutable))
			if g.Type.ValType == i64 {
				section = append(section, I64Const(g.Init)...)
			} else {
				section = append(section, I32Const(int32(g.Init))...)
			}
			section = append(section, 0x0b)
		}
		wasm = wasmbin.AppendSection(wasm, wasmbin.SectionGlobal, section)
	}

	if exports, n := m.exports(); n > 0 {
		wasm = wasmbin.AppendSection(wasm, wasmbin.SectionExport, append(wasmbin.EncodeULEB128(n), exports...))
	}

	if len(m.Funcs) > 0 {
		section := wasmbin.EncodeULEB128(uint32(len(m.Funcs)))
		for _, f := range m.Funcs {
			var body []byte
			body = append(body, wasmbin.EncodeULEB128(uint32(len(f.Locals)))...)
			for _, l := range f.Locals {
				body = append(body, 0x01, wasmbin.ValTypeToWasm(l))
			}
			body = append(body, f.Body...)
			body = append(body, 0x0b)
			section = append(section, wasmbin.EncodeULEB128(uint32(len(body)))...)
			section = append(section, body...)
		}
		wasm = wasmbin.AppendSection(wasm, wasmbin.SectionCode, section)
	}

	if len(m.Data) > 0 {
		section := wasmbin.EncodeULEB128(uint32(len(m.Data)))
		for _, d := range m.Data {
			section = append(section, 0x00)
			section = append(section, I32Const(int32(d.Offset))...)
			section = append(section, 0x0b)
			section = append(section, wasmbin.EncodeULEB128(uint32(len(d.Bytes)))...)
			section = append(section, d.Bytes...)
		}
		wasm = wasmbin.AppendSection(wasm, wasmbin.SectionData, section)
	}

	return wasm
}

func (m *Module) exports() ([]byte, uint32) {
	var out []byte
	var n uint32

	base := m.FuncImports()
	for i, f := range m.Funcs {
		if f.Name == "" {
			continue
		}
		out = wasmbin.AppendName(out, f.Name)
		out = append(out, wasmbin.KindFunc)
		out = append(out, wasmbin.EncodeULEB128(base+uint32(i))...)
		n++
	}
	if m.MemoryPages > 0 && m.MemoryExport != "" {
		out = wasmbin.AppendName(out, m.MemoryExport)
		out = append(out, wasmbin.KindMemory, 0x00)
		n++
	}
	gbase := m.GlobalImports()
	for i, g := range m.Globals {
		if g.Name == "" {
			continue
		}
		out = wasmbin.AppendName(out, g.Name)
		out = append(out, wasmbin.KindGlobal)
		out = append(out, wasmbin.EncodeULEB128(gbase+uint32(i))...)
		n++
	}
	return out, n
}

// GlobalImports returns the number of imported globals, which is the index
// of the first local global.
func (m *Module) GlobalImports() uint32 {
	var n uint32
	for _, imp := range m.Imports {
		if imp.Global != nil {
			n++
		}
	}
	return n
}

// WriteFile writes the module to a temp file and returns its path.
func WriteFile(t testing.TB, wasm []byte) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "guest.wasm")
	if err := os.WriteFile(path, wasm, 0o600); err != nil {
		t.Fatalf("failed to write guest module: %v", err)
	}
	return path
}

func appendValTypes(dst []byte, types []api.ValueType) []byte {
	dst = append(dst, wasmbin.EncodeULEB128(uint32(len(types)))...)
	for _, t := range types {
		dst = append(dst, wasmbin.ValTypeToWasm(t))
	}
	return dst
}

func mutByte(mutable bool) byte {
	if mutable {
		return 0x01
	}
	return 0x00
}
