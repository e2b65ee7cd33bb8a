package wasmbin

import (
	"github.com/tetratelabs/wazero/api"
)

// EnvModuleBuilder builds a module that re-exports functions from a host
// module and defines its own globals. wazero host modules cannot export
// globals, so a guest that imports a global from "env" is linked against
// a module built here instead of the host module directly.
type EnvModuleBuilder struct {
	hostModuleName string
	funcs          []envFunc
	globals        []envGlobal
}

type envFunc struct {
	name string
	typ  FuncType
}

type envGlobal struct {
	name      string
	typ       GlobalType
	initValue int64
}

// NewEnvModuleBuilder creates a builder whose functions are imported from
// hostModuleName.
func NewEnvModuleBuilder(hostModuleName string) *EnvModuleBuilder {
	return &EnvModuleBuilder{hostModuleName: hostModuleName}
}

// AddFunc adds a function to import from the host module and re-export
// under the same name.
func (b *EnvModuleBuilder) AddFunc(name string, params, results []api.ValueType) {
	b.funcs = append(b.funcs, envFunc{
		name: name,
		typ:  FuncType{Params: params, Results: results},
	})
}

// AddLocalGlobal adds a locally defined, exported global with an initial value.
func (b *EnvModuleBuilder) AddLocalGlobal(name string, valType api.ValueType, mutable bool, initValue int64) {
	b.globals = append(b.globals, envGlobal{
		name:      name,
		typ:       GlobalType{ValType: valType, Mutable: mutable},
		initValue: initValue,
	})
}

// Build generates the module bytes.
func (b *EnvModuleBuilder) Build() []byte {
	wasm := append([]byte(nil), Magic...)

	if len(b.funcs) > 0 {
		wasm = AppendSection(wasm, SectionType, b.typeSection())
		wasm = AppendSection(wasm, SectionImport, b.importSection())
	}
	if len(b.globals) > 0 {
		wasm = AppendSection(wasm, SectionGlobal, b.globalSection())
	}
	if len(b.funcs)+len(b.globals) > 0 {
		wasm = AppendSection(wasm, SectionExport, b.exportSection())
	}
	return wasm
}

func (b *EnvModuleBuilder) typeSection() []byte {
	section := EncodeULEB128(uint32(len(b.funcs)))
	for _, f := range b.funcs {
		section = append(section, 0x60)
		section = append(section, EncodeULEB128(uint32(len(f.typ.Params)))...)
		for _, t := range f.typ.Params {
			section = append(section, ValTypeToWasm(t))
		}
		section = append(section, EncodeULEB128(uint32(len(f.typ.Results)))...)
		for _, t := range f.typ.Results {
			section = append(section, ValTypeToWasm(t))
		}
	}
	return section
}

func (b *EnvModuleBuilder) importSection() []byte {
	section := EncodeULEB128(uint32(len(b.funcs)))
	for i, f := range b.funcs {
		section = AppendName(section, b.hostModuleName)
		section = AppendName(section, f.name)
		section = append(section, KindFunc)
		section = append(section, EncodeULEB128(uint32(i))...)
	}
	return section
}

func (b *EnvModuleBuilder) globalSection() []byte {
	section := EncodeULEB128(uint32(len(b.globals)))
	for _, g := range b.globals {
		section = append(section, ValTypeToWasm(g.typ.ValType))
		if g.typ.Mutable {
			section = append(section, 0x01)
		} else {
			section = append(section, 0x00)
		}
		switch g.typ.ValType {
		case api.ValueTypeI64:
			section = append(section, 0x42)
			section = append(section, EncodeSLEB128(g.initValue)...)
		default:
			section = append(section, 0x41)
			section = append(section, EncodeSLEB128(int32(g.initValue))...)
		}
		section = append(section, 0x0b)
	}
	return section
}

// Imported functions are re-exported by index directly; no wrapper bodies
// are needed.
func (b *EnvModuleBuilder) exportSection() []byte {
	section := EncodeULEB128(uint32(len(b.funcs) + len(b.globals)))
	for i, f := range b.funcs {
		section = AppendName(section, f.name)
		section = append(section, KindFunc)
		section = append(section, EncodeULEB128(uint32(i))...)
	}
	for i, g := range b.globals {
		section = AppendName(section, g.name)
		section = append(section, KindGlobal)
		section = append(section, EncodeULEB128(uint32(i))...)
	}
	return section
}
