package wasmbin

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/tetratelabs/wazero/api"
)

// FuncType is a function signature.
type FuncType struct {
	Params  []api.ValueType
	Results []api.ValueType
}

// Equal reports whether two signatures are identical.
func (f FuncType) Equal(o FuncType) bool {
	return bytes.Equal(f.Params, o.Params) && bytes.Equal(f.Results, o.Results)
}

func (f FuncType) String() string {
	var b strings.Builder
	b.WriteString("func(")
	for i, p := range f.Params {
		if i > 0 {
			b.WriteString(", ")
		}
		b.WriteString(api.ValueTypeName(p))
	}
	b.WriteByte(')')
	switch len(f.Results) {
	case 0:
	case 1:
		b.WriteString(" ")
		b.WriteString(api.ValueTypeName(f.Results[0]))
	default:
		b.WriteString(" (")
		for i, r := range f.Results {
			if i > 0 {
				b.WriteString(", ")
			}
			b.WriteString(api.ValueTypeName(r))
		}
		b.WriteByte(')')
	}
	return b.String()
}

// GlobalType is the type of a global.
type GlobalType struct {
	ValType api.ValueType
	Mutable bool
}

func (g GlobalType) String() string {
	if g.Mutable {
		return "global mut " + api.ValueTypeName(g.ValType)
	}
	return "global " + api.ValueTypeName(g.ValType)
}

// Import is one entry of a module's import section.
type Import struct {
	Module string
	Name   string
	Kind   byte
	Func   FuncType   // set when Kind == KindFunc
	Global GlobalType // set when Kind == KindGlobal
}

// TypeString renders the import's type, e.g. "func(i64)" or "global mut i32".
func (i Import) TypeString() string {
	switch i.Kind {
	case KindFunc:
		return i.Func.String()
	case KindGlobal:
		return i.Global.String()
	case KindTable:
		return "table"
	case KindMemory:
		return "memory"
	}
	return fmt.Sprintf("kind(%d)", i.Kind)
}

// Key returns "module#name".
func (i Import) Key() string {
	return i.Module + "#" + i.Name
}

// Matches reports whether two imports have the same module, name, kind and type.
func (i Import) Matches(o Import) bool {
	if i.Module != o.Module || i.Name != o.Name || i.Kind != o.Kind {
		return false
	}
	switch i.Kind {
	case KindFunc:
		return i.Func.Equal(o.Func)
	case KindGlobal:
		return i.Global == o.Global
	}
	return true
}

// ParseImports returns the imports of a module in declaration order, with
// function signatures resolved from the type section. Every read is bounds
// checked; malformed input yields an error instead of a panic.
func ParseImports(wasm []byte) ([]Import, error) {
	if len(wasm) < len(Magic) || !bytes.Equal(wasm[:4], Magic[:4]) {
		return nil, fmt.Errorf("not a wasm module")
	}
	if !bytes.Equal(wasm[4:8], Magic[4:8]) {
		return nil, fmt.Errorf("unsupported wasm version % x", wasm[4:8])
	}

	var types []FuncType
	var imports []Import

	r := &reader{data: wasm, pos: len(Magic)}
	for r.pos < len(r.data) {
		id, err := r.byte()
		if err != nil {
			return nil, err
		}
		size, err := r.u32()
		if err != nil {
			return nil, err
		}
		body, err := r.bytes(size)
		if err != nil {
			return nil, fmt.Errorf("section %d: %w", id, err)
		}

		switch id {
		case SectionType:
			if types, err = parseTypes(&reader{data: body}); err != nil {
				return nil, fmt.Errorf("type section: %w", err)
			}
		case SectionImport:
			if imports, err = parseImports(&reader{data: body}, types); err != nil {
				return nil, fmt.Errorf("import section: %w", err)
			}
			return imports, nil
		case SectionCustom:
		default:
			// imports always precede every non-custom section but type
			if id > SectionImport {
				return nil, nil
			}
		}
	}
	return imports, nil
}

func parseTypes(r *reader) ([]FuncType, error) {
	count, err := r.u32()
	if err != nil {
		return nil, err
	}
	types := make([]FuncType, 0, min(count, 1024))
	for i := uint32(0); i < count; i++ {
		form, err := r.byte()
		if err != nil {
			return nil, err
		}
		if form != 0x60 {
			return nil, fmt.Errorf("type %d: unsupported form 0x%x", i, form)
		}
		params, err := r.valTypes()
		if err != nil {
			return nil, err
		}
		results, err := r.valTypes()
		if err != nil {
			return nil, err
		}
		types = append(types, FuncType{Params: params, Results: results})
	}
	return types, nil
}

func parseImports(r *reader, types []FuncType) ([]Import, error) {
	count, err := r.u32()
	if err != nil {
		return nil, err
	}
	imports := make([]Import, 0, min(count, 1024))
	for i := uint32(0); i < count; i++ {
		mod, err := r.name()
		if err != nil {
			return nil, err
		}
		name, err := r.name()
		if err != nil {
			return nil, err
		}
		kind, err := r.byte()
		if err != nil {
			return nil, err
		}
		imp := Import{Module: mod, Name: name, Kind: kind}

		switch kind {
		case KindFunc:
			idx, err := r.u32()
			if err != nil {
				return nil, err
			}
			if int(idx) >= len(types) {
				return nil, fmt.Errorf("import %s: type index %d out of range", imp.Key(), idx)
			}
			imp.Func = types[idx]
		case KindTable:
			if _, err := r.byte(); err != nil {
				return nil, err
			}
			if err := r.limits(); err != nil {
				return nil, err
			}
		case KindMemory:
			if err := r.limits(); err != nil {
				return nil, err
			}
		case KindGlobal:
			vt, err := r.byte()
			if err != nil {
				return nil, err
			}
			t, ok := ParseValType(vt)
			if !ok {
				return nil, fmt.Errorf("import %s: bad value type 0x%x", imp.Key(), vt)
			}
			mut, err := r.byte()
			if err != nil {
				return nil, err
			}
			imp.Global = GlobalType{ValType: t, Mutable: mut == 1}
		default:
			return nil, fmt.Errorf("import %s: unknown kind 0x%x", imp.Key(), kind)
		}
		imports = append(imports, imp)
	}
	return imports, nil
}

type reader struct {
	data []byte
	pos  int
}

func (r *reader) byte() (byte, error) {
	if r.pos >= len(r.data) {
		return 0, errTruncated
	}
	b := r.data[r.pos]
	r.pos++
	return b, nil
}

func (r *reader) u32() (uint32, error) {
	v, n, err := DecodeULEB128(r.data[r.pos:])
	if err != nil {
		return 0, err
	}
	r.pos += n
	return v, nil
}

func (r *reader) bytes(n uint32) ([]byte, error) {
	if uint64(n) > uint64(len(r.data)-r.pos) {
		return nil, errTruncated
	}
	b := r.data[r.pos : r.pos+int(n)]
	r.pos += int(n)
	return b, nil
}

func (r *reader) name() (string, error) {
	n, err := r.u32()
	if err != nil {
		return "", err
	}
	b, err := r.bytes(n)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

func (r *reader) valTypes() ([]api.ValueType, error) {
	n, err := r.u32()
	if err != nil {
		return nil, err
	}
	raw, err := r.bytes(n)
	if err != nil {
		return nil, err
	}
	out := make([]api.ValueType, len(raw))
	for i, b := range raw {
		t, ok := ParseValType(b)
		if !ok {
			return nil, fmt.Errorf("bad value type 0x%x", b)
		}
		out[i] = t
	}
	return out, nil
}

func (r *reader) limits() error {
	flag, err := r.byte()
	if err != nil {
		return err
	}
	if _, err := r.u32(); err != nil {
		return err
	}
	if flag&0x01 != 0 {
		if _, err := r.u32(); err != nil {
			return err
		}
	}
	return nil
}
