// Package protocol names the four import sets a Zong guest may be built
// against and selects one from the imports a guest declares.
//
// Import order is part of each version: a guest is bound only when its
// declared imports equal the version's list exactly, in order.
package protocol

import (
	"fmt"
	"strings"

	"github.com/tetratelabs/wazero/api"

	"github.com/wippyai/zong-runtime/errors"
	"github.com/wippyai/zong-runtime/internal/wasmbin"
)

// ModuleName is the import module of every host binding.
const ModuleName = "env"

// Import names.
const (
	Print      = "print"
	PrintBytes = "print_bytes"
	ReadLine   = "read_line"
	TStack     = "tstack"
)

// Exports the runtime looks up on the guest.
const (
	MemoryExport = "memory"
	DefaultEntry = "main"
)

// Version is one of the fixed import sets.
type Version uint8

const (
	// Unknown selects detection from the guest's imports.
	Unknown Version = iota
	// V1 binds print.
	V1
	// V2 binds print and a host-supplied tstack global.
	V2
	// V3 binds print and print_bytes.
	V3
	// V4 binds print, print_bytes and read_line; the guest exports tstack.
	V4
)

// Versions lists every concrete version, newest first.
var Versions = []Version{V4, V3, V2, V1}

func (v Version) String() string {
	switch v {
	case Unknown:
		return "auto"
	case V1, V2, V3, V4:
		return fmt.Sprintf("v%d", v)
	default:
		return "invalid"
	}
}

// Name returns the descriptive name, e.g. "print+print_bytes".
func (v Version) Name() string {
	imps := Imports(v)
	names := make([]string, len(imps))
	for i, imp := range imps {
		names[i] = imp.Name
	}
	return strings.Join(names, "+")
}

// ParseVersion accepts "auto", "" or "v1".."v4", or a descriptive name
// such as "print+tstack".
func ParseVersion(s string) (Version, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "" || s == "auto" {
		return Unknown, nil
	}
	for _, v := range Versions {
		if s == v.String() || s == v.Name() {
			return v, nil
		}
	}
	return Unknown, errors.InvalidInput(errors.PhaseUsage, fmt.Sprintf("unknown protocol %q (want auto, v1..v4)", s))
}

var (
	i32 = api.ValueTypeI32
	i64 = api.ValueTypeI64

	printImport = wasmbin.Import{
		Module: ModuleName, Name: Print, Kind: wasmbin.KindFunc,
		Func: wasmbin.FuncType{Params: []api.ValueType{i64}},
	}
	printBytesImport = wasmbin.Import{
		Module: ModuleName, Name: PrintBytes, Kind: wasmbin.KindFunc,
		Func: wasmbin.FuncType{Params: []api.ValueType{i32}},
	}
	readLineImport = wasmbin.Import{
		Module: ModuleName, Name: ReadLine, Kind: wasmbin.KindFunc,
		Func: wasmbin.FuncType{Params: []api.ValueType{i32}},
	}
	tstackImport = wasmbin.Import{
		Module: ModuleName, Name: TStack, Kind: wasmbin.KindGlobal,
		Global: wasmbin.GlobalType{ValType: i32, Mutable: true},
	}
)

// Imports returns the ordered imports a guest of version v declares.
func Imports(v Version) []wasmbin.Import {
	switch v {
	case V1:
		return []wasmbin.Import{printImport}
	case V2:
		return []wasmbin.Import{printImport, tstackImport}
	case V3:
		return []wasmbin.Import{printImport, printBytesImport}
	case V4:
		return []wasmbin.Import{printImport, printBytesImport, readLineImport}
	}
	return nil
}

// Functions returns only the function imports of v, in order.
func Functions(v Version) []wasmbin.Import {
	var out []wasmbin.Import
	for _, imp := range Imports(v) {
		if imp.Kind == wasmbin.KindFunc {
			out = append(out, imp)
		}
	}
	return out
}

// NeedsMemory reports whether host calls of v access guest memory.
func (v Version) NeedsMemory() bool {
	return v == V3 || v == V4
}

// NeedsGuestCursor reports whether v requires the guest to export tstack.
func (v Version) NeedsGuestCursor() bool {
	return v == V4
}

// HostSuppliesCursor reports whether the host provides the tstack global.
func (v Version) HostSuppliesCursor() bool {
	return v == V2
}

// Detect returns the version whose import list equals imports. When none
// matches, the error describes the difference from the closest version.
func Detect(imports []wasmbin.Import) (Version, error) {
	for _, v := range Versions {
		if matches(v, imports) {
			return v, nil
		}
	}

	best := closest(imports)
	return Unknown, mismatch(best, imports)
}

// Check validates imports against a version chosen out of band.
func Check(v Version, imports []wasmbin.Import) error {
	if v == Unknown {
		_, err := Detect(imports)
		return err
	}
	if Imports(v) == nil {
		return errors.InvalidInput(errors.PhaseInstantiate, fmt.Sprintf("invalid protocol version %d", v))
	}
	if !matches(v, imports) {
		return mismatch(v, imports)
	}
	return nil
}

func matches(v Version, imports []wasmbin.Import) bool {
	want := Imports(v)
	if len(want) != len(imports) {
		return false
	}
	for i := range want {
		if !want[i].Matches(imports[i]) {
			return false
		}
	}
	return true
}

// pair matches got against want as multisets; each want entry is used once.
func pair(want, got []wasmbin.Import) (missing, unexpected []wasmbin.Import) {
	used := make([]bool, len(want))
	for _, g := range got {
		found := false
		for i, w := range want {
			if !used[i] && w.Matches(g) {
				used[i] = true
				found = true
				break
			}
		}
		if !found {
			unexpected = append(unexpected, g)
		}
	}
	for i, w := range want {
		if !used[i] {
			missing = append(missing, w)
		}
	}
	return missing, unexpected
}

// closest picks the version sharing the most import names with imports,
// ignoring types and order. Ties go to the smaller import set, then to the
// lower version.
func closest(imports []wasmbin.Import) Version {
	best, bestShared := V1, -1
	for _, v := range []Version{V1, V2, V3, V4} {
		shared := sharedNames(v, imports)
		if shared > bestShared || (shared == bestShared && len(Imports(v)) < len(Imports(best))) {
			best, bestShared = v, shared
		}
	}
	return best
}

func sharedNames(v Version, imports []wasmbin.Import) int {
	want := Imports(v)
	used := make([]bool, len(want))
	shared := 0
	for _, g := range imports {
		for i, w := range want {
			if !used[i] && w.Key() == g.Key() {
				used[i] = true
				shared++
				break
			}
		}
	}
	return shared
}

func mismatch(v Version, imports []wasmbin.Import) *errors.ImportMismatchError {
	missing, unexpected := pair(Imports(v), imports)
	e := &errors.ImportMismatchError{Protocol: v.String() + " (" + v.Name() + ")"}
	for _, imp := range missing {
		e.Missing = append(e.Missing, toError(imp))
	}
	for _, imp := range unexpected {
		e.Unexpected = append(e.Unexpected, toError(imp))
	}
	e.Misordered = len(missing) == 0 && len(unexpected) == 0
	return e
}

func toError(imp wasmbin.Import) errors.Import {
	return errors.Import{Module: imp.Module, Name: imp.Name, Type: imp.TypeString()}
}
