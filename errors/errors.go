package errors

import (
	stderrors "errors"
	"fmt"
	"strings"
)

// Phase indicates where in processing the error occurred
type Phase string

const (
	PhaseUsage       Phase = "usage"       // command line
	PhaseLoad        Phase = "load"        // reading and compiling the guest
	PhaseInstantiate Phase = "instantiate" // import binding and export checks
	PhaseDecode      Phase = "decode"      // guest memory to host
	PhaseEncode      Phase = "encode"      // host to guest memory
	PhaseAlloc       Phase = "alloc"       // transient stack
	PhaseHost        Phase = "host"        // host call execution
	PhaseRuntime     Phase = "runtime"     // guest execution
)

// Kind categorizes the error
type Kind string

const (
	KindOutOfBounds    Kind = "out_of_bounds"
	KindOverflow       Kind = "overflow"
	KindInvalidData    Kind = "invalid_data"
	KindInvalidInput   Kind = "invalid_input"
	KindTypeMismatch   Kind = "type_mismatch"
	KindMissingImport  Kind = "missing_import"
	KindMissingExport  Kind = "missing_export"
	KindNotFound       Kind = "not_found"
	KindNotInitialized Kind = "not_initialized"
	KindInstantiation  Kind = "instantiation"
	KindRegistration   Kind = "registration"
	KindIO             Kind = "io"
	KindTrap           Kind = "trap"
)

// Error is the structured error type used throughout the runtime
type Error struct {
	Value  any
	Cause  error
	Phase  Phase
	Kind   Kind
	Detail string
	Path   []string
}

// Error implements the error interface
func (e *Error) Error() string {
	var b strings.Builder

	b.WriteByte('[')
	b.WriteString(string(e.Phase))
	b.WriteString("] ")
	b.WriteString(string(e.Kind))

	if len(e.Path) > 0 {
		b.WriteString(" at ")
		b.WriteString(strings.Join(e.Path, "."))
	}

	if e.Detail != "" {
		b.WriteString(": ")
		b.WriteString(e.Detail)
	}

	if e.Cause != nil {
		b.WriteString(" (caused by: ")
		b.WriteString(e.Cause.Error())
		b.WriteByte(')')
	}

	return b.String()
}

// Unwrap returns the underlying error
func (e *Error) Unwrap() error {
	return e.Cause
}

// Is reports whether target matches this error.
// An empty Phase or Kind on the target acts as a wildcard.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	if t.Phase != "" && t.Phase != e.Phase {
		return false
	}
	if t.Kind != "" && t.Kind != e.Kind {
		return false
	}
	return true
}

// Builder provides structured error construction
type Builder struct {
	err Error
}

// New creates a new error builder
func New(phase Phase, kind Kind) *Builder {
	return &Builder{
		err: Error{
			Phase: phase,
			Kind:  kind,
		},
	}
}

// Path sets the location path, e.g. host function and argument
func (b *Builder) Path(path ...string) *Builder {
	b.err.Path = path
	return b
}

// Value sets the offending value
func (b *Builder) Value(v any) *Builder {
	b.err.Value = v
	return b
}

// Cause sets the underlying error
func (b *Builder) Cause(err error) *Builder {
	b.err.Cause = err
	return b
}

// Detail sets the human-readable detail message
func (b *Builder) Detail(msg string, args ...any) *Builder {
	if len(args) > 0 {
		b.err.Detail = fmt.Sprintf(msg, args...)
	} else {
		b.err.Detail = msg
	}
	return b
}

// Build returns the constructed error
func (b *Builder) Build() *Error {
	return &b.err
}

// Usage creates a command line usage error
func Usage(detail string) *Error {
	return &Error{
		Phase:  PhaseUsage,
		Kind:   KindInvalidInput,
		Detail: detail,
	}
}

// Load creates a module loading error
func Load(detail string, cause error) *Error {
	return &Error{
		Phase:  PhaseLoad,
		Kind:   KindInvalidData,
		Detail: detail,
		Cause:  cause,
	}
}

// Instantiation creates an instantiation error
func Instantiation(detail string, cause error) *Error {
	return &Error{
		Phase:  PhaseInstantiate,
		Kind:   KindInstantiation,
		Detail: detail,
		Cause:  cause,
	}
}

// MissingExport reports a guest export required by the selected protocol
func MissingExport(name, want string) *Error {
	return &Error{
		Phase:  PhaseInstantiate,
		Kind:   KindMissingExport,
		Detail: fmt.Sprintf("guest must export %s %q", want, name),
		Value:  name,
	}
}

// TypeMismatch creates a signature or value type mismatch error
func TypeMismatch(phase Phase, path []string, want, got string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindTypeMismatch,
		Path:   path,
		Detail: fmt.Sprintf("want %s, got %s", want, got),
	}
}

// OutOfBounds creates an out of bounds error for the byte range
// [offset, offset+length) against a memory of the given size.
func OutOfBounds(phase Phase, path []string, offset, length uint64, size uint32) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindOutOfBounds,
		Path:   path,
		Detail: fmt.Sprintf("range [%d, %d+%d) exceeds memory size %d", offset, offset, length, size),
		Value:  offset,
	}
}

// Overflow creates an overflow error
func Overflow(phase Phase, path []string, value any, target string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindOverflow,
		Path:   path,
		Detail: fmt.Sprintf("value %v overflows %s", value, target),
		Value:  value,
	}
}

// IO wraps a host stream failure
func IO(path []string, op string, cause error) *Error {
	return &Error{
		Phase:  PhaseHost,
		Kind:   KindIO,
		Path:   path,
		Detail: op,
		Cause:  cause,
	}
}

// Trap wraps a failed guest call
func Trap(entry string, cause error) *Error {
	return &Error{
		Phase:  PhaseRuntime,
		Kind:   KindTrap,
		Detail: fmt.Sprintf("call %q", entry),
		Cause:  cause,
	}
}

// NotInitialized creates a not-initialized error for missing module/instance state
func NotInitialized(phase Phase, component string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindNotInitialized,
		Detail: fmt.Sprintf("%s not initialized", component),
	}
}

// NotFound creates a not-found error
func NotFound(phase Phase, what, name string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindNotFound,
		Detail: fmt.Sprintf("%s %q not found", what, name),
	}
}

// InvalidInput creates an invalid input error
func InvalidInput(phase Phase, detail string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindInvalidInput,
		Detail: detail,
	}
}

// InvalidData creates an invalid data error
func InvalidData(phase Phase, path []string, detail string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindInvalidData,
		Path:   path,
		Detail: detail,
	}
}

// Registration creates a host function registration error
func Registration(module, name string, cause error) *Error {
	return &Error{
		Phase:  PhaseInstantiate,
		Kind:   KindRegistration,
		Detail: fmt.Sprintf("register %s#%s", module, name),
		Cause:  cause,
	}
}

// Wrap wraps an existing error with additional context
func Wrap(phase Phase, kind Kind, cause error, detail string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   kind,
		Detail: detail,
		Cause:  cause,
	}
}

// IsOutOfBounds reports whether err carries a bounds violation from any phase
func IsOutOfBounds(err error) bool {
	return stderrors.Is(err, &Error{Kind: KindOutOfBounds}) ||
		stderrors.Is(err, &Error{Kind: KindOverflow})
}

// IsUsage reports whether err is a command line usage error
func IsUsage(err error) bool {
	return stderrors.Is(err, &Error{Phase: PhaseUsage})
}

// Import identifies a single guest import
type Import struct {
	Module string // e.g., "env"
	Name   string // e.g., "print_bytes"
	Type   string // e.g., "func(i32)" or "global mut i32"
}

func (i Import) String() string {
	if i.Type == "" {
		return i.Module + "#" + i.Name
	}
	return i.Module + "#" + i.Name + ": " + i.Type
}

// ImportMismatchError is returned when a guest's declared imports do not
// match the ordered import list of the selected protocol.
type ImportMismatchError struct {
	Protocol   string
	Missing    []Import
	Unexpected []Import
	Misordered bool
}

// NewImportMismatchError creates an error from lists of "module#name" strings
func NewImportMismatchError(protocol string, missing, unexpected []string) *ImportMismatchError {
	result := &ImportMismatchError{Protocol: protocol}
	for _, key := range missing {
		result.Missing = append(result.Missing, parseImportKey(key))
	}
	for _, key := range unexpected {
		result.Unexpected = append(result.Unexpected, parseImportKey(key))
	}
	return result
}

func parseImportKey(key string) Import {
	mod, name, found := strings.Cut(key, "#")
	if found {
		return Import{Module: mod, Name: name}
	}
	return Import{Module: key}
}

func (e *ImportMismatchError) Error() string {
	var b strings.Builder
	b.WriteString("[instantiate] missing_import: guest imports do not match protocol ")
	b.WriteString(e.Protocol)

	if len(e.Missing) == 0 && len(e.Unexpected) == 0 {
		if e.Misordered {
			b.WriteString(" (imports declared out of order)")
		}
		return b.String()
	}

	writeList := func(title string, list []Import) {
		if len(list) == 0 {
			return
		}
		b.WriteString("\n  ")
		b.WriteString(title)
		b.WriteString(":")
		for _, imp := range list {
			b.WriteString("\n    - ")
			b.WriteString(imp.String())
		}
	}
	writeList("missing", e.Missing)
	writeList("unexpected", e.Unexpected)
	if e.Misordered {
		b.WriteString("\n  imports declared out of order")
	}

	return b.String()
}

// Is reports whether target matches this error type or the
// instantiate/missing_import category.
func (e *ImportMismatchError) Is(target error) bool {
	switch t := target.(type) {
	case *ImportMismatchError:
		return true
	case *Error:
		return (t.Phase == "" || t.Phase == PhaseInstantiate) &&
			(t.Kind == "" || t.Kind == KindMissingImport)
	}
	return false
}
