// Package errors provides structured error types for the zong runtime.
//
// Errors are categorized by Phase (where the error occurred) and Kind (error category).
// The usage, load, instantiate, bounds and io failures of the host all map
// onto this one type, so callers can branch with errors.Is:
//
//	if errors.Is(err, &zerrors.Error{Kind: zerrors.KindOutOfBounds}) { ... }
//
// Use the Builder for structured error construction:
//
//	err := errors.New(errors.PhaseHost, errors.KindIO).
//		Path("read_line").
//		Detail("read stdin").
//		Cause(ioErr).
//		Build()
//
// Or use convenience constructors for common patterns:
//
//	err := errors.OutOfBounds(errors.PhaseDecode, path, addr, 16, size)
//	err := errors.Load("compile module", cause)
//
// An empty Phase or Kind in an errors.Is target matches any value.
package errors
