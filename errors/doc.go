// Package errors provides structured error types for the SPIR-V kernel front end.
//
// Errors are categorized by Phase (where the error occurred) and Kind (error category).
// The Error type includes context: kernel name, location path, offending value and
// cause chain.
//
// Use the Builder for structured error construction:
//
//	err := errors.New(errors.PhaseResolve, errors.KindMalformedBinary).
//		Kernel("vec_add").
//		Path("arg", "2").
//		Detail("unresolved parameter type %%%d", id).
//		Build()
//
// Or use convenience constructors for common patterns:
//
//	err := errors.TruncatedStream(errors.PhaseDecode, offset, need, have)
//	err := errors.DuplicateKernelName(errors.PhaseResolve, name)
//
// All errors implement the standard error interface and support errors.Is/As.
// The exported Err* sentinels match on kind alone:
//
//	if errors.Is(err, spverrors.ErrTruncatedStream) { ... }
package errors
