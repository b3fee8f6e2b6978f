// Package errors provides structured error types for the script-bridge library.
//
// Errors are categorized by Phase (where the error occurred) and Kind (error category).
// The Error type includes rich context: slot, tag, Go/registered type names, and cause chain.
//
// Use the Builder for structured error construction:
//
//	err := errors.New(errors.PhaseRead, errors.KindTypeMismatch).
//		Slot(3).
//		GoType("main.Session").
//		TypeName("card").
//		Detail("slot holds card").
//		Build()
//
// Or use convenience constructors for common patterns:
//
//	err := errors.TypeMismatch(3, "main.Session", "card", "slot holds card")
//	err := errors.AlreadyRegistered("main.Card", "card", 7)
//
// The kinds split into two families. Registration and push failures
// (already_registered, unregistered) are programmer errors: the caller
// broke the register-before-push protocol. Read failures (type_mismatch,
// bad_argument) are routine and expected on the hot path; callers branch
// on them rather than crash. Hook panics are contained where the hook
// runs and only ever surface here as hook_panic records for logging.
//
// All errors implement the standard error interface and support errors.Is/As.
package errors
