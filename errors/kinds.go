package errors

import (
	stderrors "errors"
	"fmt"
)

// Error kinds. Match them with errors.Is.
var (
	// ErrValidation marks a rejected input: unknown filter/sort column, nil into a
	// non-nullable cell, a value that cannot be coerced to the column type.
	ErrValidation = stderrors.New("VALIDATION_ERROR")

	// ErrConcurrency marks an optimistic version check that affected zero rows.
	ErrConcurrency = stderrors.New("CONCURRENT_MODIFICATION")

	// ErrUnsupportedOperation marks a backend that cannot filter, sort, page or write.
	ErrUnsupportedOperation = stderrors.New("UNSUPPORTED_OPERATION")

	// ErrBackendFailure marks a statement execution failure.
	ErrBackendFailure = stderrors.New("BACKEND_FAILURE")

	// ErrPrecondition marks a programming error such as a nested transaction or
	// binding a row to a second owner.
	ErrPrecondition = stderrors.New("PRECONDITION_VIOLATION")
)

func newKind(kind error, cause error, format string, args ...any) error {
	return &stackError{
		msg:   fmt.Sprintf(format, args...),
		cause: cause,
		kind:  kind,
		stack: captureStack(4), // skip: Callers, captureStack, newKind, constructor
	}
}

func Validationf(format string, args ...any) error {
	return newKind(ErrValidation, nil, format, args...)
}

func Concurrencyf(format string, args ...any) error {
	return newKind(ErrConcurrency, nil, format, args...)
}

func Unsupportedf(format string, args ...any) error {
	return newKind(ErrUnsupportedOperation, nil, format, args...)
}

func Preconditionf(format string, args ...any) error {
	return newKind(ErrPrecondition, nil, format, args...)
}

// BackendFailuref wraps a statement execution error. It returns nil if err is nil.
// An error that already carries a kind keeps it, so a concurrency failure raised
// below the wrapper is still reported as such.
func BackendFailuref(err error, format string, args ...any) error {
	if err == nil {
		return nil
	}
	if KindOf(err) != nil {
		return WithMessagef(err, format, args...)
	}
	return newKind(ErrBackendFailure, err, format, args...)
}

// KindOf returns the kind sentinel carried by err, or nil.
func KindOf(err error) error {
	for _, kind := range []error{ErrValidation, ErrConcurrency, ErrUnsupportedOperation, ErrBackendFailure, ErrPrecondition} {
		if stderrors.Is(err, kind) {
			return kind
		}
	}
	return nil
}
