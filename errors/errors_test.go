package errors

import (
	stderrors "errors"
	"fmt"
	"strings"
	"testing"
)

func TestNew(t *testing.T) {
	err := New("ROW_ITEM_ALREADY_BOUND")
	if err.Error() != "ROW_ITEM_ALREADY_BOUND" {
		t.Errorf("expected 'ROW_ITEM_ALREADY_BOUND', got %q", err.Error())
	}

	stack := fmt.Sprintf("%+v", err)
	if !strings.Contains(stack, "TestNew") {
		t.Errorf("expected stack to contain 'TestNew', got:\n%s", stack)
	}
}

func TestWrap(t *testing.T) {
	cause := stderrors.New("connection reset")
	err := Wrapf(cause, "DB_QUERY_ERROR sql=%s", "SELECT 1")
	if err.Error() != "DB_QUERY_ERROR sql=SELECT 1: connection reset" {
		t.Errorf("unexpected message %q", err.Error())
	}
	if Cause(err) != cause {
		t.Errorf("expected root cause, got %v", Cause(err))
	}
	if Wrap(nil, "message") != nil {
		t.Error("expected nil for Wrap(nil, ...)")
	}
}

func TestWithMessage(t *testing.T) {
	root := New("root")
	wrapped := WithMessage(root, "context")

	if wrapped.Error() != "context: root" {
		t.Errorf("expected 'context: root', got %q", wrapped.Error())
	}
	if !Is(wrapped, root) {
		t.Error("expected Is to find the wrapped error")
	}
}

func TestKinds(t *testing.T) {
	tests := []struct {
		name string
		err  error
		kind error
	}{
		{"validation", Validationf("UNKNOWN_PROPERTY_ID:%s", "AGE"), ErrValidation},
		{"concurrency", Concurrencyf("VERSION_CHECK_FAILED:%s", "people"), ErrConcurrency},
		{"unsupported", Unsupportedf("PAGING_NOT_SUPPORTED"), ErrUnsupportedOperation},
		{"precondition", Preconditionf("TRANSACTION_ALREADY_ACTIVE"), ErrPrecondition},
		{"backend", BackendFailuref(stderrors.New("boom"), "DB_EXEC_ERROR"), ErrBackendFailure},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if !Is(tt.err, tt.kind) {
				t.Errorf("expected %v to be of kind %v", tt.err, tt.kind)
			}
			if KindOf(tt.err) != tt.kind {
				t.Errorf("KindOf() = %v, want %v", KindOf(tt.err), tt.kind)
			}
			stack := fmt.Sprintf("%+v", tt.err)
			if !strings.Contains(stack, "TestKinds") {
				t.Errorf("expected stack to start at the caller:\n%s", stack)
			}
		})
	}
}

func TestBackendFailurefKeepsKind(t *testing.T) {
	inner := Concurrencyf("VERSION_CHECK_FAILED")
	err := BackendFailuref(inner, "COMMIT_FAILED")

	if !Is(err, ErrConcurrency) {
		t.Error("expected concurrency kind to survive wrapping")
	}
	if Is(err, ErrBackendFailure) {
		t.Error("expected no backend failure kind on an already classified error")
	}
	if BackendFailuref(nil, "x") != nil {
		t.Error("expected nil for BackendFailuref(nil, ...)")
	}
}

func TestKindOfPlainError(t *testing.T) {
	if KindOf(stderrors.New("plain")) != nil {
		t.Error("expected no kind for a plain error")
	}
	if KindOf(Wrap(Validationf("X"), "outer")) != ErrValidation {
		t.Error("expected kind to be found through Wrap")
	}
}
