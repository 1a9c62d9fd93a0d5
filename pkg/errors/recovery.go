package errors

import (
	"fmt"
	"runtime/debug"
)

// RecoverPanic converts a recovered value into a fatal ErrInternal carrying the stack.
// A nil value yields nil so it can be called unconditionally from a deferred recover.
func RecoverPanic(r interface{}) error {
	if r == nil {
		return nil
	}

	cause, ok := r.(error)
	if !ok {
		cause = fmt.Errorf("panic: %v", r)
	}

	return ErrInternal.
		WithCause(cause).
		WithDetails(map[string]interface{}{
			"panic":       true,
			"stack_trace": string(debug.Stack()),
		}).
		AsFatal()
}
