package strategy

import (
	"errors"
	"fmt"
)

// ErrBulkItemFailures is returned in strict mode when a remap bulk call reports failed items.
var ErrBulkItemFailures = errors.New("bulk items failed")

// RollbackError is returned when a remap failed and restoring the original layout failed too.
// The alias layout is then left as the failure left it.
type RollbackError struct {
	Cause    error
	Rollback error
}

func (e *RollbackError) Error() string {
	return fmt.Sprintf("%v (rollback failed: %v)", e.Cause, e.Rollback)
}

// Unwrap exposes both errors to errors.Is and errors.As.
func (e *RollbackError) Unwrap() []error {
	return []error{e.Cause, e.Rollback}
}
