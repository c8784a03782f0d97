package esremap

import (
	"github.com/kailas-cloud/esremap/internal/domain"
	"github.com/kailas-cloud/esremap/internal/strategy"
)

// Sentinel errors re-exported from the domain layer.
// Use errors.Is() to check.
var (
	ErrIndexAlreadyExists = domain.ErrIndexAlreadyExists
	ErrRemapInProgress    = domain.ErrRemapInProgress
	ErrRemapLocked        = domain.ErrRemapLocked
	ErrInvalidDefinition  = domain.ErrInvalidDefinition
	ErrDocumentNotFound   = domain.ErrDocumentNotFound
	ErrNotImplemented     = domain.ErrNotImplemented
)

// RollbackError is returned by Remap when restoring the previous layout failed too.
// Use errors.As() to inspect the original failure and the rollback failure.
type RollbackError = strategy.RollbackError
