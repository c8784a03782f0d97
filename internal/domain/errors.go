package domain

import (
	"errors"
)

var (
	// ErrIndexAlreadyExists signals a create on a logical index that is not missing.
	ErrIndexAlreadyExists = errors.New("index already exists")
	// ErrRemapInProgress signals that the alias layout does not allow a remap right now.
	ErrRemapInProgress = errors.New("index can't be remapped right now, check if another remapping is already happening")
	// ErrRemapLocked signals that another process holds the live remap lease.
	ErrRemapLocked = errors.New("live remap is already running")
	// ErrIndexNotConfigured signals an unknown logical index name.
	ErrIndexNotConfigured = errors.New("index not configured")
	// ErrInvalidDefinition signals a malformed index definition or index configuration.
	ErrInvalidDefinition = errors.New("invalid index definition")
	// ErrDocumentNotFound signals a missing document.
	ErrDocumentNotFound = errors.New("document not found")
	// ErrNotImplemented signals an operation the selected strategy does not support.
	ErrNotImplemented = errors.New("not implemented")
)
