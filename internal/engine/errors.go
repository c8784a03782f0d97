package engine

import (
	"errors"
	"fmt"
	"strings"
)

// Sentinel errors for engine operations.
var (
	ErrNotFound        = errors.New("engine: not found")
	ErrUnknownResponse = errors.New("engine: unknown response shape")
)

// Kind classifies an engine failure once, at the adapter boundary.
type Kind int

const (
	// KindNonRecoverable covers every failure that must not be retried.
	KindNonRecoverable Kind = iota
	// KindRecoverable is a transient condition, e.g. the index is being snapshotted.
	KindRecoverable
	// KindNotFound is a missing index, alias or document.
	KindNotFound
	// KindUnknownResponse is a response missing a field the caller relies on.
	KindUnknownResponse
)

func (k Kind) String() string {
	switch k {
	case KindRecoverable:
		return "recoverable"
	case KindNotFound:
		return "not_found"
	case KindUnknownResponse:
		return "unknown_response"
	default:
		return "non_recoverable"
	}
}

// RecoverableSnippets are the engine messages that mark a failure as transient.
var RecoverableSnippets = []string{
	"Cannot delete indices that are being snapshotted",
}

// Op constants name engine calls for error context.
const (
	OpCreateIndex   = "indices.create"
	OpDeleteIndex   = "indices.delete"
	OpIndexExists   = "indices.exists"
	OpListIndices   = "indices.get_alias"
	OpRefresh       = "indices.refresh"
	OpFlush         = "indices.flush"
	OpGetMapping    = "indices.get_mapping"
	OpGetSettings   = "indices.get_settings"
	OpAliasExists   = "indices.exists_alias"
	OpGetAlias      = "indices.get_alias"
	OpUpdateAliases = "indices.update_aliases"
	OpIndex         = "index"
	OpDelete        = "delete"
	OpMget          = "mget"
	OpDeleteByQuery = "delete_by_query"
	OpSearch        = "search"
	OpScroll        = "scroll"
	OpClearScroll   = "clear_scroll"
	OpBulk          = "bulk"
	OpPing          = "ping"
)

// Error wraps an underlying error with the operation and its classification.
type Error struct {
	Op     string
	Kind   Kind
	Status int
	Err    error
}

func (e *Error) Error() string { return e.Op + ": " + e.Err.Error() }
func (e *Error) Unwrap() error { return e.Err }

// Classify builds the error for a failed call from its HTTP status and the engine's reason.
func Classify(op string, status int, reason string) *Error {
	e := &Error{Op: op, Status: status, Kind: KindNonRecoverable, Err: errors.New(reason)}
	switch {
	case isRecoverableReason(reason):
		e.Kind = KindRecoverable
	case status == 404:
		e.Kind = KindNotFound
		e.Err = fmt.Errorf("%w: %s", ErrNotFound, reason)
	}
	return e
}

// Unknown builds the error for a response that lacks an expected field.
func Unknown(op, detail string) *Error {
	return &Error{Op: op, Kind: KindUnknownResponse, Err: fmt.Errorf("%w: %s", ErrUnknownResponse, detail)}
}

// Transport wraps a failure to reach the engine at all.
func Transport(op string, err error) *Error {
	return &Error{Op: op, Kind: KindNonRecoverable, Err: err}
}

// KindOf returns the classification of err; unclassified errors are non-recoverable.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindNonRecoverable
}

// IsRecoverable reports whether err may be retried.
func IsRecoverable(err error) bool {
	return err != nil && KindOf(err) == KindRecoverable
}

// IsNotFound reports whether err is a missing index, alias or document.
func IsNotFound(err error) bool {
	return err != nil && (KindOf(err) == KindNotFound || errors.Is(err, ErrNotFound))
}

func isRecoverableReason(reason string) bool {
	for _, s := range RecoverableSnippets {
		if strings.Contains(reason, s) {
			return true
		}
	}
	return false
}
