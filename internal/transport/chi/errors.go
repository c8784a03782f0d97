package chi

import (
	"encoding/json"
	"errors"
	"net/http"

	"go.uber.org/zap"

	"github.com/kailas-cloud/esremap/internal/domain"
)

// ErrorCode is the machine-readable error code of an API error response.
type ErrorCode string

// API error codes.
const (
	CodeIndexNotConfigured ErrorCode = "index_not_configured"
	CodeIndexAlreadyExists ErrorCode = "index_already_exists"
	CodeRemapInProgress    ErrorCode = "remap_in_progress"
	CodeRemapLocked        ErrorCode = "remap_locked"
	CodeDocumentNotFound   ErrorCode = "document_not_found"
	CodeNotImplemented     ErrorCode = "not_implemented"
	CodeBadRequest         ErrorCode = "bad_request"
	CodeInternalError      ErrorCode = "internal_error"
)

// ErrorResponse is the body of every non-2xx response.
type ErrorResponse struct {
	Code    ErrorCode `json:"code"`
	Message string    `json:"message"`
}

// errorHandler tries to handle a domain error. Returns true if handled.
type errorHandler func(w http.ResponseWriter, err error, msg string) bool

func defaultErrorHandlers() []errorHandler {
	return []errorHandler{
		sentinelHandler(domain.ErrIndexNotConfigured, http.StatusNotFound, CodeIndexNotConfigured),
		sentinelHandler(domain.ErrIndexAlreadyExists, http.StatusConflict, CodeIndexAlreadyExists),
		sentinelHandler(domain.ErrRemapInProgress, http.StatusConflict, CodeRemapInProgress),
		sentinelHandler(domain.ErrRemapLocked, http.StatusLocked, CodeRemapLocked),
		sentinelHandler(domain.ErrDocumentNotFound, http.StatusNotFound, CodeDocumentNotFound),
		sentinelHandler(domain.ErrNotImplemented, http.StatusNotImplemented, CodeNotImplemented),
		sentinelHandler(domain.ErrInvalidDefinition, http.StatusBadRequest, CodeBadRequest),
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code ErrorCode, message string) {
	writeJSON(w, status, ErrorResponse{Code: code, Message: message})
}

// safeDomainMessage returns a sentinel error message for the client without exposing internals.
func safeDomainMessage(err error) string {
	sentinels := []error{
		domain.ErrIndexNotConfigured,
		domain.ErrIndexAlreadyExists,
		domain.ErrRemapInProgress,
		domain.ErrRemapLocked,
		domain.ErrDocumentNotFound,
		domain.ErrNotImplemented,
		domain.ErrInvalidDefinition,
	}
	for _, s := range sentinels {
		if errors.Is(err, s) {
			return s.Error()
		}
	}
	return "internal error"
}

// sentinelHandler returns an errorHandler that matches a single sentinel error.
func sentinelHandler(sentinel error, status int, code ErrorCode) errorHandler {
	return func(w http.ResponseWriter, err error, msg string) bool {
		if !errors.Is(err, sentinel) {
			return false
		}
		writeError(w, status, code, msg)
		return true
	}
}

func (s *Server) handleDomainError(w http.ResponseWriter, err error) {
	s.logger.Warn("domain error", zap.Error(err))
	msg := safeDomainMessage(err)
	for _, h := range s.errorHandlers {
		if h(w, err, msg) {
			return
		}
	}
	s.logger.Error("internal error", zap.Error(err))
	writeError(w, http.StatusInternalServerError, CodeInternalError, "internal error")
}
