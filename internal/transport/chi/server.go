// Package chi serves the admin API: index lifecycle, live remaps and document access.
package chi

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/kailas-cloud/esremap/internal/domain"
	dombatch "github.com/kailas-cloud/esremap/internal/domain/batch"
	domdoc "github.com/kailas-cloud/esremap/internal/domain/document"
	documentuc "github.com/kailas-cloud/esremap/internal/usecase/document"
	healthuc "github.com/kailas-cloud/esremap/internal/usecase/health"
	indexuc "github.com/kailas-cloud/esremap/internal/usecase/index"
)

const maxBatchSize = documentuc.MaxBatchSize

// Server exposes the admin API over a chi router.
type Server struct {
	indexes       *indexuc.Registry
	health        *healthuc.Service
	logger        *zap.Logger
	errorHandlers []errorHandler
}

// NewServer creates an admin API server.
func NewServer(indexes *indexuc.Registry, health *healthuc.Service, logger *zap.Logger) *Server {
	return &Server{
		indexes:       indexes,
		health:        health,
		logger:        logger,
		errorHandlers: defaultErrorHandlers(),
	}
}

// Register mounts every route on r.
func (s *Server) Register(r chi.Router) {
	r.Get("/health", s.HealthCheck)
	r.Get("/metrics", s.Metrics)

	r.Route("/indexes", func(r chi.Router) {
		r.Get("/", s.ListIndexes)
		r.Route("/{name}", func(r chi.Router) {
			r.Get("/", s.GetIndex)
			r.Post("/", s.CreateIndex)
			r.Put("/", s.RecreateIndex)
			r.Delete("/", s.DeleteIndex)
			r.Post("/remap", s.RemapIndex)
			r.Post("/flush", s.FlushIndex)
			r.Post("/documents/_bulk", s.BulkIndex)
			r.Post("/documents/_delete_by_query", s.DeleteByQuery)
			r.Put("/documents/{id}", s.PutDocument)
			r.Get("/documents/{id}", s.GetDocument)
			r.Delete("/documents/{id}", s.DeleteDocument)
		})
	})
}

// Handler returns a router serving the admin API.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	s.Register(r)
	return r
}

// IndexResponse describes one logical index.
type IndexResponse struct {
	Name         string         `json:"name"`
	Strategy     string         `json:"strategy"`
	Status       string         `json:"status"`
	ReadIndexes  []string       `json:"read_indexes"`
	WriteIndexes []string       `json:"write_indexes"`
	Remapping    bool           `json:"remapping"`
	Mapping      map[string]any `json:"mapping,omitempty"`
}

// DocumentResponse is one stored document.
type DocumentResponse struct {
	ID         string         `json:"id"`
	Type       string         `json:"type"`
	Attributes map[string]any `json:"attributes"`
}

// BulkRequest is the body of POST /indexes/{name}/documents/_bulk.
type BulkRequest struct {
	Documents []BulkDocument `json:"documents"`
}

// BulkDocument is one document of a bulk request.
type BulkDocument struct {
	ID         string         `json:"id"`
	Attributes map[string]any `json:"attributes"`
}

// BulkResultItem is the per-document outcome of a bulk request.
type BulkResultItem struct {
	ID     string     `json:"id"`
	Status string     `json:"status"`
	Error  *ErrorBody `json:"error,omitempty"`
}

// ErrorBody is an error embedded in a successful response.
type ErrorBody struct {
	Code    ErrorCode `json:"code"`
	Message string    `json:"message"`
}

// BulkResponse summarises a bulk request.
type BulkResponse struct {
	Items     []BulkResultItem `json:"items"`
	Succeeded int              `json:"succeeded"`
	Failed    int              `json:"failed"`
}

// lookup resolves the index, or segment, a request addresses.
func (s *Server) lookup(w http.ResponseWriter, r *http.Request) (*indexuc.Service, bool) {
	svc, err := s.indexes.Lookup(chi.URLParam(r, "name"), r.URL.Query().Get("segment"))
	if err != nil {
		s.handleDomainError(w, err)
		return nil, false
	}
	return svc, true
}

func (s *Server) describe(r *http.Request, svc *indexuc.Service) (IndexResponse, error) {
	d, err := svc.Describe(r.Context())
	if err != nil {
		return IndexResponse{}, fmt.Errorf("describe: %w", err)
	}
	return IndexResponse{
		Name:         d.Name,
		Strategy:     string(d.Strategy),
		Status:       string(d.Status),
		ReadIndexes:  nonNil(d.ReadIndexes),
		WriteIndexes: nonNil(d.WriteIndexes),
		Remapping:    d.Remapping,
	}, nil
}

// ListIndexes handles GET /indexes.
func (s *Server) ListIndexes(w http.ResponseWriter, r *http.Request) {
	items := make([]IndexResponse, 0, len(s.indexes.Names()))
	for _, name := range s.indexes.Names() {
		svc, err := s.indexes.Get(name)
		if err != nil {
			s.handleDomainError(w, err)
			return
		}
		resp, err := s.describe(r, svc)
		if err != nil {
			s.handleDomainError(w, err)
			return
		}
		items = append(items, resp)
	}
	writeJSON(w, http.StatusOK, map[string]any{"items": items})
}

// GetIndex handles GET /indexes/{name}.
func (s *Server) GetIndex(w http.ResponseWriter, r *http.Request) {
	svc, ok := s.lookup(w, r)
	if !ok {
		return
	}
	resp, err := s.describe(r, svc)
	if err != nil {
		s.handleDomainError(w, err)
		return
	}
	if resp.Mapping, err = svc.Mapping(r.Context()); err != nil {
		s.handleDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

// CreateIndex handles POST /indexes/{name}.
func (s *Server) CreateIndex(w http.ResponseWriter, r *http.Request) {
	svc, ok := s.lookup(w, r)
	if !ok {
		return
	}
	if err := svc.Create(r.Context()); err != nil {
		s.handleDomainError(w, err)
		return
	}
	s.writeIndex(w, r, svc, http.StatusCreated)
}

// RecreateIndex handles PUT /indexes/{name}.
func (s *Server) RecreateIndex(w http.ResponseWriter, r *http.Request) {
	svc, ok := s.lookup(w, r)
	if !ok {
		return
	}
	if err := svc.Recreate(r.Context()); err != nil {
		s.handleDomainError(w, err)
		return
	}
	s.writeIndex(w, r, svc, http.StatusOK)
}

// DeleteIndex handles DELETE /indexes/{name}.
func (s *Server) DeleteIndex(w http.ResponseWriter, r *http.Request) {
	svc, ok := s.lookup(w, r)
	if !ok {
		return
	}
	if err := svc.Delete(r.Context()); err != nil {
		s.handleDomainError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// RemapIndex handles POST /indexes/{name}/remap. The call returns once the remap finished
// or was rolled back.
func (s *Server) RemapIndex(w http.ResponseWriter, r *http.Request) {
	svc, ok := s.lookup(w, r)
	if !ok {
		return
	}
	if err := svc.Remap(r.Context()); err != nil {
		s.handleDomainError(w, err)
		return
	}
	s.writeIndex(w, r, svc, http.StatusOK)
}

// FlushIndex handles POST /indexes/{name}/flush.
func (s *Server) FlushIndex(w http.ResponseWriter, r *http.Request) {
	svc, ok := s.lookup(w, r)
	if !ok {
		return
	}
	if err := svc.Flush(r.Context()); err != nil {
		s.handleDomainError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) writeIndex(w http.ResponseWriter, r *http.Request, svc *indexuc.Service, status int) {
	resp, err := s.describe(r, svc)
	if err != nil {
		s.handleDomainError(w, err)
		return
	}
	writeJSON(w, status, resp)
}

func (s *Server) documents(w http.ResponseWriter, r *http.Request) (*documentuc.Service, bool) {
	svc, ok := s.lookup(w, r)
	if !ok {
		return nil, false
	}
	return documentuc.New(svc.Strategy()).WithMaxBatchSize(maxBatchSize), true
}

// PutDocument handles PUT /indexes/{name}/documents/{id}.
func (s *Server) PutDocument(w http.ResponseWriter, r *http.Request) {
	docs, ok := s.documents(w, r)
	if !ok {
		return
	}
	var attrs map[string]any
	if err := json.NewDecoder(r.Body).Decode(&attrs); err != nil {
		writeError(w, http.StatusBadRequest, CodeBadRequest, "Invalid request body: "+err.Error())
		return
	}
	res, err := docs.Index(r.Context(), chi.URLParam(r, "id"), attrs)
	if err != nil {
		s.handleDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"id": res.ID, "acknowledged": res.Acknowledged})
}

// GetDocument handles GET /indexes/{name}/documents/{id}.
func (s *Server) GetDocument(w http.ResponseWriter, r *http.Request) {
	docs, ok := s.documents(w, r)
	if !ok {
		return
	}
	doc, err := docs.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.handleDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, DocumentResponse{ID: doc.ID, Type: doc.Type, Attributes: doc.Attributes})
}

// DeleteDocument handles DELETE /indexes/{name}/documents/{id}.
func (s *Server) DeleteDocument(w http.ResponseWriter, r *http.Request) {
	docs, ok := s.documents(w, r)
	if !ok {
		return
	}
	if err := docs.Delete(r.Context(), chi.URLParam(r, "id")); err != nil {
		s.handleDomainError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// BulkIndex handles POST /indexes/{name}/documents/_bulk.
func (s *Server) BulkIndex(w http.ResponseWriter, r *http.Request) {
	docs, ok := s.documents(w, r)
	if !ok {
		return
	}
	var req BulkRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, CodeBadRequest, "Invalid request body: "+err.Error())
		return
	}
	if len(req.Documents) == 0 || len(req.Documents) > maxBatchSize {
		writeError(w, http.StatusBadRequest, CodeBadRequest,
			fmt.Sprintf("documents count must be between 1 and %d", maxBatchSize))
		return
	}

	items := make([]domdoc.Document, len(req.Documents))
	for i, d := range req.Documents {
		items[i] = domdoc.Document{ID: d.ID, Attributes: d.Attributes}
	}
	results := docs.BulkIndex(r.Context(), items)

	resp := BulkResponse{Items: make([]BulkResultItem, len(results))}
	for i, res := range results {
		resp.Items[i] = bulkResultItem(res)
		if res.Status() == dombatch.StatusOK {
			resp.Succeeded++
		} else {
			resp.Failed++
		}
	}
	writeJSON(w, http.StatusOK, resp)
}

func bulkResultItem(res dombatch.Result) BulkResultItem {
	item := BulkResultItem{ID: res.ID(), Status: string(res.Status())}
	if res.Err() != nil {
		item.Error = &ErrorBody{Code: bulkErrorCode(res.Err()), Message: safeDomainMessage(res.Err())}
	}
	return item
}

func bulkErrorCode(err error) ErrorCode {
	switch {
	case errors.Is(err, domain.ErrDocumentNotFound):
		return CodeDocumentNotFound
	case errors.Is(err, domain.ErrInvalidDefinition):
		return CodeBadRequest
	default:
		return CodeInternalError
	}
}

// DeleteByQuery handles POST /indexes/{name}/documents/_delete_by_query.
func (s *Server) DeleteByQuery(w http.ResponseWriter, r *http.Request) {
	docs, ok := s.documents(w, r)
	if !ok {
		return
	}
	var req struct {
		Query map[string]any `json:"query"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, CodeBadRequest, "Invalid request body: "+err.Error())
		return
	}
	n, err := docs.DeleteByQuery(r.Context(), req.Query)
	if err != nil {
		s.handleDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]int{"deleted": n})
}

// HealthCheck handles GET /health.
func (s *Server) HealthCheck(w http.ResponseWriter, r *http.Request) {
	report := s.health.Check(r.Context())

	httpStatus := http.StatusOK
	if report.Status == healthuc.Unhealthy {
		httpStatus = http.StatusServiceUnavailable
	}

	writeJSON(w, httpStatus, map[string]any{
		"status": report.Status,
		"checks": report.Checks,
	})
}

// Metrics handles GET /metrics.
func (s *Server) Metrics(w http.ResponseWriter, r *http.Request) {
	promhttp.Handler().ServeHTTP(w, r)
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
