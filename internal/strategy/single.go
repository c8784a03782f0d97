package strategy

import (
	"context"
	"fmt"

	"github.com/kailas-cloud/esremap/internal/bulk"
	"github.com/kailas-cloud/esremap/internal/domain"
	"github.com/kailas-cloud/esremap/internal/domain/document"
	domindex "github.com/kailas-cloud/esremap/internal/domain/index"
	"github.com/kailas-cloud/esremap/internal/engine"
)

// Compile-time check: Single implements Strategy.
var _ Strategy = (*Single)(nil)

// Single keeps a logical index in one fixed concrete index named after it. It cannot remap.
type Single struct {
	client Client
	cfg    domindex.Config
	name   string
}

// NewSingle creates the single-index strategy for cfg.
func NewSingle(client Client, cfg domindex.Config) *Single {
	return &Single{client: client, cfg: cfg, name: cfg.FQBaseName()}
}

func (s *Single) Config() domindex.Config { return s.cfg }
func (s *Single) RefIndexName() string    { return s.name }

func (s *Single) Status(ctx context.Context) (domindex.Status, error) {
	ok, err := s.client.IndexExists(ctx, s.name)
	if err != nil {
		return "", fmt.Errorf("index exists %s: %w", s.name, err)
	}
	if ok {
		return domindex.StatusOK, nil
	}
	return domindex.StatusMissing, nil
}

func (s *Single) Exists(ctx context.Context) (bool, error) {
	st, err := s.Status(ctx)
	return st == domindex.StatusOK, err
}

func (s *Single) Create(ctx context.Context, def domindex.Definition) error {
	ok, err := s.Exists(ctx)
	if err != nil {
		return err
	}
	if ok {
		return fmt.Errorf("create %s: %w", s.name, domain.ErrIndexAlreadyExists)
	}
	if err := s.client.CreateIndex(ctx, s.name, def); err != nil {
		return fmt.Errorf("create index %s: %w", s.name, err)
	}
	return nil
}

func (s *Single) CreateIfUndefined(ctx context.Context, def domindex.Definition) error {
	ok, err := s.Exists(ctx)
	if err != nil || ok {
		return err
	}
	return s.Create(ctx, def)
}

func (s *Single) Delete(ctx context.Context) error {
	if err := s.client.DeleteIndex(ctx, s.name); err != nil && !engine.IsNotFound(err) {
		return fmt.Errorf("delete index %s: %w", s.name, err)
	}
	return nil
}

func (s *Single) DeleteIfDefined(ctx context.Context) error {
	ok, err := s.Exists(ctx)
	if err != nil || !ok {
		return err
	}
	return s.Delete(ctx)
}

func (s *Single) Recreate(ctx context.Context, def domindex.Definition) error {
	if err := s.DeleteIfDefined(ctx); err != nil {
		return err
	}
	return s.Create(ctx, def)
}

// Remap is not supported: a fixed index name cannot be swapped.
func (s *Single) Remap(_ context.Context, _ domindex.Definition) error {
	return fmt.Errorf("remap %s: %w", s.name, domain.ErrNotImplemented)
}

func (s *Single) MainIndexes(ctx context.Context) ([]string, error) {
	ok, err := s.Exists(ctx)
	if err != nil || !ok {
		return nil, err
	}
	return []string{s.name}, nil
}

func (s *Single) UpdateIndexes(ctx context.Context) ([]string, error) {
	return s.MainIndexes(ctx)
}

func (s *Single) Flush(ctx context.Context) error {
	if err := s.client.Flush(ctx, s.name); err != nil {
		return fmt.Errorf("flush %s: %w", s.name, err)
	}
	return nil
}

func (s *Single) Refresh(ctx context.Context) error {
	if err := s.client.Refresh(ctx, s.name); err != nil {
		return fmt.Errorf("refresh %s: %w", s.name, err)
	}
	return nil
}

func (s *Single) Mapping(ctx context.Context) (map[string]any, error) {
	m, err := s.client.GetMapping(ctx, s.name)
	if engine.IsNotFound(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get mapping %s: %w", s.name, err)
	}
	return m, nil
}

func (s *Single) Settings(ctx context.Context) (map[string]any, error) {
	m, err := s.client.GetSettings(ctx, s.name)
	if engine.IsNotFound(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get settings %s: %w", s.name, err)
	}
	return m, nil
}

func (s *Single) IndexDocument(
	ctx context.Context, docType, id string, attrs map[string]any,
) (engine.IndexResult, error) {
	return indexDocument(ctx, s.client, s.name, docType, id, attrs)
}

func (s *Single) GetDocument(ctx context.Context, id string) (document.Document, error) {
	return getDocument(ctx, s.client, []string{s.name}, s.cfg.DocumentType, id)
}

func (s *Single) DeleteDocument(ctx context.Context, id string) error {
	b, _ := s.Bulk(ctx)
	return deleteDocument(ctx, b, id)
}

func (s *Single) DeleteByQuery(ctx context.Context, query map[string]any) (int, error) {
	return deleteByQuery(ctx, s.client, s.name, query)
}

func (s *Single) Bulk(_ context.Context) (*bulk.Scoped, error) {
	return bulk.ForIndex(s.client, s.name, s.cfg.DocumentType), nil
}
