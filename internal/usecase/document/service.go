// Package document reads and writes documents of one logical index, singly or in bulk.
package document

import (
	"context"
	"errors"
	"fmt"

	"github.com/kailas-cloud/esremap/internal/domain"
	dombatch "github.com/kailas-cloud/esremap/internal/domain/batch"
	domdoc "github.com/kailas-cloud/esremap/internal/domain/document"
	"github.com/kailas-cloud/esremap/internal/engine"
)

// MaxBatchSize is the maximum number of documents per bulk call.
const MaxBatchSize = 1000

// Service handles document operations of one logical index.
type Service struct {
	store        Store
	maxBatchSize int
}

// New creates a document service.
func New(store Store) *Service {
	return &Service{store: store, maxBatchSize: MaxBatchSize}
}

// WithMaxBatchSize configures the maximum batch size.
func (s *Service) WithMaxBatchSize(size int) *Service {
	if size > 0 {
		s.maxBatchSize = size
	}
	return s
}

// Index writes a document through the write alias, replacing any previous version.
func (s *Service) Index(ctx context.Context, id string, attrs map[string]any) (engine.IndexResult, error) {
	doc, err := domdoc.New(s.store.Config().DocumentType, id, attrs)
	if err != nil {
		return engine.IndexResult{}, fmt.Errorf("validate document: %w: %w", domain.ErrInvalidDefinition, err)
	}
	res, err := s.store.IndexDocument(ctx, doc.Type, doc.ID, doc.Attributes)
	if err != nil {
		return engine.IndexResult{}, fmt.Errorf("index document: %w", err)
	}
	return res, nil
}

// Get retrieves a document by id.
func (s *Service) Get(ctx context.Context, id string) (domdoc.Document, error) {
	doc, err := s.store.GetDocument(ctx, id)
	if err != nil {
		return domdoc.Document{}, fmt.Errorf("get document: %w", err)
	}
	return doc, nil
}

// Delete removes a document from every concrete index of the logical index.
func (s *Service) Delete(ctx context.Context, id string) error {
	if err := s.store.DeleteDocument(ctx, id); err != nil {
		return fmt.Errorf("delete document: %w", err)
	}
	return nil
}

// DeleteByQuery removes the matching documents and returns how many went away.
func (s *Service) DeleteByQuery(ctx context.Context, query map[string]any) (int, error) {
	n, err := s.store.DeleteByQuery(ctx, query)
	if err != nil {
		return 0, fmt.Errorf("delete by query: %w", err)
	}
	return n, nil
}

// BulkIndex writes many documents in one round trip.
func (s *Service) BulkIndex(ctx context.Context, docs []domdoc.Document) []dombatch.Result {
	ids := make([]string, len(docs))
	for i, d := range docs {
		ids[i] = d.ID
	}
	return s.run(ctx, ids, func(b stager, i int) {
		b.Index(docs[i].ID, docs[i].Attributes)
	})
}

// BulkUpdate sets attrs on every document in ids.
func (s *Service) BulkUpdate(ctx context.Context, ids []string, attrs map[string]any) []dombatch.Result {
	return s.run(ctx, ids, func(b stager, i int) {
		b.Update(ids[i], attrs)
	})
}

// BulkDelete removes every document in ids. Missing documents are not failures.
func (s *Service) BulkDelete(ctx context.Context, ids []string) []dombatch.Result {
	return s.run(ctx, ids, func(b stager, i int) {
		b.Delete(ids[i])
	})
}

type stager interface {
	Index(id string, attrs map[string]any)
	Update(id string, attrs map[string]any)
	Delete(id string)
}

// run validates ids, stages the valid ones and folds the bulk items back into one result per id.
func (s *Service) run(ctx context.Context, ids []string, stage func(b stager, i int)) []dombatch.Result {
	results := make([]dombatch.Result, len(ids))

	if len(ids) > s.maxBatchSize {
		for i, id := range ids {
			results[i] = dombatch.NewError(id,
				fmt.Errorf("batch size exceeds %d: %w", s.maxBatchSize, domain.ErrInvalidDefinition))
		}
		return results
	}

	b, err := s.store.Bulk(ctx)
	if err != nil {
		for i, id := range ids {
			results[i] = dombatch.NewError(id, fmt.Errorf("open bulk: %w", err))
		}
		return results
	}

	staged := make([]int, 0, len(ids))
	for i, id := range ids {
		if err := domdoc.ValidateID(id); err != nil {
			results[i] = dombatch.NewError(id, fmt.Errorf("%w: %w", domain.ErrInvalidDefinition, err))
			continue
		}
		stage(b, i)
		staged = append(staged, i)
	}
	if len(staged) == 0 {
		return results
	}

	resp, err := b.Execute(ctx)
	if err != nil {
		for _, i := range staged {
			results[i] = dombatch.NewError(ids[i], fmt.Errorf("bulk: %w", err))
		}
		return results
	}

	failures := make(map[string]error)
	for _, it := range resp.Items {
		if it.Action == engine.BulkDelete && it.IndexMissing() {
			continue
		}
		if it.Failed() {
			if _, seen := failures[it.ID]; !seen {
				failures[it.ID] = itemError(it)
			}
		}
	}
	for _, i := range staged {
		if err := failures[ids[i]]; err != nil {
			results[i] = dombatch.NewError(ids[i], err)
			continue
		}
		results[i] = dombatch.NewOK(ids[i])
	}
	return results
}

func itemError(it engine.BulkItem) error {
	err := engine.Classify(engine.OpBulk, it.Status, it.ErrType+": "+it.Reason)
	if it.Action == engine.BulkUpdate && it.Status == 404 {
		return errors.Join(domain.ErrDocumentNotFound, err)
	}
	return err
}
