package esremap

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	dombatch "github.com/kailas-cloud/esremap/internal/domain/batch"
	domdoc "github.com/kailas-cloud/esremap/internal/domain/document"
	domindex "github.com/kailas-cloud/esremap/internal/domain/index"
	"github.com/kailas-cloud/esremap/internal/domain/retry"
	documentuc "github.com/kailas-cloud/esremap/internal/usecase/document"
	indexuc "github.com/kailas-cloud/esremap/internal/usecase/index"
)

// StrategyKind selects how a logical index maps onto concrete indexes.
type StrategyKind = domindex.StrategyKind

// Strategies.
const (
	// StrategyAlias keeps a read and a write alias over timestamped indexes. Only it can remap.
	StrategyAlias = domindex.StrategyAlias
	// StrategySingle uses one fixed index named after the logical index.
	StrategySingle = domindex.StrategySingle
)

// Status describes the alias layout of a logical index.
type Status = domindex.Status

// Status values.
const (
	StatusMissing      = domindex.StatusMissing
	StatusOK           = domindex.StatusOK
	StatusInconsistent = domindex.StatusInconsistent
)

// RetryPolicy bounds retries of deletes that fail while a snapshot is running.
type RetryPolicy = retry.Policy

// Description summarises the state of a logical index.
type Description = indexuc.Description

// Document is a stored document: id, type and raw attributes.
type Document = domdoc.Document

// BatchResult is the outcome of one document in a batch write.
type BatchResult = dombatch.Result

// IndexConfig describes one logical index.
type IndexConfig struct {
	// Name is the logical index name, lowercase. The client namespace is prepended.
	Name string
	// DocumentType defaults to Name.
	DocumentType string
	// Strategy defaults to StrategyAlias.
	Strategy StrategyKind
	Settings map[string]any
	// Mappings is the mappings object; its properties decide which attributes survive a remap.
	Mappings   map[string]any
	Retry      RetryPolicy
	BatchSize  int
	StrictBulk bool
}

func (c IndexConfig) domain(namespace string, settings map[string]any) domindex.Config {
	docType := c.DocumentType
	if docType == "" {
		docType = c.Name
	}
	batch := c.BatchSize
	if batch <= 0 {
		batch = domindex.DefaultBatchSize
	}
	return domindex.Config{
		BaseName:     c.Name,
		Namespace:    namespace,
		DocumentType: docType,
		Strategy:     c.Strategy,
		Definition:   domindex.Definition{Settings: c.Settings, Mappings: c.Mappings}.WithSettings(settings),
		Retry:        c.Retry,
		BatchSize:    batch,
		StrictBulk:   c.StrictBulk,
	}
}

// Index is a handle on one logical index.
type Index struct {
	svc    *indexuc.Service
	docs   *documentuc.Service
	logger *zap.Logger
}

// Name returns the namespaced name of the logical index.
func (ix *Index) Name() string { return ix.svc.Name() }

// ReadAlias returns the name to search.
func (ix *Index) ReadAlias() string { return ix.svc.Strategy().RefIndexName() }

// Segment returns the index for one segment, e.g. "users" segmented by "EuropeWest"
// addresses "users_europe_west". The segment shares the definition.
func (ix *Index) Segment(name string) (*Index, error) {
	seg, err := ix.svc.Segment(name)
	if err != nil {
		return nil, err
	}
	return newIndex(seg, ix.logger), nil
}

// Create creates the first concrete index and its aliases.
// Returns ErrIndexAlreadyExists unless the index is missing.
func (ix *Index) Create(ctx context.Context) error {
	return ix.svc.Create(ix.withLogger(ctx))
}

// Ensure creates the index if it is missing.
func (ix *Index) Ensure(ctx context.Context) error {
	return ix.svc.Ensure(ix.withLogger(ctx))
}

// Recreate drops the index with all its documents and creates it again.
func (ix *Index) Recreate(ctx context.Context) error {
	return ix.svc.Recreate(ix.withLogger(ctx))
}

// Drop deletes every concrete index of the logical index, if there are any.
func (ix *Index) Drop(ctx context.Context) error {
	return ix.svc.Delete(ix.withLogger(ctx))
}

// Exists reports whether the index is not missing.
func (ix *Index) Exists(ctx context.Context) (bool, error) {
	return ix.svc.Exists(ctx)
}

// Status returns the alias layout of the index.
func (ix *Index) Status(ctx context.Context) (Status, error) {
	return ix.svc.Status(ctx)
}

// Describe returns status, concrete indexes and whether a remap is running.
func (ix *Index) Describe(ctx context.Context) (Description, error) {
	return ix.svc.Describe(ctx)
}

// Remap moves the index onto a new concrete index built from the configured definition
// while it keeps serving reads and writes. On failure the previous layout is restored;
// a *RollbackError means the restore failed as well.
func (ix *Index) Remap(ctx context.Context) error {
	return ix.svc.Remap(ix.withLogger(ctx))
}

// Flush flushes every concrete index.
func (ix *Index) Flush(ctx context.Context) error {
	return ix.svc.Flush(ctx)
}

// Refresh makes recent writes visible to search.
func (ix *Index) Refresh(ctx context.Context) error {
	return ix.svc.Refresh(ctx)
}

// Mapping returns the mapping of the concrete index behind the read alias.
func (ix *Index) Mapping(ctx context.Context) (map[string]any, error) {
	return ix.svc.Mapping(ctx)
}

// Put writes a document, replacing any previous version.
func (ix *Index) Put(ctx context.Context, id string, attrs map[string]any) error {
	_, err := ix.docs.Index(ctx, id, attrs)
	return err
}

// Get retrieves a document by id. Returns ErrDocumentNotFound if it does not exist.
func (ix *Index) Get(ctx context.Context, id string) (Document, error) {
	return ix.docs.Get(ctx, id)
}

// Delete removes a document.
func (ix *Index) Delete(ctx context.Context, id string) error {
	return ix.docs.Delete(ctx, id)
}

// DeleteByQuery removes the documents matching query and returns how many went away.
func (ix *Index) DeleteByQuery(ctx context.Context, query map[string]any) (int, error) {
	return ix.docs.DeleteByQuery(ctx, query)
}

// PutBatch writes documents in one bulk request and returns one result per document.
func (ix *Index) PutBatch(ctx context.Context, docs []Document) []BatchResult {
	return ix.docs.BulkIndex(ctx, docs)
}

// UpdateBatch sets attrs on every document in ids.
func (ix *Index) UpdateBatch(ctx context.Context, ids []string, attrs map[string]any) []BatchResult {
	return ix.docs.BulkUpdate(ctx, ids, attrs)
}

// DeleteBatch removes every document in ids.
func (ix *Index) DeleteBatch(ctx context.Context, ids []string) []BatchResult {
	return ix.docs.BulkDelete(ctx, ids)
}

// batchError folds failed results into one error.
func batchError(results []BatchResult) error {
	n := dombatch.Failed(results)
	if n == 0 {
		return nil
	}
	for _, r := range results {
		if r.Err() != nil {
			return fmt.Errorf("%d of %d documents failed, first %s: %w", n, len(results), r.ID(), r.Err())
		}
	}
	return nil
}
