package engine

import (
	"context"
	"time"

	domindex "github.com/kailas-cloud/esremap/internal/domain/index"
)

// Client is the storage engine facade combining all sub-interfaces.
//
//nolint:interfacebloat // facade by design -- consumers use narrow sub-interfaces (ISP)
type Client interface {
	Pinger
	IndexAdmin
	AliasAdmin
	DocumentStore
	Searcher
	BulkExecutor
	Close()
	WaitForReady(ctx context.Context, timeout time.Duration) error
}

// Pinger checks engine connectivity.
type Pinger interface {
	Ping(ctx context.Context) error
}

// IndexAdmin manages concrete index lifecycle.
type IndexAdmin interface {
	CreateIndex(ctx context.Context, name string, def domindex.Definition) error
	DeleteIndex(ctx context.Context, name string) error
	IndexExists(ctx context.Context, name string) (bool, error)
	// ListIndices returns the concrete indexes matching a wildcard pattern; no match is not an error.
	ListIndices(ctx context.Context, pattern string) ([]string, error)
	Refresh(ctx context.Context, index string) error
	Flush(ctx context.Context, index string) error
	GetMapping(ctx context.Context, index string) (map[string]any, error)
	GetSettings(ctx context.Context, index string) (map[string]any, error)
}

// AliasAdmin reads and atomically rewrites alias bindings.
type AliasAdmin interface {
	AliasExists(ctx context.Context, alias string) (bool, error)
	// GetAlias returns the indexes matching pattern that carry alias, keyed by index name.
	// A missing alias is reported as a KindNotFound error.
	GetAlias(ctx context.Context, pattern, alias string) (map[string]AliasMeta, error)
	// UpdateAliases applies all actions in one atomic engine call.
	UpdateAliases(ctx context.Context, actions []AliasAction) error
}

// DocumentStore provides single-document and multi-get operations.
type DocumentStore interface {
	IndexDocument(ctx context.Context, index, docType, id string, body map[string]any) (IndexResult, error)
	DeleteDocument(ctx context.Context, index, docType, id string) error
	// MultiGet returns one Doc per ref, in request order.
	MultiGet(ctx context.Context, refs []DocRef, refresh bool) ([]Doc, error)
	DeleteByQuery(ctx context.Context, index string, body map[string]any) (int, error)
}

// Searcher opens and advances scroll cursors.
type Searcher interface {
	Search(ctx context.Context, req SearchRequest) (ScrollPage, error)
	Scroll(ctx context.Context, scrollID string, keepAlive time.Duration) (ScrollPage, error)
	ClearScroll(ctx context.Context, scrollID string) error
}

// BulkExecutor submits many operations in one round trip.
type BulkExecutor interface {
	Bulk(ctx context.Context, ops []BulkOp) (BulkResponse, error)
}
