package strategy

import (
	"context"

	"github.com/kailas-cloud/esremap/internal/bulk"
	"github.com/kailas-cloud/esremap/internal/domain/document"
	domindex "github.com/kailas-cloud/esremap/internal/domain/index"
	"github.com/kailas-cloud/esremap/internal/engine"
)

// Client is the part of the storage engine the strategies use.
type Client interface {
	engine.IndexAdmin
	engine.AliasAdmin
	engine.DocumentStore
	engine.Searcher
	engine.BulkExecutor
}

// IndexLifecycle manages the concrete indexes behind one logical index.
type IndexLifecycle interface {
	Status(ctx context.Context) (domindex.Status, error)
	Exists(ctx context.Context) (bool, error)
	Create(ctx context.Context, def domindex.Definition) error
	CreateIfUndefined(ctx context.Context, def domindex.Definition) error
	Delete(ctx context.Context) error
	DeleteIfDefined(ctx context.Context) error
	Recreate(ctx context.Context, def domindex.Definition) error
	// Remap moves the logical index onto a new concrete index created from def while it stays online.
	Remap(ctx context.Context, def domindex.Definition) error
	MainIndexes(ctx context.Context) ([]string, error)
	UpdateIndexes(ctx context.Context) ([]string, error)
	Flush(ctx context.Context) error
	Refresh(ctx context.Context) error
	Mapping(ctx context.Context) (map[string]any, error)
	Settings(ctx context.Context) (map[string]any, error)
	// RefIndexName is the name readers should search.
	RefIndexName() string
}

// DocumentOps reads and writes single documents of the logical index.
type DocumentOps interface {
	IndexDocument(ctx context.Context, docType, id string, attrs map[string]any) (engine.IndexResult, error)
	GetDocument(ctx context.Context, id string) (document.Document, error)
	DeleteDocument(ctx context.Context, id string) error
	DeleteByQuery(ctx context.Context, query map[string]any) (int, error)
}

// BulkOps hands out bulk builders scoped to the logical index.
type BulkOps interface {
	Bulk(ctx context.Context) (*bulk.Scoped, error)
}

// Strategy is one way of laying out a logical index on the engine.
type Strategy interface {
	IndexLifecycle
	DocumentOps
	BulkOps
	Config() domindex.Config
}
