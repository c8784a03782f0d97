package document

import (
	"context"

	"github.com/kailas-cloud/esremap/internal/bulk"
	domdoc "github.com/kailas-cloud/esremap/internal/domain/document"
	domindex "github.com/kailas-cloud/esremap/internal/domain/index"
	"github.com/kailas-cloud/esremap/internal/engine"
)

// Store is the document side of a logical index.
type Store interface {
	Config() domindex.Config
	IndexDocument(ctx context.Context, docType, id string, attrs map[string]any) (engine.IndexResult, error)
	GetDocument(ctx context.Context, id string) (domdoc.Document, error)
	DeleteDocument(ctx context.Context, id string) error
	DeleteByQuery(ctx context.Context, query map[string]any) (int, error)
	Bulk(ctx context.Context) (*bulk.Scoped, error)
}
