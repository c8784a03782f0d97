package strategy

import (
	"context"
	"fmt"

	"github.com/kailas-cloud/esremap/internal/bulk"
	"github.com/kailas-cloud/esremap/internal/domain"
	"github.com/kailas-cloud/esremap/internal/domain/document"
	"github.com/kailas-cloud/esremap/internal/engine"
)

// IndexDocument writes through the write alias.
func (a *Alias) IndexDocument(
	ctx context.Context, docType, id string, attrs map[string]any,
) (engine.IndexResult, error) {
	return indexDocument(ctx, a.client, a.updateAlias, docType, id, attrs)
}

// GetDocument reads from every index behind either alias, preferring the write index.
func (a *Alias) GetDocument(ctx context.Context, id string) (document.Document, error) {
	indexes, err := a.writeFirstIndexes(ctx)
	if err != nil {
		return document.Document{}, err
	}
	return getDocument(ctx, a.client, indexes, a.cfg.DocumentType, id)
}

// DeleteDocument deletes id from every index behind either alias.
func (a *Alias) DeleteDocument(ctx context.Context, id string) error {
	b, err := a.Bulk(ctx)
	if err != nil {
		return err
	}
	return deleteDocument(ctx, b, id)
}

// DeleteByQuery deletes the documents matching query through the read alias.
func (a *Alias) DeleteByQuery(ctx context.Context, query map[string]any) (int, error) {
	return deleteByQuery(ctx, a.client, a.mainAlias, query)
}

// Bulk returns a builder that writes through the write alias and deletes from every index
// behind either alias.
func (a *Alias) Bulk(ctx context.Context) (*bulk.Scoped, error) {
	indexes, err := a.writeFirstIndexes(ctx)
	if err != nil {
		return nil, err
	}
	return bulk.ForAlias(a.client, a.updateAlias, indexes, a.cfg.DocumentType), nil
}

// writeFirstIndexes returns write ∪ read indexes, write indexes first.
func (a *Alias) writeFirstIndexes(ctx context.Context) ([]string, error) {
	update, err := a.UpdateIndexes(ctx)
	if err != nil {
		return nil, err
	}
	main, err := a.MainIndexes(ctx)
	if err != nil {
		return nil, err
	}
	seen := make(map[string]struct{}, len(update)+len(main))
	out := make([]string, 0, len(update)+len(main))
	for _, name := range append(update, main...) {
		if _, ok := seen[name]; ok {
			continue
		}
		seen[name] = struct{}{}
		out = append(out, name)
	}
	return out, nil
}

func indexDocument(
	ctx context.Context, client Client, target, docType, id string, attrs map[string]any,
) (engine.IndexResult, error) {
	res, err := client.IndexDocument(ctx, target, docType, id, attrs)
	if err != nil {
		return engine.IndexResult{}, fmt.Errorf("index document %s: %w", id, err)
	}
	if res.ID == "" {
		return engine.IndexResult{}, engine.Unknown(engine.OpIndex, "response has no _id")
	}
	return res, nil
}

func getDocument(
	ctx context.Context, client Client, indexes []string, docType, id string,
) (document.Document, error) {
	if len(indexes) == 0 {
		return document.Document{}, fmt.Errorf("get document %s: %w", id, domain.ErrDocumentNotFound)
	}
	refs := make([]engine.DocRef, 0, len(indexes))
	for _, name := range indexes {
		refs = append(refs, engine.DocRef{Index: name, Type: docType, ID: id})
	}
	docs, err := client.MultiGet(ctx, refs, false)
	if engine.IsNotFound(err) && len(refs) > 1 {
		docs, err = getEach(ctx, client, refs)
	}
	if err != nil {
		return document.Document{}, fmt.Errorf("get document %s: %w", id, err)
	}
	for _, d := range docs {
		if d.Found {
			t := d.Type
			if t == "" {
				t = docType
			}
			return document.Document{ID: d.ID, Type: t, Attributes: d.Source}, nil
		}
	}
	return document.Document{}, fmt.Errorf("get document %s: %w", id, domain.ErrDocumentNotFound)
}

// getEach reads refs one by one and skips indexes that no longer exist.
func getEach(ctx context.Context, client Client, refs []engine.DocRef) ([]engine.Doc, error) {
	out := make([]engine.Doc, 0, len(refs))
	for _, ref := range refs {
		docs, err := client.MultiGet(ctx, []engine.DocRef{ref}, false)
		if engine.IsNotFound(err) {
			continue
		}
		if err != nil {
			return nil, err
		}
		out = append(out, docs...)
	}
	return out, nil
}

// deleteDocument reports ErrDocumentNotFound when no index held the document.
func deleteDocument(ctx context.Context, b *bulk.Scoped, id string) error {
	b.Delete(id)
	resp, err := b.Execute(ctx)
	if err != nil {
		return fmt.Errorf("delete document %s: %w", id, err)
	}
	for _, it := range resp.Failures() {
		if it.IndexMissing() {
			continue
		}
		return fmt.Errorf("delete document %s: %w", id,
			engine.Classify(engine.OpDelete, it.Status, it.ErrType+": "+it.Reason))
	}
	for _, it := range resp.Items {
		if it.Status < 300 {
			return nil
		}
	}
	return fmt.Errorf("delete document %s: %w", id, domain.ErrDocumentNotFound)
}

func deleteByQuery(ctx context.Context, client Client, target string, query map[string]any) (int, error) {
	if len(query) == 0 {
		query = map[string]any{"match_all": map[string]any{}}
	}
	n, err := client.DeleteByQuery(ctx, target, map[string]any{"query": query})
	if err != nil {
		return 0, fmt.Errorf("delete by query %s: %w", target, err)
	}
	return n, nil
}
