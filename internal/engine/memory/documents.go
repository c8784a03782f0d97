package memory

import (
	"context"
	"fmt"

	"github.com/kailas-cloud/esremap/internal/engine"
)

// IndexDocument writes one document through an index or a single-index alias.
func (e *Engine) IndexDocument(
	_ context.Context, name, docType, id string, body map[string]any,
) (engine.IndexResult, error) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	ix, err := e.resolveWrite(engine.OpIndex, name)
	if err != nil {
		return engine.IndexResult{}, err
	}
	ix.writeMu.Lock()
	defer ix.writeMu.Unlock()
	if err := ix.put(id, docType, cloneMap(body)); err != nil {
		return engine.IndexResult{}, engine.Transport(engine.OpIndex, err)
	}
	return engine.IndexResult{ID: id, Acknowledged: true}, nil
}

// DeleteDocument removes one document; a missing document is a not-found error.
func (e *Engine) DeleteDocument(_ context.Context, name, _, id string) error {
	e.mu.RLock()
	defer e.mu.RUnlock()
	ix, err := e.resolveWrite(engine.OpDelete, name)
	if err != nil {
		return err
	}
	ix.writeMu.Lock()
	defer ix.writeMu.Unlock()
	found, err := ix.remove(id)
	if err != nil {
		return engine.Transport(engine.OpDelete, err)
	}
	if !found {
		return engine.Classify(engine.OpDelete, 404, fmt.Sprintf("not_found: [%s][%s]", name, id))
	}
	return nil
}

// MultiGet reads each ref from its index. Writes are visible immediately, so refresh is ignored.
func (e *Engine) MultiGet(_ context.Context, refs []engine.DocRef, _ bool) ([]engine.Doc, error) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	docs := make([]engine.Doc, 0, len(refs))
	for _, ref := range refs {
		ix, err := e.resolveWrite(engine.OpMget, ref.Index)
		if err != nil {
			return nil, err
		}
		st, found, err := ix.get(ref.ID)
		if err != nil {
			return nil, engine.Transport(engine.OpMget, err)
		}
		doc := engine.Doc{Index: ix.name, Type: ref.Type, ID: ref.ID, Found: found}
		if found {
			doc.Type = st.Type
			doc.Source = st.Source
		}
		docs = append(docs, doc)
	}
	return docs, nil
}

// DeleteByQuery removes the matching documents from every index name resolves to.
func (e *Engine) DeleteByQuery(_ context.Context, name string, body map[string]any) (int, error) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	targets, err := e.resolve(engine.OpDeleteByQuery, name)
	if err != nil {
		return 0, err
	}
	q, err := buildQuery(body)
	if err != nil {
		return 0, engine.Classify(engine.OpDeleteByQuery, 400, err.Error())
	}
	deleted := 0
	for _, ix := range targets {
		n, err := deleteMatching(ix, q)
		deleted += n
		if err != nil {
			return deleted, engine.Transport(engine.OpDeleteByQuery, err)
		}
	}
	return deleted, nil
}
