package memory

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/blevesearch/bleve/v2/search/query"
	"github.com/google/uuid"

	"github.com/kailas-cloud/esremap/internal/engine"
)

const defaultPageSize = 10

type hitRef struct {
	index string
	id    string
}

// cursor is an open scroll: the remaining hits of a search captured when it was opened.
type cursor struct {
	mu         sync.Mutex
	refs       []hitRef
	size       int
	withSource bool
}

// Search runs a query over every index name resolves to, ordered by index then id.
// With Scroll set the remaining hits stay available through Scroll.
func (e *Engine) Search(_ context.Context, req engine.SearchRequest) (engine.ScrollPage, error) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	targets, err := e.resolve(engine.OpSearch, req.Index)
	if err != nil {
		return engine.ScrollPage{}, err
	}
	q, err := buildQuery(req.Body)
	if err != nil {
		return engine.ScrollPage{}, engine.Classify(engine.OpSearch, 400, err.Error())
	}

	var refs []hitRef
	for _, ix := range targets {
		ids, err := ix.match(q)
		if err != nil {
			return engine.ScrollPage{}, engine.Transport(engine.OpSearch, err)
		}
		for _, id := range ids {
			refs = append(refs, hitRef{index: ix.name, id: id})
		}
	}

	c := &cursor{refs: refs, size: pageSize(req), withSource: wantsSource(req.Body)}
	page := engine.ScrollPage{Total: len(refs)}
	if page.Hits, err = e.next(c); err != nil {
		return engine.ScrollPage{}, err
	}
	if req.Scroll > 0 {
		page.ScrollID = uuid.NewString()
		e.scrolls.Add(page.ScrollID, c)
	}
	return page, nil
}

// Scroll returns the next page of an open cursor. An exhausted cursor returns an empty page.
func (e *Engine) Scroll(_ context.Context, scrollID string, _ time.Duration) (engine.ScrollPage, error) {
	c, ok := e.scrolls.Get(scrollID)
	if !ok {
		return engine.ScrollPage{}, engine.Classify(engine.OpScroll, 404,
			fmt.Sprintf("search_context_missing_exception: no search context found for id [%s]", scrollID))
	}
	// Re-adding resets the idle timer.
	e.scrolls.Add(scrollID, c)

	e.mu.RLock()
	defer e.mu.RUnlock()
	hits, err := e.next(c)
	if err != nil {
		return engine.ScrollPage{}, err
	}
	return engine.ScrollPage{ScrollID: scrollID, Hits: hits}, nil
}

// ClearScroll releases a cursor; clearing an unknown id is not an error.
func (e *Engine) ClearScroll(_ context.Context, scrollID string) error {
	e.scrolls.Remove(scrollID)
	return nil
}

// next pops one page off the cursor. Hits whose document or index vanished since the
// search was opened are dropped. Callers hold e.mu.
func (e *Engine) next(c *cursor) ([]engine.Hit, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	n := min(c.size, len(c.refs))
	page := c.refs[:n]
	c.refs = c.refs[n:]

	hits := make([]engine.Hit, 0, len(page))
	for _, ref := range page {
		ix, ok := e.indexes[ref.index]
		if !ok {
			continue
		}
		st, found, err := ix.get(ref.id)
		if err != nil {
			return nil, engine.Transport(engine.OpSearch, err)
		}
		if !found {
			continue
		}
		hit := engine.Hit{Index: ref.index, Type: st.Type, ID: ref.id}
		if c.withSource {
			hit.Source = cloneMap(st.Source)
		}
		hits = append(hits, hit)
	}
	return hits, nil
}

func deleteMatching(ix *index, q query.Query) (int, error) {
	ix.writeMu.Lock()
	defer ix.writeMu.Unlock()
	ids, err := ix.match(q)
	if err != nil {
		return 0, err
	}
	deleted := 0
	for _, id := range ids {
		found, err := ix.remove(id)
		if err != nil {
			return deleted, err
		}
		if found {
			deleted++
		}
	}
	return deleted, nil
}

func pageSize(req engine.SearchRequest) int {
	if req.Size > 0 {
		return req.Size
	}
	switch v := req.Body["size"].(type) {
	case int:
		if v > 0 {
			return v
		}
	case float64:
		if v > 0 {
			return int(v)
		}
	}
	return defaultPageSize
}

func wantsSource(body map[string]any) bool {
	if v, ok := body["_source"].(bool); ok {
		return v
	}
	return true
}
