package elastic

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/elastic/go-elasticsearch/v8/esapi"

	"github.com/kailas-cloud/esremap/internal/engine"
)

type searchResponse struct {
	ScrollID string `json:"_scroll_id"`
	Hits     *struct {
		Total json.RawMessage `json:"total"`
		Hits  []struct {
			Index  string         `json:"_index"`
			ID     string         `json:"_id"`
			Source map[string]any `json:"_source"`
		} `json:"hits"`
	} `json:"hits"`
}

// Search opens a search, as a scroll when req.Scroll is set.
func (c *Client) Search(ctx context.Context, req engine.SearchRequest) (engine.ScrollPage, error) {
	r, err := encode(req.Body)
	if err != nil {
		return engine.ScrollPage{}, engine.Transport(engine.OpSearch, err)
	}
	opts := []func(*esapi.SearchRequest){
		c.es.Search.WithContext(ctx),
		c.es.Search.WithIndex(req.Index),
		c.es.Search.WithBody(r),
	}
	if req.Size > 0 {
		opts = append(opts, c.es.Search.WithSize(req.Size))
	}
	if req.Scroll > 0 {
		opts = append(opts, c.es.Search.WithScroll(req.Scroll))
	}
	res, err := c.es.Search(opts...)
	if err != nil {
		return engine.ScrollPage{}, engine.Transport(engine.OpSearch, err)
	}
	defer closeBody(res)
	return readPage(engine.OpSearch, res)
}

// Scroll advances an open scroll cursor.
func (c *Client) Scroll(ctx context.Context, scrollID string, keepAlive time.Duration) (engine.ScrollPage, error) {
	r, err := encode(map[string]string{
		"scroll_id": scrollID,
		"scroll":    fmt.Sprintf("%dms", keepAlive.Milliseconds()),
	})
	if err != nil {
		return engine.ScrollPage{}, engine.Transport(engine.OpScroll, err)
	}
	res, err := c.es.Scroll(c.es.Scroll.WithContext(ctx), c.es.Scroll.WithBody(r))
	if err != nil {
		return engine.ScrollPage{}, engine.Transport(engine.OpScroll, err)
	}
	defer closeBody(res)
	return readPage(engine.OpScroll, res)
}

// ClearScroll releases a cursor; an already expired cursor is not an error.
func (c *Client) ClearScroll(ctx context.Context, scrollID string) error {
	res, err := c.es.ClearScroll(
		c.es.ClearScroll.WithContext(ctx),
		c.es.ClearScroll.WithScrollID(scrollID),
	)
	if err != nil {
		return engine.Transport(engine.OpClearScroll, err)
	}
	defer closeBody(res)
	if res.StatusCode == 404 {
		return nil
	}
	return decode(engine.OpClearScroll, res, nil)
}

func readPage(op string, res *esapi.Response) (engine.ScrollPage, error) {
	var out searchResponse
	if err := decode(op, res, &out); err != nil {
		return engine.ScrollPage{}, err
	}
	if out.Hits == nil {
		return engine.ScrollPage{}, engine.Unknown(op, "response has no hits")
	}
	page := engine.ScrollPage{
		ScrollID: out.ScrollID,
		Total:    totalOf(out.Hits.Total),
		Hits:     make([]engine.Hit, 0, len(out.Hits.Hits)),
	}
	for _, h := range out.Hits.Hits {
		page.Hits = append(page.Hits, engine.Hit{Index: h.Index, ID: h.ID, Source: h.Source})
	}
	return page, nil
}

// totalOf accepts both {"value": n} and a bare number.
func totalOf(raw json.RawMessage) int {
	var obj struct {
		Value int `json:"value"`
	}
	if json.Unmarshal(raw, &obj) == nil && obj.Value > 0 {
		return obj.Value
	}
	var n int
	_ = json.Unmarshal(raw, &n)
	return n
}
