package elastic

import (
	"context"

	"github.com/elastic/go-elasticsearch/v8/esapi"

	"github.com/kailas-cloud/esremap/internal/engine"
)

// Mapping types are gone since Elasticsearch 7: the document type is not sent on writes and
// reads report the type the caller asked for.

type shards struct {
	Total      int `json:"total"`
	Successful int `json:"successful"`
}

type indexResponse struct {
	ID     string `json:"_id"`
	Shards shards `json:"_shards"`
}

// IndexDocument writes one document through an index or write alias.
func (c *Client) IndexDocument(
	ctx context.Context, index, _, id string, body map[string]any,
) (engine.IndexResult, error) {
	r, err := encode(body)
	if err != nil {
		return engine.IndexResult{}, engine.Transport(engine.OpIndex, err)
	}
	opts := []func(*esapi.IndexRequest){c.es.Index.WithContext(ctx)}
	if id != "" {
		opts = append(opts, c.es.Index.WithDocumentID(id))
	}
	res, err := c.es.Index(index, r, opts...)
	if err != nil {
		return engine.IndexResult{}, engine.Transport(engine.OpIndex, err)
	}
	defer closeBody(res)
	var out indexResponse
	if err := decode(engine.OpIndex, res, &out); err != nil {
		return engine.IndexResult{}, err
	}
	if out.ID == "" {
		return engine.IndexResult{}, engine.Unknown(engine.OpIndex, "response has no _id")
	}
	return engine.IndexResult{ID: out.ID, Acknowledged: out.Shards.Successful > 0}, nil
}

// DeleteDocument removes one document; a missing document is a not-found error.
func (c *Client) DeleteDocument(ctx context.Context, index, _, id string) error {
	res, err := c.es.Delete(index, id, c.es.Delete.WithContext(ctx))
	if err != nil {
		return engine.Transport(engine.OpDelete, err)
	}
	defer closeBody(res)
	return decode(engine.OpDelete, res, nil)
}

type mgetDoc struct {
	Index  string         `json:"_index"`
	ID     string         `json:"_id"`
	Found  bool           `json:"found"`
	Source map[string]any `json:"_source"`
	Error  *errorCause    `json:"error"`
}

// MultiGet reads refs in one _mget call. A per-document error fails the whole call.
func (c *Client) MultiGet(ctx context.Context, refs []engine.DocRef, refresh bool) ([]engine.Doc, error) {
	if len(refs) == 0 {
		return nil, nil
	}
	docs := make([]map[string]string, 0, len(refs))
	for _, ref := range refs {
		docs = append(docs, map[string]string{"_index": ref.Index, "_id": ref.ID})
	}
	r, err := encode(map[string]any{"docs": docs})
	if err != nil {
		return nil, engine.Transport(engine.OpMget, err)
	}
	res, err := c.es.Mget(r,
		c.es.Mget.WithContext(ctx),
		c.es.Mget.WithRefresh(refresh),
	)
	if err != nil {
		return nil, engine.Transport(engine.OpMget, err)
	}
	defer closeBody(res)
	var out struct {
		Docs []mgetDoc `json:"docs"`
	}
	if err := decode(engine.OpMget, res, &out); err != nil {
		return nil, err
	}
	if len(out.Docs) != len(refs) {
		return nil, engine.Unknown(engine.OpMget, "docs count does not match request")
	}
	result := make([]engine.Doc, len(refs))
	for i, d := range out.Docs {
		if d.Error != nil {
			status := 400
			if d.Error.Type == "index_not_found_exception" {
				status = 404
			}
			return nil, engine.Classify(engine.OpMget, status, causeString(*d.Error))
		}
		result[i] = engine.Doc{Index: d.Index, Type: refs[i].Type, ID: d.ID, Found: d.Found, Source: d.Source}
	}
	return result, nil
}

// DeleteByQuery removes matching documents and returns how many were deleted.
func (c *Client) DeleteByQuery(ctx context.Context, index string, body map[string]any) (int, error) {
	r, err := encode(body)
	if err != nil {
		return 0, engine.Transport(engine.OpDeleteByQuery, err)
	}
	res, err := c.es.DeleteByQuery([]string{index}, r,
		c.es.DeleteByQuery.WithContext(ctx),
		c.es.DeleteByQuery.WithRefresh(true),
	)
	if err != nil {
		return 0, engine.Transport(engine.OpDeleteByQuery, err)
	}
	defer closeBody(res)
	var out struct {
		Deleted *int `json:"deleted"`
	}
	if err := decode(engine.OpDeleteByQuery, res, &out); err != nil {
		return 0, err
	}
	if out.Deleted == nil {
		return 0, engine.Unknown(engine.OpDeleteByQuery, "response has no deleted count")
	}
	return *out.Deleted, nil
}
