package elastic

import (
	"context"
	"sort"

	domindex "github.com/kailas-cloud/esremap/internal/domain/index"
	"github.com/kailas-cloud/esremap/internal/engine"
)

// CreateIndex creates a concrete index with the definition as its body.
func (c *Client) CreateIndex(ctx context.Context, name string, def domindex.Definition) error {
	body, err := encode(def)
	if err != nil {
		return engine.Transport(engine.OpCreateIndex, err)
	}
	res, err := c.es.Indices.Create(name,
		c.es.Indices.Create.WithContext(ctx),
		c.es.Indices.Create.WithBody(body),
	)
	if err != nil {
		return engine.Transport(engine.OpCreateIndex, err)
	}
	defer closeBody(res)
	return decode(engine.OpCreateIndex, res, nil)
}

// DeleteIndex deletes one concrete index.
func (c *Client) DeleteIndex(ctx context.Context, name string) error {
	res, err := c.es.Indices.Delete([]string{name}, c.es.Indices.Delete.WithContext(ctx))
	if err != nil {
		return engine.Transport(engine.OpDeleteIndex, err)
	}
	defer closeBody(res)
	return decode(engine.OpDeleteIndex, res, nil)
}

// IndexExists reports whether name is an index or an alias.
func (c *Client) IndexExists(ctx context.Context, name string) (bool, error) {
	res, err := c.es.Indices.Exists([]string{name}, c.es.Indices.Exists.WithContext(ctx))
	if err != nil {
		return false, engine.Transport(engine.OpIndexExists, err)
	}
	defer closeBody(res)
	switch res.StatusCode {
	case 200:
		return true, nil
	case 404:
		return false, nil
	default:
		return false, decodeError(engine.OpIndexExists, res)
	}
}

// ListIndices returns the sorted concrete indexes matching pattern.
func (c *Client) ListIndices(ctx context.Context, pattern string) ([]string, error) {
	res, err := c.es.Indices.GetAlias(
		c.es.Indices.GetAlias.WithContext(ctx),
		c.es.Indices.GetAlias.WithIndex(pattern),
	)
	if err != nil {
		return nil, engine.Transport(engine.OpListIndices, err)
	}
	defer closeBody(res)
	if res.StatusCode == 404 {
		return nil, nil
	}
	var body map[string]any
	if err := decode(engine.OpListIndices, res, &body); err != nil {
		return nil, err
	}
	return sortedKeys(body), nil
}

// Refresh makes recent writes to index visible to search.
func (c *Client) Refresh(ctx context.Context, index string) error {
	res, err := c.es.Indices.Refresh(
		c.es.Indices.Refresh.WithContext(ctx),
		c.es.Indices.Refresh.WithIndex(index),
	)
	if err != nil {
		return engine.Transport(engine.OpRefresh, err)
	}
	defer closeBody(res)
	return decode(engine.OpRefresh, res, nil)
}

// Flush persists index segments.
func (c *Client) Flush(ctx context.Context, index string) error {
	res, err := c.es.Indices.Flush(
		c.es.Indices.Flush.WithContext(ctx),
		c.es.Indices.Flush.WithIndex(index),
	)
	if err != nil {
		return engine.Transport(engine.OpFlush, err)
	}
	defer closeBody(res)
	return decode(engine.OpFlush, res, nil)
}

// GetMapping returns the mappings of the first index name resolves to.
func (c *Client) GetMapping(ctx context.Context, index string) (map[string]any, error) {
	res, err := c.es.Indices.GetMapping(
		c.es.Indices.GetMapping.WithContext(ctx),
		c.es.Indices.GetMapping.WithIndex(index),
	)
	if err != nil {
		return nil, engine.Transport(engine.OpGetMapping, err)
	}
	defer closeBody(res)
	var body map[string]struct {
		Mappings map[string]any `json:"mappings"`
	}
	if err := decode(engine.OpGetMapping, res, &body); err != nil {
		return nil, err
	}
	if len(body) == 0 {
		return nil, engine.Unknown(engine.OpGetMapping, "no index in response")
	}
	return body[sortedKeys(body)[0]].Mappings, nil
}

// GetSettings returns the settings of the first index name resolves to.
func (c *Client) GetSettings(ctx context.Context, index string) (map[string]any, error) {
	res, err := c.es.Indices.GetSettings(
		c.es.Indices.GetSettings.WithContext(ctx),
		c.es.Indices.GetSettings.WithIndex(index),
	)
	if err != nil {
		return nil, engine.Transport(engine.OpGetSettings, err)
	}
	defer closeBody(res)
	var body map[string]struct {
		Settings map[string]any `json:"settings"`
	}
	if err := decode(engine.OpGetSettings, res, &body); err != nil {
		return nil, err
	}
	if len(body) == 0 {
		return nil, engine.Unknown(engine.OpGetSettings, "no index in response")
	}
	return body[sortedKeys(body)[0]].Settings, nil
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
