package elastic

import (
	"context"

	"github.com/kailas-cloud/esremap/internal/engine"
)

// AliasExists reports whether alias is bound to at least one index.
func (c *Client) AliasExists(ctx context.Context, alias string) (bool, error) {
	res, err := c.es.Indices.ExistsAlias([]string{alias}, c.es.Indices.ExistsAlias.WithContext(ctx))
	if err != nil {
		return false, engine.Transport(engine.OpAliasExists, err)
	}
	defer closeBody(res)
	switch res.StatusCode {
	case 200:
		return true, nil
	case 404:
		return false, nil
	default:
		return false, decodeError(engine.OpAliasExists, res)
	}
}

// GetAlias returns the indexes matching pattern that carry alias.
func (c *Client) GetAlias(ctx context.Context, pattern, alias string) (map[string]engine.AliasMeta, error) {
	res, err := c.es.Indices.GetAlias(
		c.es.Indices.GetAlias.WithContext(ctx),
		c.es.Indices.GetAlias.WithIndex(pattern),
		c.es.Indices.GetAlias.WithName(alias),
	)
	if err != nil {
		return nil, engine.Transport(engine.OpGetAlias, err)
	}
	defer closeBody(res)
	var body map[string]struct {
		Aliases map[string]engine.AliasMeta `json:"aliases"`
	}
	if err := decode(engine.OpGetAlias, res, &body); err != nil {
		return nil, err
	}
	out := make(map[string]engine.AliasMeta, len(body))
	for index, entry := range body {
		if meta, ok := entry.Aliases[alias]; ok {
			if meta == nil {
				meta = engine.AliasMeta{}
			}
			out[index] = meta
		}
	}
	if len(out) == 0 {
		return nil, engine.Classify(engine.OpGetAlias, 404, "alias ["+alias+"] missing")
	}
	return out, nil
}

// UpdateAliases applies all actions in one _aliases call.
func (c *Client) UpdateAliases(ctx context.Context, actions []engine.AliasAction) error {
	payload := make([]map[string]map[string]string, 0, len(actions))
	for _, a := range actions {
		payload = append(payload, map[string]map[string]string{
			string(a.Kind): {"index": a.Index, "alias": a.Alias},
		})
	}
	body, err := encode(map[string]any{"actions": payload})
	if err != nil {
		return engine.Transport(engine.OpUpdateAliases, err)
	}
	res, err := c.es.Indices.UpdateAliases(body, c.es.Indices.UpdateAliases.WithContext(ctx))
	if err != nil {
		return engine.Transport(engine.OpUpdateAliases, err)
	}
	defer closeBody(res)
	return decode(engine.OpUpdateAliases, res, nil)
}
