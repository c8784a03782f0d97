package memory

import (
	"fmt"

	"github.com/blevesearch/bleve/v2"
	"github.com/blevesearch/bleve/v2/search/query"
)

// buildQuery translates the subset of the query DSL the embedded engine understands:
// match_all, ids, term, match and query_string. A body without a query matches everything.
func buildQuery(body map[string]any) (query.Query, error) {
	raw, ok := body["query"]
	if !ok || raw == nil {
		return bleve.NewMatchAllQuery(), nil
	}
	clause, ok := raw.(map[string]any)
	if !ok || len(clause) != 1 {
		return nil, fmt.Errorf("parsing_exception: query must be an object with exactly one clause")
	}
	for kind, arg := range clause {
		switch kind {
		case "match_all":
			return bleve.NewMatchAllQuery(), nil
		case "ids":
			return idsQuery(arg)
		case "term":
			field, value, err := fieldValue(kind, arg, "value")
			if err != nil {
				return nil, err
			}
			q := bleve.NewTermQuery(value)
			q.SetField(field)
			return q, nil
		case "match":
			field, value, err := fieldValue(kind, arg, "query")
			if err != nil {
				return nil, err
			}
			q := bleve.NewMatchQuery(value)
			q.SetField(field)
			return q, nil
		case "query_string":
			m, _ := arg.(map[string]any)
			s, ok := m["query"].(string)
			if !ok {
				return nil, fmt.Errorf("parsing_exception: [query_string] requires a query")
			}
			return bleve.NewQueryStringQuery(s), nil
		default:
			return nil, fmt.Errorf("parsing_exception: unknown query [%s]", kind)
		}
	}
	return nil, nil
}

func idsQuery(arg any) (query.Query, error) {
	m, _ := arg.(map[string]any)
	values, ok := m["values"].([]any)
	if !ok {
		if ss, ok := m["values"].([]string); ok {
			return bleve.NewDocIDQuery(ss), nil
		}
		return nil, fmt.Errorf("parsing_exception: [ids] requires values")
	}
	ids := make([]string, 0, len(values))
	for _, v := range values {
		ids = append(ids, fmt.Sprint(v))
	}
	return bleve.NewDocIDQuery(ids), nil
}

// fieldValue reads {"field": value} or {"field": {key: value}}.
func fieldValue(kind string, arg any, key string) (string, string, error) {
	m, ok := arg.(map[string]any)
	if !ok || len(m) != 1 {
		return "", "", fmt.Errorf("parsing_exception: [%s] requires exactly one field", kind)
	}
	for field, v := range m {
		if inner, ok := v.(map[string]any); ok {
			v = inner[key]
		}
		if v == nil {
			return "", "", fmt.Errorf("parsing_exception: [%s] field %s has no value", kind, field)
		}
		return field, fmt.Sprint(v), nil
	}
	return "", "", nil
}
