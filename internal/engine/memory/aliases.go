package memory

import (
	"context"
	"fmt"
	"path"

	"github.com/kailas-cloud/esremap/internal/engine"
)

// AliasExists reports whether alias is bound to at least one index.
func (e *Engine) AliasExists(_ context.Context, alias string) (bool, error) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return len(e.aliases[alias]) > 0, nil
}

// GetAlias returns the indexes matching pattern that carry alias.
func (e *Engine) GetAlias(_ context.Context, pattern, alias string) (map[string]engine.AliasMeta, error) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	members, ok := e.aliases[alias]
	if !ok {
		return nil, engine.Classify(engine.OpGetAlias, 404, fmt.Sprintf("alias [%s] missing", alias))
	}
	out := make(map[string]engine.AliasMeta, len(members))
	for name := range members {
		if ok, _ := path.Match(pattern, name); ok {
			out[name] = engine.AliasMeta{}
		}
	}
	if len(out) == 0 {
		return nil, engine.Classify(engine.OpGetAlias, 404,
			fmt.Sprintf("alias [%s] missing on indices matching [%s]", alias, pattern))
	}
	return out, nil
}

// UpdateAliases applies every action or none of them.
func (e *Engine) UpdateAliases(_ context.Context, actions []engine.AliasAction) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	next := make(map[string]map[string]struct{}, len(e.aliases))
	for alias, members := range e.aliases {
		cp := make(map[string]struct{}, len(members))
		for n := range members {
			cp[n] = struct{}{}
		}
		next[alias] = cp
	}

	for _, a := range actions {
		if _, ok := e.indexes[a.Index]; !ok {
			return engine.Classify(engine.OpUpdateAliases, 404,
				fmt.Sprintf("index_not_found_exception: no such index [%s]", a.Index))
		}
		switch a.Kind {
		case engine.AliasAdd:
			if _, clash := e.indexes[a.Alias]; clash {
				return engine.Classify(engine.OpUpdateAliases, 400,
					fmt.Sprintf("invalid_alias_name_exception: an index exists with the same name as the alias [%s]", a.Alias))
			}
			if next[a.Alias] == nil {
				next[a.Alias] = make(map[string]struct{})
			}
			next[a.Alias][a.Index] = struct{}{}
		case engine.AliasRemove:
			if _, ok := next[a.Alias][a.Index]; !ok {
				return engine.Classify(engine.OpUpdateAliases, 404,
					fmt.Sprintf("aliases_not_found_exception: aliases [%s] missing on [%s]", a.Alias, a.Index))
			}
			delete(next[a.Alias], a.Index)
			if len(next[a.Alias]) == 0 {
				delete(next, a.Alias)
			}
		default:
			return engine.Classify(engine.OpUpdateAliases, 400, fmt.Sprintf("unknown alias action [%s]", a.Kind))
		}
	}

	e.aliases = next
	return nil
}
