// Package memory is an in-process storage engine backed by bleve. It implements the same
// contract as the Elasticsearch adapter (aliases, scroll, multi-get, bulk) so the remap
// protocol can run embedded, in local development and in tests.
package memory

import (
	"context"
	"fmt"
	"path"
	"sort"
	"sync"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"

	domindex "github.com/kailas-cloud/esremap/internal/domain/index"
	"github.com/kailas-cloud/esremap/internal/engine"
)

// Compile-time check: Engine implements engine.Client.
var _ engine.Client = (*Engine)(nil)

const (
	defaultScrollTTL  = 10 * time.Minute
	defaultMaxScrolls = 1024
)

// Option configures an Engine.
type Option func(*Engine)

// WithScrollTTL sets how long an idle scroll cursor survives.
func WithScrollTTL(ttl time.Duration) Option {
	return func(e *Engine) { e.scrollTTL = ttl }
}

// WithMaxScrolls bounds the number of open scroll cursors; the least recently used is evicted.
func WithMaxScrolls(n int) Option {
	return func(e *Engine) { e.maxScrolls = n }
}

// Engine is an embedded engine. Alias updates take the write lock, document writes take the
// read lock, so a write resolved through an alias lands entirely before or after an alias update.
type Engine struct {
	mu           sync.RWMutex
	indexes      map[string]*index
	aliases      map[string]map[string]struct{}
	snapshotting map[string]bool
	closed       bool

	scrollTTL  time.Duration
	maxScrolls int
	scrolls    *expirable.LRU[string, *cursor]
}

// New creates an empty engine.
func New(opts ...Option) *Engine {
	e := &Engine{
		indexes:      make(map[string]*index),
		aliases:      make(map[string]map[string]struct{}),
		snapshotting: make(map[string]bool),
		scrollTTL:    defaultScrollTTL,
		maxScrolls:   defaultMaxScrolls,
	}
	for _, o := range opts {
		o(e)
	}
	e.scrolls = expirable.NewLRU[string, *cursor](e.maxScrolls, nil, e.scrollTTL)
	return e
}

// Ping fails once the engine is closed.
func (e *Engine) Ping(_ context.Context) error {
	e.mu.RLock()
	defer e.mu.RUnlock()
	if e.closed {
		return engine.Transport(engine.OpPing, fmt.Errorf("engine closed"))
	}
	return nil
}

// WaitForReady returns immediately: an embedded engine is ready once created.
func (e *Engine) WaitForReady(ctx context.Context, _ time.Duration) error {
	return e.Ping(ctx)
}

// Close releases every index.
func (e *Engine) Close() {
	e.mu.Lock()
	defer e.mu.Unlock()
	for _, ix := range e.indexes {
		_ = ix.close()
	}
	e.indexes = make(map[string]*index)
	e.aliases = make(map[string]map[string]struct{})
	e.scrolls.Purge()
	e.closed = true
}

// SetSnapshotting marks an index as being snapshotted; deleting it then fails with a
// recoverable error until the mark is cleared.
func (e *Engine) SetSnapshotting(name string, on bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if on {
		e.snapshotting[name] = true
		return
	}
	delete(e.snapshotting, name)
}

// CreateIndex creates a concrete index whose bleve mapping follows def.
func (e *Engine) CreateIndex(_ context.Context, name string, def domindex.Definition) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if _, ok := e.indexes[name]; ok {
		return engine.Classify(engine.OpCreateIndex, 400,
			fmt.Sprintf("resource_already_exists_exception: index [%s] already exists", name))
	}
	if _, ok := e.aliases[name]; ok {
		return engine.Classify(engine.OpCreateIndex, 400,
			fmt.Sprintf("invalid_index_name_exception: [%s] an alias with the same name already exists", name))
	}
	ix, err := newIndex(name, def)
	if err != nil {
		return engine.Classify(engine.OpCreateIndex, 400, err.Error())
	}
	e.indexes[name] = ix
	return nil
}

// DeleteIndex deletes one concrete index and its alias bindings.
func (e *Engine) DeleteIndex(_ context.Context, name string) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	ix, ok := e.indexes[name]
	if !ok {
		return engine.Classify(engine.OpDeleteIndex, 404, fmt.Sprintf("index_not_found_exception: no such index [%s]", name))
	}
	if e.snapshotting[name] {
		return engine.Classify(engine.OpDeleteIndex, 400,
			fmt.Sprintf("Cannot delete indices that are being snapshotted: [[%s]]", name))
	}
	for alias, members := range e.aliases {
		delete(members, name)
		if len(members) == 0 {
			delete(e.aliases, alias)
		}
	}
	delete(e.indexes, name)
	if err := ix.close(); err != nil {
		return engine.Transport(engine.OpDeleteIndex, err)
	}
	return nil
}

// IndexExists reports whether name is an index or an alias.
func (e *Engine) IndexExists(_ context.Context, name string) (bool, error) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	if _, ok := e.indexes[name]; ok {
		return true, nil
	}
	_, ok := e.aliases[name]
	return ok, nil
}

// ListIndices returns the sorted concrete indexes matching pattern.
func (e *Engine) ListIndices(_ context.Context, pattern string) ([]string, error) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	var names []string
	for name := range e.indexes {
		if ok, _ := path.Match(pattern, name); ok {
			names = append(names, name)
		}
	}
	sort.Strings(names)
	return names, nil
}

// Refresh is a no-op on an existing target: bleve makes writes visible immediately.
func (e *Engine) Refresh(_ context.Context, name string) error {
	e.mu.RLock()
	defer e.mu.RUnlock()
	_, err := e.resolve(engine.OpRefresh, name)
	return err
}

// Flush is a no-op on an existing target.
func (e *Engine) Flush(_ context.Context, name string) error {
	e.mu.RLock()
	defer e.mu.RUnlock()
	_, err := e.resolve(engine.OpFlush, name)
	return err
}

// GetMapping returns the mappings of the first index name resolves to.
func (e *Engine) GetMapping(_ context.Context, name string) (map[string]any, error) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	targets, err := e.resolve(engine.OpGetMapping, name)
	if err != nil {
		return nil, err
	}
	return cloneMap(targets[0].def.Mappings), nil
}

// GetSettings returns the settings of the first index name resolves to.
func (e *Engine) GetSettings(_ context.Context, name string) (map[string]any, error) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	targets, err := e.resolve(engine.OpGetSettings, name)
	if err != nil {
		return nil, err
	}
	return cloneMap(targets[0].def.Settings), nil
}

// resolve expands an index name, alias or wildcard into indexes sorted by name.
// Callers hold e.mu.
func (e *Engine) resolve(op, name string) ([]*index, error) {
	if ix, ok := e.indexes[name]; ok {
		return []*index{ix}, nil
	}
	var names []string
	if members, ok := e.aliases[name]; ok {
		for n := range members {
			names = append(names, n)
		}
	} else {
		for n := range e.indexes {
			if ok, _ := path.Match(name, n); ok {
				names = append(names, n)
			}
		}
	}
	if len(names) == 0 {
		return nil, engine.Classify(op, 404, fmt.Sprintf("index_not_found_exception: no such index [%s]", name))
	}
	sort.Strings(names)
	out := make([]*index, len(names))
	for i, n := range names {
		out[i] = e.indexes[n]
	}
	return out, nil
}

// resolveWrite expands name into exactly one index. Callers hold e.mu.
func (e *Engine) resolveWrite(op, name string) (*index, error) {
	targets, err := e.resolve(op, name)
	if err != nil {
		return nil, err
	}
	if len(targets) != 1 {
		return nil, engine.Classify(op, 400, fmt.Sprintf(
			"illegal_argument_exception: no write index is defined for alias [%s]", name))
	}
	return targets[0], nil
}
