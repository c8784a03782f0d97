package strategy

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	domindex "github.com/kailas-cloud/esremap/internal/domain/index"
	"github.com/kailas-cloud/esremap/internal/domain/retry"
	"github.com/kailas-cloud/esremap/internal/engine"
	"github.com/kailas-cloud/esremap/internal/engine/memory"
)

func oldDef() domindex.Definition {
	return domindex.Definition{Mappings: map[string]any{"properties": map[string]any{
		"name":      map[string]any{"type": "keyword"},
		"birthdate": map[string]any{"type": "date"},
	}}}
}

func newDef() domindex.Definition {
	return domindex.Definition{Mappings: map[string]any{"properties": map[string]any{
		"name": map[string]any{"type": "keyword"},
	}}}
}

func usersConfig() domindex.Config {
	return domindex.Config{BaseName: "users", DocumentType: "user", Definition: oldDef()}
}

// hookClient wraps a real engine and lets tests observe or fail individual calls.
// Hooks receive the 1-based number of the call to that method.
type hookClient struct {
	Client

	mu              sync.Mutex
	bulkCalls       int
	mgetCalls       int
	aliasCalls      int
	deletes         map[string]int
	maintenance     []string
	beforeBulk      func(n int, ops []engine.BulkOp) error
	afterBulk       func(n int, resp engine.BulkResponse) engine.BulkResponse
	afterMultiGet   func(n int)
	beforeAlias     func(n int, actions []engine.AliasAction) error
	beforeDeleteIdx func(name string, attempt int) error
}

func (h *hookClient) Bulk(ctx context.Context, ops []engine.BulkOp) (engine.BulkResponse, error) {
	h.mu.Lock()
	h.bulkCalls++
	n := h.bulkCalls
	h.mu.Unlock()
	if h.beforeBulk != nil {
		if err := h.beforeBulk(n, ops); err != nil {
			return engine.BulkResponse{}, err
		}
	}
	resp, err := h.Client.Bulk(ctx, ops)
	if err == nil && h.afterBulk != nil {
		resp = h.afterBulk(n, resp)
	}
	return resp, err
}

func (h *hookClient) MultiGet(ctx context.Context, refs []engine.DocRef, refresh bool) ([]engine.Doc, error) {
	docs, err := h.Client.MultiGet(ctx, refs, refresh)
	h.mu.Lock()
	h.mgetCalls++
	n := h.mgetCalls
	h.mu.Unlock()
	if err == nil && h.afterMultiGet != nil {
		h.afterMultiGet(n)
	}
	return docs, err
}

func (h *hookClient) UpdateAliases(ctx context.Context, actions []engine.AliasAction) error {
	h.mu.Lock()
	h.aliasCalls++
	n := h.aliasCalls
	h.mu.Unlock()
	if h.beforeAlias != nil {
		if err := h.beforeAlias(n, actions); err != nil {
			return err
		}
	}
	return h.Client.UpdateAliases(ctx, actions)
}

func (h *hookClient) DeleteIndex(ctx context.Context, name string) error {
	h.mu.Lock()
	if h.deletes == nil {
		h.deletes = make(map[string]int)
	}
	h.deletes[name]++
	attempt := h.deletes[name]
	h.mu.Unlock()
	if h.beforeDeleteIdx != nil {
		if err := h.beforeDeleteIdx(name, attempt); err != nil {
			return err
		}
	}
	return h.Client.DeleteIndex(ctx, name)
}

func (h *hookClient) Flush(ctx context.Context, name string) error {
	h.mu.Lock()
	h.maintenance = append(h.maintenance, "flush "+name)
	h.mu.Unlock()
	return h.Client.Flush(ctx, name)
}

func (h *hookClient) Refresh(ctx context.Context, name string) error {
	h.mu.Lock()
	h.maintenance = append(h.maintenance, "refresh "+name)
	h.mu.Unlock()
	return h.Client.Refresh(ctx, name)
}

func (h *hookClient) deleteAttempts(name string) int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.deletes[name]
}

// fakeSleep records sleeps instead of waiting.
type fakeSleep struct {
	mu     sync.Mutex
	slept  []time.Duration
	onCall func(n int)
}

func (f *fakeSleep) sleep(_ context.Context, d time.Duration) error {
	f.mu.Lock()
	f.slept = append(f.slept, d)
	n := len(f.slept)
	f.mu.Unlock()
	if f.onCall != nil {
		f.onCall(n)
	}
	return nil
}

func withSleep(f *fakeSleep) Option {
	return func(o *options) { o.sleep = f.sleep }
}

func withTicker(start time.Time) Option {
	var mu sync.Mutex
	t := start
	return WithClock(func() time.Time {
		mu.Lock()
		defer mu.Unlock()
		t = t.Add(time.Second)
		return t
	})
}

type fixture struct {
	mem   *memory.Engine
	hooks *hookClient
	s     *Alias
}

func newFixture(t *testing.T, opts ...Option) *fixture {
	t.Helper()
	mem := memory.New()
	t.Cleanup(mem.Close)
	hooks := &hookClient{Client: mem}
	opts = append([]Option{withTicker(time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC))}, opts...)
	return &fixture{mem: mem, hooks: hooks, s: NewAlias(hooks, usersConfig(), opts...)}
}

// seed creates the logical index with the old mapping and n documents with ids 0000..n-1.
func (f *fixture) seed(t *testing.T, n int) string {
	t.Helper()
	ctx := context.Background()
	if err := f.s.Create(ctx, oldDef()); err != nil {
		t.Fatalf("create: %v", err)
	}
	main, _ := f.s.MainIndexes(ctx)
	ops := make([]engine.BulkOp, 0, n)
	for i := range n {
		ops = append(ops, engine.BulkOp{
			Action: engine.BulkIndex, Index: main[0], Type: "user", ID: docID(i),
			Data: map[string]any{"name": fmt.Sprintf("user %d", i), "birthdate": "1990-01-01"},
		})
	}
	if len(ops) > 0 {
		if _, err := f.mem.Bulk(ctx, ops); err != nil {
			t.Fatalf("seed: %v", err)
		}
	}
	return main[0]
}

func (f *fixture) count(t *testing.T, index string) int {
	t.Helper()
	page, err := f.mem.Search(context.Background(), engine.SearchRequest{Index: index, Size: 1})
	if err != nil {
		t.Fatalf("count %s: %v", index, err)
	}
	return page.Total
}

// sources returns every document reachable through index.
func (f *fixture) sources(t *testing.T, index string) map[string]map[string]any {
	t.Helper()
	ctx := context.Background()
	out := make(map[string]map[string]any)
	page, err := f.mem.Search(ctx, engine.SearchRequest{Index: index, Size: 500, Scroll: time.Minute})
	if err != nil {
		t.Fatalf("search %s: %v", index, err)
	}
	for len(page.Hits) > 0 {
		for _, h := range page.Hits {
			out[h.ID] = h.Source
		}
		if page, err = f.mem.Scroll(ctx, page.ScrollID, time.Minute); err != nil {
			t.Fatalf("scroll: %v", err)
		}
	}
	return out
}

func docID(i int) string {
	return fmt.Sprintf("%04d", i)
}

func retryPolicy(delay, maxDelay time.Duration) retry.Policy {
	return retry.Policy{RetryOnRecoverable: true, Delay: delay, MaxDelay: maxDelay}
}
