package strategy

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/kailas-cloud/esremap/internal/bulk"
	"github.com/kailas-cloud/esremap/internal/domain"
	domindex "github.com/kailas-cloud/esremap/internal/domain/index"
	"github.com/kailas-cloud/esremap/internal/domain/retry"
	"github.com/kailas-cloud/esremap/internal/engine"
)

// assertSingleIndex checks both aliases point at exactly one, shared index and returns it.
func assertSingleIndex(t *testing.T, f *fixture) string {
	t.Helper()
	ctx := context.Background()
	st, err := f.s.Status(ctx)
	if err != nil || st != domindex.StatusOK {
		t.Fatalf("status = %v, %v", st, err)
	}
	main, _ := f.s.MainIndexes(ctx)
	update, _ := f.s.UpdateIndexes(ctx)
	if len(main) != 1 || len(update) != 1 || main[0] != update[0] {
		t.Fatalf("aliases not settled: read %v write %v", main, update)
	}
	all, _ := f.mem.ListIndices(ctx, "users-*")
	if len(all) != 1 || all[0] != main[0] {
		t.Fatalf("leftover concrete indexes: %v", all)
	}
	return main[0]
}

func hasField(m map[string]any, field string) bool {
	props, _ := m["properties"].(map[string]any)
	_, ok := props[field]
	return ok
}

func TestRemap_SwapsMappingAndPrunes(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	original := f.seed(t, 250)

	if err := f.s.Remap(ctx, newDef()); err != nil {
		t.Fatalf("remap: %v", err)
	}

	current := assertSingleIndex(t, f)
	if current == original || current < original {
		t.Errorf("new index %s must sort after %s", current, original)
	}
	m, _ := f.s.Mapping(ctx)
	if hasField(m, "birthdate") || !hasField(m, "name") {
		t.Errorf("mapping = %v", m)
	}
	docs := f.sources(t, "users")
	if len(docs) != 250 {
		t.Fatalf("count = %d", len(docs))
	}
	for id, src := range docs {
		if _, ok := src["birthdate"]; ok {
			t.Fatalf("doc %s kept legacy field: %v", id, src)
		}
		if src["name"] == nil {
			t.Fatalf("doc %s lost a declared field: %v", id, src)
		}
	}
}

func TestRemap_ConcurrentUpdatesDeletesInserts(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.seed(t, 2000)

	f.hooks.afterMultiGet = func(n int) {
		if n != 1 {
			return
		}
		for i := range 10 {
			if _, err := f.s.IndexDocument(ctx, "user", docID(i), map[string]any{"name": "updated"}); err != nil {
				t.Errorf("update %d: %v", i, err)
			}
		}
		for i := 10; i < 20; i++ {
			if err := f.s.DeleteDocument(ctx, docID(i)); err != nil {
				t.Errorf("delete %d: %v", i, err)
			}
		}
		for i := range 20 {
			id := fmt.Sprintf("new-%02d", i)
			if _, err := f.s.IndexDocument(ctx, "user", id, map[string]any{"name": "inserted"}); err != nil {
				t.Errorf("insert %s: %v", id, err)
			}
		}
	}

	if err := f.s.Remap(ctx, newDef()); err != nil {
		t.Fatalf("remap: %v", err)
	}
	assertSingleIndex(t, f)

	docs := f.sources(t, "users")
	if len(docs) != 2010 {
		t.Fatalf("count = %d, want 2010", len(docs))
	}
	for id, src := range docs {
		if _, ok := src["birthdate"]; ok {
			t.Fatalf("doc %s kept birthdate", id)
		}
	}
	for i := range 10 {
		if docs[docID(i)]["name"] != "updated" {
			t.Errorf("update of %s overwritten by the copy: %v", docID(i), docs[docID(i)])
		}
	}
	for i := 10; i < 20; i++ {
		if _, ok := docs[docID(i)]; ok {
			t.Errorf("deleted %s came back", docID(i))
		}
	}
	if _, ok := docs["new-07"]; !ok {
		t.Error("insert during remap lost")
	}
}

func TestRemap_NoLostWritesWithConcurrentWriters(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, WithBatchSize(50))
	f.seed(t, 400)

	var (
		mu      sync.Mutex
		written []string
	)
	done := make(chan struct{})
	g, gctx := errgroup.WithContext(ctx)
	for w := range 4 {
		g.Go(func() error {
			for i := 0; ; i++ {
				select {
				case <-done:
					return nil
				default:
				}
				id := fmt.Sprintf("w%d-%05d", w, i)
				if _, err := f.s.IndexDocument(gctx, "user", id, map[string]any{"name": id}); err != nil {
					return fmt.Errorf("write %s: %w", id, err)
				}
				mu.Lock()
				written = append(written, id)
				mu.Unlock()
				time.Sleep(time.Millisecond)
			}
		})
	}
	g.Go(func() error {
		defer close(done)
		return f.s.Remap(gctx, newDef())
	})
	if err := g.Wait(); err != nil {
		t.Fatal(err)
	}

	assertSingleIndex(t, f)
	docs := f.sources(t, "users")
	for _, id := range written {
		if _, ok := docs[id]; !ok {
			t.Errorf("write %s lost", id)
		}
	}
	if len(docs) != 400+len(written) {
		t.Errorf("count = %d, want %d", len(docs), 400+len(written))
	}
}

func TestRemap_RollbackOnCopyFailure(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	original := f.seed(t, 300)
	boom := errors.New("bulk rejected")

	f.hooks.beforeBulk = func(n int, _ []engine.BulkOp) error {
		if n != 2 {
			return nil
		}
		if _, err := f.s.IndexDocument(ctx, "user", "late", map[string]any{"name": "late"}); err != nil {
			t.Errorf("late insert: %v", err)
		}
		if _, err := f.s.IndexDocument(ctx, "user", docID(5), map[string]any{"name": "changed"}); err != nil {
			t.Errorf("update: %v", err)
		}
		return boom
	}

	err := f.s.Remap(ctx, newDef())
	if !errors.Is(err, boom) {
		t.Fatalf("expected the copy failure, got %v", err)
	}
	var rbErr *RollbackError
	if errors.As(err, &rbErr) {
		t.Fatalf("rollback must succeed: %v", err)
	}

	if current := assertSingleIndex(t, f); current != original {
		t.Fatalf("aliases on %s, want %s", current, original)
	}
	m, _ := f.s.Mapping(ctx)
	if !hasField(m, "birthdate") {
		t.Errorf("mapping not restored: %v", m)
	}
	docs := f.sources(t, original)
	if len(docs) != 301 {
		t.Fatalf("count = %d, want 301", len(docs))
	}
	if docs[docID(0)]["birthdate"] == nil {
		t.Errorf("untouched document lost its fields: %v", docs[docID(0)])
	}
	if docs[docID(5)]["name"] != "changed" {
		t.Errorf("write during the attempt not copied back: %v", docs[docID(5)])
	}
	if docs["late"]["name"] != "late" {
		t.Error("insert during the attempt not copied back")
	}
}

func TestRemap_RollbackSurvivesCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	f := newFixture(t)
	original := f.seed(t, 50)
	f.hooks.beforeBulk = func(n int, _ []engine.BulkOp) error {
		if n == 1 {
			cancel()
			return ctx.Err()
		}
		return nil
	}

	if err := f.s.Remap(ctx, newDef()); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected cancellation, got %v", err)
	}
	if current := assertSingleIndex(t, f); current != original {
		t.Errorf("aliases on %s, want %s", current, original)
	}
}

func TestRemap_RollbackFailureReportsBoth(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	original := f.seed(t, 20)
	boom := errors.New("bulk rejected")
	aliasDown := errors.New("alias api down")
	f.hooks.beforeBulk = func(int, []engine.BulkOp) error { return boom }
	f.hooks.beforeAlias = func(_ int, actions []engine.AliasAction) error {
		for _, a := range actions {
			if a.Kind == engine.AliasAdd && a.Index == original {
				return aliasDown
			}
		}
		return nil
	}

	err := f.s.Remap(ctx, newDef())
	var rbErr *RollbackError
	if !errors.As(err, &rbErr) {
		t.Fatalf("expected RollbackError, got %v", err)
	}
	if !errors.Is(err, boom) || !errors.Is(err, aliasDown) {
		t.Errorf("both errors must be reachable: %v", err)
	}
}

func TestRemap_DeleteRetryIsBounded(t *testing.T) {
	ctx := context.Background()
	fs := &fakeSleep{}
	f := newFixture(t, WithRetry(retryPolicy(time.Second, 3*time.Second)), withSleep(fs))
	original := f.seed(t, 10)
	f.mem.SetSnapshotting(original, true)

	err := f.s.Remap(ctx, newDef())
	if !engine.IsRecoverable(err) {
		t.Fatalf("expected the recoverable delete error, got %v", err)
	}
	if len(fs.slept) != 3 {
		t.Errorf("slept %d times, want 3", len(fs.slept))
	}
	for _, d := range fs.slept {
		if d != time.Second {
			t.Errorf("slept %s, want 1s", d)
		}
	}
	if got := f.hooks.deleteAttempts(original); got != 4 {
		t.Errorf("delete attempts = %d, want 4", got)
	}
	if current := assertSingleIndex(t, f); current != original {
		t.Errorf("aliases on %s, want %s", current, original)
	}
	if docs := f.sources(t, original); len(docs) != 10 || docs[docID(3)]["birthdate"] == nil {
		t.Errorf("original not restored intact: %v", docs)
	}
}

func TestRemap_DeleteRetrySucceeds(t *testing.T) {
	ctx := context.Background()
	var f *fixture
	var original string
	fs := &fakeSleep{onCall: func(n int) {
		if n == 2 {
			f.mem.SetSnapshotting(original, false)
		}
	}}
	f = newFixture(t, WithRetry(retryPolicy(time.Second, time.Minute)), withSleep(fs))
	original = f.seed(t, 10)
	f.mem.SetSnapshotting(original, true)

	if err := f.s.Remap(ctx, newDef()); err != nil {
		t.Fatalf("remap: %v", err)
	}
	if len(fs.slept) != 2 {
		t.Errorf("slept %d times, want 2", len(fs.slept))
	}
	if current := assertSingleIndex(t, f); current == original {
		t.Error("remap did not move to the new index")
	}
}

func TestRemap_DeleteRetryDisabled(t *testing.T) {
	ctx := context.Background()
	fs := &fakeSleep{}
	f := newFixture(t, WithRetry(retry.Disabled()), withSleep(fs))
	original := f.seed(t, 5)
	f.mem.SetSnapshotting(original, true)

	if err := f.s.Remap(ctx, newDef()); !engine.IsRecoverable(err) {
		t.Fatalf("expected recoverable error, got %v", err)
	}
	if len(fs.slept) != 0 || f.hooks.deleteAttempts(original) != 1 {
		t.Errorf("slept %d, attempts %d", len(fs.slept), f.hooks.deleteAttempts(original))
	}
}

func TestRemap_NonRecoverableDeleteNotRetried(t *testing.T) {
	ctx := context.Background()
	fs := &fakeSleep{}
	f := newFixture(t, WithRetry(retryPolicy(time.Second, time.Hour)), withSleep(fs))
	original := f.seed(t, 5)
	f.hooks.beforeDeleteIdx = func(name string, _ int) error {
		if name == original {
			return engine.Classify(engine.OpDeleteIndex, 500, "cluster_block_exception: blocked")
		}
		return nil
	}

	err := f.s.Remap(ctx, newDef())
	if err == nil || engine.IsRecoverable(err) {
		t.Fatalf("expected non-recoverable error, got %v", err)
	}
	if len(fs.slept) != 0 || f.hooks.deleteAttempts(original) != 1 {
		t.Errorf("slept %d, attempts %d", len(fs.slept), f.hooks.deleteAttempts(original))
	}
	if current := assertSingleIndex(t, f); current != original {
		t.Errorf("aliases on %s, want %s", current, original)
	}
}

func TestRemap_Preconditions(t *testing.T) {
	ctx := context.Background()

	t.Run("missing", func(t *testing.T) {
		f := newFixture(t)
		if err := f.s.Remap(ctx, newDef()); !errors.Is(err, domain.ErrRemapInProgress) {
			t.Errorf("expected ErrRemapInProgress, got %v", err)
		}
	})

	t.Run("already remapping", func(t *testing.T) {
		f := newFixture(t)
		f.seed(t, 1)
		_ = f.mem.CreateIndex(ctx, "users-20990101000000000000", newDef())
		_ = f.mem.UpdateAliases(ctx, []engine.AliasAction{engine.Add("users-20990101000000000000", "users")})

		if err := f.s.Remap(ctx, newDef()); !errors.Is(err, domain.ErrRemapInProgress) {
			t.Errorf("expected ErrRemapInProgress, got %v", err)
		}
		all, _ := f.mem.ListIndices(ctx, "users-*")
		if len(all) != 2 {
			t.Errorf("remap must not create an index: %v", all)
		}
	})

	t.Run("aliases on different indexes", func(t *testing.T) {
		f := newFixture(t)
		original := f.seed(t, 1)
		other := "users-20990101000000000000"
		_ = f.mem.CreateIndex(ctx, other, newDef())
		_ = f.mem.UpdateAliases(ctx, []engine.AliasAction{
			engine.Remove(original, domindex.UpdateAlias("users")),
			engine.Add(other, domindex.UpdateAlias("users")),
		})

		if err := f.s.Remap(ctx, newDef()); !errors.Is(err, domain.ErrRemapInProgress) {
			t.Errorf("expected ErrRemapInProgress, got %v", err)
		}
		all, _ := f.mem.ListIndices(ctx, "users-*")
		if len(all) != 2 {
			t.Errorf("remap must not create an index: %v", all)
		}
	})
}

// Documents read or deleted with targets resolved just before the old index goes away.
func TestRemap_DocumentOpsAcrossFinalize(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.seed(t, 5)

	var stale []string
	f.hooks.beforeAlias = func(n int, _ []engine.AliasAction) error {
		if n == 3 {
			stale, _ = f.s.writeFirstIndexes(ctx)
		}
		return nil
	}
	if err := f.s.Remap(ctx, newDef()); err != nil {
		t.Fatalf("remap: %v", err)
	}
	if len(stale) != 2 {
		t.Fatalf("expected old and new index at finalize, got %v", stale)
	}

	doc, err := getDocument(ctx, f.mem, stale, "user", "0002")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if doc.ID != "0002" || doc.Attributes["name"] != "user 2" {
		t.Errorf("doc = %+v", doc)
	}

	b := bulk.ForAlias(f.mem, f.s.updateAlias, stale, "user")
	if err := deleteDocument(ctx, b, "0001"); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, err := f.s.GetDocument(ctx, "0001"); !errors.Is(err, domain.ErrDocumentNotFound) {
		t.Errorf("expected document gone, got %v", err)
	}
}

func TestRemap_BulkItemFailures(t *testing.T) {
	failFirst := func(n int, resp engine.BulkResponse) engine.BulkResponse {
		if n == 1 && len(resp.Items) > 0 {
			resp.Errors = true
			resp.Items[0].Status = 400
			resp.Items[0].ErrType = "mapper_parsing_exception"
			resp.Items[0].Reason = "failed to parse"
		}
		return resp
	}

	t.Run("tolerated by default", func(t *testing.T) {
		f := newFixture(t)
		original := f.seed(t, 20)
		f.hooks.afterBulk = failFirst
		if err := f.s.Remap(context.Background(), newDef()); err != nil {
			t.Fatalf("remap: %v", err)
		}
		if current := assertSingleIndex(t, f); current == original {
			t.Error("remap did not complete")
		}
	})

	t.Run("strict fails and rolls back", func(t *testing.T) {
		f := newFixture(t, WithStrictBulk())
		original := f.seed(t, 20)
		f.hooks.afterBulk = failFirst
		err := f.s.Remap(context.Background(), newDef())
		if !errors.Is(err, ErrBulkItemFailures) {
			t.Fatalf("expected ErrBulkItemFailures, got %v", err)
		}
		if current := assertSingleIndex(t, f); current != original {
			t.Errorf("aliases on %s, want %s", current, original)
		}
	})
}
