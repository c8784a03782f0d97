package strategy

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/esremap/internal/bulk"
	"github.com/kailas-cloud/esremap/internal/domain"
	domindex "github.com/kailas-cloud/esremap/internal/domain/index"
	"github.com/kailas-cloud/esremap/internal/engine"
	"github.com/kailas-cloud/esremap/internal/logger"
	"github.com/kailas-cloud/esremap/internal/metrics"
)

// remap is one remap attempt of a logical index from original onto target.
type remap struct {
	a        *Alias
	original string
	target   string
	def      domindex.Definition
	fields   map[string]struct{}
	// copied holds the fingerprint of every document the forward copy created in target.
	copied map[string]uint64
	log    *zap.Logger
}

// Remap moves the logical index onto a new concrete index built from def without taking it
// offline. Writes go to the new index from the cutover on; reads see both indexes until the
// copy is done. Any failure before the old index is gone restores the original layout and
// returns the failure.
func (a *Alias) Remap(ctx context.Context, def domindex.Definition) error {
	main, err := a.MainIndexes(ctx)
	if err != nil {
		return err
	}
	update, err := a.UpdateIndexes(ctx)
	if err != nil {
		return err
	}
	if len(main) != 1 || len(update) != 1 || main[0] != update[0] {
		return fmt.Errorf("remap %s (read %v, write %v): %w", a.base, main, update, domain.ErrRemapInProgress)
	}

	r := &remap{
		a:        a,
		original: main[0],
		target:   a.nextName(main[0]),
		def:      def,
		fields:   def.Fields(),
		copied:   make(map[string]uint64),
	}
	r.log = logger.FromContext(ctx).With(
		zap.String("index", a.base),
		zap.String("original", r.original),
		zap.String("target", r.target),
	)
	return r.run(ctx)
}

func (r *remap) run(ctx context.Context) error {
	if err := r.a.client.CreateIndex(ctx, r.target, r.def); err != nil {
		return fmt.Errorf("create index %s: %w", r.target, err)
	}

	if err := r.migrate(ctx); err != nil {
		r.log.Error("remap_failed", zap.Error(err))
		if rbErr := r.rollback(context.WithoutCancel(ctx)); rbErr != nil {
			r.log.Error("remap_rollback_failed", zap.Error(rbErr))
			return &RollbackError{Cause: err, Rollback: rbErr}
		}
		return err
	}
	return nil
}

// migrate runs cutover, copy and finalize. The old index still exists whenever it fails.
func (r *remap) migrate(ctx context.Context) error {
	client := r.a.client
	err := client.UpdateAliases(ctx, []engine.AliasAction{
		engine.Remove(r.original, r.a.updateAlias),
		engine.Add(r.target, r.a.updateAlias),
		engine.Add(r.target, r.a.mainAlias),
	})
	if err != nil {
		return fmt.Errorf("cutover to %s: %w", r.target, err)
	}
	r.log.Info("remap_cutover")

	if err := r.copyForward(ctx); err != nil {
		return err
	}

	if err := client.UpdateAliases(ctx, []engine.AliasAction{
		engine.Remove(r.original, r.a.mainAlias),
	}); err != nil {
		return fmt.Errorf("detach %s from %s: %w", r.original, r.a.mainAlias, err)
	}
	r.log.Info("remap_finalize")

	if err := r.a.deleteWithRetry(ctx, r.original); err != nil {
		return fmt.Errorf("delete index %s: %w", r.original, err)
	}
	return nil
}

// copyForward moves every document of the old index into the new one, batch by batch.
func (r *remap) copyForward(ctx context.Context) error {
	client := r.a.client
	if err := client.Refresh(ctx, r.original); err != nil {
		return fmt.Errorf("refresh %s: %w", r.original, err)
	}

	return r.a.scan(ctx, r.original, false, r.a.opts.scrollKeepAlive, func(hits []engine.Hit) error {
		ids := make([]string, 0, len(hits))
		for _, h := range hits {
			ids = append(ids, h.ID)
		}
		return r.copyBatch(ctx, ids)
	})
}

// copyBatch copies the ids that still exist in the old index, then removes from the new
// index every id that vanished from the old one while the batch was in flight.
func (r *remap) copyBatch(ctx context.Context, ids []string) error {
	client := r.a.client
	before, err := r.fetch(ctx, ids)
	if err != nil {
		return err
	}

	creates := bulk.New(client)
	sums := make(map[string]uint64, len(before))
	for _, d := range before {
		if !d.Found {
			continue
		}
		src := domindex.Prune(d.Source, r.fields)
		sum, err := fingerprint(src)
		if err != nil {
			return err
		}
		sums[d.ID] = sum
		creates.Create(r.target, r.docType(d), d.ID, src)
	}
	resp, err := creates.Execute(ctx)
	if err != nil {
		return fmt.Errorf("copy into %s: %w", r.target, err)
	}
	copied := 0
	for _, it := range resp.Items {
		if !it.Failed() {
			r.copied[it.ID] = sums[it.ID]
			copied++
		}
	}
	metrics.RemapDocumentsTotal.WithLabelValues(r.a.base, metrics.DirectionForward).Add(float64(copied))
	if err := r.checkItems(resp, true); err != nil {
		return err
	}

	after, err := r.fetch(ctx, ids)
	if err != nil {
		return err
	}
	deletes := bulk.New(client)
	for i, d := range before {
		if d.Found && !after[i].Found {
			deletes.Delete(r.target, r.docType(d), d.ID)
			delete(r.copied, d.ID)
		}
	}
	reconciled := deletes.Len()
	resp, err = deletes.Execute(ctx)
	if err != nil {
		return fmt.Errorf("reconcile %s: %w", r.target, err)
	}
	metrics.RemapReconciledDeletesTotal.WithLabelValues(r.a.base).Add(float64(reconciled))
	if err := r.checkItems(resp, false); err != nil {
		return err
	}

	r.log.Debug("remap_batch",
		zap.Int("ids", len(ids)),
		zap.Int("copied", copied),
		zap.Int("reconciled", reconciled),
	)
	return nil
}

func (r *remap) fetch(ctx context.Context, ids []string) ([]engine.Doc, error) {
	refs := make([]engine.DocRef, 0, len(ids))
	for _, id := range ids {
		refs = append(refs, engine.DocRef{Index: r.original, Type: r.a.cfg.DocumentType, ID: id})
	}
	docs, err := r.a.client.MultiGet(ctx, refs, true)
	if err != nil {
		return nil, fmt.Errorf("mget %s: %w", r.original, err)
	}
	if len(docs) != len(refs) {
		return nil, engine.Unknown(engine.OpMget, fmt.Sprintf("got %d docs for %d ids", len(docs), len(refs)))
	}
	return docs, nil
}

// checkItems counts failed bulk items. Create conflicts mean the document was already
// rewritten through the write alias and are not failures.
func (r *remap) checkItems(resp engine.BulkResponse, creates bool) error {
	var failed []engine.BulkItem
	for _, it := range resp.Failures() {
		if creates && it.Conflict() {
			continue
		}
		failed = append(failed, it)
	}
	if len(failed) == 0 {
		return nil
	}
	metrics.RemapBulkItemFailuresTotal.WithLabelValues(r.a.base).Add(float64(len(failed)))
	first := failed[0]
	r.log.Warn("remap_bulk_item_failures",
		zap.Int("failed", len(failed)),
		zap.String("first_id", first.ID),
		zap.String("first_error", first.ErrType+": "+first.Reason),
	)
	if !r.a.opts.strictBulk {
		return nil
	}
	return fmt.Errorf("%d items, first %s %s: %s: %w",
		len(failed), first.Action, first.ID, first.Reason, ErrBulkItemFailures)
}

func (r *remap) docType(d engine.Doc) string {
	if d.Type != "" {
		return d.Type
	}
	return r.a.cfg.DocumentType
}

// scan pages through every document of index with a scroll and clears the scroll at the end.
func (a *Alias) scan(
	ctx context.Context, index string, withSource bool, keepAlive time.Duration, fn func([]engine.Hit) error,
) error {
	page, err := a.client.Search(ctx, engine.SearchRequest{
		Index: index,
		Body: map[string]any{
			"query":   map[string]any{"match_all": map[string]any{}},
			"_source": withSource,
			"sort":    []string{"_doc"},
		},
		Size:   a.opts.batchSize,
		Scroll: keepAlive,
	})
	if err != nil {
		return fmt.Errorf("open scroll on %s: %w", index, err)
	}
	scrollID := page.ScrollID
	defer func() {
		if scrollID != "" {
			_ = a.client.ClearScroll(context.WithoutCancel(ctx), scrollID)
		}
	}()

	for len(page.Hits) > 0 {
		if err := fn(page.Hits); err != nil {
			return err
		}
		if scrollID == "" {
			return engine.Unknown(engine.OpSearch, "response has no _scroll_id")
		}
		page, err = a.client.Scroll(ctx, scrollID, scrollStepKeepAlive)
		if err != nil {
			return fmt.Errorf("scroll %s: %w", index, err)
		}
		if page.ScrollID != "" {
			scrollID = page.ScrollID
		}
	}
	return nil
}
