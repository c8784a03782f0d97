package strategy

import (
	"context"
	"errors"
	"fmt"
	"slices"

	"go.uber.org/zap"

	"github.com/kailas-cloud/esremap/internal/bulk"
	"github.com/kailas-cloud/esremap/internal/engine"
	"github.com/kailas-cloud/esremap/internal/metrics"
)

// rollback restores the layout the remap started from: both aliases on the old index, every
// document written into the new index copied back, the new index gone.
func (r *remap) rollback(ctx context.Context) error {
	client := r.a.client
	r.log.Warn("remap_rollback")

	if actions := r.restoreActions(ctx); len(actions) > 0 {
		if err := client.UpdateAliases(ctx, actions); err != nil {
			return fmt.Errorf("restore aliases on %s: %w", r.original, err)
		}
	}
	if err := client.Refresh(ctx, r.target); err != nil {
		return fmt.Errorf("refresh %s: %w", r.target, err)
	}
	if err := r.copyBack(ctx); err != nil {
		return err
	}
	if err := client.Refresh(ctx, r.original); err != nil {
		return fmt.Errorf("refresh %s: %w", r.original, err)
	}

	mainIdx, err := r.a.MainIndexes(ctx)
	if err != nil {
		return err
	}
	if slices.Contains(mainIdx, r.target) {
		if err := client.UpdateAliases(ctx, []engine.AliasAction{
			engine.Remove(r.target, r.a.mainAlias),
		}); err != nil {
			return fmt.Errorf("detach %s from %s: %w", r.target, r.a.mainAlias, err)
		}
	}
	if err := client.DeleteIndex(ctx, r.target); err != nil && !engine.IsNotFound(err) {
		return fmt.Errorf("delete index %s: %w", r.target, err)
	}
	r.log.Info("remap_rolled_back")
	return nil
}

// restoreActions builds one alias update that puts the old index back behind both aliases and
// takes the new index off the write alias, from whatever state the failure left.
func (r *remap) restoreActions(ctx context.Context) []engine.AliasAction {
	mainIdx, mainErr := r.a.MainIndexes(ctx)
	updateIdx, updateErr := r.a.UpdateIndexes(ctx)
	if err := errors.Join(mainErr, updateErr); err != nil {
		r.log.Warn("remap_rollback_state_unknown", zap.Error(err))
		return []engine.AliasAction{
			engine.Add(r.original, r.a.mainAlias),
			engine.Add(r.original, r.a.updateAlias),
			engine.Remove(r.target, r.a.updateAlias),
		}
	}
	var actions []engine.AliasAction
	if !slices.Contains(mainIdx, r.original) {
		actions = append(actions, engine.Add(r.original, r.a.mainAlias))
	}
	if !slices.Contains(updateIdx, r.original) {
		actions = append(actions, engine.Add(r.original, r.a.updateAlias))
	}
	if slices.Contains(updateIdx, r.target) {
		actions = append(actions, engine.Remove(r.target, r.a.updateAlias))
	}
	return actions
}

// copyBack writes into the old index every document of the new index that differs from what
// the forward copy put there.
func (r *remap) copyBack(ctx context.Context) error {
	client := r.a.client
	restored := 0
	err := r.a.scan(ctx, r.target, true, scrollStepKeepAlive, func(hits []engine.Hit) error {
		b := bulk.New(client)
		for _, h := range hits {
			if sum, ok := r.copied[h.ID]; ok {
				if cur, err := fingerprint(h.Source); err == nil && cur == sum {
					continue
				}
			}
			docType := h.Type
			if docType == "" {
				docType = r.a.cfg.DocumentType
			}
			b.Index(r.original, docType, h.ID, h.Source)
		}
		n := b.Len()
		resp, err := b.Execute(ctx)
		if err != nil {
			return fmt.Errorf("copy back into %s: %w", r.original, err)
		}
		restored += n
		metrics.RemapDocumentsTotal.WithLabelValues(r.a.base, metrics.DirectionReverse).Add(float64(n))
		return r.checkItems(resp, false)
	})
	if err != nil {
		return err
	}
	r.log.Info("remap_copy_back", zap.Int("restored", restored))
	return nil
}
