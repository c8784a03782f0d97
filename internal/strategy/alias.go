package strategy

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/kailas-cloud/esremap/internal/domain"
	domindex "github.com/kailas-cloud/esremap/internal/domain/index"
	"github.com/kailas-cloud/esremap/internal/engine"
)

// Compile-time check: Alias implements Strategy.
var _ Strategy = (*Alias)(nil)

// Alias keeps a logical index behind two aliases: the read alias {base} and the write
// alias {base}_update. Concrete indexes are named {base}-{timestamp}.
type Alias struct {
	client Client
	cfg    domindex.Config
	opts   options

	base        string
	mainAlias   string
	updateAlias string
	pattern     string
}

// NewAlias creates the alias strategy for cfg.
func NewAlias(client Client, cfg domindex.Config, opts ...Option) *Alias {
	base := cfg.FQBaseName()
	return &Alias{
		client:      client,
		cfg:         cfg,
		opts:        newOptions(cfg, opts),
		base:        base,
		mainAlias:   domindex.MainAlias(base),
		updateAlias: domindex.UpdateAlias(base),
		pattern:     domindex.Pattern(base),
	}
}

// Config returns the index configuration.
func (a *Alias) Config() domindex.Config { return a.cfg }

// RefIndexName returns the read alias.
func (a *Alias) RefIndexName() string { return a.mainAlias }

// MainIndexes returns the concrete indexes behind the read alias, sorted.
func (a *Alias) MainIndexes(ctx context.Context) ([]string, error) {
	return a.aliasIndexes(ctx, a.mainAlias)
}

// UpdateIndexes returns the concrete indexes behind the write alias, sorted.
func (a *Alias) UpdateIndexes(ctx context.Context) ([]string, error) {
	return a.aliasIndexes(ctx, a.updateAlias)
}

func (a *Alias) aliasIndexes(ctx context.Context, alias string) ([]string, error) {
	bound, err := a.client.GetAlias(ctx, a.pattern, alias)
	if engine.IsNotFound(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get alias %s: %w", alias, err)
	}
	names := make([]string, 0, len(bound))
	for name := range bound {
		if domindex.IsConcrete(a.base, name) {
			names = append(names, name)
		}
	}
	sort.Strings(names)
	return names, nil
}

// Status derives the logical index status from which aliases exist.
func (a *Alias) Status(ctx context.Context) (domindex.Status, error) {
	mainExists, err := a.client.AliasExists(ctx, a.mainAlias)
	if err != nil {
		return "", fmt.Errorf("alias exists %s: %w", a.mainAlias, err)
	}
	updateExists, err := a.client.AliasExists(ctx, a.updateAlias)
	if err != nil {
		return "", fmt.Errorf("alias exists %s: %w", a.updateAlias, err)
	}
	return domindex.StatusFromAliases(mainExists, updateExists), nil
}

// Exists reports whether the logical index is not missing.
func (a *Alias) Exists(ctx context.Context) (bool, error) {
	st, err := a.Status(ctx)
	if err != nil {
		return false, err
	}
	return st != domindex.StatusMissing, nil
}

// Create creates a concrete index and binds both aliases to it in one call.
func (a *Alias) Create(ctx context.Context, def domindex.Definition) error {
	st, err := a.Status(ctx)
	if err != nil {
		return err
	}
	if st != domindex.StatusMissing {
		return fmt.Errorf("create %s (status %s): %w", a.base, st, domain.ErrIndexAlreadyExists)
	}

	name := a.nextName("")
	if err := a.client.CreateIndex(ctx, name, def); err != nil {
		return fmt.Errorf("create index %s: %w", name, err)
	}
	err = a.client.UpdateAliases(ctx, []engine.AliasAction{
		engine.Add(name, a.mainAlias),
		engine.Add(name, a.updateAlias),
	})
	if err != nil {
		err = fmt.Errorf("bind aliases to %s: %w", name, err)
		if delErr := a.client.DeleteIndex(context.WithoutCancel(ctx), name); delErr != nil {
			return errors.Join(err, fmt.Errorf("delete orphan index %s: %w", name, delErr))
		}
		return err
	}
	return nil
}

// CreateIfUndefined creates the logical index unless it already exists.
func (a *Alias) CreateIfUndefined(ctx context.Context, def domindex.Definition) error {
	st, err := a.Status(ctx)
	if err != nil {
		return err
	}
	if st != domindex.StatusMissing {
		return nil
	}
	return a.Create(ctx, def)
}

// Delete deletes every concrete index of the logical index; the aliases go with them.
func (a *Alias) Delete(ctx context.Context) error {
	names, err := a.client.ListIndices(ctx, a.pattern)
	if err != nil {
		return fmt.Errorf("list indices %s: %w", a.pattern, err)
	}
	for _, name := range names {
		if !domindex.IsConcrete(a.base, name) {
			continue
		}
		if err := a.client.DeleteIndex(ctx, name); err != nil && !engine.IsNotFound(err) {
			return fmt.Errorf("delete index %s: %w", name, err)
		}
	}
	return nil
}

// DeleteIfDefined deletes the logical index if it is not missing.
func (a *Alias) DeleteIfDefined(ctx context.Context) error {
	st, err := a.Status(ctx)
	if err != nil {
		return err
	}
	if st == domindex.StatusMissing {
		return nil
	}
	return a.Delete(ctx)
}

// Recreate drops the logical index with its documents and creates it again from def.
func (a *Alias) Recreate(ctx context.Context, def domindex.Definition) error {
	if err := a.DeleteIfDefined(ctx); err != nil {
		return err
	}
	return a.Create(ctx, def)
}

// Flush flushes the indexes taking writes.
func (a *Alias) Flush(ctx context.Context) error {
	if err := a.client.Flush(ctx, a.updateAlias); err != nil {
		return fmt.Errorf("flush %s: %w", a.updateAlias, err)
	}
	return nil
}

// Refresh makes recent writes searchable. Writes only land behind the write alias, so that is
// the only target needing it.
func (a *Alias) Refresh(ctx context.Context) error {
	if err := a.client.Refresh(ctx, a.updateAlias); err != nil {
		return fmt.Errorf("refresh %s: %w", a.updateAlias, err)
	}
	return nil
}

// Mapping returns the current mapping, or nil when the logical index is missing.
func (a *Alias) Mapping(ctx context.Context) (map[string]any, error) {
	m, err := a.client.GetMapping(ctx, a.mainAlias)
	if engine.IsNotFound(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get mapping %s: %w", a.mainAlias, err)
	}
	return m, nil
}

// Settings returns the current settings, or nil when the logical index is missing.
func (a *Alias) Settings(ctx context.Context) (map[string]any, error) {
	s, err := a.client.GetSettings(ctx, a.mainAlias)
	if engine.IsNotFound(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get settings %s: %w", a.mainAlias, err)
	}
	return s, nil
}

// nextName names a new concrete index, never equal to previous.
func (a *Alias) nextName(previous string) string {
	t := a.opts.now()
	name := domindex.ConcreteName(a.base, t)
	for name <= previous {
		t = t.Add(time.Microsecond)
		name = domindex.ConcreteName(a.base, t)
	}
	return name
}
