// Package index exposes the lifecycle of configured logical indexes: create, recreate, delete,
// describe and guarded live remaps.
package index

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/kailas-cloud/esremap/internal/domain"
	domindex "github.com/kailas-cloud/esremap/internal/domain/index"
	"github.com/kailas-cloud/esremap/internal/lock"
	"github.com/kailas-cloud/esremap/internal/logger"
	"github.com/kailas-cloud/esremap/internal/metrics"
	"github.com/kailas-cloud/esremap/internal/strategy"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Description summarises the state of a logical index.
type Description struct {
	Name         string                `json:"name"`
	Strategy     domindex.StrategyKind `json:"strategy"`
	Status       domindex.Status       `json:"status"`
	ReadIndexes  []string              `json:"read_indexes"`
	WriteIndexes []string              `json:"write_indexes"`
	Remapping    bool                  `json:"remapping"`
	// CreatedAt is when the oldest read index was created. Unset for single-strategy indexes.
	CreatedAt *time.Time `json:"created_at,omitempty"`
}

// Service manages one logical index.
type Service struct {
	strat   strategy.Strategy
	locker  Locker
	factory Factory
	observe Observer
}

// Option configures a Service.
type Option func(*Service)

// WithObserver replaces the remap metrics recorder.
func WithObserver(o Observer) Option {
	return func(s *Service) { s.observe = o }
}

// New creates a Service over strat. factory is used to build segments and may be nil.
func New(strat strategy.Strategy, locker Locker, factory Factory, opts ...Option) *Service {
	if locker == nil {
		locker = lock.Noop{}
	}
	s := &Service{strat: strat, locker: locker, factory: factory, observe: metrics.ObserveRemap}
	for _, o := range opts {
		o(s)
	}
	return s
}

// Name returns the fully qualified base name.
func (s *Service) Name() string { return s.strat.Config().FQBaseName() }

// Config returns the index configuration.
func (s *Service) Config() domindex.Config { return s.strat.Config() }

// Strategy returns the underlying strategy, for document access.
func (s *Service) Strategy() strategy.Strategy { return s.strat }

// Segment returns a service for the segment called name, sharing definition, lease and metrics.
func (s *Service) Segment(name string) (*Service, error) {
	if name == "" {
		return s, nil
	}
	if s.factory == nil {
		return nil, fmt.Errorf("segment %s: %w", name, domain.ErrNotImplemented)
	}
	strat, err := s.factory(s.strat.Config().Segment(name))
	if err != nil {
		return nil, fmt.Errorf("segment %s: %w", name, err)
	}
	return &Service{strat: strat, locker: s.locker, factory: s.factory, observe: s.observe}, nil
}

// Create creates the index and fails with domain.ErrIndexAlreadyExists when it is not missing.
func (s *Service) Create(ctx context.Context) error {
	if err := s.strat.Create(ctx, s.strat.Config().Definition); err != nil {
		return fmt.Errorf("create index %s: %w", s.Name(), err)
	}
	return nil
}

// Ensure creates the index unless it already exists.
func (s *Service) Ensure(ctx context.Context) error {
	if err := s.strat.CreateIfUndefined(ctx, s.strat.Config().Definition); err != nil {
		return fmt.Errorf("ensure index %s: %w", s.Name(), err)
	}
	return nil
}

// Recreate drops every concrete index and creates a fresh one.
func (s *Service) Recreate(ctx context.Context) error {
	if err := s.strat.Recreate(ctx, s.strat.Config().Definition); err != nil {
		return fmt.Errorf("recreate index %s: %w", s.Name(), err)
	}
	return nil
}

// Delete removes the index if it exists.
func (s *Service) Delete(ctx context.Context) error {
	if err := s.strat.DeleteIfDefined(ctx); err != nil {
		return fmt.Errorf("delete index %s: %w", s.Name(), err)
	}
	return nil
}

// Exists reports whether the index is usable.
func (s *Service) Exists(ctx context.Context) (bool, error) {
	ok, err := s.strat.Exists(ctx)
	if err != nil {
		return false, fmt.Errorf("index %s exists: %w", s.Name(), err)
	}
	return ok, nil
}

// Status returns the alias status of the index.
func (s *Service) Status(ctx context.Context) (domindex.Status, error) {
	st, err := s.strat.Status(ctx)
	if err != nil {
		return "", fmt.Errorf("index %s status: %w", s.Name(), err)
	}
	return st, nil
}

// Describe collects status, concrete indexes and the remap lease state.
func (s *Service) Describe(ctx context.Context) (Description, error) {
	d := Description{Name: s.Name(), Strategy: s.strat.Config().Kind()}

	var err error
	if d.Status, err = s.Status(ctx); err != nil {
		return Description{}, err
	}
	if d.ReadIndexes, err = s.strat.MainIndexes(ctx); err != nil {
		return Description{}, fmt.Errorf("index %s read indexes: %w", s.Name(), err)
	}
	if d.WriteIndexes, err = s.strat.UpdateIndexes(ctx); err != nil {
		return Description{}, fmt.Errorf("index %s write indexes: %w", s.Name(), err)
	}
	if d.Remapping, err = s.Remapping(ctx); err != nil {
		return Description{}, err
	}
	for _, idx := range d.ReadIndexes {
		if t, ok := domindex.CreatedAt(s.Name(), idx); ok && (d.CreatedAt == nil || t.Before(*d.CreatedAt)) {
			d.CreatedAt = &t
		}
	}
	return d, nil
}

// Remapping reports whether someone holds the remap lease of the index.
func (s *Service) Remapping(ctx context.Context) (bool, error) {
	held, err := s.locker.Held(ctx, lock.RemapKey(s.Name()))
	if err != nil {
		return false, fmt.Errorf("index %s remap lease: %w", s.Name(), err)
	}
	return held, nil
}

// Remap moves the index onto a new concrete index built from the configured definition.
// Only one remap per logical index runs at a time across processes sharing the lease store.
func (s *Service) Remap(ctx context.Context) error {
	name := s.Name()
	ctx, log := logger.With(ctx, zap.String("remap_id", uuid.NewString()))
	log = log.With(zap.String("index", name))
	start := time.Now()

	release, err := s.locker.Acquire(ctx, lock.RemapKey(name))
	if err != nil {
		s.observe(name, metrics.OutcomeRejected, time.Since(start))
		if errors.Is(err, lock.ErrHeld) {
			return fmt.Errorf("remap index %s: %w", name, domain.ErrRemapLocked)
		}
		return fmt.Errorf("remap index %s: %w", name, err)
	}
	defer func() {
		if rerr := release(context.WithoutCancel(ctx)); rerr != nil {
			log.Warn("remap_lease_release_failed", zap.Error(rerr))
		}
	}()

	log.Info("remap_started")
	err = s.strat.Remap(ctx, s.strat.Config().Definition)
	outcome := remapOutcome(err)
	s.observe(name, outcome, time.Since(start))
	if err != nil {
		return fmt.Errorf("remap index %s: %w", name, err)
	}
	log.Info("remap_finished", zap.Duration("took", time.Since(start)))
	return nil
}

func remapOutcome(err error) string {
	var rb *strategy.RollbackError
	switch {
	case err == nil:
		return metrics.OutcomeSuccess
	case errors.Is(err, domain.ErrRemapInProgress), errors.Is(err, domain.ErrNotImplemented):
		return metrics.OutcomeRejected
	case errors.As(err, &rb):
		return metrics.OutcomeFailed
	default:
		return metrics.OutcomeRolledBack
	}
}

// Flush flushes the indexes taking writes.
func (s *Service) Flush(ctx context.Context) error {
	if err := s.strat.Flush(ctx); err != nil {
		return fmt.Errorf("flush index %s: %w", s.Name(), err)
	}
	return nil
}

// Refresh makes recent writes searchable.
func (s *Service) Refresh(ctx context.Context) error {
	if err := s.strat.Refresh(ctx); err != nil {
		return fmt.Errorf("refresh index %s: %w", s.Name(), err)
	}
	return nil
}

// Mapping returns the live mapping, or nil when the index is missing.
func (s *Service) Mapping(ctx context.Context) (map[string]any, error) {
	m, err := s.strat.Mapping(ctx)
	if err != nil {
		return nil, fmt.Errorf("index %s mapping: %w", s.Name(), err)
	}
	return m, nil
}

// Settings returns the live settings, or nil when the index is missing.
func (s *Service) Settings(ctx context.Context) (map[string]any, error) {
	m, err := s.strat.Settings(ctx)
	if err != nil {
		return nil, fmt.Errorf("index %s settings: %w", s.Name(), err)
	}
	return m, nil
}
