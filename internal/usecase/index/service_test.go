package index

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/kailas-cloud/esremap/internal/domain"
	domindex "github.com/kailas-cloud/esremap/internal/domain/index"
	"github.com/kailas-cloud/esremap/internal/engine/memory"
	"github.com/kailas-cloud/esremap/internal/lock"
	"github.com/kailas-cloud/esremap/internal/metrics"
	"github.com/kailas-cloud/esremap/internal/strategy"
)

// --- Mocks ---

type mockStrategy struct {
	strategy.Strategy // unimplemented methods panic

	cfg       domindex.Config
	status    domindex.Status
	main      []string
	update    []string
	remapErr  error
	createErr error
	remapped  domindex.Definition
	created   int
}

func (m *mockStrategy) Config() domindex.Config { return m.cfg }

func (m *mockStrategy) Status(_ context.Context) (domindex.Status, error) { return m.status, nil }

func (m *mockStrategy) MainIndexes(_ context.Context) ([]string, error) { return m.main, nil }

func (m *mockStrategy) UpdateIndexes(_ context.Context) ([]string, error) { return m.update, nil }

func (m *mockStrategy) Create(_ context.Context, _ domindex.Definition) error {
	m.created++
	return m.createErr
}

func (m *mockStrategy) Remap(_ context.Context, def domindex.Definition) error {
	m.remapped = def
	return m.remapErr
}

type mockLocker struct {
	acquireErr error
	held       bool
	acquired   []string
	released   int
}

func (m *mockLocker) Acquire(_ context.Context, key string) (lock.Release, error) {
	if m.acquireErr != nil {
		return nil, m.acquireErr
	}
	m.acquired = append(m.acquired, key)
	return func(context.Context) error {
		m.released++
		return nil
	}, nil
}

func (m *mockLocker) Held(_ context.Context, _ string) (bool, error) { return m.held, nil }

type outcomes []string

func (o *outcomes) observe(_, outcome string, _ time.Duration) { *o = append(*o, outcome) }

func usersConfig() domindex.Config {
	return domindex.Config{
		BaseName:     "users",
		DocumentType: "user",
		Definition: domindex.Definition{Mappings: map[string]any{
			"properties": map[string]any{"name": map[string]any{"type": "keyword"}},
		}},
	}
}

// --- Tests ---

func TestRemap_Success(t *testing.T) {
	strat := &mockStrategy{cfg: usersConfig()}
	locker := &mockLocker{}
	var got outcomes
	svc := New(strat, locker, nil, WithObserver(got.observe))

	if err := svc.Remap(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(locker.acquired) != 1 || locker.acquired[0] != "esremap:live_remap:users" {
		t.Errorf("expected lease on users, got %v", locker.acquired)
	}
	if locker.released != 1 {
		t.Errorf("expected lease released once, got %d", locker.released)
	}
	if strat.remapped.Properties() == nil {
		t.Error("expected the configured definition to be remapped")
	}
	if len(got) != 1 || got[0] != metrics.OutcomeSuccess {
		t.Errorf("expected success outcome, got %v", got)
	}
}

func TestRemap_Locked(t *testing.T) {
	strat := &mockStrategy{cfg: usersConfig()}
	var got outcomes
	svc := New(strat, &mockLocker{acquireErr: lock.ErrHeld}, nil, WithObserver(got.observe))

	err := svc.Remap(context.Background())
	if !errors.Is(err, domain.ErrRemapLocked) {
		t.Fatalf("expected ErrRemapLocked, got %v", err)
	}
	if strat.remapped.Mappings != nil {
		t.Error("remap must not start without the lease")
	}
	if len(got) != 1 || got[0] != metrics.OutcomeRejected {
		t.Errorf("expected rejected outcome, got %v", got)
	}
}

func TestRemap_Outcomes(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want string
	}{
		{"in progress", domain.ErrRemapInProgress, metrics.OutcomeRejected},
		{"not implemented", domain.ErrNotImplemented, metrics.OutcomeRejected},
		{"rolled back", errors.New("bulk failed"), metrics.OutcomeRolledBack},
		{"rollback failed", &strategy.RollbackError{Cause: errors.New("a"), Rollback: errors.New("b")}, metrics.OutcomeFailed},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			locker := &mockLocker{}
			var got outcomes
			svc := New(&mockStrategy{cfg: usersConfig(), remapErr: tt.err}, locker, nil, WithObserver(got.observe))

			if err := svc.Remap(context.Background()); !errors.Is(err, tt.err) {
				t.Fatalf("expected %v, got %v", tt.err, err)
			}
			if len(got) != 1 || got[0] != tt.want {
				t.Errorf("expected %q, got %v", tt.want, got)
			}
			if locker.released != 1 {
				t.Errorf("lease must be released on failure, released %d", locker.released)
			}
		})
	}
}

func TestDescribe(t *testing.T) {
	strat := &mockStrategy{
		cfg:    usersConfig(),
		status: domindex.StatusInconsistent,
		main:   []string{"users-a", "users-b"},
		update: []string{"users-b"},
	}
	svc := New(strat, &mockLocker{held: true}, nil)

	d, err := svc.Describe(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if d.Name != "users" || d.Strategy != domindex.StrategyAlias {
		t.Errorf("unexpected identity %+v", d)
	}
	if d.Status != domindex.StatusInconsistent {
		t.Errorf("expected inconsistent status, got %q", d.Status)
	}
	if len(d.ReadIndexes) != 2 || len(d.WriteIndexes) != 1 {
		t.Errorf("unexpected indexes %+v", d)
	}
	if !d.Remapping {
		t.Error("expected remapping lease to be reported")
	}
	if d.CreatedAt != nil {
		t.Errorf("non-concrete names carry no creation time, got %v", d.CreatedAt)
	}
}

func TestDescribe_CreatedAt(t *testing.T) {
	older := time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)
	newer := older.Add(time.Hour)
	strat := &mockStrategy{
		cfg:    usersConfig(),
		status: domindex.StatusOK,
		main:   []string{domindex.ConcreteName("users", newer), domindex.ConcreteName("users", older)},
		update: []string{domindex.ConcreteName("users", newer)},
	}
	svc := New(strat, nil, nil)

	d, err := svc.Describe(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if d.CreatedAt == nil || !d.CreatedAt.Equal(older) {
		t.Errorf("CreatedAt = %v, want %v", d.CreatedAt, older)
	}
}

func TestCreate_WrapsError(t *testing.T) {
	strat := &mockStrategy{cfg: usersConfig(), createErr: domain.ErrIndexAlreadyExists}
	svc := New(strat, nil, nil)

	err := svc.Create(context.Background())
	if !errors.Is(err, domain.ErrIndexAlreadyExists) {
		t.Fatalf("expected ErrIndexAlreadyExists, got %v", err)
	}
	if strat.created != 1 {
		t.Errorf("expected one create, got %d", strat.created)
	}
}

func TestSegment_WithoutFactory(t *testing.T) {
	svc := New(&mockStrategy{cfg: usersConfig()}, nil, nil)

	same, err := svc.Segment("")
	if err != nil || same != svc {
		t.Fatalf("empty segment must return the service itself, got %v, %v", same, err)
	}
	if _, err := svc.Segment("EuropeWest"); !errors.Is(err, domain.ErrNotImplemented) {
		t.Fatalf("expected ErrNotImplemented, got %v", err)
	}
}

func memoryFactory(client strategy.Client) Factory {
	return func(cfg domindex.Config) (strategy.Strategy, error) {
		return strategy.New(client, cfg)
	}
}

func TestRegistry_LifecycleOnMemoryEngine(t *testing.T) {
	ctx := context.Background()
	mem := memory.New()
	var got outcomes
	reg, err := NewRegistry([]domindex.Config{usersConfig()}, memoryFactory(mem), lock.Noop{}, WithObserver(got.observe))
	if err != nil {
		t.Fatalf("NewRegistry: %v", err)
	}

	svc, err := reg.Get("users")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if err := svc.Create(ctx); err != nil {
		t.Fatalf("Create: %v", err)
	}
	if err := svc.Create(ctx); !errors.Is(err, domain.ErrIndexAlreadyExists) {
		t.Fatalf("expected ErrIndexAlreadyExists, got %v", err)
	}
	if err := svc.Ensure(ctx); err != nil {
		t.Fatalf("Ensure: %v", err)
	}

	before, err := svc.Describe(ctx)
	if err != nil {
		t.Fatalf("Describe: %v", err)
	}
	if err := svc.Remap(ctx); err != nil {
		t.Fatalf("Remap: %v", err)
	}
	after, err := svc.Describe(ctx)
	if err != nil {
		t.Fatalf("Describe: %v", err)
	}
	if after.Status != domindex.StatusOK {
		t.Errorf("expected OK after remap, got %q", after.Status)
	}
	if len(after.ReadIndexes) != 1 || after.ReadIndexes[0] == before.ReadIndexes[0] {
		t.Errorf("expected a new concrete index, before %v after %v", before.ReadIndexes, after.ReadIndexes)
	}
	if before.CreatedAt == nil || after.CreatedAt == nil || after.CreatedAt.Before(*before.CreatedAt) {
		t.Errorf("expected creation time to move forward, before %v after %v", before.CreatedAt, after.CreatedAt)
	}
	if len(got) != 1 || got[0] != metrics.OutcomeSuccess {
		t.Errorf("expected success outcome, got %v", got)
	}

	if err := svc.Delete(ctx); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if ok, _ := svc.Exists(ctx); ok {
		t.Error("expected index to be gone")
	}
	if err := svc.Delete(ctx); err != nil {
		t.Fatalf("Delete must be idempotent: %v", err)
	}
}

func TestRegistry_Segments(t *testing.T) {
	ctx := context.Background()
	mem := memory.New()
	reg, err := NewRegistry([]domindex.Config{usersConfig()}, memoryFactory(mem), nil)
	if err != nil {
		t.Fatalf("NewRegistry: %v", err)
	}

	seg, err := reg.Lookup("users", "EuropeWest")
	if err != nil {
		t.Fatalf("Lookup: %v", err)
	}
	if seg.Name() != "users_europe_west" {
		t.Errorf("expected users_europe_west, got %q", seg.Name())
	}
	if err := seg.Create(ctx); err != nil {
		t.Fatalf("Create segment: %v", err)
	}

	base, _ := reg.Get("users")
	if ok, _ := base.Exists(ctx); ok {
		t.Error("creating a segment must not create the base index")
	}
	if names := reg.Names(); len(names) != 1 || names[0] != "users" {
		t.Errorf("unexpected names %v", names)
	}
}

func TestRegistry_NotConfigured(t *testing.T) {
	reg, err := NewRegistry(nil, memoryFactory(memory.New()), nil)
	if err != nil {
		t.Fatalf("NewRegistry: %v", err)
	}
	if _, err := reg.Lookup("orders", ""); !errors.Is(err, domain.ErrIndexNotConfigured) {
		t.Fatalf("expected ErrIndexNotConfigured, got %v", err)
	}
}

func TestNewRegistry_FactoryError(t *testing.T) {
	bad := usersConfig()
	bad.DocumentType = ""
	if _, err := NewRegistry([]domindex.Config{bad}, memoryFactory(memory.New()), nil); !errors.Is(err, domain.ErrInvalidDefinition) {
		t.Fatalf("expected ErrInvalidDefinition, got %v", err)
	}
}
