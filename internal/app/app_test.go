package app

import (
	"context"
	"errors"
	"testing"

	"go.uber.org/zap"

	"github.com/kailas-cloud/esremap/internal/config"
	"github.com/kailas-cloud/esremap/internal/domain"
	"github.com/kailas-cloud/esremap/internal/engine/memory"
	"github.com/kailas-cloud/esremap/internal/lock"
	healthuc "github.com/kailas-cloud/esremap/internal/usecase/health"
)

func memoryConfig(t *testing.T) config.Config {
	t.Helper()
	cfg := config.Config{
		HTTP:   config.HTTPConfig{Port: 8080},
		Engine: config.EngineConfig{Driver: "memory"},
		Lock:   config.LockConfig{Driver: "file", Dir: t.TempDir()},
		Indexes: map[string]config.IndexConfig{
			"users":  {DocumentType: "user"},
			"events": {DocumentType: "event", Strategy: "single"},
		},
	}
	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("Validate: %v", err)
	}
	return cfg
}

func TestBuild_Memory(t *testing.T) {
	ctx := context.Background()
	a, err := Build(ctx, memoryConfig(t), zap.NewNop())
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	defer a.Close()

	if names := a.Indexes.Names(); len(names) != 2 {
		t.Fatalf("expected 2 indexes, got %v", names)
	}
	if _, ok := a.Locker.(*lock.File); !ok {
		t.Errorf("expected file locker, got %T", a.Locker)
	}
	if r := a.Health.Check(ctx); r.Status != healthuc.Healthy {
		t.Errorf("expected healthy, got %+v", r)
	}

	users, err := a.Indexes.Get("users")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if err := users.Create(ctx); err != nil {
		t.Fatalf("Create: %v", err)
	}
	if err := users.Remap(ctx); err != nil {
		t.Fatalf("Remap: %v", err)
	}
	if held, _ := users.Remapping(ctx); held {
		t.Error("lease must be released after the remap")
	}
}

func TestBuild_SharedEngine(t *testing.T) {
	ctx := context.Background()
	mem := memory.New()
	cfg := memoryConfig(t)

	first, err := Build(ctx, cfg, zap.NewNop(), WithEngine(mem))
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	second, err := Build(ctx, cfg, zap.NewNop(), WithEngine(mem))
	if err != nil {
		t.Fatalf("Build: %v", err)
	}

	a, _ := first.Indexes.Get("users")
	b, _ := second.Indexes.Get("users")
	if err := a.Create(ctx); err != nil {
		t.Fatalf("Create: %v", err)
	}
	if err := b.Create(ctx); !errors.Is(err, domain.ErrIndexAlreadyExists) {
		t.Fatalf("expected ErrIndexAlreadyExists through the shared engine, got %v", err)
	}

	// An injected engine is owned by the caller.
	first.Close()
	if err := mem.Ping(ctx); err != nil {
		t.Errorf("injected engine must stay open: %v", err)
	}
}

func TestBuild_NoLock(t *testing.T) {
	cfg := memoryConfig(t)
	cfg.Lock.Driver = "none"

	a, err := Build(context.Background(), cfg, zap.NewNop())
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	defer a.Close()
	if _, ok := a.Locker.(lock.Noop); !ok {
		t.Errorf("expected noop locker, got %T", a.Locker)
	}
	if _, ok := a.Health.Check(context.Background()).Checks["lock"]; ok {
		t.Error("no lock check expected without a lease store")
	}
}

func TestNewEngine_UnknownDriver(t *testing.T) {
	if _, err := newEngine(config.EngineConfig{Driver: "solr"}); err == nil {
		t.Fatal("expected error")
	}
}
