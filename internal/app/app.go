// Package app is the composition root shared by the server and the CLI: it connects the
// engine and the lease store and builds one index service per configured logical index.
package app

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/esremap/internal/config"
	domindex "github.com/kailas-cloud/esremap/internal/domain/index"
	"github.com/kailas-cloud/esremap/internal/engine/elastic"
	"github.com/kailas-cloud/esremap/internal/engine/memory"
	"github.com/kailas-cloud/esremap/internal/lock"
	"github.com/kailas-cloud/esremap/internal/strategy"
	healthuc "github.com/kailas-cloud/esremap/internal/usecase/health"
	indexuc "github.com/kailas-cloud/esremap/internal/usecase/index"
)

// Engine is the storage engine as the application uses it.
type Engine interface {
	strategy.Client
	Ping(ctx context.Context) error
	WaitForReady(ctx context.Context, timeout time.Duration) error
	Close()
}

// App holds the wired services.
type App struct {
	Engine  Engine
	Locker  indexuc.Locker
	Indexes *indexuc.Registry
	Health  *healthuc.Service

	closers []func()
}

// Option customises Build.
type Option func(*buildOptions)

type buildOptions struct {
	engine Engine
}

// WithEngine uses e instead of connecting to the configured engine.
func WithEngine(e Engine) Option {
	return func(o *buildOptions) { o.engine = e }
}

// Build connects everything cfg describes and waits for the engine to become ready.
func Build(ctx context.Context, cfg config.Config, logger *zap.Logger, opts ...Option) (*App, error) {
	var o buildOptions
	for _, opt := range opts {
		opt(&o)
	}

	a := &App{}
	eng := o.engine
	if eng == nil {
		var err error
		if eng, err = newEngine(cfg.Engine); err != nil {
			return nil, err
		}
		a.closers = append(a.closers, eng.Close)
	}
	a.Engine = eng

	if err := eng.WaitForReady(ctx, time.Duration(cfg.Engine.ReadinessTimeout)*time.Second); err != nil {
		a.Close()
		return nil, fmt.Errorf("engine not ready: %w", err)
	}
	logger.Info("Connected to engine", zap.String("driver", cfg.Engine.Driver))

	// Stays a nil interface, not a typed nil pointer, when there is no lease store to ping.
	var lockPinger healthuc.LockPinger
	switch cfg.Lock.Driver {
	case "redis":
		r, err := lock.NewRedis(lock.RedisConfig{
			Addrs:    cfg.Lock.Addrs,
			Password: cfg.Lock.Password,
			TTL:      time.Duration(cfg.Lock.TTLSec) * time.Second,
		})
		if err != nil {
			a.Close()
			return nil, fmt.Errorf("remap lease: %w", err)
		}
		a.Locker = r
		lockPinger = r
		a.closers = append(a.closers, r.Close)
	case "file":
		a.Locker = lock.NewFile(cfg.Lock.Dir)
	default:
		a.Locker = lock.Noop{}
	}

	cfgs := make([]domindex.Config, 0, len(cfg.Indexes))
	for _, name := range cfg.IndexNames() {
		ic, err := cfg.IndexConfig(name)
		if err != nil {
			a.Close()
			return nil, fmt.Errorf("index %s: %w", name, err)
		}
		cfgs = append(cfgs, ic)
	}

	factory := func(ic domindex.Config) (strategy.Strategy, error) {
		return strategy.New(eng, ic)
	}
	reg, err := indexuc.NewRegistry(cfgs, factory, a.Locker)
	if err != nil {
		a.Close()
		return nil, err
	}
	a.Indexes = reg
	a.Health = healthuc.New(eng, lockPinger)
	return a, nil
}

// Close releases the connections Build opened, in reverse order.
func (a *App) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
	a.closers = nil
}

func newEngine(cfg config.EngineConfig) (Engine, error) {
	switch cfg.Driver {
	case "memory":
		return memory.New(), nil
	case "elasticsearch":
		c, err := elastic.NewClient(elastic.Config{
			Addrs:    cfg.Addrs,
			Username: cfg.Username,
			Password: cfg.Password,
			APIKey:   cfg.APIKey,
		})
		if err != nil {
			return nil, fmt.Errorf("engine: %w", err)
		}
		return c, nil
	default:
		return nil, fmt.Errorf("unknown engine driver %q", cfg.Driver)
	}
}
