// Package esremap manages Elasticsearch indexes behind aliases so their mappings can be
// changed online.
//
//	c, err := esremap.New(ctx, esremap.WithElasticsearch("http://localhost:9200"))
//	users, err := c.Index(esremap.IndexConfig{Name: "users", Mappings: mappings})
//	err = users.Ensure(ctx)
//	err = users.Remap(ctx) // after changing mappings
package esremap

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/esremap/internal/app"
	"github.com/kailas-cloud/esremap/internal/config"
	domindex "github.com/kailas-cloud/esremap/internal/domain/index"
	"github.com/kailas-cloud/esremap/internal/logger"
	"github.com/kailas-cloud/esremap/internal/strategy"
	documentuc "github.com/kailas-cloud/esremap/internal/usecase/document"
	indexuc "github.com/kailas-cloud/esremap/internal/usecase/index"
)

// Client is the esremap entry point. Safe for concurrent use.
type Client struct {
	app       *app.App
	logger    *zap.Logger
	namespace string
	settings  map[string]any
}

// New connects to the engine and waits until it is ready.
func New(ctx context.Context, opts ...Option) (*Client, error) {
	cfg := &clientConfig{}
	for _, o := range opts {
		o.apply(cfg)
	}
	if cfg.driver == "" {
		return nil, errors.New("esremap: no engine configured, use WithElasticsearch or WithMemory")
	}
	if cfg.driver == "elasticsearch" && len(cfg.addrs) == 0 {
		return nil, errors.New("esremap: WithElasticsearch needs at least one address")
	}
	if cfg.logger == nil {
		cfg.logger = zap.NewNop()
	}

	a, err := app.Build(ctx, cfg.appConfig(), cfg.logger)
	if err != nil {
		return nil, fmt.Errorf("esremap: %w", err)
	}
	return &Client{
		app:       a,
		logger:    cfg.logger,
		namespace: cfg.namespace,
		settings:  cfg.settings,
	}, nil
}

// appConfig translates the options into the configuration the server and the CLI load from YAML.
func (c *clientConfig) appConfig() config.Config {
	out := config.Config{
		Engine: config.EngineConfig{
			Driver:   c.driver,
			Addrs:    c.addrs,
			Username: c.username,
			Password: c.password,
			APIKey:   c.apiKey,
		},
		Lock: config.LockConfig{
			Driver:   c.lockDriver,
			Addrs:    c.lockAddrs,
			Password: c.lockPassword,
			Dir:      c.lockDir,
		},
		Namespace: c.namespace,
		Settings:  c.settings,
	}
	if c.readinessTimeout > 0 {
		out.Engine.ReadinessTimeout = max(1, int(c.readinessTimeout/time.Second))
	}
	if c.lockTTL > 0 {
		out.Lock.TTLSec = max(1, int(c.lockTTL/time.Second))
	}
	out.ApplyDefaults()
	return out
}

// Close releases the connections New opened.
func (c *Client) Close() {
	c.app.Close()
}

// Ping checks connectivity to the engine.
func (c *Client) Ping(ctx context.Context) error {
	return c.app.Engine.Ping(ctx)
}

// Index returns a handle on the logical index cfg describes. Nothing is created on the
// engine until Create or Ensure.
func (c *Client) Index(cfg IndexConfig) (*Index, error) {
	ic := cfg.domain(c.namespace, c.settings)
	strat, err := c.newStrategy(ic)
	if err != nil {
		return nil, fmt.Errorf("esremap: %w", err)
	}
	svc := indexuc.New(strat, c.app.Locker, c.newStrategy)
	return newIndex(svc, c.logger), nil
}

func (c *Client) newStrategy(ic domindex.Config) (strategy.Strategy, error) {
	return strategy.New(c.app.Engine, ic)
}

func newIndex(svc *indexuc.Service, l *zap.Logger) *Index {
	return &Index{
		svc:    svc,
		docs:   documentuc.New(svc.Strategy()),
		logger: l,
	}
}

// withLogger puts the client logger in ctx so remap progress is logged.
func (ix *Index) withLogger(ctx context.Context) context.Context {
	return logger.ContextWithLogger(ctx, ix.logger)
}
