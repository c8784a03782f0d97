package esremap

import (
	"time"

	"go.uber.org/zap"
)

// Option configures the Client.
type Option interface {
	apply(*clientConfig)
}

// optionFunc adapts a function to the Option interface.
type optionFunc func(*clientConfig)

func (f optionFunc) apply(c *clientConfig) { f(c) }

type clientConfig struct {
	driver   string // "elasticsearch" or "memory"
	addrs    []string
	username string
	password string
	apiKey   string

	lockDriver   string // "", "redis" or "file"
	lockAddrs    []string
	lockPassword string
	lockTTL      time.Duration
	lockDir      string

	namespace        string
	settings         map[string]any
	readinessTimeout time.Duration

	logger *zap.Logger
}

// WithElasticsearch connects the client to an Elasticsearch or OpenSearch cluster.
func WithElasticsearch(addrs ...string) Option {
	return optionFunc(func(c *clientConfig) {
		c.driver = "elasticsearch"
		c.addrs = addrs
	})
}

// WithBasicAuth sets the cluster credentials.
func WithBasicAuth(username, password string) Option {
	return optionFunc(func(c *clientConfig) {
		c.username = username
		c.password = password
	})
}

// WithAPIKey authenticates against the cluster with an API key.
func WithAPIKey(key string) Option {
	return optionFunc(func(c *clientConfig) {
		c.apiKey = key
	})
}

// WithMemory runs the client against an in-process engine.
// Useful in tests; nothing survives Close.
func WithMemory() Option {
	return optionFunc(func(c *clientConfig) {
		c.driver = "memory"
	})
}

// WithRedisLock guards remaps with a lease stored in Redis, so that only one process
// remaps a logical index at a time.
func WithRedisLock(addr, password string) Option {
	return optionFunc(func(c *clientConfig) {
		c.lockDriver = "redis"
		c.lockAddrs = []string{addr}
		c.lockPassword = password
	})
}

// WithLockTTL bounds how long a crashed process keeps the Redis lease. Defaults to 30 minutes.
func WithLockTTL(ttl time.Duration) Option {
	return optionFunc(func(c *clientConfig) {
		c.lockTTL = ttl
	})
}

// WithFileLock guards remaps with lock files in dir. Only processes on the same host see them.
func WithFileLock(dir string) Option {
	return optionFunc(func(c *clientConfig) {
		c.lockDriver = "file"
		c.lockDir = dir
	})
}

// WithNamespace prefixes every logical index name, e.g. "staging" turns "users" into "staging_users".
func WithNamespace(ns string) Option {
	return optionFunc(func(c *clientConfig) {
		c.namespace = ns
	})
}

// WithSettings sets index settings applied to every index. Per-index settings win.
func WithSettings(settings map[string]any) Option {
	return optionFunc(func(c *clientConfig) {
		c.settings = settings
	})
}

// WithReadinessTimeout bounds how long New waits for the cluster. Defaults to 10s.
func WithReadinessTimeout(d time.Duration) Option {
	return optionFunc(func(c *clientConfig) {
		c.readinessTimeout = d
	})
}

// WithLogger sets the logger used for remap progress. Defaults to a no-op logger.
func WithLogger(l *zap.Logger) Option {
	return optionFunc(func(c *clientConfig) {
		c.logger = l
	})
}
