package lock

import (
	"context"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/kailas-cloud/esremap/internal/logger"

	"github.com/google/uuid"
	"github.com/redis/rueidis"
	"go.uber.org/zap"
)

// DefaultTTL bounds how long a crashed holder keeps the lease. A live holder renews it
// every third of the TTL, so remaps may run longer than this.
const DefaultTTL = 30 * time.Minute

// releaseScript deletes the key only if it still carries our token.
var releaseScript = rueidis.NewLuaScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// extendScript pushes the expiry forward only while the key still carries our token.
var extendScript = rueidis.NewLuaScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("PEXPIRE", KEYS[1], ARGV[2])
end
return 0
`)

// RedisConfig holds connection parameters for the Redis lease.
type RedisConfig struct {
	Addrs    []string
	Username string
	Password string
	DB       int
	TTL      time.Duration
}

// Redis is a lease stored as a Redis key with a random token and an expiry.
type Redis struct {
	client rueidis.Client
	ttl    time.Duration
}

// NewRedis connects to Redis via rueidis.
func NewRedis(cfg RedisConfig) (*Redis, error) {
	if len(cfg.Addrs) == 0 {
		return nil, fmt.Errorf("addrs is required")
	}
	client, err := rueidis.NewClient(rueidis.ClientOption{
		InitAddress:  cfg.Addrs,
		Username:     cfg.Username,
		Password:     cfg.Password,
		SelectDB:     cfg.DB,
		DisableCache: true,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create client: %w", err)
	}
	return newRedis(client, cfg.TTL), nil
}

// NewRedisForTest wraps an existing client, e.g. a rueidis mock.
func NewRedisForTest(client rueidis.Client, ttl time.Duration) *Redis {
	return newRedis(client, ttl)
}

func newRedis(client rueidis.Client, ttl time.Duration) *Redis {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Redis{client: client, ttl: ttl}
}

// Acquire sets the key with SET NX PX.
func (r *Redis) Acquire(ctx context.Context, key string) (Release, error) {
	token := uuid.NewString()
	cmd := r.client.B().Set().Key(key).Value(token).Nx().PxMilliseconds(r.ttl.Milliseconds()).Build()
	if err := r.client.Do(ctx, cmd).Error(); err != nil {
		if rueidis.IsRedisNil(err) {
			return nil, fmt.Errorf("acquire %s: %w", key, ErrHeld)
		}
		return nil, fmt.Errorf("acquire %s: %w", key, err)
	}

	stop, done := make(chan struct{}), make(chan struct{})
	go r.keepAlive(context.WithoutCancel(ctx), key, token, stop, done)

	var once sync.Once
	return func(ctx context.Context) error {
		once.Do(func() {
			close(stop)
			<-done
		})
		if err := releaseScript.Exec(ctx, r.client, []string{key}, []string{token}).Error(); err != nil {
			return fmt.Errorf("release %s: %w", key, err)
		}
		return nil
	}, nil
}

// keepAlive renews the lease every third of its TTL until stop closes or the lease is lost.
func (r *Redis) keepAlive(ctx context.Context, key, token string, stop <-chan struct{}, done chan<- struct{}) {
	defer close(done)
	t := time.NewTicker(max(r.ttl/3, time.Millisecond))
	defer t.Stop()
	for {
		select {
		case <-stop:
			return
		case <-t.C:
			ok, err := r.extend(ctx, key, token)
			switch {
			case err != nil:
				logger.FromContext(ctx).Warn("lease_extend_failed", zap.String("key", key), zap.Error(err))
			case !ok:
				logger.FromContext(ctx).Warn("lease_lost", zap.String("key", key))
				return
			}
		}
	}
}

// extend resets the expiry of a lease we still own. Returns false once the key expired or
// changed hands.
func (r *Redis) extend(ctx context.Context, key, token string) (bool, error) {
	ttl := strconv.FormatInt(r.ttl.Milliseconds(), 10)
	n, err := extendScript.Exec(ctx, r.client, []string{key}, []string{token, ttl}).AsInt64()
	if err != nil {
		return false, fmt.Errorf("extend %s: %w", key, err)
	}
	return n == 1, nil
}

// Held reports whether the key exists.
func (r *Redis) Held(ctx context.Context, key string) (bool, error) {
	n, err := r.client.Do(ctx, r.client.B().Exists().Key(key).Build()).AsInt64()
	if err != nil {
		return false, fmt.Errorf("exists %s: %w", key, err)
	}
	return n > 0, nil
}

// Ping checks that the lease store answers.
func (r *Redis) Ping(ctx context.Context) error {
	if err := r.client.Do(ctx, r.client.B().Ping().Build()).Error(); err != nil {
		return fmt.Errorf("ping: %w", err)
	}
	return nil
}

// Close shuts down the client.
func (r *Redis) Close() {
	r.client.Close()
}
