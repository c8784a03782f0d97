package strategy

import (
	"context"
	"time"

	domindex "github.com/kailas-cloud/esremap/internal/domain/index"
	"github.com/kailas-cloud/esremap/internal/domain/retry"
)

const (
	defaultScrollKeepAlive = 10 * time.Minute
	scrollStepKeepAlive    = time.Minute
)

type options struct {
	retry           retry.Policy
	batchSize       int
	scrollKeepAlive time.Duration
	strictBulk      bool
	now             func() time.Time
	sleep           func(ctx context.Context, d time.Duration) error
}

// Option configures a strategy.
type Option func(*options)

// WithRetry sets the policy for retrying the old index deletion.
func WithRetry(p retry.Policy) Option {
	return func(o *options) { o.retry = p }
}

// WithBatchSize sets how many documents one copy batch moves.
func WithBatchSize(n int) Option {
	return func(o *options) {
		if n > 0 {
			o.batchSize = n
		}
	}
}

// WithScrollKeepAlive sets how long the copy scroll stays open before the first page is consumed.
func WithScrollKeepAlive(d time.Duration) Option {
	return func(o *options) {
		if d > 0 {
			o.scrollKeepAlive = d
		}
	}
}

// WithStrictBulk makes any failed bulk item during a remap fail the remap.
func WithStrictBulk() Option {
	return func(o *options) { o.strictBulk = true }
}

// WithClock overrides the clock used to name new concrete indexes.
func WithClock(now func() time.Time) Option {
	return func(o *options) { o.now = now }
}

func newOptions(cfg domindex.Config, opts []Option) options {
	o := options{
		retry:           cfg.Retry,
		batchSize:       cfg.BatchSize,
		scrollKeepAlive: defaultScrollKeepAlive,
		strictBulk:      cfg.StrictBulk,
		now:             time.Now,
		sleep:           sleepContext,
	}
	if o.batchSize <= 0 {
		o.batchSize = domindex.DefaultBatchSize
	}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

func sleepContext(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
