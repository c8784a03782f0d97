package index

import (
	"context"
	"time"

	domindex "github.com/kailas-cloud/esremap/internal/domain/index"
	"github.com/kailas-cloud/esremap/internal/lock"
	"github.com/kailas-cloud/esremap/internal/strategy"
)

// Factory builds the strategy for one logical index, e.g. a segment of a configured one.
type Factory func(cfg domindex.Config) (strategy.Strategy, error)

// Locker hands out remap leases.
type Locker interface {
	Acquire(ctx context.Context, key string) (lock.Release, error)
	Held(ctx context.Context, key string) (bool, error)
}

// Observer records remap outcomes.
type Observer func(index, outcome string, d time.Duration)
