// Package lock guards live remaps with a lease so two processes never remap the same
// logical index at once.
package lock

import (
	"context"
	"errors"
)

// ErrHeld signals that another owner holds the lease.
var ErrHeld = errors.New("lock: held by another owner")

// Release gives the lease back. Releasing a lease that already expired is not an error.
type Release func(ctx context.Context) error

// Locker hands out exclusive leases by key.
type Locker interface {
	// Acquire takes the lease without waiting; it fails with ErrHeld when someone else has it.
	Acquire(ctx context.Context, key string) (Release, error)
	// Held reports whether anyone currently holds the lease.
	Held(ctx context.Context, key string) (bool, error)
}

// RemapKey is the lease key guarding remaps of one logical index. The Redis lease expires
// after its TTL only when the holder stops renewing it, e.g. after a crash.
func RemapKey(fqBaseName string) string {
	return "esremap:live_remap:" + fqBaseName
}

// Noop never blocks anyone.
type Noop struct{}

func (Noop) Acquire(context.Context, string) (Release, error) {
	return func(context.Context) error { return nil }, nil
}

func (Noop) Held(context.Context, string) (bool, error) { return false, nil }
