package health

import "context"

// EnginePinger checks search engine availability.
type EnginePinger interface {
	Ping(ctx context.Context) error
}

// LockPinger checks availability of the remap lease store.
type LockPinger interface {
	Ping(ctx context.Context) error
}
