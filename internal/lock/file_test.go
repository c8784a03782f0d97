package lock

import (
	"context"
	"errors"
	"testing"
)

func TestFile_AcquireIsExclusive(t *testing.T) {
	ctx := context.Background()
	l := NewFile(t.TempDir())
	key := RemapKey("users")

	release, err := l.Acquire(ctx, key)
	if err != nil {
		t.Fatalf("first acquire: %v", err)
	}
	if held, err := l.Held(ctx, key); err != nil || !held {
		t.Errorf("Held = %v, %v", held, err)
	}
	if _, err := l.Acquire(ctx, key); !errors.Is(err, ErrHeld) {
		t.Fatalf("expected ErrHeld, got %v", err)
	}

	if err := release(ctx); err != nil {
		t.Fatalf("release: %v", err)
	}
	if held, _ := l.Held(ctx, key); held {
		t.Error("lease still held after release")
	}
	again, err := l.Acquire(ctx, key)
	if err != nil {
		t.Fatalf("acquire after release: %v", err)
	}
	_ = again(ctx)
}

func TestFile_HeldWithoutFile(t *testing.T) {
	held, err := NewFile(t.TempDir()).Held(context.Background(), RemapKey("orders"))
	if err != nil || held {
		t.Errorf("Held = %v, %v", held, err)
	}
}

func TestFile_KeysDoNotCollide(t *testing.T) {
	ctx := context.Background()
	l := NewFile(t.TempDir())
	r1, err := l.Acquire(ctx, RemapKey("users"))
	if err != nil {
		t.Fatal(err)
	}
	defer func() { _ = r1(ctx) }()
	r2, err := l.Acquire(ctx, RemapKey("orders"))
	if err != nil {
		t.Fatalf("different key must not be blocked: %v", err)
	}
	_ = r2(ctx)
}

func TestNoop(t *testing.T) {
	ctx := context.Background()
	var l Locker = Noop{}
	r, err := l.Acquire(ctx, "k")
	if err != nil || r(ctx) != nil {
		t.Fatal("noop must always succeed")
	}
	if held, _ := l.Held(ctx, "k"); held {
		t.Error("noop is never held")
	}
}

func TestRemapKey(t *testing.T) {
	if got := RemapKey("app_users"); got != "esremap:live_remap:app_users" {
		t.Errorf("RemapKey = %s", got)
	}
}
