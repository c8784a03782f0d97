package lock

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/redis/rueidis"
	"github.com/redis/rueidis/mock"
	"go.uber.org/mock/gomock"
)

func TestRedis_AcquireAndRelease(t *testing.T) {
	ctrl := gomock.NewController(t)
	c := mock.NewClient(ctrl)

	var token string
	c.EXPECT().
		Do(gomock.Any(), mock.MatchFn(func(cmd []string) bool {
			if len(cmd) < 6 || cmd[0] != "SET" || cmd[1] != "esremap:live_remap:users" {
				return false
			}
			token = cmd[2]
			return cmd[3] == "NX" && cmd[4] == "PX" && cmd[5] == "60000"
		})).
		Return(mock.Result(mock.RedisString("OK")))

	c.EXPECT().
		Do(gomock.Any(), mock.MatchFn(func(cmd []string) bool {
			return (cmd[0] == "EVALSHA" || cmd[0] == "EVAL") &&
				cmd[2] == "1" && cmd[3] == "esremap:live_remap:users" && cmd[4] == token
		})).
		Return(mock.Result(mock.RedisInt64(1)))

	l := NewRedisForTest(c, time.Minute)
	release, err := l.Acquire(context.Background(), RemapKey("users"))
	if err != nil {
		t.Fatalf("acquire: %v", err)
	}
	if token == "" {
		t.Fatal("lease must carry a token")
	}
	if err := release(context.Background()); err != nil {
		t.Fatalf("release: %v", err)
	}
}

// leaseScript matches EVALSHA/EVAL calls on the users lease with the given number of args.
func leaseScript(nargs int) gomock.Matcher {
	return mock.MatchFn(func(cmd []string) bool {
		return (cmd[0] == "EVALSHA" || cmd[0] == "EVAL") && len(cmd) == 4+nargs &&
			cmd[3] == "esremap:live_remap:users"
	})
}

func TestRedis_RenewsUntilReleased(t *testing.T) {
	ctrl := gomock.NewController(t)
	c := mock.NewClient(ctrl)

	var token string
	c.EXPECT().
		Do(gomock.Any(), mock.MatchFn(func(cmd []string) bool {
			if cmd[0] != "SET" {
				return false
			}
			token = cmd[2]
			return true
		})).
		Return(mock.Result(mock.RedisString("OK")))

	renewed := make(chan []string, 16)
	c.EXPECT().
		Do(gomock.Any(), leaseScript(2)).
		DoAndReturn(func(_ context.Context, cmd rueidis.Completed) rueidis.RedisResult {
			select {
			case renewed <- cmd.Commands():
			default:
			}
			return mock.Result(mock.RedisInt64(1))
		}).
		MinTimes(1)
	c.EXPECT().
		Do(gomock.Any(), leaseScript(1)).
		Return(mock.Result(mock.RedisInt64(1)))

	l := NewRedisForTest(c, 30*time.Millisecond)
	release, err := l.Acquire(context.Background(), RemapKey("users"))
	if err != nil {
		t.Fatalf("acquire: %v", err)
	}

	select {
	case cmd := <-renewed:
		if cmd[4] != token || cmd[5] != "30" {
			t.Errorf("renewal args = %v, want token and 30ms", cmd[4:])
		}
	case <-time.After(5 * time.Second):
		t.Fatal("lease was never renewed")
	}
	if err := release(context.Background()); err != nil {
		t.Fatalf("release: %v", err)
	}
}

func TestRedis_StopsRenewingLostLease(t *testing.T) {
	ctrl := gomock.NewController(t)
	c := mock.NewClient(ctrl)
	c.EXPECT().
		Do(gomock.Any(), mock.MatchFn(func(cmd []string) bool { return cmd[0] == "SET" })).
		Return(mock.Result(mock.RedisString("OK")))

	lost := make(chan struct{})
	c.EXPECT().
		Do(gomock.Any(), leaseScript(2)).
		DoAndReturn(func(context.Context, rueidis.Completed) rueidis.RedisResult {
			close(lost)
			return mock.Result(mock.RedisInt64(0))
		}).
		Times(1)
	c.EXPECT().
		Do(gomock.Any(), leaseScript(1)).
		Return(mock.Result(mock.RedisInt64(0)))

	l := NewRedisForTest(c, 30*time.Millisecond)
	release, err := l.Acquire(context.Background(), RemapKey("users"))
	if err != nil {
		t.Fatalf("acquire: %v", err)
	}
	select {
	case <-lost:
	case <-time.After(5 * time.Second):
		t.Fatal("lease was never renewed")
	}
	// Several renewal periods pass; Times(1) fails the test if renewal continued.
	time.Sleep(100 * time.Millisecond)
	if err := release(context.Background()); err != nil {
		t.Fatalf("release: %v", err)
	}
}

func TestRedis_AcquireHeld(t *testing.T) {
	ctrl := gomock.NewController(t)
	c := mock.NewClient(ctrl)
	c.EXPECT().
		Do(gomock.Any(), mock.MatchFn(func(cmd []string) bool { return cmd[0] == "SET" })).
		Return(mock.Result(mock.RedisNil()))

	_, err := NewRedisForTest(c, 0).Acquire(context.Background(), RemapKey("users"))
	if !errors.Is(err, ErrHeld) {
		t.Fatalf("expected ErrHeld, got %v", err)
	}
}

func TestRedis_AcquireError(t *testing.T) {
	ctrl := gomock.NewController(t)
	c := mock.NewClient(ctrl)
	c.EXPECT().
		Do(gomock.Any(), mock.MatchFn(func(cmd []string) bool { return cmd[0] == "SET" })).
		Return(mock.ErrorResult(context.DeadlineExceeded))

	_, err := NewRedisForTest(c, 0).Acquire(context.Background(), RemapKey("users"))
	if !errors.Is(err, context.DeadlineExceeded) || errors.Is(err, ErrHeld) {
		t.Fatalf("expected transport error, got %v", err)
	}
}

func TestRedis_Held(t *testing.T) {
	ctrl := gomock.NewController(t)
	c := mock.NewClient(ctrl)
	c.EXPECT().
		Do(gomock.Any(), mock.Match("EXISTS", "esremap:live_remap:users")).
		Return(mock.Result(mock.RedisInt64(1)))

	held, err := NewRedisForTest(c, 0).Held(context.Background(), RemapKey("users"))
	if err != nil || !held {
		t.Errorf("Held = %v, %v", held, err)
	}
}

func TestNewRedis_RequiresAddrs(t *testing.T) {
	if _, err := NewRedis(RedisConfig{}); err == nil {
		t.Fatal("expected error")
	}
}

func TestRedis_Ping(t *testing.T) {
	ctrl := gomock.NewController(t)
	c := mock.NewClient(ctrl)
	c.EXPECT().Do(gomock.Any(), mock.Match("PING")).Return(mock.Result(mock.RedisString("PONG")))
	c.EXPECT().Do(gomock.Any(), mock.Match("PING")).Return(mock.ErrorResult(errors.New("conn refused")))

	l := NewRedisForTest(c, 0)
	if err := l.Ping(context.Background()); err != nil {
		t.Fatalf("ping: %v", err)
	}
	if err := l.Ping(context.Background()); err == nil {
		t.Fatal("expected ping error")
	}
}
