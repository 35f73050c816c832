//go:build !integration

package redis

import (
	"context"
	"errors"
	"testing"
	"time"
)

type fakeRedis struct {
	counts  map[string]int64
	expires map[string]time.Duration
	incrErr error
}

func newFakeRedis() *fakeRedis {
	return &fakeRedis{counts: map[string]int64{}, expires: map[string]time.Duration{}}
}

func (f *fakeRedis) Ping(ctx context.Context) error { return nil }

func (f *fakeRedis) Incr(ctx context.Context, key string) (int64, error) {
	if f.incrErr != nil {
		return 0, f.incrErr
	}
	f.counts[key]++
	return f.counts[key], nil
}

func (f *fakeRedis) Expire(ctx context.Context, key string, expiration time.Duration) error {
	f.expires[key] = expiration
	return nil
}

func (f *fakeRedis) Close() error { return nil }

func TestRateLimiter_Allow(t *testing.T) {
	ctx := context.Background()

	t.Run("allows up to the limit then blocks", func(t *testing.T) {
		cli := newFakeRedis()
		rl := NewRateLimiter(cli)

		key := AuthAttemptKey("login", "user@flash.test")
		for i := 0; i < 3; i++ {
			ok, err := rl.Allow(ctx, key, 3, time.Minute)
			if err != nil || !ok {
				t.Fatalf("attempt %d: ok=%v err=%v", i+1, ok, err)
			}
		}
		ok, err := rl.Allow(ctx, key, 3, time.Minute)
		if err != nil {
			t.Fatalf("Allow: %v", err)
		}
		if ok {
			t.Error("fourth attempt should be blocked")
		}
	})

	t.Run("sets the window on the first attempt only", func(t *testing.T) {
		cli := newFakeRedis()
		rl := NewRateLimiter(cli)

		key := AuthAttemptKey("signup", "user@flash.test")
		_, _ = rl.Allow(ctx, key, 5, time.Minute)
		if cli.expires[key] != time.Minute {
			t.Fatalf("expected a 1m window, got %v", cli.expires[key])
		}
		cli.expires[key] = 0
		_, _ = rl.Allow(ctx, key, 5, time.Minute)
		if cli.expires[key] != 0 {
			t.Error("window must not be reset on later attempts")
		}
	})

	t.Run("propagates redis errors to the caller", func(t *testing.T) {
		cli := newFakeRedis()
		cli.incrErr = errors.New("connection refused")
		rl := NewRateLimiter(cli)

		if _, err := rl.Allow(ctx, "k", 1, time.Minute); err == nil {
			t.Error("expected an error")
		}
	})

	t.Run("buckets keys per action and normalized email", func(t *testing.T) {
		a := AuthAttemptKey("login", " User@Flash.Test ")
		b := AuthAttemptKey("login", "user@flash.test")
		if a != b {
			t.Errorf("keys differ: %q vs %q", a, b)
		}
		if a == AuthAttemptKey("signup", "user@flash.test") {
			t.Error("actions must not share buckets")
		}
	})
}
