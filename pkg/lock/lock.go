package lock

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// ErrLockTimeout is returned when acquisition retries are exhausted. It marks
// a transient failure: the caller may retry the whole operation, it is never
// a business rejection.
var ErrLockTimeout = errors.New("lock acquisition timed out")

// Locker is a TTL-based mutual-exclusion primitive shared across process
// instances. Acquire hands out a random holder token; Release only removes
// the lock when the presented token matches the holder (compare-and-delete),
// so an expired-and-reacquired lock cannot be released by its old holder.
type Locker interface {
	Acquire(ctx context.Context, key string, ttl time.Duration) (token string, ok bool, err error)
	Release(ctx context.Context, key, token string) error
}

// RetryConfig bounds acquisition: MaxRetries re-attempts after the initial
// try, sleeping Backoff doubled per attempt up to a hard ceiling, so the
// worst-case wait is deterministic.
type RetryConfig struct {
	TTL        time.Duration
	MaxRetries int
	Backoff    time.Duration
}

const backoffCeiling = 2 * time.Second

// WithLock runs fn under a scoped acquisition of key. fn never runs if the
// lock cannot be acquired; the lock is always released afterwards, whether fn
// succeeds or fails.
func WithLock(ctx context.Context, locker Locker, key string, cfg RetryConfig, fn func(ctx context.Context) error) error {
	token, err := acquireWithRetry(ctx, locker, key, cfg)
	if err != nil {
		return err
	}

	defer func() {
		// Release must run even when fn canceled the context.
		releaseCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
		defer cancel()
		_ = locker.Release(releaseCtx, key, token)
	}()

	return fn(ctx)
}

func acquireWithRetry(ctx context.Context, locker Locker, key string, cfg RetryConfig) (string, error) {
	backoff := cfg.Backoff

	for attempt := 0; ; attempt++ {
		token, ok, err := locker.Acquire(ctx, key, cfg.TTL)
		if err != nil {
			return "", fmt.Errorf("lock acquire failed for %s: %w", key, err)
		}
		if ok {
			return token, nil
		}

		if attempt >= cfg.MaxRetries {
			return "", fmt.Errorf("%w: %s after %d attempts", ErrLockTimeout, key, attempt+1)
		}

		timer := time.NewTimer(backoff)
		select {
		case <-ctx.Done():
			timer.Stop()
			return "", ctx.Err()
		case <-timer.C:
		}

		backoff *= 2
		if backoff > backoffCeiling {
			backoff = backoffCeiling
		}
	}
}
