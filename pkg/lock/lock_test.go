package lock

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/go-redis/redismock/v9"
)

func TestMemoryLockerAcquireRelease(t *testing.T) {
	locker := NewMemoryLocker()
	ctx := context.Background()

	token, ok, err := locker.Acquire(ctx, "person-1:room-1", time.Minute)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !ok {
		t.Fatal("expected first acquisition to succeed")
	}
	if token == "" {
		t.Fatal("expected a non-empty holder token")
	}

	_, ok, err = locker.Acquire(ctx, "person-1:room-1", time.Minute)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if ok {
		t.Fatal("expected second acquisition to be blocked")
	}

	if err := locker.Release(ctx, "person-1:room-1", token); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	_, ok, err = locker.Acquire(ctx, "person-1:room-1", time.Minute)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !ok {
		t.Fatal("expected acquisition to succeed after release")
	}
}

func TestMemoryLockerTokenMismatch(t *testing.T) {
	locker := NewMemoryLocker()
	ctx := context.Background()

	_, ok, err := locker.Acquire(ctx, "key", time.Minute)
	if err != nil || !ok {
		t.Fatalf("setup acquisition failed: ok=%v err=%v", ok, err)
	}

	// Releasing with a stale token must leave the lock held.
	if err := locker.Release(ctx, "key", "not-the-holder"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	_, ok, err = locker.Acquire(ctx, "key", time.Minute)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if ok {
		t.Fatal("expected lock to still be held after mismatched release")
	}
}

func TestMemoryLockerExpiry(t *testing.T) {
	locker := NewMemoryLocker()
	ctx := context.Background()

	_, ok, err := locker.Acquire(ctx, "key", 10*time.Millisecond)
	if err != nil || !ok {
		t.Fatalf("setup acquisition failed: ok=%v err=%v", ok, err)
	}

	time.Sleep(20 * time.Millisecond)

	_, ok, err = locker.Acquire(ctx, "key", time.Minute)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !ok {
		t.Fatal("expected acquisition to succeed after ttl expiry")
	}
}

func TestWithLockRunsAndReleases(t *testing.T) {
	locker := NewMemoryLocker()
	ctx := context.Background()
	cfg := RetryConfig{TTL: time.Minute, MaxRetries: 0, Backoff: time.Millisecond}

	ran := false
	err := WithLock(ctx, locker, "key", cfg, func(ctx context.Context) error {
		ran = true
		return nil
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !ran {
		t.Fatal("expected fn to run")
	}

	_, ok, err := locker.Acquire(ctx, "key", time.Minute)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !ok {
		t.Fatal("expected lock to be released after fn returned")
	}
}

func TestWithLockReleasesOnError(t *testing.T) {
	locker := NewMemoryLocker()
	ctx := context.Background()
	cfg := RetryConfig{TTL: time.Minute, MaxRetries: 0, Backoff: time.Millisecond}

	wantErr := errors.New("boom")
	err := WithLock(ctx, locker, "key", cfg, func(ctx context.Context) error {
		return wantErr
	})
	if !errors.Is(err, wantErr) {
		t.Fatalf("expected fn error to propagate, got %v", err)
	}

	_, ok, _ := locker.Acquire(ctx, "key", time.Minute)
	if !ok {
		t.Fatal("expected lock to be released after fn failed")
	}
}

func TestWithLockRetriesUntilFree(t *testing.T) {
	locker := NewMemoryLocker()
	ctx := context.Background()

	token, ok, _ := locker.Acquire(ctx, "key", time.Minute)
	if !ok {
		t.Fatal("setup acquisition failed")
	}

	go func() {
		time.Sleep(30 * time.Millisecond)
		_ = locker.Release(context.Background(), "key", token)
	}()

	cfg := RetryConfig{TTL: time.Minute, MaxRetries: 10, Backoff: 10 * time.Millisecond}
	err := WithLock(ctx, locker, "key", cfg, func(ctx context.Context) error {
		return nil
	})
	if err != nil {
		t.Fatalf("expected eventual acquisition, got %v", err)
	}
}

func TestWithLockTimesOut(t *testing.T) {
	locker := NewMemoryLocker()
	ctx := context.Background()

	if _, ok, _ := locker.Acquire(ctx, "key", time.Minute); !ok {
		t.Fatal("setup acquisition failed")
	}

	ran := false
	cfg := RetryConfig{TTL: time.Minute, MaxRetries: 2, Backoff: time.Millisecond}
	err := WithLock(ctx, locker, "key", cfg, func(ctx context.Context) error {
		ran = true
		return nil
	})
	if !errors.Is(err, ErrLockTimeout) {
		t.Fatalf("expected ErrLockTimeout, got %v", err)
	}
	if ran {
		t.Fatal("fn must not run when the lock was never acquired")
	}
}

func TestWithLockContextCanceled(t *testing.T) {
	locker := NewMemoryLocker()
	if _, ok, _ := locker.Acquire(context.Background(), "key", time.Minute); !ok {
		t.Fatal("setup acquisition failed")
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	cfg := RetryConfig{TTL: time.Minute, MaxRetries: 5, Backoff: 50 * time.Millisecond}
	err := WithLock(ctx, locker, "key", cfg, func(ctx context.Context) error {
		return nil
	})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}

func TestRedisLockerAcquire(t *testing.T) {
	db, mock := redismock.NewClientMock()
	locker := NewRedisLocker(db)
	ctx := context.Background()

	mock.Regexp().ExpectSetNX("admission:lock:person-1:room-1", `^[0-9a-f-]{36}$`, time.Minute).SetVal(true)

	token, ok, err := locker.Acquire(ctx, "person-1:room-1", time.Minute)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !ok {
		t.Fatal("expected acquisition to succeed")
	}
	if token == "" {
		t.Fatal("expected a non-empty holder token")
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet redis expectations: %v", err)
	}
}

func TestRedisLockerAcquireContended(t *testing.T) {
	db, mock := redismock.NewClientMock()
	locker := NewRedisLocker(db)

	mock.Regexp().ExpectSetNX("admission:lock:key", `^[0-9a-f-]{36}$`, time.Minute).SetVal(false)

	_, ok, err := locker.Acquire(context.Background(), "key", time.Minute)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if ok {
		t.Fatal("expected acquisition to fail under contention")
	}
}

func TestRedisLockerRelease(t *testing.T) {
	db, mock := redismock.NewClientMock()
	locker := NewRedisLocker(db)

	mock.ExpectEval(releaseScript, []string{"admission:lock:key"}, "token-1").SetVal(int64(1))

	if err := locker.Release(context.Background(), "key", "token-1"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet redis expectations: %v", err)
	}
}
