package idempotency

import (
	"bytes"
	"context"
	"testing"
	"time"

	"github.com/go-redis/redismock/v9"
)

func TestMemoryStoreFirstWriterWins(t *testing.T) {
	store := NewMemoryStore(time.Minute)
	defer store.Stop()
	ctx := context.Background()

	won, err := store.SetNX(ctx, "token-1", []byte("first"), time.Minute)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !won {
		t.Fatal("expected first write to win")
	}

	won, err = store.SetNX(ctx, "token-1", []byte("second"), time.Minute)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if won {
		t.Fatal("expected second write to lose")
	}

	payload, found, err := store.Get(ctx, "token-1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !found {
		t.Fatal("expected token to be found")
	}
	if !bytes.Equal(payload, []byte("first")) {
		t.Fatalf("expected first payload to stick, got %q", payload)
	}
}

func TestMemoryStoreUnknownToken(t *testing.T) {
	store := NewMemoryStore(time.Minute)
	defer store.Stop()

	_, found, err := store.Get(context.Background(), "missing")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if found {
		t.Fatal("expected unknown token to miss")
	}
}

func TestMemoryStoreExpiry(t *testing.T) {
	store := NewMemoryStore(time.Minute)
	defer store.Stop()
	ctx := context.Background()

	if _, err := store.SetNX(ctx, "token-1", []byte("v"), 10*time.Millisecond); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	time.Sleep(20 * time.Millisecond)

	_, found, err := store.Get(ctx, "token-1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if found {
		t.Fatal("expected expired token to miss")
	}

	// The slot reopens for a fresh write once the old record has expired.
	won, err := store.SetNX(ctx, "token-1", []byte("fresh"), time.Minute)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !won {
		t.Fatal("expected write to win after expiry")
	}
}

func TestMemoryStoreDelete(t *testing.T) {
	store := NewMemoryStore(time.Minute)
	defer store.Stop()
	ctx := context.Background()

	if _, err := store.SetNX(ctx, "token-1", []byte("stale"), time.Minute); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := store.Delete(ctx, "token-1"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if _, found, _ := store.Get(ctx, "token-1"); found {
		t.Fatal("expected deleted token to miss")
	}

	// The slot is open for a fresh first writer.
	won, err := store.SetNX(ctx, "token-1", []byte("fresh"), time.Minute)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !won {
		t.Fatal("expected write to win after delete")
	}

	// Deleting an unknown token is a no-op.
	if err := store.Delete(ctx, "missing"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestRedisStoreGet(t *testing.T) {
	db, mock := redismock.NewClientMock()
	store := NewRedisStore(db)
	ctx := context.Background()

	mock.ExpectGet("admission:idem:token-1").SetVal("cached")

	payload, found, err := store.Get(ctx, "token-1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !found {
		t.Fatal("expected hit")
	}
	if string(payload) != "cached" {
		t.Fatalf("unexpected payload %q", payload)
	}

	mock.ExpectGet("admission:idem:missing").RedisNil()

	_, found, err = store.Get(ctx, "missing")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if found {
		t.Fatal("expected miss")
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet redis expectations: %v", err)
	}
}

func TestRedisStoreSetNX(t *testing.T) {
	db, mock := redismock.NewClientMock()
	store := NewRedisStore(db)

	mock.ExpectSetNX("admission:idem:token-1", []byte("payload"), time.Hour).SetVal(true)

	won, err := store.SetNX(context.Background(), "token-1", []byte("payload"), time.Hour)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !won {
		t.Fatal("expected write to win")
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet redis expectations: %v", err)
	}
}

func TestRedisStoreDelete(t *testing.T) {
	db, mock := redismock.NewClientMock()
	store := NewRedisStore(db)

	mock.ExpectDel("admission:idem:token-1").SetVal(1)

	if err := store.Delete(context.Background(), "token-1"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet redis expectations: %v", err)
	}
}
