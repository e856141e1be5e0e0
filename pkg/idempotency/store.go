// Package idempotency provides a TTL-bounded first-writer-wins result cache
// keyed by client-supplied tokens. A stored payload is the serialized outcome
// of the first completed request for a token; replays within the TTL are
// answered from the store without re-running the operation.
package idempotency

import (
	"context"
	"time"
)

type Store interface {
	// Get returns the stored payload for token, with found=false when the
	// token is unknown or expired.
	Get(ctx context.Context, token string) (payload []byte, found bool, err error)

	// SetNX stores payload under token only if no value exists yet, and
	// reports whether this call won the write. Losing the race is not an
	// error: the first writer's payload stays.
	SetNX(ctx context.Context, token string, payload []byte, ttl time.Duration) (bool, error)

	// Delete drops the stored payload for token, reopening the slot for a
	// fresh first writer. Deleting an unknown token is a no-op.
	Delete(ctx context.Context, token string) error
}
