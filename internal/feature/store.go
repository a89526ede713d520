package feature

import (
	"context"
	"errors"
)

// ErrStoreUnavailable wraps backing-store failures so callers can
// distinguish an outage (degrade to defaults, conservative decision) from a
// programming error.
var ErrStoreUnavailable = errors.New("feature state store unavailable")

// Store is the access contract for per-entity aggregate state. Trackers are
// stateless logic over the returned state values, so the same computation
// runs against the in-memory store (tests, batch replay) and Redis
// (serving).
//
// Get methods return a fresh zero-valued state for unseen keys, never nil
// and never a not-found error: a cold-start entity is not an error
// condition. Returned state is owned by the caller; mutations are persisted
// only by the corresponding Put.
type Store interface {
	GetWindow(ctx context.Context, key EntityKey) (*WindowState, error)
	PutWindow(ctx context.Context, key EntityKey, st *WindowState) error

	GetExpanding(ctx context.Context, key EntityKey) (*ExpandingState, error)
	PutExpanding(ctx context.Context, key EntityKey, st *ExpandingState) error

	GetFraudRate(ctx context.Context, key EntityKey) (*FraudRateState, error)
	// AddFraudOutcome atomically commits one resolved transaction into the
	// cumulative counters: the transaction count always advances, the fraud
	// count only when fraud is true. Atomicity per key is the store's
	// responsibility (mutex in memory, HINCRBY in Redis).
	AddFraudOutcome(ctx context.Context, key EntityKey, fraud bool) error
}
