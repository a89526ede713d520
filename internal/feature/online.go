package feature

import (
	"context"
	"time"

	"github.com/paylens/paylens/internal/syncutil"
	"github.com/paylens/paylens/internal/transaction"
)

// DefaultComputeTimeout bounds a single online query+assemble. The budget is
// a few milliseconds of state reads inside a sub-100ms request target; a
// store that cannot answer within it is treated as unavailable.
const DefaultComputeTimeout = 50 * time.Millisecond

// OnlineComputer runs the serving-time path: the same query step as batch
// replay, against a live store, with "now" as the as-of time. Query and
// commit are serialized per entity key (never globally) so a concurrent
// event on the same user/device/merchant/IP can neither leak into a query
// nor lose counter updates.
type OnlineComputer struct {
	assembler *Assembler
	locks     *syncutil.ContextShardedMutex
	timeout   time.Duration
}

// NewOnlineComputer creates an online computer over the given store.
func NewOnlineComputer(store Store) *OnlineComputer {
	return &OnlineComputer{
		assembler: NewAssembler(store),
		locks:     syncutil.NewContextShardedMutex(),
		timeout:   DefaultComputeTimeout,
	}
}

// WithTimeout overrides the per-computation deadline.
func (c *OnlineComputer) WithTimeout(d time.Duration) *OnlineComputer {
	if d > 0 {
		c.timeout = d
	}
	return c
}

// Compute assembles ev's feature map as of ev.Timestamp under the entity
// locks. It does not mutate state; callers commit separately once the
// scoring decision is made and logged. Fails fast — with the deadline, not
// by blocking — when the backing store is slow or down, so the caller can
// fall back to a default vector and a conservative decision.
func (c *OnlineComputer) Compute(ctx context.Context, ev *transaction.Event) (map[string]float64, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	unlock, err := c.lockEntities(ctx, ev)
	if err != nil {
		return nil, err
	}
	defer unlock()

	return c.assembler.Assemble(ctx, ev, ev.Timestamp)
}

// Commit observes ev into all trackers, and resolves its label when already
// known at commit time. Serialized on the same entity locks as Compute.
func (c *OnlineComputer) Commit(ctx context.Context, ev *transaction.Event) error {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	unlock, err := c.lockEntities(ctx, ev)
	if err != nil {
		return err
	}
	defer unlock()

	if err := c.assembler.Commit(ctx, ev); err != nil {
		return err
	}
	if fraud, known := ev.Labeled(); known {
		return c.assembler.Resolve(ctx, ev, fraud)
	}
	return nil
}

// Resolve commits a late-arriving fraud label (chargeback, confirmation)
// for an already-committed transaction.
func (c *OnlineComputer) Resolve(ctx context.Context, ev *transaction.Event, fraud bool) error {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	unlock, err := c.lockEntities(ctx, ev)
	if err != nil {
		return err
	}
	defer unlock()

	return c.assembler.Resolve(ctx, ev, fraud)
}

func (c *OnlineComputer) lockEntities(ctx context.Context, ev *transaction.Event) (func(), error) {
	keys := Keys(ev)
	return c.locks.LockContextMany(ctx,
		keys[0].String(), keys[1].String(), keys[2].String(), keys[3].String())
}
