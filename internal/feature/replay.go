package feature

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/paylens/paylens/internal/transaction"
)

// ErrUnsortedLog is returned when a replay log violates the ascending
// timestamp precondition. Out-of-order replay would silently leak future
// state into features, so the driver refuses rather than degrades.
var ErrUnsortedLog = errors.New("transaction log not sorted by timestamp")

// FeatureRow is one training-data row: the full feature map for a
// historical transaction plus its original label.
type FeatureRow struct {
	TransactionID string
	Timestamp     time.Time
	Features      map[string]float64
	Label         *bool
}

// RowSink receives feature rows as replay produces them.
type RowSink interface {
	WriteRow(ctx context.Context, row FeatureRow) error
}

// ReplayDriver rebuilds training features by walking a sorted historical
// log one event at a time. For each event it queries all trackers as of the
// event's own timestamp, emits the row, and only then observes and resolves
// the event — the single mechanism that guarantees no feature ever sees its
// own or a future transaction.
type ReplayDriver struct {
	assembler *Assembler
	logger    *slog.Logger
}

// NewReplayDriver creates a replay driver over the given assembler.
func NewReplayDriver(assembler *Assembler, logger *slog.Logger) *ReplayDriver {
	if logger == nil {
		logger = slog.Default()
	}
	return &ReplayDriver{assembler: assembler, logger: logger}
}

// Replay processes events in order, writing one row per event to sink.
// Events must be sorted ascending by timestamp (equal timestamps keep their
// input order); the first violation aborts the run with ErrUnsortedLog.
func (d *ReplayDriver) Replay(ctx context.Context, events []transaction.Event, sink RowSink) error {
	start := time.Now()

	for i := range events {
		ev := &events[i]
		if i > 0 && ev.Timestamp.Before(events[i-1].Timestamp) {
			return fmt.Errorf("%w: event %s at index %d precedes its predecessor",
				ErrUnsortedLog, ev.TransactionID, i)
		}
		if err := ctx.Err(); err != nil {
			return err
		}

		feats, err := d.assembler.Assemble(ctx, ev, ev.Timestamp)
		if err != nil {
			return fmt.Errorf("assemble %s: %w", ev.TransactionID, err)
		}

		row := FeatureRow{
			TransactionID: ev.TransactionID,
			Timestamp:     ev.Timestamp,
			Features:      feats,
			Label:         ev.IsFraud,
		}
		if err := sink.WriteRow(ctx, row); err != nil {
			return fmt.Errorf("write row %s: %w", ev.TransactionID, err)
		}

		// Only now does the event become visible to later queries.
		if err := d.assembler.Commit(ctx, ev); err != nil {
			return err
		}
		if fraud, known := ev.Labeled(); known {
			if err := d.assembler.Resolve(ctx, ev, fraud); err != nil {
				return err
			}
		}

		if (i+1)%10000 == 0 {
			d.logger.Info("replay progress", "events", i+1, "elapsed", time.Since(start).Round(time.Millisecond))
		}
	}

	d.logger.Info("replay complete", "events", len(events), "elapsed", time.Since(start).Round(time.Millisecond))
	return nil
}
