package scoring

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"time"

	"github.com/paylens/paylens/internal/circuitbreaker"
	"github.com/paylens/paylens/internal/decision"
	"github.com/paylens/paylens/internal/feature"
	"github.com/paylens/paylens/internal/idgen"
	"github.com/paylens/paylens/internal/metrics"
	"github.com/paylens/paylens/internal/model"
	"github.com/paylens/paylens/internal/realtime"
	"github.com/paylens/paylens/internal/retry"
	"github.com/paylens/paylens/internal/traces"
	"github.com/paylens/paylens/internal/transaction"
)

// stateBreakerKey is the circuit key guarding the entity state store.
const stateBreakerKey = "entity_state"

// Service wires feature computation, the model, and the decision thresholds
// into the scoring flow.
type Service struct {
	computer *feature.OnlineComputer
	model    model.Model
	schema   feature.Schema
	decider  *decision.Decider
	store    Store
	hub      *realtime.Hub
	breaker  *circuitbreaker.Breaker
	logger   *slog.Logger
}

// NewService creates the scoring service. The feature schema is taken from
// the model artifact, so a model trained against a different feature set
// fails here rather than at serving time.
func NewService(computer *feature.OnlineComputer, mdl model.Model, decider *decision.Decider, store Store, hub *realtime.Hub, logger *slog.Logger) (*Service, error) {
	schema := feature.Schema(mdl.FeatureNames())
	if err := schema.Validate(); err != nil {
		return nil, fmt.Errorf("model feature schema: %w", err)
	}
	return &Service{
		computer: computer,
		model:    mdl,
		schema:   schema,
		decider:  decider,
		store:    store,
		hub:      hub,
		breaker:  circuitbreaker.New(5, 10*time.Second),
		logger:   logger,
	}, nil
}

// Score evaluates one transaction. Features are computed strictly from state
// observed before the transaction, the model scores the vector, and the
// transaction is then committed into entity state for future lookups.
//
// If the state store is unreachable the transaction is scored on locally
// derivable features only and never silently approved.
func (s *Service) Score(ctx context.Context, ev *transaction.Event) (*ScoreRecord, error) {
	start := time.Now()

	ev.Normalize(start)
	if err := ev.Validate(); err != nil {
		return nil, err
	}

	ctx, span := traces.StartSpan(ctx, "scoring.Score",
		traces.TransactionID(ev.TransactionID),
		traces.UserID(ev.UserID),
		traces.Amount(ev.Amount),
	)
	defer span.End()

	features, degraded, err := s.computeFeatures(ctx, ev)
	if err != nil {
		return nil, err
	}

	p, err := s.model.Predict(s.schema.Vector(features))
	if err != nil {
		return nil, err
	}
	score := math.Round(p*10000) / 10000

	dec := s.decider.Decide(score)
	if degraded && dec.Outcome == decision.Approve {
		// Partial features can only understate risk.
		dec = decision.Fallback("Feature state unavailable - routed to manual review")
		metrics.FallbackDecisionsTotal.Inc()
	}
	span.SetAttributes(traces.FraudScore(score), traces.Decision(string(dec.Outcome)))

	if !degraded {
		// Commit also resolves the label when the event already carries one.
		if err := s.computer.Commit(ctx, ev); err != nil {
			metrics.StateStoreFailuresTotal.WithLabelValues("commit").Inc()
			s.logger.Warn("failed to commit transaction to entity state",
				"transaction_id", ev.TransactionID, "error", err)
		}
	}

	elapsed := time.Since(start)
	rec := &ScoreRecord{
		ID:            idgen.WithPrefix("score_"),
		TransactionID: ev.TransactionID,
		UserID:        ev.UserID,
		MerchantID:    ev.MerchantID,
		DeviceID:      ev.DeviceID,
		IPAddress:     ev.IPAddress,
		Amount:        ev.Amount,
		FraudScore:    score,
		Decision:      dec.Outcome,
		RiskLevel:     dec.RiskLevel,
		Reason:        dec.Reason,
		ModelVersion:  s.model.Version(),
		Degraded:      degraded,
		ProcessingMs:  math.Round(elapsed.Seconds()*1000*100) / 100,
		ScoredAt:      start,
		IsFraud:       ev.IsFraud,
	}

	// Persist asynchronously (best-effort audit trail)
	if s.store != nil {
		go func() {
			recordCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			err := retry.Do(recordCtx, 3, 100*time.Millisecond, func() error {
				return s.store.Record(recordCtx, rec)
			})
			if err != nil {
				s.logger.Error("failed to record score",
					"transaction_id", rec.TransactionID, "error", err)
			}
		}()
	}

	if s.hub != nil {
		s.hub.BroadcastScore(map[string]interface{}{
			"transaction_id": rec.TransactionID,
			"user_id":        rec.UserID,
			"merchant_id":    rec.MerchantID,
			"amount":         rec.Amount,
			"fraud_score":    rec.FraudScore,
			"decision":       string(rec.Decision),
			"risk_level":     string(rec.RiskLevel),
		})
	}

	metrics.ScoresTotal.WithLabelValues(string(dec.Outcome)).Inc()
	metrics.ScoreDuration.Observe(elapsed.Seconds())

	s.logger.Info("transaction scored",
		"transaction_id", ev.TransactionID,
		"score", score,
		"decision", dec.Outcome,
		"degraded", degraded,
		"duration_ms", rec.ProcessingMs)

	return rec, nil
}

// computeFeatures returns the full vector, or the locally derivable subset
// when the state store is down. Timeouts count as store failures: a slow
// store must not hold up the payment path.
func (s *Service) computeFeatures(ctx context.Context, ev *transaction.Event) (map[string]float64, bool, error) {
	// When the circuit is open, skip the store entirely rather than burning
	// the compute deadline on a known-bad backend.
	if !s.breaker.Allow(stateBreakerKey) {
		metrics.StateStoreFailuresTotal.WithLabelValues("short_circuit").Inc()
		return feature.LocalFeatures(ev, ev.Timestamp), true, nil
	}

	computeStart := time.Now()
	features, err := s.computer.Compute(ctx, ev)
	metrics.FeatureComputeDuration.Observe(time.Since(computeStart).Seconds())
	if err == nil {
		s.breaker.RecordSuccess(stateBreakerKey)
		return features, false, nil
	}

	if errors.Is(err, feature.ErrStoreUnavailable) || errors.Is(err, context.DeadlineExceeded) {
		s.breaker.RecordFailure(stateBreakerKey)
		metrics.StateStoreFailuresTotal.WithLabelValues("compute").Inc()
		s.logger.Error("entity state unavailable, scoring on local features",
			"transaction_id", ev.TransactionID, "error", err)
		return feature.LocalFeatures(ev, ev.Timestamp), true, nil
	}
	return nil, false, err
}

// Resolve records the confirmed fraud label for a previously scored
// transaction and feeds it back into the entity fraud rates.
func (s *Service) Resolve(ctx context.Context, txID string, fraud bool) (*ScoreRecord, error) {
	ctx, span := traces.StartSpan(ctx, "scoring.Resolve", traces.TransactionID(txID))
	defer span.End()

	rec, err := s.store.GetByTransaction(ctx, txID)
	if err != nil {
		return nil, err
	}

	ev := &transaction.Event{
		TransactionID: rec.TransactionID,
		UserID:        rec.UserID,
		MerchantID:    rec.MerchantID,
		DeviceID:      rec.DeviceID,
		IPAddress:     rec.IPAddress,
	}
	if err := s.computer.Resolve(ctx, ev, fraud); err != nil {
		metrics.StateStoreFailuresTotal.WithLabelValues("resolve").Inc()
		return nil, err
	}

	now := time.Now()
	if err := s.store.MarkResolved(ctx, txID, fraud, now); err != nil {
		return nil, err
	}

	label := "legit"
	if fraud {
		label = "fraud"
	}
	metrics.FraudResolutionsTotal.WithLabelValues(label).Inc()

	if s.hub != nil {
		s.hub.BroadcastResolution(map[string]interface{}{
			"transaction_id": txID,
			"user_id":        rec.UserID,
			"is_fraud":       fraud,
		})
	}

	s.logger.Info("transaction resolved", "transaction_id", txID, "is_fraud", fraud)

	rec.IsFraud = &fraud
	rec.ResolvedAt = &now
	return rec, nil
}

// Get returns the score record for a transaction.
func (s *Service) Get(ctx context.Context, txID string) (*ScoreRecord, error) {
	return s.store.GetByTransaction(ctx, txID)
}

// Recent returns the most recently scored transactions.
func (s *Service) Recent(ctx context.Context, limit int) ([]*ScoreRecord, error) {
	return s.store.ListRecent(ctx, limit)
}

// ModelInfo describes the loaded model.
func (s *Service) ModelInfo() map[string]interface{} {
	return map[string]interface{}{
		"model_version":    s.model.Version(),
		"feature_count":    len(s.schema),
		"features":         []string(s.schema),
		"block_threshold":  s.decider.BlockThreshold(),
		"review_threshold": s.decider.ReviewThreshold(),
	}
}
