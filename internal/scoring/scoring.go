// Package scoring orchestrates real-time fraud scoring for payment
// transactions.
//
// Every transaction is turned into a point-in-time feature vector, scored by
// the loaded model, and mapped to an APPROVE/REVIEW/BLOCK decision. Scores
// are persisted for audit and for later fraud-label resolution, which feeds
// entity fraud rates back into the feature state.
package scoring

import (
	"context"
	"errors"
	"time"

	"github.com/paylens/paylens/internal/decision"
)

// ErrNotFound is returned when a transaction has no recorded score.
var ErrNotFound = errors.New("score not found")

// ScoreRecord is the audit record of one scored transaction. Entity IDs are
// kept so a later fraud resolution can update the right feature state.
type ScoreRecord struct {
	ID            string             `json:"id"`
	TransactionID string             `json:"transaction_id"`
	UserID        string             `json:"user_id"`
	MerchantID    string             `json:"merchant_id"`
	DeviceID      string             `json:"device_id"`
	IPAddress     string             `json:"ip_address"`
	Amount        float64            `json:"amount"`
	FraudScore    float64            `json:"fraud_score"`
	Decision      decision.Outcome   `json:"decision"`
	RiskLevel     decision.RiskLevel `json:"risk_level"`
	Reason        string             `json:"reason"`
	ModelVersion  string             `json:"model_version"`
	Degraded      bool               `json:"degraded,omitempty"`
	ProcessingMs  float64            `json:"processing_time_ms"`
	ScoredAt      time.Time          `json:"scored_at"`
	IsFraud       *bool              `json:"is_fraud,omitempty"`
	ResolvedAt    *time.Time         `json:"resolved_at,omitempty"`
}

// Store persists score records for audit and resolution.
type Store interface {
	Record(ctx context.Context, rec *ScoreRecord) error
	GetByTransaction(ctx context.Context, txID string) (*ScoreRecord, error)
	ListRecent(ctx context.Context, limit int) ([]*ScoreRecord, error)
	MarkResolved(ctx context.Context, txID string, fraud bool, at time.Time) error
}
