package scoring

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// PostgresStore persists score records in PostgreSQL.
type PostgresStore struct {
	db *sql.DB
}

// NewPostgresStore creates a PostgreSQL-backed score store.
func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

// Migrate creates the scores table if it doesn't exist.
func (s *PostgresStore) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS scores (
			id                 VARCHAR(36) PRIMARY KEY,
			transaction_id     VARCHAR(64) NOT NULL UNIQUE,
			user_id            VARCHAR(64) NOT NULL,
			merchant_id        VARCHAR(64) NOT NULL,
			device_id          VARCHAR(64) NOT NULL,
			ip_address         VARCHAR(45) NOT NULL,
			amount             NUMERIC(16,2) NOT NULL,
			fraud_score        NUMERIC(5,4) NOT NULL CHECK (fraud_score >= 0 AND fraud_score <= 1),
			decision           VARCHAR(10) NOT NULL CHECK (decision IN ('APPROVE', 'REVIEW', 'BLOCK')),
			risk_level         VARCHAR(10) NOT NULL CHECK (risk_level IN ('LOW', 'MEDIUM', 'HIGH')),
			reason             TEXT NOT NULL DEFAULT '',
			model_version      VARCHAR(64) NOT NULL,
			degraded           BOOLEAN NOT NULL DEFAULT FALSE,
			processing_time_ms NUMERIC(10,2) NOT NULL DEFAULT 0,
			scored_at          TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			is_fraud           BOOLEAN,
			resolved_at        TIMESTAMPTZ
		);

		CREATE INDEX IF NOT EXISTS idx_scores_scored_at
			ON scores (scored_at DESC);

		CREATE INDEX IF NOT EXISTS idx_scores_user
			ON scores (user_id, scored_at DESC);

		CREATE INDEX IF NOT EXISTS idx_scores_blocks
			ON scores (scored_at DESC) WHERE decision = 'BLOCK';
	`)
	return err
}

func (s *PostgresStore) Record(ctx context.Context, rec *ScoreRecord) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO scores (
			id, transaction_id, user_id, merchant_id, device_id, ip_address,
			amount, fraud_score, decision, risk_level, reason, model_version,
			degraded, processing_time_ms, scored_at, is_fraud
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16)
	`,
		rec.ID,
		rec.TransactionID,
		rec.UserID,
		rec.MerchantID,
		rec.DeviceID,
		rec.IPAddress,
		rec.Amount,
		rec.FraudScore,
		string(rec.Decision),
		string(rec.RiskLevel),
		rec.Reason,
		rec.ModelVersion,
		rec.Degraded,
		rec.ProcessingMs,
		rec.ScoredAt,
		nullBool(rec.IsFraud),
	)
	if err != nil {
		return fmt.Errorf("failed to record score: %w", err)
	}
	return nil
}

func (s *PostgresStore) GetByTransaction(ctx context.Context, txID string) (*ScoreRecord, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, transaction_id, user_id, merchant_id, device_id, ip_address,
		       amount, fraud_score, decision, risk_level, reason, model_version,
		       degraded, processing_time_ms, scored_at, is_fraud, resolved_at
		FROM scores
		WHERE transaction_id = $1
	`, txID)

	rec, err := scanRecord(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get score: %w", err)
	}
	return rec, nil
}

func (s *PostgresStore) ListRecent(ctx context.Context, limit int) ([]*ScoreRecord, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, transaction_id, user_id, merchant_id, device_id, ip_address,
		       amount, fraud_score, decision, risk_level, reason, model_version,
		       degraded, processing_time_ms, scored_at, is_fraud, resolved_at
		FROM scores
		ORDER BY scored_at DESC
		LIMIT $1
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list scores: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var result []*ScoreRecord
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			continue
		}
		result = append(result, rec)
	}
	return result, rows.Err()
}

func (s *PostgresStore) MarkResolved(ctx context.Context, txID string, fraud bool, at time.Time) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE scores
		SET is_fraud = $2, resolved_at = $3
		WHERE transaction_id = $1
	`, txID, fraud, at)
	if err != nil {
		return fmt.Errorf("failed to mark score resolved: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRecord(row rowScanner) (*ScoreRecord, error) {
	var rec ScoreRecord
	var isFraud sql.NullBool
	var resolvedAt sql.NullTime

	err := row.Scan(
		&rec.ID,
		&rec.TransactionID,
		&rec.UserID,
		&rec.MerchantID,
		&rec.DeviceID,
		&rec.IPAddress,
		&rec.Amount,
		&rec.FraudScore,
		&rec.Decision,
		&rec.RiskLevel,
		&rec.Reason,
		&rec.ModelVersion,
		&rec.Degraded,
		&rec.ProcessingMs,
		&rec.ScoredAt,
		&isFraud,
		&resolvedAt,
	)
	if err != nil {
		return nil, err
	}
	if isFraud.Valid {
		rec.IsFraud = &isFraud.Bool
	}
	if resolvedAt.Valid {
		rec.ResolvedAt = &resolvedAt.Time
	}
	return &rec, nil
}

func nullBool(b *bool) sql.NullBool {
	if b == nil {
		return sql.NullBool{}
	}
	return sql.NullBool{Bool: *b, Valid: true}
}
