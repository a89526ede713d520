package feature

import (
	"context"
	"database/sql"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"strconv"
)

// CSVSink writes feature rows as CSV: transaction_id, timestamp, the schema
// columns in order, then the label. The header goes out with the first row.
type CSVSink struct {
	w      *csv.Writer
	schema Schema
	wrote  bool
}

// NewCSVSink creates a CSV sink emitting the given schema's columns.
func NewCSVSink(w io.Writer, schema Schema) *CSVSink {
	return &CSVSink{w: csv.NewWriter(w), schema: schema}
}

func (s *CSVSink) WriteRow(_ context.Context, row FeatureRow) error {
	if !s.wrote {
		header := append([]string{"transaction_id", "timestamp"}, s.schema...)
		header = append(header, "is_fraud")
		if err := s.w.Write(header); err != nil {
			return err
		}
		s.wrote = true
	}

	rec := make([]string, 0, len(s.schema)+3)
	rec = append(rec, row.TransactionID, row.Timestamp.UTC().Format("2006-01-02T15:04:05.000Z07:00"))
	for _, v := range s.schema.Vector(row.Features) {
		rec = append(rec, strconv.FormatFloat(v, 'g', -1, 64))
	}
	label := ""
	if row.Label != nil {
		label = "0"
		if *row.Label {
			label = "1"
		}
	}
	rec = append(rec, label)
	return s.w.Write(rec)
}

// Flush drains buffered rows. Call once after replay finishes.
func (s *CSVSink) Flush() error {
	s.w.Flush()
	return s.w.Error()
}

// PostgresSink persists feature rows into the feature_rows table (see
// migrations/), the training-data artifact consumed by the offline trainer.
type PostgresSink struct {
	db *sql.DB
}

// NewPostgresSink creates a Postgres-backed row sink.
func NewPostgresSink(db *sql.DB) *PostgresSink {
	return &PostgresSink{db: db}
}

func (s *PostgresSink) WriteRow(ctx context.Context, row FeatureRow) error {
	featuresJSON, err := json.Marshal(row.Features)
	if err != nil {
		return fmt.Errorf("marshal features: %w", err)
	}

	var label sql.NullBool
	if row.Label != nil {
		label = sql.NullBool{Bool: *row.Label, Valid: true}
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO feature_rows (transaction_id, ts, features, is_fraud)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (transaction_id) DO UPDATE
		SET ts = EXCLUDED.ts, features = EXCLUDED.features, is_fraud = EXCLUDED.is_fraud
	`, row.TransactionID, row.Timestamp, featuresJSON, label)
	if err != nil {
		return fmt.Errorf("insert feature row: %w", err)
	}
	return nil
}

// MultiSink fans rows out to several sinks in order.
type MultiSink []RowSink

func (m MultiSink) WriteRow(ctx context.Context, row FeatureRow) error {
	for _, s := range m {
		if err := s.WriteRow(ctx, row); err != nil {
			return err
		}
	}
	return nil
}
