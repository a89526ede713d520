package scoring

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/paylens/paylens/internal/decision"
	"github.com/paylens/paylens/internal/idgen"
	"github.com/paylens/paylens/internal/testutil"
)

func pgRecord(txID string) *ScoreRecord {
	return &ScoreRecord{
		ID:            idgen.WithPrefix("score_"),
		TransactionID: txID,
		UserID:        "u_pg",
		MerchantID:    "m_pg",
		DeviceID:      "d_pg",
		IPAddress:     "10.0.0.9",
		Amount:        120.50,
		FraudScore:    0.7321,
		Decision:      decision.Review,
		RiskLevel:     decision.Medium,
		Reason:        "Moderate fraud score (73.2%) - requires manual review",
		ModelVersion:  "test",
		ProcessingMs:  3.21,
		ScoredAt:      time.Now().UTC().Truncate(time.Millisecond),
	}
}

func TestPostgresStore_RecordAndGet(t *testing.T) {
	db, cleanup := testutil.PGTest(t)
	defer cleanup()

	store := NewPostgresStore(db)
	ctx := context.Background()

	rec := pgRecord("tx_pg_1")
	require.NoError(t, store.Record(ctx, rec))

	got, err := store.GetByTransaction(ctx, "tx_pg_1")
	require.NoError(t, err)
	assert.Equal(t, rec.ID, got.ID)
	assert.Equal(t, rec.UserID, got.UserID)
	assert.InDelta(t, rec.FraudScore, got.FraudScore, 1e-9)
	assert.Equal(t, decision.Review, got.Decision)
	assert.Equal(t, decision.Medium, got.RiskLevel)
	assert.Nil(t, got.IsFraud)
	assert.Nil(t, got.ResolvedAt)
}

func TestPostgresStore_GetNotFound(t *testing.T) {
	db, cleanup := testutil.PGTest(t)
	defer cleanup()

	store := NewPostgresStore(db)
	_, err := store.GetByTransaction(context.Background(), "tx_pg_missing")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestPostgresStore_ListRecent(t *testing.T) {
	db, cleanup := testutil.PGTest(t)
	defer cleanup()

	store := NewPostgresStore(db)
	ctx := context.Background()

	base := time.Now().UTC().Add(-time.Hour)
	for i, txID := range []string{"tx_pg_a", "tx_pg_b", "tx_pg_c"} {
		rec := pgRecord(txID)
		rec.ScoredAt = base.Add(time.Duration(i) * time.Minute)
		require.NoError(t, store.Record(ctx, rec))
	}

	recs, err := store.ListRecent(ctx, 2)
	require.NoError(t, err)
	require.Len(t, recs, 2)
	assert.Equal(t, "tx_pg_c", recs[0].TransactionID)
	assert.Equal(t, "tx_pg_b", recs[1].TransactionID)
}

func TestPostgresStore_MarkResolved(t *testing.T) {
	db, cleanup := testutil.PGTest(t)
	defer cleanup()

	store := NewPostgresStore(db)
	ctx := context.Background()

	require.NoError(t, store.Record(ctx, pgRecord("tx_pg_r")))

	at := time.Now().UTC().Truncate(time.Millisecond)
	require.NoError(t, store.MarkResolved(ctx, "tx_pg_r", true, at))

	got, err := store.GetByTransaction(ctx, "tx_pg_r")
	require.NoError(t, err)
	require.NotNil(t, got.IsFraud)
	assert.True(t, *got.IsFraud)
	require.NotNil(t, got.ResolvedAt)

	assert.ErrorIs(t, store.MarkResolved(ctx, "tx_pg_missing", false, at), ErrNotFound)
}
