package feature

import (
	"context"
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/paylens/paylens/internal/transaction"
)

// tuesdayAfternoon is 2025-06-03 14:00 UTC, a Tuesday.
var tuesdayAfternoon = time.Date(2025, 6, 3, 14, 0, 0, 0, time.UTC)

func testEvent(id string, ts time.Time, amount float64) transaction.Event {
	return transaction.Event{
		TransactionID: id,
		UserID:        "user_1",
		MerchantID:    "merch_1",
		DeviceID:      "dev_1",
		IPAddress:     "10.0.0.1",
		Amount:        amount,
		Currency:      "USD",
		Country:       "US",
		Timestamp:     ts,
	}
}

func TestAssembleColdStart(t *testing.T) {
	a := NewAssembler(NewMemoryStore())
	ctx := context.Background()

	ev := testEvent("tx_1", tuesdayAfternoon, 45.99)
	feats, err := a.Assemble(ctx, &ev, ev.Timestamp)
	require.NoError(t, err)

	// Velocity: nothing seen before.
	assert.Equal(t, 0.0, feats["feat_tx_count_user_1h"])
	assert.Equal(t, 0.0, feats["feat_tx_count_user_24h"])
	assert.Equal(t, 0.0, feats["feat_amount_sum_user_24h"])
	assert.Equal(t, 0.0, feats["feat_amount_avg_user_24h"])
	assert.Equal(t, float64(RecencySentinelMinutes), feats["feat_time_since_last_tx_mins"])
	assert.Equal(t, 0.0, feats["feat_tx_count_merchant_1h"])

	// Device/IP reuse and age.
	assert.Equal(t, 0.0, feats["feat_unique_users_per_device_24h"])
	assert.Equal(t, 0.0, feats["feat_device_age_days"])
	assert.Equal(t, 0.0, feats["feat_ip_age_days"])

	// Geolocation and history.
	assert.Equal(t, 1.0, feats["feat_country_change"], "cold start counts as a country change")
	assert.Equal(t, 0.0, feats["feat_user_country_entropy"])
	assert.Equal(t, 0.0, feats["feat_user_fraud_rate_historical"])
	assert.Equal(t, 0.0, feats["feat_amount_vs_user_avg"])
	assert.Equal(t, 0.5, feats["feat_amount_percentile_user"])

	// Temporal: Tuesday 14:00 UTC.
	assert.Equal(t, 14.0, feats["feat_hour"])
	assert.Equal(t, 1.0, feats["feat_day_of_week"])
	assert.Equal(t, 0.0, feats["feat_is_weekend"])
	assert.Equal(t, 0.0, feats["feat_is_night"])

	// Amount flags: 45.99 is neither small nor large, US is not high risk.
	assert.Equal(t, 0.0, feats["feat_is_small_amount"])
	assert.Equal(t, 0.0, feats["feat_is_large_amount"])
	assert.Equal(t, 0.0, feats["feat_is_high_risk_country"])
}

func TestAssembleAfterCommit(t *testing.T) {
	a := NewAssembler(NewMemoryStore())
	ctx := context.Background()

	first := testEvent("tx_1", tuesdayAfternoon, 45.99)
	require.NoError(t, a.Commit(ctx, &first))

	second := testEvent("tx_2", tuesdayAfternoon.Add(10*time.Minute), 50)
	feats, err := a.Assemble(ctx, &second, second.Timestamp)
	require.NoError(t, err)

	assert.Equal(t, 1.0, feats["feat_tx_count_user_1h"])
	assert.Equal(t, 1.0, feats["feat_tx_count_user_24h"])
	assert.Equal(t, 45.99, feats["feat_amount_sum_user_24h"])
	assert.Equal(t, 45.99, feats["feat_amount_avg_user_24h"])
	assert.InDelta(t, 10.0, feats["feat_time_since_last_tx_mins"], 1e-9)
	assert.Equal(t, 1.0, feats["feat_tx_count_merchant_1h"])
	assert.Equal(t, 1.0, feats["feat_unique_users_per_device_24h"])
	assert.Equal(t, 0.0, feats["feat_country_change"], "same country as history")
	assert.Equal(t, 0.0, feats["feat_amount_vs_user_avg"], "deviation needs two priors")
	assert.Equal(t, 1.0, feats["feat_amount_percentile_user"], "50 exceeds the single prior 45.99")
}

func TestAssembleExcludesOwnTimestamp(t *testing.T) {
	// Two transactions at the identical timestamp: the second, queried as of
	// that same instant, must not see the first in any window.
	a := NewAssembler(NewMemoryStore())
	ctx := context.Background()

	first := testEvent("tx_1", tuesdayAfternoon, 45.99)
	require.NoError(t, a.Commit(ctx, &first))

	second := testEvent("tx_2", tuesdayAfternoon, 50)
	feats, err := a.Assemble(ctx, &second, second.Timestamp)
	require.NoError(t, err)

	assert.Equal(t, 0.0, feats["feat_tx_count_user_1h"])
	assert.Equal(t, float64(RecencySentinelMinutes), feats["feat_time_since_last_tx_mins"])
}

func TestAssembleFraudRateAfterResolve(t *testing.T) {
	a := NewAssembler(NewMemoryStore())
	ctx := context.Background()

	first := testEvent("tx_1", tuesdayAfternoon, 45.99)
	require.NoError(t, a.Commit(ctx, &first))
	require.NoError(t, a.Resolve(ctx, &first, true))

	second := testEvent("tx_2", tuesdayAfternoon.Add(time.Hour), 50)
	feats, err := a.Assemble(ctx, &second, second.Timestamp)
	require.NoError(t, err)

	// 1 fraud over 1 resolved tx: 1/(1+1).
	assert.Equal(t, 0.5, feats["feat_user_fraud_rate_historical"])
	assert.Equal(t, 0.5, feats["feat_merchant_fraud_rate_historical"])
	assert.Equal(t, 0.5, feats["feat_device_fraud_rate_historical"])
}

func TestLocalFeaturesTemporalEncodings(t *testing.T) {
	// Saturday 03:00 UTC: weekend and night.
	saturdayNight := time.Date(2025, 6, 7, 3, 0, 0, 0, time.UTC)
	ev := testEvent("tx_1", saturdayNight, 5)
	ev.Country = "NG"

	feats := LocalFeatures(&ev, saturdayNight)
	assert.Equal(t, 3.0, feats["feat_hour"])
	assert.Equal(t, 5.0, feats["feat_day_of_week"], "Monday=0 convention puts Saturday at 5")
	assert.Equal(t, 1.0, feats["feat_is_weekend"])
	assert.Equal(t, 1.0, feats["feat_is_night"])
	assert.Equal(t, 1.0, feats["feat_is_small_amount"])
	assert.Equal(t, 1.0, feats["feat_is_high_risk_country"])

	assert.InDelta(t, math.Sin(2*math.Pi*3/24), feats["feat_hour_sin"], 1e-12)
	assert.InDelta(t, math.Cos(2*math.Pi*3/24), feats["feat_hour_cos"], 1e-12)
	assert.InDelta(t, math.Sin(2*math.Pi*5/7), feats["feat_day_sin"], 1e-12)
	assert.InDelta(t, math.Cos(2*math.Pi*5/7), feats["feat_day_cos"], 1e-12)
}

func TestAssembleCoversDefaultSchema(t *testing.T) {
	a := NewAssembler(NewMemoryStore())
	ev := testEvent("tx_1", tuesdayAfternoon, 45.99)

	feats, err := a.Assemble(context.Background(), &ev, ev.Timestamp)
	require.NoError(t, err)

	for _, name := range DefaultSchema() {
		_, ok := feats[name]
		assert.True(t, ok, "feature %s missing from assembled map", name)
	}
	assert.Len(t, feats, len(DefaultSchema()))
}
