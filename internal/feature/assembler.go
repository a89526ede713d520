package feature

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/paylens/paylens/internal/transaction"
)

// Amount flag thresholds (USD).
const (
	smallAmountThreshold = 10
	largeAmountThreshold = 500
)

// highRiskCountries is the static membership set behind
// feat_is_high_risk_country.
var highRiskCountries = map[string]struct{}{
	"NG": {}, "PK": {}, "BD": {}, "VN": {}, "ID": {},
}

// Assembler composes tracker state into the named feature map, and commits
// scored events back into the trackers. It is stateless: all per-entity
// state lives behind the Store, so one assembler serves both batch replay
// and online scoring.
type Assembler struct {
	store Store
}

// NewAssembler creates an assembler over the given state store.
func NewAssembler(store Store) *Assembler {
	return &Assembler{store: store}
}

// Assemble computes every feature for ev as of asOf, reading only state
// observed strictly before asOf. It never mutates state: callers commit the
// event separately, after the scoring decision, via Commit and Resolve.
func (a *Assembler) Assemble(ctx context.Context, ev *transaction.Event, asOf time.Time) (map[string]float64, error) {
	userWin, err := a.store.GetWindow(ctx, UserKey(ev.UserID))
	if err != nil {
		return nil, fmt.Errorf("user window: %w", err)
	}
	deviceWin, err := a.store.GetWindow(ctx, DeviceKey(ev.DeviceID))
	if err != nil {
		return nil, fmt.Errorf("device window: %w", err)
	}
	merchantWin, err := a.store.GetWindow(ctx, MerchantKey(ev.MerchantID))
	if err != nil {
		return nil, fmt.Errorf("merchant window: %w", err)
	}
	ipWin, err := a.store.GetWindow(ctx, IPKey(ev.IPAddress))
	if err != nil {
		return nil, fmt.Errorf("ip window: %w", err)
	}
	userExp, err := a.store.GetExpanding(ctx, UserKey(ev.UserID))
	if err != nil {
		return nil, fmt.Errorf("user expanding: %w", err)
	}
	merchantExp, err := a.store.GetExpanding(ctx, MerchantKey(ev.MerchantID))
	if err != nil {
		return nil, fmt.Errorf("merchant expanding: %w", err)
	}
	userRate, err := a.store.GetFraudRate(ctx, UserKey(ev.UserID))
	if err != nil {
		return nil, fmt.Errorf("user fraud rate: %w", err)
	}
	merchantRate, err := a.store.GetFraudRate(ctx, MerchantKey(ev.MerchantID))
	if err != nil {
		return nil, fmt.Errorf("merchant fraud rate: %w", err)
	}
	deviceRate, err := a.store.GetFraudRate(ctx, DeviceKey(ev.DeviceID))
	if err != nil {
		return nil, fmt.Errorf("device fraud rate: %w", err)
	}

	feats := LocalFeatures(ev, asOf)

	// Velocity
	user1h := userWin.Aggregate(asOf, Window1h)
	user24h := userWin.Aggregate(asOf, Window24h)
	feats["feat_tx_count_user_1h"] = float64(user1h.Count)
	feats["feat_tx_count_user_24h"] = float64(user24h.Count)
	feats["feat_amount_sum_user_24h"] = user24h.Sum
	feats["feat_amount_avg_user_24h"] = user24h.Mean
	feats["feat_time_since_last_tx_mins"] = userWin.MinutesSinceLast(asOf)
	feats["feat_tx_count_merchant_1h"] = float64(merchantWin.Aggregate(asOf, Window1h).Count)

	// Device & IP reuse
	feats["feat_unique_users_per_device_24h"] = float64(deviceWin.UniqueUsers(asOf, Window24h))
	feats["feat_unique_countries_per_device_7d"] = float64(deviceWin.UniqueCountries(asOf, Window7d))
	feats["feat_unique_users_per_ip_24h"] = float64(ipWin.UniqueUsers(asOf, Window24h))
	feats["feat_device_age_days"] = deviceWin.AgeDays(asOf)
	feats["feat_ip_age_days"] = ipWin.AgeDays(asOf)

	// Geolocation
	feats["feat_country_change"] = boolFeature(userExp.CountryChanged(ev.Country))
	feats["feat_unique_countries_user_7d"] = float64(userWin.UniqueCountries(asOf, Window7d))
	feats["feat_user_country_entropy"] = userExp.CountryEntropy()

	// Historical fraud rates
	feats["feat_user_fraud_rate_historical"] = userRate.Rate()
	feats["feat_merchant_fraud_rate_historical"] = merchantRate.Rate()
	feats["feat_device_fraud_rate_historical"] = deviceRate.Rate()

	// Amount deviation
	feats["feat_amount_vs_user_avg"] = userExp.Deviation(ev.Amount)
	feats["feat_amount_vs_merchant_avg"] = merchantExp.Deviation(ev.Amount)
	feats["feat_amount_percentile_user"] = userExp.PercentileRank(ev.Amount)

	return feats, nil
}

// LocalFeatures computes the features with no state dependency: temporal
// encodings and static amount/country flags. Exposed separately so the
// degraded path (store outage) can still produce them.
func LocalFeatures(ev *transaction.Event, asOf time.Time) map[string]float64 {
	t := asOf.UTC()
	hour := float64(t.Hour())
	// Monday=0 .. Sunday=6, the convention the model was trained with.
	dow := float64((int(t.Weekday()) + 6) % 7)

	feats := map[string]float64{
		"feat_hour":        hour,
		"feat_day_of_week": dow,
		"feat_is_weekend":  boolFeature(dow >= 5),
		"feat_is_night":    boolFeature(hour < 6),
		"feat_hour_sin":    math.Sin(2 * math.Pi * hour / 24),
		"feat_hour_cos":    math.Cos(2 * math.Pi * hour / 24),
		"feat_day_sin":     math.Sin(2 * math.Pi * dow / 7),
		"feat_day_cos":     math.Cos(2 * math.Pi * dow / 7),

		"feat_is_small_amount": boolFeature(ev.Amount < smallAmountThreshold),
		"feat_is_large_amount": boolFeature(ev.Amount > largeAmountThreshold),
	}

	_, highRisk := highRiskCountries[ev.Country]
	feats["feat_is_high_risk_country"] = boolFeature(highRisk)
	return feats
}

// Commit observes ev into all window and expanding trackers. Must be called
// only after Assemble for the same event has returned — the append-after-read
// ordering is the leakage guard.
func (a *Assembler) Commit(ctx context.Context, ev *transaction.Event) error {
	windowUpdates := []struct {
		key   EntityKey
		entry WindowEntry
	}{
		{UserKey(ev.UserID), WindowEntry{Timestamp: ev.Timestamp, Amount: ev.Amount, Country: ev.Country}},
		{DeviceKey(ev.DeviceID), WindowEntry{Timestamp: ev.Timestamp, Amount: ev.Amount, UserID: ev.UserID, Country: ev.Country}},
		{MerchantKey(ev.MerchantID), WindowEntry{Timestamp: ev.Timestamp, Amount: ev.Amount, UserID: ev.UserID}},
		{IPKey(ev.IPAddress), WindowEntry{Timestamp: ev.Timestamp, Amount: ev.Amount, UserID: ev.UserID}},
	}
	for _, u := range windowUpdates {
		st, err := a.store.GetWindow(ctx, u.key)
		if err != nil {
			return fmt.Errorf("commit window %s: %w", u.key, err)
		}
		st.Observe(u.entry)
		if err := a.store.PutWindow(ctx, u.key, st); err != nil {
			return fmt.Errorf("commit window %s: %w", u.key, err)
		}
	}

	userExp, err := a.store.GetExpanding(ctx, UserKey(ev.UserID))
	if err != nil {
		return fmt.Errorf("commit user expanding: %w", err)
	}
	userExp.ObserveAmount(ev.Amount)
	userExp.ObserveCountry(ev.Country)
	if err := a.store.PutExpanding(ctx, UserKey(ev.UserID), userExp); err != nil {
		return fmt.Errorf("commit user expanding: %w", err)
	}

	merchantExp, err := a.store.GetExpanding(ctx, MerchantKey(ev.MerchantID))
	if err != nil {
		return fmt.Errorf("commit merchant expanding: %w", err)
	}
	merchantExp.ObserveAmount(ev.Amount)
	if err := a.store.PutExpanding(ctx, MerchantKey(ev.MerchantID), merchantExp); err != nil {
		return fmt.Errorf("commit merchant expanding: %w", err)
	}

	return nil
}

// Resolve commits a transaction's fraud outcome into the cumulative rate
// counters for its user, merchant, and device. Callers must never resolve a
// transaction before querying that transaction's own features.
func (a *Assembler) Resolve(ctx context.Context, ev *transaction.Event, fraud bool) error {
	for _, key := range []EntityKey{UserKey(ev.UserID), MerchantKey(ev.MerchantID), DeviceKey(ev.DeviceID)} {
		if err := a.store.AddFraudOutcome(ctx, key, fraud); err != nil {
			return fmt.Errorf("resolve %s: %w", key, err)
		}
	}
	return nil
}

func boolFeature(b bool) float64 {
	if b {
		return 1
	}
	return 0
}
