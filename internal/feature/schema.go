package feature

import (
	"errors"
	"fmt"
)

// ErrSchemaMismatch signals a fatal configuration problem: the model's
// feature schema cannot be satisfied. Startup must abort; this is never a
// runtime-recoverable condition.
var ErrSchemaMismatch = errors.New("feature schema mismatch")

// Schema is the externally supplied, ordered list of feature names the model
// consumes. The assembler populates exactly these, in this order: computed
// features missing from the schema are dropped, schema names missing from
// the computed set default to 0.
type Schema []string

// Validate rejects empty schemas and duplicate names.
func (s Schema) Validate() error {
	if len(s) == 0 {
		return fmt.Errorf("%w: empty schema", ErrSchemaMismatch)
	}
	seen := make(map[string]struct{}, len(s))
	for _, name := range s {
		if name == "" {
			return fmt.Errorf("%w: empty feature name", ErrSchemaMismatch)
		}
		if _, dup := seen[name]; dup {
			return fmt.Errorf("%w: duplicate feature %q", ErrSchemaMismatch, name)
		}
		seen[name] = struct{}{}
	}
	return nil
}

// Vector orders the computed features into the schema's layout. The result
// is always a complete numeric vector: absent features are 0.0, never NaN
// or a missing slot.
func (s Schema) Vector(features map[string]float64) []float64 {
	vec := make([]float64, len(s))
	for i, name := range s {
		vec[i] = features[name] // zero value for absent names
	}
	return vec
}

// DefaultSchema lists every feature the assembler computes, in the order the
// training pipeline emits them. Used by batch replay when no model schema is
// supplied.
func DefaultSchema() Schema {
	return Schema{
		"feat_tx_count_user_1h",
		"feat_tx_count_user_24h",
		"feat_amount_sum_user_24h",
		"feat_amount_avg_user_24h",
		"feat_time_since_last_tx_mins",
		"feat_tx_count_merchant_1h",
		"feat_unique_users_per_device_24h",
		"feat_unique_countries_per_device_7d",
		"feat_unique_users_per_ip_24h",
		"feat_device_age_days",
		"feat_ip_age_days",
		"feat_country_change",
		"feat_unique_countries_user_7d",
		"feat_is_high_risk_country",
		"feat_user_country_entropy",
		"feat_user_fraud_rate_historical",
		"feat_merchant_fraud_rate_historical",
		"feat_device_fraud_rate_historical",
		"feat_amount_vs_user_avg",
		"feat_amount_vs_merchant_avg",
		"feat_is_small_amount",
		"feat_is_large_amount",
		"feat_amount_percentile_user",
		"feat_hour",
		"feat_day_of_week",
		"feat_is_weekend",
		"feat_is_night",
		"feat_hour_sin",
		"feat_hour_cos",
		"feat_day_sin",
		"feat_day_cos",
	}
}
