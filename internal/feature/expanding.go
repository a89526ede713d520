package feature

import "math"

// entropyEpsilon avoids log2(0) in the country entropy sum.
const entropyEpsilon = 1e-9

// ExpandingState holds an entity's all-history statistics. It grows
// monotonically and is never evicted. The strict discipline is
// query-before-observe: all reads for the event being scored happen before
// that event is observed, so statistics cover indices [0, i) only.
type ExpandingState struct {
	Count int64   `json:"count"`
	Sum   float64 `json:"sum"`
	SumSq float64 `json:"sum_sq"`

	// Amounts is the raw ordered history, needed for percentile rank.
	Amounts []float64 `json:"amounts,omitempty"`

	// Country frequency for entropy, plus the most recent country for the
	// change flag. Only populated for user keys.
	CountryCounts map[string]int64 `json:"country_counts,omitempty"`
	CountryTotal  int64            `json:"country_total,omitempty"`
	LastCountry   string           `json:"last_country,omitempty"`
}

// ObserveAmount appends a value to the history. Must be called only after
// every query for the current event has completed.
func (s *ExpandingState) ObserveAmount(v float64) {
	s.Count++
	s.Sum += v
	s.SumSq += v * v
	s.Amounts = append(s.Amounts, v)
}

// ObserveCountry records a country observation.
func (s *ExpandingState) ObserveCountry(c string) {
	if s.CountryCounts == nil {
		s.CountryCounts = make(map[string]int64)
	}
	s.CountryCounts[c]++
	s.CountryTotal++
	s.LastCountry = c
}

// Mean returns the historical mean, 0 with no history.
func (s *ExpandingState) Mean() float64 {
	if s.Count == 0 {
		return 0
	}
	return s.Sum / float64(s.Count)
}

// Std returns the sample standard deviation, 0 with fewer than two values.
func (s *ExpandingState) Std() float64 {
	n := float64(s.Count)
	if s.Count < 2 {
		return 0
	}
	variance := (s.SumSq - s.Sum*s.Sum/n) / (n - 1)
	if variance < 0 { // floating-point noise on near-constant histories
		variance = 0
	}
	return math.Sqrt(variance)
}

// Deviation returns the smoothed z-score of v against the history:
// (v - mean) / (std + 1). The +1 keeps near-zero variance from blowing up
// the ratio. Returns 0 with fewer than two prior values, matching the
// offline definition where the shifted expanding std is undefined.
func (s *ExpandingState) Deviation(v float64) float64 {
	if s.Count < 2 {
		return 0
	}
	return (v - s.Mean()) / (s.Std() + 1)
}

// PercentileRank returns the rank of v among prior values as a fraction in
// [0, 1]: values strictly below count fully, ties count half. With no prior
// history it returns 0.5 (no information either way).
func (s *ExpandingState) PercentileRank(v float64) float64 {
	n := len(s.Amounts)
	if n == 0 {
		return 0.5
	}
	var less, equal int
	for _, a := range s.Amounts {
		switch {
		case a < v:
			less++
		case a == v:
			equal++
		}
	}
	return (float64(less) + 0.5*float64(equal)) / float64(n)
}

// CountryEntropy returns the Shannon entropy (bits) of the empirical
// country distribution observed strictly before the current event.
// 0 with fewer than one prior observation.
func (s *ExpandingState) CountryEntropy() float64 {
	if s.CountryTotal == 0 {
		return 0
	}
	var entropy float64
	total := float64(s.CountryTotal)
	for _, count := range s.CountryCounts {
		p := float64(count) / total
		entropy -= p * math.Log2(p+entropyEpsilon)
	}
	return entropy
}

// CountryChanged reports whether c differs from the entity's previous
// country. A cold-start entity (no previous country) counts as changed,
// matching a shift-compare against a missing value.
func (s *ExpandingState) CountryChanged(c string) bool {
	return s.LastCountry != c
}
