package feature

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

var base = time.Date(2025, 6, 3, 14, 0, 0, 0, time.UTC)

func entry(offset time.Duration, amount float64) WindowEntry {
	return WindowEntry{Timestamp: base.Add(offset), Amount: amount}
}

func TestWindowAggregateHalfOpen(t *testing.T) {
	var st WindowState
	st.Observe(entry(-Window1h, 10))        // exactly one window ago: included
	st.Observe(entry(-30*time.Minute, 20))  // inside
	st.Observe(entry(0, 40))                // exactly at asOf: excluded

	agg := st.Aggregate(base, Window1h)
	assert.Equal(t, 2, agg.Count)
	assert.Equal(t, 30.0, agg.Sum)
	assert.Equal(t, 15.0, agg.Mean)
}

func TestWindowAggregateEmpty(t *testing.T) {
	var st WindowState
	agg := st.Aggregate(base, Window24h)
	assert.Equal(t, 0, agg.Count)
	assert.Equal(t, 0.0, agg.Sum)
	assert.Equal(t, 0.0, agg.Mean, "mean must be 0 with no entries, never NaN")
}

func TestWindowEvictionKeepsFirstSeen(t *testing.T) {
	var st WindowState
	st.Observe(entry(-10*24*time.Hour, 5)) // older than 7d relative to next observe
	st.Observe(entry(0, 50))

	assert.Len(t, st.Entries, 1, "entry beyond the largest window should be evicted")
	assert.Equal(t, base.Add(-10*24*time.Hour), st.FirstSeen, "FirstSeen must survive eviction")
	assert.InDelta(t, 10.0, st.AgeDays(base), 1e-9)
}

func TestWindowUniqueUsers(t *testing.T) {
	var st WindowState
	st.Observe(WindowEntry{Timestamp: base.Add(-time.Hour), UserID: "u1"})
	st.Observe(WindowEntry{Timestamp: base.Add(-30 * time.Minute), UserID: "u2"})
	st.Observe(WindowEntry{Timestamp: base.Add(-10 * time.Minute), UserID: "u1"})
	st.Observe(WindowEntry{Timestamp: base.Add(-5 * time.Minute)}) // no user: ignored

	assert.Equal(t, 2, st.UniqueUsers(base, Window24h))
}

func TestWindowUniqueCountries(t *testing.T) {
	var st WindowState
	st.Observe(WindowEntry{Timestamp: base.Add(-6 * 24 * time.Hour), Country: "US"})
	st.Observe(WindowEntry{Timestamp: base.Add(-time.Hour), Country: "GB"})
	st.Observe(WindowEntry{Timestamp: base.Add(-time.Minute), Country: "US"})

	assert.Equal(t, 2, st.UniqueCountries(base, Window7d))
	assert.Equal(t, 2, st.UniqueCountries(base, Window24h))
}

func TestMinutesSinceLast(t *testing.T) {
	var st WindowState
	assert.Equal(t, float64(RecencySentinelMinutes), st.MinutesSinceLast(base))

	st.Observe(entry(-10*time.Minute, 1))
	st.Observe(entry(0, 1)) // at asOf: not "prior"
	assert.InDelta(t, 10.0, st.MinutesSinceLast(base), 1e-9)
}

func TestAgeDaysColdStart(t *testing.T) {
	var st WindowState
	assert.Equal(t, 0.0, st.AgeDays(base))

	st.Observe(entry(0, 1))
	assert.Equal(t, 0.0, st.AgeDays(base), "entity first seen at asOf has age 0")

	assert.InDelta(t, 1.0, st.AgeDays(base.Add(24*time.Hour)), 1e-9)
}
