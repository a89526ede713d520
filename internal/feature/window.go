package feature

import "time"

// Window granularities supported by the rolling aggregator.
const (
	Window1h  = 1 * time.Hour
	Window24h = 24 * time.Hour
	Window7d  = 168 * time.Hour
)

// maxWindow bounds retained history; entries older than this relative to the
// newest observation may be evicted.
const maxWindow = Window7d

// RecencySentinelMinutes is reported as minutes-since-last-transaction when
// an entity has no prior history.
const RecencySentinelMinutes = 999999

// WindowEntry is one observation in an entity's rolling window.
type WindowEntry struct {
	Timestamp time.Time `json:"ts"`
	Amount    float64   `json:"amount"`
	UserID    string    `json:"user_id,omitempty"`
	Country   string    `json:"country,omitempty"`
}

// WindowState holds an entity's rolling-window history: entries in ascending
// timestamp order, bounded by maxWindow. FirstSeen survives eviction so
// entity age remains exact.
type WindowState struct {
	Entries   []WindowEntry `json:"entries,omitempty"`
	FirstSeen time.Time     `json:"first_seen,omitempty"`
}

// WindowAggregate is the result of a windowed query.
type WindowAggregate struct {
	Count int
	Sum   float64
	Mean  float64 // 0 when Count == 0, never a division fault
}

// Observe appends an event to the window and lazily evicts entries older
// than the largest window relative to the new event's timestamp.
func (s *WindowState) Observe(e WindowEntry) {
	cutoff := e.Timestamp.Add(-maxWindow)
	i := 0
	for i < len(s.Entries) && s.Entries[i].Timestamp.Before(cutoff) {
		i++
	}
	if i > 0 {
		s.Entries = append(s.Entries[:0], s.Entries[i:]...)
	}
	s.Entries = append(s.Entries, e)
	if s.FirstSeen.IsZero() || e.Timestamp.Before(s.FirstSeen) {
		s.FirstSeen = e.Timestamp
	}
}

// Aggregate returns count/sum/mean over the half-open window
// [asOf-window, asOf). Entries exactly at asOf are excluded — that is the
// event currently being scored.
func (s *WindowState) Aggregate(asOf time.Time, window time.Duration) WindowAggregate {
	var agg WindowAggregate
	start := asOf.Add(-window)
	for _, e := range s.Entries {
		if inWindow(e.Timestamp, start, asOf) {
			agg.Count++
			agg.Sum += e.Amount
		}
	}
	if agg.Count > 0 {
		agg.Mean = agg.Sum / float64(agg.Count)
	}
	return agg
}

// UniqueUsers counts distinct user IDs observed in [asOf-window, asOf).
func (s *WindowState) UniqueUsers(asOf time.Time, window time.Duration) int {
	return s.unique(asOf, window, func(e WindowEntry) string { return e.UserID })
}

// UniqueCountries counts distinct countries observed in [asOf-window, asOf).
func (s *WindowState) UniqueCountries(asOf time.Time, window time.Duration) int {
	return s.unique(asOf, window, func(e WindowEntry) string { return e.Country })
}

func (s *WindowState) unique(asOf time.Time, window time.Duration, attr func(WindowEntry) string) int {
	start := asOf.Add(-window)
	seen := make(map[string]struct{})
	for _, e := range s.Entries {
		if !inWindow(e.Timestamp, start, asOf) {
			continue
		}
		if v := attr(e); v != "" {
			seen[v] = struct{}{}
		}
	}
	return len(seen)
}

// MinutesSinceLast returns minutes between asOf and the most recent entry
// strictly before asOf, or RecencySentinelMinutes with no prior entry.
func (s *WindowState) MinutesSinceLast(asOf time.Time) float64 {
	for i := len(s.Entries) - 1; i >= 0; i-- {
		if s.Entries[i].Timestamp.Before(asOf) {
			return asOf.Sub(s.Entries[i].Timestamp).Minutes()
		}
	}
	return RecencySentinelMinutes
}

// AgeDays returns days since the entity was first observed, 0 at cold start.
// The current event does not count: an entity first seen at asOf has age 0.
func (s *WindowState) AgeDays(asOf time.Time) float64 {
	if s.FirstSeen.IsZero() || !s.FirstSeen.Before(asOf) {
		return 0
	}
	return asOf.Sub(s.FirstSeen).Hours() / 24
}

// inWindow reports start <= ts < end.
func inWindow(ts, start, end time.Time) bool {
	return !ts.Before(start) && ts.Before(end)
}
