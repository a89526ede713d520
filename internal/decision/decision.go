// Package decision maps fraud probabilities to transaction outcomes.
package decision

import "fmt"

// Outcome is the action taken on a scored transaction.
type Outcome string

const (
	Approve Outcome = "APPROVE"
	Review  Outcome = "REVIEW"
	Block   Outcome = "BLOCK"
)

// RiskLevel is the coarse band reported alongside the outcome.
type RiskLevel string

const (
	Low    RiskLevel = "LOW"
	Medium RiskLevel = "MEDIUM"
	High   RiskLevel = "HIGH"
)

// reviewFraction places the review threshold relative to the block
// threshold. With the default block threshold of 0.95 the review band
// starts at 0.665.
const reviewFraction = 0.7

// DefaultBlockThreshold matches the calibration the bundled model ships with.
const DefaultBlockThreshold = 0.95

// Decision is the full result of applying thresholds to a score.
type Decision struct {
	Outcome   Outcome   `json:"decision"`
	RiskLevel RiskLevel `json:"risk_level"`
	Reason    string    `json:"reason"`
}

// Decider converts probabilities into decisions. The zero value is not
// usable; construct with NewDecider.
type Decider struct {
	blockThreshold  float64
	reviewThreshold float64
}

// NewDecider builds a decider around the given block threshold. Scores at or
// above the threshold block; scores at or above 70% of it go to review.
func NewDecider(blockThreshold float64) (*Decider, error) {
	if blockThreshold <= 0 || blockThreshold > 1 {
		return nil, fmt.Errorf("block threshold %v outside (0,1]", blockThreshold)
	}
	return &Decider{
		blockThreshold:  blockThreshold,
		reviewThreshold: blockThreshold * reviewFraction,
	}, nil
}

func (d *Decider) BlockThreshold() float64  { return d.blockThreshold }
func (d *Decider) ReviewThreshold() float64 { return d.reviewThreshold }

// Decide applies the thresholds. Boundaries are inclusive: a score exactly at
// the block threshold blocks, exactly at the review threshold reviews.
func (d *Decider) Decide(score float64) Decision {
	switch {
	case score >= d.blockThreshold:
		return Decision{
			Outcome:   Block,
			RiskLevel: High,
			Reason:    fmt.Sprintf("High fraud score (%.1f%%) - multiple suspicious signals", score*100),
		}
	case score >= d.reviewThreshold:
		return Decision{
			Outcome:   Review,
			RiskLevel: Medium,
			Reason:    fmt.Sprintf("Moderate fraud score (%.1f%%) - requires manual review", score*100),
		}
	default:
		return Decision{
			Outcome:   Approve,
			RiskLevel: Low,
			Reason:    fmt.Sprintf("Low fraud score (%.1f%%) - transaction approved", score*100),
		}
	}
}

// Fallback is the decision when scoring could not run at all, for example
// when the state store is unreachable. Transactions are never silently
// approved in that state.
func Fallback(reason string) Decision {
	if reason == "" {
		reason = "Scoring unavailable - routed to manual review"
	}
	return Decision{
		Outcome:   Review,
		RiskLevel: Medium,
		Reason:    reason,
	}
}
