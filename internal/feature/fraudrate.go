package feature

// FraudRateState holds the cumulative counters behind an entity's historical
// fraud rate. Both counters advance only through Store.AddFraudOutcome, and
// callers must never resolve a transaction before querying that same
// transaction's features — that shift is the leakage guard: the label
// attached to transaction i never reaches the feature computation for i.
type FraudRateState struct {
	FraudCount int64 `json:"fraud_count"`
	TxCount    int64 `json:"tx_count"`
}

// Rate returns fraudCount / (txCount + 1). The +1 both smooths the estimate
// and makes the cold-start case (0/1 = 0) fall out without a branch.
func (s *FraudRateState) Rate() float64 {
	return float64(s.FraudCount) / float64(s.TxCount+1)
}
