// Package transaction defines the payment transaction event that feeds the
// scoring pipeline, plus parsing and validation for the two ingest paths
// (HTTP scoring requests and historical CSV logs).
package transaction

import (
	"fmt"
	"strings"
	"time"
)

// Event is a single payment transaction. Immutable once created; the fraud
// label is the only field that may be absent (pending resolution).
type Event struct {
	TransactionID        string    `json:"transaction_id"`
	UserID               string    `json:"user_id"`
	MerchantID           string    `json:"merchant_id"`
	DeviceID             string    `json:"device_id"`
	IPAddress            string    `json:"ip_address"`
	Amount               float64   `json:"amount"`
	Currency             string    `json:"currency,omitempty"`
	Country              string    `json:"country"`
	MerchantCategoryCode string    `json:"merchant_category_code,omitempty"`
	Timestamp            time.Time `json:"timestamp"`

	// IsFraud is the resolved fraud label. Nil while the outcome is unknown
	// (live traffic before chargeback/confirmation). Historical logs used for
	// replay carry it for every row.
	IsFraud *bool `json:"is_fraud,omitempty"`
}

// Normalize fills defaults and canonicalizes fields: uppercase country,
// trimmed IDs, current time when the timestamp is absent.
func (e *Event) Normalize(now time.Time) {
	e.TransactionID = strings.TrimSpace(e.TransactionID)
	e.UserID = strings.TrimSpace(e.UserID)
	e.MerchantID = strings.TrimSpace(e.MerchantID)
	e.DeviceID = strings.TrimSpace(e.DeviceID)
	e.IPAddress = strings.TrimSpace(e.IPAddress)
	e.Country = strings.ToUpper(strings.TrimSpace(e.Country))
	if e.Currency == "" {
		e.Currency = "USD"
	}
	if e.Timestamp.IsZero() {
		e.Timestamp = now
	}
}

// Validate checks the event against the input schema. Returns the first
// violation found.
func (e *Event) Validate() error {
	switch {
	case e.TransactionID == "":
		return fmt.Errorf("transaction_id is required")
	case e.UserID == "":
		return fmt.Errorf("user_id is required")
	case e.MerchantID == "":
		return fmt.Errorf("merchant_id is required")
	case e.DeviceID == "":
		return fmt.Errorf("device_id is required")
	case e.IPAddress == "":
		return fmt.Errorf("ip_address is required")
	case e.Amount <= 0:
		return fmt.Errorf("amount must be positive, got %v", e.Amount)
	case len(e.Country) != 2:
		return fmt.Errorf("country must be a 2-letter ISO code, got %q", e.Country)
	}
	for _, r := range e.Country {
		if r < 'A' || r > 'Z' {
			return fmt.Errorf("country must be a 2-letter ISO code, got %q", e.Country)
		}
	}
	return nil
}

// Labeled reports whether the fraud outcome is known, and what it is.
func (e *Event) Labeled() (fraud, known bool) {
	if e.IsFraud == nil {
		return false, false
	}
	return *e.IsFraud, true
}
