package transaction

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"
)

// Expected columns in a historical transaction log. Extra columns are
// ignored; missing required columns fail the read.
var requiredColumns = []string{
	"transaction_id", "timestamp", "user_id", "merchant_id",
	"device_id", "ip_address", "amount", "country",
}

// ReadLog parses a CSV transaction log into events, preserving row order.
// Timestamps are RFC 3339 or "2006-01-02 15:04:05" (UTC assumed).
// The log is NOT re-sorted here; ordering is the replay driver's concern.
func ReadLog(r io.Reader) ([]Event, error) {
	cr := csv.NewReader(r)
	cr.TrimLeadingSpace = true

	header, err := cr.Read()
	if err != nil {
		return nil, fmt.Errorf("read header: %w", err)
	}

	col := make(map[string]int, len(header))
	for i, name := range header {
		col[strings.TrimSpace(strings.ToLower(name))] = i
	}
	for _, name := range requiredColumns {
		if _, ok := col[name]; !ok {
			return nil, fmt.Errorf("missing required column %q", name)
		}
	}

	var events []Event
	line := 1
	for {
		rec, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line+1, err)
		}
		line++

		ev, err := parseRecord(rec, col)
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		events = append(events, ev)
	}
	return events, nil
}

func parseRecord(rec []string, col map[string]int) (Event, error) {
	field := func(name string) string {
		i, ok := col[name]
		if !ok || i >= len(rec) {
			return ""
		}
		return strings.TrimSpace(rec[i])
	}

	amount, err := strconv.ParseFloat(field("amount"), 64)
	if err != nil {
		return Event{}, fmt.Errorf("invalid amount %q", field("amount"))
	}

	ts, err := parseTimestamp(field("timestamp"))
	if err != nil {
		return Event{}, err
	}

	ev := Event{
		TransactionID:        field("transaction_id"),
		UserID:               field("user_id"),
		MerchantID:           field("merchant_id"),
		DeviceID:             field("device_id"),
		IPAddress:            field("ip_address"),
		Amount:               amount,
		Country:              field("country"),
		MerchantCategoryCode: field("merchant_category_code"),
		Timestamp:            ts,
	}

	if raw := field("is_fraud"); raw != "" {
		fraud, err := parseLabel(raw)
		if err != nil {
			return Event{}, err
		}
		ev.IsFraud = &fraud
	}

	ev.Normalize(ts)
	if err := ev.Validate(); err != nil {
		return Event{}, err
	}
	return ev, nil
}

func parseTimestamp(raw string) (time.Time, error) {
	for _, layout := range []string{time.RFC3339Nano, time.RFC3339, "2006-01-02 15:04:05"} {
		if ts, err := time.Parse(layout, raw); err == nil {
			return ts.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("invalid timestamp %q", raw)
}

func parseLabel(raw string) (bool, error) {
	switch strings.ToLower(raw) {
	case "1", "true", "t", "yes":
		return true, nil
	case "0", "false", "f", "no":
		return false, nil
	}
	return false, fmt.Errorf("invalid is_fraud value %q", raw)
}
