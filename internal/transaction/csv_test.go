package transaction

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleLog = `transaction_id,timestamp,user_id,merchant_id,device_id,ip_address,amount,country,is_fraud
tx_1,2025-06-03T14:00:00Z,user_1,merch_1,dev_1,10.0.0.1,45.99,US,0
tx_2,2025-06-03 14:10:00,user_1,merch_2,dev_1,10.0.0.1,120.00,gb,1
tx_3,2025-06-03T14:20:00Z,user_2,merch_1,dev_2,10.0.0.2,9.50,US,
`

func TestReadLog(t *testing.T) {
	events, err := ReadLog(strings.NewReader(sampleLog))
	require.NoError(t, err)
	require.Len(t, events, 3)

	first := events[0]
	assert.Equal(t, "tx_1", first.TransactionID)
	assert.Equal(t, time.Date(2025, 6, 3, 14, 0, 0, 0, time.UTC), first.Timestamp)
	assert.Equal(t, 45.99, first.Amount)
	require.NotNil(t, first.IsFraud)
	assert.False(t, *first.IsFraud)

	// Space-separated timestamp layout, country uppercased by Normalize.
	second := events[1]
	assert.Equal(t, time.Date(2025, 6, 3, 14, 10, 0, 0, time.UTC), second.Timestamp)
	assert.Equal(t, "GB", second.Country)
	require.NotNil(t, second.IsFraud)
	assert.True(t, *second.IsFraud)

	// Empty label stays unknown.
	assert.Nil(t, events[2].IsFraud)
}

func TestReadLogExtraColumnsIgnored(t *testing.T) {
	log := `transaction_id,timestamp,user_id,merchant_id,device_id,ip_address,amount,country,channel
tx_1,2025-06-03T14:00:00Z,user_1,merch_1,dev_1,10.0.0.1,45.99,US,web
`
	events, err := ReadLog(strings.NewReader(log))
	require.NoError(t, err)
	assert.Len(t, events, 1)
}

func TestReadLogMissingColumn(t *testing.T) {
	log := `transaction_id,timestamp,user_id,merchant_id,device_id,amount,country
tx_1,2025-06-03T14:00:00Z,user_1,merch_1,dev_1,45.99,US
`
	_, err := ReadLog(strings.NewReader(log))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "ip_address")
}

func TestReadLogBadRows(t *testing.T) {
	cases := []struct {
		name string
		row  string
	}{
		{"bad amount", `tx_1,2025-06-03T14:00:00Z,user_1,merch_1,dev_1,10.0.0.1,abc,US,0`},
		{"bad timestamp", `tx_1,yesterday,user_1,merch_1,dev_1,10.0.0.1,45.99,US,0`},
		{"bad label", `tx_1,2025-06-03T14:00:00Z,user_1,merch_1,dev_1,10.0.0.1,45.99,US,maybe`},
		{"invalid event", `tx_1,2025-06-03T14:00:00Z,,merch_1,dev_1,10.0.0.1,45.99,US,0`},
	}
	header := "transaction_id,timestamp,user_id,merchant_id,device_id,ip_address,amount,country,is_fraud\n"
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := ReadLog(strings.NewReader(header + tc.row + "\n"))
			assert.Error(t, err)
		})
	}
}
