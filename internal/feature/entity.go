// Package feature implements the point-in-time feature computation engine:
// per-entity rolling-window aggregates, expanding (all-history) statistics,
// leakage-safe fraud-rate tracking, and the assembler that composes them
// into the model's feature vector.
//
// The same tracker logic serves two drivers: ReplayDriver walks a sorted
// historical log to build training features, OnlineComputer handles one live
// event at a time. Both follow a strict query-then-observe ordering so a
// feature never sees its own transaction or anything after it.
package feature

import "github.com/paylens/paylens/internal/transaction"

// EntityType partitions aggregate state. No state is shared across types.
type EntityType string

const (
	EntityUser     EntityType = "user"
	EntityDevice   EntityType = "device"
	EntityMerchant EntityType = "merchant"
	EntityIP       EntityType = "ip"
)

// EntityKey identifies one entity's aggregate state in the store.
type EntityKey struct {
	Type EntityType
	ID   string
}

func (k EntityKey) String() string {
	return string(k.Type) + ":" + k.ID
}

// UserKey returns the state key for a user.
func UserKey(id string) EntityKey { return EntityKey{Type: EntityUser, ID: id} }

// DeviceKey returns the state key for a device.
func DeviceKey(id string) EntityKey { return EntityKey{Type: EntityDevice, ID: id} }

// MerchantKey returns the state key for a merchant.
func MerchantKey(id string) EntityKey { return EntityKey{Type: EntityMerchant, ID: id} }

// IPKey returns the state key for an IP address.
func IPKey(id string) EntityKey { return EntityKey{Type: EntityIP, ID: id} }

// Keys returns the four entity keys touched by an event, in a fixed order.
func Keys(ev *transaction.Event) [4]EntityKey {
	return [4]EntityKey{
		UserKey(ev.UserID),
		DeviceKey(ev.DeviceID),
		MerchantKey(ev.MerchantID),
		IPKey(ev.IPAddress),
	}
}
