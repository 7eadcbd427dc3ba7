// Package sequence produces gapless, collision-free document numbers from
// named counters. Counters are only ever advanced inside one persistence
// transaction; numbers are never reused, even when the owning document is
// later deleted.
package sequence

// Well-known counter keys.
const (
	CounterOrders           = "orders"
	CounterPurchaseRequests = "purchase_requests"
)

// Number prefixes used when formatting counter values.
const (
	PrefixOrder           = "ORD"
	PrefixPurchaseRequest = "PR"
)
