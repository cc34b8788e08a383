package domain

import "time"

// Priority tier of an order, derived from its tags.
type Priority string

const (
	PriorityWedding   Priority = "wedding"
	PriorityCorporate Priority = "corporate"
	PriorityStandard  Priority = "standard"
)

// Represents a single catering order to be assigned to a driver.
// PickupTime and TeardownTime bound the service window; a driver
// cannot serve two orders whose windows overlap.
type Order struct {
	OrderID      string
	Region       string
	PickupTime   time.Time
	TeardownTime time.Time
	PaxCount     int
	Tags         []string
}

// Report whether this is a wedding-class order (vip, wedding, or
// large-event tags). Such orders require a wedding-capable driver.
func (o *Order) WeddingOrder() bool {
	return hasAnyTag(o.Tags, WeddingTags)
}

// Report whether this is a corporate-class order.
func (o *Order) CorporateOrder() bool {
	return hasAnyTag(o.Tags, CorporateTags)
}

// Priority returns the order's tier for scarce-resource planning.
func (o *Order) Priority() Priority {
	switch {
	case o.WeddingOrder():
		return PriorityWedding
	case o.CorporateOrder():
		return PriorityCorporate
	default:
		return PriorityStandard
	}
}

// ConflictsWith reports whether two orders' service windows overlap.
// Back-to-back windows (one ends exactly when the other starts) do
// not conflict.
func (o *Order) ConflictsWith(other *Order) bool {
	return !(!o.TeardownTime.After(other.PickupTime) || !other.TeardownTime.After(o.PickupTime))
}
