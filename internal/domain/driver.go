package domain

// Represents a delivery driver available for catering assignments.
// A Driver has a home region, a set of additional familiar regions,
// a daily order capacity, and capability tags that gate which order
// types it may serve.
type Driver struct {
	DriverID        string
	Name            string
	HomeRegion      string
	FamiliarRegions []string
	MaxOrdersPerDay int
	Capabilities    []string
}

// Report whether the driver may serve wedding-class orders.
func (d *Driver) WeddingCapable() bool {
	return hasAnyTag(d.Capabilities, WeddingTags)
}

// Report whether the driver may serve corporate-class orders.
func (d *Driver) CorporateCapable() bool {
	return hasAnyTag(d.Capabilities, CorporateTags)
}

// FamiliarWith reports whether the driver knows the given region.
// The home region is always familiar.
func (d *Driver) FamiliarWith(region string) bool {
	if region == d.HomeRegion {
		return true
	}
	for _, r := range d.FamiliarRegions {
		if r == region {
			return true
		}
	}
	return false
}

// CapacityRemaining returns how many more orders the driver can take
// given its current assigned count. Never negative.
func (d *Driver) CapacityRemaining(assigned int) int {
	remaining := d.MaxOrdersPerDay - assigned
	if remaining < 0 {
		return 0
	}
	return remaining
}

// Feasible reports whether assigning the order to the driver would
// satisfy region familiarity, capability support, and remaining
// capacity. Pure check; infeasibility is a boolean, not an error.
func Feasible(d *Driver, o *Order, assigned int) bool {
	if d.CapacityRemaining(assigned) == 0 {
		return false
	}
	if !d.FamiliarWith(o.Region) {
		return false
	}
	if o.WeddingOrder() && !d.WeddingCapable() {
		return false
	}
	return true
}
