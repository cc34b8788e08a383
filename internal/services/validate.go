package services

import (
	"fmt"
	"sort"
	"strings"

	"catering-allocation-service/internal/domain"
)

// Validate checks a candidate allocation against the fleet snapshots
// and returns every violation found. Checks run in a fixed order and
// iterate drivers and orders deterministically, so the same candidate
// always yields the same violation list.
//
// Structural checks (duplicate assignment, unknown entity) always run.
// Per-driver checks skip ids the snapshots do not contain; those are
// covered by unknown-entity violations instead of cascading errors.
func Validate(c *domain.CandidateAllocation, drivers []*domain.Driver, orders []*domain.Order, rules domain.Rules) []domain.Violation {
	var out []domain.Violation

	driverBy := driverIndex(drivers)
	orderBy := orderIndex(orders)

	out = append(out, checkDuplicates(c)...)
	out = append(out, checkCapacity(c, driverBy)...)
	out = append(out, checkRegions(c, driverBy, orderBy)...)
	out = append(out, checkScheduling(c, driverBy, orderBy)...)
	out = append(out, checkRequirements(c, driverBy, orderBy)...)
	out = append(out, checkUnknown(c, driverBy, orderBy)...)
	out = append(out, checkCoverage(c, orders)...)

	return out
}

// UnmetOrders lists order ids absent from the candidate, in input
// order.
func UnmetOrders(c *domain.CandidateAllocation, orders []*domain.Order) []string {
	assigned := c.AssignedOrders()
	var unmet []string
	for _, o := range orders {
		if _, ok := assigned[o.OrderID]; !ok {
			unmet = append(unmet, o.OrderID)
		}
	}
	return unmet
}

func checkDuplicates(c *domain.CandidateAllocation) []domain.Violation {
	firstSeen := map[string]string{}
	var out []domain.Violation
	for _, driverID := range c.DriverIDs() {
		for _, orderID := range c.Assignments[driverID] {
			if prev, ok := firstSeen[orderID]; ok {
				out = append(out, domain.Violation{
					Kind:     domain.KindDuplicateAssignment,
					DriverID: driverID,
					OrderID:  orderID,
					Message:  fmt.Sprintf("order %s already assigned to driver %s", orderID, prev),
				})
				continue
			}
			firstSeen[orderID] = driverID
		}
	}
	return out
}

func checkCapacity(c *domain.CandidateAllocation, driverBy map[string]*domain.Driver) []domain.Violation {
	var out []domain.Violation
	for _, driverID := range c.DriverIDs() {
		d, ok := driverBy[driverID]
		if !ok {
			continue
		}
		if n := len(c.Assignments[driverID]); n > d.MaxOrdersPerDay {
			out = append(out, domain.Violation{
				Kind:     domain.KindCapacity,
				DriverID: driverID,
				Message:  fmt.Sprintf("assigned %d orders, max_orders_per_day is %d", n, d.MaxOrdersPerDay),
			})
		}
	}
	return out
}

func checkRegions(c *domain.CandidateAllocation, driverBy map[string]*domain.Driver, orderBy map[string]*domain.Order) []domain.Violation {
	var out []domain.Violation
	for _, driverID := range c.DriverIDs() {
		d, ok := driverBy[driverID]
		if !ok {
			continue
		}
		for _, orderID := range c.Assignments[driverID] {
			o, ok := orderBy[orderID]
			if !ok {
				continue
			}
			if !d.FamiliarWith(o.Region) {
				out = append(out, domain.Violation{
					Kind:     domain.KindRegion,
					DriverID: driverID,
					OrderID:  orderID,
					Message:  fmt.Sprintf("driver is not familiar with region %s", o.Region),
				})
			}
		}
	}
	return out
}

func checkScheduling(c *domain.CandidateAllocation, driverBy map[string]*domain.Driver, orderBy map[string]*domain.Order) []domain.Violation {
	var out []domain.Violation
	for _, driverID := range c.DriverIDs() {
		if _, ok := driverBy[driverID]; !ok {
			continue
		}
		assigned := c.Assignments[driverID]
		for i := 0; i < len(assigned); i++ {
			a, ok := orderBy[assigned[i]]
			if !ok {
				continue
			}
			for j := i + 1; j < len(assigned); j++ {
				b, ok := orderBy[assigned[j]]
				if !ok {
					continue
				}
				if a.ConflictsWith(b) {
					out = append(out, domain.Violation{
						Kind:         domain.KindSchedulingConflict,
						DriverID:     driverID,
						OrderID:      a.OrderID,
						OtherOrderID: b.OrderID,
						Message: fmt.Sprintf("orders %s and %s have overlapping delivery windows",
							a.OrderID, b.OrderID),
					})
				}
			}
		}
	}
	return out
}

func checkRequirements(c *domain.CandidateAllocation, driverBy map[string]*domain.Driver, orderBy map[string]*domain.Order) []domain.Violation {
	var out []domain.Violation
	for _, driverID := range c.DriverIDs() {
		d, ok := driverBy[driverID]
		if !ok {
			continue
		}
		for _, orderID := range c.Assignments[driverID] {
			o, ok := orderBy[orderID]
			if !ok {
				continue
			}
			if o.WeddingOrder() && !d.WeddingCapable() {
				out = append(out, domain.Violation{
					Kind:     domain.KindRequirement,
					DriverID: driverID,
					OrderID:  orderID,
					Message:  "wedding order assigned to a driver without wedding capability",
				})
			}
			if hasTag(o.Tags, "pre-setup") && !hasCapability(d, "pre-setup") {
				out = append(out, domain.Violation{
					Kind:     domain.KindRequirement,
					DriverID: driverID,
					OrderID:  orderID,
					Message:  "order requires pre-setup but driver lacks the pre-setup capability",
				})
			}
		}
	}
	return out
}

func checkUnknown(c *domain.CandidateAllocation, driverBy map[string]*domain.Driver, orderBy map[string]*domain.Order) []domain.Violation {
	var out []domain.Violation

	for _, driverID := range c.DriverIDs() {
		if _, ok := driverBy[driverID]; !ok {
			out = append(out, domain.Violation{
				Kind:     domain.KindUnknownEntity,
				DriverID: driverID,
				Message:  "driver id does not exist in the fleet",
			})
		}
	}

	seen := map[string]struct{}{}
	var unknownOrders []string
	for _, driverID := range c.DriverIDs() {
		for _, orderID := range c.Assignments[driverID] {
			if _, ok := orderBy[orderID]; ok {
				continue
			}
			if _, dup := seen[orderID]; dup {
				continue
			}
			seen[orderID] = struct{}{}
			unknownOrders = append(unknownOrders, orderID)
		}
	}
	sort.Strings(unknownOrders)
	for _, orderID := range unknownOrders {
		out = append(out, domain.Violation{
			Kind:    domain.KindUnknownEntity,
			OrderID: orderID,
			Message: "order id does not exist in the order book",
		})
	}

	return out
}

func checkCoverage(c *domain.CandidateAllocation, orders []*domain.Order) []domain.Violation {
	var out []domain.Violation
	for _, orderID := range UnmetOrders(c, orders) {
		out = append(out, domain.Violation{
			Kind:    domain.KindUnmetOrder,
			OrderID: orderID,
			Message: "order was not assigned to any driver",
		})
	}
	return out
}

func hasTag(tags []string, want string) bool {
	for _, t := range tags {
		if strings.EqualFold(t, want) {
			return true
		}
	}
	return false
}

func hasCapability(d *domain.Driver, want string) bool {
	for _, c := range d.Capabilities {
		if strings.EqualFold(c, want) {
			return true
		}
	}
	return false
}
