package services

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"catering-allocation-service/internal/domain"
)

// Prompt construction is pure and deterministic: identical drivers,
// orders, and violation history always produce byte-identical prompts,
// which keeps runs reproducible and the completion cache effective.

type driverDoc struct {
	DriverID        string   `json:"driver_id"`
	Name            string   `json:"name"`
	HomeRegion      string   `json:"home_region"`
	FamiliarRegions []string `json:"familiar_regions"`
	MaxOrdersPerDay int      `json:"max_orders_per_day"`
	Capabilities    []string `json:"capabilities"`
}

type orderDoc struct {
	OrderID      string   `json:"order_id"`
	Region       string   `json:"region"`
	PickupTime   string   `json:"pickup_time"`
	TeardownTime string   `json:"teardown_time"`
	PaxCount     int      `json:"pax_count"`
	Tags         []string `json:"tags"`
}

// BuildInitialPrompt renders the first allocation request: situation
// overview, constraint rules, full driver and order data, and the
// exact JSON response schema.
func BuildInitialPrompt(drivers []*domain.Driver, orders []*domain.Order, rules domain.Rules, breakdown FleetBreakdown) string {
	var b strings.Builder

	b.WriteString("You are an expert operations optimizer for a catering delivery company. ")
	b.WriteString("Your task is to assign catering orders to delivery drivers.\n\n")

	writeSituation(&b, breakdown)
	writeConstraints(&b, rules, breakdown)
	writeData(&b, drivers, orders)
	writeResponseFormat(&b)

	return b.String()
}

// BuildRepairPrompt renders a correction request. The previous
// attempt's violations are embedded verbatim (rule kind plus driver
// and order ids) so the model receives concrete repair instructions.
func BuildRepairPrompt(
	prev *domain.CandidateAllocation,
	violations []domain.Violation,
	drivers []*domain.Driver,
	orders []*domain.Order,
	rules domain.Rules,
	breakdown FleetBreakdown,
) string {
	var b strings.Builder

	fmt.Fprintf(&b, "Your previous allocation attempt had %d validation issue(s). Fix them and return a corrected allocation.\n\n", len(violations))

	counts := domain.CountByKind(violations)
	b.WriteString("ISSUE BREAKDOWN:\n")
	for _, kind := range []domain.ViolationKind{
		domain.KindParseFailure,
		domain.KindDuplicateAssignment,
		domain.KindCapacity,
		domain.KindRegion,
		domain.KindSchedulingConflict,
		domain.KindRequirement,
		domain.KindUnknownEntity,
		domain.KindUnmetOrder,
	} {
		if counts[kind] > 0 {
			fmt.Fprintf(&b, "- %s: %d\n", kind, counts[kind])
		}
	}

	b.WriteString("\nALL VALIDATION ISSUES:\n")
	for _, v := range violations {
		fmt.Fprintf(&b, "- %s\n", v.String())
	}

	b.WriteString("\nYOUR PREVIOUS ALLOCATION:\n")
	b.WriteString(marshalIndent(prevAssignments(prev)))
	b.WriteString("\n\n")

	writeSituation(&b, breakdown)
	writeConstraints(&b, rules, breakdown)
	writeData(&b, drivers, orders)

	b.WriteString("Focus on fixing the validation issues above while keeping valid assignments in place.\n\n")
	writeResponseFormat(&b)

	return b.String()
}

func prevAssignments(prev *domain.CandidateAllocation) any {
	if prev == nil || len(prev.Assignments) == 0 {
		return map[string][]string{}
	}
	return prev.Assignments
}

func writeSituation(b *strings.Builder, breakdown FleetBreakdown) {
	b.WriteString("SITUATION OVERVIEW:\n")
	fmt.Fprintf(b, "- Total orders: %d (wedding: %d, corporate: %d, regular: %d)\n",
		breakdown.TotalOrders, len(breakdown.WeddingOrders), len(breakdown.CorporateOrders), len(breakdown.RegularOrders))
	fmt.Fprintf(b, "- Total drivers: %d (wedding-capable: %d, corporate-capable: %d, standard: %d)\n",
		breakdown.TotalDrivers, len(breakdown.WeddingCapableDrivers), len(breakdown.CorporateCapableDrivers), len(breakdown.StandardDrivers))
	fmt.Fprintf(b, "- Total driver capacity: %d orders/day\n\n", breakdown.TotalCapacity)
}

func writeConstraints(b *strings.Builder, rules domain.Rules, breakdown FleetBreakdown) {
	b.WriteString("HARD CONSTRAINTS - THESE MUST ALL BE SATISFIED:\n\n")

	b.WriteString("1. TIME CONFLICTS: a driver cannot take two orders whose pickup/teardown windows overlap at all. ")
	b.WriteString("Two orders conflict IF NOT (a.teardown_time <= b.pickup_time OR b.teardown_time <= a.pickup_time). ")
	b.WriteString("Back-to-back windows (one ends exactly when the other starts) are allowed.\n\n")

	fmt.Fprintf(b, "2. WEDDING CAPABILITY: orders tagged %s require a wedding-capable driver. ", strings.Join(domain.WeddingTags, ", "))
	fmt.Fprintf(b, "Wedding-capable drivers are a scarce resource (%d available: %s). ",
		len(breakdown.WeddingCapableDrivers), strings.Join(breakdown.WeddingCapableDrivers, ", "))
	b.WriteString("Assign all wedding orders to them before spending their capacity on regular orders.\n\n")

	b.WriteString("3. SPECIAL REQUIREMENTS: orders tagged pre-setup require a driver with the pre-setup capability.\n\n")

	b.WriteString("4. CAPACITY: never exceed a driver's max_orders_per_day.\n\n")

	b.WriteString("5. EACH ORDER AT MOST ONCE: an order may appear under at most one driver.\n\n")

	b.WriteString("6. REGION FAMILIARITY (strongly preferred): assign orders to drivers whose home_region or familiar_regions include the order's region.\n\n")

	if rules.MandatoryCoverage {
		b.WriteString("7. FULL COVERAGE: every order MUST be assigned to a driver.\n\n")
	}

	b.WriteString("Use only driver and order ids that appear in the data below.\n\n")
}

func writeData(b *strings.Builder, drivers []*domain.Driver, orders []*domain.Order) {
	driverDocs := make([]driverDoc, 0, len(drivers))
	for _, d := range drivers {
		driverDocs = append(driverDocs, driverDoc{
			DriverID:        d.DriverID,
			Name:            d.Name,
			HomeRegion:      d.HomeRegion,
			FamiliarRegions: sliceOrEmpty(d.FamiliarRegions),
			MaxOrdersPerDay: d.MaxOrdersPerDay,
			Capabilities:    sliceOrEmpty(d.Capabilities),
		})
	}

	orderDocs := make([]orderDoc, 0, len(orders))
	for _, o := range orders {
		orderDocs = append(orderDocs, orderDoc{
			OrderID:      o.OrderID,
			Region:       o.Region,
			PickupTime:   o.PickupTime.UTC().Format(time.RFC3339),
			TeardownTime: o.TeardownTime.UTC().Format(time.RFC3339),
			PaxCount:     o.PaxCount,
			Tags:         sliceOrEmpty(o.Tags),
		})
	}

	b.WriteString("DRIVERS DATA:\n")
	b.WriteString(marshalIndent(driverDocs))
	b.WriteString("\n\nORDERS DATA:\n")
	b.WriteString(marshalIndent(orderDocs))
	b.WriteString("\n\n")
}

func writeResponseFormat(b *strings.Builder) {
	b.WriteString("RESPONSE FORMAT:\n")
	b.WriteString("Return only a JSON object with this exact structure, no additional text:\n")
	b.WriteString(`{
  "allocations": {
    "DRV-001": ["Q3370", "Q3371"],
    "DRV-002": ["P9764"]
  },
  "reasoning": {
    "Q3370": "Why this order went to this driver.",
    "Q3371": "One entry per allocated order, not per driver.",
    "P9764": "Mention region match, capability, and conflicts checked."
  },
  "warnings": [
    "Order Q9999 UNALLOCATED - no wedding-capable driver free in its window"
  ]
}`)
	b.WriteString("\nIf an order cannot be allocated, leave it out of allocations and explain it in warnings.\n")
}

func marshalIndent(v any) string {
	b, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return "{}"
	}
	return string(b)
}

func sliceOrEmpty(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
