package services

import (
	"sort"

	"catering-allocation-service/internal/domain"
)

// FleetBreakdown groups drivers and orders by capability tier and
// region. It feeds the prompt's situation overview and is recomputed
// per run from the read-only snapshots.
type FleetBreakdown struct {
	TotalOrders     int
	WeddingOrders   []string
	CorporateOrders []string
	RegularOrders   []string
	OrdersByRegion  map[string][]string

	TotalDrivers            int
	WeddingCapableDrivers   []string
	CorporateCapableDrivers []string
	StandardDrivers         []string
	DriversByRegion         map[string][]string
	TotalCapacity           int
}

// AnalyzeFleet categorizes the snapshots. Pure function of its input.
func AnalyzeFleet(drivers []*domain.Driver, orders []*domain.Order) FleetBreakdown {
	b := FleetBreakdown{
		TotalOrders:     len(orders),
		TotalDrivers:    len(drivers),
		OrdersByRegion:  map[string][]string{},
		DriversByRegion: map[string][]string{},
	}

	for _, o := range orders {
		switch o.Priority() {
		case domain.PriorityWedding:
			b.WeddingOrders = append(b.WeddingOrders, o.OrderID)
		case domain.PriorityCorporate:
			b.CorporateOrders = append(b.CorporateOrders, o.OrderID)
		default:
			b.RegularOrders = append(b.RegularOrders, o.OrderID)
		}
		b.OrdersByRegion[o.Region] = append(b.OrdersByRegion[o.Region], o.OrderID)
	}

	for _, d := range drivers {
		switch {
		case d.WeddingCapable():
			b.WeddingCapableDrivers = append(b.WeddingCapableDrivers, d.DriverID)
		case d.CorporateCapable():
			b.CorporateCapableDrivers = append(b.CorporateCapableDrivers, d.DriverID)
		default:
			b.StandardDrivers = append(b.StandardDrivers, d.DriverID)
		}
		b.DriversByRegion[d.HomeRegion] = append(b.DriversByRegion[d.HomeRegion], d.DriverID)
		b.TotalCapacity += d.MaxOrdersPerDay
	}

	return b
}

// Per-driver load in the final allocation.
type DriverLoad struct {
	DriverID        string  `json:"driver_id"`
	Assigned        int     `json:"assigned"`
	MaxOrdersPerDay int     `json:"max_orders_per_day"`
	Utilization     float64 `json:"utilization"`
}

// Summary statistics over a candidate allocation.
type Metrics struct {
	TotalAllocated         int          `json:"total_allocated"`
	TotalUnallocated       int          `json:"total_unallocated"`
	WeddingAllocated       int          `json:"wedding_orders_allocated"`
	CorporateAllocated     int          `json:"corporate_orders_allocated"`
	RegularAllocated       int          `json:"regular_orders_allocated"`
	DriversUsed            int          `json:"drivers_used"`
	AverageOrdersPerDriver float64      `json:"average_orders_per_driver"`
	RegionMatchRate        float64      `json:"region_match_rate"`
	DriverLoads            []DriverLoad `json:"driver_loads"`
	UnmetOrders            []string     `json:"unmet_orders"`
}

// CalculateMetrics computes summary statistics for a candidate.
// Read-only: it never mutates the allocation or the snapshots.
func CalculateMetrics(c *domain.CandidateAllocation, drivers []*domain.Driver, orders []*domain.Order) Metrics {
	driverMap := driverIndex(drivers)
	orderMap := orderIndex(orders)

	m := Metrics{DriverLoads: []DriverLoad{}, UnmetOrders: []string{}}

	assignments := 0
	regionMatches := 0

	for _, driverID := range c.DriverIDs() {
		orderIDs := c.Assignments[driverID]
		if len(orderIDs) == 0 {
			continue
		}
		m.DriversUsed++

		driver := driverMap[driverID]
		for _, orderID := range orderIDs {
			order := orderMap[orderID]
			if order == nil {
				continue
			}
			m.TotalAllocated++

			switch order.Priority() {
			case domain.PriorityWedding:
				m.WeddingAllocated++
			case domain.PriorityCorporate:
				m.CorporateAllocated++
			default:
				m.RegularAllocated++
			}

			if driver != nil {
				assignments++
				if driver.FamiliarWith(order.Region) {
					regionMatches++
				}
			}
		}

		if driver != nil {
			load := DriverLoad{
				DriverID:        driverID,
				Assigned:        len(orderIDs),
				MaxOrdersPerDay: driver.MaxOrdersPerDay,
			}
			if driver.MaxOrdersPerDay > 0 {
				load.Utilization = float64(len(orderIDs)) / float64(driver.MaxOrdersPerDay)
			}
			m.DriverLoads = append(m.DriverLoads, load)
		}
	}

	assigned := c.AssignedOrders()
	for _, o := range orders {
		if _, ok := assigned[o.OrderID]; !ok {
			m.UnmetOrders = append(m.UnmetOrders, o.OrderID)
		}
	}
	sort.Strings(m.UnmetOrders)

	m.TotalUnallocated = len(m.UnmetOrders)
	if m.DriversUsed > 0 {
		m.AverageOrdersPerDriver = float64(m.TotalAllocated) / float64(m.DriversUsed)
	}
	if assignments > 0 {
		m.RegionMatchRate = float64(regionMatches) / float64(assignments)
	}

	return m
}

func driverIndex(drivers []*domain.Driver) map[string]*domain.Driver {
	m := make(map[string]*domain.Driver, len(drivers))
	for _, d := range drivers {
		m[d.DriverID] = d
	}
	return m
}

func orderIndex(orders []*domain.Order) map[string]*domain.Order {
	m := make(map[string]*domain.Order, len(orders))
	for _, o := range orders {
		m[o.OrderID] = o
	}
	return m
}
