package ports

import (
	"catering-allocation-service/internal/domain"
	"context"
)

// Port: a boundary for retrieving the driver and order snapshots an
// allocation run operates on. A run owns the returned slices for its
// duration; implementations must not share mutable state across runs.
type FleetRepository interface {
	// Retrieve all drivers available for allocation.
	ListDrivers(ctx context.Context) ([]*domain.Driver, error)
	// Retrieve all orders awaiting allocation.
	ListOrders(ctx context.Context) ([]*domain.Order, error)
}
