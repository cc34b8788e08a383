package repositories

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"catering-allocation-service/internal/domain"
)

// SQLite-backed implementation of the FleetRepository port.
type SqliteFleetRepository struct{ DB *sql.DB }

func NewSqliteFleetRepository(db *sql.DB) *SqliteFleetRepository {
	return &SqliteFleetRepository{DB: db}
}

// Return all drivers stored in the database.
func (s *SqliteFleetRepository) ListDrivers(ctx context.Context) ([]*domain.Driver, error) {
	if s.DB == nil {
		return nil, errors.New("sqlite fleet repository: DB is nil")
	}

	query := `
	SELECT
		driver_id,
		name,
		home_region,
		familiar_regions,
		max_orders_per_day,
		capabilities
	FROM drivers
	ORDER BY driver_id;
	`
	rows, err := s.DB.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list drivers: query drivers table: %w", err)
	}
	defer rows.Close()

	drivers := make([]*domain.Driver, 0, 16)
	for rows.Next() {
		var d domain.Driver
		var regions, caps string
		if err := rows.Scan(&d.DriverID, &d.Name, &d.HomeRegion, &regions, &d.MaxOrdersPerDay, &caps); err != nil {
			return nil, fmt.Errorf("list drivers: scan row: %w", err)
		}
		if err := json.Unmarshal([]byte(regions), &d.FamiliarRegions); err != nil {
			return nil, fmt.Errorf("list drivers: driver %q familiar_regions: %w", d.DriverID, err)
		}
		if err := json.Unmarshal([]byte(caps), &d.Capabilities); err != nil {
			return nil, fmt.Errorf("list drivers: driver %q capabilities: %w", d.DriverID, err)
		}
		drivers = append(drivers, &d)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list drivers: row iteration: %w", err)
	}

	return drivers, nil
}

// Return all orders stored in the database.
func (s *SqliteFleetRepository) ListOrders(ctx context.Context) ([]*domain.Order, error) {
	if s.DB == nil {
		return nil, errors.New("sqlite fleet repository: DB is nil")
	}

	query := `
	SELECT
		order_id,
		region,
		pickup_time,
		teardown_time,
		pax_count,
		tags
	FROM orders
	ORDER BY order_id;
	`
	rows, err := s.DB.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list orders: query orders table: %w", err)
	}
	defer rows.Close()

	orders := make([]*domain.Order, 0, 64)
	for rows.Next() {
		var o domain.Order
		var pickup, teardown, tags string
		if err := rows.Scan(&o.OrderID, &o.Region, &pickup, &teardown, &o.PaxCount, &tags); err != nil {
			return nil, fmt.Errorf("list orders: scan row: %w", err)
		}
		if o.PickupTime, err = time.Parse(time.RFC3339, pickup); err != nil {
			return nil, fmt.Errorf("list orders: order %q pickup_time: %w", o.OrderID, err)
		}
		if o.TeardownTime, err = time.Parse(time.RFC3339, teardown); err != nil {
			return nil, fmt.Errorf("list orders: order %q teardown_time: %w", o.OrderID, err)
		}
		if err := json.Unmarshal([]byte(tags), &o.Tags); err != nil {
			return nil, fmt.Errorf("list orders: order %q tags: %w", o.OrderID, err)
		}
		orders = append(orders, &o)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list orders: row iteration: %w", err)
	}

	return orders, nil
}
