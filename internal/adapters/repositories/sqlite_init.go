package repositories

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"
)

// LoadError marks malformed or missing input data. It is fatal for the
// run and is surfaced before any LLM call is made.
type LoadError struct {
	Path string
	Err  error
}

func (e *LoadError) Error() string {
	return fmt.Sprintf("load %s: %v", e.Path, e.Err)
}

func (e *LoadError) Unwrap() error { return e.Err }

// Initialize the SQLite database schema.
func InitSchema(db *sql.DB) error {
	if db == nil {
		return errors.New("init schema: DB is nil")
	}

	tx, err := db.Begin()
	if err != nil {
		return fmt.Errorf("init schema: begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	createDriversQuery := `
	CREATE TABLE IF NOT EXISTS drivers (
		driver_id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		home_region TEXT NOT NULL,
		familiar_regions TEXT NOT NULL,
		max_orders_per_day INTEGER NOT NULL,
		capabilities TEXT NOT NULL
	);
	`

	createOrdersQuery := `
	CREATE TABLE IF NOT EXISTS orders (
		order_id TEXT PRIMARY KEY,
		region TEXT NOT NULL,
		pickup_time TEXT NOT NULL,
		teardown_time TEXT NOT NULL,
		pax_count INTEGER NOT NULL,
		tags TEXT NOT NULL
	);
	`

	createAttemptsQuery := `
	CREATE TABLE IF NOT EXISTS attempts (
		run_id TEXT NOT NULL,
		attempt_number INTEGER NOT NULL,
		prompt TEXT NOT NULL,
		raw_response TEXT NOT NULL,
		candidate TEXT,
		parse_failed INTEGER NOT NULL,
		parse_reason TEXT,
		violations TEXT NOT NULL,
		score INTEGER NOT NULL,
		accepted INTEGER NOT NULL,
		created_at TEXT NOT NULL,
		PRIMARY KEY (run_id, attempt_number)
	);
	`

	createCompletionCacheQuery := `
	CREATE TABLE IF NOT EXISTS completion_cache (
		prompt_digest TEXT PRIMARY KEY,
		content TEXT NOT NULL
	);
	`

	createIndexQuery := `
	CREATE INDEX IF NOT EXISTS idx_attempts_run_id
	ON attempts(run_id);
	`

	statements := []string{
		createDriversQuery,
		createOrdersQuery,
		createAttemptsQuery,
		createCompletionCacheQuery,
		createIndexQuery,
	}

	for i, stmt := range statements {
		if _, err := tx.Exec(stmt); err != nil {
			return fmt.Errorf("init schema: exec statement #%d: %w", i+1, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("init schema: commit tx: %w", err)
	}

	return nil
}

// Seed record shapes match the input file contract: stable field
// names, unknown extra fields ignored, missing required fields fatal.
type DriverSeed struct {
	DriverID        string   `json:"driver_id"`
	Name            string   `json:"name"`
	HomeRegion      string   `json:"home_region"`
	FamiliarRegions []string `json:"familiar_regions"`
	MaxOrdersPerDay int      `json:"max_orders_per_day"`
	Capabilities    []string `json:"capabilities"`
}

type OrderSeed struct {
	OrderID      string   `json:"order_id"`
	Region       string   `json:"region"`
	PickupTime   string   `json:"pickup_time"`
	TeardownTime string   `json:"teardown_time"`
	PaxCount     int      `json:"pax_count"`
	Tags         []string `json:"tags"`
}

// Populate the database with driver and order data from JSON files.
func SeedFromJSON(db *sql.DB, driversPath, ordersPath string) error {
	drivers, err := readDriverSeeds(driversPath)
	if err != nil {
		return err
	}
	orders, err := readOrderSeeds(ordersPath)
	if err != nil {
		return err
	}

	tx, err := db.Begin()
	if err != nil {
		return fmt.Errorf("seed: begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	driverStmt, err := tx.Prepare(`
	INSERT OR REPLACE INTO drivers (
		driver_id, name, home_region, familiar_regions, max_orders_per_day, capabilities
	)
	VALUES (?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("seed drivers: prepare: %w", err)
	}
	defer driverStmt.Close()

	for _, d := range drivers {
		regions, _ := json.Marshal(emptyIfNil(d.FamiliarRegions))
		caps, _ := json.Marshal(emptyIfNil(d.Capabilities))
		if _, err := driverStmt.Exec(d.DriverID, d.Name, d.HomeRegion, string(regions), d.MaxOrdersPerDay, string(caps)); err != nil {
			return fmt.Errorf("seed driver %q: %w", d.DriverID, err)
		}
	}

	orderStmt, err := tx.Prepare(`
	INSERT OR REPLACE INTO orders (
		order_id, region, pickup_time, teardown_time, pax_count, tags
	)
	VALUES (?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("seed orders: prepare: %w", err)
	}
	defer orderStmt.Close()

	for _, o := range orders {
		tags, _ := json.Marshal(emptyIfNil(o.Tags))
		if _, err := orderStmt.Exec(o.OrderID, o.Region, o.PickupTime, o.TeardownTime, o.PaxCount, string(tags)); err != nil {
			return fmt.Errorf("seed order %q: %w", o.OrderID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("seed: commit tx: %w", err)
	}

	return nil
}

func readDriverSeeds(path string) ([]DriverSeed, error) {
	bytes, err := os.ReadFile(path)
	if err != nil {
		return nil, &LoadError{Path: path, Err: err}
	}

	var data []DriverSeed
	if err := json.Unmarshal(bytes, &data); err != nil {
		return nil, &LoadError{Path: path, Err: fmt.Errorf("parse json: %w", err)}
	}

	for i, d := range data {
		if strings.TrimSpace(d.DriverID) == "" {
			return nil, &LoadError{Path: path, Err: fmt.Errorf("driver #%d: driver_id is required", i)}
		}
		if strings.TrimSpace(d.HomeRegion) == "" {
			return nil, &LoadError{Path: path, Err: fmt.Errorf("driver %q: home_region is required", d.DriverID)}
		}
		if d.MaxOrdersPerDay < 1 {
			return nil, &LoadError{Path: path, Err: fmt.Errorf("driver %q: max_orders_per_day must be positive", d.DriverID)}
		}
	}
	return data, nil
}

func readOrderSeeds(path string) ([]OrderSeed, error) {
	bytes, err := os.ReadFile(path)
	if err != nil {
		return nil, &LoadError{Path: path, Err: err}
	}

	var data []OrderSeed
	if err := json.Unmarshal(bytes, &data); err != nil {
		return nil, &LoadError{Path: path, Err: fmt.Errorf("parse json: %w", err)}
	}

	for i, o := range data {
		if strings.TrimSpace(o.OrderID) == "" {
			return nil, &LoadError{Path: path, Err: fmt.Errorf("order #%d: order_id is required", i)}
		}
		if strings.TrimSpace(o.Region) == "" {
			return nil, &LoadError{Path: path, Err: fmt.Errorf("order %q: region is required", o.OrderID)}
		}
		for field, raw := range map[string]string{"pickup_time": o.PickupTime, "teardown_time": o.TeardownTime} {
			if _, err := time.Parse(time.RFC3339, raw); err != nil {
				return nil, &LoadError{Path: path, Err: fmt.Errorf("order %q: %s must be RFC3339: %w", o.OrderID, field, err)}
			}
		}
	}
	return data, nil
}

func emptyIfNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
