package results

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"catering-allocation-service/internal/domain"
	"catering-allocation-service/internal/services"
)

// Per-driver block in the final output file: assignments enriched with
// driver details, per-order reasoning, and utilization.
type DriverAllocation struct {
	DriverID        string            `json:"driver_id"`
	Name            string            `json:"name"`
	HomeRegion      string            `json:"home_region"`
	Orders          []string          `json:"orders"`
	Reasoning       map[string]string `json:"reasoning"`
	MaxOrdersPerDay int               `json:"max_orders_per_day"`
	Utilization     float64           `json:"utilization"`
}

// Top-level shape of the run output file.
type RunOutput struct {
	RunID             string             `json:"run_id"`
	GeneratedAt       time.Time          `json:"generated_at"`
	Outcome           string             `json:"outcome"`
	Accepted          bool               `json:"accepted"`
	AttemptsUsed      int                `json:"attempts_used"`
	BestAttempt       int                `json:"best_attempt"`
	Allocations       []DriverAllocation `json:"allocations"`
	UnallocatedOrders []string           `json:"unallocated_orders"`
	UnusedDrivers     []string           `json:"unused_drivers"`
	Violations        []domain.Violation `json:"violations"`
	Metrics           services.Metrics   `json:"metrics"`
	Warnings          []string           `json:"warnings"`
	Summary           string             `json:"summary"`
}

// OutputWriter persists run results as pretty-printed JSON files under
// a single directory, one file per run.
type OutputWriter struct {
	Dir string
}

func NewOutputWriter(dir string) *OutputWriter {
	return &OutputWriter{Dir: dir}
}

// WriteRun assembles and writes the final output for a run. Returns
// the path of the written file.
func (w *OutputWriter) WriteRun(res *services.RunResult, drivers []*domain.Driver, orders []*domain.Order) (string, error) {
	if err := os.MkdirAll(w.Dir, 0o755); err != nil {
		return "", fmt.Errorf("write run output: create dir: %w", err)
	}

	out := BuildRunOutput(res, drivers, orders)

	path := filepath.Join(w.Dir, fmt.Sprintf("allocation_%s.json", res.RunID))
	data, err := json.MarshalIndent(out, "", "  ")
	if err != nil {
		return "", fmt.Errorf("write run output: marshal: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", fmt.Errorf("write run output: %w", err)
	}
	return path, nil
}

// BuildRunOutput derives the output document from a run result and the
// fleet snapshots. Allocations follow sorted driver id order.
func BuildRunOutput(res *services.RunResult, drivers []*domain.Driver, orders []*domain.Order) RunOutput {
	driverBy := map[string]*domain.Driver{}
	for _, d := range drivers {
		driverBy[d.DriverID] = d
	}

	out := RunOutput{
		RunID:             res.RunID,
		GeneratedAt:       time.Now().UTC(),
		Outcome:           string(res.Outcome),
		Accepted:          res.Accepted,
		AttemptsUsed:      len(res.Attempts),
		BestAttempt:       res.BestAttempt,
		UnallocatedOrders: services.UnmetOrders(res.Candidate, orders),
		Violations:        res.Violations,
		Metrics:           res.Metrics,
		Warnings:          res.Candidate.Warnings,
	}
	if out.Warnings == nil {
		out.Warnings = []string{}
	}

	used := map[string]bool{}
	for _, driverID := range res.Candidate.DriverIDs() {
		d, ok := driverBy[driverID]
		if !ok {
			continue
		}
		assigned := res.Candidate.Assignments[driverID]
		used[driverID] = true

		reasoning := map[string]string{}
		for _, orderID := range assigned {
			if text, ok := res.Candidate.Reasoning[orderID]; ok {
				reasoning[orderID] = text
			}
		}

		utilization := 0.0
		if d.MaxOrdersPerDay > 0 {
			utilization = float64(len(assigned)) / float64(d.MaxOrdersPerDay)
		}

		out.Allocations = append(out.Allocations, DriverAllocation{
			DriverID:        d.DriverID,
			Name:            d.Name,
			HomeRegion:      d.HomeRegion,
			Orders:          assigned,
			Reasoning:       reasoning,
			MaxOrdersPerDay: d.MaxOrdersPerDay,
			Utilization:     utilization,
		})
	}

	for _, d := range drivers {
		if !used[d.DriverID] {
			out.UnusedDrivers = append(out.UnusedDrivers, d.DriverID)
		}
	}

	out.Summary = fmt.Sprintf("%d/%d orders allocated across %d drivers in %d attempt(s), outcome %s",
		res.Metrics.TotalAllocated, len(orders), res.Metrics.DriversUsed, len(res.Attempts), res.Outcome)

	return out
}
