package domain

import (
	"sort"
	"time"
)

// A single driver/order pairing in a candidate allocation, with any
// reasoning text the model supplied for the order.
type AllocationEntry struct {
	DriverID  string `json:"driver_id"`
	OrderID   string `json:"order_id"`
	Reasoning string `json:"reasoning,omitempty"`
}

// One complete driver-to-orders mapping proposed in a single attempt.
// Owned exclusively by that attempt and immutable once validated; a
// repaired allocation is a new CandidateAllocation, not a mutation.
type CandidateAllocation struct {
	Assignments map[string][]string `json:"allocations"`
	Reasoning   map[string]string   `json:"reasoning,omitempty"`
	Warnings    []string            `json:"warnings,omitempty"`
}

// NewCandidateAllocation returns an empty candidate with initialized maps.
func NewCandidateAllocation() *CandidateAllocation {
	return &CandidateAllocation{
		Assignments: map[string][]string{},
		Reasoning:   map[string]string{},
	}
}

// DriverIDs returns the assigned driver ids in sorted order for
// deterministic iteration.
func (c *CandidateAllocation) DriverIDs() []string {
	ids := make([]string, 0, len(c.Assignments))
	for id := range c.Assignments {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// AssignedCount returns the number of orders assigned to a driver.
func (c *CandidateAllocation) AssignedCount(driverID string) int {
	return len(c.Assignments[driverID])
}

// AssignedOrders returns the set of all order ids present in the
// candidate, including duplicates mapped to multiple drivers.
func (c *CandidateAllocation) AssignedOrders() map[string]struct{} {
	out := make(map[string]struct{})
	for _, orderIDs := range c.Assignments {
		for _, id := range orderIDs {
			out[id] = struct{}{}
		}
	}
	return out
}

// Entries flattens the mapping into driver/order pairs, ordered by
// driver id then assignment order.
func (c *CandidateAllocation) Entries() []AllocationEntry {
	entries := make([]AllocationEntry, 0, len(c.Assignments))
	for _, driverID := range c.DriverIDs() {
		for _, orderID := range c.Assignments[driverID] {
			entries = append(entries, AllocationEntry{
				DriverID:  driverID,
				OrderID:   orderID,
				Reasoning: c.Reasoning[orderID],
			})
		}
	}
	return entries
}

// One full prompt/completion/parse/validate cycle. Records are
// append-only audit data: created at the start of each retry and never
// mutated afterwards.
type AttemptRecord struct {
	RunID       string               `json:"run_id"`
	Number      int                  `json:"attempt_number"`
	Prompt      string               `json:"prompt"`
	RawResponse string               `json:"raw_response"`
	Candidate   *CandidateAllocation `json:"candidate,omitempty"`
	ParseFailed bool                 `json:"parse_failed"`
	ParseReason string               `json:"parse_reason,omitempty"`
	Violations  []Violation          `json:"violations"`
	Score       int                  `json:"score"`
	Accepted    bool                 `json:"accepted"`
	CreatedAt   time.Time            `json:"created_at"`
}
