package domain

import (
	"fmt"
	"strings"
)

// Kind of constraint breach detected in a candidate allocation.
type ViolationKind string

const (
	KindDuplicateAssignment ViolationKind = "duplicate-assignment"
	KindCapacity            ViolationKind = "capacity"
	KindRegion              ViolationKind = "region"
	KindSchedulingConflict  ViolationKind = "scheduling-conflict"
	KindRequirement         ViolationKind = "requirement"
	KindUnknownEntity       ViolationKind = "unknown-entity"
	KindUnmetOrder          ViolationKind = "unmet-order"
	KindParseFailure        ViolationKind = "parse-failure"
)

// A detected breach of a hard or soft constraint in a candidate
// allocation. Produced fresh on every validation pass and never
// mutated afterwards.
type Violation struct {
	Kind         ViolationKind `json:"kind"`
	DriverID     string        `json:"driver_id,omitempty"`
	OrderID      string        `json:"order_id,omitempty"`
	OtherOrderID string        `json:"other_order_id,omitempty"`
	Message      string        `json:"message"`
}

// String renders the violation for repair prompts and logs. It keeps
// the entity ids explicit so the model receives concrete instructions.
func (v Violation) String() string {
	parts := make([]string, 0, 3)
	if v.DriverID != "" {
		parts = append(parts, "driver="+v.DriverID)
	}
	if v.OrderID != "" {
		parts = append(parts, "order="+v.OrderID)
	}
	if v.OtherOrderID != "" {
		parts = append(parts, "other_order="+v.OtherOrderID)
	}
	if len(parts) == 0 {
		return fmt.Sprintf("[%s] %s", v.Kind, v.Message)
	}
	return fmt.Sprintf("[%s] %s: %s", v.Kind, strings.Join(parts, " "), v.Message)
}

// CountByKind tallies violations per kind.
func CountByKind(violations []Violation) map[ViolationKind]int {
	counts := make(map[ViolationKind]int, len(violations))
	for _, v := range violations {
		counts[v.Kind]++
	}
	return counts
}

// BlockingCount returns how many violations prevent acceptance under
// the given rules.
func BlockingCount(violations []Violation, rules Rules) int {
	n := 0
	for _, v := range violations {
		if rules.Blocking(v.Kind) {
			n++
		}
	}
	return n
}
