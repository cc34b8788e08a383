package services

import (
	"errors"
	"reflect"
	"testing"
)

func TestParseAllocationBareJSON(t *testing.T) {
	drivers, orders := testFleet()
	raw := `{"allocations":{"DRV-001":["Q1001","Q1002"],"DRV-002":["Q1003"]},"reasoning":{"Q1001":"home region, wedding capable"},"warnings":["Q1005 left out"]}`

	c, err := ParseAllocation(raw, drivers, orders)
	if err != nil {
		t.Fatalf("ParseAllocation: %v", err)
	}
	if !reflect.DeepEqual(c.Assignments["DRV-001"], []string{"Q1001", "Q1002"}) {
		t.Errorf("DRV-001 assignments = %v", c.Assignments["DRV-001"])
	}
	if c.Reasoning["Q1001"] != "home region, wedding capable" {
		t.Errorf("reasoning = %q", c.Reasoning["Q1001"])
	}
	if len(c.Warnings) != 1 {
		t.Errorf("warnings = %v, want 1 entry", c.Warnings)
	}
}

func TestParseAllocationFencedAndProse(t *testing.T) {
	drivers, orders := testFleet()

	tests := []struct {
		name string
		raw  string
	}{
		{"markdown fence", "Here is the allocation:\n```json\n{\"allocations\":{\"DRV-002\":[\"Q1003\"]}}\n```\nHope that helps."},
		{"bare fence", "```\n{\"allocations\":{\"DRV-002\":[\"Q1003\"]}}\n```"},
		{"surrounding prose", "Sure! {\"allocations\":{\"DRV-002\":[\"Q1003\"]}} is my answer."},
		{"brace inside string", `{"allocations":{"DRV-002":["Q1003"]},"reasoning":{"Q1003":"note: {braces} inside text"}}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, err := ParseAllocation(tt.raw, drivers, orders)
			if err != nil {
				t.Fatalf("ParseAllocation: %v", err)
			}
			if !reflect.DeepEqual(c.Assignments["DRV-002"], []string{"Q1003"}) {
				t.Errorf("assignments = %v", c.Assignments)
			}
		})
	}
}

func TestParseAllocationCoercesLooseShapes(t *testing.T) {
	drivers, orders := testFleet()
	// Single order id as a bare string instead of an array.
	raw := `{"allocations":{"DRV-002":"Q1003"},"reasoning":{"Q1003":"solo"},"warnings":[]}`

	c, err := ParseAllocation(raw, drivers, orders)
	if err != nil {
		t.Fatalf("ParseAllocation: %v", err)
	}
	if !reflect.DeepEqual(c.Assignments["DRV-002"], []string{"Q1003"}) {
		t.Errorf("assignments = %v, want coerced single-element slice", c.Assignments)
	}
}

func TestParseAllocationCanonicalizesIDs(t *testing.T) {
	drivers, orders := testFleet()
	raw := `{"allocations":{"drv-001":[" q1001 ","Q9999"]}}`

	c, err := ParseAllocation(raw, drivers, orders)
	if err != nil {
		t.Fatalf("ParseAllocation: %v", err)
	}
	got, ok := c.Assignments["DRV-001"]
	if !ok {
		t.Fatalf("driver id not canonicalized: %v", c.Assignments)
	}
	// Known ids fixed up, unknown ids kept verbatim for the validator.
	if !reflect.DeepEqual(got, []string{"Q1001", "Q9999"}) {
		t.Errorf("order ids = %v, want [Q1001 Q9999]", got)
	}
}

func TestParseAllocationMissingAllocationsKey(t *testing.T) {
	drivers, orders := testFleet()
	c, err := ParseAllocation(`{"reasoning":{},"warnings":["could not solve"]}`, drivers, orders)
	if err != nil {
		t.Fatalf("ParseAllocation: %v", err)
	}
	if len(c.Assignments) != 0 {
		t.Errorf("assignments = %v, want empty", c.Assignments)
	}
}

func TestParseAllocationRejectsGarbage(t *testing.T) {
	drivers, orders := testFleet()

	for _, raw := range []string{
		"",
		"I cannot produce an allocation for this fleet.",
		`{"allocations": {"DRV-001": ["Q1001"`,
		"```json\nnot json at all\n```",
	} {
		_, err := ParseAllocation(raw, drivers, orders)
		if err == nil {
			t.Errorf("ParseAllocation(%q) succeeded, want ParseError", raw)
			continue
		}
		var pe *ParseError
		if !errors.As(err, &pe) {
			t.Errorf("ParseAllocation(%q) error = %T, want *ParseError", raw, err)
		}
	}
}
