package domain

import (
	"testing"
	"time"
)

func TestOrderConflictsWith(t *testing.T) {
	day := time.Date(2024, 11, 2, 0, 0, 0, 0, time.UTC)

	at := func(h int) time.Time { return day.Add(time.Duration(h) * time.Hour) }

	a := &Order{OrderID: "A", PickupTime: at(18), TeardownTime: at(22)}
	b := &Order{OrderID: "B", PickupTime: at(20), TeardownTime: at(24)}
	c := &Order{OrderID: "C", PickupTime: at(22), TeardownTime: at(26)}

	if !a.ConflictsWith(b) {
		t.Error("18-22 and 20-24 overlap, expected conflict")
	}
	if !b.ConflictsWith(a) {
		t.Error("conflict check must be symmetric")
	}
	// Back-to-back windows do not conflict.
	if a.ConflictsWith(c) {
		t.Error("18-22 and 22-26 are back-to-back, expected no conflict")
	}
	if c.ConflictsWith(a) {
		t.Error("back-to-back check must be symmetric")
	}
}

func TestOrderPriority(t *testing.T) {
	cases := []struct {
		tags []string
		want Priority
	}{
		{[]string{"wedding"}, PriorityWedding},
		{[]string{"vip", "corporate"}, PriorityWedding},
		{[]string{"seminars"}, PriorityCorporate},
		{nil, PriorityStandard},
		{[]string{"pre-setup"}, PriorityStandard},
	}

	for _, tc := range cases {
		o := &Order{Tags: tc.tags}
		if got := o.Priority(); got != tc.want {
			t.Errorf("tags %v: Priority = %q, want %q", tc.tags, got, tc.want)
		}
	}
}

func TestCandidateAllocationEntries(t *testing.T) {
	c := NewCandidateAllocation()
	c.Assignments["DRV-002"] = []string{"Q2"}
	c.Assignments["DRV-001"] = []string{"Q1", "Q3"}
	c.Reasoning["Q1"] = "north region match"

	entries := c.Entries()
	if len(entries) != 3 {
		t.Fatalf("expected 3 entries, got %d", len(entries))
	}
	// Driver ids are sorted; assignment order preserved within a driver.
	if entries[0].OrderID != "Q1" || entries[1].OrderID != "Q3" || entries[2].OrderID != "Q2" {
		t.Fatalf("unexpected entry order: %+v", entries)
	}
	if entries[0].Reasoning != "north region match" {
		t.Errorf("reasoning not carried: %q", entries[0].Reasoning)
	}
}

func TestBlockingCount(t *testing.T) {
	violations := []Violation{
		{Kind: KindCapacity},
		{Kind: KindRegion},
		{Kind: KindUnmetOrder},
	}

	rules := DefaultRules()
	if got := BlockingCount(violations, rules); got != 1 {
		t.Errorf("BlockingCount = %d, want 1 (region and unmet-order are soft)", got)
	}

	rules.MandatoryCoverage = true
	if got := BlockingCount(violations, rules); got != 2 {
		t.Errorf("BlockingCount with mandatory coverage = %d, want 2", got)
	}
}
