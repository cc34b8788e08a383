package services

import (
	"context"
	"errors"
	"strings"
	"testing"

	"catering-allocation-service/internal/adapters/llm"
	"catering-allocation-service/internal/domain"
	"catering-allocation-service/internal/ports"
)

type memAttemptStore struct {
	records []*domain.AttemptRecord
}

func (s *memAttemptStore) AppendAttempt(ctx context.Context, rec *domain.AttemptRecord) error {
	s.records = append(s.records, rec)
	return nil
}

func (s *memAttemptStore) ListAttempts(ctx context.Context, runID string) ([]*domain.AttemptRecord, error) {
	var out []*domain.AttemptRecord
	for _, rec := range s.records {
		if rec.RunID == runID {
			out = append(out, rec)
		}
	}
	return out, nil
}

const goodResponse = `{"allocations":{"DRV-001":["Q1001","Q1002"],"DRV-002":["Q1003"],"DRV-003":["Q1004"]},"reasoning":{"Q1001":"wedding capable, home region"},"warnings":["Q1005 needs pre-setup but DRV-001 is busy in its window"]}`

func TestAllocateAcceptsFirstAttempt(t *testing.T) {
	drivers, orders := testFleet()
	store := &memAttemptStore{}
	alloc := NewAllocator(llm.NewMockGateway(llm.MockStep{Content: goodResponse}), store)

	res, err := alloc.Allocate(context.Background(), AllocateRequest{RunID: "run-accept"}, drivers, orders)
	if err != nil {
		t.Fatalf("Allocate: %v", err)
	}

	if res.Outcome != OutcomeAccepted || !res.Accepted {
		t.Fatalf("outcome = %s accepted = %t, want accepted", res.Outcome, res.Accepted)
	}
	if len(res.Attempts) != 1 || res.BestAttempt != 1 {
		t.Errorf("attempts = %d best = %d, want 1/1", len(res.Attempts), res.BestAttempt)
	}
	if len(store.records) != 1 || !store.records[0].Accepted {
		t.Errorf("store records = %v, want one accepted record", store.records)
	}
	if res.Metrics.TotalAllocated != 4 || res.Metrics.TotalUnallocated != 1 {
		t.Errorf("metrics allocated/unallocated = %d/%d, want 4/1",
			res.Metrics.TotalAllocated, res.Metrics.TotalUnallocated)
	}
}

func TestAllocateRepairsThenAccepts(t *testing.T) {
	drivers, orders := testFleet()
	// First attempt puts the wedding order on a driver without the
	// capability; the second fixes it.
	bad := `{"allocations":{"DRV-002":["Q1001","Q1003"]}}`

	gateway := llm.NewMockGateway(
		llm.MockStep{Content: bad},
		llm.MockStep{Content: goodResponse},
	)
	alloc := NewAllocator(gateway, &memAttemptStore{})

	res, err := alloc.Allocate(context.Background(), AllocateRequest{RunID: "run-repair"}, drivers, orders)
	if err != nil {
		t.Fatalf("Allocate: %v", err)
	}

	if res.Outcome != OutcomeAccepted || len(res.Attempts) != 2 || res.BestAttempt != 2 {
		t.Fatalf("outcome = %s attempts = %d best = %d, want accepted/2/2",
			res.Outcome, len(res.Attempts), res.BestAttempt)
	}
	if gateway.Calls() != 2 {
		t.Errorf("gateway calls = %d, want 2", gateway.Calls())
	}

	repair := gateway.Prompts[1]
	if !strings.Contains(repair, "YOUR PREVIOUS ALLOCATION") {
		t.Error("second prompt is not a repair prompt")
	}
	if !strings.Contains(repair, string(domain.KindRequirement)) {
		t.Error("repair prompt does not mention the capability violation")
	}
}

func TestAllocateExhaustsBudgetAndKeepsBest(t *testing.T) {
	drivers, orders := testFleet()
	// Unknown driver on every attempt, with attempt 2 strictly best.
	worse := `{"allocations":{"DRV-999":["Q1001"],"DRV-998":["Q1002"]}}`
	better := `{"allocations":{"DRV-999":["Q1001"],"DRV-002":["Q1003"]}}`

	gateway := llm.NewMockGateway(
		llm.MockStep{Content: worse},
		llm.MockStep{Content: better},
		llm.MockStep{Content: worse},
	)
	store := &memAttemptStore{}
	alloc := NewAllocator(gateway, store)

	res, err := alloc.Allocate(context.Background(), AllocateRequest{RunID: "run-exhaust", MaxAttempts: 3}, drivers, orders)
	if err != nil {
		t.Fatalf("Allocate: %v", err)
	}

	if res.Outcome != OutcomeExhausted || res.Accepted {
		t.Fatalf("outcome = %s accepted = %t, want exhausted", res.Outcome, res.Accepted)
	}
	if gateway.Calls() != 3 || len(res.Attempts) != 3 || len(store.records) != 3 {
		t.Fatalf("calls/attempts/records = %d/%d/%d, want 3/3/3",
			gateway.Calls(), len(res.Attempts), len(store.records))
	}
	if res.BestAttempt != 2 {
		t.Errorf("best attempt = %d, want 2", res.BestAttempt)
	}
	if _, ok := res.Candidate.Assignments["DRV-999"]; !ok {
		t.Error("best candidate not carried into the result")
	}
}

func TestAllocateParseFailureBecomesViolation(t *testing.T) {
	drivers, orders := testFleet()
	gateway := llm.NewMockGateway(
		llm.MockStep{Content: "I am unable to comply."},
		llm.MockStep{Content: goodResponse},
	)
	alloc := NewAllocator(gateway, &memAttemptStore{})

	res, err := alloc.Allocate(context.Background(), AllocateRequest{RunID: "run-parse"}, drivers, orders)
	if err != nil {
		t.Fatalf("Allocate: %v", err)
	}

	first := res.Attempts[0]
	if !first.ParseFailed || first.ParseReason == "" {
		t.Fatalf("first attempt parse_failed = %t reason = %q, want failure recorded", first.ParseFailed, first.ParseReason)
	}
	if len(first.Violations) == 0 || first.Violations[0].Kind != domain.KindParseFailure {
		t.Errorf("first attempt violations = %v, want parse-failure first", first.Violations)
	}
	if res.Outcome != OutcomeAccepted || res.BestAttempt != 2 {
		t.Errorf("outcome = %s best = %d, want recovery on attempt 2", res.Outcome, res.BestAttempt)
	}
}

func TestAllocateTransportFailureEndsRun(t *testing.T) {
	drivers, orders := testFleet()
	gateway := llm.NewMockGateway(
		llm.MockStep{Err: &ports.TransportError{Op: "chat completion", Code: 401, Err: errors.New("invalid api key")}},
	)
	alloc := NewAllocator(gateway, &memAttemptStore{})

	res, err := alloc.Allocate(context.Background(), AllocateRequest{RunID: "run-transport"}, drivers, orders)
	if err == nil {
		t.Fatal("Allocate succeeded, want transport error")
	}
	if !ports.IsTransport(err) {
		t.Errorf("error = %v, want TransportError in chain", err)
	}
	if res == nil || res.Outcome != OutcomeTransportFailed {
		t.Errorf("result = %+v, want transport-failed outcome with usable metrics", res)
	}
}

func TestAllocateHonorsCancellation(t *testing.T) {
	drivers, orders := testFleet()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	alloc := NewAllocator(llm.NewMockGateway(llm.MockStep{Content: goodResponse}), &memAttemptStore{})
	res, err := alloc.Allocate(ctx, AllocateRequest{RunID: "run-cancel"}, drivers, orders)
	if err == nil {
		t.Fatal("Allocate succeeded on cancelled context")
	}
	if res.Outcome != OutcomeCancelled {
		t.Errorf("outcome = %s, want cancelled", res.Outcome)
	}
}

func TestAllocateMandatoryCoverageBlocksUnmet(t *testing.T) {
	drivers, orders := testFleet()
	rules := domain.DefaultRules()
	rules.MandatoryCoverage = true

	// goodResponse leaves Q1005 unmet, so under mandatory coverage the
	// run must not accept it.
	gateway := llm.NewMockGateway(
		llm.MockStep{Content: goodResponse},
		llm.MockStep{Content: goodResponse},
	)
	alloc := NewAllocator(gateway, &memAttemptStore{})

	res, err := alloc.Allocate(context.Background(), AllocateRequest{RunID: "run-coverage", MaxAttempts: 2, Rules: &rules}, drivers, orders)
	if err != nil {
		t.Fatalf("Allocate: %v", err)
	}
	if res.Outcome != OutcomeExhausted || res.Accepted {
		t.Errorf("outcome = %s accepted = %t, want exhausted", res.Outcome, res.Accepted)
	}
}

func TestWeightedScorerOrdersByPenalty(t *testing.T) {
	rules := domain.DefaultRules()
	scheduling := []domain.Violation{{Kind: domain.KindSchedulingConflict}}
	regions := []domain.Violation{
		{Kind: domain.KindRegion}, {Kind: domain.KindRegion}, {Kind: domain.KindRegion},
	}

	if WeightedScorer(scheduling, rules) <= WeightedScorer(regions, rules) {
		t.Error("one scheduling conflict should outweigh several region mismatches")
	}
	if FewestViolations(scheduling, rules) >= FewestViolations(regions, rules) {
		t.Error("raw count scorer should prefer the single violation")
	}
}
