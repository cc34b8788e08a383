package services

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"catering-allocation-service/internal/domain"
	"catering-allocation-service/internal/platform/obs"
	"catering-allocation-service/internal/ports"
)

// How an allocation run ended.
type RunOutcome string

const (
	OutcomeAccepted        RunOutcome = "accepted"
	OutcomeExhausted       RunOutcome = "exhausted"
	OutcomeCancelled       RunOutcome = "cancelled"
	OutcomeTransportFailed RunOutcome = "transport-failed"
)

// Scorer ranks attempts so the loop can keep a best-so-far candidate.
// Lower is better. Ties keep the earlier attempt.
type Scorer func(violations []domain.Violation, rules domain.Rules) int

// FewestViolations ranks attempts by raw violation count.
func FewestViolations(violations []domain.Violation, rules domain.Rules) int {
	return len(violations)
}

// WeightedScorer ranks attempts by the rules' per-kind penalty weights,
// so one scheduling conflict outweighs many region mismatches.
func WeightedScorer(violations []domain.Violation, rules domain.Rules) int {
	score := 0
	for _, v := range violations {
		score += rules.Weights[v.Kind]
	}
	return score
}

// Parameters for one allocation run. Zero values fall back to
// defaults: 5 attempts, DefaultRules, FewestViolations scoring.
type AllocateRequest struct {
	RunID       string
	MaxAttempts int
	Rules       *domain.Rules
	Scorer      Scorer
}

// Final result of an allocation run. Candidate and Violations describe
// the best attempt, accepted or not; Attempts is the full audit trail.
type RunResult struct {
	RunID       string                      `json:"run_id"`
	Outcome     RunOutcome                  `json:"outcome"`
	Attempts    []*domain.AttemptRecord     `json:"attempts"`
	BestAttempt int                         `json:"best_attempt"`
	Accepted    bool                        `json:"accepted"`
	Candidate   *domain.CandidateAllocation `json:"candidate"`
	Violations  []domain.Violation          `json:"violations"`
	Metrics     Metrics                     `json:"metrics"`
}

// Allocator drives the prompt/complete/parse/validate/repair loop.
type Allocator struct {
	Gateway ports.CompletionGateway
	Store   ports.AttemptStore
}

func NewAllocator(gateway ports.CompletionGateway, store ports.AttemptStore) *Allocator {
	return &Allocator{Gateway: gateway, Store: store}
}

// Allocate runs the bounded attempt loop over the given fleet
// snapshots. It stops early on the first candidate with zero blocking
// violations; otherwise it exhausts the attempt budget and returns the
// lowest-scoring candidate seen. A transport failure ends the run
// immediately, since the gateway has already spent its retry budget.
func (a *Allocator) Allocate(ctx context.Context, req AllocateRequest, drivers []*domain.Driver, orders []*domain.Order) (res *RunResult, err error) {
	ctx = obs.WithRunID(ctx, req.RunID)
	defer obs.Time(ctx, "allocate.run")(&err)

	maxAttempts := req.MaxAttempts
	if maxAttempts <= 0 {
		maxAttempts = 5
	}
	rules := domain.DefaultRules()
	if req.Rules != nil {
		rules = *req.Rules
	}
	score := req.Scorer
	if score == nil {
		score = FewestViolations
	}

	breakdown := AnalyzeFleet(drivers, orders)

	res = &RunResult{RunID: req.RunID, Outcome: OutcomeExhausted, BestAttempt: -1}
	bestScore := 0

	var prevCandidate *domain.CandidateAllocation
	var prevViolations []domain.Violation

	for attempt := 1; attempt <= maxAttempts; attempt++ {
		if ctxErr := ctx.Err(); ctxErr != nil {
			res.Outcome = OutcomeCancelled
			a.finish(res, drivers, orders)
			return res, fmt.Errorf("allocate run %s: %w", req.RunID, ctxErr)
		}

		var prompt string
		if attempt == 1 {
			prompt = BuildInitialPrompt(drivers, orders, rules, breakdown)
		} else {
			prompt = BuildRepairPrompt(prevCandidate, prevViolations, drivers, orders, rules, breakdown)
		}

		completion, gwErr := a.Gateway.Complete(ctx, prompt)
		if gwErr != nil {
			if errors.Is(gwErr, context.Canceled) || errors.Is(gwErr, context.DeadlineExceeded) {
				res.Outcome = OutcomeCancelled
			} else {
				res.Outcome = OutcomeTransportFailed
			}
			a.finish(res, drivers, orders)
			return res, fmt.Errorf("allocate run %s attempt %d: %w", req.RunID, attempt, gwErr)
		}

		rec := &domain.AttemptRecord{
			RunID:       req.RunID,
			Number:      attempt,
			Prompt:      prompt,
			RawResponse: completion.Content,
			CreatedAt:   time.Now().UTC(),
		}

		candidate, parseErr := ParseAllocation(completion.Content, drivers, orders)
		if parseErr != nil {
			var pe *ParseError
			reason := parseErr.Error()
			if errors.As(parseErr, &pe) {
				reason = pe.Reason
			}
			rec.ParseFailed = true
			rec.ParseReason = reason
			candidate = domain.NewCandidateAllocation()
			rec.Violations = append([]domain.Violation{{
				Kind:    domain.KindParseFailure,
				Message: reason,
			}}, Validate(candidate, drivers, orders, rules)...)
		} else {
			rec.Violations = Validate(candidate, drivers, orders, rules)
		}
		rec.Candidate = candidate
		rec.Score = score(rec.Violations, rules)

		blocking := domain.BlockingCount(rec.Violations, rules)
		rec.Accepted = blocking == 0

		log.Printf("run_id=%s attempt=%d violations=%d blocking=%d score=%d parse_failed=%t",
			req.RunID, attempt, len(rec.Violations), blocking, rec.Score, rec.ParseFailed)

		if a.Store != nil {
			if storeErr := a.Store.AppendAttempt(ctx, rec); storeErr != nil {
				log.Printf("run_id=%s attempt=%d attempt store append failed: %v", req.RunID, attempt, storeErr)
			}
		}
		res.Attempts = append(res.Attempts, rec)

		if res.BestAttempt < 0 || rec.Score < bestScore {
			res.BestAttempt = attempt
			bestScore = rec.Score
			res.Candidate = candidate
			res.Violations = rec.Violations
		}

		if rec.Accepted {
			res.Outcome = OutcomeAccepted
			res.Accepted = true
			res.BestAttempt = attempt
			res.Candidate = candidate
			res.Violations = rec.Violations
			break
		}

		prevCandidate = candidate
		prevViolations = rec.Violations
	}

	a.finish(res, drivers, orders)
	return res, nil
}

// finish fills derived fields so callers always get a usable result,
// even when every attempt failed to parse.
func (a *Allocator) finish(res *RunResult, drivers []*domain.Driver, orders []*domain.Order) {
	if res.Candidate == nil {
		res.Candidate = domain.NewCandidateAllocation()
	}
	res.Metrics = CalculateMetrics(res.Candidate, drivers, orders)
}
