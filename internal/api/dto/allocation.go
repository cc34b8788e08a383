package dto

import (
	"time"

	"catering-allocation-service/internal/domain"
	"catering-allocation-service/internal/services"
)

// AllocateRequest is the POST /allocate body. All fields are optional;
// zero values fall back to configured defaults.
type AllocateRequest struct {
	MaxAttempts       int    `json:"max_attempts"`
	MandatoryCoverage bool   `json:"mandatory_coverage"`
	Scorer            string `json:"scorer"`
}

// AllocateResponse summarizes a finished run for API clients. The raw
// prompts and completions stay in the attempt store; this is the
// decision-level view.
type AllocateResponse struct {
	RunID             string              `json:"run_id"`
	Outcome           string              `json:"outcome"`
	Accepted          bool                `json:"accepted"`
	AttemptsUsed      int                 `json:"attempts_used"`
	BestAttempt       int                 `json:"best_attempt"`
	Allocations       map[string][]string `json:"allocations"`
	Reasoning         map[string]string   `json:"reasoning"`
	Warnings          []string            `json:"warnings"`
	Violations        []domain.Violation  `json:"violations"`
	UnallocatedOrders []string            `json:"unallocated_orders"`
	Metrics           services.Metrics    `json:"metrics"`
}

// AttemptResponse is one audit-trail entry in GET /attempts. Prompts
// and raw completions stay in the attempt store and are not served.
type AttemptResponse struct {
	Number      int                `json:"attempt_number"`
	ParseFailed bool               `json:"parse_failed"`
	ParseReason string             `json:"parse_reason,omitempty"`
	Violations  []domain.Violation `json:"violations"`
	Score       int                `json:"score"`
	Accepted    bool               `json:"accepted"`
	CreatedAt   time.Time          `json:"created_at"`
}

type ListAttemptsResponse struct {
	RunID    string            `json:"run_id"`
	Attempts []AttemptResponse `json:"attempts"`
}
