package handlers

import (
	"encoding/json"
	"io"
	"log"
	"net/http"

	"github.com/google/uuid"

	"catering-allocation-service/internal/api/dto"
	"catering-allocation-service/internal/domain"
	"catering-allocation-service/internal/ports"
	"catering-allocation-service/internal/services"
)

type AllocationHandler struct {
	Fleet              ports.FleetRepository
	Allocator          *services.Allocator
	DefaultMaxAttempts int
}

// Allocate runs a full allocation over the current fleet snapshots and
// returns the decision-level summary. Attempt prompts and raw
// completions go to the attempt store, not the response.
func (h *AllocationHandler) Allocate(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.Header().Set("Allow", http.MethodPost)
		writeError(w, r, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	var req dto.AllocateRequest

	dec := json.NewDecoder(r.Body)
	defer r.Body.Close()
	dec.DisallowUnknownFields()

	if err := dec.Decode(&req); err != nil && err != io.EOF {
		writeError(w, r, http.StatusBadRequest, "invalid json body")
		return
	}
	if err := dec.Decode(&struct{}{}); err != io.EOF {
		writeError(w, r, http.StatusBadRequest, "body must contain only one JSON object")
		return
	}

	maxAttempts := req.MaxAttempts
	if maxAttempts == 0 {
		maxAttempts = h.DefaultMaxAttempts
	}
	if maxAttempts < 1 || maxAttempts > 10 {
		writeError(w, r, http.StatusBadRequest, "max_attempts must be between 1 and 10")
		return
	}

	rules := domain.DefaultRules()
	rules.MandatoryCoverage = req.MandatoryCoverage

	var scorer services.Scorer
	switch req.Scorer {
	case "", "fewest-violations":
		scorer = services.FewestViolations
	case "weighted":
		scorer = services.WeightedScorer
	default:
		writeError(w, r, http.StatusBadRequest, "scorer must be fewest-violations or weighted")
		return
	}

	drivers, err := h.Fleet.ListDrivers(r.Context())
	if err != nil {
		log.Printf("list drivers failed: %v", err)
		writeError(w, r, http.StatusInternalServerError, "internal server error")
		return
	}
	orders, err := h.Fleet.ListOrders(r.Context())
	if err != nil {
		log.Printf("list orders failed: %v", err)
		writeError(w, r, http.StatusInternalServerError, "internal server error")
		return
	}
	if len(drivers) == 0 || len(orders) == 0 {
		writeError(w, r, http.StatusConflict, "fleet is empty, seed drivers and orders first")
		return
	}

	runID := uuid.NewString()
	res, err := h.Allocator.Allocate(r.Context(), services.AllocateRequest{
		RunID:       runID,
		MaxAttempts: maxAttempts,
		Rules:       &rules,
		Scorer:      scorer,
	}, drivers, orders)
	if err != nil {
		log.Printf("run_id=%s allocation failed: %v", runID, err)
		if ports.IsTransport(err) {
			writeError(w, r, http.StatusBadGateway, "completion provider unavailable")
			return
		}
		writeError(w, r, http.StatusInternalServerError, "internal server error")
		return
	}

	writeJSON(w, r, http.StatusOK, dto.AllocateResponse{
		RunID:             res.RunID,
		Outcome:           string(res.Outcome),
		Accepted:          res.Accepted,
		AttemptsUsed:      len(res.Attempts),
		BestAttempt:       res.BestAttempt,
		Allocations:       res.Candidate.Assignments,
		Reasoning:         res.Candidate.Reasoning,
		Warnings:          res.Candidate.Warnings,
		Violations:        res.Violations,
		UnallocatedOrders: services.UnmetOrders(res.Candidate, orders),
		Metrics:           res.Metrics,
	})
}
