package handlers

import (
	"log"
	"net/http"
	"strings"

	"catering-allocation-service/internal/api/dto"
	"catering-allocation-service/internal/ports"
)

type AttemptHandler struct {
	Store ports.AttemptStore
}

// List serves the audit trail for a run: GET /attempts?run_id=<id>.
func (h *AttemptHandler) List(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.Header().Set("Allow", http.MethodGet)
		writeError(w, r, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	runID := strings.TrimSpace(r.URL.Query().Get("run_id"))
	if runID == "" {
		writeError(w, r, http.StatusBadRequest, "run_id is required")
		return
	}

	records, err := h.Store.ListAttempts(r.Context(), runID)
	if err != nil {
		log.Printf("list attempts failed: run_id=%s err=%v", runID, err)
		writeError(w, r, http.StatusInternalServerError, "internal server error")
		return
	}
	if len(records) == 0 {
		writeError(w, r, http.StatusNotFound, "no attempts recorded for run")
		return
	}

	res := dto.ListAttemptsResponse{
		RunID:    runID,
		Attempts: make([]dto.AttemptResponse, 0, len(records)),
	}
	for _, rec := range records {
		res.Attempts = append(res.Attempts, dto.AttemptResponse{
			Number:      rec.Number,
			ParseFailed: rec.ParseFailed,
			ParseReason: rec.ParseReason,
			Violations:  rec.Violations,
			Score:       rec.Score,
			Accepted:    rec.Accepted,
			CreatedAt:   rec.CreatedAt,
		})
	}

	writeJSON(w, r, http.StatusOK, res)
}
