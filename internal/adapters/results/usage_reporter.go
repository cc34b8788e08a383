package results

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"catering-allocation-service/internal/ports"
)

// Per-call usage entry in the report file.
type usageRecord struct {
	RecordedAt       time.Time `json:"recorded_at"`
	Model            string    `json:"model"`
	PromptTokens     int       `json:"prompt_tokens"`
	CompletionTokens int       `json:"completion_tokens"`
	TotalTokens      int       `json:"total_tokens"`
}

type usageReport struct {
	RunID                 string        `json:"run_id"`
	Calls                 int           `json:"calls"`
	TotalPromptTokens     int           `json:"total_prompt_tokens"`
	TotalCompletionTokens int           `json:"total_completion_tokens"`
	TotalTokens           int           `json:"total_tokens"`
	EstimatedCostUSD      float64       `json:"estimated_cost_usd"`
	Records               []usageRecord `json:"records"`
}

// TokenUsageReporter buffers per-call token usage in memory and writes
// a single report file when Flush is called at run end. Record never
// blocks and never fails the attempt loop.
type TokenUsageReporter struct {
	Dir             string
	RunID           string
	InputCostPer1M  float64
	OutputCostPer1M float64

	mu      sync.Mutex
	records []usageRecord
}

func NewTokenUsageReporter(dir, runID string, inputCostPer1M, outputCostPer1M float64) *TokenUsageReporter {
	return &TokenUsageReporter{
		Dir:             dir,
		RunID:           runID,
		InputCostPer1M:  inputCostPer1M,
		OutputCostPer1M: outputCostPer1M,
	}
}

var _ ports.UsageReporter = (*TokenUsageReporter)(nil)

func (r *TokenUsageReporter) Record(usage ports.CompletionUsage) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.records = append(r.records, usageRecord{
		RecordedAt:       time.Now().UTC(),
		Model:            usage.Model,
		PromptTokens:     usage.PromptTokens,
		CompletionTokens: usage.CompletionTokens,
		TotalTokens:      usage.TotalTokens,
	})
}

// Totals returns aggregate token counts and the estimated cost so far.
func (r *TokenUsageReporter) Totals() (prompt, completion int, costUSD float64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, rec := range r.records {
		prompt += rec.PromptTokens
		completion += rec.CompletionTokens
	}
	costUSD = float64(prompt)/1e6*r.InputCostPer1M + float64(completion)/1e6*r.OutputCostPer1M
	return prompt, completion, costUSD
}

// Flush writes the accumulated report to
// <dir>/token_usage_<run_id>.json and returns its path.
func (r *TokenUsageReporter) Flush() (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	report := usageReport{
		RunID:   r.RunID,
		Calls:   len(r.records),
		Records: r.records,
	}
	for _, rec := range r.records {
		report.TotalPromptTokens += rec.PromptTokens
		report.TotalCompletionTokens += rec.CompletionTokens
		report.TotalTokens += rec.TotalTokens
	}
	report.EstimatedCostUSD = float64(report.TotalPromptTokens)/1e6*r.InputCostPer1M +
		float64(report.TotalCompletionTokens)/1e6*r.OutputCostPer1M

	if err := os.MkdirAll(r.Dir, 0o755); err != nil {
		return "", fmt.Errorf("flush usage report: create dir: %w", err)
	}
	path := filepath.Join(r.Dir, fmt.Sprintf("token_usage_%s.json", r.RunID))
	data, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		return "", fmt.Errorf("flush usage report: marshal: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", fmt.Errorf("flush usage report: %w", err)
	}
	return path, nil
}
