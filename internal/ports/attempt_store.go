package ports

import (
	"catering-allocation-service/internal/domain"
	"context"
)

// Port: append-only audit trail of allocation attempts. Records are
// written once per attempt and never updated.
type AttemptStore interface {
	// Append one attempt record to the run's trail.
	AppendAttempt(ctx context.Context, rec *domain.AttemptRecord) error
	// Return all attempts for a run in attempt order.
	ListAttempts(ctx context.Context, runID string) ([]*domain.AttemptRecord, error)
}

// Port: cache of raw completions keyed by prompt digest. Prompts are
// deterministic, so a hit replays the provider's earlier answer and
// makes reruns reproducible without spending tokens.
type CompletionCache interface {
	// Look up a cached completion. ok is false on a miss.
	Get(ctx context.Context, promptDigest string) (content string, ok bool, err error)
	// Store a completion for the digest.
	Put(ctx context.Context, promptDigest string, content string) error
}

// Port: side-channel token and cost accounting. Record must never
// block the attempt loop; implementations buffer and flush at run end.
type UsageReporter interface {
	Record(usage CompletionUsage)
}
