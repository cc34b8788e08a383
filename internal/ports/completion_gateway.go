package ports

import (
	"context"
	"errors"
	"fmt"
)

// Token counts reported by the completion provider for a single call.
type CompletionUsage struct {
	PromptTokens     int    `json:"prompt_tokens"`
	CompletionTokens int    `json:"completion_tokens"`
	TotalTokens      int    `json:"total_tokens"`
	Model            string `json:"model"`
}

// Raw completion text plus usage for one gateway call.
type CompletionResult struct {
	Content string
	Usage   CompletionUsage
}

// Contract for the external text-completion capability. Implementations
// own transport-level retries; a returned error means the transport
// budget is already spent.
type CompletionGateway interface {
	// Send one prompt and return the raw completion text.
	Complete(ctx context.Context, prompt string) (CompletionResult, error)
}

// TransportError marks network, auth, rate-limit, and timeout failures
// from the completion provider. Distinct from validation failures: the
// attempt loop treats it as fatal for the run, not as repair feedback.
type TransportError struct {
	Op   string
	Code int
	Err  error
}

func (e *TransportError) Error() string {
	if e.Code != 0 {
		return fmt.Sprintf("completion transport: %s: status %d: %v", e.Op, e.Code, e.Err)
	}
	return fmt.Sprintf("completion transport: %s: %v", e.Op, e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

// IsTransport reports whether err is (or wraps) a TransportError.
func IsTransport(err error) bool {
	var te *TransportError
	return errors.As(err, &te)
}
