package llm

import (
	"context"
	"fmt"

	"catering-allocation-service/internal/ports"
)

// One scripted step for the mock gateway: either canned completion
// text or an error to return.
type MockStep struct {
	Content string
	Err     error
}

// MockGateway replays a fixed sequence of responses, one per call.
// It lets tests drive the attempt loop through accept, repair, and
// transport-failure paths without a live provider.
type MockGateway struct {
	steps   []MockStep
	calls   int
	Prompts []string
}

func NewMockGateway(steps ...MockStep) *MockGateway {
	return &MockGateway{steps: steps}
}

func (m *MockGateway) Complete(ctx context.Context, prompt string) (ports.CompletionResult, error) {
	if err := ctx.Err(); err != nil {
		return ports.CompletionResult{}, err
	}

	m.Prompts = append(m.Prompts, prompt)
	if m.calls >= len(m.steps) {
		return ports.CompletionResult{}, fmt.Errorf("mock gateway: no scripted response for call %d", m.calls+1)
	}

	step := m.steps[m.calls]
	m.calls++

	if step.Err != nil {
		return ports.CompletionResult{}, step.Err
	}
	return ports.CompletionResult{
		Content: step.Content,
		Usage: ports.CompletionUsage{
			PromptTokens:     len(prompt) / 4,
			CompletionTokens: len(step.Content) / 4,
			TotalTokens:      (len(prompt) + len(step.Content)) / 4,
			Model:            "mock",
		},
	}, nil
}

// Calls returns how many times Complete was invoked.
func (m *MockGateway) Calls() int { return m.calls }
