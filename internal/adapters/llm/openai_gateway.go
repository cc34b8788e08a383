package llm

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"strings"
	"time"

	"catering-allocation-service/internal/platform/obs"
	"catering-allocation-service/internal/ports"
)

// OpenAIGateway implements CompletionGateway against an
// OpenAI-compatible chat-completions endpoint.
//
// It coordinates:
//   - Persistent completion caching keyed by prompt digest
//   - External API calls with retry/backoff
//   - Side-channel token usage reporting
//
// The gateway is safe for concurrent use.
type OpenAIGateway struct {
	session     *http.Client
	apiKey      string
	baseURL     string
	model       string
	temperature float64
	maxTokens   int
	cache       ports.CompletionCache
	usage       ports.UsageReporter
}

type Options struct {
	BaseURL     string
	Model       string
	Temperature float64
	MaxTokens   int
	Timeout     time.Duration
	// Optional collaborators; nil disables the concern.
	Cache ports.CompletionCache
	Usage ports.UsageReporter
}

func NewOpenAIGateway(apiKey string, opts Options) (*OpenAIGateway, error) {
	if strings.TrimSpace(apiKey) == "" {
		return nil, errors.New("openai api key is empty")
	}

	baseURL := strings.TrimRight(opts.BaseURL, "/")
	if baseURL == "" {
		baseURL = "https://api.openai.com/v1"
	}
	model := opts.Model
	if model == "" {
		model = "gpt-4.1"
	}
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = 120 * time.Second
	}

	return &OpenAIGateway{
		session:     &http.Client{Timeout: timeout},
		apiKey:      apiKey,
		baseURL:     baseURL,
		model:       model,
		temperature: opts.Temperature,
		maxTokens:   opts.MaxTokens,
		cache:       opts.Cache,
		usage:       opts.Usage,
	}, nil
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model          string        `json:"model"`
	Messages       []chatMessage `json:"messages"`
	Temperature    float64       `json:"temperature,omitempty"`
	MaxTokens      int           `json:"max_tokens,omitempty"`
	ResponseFormat any           `json:"response_format,omitempty"`
}

type chatResponse struct {
	Choices []struct {
		Message      chatMessage `json:"message"`
		FinishReason string      `json:"finish_reason"`
	} `json:"choices"`
	Usage struct {
		PromptTokens     int `json:"prompt_tokens"`
		CompletionTokens int `json:"completion_tokens"`
		TotalTokens      int `json:"total_tokens"`
	} `json:"usage"`
}

const systemPrompt = "You are an expert logistics optimizer. Always respond with valid JSON only."

// Complete sends one prompt and returns the raw completion text.
// A cache hit replays the stored completion without an API call.
func (g *OpenAIGateway) Complete(ctx context.Context, prompt string) (_ ports.CompletionResult, err error) {
	defer obs.Time(ctx, "llm.Complete")(&err)

	if strings.TrimSpace(prompt) == "" {
		return ports.CompletionResult{}, errors.New("complete: prompt must be non-empty")
	}

	digest := PromptDigest(prompt)
	if g.cache != nil {
		content, ok, cacheErr := g.cache.Get(ctx, digest)
		if cacheErr != nil {
			// Cache trouble downgrades to a live call.
			log.Printf("op=llm.cache.get err=%v", cacheErr)
		} else if ok {
			return ports.CompletionResult{Content: content}, nil
		}
	}

	payload, err := json.Marshal(chatRequest{
		Model: g.model,
		Messages: []chatMessage{
			{Role: "system", Content: systemPrompt},
			{Role: "user", Content: prompt},
		},
		Temperature:    g.temperature,
		MaxTokens:      g.maxTokens,
		ResponseFormat: map[string]string{"type": "json_object"},
	})
	if err != nil {
		return ports.CompletionResult{}, fmt.Errorf("complete: marshal request: %w", err)
	}

	resp, err := g.doWithRetry(ctx, func() (*http.Request, error) {
		return g.newRequest(ctx, http.MethodPost, g.baseURL+"/chat/completions", bytes.NewReader(payload))
	})
	if err != nil {
		return ports.CompletionResult{}, wrapTransport("chat completion", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return ports.CompletionResult{}, wrapTransport("read response", err)
	}

	var parsed chatResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return ports.CompletionResult{}, &ports.TransportError{Op: "decode response", Err: err}
	}
	if len(parsed.Choices) == 0 {
		return ports.CompletionResult{}, &ports.TransportError{Op: "decode response", Err: errors.New("no choices in response")}
	}

	result := ports.CompletionResult{
		Content: parsed.Choices[0].Message.Content,
		Usage: ports.CompletionUsage{
			PromptTokens:     parsed.Usage.PromptTokens,
			CompletionTokens: parsed.Usage.CompletionTokens,
			TotalTokens:      parsed.Usage.TotalTokens,
			Model:            g.model,
		},
	}

	if g.usage != nil {
		g.usage.Record(result.Usage)
	}

	if g.cache != nil {
		if cacheErr := g.cache.Put(ctx, digest, result.Content); cacheErr != nil {
			log.Printf("op=llm.cache.put err=%v", cacheErr)
		}
	}

	return result, nil
}

// PromptDigest returns the cache key for a prompt. Prompt construction
// is deterministic, so equal inputs share a digest across runs.
func PromptDigest(prompt string) string {
	sum := sha256.Sum256([]byte(prompt))
	return hex.EncodeToString(sum[:])
}

func wrapTransport(op string, err error) error {
	var he *httpStatusError
	if errors.As(err, &he) {
		return &ports.TransportError{Op: op, Code: he.Code, Err: err}
	}
	if ports.IsTransport(err) {
		return err
	}
	return &ports.TransportError{Op: op, Err: err}
}
