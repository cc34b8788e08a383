package llm

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"catering-allocation-service/internal/ports"
)

func chatBody(content string) string {
	resp := map[string]any{
		"choices": []map[string]any{
			{"message": map[string]string{"role": "assistant", "content": content}, "finish_reason": "stop"},
		},
		"usage": map[string]int{"prompt_tokens": 100, "completion_tokens": 40, "total_tokens": 140},
	}
	b, _ := json.Marshal(resp)
	return string(b)
}

func TestOpenAIGatewayComplete(t *testing.T) {
	var gotAuth string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		if r.URL.Path != "/chat/completions" {
			t.Errorf("unexpected path %q", r.URL.Path)
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(chatBody(`{"allocations":{}}`)))
	}))
	defer srv.Close()

	g, err := NewOpenAIGateway("test-key", Options{BaseURL: srv.URL, Model: "gpt-test"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	result, err := g.Complete(context.Background(), "allocate these orders")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if gotAuth != "Bearer test-key" {
		t.Errorf("auth header = %q", gotAuth)
	}
	if result.Content != `{"allocations":{}}` {
		t.Errorf("content = %q", result.Content)
	}
	if result.Usage.TotalTokens != 140 {
		t.Errorf("total tokens = %d, want 140", result.Usage.TotalTokens)
	}
	if result.Usage.Model != "gpt-test" {
		t.Errorf("usage model = %q", result.Usage.Model)
	}
}

func TestOpenAIGatewayRetriesServerErrors(t *testing.T) {
	calls := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		if calls < 3 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		w.Write([]byte(chatBody("ok")))
	}))
	defer srv.Close()

	g, err := NewOpenAIGateway("test-key", Options{BaseURL: srv.URL})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	result, err := g.Complete(context.Background(), "prompt")
	if err != nil {
		t.Fatalf("expected retry to succeed, got %v", err)
	}
	if calls != 3 {
		t.Errorf("expected 3 calls, got %d", calls)
	}
	if result.Content != "ok" {
		t.Errorf("content = %q", result.Content)
	}
}

func TestOpenAIGatewayAuthFailureIsTransport(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		w.Write([]byte(`{"error":"bad key"}`))
	}))
	defer srv.Close()

	g, err := NewOpenAIGateway("bad-key", Options{BaseURL: srv.URL})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	_, err = g.Complete(context.Background(), "prompt")
	if err == nil {
		t.Fatal("expected error")
	}
	if !ports.IsTransport(err) {
		t.Errorf("expected TransportError, got %T: %v", err, err)
	}
}

type fakeCache struct {
	store map[string]string
	gets  int
	puts  int
}

func (f *fakeCache) Get(ctx context.Context, digest string) (string, bool, error) {
	f.gets++
	v, ok := f.store[digest]
	return v, ok, nil
}

func (f *fakeCache) Put(ctx context.Context, digest, content string) error {
	f.puts++
	f.store[digest] = content
	return nil
}

func TestOpenAIGatewayCacheHitSkipsCall(t *testing.T) {
	calls := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.Write([]byte(chatBody("fresh")))
	}))
	defer srv.Close()

	cache := &fakeCache{store: map[string]string{}}
	g, err := NewOpenAIGateway("test-key", Options{BaseURL: srv.URL, Cache: cache})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	first, err := g.Complete(context.Background(), "same prompt")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	second, err := g.Complete(context.Background(), "same prompt")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if calls != 1 {
		t.Errorf("expected 1 upstream call, got %d", calls)
	}
	if first.Content != "fresh" || second.Content != "fresh" {
		t.Errorf("contents = %q, %q", first.Content, second.Content)
	}
	if cache.puts != 1 {
		t.Errorf("expected 1 cache put, got %d", cache.puts)
	}
}
