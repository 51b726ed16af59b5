package llm

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"voicebot/core"
)

const completionResponse = `{
	"id": "chatcmpl-1",
	"object": "chat.completion",
	"model": "llama-3.3-70b-versatile",
	"choices": [{"index": 0, "message": {"role": "assistant", "content": "2+2 equals 4."}, "finish_reason": "stop"}]
}`

// capturedRequest mirrors the slice of the OpenAI-compatible request body the
// tests care about.
type capturedRequest struct {
	Model    string `json:"model"`
	Messages []struct {
		Role    string `json:"role"`
		Content string `json:"content"`
	} `json:"messages"`
	MaxTokens        int     `json:"max_tokens"`
	Temperature      float32 `json:"temperature"`
	TopP             float32 `json:"top_p"`
	FrequencyPenalty float32 `json:"frequency_penalty"`
	PresencePenalty  float32 `json:"presence_penalty"`
}

func newService(t *testing.T, handler http.HandlerFunc) *GroqLLMService {
	t.Helper()
	ts := httptest.NewServer(handler)
	t.Cleanup(ts.Close)

	config := DefaultConfig()
	config.APIKey = "gsk-test-key"
	config.BaseURL = ts.URL + "/v1"
	return NewGroqLLMService(config, nil)
}

func TestComplete(t *testing.T) {
	var got capturedRequest
	var gotAuth string
	svc := newService(t, func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		body, _ := io.ReadAll(r.Body)
		if err := json.Unmarshal(body, &got); err != nil {
			t.Errorf("request body is not valid JSON: %v", err)
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(completionResponse))
	})

	history := []core.Message{
		{Role: core.RoleUser, Content: "hi"},
		{Role: core.RoleAssistant, Content: "hello!"},
	}
	response, err := svc.Complete(context.Background(), "What is 2+2?", history)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	// Output content is non-deterministic in production; only shape matters.
	if response == "" {
		t.Fatal("expected non-empty response")
	}
	if gotAuth != "Bearer gsk-test-key" {
		t.Fatalf("unexpected auth header: %q", gotAuth)
	}

	if got.Model != "llama-3.3-70b-versatile" {
		t.Fatalf("unexpected model: %q", got.Model)
	}
	if len(got.Messages) != 4 {
		t.Fatalf("expected system + 2 history + user, got %d messages", len(got.Messages))
	}
	if got.Messages[0].Role != "system" || got.Messages[0].Content != systemPrompt {
		t.Fatalf("system instruction must come first: %+v", got.Messages[0])
	}
	last := got.Messages[len(got.Messages)-1]
	if last.Role != "user" || last.Content != "What is 2+2?" {
		t.Fatalf("new user message must come last: %+v", last)
	}
	if got.MaxTokens != 150 || got.Temperature != 0.7 || got.TopP != 0.9 {
		t.Fatalf("sampling params not forwarded: %+v", got)
	}
	if got.FrequencyPenalty != 0.5 || got.PresencePenalty != 0.3 {
		t.Fatalf("penalties not forwarded: %+v", got)
	}
}

func TestCompleteNoHistory(t *testing.T) {
	var got capturedRequest
	svc := newService(t, func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		_ = json.Unmarshal(body, &got)
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(completionResponse))
	})

	if _, err := svc.Complete(context.Background(), "hello", nil); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(got.Messages) != 2 {
		t.Fatalf("expected system + user, got %d messages", len(got.Messages))
	}
}

func TestCompleteUpstreamError(t *testing.T) {
	svc := newService(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error": {"message": "rate limited"}}`, http.StatusTooManyRequests)
	})
	if _, err := svc.Complete(context.Background(), "hello", nil); err == nil {
		t.Fatal("expected error for non-200 response")
	}
}

func TestCompleteNoChoices(t *testing.T) {
	svc := newService(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"id": "chatcmpl-2", "object": "chat.completion", "choices": []}`))
	})
	if _, err := svc.Complete(context.Background(), "hello", nil); err == nil {
		t.Fatal("expected error for empty choices")
	}
}

func TestInitializeRequiresAPIKey(t *testing.T) {
	svc := NewGroqLLMService(DefaultConfig(), nil)
	if err := svc.Initialize(context.Background()); err == nil {
		t.Fatal("expected error for missing API key")
	}
}
