package azure

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/jxucoder/PatchPilot/llm"
)

func TestComplete(t *testing.T) {
	var gotURL, gotKey string
	var gotBody map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotURL = r.URL.String()
		gotKey = r.Header.Get("api-key")
		if err := json.NewDecoder(r.Body).Decode(&gotBody); err != nil {
			t.Errorf("decoding request body: %v", err)
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"choices":[{"message":{"content":"the patch"}}]}`))
	}))
	defer srv.Close()

	c := New(srv.URL, "secret", "gpt-4o", "2024-02-01")
	got, err := c.Complete(context.Background(), llm.Request{Prompt: "fix it", Temperature: 0.8, MaxTokens: 64})
	if err != nil {
		t.Fatalf("Complete() returned unexpected error: %v", err)
	}
	if got != "the patch" {
		t.Errorf("Complete() = %q, want %q", got, "the patch")
	}
	wantURL := "/openai/deployments/gpt-4o/chat/completions?api-version=2024-02-01"
	if gotURL != wantURL {
		t.Errorf("request URL = %q, want %q", gotURL, wantURL)
	}
	if gotKey != "secret" {
		t.Errorf("api-key header = %q, want %q", gotKey, "secret")
	}
	if gotBody["max_tokens"].(float64) != 64 {
		t.Errorf("max_tokens = %v, want 64", gotBody["max_tokens"])
	}
	if gotBody["temperature"].(float64) != 0.8 {
		t.Errorf("temperature = %v, want 0.8", gotBody["temperature"])
	}
	msgs := gotBody["messages"].([]any)
	if len(msgs) != 1 {
		t.Fatalf("messages = %v, want a single user message", msgs)
	}
	msg := msgs[0].(map[string]any)
	if msg["role"] != "user" || msg["content"] != "fix it" {
		t.Errorf("message = %v, want the user prompt", msg)
	}
}

func TestComplete_HTTPError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "quota exceeded", http.StatusTooManyRequests)
	}))
	defer srv.Close()

	c := New(srv.URL, "secret", "gpt-4o", "2024-02-01")
	_, err := c.Complete(context.Background(), llm.Request{Prompt: "fix it"})
	if err == nil {
		t.Fatal("Complete() should return an error on a non-200 response")
	}
	if !strings.Contains(err.Error(), "429") || !strings.Contains(err.Error(), "quota exceeded") {
		t.Errorf("error %q should carry the status and body", err.Error())
	}
}

func TestComplete_NoChoices(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"choices":[]}`))
	}))
	defer srv.Close()

	c := New(srv.URL, "secret", "gpt-4o", "2024-02-01")
	_, err := c.Complete(context.Background(), llm.Request{Prompt: "fix it"})
	if err == nil {
		t.Fatal("Complete() should return an error when the response has no choices")
	}
}
