package ai

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/inexasli/automation-gateway/internal/config"
)

func completionServer(t *testing.T, content string) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/chat/completions" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		resp := map[string]interface{}{
			"id":    "cmpl-1",
			"model": "grok-3",
			"choices": []map[string]interface{}{
				{"index": 0, "message": map[string]string{"role": "assistant", "content": content}},
			},
		}
		json.NewEncoder(w).Encode(resp)
	}))
}

func TestComplete(t *testing.T) {
	srv := completionServer(t, "  hello there  ")
	defer srv.Close()

	c := NewClient(config.AIConfig{BaseURL: srv.URL, APIKey: "k", Model: "grok-3"})
	out, err := c.Complete(context.Background(), Request{
		SystemPrompt: "You are a test.",
		UserMessage:  "hi",
	})
	if err != nil {
		t.Fatalf("Complete failed: %v", err)
	}
	if out != "hello there" {
		t.Errorf("Expected trimmed reply, got %q", out)
	}
}

func TestAPIClientReused(t *testing.T) {
	c := NewClient(config.AIConfig{BaseURL: "http://localhost:1"})
	if c.apiClient("key-a") != c.apiClient("key-a") {
		t.Error("Expected the same client for repeated use of one key")
	}
	if c.apiClient("key-a") == c.apiClient("key-b") {
		t.Error("Expected distinct clients for distinct keys")
	}
}

func TestCompleteMissingKey(t *testing.T) {
	c := NewClient(config.AIConfig{BaseURL: "http://localhost:1"})
	_, err := c.Complete(context.Background(), Request{UserMessage: "hi"})
	if err == nil {
		t.Error("Expected error for missing API key")
	}
}
