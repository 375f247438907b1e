package reply

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/inexasli/automation-gateway/internal/ai"
	"github.com/inexasli/automation-gateway/internal/config"
	"github.com/inexasli/automation-gateway/internal/pipeline"
	"github.com/inexasli/automation-gateway/internal/tenant"
)

func brandClient(key string) *tenant.ClientConfig {
	return &tenant.ClientConfig{
		ClientID:   "inexasli",
		BrandName:  "INEXASLI",
		BrandVoice: "AI automation expert",
		XAIAPIKey:  key,
		BusinessSynopsis: tenant.BusinessSynopsis{
			Description: "Inexasli is an AI-powered platform.",
			KeyAreas:    []string{"workflow automation", "AI consulting"},
			Mission:     "Empowering businesses with intelligent automation.",
		},
	}
}

func TestGenerateTestMode(t *testing.T) {
	g := NewGenerator(ai.NewClient(config.AIConfig{BaseURL: "http://localhost:1"}))

	res, err := g.Generate(context.Background(), pipeline.ReplyInput{
		InputType: pipeline.InputChat,
		Message:   "What are your hours?",
		SessionID: "s1",
		Client:    brandClient(ai.TestKey),
	})
	if err != nil {
		t.Fatalf("Generate failed: %v", err)
	}
	if !strings.Contains(res.Reply, "What are your hours?") {
		t.Errorf("Expected echo of the message, got %q", res.Reply)
	}
}

func TestGenerateChatPromptAssembly(t *testing.T) {
	var gotSystem string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Messages []struct {
				Role    string `json:"role"`
				Content string `json:"content"`
			} `json:"messages"`
		}
		json.NewDecoder(r.Body).Decode(&req)
		for _, m := range req.Messages {
			if m.Role == "system" {
				gotSystem = m.Content
			}
		}
		json.NewEncoder(w).Encode(map[string]interface{}{
			"choices": []map[string]interface{}{
				{"message": map[string]string{"role": "assistant", "content": "We are open 9 to 5."}},
			},
		})
	}))
	defer srv.Close()

	g := NewGenerator(ai.NewClient(config.AIConfig{BaseURL: srv.URL}))
	res, err := g.Generate(context.Background(), pipeline.ReplyInput{
		InputType: pipeline.InputChat,
		Message:   "What are your hours?",
		Client:    brandClient("xai-live"),
	})
	if err != nil {
		t.Fatalf("Generate failed: %v", err)
	}
	if res.Reply != "We are open 9 to 5." {
		t.Errorf("Unexpected reply %q", res.Reply)
	}
	for _, want := range []string{"INEXASLI", "AI automation expert", "workflow automation", "Mission:"} {
		if !strings.Contains(gotSystem, want) {
			t.Errorf("System prompt missing %q:\n%s", want, gotSystem)
		}
	}
}

func TestGenerateSocialPrompt(t *testing.T) {
	if got := systemPrompt(pipeline.InputDM, brandClient("k")); got != socialPrompt {
		t.Errorf("Expected social prompt for DMs, got %q", got)
	}
	if got := systemPrompt(pipeline.InputPost, brandClient("k")); got != socialPrompt {
		t.Errorf("Expected social prompt for posts, got %q", got)
	}
}

func TestGenerateProviderError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "upstream broken", http.StatusBadGateway)
	}))
	defer srv.Close()

	g := NewGenerator(ai.NewClient(config.AIConfig{BaseURL: srv.URL}))
	_, err := g.Generate(context.Background(), pipeline.ReplyInput{
		InputType: pipeline.InputChat,
		Message:   "hi",
		Client:    brandClient("xai-live"),
	})
	if err == nil {
		t.Error("Expected error from failing provider")
	}
}
