package ai

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"sync"

	openai "github.com/sashabaranov/go-openai"

	"github.com/inexasli/automation-gateway/internal/config"
)

// TestKey is the sentinel API key tenants use for local development.
// Providers short-circuit to canned responses when they see it.
const TestKey = "test-key-for-local-dev"

// DefaultBaseURL is the xAI chat-completions endpoint. The API is
// OpenAI-compatible, so the client library is pointed at it directly.
const DefaultBaseURL = "https://api.x.ai/v1"

// Client is a chat-completions client shared by the classifiers and reply
// generator. The API key is per-tenant and supplied per call.
type Client struct {
	baseURL      string
	defaultModel string
	fallbackKey  string
	httpClient   *http.Client

	mu      sync.Mutex
	clients map[string]*openai.Client
}

// Request is a single-turn chat completion request
type Request struct {
	APIKey       string
	Model        string
	SystemPrompt string
	UserMessage  string
	Temperature  float32
	MaxTokens    int
}

// NewClient creates a new AI client from the process config
func NewClient(cfg config.AIConfig) *Client {
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	model := cfg.Model
	if model == "" {
		model = "grok-3"
	}
	return &Client{
		baseURL:      baseURL,
		defaultModel: model,
		fallbackKey:  cfg.APIKey,
		httpClient:   &http.Client{Timeout: cfg.GetTimeout()},
		clients:      make(map[string]*openai.Client),
	}
}

// apiClient returns the cached completion client for an API key, building
// it on first use. Keys are per-tenant, so the cache stays small.
func (c *Client) apiClient(apiKey string) *openai.Client {
	c.mu.Lock()
	defer c.mu.Unlock()
	if cl, ok := c.clients[apiKey]; ok {
		return cl
	}
	clientCfg := openai.DefaultConfig(apiKey)
	clientCfg.BaseURL = c.baseURL
	clientCfg.HTTPClient = c.httpClient
	cl := openai.NewClientWithConfig(clientCfg)
	c.clients[apiKey] = cl
	return cl
}

// Complete sends a system+user message pair and returns the assistant text
func (c *Client) Complete(ctx context.Context, req Request) (string, error) {
	apiKey := req.APIKey
	if apiKey == "" {
		apiKey = c.fallbackKey
	}
	if apiKey == "" {
		return "", fmt.Errorf("AI API key is not configured")
	}

	model := req.Model
	if model == "" {
		model = c.defaultModel
	}

	client := c.apiClient(apiKey)

	messages := []openai.ChatCompletionMessage{}
	if req.SystemPrompt != "" {
		messages = append(messages, openai.ChatCompletionMessage{
			Role:    openai.ChatMessageRoleSystem,
			Content: req.SystemPrompt,
		})
	}
	messages = append(messages, openai.ChatCompletionMessage{
		Role:    openai.ChatMessageRoleUser,
		Content: req.UserMessage,
	})

	resp, err := client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:       model,
		Messages:    messages,
		Temperature: req.Temperature,
		MaxTokens:   req.MaxTokens,
	})
	if err != nil {
		return "", fmt.Errorf("chat completion failed: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("no choices in response")
	}

	return strings.TrimSpace(resp.Choices[0].Message.Content), nil
}
