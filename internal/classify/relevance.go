package classify

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/inexasli/automation-gateway/internal/ai"
	"github.com/inexasli/automation-gateway/internal/pipeline"
	"github.com/inexasli/automation-gateway/internal/tenant"
)

const relevancePrompt = `You are a relevance classifier. Analyze the user's message and determine if it's business-related (e.g., work, professional inquiries, sales, services). Respond with JSON: {"isRelevant": true/false, "confidence": 0.0-1.0}`

// classifyTemperature keeps classifier answers deterministic
const classifyTemperature = 0.1

// RelevanceClassifier decides whether a message is business-related. Errors
// surface to the pipeline, which fails open (relevant, confidence 0.5):
// false rejection is worse than answering an off-topic question.
type RelevanceClassifier struct {
	client *ai.Client
}

// NewRelevanceClassifier creates an AI-backed relevance classifier
func NewRelevanceClassifier(client *ai.Client) *RelevanceClassifier {
	return &RelevanceClassifier{client: client}
}

type relevancePayload struct {
	IsRelevant *bool    `json:"isRelevant"`
	Confidence *float64 `json:"confidence"`
}

// Classify implements pipeline.RelevanceClassifier
func (c *RelevanceClassifier) Classify(ctx context.Context, message string, cfg *tenant.ClientConfig) (pipeline.RelevanceResult, error) {
	if cfg.XAIAPIKey == ai.TestKey {
		lower := strings.ToLower(message)
		return pipeline.RelevanceResult{
			IsRelevant: strings.Contains(lower, "business") || strings.Contains(lower, "work"),
			Confidence: 0.8,
		}, nil
	}

	raw, err := c.client.Complete(ctx, ai.Request{
		APIKey:       cfg.XAIAPIKey,
		Model:        cfg.Model,
		SystemPrompt: relevancePrompt,
		UserMessage:  message,
		Temperature:  classifyTemperature,
	})
	if err != nil {
		return pipeline.RelevanceResult{}, err
	}

	var payload relevancePayload
	if err := json.Unmarshal(extractJSON(raw), &payload); err != nil {
		return pipeline.RelevanceResult{}, fmt.Errorf("malformed relevance response %q: %w", raw, err)
	}
	if payload.IsRelevant == nil {
		return pipeline.RelevanceResult{}, fmt.Errorf("relevance response missing isRelevant: %q", raw)
	}

	return pipeline.RelevanceResult{
		IsRelevant: *payload.IsRelevant,
		Confidence: clampConfidence(payload.Confidence),
	}, nil
}

// extractJSON pulls the JSON object out of a model answer that may wrap it
// in markdown fences or prose.
func extractJSON(raw string) []byte {
	start := strings.Index(raw, "{")
	end := strings.LastIndex(raw, "}")
	if start < 0 || end < start {
		return []byte(raw)
	}
	return []byte(raw[start : end+1])
}

func clampConfidence(v *float64) float64 {
	if v == nil {
		return 0.5
	}
	if *v < 0 {
		return 0
	}
	if *v > 1 {
		return 1
	}
	return *v
}
