package classify

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/inexasli/automation-gateway/internal/ai"
	"github.com/inexasli/automation-gateway/internal/pipeline"
	"github.com/inexasli/automation-gateway/internal/tenant"
)

const intentPrompt = `You are an intent detector. Classify the user's message into one of these roles: customer, lead, prospect, existing_client, other. Respond with JSON: {"intent": "role", "confidence": 0.0-1.0}`

// IntentDefault is the safe intent when classification cannot produce a
// structured answer.
const IntentDefault = "other"

// knownIntents is the closed set of roles; anything else maps to other
var knownIntents = map[string]bool{
	"customer":        true,
	"lead":            true,
	"prospect":        true,
	"existing_client": true,
	"other":           true,
}

// IntentClassifier assigns a role to the message author. Advisory only: the
// pipeline degrades to other/0.5 when this fails.
type IntentClassifier struct {
	client *ai.Client
}

// NewIntentClassifier creates an AI-backed intent classifier
func NewIntentClassifier(client *ai.Client) *IntentClassifier {
	return &IntentClassifier{client: client}
}

type intentPayload struct {
	Intent     string   `json:"intent"`
	Confidence *float64 `json:"confidence"`
}

// Classify implements pipeline.IntentClassifier
func (c *IntentClassifier) Classify(ctx context.Context, message string, cfg *tenant.ClientConfig) (pipeline.IntentResult, error) {
	if cfg.XAIAPIKey == ai.TestKey {
		return pipeline.IntentResult{Intent: "customer", Confidence: 0.9}, nil
	}

	raw, err := c.client.Complete(ctx, ai.Request{
		APIKey:       cfg.XAIAPIKey,
		Model:        cfg.Model,
		SystemPrompt: intentPrompt,
		UserMessage:  message,
		Temperature:  classifyTemperature,
	})
	if err != nil {
		return pipeline.IntentResult{}, err
	}

	var payload intentPayload
	if err := json.Unmarshal(extractJSON(raw), &payload); err != nil {
		return pipeline.IntentResult{}, fmt.Errorf("malformed intent response %q: %w", raw, err)
	}

	intent := payload.Intent
	if !knownIntents[intent] {
		intent = IntentDefault
	}

	return pipeline.IntentResult{
		Intent:     intent,
		Confidence: clampConfidence(payload.Confidence),
	}, nil
}
