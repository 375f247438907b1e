package reply

import (
	"context"
	"fmt"
	"strings"

	"github.com/inexasli/automation-gateway/internal/ai"
	"github.com/inexasli/automation-gateway/internal/pipeline"
	"github.com/inexasli/automation-gateway/internal/tenant"
)

const socialPrompt = `You are responding on social media. Keep responses professional, engaging, and concise.`

const replyTemperature = 0.7

// Generator produces the user-visible reply, assembling the system prompt
// from the tenant's brand configuration. The pipeline maps any error from
// here to a fallback apology, so callers always get some response.
type Generator struct {
	client *ai.Client
}

// NewGenerator creates an AI-backed reply generator
func NewGenerator(client *ai.Client) *Generator {
	return &Generator{client: client}
}

// Generate implements pipeline.ReplyGenerator
func (g *Generator) Generate(ctx context.Context, in pipeline.ReplyInput) (pipeline.ReplyResult, error) {
	if in.Client.XAIAPIKey == ai.TestKey {
		return pipeline.ReplyResult{
			Reply: fmt.Sprintf("Mock response: I received your message %q. This is test mode since using test API key.", in.Message),
		}, nil
	}

	temperature := float32(replyTemperature)
	if in.Client.Temperature > 0 {
		temperature = float32(in.Client.Temperature)
	}

	raw, err := g.client.Complete(ctx, ai.Request{
		APIKey:       in.Client.XAIAPIKey,
		Model:        in.Client.Model,
		SystemPrompt: systemPrompt(in.InputType, in.Client),
		UserMessage:  in.Message,
		Temperature:  temperature,
		MaxTokens:    in.Client.MaxTokens,
	})
	if err != nil {
		return pipeline.ReplyResult{}, err
	}
	if raw == "" {
		return pipeline.ReplyResult{}, fmt.Errorf("empty reply from provider")
	}

	return pipeline.ReplyResult{Reply: raw}, nil
}

// systemPrompt builds the per-channel system prompt. Chat gets the full
// brand persona; social DMs and post replies get the short social prompt.
func systemPrompt(inputType pipeline.InputType, cfg *tenant.ClientConfig) string {
	if inputType != pipeline.InputChat {
		return socialPrompt
	}

	var b strings.Builder
	fmt.Fprintf(&b, "You are %s, %s. %s", cfg.BrandName, cfg.BrandVoice, cfg.BusinessSynopsis.Description)
	if len(cfg.BusinessSynopsis.KeyAreas) > 0 {
		fmt.Fprintf(&b, " Key areas: %s.", strings.Join(cfg.BusinessSynopsis.KeyAreas, ", "))
	}
	if cfg.BusinessSynopsis.Mission != "" {
		fmt.Fprintf(&b, " Mission: %s.", cfg.BusinessSynopsis.Mission)
	}
	if cfg.PromptAdditions != "" {
		b.WriteString("\n\n")
		b.WriteString(cfg.PromptAdditions)
	}
	fmt.Fprintf(&b, "\n\nRespond conversationally to the user message. Use the provided knowledge base collections to give accurate, specific information about %s services and processes.", cfg.BrandName)
	return b.String()
}
