package pipeline

import (
	"context"

	"github.com/inexasli/automation-gateway/internal/tenant"
)

// Each capability is a single-method contract so a mock and a live
// implementation are interchangeable without touching the runner.

// RateLimitResult is the rate limiter stage output
type RateLimitResult struct {
	Allowed   bool `json:"allowed"`
	Remaining int  `json:"remaining"`
}

// RateLimiter decides whether a session may proceed. Counters must support
// atomic increment-and-check so concurrent requests for the same session
// cannot both slip under the limit.
type RateLimiter interface {
	Check(ctx context.Context, sessionID string, cfg *tenant.ClientConfig) (RateLimitResult, error)
}

// RelevanceResult is the relevance classifier stage output
type RelevanceResult struct {
	IsRelevant bool    `json:"isRelevant"`
	Confidence float64 `json:"confidence"`
	Err        string  `json:"error,omitempty"`
}

// RelevanceClassifier decides whether a message is business-related.
// Implementations fail open: on provider error they return
// isRelevant=true, confidence=0.5.
type RelevanceClassifier interface {
	Classify(ctx context.Context, message string, cfg *tenant.ClientConfig) (RelevanceResult, error)
}

// IntentResult is the intent classifier stage output
type IntentResult struct {
	Intent     string  `json:"intent"`
	Confidence float64 `json:"confidence"`
}

// IntentClassifier assigns one of the closed set of roles (customer, lead,
// prospect, existing_client, other). Classification is advisory: unknown or
// failed classifications map to "other".
type IntentClassifier interface {
	Classify(ctx context.Context, message string, cfg *tenant.ClientConfig) (IntentResult, error)
}

// KnowledgeResult is the knowledge update detector output
type KnowledgeResult struct {
	Updated   bool   `json:"updated"`
	Knowledge string `json:"knowledge,omitempty"`
}

// KnowledgeDetector inspects a message for a training directive. Pure, no I/O.
type KnowledgeDetector interface {
	Detect(message string) KnowledgeResult
}

// WebhookPayload is what the dispatcher posts to the tenant's webhook URL
type WebhookPayload struct {
	Message   string `json:"message"`
	SessionID string `json:"sessionId"`
	ClientID  string `json:"clientId"`
}

// WebhookResult is the webhook dispatch stage output
type WebhookResult struct {
	Sent bool `json:"sent"`
}

// WebhookDispatcher delivers the tenant webhook. Best-effort: failures are
// logged, never raised.
type WebhookDispatcher interface {
	Send(ctx context.Context, url string, payload WebhookPayload) (WebhookResult, error)
}

// UsageResult is the usage tracking stage output
type UsageResult struct {
	Tracked bool `json:"tracked"`
}

// UsageTracker records a billable action for a session. Best-effort.
type UsageTracker interface {
	Record(ctx context.Context, sessionID string, cfg *tenant.ClientConfig, action string) (UsageResult, error)
}

// ReplyInput is what the reply generator consumes
type ReplyInput struct {
	InputType InputType
	Message   string
	SessionID string
	Client    *tenant.ClientConfig
}

// ReplyResult is the reply generation stage output
type ReplyResult struct {
	Reply string `json:"reply"`
}

// ReplyGenerator produces the user-visible reply. Implementations must
// always resolve; internal failures map to a fallback reply string.
type ReplyGenerator interface {
	Generate(ctx context.Context, in ReplyInput) (ReplyResult, error)
}

// Providers bundles the capability implementations injected into a Runner.
// Constructed once per process; no ambient globals.
type Providers struct {
	RateLimiter RateLimiter
	Relevance   RelevanceClassifier
	Intent      IntentClassifier
	Knowledge   KnowledgeDetector
	Webhook     WebhookDispatcher
	Usage       UsageTracker
	Reply       ReplyGenerator
}
