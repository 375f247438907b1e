package pipeline

import (
	"github.com/inexasli/automation-gateway/internal/tenant"
)

// InputType identifies the kind of inbound message
type InputType string

const (
	InputChat InputType = "chat"
	InputDM   InputType = "dm"
	InputPost InputType = "post"
)

// Input is the canonical platform-neutral shape all channel adapters
// normalize into before a pipeline run.
type Input struct {
	SessionID string
	Message   string
	InputType InputType
	Client    *tenant.ClientConfig
}

// Context is the mutable per-request working set threaded through the
// stages. It is created fresh per inbound message, owned exclusively by one
// run, and discarded once the Result is returned. The ClientConfig reference
// is shared and never mutated.
type Context struct {
	SessionID string
	Message   string
	InputType InputType
	Client    *tenant.ClientConfig

	RateLimit RateLimitResult
	Relevance RelevanceResult
	Intent    IntentResult
	Knowledge KnowledgeResult
	Webhook   WebhookResult
	Usage     UsageResult
	Reply     ReplyResult
}

// ResultKind tags the terminal outcome of a pipeline run
type ResultKind string

const (
	KindRateLimited ResultKind = "rate_limited"
	KindOffTopic    ResultKind = "off_topic"
	KindReplied     ResultKind = "replied"
)

// Canned user-facing messages for the gating rejections and the reply
// fallback. These are answers, not errors.
const (
	RateLimitedMessage = "Rate limit exceeded. Please try again later."
	OffTopicMessage    = "This message appears to be off-topic. Please ask about business-related matters."
	FallbackReply      = "Sorry, I encountered an error generating a response."
)

// Result is the single terminal outcome of a pipeline run: exactly one of
// RateLimited, OffTopic, or Replied.
type Result struct {
	Kind ResultKind

	// Message carries the canned text for gating rejections
	Message string

	// Replied fields
	Reply     string
	SessionID string
	InputType InputType

	Diagnostics Diagnostics
}

// Diagnostics carries the per-stage outputs for observability. Each field is
// captured at the time its stage ran, never re-derived afterwards.
type Diagnostics struct {
	Relevance        RelevanceResult `json:"relevance"`
	Intent           IntentResult    `json:"intent"`
	KnowledgeUpdated bool            `json:"knowledgeUpdated"`
	Knowledge        string          `json:"knowledge,omitempty"`
	WebhookSent      bool            `json:"webhookSent"`
	UsageTracked     bool            `json:"usageTracked"`
	Error            string          `json:"error,omitempty"`
}
