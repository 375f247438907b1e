package channel

import (
	"context"

	"github.com/inexasli/automation-gateway/internal/pipeline"
)

// Message is the canonical inbound message every adapter normalizes into
type Message struct {
	ID        string
	Channel   string
	UserID    string
	SessionID string
	Content   string
	InputType pipeline.InputType
	Metadata  map[string]string
	Timestamp int64
}

// Response is the canonical reply an adapter translates back to its platform
type Response struct {
	Content  string
	Metadata map[string]string
}

// Adapter is the contract for long-running channels (chat widget, bot APIs)
// that push messages over a channel. Webhook-driven platforms implement
// Normalizer and Sender instead and are invoked by the HTTP server.
type Adapter interface {
	// Start starts the channel adapter
	Start(ctx context.Context) error

	// Stop stops the channel adapter
	Stop() error

	// SendMessage sends a reply to a platform user
	SendMessage(userID string, resp *Response) error

	// Incoming returns the channel of normalized inbound messages
	Incoming() <-chan *Message

	// Name returns the platform name
	Name() string

	// IsEnabled returns whether the channel is enabled
	IsEnabled() bool
}

// Normalizer converts a platform webhook payload into a canonical Message.
// A nil message means "ignore, not a user message" (echoes, delivery
// receipts, non-text events).
type Normalizer interface {
	Normalize(payload []byte) (*Message, error)
}
