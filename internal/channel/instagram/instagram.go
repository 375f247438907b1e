package instagram

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/inexasli/automation-gateway/internal/channel"
	"github.com/inexasli/automation-gateway/internal/pipeline"
	"github.com/inexasli/automation-gateway/internal/tenant"
)

const defaultGraphURL = "https://graph.instagram.com/v21.0"

// Adapter handles Instagram DM webhooks: verification handshake, payload
// normalization, and Graph API sends. It is webhook-driven, so the HTTP
// server invokes it directly instead of running it as a long-lived adapter.
type Adapter struct {
	graphURL   string
	httpClient *http.Client
}

// NewAdapter creates an Instagram adapter
func NewAdapter() *Adapter {
	return &Adapter{
		graphURL:   defaultGraphURL,
		httpClient: &http.Client{Timeout: 10 * time.Second},
	}
}

// NewAdapterWithGraphURL creates an adapter against a custom Graph endpoint,
// used in tests
func NewAdapterWithGraphURL(url string) *Adapter {
	a := NewAdapter()
	a.graphURL = url
	return a
}

// Verify answers the platform verification handshake: echo the challenge
// when the mode is subscribe and the token matches the tenant's secret.
func (a *Adapter) Verify(mode, token, challenge string, cfg *tenant.ClientConfig) (string, bool) {
	if mode == "subscribe" && token != "" && token == cfg.InstagramVerifyToken {
		return challenge, true
	}
	return "", false
}

type webhookPayload struct {
	Object string `json:"object"`
	Entry  []struct {
		ID        string `json:"id"`
		Time      int64  `json:"time"`
		Messaging []struct {
			Sender struct {
				ID string `json:"id"`
			} `json:"sender"`
			Timestamp int64 `json:"timestamp"`
			Message   struct {
				MID    string `json:"mid"`
				Text   string `json:"text"`
				IsEcho bool   `json:"is_echo"`
			} `json:"message"`
		} `json:"messaging"`
	} `json:"entry"`
}

// Normalize converts an Instagram webhook payload into the canonical
// message. Returns nil for payloads that carry no user text (echoes,
// reactions, delivery receipts).
func (a *Adapter) Normalize(payload []byte) (*channel.Message, error) {
	var p webhookPayload
	if err := json.Unmarshal(payload, &p); err != nil {
		return nil, fmt.Errorf("malformed instagram payload: %w", err)
	}
	if p.Object != "instagram" {
		return nil, nil
	}

	for _, entry := range p.Entry {
		for _, m := range entry.Messaging {
			if m.Message.IsEcho || m.Message.Text == "" {
				continue
			}
			return &channel.Message{
				ID:        m.Message.MID,
				Channel:   "instagram",
				UserID:    m.Sender.ID,
				SessionID: m.Sender.ID,
				Content:   m.Message.Text,
				InputType: pipeline.InputDM,
				Timestamp: m.Timestamp / 1000,
			}, nil
		}
	}
	return nil, nil
}

type sendRequest struct {
	Recipient struct {
		ID string `json:"id"`
	} `json:"recipient"`
	Message struct {
		Text string `json:"text"`
	} `json:"message"`
}

// SendMessage delivers reply text to an Instagram user via the Graph API
func (a *Adapter) SendMessage(ctx context.Context, recipientID, text, accessToken string) error {
	if accessToken == "" {
		return fmt.Errorf("instagram access token is not configured")
	}

	var req sendRequest
	req.Recipient.ID = recipientID
	req.Message.Text = text

	body, err := json.Marshal(req)
	if err != nil {
		return err
	}

	url := fmt.Sprintf("%s/me/messages?access_token=%s", a.graphURL, accessToken)
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return err
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := a.httpClient.Do(httpReq)
	if err != nil {
		return fmt.Errorf("instagram send failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		respBody, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("instagram API returned status %d: %s", resp.StatusCode, string(respBody))
	}
	return nil
}
