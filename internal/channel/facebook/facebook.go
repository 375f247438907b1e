package facebook

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

const defaultGraphURL = "https://graph.facebook.com/v21.0"

// Adapter handles Facebook Messenger webhooks. Same handshake and payload
// shape as Instagram (both are Graph platforms), but the payload object is
// "page" and sends go through the page access token.
type Adapter struct {
	graphURL   string
	httpClient *http.Client
}

func NewAdapter() *Adapter {
	return &Adapter{
		graphURL:   defaultGraphURL,
		httpClient: &http.Client{Timeout: 10 * time.Second},
	}
}

func NewAdapterWithGraphURL(url string) *Adapter {
	a := NewAdapter()
	a.graphURL = url
	return a
}

// Verify answers the Messenger verification handshake
func (a *Adapter) Verify(mode, token, challenge string, cfg *tenant.ClientConfig) (string, bool) {
	if mode == "subscribe" && token != "" && token == cfg.FacebookVerifyToken {
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

// Normalize converts a Messenger webhook payload into the canonical message
func (a *Adapter) Normalize(payload []byte) (*channel.Message, error) {
	var p webhookPayload
	if err := json.Unmarshal(payload, &p); err != nil {
		return nil, fmt.Errorf("malformed facebook payload: %w", err)
	}
	if p.Object != "page" {
		return nil, nil
	}

	for _, entry := range p.Entry {
		for _, m := range entry.Messaging {
			if m.Message.IsEcho || m.Message.Text == "" {
				continue
			}
			return &channel.Message{
				ID:        m.Message.MID,
				Channel:   "facebook",
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
	MessagingType string `json:"messaging_type"`
}

// SendMessage delivers reply text to a Messenger user via the Graph API
func (a *Adapter) SendMessage(ctx context.Context, recipientID, text, pageAccessToken string) error {
	if pageAccessToken == "" {
		return fmt.Errorf("facebook page access token is not configured")
	}

	var req sendRequest
	req.Recipient.ID = recipientID
	req.Message.Text = text
	req.MessagingType = "RESPONSE"

	body, err := json.Marshal(req)
	if err != nil {
		return err
	}

	url := fmt.Sprintf("%s/me/messages?access_token=%s", a.graphURL, pageAccessToken)
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return err
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := a.httpClient.Do(httpReq)
	if err != nil {
		return fmt.Errorf("facebook send failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		respBody, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("facebook API returned status %d: %s", resp.StatusCode, string(respBody))
	}
	return nil
}
