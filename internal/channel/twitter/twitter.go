package twitter

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/inexasli/automation-gateway/internal/channel"
	"github.com/inexasli/automation-gateway/internal/pipeline"
	"github.com/inexasli/automation-gateway/internal/tenant"
)

const defaultAPIURL = "https://api.twitter.com/1.1"

// Adapter handles Twitter/X account-activity webhooks. Twitter uses CRC
// challenge-response instead of the Graph hub handshake: the response token
// is an HMAC-SHA256 of the crc_token under the consumer secret.
type Adapter struct {
	apiURL     string
	httpClient *http.Client
}

func NewAdapter() *Adapter {
	return &Adapter{
		apiURL:     defaultAPIURL,
		httpClient: &http.Client{Timeout: 10 * time.Second},
	}
}

func NewAdapterWithAPIURL(url string) *Adapter {
	a := NewAdapter()
	a.apiURL = url
	return a
}

// CRCResponse answers the CRC handshake for the tenant
func (a *Adapter) CRCResponse(crcToken string, cfg *tenant.ClientConfig) (string, error) {
	if cfg.TwitterConsumerSecret == "" {
		return "", fmt.Errorf("twitter consumer secret is not configured")
	}
	mac := hmac.New(sha256.New, []byte(cfg.TwitterConsumerSecret))
	mac.Write([]byte(crcToken))
	return "sha256=" + base64.StdEncoding.EncodeToString(mac.Sum(nil)), nil
}

type webhookPayload struct {
	ForUserID           string `json:"for_user_id"`
	DirectMessageEvents []struct {
		Type             string `json:"type"`
		ID               string `json:"id"`
		CreatedTimestamp string `json:"created_timestamp"`
		MessageCreate    struct {
			SenderID    string `json:"sender_id"`
			MessageData struct {
				Text string `json:"text"`
			} `json:"message_data"`
		} `json:"message_create"`
	} `json:"direct_message_events"`
}

// Normalize converts an account-activity payload into the canonical
// message. DMs sent by the account itself are ignored to avoid loops.
func (a *Adapter) Normalize(payload []byte) (*channel.Message, error) {
	var p webhookPayload
	if err := json.Unmarshal(payload, &p); err != nil {
		return nil, fmt.Errorf("malformed twitter payload: %w", err)
	}

	for _, ev := range p.DirectMessageEvents {
		if ev.Type != "message_create" || ev.MessageCreate.MessageData.Text == "" {
			continue
		}
		if ev.MessageCreate.SenderID == p.ForUserID {
			continue // our own outbound DM echoed back
		}
		return &channel.Message{
			ID:        ev.ID,
			Channel:   "twitter",
			UserID:    ev.MessageCreate.SenderID,
			SessionID: ev.MessageCreate.SenderID,
			Content:   ev.MessageCreate.MessageData.Text,
			InputType: pipeline.InputDM,
		}, nil
	}
	return nil, nil
}

type sendEvent struct {
	Event struct {
		Type          string `json:"type"`
		MessageCreate struct {
			Target struct {
				RecipientID string `json:"recipient_id"`
			} `json:"target"`
			MessageData struct {
				Text string `json:"text"`
			} `json:"message_data"`
		} `json:"message_create"`
	} `json:"event"`
}

// SendMessage delivers a DM to a Twitter user
func (a *Adapter) SendMessage(ctx context.Context, recipientID, text, bearerToken string) error {
	if bearerToken == "" {
		return fmt.Errorf("twitter bearer token is not configured")
	}

	var ev sendEvent
	ev.Event.Type = "message_create"
	ev.Event.MessageCreate.Target.RecipientID = recipientID
	ev.Event.MessageCreate.MessageData.Text = text

	body, err := json.Marshal(ev)
	if err != nil {
		return err
	}

	url := a.apiURL + "/direct_messages/events/new.json"
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return err
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+bearerToken)

	resp, err := a.httpClient.Do(httpReq)
	if err != nil {
		return fmt.Errorf("twitter send failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		respBody, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("twitter API returned status %d: %s", resp.StatusCode, string(respBody))
	}
	return nil
}
