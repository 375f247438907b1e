package webhook

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/inexasli/automation-gateway/internal/pipeline"
)

// Dispatcher delivers tenant webhooks. Delivery is best-effort: the pipeline
// logs failures and moves on, a down endpoint must never block a reply.
type Dispatcher struct {
	httpClient *http.Client
}

// NewDispatcher creates a webhook dispatcher
func NewDispatcher(timeout time.Duration) *Dispatcher {
	if timeout <= 0 {
		timeout = 3 * time.Second
	}
	return &Dispatcher{
		httpClient: &http.Client{Timeout: timeout},
	}
}

// Send posts the payload as JSON to the tenant's webhook URL
func (d *Dispatcher) Send(ctx context.Context, url string, payload pipeline.WebhookPayload) (pipeline.WebhookResult, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return pipeline.WebhookResult{}, fmt.Errorf("failed to marshal payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return pipeline.WebhookResult{}, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := d.httpClient.Do(req)
	if err != nil {
		return pipeline.WebhookResult{}, fmt.Errorf("webhook request failed: %w", err)
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, resp.Body)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return pipeline.WebhookResult{}, fmt.Errorf("webhook returned status %d", resp.StatusCode)
	}

	return pipeline.WebhookResult{Sent: true}, nil
}
