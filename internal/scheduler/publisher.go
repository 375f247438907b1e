package scheduler

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/inexasli/automation-gateway/internal/tenant"
)

const (
	defaultGraphURL   = "https://graph.facebook.com/v21.0"
	defaultTwitterURL = "https://api.twitter.com"
)

// SocialPublisher posts generated content to the platform APIs. Instagram is
// intentionally unsupported: its Graph posting flow requires a media
// container, and the schedule produces text-only posts.
type SocialPublisher struct {
	graphURL   string
	twitterURL string
	httpClient *http.Client
}

// NewSocialPublisher creates a publisher against the live platform APIs
func NewSocialPublisher() *SocialPublisher {
	return &SocialPublisher{
		graphURL:   defaultGraphURL,
		twitterURL: defaultTwitterURL,
		httpClient: &http.Client{Timeout: 15 * time.Second},
	}
}

// NewSocialPublisherWithURLs creates a publisher against custom endpoints
func NewSocialPublisherWithURLs(graphURL, twitterURL string) *SocialPublisher {
	p := NewSocialPublisher()
	p.graphURL = graphURL
	p.twitterURL = twitterURL
	return p
}

// Publish implements Publisher
func (p *SocialPublisher) Publish(ctx context.Context, platform string, cfg *tenant.ClientConfig, content string) error {
	switch platform {
	case "facebook":
		return p.publishFacebook(ctx, cfg, content)
	case "twitter":
		return p.publishTwitter(ctx, cfg, content)
	case "instagram":
		return fmt.Errorf("instagram does not support text-only posts")
	default:
		return fmt.Errorf("unknown platform %q", platform)
	}
}

func (p *SocialPublisher) publishFacebook(ctx context.Context, cfg *tenant.ClientConfig, content string) error {
	if cfg.PageAccessToken == "" {
		return fmt.Errorf("facebook page access token is not configured")
	}

	form := url.Values{}
	form.Set("message", content)
	form.Set("access_token", cfg.PageAccessToken)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.graphURL+"/me/feed", strings.NewReader(form.Encode()))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	return p.do(req, "facebook")
}

func (p *SocialPublisher) publishTwitter(ctx context.Context, cfg *tenant.ClientConfig, content string) error {
	if cfg.TwitterBearerToken == "" {
		return fmt.Errorf("twitter bearer token is not configured")
	}

	body, err := json.Marshal(map[string]string{"text": content})
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.twitterURL+"/2/tweets", bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+cfg.TwitterBearerToken)

	return p.do(req, "twitter")
}

func (p *SocialPublisher) do(req *http.Request, platform string) error {
	resp, err := p.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%s post failed: %w", platform, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		respBody, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("%s API returned status %d: %s", platform, resp.StatusCode, string(respBody))
	}
	return nil
}
