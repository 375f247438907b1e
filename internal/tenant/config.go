package tenant

import (
	"errors"
	"fmt"
	"time"
)

// ErrInvalidConfig marks configuration problems detected at load time,
// before any pipeline run can trip over them.
var ErrInvalidConfig = errors.New("invalid client config")

// ClientConfig is the immutable per-tenant record. It is loaded by the
// Loader, shared read-only across concurrent requests, and never mutated by
// the pipeline.
type ClientConfig struct {
	ClientID   string `json:"client_id"`
	BrandName  string `json:"brand_name"`
	BrandVoice string `json:"brand_voice"`
	Tone       string `json:"default_tone,omitempty"`

	// AI provider credentials and generation parameters
	XAIAPIKey     string  `json:"xaiApiKey"`
	XAICollection string  `json:"xaiCollection,omitempty"`
	Model         string  `json:"model,omitempty"`
	MaxTokens     int     `json:"maxTokens,omitempty"`
	Temperature   float64 `json:"temperature,omitempty"`

	// Rate limiting
	RateLimitMax       int    `json:"rateLimitMax"`
	RateLimitTTL       int    `json:"rateLimitTtl"`
	RateLimitKeyPrefix string `json:"rateLimitKeyPrefix,omitempty"`

	// Feature flags
	EnabledFeatures        []string `json:"enabled_features,omitempty"`
	EnabledSocialPlatforms []string `json:"enabled_social_platforms,omitempty"`
	EnabledRoles           []string `json:"enabled_roles,omitempty"`

	// Optional outbound webhook fired for every relevant message
	WebhookURL string `json:"webhookUrl,omitempty"`

	// Platform webhook verification secrets
	InstagramVerifyToken  string `json:"instagramVerifyToken,omitempty"`
	FacebookVerifyToken   string `json:"facebookVerifyToken,omitempty"`
	TwitterConsumerSecret string `json:"twitterConsumerSecret,omitempty"`
	TwitterBearerToken    string `json:"twitterBearerToken,omitempty"`

	// Social handles and Graph API page credentials
	Handles         map[string]string `json:"handles,omitempty"`
	PageAccessToken string            `json:"pageAccessToken,omitempty"`

	// Prompt assembly
	PromptAdditions  string           `json:"enhancedPromptAdditions,omitempty"`
	BusinessSynopsis BusinessSynopsis `json:"business_synopsis"`

	// Posting schedule (UTC, "HH:MM")
	PostTimes       []string `json:"post_times,omitempty"`
	DoublePostTimes []string `json:"double_post_times,omitempty"`
	DoublePostDays  []string `json:"double_post_days,omitempty"`

	SupportEmail string `json:"supportEmail,omitempty"`
}

// BusinessSynopsis describes the tenant's business for prompt assembly
type BusinessSynopsis struct {
	Description string   `json:"description"`
	KeyAreas    []string `json:"key_areas,omitempty"`
	Mission     string   `json:"mission,omitempty"`
}

// Validate checks the fields every pipeline run depends on. Live providers
// additionally require an AI key, which they check at construction time.
func (c *ClientConfig) Validate() error {
	if c.ClientID == "" {
		return fmt.Errorf("%w: client_id is required", ErrInvalidConfig)
	}
	if c.BrandName == "" {
		return fmt.Errorf("%w: brand_name is required", ErrInvalidConfig)
	}
	if c.RateLimitMax < 0 {
		return fmt.Errorf("%w: rateLimitMax must not be negative", ErrInvalidConfig)
	}
	if c.RateLimitTTL < 0 {
		return fmt.Errorf("%w: rateLimitTtl must not be negative", ErrInvalidConfig)
	}
	return nil
}

// RateLimitWindow returns the rate-limit window as a duration, defaulting to
// one hour when unset.
func (c *ClientConfig) RateLimitWindow() time.Duration {
	if c.RateLimitTTL <= 0 {
		return time.Hour
	}
	return time.Duration(c.RateLimitTTL) * time.Second
}

// RateLimitPrefix returns the counter key prefix, defaulting to "rate_limit:"
func (c *ClientConfig) RateLimitPrefix() string {
	if c.RateLimitKeyPrefix == "" {
		return "rate_limit:"
	}
	return c.RateLimitKeyPrefix
}

// PlatformEnabled reports whether a social platform is enabled for the tenant
func (c *ClientConfig) PlatformEnabled(platform string) bool {
	for _, p := range c.EnabledSocialPlatforms {
		if p == platform {
			return true
		}
	}
	return false
}
