package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/inexasli/automation-gateway/internal/ai"
	"github.com/inexasli/automation-gateway/internal/metrics"
	"github.com/inexasli/automation-gateway/internal/tenant"
)

const postPrompt = `You are a social media content creator. Write a single short post (no hashtag spam, at most two hashtags) promoting the business described below. Return only the post text.`

const postTemperature = 0.7

// ConfigLoader resolves a tenant's client config
type ConfigLoader interface {
	Get(clientID string) (*tenant.ClientConfig, error)
}

// Publisher delivers generated post content to a social platform
type Publisher interface {
	Publish(ctx context.Context, platform string, cfg *tenant.ClientConfig, content string) error
}

// Scheduler runs the per-tenant social posting schedule. Each tenant's
// post_times become daily cron entries; double_post_times fire only on the
// tenant's double_post_days. All times are UTC.
type Scheduler struct {
	cron     *cron.Cron
	loader   ConfigLoader
	aiClient *ai.Client
	pub      Publisher
	logger   *slog.Logger
}

// New creates a scheduler over the given tenants
func New(loader ConfigLoader, aiClient *ai.Client, pub Publisher, logger *slog.Logger) *Scheduler {
	return &Scheduler{
		cron:     cron.New(cron.WithLocation(time.UTC)),
		loader:   loader,
		aiClient: aiClient,
		pub:      pub,
		logger:   logger,
	}
}

// Register adds a tenant's posting schedule. Malformed times are logged and
// skipped so one bad entry never blocks the rest of the schedule.
func (s *Scheduler) Register(clientID string) error {
	cfg, err := s.loader.Get(clientID)
	if err != nil {
		return fmt.Errorf("cannot schedule posts for %s: %w", clientID, err)
	}

	for _, t := range cfg.PostTimes {
		spec, err := cronSpec(t, nil)
		if err != nil {
			s.logger.Warn("Skipping invalid post time", "client", clientID, "time", t, "error", err)
			continue
		}
		s.addJob(clientID, spec)
	}

	if len(cfg.DoublePostDays) > 0 {
		for _, t := range cfg.DoublePostTimes {
			spec, err := cronSpec(t, cfg.DoublePostDays)
			if err != nil {
				s.logger.Warn("Skipping invalid double post time", "client", clientID, "time", t, "error", err)
				continue
			}
			s.addJob(clientID, spec)
		}
	}

	return nil
}

func (s *Scheduler) addJob(clientID, spec string) {
	_, err := s.cron.AddFunc(spec, func() {
		ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
		defer cancel()
		s.runPost(ctx, clientID)
	})
	if err != nil {
		s.logger.Error("Failed to register post job", "client", clientID, "spec", spec, "error", err)
	}
}

// Start starts the cron loop
func (s *Scheduler) Start() {
	s.cron.Start()
}

// Stop stops the cron loop and waits for running jobs
func (s *Scheduler) Stop() {
	ctx := s.cron.Stop()
	<-ctx.Done()
}

// runPost generates one post for the tenant and fans it out to every enabled
// social platform. The config is re-fetched per run so schedule content
// follows config changes without a restart.
func (s *Scheduler) runPost(ctx context.Context, clientID string) {
	cfg, err := s.loader.Get(clientID)
	if err != nil {
		s.logger.Error("Scheduled post skipped, config unavailable", "client", clientID, "error", err)
		return
	}

	content, err := s.generateContent(ctx, cfg)
	if err != nil {
		s.logger.Error("Scheduled post content generation failed", "client", clientID, "error", err)
		return
	}

	for _, platform := range cfg.EnabledSocialPlatforms {
		if err := s.pub.Publish(ctx, platform, cfg, content); err != nil {
			s.logger.Error("Scheduled post publish failed", "client", clientID, "platform", platform, "error", err)
			metrics.ChannelSends.WithLabelValues(platform, "error").Inc()
			continue
		}
		s.logger.Info("Scheduled post published", "client", clientID, "platform", platform)
		metrics.ChannelSends.WithLabelValues(platform, "success").Inc()
		metrics.ScheduledPosts.Inc()
	}
}

func (s *Scheduler) generateContent(ctx context.Context, cfg *tenant.ClientConfig) (string, error) {
	if cfg.XAIAPIKey == ai.TestKey {
		return fmt.Sprintf("Mock post for %s.", cfg.BrandName), nil
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Business: %s. %s", cfg.BrandName, cfg.BusinessSynopsis.Description)
	if len(cfg.BusinessSynopsis.KeyAreas) > 0 {
		fmt.Fprintf(&b, " Key areas: %s.", strings.Join(cfg.BusinessSynopsis.KeyAreas, ", "))
	}
	if cfg.PromptAdditions != "" {
		b.WriteString("\n")
		b.WriteString(cfg.PromptAdditions)
	}

	content, err := s.aiClient.Complete(ctx, ai.Request{
		APIKey:       cfg.XAIAPIKey,
		Model:        cfg.Model,
		SystemPrompt: postPrompt,
		UserMessage:  b.String(),
		Temperature:  postTemperature,
		MaxTokens:    cfg.MaxTokens,
	})
	if err != nil {
		return "", err
	}
	if content == "" {
		return "", fmt.Errorf("empty post content from provider")
	}
	return strings.TrimSpace(content), nil
}

var cronDays = map[string]string{
	"sunday":    "SUN",
	"monday":    "MON",
	"tuesday":   "TUE",
	"wednesday": "WED",
	"thursday":  "THU",
	"friday":    "FRI",
	"saturday":  "SAT",
}

// cronSpec converts a UTC "HH:MM" posting time into a cron entry, optionally
// restricted to a set of weekday names.
func cronSpec(hhmm string, days []string) (string, error) {
	var hour, minute int
	if _, err := fmt.Sscanf(hhmm, "%d:%d", &hour, &minute); err != nil {
		return "", fmt.Errorf("post time must be HH:MM, got %q", hhmm)
	}
	if hour < 0 || hour > 23 || minute < 0 || minute > 59 {
		return "", fmt.Errorf("post time out of range: %q", hhmm)
	}

	dow := "*"
	if len(days) > 0 {
		names := make([]string, 0, len(days))
		for _, d := range days {
			name, ok := cronDays[strings.ToLower(d)]
			if !ok {
				return "", fmt.Errorf("unknown weekday %q", d)
			}
			names = append(names, name)
		}
		dow = strings.Join(names, ",")
	}

	return fmt.Sprintf("%d %d * * %s", minute, hour, dow), nil
}
