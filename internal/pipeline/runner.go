package pipeline

import (
	"context"
	"log/slog"
	"time"

	"github.com/inexasli/automation-gateway/internal/metrics"
)

// Runner executes the seven processing stages in fixed order against one
// Context per inbound message, producing exactly one Result.
//
// Rate limiting and relevance are hard gates that short-circuit the run.
// Everything downstream is advisory or best-effort and degrades
// independently, so a single failing dependency never prevents the user
// from getting a reply.
type Runner struct {
	providers         Providers
	stageTimeout      time.Duration
	bestEffortTimeout time.Duration
	logger            *slog.Logger
}

// Option configures a Runner
type Option func(*Runner)

// WithStageTimeout overrides the timeout for classifier and reply calls
func WithStageTimeout(d time.Duration) Option {
	return func(r *Runner) { r.stageTimeout = d }
}

// WithBestEffortTimeout overrides the grace period for webhook and usage
// dispatch
func WithBestEffortTimeout(d time.Duration) Option {
	return func(r *Runner) { r.bestEffortTimeout = d }
}

// NewRunner creates a pipeline runner over the given providers
func NewRunner(providers Providers, logger *slog.Logger, opts ...Option) *Runner {
	r := &Runner{
		providers:         providers,
		stageTimeout:      10 * time.Second,
		bestEffortTimeout: 3 * time.Second,
		logger:            logger,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Run executes the pipeline for one inbound message. It never panics and
// never returns an error: every failure mode maps to a Result.
func (r *Runner) Run(ctx context.Context, in Input) (result Result) {
	pc := &Context{
		SessionID: in.SessionID,
		Message:   in.Message,
		InputType: in.InputType,
		Client:    in.Client,
	}

	defer func() {
		if rec := recover(); rec != nil {
			r.logger.Error("Pipeline panic recovered", "session", in.SessionID, "panic", rec)
			// Stages that finished before the panic still report their
			// outcomes alongside the fallback reply.
			result = Result{
				Kind:      KindReplied,
				Reply:     FallbackReply,
				SessionID: in.SessionID,
				InputType: in.InputType,
				Diagnostics: Diagnostics{
					Relevance:        pc.Relevance,
					Intent:           pc.Intent,
					KnowledgeUpdated: pc.Knowledge.Updated,
					Knowledge:        pc.Knowledge.Knowledge,
					WebhookSent:      pc.Webhook.Sent,
					UsageTracked:     pc.Usage.Tracked,
					Error:            "pipeline panic",
				},
			}
			metrics.PipelineRuns.WithLabelValues(in.Client.ClientID, string(KindReplied)).Inc()
		}
	}()

	// 1. Rate limit (hard gate, fail closed on provider error)
	if res := r.checkRateLimit(ctx, pc); res != nil {
		metrics.PipelineRuns.WithLabelValues(pc.Client.ClientID, string(res.Kind)).Inc()
		return *res
	}

	// 2. Relevance (hard gate, fail open on provider error)
	if res := r.checkRelevance(ctx, pc); res != nil {
		metrics.PipelineRuns.WithLabelValues(pc.Client.ClientID, string(res.Kind)).Inc()
		return *res
	}

	// 3. Intent (advisory, degrades to other/0.5)
	r.detectIntent(ctx, pc)

	// 4. Knowledge update (pure, local)
	r.detectKnowledge(pc)

	// 5 + 6. Webhook and usage (best-effort, dispatched concurrently with a
	// short grace period so they never block reply generation)
	r.dispatchSideEffects(ctx, pc)

	// 7. Reply (only stage whose failure is user-visible; falls back to a
	// generic apology)
	errText := r.generateReply(ctx, pc)

	result = Result{
		Kind:      KindReplied,
		Reply:     pc.Reply.Reply,
		SessionID: pc.SessionID,
		InputType: pc.InputType,
		Diagnostics: Diagnostics{
			Relevance:        pc.Relevance,
			Intent:           pc.Intent,
			KnowledgeUpdated: pc.Knowledge.Updated,
			Knowledge:        pc.Knowledge.Knowledge,
			WebhookSent:      pc.Webhook.Sent,
			UsageTracked:     pc.Usage.Tracked,
			Error:            errText,
		},
	}
	metrics.PipelineRuns.WithLabelValues(pc.Client.ClientID, string(KindReplied)).Inc()
	return result
}

func (r *Runner) checkRateLimit(ctx context.Context, pc *Context) *Result {
	timer := time.Now()
	cctx, cancel := context.WithTimeout(ctx, r.stageTimeout)
	defer cancel()

	res, err := r.providers.RateLimiter.Check(cctx, pc.SessionID, pc.Client)
	metrics.StageDuration.WithLabelValues("rate_limit").Observe(time.Since(timer).Seconds())
	if err != nil {
		// Denial protects paid AI quota from a runaway session
		r.logger.Error("Rate limiter unavailable, denying request", "session", pc.SessionID, "error", err)
		metrics.ProviderDegradations.WithLabelValues("rate_limit").Inc()
		res = RateLimitResult{Allowed: false}
	}
	pc.RateLimit = res

	if !res.Allowed {
		return &Result{
			Kind:      KindRateLimited,
			Message:   RateLimitedMessage,
			SessionID: pc.SessionID,
			InputType: pc.InputType,
		}
	}
	return nil
}

func (r *Runner) checkRelevance(ctx context.Context, pc *Context) *Result {
	timer := time.Now()
	cctx, cancel := context.WithTimeout(ctx, r.stageTimeout)
	defer cancel()

	res, err := r.providers.Relevance.Classify(cctx, pc.Message, pc.Client)
	metrics.StageDuration.WithLabelValues("relevance").Observe(time.Since(timer).Seconds())
	if err != nil {
		r.logger.Warn("Relevance classifier failed, defaulting to relevant", "session", pc.SessionID, "error", err)
		metrics.ProviderDegradations.WithLabelValues("relevance").Inc()
		res = RelevanceResult{IsRelevant: true, Confidence: 0.5, Err: err.Error()}
	}
	pc.Relevance = res

	if !res.IsRelevant {
		return &Result{
			Kind:      KindOffTopic,
			Message:   OffTopicMessage,
			SessionID: pc.SessionID,
			InputType: pc.InputType,
			Diagnostics: Diagnostics{
				Relevance: res,
			},
		}
	}
	return nil
}

func (r *Runner) detectIntent(ctx context.Context, pc *Context) {
	timer := time.Now()
	cctx, cancel := context.WithTimeout(ctx, r.stageTimeout)
	defer cancel()

	res, err := r.providers.Intent.Classify(cctx, pc.Message, pc.Client)
	metrics.StageDuration.WithLabelValues("intent").Observe(time.Since(timer).Seconds())
	if err != nil {
		r.logger.Warn("Intent classifier failed, defaulting to other", "session", pc.SessionID, "error", err)
		metrics.ProviderDegradations.WithLabelValues("intent").Inc()
		res = IntentResult{Intent: "other", Confidence: 0.5}
	}
	pc.Intent = res
}

func (r *Runner) detectKnowledge(pc *Context) {
	timer := time.Now()
	pc.Knowledge = r.providers.Knowledge.Detect(pc.Message)
	metrics.StageDuration.WithLabelValues("knowledge").Observe(time.Since(timer).Seconds())
	if pc.Knowledge.Updated {
		r.logger.Info("Knowledge update triggered", "session", pc.SessionID, "knowledge", pc.Knowledge.Knowledge)
	}
}

func (r *Runner) dispatchSideEffects(ctx context.Context, pc *Context) {
	cctx, cancel := context.WithTimeout(ctx, r.bestEffortTimeout)
	defer cancel()

	webhookCh := make(chan WebhookResult, 1)
	usageCh := make(chan UsageResult, 1)

	go func() {
		timer := time.Now()
		defer func() {
			metrics.StageDuration.WithLabelValues("webhook").Observe(time.Since(timer).Seconds())
			if rec := recover(); rec != nil {
				r.logger.Error("Webhook dispatch panic", "session", pc.SessionID, "panic", rec)
				webhookCh <- WebhookResult{}
			}
		}()
		if pc.Client.WebhookURL == "" {
			webhookCh <- WebhookResult{}
			return
		}
		res, err := r.providers.Webhook.Send(cctx, pc.Client.WebhookURL, WebhookPayload{
			Message:   pc.Message,
			SessionID: pc.SessionID,
			ClientID:  pc.Client.ClientID,
		})
		if err != nil {
			r.logger.Warn("Webhook dispatch failed", "session", pc.SessionID, "url", pc.Client.WebhookURL, "error", err)
			metrics.ProviderDegradations.WithLabelValues("webhook").Inc()
			res = WebhookResult{}
		}
		webhookCh <- res
	}()

	go func() {
		timer := time.Now()
		defer func() {
			metrics.StageDuration.WithLabelValues("usage").Observe(time.Since(timer).Seconds())
			if rec := recover(); rec != nil {
				r.logger.Error("Usage tracking panic", "session", pc.SessionID, "panic", rec)
				usageCh <- UsageResult{}
			}
		}()
		res, err := r.providers.Usage.Record(cctx, pc.SessionID, pc.Client, string(pc.InputType))
		if err != nil {
			r.logger.Warn("Usage tracking failed", "session", pc.SessionID, "error", err)
			metrics.ProviderDegradations.WithLabelValues("usage").Inc()
			res = UsageResult{}
		}
		usageCh <- res
	}()

	// Wait out both within the grace period; a slow side effect is recorded
	// as not-fired rather than delaying the reply.
	for i := 0; i < 2; i++ {
		select {
		case res := <-webhookCh:
			pc.Webhook = res
			webhookCh = nil
		case res := <-usageCh:
			pc.Usage = res
			usageCh = nil
		case <-cctx.Done():
			return
		}
	}
}

func (r *Runner) generateReply(ctx context.Context, pc *Context) string {
	timer := time.Now()
	cctx, cancel := context.WithTimeout(ctx, r.stageTimeout)
	defer cancel()

	res, err := r.providers.Reply.Generate(cctx, ReplyInput{
		InputType: pc.InputType,
		Message:   pc.Message,
		SessionID: pc.SessionID,
		Client:    pc.Client,
	})
	metrics.StageDuration.WithLabelValues("reply").Observe(time.Since(timer).Seconds())
	if err != nil {
		r.logger.Error("Reply generation failed, using fallback", "session", pc.SessionID, "error", err)
		metrics.ProviderDegradations.WithLabelValues("reply").Inc()
		pc.Reply = ReplyResult{Reply: FallbackReply}
		return err.Error()
	}
	if res.Reply == "" {
		res.Reply = FallbackReply
	}
	pc.Reply = res
	return ""
}
