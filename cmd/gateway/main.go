package main

import (
	"context"
	"flag"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/inexasli/automation-gateway/internal/ai"
	"github.com/inexasli/automation-gateway/internal/channel"
	"github.com/inexasli/automation-gateway/internal/channel/telegram"
	"github.com/inexasli/automation-gateway/internal/channel/webchat"
	"github.com/inexasli/automation-gateway/internal/classify"
	"github.com/inexasli/automation-gateway/internal/config"
	"github.com/inexasli/automation-gateway/internal/knowledge"
	"github.com/inexasli/automation-gateway/internal/logging"
	"github.com/inexasli/automation-gateway/internal/pipeline"
	"github.com/inexasli/automation-gateway/internal/ratelimit"
	"github.com/inexasli/automation-gateway/internal/reply"
	"github.com/inexasli/automation-gateway/internal/scheduler"
	"github.com/inexasli/automation-gateway/internal/server"
	"github.com/inexasli/automation-gateway/internal/store"
	"github.com/inexasli/automation-gateway/internal/tenant"
	"github.com/inexasli/automation-gateway/internal/usage"
	"github.com/inexasli/automation-gateway/internal/webhook"
)

const version = "1.0.0"

func main() {
	configPath := flag.String("config", "config.yaml", "Path to config file")
	flag.Parse()

	logger := logging.WithComponent("main")
	logger.Info("Starting automation gateway", "version", version)

	cfg, err := config.Load(*configPath)
	if err != nil {
		logger.Error("Failed to load config", "error", err)
		os.Exit(1)
	}
	if err := cfg.Validate(); err != nil {
		logger.Error("Invalid config", "error", err)
		os.Exit(1)
	}

	redisStore, err := store.NewRedisStore(cfg.Redis)
	if err != nil {
		logger.Error("Failed to connect to Redis", "addr", cfg.Redis.Addr, "error", err)
		os.Exit(1)
	}
	logger.Info("Redis connected", "addr", cfg.Redis.Addr)

	loader := tenant.NewLoader(cfg.Tenants, logging.WithComponent("tenant"))
	aiClient := ai.NewClient(cfg.AI)
	usageTracker := usage.NewRedisTracker(redisStore)

	runner := pipeline.NewRunner(pipeline.Providers{
		RateLimiter: ratelimit.NewRedisLimiter(redisStore),
		Relevance:   classify.NewRelevanceClassifier(aiClient),
		Intent:      classify.NewIntentClassifier(aiClient),
		Knowledge:   knowledge.NewDetector(),
		Webhook:     webhook.NewDispatcher(cfg.Pipeline.GetBestEffortTimeout()),
		Usage:       usageTracker,
		Reply:       reply.NewGenerator(aiClient),
	}, logging.WithComponent("pipeline"),
		pipeline.WithStageTimeout(cfg.Pipeline.GetStageTimeout()),
		pipeline.WithBestEffortTimeout(cfg.Pipeline.GetBestEffortTimeout()),
	)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Long-running channels. Webhook-driven platforms (Instagram, Facebook,
	// Twitter) are served by the HTTP server instead.
	adapters := []channel.Adapter{}
	if cfg.Channels.Telegram.Enabled {
		adapters = append(adapters, telegram.NewTelegramAdapter(cfg.Channels.Telegram.Token, cfg.Tenants.Default))
		logger.Info("Telegram adapter initialized")
	}
	if cfg.Channels.WebChat.Enabled {
		adapters = append(adapters, webchat.NewWebChatAdapter(cfg.Channels.WebChat.Port, cfg.Tenants.Default, logging.WithComponent("webchat")))
		logger.Info("WebChat adapter initialized")
	}

	for _, adapter := range adapters {
		if err := adapter.Start(ctx); err != nil {
			logger.Error("Failed to start adapter", "adapter", adapter.Name(), "error", err)
			continue
		}
		logger.Info("Adapter started", "adapter", adapter.Name())
		go consumeAdapter(ctx, adapter, loader, runner, logger)
	}

	var sched *scheduler.Scheduler
	if cfg.Scheduler.Enabled {
		sched = scheduler.New(loader, aiClient, scheduler.NewSocialPublisher(), logging.WithComponent("scheduler"))
		for _, clientID := range cfg.Scheduler.Clients {
			if err := sched.Register(clientID); err != nil {
				logger.Error("Failed to register posting schedule", "client", clientID, "error", err)
			}
		}
		sched.Start()
		logger.Info("Scheduler started", "clients", len(cfg.Scheduler.Clients))
	}

	srv := server.New(cfg, runner, loader, usageTracker, redisStore, logging.WithComponent("server"))
	go func() {
		if err := srv.Start(); err != nil && err != http.ErrServerClosed {
			logger.Error("Server error", "error", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down")
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	for _, adapter := range adapters {
		if err := adapter.Stop(); err != nil {
			logger.Error("Failed to stop adapter", "adapter", adapter.Name(), "error", err)
		}
	}

	if sched != nil {
		sched.Stop()
	}

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("Server shutdown error", "error", err)
	}

	if err := redisStore.Close(); err != nil {
		logger.Error("Redis close error", "error", err)
	}

	logger.Info("Shutdown complete")
}

// consumeAdapter drains an adapter's inbound messages through the pipeline
// and sends each outcome back over the same channel.
func consumeAdapter(ctx context.Context, adapter channel.Adapter, loader *tenant.Loader, runner *pipeline.Runner, logger *slog.Logger) {
	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-adapter.Incoming():
			if !ok {
				return
			}
			client, err := loader.Get(msg.Metadata["tenant"])
			if err != nil {
				logger.Error("Dropping message, client config unavailable", "channel", msg.Channel, "error", err)
				continue
			}

			res := runner.Run(ctx, pipeline.Input{
				SessionID: msg.SessionID,
				Message:   msg.Content,
				InputType: msg.InputType,
				Client:    client,
			})

			text := res.Reply
			if res.Kind != pipeline.KindReplied {
				text = res.Message
			}
			if err := adapter.SendMessage(msg.SessionID, &channel.Response{Content: text}); err != nil {
				logger.Error("Failed to send reply", "channel", msg.Channel, "session", msg.SessionID, "error", err)
			}
		}
	}
}
