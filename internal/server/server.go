package server

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/inexasli/automation-gateway/internal/channel/facebook"
	"github.com/inexasli/automation-gateway/internal/channel/instagram"
	"github.com/inexasli/automation-gateway/internal/channel/twitter"
	"github.com/inexasli/automation-gateway/internal/config"
	"github.com/inexasli/automation-gateway/internal/metrics"
	"github.com/inexasli/automation-gateway/internal/pipeline"
	"github.com/inexasli/automation-gateway/internal/tenant"
)

// PipelineRunner executes the message pipeline for one inbound message
type PipelineRunner interface {
	Run(ctx context.Context, in pipeline.Input) pipeline.Result
}

// ConfigLoader resolves a tenant's client config
type ConfigLoader interface {
	Get(clientID string) (*tenant.ClientConfig, error)
}

// UsageReader returns a tenant's daily usage counters
type UsageReader interface {
	Totals(ctx context.Context, clientID string, day time.Time) (map[string]int64, error)
}

// HealthChecker reports whether a backing service is reachable
type HealthChecker interface {
	IsConnected(ctx context.Context) bool
}

// Server is the HTTP front door: the /chat endpoint, the per-platform
// webhook endpoints, and the operational endpoints.
type Server struct {
	cfg        *config.Config
	runner     PipelineRunner
	loader     ConfigLoader
	usage      UsageReader
	redis      HealthChecker
	instagram  *instagram.Adapter
	facebook   *facebook.Adapter
	twitter    *twitter.Adapter
	httpServer *http.Server
	startTime  time.Time
	logger     *slog.Logger
}

// ChatRequest represents the /chat request body
type ChatRequest struct {
	Message   string `json:"message"`
	SessionID string `json:"sessionId,omitempty"`
	ClientID  string `json:"clientId,omitempty"`
	InputType string `json:"inputType,omitempty"`
}

// ChatResponse represents a successful /chat response
type ChatResponse struct {
	Reply            string                   `json:"reply"`
	SessionID        string                   `json:"sessionId"`
	InputType        string                   `json:"inputType"`
	Relevance        pipeline.RelevanceResult `json:"relevance"`
	Intent           pipeline.IntentResult    `json:"intent"`
	KnowledgeUpdated bool                     `json:"knowledgeUpdated"`
	WebhookSent      bool                     `json:"webhookSent"`
	UsageTracked     bool                     `json:"usageTracked"`
	Error            string                   `json:"error,omitempty"`
}

// ErrorResponse represents an error response body
type ErrorResponse struct {
	Error string `json:"error"`
}

// HealthResponse represents the health check response
type HealthResponse struct {
	Status    string                   `json:"status"`
	Version   string                   `json:"version"`
	Uptime    string                   `json:"uptime"`
	Services  map[string]ServiceHealth `json:"services"`
	Timestamp string                   `json:"timestamp"`
}

// ServiceHealth represents a backing service health status
type ServiceHealth struct {
	Healthy bool   `json:"healthy"`
	Message string `json:"message,omitempty"`
}

// UsageResponse represents the /usage response
type UsageResponse struct {
	ClientID string           `json:"clientId"`
	Date     string           `json:"date"`
	Totals   map[string]int64 `json:"totals"`
}

// New creates the HTTP server
func New(cfg *config.Config, runner PipelineRunner, loader ConfigLoader, usage UsageReader, redis HealthChecker, logger *slog.Logger) *Server {
	s := &Server{
		cfg:       cfg,
		runner:    runner,
		loader:    loader,
		usage:     usage,
		redis:     redis,
		instagram: instagram.NewAdapter(),
		facebook:  facebook.NewAdapter(),
		twitter:   twitter.NewAdapter(),
		startTime: time.Now(),
		logger:    logger,
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/chat", s.withCORS(s.chatHandler))
	mux.HandleFunc("/webhook/instagram", s.instagramWebhookHandler)
	mux.HandleFunc("/webhook/facebook", s.facebookWebhookHandler)
	mux.HandleFunc("/webhook/twitter", s.twitterWebhookHandler)
	mux.HandleFunc("/usage", s.withCORS(s.usageHandler))
	mux.HandleFunc("/health", s.healthHandler)
	mux.Handle("/metrics", promhttp.Handler())

	s.httpServer = &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:      mux,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	return s
}

// Start starts the HTTP server
func (s *Server) Start() error {
	s.logger.Info("HTTP server starting", "addr", s.httpServer.Addr)
	return s.httpServer.ListenAndServe()
}

// Shutdown gracefully shuts down the HTTP server
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

// Handler exposes the mux for tests
func (s *Server) Handler() http.Handler {
	return s.httpServer.Handler
}

// withCORS allows the chat widget to call from any origin
func (s *Server) withCORS(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next(w, r)
	}
}

func (s *Server) clientID(r *http.Request, bodyClientID string) string {
	if id := r.URL.Query().Get("client_id"); id != "" {
		return id
	}
	if bodyClientID != "" {
		return bodyClientID
	}
	return s.cfg.Tenants.Default
}

// chatHandler handles chat widget messages
func (s *Server) chatHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		s.writeError(w, r, "/chat", http.StatusMethodNotAllowed, "Method not allowed")
		return
	}

	var req ChatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, r, "/chat", http.StatusBadRequest, "Invalid JSON")
		return
	}
	if req.Message == "" {
		s.writeError(w, r, "/chat", http.StatusBadRequest, "message required")
		return
	}

	clientID := s.clientID(r, req.ClientID)
	client, err := s.loader.Get(clientID)
	if err != nil {
		s.logger.Error("Client config load failed", "client", clientID, "error", err)
		s.writeError(w, r, "/chat", http.StatusInternalServerError, "Failed to load client configuration")
		return
	}

	sessionID := req.SessionID
	if sessionID == "" {
		sessionID = uuid.NewString()
	}
	inputType := pipeline.InputType(req.InputType)
	if inputType != pipeline.InputDM && inputType != pipeline.InputPost {
		inputType = pipeline.InputChat
	}

	res := s.runner.Run(r.Context(), pipeline.Input{
		SessionID: sessionID,
		Message:   req.Message,
		InputType: inputType,
		Client:    client,
	})

	switch res.Kind {
	case pipeline.KindRateLimited:
		s.writeError(w, r, "/chat", http.StatusTooManyRequests, res.Message)
	case pipeline.KindOffTopic:
		s.writeJSON(w, r, "/chat", http.StatusOK, ChatResponse{
			Reply:     res.Message,
			SessionID: res.SessionID,
			InputType: string(res.InputType),
			Relevance: res.Diagnostics.Relevance,
			Intent:    res.Diagnostics.Intent,
		})
	default:
		s.writeJSON(w, r, "/chat", http.StatusOK, ChatResponse{
			Reply:            res.Reply,
			SessionID:        res.SessionID,
			InputType:        string(res.InputType),
			Relevance:        res.Diagnostics.Relevance,
			Intent:           res.Diagnostics.Intent,
			KnowledgeUpdated: res.Diagnostics.KnowledgeUpdated,
			WebhookSent:      res.Diagnostics.WebhookSent,
			UsageTracked:     res.Diagnostics.UsageTracked,
			Error:            res.Diagnostics.Error,
		})
	}
}

// instagramWebhookHandler handles Instagram Graph webhooks: GET is the hub
// verification handshake, POST delivers messaging events.
func (s *Server) instagramWebhookHandler(w http.ResponseWriter, r *http.Request) {
	endpoint := "/webhook/instagram"
	client, ok := s.webhookClient(w, r, endpoint)
	if !ok {
		return
	}

	switch r.Method {
	case http.MethodGet:
		q := r.URL.Query()
		challenge, ok := s.instagram.Verify(q.Get("hub.mode"), q.Get("hub.verify_token"), q.Get("hub.challenge"), client)
		if !ok {
			s.writeError(w, r, endpoint, http.StatusForbidden, "Verification failed")
			return
		}
		metrics.RequestCount.WithLabelValues(r.Method, endpoint, "200").Inc()
		w.WriteHeader(http.StatusOK)
		io.WriteString(w, challenge)

	case http.MethodPost:
		body, err := io.ReadAll(r.Body)
		if err != nil {
			s.writeError(w, r, endpoint, http.StatusBadRequest, "Failed to read body")
			return
		}
		msg, err := s.instagram.Normalize(body)
		if err != nil {
			s.writeError(w, r, endpoint, http.StatusBadRequest, err.Error())
			return
		}
		// Always 200 so the platform does not retry; events we ignore are done
		if msg != nil {
			res := s.runner.Run(r.Context(), pipeline.Input{
				SessionID: msg.SessionID,
				Message:   msg.Content,
				InputType: msg.InputType,
				Client:    client,
			})
			s.replyToPlatform(r.Context(), "instagram", msg.UserID, res, func(ctx context.Context, text string) error {
				return s.instagram.SendMessage(ctx, msg.UserID, text, client.PageAccessToken)
			})
		}
		metrics.RequestCount.WithLabelValues(r.Method, endpoint, "200").Inc()
		w.WriteHeader(http.StatusOK)

	default:
		s.writeError(w, r, endpoint, http.StatusMethodNotAllowed, "Method not allowed")
	}
}

// facebookWebhookHandler handles Facebook Page webhooks
func (s *Server) facebookWebhookHandler(w http.ResponseWriter, r *http.Request) {
	endpoint := "/webhook/facebook"
	client, ok := s.webhookClient(w, r, endpoint)
	if !ok {
		return
	}

	switch r.Method {
	case http.MethodGet:
		q := r.URL.Query()
		challenge, ok := s.facebook.Verify(q.Get("hub.mode"), q.Get("hub.verify_token"), q.Get("hub.challenge"), client)
		if !ok {
			s.writeError(w, r, endpoint, http.StatusForbidden, "Verification failed")
			return
		}
		metrics.RequestCount.WithLabelValues(r.Method, endpoint, "200").Inc()
		w.WriteHeader(http.StatusOK)
		io.WriteString(w, challenge)

	case http.MethodPost:
		body, err := io.ReadAll(r.Body)
		if err != nil {
			s.writeError(w, r, endpoint, http.StatusBadRequest, "Failed to read body")
			return
		}
		msg, err := s.facebook.Normalize(body)
		if err != nil {
			s.writeError(w, r, endpoint, http.StatusBadRequest, err.Error())
			return
		}
		if msg != nil {
			res := s.runner.Run(r.Context(), pipeline.Input{
				SessionID: msg.SessionID,
				Message:   msg.Content,
				InputType: msg.InputType,
				Client:    client,
			})
			s.replyToPlatform(r.Context(), "facebook", msg.UserID, res, func(ctx context.Context, text string) error {
				return s.facebook.SendMessage(ctx, msg.UserID, text, client.PageAccessToken)
			})
		}
		metrics.RequestCount.WithLabelValues(r.Method, endpoint, "200").Inc()
		w.WriteHeader(http.StatusOK)

	default:
		s.writeError(w, r, endpoint, http.StatusMethodNotAllowed, "Method not allowed")
	}
}

// twitterWebhookHandler handles Twitter account-activity webhooks: GET is the
// CRC challenge, POST delivers DM events.
func (s *Server) twitterWebhookHandler(w http.ResponseWriter, r *http.Request) {
	endpoint := "/webhook/twitter"
	client, ok := s.webhookClient(w, r, endpoint)
	if !ok {
		return
	}

	switch r.Method {
	case http.MethodGet:
		crcToken := r.URL.Query().Get("crc_token")
		if crcToken == "" {
			s.writeError(w, r, endpoint, http.StatusBadRequest, "crc_token required")
			return
		}
		token, err := s.twitter.CRCResponse(crcToken, client)
		if err != nil {
			s.writeError(w, r, endpoint, http.StatusForbidden, err.Error())
			return
		}
		s.writeJSON(w, r, endpoint, http.StatusOK, map[string]string{"response_token": token})

	case http.MethodPost:
		body, err := io.ReadAll(r.Body)
		if err != nil {
			s.writeError(w, r, endpoint, http.StatusBadRequest, "Failed to read body")
			return
		}
		msg, err := s.twitter.Normalize(body)
		if err != nil {
			s.writeError(w, r, endpoint, http.StatusBadRequest, err.Error())
			return
		}
		if msg != nil {
			res := s.runner.Run(r.Context(), pipeline.Input{
				SessionID: msg.SessionID,
				Message:   msg.Content,
				InputType: msg.InputType,
				Client:    client,
			})
			s.replyToPlatform(r.Context(), "twitter", msg.UserID, res, func(ctx context.Context, text string) error {
				return s.twitter.SendMessage(ctx, msg.UserID, text, client.TwitterBearerToken)
			})
		}
		metrics.RequestCount.WithLabelValues(r.Method, endpoint, "200").Inc()
		w.WriteHeader(http.StatusOK)

	default:
		s.writeError(w, r, endpoint, http.StatusMethodNotAllowed, "Method not allowed")
	}
}

// webhookClient resolves the tenant for a platform webhook request
func (s *Server) webhookClient(w http.ResponseWriter, r *http.Request, endpoint string) (*tenant.ClientConfig, bool) {
	clientID := s.clientID(r, "")
	client, err := s.loader.Get(clientID)
	if err != nil {
		s.logger.Error("Client config load failed", "client", clientID, "endpoint", endpoint, "error", err)
		s.writeError(w, r, endpoint, http.StatusInternalServerError, "Failed to load client configuration")
		return nil, false
	}
	return client, true
}

// replyToPlatform sends the pipeline outcome back over the originating
// platform. Gating rejections are sent as the canned message; send failures
// are logged, the webhook response stays 200 either way.
func (s *Server) replyToPlatform(ctx context.Context, platform, userID string, res pipeline.Result, send func(context.Context, string) error) {
	text := res.Reply
	if res.Kind != pipeline.KindReplied {
		text = res.Message
	}
	if text == "" {
		return
	}
	if err := send(ctx, text); err != nil {
		s.logger.Error("Platform send failed", "channel", platform, "user", userID, "error", err)
		metrics.ChannelSends.WithLabelValues(platform, "error").Inc()
		return
	}
	metrics.ChannelSends.WithLabelValues(platform, "success").Inc()
}

// usageHandler reports a tenant's daily usage counters
func (s *Server) usageHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		s.writeError(w, r, "/usage", http.StatusMethodNotAllowed, "Method not allowed")
		return
	}

	clientID := s.clientID(r, "")
	day := time.Now().UTC()
	if d := r.URL.Query().Get("date"); d != "" {
		parsed, err := time.Parse("2006-01-02", d)
		if err != nil {
			s.writeError(w, r, "/usage", http.StatusBadRequest, "date must be YYYY-MM-DD")
			return
		}
		day = parsed
	}

	totals, err := s.usage.Totals(r.Context(), clientID, day)
	if err != nil {
		s.logger.Error("Usage lookup failed", "client", clientID, "error", err)
		s.writeError(w, r, "/usage", http.StatusInternalServerError, "Failed to retrieve usage")
		return
	}

	s.writeJSON(w, r, "/usage", http.StatusOK, UsageResponse{
		ClientID: clientID,
		Date:     day.Format("2006-01-02"),
		Totals:   totals,
	})
}

// healthHandler handles health check requests
func (s *Server) healthHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	services := map[string]ServiceHealth{
		"http": {Healthy: true, Message: "HTTP server running"},
	}
	status := "healthy"
	if s.redis != nil {
		if s.redis.IsConnected(r.Context()) {
			services["redis"] = ServiceHealth{Healthy: true}
		} else {
			services["redis"] = ServiceHealth{Healthy: false, Message: "Redis unreachable"}
			status = "degraded"
		}
	}

	s.writeJSON(w, r, "/health", http.StatusOK, HealthResponse{
		Status:    status,
		Version:   "1.0.0",
		Uptime:    time.Since(s.startTime).String(),
		Services:  services,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	})
}

func (s *Server) writeJSON(w http.ResponseWriter, r *http.Request, endpoint string, status int, body any) {
	metrics.RequestCount.WithLabelValues(r.Method, endpoint, fmt.Sprintf("%d", status)).Inc()
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(body)
}

func (s *Server) writeError(w http.ResponseWriter, r *http.Request, endpoint string, status int, msg string) {
	s.writeJSON(w, r, endpoint, status, ErrorResponse{Error: msg})
}
