package webchat

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/inexasli/automation-gateway/internal/channel"
	"github.com/inexasli/automation-gateway/internal/pipeline"
)

// WebChatAdapter serves the embedded chat widget over websockets. Each
// connection maps to one session; connections without a session id get a
// generated one so rate limiting has a stable key.
type WebChatAdapter struct {
	port     int
	tenant   string
	incoming chan *channel.Message
	upgrader websocket.Upgrader
	server   *http.Server
	logger   *slog.Logger

	connMux sync.RWMutex
	conns   map[string]*websocket.Conn

	stopCh   chan struct{}
	stopOnce sync.Once
	handlers sync.WaitGroup
}

// WSMessage is the wire format between widget and adapter
type WSMessage struct {
	Type      string `json:"type"`
	Content   string `json:"content"`
	SessionID string `json:"session_id,omitempty"`
}

// NewWebChatAdapter creates a webchat adapter serving the given tenant
func NewWebChatAdapter(port int, tenantID string, logger *slog.Logger) *WebChatAdapter {
	return &WebChatAdapter{
		port:   port,
		tenant: tenantID,
		logger: logger,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool { return true }, // widget is embedded on tenant sites
		},
		incoming: make(chan *channel.Message, 100),
		conns:    make(map[string]*websocket.Conn),
		stopCh:   make(chan struct{}),
	}
}

func (w *WebChatAdapter) Name() string {
	return "webchat"
}

func (w *WebChatAdapter) IsEnabled() bool {
	return w.port > 0
}

func (w *WebChatAdapter) Start(ctx context.Context) error {
	mux := http.NewServeMux()
	mux.HandleFunc("/ws", w.wsHandler)
	w.server = &http.Server{Addr: ":" + strconv.Itoa(w.port), Handler: mux}

	go func() {
		if err := w.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			w.logger.Error("WebChat server error", "error", err)
		}
	}()

	go func() {
		<-ctx.Done()
		w.Stop()
	}()

	return nil
}

// Stop shuts down the listener, closes open sockets so blocked readers
// return, and waits for every handler to exit before closing incoming.
func (w *WebChatAdapter) Stop() error {
	w.stopOnce.Do(func() {
		close(w.stopCh)
		if w.server != nil {
			w.server.Shutdown(context.Background())
		}

		w.connMux.Lock()
		for _, conn := range w.conns {
			conn.Close()
		}
		w.connMux.Unlock()

		w.handlers.Wait()
		close(w.incoming)
	})
	return nil
}

func (w *WebChatAdapter) SendMessage(sessionID string, resp *channel.Response) error {
	w.connMux.RLock()
	conn, exists := w.conns[sessionID]
	w.connMux.RUnlock()

	if !exists {
		return nil // widget disconnected, nothing to deliver to
	}

	msg := WSMessage{
		Type:      "message",
		Content:   resp.Content,
		SessionID: sessionID,
	}
	data, err := json.Marshal(msg)
	if err != nil {
		return err
	}

	return conn.WriteMessage(websocket.TextMessage, data)
}

func (w *WebChatAdapter) Incoming() <-chan *channel.Message {
	return w.incoming
}

func (w *WebChatAdapter) wsHandler(rw http.ResponseWriter, r *http.Request) {
	select {
	case <-w.stopCh:
		http.Error(rw, "shutting down", http.StatusServiceUnavailable)
		return
	default:
	}
	w.handlers.Add(1)
	defer w.handlers.Done()

	conn, err := w.upgrader.Upgrade(rw, r, nil)
	if err != nil {
		w.logger.Error("WebSocket upgrade failed", "error", err)
		return
	}

	sessionID := r.URL.Query().Get("session_id")
	if sessionID == "" {
		sessionID = uuid.NewString()
	}

	w.connMux.Lock()
	w.conns[sessionID] = conn
	w.connMux.Unlock()

	defer func() {
		w.connMux.Lock()
		delete(w.conns, sessionID)
		w.connMux.Unlock()
		conn.Close()
	}()

	for {
		var msg WSMessage
		if err := conn.ReadJSON(&msg); err != nil {
			return
		}

		if msg.Type != "message" || msg.Content == "" {
			continue
		}

		select {
		case w.incoming <- &channel.Message{
			ID:        uuid.NewString(),
			Channel:   "webchat",
			UserID:    sessionID,
			SessionID: sessionID,
			Content:   msg.Content,
			InputType: pipeline.InputChat,
			Metadata:  map[string]string{"tenant": w.tenant},
			Timestamp: time.Now().Unix(),
		}:
		case <-w.stopCh:
			return
		}
	}
}
