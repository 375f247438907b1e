package webchat

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/inexasli/automation-gateway/internal/channel"
	"github.com/inexasli/automation-gateway/internal/logging"
)

func TestName(t *testing.T) {
	adapter := NewWebChatAdapter(18901, "inexasli", logging.WithComponent("test"))
	if adapter.Name() != "webchat" {
		t.Errorf("expected name webchat, got %s", adapter.Name())
	}
}

func TestIsEnabled(t *testing.T) {
	if !NewWebChatAdapter(18901, "inexasli", logging.WithComponent("test")).IsEnabled() {
		t.Error("expected enabled with port set")
	}
	if NewWebChatAdapter(0, "inexasli", logging.WithComponent("test")).IsEnabled() {
		t.Error("expected disabled without port")
	}
}

func TestSendMessageNoConnection(t *testing.T) {
	adapter := NewWebChatAdapter(18901, "inexasli", logging.WithComponent("test"))
	// Disconnected sessions are dropped silently, not errors
	if err := adapter.SendMessage("gone", &channel.Response{Content: "hi"}); err != nil {
		t.Errorf("expected nil error for missing connection, got %v", err)
	}
}

func TestStopWithActiveConnection(t *testing.T) {
	adapter := NewWebChatAdapter(18901, "inexasli", logging.WithComponent("test"))
	srv := httptest.NewServer(http.HandlerFunc(adapter.wsHandler))
	defer srv.Close()

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws?session_id=s1"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial failed: %v", err)
	}
	defer conn.Close()

	if err := conn.WriteJSON(WSMessage{Type: "message", Content: "hi"}); err != nil {
		t.Fatalf("write failed: %v", err)
	}
	msg := <-adapter.Incoming()
	if msg.Content != "hi" {
		t.Errorf("expected content hi, got %s", msg.Content)
	}

	drained := make(chan struct{})
	go func() {
		for range adapter.Incoming() {
		}
		close(drained)
	}()

	// Handler is still blocked reading the open socket; Stop must close
	// it out and only then close the incoming channel.
	if err := adapter.Stop(); err != nil {
		t.Fatalf("stop failed: %v", err)
	}

	select {
	case <-drained:
	case <-time.After(2 * time.Second):
		t.Fatal("incoming channel not closed after Stop")
	}

	// Stopping again is a no-op
	if err := adapter.Stop(); err != nil {
		t.Errorf("second stop failed: %v", err)
	}
}
