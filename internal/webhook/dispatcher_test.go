package webhook

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/inexasli/automation-gateway/internal/pipeline"
)

func TestSend(t *testing.T) {
	var got pipeline.WebhookPayload
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("expected POST, got %s", r.Method)
		}
		if ct := r.Header.Get("Content-Type"); ct != "application/json" {
			t.Errorf("expected JSON content type, got %s", ct)
		}
		json.NewDecoder(r.Body).Decode(&got)
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	d := NewDispatcher(2 * time.Second)
	res, err := d.Send(context.Background(), srv.URL, pipeline.WebhookPayload{
		Message:   "hello",
		SessionID: "s1",
		ClientID:  "inexasli",
	})
	if err != nil {
		t.Fatalf("Send failed: %v", err)
	}
	if !res.Sent {
		t.Error("Expected sent=true")
	}
	if got.Message != "hello" || got.SessionID != "s1" || got.ClientID != "inexasli" {
		t.Errorf("Unexpected payload %+v", got)
	}
}

func TestSendErrorStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	d := NewDispatcher(2 * time.Second)
	res, err := d.Send(context.Background(), srv.URL, pipeline.WebhookPayload{Message: "x"})
	if err == nil {
		t.Error("Expected error for 502 response")
	}
	if res.Sent {
		t.Error("Expected sent=false")
	}
}

func TestSendUnreachable(t *testing.T) {
	d := NewDispatcher(500 * time.Millisecond)
	_, err := d.Send(context.Background(), "http://127.0.0.1:1/hook", pipeline.WebhookPayload{Message: "x"})
	if err == nil {
		t.Error("Expected error for unreachable endpoint")
	}
}
