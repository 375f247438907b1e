package instagram

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/inexasli/automation-gateway/internal/tenant"
)

func verifyClient() *tenant.ClientConfig {
	return &tenant.ClientConfig{
		ClientID:             "inexasli",
		BrandName:            "INEXASLI",
		InstagramVerifyToken: "inexasli_webhook_verify_2025",
	}
}

func TestVerify(t *testing.T) {
	a := NewAdapter()

	challenge, ok := a.Verify("subscribe", "inexasli_webhook_verify_2025", "1234", verifyClient())
	if !ok {
		t.Fatal("Expected verification to pass")
	}
	if challenge != "1234" {
		t.Errorf("Expected challenge echoed, got %q", challenge)
	}
}

func TestVerifyWrongToken(t *testing.T) {
	a := NewAdapter()
	if _, ok := a.Verify("subscribe", "wrong", "1234", verifyClient()); ok {
		t.Error("Expected verification to fail for wrong token")
	}
	if _, ok := a.Verify("unsubscribe", "inexasli_webhook_verify_2025", "1234", verifyClient()); ok {
		t.Error("Expected verification to fail for wrong mode")
	}
	empty := &tenant.ClientConfig{ClientID: "x", BrandName: "X"}
	if _, ok := a.Verify("subscribe", "", "1234", empty); ok {
		t.Error("Expected verification to fail with empty tokens")
	}
}

func TestNormalize(t *testing.T) {
	a := NewAdapter()
	payload := []byte(`{
		"object": "instagram",
		"entry": [{
			"id": "page1",
			"time": 1700000000,
			"messaging": [{
				"sender": {"id": "user42"},
				"timestamp": 1700000000000,
				"message": {"mid": "m1", "text": "Do you offer support plans?"}
			}]
		}]
	}`)

	msg, err := a.Normalize(payload)
	if err != nil {
		t.Fatalf("Normalize failed: %v", err)
	}
	if msg == nil {
		t.Fatal("Expected a message")
	}
	if msg.UserID != "user42" || msg.Content != "Do you offer support plans?" {
		t.Errorf("Unexpected message %+v", msg)
	}
	if msg.Channel != "instagram" {
		t.Errorf("Expected channel instagram, got %s", msg.Channel)
	}
}

func TestNormalizeIgnoresEchoes(t *testing.T) {
	a := NewAdapter()
	payload := []byte(`{
		"object": "instagram",
		"entry": [{"messaging": [{
			"sender": {"id": "page1"},
			"message": {"mid": "m1", "text": "our own reply", "is_echo": true}
		}]}]
	}`)

	msg, err := a.Normalize(payload)
	if err != nil {
		t.Fatalf("Normalize failed: %v", err)
	}
	if msg != nil {
		t.Errorf("Expected echo to be ignored, got %+v", msg)
	}
}

func TestNormalizeWrongObject(t *testing.T) {
	a := NewAdapter()
	msg, err := a.Normalize([]byte(`{"object": "page", "entry": []}`))
	if err != nil || msg != nil {
		t.Errorf("Expected nil message for non-instagram payload, got %+v / %v", msg, err)
	}
}

func TestNormalizeMalformed(t *testing.T) {
	a := NewAdapter()
	if _, err := a.Normalize([]byte(`{not json`)); err == nil {
		t.Error("Expected error for malformed payload")
	}
}

func TestSendMessage(t *testing.T) {
	var gotPath string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	a := NewAdapterWithGraphURL(srv.URL)
	if err := a.SendMessage(context.Background(), "user42", "hello", "token123"); err != nil {
		t.Fatalf("SendMessage failed: %v", err)
	}
	if gotPath != "/me/messages" {
		t.Errorf("Expected /me/messages, got %s", gotPath)
	}
}

func TestSendMessageMissingToken(t *testing.T) {
	a := NewAdapter()
	if err := a.SendMessage(context.Background(), "user42", "hello", ""); err == nil {
		t.Error("Expected error for missing access token")
	}
}
