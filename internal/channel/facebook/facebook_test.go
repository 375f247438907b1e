package facebook

import (
	"testing"

	"github.com/inexasli/automation-gateway/internal/tenant"
)

func TestVerify(t *testing.T) {
	cfg := &tenant.ClientConfig{ClientID: "x", BrandName: "X", FacebookVerifyToken: "fb_secret"}
	a := NewAdapter()

	challenge, ok := a.Verify("subscribe", "fb_secret", "99", cfg)
	if !ok || challenge != "99" {
		t.Errorf("Expected verification to pass with challenge 99, got %q/%v", challenge, ok)
	}
	if _, ok := a.Verify("subscribe", "nope", "99", cfg); ok {
		t.Error("Expected verification to fail for wrong token")
	}
}

func TestNormalize(t *testing.T) {
	a := NewAdapter()
	payload := []byte(`{
		"object": "page",
		"entry": [{"messaging": [{
			"sender": {"id": "psid-7"},
			"timestamp": 1700000000000,
			"message": {"mid": "m2", "text": "Is the store open today?"}
		}]}]
	}`)

	msg, err := a.Normalize(payload)
	if err != nil {
		t.Fatalf("Normalize failed: %v", err)
	}
	if msg == nil || msg.UserID != "psid-7" || msg.Channel != "facebook" {
		t.Errorf("Unexpected message %+v", msg)
	}
}

func TestNormalizeIgnoresNonPage(t *testing.T) {
	a := NewAdapter()
	msg, err := a.Normalize([]byte(`{"object": "instagram", "entry": []}`))
	if err != nil || msg != nil {
		t.Errorf("Expected nil for non-page payload, got %+v / %v", msg, err)
	}
}
