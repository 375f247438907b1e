package scheduler

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/inexasli/automation-gateway/internal/ai"
	"github.com/inexasli/automation-gateway/internal/config"
	"github.com/inexasli/automation-gateway/internal/logging"
	"github.com/inexasli/automation-gateway/internal/tenant"
)

type stubLoader struct {
	configs map[string]*tenant.ClientConfig
}

func (s *stubLoader) Get(clientID string) (*tenant.ClientConfig, error) {
	cfg, ok := s.configs[clientID]
	if !ok {
		return nil, fmt.Errorf("no config for %s", clientID)
	}
	return cfg, nil
}

type stubPublisher struct {
	mu        sync.Mutex
	published map[string]string
	failOn    string
}

func (p *stubPublisher) Publish(ctx context.Context, platform string, cfg *tenant.ClientConfig, content string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if platform == p.failOn {
		return fmt.Errorf("publish to %s failed", platform)
	}
	if p.published == nil {
		p.published = make(map[string]string)
	}
	p.published[platform] = content
	return nil
}

func testClient() *tenant.ClientConfig {
	return &tenant.ClientConfig{
		ClientID:               "acme",
		BrandName:              "Acme Corp",
		XAIAPIKey:              ai.TestKey,
		EnabledSocialPlatforms: []string{"facebook", "twitter"},
		PostTimes:              []string{"09:00", "17:30"},
		DoublePostTimes:        []string{"12:00"},
		DoublePostDays:         []string{"Monday", "Thursday"},
	}
}

func TestCronSpec(t *testing.T) {
	tests := []struct {
		time string
		days []string
		want string
	}{
		{"09:00", nil, "0 9 * * *"},
		{"17:30", nil, "30 17 * * *"},
		{"12:00", []string{"Monday", "Thursday"}, "0 12 * * MON,THU"},
		{"00:05", []string{"sunday"}, "5 0 * * SUN"},
	}
	for _, tc := range tests {
		got, err := cronSpec(tc.time, tc.days)
		if err != nil {
			t.Errorf("cronSpec(%q, %v): %v", tc.time, tc.days, err)
			continue
		}
		if got != tc.want {
			t.Errorf("cronSpec(%q, %v) = %q, want %q", tc.time, tc.days, got, tc.want)
		}
	}
}

func TestCronSpecInvalid(t *testing.T) {
	for _, bad := range []string{"not-a-time", "25:00", "09:75", ""} {
		if _, err := cronSpec(bad, nil); err == nil {
			t.Errorf("cronSpec(%q) should fail", bad)
		}
	}
	if _, err := cronSpec("09:00", []string{"Funday"}); err == nil {
		t.Error("unknown weekday should fail")
	}
}

func TestRegisterUnknownClient(t *testing.T) {
	s := New(&stubLoader{configs: map[string]*tenant.ClientConfig{}}, ai.NewClient(config.AIConfig{}), &stubPublisher{}, logging.WithComponent("test"))
	if err := s.Register("ghost"); err == nil {
		t.Error("expected error for unknown client")
	}
}

func TestRegisterSkipsBadTimes(t *testing.T) {
	cfg := testClient()
	cfg.PostTimes = []string{"09:00", "bogus"}
	s := New(&stubLoader{configs: map[string]*tenant.ClientConfig{"acme": cfg}}, ai.NewClient(config.AIConfig{}), &stubPublisher{}, logging.WithComponent("test"))
	if err := s.Register("acme"); err != nil {
		t.Fatalf("Register: %v", err)
	}
}

func TestRunPostFansOut(t *testing.T) {
	pub := &stubPublisher{}
	s := New(&stubLoader{configs: map[string]*tenant.ClientConfig{"acme": testClient()}}, ai.NewClient(config.AIConfig{}), pub, logging.WithComponent("test"))

	s.runPost(context.Background(), "acme")

	if len(pub.published) != 2 {
		t.Fatalf("published to %d platforms, want 2", len(pub.published))
	}
	for _, platform := range []string{"facebook", "twitter"} {
		if pub.published[platform] == "" {
			t.Errorf("no post published to %s", platform)
		}
	}
}

func TestRunPostContinuesPastFailure(t *testing.T) {
	pub := &stubPublisher{failOn: "facebook"}
	s := New(&stubLoader{configs: map[string]*tenant.ClientConfig{"acme": testClient()}}, ai.NewClient(config.AIConfig{}), pub, logging.WithComponent("test"))

	s.runPost(context.Background(), "acme")

	if pub.published["twitter"] == "" {
		t.Error("twitter post should go out despite facebook failure")
	}
}

func TestGenerateContentTestKey(t *testing.T) {
	s := New(&stubLoader{}, ai.NewClient(config.AIConfig{}), &stubPublisher{}, logging.WithComponent("test"))
	content, err := s.generateContent(context.Background(), testClient())
	if err != nil {
		t.Fatalf("generateContent: %v", err)
	}
	if content == "" {
		t.Error("expected mock content for test key")
	}
}

func TestSocialPublisherFacebook(t *testing.T) {
	var gotMessage string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/me/feed" {
			t.Errorf("unexpected path %q", r.URL.Path)
		}
		r.ParseForm()
		gotMessage = r.FormValue("message")
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	p := NewSocialPublisherWithURLs(srv.URL, srv.URL)
	cfg := testClient()
	cfg.PageAccessToken = "page-token"

	if err := p.Publish(context.Background(), "facebook", cfg, "Hello from Acme"); err != nil {
		t.Fatalf("Publish: %v", err)
	}
	if gotMessage != "Hello from Acme" {
		t.Errorf("message = %q", gotMessage)
	}
}

func TestSocialPublisherTwitter(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/2/tweets" {
			t.Errorf("unexpected path %q", r.URL.Path)
		}
		if r.Header.Get("Authorization") != "Bearer tw-token" {
			t.Errorf("auth = %q", r.Header.Get("Authorization"))
		}
		w.WriteHeader(http.StatusCreated)
	}))
	defer srv.Close()

	p := NewSocialPublisherWithURLs(srv.URL, srv.URL)
	cfg := testClient()
	cfg.TwitterBearerToken = "tw-token"

	if err := p.Publish(context.Background(), "twitter", cfg, "tweet"); err != nil {
		t.Fatalf("Publish: %v", err)
	}
}

func TestSocialPublisherInstagramUnsupported(t *testing.T) {
	p := NewSocialPublisher()
	if err := p.Publish(context.Background(), "instagram", testClient(), "post"); err == nil {
		t.Error("instagram text posts should be rejected")
	}
}
