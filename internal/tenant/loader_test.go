package tenant

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/inexasli/automation-gateway/internal/config"
	"github.com/inexasli/automation-gateway/internal/logging"
)

const sampleConfig = `{
	"client_id": "inexasli",
	"brand_name": "INEXASLI",
	"brand_voice": "AI automation expert",
	"xaiApiKey": "test-key-for-local-dev",
	"rateLimitMax": 1,
	"rateLimitTtl": 3600,
	"enabled_social_platforms": ["instagram"],
	"business_synopsis": {"description": "AI-powered platform"}
}`

func writeTenantDir(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "inexasli.json"), []byte(sampleConfig), 0o644); err != nil {
		t.Fatal(err)
	}
	return dir
}

func TestLoadFromDir(t *testing.T) {
	dir := writeTenantDir(t)
	l := NewLoader(config.TenantsConfig{Dir: dir}, logging.WithComponent("test"))

	cfg, err := l.Get("inexasli")
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if cfg.BrandName != "INEXASLI" {
		t.Errorf("Expected brand INEXASLI, got %s", cfg.BrandName)
	}
	if cfg.RateLimitMax != 1 {
		t.Errorf("Expected rateLimitMax 1, got %d", cfg.RateLimitMax)
	}
	if cfg.RateLimitWindow().Hours() != 1 {
		t.Errorf("Expected 1h window, got %v", cfg.RateLimitWindow())
	}
	if !cfg.PlatformEnabled("instagram") {
		t.Error("Expected instagram enabled")
	}
	if cfg.PlatformEnabled("facebook") {
		t.Error("Expected facebook disabled")
	}
}

func TestLoadFromService(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/inexasli/full-config" {
			http.NotFound(w, r)
			return
		}
		w.Write([]byte(sampleConfig))
	}))
	defer srv.Close()

	l := NewLoader(config.TenantsConfig{ServiceURL: srv.URL}, logging.WithComponent("test"))
	cfg, err := l.Get("inexasli")
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if cfg.ClientID != "inexasli" {
		t.Errorf("Expected client inexasli, got %s", cfg.ClientID)
	}
}

func TestGetCaches(t *testing.T) {
	calls := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.Write([]byte(sampleConfig))
	}))
	defer srv.Close()

	l := NewLoader(config.TenantsConfig{ServiceURL: srv.URL}, logging.WithComponent("test"))
	l.Get("inexasli")
	l.Get("inexasli")
	if calls != 1 {
		t.Errorf("Expected 1 fetch, got %d", calls)
	}

	l.Invalidate("inexasli")
	l.Get("inexasli")
	if calls != 2 {
		t.Errorf("Expected 2 fetches after invalidate, got %d", calls)
	}
}

func TestMalformedConfig(t *testing.T) {
	dir := t.TempDir()
	os.WriteFile(filepath.Join(dir, "bad.json"), []byte("{not json"), 0o644)

	l := NewLoader(config.TenantsConfig{Dir: dir}, logging.WithComponent("test"))
	_, err := l.Get("bad")
	if !errors.Is(err, ErrInvalidConfig) {
		t.Errorf("Expected ErrInvalidConfig, got %v", err)
	}
}

func TestValidateMissingBrand(t *testing.T) {
	cfg := &ClientConfig{ClientID: "x"}
	if err := cfg.Validate(); !errors.Is(err, ErrInvalidConfig) {
		t.Errorf("Expected ErrInvalidConfig, got %v", err)
	}
}
