package tenant

import (
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/inexasli/automation-gateway/internal/config"
)

// Loader fetches ClientConfig records from the external config service (or a
// local directory of JSON files) and caches them. Cached configs are shared
// read-only across concurrent requests.
type Loader struct {
	serviceURL string
	dir        string
	ttl        time.Duration
	httpClient *http.Client
	logger     *slog.Logger

	mu    sync.RWMutex
	cache map[string]cacheEntry
}

type cacheEntry struct {
	cfg     *ClientConfig
	fetched time.Time
}

// NewLoader creates a loader from the tenants section of the process config
func NewLoader(cfg config.TenantsConfig, logger *slog.Logger) *Loader {
	return &Loader{
		serviceURL: cfg.ServiceURL,
		dir:        cfg.Dir,
		ttl:        cfg.GetCacheTTL(),
		httpClient: &http.Client{Timeout: 10 * time.Second},
		logger:     logger,
		cache:      make(map[string]cacheEntry),
	}
}

// Get returns the ClientConfig for a tenant, from cache when fresh
func (l *Loader) Get(clientID string) (*ClientConfig, error) {
	l.mu.RLock()
	entry, ok := l.cache[clientID]
	l.mu.RUnlock()
	if ok && time.Since(entry.fetched) < l.ttl {
		return entry.cfg, nil
	}

	cfg, err := l.fetch(clientID)
	if err != nil {
		// Serve a stale config over failing the request
		if ok {
			l.logger.Warn("Config fetch failed, serving cached config", "client", clientID, "error", err)
			return entry.cfg, nil
		}
		return nil, err
	}

	l.mu.Lock()
	l.cache[clientID] = cacheEntry{cfg: cfg, fetched: time.Now()}
	l.mu.Unlock()

	return cfg, nil
}

// Invalidate drops a tenant from the cache
func (l *Loader) Invalidate(clientID string) {
	l.mu.Lock()
	delete(l.cache, clientID)
	l.mu.Unlock()
}

func (l *Loader) fetch(clientID string) (*ClientConfig, error) {
	var data []byte
	var err error

	if l.serviceURL != "" {
		data, err = l.fetchRemote(clientID)
	} else {
		data, err = os.ReadFile(filepath.Join(l.dir, clientID+".json"))
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load config for %s: %w", clientID, err)
	}

	var cfg ClientConfig
	if err := json.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("%w: malformed config for %s: %v", ErrInvalidConfig, clientID, err)
	}
	if cfg.ClientID == "" {
		cfg.ClientID = clientID
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func (l *Loader) fetchRemote(clientID string) ([]byte, error) {
	url := fmt.Sprintf("%s/%s/full-config", l.serviceURL, clientID)
	resp, err := l.httpClient.Get(url)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("config service returned status %d", resp.StatusCode)
	}

	return io.ReadAll(resp.Body)
}
