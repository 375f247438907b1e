package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds all configuration for the automation gateway process.
// Per-tenant settings live in tenant.ClientConfig, not here.
type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Redis     RedisConfig     `yaml:"redis"`
	AI        AIConfig        `yaml:"ai"`
	Tenants   TenantsConfig   `yaml:"tenants"`
	Channels  ChannelsConfig  `yaml:"channels"`
	Pipeline  PipelineConfig  `yaml:"pipeline"`
	Scheduler SchedulerConfig `yaml:"scheduler"`
	Logging   LoggingConfig   `yaml:"logging"`
}

// ServerConfig defines HTTP server settings
type ServerConfig struct {
	Port int    `yaml:"port"`
	Host string `yaml:"host"`
}

// RedisConfig defines the shared Redis connection
type RedisConfig struct {
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
}

// AIConfig defines the AI provider connection used by classifiers and reply
// generation. The per-tenant API key in ClientConfig takes precedence.
type AIConfig struct {
	BaseURL string `yaml:"base_url"`
	APIKey  string `yaml:"api_key"`
	Model   string `yaml:"model"`
	Timeout string `yaml:"timeout"`
}

// GetTimeout returns the AI call timeout as a time.Duration
func (a *AIConfig) GetTimeout() time.Duration {
	if a.Timeout == "" {
		return 10 * time.Second
	}
	d, err := time.ParseDuration(a.Timeout)
	if err != nil {
		return 10 * time.Second
	}
	return d
}

// TenantsConfig defines where client configs are loaded from.
// Exactly one of ServiceURL or Dir should be set.
type TenantsConfig struct {
	ServiceURL string `yaml:"service_url,omitempty"`
	Dir        string `yaml:"dir,omitempty"`
	CacheTTL   string `yaml:"cache_ttl,omitempty"`
	Default    string `yaml:"default"`
}

// GetCacheTTL returns the tenant cache TTL as a time.Duration
func (t *TenantsConfig) GetCacheTTL() time.Duration {
	if t.CacheTTL == "" {
		return 5 * time.Minute
	}
	d, err := time.ParseDuration(t.CacheTTL)
	if err != nil {
		return 5 * time.Minute
	}
	return d
}

// ChannelsConfig defines channel adapter configurations
type ChannelsConfig struct {
	WebChat  WebChatConfig  `yaml:"webchat"`
	Telegram TelegramConfig `yaml:"telegram"`
}

// WebChatConfig defines the chat widget websocket channel
type WebChatConfig struct {
	Enabled bool `yaml:"enabled"`
	Port    int  `yaml:"port"`
}

// TelegramConfig defines the Telegram channel
type TelegramConfig struct {
	Enabled bool   `yaml:"enabled"`
	Token   string `yaml:"token"`
}

// PipelineConfig defines pipeline stage timeouts
type PipelineConfig struct {
	StageTimeout      string `yaml:"stage_timeout,omitempty"`
	BestEffortTimeout string `yaml:"best_effort_timeout,omitempty"`
}

// GetStageTimeout returns the timeout for gating and reply stages
func (p *PipelineConfig) GetStageTimeout() time.Duration {
	if p.StageTimeout == "" {
		return 10 * time.Second
	}
	d, err := time.ParseDuration(p.StageTimeout)
	if err != nil {
		return 10 * time.Second
	}
	return d
}

// GetBestEffortTimeout returns the grace period for webhook and usage dispatch
func (p *PipelineConfig) GetBestEffortTimeout() time.Duration {
	if p.BestEffortTimeout == "" {
		return 3 * time.Second
	}
	d, err := time.ParseDuration(p.BestEffortTimeout)
	if err != nil {
		return 3 * time.Second
	}
	return d
}

// SchedulerConfig defines the social posting scheduler
type SchedulerConfig struct {
	Enabled bool     `yaml:"enabled"`
	Clients []string `yaml:"clients,omitempty"`
}

// LoggingConfig defines logging settings
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// Load loads configuration from a YAML file with environment variable overrides
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	cfg.applyEnvOverrides()

	return &cfg, nil
}

// applyEnvOverrides applies environment variable overrides to the config
func (c *Config) applyEnvOverrides() {
	if port := os.Getenv("GATEWAY_PORT"); port != "" {
		fmt.Sscanf(port, "%d", &c.Server.Port)
	}
	if addr := os.Getenv("REDIS_ADDR"); addr != "" {
		c.Redis.Addr = addr
	}
	if pw := os.Getenv("REDIS_PASSWORD"); pw != "" {
		c.Redis.Password = pw
	}
	if key := os.Getenv("XAI_API_KEY"); key != "" {
		c.AI.APIKey = key
	}
	if url := os.Getenv("TENANT_CONFIG_URL"); url != "" {
		c.Tenants.ServiceURL = url
	}
	if token := os.Getenv("TELEGRAM_TOKEN"); token != "" {
		c.Channels.Telegram.Token = token
	}
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d", c.Server.Port)
	}
	if c.Redis.Addr == "" {
		return fmt.Errorf("redis addr is required")
	}
	if c.Tenants.ServiceURL == "" && c.Tenants.Dir == "" {
		return fmt.Errorf("tenants service_url or dir is required")
	}
	if c.Tenants.Default == "" {
		return fmt.Errorf("default tenant is required")
	}
	return nil
}
