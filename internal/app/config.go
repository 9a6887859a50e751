package app

import (
	"errors"
	"fmt"
	"time"

	"github.com/kelseyhightower/envconfig"

	"github.com/udms-pro/udms/internal/shared"
)

// Config holds runtime configuration for the application.
type Config struct {
	AppEnv            string        `envconfig:"APP_ENV" default:"development"`
	AppAddr           string        `envconfig:"APP_ADDR" default:":8080"`
	AppReadTimeout    time.Duration `envconfig:"APP_READ_TIMEOUT" default:"15s"`
	AppWriteTimeout   time.Duration `envconfig:"APP_WRITE_TIMEOUT" default:"30s"`
	AppRequestTimeout time.Duration `envconfig:"APP_REQUEST_TIMEOUT" default:"30s"`

	LogFormat string `envconfig:"LOG_FORMAT" default:"pretty"`
	LogLevel  string `envconfig:"LOG_LEVEL" default:"info"`

	// RedisAddr may be empty, in which case sessions and theme live in memory.
	RedisAddr     string        `envconfig:"REDIS_ADDR" default:"127.0.0.1:6379"`
	SessionKey    string        `envconfig:"SESSION_KEY" default:"udms_session"`
	SessionSecret string        `envconfig:"SESSION_SECRET" required:"true"`
	SessionTTL    time.Duration `envconfig:"SESSION_TTL" default:"720h"`
	ThemeKey      string        `envconfig:"THEME_KEY" default:"theme"`

	AuditCapacity   int           `envconfig:"AUDIT_CAPACITY" default:"100"`
	NotificationTTL time.Duration `envconfig:"NOTIFICATION_TTL" default:"6s"`
	LockdownAllow   []string      `envconfig:"LOCKDOWN_ALLOW" default:"dashboard,assistant"`

	TelemetryInterval    time.Duration `envconfig:"TELEMETRY_INTERVAL" default:"12s"`
	TelemetryProbability float64       `envconfig:"TELEMETRY_PROBABILITY" default:"0.15"`

	AssistantURL         string        `envconfig:"ASSISTANT_URL"`
	AssistantAPIKey      string        `envconfig:"ASSISTANT_API_KEY"`
	AssistantTimeout     time.Duration `envconfig:"ASSISTANT_TIMEOUT" default:"20s"`
	AssistantConcurrency int64         `envconfig:"ASSISTANT_CONCURRENCY" default:"4"`

	SeedPath string `envconfig:"SEED_PATH"`
	// NotifyRelay enqueues every notification for the worker to deliver.
	NotifyRelay bool `envconfig:"NOTIFY_RELAY" default:"false"`
}

// LoadConfig reads configuration from environment variables.
func LoadConfig() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, err
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) validate() error {
	if c.SessionSecret == "" {
		return errors.New("session secret must be provided")
	}
	if c.AuditCapacity <= 0 {
		return fmt.Errorf("audit capacity must be positive, got %d", c.AuditCapacity)
	}
	if c.TelemetryProbability < 0 || c.TelemetryProbability > 1 {
		return fmt.Errorf("telemetry probability %.2f outside [0,1]", c.TelemetryProbability)
	}
	if _, err := c.LockdownTabs(); err != nil {
		return err
	}
	return nil
}

// LockdownTabs parses LOCKDOWN_ALLOW into console tabs.
func (c *Config) LockdownTabs() ([]shared.Tab, error) {
	tabs := make([]shared.Tab, 0, len(c.LockdownAllow))
	for _, raw := range c.LockdownAllow {
		tab, ok := shared.ParseTab(raw)
		if !ok {
			return nil, fmt.Errorf("lockdown allow list: unknown tab %q", raw)
		}
		tabs = append(tabs, tab)
	}
	return tabs, nil
}

// IsProduction returns true when the application runs in production.
func (c *Config) IsProduction() bool {
	return c != nil && c.AppEnv == "production"
}
