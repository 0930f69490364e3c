// config/config.go
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

// Config is the process configuration, read from the environment (and .env if present).
type Config struct {
	Port           int    `env:"PORT" envDefault:"5200"`
	DatabaseURL    string `env:"DATABASE_URL,notEmpty"`
	AllowedOrigins string `env:"ALLOWED_ORIGINS" envDefault:"http://localhost:3000"`
	LogLevel       string `env:"LOG_LEVEL" envDefault:"info"`

	// Sessions are either verified locally (SESSION_SECRET) or by the auth service.
	SessionSecret    string `env:"SESSION_SECRET"`
	AuthServiceURL   string `env:"AUTH_SERVICE_URL"`
	AuthServiceToken string `env:"AUTH_SERVICE_TOKEN"`

	R2AccountID    string `env:"CLOUDFLARE_ACCOUNT_ID"`
	R2AccessKeyID  string `env:"R2_ACCESS_KEY_ID"`
	R2AccessSecret string `env:"R2_ACCESS_KEY_SECRET"`
	R2Bucket       string `env:"R2_BUCKET_NAME"`
	CDNBaseURL     string `env:"CDN_BASE_URL"`
	UploadDir      string `env:"UPLOAD_DIR" envDefault:"uploads"`

	ResendAPIKey string `env:"RESEND_API_KEY"`
	MailFrom     string `env:"MAIL_FROM" envDefault:"ZE Club <club@zeesports.gg>"`

	SyncServiceURL   string        `env:"SYNC_SERVICE_URL"`
	SyncServiceToken string        `env:"SYNC_SERVICE_TOKEN"`
	SyncInterval     time.Duration `env:"SYNC_INTERVAL" envDefault:"1m"`

	SchedulerInterval time.Duration `env:"SCHEDULER_INTERVAL" envDefault:"1m"`
}

// Load reads .env (when present) and parses the environment into a Config.
func Load() (*Config, bool, error) {
	dotenvLoaded := godotenv.Load() == nil

	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return nil, dotenvLoaded, fmt.Errorf("parse env: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, dotenvLoaded, err
	}
	return &cfg, dotenvLoaded, nil
}

// Validate checks cross-field requirements env tags can't express.
func (c *Config) Validate() error {
	if c.SessionSecret == "" && c.AuthServiceURL == "" {
		return fmt.Errorf("either SESSION_SECRET or AUTH_SERVICE_URL must be set")
	}
	if c.SyncServiceURL != "" && c.SyncServiceToken == "" {
		return fmt.Errorf("SYNC_SERVICE_TOKEN is required when SYNC_SERVICE_URL is set")
	}
	return nil
}

// Origins returns ALLOWED_ORIGINS trimmed and re-joined the way fiber's CORS config expects.
func (c *Config) Origins() string {
	parts := strings.Split(c.AllowedOrigins, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return strings.Join(out, ",")
}

// R2Enabled reports whether object storage credentials are configured.
func (c *Config) R2Enabled() bool {
	return c.R2AccountID != "" && c.R2AccessKeyID != "" && c.R2AccessSecret != "" && c.R2Bucket != ""
}
