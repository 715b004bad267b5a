package config

import (
	"fmt"
	"time"

	"github.com/kelseyhightower/envconfig"

	"github.com/saturnino-fabrica-de-software/rekko-enroll/internal/capture"
	"github.com/saturnino-fabrica-de-software/rekko-enroll/internal/enrollment"
)

// Config configures the reference enrollment server.
type Config struct {
	// Server
	Port        int    `envconfig:"PORT" default:"3000"`
	Environment string `envconfig:"ENV" default:"development"`

	// Database. Sessions are kept in memory when empty.
	DatabaseURL  string `envconfig:"DATABASE_URL"`
	DatabaseName string `envconfig:"DATABASE_NAME" default:"rekko_enroll"`

	// Sessions
	SessionTTL     time.Duration `envconfig:"SESSION_TTL" default:"15m"`
	ExpiryInterval time.Duration `envconfig:"EXPIRY_INTERVAL" default:"1m"`

	// Frame verification
	ProviderType     string  `envconfig:"PROVIDER_TYPE" default:"local"`
	AWSRegion        string  `envconfig:"AWS_REGION" default:"us-east-1"`
	AcceptMinQuality float64 `envconfig:"ACCEPT_MIN_QUALITY" default:"0.7"`

	// Rate limiting
	RateLimitRPS   float64 `envconfig:"RATE_LIMIT_RPS" default:"20"`
	RateLimitBurst int     `envconfig:"RATE_LIMIT_BURST" default:"40"`
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	if cfg.AcceptMinQuality < 0 || cfg.AcceptMinQuality > 1 {
		return nil, fmt.Errorf("load config: ACCEPT_MIN_QUALITY must be within [0,1], got %v", cfg.AcceptMinQuality)
	}
	return &cfg, nil
}

func (c *Config) IsDevelopment() bool {
	return c.Environment == "development"
}

func (c *Config) IsProduction() bool {
	return c.Environment == "production"
}

// UsesDatabase reports whether sessions are persisted in Postgres.
func (c *Config) UsesDatabase() bool {
	return c.DatabaseURL != ""
}

// CaptureConfig configures the capture client (cmd/enroll).
type CaptureConfig struct {
	Environment string `envconfig:"ENV" default:"development"`

	APIURL       string        `envconfig:"ENROLL_API_URL" default:"http://localhost:3000/v1"`
	Timeout      time.Duration `envconfig:"ENROLL_TIMEOUT" default:"10s"`
	RetryCount   int           `envconfig:"ENROLL_RETRY_COUNT" default:"2"`
	RetryBackoff time.Duration `envconfig:"ENROLL_RETRY_BACKOFF" default:"500ms"`

	TickInterval  time.Duration `envconfig:"CAPTURE_INTERVAL" default:"100ms"`
	Cooldown      time.Duration `envconfig:"CAPTURE_COOLDOWN" default:"2s"`
	MinConfidence float64       `envconfig:"CAPTURE_MIN_CONFIDENCE" default:"0.9"`
	MinQuality    float64       `envconfig:"CAPTURE_MIN_QUALITY" default:"0.85"`
	JPEGQuality   int           `envconfig:"CAPTURE_JPEG_QUALITY" default:"90"`
	WorkingWidth  int           `envconfig:"CAPTURE_WORKING_WIDTH" default:"720"`
}

func LoadCapture() (*CaptureConfig, error) {
	var cfg CaptureConfig
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("load capture config: %w", err)
	}
	if cfg.JPEGQuality < 1 || cfg.JPEGQuality > 100 {
		return nil, fmt.Errorf("load capture config: CAPTURE_JPEG_QUALITY must be within [1,100], got %d", cfg.JPEGQuality)
	}
	if cfg.TickInterval <= 0 {
		return nil, fmt.Errorf("load capture config: CAPTURE_INTERVAL must be positive")
	}
	return &cfg, nil
}

// Controller maps the capture settings onto capture.Config.
func (c *CaptureConfig) Controller() capture.Config {
	cfg := capture.DefaultConfig()
	cfg.TickInterval = c.TickInterval
	cfg.Cooldown = c.Cooldown
	cfg.MinConfidence = c.MinConfidence
	cfg.MinQuality = c.MinQuality
	cfg.JPEGQuality = c.JPEGQuality
	cfg.WorkingWidth = c.WorkingWidth
	return cfg
}

func (c *CaptureConfig) Client() enrollment.Config {
	return enrollment.Config{
		BaseURL:      c.APIURL,
		Timeout:      c.Timeout,
		RetryCount:   c.RetryCount,
		RetryBackoff: c.RetryBackoff,
	}
}
