package config

import "github.com/kelseyhightower/envconfig"

type Config struct {
	// ----------------------------
	// Mail transport
	// ----------------------------
	MailProvider string `envconfig:"MAIL_PROVIDER" default:"smtp"`

	SMTPHost     string `envconfig:"SMTP_HOST" default:"localhost"`
	SMTPPort     int    `envconfig:"SMTP_PORT" default:"1025"`
	SMTPUser     string `envconfig:"SMTP_USER" default:""`
	SMTPPassword string `envconfig:"SMTP_PASSWORD" default:""`

	ResendAPIKey string `envconfig:"RESEND_API_KEY" default:""`

	FromEmail string `envconfig:"FROM_EMAIL" default:"newsletters@letterflow.app"`

	// ----------------------------
	// Dispatch
	// ----------------------------
	RateLimit         int `envconfig:"RATE_LIMIT" default:"10"`
	SMTPRetryAttempts int `envconfig:"SMTP_RETRY_ATTEMPTS" default:"3"`

	// ----------------------------
	// HTTP API
	// ----------------------------
	APIPort string `envconfig:"API_PORT" default:"8080"`

	// ----------------------------
	// Metrics
	// ----------------------------
	MetricsPort       string `envconfig:"METRICS_PORT" default:"9090"`
	StatsPollInterval int    `envconfig:"STATS_POLL_INTERVAL_SECONDS" default:"15"`

	// ----------------------------
	// Stores
	// ----------------------------
	DatabaseURL string `envconfig:"DATABASE_URL" required:"true"`
	RedisURL    string `envconfig:"REDIS_URL" default:"redis://localhost:6379/0"`
}

func Load() (*Config, error) {
	var cfg Config
	err := envconfig.Process("", &cfg)
	return &cfg, err
}
