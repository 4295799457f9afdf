package config

import (
	"fmt"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Port        string `mapstructure:"PORT"`
	Env         string `mapstructure:"ENV"`
	LogFormat   string `mapstructure:"LOG_FORMAT"`
	DatabaseURL string `mapstructure:"DATABASE_URL"`
	DBMaxConns  int32  `mapstructure:"DB_MAX_CONNS"`
	DBMinConns  int32  `mapstructure:"DB_MIN_CONNS"`

	AuthSigningKey string `mapstructure:"AUTH_SIGNING_KEY"`
	AuthIssuer     string `mapstructure:"AUTH_ISSUER"`
	AuthAudience   string `mapstructure:"AUTH_AUDIENCE"`

	ConversionFactor     float64 `mapstructure:"CONVERSION_FACTOR"`
	GeographicModifier   float64 `mapstructure:"GEOGRAPHIC_MODIFIER"`
	ChargemasterBaseRate float64 `mapstructure:"CHARGEMASTER_BASE_RATE"`
	BatchWorkers         int     `mapstructure:"BATCH_WORKERS"`

	SDOHBaseURL string        `mapstructure:"SDOH_BASE_URL"`
	SDOHTimeout time.Duration `mapstructure:"SDOH_TIMEOUT"`

	ArchiveBucket string `mapstructure:"ARCHIVE_BUCKET"`
	ArchivePrefix string `mapstructure:"ARCHIVE_PREFIX"`
	AWSRegion     string `mapstructure:"AWS_REGION"`

	TracingEnabled bool `mapstructure:"TRACING_ENABLED"`
}

var keys = []string{
	"PORT", "ENV", "LOG_FORMAT", "DATABASE_URL", "DB_MAX_CONNS", "DB_MIN_CONNS",
	"AUTH_SIGNING_KEY", "AUTH_ISSUER", "AUTH_AUDIENCE",
	"CONVERSION_FACTOR", "GEOGRAPHIC_MODIFIER", "CHARGEMASTER_BASE_RATE", "BATCH_WORKERS",
	"SDOH_BASE_URL", "SDOH_TIMEOUT",
	"ARCHIVE_BUCKET", "ARCHIVE_PREFIX", "AWS_REGION",
	"TRACING_ENABLED",
}

// Load reads configuration from the environment and an optional .env file.
// DATABASE_URL is not checked here; commands that need the database call
// RequireDatabase.
func Load() (*Config, error) {
	v := viper.New()
	v.SetConfigFile(".env")
	v.SetConfigType("env")
	v.AutomaticEnv()

	v.SetDefault("PORT", "8000")
	v.SetDefault("ENV", "development")
	v.SetDefault("LOG_FORMAT", "json")
	v.SetDefault("DB_MAX_CONNS", 20)
	v.SetDefault("DB_MIN_CONNS", 2)
	v.SetDefault("AUTH_ISSUER", "claimcoder")
	v.SetDefault("CONVERSION_FACTOR", 32.3465)
	v.SetDefault("GEOGRAPHIC_MODIFIER", 1.0)
	v.SetDefault("CHARGEMASTER_BASE_RATE", 100.0)
	v.SetDefault("BATCH_WORKERS", 8)
	v.SetDefault("SDOH_TIMEOUT", "3s")
	v.SetDefault("ARCHIVE_PREFIX", "claimcoder")
	v.SetDefault("AWS_REGION", "us-east-1")
	v.SetDefault("TRACING_ENABLED", false)

	for _, k := range keys {
		v.BindEnv(k)
	}

	// .env is optional
	_ = v.ReadInConfig()

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	return cfg, nil
}

func (c *Config) IsDev() bool {
	return c.Env == "development"
}

func (c *Config) IsProduction() bool {
	return c.Env == "production"
}

// ArchiveEnabled reports whether persisted decisions are copied to S3.
func (c *Config) ArchiveEnabled() bool {
	return c.ArchiveBucket != ""
}

func (c *Config) RequireDatabase() error {
	if c.DatabaseURL == "" {
		return fmt.Errorf("DATABASE_URL is required")
	}
	return nil
}

// Validate checks numeric ranges and refuses to run outside development
// without a token signing key.
func (c *Config) Validate() error {
	switch c.Env {
	case "development", "test", "staging", "production":
	default:
		return fmt.Errorf("ENV must be development, test, staging or production, got %q", c.Env)
	}
	if c.LogFormat != "json" && c.LogFormat != "text" {
		return fmt.Errorf("LOG_FORMAT must be json or text, got %q", c.LogFormat)
	}
	if !c.IsDev() && len(c.AuthSigningKey) < 32 {
		return fmt.Errorf("AUTH_SIGNING_KEY of at least 32 bytes is required when ENV=%s", c.Env)
	}
	if c.DBMaxConns < 1 || c.DBMinConns < 0 || c.DBMinConns > c.DBMaxConns {
		return fmt.Errorf("invalid pool bounds: DB_MIN_CONNS=%d DB_MAX_CONNS=%d", c.DBMinConns, c.DBMaxConns)
	}
	if c.ConversionFactor <= 0 {
		return fmt.Errorf("CONVERSION_FACTOR must be positive")
	}
	if c.GeographicModifier <= 0 {
		return fmt.Errorf("GEOGRAPHIC_MODIFIER must be positive")
	}
	if c.ChargemasterBaseRate <= 0 {
		return fmt.Errorf("CHARGEMASTER_BASE_RATE must be positive")
	}
	if c.BatchWorkers < 1 || c.BatchWorkers > 64 {
		return fmt.Errorf("BATCH_WORKERS must be between 1 and 64, got %d", c.BatchWorkers)
	}
	if c.SDOHBaseURL != "" && c.SDOHTimeout <= 0 {
		return fmt.Errorf("SDOH_TIMEOUT must be positive when SDOH_BASE_URL is set")
	}
	return nil
}
