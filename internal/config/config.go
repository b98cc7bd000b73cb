package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds all application configuration
type Config struct {
	Env       string
	Port      string
	ImagesDir string
	Database  DatabaseConfig
	Images    ImagesConfig
	Pricing   PricingConfig
	Retention RetentionConfig
	Telegram  TelegramConfig
}

// DatabaseConfig holds database configuration
type DatabaseConfig struct {
	Host             string
	Port             string
	Username         string
	Password         string
	Database         string
	SSLMode          string
	Silent           bool
	MaxOpenConns     int
	EmbeddedDataPath string
	EmbeddedPort     int
}

// Embedded reports whether Connect should start its own PostgreSQL
func (c DatabaseConfig) Embedded() bool {
	return c.Host == "localhost" && c.Password == ""
}

// ImagesConfig limits image downloads
type ImagesConfig struct {
	MaxBytes int64
	Timeout  time.Duration
}

// PricingConfig feeds pricing.Policy
type PricingConfig struct {
	Multiplier        float64
	RoundingThreshold float64
	RoundingStep      float64
}

// RetentionConfig controls the hard-delete sweep of soft-deleted products
type RetentionConfig struct {
	Days     int
	Interval time.Duration
}

// TelegramConfig holds Bot API settings
type TelegramConfig struct {
	Token      string
	APIURL     string
	Channels   []string
	RatePerSec float64
	MaxRetries int
}

var defaults = map[string]interface{}{
	"NODE_ENV":                 "development",
	"PORT":                     "3210",
	"IMAGES_DIR":               "./images",
	"PG_HOST":                  "localhost",
	"PG_PORT":                  "5432",
	"PG_USERNAME":              "postgres",
	"PG_DATABASE":              "catalog",
	"PG_SSLMODE":               "disable",
	"DB_LOG_SILENT":            false,
	"DB_MAX_OPEN_CONNS":        50,
	"DB_EMBEDDED_PATH":         "./db_data",
	"DB_EMBEDDED_PORT":         5433,
	"IMAGE_MAX_BYTES":          10 << 20,
	"IMAGE_TIMEOUT":            "30s",
	"PRICE_MULTIPLIER":         1.0,
	"PRICE_ROUNDING_THRESHOLD": 0.0,
	"PRICE_ROUNDING_STEP":      10.0,
	"RETENTION_DAYS":           30,
	"RETENTION_INTERVAL":       "24h",
	"TELEGRAM_API_URL":         "https://api.telegram.org",
	"TELEGRAM_RATE_PER_SEC":    1.0,
	"TELEGRAM_MAX_RETRIES":     3,
}

// Load reads configuration from the environment, after loading .env if present
func Load() (*Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	for key, value := range defaults {
		v.SetDefault(key, value)
	}
	v.AutomaticEnv()
	return fromViper(v)
}

func fromViper(v *viper.Viper) (*Config, error) {
	cfg := &Config{
		Env:       v.GetString("NODE_ENV"),
		Port:      v.GetString("PORT"),
		ImagesDir: v.GetString("IMAGES_DIR"),
		Database: DatabaseConfig{
			Host:             v.GetString("PG_HOST"),
			Port:             v.GetString("PG_PORT"),
			Username:         v.GetString("PG_USERNAME"),
			Password:         v.GetString("PG_PASSWORD"),
			Database:         v.GetString("PG_DATABASE"),
			SSLMode:          v.GetString("PG_SSLMODE"),
			Silent:           v.GetBool("DB_LOG_SILENT"),
			MaxOpenConns:     v.GetInt("DB_MAX_OPEN_CONNS"),
			EmbeddedDataPath: v.GetString("DB_EMBEDDED_PATH"),
			EmbeddedPort:     v.GetInt("DB_EMBEDDED_PORT"),
		},
		Images: ImagesConfig{
			MaxBytes: v.GetInt64("IMAGE_MAX_BYTES"),
			Timeout:  v.GetDuration("IMAGE_TIMEOUT"),
		},
		Pricing: PricingConfig{
			Multiplier:        v.GetFloat64("PRICE_MULTIPLIER"),
			RoundingThreshold: v.GetFloat64("PRICE_ROUNDING_THRESHOLD"),
			RoundingStep:      v.GetFloat64("PRICE_ROUNDING_STEP"),
		},
		Retention: RetentionConfig{
			Days:     v.GetInt("RETENTION_DAYS"),
			Interval: v.GetDuration("RETENTION_INTERVAL"),
		},
		Telegram: TelegramConfig{
			Token:      v.GetString("TELEGRAM_BOT_TOKEN"),
			APIURL:     strings.TrimRight(v.GetString("TELEGRAM_API_URL"), "/"),
			Channels:   splitList(v.GetString("TELEGRAM_CHANNELS")),
			RatePerSec: v.GetFloat64("TELEGRAM_RATE_PER_SEC"),
			MaxRetries: v.GetInt("TELEGRAM_MAX_RETRIES"),
		},
	}

	if cfg.Pricing.Multiplier <= 0 {
		return nil, fmt.Errorf("PRICE_MULTIPLIER must be positive, got %v", cfg.Pricing.Multiplier)
	}
	if cfg.Retention.Days < 0 {
		return nil, fmt.Errorf("RETENTION_DAYS must not be negative, got %d", cfg.Retention.Days)
	}
	if cfg.Retention.Interval <= 0 {
		return nil, fmt.Errorf("RETENTION_INTERVAL must be positive")
	}
	if cfg.Images.MaxBytes <= 0 {
		return nil, fmt.Errorf("IMAGE_MAX_BYTES must be positive")
	}
	return cfg, nil
}

// splitList parses "a, b,,c" into [a b c]
func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
