package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"plantchecks/internal/store"
)

// DatabaseConfig holds Postgres settings for the submission audit trail.
type DatabaseConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	Database string
	SSLMode  string
}

// DSN builds the lib/pq connection string.
func (c *DatabaseConfig) DSN() string {
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.Database, c.SSLMode)
}

// MailConfig holds the Mailjet credentials and addressing defaults for the
// inspection-report email.
type MailConfig struct {
	APIKey    string
	SecretKey string
	BaseURL   string // override for tests; default is the Mailjet API
	FromEmail string
	FromName  string
	ToEmail   string
	ToName    string
}

// Config is the whole service configuration, loaded from environment
// variables with defaults.
type Config struct {
	HTTP struct {
		Addr string
	}

	Redis    store.RedisConfig
	Database DatabaseConfig
	Mail     MailConfig

	// SubmitToken is the shared-secret link token every request must carry.
	// Empty means no request is ever authorized.
	SubmitToken string

	// StoreTimeout bounds each KV get/put; past it the operation fails as
	// store-unavailable instead of hanging.
	StoreTimeout time.Duration

	// AuditEnabled toggles the Postgres submission audit trail.
	AuditEnabled bool

	// EventStream is the Redis stream record-updated events are published to.
	EventStream string

	// Checklists are the default label sets per equipment type, used when
	// the first submission of a week carries no labels. Replaceable
	// wholesale via CHECKLISTS_FILE (JSON: {"type": ["label", ...]}).
	Checklists map[string][]string

	Log struct {
		Level  string
		Format string
	}
}

// Load reads configuration from the environment.
func Load() (*Config, error) {
	cfg := &Config{}

	cfg.HTTP.Addr = getEnv("HTTP_ADDR", ":8086")

	cfg.Redis.Addr = getEnv("REDIS_ADDR", "localhost:6379")
	cfg.Redis.Password = getEnv("REDIS_PASSWORD", "")
	cfg.Redis.DB = getEnvInt("REDIS_DB", 0)

	cfg.Database.Host = getEnv("DB_HOST", "localhost")
	cfg.Database.Port = getEnvInt("DB_PORT", 5432)
	cfg.Database.User = getEnv("DB_USER", "postgres")
	cfg.Database.Password = getEnv("DB_PASSWORD", "postgres")
	cfg.Database.Database = getEnv("DB_NAME", "plantchecks")
	cfg.Database.SSLMode = getEnv("DB_SSLMODE", "disable")

	cfg.Mail.APIKey = getEnv("MAILJET_API_KEY", "")
	cfg.Mail.SecretKey = getEnv("MAILJET_SECRET_KEY", "")
	cfg.Mail.BaseURL = getEnv("MAILJET_BASE_URL", "https://api.mailjet.com")
	cfg.Mail.FromEmail = getEnv("MAIL_FROM", "")
	cfg.Mail.FromName = getEnv("MAIL_FROM_NAME", "Plant Checks")
	cfg.Mail.ToEmail = getEnv("DEST_EMAIL", "")
	cfg.Mail.ToName = getEnv("DEST_NAME", "Site Agent")

	cfg.SubmitToken = getEnv("SUBMIT_TOKEN", "")

	timeoutSec := getEnvInt("STORE_TIMEOUT_SECONDS", 5)
	if timeoutSec <= 0 {
		timeoutSec = 5
	}
	cfg.StoreTimeout = time.Duration(timeoutSec) * time.Second

	cfg.AuditEnabled = getEnv("AUDIT_ENABLED", "true") == "true"
	cfg.EventStream = getEnv("EVENT_STREAM", "plantchecks:events")

	cfg.Checklists = DefaultChecklists()
	if path := getEnv("CHECKLISTS_FILE", ""); path != "" {
		lists, err := loadChecklistsFile(path)
		if err != nil {
			return nil, fmt.Errorf("load checklists file %s: %w", path, err)
		}
		cfg.Checklists = lists
	}

	cfg.Log.Level = getEnv("LOG_LEVEL", "info")
	cfg.Log.Format = getEnv("LOG_FORMAT", "json")

	return cfg, nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if v, err := strconv.Atoi(value); err == nil {
			return v
		}
	}
	return defaultValue
}
