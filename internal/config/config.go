package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds the full application configuration loaded from env / config file.
type Config struct {
	App           AppConfig           `mapstructure:"app"`
	Database      DatabaseConfig      `mapstructure:"database"`
	Redis         RedisConfig         `mapstructure:"redis"`
	Store         StoreConfig         `mapstructure:"store"`
	Firestore     FirestoreConfig     `mapstructure:"firestore"`
	Retention     RetentionConfig     `mapstructure:"retention"`
	Archive       ArchiveConfig       `mapstructure:"archive"`
	S3            S3Config            `mapstructure:"s3"`
	JWT           JWTConfig           `mapstructure:"jwt"`
	API           APIConfig           `mapstructure:"api"`
	LLM           LLMConfig           `mapstructure:"llm"`
	Worker        WorkerConfig        `mapstructure:"worker"`
	Notifications NotificationsConfig `mapstructure:"notifications"`
}

type AppConfig struct {
	Name     string `mapstructure:"name"`
	Env      string `mapstructure:"env"`  // development | production
	Port     int    `mapstructure:"port"` // HTTP API port
	Version  string `mapstructure:"version"`
	LogLevel string `mapstructure:"log_level"`
}

type DatabaseConfig struct {
	DSN             string        `mapstructure:"dsn"`
	MaxOpenConns    int           `mapstructure:"max_open_conns"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
	// AutoMigrate applies embedded goose migrations on connect.
	AutoMigrate bool `mapstructure:"auto_migrate"`
}

type RedisConfig struct {
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

// StoreConfig selects the document store backing tenants, keywords and summaries.
type StoreConfig struct {
	Backend string `mapstructure:"backend"` // "postgres" | "firestore"
}

type FirestoreConfig struct {
	ProjectID       string `mapstructure:"project_id"`
	DatabaseID      string `mapstructure:"database_id"`
	CredentialsFile string `mapstructure:"credentials_file"`
}

// RetentionConfig drives the scheduled cleanup. The retention period itself
// travels in the trigger message; see internal/retention.
type RetentionConfig struct {
	// Cron spec for the scheduled cleanup trigger (asynq scheduler).
	Schedule string `mapstructure:"schedule"`
	// Deletes per committed batch, clamped to the store limit of 500.
	BatchSize int `mapstructure:"batch_size"`
	// RetentionDays, when non-zero, is embedded in the scheduled trigger.
	RetentionDays int `mapstructure:"retention_days"`
}

// ArchiveConfig enables writing stale summaries to object storage before deletion.
type ArchiveConfig struct {
	Backend string `mapstructure:"backend"` // "" (disabled), "s3", "fs"
	FSRoot  string `mapstructure:"fs_root"`
	// EncryptionKey, when set, seals blobs with AES-256-GCM (64 hex chars).
	EncryptionKey string `mapstructure:"encryption_key"`
}

// S3Config holds credentials for an S3-compatible provider.
type S3Config struct {
	Endpoint        string `mapstructure:"endpoint"`
	Region          string `mapstructure:"region"`
	Bucket          string `mapstructure:"bucket"`
	AccessKeyID     string `mapstructure:"access_key_id"`
	SecretAccessKey string `mapstructure:"secret_access_key"`
	// ForcePathStyle must be true for Garage / MinIO
	ForcePathStyle bool `mapstructure:"force_path_style"`
	// StorageClass e.g. STANDARD, GLACIER_IR
	StorageClass string `mapstructure:"storage_class"`
}

type JWTConfig struct {
	Secret     string        `mapstructure:"secret"`
	Expiration time.Duration `mapstructure:"expiration"`
}

type APIConfig struct {
	AdminToken string  `mapstructure:"admin_token"`
	RateLimit  float64 `mapstructure:"rate_limit"` // requests per second per IP
	RateBurst  int     `mapstructure:"rate_burst"`
}

type LLMConfig struct {
	Provider       string        `mapstructure:"provider"` // "openai" | "anthropic"
	APIKey         string        `mapstructure:"api_key"`
	Model          string        `mapstructure:"model"`
	MaxResults     int           `mapstructure:"max_results"`
	RequestTimeout time.Duration `mapstructure:"request_timeout"`
	// Calls per second across all summarize handlers; 0 disables limiting.
	RateLimit float64 `mapstructure:"rate_limit"`
}

type WorkerConfig struct {
	// How often keyword searches are dispatched
	DispatchInterval time.Duration `mapstructure:"dispatch_interval"`
	// Max concurrent task handlers
	Concurrency int `mapstructure:"concurrency"`
	// Address for the worker's /metrics listener; empty disables it.
	MetricsAddr string `mapstructure:"metrics_addr"`
}

type NotificationsConfig struct {
	SlackWebhookURL string `mapstructure:"slack_webhook_url"`
}

// Load reads configuration from environment variables and optional config file.
// Environment variable prefix: NEWSPORTAL_
// Example: NEWSPORTAL_RETENTION_BATCH_SIZE=200.
func Load() (*Config, error) {
	v := viper.New()

	// ---------- defaults ----------
	v.SetDefault("app.name", "newsportal")
	v.SetDefault("app.env", "development")
	v.SetDefault("app.port", 8080)
	v.SetDefault("app.version", "0.3.0")
	v.SetDefault("app.log_level", "")

	v.SetDefault("database.dsn", "")
	v.SetDefault("database.max_open_conns", 10)
	v.SetDefault("database.max_idle_conns", 2)
	v.SetDefault("database.conn_max_lifetime", "5m")
	v.SetDefault("database.auto_migrate", true)

	v.SetDefault("redis.addr", "localhost:6379")
	v.SetDefault("redis.db", 0)
	v.SetDefault("redis.password", "")

	v.SetDefault("store.backend", "postgres")

	v.SetDefault("firestore.project_id", "")
	v.SetDefault("firestore.database_id", "(default)")
	v.SetDefault("firestore.credentials_file", "")

	v.SetDefault("retention.schedule", "0 3 * * *") // daily, 03:00 UTC
	v.SetDefault("retention.batch_size", 500)
	v.SetDefault("retention.retention_days", 0)

	v.SetDefault("archive.backend", "")
	v.SetDefault("archive.fs_root", "./data/archive")
	v.SetDefault("archive.encryption_key", "")

	v.SetDefault("s3.region", "us-east-1")
	v.SetDefault("s3.endpoint", "")
	v.SetDefault("s3.bucket", "")
	v.SetDefault("s3.access_key_id", "")
	v.SetDefault("s3.secret_access_key", "")
	v.SetDefault("s3.force_path_style", true)
	v.SetDefault("s3.storage_class", "STANDARD")

	v.SetDefault("jwt.expiration", "24h")
	v.SetDefault("jwt.secret", "")

	v.SetDefault("api.admin_token", "")
	v.SetDefault("api.rate_limit", 20)
	v.SetDefault("api.rate_burst", 40)

	v.SetDefault("llm.provider", "openai")
	v.SetDefault("llm.api_key", "")
	v.SetDefault("llm.model", "")
	v.SetDefault("llm.max_results", 5)
	v.SetDefault("llm.request_timeout", "60s")
	v.SetDefault("llm.rate_limit", 1)

	v.SetDefault("worker.dispatch_interval", "6h")
	v.SetDefault("worker.concurrency", 5)
	v.SetDefault("worker.metrics_addr", ":9091")

	v.SetDefault("notifications.slack_webhook_url", "")

	// ---------- config file (optional) ----------
	v.SetConfigName("newsportal")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("/etc/newsportal")

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("config: read file: %w", err)
		}
	}

	// ---------- env vars ----------
	v.SetEnvPrefix("NEWSPORTAL")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("config: unmarshal: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Validate rejects combinations that cannot start.
func (c *Config) Validate() error {
	switch c.Store.Backend {
	case "postgres", "firestore":
	default:
		return fmt.Errorf("config: unknown store backend %q", c.Store.Backend)
	}
	switch c.Archive.Backend {
	case "", "s3", "fs":
	default:
		return fmt.Errorf("config: unknown archive backend %q", c.Archive.Backend)
	}
	switch c.LLM.Provider {
	case "openai", "anthropic":
	default:
		return fmt.Errorf("config: unknown llm provider %q", c.LLM.Provider)
	}
	if c.Retention.BatchSize < 0 {
		return fmt.Errorf("config: retention.batch_size must not be negative")
	}
	return nil
}
