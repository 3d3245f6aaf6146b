package config

import (
	"errors"
	"io/fs"
	"log"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config represents the overall application configuration.
type Config struct {
	Server     ServerConfig     `yaml:"server"`
	Database   DatabaseConfig   `yaml:"database"`
	Auth       AuthConfig       `yaml:"auth"`
	Warranty   WarrantyConfig   `yaml:"warranty"`
	Assistant  AssistantConfig  `yaml:"assistant"`
	Catalog    CatalogConfig    `yaml:"catalog"`
	Escalation EscalationConfig `yaml:"escalation"`
	Push       PushConfig       `yaml:"push"`
	WorkerPool WorkerPoolConfig `yaml:"worker_pool"`
	Redis      RedisConfig      `yaml:"redis"`
}

// ServerConfig holds the server-related configuration.
type ServerConfig struct {
	Port            int     `yaml:"port"`
	RateLimitPerSec float64 `yaml:"rate_limit_per_sec"`
	RateLimitBurst  int     `yaml:"rate_limit_burst"`
	// AI endpoints call paid upstream APIs and get their own, tighter limit.
	AIRateLimitPerSec float64 `yaml:"ai_rate_limit_per_sec"`
	AIRateLimitBurst  int     `yaml:"ai_rate_limit_burst"`
	CacheTTLSeconds   int     `yaml:"cache_ttl_seconds"`
}

// DatabaseConfig holds the database connection configuration.
// A DSN starting with "postgres://" or "host=" selects postgres, anything else sqlite.
type DatabaseConfig struct {
	DSN                    string `yaml:"dsn"`
	MaxOpenConns           int    `yaml:"max_open_conns"`
	MaxIdleConns           int    `yaml:"max_idle_conns"`
	ConnMaxLifetimeMinutes int    `yaml:"conn_max_lifetime_minutes"`
	LogLevel               string `yaml:"log_level"`
}

// AuthConfig holds token and password hashing settings.
type AuthConfig struct {
	JWTSecret    string        `yaml:"jwt_secret"`
	AccessTTLMin int           `yaml:"access_ttl_minutes"`
	AccessTTL    time.Duration `yaml:"-"`
	BcryptCost   int           `yaml:"bcrypt_cost"`
}

// WarrantyConfig controls how "today" is determined for warranty and reminder math.
type WarrantyConfig struct {
	Timezone      string `yaml:"timezone"`
	DefaultMonths int    `yaml:"default_months"`
}

// AssistantConfig holds the LLM settings used by chat and receipt reading.
type AssistantConfig struct {
	APIKey          string  `yaml:"api_key"`
	ChatModel       string  `yaml:"chat_model"`
	VisionModel     string  `yaml:"vision_model"`
	MaxOutputTokens int32   `yaml:"max_output_tokens"`
	Temperature     float32 `yaml:"temperature"`
	TimeoutSeconds  int     `yaml:"timeout_seconds"`
}

// CatalogConfig describes the product search page used for image lookups.
type CatalogConfig struct {
	SearchURL      string `yaml:"search_url"`
	UserAgent      string `yaml:"user_agent"`
	TimeoutSeconds int    `yaml:"timeout_seconds"`
	HTTPProxy      string `yaml:"http_proxy"`
}

// EscalationConfig selects where escalation events are published.
type EscalationConfig struct {
	Mode       string `yaml:"mode"` // "webhook", "amqp" or "none"
	WebhookURL string `yaml:"webhook_url"`
	AMQPURL    string `yaml:"amqp_url"`
	Queue      string `yaml:"queue"`
}

// PushConfig holds the VAPID keys for web push notifications.
type PushConfig struct {
	PublicKey            string `yaml:"vapid_public_key"`
	PrivateKey           string `yaml:"vapid_private_key"`
	Subject              string `yaml:"subject"`
	TTL                  int    `yaml:"ttl"`
	SweepIntervalMinutes int    `yaml:"sweep_interval_minutes"`
}

// WorkerPoolConfig holds the configuration for the notification worker pool.
type WorkerPoolConfig struct {
	Size int `yaml:"size"`
}

// RedisConfig enables the shared response cache when Addr is set.
type RedisConfig struct {
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
}

// Load reads the configuration from the given path. A missing file yields
// defaults; environment variables (optionally from .env) override secrets.
func Load(path string) (*Config, error) {
	var cfg Config

	f, err := os.Open(path)
	switch {
	case err == nil:
		defer f.Close()
		if err := yaml.NewDecoder(f).Decode(&cfg); err != nil {
			return nil, err
		}
	case errors.Is(err, fs.ErrNotExist):
		log.Printf("config file %s not found; using defaults", path)
	default:
		return nil, err
	}

	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		log.Printf("ignoring unreadable .env: %v", err)
	}
	applyEnv(&cfg)
	applyDefaults(&cfg)
	return &cfg, nil
}

func applyEnv(cfg *Config) {
	setString(&cfg.Database.DSN, "DATABASE_DSN")
	setString(&cfg.Auth.JWTSecret, "JWT_SECRET")
	setString(&cfg.Assistant.APIKey, "GEMINI_API_KEY")
	setString(&cfg.Push.PublicKey, "VAPID_PUBLIC_KEY")
	setString(&cfg.Push.PrivateKey, "VAPID_PRIVATE_KEY")
	setString(&cfg.Redis.Addr, "REDIS_ADDR")
	setString(&cfg.Escalation.AMQPURL, "AMQP_URL")
	setString(&cfg.Escalation.WebhookURL, "ESCALATION_WEBHOOK_URL")
	if v := os.Getenv("PORT"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Server.Port = n
		}
	}
}

func setString(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

func applyDefaults(cfg *Config) {
	if cfg.Server.Port <= 0 {
		cfg.Server.Port = 8080
	}
	if cfg.Server.RateLimitPerSec <= 0 {
		cfg.Server.RateLimitPerSec = 10
	}
	if cfg.Server.RateLimitBurst <= 0 {
		cfg.Server.RateLimitBurst = 5
	}
	if cfg.Server.AIRateLimitPerSec <= 0 {
		cfg.Server.AIRateLimitPerSec = 0.5
	}
	if cfg.Server.AIRateLimitBurst <= 0 {
		cfg.Server.AIRateLimitBurst = 3
	}
	if cfg.Server.CacheTTLSeconds <= 0 {
		cfg.Server.CacheTTLSeconds = 300
	}

	if cfg.Database.DSN == "" {
		cfg.Database.DSN = "file:warranty.db?_foreign_keys=on"
	}
	if cfg.Database.MaxOpenConns <= 0 {
		cfg.Database.MaxOpenConns = 10
	}
	if cfg.Database.MaxIdleConns <= 0 {
		cfg.Database.MaxIdleConns = 5
	}
	if cfg.Database.ConnMaxLifetimeMinutes <= 0 {
		cfg.Database.ConnMaxLifetimeMinutes = 30
	}

	if cfg.Auth.AccessTTLMin <= 0 {
		cfg.Auth.AccessTTLMin = 60 * 24
	}
	cfg.Auth.AccessTTL = time.Duration(cfg.Auth.AccessTTLMin) * time.Minute
	if cfg.Auth.BcryptCost <= 0 {
		cfg.Auth.BcryptCost = 10
	}

	if cfg.Warranty.Timezone == "" {
		cfg.Warranty.Timezone = "Asia/Tokyo"
	}
	if cfg.Warranty.DefaultMonths <= 0 {
		cfg.Warranty.DefaultMonths = 12
	}

	if cfg.Assistant.ChatModel == "" {
		cfg.Assistant.ChatModel = "gemini-2.0-flash"
	}
	if cfg.Assistant.VisionModel == "" {
		cfg.Assistant.VisionModel = cfg.Assistant.ChatModel
	}
	if cfg.Assistant.MaxOutputTokens <= 0 {
		cfg.Assistant.MaxOutputTokens = 600
	}
	if cfg.Assistant.Temperature <= 0 {
		cfg.Assistant.Temperature = 0.7
	}
	if cfg.Assistant.TimeoutSeconds <= 0 {
		cfg.Assistant.TimeoutSeconds = 30
	}

	if cfg.Catalog.SearchURL == "" {
		cfg.Catalog.SearchURL = "https://kakaku.com/search_results/"
	}
	if cfg.Catalog.UserAgent == "" {
		cfg.Catalog.UserAgent = "Mozilla/5.0 (iPhone; CPU iPhone OS 17_0 like Mac OS X) AppleWebKit/605.1.15 (KHTML, like Gecko) Version/17.0 Mobile/15E148 Safari/604.1"
	}
	if cfg.Catalog.TimeoutSeconds <= 0 {
		cfg.Catalog.TimeoutSeconds = 6
	}

	if cfg.Escalation.Mode == "" {
		switch {
		case cfg.Escalation.AMQPURL != "":
			cfg.Escalation.Mode = "amqp"
		case cfg.Escalation.WebhookURL != "":
			cfg.Escalation.Mode = "webhook"
		default:
			cfg.Escalation.Mode = "none"
		}
	}
	if cfg.Escalation.Queue == "" {
		cfg.Escalation.Queue = "support.escalation"
	}

	if cfg.Push.TTL <= 0 {
		cfg.Push.TTL = 3600
	}
	if cfg.Push.SweepIntervalMinutes < 0 {
		cfg.Push.SweepIntervalMinutes = 0
	}

	if cfg.WorkerPool.Size <= 0 {
		log.Printf("worker_pool.size is not set or invalid; defaulting to 1")
		cfg.WorkerPool.Size = 1
	}
}

// Location resolves the configured warranty timezone, falling back to UTC.
func (c WarrantyConfig) Location() *time.Location {
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}
