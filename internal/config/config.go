package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

type RuntimeConfig struct {
	Dev bool
}

type ServerConfig struct {
	Port        int      `yaml:"port"`        // public API
	AdminPort   int      `yaml:"admin_port"`  // admin API + /metrics
	CORSOrigins []string `yaml:"cors_origins"`
	CronSecret  string   `yaml:"cron_secret"` // bearer token for cron endpoints
}

type LogConfig struct {
	Level    string `yaml:"level"`    // trace|debug|info|warn|error
	Format   string `yaml:"format"`   // json|console
	Sampling bool   `yaml:"sampling"` // enable sampling in prod
}

type DatabaseConfig struct {
	URL string `yaml:"url"`
}

type RedisConfig struct {
	URL      string        `yaml:"url"`
	Password string        `yaml:"password"`
	DB       int           `yaml:"db"`
	TTL      time.Duration `yaml:"ttl"`
}

type CryptoPayConfig struct {
	BaseURL        string `yaml:"base_url"`
	WalletAddress  string `yaml:"wallet_address"` // provisioned upstream, already URL-encoded
	CallbackSecret string `yaml:"callback_secret"`
}

type StripeConfig struct {
	SecretKey     string `yaml:"secret_key"`
	WebhookSecret string `yaml:"webhook_secret"`
	SuccessURL    string `yaml:"success_url"`
	CancelURL     string `yaml:"cancel_url"`
}

type PaymentConfig struct {
	CryptoPay CryptoPayConfig `yaml:"cryptopay"`
	Stripe    StripeConfig    `yaml:"stripe"`
}

type EmailConfig struct {
	APIKey    string `yaml:"api_key"`
	BaseURL   string `yaml:"base_url"`
	FromName  string `yaml:"from_name"`
	FromEmail string `yaml:"from_email"`
}

type WhatsAppConfig struct {
	Token         string `yaml:"token"`
	PhoneNumberID string `yaml:"phone_number_id"`
	BaseURL       string `yaml:"base_url"`
}

type NotifyConfig struct {
	Email      EmailConfig    `yaml:"email"`
	WhatsApp   WhatsAppConfig `yaml:"whatsapp"`
	BatchSize  int            `yaml:"batch_size"`
	BatchPause time.Duration  `yaml:"batch_pause"`
}

type AlertConfig struct {
	TelegramToken  string        `yaml:"telegram_token"`
	TelegramChatID int64         `yaml:"telegram_chat_id"`
	Email          string        `yaml:"email"`
	Threshold      int           `yaml:"threshold"` // errors per window before alerting
	Window         time.Duration `yaml:"window"`
}

type AIConfig struct {
	OpenAIKey    string `yaml:"openai_key"`
	DefaultModel string `yaml:"default_model"`
}

type SchedulerConfig struct {
	AbandonedInterval  time.Duration `yaml:"abandoned_interval"`
	AbandonedThreshold time.Duration `yaml:"abandoned_threshold"`
	ExpiryInterval     time.Duration `yaml:"expiry_interval"`
}

type AdminAuthConfig struct {
	JWTSecret    string        `yaml:"jwt_secret"`
	PasswordHash string        `yaml:"password_hash"` // hex sha256 of admin password
	SessionTTL   time.Duration `yaml:"session_ttl"`
}

type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Log       LogConfig       `yaml:"log"`
	Database  DatabaseConfig  `yaml:"database"`
	Redis     RedisConfig     `yaml:"redis"`
	Payment   PaymentConfig   `yaml:"payment"`
	Notify    NotifyConfig    `yaml:"notify"`
	Alert     AlertConfig     `yaml:"alert"`
	AI        AIConfig        `yaml:"ai"`
	Scheduler SchedulerConfig `yaml:"scheduler"`
	Admin     AdminAuthConfig `yaml:"admin"`

	Runtime RuntimeConfig `yaml:"-"`
}

// LoadConfig reads and validates the YAML config at path. Secrets may be left
// out of the file and supplied via environment variables instead.
func LoadConfig(path string, dev bool) (*Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	var cfg Config
	if err := yaml.Unmarshal(b, &cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	// env overrides for secrets
	if v := os.Getenv("DATABASE_URL"); v != "" {
		cfg.Database.URL = v
	}
	if v := os.Getenv("STRIPE_SECRET_KEY"); v != "" {
		cfg.Payment.Stripe.SecretKey = v
	}
	if v := os.Getenv("STRIPE_WEBHOOK_SECRET"); v != "" {
		cfg.Payment.Stripe.WebhookSecret = v
	}
	if v := os.Getenv("CRYPTOPAY_CALLBACK_SECRET"); v != "" {
		cfg.Payment.CryptoPay.CallbackSecret = v
	}
	if v := os.Getenv("OPENAI_API_KEY"); v != "" {
		cfg.AI.OpenAIKey = v
	}

	// defaults
	if cfg.Server.Port <= 0 {
		cfg.Server.Port = 8080
	}
	if cfg.Server.AdminPort <= 0 {
		cfg.Server.AdminPort = 8081
	}
	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
	if cfg.Log.Format == "" {
		cfg.Log.Format = "json"
	}
	cfg.Redis.TTL = normalizeTTL(cfg.Redis.TTL)
	if cfg.Notify.BatchSize <= 0 {
		cfg.Notify.BatchSize = 25
	}
	if cfg.Notify.BatchPause <= 0 {
		cfg.Notify.BatchPause = 2 * time.Second
	}
	if cfg.Alert.Threshold <= 0 {
		cfg.Alert.Threshold = 5
	}
	if cfg.Alert.Window <= 0 {
		cfg.Alert.Window = 10 * time.Minute
	}
	if cfg.Scheduler.AbandonedInterval <= 0 {
		cfg.Scheduler.AbandonedInterval = 5 * time.Minute
	}
	if cfg.Scheduler.AbandonedThreshold <= 0 {
		cfg.Scheduler.AbandonedThreshold = 30 * time.Minute
	}
	if cfg.Scheduler.ExpiryInterval <= 0 {
		cfg.Scheduler.ExpiryInterval = time.Hour
	}
	if cfg.Admin.SessionTTL <= 0 {
		cfg.Admin.SessionTTL = 30 * time.Minute
	}
	if cfg.AI.DefaultModel == "" {
		cfg.AI.DefaultModel = "gpt-4o-mini"
	}
	if cfg.Payment.CryptoPay.BaseURL == "" {
		cfg.Payment.CryptoPay.BaseURL = "https://pay.cryptopay.example.com/invoice"
	}

	// Minimal validation
	if cfg.Database.URL == "" {
		return nil, errors.New("database.url is required")
	}
	if cfg.Redis.URL == "" {
		return nil, errors.New("redis.url is required")
	}
	if cfg.Server.CronSecret == "" {
		return nil, errors.New("server.cron_secret is required")
	}
	if cfg.Admin.JWTSecret == "" {
		return nil, errors.New("admin.jwt_secret is required")
	}

	cfg.Runtime.Dev = dev
	return &cfg, nil
}

func normalizeTTL(d time.Duration) time.Duration {
	if d <= 0 {
		return time.Hour
	}
	return d
}
