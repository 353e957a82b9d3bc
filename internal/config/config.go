package config

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Database     DatabaseConfig
	JWT          JWTConfig
	App          AppConfig
	Storage      StorageConfig
	Redis        RedisConfig
	Notification NotificationConfig
	Dispatch     DispatchConfig
}

type DatabaseConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	Name     string
	SSLMode  string
	MaxConns int32
	MinConns int32
}

// JWTConfig holds JWT configuration
type JWTConfig struct {
	Secret           string
	AccessExpiration string
}

// AppConfig holds application configuration
type AppConfig struct {
	Port           int
	Env            string
	LogLevel       string
	AllowedOrigins []string
}

type StorageConfig struct {
	BasePath string
	BaseURL  string
}

// RedisConfig enables the idempotency middleware when Addr is set.
type RedisConfig struct {
	Addr           string
	Password       string
	DB             int
	IdempotencyTTL time.Duration
}

type NotificationConfig struct {
	WorkerCount   int
	BatchSize     int
	FlushInterval time.Duration
	QueueSize     int
}

type DispatchConfig struct {
	WorkerCount    int
	MaxAttempts    int
	ReplayInterval time.Duration
	ReplayAfter    time.Duration
	PurgeInterval  time.Duration
	Retention      time.Duration

	// Empty URLs disable the corresponding handler.
	NotifyWebhookURL       string
	GamificationWebhookURL string
	WebhookSecret          string
	WebhookTimeout         time.Duration
}

func Load() (*Config, error) {
	// A missing .env is fine in containers where the environment is set directly.
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("load .env: %w", err)
	}

	config := &Config{}
	p := &parser{}

	config.Database = DatabaseConfig{
		Host:     getEnv("DB_HOST", "localhost"),
		Port:     p.int("DB_PORT", 5432),
		User:     getEnv("DB_USER", "postgres"),
		Password: getEnv("DB_PASSWORD", ""),
		Name:     getEnv("DB_NAME", "cmlabs-hris"),
		SSLMode:  getEnv("DB_SSL_MODE", "disable"),
		MaxConns: int32(p.int("DB_MAX_CONNS", 25)),
		MinConns: int32(p.int("DB_MIN_CONNS", 5)),
	}

	config.App = AppConfig{
		Port:           p.int("APP_PORT", 8080),
		Env:            getEnv("APP_ENV", "development"),
		LogLevel:       getEnv("LOG_LEVEL", "info"),
		AllowedOrigins: getEnvSlice("CORS_ALLOWED_ORIGINS", []string{"http://localhost:3000"}),
	}

	config.JWT = JWTConfig{
		Secret:           getEnv("JWT_SECRET_KEY", ""),
		AccessExpiration: getEnv("JWT_ACCESS_EXPIRATION_TIME", "1h"),
	}

	config.Storage = StorageConfig{
		BasePath: getEnv("STORAGE_BASE_PATH", "./uploads"),
		BaseURL:  getEnv("STORAGE_BASE_URL", "http://localhost:8080/uploads"),
	}

	config.Redis = RedisConfig{
		Addr:           getEnv("REDIS_ADDR", ""),
		Password:       getEnv("REDIS_PASSWORD", ""),
		DB:             p.int("REDIS_DB", 0),
		IdempotencyTTL: p.duration("IDEMPOTENCY_TTL", 24*time.Hour),
	}

	config.Notification = NotificationConfig{
		WorkerCount:   p.int("NOTIFICATION_WORKERS", 2),
		BatchSize:     p.int("NOTIFICATION_BATCH_SIZE", 50),
		FlushInterval: p.duration("NOTIFICATION_FLUSH_INTERVAL", 2*time.Second),
		QueueSize:     p.int("NOTIFICATION_QUEUE_SIZE", 1000),
	}

	config.Dispatch = DispatchConfig{
		WorkerCount:            p.int("DISPATCH_WORKERS", 2),
		MaxAttempts:            p.int("DISPATCH_MAX_ATTEMPTS", 5),
		ReplayInterval:         p.duration("DISPATCH_REPLAY_INTERVAL", time.Minute),
		ReplayAfter:            p.duration("DISPATCH_REPLAY_AFTER", time.Minute),
		PurgeInterval:          p.duration("DISPATCH_PURGE_INTERVAL", 6*time.Hour),
		Retention:              p.duration("DISPATCH_RETENTION", 7*24*time.Hour),
		NotifyWebhookURL:       getEnv("NOTIFY_WEBHOOK_URL", ""),
		GamificationWebhookURL: getEnv("GAMIFICATION_WEBHOOK_URL", ""),
		WebhookSecret:          getEnv("WEBHOOK_SECRET", ""),
		WebhookTimeout:         p.duration("WEBHOOK_TIMEOUT", 10*time.Second),
	}

	if p.err != nil {
		return nil, p.err
	}

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return config, nil
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if c.Database.Password == "" {
		return fmt.Errorf("DB_PASSWORD is required")
	}
	if c.JWT.Secret == "" {
		return fmt.Errorf("JWT_SECRET_KEY is required")
	}
	if c.Dispatch.MaxAttempts < 1 {
		return fmt.Errorf("DISPATCH_MAX_ATTEMPTS must be at least 1")
	}
	if (c.Dispatch.NotifyWebhookURL != "" || c.Dispatch.GamificationWebhookURL != "") && c.Dispatch.WebhookSecret == "" {
		slog.Warn("webhooks are configured without WEBHOOK_SECRET, payloads will be unsigned")
	}
	return nil
}

// DatabaseURL returns the PostgreSQL connection string
func (c *Config) DatabaseURL() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=%s",
		c.Database.User,
		c.Database.Password,
		c.Database.Host,
		c.Database.Port,
		c.Database.Name,
		c.Database.SSLMode,
	)
}

// LogLevel maps LOG_LEVEL to a slog level, defaulting to info.
func (c *Config) LogLevel() slog.Level {
	switch strings.ToLower(c.App.LogLevel) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	}
	return slog.LevelInfo
}

func (c *Config) IsProduction() bool {
	return c.App.Env == "production"
}

// parser keeps the first conversion error so Load reports one bad variable at a time.
type parser struct {
	err error
}

func (p *parser) int(key string, fallback int) int {
	raw := getEnv(key, "")
	if raw == "" {
		return fallback
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		if p.err == nil {
			p.err = fmt.Errorf("invalid %s: %w", key, err)
		}
		return fallback
	}
	return v
}

func (p *parser) duration(key string, fallback time.Duration) time.Duration {
	raw := getEnv(key, "")
	if raw == "" {
		return fallback
	}
	v, err := time.ParseDuration(raw)
	if err != nil {
		if p.err == nil {
			p.err = fmt.Errorf("invalid %s: %w", key, err)
		}
		return fallback
	}
	return v
}

func getEnv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

func getEnvSlice(env string, fallback []string) []string {
	value := getEnv(env, "")
	if value == "" {
		return fallback
	}
	var result []string
	for _, v := range strings.Split(value, ",") {
		if v = strings.TrimSpace(v); v != "" {
			result = append(result, v)
		}
	}
	return result
}
