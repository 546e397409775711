package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Store backend names
const (
	StoreFile     = "file"
	StorePostgres = "postgres"
	StoreRedis    = "redis"
)

// Quote cache backend names
const (
	CacheMemory = "memory"
	CacheRedis  = "redis"
)

// Config holds all application configuration
type Config struct {
	Server   ServerConfig
	Database DatabaseConfig
	Redis    RedisConfig
	Kafka    KafkaConfig
	Quotes   QuotesConfig
	Store    StoreConfig
	Log      LogConfig
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Port        string
	Host        string
	CORSOrigins []string
}

// Addr returns the listen address
func (s ServerConfig) Addr() string {
	return s.Host + ":" + s.Port
}

// DatabaseConfig holds PostgreSQL configuration
type DatabaseConfig struct {
	Host           string
	Port           string
	User           string
	Password       string
	DBName         string
	SSLMode        string
	MigrationsPath string
}

// RedisConfig holds Redis configuration
type RedisConfig struct {
	Addr      string
	Password  string
	DB        int
	KeyPrefix string
}

// KafkaConfig holds Kafka configuration. Events are disabled when Brokers is empty.
type KafkaConfig struct {
	Brokers       []string
	Topic         string
	CommandsTopic string
	GroupID       string
}

// Enabled reports whether any broker is configured
func (k KafkaConfig) Enabled() bool {
	return len(k.Brokers) > 0
}

// QuotesConfig holds quote provider and refresh configuration
type QuotesConfig struct {
	BaseURL         string
	APIKey          string
	Timeout         time.Duration
	RefreshInterval time.Duration
	CacheTTL        time.Duration
	CacheRetention  time.Duration
	CacheBackend    string
}

// StoreConfig selects where the portfolio document is persisted
type StoreConfig struct {
	Backend  string
	FilePath string
	RedisKey string
}

// LogConfig holds logging configuration
type LogConfig struct {
	Level  string
	Pretty bool
}

// Load reads configuration from environment variables, after loading .env if present
func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{
		Server: ServerConfig{
			Port:        getEnv("SERVER_PORT", "8080"),
			Host:        getEnv("SERVER_HOST", "127.0.0.1"),
			CORSOrigins: getEnvAsList("CORS_ALLOWED_ORIGINS"),
		},
		Database: DatabaseConfig{
			Host:           getEnv("DB_HOST", "localhost"),
			Port:           getEnv("DB_PORT", "5432"),
			User:           getEnv("DB_USER", "postgres"),
			Password:       getEnv("DB_PASSWORD", "postgres"),
			DBName:         getEnv("DB_NAME", "portfolio"),
			SSLMode:        getEnv("DB_SSLMODE", "disable"),
			MigrationsPath: getEnv("DB_MIGRATIONS_PATH", "db/migrations"),
		},
		Redis: RedisConfig{
			Addr:      getEnv("REDIS_ADDR", "localhost:6379"),
			Password:  getEnv("REDIS_PASSWORD", ""),
			DB:        getEnvAsInt("REDIS_DB", 0),
			KeyPrefix: getEnv("REDIS_KEY_PREFIX", "nebula-ledger"),
		},
		Kafka: KafkaConfig{
			Brokers:       getEnvAsList("KAFKA_BROKERS"),
			Topic:         getEnv("KAFKA_TOPIC", "portfolio-events"),
			CommandsTopic: getEnv("KAFKA_COMMANDS_TOPIC", "portfolio-commands"),
			GroupID:       getEnv("KAFKA_GROUP_ID", "portfolio-tracker"),
		},
		Quotes: QuotesConfig{
			BaseURL:         getEnv("QUOTES_BASE_URL", "https://api.coingecko.com/api/v3"),
			APIKey:          getEnv("QUOTES_API_KEY", ""),
			Timeout:         getEnvAsDuration("QUOTES_TIMEOUT", 10*time.Second),
			RefreshInterval: getEnvAsDuration("QUOTES_REFRESH_INTERVAL", 60*time.Second),
			CacheTTL:        getEnvAsDuration("QUOTES_CACHE_TTL", 60*time.Second),
			CacheRetention:  getEnvAsDuration("QUOTES_CACHE_RETENTION", 24*time.Hour),
			CacheBackend:    getEnv("QUOTES_CACHE_BACKEND", CacheMemory),
		},
		Store: StoreConfig{
			Backend:  getEnv("STORE_BACKEND", StoreFile),
			FilePath: getEnv("STORE_FILE_PATH", "data/portfolio.json"),
			RedisKey: getEnv("STORE_REDIS_KEY", "portfolio"),
		},
		Log: LogConfig{
			Level:  getEnv("LOG_LEVEL", "info"),
			Pretty: getEnvAsBool("LOG_PRETTY", false),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks enumerated settings and intervals
func (c *Config) Validate() error {
	switch c.Store.Backend {
	case StoreFile, StorePostgres, StoreRedis:
	default:
		return fmt.Errorf("invalid STORE_BACKEND %q: want %s, %s or %s", c.Store.Backend, StoreFile, StorePostgres, StoreRedis)
	}

	switch c.Quotes.CacheBackend {
	case CacheMemory, CacheRedis:
	default:
		return fmt.Errorf("invalid QUOTES_CACHE_BACKEND %q: want %s or %s", c.Quotes.CacheBackend, CacheMemory, CacheRedis)
	}

	if c.Quotes.RefreshInterval < time.Second {
		return fmt.Errorf("QUOTES_REFRESH_INTERVAL must be at least 1s, got %s", c.Quotes.RefreshInterval)
	}
	if c.Quotes.Timeout <= 0 {
		return fmt.Errorf("QUOTES_TIMEOUT must be positive, got %s", c.Quotes.Timeout)
	}
	if c.Quotes.CacheTTL <= 0 {
		return fmt.Errorf("QUOTES_CACHE_TTL must be positive, got %s", c.Quotes.CacheTTL)
	}
	return nil
}

// RefreshSchedule returns the cron spec for the quote poller
func (q QuotesConfig) RefreshSchedule() string {
	return "@every " + q.RefreshInterval.String()
}

// ConnectionString returns the PostgreSQL connection string
func (d *DatabaseConfig) ConnectionString() string {
	return "postgres://" + d.User + ":" + d.Password + "@" + d.Host + ":" + d.Port + "/" + d.DBName + "?sslmode=" + d.SSLMode
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolVal, err := strconv.ParseBool(value); err == nil {
			return boolVal
		}
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}

// getEnvAsList splits a comma separated variable, dropping blanks
func getEnvAsList(key string) []string {
	var out []string
	for _, part := range strings.Split(os.Getenv(key), ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
