// Package config provides application configuration loaded from environment variables.
package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds all application configuration.
type Config struct {
	Server   ServerConfig
	Database DatabaseConfig
	App      AppConfig
	Auth     AuthConfig
	Cache    CacheConfig
	Events   EventsConfig
	Log      LogConfig
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Port            string
	ReadTimeout     int // seconds
	WriteTimeout    int // seconds
	IdleTimeout     int // seconds
	ShutdownTimeout int // seconds
}

// DatabaseConfig selects and reaches the database. URL wins over the
// discrete postgres fields; Driver "sqlite" uses SQLitePath.
type DatabaseConfig struct {
	Driver     string
	URL        string
	Host       string
	Port       int
	User       string
	Password   string
	DBName     string
	SSLMode    string
	SQLitePath string
	Debug      bool
	MaxRetries int
}

// AppConfig holds application-level settings.
type AppConfig struct {
	Dev        bool
	Migrations bool
	Seed       bool

	// Rates used until the user stores their own settings.
	DefaultTVARate    float64
	DefaultURSSAFRate float64
}

type AuthConfig struct {
	SessionSecret string
	TokenTTL      time.Duration
}

// CacheConfig: an empty RedisAddr selects the in-process cache.
type CacheConfig struct {
	RedisAddr     string
	RedisPassword string
	RedisDB       int
	TTL           time.Duration
	MemorySize    int
}

// EventsConfig: an empty AMQPURL disables publishing.
type EventsConfig struct {
	AMQPURL  string
	Exchange string
	Queue    string
}

type LogConfig struct {
	Level  string
	Format string
}

// DSN returns the PostgreSQL connection string in key=value format.
func (d DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		d.Host, d.Port, d.User, d.Password, d.DBName, d.SSLMode,
	)
}

// PostgresURL returns the PostgreSQL connection string in URL format,
// preferring an explicit DATABASE_URL.
func (d DatabaseConfig) PostgresURL() string {
	if d.URL != "" {
		return d.URL
	}
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=%s",
		url.QueryEscape(d.User), url.QueryEscape(d.Password), d.Host, d.Port, d.DBName, d.SSLMode,
	)
}

// IsSQLite reports whether the sqlite driver is selected.
func (d DatabaseConfig) IsSQLite() bool {
	if strings.HasPrefix(d.URL, "postgres://") || strings.HasPrefix(d.URL, "postgresql://") {
		return false
	}
	return d.Driver == "sqlite"
}

// Load reads configuration from environment variables.
// It uses sensible defaults for local development.
func Load() *Config {
	return &Config{
		Server: ServerConfig{
			Port:            getEnv("PORT", "8080"),
			ReadTimeout:     getEnvInt("SERVER_READ_TIMEOUT", 15),
			WriteTimeout:    getEnvInt("SERVER_WRITE_TIMEOUT", 15),
			IdleTimeout:     getEnvInt("SERVER_IDLE_TIMEOUT", 60),
			ShutdownTimeout: getEnvInt("SERVER_SHUTDOWN_TIMEOUT", 10),
		},
		Database: DatabaseConfig{
			Driver:     getEnv("DB_DRIVER", "postgres"),
			URL:        getEnv("DATABASE_URL", ""),
			Host:       getEnv("DB_HOST", "localhost"),
			Port:       getEnvInt("DB_PORT", 5432),
			User:       getEnv("DB_USER", "dashboard"),
			Password:   getEnv("DB_PASSWORD", "dashboard"),
			DBName:     getEnv("DB_NAME", "dashboard"),
			SSLMode:    getEnv("DB_SSLMODE", "disable"),
			SQLitePath: getEnv("SQLITE_DB_PATH", "./data/dashboard.db"),
			Debug:      getEnvBool("DB_DEBUG", false),
			MaxRetries: getEnvInt("DB_MAX_RETRIES", 10),
		},
		App: AppConfig{
			Dev:               getEnvBool("DEV", true),
			Migrations:        getEnvBool("MIGRATIONS", true),
			Seed:              getEnvBool("SEED", false),
			DefaultTVARate:    getEnvFloat("DEFAULT_TVA_RATE", 0.20),
			DefaultURSSAFRate: getEnvFloat("DEFAULT_URSSAF_RATE", 0.22),
		},
		Auth: AuthConfig{
			SessionSecret: getEnv("SESSION_SECRET", ""),
			TokenTTL:      getEnvDuration("TOKEN_TTL", 24*time.Hour),
		},
		Cache: CacheConfig{
			RedisAddr:     getEnv("REDIS_ADDR", ""),
			RedisPassword: getEnv("REDIS_PASSWORD", ""),
			RedisDB:       getEnvInt("REDIS_DB", 0),
			TTL:           getEnvDuration("CACHE_TTL", 10*time.Minute),
			MemorySize:    getEnvInt("CACHE_MEMORY_SIZE", 1000),
		},
		Events: EventsConfig{
			AMQPURL:  getEnv("AMQP_URL", ""),
			Exchange: getEnv("AMQP_EXCHANGE", "dashboard"),
			Queue:    getEnv("AMQP_QUEUE", "dashboard_cache"),
		},
		Log: LogConfig{
			Level:  getEnv("LOG_LEVEL", "info"),
			Format: getEnv("LOG_FORMAT", "text"),
		},
	}
}

// Validate checks the configuration and reports every problem at once.
func (c *Config) Validate() error {
	var errs []error

	if port, err := strconv.Atoi(c.Server.Port); err != nil {
		errs = append(errs, fmt.Errorf("invalid port '%s': must be a number", c.Server.Port))
	} else if port < 1 || port > 65535 {
		errs = append(errs, fmt.Errorf("invalid port %d: must be between 1 and 65535", port))
	}

	switch c.Database.Driver {
	case "postgres":
	case "sqlite":
		if c.Database.SQLitePath == "" && c.Database.URL == "" {
			errs = append(errs, errors.New("SQLITE_DB_PATH cannot be empty when using the sqlite driver"))
		}
	default:
		errs = append(errs, fmt.Errorf("invalid database driver '%s': must be postgres or sqlite", c.Database.Driver))
	}

	if c.App.DefaultTVARate < 0 || c.App.DefaultTVARate > 1 {
		errs = append(errs, fmt.Errorf("invalid DEFAULT_TVA_RATE %v: must be between 0 and 1", c.App.DefaultTVARate))
	}
	if c.App.DefaultURSSAFRate < 0 || c.App.DefaultURSSAFRate > 1 {
		errs = append(errs, fmt.Errorf("invalid DEFAULT_URSSAF_RATE %v: must be between 0 and 1", c.App.DefaultURSSAFRate))
	}

	if !c.App.Dev && c.Auth.SessionSecret == "" {
		errs = append(errs, errors.New("SESSION_SECRET is required outside development"))
	}
	if c.Auth.TokenTTL < time.Minute {
		errs = append(errs, fmt.Errorf("invalid TOKEN_TTL %v: must be at least 1 minute", c.Auth.TokenTTL))
	}

	if c.Cache.TTL < time.Second {
		errs = append(errs, fmt.Errorf("invalid CACHE_TTL %v: must be at least 1 second", c.Cache.TTL))
	}
	if c.Cache.RedisAddr == "" && c.Cache.MemorySize < 1 {
		errs = append(errs, fmt.Errorf("invalid CACHE_MEMORY_SIZE %d: must be at least 1", c.Cache.MemorySize))
	}

	if c.Events.AMQPURL != "" {
		if u, err := url.Parse(c.Events.AMQPURL); err != nil {
			errs = append(errs, fmt.Errorf("invalid AMQP URL '%s': %w", c.Events.AMQPURL, err))
		} else if u.Scheme != "amqp" && u.Scheme != "amqps" {
			errs = append(errs, fmt.Errorf("invalid AMQP URL scheme '%s': must be 'amqp' or 'amqps'", u.Scheme))
		}
		if c.Events.Exchange == "" {
			errs = append(errs, errors.New("AMQP exchange name cannot be empty when AMQP URL is provided"))
		}
		if c.Events.Queue == "" {
			errs = append(errs, errors.New("AMQP queue name cannot be empty when AMQP URL is provided"))
		}
	}

	switch strings.ToLower(c.Log.Format) {
	case "text", "json":
	default:
		errs = append(errs, fmt.Errorf("invalid LOG_FORMAT '%s': must be text or json", c.Log.Format))
	}

	if len(errs) > 0 {
		return fmt.Errorf("configuration validation failed: %w", errors.Join(errs...))
	}
	return nil
}

// getEnv returns the value of an environment variable or a default.
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvInt returns the integer value of an environment variable or a default.
func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if i, err := strconv.Atoi(value); err == nil {
			return i
		}
	}
	return defaultValue
}

func getEnvFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if f, err := strconv.ParseFloat(value, 64); err == nil {
			return f
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}

// getEnvBool returns the boolean value of an environment variable or a default.
// Accepts "1", "true", "yes" as true; everything else is false.
func getEnvBool(key string, defaultValue bool) bool {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value == "1" || value == "true" || value == "yes"
}
