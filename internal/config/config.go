package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

var ErrMissingJWTSecret = errors.New("JWT_SECRET environment variable is required")

// Config holds everything the server reads from the environment
type Config struct {
	Env            string
	Port           string
	JWTSecret      string
	AllowedOrigins []string

	DBType      string
	DatabaseURL string

	InterestWindow time.Duration

	RateLimit RateLimitConfig
	Suggest   SuggestConfig

	LogLevel string
	LogFile  string
}

type RateLimitConfig struct {
	Backend       string
	PerMinute     int
	RedisAddr     string
	RedisPassword string
	RedisDB       int
}

type SuggestConfig struct {
	Endpoint string
	APIKey   string
	Model    string
	Timeout  time.Duration
}

// Load reads .env (when present) and the process environment
func Load() (*Config, error) {
	// A missing .env is fine, the environment may already be populated
	_ = godotenv.Load()

	v := viper.New()
	v.AutomaticEnv()
	setDefaults(v)

	return fromViper(v)
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("ENV", "development")
	v.SetDefault("PORT", "8080")
	v.SetDefault("DB_TYPE", "postgres")
	v.SetDefault("DB_PORT", "5432")
	v.SetDefault("INTEREST_WINDOW", "72h")
	v.SetDefault("RATE_LIMIT_BACKEND", "memory")
	v.SetDefault("RATE_LIMIT_PER_MINUTE", 30)
	v.SetDefault("REDIS_ADDR", "localhost:6379")
	v.SetDefault("REDIS_DB", 0)
	v.SetDefault("SUGGEST_MODEL", "gemini-2.5-flash")
	v.SetDefault("SUGGEST_TIMEOUT", "10s")
	v.SetDefault("LOG_LEVEL", "")
	v.SetDefault("LOG_FILE", "server.log")
}

func fromViper(v *viper.Viper) (*Config, error) {
	cfg := &Config{
		Env:         v.GetString("ENV"),
		Port:        v.GetString("PORT"),
		JWTSecret:   v.GetString("JWT_SECRET"),
		DBType:      strings.ToLower(v.GetString("DB_TYPE")),
		DatabaseURL: v.GetString("DATABASE_URL"),
		RateLimit: RateLimitConfig{
			Backend:       strings.ToLower(v.GetString("RATE_LIMIT_BACKEND")),
			PerMinute:     v.GetInt("RATE_LIMIT_PER_MINUTE"),
			RedisAddr:     v.GetString("REDIS_ADDR"),
			RedisPassword: v.GetString("REDIS_PASSWORD"),
			RedisDB:       v.GetInt("REDIS_DB"),
		},
		Suggest: SuggestConfig{
			Endpoint: v.GetString("SUGGEST_ENDPOINT"),
			APIKey:   v.GetString("SUGGEST_API_KEY"),
			Model:    v.GetString("SUGGEST_MODEL"),
			Timeout:  v.GetDuration("SUGGEST_TIMEOUT"),
		},
		LogLevel: v.GetString("LOG_LEVEL"),
		LogFile:  v.GetString("LOG_FILE"),
	}

	if cfg.JWTSecret == "" {
		return nil, ErrMissingJWTSecret
	}

	window := v.GetDuration("INTEREST_WINDOW")
	if window <= 0 {
		return nil, fmt.Errorf("INTEREST_WINDOW must be positive, got %q", v.GetString("INTEREST_WINDOW"))
	}
	cfg.InterestWindow = window

	if origins := v.GetString("ALLOWED_ORIGINS"); origins != "" {
		for _, o := range strings.Split(origins, ",") {
			if o = strings.TrimSpace(o); o != "" {
				cfg.AllowedOrigins = append(cfg.AllowedOrigins, o)
			}
		}
	}
	// a wildcard anywhere opens every origin, same as leaving the list empty
	for _, o := range cfg.AllowedOrigins {
		if o == "*" {
			cfg.AllowedOrigins = nil
			break
		}
	}

	if cfg.DatabaseURL == "" && cfg.DBType != "memory" {
		// Fallback to individual connection parameters if DATABASE_URL not set
		host := v.GetString("DB_HOST")
		name := v.GetString("DB_NAME")
		user := v.GetString("DB_USER")
		if host == "" || name == "" || user == "" {
			return nil, errors.New("database connection details missing, set DATABASE_URL or individual DB_* variables")
		}
		cfg.DatabaseURL = fmt.Sprintf(
			"postgres://%s:%s@%s:%s/%s?sslmode=disable",
			user, v.GetString("DB_PASSWORD"), host, v.GetString("DB_PORT"), name,
		)
	}

	return cfg, nil
}

// AllowsAnyOrigin reports whether CORS and websocket upgrades accept every
// origin. Credentials are only allowed with an explicit origin list.
func (c *Config) AllowsAnyOrigin() bool {
	return len(c.AllowedOrigins) == 0
}

// IsProduction reports whether gin should run in release mode
func (c *Config) IsProduction() bool {
	return c.Env == "production"
}
