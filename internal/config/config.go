package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"
)

var (
	ErrJWTSecretRequired = errors.New("JWT_SECRET must be set")
	ErrLLMKeyRequired    = errors.New("LLM_API_KEY must be set")
	ErrJWTSecretTooShort = errors.New("JWT_SECRET must be at least 32 bytes in production")
	ErrUnknownDriver     = errors.New("DATABASE_DRIVER must be one of sqlite, mysql, postgres")
)

const minProductionSecretLen = 32

// Config holds process-wide settings, loaded once at startup.
type Config struct {
	Port     string
	Env      string
	LogLevel slog.Level

	DatabaseDriver string
	DatabaseDSN    string
	RedisURL       string

	JWTSecret string
	JWTExpiry time.Duration

	LLMBaseURL     string
	LLMAPIKey      string
	LLMModel       string
	LLMTemperature float64
	LLMTimeout     time.Duration

	OTLPEndpoint string

	CORSAllowedOrigins []string

	AuthRateLimit RateLimit
	AIRateLimit   RateLimit
}

// RateLimit is a per-IP token bucket setting.
type RateLimit struct {
	RPS   float64
	Burst int
}

// Load reads configuration from the environment. Missing secrets are an
// error: the server must not start with unusable token or LLM settings.
func Load() (Config, error) {
	cfg := Config{
		Port:           getEnv("PORT", "8000"),
		Env:            getEnv("ENV", "development"),
		LogLevel:       parseLevel(getEnv("LOG_LEVEL", "info")),
		DatabaseDriver: strings.ToLower(getEnv("DATABASE_DRIVER", "sqlite")),
		DatabaseDSN:    getEnv("DATABASE_DSN", "studyai.db"),
		RedisURL:       getEnv("REDIS_URL", ""),
		JWTSecret:      getEnv("JWT_SECRET", getEnv("SECRET_KEY", "")),
		JWTExpiry:      time.Duration(getEnvInt("ACCESS_TOKEN_EXPIRE_MINUTES", 30)) * time.Minute,
		LLMBaseURL:     getEnv("LLM_BASE_URL", "https://api.groq.com/openai/v1"),
		LLMAPIKey:      getEnv("LLM_API_KEY", getEnv("GROQ_API_KEY", "")),
		LLMModel:       getEnv("LLM_MODEL", "llama-3.3-70b-versatile"),
		LLMTemperature: getEnvFloat("LLM_TEMPERATURE", 0.5),
		LLMTimeout:     getEnvDuration("LLM_TIMEOUT", 60*time.Second),
		OTLPEndpoint:   getEnv("OTEL_EXPORTER_OTLP_ENDPOINT", ""),
		CORSAllowedOrigins: getEnvList("CORS_ALLOWED_ORIGINS",
			[]string{"http://localhost:3000", "http://localhost:5173"}),
		AuthRateLimit: RateLimit{
			RPS:   getEnvFloat("AUTH_RATE_LIMIT_RPS", 5),
			Burst: getEnvInt("AUTH_RATE_LIMIT_BURST", 10),
		},
		AIRateLimit: RateLimit{
			RPS:   getEnvFloat("AI_RATE_LIMIT_RPS", 1),
			Burst: getEnvInt("AI_RATE_LIMIT_BURST", 5),
		},
	}

	if err := cfg.validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Addr returns the listen address for the HTTP server.
func (c Config) Addr() string {
	return ":" + c.Port
}

func (c Config) IsProduction() bool {
	return c.Env == "production"
}

func (c Config) validate() error {
	if c.JWTSecret == "" {
		return ErrJWTSecretRequired
	}
	if c.IsProduction() && len(c.JWTSecret) < minProductionSecretLen {
		return ErrJWTSecretTooShort
	}
	if c.LLMAPIKey == "" {
		return ErrLLMKeyRequired
	}
	switch c.DatabaseDriver {
	case "sqlite", "mysql", "postgres":
	default:
		return fmt.Errorf("%w: got %q", ErrUnknownDriver, c.DatabaseDriver)
	}
	if c.JWTExpiry <= 0 {
		return errors.New("ACCESS_TOKEN_EXPIRE_MINUTES must be positive")
	}
	return nil
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		slog.Warn("invalid integer in environment, using default", "key", key, "value", v)
		return fallback
	}
	return n
}

func getEnvFloat(key string, fallback float64) float64 {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		slog.Warn("invalid number in environment, using default", "key", key, "value", v)
		return fallback
	}
	return f
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		slog.Warn("invalid duration in environment, using default", "key", key, "value", v)
		return fallback
	}
	return d
}

func getEnvList(key string, fallback []string) []string {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	var out []string
	for _, item := range strings.Split(v, ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}

func parseLevel(s string) slog.Level {
	var level slog.Level
	if err := level.UnmarshalText([]byte(s)); err != nil {
		return slog.LevelInfo
	}
	return level
}
