package config

import (
	"errors"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	DatabaseURL      string
	JWTSecret        string
	JWTAlgorithm     string
	AccessTokenTTL   time.Duration
	RefreshTokenTTL  time.Duration
	RefreshTokenSalt string
	ServerPort       string
	ServerHost       string
	Environment      string

	RedisURL               string
	RateLimitEnabled       bool
	RateLimitIPAttempts    int
	RateLimitIPWindow      time.Duration
	RateLimitUserAttempts  int
	RateLimitUserWindow    time.Duration
	RateLimitBlockDuration time.Duration

	LogLevel  string
	LogFormat string

	CORSEnabled          bool
	CORSAllowedOrigins   []string
	CORSAllowCredentials bool

	MetricsEnabled bool
}

var (
	ErrMissingDatabaseURL  = errors.New("DATABASE_URL is required")
	ErrMissingJWTSecret    = errors.New("JWT_SECRET is required")
	ErrMissingRefreshSalt  = errors.New("REFRESH_TOKEN_SALT is required")
	ErrInvalidTokenTTL     = errors.New("invalid token TTL format")
	ErrInvalidJWTAlgorithm = errors.New("invalid JWT algorithm")
)

func Load() (*Config, error) {
	// Load .env file if it exists
	_ = godotenv.Load()

	cfg := &Config{
		DatabaseURL:      os.Getenv("DATABASE_URL"),
		JWTSecret:        os.Getenv("JWT_SECRET"),
		RefreshTokenSalt: os.Getenv("REFRESH_TOKEN_SALT"),
		JWTAlgorithm:     getEnvOrDefault("JWT_ALG", "HS256"),
		ServerPort:       getEnvOrDefault("SERVER_PORT", "8080"),
		ServerHost:       getEnvOrDefault("SERVER_HOST", "localhost"),
		Environment:      getEnvOrDefault("ENV", "development"),

		RedisURL:         getEnvOrDefault("REDIS_URL", "redis://localhost:6379/0"),
		RateLimitEnabled: getEnvOrDefaultBool("RATE_LIMIT_ENABLED", true),

		LogLevel:  getEnvOrDefault("LOG_LEVEL", "info"),
		LogFormat: getEnvOrDefault("LOG_FORMAT", "json"),

		CORSEnabled:          getEnvOrDefaultBool("CORS_ENABLED", true),
		CORSAllowCredentials: getEnvOrDefaultBool("CORS_ALLOW_CREDENTIALS", true),
		CORSAllowedOrigins:   parseAllowedOrigins(getEnvOrDefault("CORS_ALLOWED_ORIGINS", "")),

		MetricsEnabled: getEnvOrDefaultBool("METRICS_ENABLED", true),
	}

	if cfg.DatabaseURL == "" {
		return nil, ErrMissingDatabaseURL
	}
	if cfg.JWTAlgorithm != "HS256" {
		return nil, ErrInvalidJWTAlgorithm
	}
	if cfg.JWTSecret == "" {
		return nil, ErrMissingJWTSecret
	}
	if cfg.RefreshTokenSalt == "" {
		return nil, ErrMissingRefreshSalt
	}

	accessTokenTTL, err := parseTTLSeconds(getEnvOrDefault("JWT_ACCESS_TOKEN_TTL", "900"))
	if err != nil {
		return nil, ErrInvalidTokenTTL
	}
	cfg.AccessTokenTTL = accessTokenTTL

	refreshTokenTTL, err := parseTTLSeconds(getEnvOrDefault("JWT_REFRESH_TOKEN_TTL", "2592000"))
	if err != nil {
		return nil, ErrInvalidTokenTTL
	}
	cfg.RefreshTokenTTL = refreshTokenTTL

	cfg.RateLimitIPAttempts = getEnvOrDefaultInt("RATE_LIMIT_IP_ATTEMPTS", 5)
	cfg.RateLimitUserAttempts = getEnvOrDefaultInt("RATE_LIMIT_USER_ATTEMPTS", 10)

	ipWindow, err := parseTTLSeconds(getEnvOrDefault("RATE_LIMIT_IP_WINDOW", "900"))
	if err != nil {
		return nil, ErrInvalidTokenTTL
	}
	cfg.RateLimitIPWindow = ipWindow

	userWindow, err := parseTTLSeconds(getEnvOrDefault("RATE_LIMIT_USER_WINDOW", "3600"))
	if err != nil {
		return nil, ErrInvalidTokenTTL
	}
	cfg.RateLimitUserWindow = userWindow

	blockDuration, err := parseTTLSeconds(getEnvOrDefault("RATE_LIMIT_BLOCK_DURATION", "1800"))
	if err != nil {
		return nil, ErrInvalidTokenTTL
	}
	cfg.RateLimitBlockDuration = blockDuration

	return cfg, nil
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvOrDefaultBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		parsed, err := strconv.ParseBool(value)
		if err != nil {
			return defaultValue
		}
		return parsed
	}
	return defaultValue
}

func getEnvOrDefaultInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		parsed, err := strconv.Atoi(value)
		if err != nil {
			return defaultValue
		}
		return parsed
	}
	return defaultValue
}

func parseTTLSeconds(value string) (time.Duration, error) {
	seconds, err := strconv.Atoi(value)
	if err != nil {
		return 0, err
	}
	return time.Duration(seconds) * time.Second, nil
}

func parseAllowedOrigins(value string) []string {
	if value == "" {
		return []string{}
	}
	parts := strings.Split(value, ",")
	res := make([]string, 0, len(parts))
	for _, p := range parts {
		trimmed := strings.TrimSpace(p)
		if trimmed != "" {
			res = append(res, trimmed)
		}
	}
	return res
}
