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
	Port        string
	Env         string
	DatabaseURL string

	TokenSecret        string
	AccessTokenTTL     time.Duration
	AccessTokenHeader  string
	RefreshTokenHeader string

	APIBase     string
	LoginPath   string
	LogoutPath  string
	RefreshPath string
	LoggerPath  string

	SaltFactor     int
	LogLevel       string
	CORSOrigins    []string
	LoginRateLimit int

	MetricsUser     string
	MetricsPassword string
}

// Load reads .env when present, then the process environment.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		slog.Debug(".env file not found, using process environment")
	}

	cfg := &Config{
		Port:        getEnv("PORT", "3000"),
		Env:         getEnv("ENV", "development"),
		DatabaseURL: os.Getenv("DATABASE_URL"),

		TokenSecret:        getEnv("TOKEN_SECRET", "DEV-JWTSecret"),
		AccessTokenHeader:  getEnv("ACCESS_TOKEN_HEADER", "Authorization"),
		RefreshTokenHeader: getEnv("REFRESH_TOKEN_HEADER", "Refresh"),

		APIBase:     getEnv("API_BASE", "/api"),
		LoginPath:   getEnv("LOGIN_PATH", "/login"),
		LogoutPath:  getEnv("LOGOUT_PATH", "/logout"),
		RefreshPath: getEnv("REFRESH_PATH", "/refresh"),
		LoggerPath:  getEnv("LOGGER_PATH", "/log/{level}"),

		LogLevel:    getEnv("LOG_LEVEL", "info"),
		CORSOrigins: splitList(os.Getenv("CORS_ORIGINS")),

		MetricsUser:     os.Getenv("METRICS_USER"),
		MetricsPassword: os.Getenv("METRICS_PASSWORD"),
	}

	ttl, err := getInt("ACCESS_TOKEN_TTL", 600)
	if err != nil {
		return nil, err
	}
	if ttl <= 0 {
		return nil, fmt.Errorf("ACCESS_TOKEN_TTL must be positive, got %d", ttl)
	}
	cfg.AccessTokenTTL = time.Duration(ttl) * time.Second

	if cfg.SaltFactor, err = getInt("SALT_FACTOR", 10); err != nil {
		return nil, err
	}
	if cfg.LoginRateLimit, err = getInt("LOGIN_RATE_LIMIT", 20); err != nil {
		return nil, err
	}

	return cfg, nil
}

// RefreshRoute is the full route of the refresh endpoint as the router sees it.
func (c *Config) RefreshRoute() string {
	return c.APIBase + c.RefreshPath
}

func (c *Config) MetricsEnabled() bool {
	return c.MetricsUser != "" && c.MetricsPassword != ""
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getInt(key string, fallback int) (int, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q: %w", key, v, err)
	}
	return n, nil
}

func splitList(v string) []string {
	var out []string
	for _, s := range strings.Split(v, ",") {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}
