package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
	_ "time/tzdata"

	"github.com/hongminglow/mess-be/internal/models"
)

// Storage drivers.
const (
	DriverPostgres = "postgres"
	DriverMemory   = "memory"
)

// Config holds runtime configuration sourced from env vars.
type Config struct {
	Port        string
	Driver      string
	DatabaseURL string
	JWTSecret   string
	JWTIssuer   string
	JWTTTL      time.Duration
	CORSOrigins []string

	LogLevel  string
	LogFormat string

	Location         *time.Location
	OverlapPolicy    models.OverlapPolicy
	MaxRequestDays   int
	ManagerSignupKey string
	// LoginRatePerMinute caps login attempts per client address; 0 disables it.
	LoginRatePerMinute int
}

// Load reads configuration from the environment and performs minimal validation.
func Load() (Config, error) {
	cfg := Config{
		Port:             fallback(os.Getenv("PORT"), "8080"),
		Driver:           strings.ToLower(fallback(os.Getenv("STORAGE_DRIVER"), DriverPostgres)),
		DatabaseURL:      strings.TrimSpace(os.Getenv("DATABASE_URL")),
		JWTSecret:        strings.TrimSpace(os.Getenv("JWT_SECRET")),
		JWTIssuer:        fallback(os.Getenv("JWT_ISSUER"), "mess-backend"),
		CORSOrigins:      parseCSV(fallback(os.Getenv("CORS_ALLOWED_ORIGINS"), "*")),
		LogLevel:         fallback(os.Getenv("LOG_LEVEL"), "info"),
		LogFormat:        fallback(os.Getenv("LOG_FORMAT"), "text"),
		ManagerSignupKey: strings.TrimSpace(os.Getenv("MANAGER_SIGNUP_KEY")),
	}

	cfg.JWTTTL = time.Duration(positiveInt(os.Getenv("JWT_TTL_MINUTES"), 60)) * time.Minute
	cfg.MaxRequestDays = positiveInt(os.Getenv("MESS_MAX_REQUEST_DAYS"), 366)
	cfg.LoginRatePerMinute = positiveInt(os.Getenv("LOGIN_RATE_PER_MINUTE"), 10)
	if strings.TrimSpace(os.Getenv("LOGIN_RATE_PER_MINUTE")) == "0" {
		cfg.LoginRatePerMinute = 0
	}

	loc, err := time.LoadLocation(fallback(os.Getenv("TIMEZONE"), "Asia/Karachi"))
	if err != nil {
		return Config{}, fmt.Errorf("invalid TIMEZONE: %w", err)
	}
	cfg.Location = loc

	policy, err := models.ParseOverlapPolicy(os.Getenv("MESS_OVERLAP_POLICY"))
	if err != nil {
		return Config{}, fmt.Errorf("invalid MESS_OVERLAP_POLICY: %w", err)
	}
	cfg.OverlapPolicy = policy

	switch cfg.Driver {
	case DriverPostgres:
		if cfg.DatabaseURL == "" {
			return Config{}, errors.New("DATABASE_URL is required")
		}
	case DriverMemory:
	default:
		return Config{}, fmt.Errorf("unknown STORAGE_DRIVER %q", cfg.Driver)
	}
	if cfg.JWTSecret == "" {
		return Config{}, errors.New("JWT_SECRET is required")
	}

	return cfg, nil
}

// HTTPAddress returns the host:port pair for the HTTP server to bind to.
func (c Config) HTTPAddress() string {
	return fmt.Sprintf(":%s", c.Port)
}

func fallback(value, def string) string {
	if strings.TrimSpace(value) == "" {
		return def
	}
	return strings.TrimSpace(value)
}

func positiveInt(value string, def int) int {
	if n, err := strconv.Atoi(strings.TrimSpace(value)); err == nil && n > 0 {
		return n
	}
	return def
}

func parseCSV(input string) []string {
	parts := strings.Split(input, ",")
	var out []string
	for _, part := range parts {
		trimmed := strings.TrimSpace(part)
		if trimmed != "" {
			out = append(out, trimmed)
		}
	}
	if len(out) == 0 {
		return []string{"*"}
	}
	return out
}
