package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config is the validated runtime configuration of the service.
// Required: DatabaseURL, and either Auth.IssuerURL (with Auth.Audience) or Auth.JWTSecret.
type Config struct {
	Port        string
	DatabaseURL string
	// RedisURL is optional; without it events are delivered in-process only.
	RedisURL string

	Auth AuthConfig

	LogLevel          string
	CORSAllowedOrigin string
	RequestTimeout    time.Duration
	MaxBodyBytes      int64
	// RateLimitRPS is the per-client request rate; 0 disables limiting.
	RateLimitRPS int
}

// AuthConfig describes how bearer tokens are verified.
type AuthConfig struct {
	IssuerURL string
	Audience  string
	JWKSURL   string
	JWTSecret []byte
}

// UsesJWKS reports whether RS256 tokens from an issuer are accepted.
func (a AuthConfig) UsesJWKS() bool { return a.IssuerURL != "" }

// Load reads an optional .env file and then the process environment.
func Load() (Config, error) {
	// .env is optional; containers set the variables directly.
	_ = godotenv.Load()
	return FromEnv()
}

// FromEnv builds a Config from the process environment without touching .env files.
func FromEnv() (Config, error) {
	cfg := Config{
		Port:              getenv("PORT", "3000"),
		DatabaseURL:       getenv("DATABASE_URL", ""),
		RedisURL:          getenv("REDIS_URL", ""),
		LogLevel:          strings.ToLower(getenv("LOG_LEVEL", "info")),
		CORSAllowedOrigin: getenv("CORS_ALLOWED_ORIGIN", "*"),
		Auth: AuthConfig{
			IssuerURL: getenv("AUTH0_ISSUER_URL", ""),
			Audience:  getenv("AUTH0_AUDIENCE", ""),
			JWKSURL:   getenv("AUTH0_JWKS_URL", ""),
			JWTSecret: []byte(getenv("JWT_SECRET", "")),
		},
	}

	if cfg.DatabaseURL == "" {
		cfg.DatabaseURL = databaseURLFromParts()
	}

	timeout, err := getenvDuration("REQUEST_TIMEOUT", 30*time.Second)
	if err != nil {
		return Config{}, err
	}
	cfg.RequestTimeout = timeout

	maxBody, err := getenvInt64("MAX_BODY_BYTES", 1<<20)
	if err != nil {
		return Config{}, err
	}
	cfg.MaxBodyBytes = maxBody

	rps, err := getenvInt64("RATE_LIMIT_RPS", 20)
	if err != nil {
		return Config{}, err
	}
	cfg.RateLimitRPS = int(rps)

	if cfg.Auth.IssuerURL != "" && cfg.Auth.JWKSURL == "" {
		cfg.Auth.JWKSURL = strings.TrimSuffix(cfg.Auth.IssuerURL, "/") + "/.well-known/jwks.json"
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks required fields and value ranges.
func (c Config) Validate() error {
	if c.DatabaseURL == "" {
		return errors.New("config: DATABASE_URL (or DB_HOST/DB_USER/DB_PASS/DB_NAME) is required")
	}
	if c.Auth.IssuerURL == "" && len(c.Auth.JWTSecret) == 0 {
		return errors.New("config: AUTH0_ISSUER_URL or JWT_SECRET is required, cannot start without token validation")
	}
	if c.Auth.IssuerURL != "" {
		if c.Auth.Audience == "" {
			return errors.New("config: AUTH0_AUDIENCE is required when AUTH0_ISSUER_URL is set")
		}
		if _, err := url.ParseRequestURI(c.Auth.JWKSURL); err != nil {
			return fmt.Errorf("config: invalid JWKS url %q: %w", c.Auth.JWKSURL, err)
		}
	}
	if c.RequestTimeout <= 0 {
		return errors.New("config: REQUEST_TIMEOUT must be positive")
	}
	if c.MaxBodyBytes <= 0 {
		return errors.New("config: MAX_BODY_BYTES must be positive")
	}
	if c.RateLimitRPS < 0 {
		return errors.New("config: RATE_LIMIT_RPS must not be negative")
	}
	switch c.LogLevel {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("config: invalid LOG_LEVEL %q", c.LogLevel)
	}
	return nil
}

func databaseURLFromParts() string {
	host := getenv("DB_HOST", "")
	name := getenv("DB_NAME", "")
	if host == "" || name == "" {
		return ""
	}
	u := url.URL{
		Scheme:   "postgres",
		Host:     host,
		Path:     "/" + name,
		RawQuery: "sslmode=" + getenv("DB_SSLMODE", "disable"),
	}
	if user := getenv("DB_USER", ""); user != "" {
		u.User = url.UserPassword(user, getenv("DB_PASS", ""))
	}
	return u.String()
}

func getenv(k, def string) string {
	if v := strings.TrimSpace(os.Getenv(k)); v != "" {
		return v
	}
	return def
}

func getenvDuration(k string, def time.Duration) (time.Duration, error) {
	raw := getenv(k, "")
	if raw == "" {
		return def, nil
	}
	d, err := time.ParseDuration(raw)
	if err != nil {
		return 0, fmt.Errorf("config: invalid %s: %w", k, err)
	}
	return d, nil
}

func getenvInt64(k string, def int64) (int64, error) {
	raw := getenv(k, "")
	if raw == "" {
		return def, nil
	}
	v, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("config: invalid %s: %w", k, err)
	}
	return v, nil
}
