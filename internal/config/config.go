package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const (
	minSecretLength = 32
	minBcryptCost   = 4
	maxBcryptCost   = 31
)

// Config aggregates runtime configuration for the service.
type Config struct {
	App          AppConfig
	Postgres     PostgresConfig
	Redis        RedisConfig
	Logger       LoggerConfig
	Auth         AuthConfig
	Cookie       CookieConfig
	Edge         EdgeConfig
	Session      SessionConfig
	Notification NotificationConfig
}

// AppConfig controls server level behavior.
type AppConfig struct {
	Name                  string
	Env                   string
	Host                  string
	Port                  string
	Version               string
	RequestTimeoutSeconds int
}

// PostgresConfig holds DB connection values.
type PostgresConfig struct {
	DSN            string
	MaxConns       int32
	MinConns       int32
	RunMigrations  bool
	ConnMaxIdleSec int32
	ConnMaxLifeSec int32
}

// RedisConfig holds Redis connection values.
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

// LoggerConfig configures logging behavior.
type LoggerConfig struct {
	Level    string
	Encoding string
}

// AuthConfig defines authentication parameters. SessionSecret is read once at
// startup; rotating it means restarting the process.
type AuthConfig struct {
	SessionSecret           string
	TokenTTLMinutes         int
	PasswordResetTTLMinutes int
	BcryptCost              int
	MinPasswordLength       int
	PolicyFile              string
}

// CookieConfig describes the session cookie.
type CookieConfig struct {
	Name     string
	Path     string
	Domain   string
	Secure   bool
	SameSite string
}

// EdgeConfig configures the stateless gatekeeper.
type EdgeConfig struct {
	ProtectedPrefixes  []string
	APIPrefixes        []string
	LoginPath          string
	MaxTokenAgeSeconds int
	Host               string
	Port               string
	OriginURL          string
}

// SessionConfig configures the session cache and sweeper.
type SessionConfig struct {
	CacheEnabled         bool
	CacheTTLSeconds      int
	SweepIntervalSeconds int
}

// NotificationConfig holds stub notification settings.
type NotificationConfig struct {
	EmailFrom string
	ResetURL  string
}

// Load reads configuration from environment variables, applying defaults where possible.
func Load() (*Config, error) {
	_ = godotenv.Load()

	redisDB, err := strconv.Atoi(getEnv("REDIS_DB", "0"))
	if err != nil {
		return nil, fmt.Errorf("invalid REDIS_DB: %w", err)
	}

	cfg := &Config{
		App: AppConfig{
			Name:                  getEnv("APP_NAME", "auth-core"),
			Env:                   getEnv("APP_ENV", "development"),
			Host:                  getEnv("APP_HOST", "0.0.0.0"),
			Port:                  getEnv("APP_PORT", "8080"),
			Version:               getEnv("APP_VERSION", "dev"),
			RequestTimeoutSeconds: getEnvAsInt("HTTP_REQUEST_TIMEOUT_SECONDS", 30),
		},
		Postgres: PostgresConfig{
			DSN:            os.Getenv("POSTGRES_DSN"),
			MaxConns:       int32(getEnvAsInt("POSTGRES_MAX_CONNS", 10)),
			MinConns:       int32(getEnvAsInt("POSTGRES_MIN_CONNS", 2)),
			RunMigrations:  getEnvAsBool("POSTGRES_RUN_MIGRATIONS", true),
			ConnMaxIdleSec: int32(getEnvAsInt("POSTGRES_CONN_MAX_IDLE_SECONDS", 30)),
			ConnMaxLifeSec: int32(getEnvAsInt("POSTGRES_CONN_MAX_LIFE_SECONDS", 300)),
		},
		Redis: RedisConfig{
			Addr:     getEnv("REDIS_ADDR", "127.0.0.1:6379"),
			Password: os.Getenv("REDIS_PASSWORD"),
			DB:       redisDB,
		},
		Logger: LoggerConfig{
			Level:    getEnv("LOG_LEVEL", "info"),
			Encoding: strings.ToLower(getEnv("LOG_ENCODING", "json")),
		},
		Auth: AuthConfig{
			SessionSecret:           os.Getenv("AUTH_SESSION_SECRET"),
			TokenTTLMinutes:         getEnvAsInt("AUTH_TOKEN_TTL_MINUTES", 24*60),
			PasswordResetTTLMinutes: getEnvAsInt("AUTH_PASSWORD_RESET_TTL_MINUTES", 30),
			BcryptCost:              getEnvAsInt("AUTH_BCRYPT_COST", 12),
			MinPasswordLength:       getEnvAsInt("AUTH_MIN_PASSWORD_LENGTH", 8),
			PolicyFile:              os.Getenv("AUTH_POLICY_FILE"),
		},
		Cookie: CookieConfig{
			Name:     getEnv("AUTH_COOKIE_NAME", "auth_token"),
			Path:     getEnv("AUTH_COOKIE_PATH", "/"),
			Domain:   os.Getenv("AUTH_COOKIE_DOMAIN"),
			Secure:   getEnvAsBool("AUTH_COOKIE_SECURE", false),
			SameSite: strings.ToLower(getEnv("AUTH_COOKIE_SAMESITE", "lax")),
		},
		Edge: EdgeConfig{
			ProtectedPrefixes:  getEnvAsList("EDGE_PROTECTED_PREFIXES", []string{"/admin"}),
			APIPrefixes:        getEnvAsList("EDGE_API_PREFIXES", []string{"/api"}),
			LoginPath:          getEnv("EDGE_LOGIN_PATH", "/login"),
			MaxTokenAgeSeconds: getEnvAsInt("EDGE_MAX_TOKEN_AGE_SECONDS", 0),
			Host:               getEnv("EDGE_HOST", "0.0.0.0"),
			Port:               getEnv("EDGE_PORT", "8081"),
			OriginURL:          getEnv("EDGE_ORIGIN_URL", "http://127.0.0.1:8080"),
		},
		Session: SessionConfig{
			CacheEnabled:         getEnvAsBool("SESSION_CACHE_ENABLED", true),
			CacheTTLSeconds:      getEnvAsInt("SESSION_CACHE_TTL_SECONDS", 60),
			SweepIntervalSeconds: getEnvAsInt("SESSION_SWEEP_INTERVAL_SECONDS", 900),
		},
		Notification: NotificationConfig{
			EmailFrom: getEnv("NOTIFY_EMAIL_FROM", "noreply@example.com"),
			ResetURL:  getEnv("NOTIFY_RESET_URL", "http://localhost:3000/reset-password"),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks values that would make the auth core unsafe or unusable.
func (c *Config) Validate() error {
	var errs []error

	if c.Auth.SessionSecret == "" {
		errs = append(errs, errors.New("AUTH_SESSION_SECRET is required"))
	} else if len(c.Auth.SessionSecret) < minSecretLength {
		errs = append(errs, fmt.Errorf("AUTH_SESSION_SECRET too short (min %d chars)", minSecretLength))
	}
	if c.Auth.TokenTTLMinutes <= 0 {
		errs = append(errs, errors.New("AUTH_TOKEN_TTL_MINUTES must be positive"))
	}
	if c.Auth.PasswordResetTTLMinutes <= 0 {
		errs = append(errs, errors.New("AUTH_PASSWORD_RESET_TTL_MINUTES must be positive"))
	}
	if c.Auth.BcryptCost < minBcryptCost || c.Auth.BcryptCost > maxBcryptCost {
		errs = append(errs, fmt.Errorf("AUTH_BCRYPT_COST must be between %d and %d", minBcryptCost, maxBcryptCost))
	}
	if c.Auth.MinPasswordLength <= 0 {
		errs = append(errs, errors.New("AUTH_MIN_PASSWORD_LENGTH must be positive"))
	}
	if c.Cookie.Name == "" {
		errs = append(errs, errors.New("AUTH_COOKIE_NAME must not be empty"))
	}
	switch c.Cookie.SameSite {
	case "lax", "strict", "none":
	default:
		errs = append(errs, fmt.Errorf("AUTH_COOKIE_SAMESITE %q is not one of lax, strict, none", c.Cookie.SameSite))
	}
	for _, prefix := range append(append([]string{}, c.Edge.ProtectedPrefixes...), c.Edge.APIPrefixes...) {
		if !strings.HasPrefix(prefix, "/") {
			errs = append(errs, fmt.Errorf("path prefix %q must start with /", prefix))
		}
	}
	if c.Edge.MaxTokenAgeSeconds < 0 {
		errs = append(errs, errors.New("EDGE_MAX_TOKEN_AGE_SECONDS must not be negative"))
	}
	if c.Session.CacheTTLSeconds < 0 || c.Session.SweepIntervalSeconds < 0 {
		errs = append(errs, errors.New("session cache ttl and sweep interval must not be negative"))
	}

	return errors.Join(errs...)
}

// Addr returns the HTTP bind address.
func (a AppConfig) Addr() string {
	return fmt.Sprintf("%s:%s", a.Host, a.Port)
}

// RequestTimeout returns the configured request timeout duration.
func (a AppConfig) RequestTimeout() time.Duration {
	if a.RequestTimeoutSeconds <= 0 {
		return 0
	}
	return time.Duration(a.RequestTimeoutSeconds) * time.Second
}

// TokenTTL returns the session token lifetime.
func (a AuthConfig) TokenTTL() time.Duration {
	return time.Duration(a.TokenTTLMinutes) * time.Minute
}

// PasswordResetTTL returns the reset token lifetime.
func (a AuthConfig) PasswordResetTTL() time.Duration {
	return time.Duration(a.PasswordResetTTLMinutes) * time.Minute
}

// Addr returns the edge gateway bind address.
func (e EdgeConfig) Addr() string {
	return fmt.Sprintf("%s:%s", e.Host, e.Port)
}

// MaxTokenAge returns the edge staleness bound; zero means token expiry only.
func (e EdgeConfig) MaxTokenAge() time.Duration {
	return time.Duration(e.MaxTokenAgeSeconds) * time.Second
}

// CacheTTL returns how long a session lookup may be served from redis.
func (s SessionConfig) CacheTTL() time.Duration {
	return time.Duration(s.CacheTTLSeconds) * time.Second
}

// SweepInterval returns the expired-session sweep period; zero disables it.
func (s SessionConfig) SweepInterval() time.Duration {
	return time.Duration(s.SweepIntervalSeconds) * time.Second
}

func getEnv(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}

func getEnvAsInt(key string, fallback int) int {
	val := os.Getenv(key)
	if val == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(val)
	if err != nil {
		return fallback
	}
	return parsed
}

func getEnvAsBool(key string, fallback bool) bool {
	val := os.Getenv(key)
	if val == "" {
		return fallback
	}
	parsed, err := strconv.ParseBool(val)
	if err != nil {
		return fallback
	}
	return parsed
}

func getEnvAsList(key string, fallback []string) []string {
	val := os.Getenv(key)
	if val == "" {
		return fallback
	}
	var out []string
	for _, part := range strings.Split(val, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	if len(out) == 0 {
		return fallback
	}
	return out
}
