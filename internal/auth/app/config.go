package app

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/aussiebroadwan/learnhub/internal/auth/service"
	"github.com/aussiebroadwan/learnhub/pkg/jwtx"
	"gopkg.in/yaml.v3"
)

// Session backends.
const (
	BackendMemory = "memory"
	BackendSQLite = "sqlite"
)

// Config is built from defaults, then an optional YAML file, then
// environment variables, each layer overriding the previous one.
type Config struct {
	Issuer            string        `yaml:"issuer"`              // Issuer claim for tokens (default: learnhub-auth)
	SigningSecret     string        `yaml:"signing_secret"`      // Required unless SigningSecretFile is set, at least 32 bytes
	SigningSecretFile string        `yaml:"signing_secret_file"` // Optional: file holding the signing secret
	AccessTTL         time.Duration `yaml:"access_ttl"`          // Access token lifetime (default: 15m)
	RefreshTTL        time.Duration `yaml:"refresh_ttl"`         // Refresh token and session lifetime (default: 168h)

	SessionBackend string `yaml:"session_backend"` // memory or sqlite (default: sqlite)
	DatabaseFile   string `yaml:"database_file"`   // Path to SQLite database file (default: ./auth.db)
	PepperFile     string `yaml:"pepper_file"`     // Path to file containing pepper for password hashing (default: ./pepper)

	BootstrapAdminEmail    string `yaml:"bootstrap_admin_email"`    // Optional: seeds the first admin
	BootstrapAdminPassword string `yaml:"bootstrap_admin_password"` // Optional: seeds the first admin

	TrustProxyHeaders bool `yaml:"trust_proxy_headers"` // Take client IPs from X-Forwarded-For (default: false)

	Env                  string        `yaml:"env"`                   // Environment (dev, staging, prod) (default: dev)
	LogLevel             string        `yaml:"log_level"`             // Log level (debug, info, warn, error) (default: info)
	LogFormat            string        `yaml:"log_format"`            // Log format (json, text) (default: json)
	Port                 int           `yaml:"port"`                  // HTTP server port (default: 8080)
	ShutdownGracePeriod  time.Duration `yaml:"shutdown_grace_period"` // Graceful shutdown timeout (default: 10s)
	HousekeepingInterval time.Duration `yaml:"housekeeping_interval"` // Housekeeping interval (default: 10m)
}

func defaultConfig() Config {
	return Config{
		Issuer:               "learnhub-auth",
		AccessTTL:            jwtx.DefaultAccessTokenTTL,
		RefreshTTL:           jwtx.DefaultRefreshTokenTTL,
		SessionBackend:       BackendSQLite,
		DatabaseFile:         "auth.db",
		PepperFile:           "pepper",
		Env:                  "dev",
		LogLevel:             "info",
		LogFormat:            "json",
		Port:                 8080,
		ShutdownGracePeriod:  10 * time.Second,
		HousekeepingInterval: service.DefaultHousekeepingInterval,
	}
}

// LoadConfig reads path (if non-empty, else AUTH_CONFIG_FILE if set), applies
// environment overrides, resolves the signing secret and validates.
func LoadConfig(path string) (Config, error) {
	cfg := defaultConfig()

	if path == "" {
		path = os.Getenv("AUTH_CONFIG_FILE")
	}
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("reading config file: %w", err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return Config{}, fmt.Errorf("parsing config file: %w", err)
		}
	}

	applyEnvOverrides(&cfg)

	if err := cfg.resolveSecret(); err != nil {
		return Config{}, err
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("validating config: %w", err)
	}
	return cfg, nil
}

func applyEnvOverrides(cfg *Config) {
	cfg.Issuer = getEnvOrDefault("AUTH_ISSUER", cfg.Issuer)
	cfg.SigningSecret = getEnvOrDefault("AUTH_SIGNING_SECRET", cfg.SigningSecret)
	cfg.SigningSecretFile = getEnvOrDefault("AUTH_SIGNING_SECRET_FILE", cfg.SigningSecretFile)
	cfg.AccessTTL = getEnvDurationOrDefault("AUTH_ACCESS_TTL", cfg.AccessTTL)
	cfg.RefreshTTL = getEnvDurationOrDefault("AUTH_REFRESH_TTL", cfg.RefreshTTL)
	cfg.SessionBackend = strings.ToLower(getEnvOrDefault("AUTH_SESSION_BACKEND", cfg.SessionBackend))
	cfg.DatabaseFile = getEnvOrDefault("AUTH_DATABASE_FILE", cfg.DatabaseFile)
	cfg.PepperFile = getEnvOrDefault("AUTH_PEPPER_FILE", cfg.PepperFile)
	cfg.BootstrapAdminEmail = getEnvOrDefault("AUTH_BOOTSTRAP_ADMIN_EMAIL", cfg.BootstrapAdminEmail)
	cfg.BootstrapAdminPassword = getEnvOrDefault("AUTH_BOOTSTRAP_ADMIN_PASSWORD", cfg.BootstrapAdminPassword)
	cfg.TrustProxyHeaders = getEnvBoolOrDefault("TRUST_PROXY_HEADERS", cfg.TrustProxyHeaders)
	cfg.Env = getEnvOrDefault("ENV", cfg.Env)
	cfg.LogLevel = getEnvOrDefault("LOG_LEVEL", cfg.LogLevel)
	cfg.LogFormat = getEnvOrDefault("LOG_FORMAT", cfg.LogFormat)
	cfg.Port = getEnvIntOrDefault("PORT", cfg.Port)
	cfg.ShutdownGracePeriod = getEnvDurationOrDefault("SHUTDOWN_GRACE_PERIOD", cfg.ShutdownGracePeriod)
	cfg.HousekeepingInterval = getEnvDurationOrDefault("HOUSEKEEPING_INTERVAL", cfg.HousekeepingInterval)
}

// resolveSecret loads the secret file when no inline secret is given.
func (c *Config) resolveSecret() error {
	if c.SigningSecret != "" || c.SigningSecretFile == "" {
		return nil
	}
	data, err := os.ReadFile(c.SigningSecretFile)
	if err != nil {
		return fmt.Errorf("reading signing secret file: %w", err)
	}
	c.SigningSecret = strings.TrimSpace(string(data))
	return nil
}

// Validate fails fast on settings the service cannot run with. There is no
// default signing secret.
func (c *Config) Validate() error {
	var errs []error

	if len(c.SigningSecret) < jwtx.MinSecretLength {
		errs = append(errs, service.ErrMissingSigningSecret)
	}
	if c.AccessTTL <= 0 {
		errs = append(errs, errors.New("access_ttl must be positive"))
	}
	if c.RefreshTTL <= c.AccessTTL {
		errs = append(errs, errors.New("refresh_ttl must be longer than access_ttl"))
	}
	switch c.SessionBackend {
	case BackendMemory, BackendSQLite:
	default:
		errs = append(errs, fmt.Errorf("session_backend must be %q or %q, got %q", BackendMemory, BackendSQLite, c.SessionBackend))
	}
	if c.DatabaseFile == "" {
		errs = append(errs, errors.New("database_file is required"))
	}
	if c.Port < 1 || c.Port > 65535 {
		errs = append(errs, fmt.Errorf("port %d out of range", c.Port))
	}
	if (c.BootstrapAdminEmail == "") != (c.BootstrapAdminPassword == "") {
		errs = append(errs, errors.New("bootstrap admin email and password must be set together"))
	}

	return errors.Join(errs...)
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvIntOrDefault(key string, defaultValue int) int {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	if intValue, err := strconv.Atoi(value); err == nil {
		return intValue
	}

	return defaultValue
}

func getEnvBoolOrDefault(key string, defaultValue bool) bool {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	if b, err := strconv.ParseBool(value); err == nil {
		return b
	}
	return defaultValue
}

func getEnvDurationOrDefault(key string, defaultValue time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	// Try parsing as duration (e.g., "1h", "30m", "90s")
	if duration, err := time.ParseDuration(value); err == nil {
		return duration
	}

	// Try parsing as integer minutes (for backwards compatibility)
	if minutes, err := strconv.Atoi(value); err == nil {
		return time.Duration(minutes) * time.Minute
	}

	return defaultValue
}
