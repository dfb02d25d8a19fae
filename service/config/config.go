package config

import (
	"fmt"
	"net/url"
	"os"
)

// Config holds all application configuration loaded from environment variables.
// All required fields are validated at startup to ensure fail-fast behavior.
type Config struct {
	// Server configuration
	ServerAddr string
	LogLevel   string

	// TLS configuration. When both paths are set the server listens with TLS;
	// when both are empty it falls back to plain HTTP (local development).
	TLSCertFile string
	TLSKeyFile  string

	// Database configuration
	DBHost     string
	DBPort     string
	DBUser     string
	DBPassword string
	DBName     string
	DBSSLMode  string

	// NATS configuration. Empty disables event publishing.
	NATSURL string

	// Metrics configuration
	MetricsEnabled bool
}

// Load reads configuration from environment variables and validates all required fields.
// Returns an error if any required configuration is missing or invalid.
func Load() (*Config, error) {
	cfg := &Config{}
	var errs []error

	// Server configuration
	cfg.ServerAddr = getEnvOrDefault("SERVER_ADDR", ":8443")
	cfg.LogLevel = getEnvOrDefault("LOG_LEVEL", "info")

	// TLS configuration
	cfg.TLSCertFile = os.Getenv("TLS_CERT_FILE")
	cfg.TLSKeyFile = os.Getenv("TLS_KEY_FILE")
	if (cfg.TLSCertFile == "") != (cfg.TLSKeyFile == "") {
		errs = append(errs, fmt.Errorf("TLS_CERT_FILE and TLS_KEY_FILE must be set together"))
	}

	// Database configuration
	cfg.DBHost = os.Getenv("DB_HOST")
	if cfg.DBHost == "" {
		errs = append(errs, fmt.Errorf("DB_HOST is required"))
	}
	cfg.DBPort = getEnvOrDefault("DB_PORT", "5432")
	cfg.DBUser = os.Getenv("DB_USER")
	if cfg.DBUser == "" {
		errs = append(errs, fmt.Errorf("DB_USER is required"))
	}
	cfg.DBPassword = os.Getenv("DB_PASSWORD")
	if cfg.DBPassword == "" {
		errs = append(errs, fmt.Errorf("DB_PASSWORD is required"))
	}
	cfg.DBName = os.Getenv("DB_NAME")
	if cfg.DBName == "" {
		errs = append(errs, fmt.Errorf("DB_NAME is required"))
	}
	cfg.DBSSLMode = getEnvOrDefault("DB_SSLMODE", "disable")

	// NATS configuration (optional)
	cfg.NATSURL = os.Getenv("NATS_URL")

	// Metrics configuration
	cfg.MetricsEnabled = getEnvOrDefault("METRICS_ENABLED", "true") == "true"

	// Return all validation errors
	if len(errs) > 0 {
		return nil, fmt.Errorf("configuration validation failed: %v", errs)
	}

	return cfg, nil
}

// MustLoad is like Load but panics if configuration is invalid.
// Useful for server initialization where misconfiguration should halt startup.
func MustLoad() *Config {
	cfg, err := Load()
	if err != nil {
		panic(fmt.Sprintf("failed to load configuration: %v", err))
	}
	return cfg
}

// DatabaseURL assembles a postgres connection string from the discrete
// DB_* settings. Credentials are URL-escaped so special characters survive.
func (c *Config) DatabaseURL() string {
	u := url.URL{
		Scheme:   "postgres",
		User:     url.UserPassword(c.DBUser, c.DBPassword),
		Host:     c.DBHost + ":" + c.DBPort,
		Path:     "/" + c.DBName,
		RawQuery: "sslmode=" + c.DBSSLMode,
	}
	return u.String()
}

// TLSEnabled reports whether the server should listen with TLS.
func (c *Config) TLSEnabled() bool {
	return c.TLSCertFile != "" && c.TLSKeyFile != ""
}

// Validate checks if the configuration is valid.
// This is useful for testing configuration without loading from env.
func (c *Config) Validate() error {
	var errs []error

	if c.DBHost == "" {
		errs = append(errs, fmt.Errorf("DBHost is required"))
	}
	if c.DBUser == "" {
		errs = append(errs, fmt.Errorf("DBUser is required"))
	}
	if c.DBPassword == "" {
		errs = append(errs, fmt.Errorf("DBPassword is required"))
	}
	if c.DBName == "" {
		errs = append(errs, fmt.Errorf("DBName is required"))
	}
	if (c.TLSCertFile == "") != (c.TLSKeyFile == "") {
		errs = append(errs, fmt.Errorf("TLSCertFile and TLSKeyFile must be set together"))
	}

	if len(errs) > 0 {
		return fmt.Errorf("configuration validation failed: %v", errs)
	}

	return nil
}

// getEnvOrDefault returns the environment variable value or a default if not set.
func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
