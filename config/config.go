package config

import (
	"context"
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config represents the complete application configuration
type Config struct {
	Server        ServerConfig
	Database      DatabaseConfig
	Auth          AuthConfig
	Integrations  IntegrationsConfig
	Observability ObservabilityConfig
	Environment   string
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Host            string
	Port            int
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	ShutdownTimeout time.Duration
	SecureCookies   bool
}

// DatabaseConfig holds PostgreSQL database configuration.
// When ConnectionString (from DATABASE_URL) is set, it takes precedence over individual fields.
type DatabaseConfig struct {
	ConnectionString string // From DATABASE_URL when set
	Host             string
	Port             int
	User             string
	Password         string
	Database         string
	SSLMode          string
	MaxOpenConns     int
	MaxIdleConns     int
	ConnMaxLifetime  time.Duration
}

// AuthConfig holds session-token and credential configuration
type AuthConfig struct {
	TokenSecret   string        // HMAC key for signed session tokens
	TokenIssuer   string        // "iss" claim on issued tokens
	TokenTTL      time.Duration // session token lifetime
	StateTokenTTL time.Duration // OAuth state token lifetime
	APIKeyPrefix  string        // non-secret prefix namespace for issued API keys
}

// IntegrationsConfig holds OAuth integration provider configuration
type IntegrationsConfig struct {
	Providers           map[string]ProviderConfig
	NotionPublicEnabled bool // gates the "notion" public-integration variant
}

// ProviderConfig holds one OAuth provider's authorize-URL settings
type ProviderConfig struct {
	ClientID     string
	AuthorizeURL string
	RedirectURI  string
	Scopes       string
}

// ObservabilityConfig holds logging configuration
type ObservabilityConfig struct {
	LogLevel  string
	LogFormat string // json or text
}

// New creates a new Config instance by loading environment variables
func New(ctx context.Context) (*Config, error) {
	// Load .env file if it exists
	_ = godotenv.Load(".env")

	cfg := &Config{
		Environment: getEnv("ENVIRONMENT", "development"),
		Server: ServerConfig{
			Host:            getEnv("SERVER_HOST", "0.0.0.0"),
			Port:            getPort(),
			ReadTimeout:     getEnvAsDuration("SERVER_READ_TIMEOUT", 30*time.Second),
			WriteTimeout:    getEnvAsDuration("SERVER_WRITE_TIMEOUT", 30*time.Second),
			ShutdownTimeout: getEnvAsDuration("SERVER_SHUTDOWN_TIMEOUT", 10*time.Second),
			SecureCookies:   getEnvAsBool("SECURE_COOKIES", true),
		},
		Database: loadDatabaseConfig(),
		Auth: AuthConfig{
			TokenSecret:   getEnv("AUTH_TOKEN_SECRET", ""),
			TokenIssuer:   getEnv("AUTH_TOKEN_ISSUER", "orgdesk-console"),
			TokenTTL:      getEnvAsDuration("AUTH_TOKEN_TTL", 24*time.Hour),
			StateTokenTTL: getEnvAsDuration("AUTH_STATE_TOKEN_TTL", 10*time.Minute),
			APIKeyPrefix:  getEnv("AUTH_API_KEY_PREFIX", "ak_"),
		},
		Integrations: loadIntegrationsConfig(),
		Observability: ObservabilityConfig{
			LogLevel:  getEnv("LOG_LEVEL", "info"),
			LogFormat: getEnv("LOG_FORMAT", "json"),
		},
	}

	// Validate the configuration
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return cfg, nil
}

// Validate checks if all required configuration fields are set
func (c *Config) Validate() error {
	// Database validation (DATABASE_URL or DB_* vars)
	if c.Database.ConnectionString == "" && c.Database.Host == "" {
		return fmt.Errorf("database configuration required: set DATABASE_URL or DB_HOST")
	}
	if c.Database.ConnectionString == "" {
		if c.Database.User == "" {
			return fmt.Errorf("database user is required")
		}
		if c.Database.Database == "" {
			return fmt.Errorf("database name is required")
		}
	}

	// Token secret is required in production; development falls back to a
	// fixed key so local setups work without env plumbing.
	if c.Auth.TokenSecret == "" {
		if c.IsProduction() {
			return fmt.Errorf("AUTH_TOKEN_SECRET is required in production")
		}
		c.Auth.TokenSecret = "dev-only-insecure-token-secret"
	}

	if c.Auth.TokenTTL <= 0 {
		return fmt.Errorf("auth token TTL must be positive")
	}

	// Observability validation
	if c.Observability.LogLevel == "" {
		return fmt.Errorf("log level is required")
	}

	return nil
}

// IsProduction returns true if running in production environment
func (c *Config) IsProduction() bool {
	return c.Environment == "production" || c.Environment == "prod"
}

// IsDevelopment returns true if running in development environment
func (c *Config) IsDevelopment() bool {
	return c.Environment == "development" || c.Environment == "dev"
}

// DSN returns the PostgreSQL connection string.
// Uses ConnectionString (from DATABASE_URL) when set; otherwise builds from individual fields.
func (c *DatabaseConfig) DSN() string {
	if c.ConnectionString != "" {
		return c.ConnectionString
	}
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.Database, c.SSLMode,
	)
}

// LogString returns a safe string for logging (no password). Parses ConnectionString when set.
func (c *DatabaseConfig) LogString() string {
	if c.ConnectionString != "" {
		u, err := url.Parse(c.ConnectionString)
		if err == nil {
			host := u.Hostname()
			port := u.Port()
			if port == "" {
				port = "5432"
			}
			db := strings.TrimPrefix(u.Path, "/")
			return fmt.Sprintf("host=%s port=%s database=%s", host, port, db)
		}
		return "host=<from DATABASE_URL>"
	}
	return fmt.Sprintf("host=%s port=%d database=%s", c.Host, c.Port, c.Database)
}

// Provider returns the configuration for an integration provider, if present
func (c *IntegrationsConfig) Provider(name string) (ProviderConfig, bool) {
	p, ok := c.Providers[name]
	return p, ok
}

// loadDatabaseConfig loads database config from DATABASE_URL or DB_* env vars
func loadDatabaseConfig() DatabaseConfig {
	dbURL := getEnv("DATABASE_URL", "")
	if dbURL != "" {
		return DatabaseConfig{
			ConnectionString: dbURL,
			MaxOpenConns:     getEnvAsInt("DB_MAX_OPEN_CONNS", 25),
			MaxIdleConns:     getEnvAsInt("DB_MAX_IDLE_CONNS", 5),
			ConnMaxLifetime:  getEnvAsDuration("DB_CONN_MAX_LIFETIME", 5*time.Minute),
		}
	}
	return DatabaseConfig{
		Host:            getEnv("DB_HOST", "localhost"),
		Port:            getEnvAsInt("DB_PORT", 5432),
		User:            getEnv("DB_USER", "console"),
		Password:        getEnv("DB_PASSWORD", "console"),
		Database:        getEnv("DB_NAME", "console"),
		SSLMode:         getEnv("DB_SSLMODE", "disable"),
		MaxOpenConns:    getEnvAsInt("DB_MAX_OPEN_CONNS", 25),
		MaxIdleConns:    getEnvAsInt("DB_MAX_IDLE_CONNS", 5),
		ConnMaxLifetime: getEnvAsDuration("DB_CONN_MAX_LIFETIME", 5*time.Minute),
	}
}

// loadIntegrationsConfig loads OAuth provider settings from env vars.
// A provider is configured when its client ID is set; unconfigured providers
// stay on the allow-list but fail initiation with a configuration error.
func loadIntegrationsConfig() IntegrationsConfig {
	providers := map[string]ProviderConfig{
		"google": {
			ClientID:     getEnv("INTEGRATION_GOOGLE_CLIENT_ID", ""),
			AuthorizeURL: getEnv("INTEGRATION_GOOGLE_AUTHORIZE_URL", "https://accounts.google.com/o/oauth2/v2/auth"),
			RedirectURI:  getEnv("INTEGRATION_GOOGLE_REDIRECT_URI", ""),
			Scopes:       getEnv("INTEGRATION_GOOGLE_SCOPES", "openid email profile"),
		},
		"github": {
			ClientID:     getEnv("INTEGRATION_GITHUB_CLIENT_ID", ""),
			AuthorizeURL: getEnv("INTEGRATION_GITHUB_AUTHORIZE_URL", "https://github.com/login/oauth/authorize"),
			RedirectURI:  getEnv("INTEGRATION_GITHUB_REDIRECT_URI", ""),
			Scopes:       getEnv("INTEGRATION_GITHUB_SCOPES", "read:org"),
		},
		"slack": {
			ClientID:     getEnv("INTEGRATION_SLACK_CLIENT_ID", ""),
			AuthorizeURL: getEnv("INTEGRATION_SLACK_AUTHORIZE_URL", "https://slack.com/oauth/v2/authorize"),
			RedirectURI:  getEnv("INTEGRATION_SLACK_REDIRECT_URI", ""),
			Scopes:       getEnv("INTEGRATION_SLACK_SCOPES", "channels:read chat:write"),
		},
		"notion": {
			ClientID:     getEnv("INTEGRATION_NOTION_CLIENT_ID", ""),
			AuthorizeURL: getEnv("INTEGRATION_NOTION_AUTHORIZE_URL", "https://api.notion.com/v1/oauth/authorize"),
			RedirectURI:  getEnv("INTEGRATION_NOTION_REDIRECT_URI", ""),
			Scopes:       getEnv("INTEGRATION_NOTION_SCOPES", ""),
		},
	}

	return IntegrationsConfig{
		Providers:           providers,
		NotionPublicEnabled: getEnvAsBool("INTEGRATION_NOTION_PUBLIC_ENABLED", false),
	}
}

// Address returns the HTTP server address
func (c *ServerConfig) Address() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// Helper functions

// getPort returns the server port from PORT or SERVER_PORT env vars (default: 8443)
func getPort() int {
	if value := os.Getenv("PORT"); value != "" {
		if p, err := strconv.Atoi(value); err == nil {
			return p
		}
	}
	if value := os.Getenv("SERVER_PORT"); value != "" {
		if p, err := strconv.Atoi(value); err == nil {
			return p
		}
	}
	return 8443
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.Atoi(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}

func getEnvAsBool(key string, defaultValue bool) bool {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.ParseBool(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := time.ParseDuration(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}
