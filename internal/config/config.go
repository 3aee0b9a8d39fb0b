package config

import (
	"encoding/base64"
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

type Config struct {
	Environment         string
	EncryptionKeyBase64 string
	Port                string
	Timezone            string

	DBHost     string
	DBPort     string
	DBUsername string
	DBPassword string
	DBName     string
	DBSSLMode  string

	// OAuth provider settings for the authorization-code + PKCE flow.
	OAuthProviderID   string
	OAuthClientID     string
	OAuthClientSecret string
	OAuthAuthURL      string
	OAuthTokenURL     string
	OAuthRedirectURL  string
	OAuthScopes       []string

	// Mail provider endpoints.
	IMAPServerHostname string
	SMTPServerHostname string

	// Optional static credentials used when OAuth is unavailable (e.g. development).
	FallbackUsername string
	FallbackPassword string
}

func NewConfig() (*Config, error) {
	env := os.Getenv("MAILWARD_ENV")
	if env == "" {
		env = "development"
	}

	if env == "development" {
		if err := godotenv.Load(); err != nil {
			fmt.Println("Warning: .env file not found, using environment variables")
		}
	}

	config := &Config{
		Environment:         env,
		EncryptionKeyBase64: os.Getenv("MAILWARD_ENCRYPTION_KEY_BASE64"),
		Port:                getEnvOrDefault("PORT", "8080"),
		Timezone:            getEnvOrDefault("TZ", "UTC"),
		DBHost:              getEnvOrDefault("MAILWARD_DB_HOST", "localhost"),
		DBPort:              getEnvOrDefault("MAILWARD_DB_PORT", "5432"),
		DBUsername:          getEnvOrDefault("MAILWARD_DB_USER", "mailward"),
		DBPassword:          os.Getenv("MAILWARD_DB_PASSWORD"),
		DBName:              getEnvOrDefault("MAILWARD_DB_NAME", "mailward"),
		DBSSLMode:           getEnvOrDefault("MAILWARD_DB_SSLMODE", "disable"),
		OAuthProviderID:     getEnvOrDefault("MAILWARD_OAUTH_PROVIDER_ID", "default"),
		OAuthClientID:       os.Getenv("MAILWARD_OAUTH_CLIENT_ID"),
		OAuthClientSecret:   os.Getenv("MAILWARD_OAUTH_CLIENT_SECRET"),
		OAuthAuthURL:        os.Getenv("MAILWARD_OAUTH_AUTH_URL"),
		OAuthTokenURL:       os.Getenv("MAILWARD_OAUTH_TOKEN_URL"),
		OAuthRedirectURL:    os.Getenv("MAILWARD_OAUTH_REDIRECT_URL"),
		OAuthScopes:         splitScopes(os.Getenv("MAILWARD_OAUTH_SCOPES")),
		IMAPServerHostname:  os.Getenv("MAILWARD_IMAP_HOSTNAME"),
		SMTPServerHostname:  os.Getenv("MAILWARD_SMTP_HOSTNAME"),
		FallbackUsername:    os.Getenv("MAILWARD_FALLBACK_USERNAME"),
		FallbackPassword:    os.Getenv("MAILWARD_FALLBACK_PASSWORD"),
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}

	return config, nil
}

func (c *Config) Validate() error {
	if c.EncryptionKeyBase64 == "" {
		return fmt.Errorf("MAILWARD_ENCRYPTION_KEY_BASE64 is required")
	}

	key, err := base64.StdEncoding.DecodeString(c.EncryptionKeyBase64)
	if err != nil {
		return fmt.Errorf("MAILWARD_ENCRYPTION_KEY_BASE64 is not valid base64: %w", err)
	}
	if len(key) != 32 {
		return fmt.Errorf("MAILWARD_ENCRYPTION_KEY_BASE64 must decode to 32 bytes, got %d", len(key))
	}

	if c.DBPassword == "" {
		return fmt.Errorf("MAILWARD_DB_PASSWORD is required")
	}

	if !isValidPort(c.DBPort) {
		return fmt.Errorf("MAILWARD_DB_PORT is not a valid port number: %s", c.DBPort)
	}
	if !isValidPort(c.Port) {
		return fmt.Errorf("PORT is not a valid port number: %s", c.Port)
	}

	// OAuth settings are optional only when a static fallback credential is
	// configured, so development environments can run without a provider app.
	if !c.HasOAuth() && !c.HasFallbackCredentials() {
		return fmt.Errorf("either MAILWARD_OAUTH_CLIENT_ID/SECRET/AUTH_URL/TOKEN_URL or MAILWARD_FALLBACK_USERNAME/PASSWORD must be configured")
	}

	return nil
}

// HasOAuth reports whether a complete OAuth provider configuration is present.
func (c *Config) HasOAuth() bool {
	return c.OAuthClientID != "" && c.OAuthClientSecret != "" && c.OAuthAuthURL != "" && c.OAuthTokenURL != ""
}

// HasFallbackCredentials reports whether static provider credentials are configured.
func (c *Config) HasFallbackCredentials() bool {
	return c.FallbackUsername != "" && c.FallbackPassword != ""
}

func (c *Config) GetDatabaseURL() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%s/%s?sslmode=%s",
		url.QueryEscape(c.DBUsername),
		url.QueryEscape(c.DBPassword),
		c.DBHost,
		c.DBPort,
		c.DBName,
		c.DBSSLMode,
	)
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func splitScopes(s string) []string {
	if strings.TrimSpace(s) == "" {
		return nil
	}
	return strings.Fields(s)
}

func isValidPort(s string) bool {
	port, err := strconv.Atoi(s)
	if err != nil {
		return false
	}
	return port >= 1 && port <= 65535
}
