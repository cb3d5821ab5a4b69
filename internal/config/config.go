// Package config loads listkeep settings from the environment, with an
// optional .env file.
package config

import (
	"errors"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

const devSecret = "listkeep-development-secret"

// Config holds the server configuration.
type Config struct {
	Env       string
	Port      string
	DBPath    string
	LogLevel  string
	LogFormat string
	BaseURL   string
	Secret    string

	SessionTTL time.Duration

	// OAuth
	OAuthProvider     string
	OAuthClientID     string
	OAuthClientSecret string
	OAuthAuthURL      string
	OAuthTokenURL     string
	OAuthUserInfoURL  string
	OAuthScopes       string

	// Optional brokers; empty disables them.
	RedisURL    string
	RabbitMQURL string

	// Rate limit on /auth endpoints, per client IP.
	AuthRateLimit  int
	AuthRateWindow time.Duration

	// Encrypted database backups to S3-compatible storage; an empty bucket
	// disables them.
	BackupS3Endpoint  string
	BackupS3Bucket    string
	BackupS3Region    string
	BackupS3AccessKey string
	BackupS3SecretKey string
	BackupPassphrase  string
	BackupRetention   time.Duration
	BackupSchedule    string
}

// Load reads the server configuration.
func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{
		Env:       getEnv("LISTKEEP_ENV", "development"),
		Port:      getEnv("LISTKEEP_PORT", "8080"),
		DBPath:    getEnv("LISTKEEP_DB_PATH", "listkeep.db"),
		LogLevel:  getEnv("LISTKEEP_LOG_LEVEL", "info"),
		LogFormat: getEnv("LISTKEEP_LOG_FORMAT", "text"),
		BaseURL:   getEnv("LISTKEEP_BASE_URL", "http://localhost:8080"),
		Secret:    getEnv("LISTKEEP_SECRET", ""),

		SessionTTL: getDurationEnv("LISTKEEP_SESSION_TTL", 720*time.Hour),

		OAuthProvider:     getEnv("LISTKEEP_OAUTH_PROVIDER", "google"),
		OAuthClientID:     getEnv("LISTKEEP_OAUTH_CLIENT_ID", ""),
		OAuthClientSecret: getEnv("LISTKEEP_OAUTH_CLIENT_SECRET", ""),
		OAuthAuthURL:      getEnv("LISTKEEP_OAUTH_AUTH_URL", "https://accounts.google.com/o/oauth2/auth"),
		OAuthTokenURL:     getEnv("LISTKEEP_OAUTH_TOKEN_URL", "https://oauth2.googleapis.com/token"),
		OAuthUserInfoURL:  getEnv("LISTKEEP_OAUTH_USERINFO_URL", "https://openidconnect.googleapis.com/v1/userinfo"),
		OAuthScopes:       getEnv("LISTKEEP_OAUTH_SCOPES", "openid,profile"),

		RedisURL:    getEnv("LISTKEEP_REDIS_URL", ""),
		RabbitMQURL: getEnv("LISTKEEP_RABBITMQ_URL", ""),

		AuthRateLimit:  getIntEnv("LISTKEEP_AUTH_RATE_LIMIT", 20),
		AuthRateWindow: getDurationEnv("LISTKEEP_AUTH_RATE_WINDOW", time.Minute),

		BackupS3Endpoint:  getEnv("LISTKEEP_BACKUP_S3_ENDPOINT", ""),
		BackupS3Bucket:    getEnv("LISTKEEP_BACKUP_S3_BUCKET", ""),
		BackupS3Region:    getEnv("LISTKEEP_BACKUP_S3_REGION", "us-east-1"),
		BackupS3AccessKey: getEnv("LISTKEEP_BACKUP_S3_ACCESS_KEY", ""),
		BackupS3SecretKey: getEnv("LISTKEEP_BACKUP_S3_SECRET_KEY", ""),
		BackupPassphrase:  getEnv("LISTKEEP_BACKUP_PASSPHRASE", ""),
		BackupRetention:   getDurationEnv("LISTKEEP_BACKUP_RETENTION", 720*time.Hour),
		BackupSchedule:    getEnv("LISTKEEP_BACKUP_SCHEDULE", "0 0 3 * * *"),
	}

	if cfg.Secret == "" {
		if cfg.IsProduction() {
			return nil, errors.New("LISTKEEP_SECRET is required in production")
		}
		cfg.Secret = devSecret
	}
	if cfg.SessionTTL <= 0 {
		return nil, errors.New("LISTKEEP_SESSION_TTL must be positive")
	}
	return cfg, nil
}

func (c *Config) IsProduction() bool {
	return c.Env == "production"
}

// UsesDevSecret reports whether no secret was configured.
func (c *Config) UsesDevSecret() bool {
	return c.Secret == devSecret
}

// RedirectURL is the OAuth callback registered with the provider.
func (c *Config) RedirectURL() string {
	return c.BaseURL + "/auth/callback"
}

// ClientConfig holds the settings of the lk command line client.
type ClientConfig struct {
	ServerURL       string
	CredentialsPath string
	LogLevel        string
}

// LoadClient reads the client configuration.
func LoadClient() *ClientConfig {
	_ = godotenv.Load()

	return &ClientConfig{
		ServerURL:       getEnv("LK_SERVER_URL", "http://localhost:8080"),
		CredentialsPath: getEnv("LK_CREDENTIALS", defaultCredentialsPath()),
		LogLevel:        getEnv("LK_LOG_LEVEL", "warn"),
	}
}

func defaultCredentialsPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(".listkeep", "credentials.json")
	}
	return filepath.Join(home, ".listkeep", "credentials.json")
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getIntEnv(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if i, err := strconv.Atoi(value); err == nil {
			return i
		}
	}
	return defaultValue
}

func getDurationEnv(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}
