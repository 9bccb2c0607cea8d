// Package config loads configuration from environment variables.
package config

import (
	"fmt"
	"reflect"
	"strings"
	"sync"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/nsvirk/misbarapi/pkg/utils/zaplogger"
)

// Config represents the application configuration
type Config struct {
	APIName               string        `env:"MB_API_APP_NAME" envDefault:"Misbar API"`
	APIVersion            string        `env:"MB_API_APP_VERSION" envDefault:"v1"`
	ServerPort            string        `env:"MB_API_SERVER_PORT" envDefault:"5001"`
	ServerLogLevel        string        `env:"MB_API_SERVER_LOG_LEVEL" envDefault:"info"`
	ServerLogToDb         bool          `env:"MB_API_SERVER_LOG_TO_DB" envDefault:"false"`
	PostgresDsn           string        `env:"MB_API_PG_DSN,required"`
	PostgresSchema        string        `env:"MB_API_PG_SCHEMA" envDefault:"api"`
	PostgresLogLevel      string        `env:"MB_API_PG_LOG_LEVEL" envDefault:"warn"`
	RedisEnabled          bool          `env:"MB_API_REDIS_ENABLED" envDefault:"false"`
	RedisHost             string        `env:"MB_API_REDIS_HOST" envDefault:"localhost"`
	RedisPort             string        `env:"MB_API_REDIS_PORT" envDefault:"6379"`
	RedisPassword         string        `env:"MB_API_REDIS_PASSWORD"`
	JWTSecret             string        `env:"MB_API_JWT_SECRET,required"`
	JWTTTL                time.Duration `env:"MB_API_JWT_TTL" envDefault:"168h"`
	CookieSecure          bool          `env:"MB_API_COOKIE_SECURE" envDefault:"false"`
	FrontendURL           string        `env:"MB_API_FRONTEND_URL" envDefault:"http://localhost:3000"`
	BackendURL            string        `env:"MB_API_BACKEND_URL" envDefault:"http://localhost:5001"`
	GoogleClientID        string        `env:"MB_API_GOOGLE_CLIENT_ID"`
	GoogleClientSecret    string        `env:"MB_API_GOOGLE_CLIENT_SECRET"`
	MicrosoftClientID     string        `env:"MB_API_MICROSOFT_CLIENT_ID"`
	MicrosoftClientSecret string        `env:"MB_API_MICROSOFT_CLIENT_SECRET"`
	MicrosoftTenant       string        `env:"MB_API_MICROSOFT_TENANT" envDefault:"common"`
	OAuthTimeout          time.Duration `env:"MB_API_OAUTH_TIMEOUT" envDefault:"10s"`
	AdminEmail            string        `env:"MB_API_ADMIN_EMAIL"`
	AdminPassword         string        `env:"MB_API_ADMIN_PASSWORD"`
	LoginLogRetentionDays int           `env:"MB_API_LOGIN_LOG_RETENTION_DAYS" envDefault:"365"`
	LoginLogPruneSchedule string        `env:"MB_API_LOGIN_LOG_PRUNE_SCHEDULE" envDefault:"30 3 * * *"`
}

var (
	SingleLine string = "--------------------------------------------------"
)

var (
	instance *Config
	once     sync.Once
	err      error
)

// Get returns the application configuration
func Get() (*Config, error) {
	zaplogger.Info(SingleLine)
	zaplogger.Info("Loading Configuration")

	once.Do(func() {
		instance, err = loadConfig()
	})
	return instance, err
}

// loadConfig loads configuration from environment variables
func loadConfig() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	if len(c.JWTSecret) < 16 {
		return fmt.Errorf("MB_API_JWT_SECRET must be at least 16 characters")
	}
	if c.JWTTTL <= 0 {
		return fmt.Errorf("MB_API_JWT_TTL must be positive")
	}
	if (c.AdminEmail == "") != (c.AdminPassword == "") {
		return fmt.Errorf("MB_API_ADMIN_EMAIL and MB_API_ADMIN_PASSWORD must be set together")
	}
	return nil
}

// GoogleEnabled reports whether Google sign-in is configured
func (c *Config) GoogleEnabled() bool {
	return c.GoogleClientID != "" && c.GoogleClientSecret != ""
}

// MicrosoftEnabled reports whether Microsoft sign-in is configured
func (c *Config) MicrosoftEnabled() bool {
	return c.MicrosoftClientID != "" && c.MicrosoftClientSecret != ""
}

// String returns the configuration as a string
func (c *Config) String() string {
	var sb strings.Builder
	sb.WriteString("\n--------------------------------------\n")
	sb.WriteString("Configuration:\n")
	sb.WriteString("--------------------------------------\n")

	t := reflect.TypeOf(*c)
	v := reflect.ValueOf(*c)

	for i := 0; i < t.NumField(); i++ {
		field := t.Field(i)
		value := fmt.Sprint(v.Field(i).Interface())

		value = maskSensitiveField(field.Name, value)
		sb.WriteString(fmt.Sprintf("  %s:  %s\n", field.Name, value))
	}

	sb.WriteString("--------------------------------------\n")

	return sb.String()
}

func maskSensitiveField(fieldName, value string) string {
	sensitiveFields := []string{"token", "dsn", "secret", "password"}

	fieldNameLower := strings.ToLower(fieldName)
	for _, sensitive := range sensitiveFields {
		if strings.Contains(fieldNameLower, sensitive) {
			return maskValue(value)
		}
	}

	return value
}

func maskValue(value string) string {
	if value == "" {
		return ""
	}
	if len(value) <= 3 {
		return strings.Repeat("*", 7)
	}
	return value[:3] + strings.Repeat("*", 7)
}
