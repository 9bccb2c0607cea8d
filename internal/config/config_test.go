package config

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setRequired(t *testing.T) {
	t.Helper()
	t.Setenv("MB_API_PG_DSN", "host=localhost user=misbar password=misbar dbname=misbar")
	t.Setenv("MB_API_JWT_SECRET", "a-very-long-test-secret")
}

func TestLoadConfig_Defaults(t *testing.T) {
	setRequired(t)

	cfg, err := loadConfig()
	require.NoError(t, err)

	assert.Equal(t, "5001", cfg.ServerPort)
	assert.Equal(t, "api", cfg.PostgresSchema)
	assert.Equal(t, 168*time.Hour, cfg.JWTTTL)
	assert.Equal(t, "common", cfg.MicrosoftTenant)
	assert.Equal(t, 10*time.Second, cfg.OAuthTimeout)
	assert.Equal(t, 365, cfg.LoginLogRetentionDays)
	assert.False(t, cfg.CookieSecure)
	assert.False(t, cfg.RedisEnabled)
	assert.False(t, cfg.GoogleEnabled())
	assert.False(t, cfg.MicrosoftEnabled())
}

func TestLoadConfig_Overrides(t *testing.T) {
	setRequired(t)
	t.Setenv("MB_API_JWT_TTL", "24h")
	t.Setenv("MB_API_COOKIE_SECURE", "true")
	t.Setenv("MB_API_GOOGLE_CLIENT_ID", "gid")
	t.Setenv("MB_API_GOOGLE_CLIENT_SECRET", "gsecret")
	t.Setenv("MB_API_MICROSOFT_TENANT", "contoso.onmicrosoft.com")

	cfg, err := loadConfig()
	require.NoError(t, err)

	assert.Equal(t, 24*time.Hour, cfg.JWTTTL)
	assert.True(t, cfg.CookieSecure)
	assert.True(t, cfg.GoogleEnabled())
	assert.Equal(t, "contoso.onmicrosoft.com", cfg.MicrosoftTenant)
}

func TestLoadConfig_Validation(t *testing.T) {
	tests := []struct {
		name string
		env  map[string]string
	}{
		{name: "missing secret", env: map[string]string{"MB_API_JWT_SECRET": ""}},
		{name: "short secret", env: map[string]string{"MB_API_JWT_SECRET": "short"}},
		{name: "admin email without password", env: map[string]string{"MB_API_ADMIN_EMAIL": "admin@misbar.africa"}},
		{name: "bad ttl", env: map[string]string{"MB_API_JWT_TTL": "-1h"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			setRequired(t)
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			_, err := loadConfig()
			require.Error(t, err)
		})
	}
}

func TestConfig_StringMasksSecrets(t *testing.T) {
	cfg := &Config{
		JWTSecret:          "supersecretvalue",
		PostgresDsn:        "host=db password=pw",
		GoogleClientSecret: "g-secret",
		FrontendURL:        "http://localhost:3000",
	}

	out := cfg.String()
	assert.NotContains(t, out, "supersecretvalue")
	assert.NotContains(t, out, "password=pw")
	assert.Contains(t, out, "sup*******")
	assert.Contains(t, out, "FrontendURL:  http://localhost:3000")
	assert.True(t, strings.Contains(out, "Configuration:"))
}
