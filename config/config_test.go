package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestLoadDefaults(t *testing.T) {
	cfg := Load()

	assert.Equal(t, "8080", cfg.AppPort)
	assert.Equal(t, 60, cfg.RateLimitPerMinute)
	assert.Equal(t, 50, cfg.MaxUploadSizeMB)
	assert.Equal(t, 500000, cfg.MaxTextLength)
	assert.Equal(t, 10, cfg.DefaultExpiryMinutes)
	assert.Equal(t, 60, cfg.SweepIntervalSeconds)
	assert.Equal(t, []string{"*"}, cfg.AllowedOrigins)
	assert.Empty(t, cfg.JWTSecret, "secrets have no baked-in default")
}

func TestLoadEnvOverrides(t *testing.T) {
	t.Setenv("APP_PORT", "9999")
	t.Setenv("JWT_SECRET", "from-env")
	t.Setenv("MAX_UPLOAD_SIZE_MB", "5")
	t.Setenv("CORS_ALLOWED_ORIGINS", "https://a.example, https://b.example")

	cfg := Load()

	assert.Equal(t, "9999", cfg.AppPort)
	assert.Equal(t, "from-env", cfg.JWTSecret)
	assert.Equal(t, 5, cfg.MaxUploadSizeMB)
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.AllowedOrigins)
}
