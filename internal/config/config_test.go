package config

import (
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestLoad(t *testing.T) {
	// Save current env and restore later
	origHost := os.Getenv("DB_HOST")
	defer os.Setenv("DB_HOST", origHost)

	os.Setenv("DB_HOST", "test-host")
	os.Setenv("DB_MAX_OPEN_CONNS", "20")
	os.Setenv("MINIO_USE_SSL", "true")
	os.Setenv("REDIS_ADDRESS", "redis:6380")
	os.Setenv("UPLOAD_SESSION_TTL_SEC", "120")
	os.Setenv("SMTP_PORT", "2525")
	defer func() {
		os.Unsetenv("DB_MAX_OPEN_CONNS")
		os.Unsetenv("MINIO_USE_SSL")
		os.Unsetenv("REDIS_ADDRESS")
		os.Unsetenv("UPLOAD_SESSION_TTL_SEC")
		os.Unsetenv("SMTP_PORT")
	}()

	cfg := Load()

	assert.Equal(t, "test-host", cfg.Database.Host)
	assert.Equal(t, 20, cfg.Database.MaxOpenConns)
	assert.True(t, cfg.MinIO.UseSSL)
	assert.Equal(t, "redis:6380", cfg.Redis.Address)
	assert.Equal(t, 120, cfg.Enroll.SessionTTLSec)
	assert.Equal(t, 2525, cfg.SMTP.Port)
}

func TestLoadDefaults(t *testing.T) {
	os.Unsetenv("MINIO_BUCKET")
	os.Unsetenv("JWT_TOKEN_TTL_MIN")
	os.Unsetenv("OTP_TTL_SEC")

	cfg := Load()

	assert.Equal(t, "uploads", cfg.MinIO.Bucket)
	assert.Equal(t, 720, cfg.Auth.TokenTTLMin)
	assert.Equal(t, 300, cfg.Auth.OTPTTLSec)
}

func TestGetEnv(t *testing.T) {
	key := "TEST_ENV_VAR"
	os.Setenv(key, "value")
	defer os.Unsetenv(key)

	assert.Equal(t, "value", getEnv(key, "default"))
	assert.Equal(t, "default", getEnv("NON_EXISTENT", "default"))
}

func TestGetEnvBool(t *testing.T) {
	key := "TEST_BOOL_VAR"

	os.Setenv(key, "true")
	assert.True(t, getEnvBool(key, false))

	os.Setenv(key, "false")
	assert.False(t, getEnvBool(key, true))

	os.Setenv(key, "invalid")
	assert.True(t, getEnvBool(key, true))

	os.Unsetenv(key)
	assert.True(t, getEnvBool(key, true))
}

func TestGetEnvInt(t *testing.T) {
	key := "TEST_INT_VAR"

	os.Setenv(key, "123")
	assert.Equal(t, 123, getEnvInt(key, 0))

	os.Setenv(key, "invalid")
	assert.Equal(t, 10, getEnvInt(key, 10))

	os.Unsetenv(key)
	assert.Equal(t, 7, getEnvInt(key, 7))
}
