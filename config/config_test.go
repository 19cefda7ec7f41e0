package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestLoadConfig_Defaults(t *testing.T) {
	cfg := LoadConfig()

	require.Equal(t, 8080, cfg.ServerPort)
	require.Equal(t, "localhost", cfg.Database.Host)
	require.Equal(t, 24*time.Hour, cfg.JWT.TokenTTL)
	require.Equal(t, 60*time.Second, cfg.OTP.TTL)
	require.Equal(t, "minio", cfg.Storage.Backend)
	require.Equal(t, "none", cfg.MQ.Backend)
}

func TestLoadConfig_EnvOverrides(t *testing.T) {
	t.Setenv("SERVER_PORT", "9090")
	t.Setenv("JWT_SECRET", "env-secret")
	t.Setenv("JWT_TOKEN_TTL", "2h")
	t.Setenv("OTP_TTL", "90s")
	t.Setenv("DB_USE_SSL", "true")
	t.Setenv("STORAGE_BACKEND", "GCS")
	t.Setenv("MQ_BACKEND", "RabbitMQ")

	cfg := LoadConfig()

	require.Equal(t, 9090, cfg.ServerPort)
	require.Equal(t, "env-secret", cfg.JWT.Secret)
	require.Equal(t, 2*time.Hour, cfg.JWT.TokenTTL)
	require.Equal(t, 90*time.Second, cfg.OTP.TTL)
	require.True(t, cfg.Database.UseSSL)
	require.Equal(t, "gcs", cfg.Storage.Backend)
	require.Equal(t, "rabbitmq", cfg.MQ.Backend)
}

func TestLoadConfig_BadDurationFallsBack(t *testing.T) {
	t.Setenv("OTP_TTL", "soon")

	cfg := LoadConfig()
	require.Equal(t, 60*time.Second, cfg.OTP.TTL)
}
