package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestLoadConfigDefaults(t *testing.T) {
	t.Setenv("ENV", "test")
	t.Setenv("JWT_SECRET", "  secret  ")

	cfg := LoadConfig()

	assert.Equal(t, 8080, cfg.ServerPort)
	assert.Equal(t, "localhost", cfg.Database.Host)
	assert.Equal(t, 5432, cfg.Database.Port)
	assert.False(t, cfg.Database.UseSSL)
	assert.Equal(t, 5*time.Second, cfg.Database.ConnectTimeout)
	assert.Equal(t, "secret", cfg.Auth.JWTSecret)
	assert.Equal(t, 24*time.Hour, cfg.Auth.TokenTTL)
	assert.Equal(t, "none", cfg.MQ.Backend)
	assert.Equal(t, "bookx.activity", cfg.MQ.ActivityChannel)
	assert.Equal(t, "none", cfg.Storage.Backend)
}

func TestLoadConfigOverrides(t *testing.T) {
	t.Setenv("SERVER_PORT", "9090")
	t.Setenv("DB_USE_SSL", "true")
	t.Setenv("DB_CONNECT_TIMEOUT", "30s")
	t.Setenv("JWT_TTL", "90m")
	t.Setenv("MQ_BACKEND", "RabbitMQ")
	t.Setenv("RABBITMQ_DURABLE", "no")
	t.Setenv("STORAGE_BACKEND", "minio")

	cfg := LoadConfig()

	assert.Equal(t, 9090, cfg.ServerPort)
	assert.True(t, cfg.Database.UseSSL)
	assert.Equal(t, 30*time.Second, cfg.Database.ConnectTimeout)
	assert.Equal(t, 90*time.Minute, cfg.Auth.TokenTTL)
	assert.Equal(t, "rabbitmq", cfg.MQ.Backend)
	assert.False(t, cfg.MQ.RabbitMQ.QueueDurable)
	assert.Equal(t, "minio", cfg.Storage.Backend)
}

func TestGetEnvDurationRejectsGarbage(t *testing.T) {
	t.Setenv("JWT_TTL", "soon")
	assert.Equal(t, time.Hour, getEnvDuration("JWT_TTL", time.Hour))

	t.Setenv("JWT_TTL", "-5m")
	assert.Equal(t, time.Hour, getEnvDuration("JWT_TTL", time.Hour))
}
