package config

import (
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{
		"STORAGE_DRIVER", "DATABASE_URL", "SERVER_PORT", "CORS_ALLOWED_ORIGINS",
		"JWT_SECRET_KEY", "LOG_LEVEL", "REQUEST_TIMEOUT", "BRACKET_SEED",
		"R2_ACCOUNT_ID", "R2_ACCESS_KEY_ID", "R2_SECRET_ACCESS_KEY", "R2_BUCKET_NAME", "R2_PUBLIC_BASE_URL",
	} {
		t.Setenv(key, "")
	}
}

func TestLoad_Defaults(t *testing.T) {
	clearEnv(t)
	t.Setenv("STORAGE_DRIVER", "memory")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, StorageDriverMemory, cfg.StorageDriver)
	assert.Equal(t, 8000, cfg.ServerPort)
	assert.Equal(t, []string{"http://localhost:3000"}, cfg.AllowedOrigins)
	assert.Equal(t, slog.LevelInfo, cfg.LogLevel)
	assert.Equal(t, 15*time.Second, cfg.RequestTimeout)
	assert.Nil(t, cfg.BracketSeed)
	assert.Empty(t, cfg.JWTSecretKey)
}

func TestLoad_Overrides(t *testing.T) {
	clearEnv(t)
	t.Setenv("DATABASE_URL", "postgres://localhost/tournify?sslmode=disable")
	t.Setenv("SERVER_PORT", "9090")
	t.Setenv("CORS_ALLOWED_ORIGINS", "https://a.example.com, https://b.example.com,")
	t.Setenv("LOG_LEVEL", "debug")
	t.Setenv("BRACKET_SEED", "42")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, StorageDriverPostgres, cfg.StorageDriver)
	assert.Equal(t, 9090, cfg.ServerPort)
	assert.Equal(t, []string{"https://a.example.com", "https://b.example.com"}, cfg.AllowedOrigins)
	assert.Equal(t, slog.LevelDebug, cfg.LogLevel)
	require.NotNil(t, cfg.BracketSeed)
	assert.Equal(t, uint64(42), *cfg.BracketSeed)
}

func TestLoad_Errors(t *testing.T) {
	tests := []struct {
		name string
		env  map[string]string
	}{
		{"postgres without url", map[string]string{}},
		{"unknown driver", map[string]string{"STORAGE_DRIVER": "mongo"}},
		{"bad port", map[string]string{"STORAGE_DRIVER": "memory", "SERVER_PORT": "abc"}},
		{"port out of range", map[string]string{"STORAGE_DRIVER": "memory", "SERVER_PORT": "70000"}},
		{"bad log level", map[string]string{"STORAGE_DRIVER": "memory", "LOG_LEVEL": "loud"}},
		{"bad seed", map[string]string{"STORAGE_DRIVER": "memory", "BRACKET_SEED": "-1"}},
		{"bad timeout", map[string]string{"STORAGE_DRIVER": "memory", "REQUEST_TIMEOUT": "soon"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clearEnv(t)
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			_, err := Load()
			assert.Error(t, err)
		})
	}
}
