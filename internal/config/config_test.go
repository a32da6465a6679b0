package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_DefaultValues(t *testing.T) {
	// 清除环境变量
	os.Clearenv()

	cfg := Load()
	require.NotNil(t, cfg)

	// 验证默认值
	assert.Equal(t, ":8000", cfg.HTTP.Addr)

	assert.True(t, cfg.DBEnabled)
	assert.Equal(t, "localhost", cfg.Database.Host)
	assert.Equal(t, 5432, cfg.Database.Port)
	assert.Equal(t, "postgres", cfg.Database.User)
	assert.Equal(t, "tissuewatch", cfg.Database.Database)
	assert.Equal(t, "disable", cfg.Database.SSLMode)

	assert.Equal(t, "localhost:6379", cfg.Redis.Addr)
	assert.Equal(t, 0, cfg.Redis.DB)

	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, "json", cfg.Log.Format)

	assert.Equal(t, 24*time.Hour, cfg.JWT.TTL)
	assert.Equal(t, "https://exp.host/--/api/v2/push/send", cfg.Push.Endpoint)
	assert.Equal(t, 10*time.Second, cfg.Push.Timeout)
	assert.Equal(t, 5*time.Second, cfg.Dispatch.SendTimeout)

	assert.False(t, cfg.MQTT.Enabled)
	assert.Equal(t, "tissuewatch/ingest/#", cfg.MQTT.Topic)
	assert.Equal(t, byte(1), cfg.MQTT.QoS)
}

func TestLoad_EnvironmentVariables(t *testing.T) {
	os.Clearenv()
	os.Setenv("HTTP_ADDR", ":9090")
	os.Setenv("DB_HOST", "test-host")
	os.Setenv("DB_PORT", "5433")
	os.Setenv("DB_ENABLED", "false")
	os.Setenv("REDIS_ADDR", "test-redis:6380")
	os.Setenv("LOG_LEVEL", "debug")
	os.Setenv("LOG_FORMAT", "console")
	os.Setenv("JWT_TTL", "30m")
	os.Setenv("PUSH_TIMEOUT", "3s")
	os.Setenv("MQTT_ENABLED", "true")
	defer os.Clearenv()

	cfg := Load()

	assert.Equal(t, ":9090", cfg.HTTP.Addr)
	assert.Equal(t, "test-host", cfg.Database.Host)
	assert.Equal(t, 5433, cfg.Database.Port)
	assert.False(t, cfg.DBEnabled)
	assert.Equal(t, "test-redis:6380", cfg.Redis.Addr)
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, "console", cfg.Log.Format)
	assert.Equal(t, 30*time.Minute, cfg.JWT.TTL)
	assert.Equal(t, 3*time.Second, cfg.Push.Timeout)
	assert.True(t, cfg.MQTT.Enabled)
}

func TestLoad_InvalidNumbersFallBack(t *testing.T) {
	os.Clearenv()
	os.Setenv("DB_PORT", "not-a-number")
	os.Setenv("JWT_TTL", "forever")
	defer os.Clearenv()

	cfg := Load()
	assert.Equal(t, 5432, cfg.Database.Port)
	assert.Equal(t, 24*time.Hour, cfg.JWT.TTL)
}

func TestDSN(t *testing.T) {
	cfg := &DatabaseConfig{
		Host: "db", Port: 5432, User: "u", Password: "p", Database: "tissuewatch", SSLMode: "disable",
	}
	assert.Equal(t, "host=db port=5432 user=u password=p dbname=tissuewatch sslmode=disable", cfg.DSN())
}

func TestLoadFile_Overlay(t *testing.T) {
	os.Clearenv()
	cfg := Load()

	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("http:\n  addr: \":7070\"\nlog:\n  level: warn\n"), 0o600))

	require.NoError(t, LoadFile(cfg, path))
	assert.Equal(t, ":7070", cfg.HTTP.Addr)
	assert.Equal(t, "warn", cfg.Log.Level)
	// 未覆盖的键保持环境变量值
	assert.Equal(t, "localhost:6379", cfg.Redis.Addr)
}

func TestLoadFile_MissingFile(t *testing.T) {
	cfg := Load()
	err := LoadFile(cfg, "/nonexistent/config.yaml")
	require.Error(t, err)
}
