package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"signal-engine/internal/engine"
	"signal-engine/internal/levels"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.json")
	require.NoError(t, os.WriteFile(path, []byte(body), 0644))
	return path
}

func TestDefaultRoundTripsEngineConfig(t *testing.T) {
	got, err := DefaultEngineConfig().ToEngineConfig()
	require.NoError(t, err)
	assert.Equal(t, engine.DefaultConfig(), got)
}

func TestLoadFileMissingUsesDefaults(t *testing.T) {
	cfg, err := LoadFile(filepath.Join(t.TempDir(), "absent.json"))
	require.NoError(t, err)
	assert.Equal(t, 8080, cfg.ServerConfig.Port)
	assert.Equal(t, 0.5, cfg.EngineConfig.MinConfidence)
	assert.Equal(t, time.Hour, cfg.RedisConfig.LevelTTL)
	assert.NoError(t, cfg.Validate())
}

func TestLoadFileKeepsDefaultsForAbsentKeys(t *testing.T) {
	path := writeConfig(t, `{"engine": {"pivot_method": "camarilla", "min_confidence": 0.6}, "server": {"port": 9000}}`)

	cfg, err := LoadFile(path)
	require.NoError(t, err)
	assert.Equal(t, 9000, cfg.ServerConfig.Port)
	assert.Equal(t, "0.0.0.0", cfg.ServerConfig.Host)

	ec, err := cfg.EngineConfig.ToEngineConfig()
	require.NoError(t, err)
	assert.Equal(t, levels.Camarilla, ec.Levels.Method)
	assert.Equal(t, 0.6, ec.Signal.MinConfidence)
	assert.True(t, ec.Confluence.StructureEnabled)
	assert.Equal(t, [3]float64{0.33, 0.33, 0.34}, ec.Risk.PositionFractions)
}

func TestLoadFileRejectsBadJSON(t *testing.T) {
	_, err := LoadFile(writeConfig(t, `{"engine": `))
	assert.Error(t, err)
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("ENGINE_PIVOT_METHOD", "woodie")
	t.Setenv("ENGINE_USE_ATR_STOP", "true")
	t.Setenv("ENGINE_WORKERS", "8")
	t.Setenv("WEB_PORT", "9100")
	t.Setenv("REDIS_LEVEL_TTL", "15m")
	t.Setenv("LOG_JSON", "false")

	cfg, err := LoadFile(writeConfig(t, `{"engine": {"pivot_method": "camarilla"}}`))
	require.NoError(t, err)

	assert.Equal(t, "woodie", cfg.EngineConfig.PivotMethod)
	assert.True(t, cfg.EngineConfig.UseATRStop)
	assert.Equal(t, 8, cfg.EngineConfig.Workers)
	assert.Equal(t, 9100, cfg.ServerConfig.Port)
	assert.Equal(t, 15*time.Minute, cfg.RedisConfig.LevelTTL)
	assert.False(t, cfg.LoggingConfig.JSONFormat)
}

func TestVaultAndNATSSections(t *testing.T) {
	cfg, err := LoadFile(filepath.Join(t.TempDir(), "absent.json"))
	require.NoError(t, err)
	assert.Equal(t, "secret", cfg.VaultConfig.MountPath)
	assert.Equal(t, "signals", cfg.NATSConfig.SubjectPrefix)
	assert.Equal(t, 2*time.Second, cfg.NATSConfig.ReconnectWait)

	t.Setenv("VAULT_ENABLED", "true")
	t.Setenv("VAULT_SECRET_PATH", "prod/signal-engine")
	t.Setenv("NATS_ENABLED", "true")
	t.Setenv("NATS_URL", "nats://broker:4222")

	cfg, err = LoadFile(writeConfig(t, `{"nats": {"subject_prefix": "eval"}}`))
	require.NoError(t, err)
	assert.True(t, cfg.VaultConfig.Enabled)
	assert.Equal(t, "prod/signal-engine", cfg.VaultConfig.SecretPath)
	assert.True(t, cfg.NATSConfig.Enabled)
	assert.Equal(t, "nats://broker:4222", cfg.NATSConfig.URL)
	assert.Equal(t, "eval", cfg.NATSConfig.SubjectPrefix)
	assert.Equal(t, 10, cfg.NATSConfig.MaxReconnect)
}

func TestToEngineConfigValidation(t *testing.T) {
	ec := DefaultEngineConfig()
	ec.PositionFractions = []float64{0.5, 0.5}
	_, err := ec.ToEngineConfig()
	assert.ErrorIs(t, err, engine.ErrInvalidConfig)

	ec = DefaultEngineConfig()
	ec.PositionFractions = []float64{0.5, 0.5, 0.5}
	_, err = ec.ToEngineConfig()
	assert.ErrorIs(t, err, engine.ErrInvalidConfig)

	ec = DefaultEngineConfig()
	ec.SourcePriority = []string{"fibonacci", "astrology"}
	_, err = ec.ToEngineConfig()
	assert.ErrorIs(t, err, engine.ErrInvalidConfig)

	ec = DefaultEngineConfig()
	ec.SourcePriority = []string{"Fibonacci", "pivot"}
	out, err := ec.ToEngineConfig()
	require.NoError(t, err)
	assert.Equal(t, []levels.Source{levels.SourceFibonacci, levels.SourcePivot}, out.Risk.SourcePriority)

	ec = DefaultEngineConfig()
	ec.PivotMethod = "fancy"
	_, err = ec.ToEngineConfig()
	assert.ErrorIs(t, err, engine.ErrInvalidConfig)
}

func TestValidateAuthSecret(t *testing.T) {
	cfg := Default()
	cfg.AuthConfig.Enabled = true
	cfg.AuthConfig.JWTSecret = "short"
	assert.Error(t, cfg.Validate())

	cfg.AuthConfig.JWTSecret = "0123456789abcdef0123456789abcdef"
	assert.NoError(t, cfg.Validate())
}

func TestGenerateSampleConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sample.json")
	require.NoError(t, GenerateSampleConfig(path))

	cfg, err := LoadFile(path)
	require.NoError(t, err)
	assert.NoError(t, cfg.Validate())
}
