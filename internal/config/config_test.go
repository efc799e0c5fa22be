package config_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agrimind/agrimind/internal/config"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("AGRIMIND_CONFIG", "")

	cfg, err := config.Load(filepath.Join(t.TempDir(), "missing.yaml"))
	require.NoError(t, err)

	assert.Equal(t, 0.5, cfg.Scoring.WProb)
	assert.Equal(t, 0.3, cfg.Scoring.WTrend)
	assert.Equal(t, 0.1, cfg.Scoring.WZ)
	assert.Equal(t, -0.1, cfg.Scoring.WRain)
	assert.Equal(t, 2500.0, cfg.Scoring.FertilizerCostPerArea)
	assert.Equal(t, 5, cfg.Scoring.DefaultTopK)
	assert.Equal(t, 7, cfg.Weather.HorizonDays)
	assert.Equal(t, 60*time.Second, cfg.LLM.Timeout)
	assert.False(t, cfg.Weather.Default.Enabled)
	assert.NotEmpty(t, cfg.Worker.Targets)
}

func TestLoad_YAMLThenEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), "agrimind.yaml")
	yamlDoc := `
scoring:
  w_rain: -0.2
  default_top_k: 3
weather:
  horizon_days: 5
  default:
    enabled: true
    temperature: 27
worker:
  targets:
    - name: Salem
      lat: 11.66
      lon: 78.15
      state: Tamil Nadu
`
	require.NoError(t, os.WriteFile(path, []byte(yamlDoc), 0o600))

	t.Setenv("SCORE_W_PROB", "0.6")
	t.Setenv("LLM_TIMEOUT", "30s")
	t.Setenv("DB_ENABLED", "true")

	cfg, err := config.Load(path)
	require.NoError(t, err)

	assert.Equal(t, -0.2, cfg.Scoring.WRain)
	assert.Equal(t, 0.6, cfg.Scoring.WProb)
	assert.Equal(t, 0.3, cfg.Scoring.WTrend, "unset keys keep defaults")
	assert.Equal(t, 3, cfg.Scoring.DefaultTopK)
	assert.Equal(t, 5, cfg.Weather.HorizonDays)
	assert.True(t, cfg.Weather.Default.Enabled)
	assert.Equal(t, 27.0, cfg.Weather.Default.Temperature)
	assert.Equal(t, 30*time.Second, cfg.LLM.Timeout)
	assert.True(t, cfg.Database.Enabled)
	require.Len(t, cfg.Worker.Targets, 1)
	assert.Equal(t, "Salem", cfg.Worker.Targets[0].Name)
}

func TestLoad_InvalidEnv(t *testing.T) {
	t.Setenv("SCORE_W_Z", "abc")

	_, err := config.Load("")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "SCORE_W_Z")
}

func TestLoad_InvalidYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.yaml")
	require.NoError(t, os.WriteFile(path, []byte("scoring: [oops"), 0o600))

	_, err := config.Load(path)
	require.Error(t, err)
}

func TestValidate(t *testing.T) {
	cfg := config.Default()
	require.NoError(t, cfg.Validate())

	cfg.Scoring.DefaultTopK = 0
	assert.Error(t, cfg.Validate())
}
