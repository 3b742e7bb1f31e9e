package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadSlaDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sla.yaml")
	content := `
sla_defaults:
  New:
    green_days: 2
    red_days: 9
  Done:
    orange_days: 12
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	sla, err := LoadSlaDefaults(path)
	require.NoError(t, err)
	require.NotNil(t, sla)

	require.NotNil(t, sla.New)
	assert.Equal(t, 2, *sla.New.GreenDays)
	assert.Nil(t, sla.New.OrangeDays)
	assert.Equal(t, 9, *sla.New.RedDays)

	assert.Nil(t, sla.Manufacturing)

	require.NotNil(t, sla.Done)
	assert.Equal(t, 12, *sla.Done.OrangeDays)
	assert.Nil(t, sla.Done.GreenDays)
}

func TestLoadSlaDefaults_MissingFile(t *testing.T) {
	sla, err := LoadSlaDefaults(filepath.Join(t.TempDir(), "absent.yaml"))
	assert.NoError(t, err)
	assert.Nil(t, sla)

	sla, err = LoadSlaDefaults("")
	assert.NoError(t, err)
	assert.Nil(t, sla)
}

func TestLoadSlaDefaults_SampleFile(t *testing.T) {
	sla, err := LoadSlaDefaults("sla.yaml")
	require.NoError(t, err)
	require.NotNil(t, sla)
	assert.Equal(t, 50, *sla.Manufacturing.RedDays)
	assert.Equal(t, 3, *sla.New.OrangeDays)
}

func TestLoad_BusinessSettings(t *testing.T) {
	t.Setenv("ENFORCE_TRANSITIONS", "true")
	t.Setenv("SLA_CACHE_TTL_SECONDS", "60")
	t.Setenv("IDEMPOTENCY_TTL_HOURS", "2")
	t.Setenv("KAFKA_BROKERS", "k1:9092,k2:9092")

	cfg := Load()

	assert.True(t, cfg.Business.EnforceTransitions)
	assert.Equal(t, time.Minute, cfg.Business.SlaCacheTTL)
	assert.Equal(t, 2*time.Hour, cfg.Business.IdempotencyTTL)
	assert.Equal(t, []string{"k1:9092", "k2:9092"}, cfg.Kafka.Brokers)
}
