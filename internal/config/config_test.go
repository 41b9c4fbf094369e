package config_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yourusername/cardinality-auditor/internal/config"
)

const sampleYAML = `
database:
  host: localhost
  port: 5432
  user: auditor
  password: secret
  database: appdb
  ssl_mode: disable

cdc:
  slot_name: cardinality_slot
  publication: cardinality_pub

estimator:
  epsilon: 0.1
  delta: 0.005
  seed: 42

audit:
  targets:
    - table: public.users
      column: email
    - table: orders
      column: customer_id
  scan_interval: 1h
  window: 5m
  window_events: 200000

alert:
  webhook_url: http://alerts.internal:8080/hook
  spike_factor: 2.5
  min_estimate: 1000

guardrail:
  max_threshold: 1000000
  max_targets: 32

metrics:
  addr: ":9091"
`

func TestLoad(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(sampleYAML), 0o600))

	cfg, err := config.Load(path)
	require.NoError(t, err)

	assert.Equal(t, "localhost", cfg.Database.Host)
	assert.Equal(t, 5432, cfg.Database.Port)
	assert.Equal(t, "disable", cfg.Database.SSLMode)
	assert.Equal(t, "cardinality_slot", cfg.CDC.SlotName)
	assert.Equal(t, 0.1, cfg.Estimator.Epsilon)
	assert.Equal(t, uint64(42), cfg.Estimator.Seed)

	require.Len(t, cfg.Audit.Targets, 2)
	assert.Equal(t, config.TargetConfig{Table: "public.users", Column: "email"}, cfg.Audit.Targets[0])
	assert.Equal(t, "5m", cfg.Audit.Window)
	assert.Equal(t, 200000, cfg.Audit.WindowEvents)

	assert.Equal(t, 2.5, cfg.Alert.SpikeFactor)
	assert.Equal(t, 1000000, cfg.Guardrail.MaxThreshold)
	assert.Equal(t, ":9091", cfg.Metrics.Addr)
}

func TestLoad_MissingFile(t *testing.T) {
	t.Parallel()

	_, err := config.Load(filepath.Join(t.TempDir(), "absent.yaml"))

	require.Error(t, err)
	assert.Contains(t, err.Error(), "reading config file")
}

func TestLoad_Malformed(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "bad.yaml")
	require.NoError(t, os.WriteFile(path, []byte("database: [not a map"), 0o600))

	_, err := config.Load(path)

	require.Error(t, err)
	assert.Contains(t, err.Error(), "parsing config file")
}
