package config

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultIsValid(t *testing.T) {
	assert.NoError(t, Default().Validate())
}

func TestValidateRejectsBadConfigs(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*Config)
	}{
		{"unknown instrument", func(c *Config) { c.Sim.Instrument = "XX" }},
		{"zero balance", func(c *Config) { c.Sim.InitialBalance = 0 }},
		{"warmup too small", func(c *Config) { c.Sim.WarmupBars = 1 }},
		{"zero batch", func(c *Config) { c.Sim.BatchSize = 0 }},
		{"risk percent over 1", func(c *Config) { c.Sim.Risk.RiskPercent = 1.5 }},
		{"no candle file", func(c *Config) { c.Data.CandlesFile = "" }},
		{"unknown strategy", func(c *Config) { c.Data.Strategies = []string{"hunches"} }},
		{"csv journal missing files", func(c *Config) {
			c.Journal = JournalConfig{Type: "csv"}
		}},
		{"sqlite journal missing path", func(c *Config) {
			c.Journal = JournalConfig{Type: "sqlite"}
		}},
		{"postgres journal missing url", func(c *Config) {
			c.Journal = JournalConfig{Type: "postgres"}
		}},
		{"bad journal type", func(c *Config) {
			c.Journal = JournalConfig{Type: "carrier-pigeon"}
		}},
		{"file snapshot missing path", func(c *Config) {
			c.Snapshot = SnapshotConfig{Type: "file"}
		}},
		{"redis snapshot missing url", func(c *Config) {
			c.Snapshot = SnapshotConfig{Type: "redis"}
		}},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := Default()
			tc.mutate(cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}

func TestJournalAndSnapshotCanBeDisabled(t *testing.T) {
	cfg := Default()
	cfg.Journal = JournalConfig{Type: "none"}
	cfg.Snapshot = SnapshotConfig{}
	assert.NoError(t, cfg.Validate())
}

func TestSaveLoadRoundTripYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "futsim.yaml")

	cfg := Default()
	cfg.Sim.Instrument = "NQ"
	cfg.Sim.InitialBalance = 75000
	cfg.Server.Addr = ":9090"
	require.NoError(t, cfg.SaveToFile(path))

	loaded, err := LoadFromFile(path)
	require.NoError(t, err)
	assert.Equal(t, "NQ", loaded.Sim.Instrument)
	assert.InDelta(t, 75000, loaded.Sim.InitialBalance, 1e-9)
	assert.Equal(t, ":9090", loaded.Server.Addr)
}

func TestSaveLoadRoundTripJSON(t *testing.T) {
	path := filepath.Join(t.TempDir(), "futsim.json")

	cfg := Default()
	cfg.Sim.Seed = 42
	require.NoError(t, cfg.SaveToFile(path))

	loaded, err := LoadFromFile(path)
	require.NoError(t, err)
	assert.Equal(t, int64(42), loaded.Sim.Seed)
}

func TestLoadInvalidConfigFails(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.yaml")
	cfg := Default()
	cfg.Sim.Instrument = "NOPE"
	require.NoError(t, cfg.SaveToFile(path))

	_, err := LoadFromFile(path)
	assert.ErrorContains(t, err, "unknown instrument")
}
