package config

import (
	"encoding/json"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"futsim/market"
	"futsim/sim"
	"futsim/strategies"
)

// Config represents the complete service configuration
type Config struct {
	Sim      sim.Config     `json:"sim" yaml:"sim"`
	Data     DataConfig     `json:"data" yaml:"data"`
	Journal  JournalConfig  `json:"journal" yaml:"journal"`
	Snapshot SnapshotConfig `json:"snapshot" yaml:"snapshot"`
	Server   ServerConfig   `json:"server" yaml:"server"`
	LogLevel string         `json:"log_level" yaml:"log_level"`
}

// DataConfig locates the candle series the simulation runs over
type DataConfig struct {
	CandlesFile string   `json:"candles_file" yaml:"candles_file"`
	Strategies  []string `json:"strategies" yaml:"strategies"`
}

// JournalConfig contains journaling parameters
type JournalConfig struct {
	Type        string `json:"type" yaml:"type"` // "csv", "sqlite", "postgres" or "none"
	TradesFile  string `json:"trades_file,omitempty" yaml:"trades_file,omitempty"`
	EquityFile  string `json:"equity_file,omitempty" yaml:"equity_file,omitempty"`
	DBPath      string `json:"db_path,omitempty" yaml:"db_path,omitempty"`
	PostgresURL string `json:"postgres_url,omitempty" yaml:"postgres_url,omitempty"`
}

// SnapshotConfig controls batch-boundary state persistence
type SnapshotConfig struct {
	Type     string `json:"type" yaml:"type"` // "file", "redis" or "none"
	Path     string `json:"path,omitempty" yaml:"path,omitempty"` // snapshot directory for the file store
	RedisURL string `json:"redis_url,omitempty" yaml:"redis_url,omitempty"`
	Key      string `json:"key,omitempty" yaml:"key,omitempty"`
}

// ServerConfig contains the control API parameters
type ServerConfig struct {
	Addr          string `json:"addr" yaml:"addr"`
	BatchInterval string `json:"batch_interval" yaml:"batch_interval"` // e.g. "250ms"
}

// LoadFromFile loads configuration from a file (JSON or YAML based on content)
func LoadFromFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}

	cfg := &Config{}

	// Try YAML first, fall back to JSON
	err = yaml.Unmarshal(data, cfg)
	if err != nil {
		err = json.Unmarshal(data, cfg)
		if err != nil {
			return nil, fmt.Errorf("parse config (tried YAML and JSON): %w", err)
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return cfg, nil
}

// SaveToFile saves configuration to a file (JSON or YAML based on extension)
func (c *Config) SaveToFile(path string) error {
	var data []byte
	var err error

	if (len(path) > 5 && path[len(path)-5:] == ".yaml") || (len(path) > 4 && path[len(path)-4:] == ".yml") {
		data, err = yaml.Marshal(c)
	} else {
		data, err = json.MarshalIndent(c, "", "  ")
	}

	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("write config file: %w", err)
	}

	return nil
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	if c.Sim.Instrument == "" {
		return fmt.Errorf("sim.instrument is required")
	}
	if _, ok := market.Instruments[c.Sim.Instrument]; !ok {
		return fmt.Errorf("unknown instrument: %s", c.Sim.Instrument)
	}
	if c.Sim.InitialBalance <= 0 {
		return fmt.Errorf("sim.initial-balance must be positive")
	}
	if c.Sim.WarmupBars < 2 {
		return fmt.Errorf("sim.warmup-bars must be at least 2")
	}
	if c.Sim.BatchSize <= 0 {
		return fmt.Errorf("sim.batch-size must be positive")
	}
	if c.Sim.Risk.RiskPercent <= 0 || c.Sim.Risk.RiskPercent > 1 {
		return fmt.Errorf("sim.risk.risk-percent must be between 0 and 1")
	}
	if c.Data.CandlesFile == "" {
		return fmt.Errorf("data.candles_file is required")
	}
	for _, name := range c.Data.Strategies {
		if _, err := strategies.ByName(name); err != nil {
			return fmt.Errorf("unknown strategy: %s", name)
		}
	}

	switch c.Journal.Type {
	case "csv":
		if c.Journal.TradesFile == "" || c.Journal.EquityFile == "" {
			return fmt.Errorf("journal trades_file and equity_file required for CSV type")
		}
	case "sqlite":
		if c.Journal.DBPath == "" {
			return fmt.Errorf("journal db_path required for SQLite type")
		}
	case "postgres":
		if c.Journal.PostgresURL == "" {
			return fmt.Errorf("journal postgres_url required for Postgres type")
		}
	case "none", "":
	default:
		return fmt.Errorf("journal.type must be 'csv', 'sqlite', 'postgres' or 'none'")
	}

	switch c.Snapshot.Type {
	case "file":
		if c.Snapshot.Path == "" {
			return fmt.Errorf("snapshot path required for file type")
		}
	case "redis":
		if c.Snapshot.RedisURL == "" {
			return fmt.Errorf("snapshot redis_url required for redis type")
		}
	case "none", "":
	default:
		return fmt.Errorf("snapshot.type must be 'file', 'redis' or 'none'")
	}

	return nil
}

// Default returns a configuration with sensible defaults
func Default() *Config {
	return &Config{
		Sim: sim.DefaultConfig(),
		Data: DataConfig{
			CandlesFile: "./candles.csv",
			Strategies:  []string{"momentum", "meanrev"},
		},
		Journal: JournalConfig{
			Type:   "sqlite",
			DBPath: "./futsim.db",
		},
		Snapshot: SnapshotConfig{
			Type: "file",
			Path: "./futsim-state",
			Key:  "default",
		},
		Server: ServerConfig{
			Addr:          ":8080",
			BatchInterval: "250ms",
		},
		LogLevel: "info",
	}
}
