package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Config represents the global configuration for the cardinality auditor.
type Config struct {
	Database  DatabaseConfig  `yaml:"database"`
	CDC       CDCConfig       `yaml:"cdc"`
	Estimator EstimatorConfig `yaml:"estimator"`
	Audit     AuditConfig     `yaml:"audit"`
	Alert     AlertConfig     `yaml:"alert"`
	Guardrail GuardrailConfig `yaml:"guardrail"`
	Metrics   MetricsConfig   `yaml:"metrics"`
}

type DatabaseConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	Database string `yaml:"database"`
	SSLMode  string `yaml:"ssl_mode"`
}

type CDCConfig struct {
	SlotName    string `yaml:"slot_name"`
	Publication string `yaml:"publication"`
}

// EstimatorConfig carries the accuracy parameters shared by every
// distinct-count run: relative error bound epsilon at confidence 1-delta.
// A zero seed draws a fresh entropy seed per run.
type EstimatorConfig struct {
	Epsilon float64 `yaml:"epsilon"`
	Delta   float64 `yaml:"delta"`
	Seed    uint64  `yaml:"seed"`
}

// TargetConfig names one audited column.
type TargetConfig struct {
	Table  string `yaml:"table"`
	Column string `yaml:"column"`
}

type AuditConfig struct {
	Targets      []TargetConfig `yaml:"targets"`
	ScanInterval string         `yaml:"scan_interval"`
	Window       string         `yaml:"window"`
	WindowEvents int            `yaml:"window_events"`
}

type AlertConfig struct {
	WebhookURL  string  `yaml:"webhook_url"`
	SpikeFactor float64 `yaml:"spike_factor"`
	MinEstimate int     `yaml:"min_estimate"`
}

type GuardrailConfig struct {
	MaxThreshold int `yaml:"max_threshold"`
	MaxTargets   int `yaml:"max_targets"`
}

type MetricsConfig struct {
	Addr string `yaml:"addr"`
}

// Load reads the configuration from the specified file path.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}

	return &cfg, nil
}
