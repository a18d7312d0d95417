package config

import (
	"os"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Logger struct {
		Verbosity string `yaml:"verbosity"`
	} `yaml:"logger"`
	Device struct {
		// Backend selects the compute backend: auto, cuda or sim.
		Backend string `yaml:"backend"`
	} `yaml:"device"`
	Metrics struct {
		Listen string `yaml:"listen"`
	} `yaml:"metrics"`
}

// Default returns the configuration used when no file is supplied.
func Default() *Config {
	var cfg Config
	cfg.Logger.Verbosity = "info"
	cfg.Device.Backend = "auto"
	cfg.Metrics.Listen = ":9090"
	return &cfg
}

// LoadConfig reads a YAML configuration file. Fields left unset fall back to
// the defaults.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	config := Default()
	if err := yaml.Unmarshal(data, config); err != nil {
		return nil, err
	}
	return config, nil
}
