package config

import (
	"fmt"
	"os"

	"github.com/kelseyhightower/envconfig"
	yaml "gopkg.in/yaml.v2"
)

func readFile(cfg *Configuration) error {
	f, err := os.Open("config.yml")
	if err != nil {
		return err
	}
	defer f.Close()

	return yaml.NewDecoder(f).Decode(cfg)
}

func readEnv(cfg *Configuration) error {
	return envconfig.Process("", cfg)
}

// Load reads config.yml and overlays environment variables.
// A load error is fatal for the service, the caller exits.
func Load() (Configuration, error) {
	var cfg Configuration
	if err := readFile(&cfg); err != nil {
		return cfg, fmt.Errorf("reading config file: %w", err)
	}
	if err := readEnv(&cfg); err != nil {
		return cfg, fmt.Errorf("reading config env: %w", err)
	}

	if cfg.Bridge.MonitorIntervalSec <= 0 {
		cfg.Bridge.MonitorIntervalSec = 10
	}
	if cfg.Bridge.StatsIntervalSec <= 0 {
		cfg.Bridge.StatsIntervalSec = 60
	}

	return cfg, nil
}
