package main

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"ojcli/pkg/utils/logger"
)

type ServerConfig struct {
	Addr         string        `yaml:"addr"`
	ReadTimeout  time.Duration `yaml:"readTimeout"`
	WriteTimeout time.Duration `yaml:"writeTimeout"`
	IdleTimeout  time.Duration `yaml:"idleTimeout"`
}

// LatencyConfig shapes how long a submission sits in each pre-terminal
// state, so polling fallback and timeout paths are reproducible.
type LatencyConfig struct {
	Queue      time.Duration `yaml:"queue"`
	Processing time.Duration `yaml:"processing"`
}

type Config struct {
	Server  ServerConfig  `yaml:"server"`
	Latency LatencyConfig `yaml:"latency"`

	// DuplicatePush sends every push event twice to exercise consumers'
	// idempotent merging.
	DuplicatePush bool `yaml:"duplicatePush"`

	Logger logger.Config `yaml:"logger"`
}

func loadConfig(path string) (Config, error) {
	cfg := Config{}
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			applyDefaults(&cfg)
			return cfg, nil
		}
		return cfg, fmt.Errorf("read config file failed: %w", err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parse config file failed: %w", err)
	}
	applyDefaults(&cfg)
	return cfg, nil
}

func applyDefaults(cfg *Config) {
	if cfg.Server.Addr == "" {
		cfg.Server.Addr = ":2358"
	}
	if cfg.Server.ReadTimeout == 0 {
		cfg.Server.ReadTimeout = 10 * time.Second
	}
	if cfg.Server.WriteTimeout == 0 {
		cfg.Server.WriteTimeout = 10 * time.Second
	}
	if cfg.Server.IdleTimeout == 0 {
		cfg.Server.IdleTimeout = 60 * time.Second
	}
	if cfg.Latency.Queue == 0 {
		cfg.Latency.Queue = 200 * time.Millisecond
	}
	if cfg.Latency.Processing == 0 {
		cfg.Latency.Processing = 500 * time.Millisecond
	}
	if cfg.Logger.Level == "" {
		cfg.Logger.Level = "info"
	}
	if cfg.Logger.OutputPath == "" {
		cfg.Logger.OutputPath = "stdout"
	}
	if cfg.Logger.ErrorPath == "" {
		cfg.Logger.ErrorPath = "stderr"
	}
}
