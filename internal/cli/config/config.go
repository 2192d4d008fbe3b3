package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"ojcli/internal/orchestrator"
	"ojcli/internal/solutioncache"
	"ojcli/pkg/utils/logger"
)

const (
	DefaultBaseURL          = "http://127.0.0.1:2358"
	DefaultWSURL            = "ws://127.0.0.1:2358/ws"
	DefaultTimeout          = 10 * time.Second
	DefaultProblemsPath     = "configs/problems.yaml"
	DefaultCachePath        = "configs/solutions.json"
	DefaultHistoryPath      = "configs/cli_history.json"
	DefaultAutosaveInterval = 3 * time.Second
)

// Config holds CLI configuration.
type Config struct {
	BaseURL          string        `yaml:"baseURL"`
	WSURL            string        `yaml:"wsURL"`
	UserID           string        `yaml:"userID"`
	Timeout          time.Duration `yaml:"timeout"`
	ProblemsPath     string        `yaml:"problemsPath"`
	CachePath        string        `yaml:"cachePath"`
	HistoryPath      string        `yaml:"historyPath"`
	AutosaveInterval time.Duration `yaml:"autosaveInterval"`

	// Redis switches the solution cache from the local file store to a
	// redis backend when set.
	Redis *solutioncache.RedisConfig `yaml:"redis"`

	Poll   orchestrator.PollConfig `yaml:"poll"`
	Logger logger.Config           `yaml:"logger"`
}

func Load(path string) (Config, error) {
	cfg := Config{}
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("read config file failed: %w", err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parse config file failed: %w", err)
	}
	applyDefaults(&cfg)
	return cfg, nil
}

// Default returns the configuration used when no config file exists.
func Default() Config {
	cfg := Config{}
	applyDefaults(&cfg)
	return cfg
}

func applyDefaults(cfg *Config) {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.WSURL == "" {
		cfg.WSURL = DefaultWSURL
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = DefaultTimeout
	}
	if cfg.ProblemsPath == "" {
		cfg.ProblemsPath = DefaultProblemsPath
	}
	if cfg.CachePath == "" {
		cfg.CachePath = DefaultCachePath
	}
	if cfg.HistoryPath == "" {
		cfg.HistoryPath = DefaultHistoryPath
	}
	if cfg.AutosaveInterval == 0 {
		cfg.AutosaveInterval = DefaultAutosaveInterval
	}
	if cfg.Logger.Level == "" {
		cfg.Logger.Level = "warn"
	}
	if cfg.Logger.OutputPath == "" {
		cfg.Logger.OutputPath = "stderr"
	}
	if cfg.Logger.ErrorPath == "" {
		cfg.Logger.ErrorPath = "stderr"
	}
}
