package config

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/xxxsen/common/logger"
)

type Config struct {
	DBPath          string           `json:"db_path"`
	Port            int              `json:"port"`
	DefaultCategory string           `json:"default_category"`
	LogConfig       logger.LogConfig `json:"log_config"`
	Fetch           FetchConfig      `json:"fetch"`
	Analyzer        AnalyzerConfig   `json:"analyzer"`
	Dispatch        DispatchConfig   `json:"dispatch"`
	Backfill        BackfillConfig   `json:"backfill"`
	CORSOrigins     []string         `json:"cors_origins"`
	RateLimitSec    int              `json:"rate_limit_sec"`
}

type FetchConfig struct {
	TimeoutSec int    `json:"timeout_sec"`
	MaxBytes   int64  `json:"max_bytes"`
	UserAgent  string `json:"user_agent"`
}

// AnalyzerConfig selects the analysis provider by name; Args is decoded by
// the provider itself.
type AnalyzerConfig struct {
	Provider string                 `json:"provider"`
	Args     map[string]interface{} `json:"args"`
}

type DispatchConfig struct {
	Workers   int `json:"workers"`
	QueueSize int `json:"queue_size"`
}

type BackfillConfig struct {
	CronSpec  string `json:"cron_spec"`
	BatchSize uint   `json:"batch_size"`
}

func Load(path string) (*Config, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open config: %w", err)
	}
	defer file.Close()

	var cfg Config
	if err := json.NewDecoder(file).Decode(&cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	if cfg.DBPath == "" {
		return nil, fmt.Errorf("db_path is required")
	}
	if cfg.Port == 0 {
		return nil, fmt.Errorf("port is required")
	}
	if cfg.DefaultCategory == "" {
		cfg.DefaultCategory = "uncategorized"
	}
	if cfg.LogConfig.Level == "" {
		cfg.LogConfig.Level = "info"
	}
	if cfg.Analyzer.Provider == "" {
		cfg.Analyzer.Provider = "heuristic"
	}
	if cfg.Dispatch.Workers <= 0 {
		cfg.Dispatch.Workers = 2
	}
	if cfg.Dispatch.QueueSize <= 0 {
		cfg.Dispatch.QueueSize = 64
	}
	if cfg.Backfill.CronSpec == "" {
		cfg.Backfill.CronSpec = "*/10 * * * *"
	}
	if cfg.Backfill.BatchSize == 0 {
		cfg.Backfill.BatchSize = 200
	}
	return &cfg, nil
}
