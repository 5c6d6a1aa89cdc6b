package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	Environment string `envconfig:"ENVIRONMENT" default:"local"`
	LogLevel    string `envconfig:"LOG_LEVEL" default:"info"`

	DatabaseURL string `envconfig:"DATABASE_URL" required:"true"`
	DBMinConns  int32  `envconfig:"RB_DB_MIN_CONNS" default:"1"`
	DBMaxConns  int32  `envconfig:"RB_DB_MAX_CONNS" default:"8"`

	TargetLang   string `envconfig:"TRANSLATION_TARGET_LANG" default:"zh"`
	SourceLang   string `envconfig:"TRANSLATION_SOURCE_LANG" default:""`
	BatchSize    int    `envconfig:"TRANSLATION_BATCH_SIZE" default:"10"`
	BatchDelayMS int    `envconfig:"TRANSLATION_BATCH_DELAY_MS" default:"500"`
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}
	return &cfg, nil
}

func (c *Config) Validate() error {
	if strings.TrimSpace(c.DatabaseURL) == "" {
		return fmt.Errorf("DATABASE_URL is required")
	}
	if c.DBMinConns < 0 {
		return fmt.Errorf("RB_DB_MIN_CONNS must be >= 0")
	}
	if c.DBMaxConns < 1 {
		return fmt.Errorf("RB_DB_MAX_CONNS must be >= 1")
	}
	if c.DBMinConns > c.DBMaxConns {
		return fmt.Errorf("RB_DB_MIN_CONNS (%d) cannot exceed RB_DB_MAX_CONNS (%d)", c.DBMinConns, c.DBMaxConns)
	}
	if strings.TrimSpace(c.TargetLang) == "" {
		return fmt.Errorf("TRANSLATION_TARGET_LANG is required")
	}
	if c.BatchSize < 1 {
		return fmt.Errorf("TRANSLATION_BATCH_SIZE must be >= 1")
	}
	if c.BatchDelayMS < 0 {
		return fmt.Errorf("TRANSLATION_BATCH_DELAY_MS must be >= 0")
	}
	return nil
}

func (c *Config) BatchDelay() time.Duration {
	if c == nil || c.BatchDelayMS <= 0 {
		return 0
	}
	return time.Duration(c.BatchDelayMS) * time.Millisecond
}
