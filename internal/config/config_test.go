package config

import (
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://localhost:5432/readbridge")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}

	if cfg.Environment != "local" || cfg.LogLevel != "info" {
		t.Fatalf("unexpected ambient defaults: %+v", cfg)
	}
	if cfg.TargetLang != "zh" || cfg.SourceLang != "" {
		t.Fatalf("unexpected language defaults: %+v", cfg)
	}
	if cfg.BatchSize != 10 || cfg.BatchDelayMS != 500 {
		t.Fatalf("unexpected batch defaults: %+v", cfg)
	}
	if cfg.BatchDelay() != 500*time.Millisecond {
		t.Fatalf("unexpected batch delay: %v", cfg.BatchDelay())
	}
}

func TestLoadMissingDatabaseURL(t *testing.T) {
	t.Setenv("DATABASE_URL", "")

	if _, err := Load(); err == nil {
		t.Fatal("expected error without DATABASE_URL")
	}
}

func TestValidate(t *testing.T) {
	base := func() *Config {
		return &Config{
			DatabaseURL:  "postgres://localhost:5432/readbridge",
			DBMinConns:   1,
			DBMaxConns:   8,
			TargetLang:   "zh",
			BatchSize:    10,
			BatchDelayMS: 500,
		}
	}

	if err := base().Validate(); err != nil {
		t.Fatalf("valid config rejected: %v", err)
	}

	cfg := base()
	cfg.DBMinConns = 9
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected error when min conns exceed max conns")
	}

	cfg = base()
	cfg.TargetLang = "  "
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected error for blank target language")
	}

	cfg = base()
	cfg.BatchSize = 0
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected error for zero batch size")
	}

	cfg = base()
	cfg.BatchDelayMS = -1
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected error for negative batch delay")
	}
}
