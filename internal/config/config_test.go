package config

import (
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("API_KEY", "topsecret")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.HTTPAddr != ":8000" {
		t.Errorf("HTTPAddr = %q, want :8000", cfg.HTTPAddr)
	}
	if cfg.Backend != "mysql" {
		t.Errorf("Backend = %q, want mysql", cfg.Backend)
	}
	if cfg.Database.Host != "radius-db" || cfg.Database.Port != 3306 {
		t.Errorf("Database = %+v", cfg.Database)
	}
	if cfg.Database.MaxOpenConns != 10 {
		t.Errorf("MaxOpenConns = %d, want 10", cfg.Database.MaxOpenConns)
	}
	if cfg.CoA.Port != 3799 || cfg.CoA.Timeout != 30*time.Second {
		t.Errorf("CoA = %+v", cfg.CoA)
	}
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("API_KEY", "topsecret")
	t.Setenv("DB_BACKEND", "memory")
	t.Setenv("HTTP_ADDR", ":9000")
	t.Setenv("DB_CONN_MAX_LIFETIME", "60")
	t.Setenv("COA_TIMEOUT", "5")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Backend != "memory" || cfg.HTTPAddr != ":9000" {
		t.Errorf("cfg = %+v", cfg)
	}
	if cfg.Database.ConnMaxLifetime != time.Minute {
		t.Errorf("ConnMaxLifetime = %v, want 1m", cfg.Database.ConnMaxLifetime)
	}
	if cfg.CoA.Timeout != 5*time.Second {
		t.Errorf("CoA.Timeout = %v, want 5s", cfg.CoA.Timeout)
	}
}

func TestLoadMissingAPIKey(t *testing.T) {
	t.Setenv("API_KEY", "")

	if _, err := Load(); err == nil {
		t.Fatal("Load() error = nil, want missing API_KEY error")
	}
}

func TestLoadBadValues(t *testing.T) {
	t.Setenv("API_KEY", "topsecret")

	t.Setenv("DB_PORT", "not-a-port")
	if _, err := Load(); err == nil {
		t.Fatal("Load() error = nil, want DB_PORT error")
	}
	t.Setenv("DB_PORT", "3306")

	t.Setenv("DB_BACKEND", "postgres")
	if _, err := Load(); err == nil {
		t.Fatal("Load() error = nil, want backend error")
	}
}
