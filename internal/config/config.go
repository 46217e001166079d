// Package config loads service configuration from the environment.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

// DatabaseConfig carries the MySQL connection and pool settings. The pool is
// the only shared mutable resource in the process; a request that cannot
// obtain a connection fails instead of queuing without bound.
type DatabaseConfig struct {
	Host            string
	User            string
	Password        string
	Name            string
	Port            int
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
}

// CoAConfig carries the RADIUS dynamic-authorization client settings.
type CoAConfig struct {
	Secret  string
	Port    int
	Timeout time.Duration
}

// Config is the full service configuration.
type Config struct {
	HTTPAddr    string
	Backend     string // "mysql" or "memory"
	BearerToken string
	Database    DatabaseConfig
	CoA         CoAConfig
}

// Load reads configuration from environment variables, applying the defaults
// used by the deployed service.
func Load() (*Config, error) {
	cfg := &Config{
		HTTPAddr:    envString("HTTP_ADDR", ":8000"),
		Backend:     envString("DB_BACKEND", "mysql"),
		BearerToken: envString("API_KEY", ""),
		Database: DatabaseConfig{
			Host:     envString("DB_HOST", "radius-db"),
			User:     envString("DB_USER", "radius"),
			Password: envString("DB_PASS", ""),
			Name:     envString("DB_NAME", "radius"),
		},
		CoA: CoAConfig{
			Secret: envString("COA_SECRET", ""),
		},
	}

	if cfg.BearerToken == "" {
		return nil, fmt.Errorf("API_KEY is required")
	}

	var err error
	if cfg.Database.Port, err = envInt("DB_PORT", 3306); err != nil {
		return nil, err
	}
	if cfg.Database.MaxOpenConns, err = envInt("DB_MAX_OPEN_CONNS", 10); err != nil {
		return nil, err
	}
	if cfg.Database.MaxIdleConns, err = envInt("DB_MAX_IDLE_CONNS", 5); err != nil {
		return nil, err
	}
	lifetime, err := envInt("DB_CONN_MAX_LIFETIME", 300)
	if err != nil {
		return nil, err
	}
	cfg.Database.ConnMaxLifetime = time.Duration(lifetime) * time.Second

	if cfg.CoA.Port, err = envInt("COA_PORT", 3799); err != nil {
		return nil, err
	}
	coaTimeout, err := envInt("COA_TIMEOUT", 30)
	if err != nil {
		return nil, err
	}
	cfg.CoA.Timeout = time.Duration(coaTimeout) * time.Second

	switch cfg.Backend {
	case "mysql", "memory":
	default:
		return nil, fmt.Errorf("DB_BACKEND must be mysql or memory, got %q", cfg.Backend)
	}

	return cfg, nil
}

func envString(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) (int, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("%s must be an integer, got %q", key, v)
	}
	return n, nil
}
