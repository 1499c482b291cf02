// Package config holds settings for the standalone honeychecker service:
// defaults, then an optional JSON file, then command-line flags.
package config

import (
	"fmt"
	"os"

	"github.com/dmitrijs2005/honeykeeper/internal/common"
)

// Config for cmd/honeychecker.
//
// Storage is one of "sqlite", "postgres" or "memory". RateLimit is the
// sustained number of /set and /verify requests per second; zero disables
// throttling.
type Config struct {
	EndpointAddrHTTP string
	Storage          string
	DatabaseDSN      string
	RateLimit        float64
	RateBurst        int
	LogLevel         string
}

func (c *Config) LoadDefaults() {
	c.EndpointAddrHTTP = ":8081"
	c.Storage = "sqlite"
	c.DatabaseDSN = "file:honeychecker.db?_pragma=busy_timeout(5000)"
	c.RateLimit = 50
	c.RateBurst = 100
	c.LogLevel = "info"
}

func (c *Config) Validate() error {
	switch c.Storage {
	case "sqlite", "postgres", "memory":
	default:
		return fmt.Errorf("%w: storage must be sqlite, postgres or memory, got %q", common.ErrInvalidArgument, c.Storage)
	}
	if c.RateLimit < 0 || c.RateBurst < 0 {
		return fmt.Errorf("%w: rate limit and burst must not be negative", common.ErrInvalidArgument)
	}
	if c.RateLimit > 0 && c.RateBurst == 0 {
		return fmt.Errorf("%w: rate burst must be positive when rate limiting is on", common.ErrInvalidArgument)
	}
	return nil
}

// LoadConfig applies defaults, the JSON file and flags from os.Args.
func LoadConfig() (*Config, error) {
	cfg := &Config{}
	cfg.LoadDefaults()
	if err := parseJson(cfg, os.Args[1:]); err != nil {
		return nil, err
	}
	if err := parseFlags(cfg, os.Args[1:]); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}
