package config

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/dmitrijs2005/honeykeeper/internal/flagx"
)

// JsonConfig mirrors Config for file input. Absent keys keep their current
// value.
type JsonConfig struct {
	EndpointAddrHTTP *string  `json:"endpoint_addr_http"`
	Storage          *string  `json:"storage"`
	DatabaseDSN      *string  `json:"database_dsn"`
	RateLimit        *float64 `json:"rate_limit"`
	RateBurst        *int     `json:"rate_burst"`
	LogLevel         *string  `json:"log_level"`
}

func parseJson(config *Config, args []string) error {
	path := flagx.ConfigFile(args)
	if path == "" {
		return nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config: %w", err)
	}

	c := &JsonConfig{}
	if err := json.Unmarshal(data, c); err != nil {
		return fmt.Errorf("parse config: %w", err)
	}

	set(&config.EndpointAddrHTTP, c.EndpointAddrHTTP)
	set(&config.Storage, c.Storage)
	set(&config.DatabaseDSN, c.DatabaseDSN)
	set(&config.RateLimit, c.RateLimit)
	set(&config.RateBurst, c.RateBurst)
	set(&config.LogLevel, c.LogLevel)
	return nil
}

func set[T any](dst *T, src *T) {
	if src != nil {
		*dst = *src
	}
}
