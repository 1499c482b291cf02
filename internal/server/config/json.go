package config

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/dmitrijs2005/honeykeeper/internal/flagx"
	"github.com/dmitrijs2005/honeykeeper/internal/timex"
)

// JsonConfig is the file form of Config. Durations use timex.Duration, so
// both "1s" and integer nanoseconds parse. Pointer fields leave absent keys
// at their current value.
type JsonConfig struct {
	EndpointAddrHTTP            *string         `json:"endpoint_addr_http"`
	DatabaseDSN                 *string         `json:"database_dsn"`
	SecretKey                   *string         `json:"secret_key"`
	AccessTokenValidityDuration *timex.Duration `json:"access_token_validity_duration"`
	LogLevel                    *string         `json:"log_level"`

	AuthMode               *string         `json:"auth_mode"`
	K                      *int            `json:"k"`
	PMark                  *float64        `json:"p_mark"`
	PRemark                *float64        `json:"p_remark"`
	OnHoneyword            *string         `json:"on_honeyword"`
	LockBaseSeconds        *int            `json:"lock_base_seconds"`
	LockMaxSeconds         *int            `json:"lock_max_seconds"`
	HoneycheckerMode       *string         `json:"honeychecker_mode"`
	HoneycheckerURL        *string         `json:"honeychecker_url"`
	HoneycheckerFailClosed *bool           `json:"honeychecker_fail_closed"`
	HoneycheckerTimeout    *timex.Duration `json:"honeychecker_timeout"`
	LogRealSuccess         *bool           `json:"log_real_success"`
	AllowLegacyPasswords   *bool           `json:"allow_legacy_passwords"`
	PasswordHasher         *string         `json:"password_hasher"`
	BcryptCost             *int            `json:"bcrypt_cost"`

	S3RootUser     *string `json:"s3_root_user"`
	S3RootPassword *string `json:"s3_root_password"`
	S3Bucket       *string `json:"s3_bucket"`
	S3Region       *string `json:"s3_region"`
	S3BaseEndpoint *string `json:"s3_base_endpoint"`
}

// parseJson loads the file named by -c or -config, if any, over config.
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
		return fmt.Errorf("parse config %s: %w", path, err)
	}

	set(&config.EndpointAddrHTTP, c.EndpointAddrHTTP)
	set(&config.DatabaseDSN, c.DatabaseDSN)
	set(&config.SecretKey, c.SecretKey)
	if c.AccessTokenValidityDuration != nil {
		config.AccessTokenValidityDuration = c.AccessTokenValidityDuration.Duration
	}
	set(&config.LogLevel, c.LogLevel)

	set(&config.AuthMode, c.AuthMode)
	set(&config.K, c.K)
	set(&config.PMark, c.PMark)
	set(&config.PRemark, c.PRemark)
	set(&config.OnHoneyword, c.OnHoneyword)
	set(&config.LockBaseSeconds, c.LockBaseSeconds)
	set(&config.LockMaxSeconds, c.LockMaxSeconds)
	set(&config.HoneycheckerMode, c.HoneycheckerMode)
	set(&config.HoneycheckerURL, c.HoneycheckerURL)
	set(&config.HoneycheckerFailClosed, c.HoneycheckerFailClosed)
	if c.HoneycheckerTimeout != nil {
		config.HoneycheckerTimeout = c.HoneycheckerTimeout.Duration
	}
	set(&config.LogRealSuccess, c.LogRealSuccess)
	set(&config.AllowLegacyPasswords, c.AllowLegacyPasswords)
	set(&config.PasswordHasher, c.PasswordHasher)
	set(&config.BcryptCost, c.BcryptCost)

	set(&config.S3RootUser, c.S3RootUser)
	set(&config.S3RootPassword, c.S3RootPassword)
	set(&config.S3Bucket, c.S3Bucket)
	set(&config.S3Region, c.S3Region)
	set(&config.S3BaseEndpoint, c.S3BaseEndpoint)
	return nil
}

func set[T any](dst *T, src *T) {
	if src != nil {
		*dst = *src
	}
}
