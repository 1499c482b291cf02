package config

import (
	"flag"
	"io"
	"time"

	"github.com/dmitrijs2005/honeykeeper/internal/flagx"
)

var knownFlags = []string{
	"-a", "-d", "-s", "-t", "-l", "-m", "-k", "-o", "-hc", "-hc-mode", "-fail-open",
	"-u", "-p", "-b", "-g", "-e",
}

// parseFlags populates selected Config fields from command-line flags.
//
//	-a string    HTTP bind address (e.g., ":8080")
//	-d string    PostgreSQL DSN or "memory"
//	-s string    JWT HMAC secret key
//	-t int       access token validity, minutes
//	-l string    log level
//	-m string    auth mode: amnesia or honeychecker
//	-k int       honeyword set size
//	-o string    on_honeyword action: log, reset or lock
//	-hc string   remote honeychecker URL
//	-hc-mode     honeychecker mode: local or remote
//	-fail-open   accept logins when the honeychecker is unavailable
//	-u -p -b -g -e  S3 user, password, bucket, region, endpoint
//
// Only the listed flags are looked at, so the same command line can carry
// flags meant for other components.
func parseFlags(config *Config, args []string) error {
	args = flagx.FilterArgs(args, knownFlags)

	fs := flag.NewFlagSet("main", flag.ContinueOnError)
	fs.SetOutput(io.Discard)

	fs.StringVar(&config.EndpointAddrHTTP, "a", config.EndpointAddrHTTP, "address and port to run server")
	fs.StringVar(&config.DatabaseDSN, "d", config.DatabaseDSN, "database DSN")
	fs.StringVar(&config.SecretKey, "s", config.SecretKey, "secret key")
	accessTokenValidity := fs.Int("t", int(config.AccessTokenValidityDuration.Minutes()), "access_token_validity_duration (in minutes)")
	fs.StringVar(&config.LogLevel, "l", config.LogLevel, "log level")

	fs.StringVar(&config.AuthMode, "m", config.AuthMode, "auth mode")
	fs.IntVar(&config.K, "k", config.K, "honeyword set size")
	fs.StringVar(&config.OnHoneyword, "o", config.OnHoneyword, "action on honeyword")
	fs.StringVar(&config.HoneycheckerURL, "hc", config.HoneycheckerURL, "honeychecker URL")
	fs.StringVar(&config.HoneycheckerMode, "hc-mode", config.HoneycheckerMode, "honeychecker mode")
	failOpen := fs.Bool("fail-open", !config.HoneycheckerFailClosed, "accept logins when the honeychecker fails (not recommended)")

	fs.StringVar(&config.S3RootUser, "u", config.S3RootUser, "S3 root user")
	fs.StringVar(&config.S3RootPassword, "p", config.S3RootPassword, "S3 root password")
	fs.StringVar(&config.S3Bucket, "b", config.S3Bucket, "S3 bucket")
	fs.StringVar(&config.S3Region, "g", config.S3Region, "S3 region")
	fs.StringVar(&config.S3BaseEndpoint, "e", config.S3BaseEndpoint, "S3 base endpoint")

	if err := fs.Parse(args); err != nil {
		return err
	}

	config.AccessTokenValidityDuration = time.Duration(*accessTokenValidity) * time.Minute
	config.HoneycheckerFailClosed = !*failOpen
	return nil
}
