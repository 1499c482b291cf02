package config

import (
	"flag"
	"io"

	"github.com/dmitrijs2005/honeykeeper/internal/flagx"
)

// parseFlags overlays:
//
//	-a string   HTTP bind address
//	-s string   storage: sqlite, postgres or memory
//	-d string   database DSN
//	-r float    requests per second
//	-b int      burst size
//	-l string   log level
func parseFlags(config *Config, args []string) error {
	args = flagx.FilterArgs(args, []string{"-a", "-s", "-d", "-r", "-b", "-l"})

	fs := flag.NewFlagSet("honeychecker", flag.ContinueOnError)
	fs.SetOutput(io.Discard)

	fs.StringVar(&config.EndpointAddrHTTP, "a", config.EndpointAddrHTTP, "address and port to run server")
	fs.StringVar(&config.Storage, "s", config.Storage, "storage backend")
	fs.StringVar(&config.DatabaseDSN, "d", config.DatabaseDSN, "database DSN")
	fs.Float64Var(&config.RateLimit, "r", config.RateLimit, "requests per second, 0 disables")
	fs.IntVar(&config.RateBurst, "b", config.RateBurst, "rate limiter burst")
	fs.StringVar(&config.LogLevel, "l", config.LogLevel, "log level")

	return fs.Parse(args)
}
