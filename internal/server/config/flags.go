package config

import (
	"flag"
	"fmt"
	"time"

	"github.com/dmitrijs2005/storeauth/internal/flagx"
)

// parseFlags populates Config fields from command-line flags.
//
// Supported flags (short forms):
//
//	-a string   gRPC bind address
//	-h string   HTTP bind address
//	-b string   storage backend: postgres, redis or memory
//	-d string   PostgreSQL DSN
//	-k string   Redis address
//	-s string   token signing secret
//	-t int      access token TTL, minutes
//	-r int      refresh token TTL, hours
//	-w int      access renew threshold, minutes
//	-o int      refresh rotation threshold, hours
//	-l string   log level
func parseFlags(cfg *Config, args []string) error {
	args = flagx.FilterArgs(args, []string{"-a", "-h", "-b", "-d", "-k", "-s", "-t", "-r", "-w", "-o", "-l"})

	fs := flag.NewFlagSet("server", flag.ContinueOnError)

	fs.StringVar(&cfg.EndpointAddrGRPC, "a", cfg.EndpointAddrGRPC, "gRPC address and port")
	fs.StringVar(&cfg.EndpointAddrHTTP, "h", cfg.EndpointAddrHTTP, "HTTP address and port")
	fs.StringVar(&cfg.StorageBackend, "b", cfg.StorageBackend, "storage backend (postgres, redis, memory)")
	fs.StringVar(&cfg.DatabaseDSN, "d", cfg.DatabaseDSN, "database DSN")
	fs.StringVar(&cfg.RedisAddr, "k", cfg.RedisAddr, "redis address")
	fs.StringVar(&cfg.SecretKey, "s", cfg.SecretKey, "secret key")
	fs.StringVar(&cfg.LogLevel, "l", cfg.LogLevel, "log level")

	accessTTL := fs.Int("t", int(cfg.AccessTokenTTL/time.Minute), "access token ttl (in minutes)")
	refreshTTL := fs.Int("r", int(cfg.RefreshTokenTTL/time.Hour), "refresh token ttl (in hours)")
	renew := fs.Int("w", int(cfg.AccessRenewThreshold/time.Minute), "access token renew threshold (in minutes)")
	rotate := fs.Int("o", int(cfg.RefreshRotationThreshold/time.Hour), "refresh token rotation threshold (in hours)")

	if err := fs.Parse(args); err != nil {
		return fmt.Errorf("parse flags: %w", err)
	}

	// Only override durations that were given explicitly, so sub-unit values
	// from defaults or JSON survive.
	fs.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "t":
			cfg.AccessTokenTTL = time.Duration(*accessTTL) * time.Minute
		case "r":
			cfg.RefreshTokenTTL = time.Duration(*refreshTTL) * time.Hour
		case "w":
			cfg.AccessRenewThreshold = time.Duration(*renew) * time.Minute
		case "o":
			cfg.RefreshRotationThreshold = time.Duration(*rotate) * time.Hour
		}
	})
	return nil
}
