package config

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/dmitrijs2005/storeauth/internal/flagx"
	"github.com/dmitrijs2005/storeauth/internal/timex"
)

// jsonConfig mirrors Config for JSON files. Pointer fields distinguish
// "absent" from "zero", so a file only overrides what it mentions.
type jsonConfig struct {
	EndpointAddrGRPC         *string         `json:"endpoint_addr_grpc"`
	EndpointAddrHTTP         *string         `json:"endpoint_addr_http"`
	StorageBackend           *string         `json:"storage_backend"`
	DatabaseDSN              *string         `json:"database_dsn"`
	RedisAddr                *string         `json:"redis_addr"`
	SecretKey                *string         `json:"secret_key"`
	AccessTokenTTL           *timex.Duration `json:"access_token_ttl"`
	RefreshTokenTTL          *timex.Duration `json:"refresh_token_ttl"`
	AccessRenewThreshold     *timex.Duration `json:"access_renew_threshold"`
	RefreshRotationThreshold *timex.Duration `json:"refresh_rotation_threshold"`
	LogLevel                 *string         `json:"log_level"`
}

// parseJSON overlays values from the file named by -c / -config, if any.
func parseJSON(cfg *Config, args []string) error {
	path := flagx.ConfigPath(args)
	if path == "" {
		return nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config file: %w", err)
	}

	var c jsonConfig
	if err := json.Unmarshal(data, &c); err != nil {
		return fmt.Errorf("parse config file %s: %w", path, err)
	}

	setString(&cfg.EndpointAddrGRPC, c.EndpointAddrGRPC)
	setString(&cfg.EndpointAddrHTTP, c.EndpointAddrHTTP)
	setString(&cfg.StorageBackend, c.StorageBackend)
	setString(&cfg.DatabaseDSN, c.DatabaseDSN)
	setString(&cfg.RedisAddr, c.RedisAddr)
	setString(&cfg.SecretKey, c.SecretKey)
	setString(&cfg.LogLevel, c.LogLevel)

	if c.AccessTokenTTL != nil {
		cfg.AccessTokenTTL = c.AccessTokenTTL.Duration
	}
	if c.RefreshTokenTTL != nil {
		cfg.RefreshTokenTTL = c.RefreshTokenTTL.Duration
	}
	if c.AccessRenewThreshold != nil {
		cfg.AccessRenewThreshold = c.AccessRenewThreshold.Duration
	}
	if c.RefreshRotationThreshold != nil {
		cfg.RefreshRotationThreshold = c.RefreshRotationThreshold.Duration
	}
	return nil
}

func setString(dst *string, v *string) {
	if v != nil {
		*dst = *v
	}
}
