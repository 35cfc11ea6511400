// Copyright (c) 2026 Sigma. All rights reserved.

/*
Package config handles application-wide settings and environment parsing.

It leverages 'caarlos0/env' to map OS environment variables into a strongly-typed
Go struct, providing early validation and default values.

Usage:

	cfg, err := config.Load()
	if err != nil {
	    log.Fatal(err)
	}

Architecture:

  - Immutability: Once loaded, configuration is read-only.
  - DI-Friendly: Passed to core components (config store, DB, Redis) via constructors.
  - Zero Hidden State: No global variables are used to store config.

This ensures the gateway is Twelve-Factor compliant by storing config in the env.
*/
package config

import (
	"fmt"
	"strings"

	"github.com/caarlos0/env/v11"
)

// # Configuration Schema

// Config holds all runtime configuration for the Sigma gateway, per §6.
type Config struct {
	// ENV and SERVICE root the gateway's subtree in the config store
	// (/{ENV}/{SERVICE}/...).
	Env     string `env:"ENV"     envDefault:"dev"`
	Service string `env:"SERVICE" envDefault:"sigma"`

	// ServerPort is the HTTP listen port.
	ServerPort string `env:"SERVER_PORT" envDefault:"8080"`
	Debug      bool   `env:"DEBUG"       envDefault:"false"`

	// ZookeeperURL names the hierarchical config store endpoint(s). Despite
	// the name (kept for wire compatibility with the source's deployment
	// convention), Sigma's Config Store Client talks to it over etcd.
	ZookeeperURL string `env:"ZOOKEEPER_URL" envDefault:"http://localhost:2379"`

	// DatabaseType overrides dialect inference from DatabaseURL's scheme
	// (§4.1); empty means infer.
	DatabaseType string `env:"DATABASE_TYPE"`
	DatabaseURL  string `env:"DATABASE_URL,required"`

	// RedisURL backs the enum catalog's warm-restart cache (§4.4). Optional:
	// an empty value disables the warm cache and every restart waits on the
	// first live enum refresh.
	RedisURL string `env:"REDIS_URL"`

	// JWTPublicKeyPath verifies bearer tokens for auditor resolution
	// (internal/audit). Empty disables verification; every request is then
	// attributed to ServicePrincipal.
	JWTPublicKeyPath string `env:"JWT_PUBLIC_KEY_PATH"`
	ServicePrincipal string `env:"SERVICE_PRINCIPAL" envDefault:"sigma-gateway"`

	// Cross-Origin Resource Sharing
	ExtraOrigins string `env:"EXTRA_ORIGINS"`
}

// # Configuration Loading

// Load parses environment variables into a [Config] struct.
func Load() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("config: failed to parse environment variables: %w", err)
	}
	return cfg, nil
}

// IsDevelopment reports whether the gateway is running in a dev environment.
func (c *Config) IsDevelopment() bool {
	return c.Env == "dev" || c.Env == "development"
}

// ConfigRoot returns the config store subtree root for this deployment,
// e.g. "/prod/sigma".
func (c *Config) ConfigRoot() string {
	return "/" + c.Env + "/" + c.Service
}

// AllowedOrigins parses EXTRA_ORIGINS as a comma-separated origin list.
func (c *Config) AllowedOrigins() []string {
	if c.ExtraOrigins == "" {
		return nil
	}
	parts := strings.Split(c.ExtraOrigins, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
