// EventFi - Event Discovery and Ticketing Backend
// Copyright 2026 DevEmmy
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/DevEmmy/eventfi-backend-v2

// Package config loads chat service configuration from defaults, an optional
// YAML file and environment variables (in increasing priority).
//
//	cfg, err := config.Load()
//	if err != nil {
//	    logging.Fatal().Err(err).Msg("Invalid configuration")
//	}
//
// Config is immutable after Load and safe for concurrent reads.
package config

import "time"

// Config holds all application configuration.
type Config struct {
	Server    ServerConfig    `koanf:"server"`
	Security  SecurityConfig  `koanf:"security"`
	Logging   LoggingConfig   `koanf:"logging"`
	Database  DatabaseConfig  `koanf:"database"`
	Chat      ChatConfig      `koanf:"chat"`
	Directory DirectoryConfig `koanf:"directory"`
	Events    EventsConfig    `koanf:"events"`
	API       APIConfig       `koanf:"api"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Port        int           `koanf:"port"`
	Host        string        `koanf:"host"`
	Timeout     time.Duration `koanf:"timeout"`
	IdleTimeout time.Duration `koanf:"idle_timeout"`
	Environment string        `koanf:"environment"` // development, staging, production
}

// SecurityConfig holds credential verification and HTTP protection settings.
type SecurityConfig struct {
	// JWTSecret verifies the HS256 tokens issued by the EventFi auth service.
	JWTSecret      string        `koanf:"jwt_secret"`
	SessionTimeout time.Duration `koanf:"session_timeout"`

	RateLimitReqs     int           `koanf:"rate_limit_reqs"`
	RateLimitWindow   time.Duration `koanf:"rate_limit_window"`
	RateLimitDisabled bool          `koanf:"rate_limit_disabled"`
	CORSOrigins       []string      `koanf:"cors_origins"`

	// AuthzPolicyPath overrides the embedded chat permission policy.
	AuthzPolicyPath string `koanf:"authz_policy_path"`
}

// LoggingConfig mirrors logging.Config for the fields that can be configured.
type LoggingConfig struct {
	Level  string `koanf:"level"`
	Format string `koanf:"format"`
	Caller bool   `koanf:"caller"`
}

// DatabaseConfig holds DuckDB settings.
type DatabaseConfig struct {
	Path      string `koanf:"path"`
	MaxMemory string `koanf:"max_memory"`
	Threads   int    `koanf:"threads"` // 0 = runtime.NumCPU()
}

// ChatConfig holds realtime gateway tuning. Domain limits such as the
// message length cap and the presence window are fixed and live in the chat
// package.
type ChatConfig struct {
	// InboundRate is the sustained number of frames per second a single
	// websocket connection may send.
	InboundRate  float64 `koanf:"inbound_rate"`
	InboundBurst int     `koanf:"inbound_burst"`

	// SendBuffer is the per-connection outbound queue length. Connections
	// whose queue is full are dropped.
	SendBuffer int `koanf:"send_buffer"`

	HandshakeTimeout time.Duration `koanf:"handshake_timeout"`
}

// DirectoryConfig controls caching of collaborator lookups.
type DirectoryConfig struct {
	ProfileCacheTTL time.Duration `koanf:"profile_cache_ttl"`
	EventCacheTTL   time.Duration `koanf:"event_cache_ttl"`
}

// EventsConfig controls best-effort chat notifications.
type EventsConfig struct {
	Enabled bool   `koanf:"enabled"`
	Topic   string `koanf:"topic"`

	// NATS settings apply to binaries built with -tags=nats. Without the tag
	// notifications use an in-process pub/sub.
	URL            string `koanf:"url"`
	EmbeddedServer bool   `koanf:"embedded_server"`
	StoreDir       string `koanf:"store_dir"`

	BreakerFailures uint32        `koanf:"breaker_failures"`
	BreakerTimeout  time.Duration `koanf:"breaker_timeout"`

	RouterRetries      int           `koanf:"router_retries"`
	RouterCloseTimeout time.Duration `koanf:"router_close_timeout"`
}

// APIConfig holds pagination limits.
type APIConfig struct {
	DefaultPageSize int `koanf:"default_page_size"`
	MaxPageSize     int `koanf:"max_page_size"`
}

// Load is the entry point used by main.
func Load() (*Config, error) {
	return LoadWithKoanf()
}

// IsProduction reports whether the service runs with production safeguards.
func (c *Config) IsProduction() bool {
	return c.Server.Environment == "production"
}
