// Package server provides configuration helpers that define runtime defaults,
// validation, and rate-limiting parameters for the relay.
package server

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// RateLimitConfig defines the optional per-session chat limit. A zero Burst
// disables it; joins and EXIT! are never limited.
type RateLimitConfig struct {
	Burst          int
	RefillInterval time.Duration
}

// Config holds the server settings. Capacity is not part of it: MaxClients is fixed.
type Config struct {
	Port           string
	OpsAddr        string
	AllowedOrigins []string
	MaxMessageSize int
	WriteTimeout   time.Duration
	RateLimit      RateLimitConfig
	LogFormat      string
	LogLevel       string
}

const (
	defaultPort           = ":12345"
	defaultMaxMessageSize = 1024
	defaultWriteTimeout   = 10 * time.Second
)

func defaultConfig() Config {
	return Config{
		Port: defaultPort,
		AllowedOrigins: []string{
			"http://localhost:8080",
		},
		MaxMessageSize: defaultMaxMessageSize,
		WriteTimeout:   defaultWriteTimeout,
		RateLimit: RateLimitConfig{
			Burst:          0,
			RefillInterval: time.Second,
		},
		LogFormat: "text",
		LogLevel:  "info",
	}
}

func sanitizeConfig(cfg Config) Config {
	cfg.Port = normalizePort(cfg.Port)

	if cfg.MaxMessageSize <= 0 {
		cfg.MaxMessageSize = defaultMaxMessageSize
	}

	if cfg.WriteTimeout <= 0 {
		cfg.WriteTimeout = defaultWriteTimeout
	}

	if cfg.RateLimit.Burst < 0 {
		cfg.RateLimit.Burst = 0
	}

	if cfg.RateLimit.RefillInterval <= 0 {
		cfg.RateLimit.RefillInterval = time.Second
	}

	if cfg.LogFormat != "json" {
		cfg.LogFormat = "text"
	}

	cfg.AllowedOrigins = append([]string(nil), cfg.AllowedOrigins...)
	return cfg
}

// normalizePort accepts "12345", ":12345" or "host:12345".
func normalizePort(port string) string {
	port = strings.TrimSpace(port)
	if port == "" {
		return defaultPort
	}
	if !strings.Contains(port, ":") {
		return ":" + port
	}
	return port
}

// NewConfig creates a Config instance populated with default values for all settings.
func NewConfig() *Config {
	cfg := defaultConfig()
	return &cfg
}

// NewConfigFromEnv creates a Config instance from environment variables.
// Falls back to default values if environment variables are not set.
func NewConfigFromEnv() *Config {
	cfg := defaultConfig()

	if port := os.Getenv("SERVER_PORT"); port != "" {
		cfg.Port = port
	}

	// OPS_ADDR may be set to an empty string to disable the ops listener.
	if addr, ok := os.LookupEnv("OPS_ADDR"); ok {
		cfg.OpsAddr = strings.TrimSpace(addr)
	}

	if origins := os.Getenv("ALLOWED_ORIGINS"); origins != "" {
		cfg.AllowedOrigins = parseOrigins(origins)
	}

	if maxSize := os.Getenv("MAX_MESSAGE_SIZE"); maxSize != "" {
		cfg.MaxMessageSize = parseIntValue(maxSize, cfg.MaxMessageSize)
	}

	if timeout := os.Getenv("WRITE_TIMEOUT"); timeout != "" {
		cfg.WriteTimeout = parseSeconds(timeout, cfg.WriteTimeout)
	}

	if burst := os.Getenv("RATE_LIMIT_BURST"); burst != "" {
		cfg.RateLimit.Burst = parseIntValue(burst, cfg.RateLimit.Burst)
	}

	if interval := os.Getenv("RATE_LIMIT_REFILL_INTERVAL"); interval != "" {
		cfg.RateLimit.RefillInterval = parseSeconds(interval, cfg.RateLimit.RefillInterval)
	}

	if format := os.Getenv("LOG_FORMAT"); format != "" {
		cfg.LogFormat = strings.ToLower(format)
	}

	if level := os.Getenv("LOG_LEVEL"); level != "" {
		cfg.LogLevel = strings.ToLower(level)
	}

	return &cfg
}

func parseOrigins(origins string) []string {
	parts := strings.Split(origins, ",")
	for i := range parts {
		parts[i] = strings.TrimSpace(parts[i])
	}
	return parts
}

func parseIntValue(value string, defaultValue int) int {
	if parsed, err := strconv.Atoi(value); err == nil && parsed > 0 {
		return parsed
	}
	return defaultValue
}

func parseSeconds(value string, defaultValue time.Duration) time.Duration {
	if seconds, err := strconv.Atoi(value); err == nil && seconds > 0 {
		return time.Duration(seconds) * time.Second
	}
	return defaultValue
}
