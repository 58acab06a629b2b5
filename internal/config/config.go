// Package config loads server settings with file > environment > default
// precedence.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"time"
)

// Config is the full server configuration.
type Config struct {
	Database *DatabaseConfig `json:"database"`
	HTTP     *HTTPConfig     `json:"http"`
	Chat     *ChatConfig     `json:"chat"`
}

// DatabaseConfig locates the SQLite backing store.
type DatabaseConfig struct {
	Path string `json:"path"`
}

// HTTPConfig tunes the listener shared by the socket endpoint and the
// operational API.
type HTTPConfig struct {
	Host         string        `json:"host"`
	Port         int           `json:"port"`
	ReadTimeout  time.Duration `json:"read_timeout"`
	WriteTimeout time.Duration `json:"write_timeout"`
}

// ChatConfig tunes the engine's timers and limits.
type ChatConfig struct {
	RateLimit    int           `json:"rate_limit"`
	RateWindow   time.Duration `json:"rate_window"`
	TypingQuiet  time.Duration `json:"typing_quiet"`
	SweepPeriod  time.Duration `json:"sweep_period"`
	IdleAfter    time.Duration `json:"idle_after"`
	HistoryLimit int           `json:"history_limit"`
}

// DefaultConfig returns the production defaults.
func DefaultConfig() *Config {
	return &Config{
		Database: &DatabaseConfig{
			Path: "./chat.db",
		},
		HTTP: &HTTPConfig{
			Host:         "0.0.0.0",
			Port:         8080,
			ReadTimeout:  30 * time.Second,
			WriteTimeout: 30 * time.Second,
		},
		Chat: &ChatConfig{
			RateLimit:    30,
			RateWindow:   time.Minute,
			TypingQuiet:  3 * time.Second,
			SweepPeriod:  time.Minute,
			IdleAfter:    5 * time.Minute,
			HistoryLimit: 50,
		},
	}
}

// Validate rejects configurations that cannot run.
func (c *Config) Validate() error {
	if c.Database == nil || c.Database.Path == "" {
		return fmt.Errorf("database path cannot be empty")
	}
	if c.HTTP == nil {
		return fmt.Errorf("HTTP configuration is required")
	}
	if c.HTTP.Port <= 0 || c.HTTP.Port > 65535 {
		return fmt.Errorf("HTTP port must be between 1 and 65535")
	}
	if c.HTTP.Host == "" {
		return fmt.Errorf("HTTP host cannot be empty")
	}
	if c.HTTP.ReadTimeout <= 0 || c.HTTP.WriteTimeout <= 0 {
		return fmt.Errorf("HTTP timeouts must be positive")
	}
	if c.Chat == nil {
		return fmt.Errorf("chat configuration is required")
	}
	if c.Chat.RateLimit <= 0 || c.Chat.RateWindow <= 0 {
		return fmt.Errorf("rate limit and window must be positive")
	}
	if c.Chat.TypingQuiet <= 0 {
		return fmt.Errorf("typing quiet interval must be positive")
	}
	if c.Chat.SweepPeriod <= 0 || c.Chat.IdleAfter <= 0 {
		return fmt.Errorf("sweep period and idle threshold must be positive")
	}
	if c.Chat.HistoryLimit <= 0 {
		return fmt.Errorf("history limit must be positive")
	}
	return nil
}

// Load returns defaults overlaid with the JSON file at path (when given)
// and then with CHATSERVER_* environment overrides.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		if err := json.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config file: %w", err)
		}
	}

	applyEnv(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func applyEnv(cfg *Config) {
	if v := os.Getenv("CHATSERVER_DB_PATH"); v != "" {
		cfg.Database.Path = v
	}
	if v := os.Getenv("CHATSERVER_HOST"); v != "" {
		cfg.HTTP.Host = v
	}
	if v := os.Getenv("CHATSERVER_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.HTTP.Port = port
		}
	}
	if v := os.Getenv("CHATSERVER_RATE_LIMIT"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Chat.RateLimit = n
		}
	}
	if v := os.Getenv("CHATSERVER_IDLE_AFTER"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.Chat.IdleAfter = d
		}
	}
}
