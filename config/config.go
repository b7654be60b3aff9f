// Package config holds the server configuration. Values come from flags and
// AWSGATE_* environment variables and are checked by Validate before the
// server starts.
package config

import (
	"fmt"
	"net"
	"net/url"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/crypto/bcrypt"
)

// Config holds all configuration for one awsgate server process.
type Config struct {
	ListenAddr string // host:port the HTTP server binds to
	Region     string // AWS region; empty defers to the SDK's default chain
	Endpoint   string // optional AWS endpoint override, e.g. LocalStack
	InMemory   bool   // serve from in-memory fakes instead of AWS

	LogLevel  string // logrus level name
	LogFormat string // "text"|"json"

	Realm string // HTTP Basic realm

	AdminUser         string
	AdminPassword     string
	AdminPasswordHash string // bcrypt hash; takes precedence over AdminPassword
	User              string
	UserPassword      string
	UserPasswordHash  string // bcrypt hash; takes precedence over UserPassword
	BcryptCost        int

	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	IdleTimeout     time.Duration
	ShutdownTimeout time.Duration // Graceful shutdown timeout

	MaxUploadBytes int64 // request body cap for JSON and multipart uploads
}

// Default returns the configuration used when no flag or variable is set.
func Default() *Config {
	return &Config{
		ListenAddr:      ":8080",
		LogLevel:        "info",
		LogFormat:       "text",
		Realm:           "awsgate",
		AdminUser:       "admin",
		AdminPassword:   "admin123",
		User:            "user",
		UserPassword:    "user123",
		BcryptCost:      bcrypt.DefaultCost,
		ReadTimeout:     30 * time.Second,
		WriteTimeout:    60 * time.Second,
		IdleTimeout:     120 * time.Second,
		ShutdownTimeout: 15 * time.Second,
		MaxUploadBytes:  10 << 20,
	}
}

// Validate ensures all required fields are present and have valid values.
func (c *Config) Validate() error {
	if _, _, err := net.SplitHostPort(c.ListenAddr); err != nil {
		return fmt.Errorf("invalid listen address %q: %w", c.ListenAddr, err)
	}

	if c.Endpoint != "" {
		u, err := url.Parse(c.Endpoint)
		if err != nil {
			return fmt.Errorf("invalid endpoint: %w", err)
		}
		if (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
			return fmt.Errorf("endpoint must be an absolute http(s) URL")
		}
	}

	if _, err := logrus.ParseLevel(c.LogLevel); err != nil {
		return fmt.Errorf("invalid log level: %w", err)
	}
	if c.LogFormat != "text" && c.LogFormat != "json" {
		return fmt.Errorf("log format must be text or json")
	}

	if c.Realm == "" {
		return fmt.Errorf("realm is required")
	}

	if c.AdminUser == "" || c.User == "" {
		return fmt.Errorf("admin and user principal names are required")
	}
	if c.AdminUser == c.User {
		return fmt.Errorf("admin and user principal names must differ")
	}
	if c.AdminPassword == "" && c.AdminPasswordHash == "" {
		return fmt.Errorf("admin password or password hash is required")
	}
	if c.UserPassword == "" && c.UserPasswordHash == "" {
		return fmt.Errorf("user password or password hash is required")
	}
	if c.BcryptCost < bcrypt.MinCost || c.BcryptCost > bcrypt.MaxCost {
		return fmt.Errorf("bcrypt cost must be between %d and %d", bcrypt.MinCost, bcrypt.MaxCost)
	}

	if c.ReadTimeout <= 0 || c.WriteTimeout <= 0 || c.IdleTimeout <= 0 {
		return fmt.Errorf("read, write and idle timeouts must be positive")
	}
	if c.ShutdownTimeout < time.Second {
		return fmt.Errorf("shutdown timeout must be at least 1 second")
	}

	if c.MaxUploadBytes < 1 {
		return fmt.Errorf("max upload bytes must be at least 1")
	}

	return nil
}
