// Copyright 2025 Poiesic Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package config holds process-wide settings for the importer and hook
// dispatcher: where artifacts live, where documents are stored, and how
// subscribers are notified.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"
)

// Environment variables read by ApplyEnv.
const (
	EnvBasePath    = "KERNELCI_BASE_PATH"
	EnvDBPath      = "KERNELCI_DB_PATH"
	EnvHooksFile   = "KERNELCI_HOOKS_FILE"
	EnvHTTPTimeout = "KERNELCI_HTTP_TIMEOUT"
	EnvListenAddr  = "KERNELCI_LISTEN"
)

// Config holds configuration for a kernelci process.
type Config struct {
	// BasePath is the root of the <job>/<kernel>/<variant> artifact tree.
	// Default: /var/www/images/kernel-ci
	BasePath string

	// DBPath is the BadgerDB directory documents are stored in.
	// Default: kernelci.db
	DBPath string

	// HooksFile is the YAML subscriber file. A missing file disables hooks.
	// Default: hooks.yml
	HooksFile string

	// HTTPTimeout bounds each delivery request.
	// Default: 10s
	HTTPTimeout time.Duration

	// MaxAttempts is how many requests a subscriber may receive per dispatch.
	// Default: 3
	MaxAttempts int

	// RetryDelay is the backoff before the first retry; it doubles per retry.
	// Default: 0
	RetryDelay time.Duration

	// RetryServerErrors makes 5xx responses retryable.
	// Default: false
	RetryServerErrors bool

	// Concurrency is how many subscribers are delivered to at once.
	// Default: 1
	Concurrency int

	// ListenAddr is the address the HTTP server binds.
	// Default: 127.0.0.1:8888
	ListenAddr string
}

// ConfigOption is a functional option for configuring a Config.
type ConfigOption func(*Config)

// WithBasePath sets the artifact root.
func WithBasePath(path string) ConfigOption {
	return func(c *Config) {
		c.BasePath = path
	}
}

// WithDBPath sets the document store directory.
func WithDBPath(path string) ConfigOption {
	return func(c *Config) {
		c.DBPath = path
	}
}

// WithHooksFile sets the subscriber file.
func WithHooksFile(path string) ConfigOption {
	return func(c *Config) {
		c.HooksFile = path
	}
}

// WithHTTPTimeout sets the per-request delivery timeout.
func WithHTTPTimeout(timeout time.Duration) ConfigOption {
	return func(c *Config) {
		c.HTTPTimeout = timeout
	}
}

// WithMaxAttempts sets the delivery attempt budget.
func WithMaxAttempts(attempts int) ConfigOption {
	return func(c *Config) {
		c.MaxAttempts = attempts
	}
}

// WithRetryDelay sets the base retry backoff.
func WithRetryDelay(delay time.Duration) ConfigOption {
	return func(c *Config) {
		c.RetryDelay = delay
	}
}

// WithRetryServerErrors toggles retrying 5xx responses.
func WithRetryServerErrors(retry bool) ConfigOption {
	return func(c *Config) {
		c.RetryServerErrors = retry
	}
}

// WithConcurrency sets the delivery concurrency.
func WithConcurrency(n int) ConfigOption {
	return func(c *Config) {
		c.Concurrency = n
	}
}

// WithListenAddr sets the HTTP listen address.
func WithListenAddr(addr string) ConfigOption {
	return func(c *Config) {
		c.ListenAddr = addr
	}
}

// DefaultConfig returns a Config with the defaults of a CI backend host.
func DefaultConfig() *Config {
	return &Config{
		BasePath:    "/var/www/images/kernel-ci",
		DBPath:      "kernelci.db",
		HooksFile:   "hooks.yml",
		HTTPTimeout: 10 * time.Second,
		MaxAttempts: 3,
		Concurrency: 1,
		ListenAddr:  "127.0.0.1:8888",
	}
}

// NewConfig creates a Config with the default values and applies the provided options.
//
// Example:
//
//	cfg := NewConfig(
//	    WithBasePath("/srv/artifacts"),
//	    WithHooksFile("/etc/kernelci/hooks.yml"),
//	)
func NewConfig(opts ...ConfigOption) *Config {
	cfg := DefaultConfig()
	for _, opt := range opts {
		opt(cfg)
	}
	return cfg
}

// ApplyEnv overrides fields from KERNELCI_* environment variables that are set.
func (c *Config) ApplyEnv() error {
	if v, ok := os.LookupEnv(EnvBasePath); ok {
		c.BasePath = v
	}
	if v, ok := os.LookupEnv(EnvDBPath); ok {
		c.DBPath = v
	}
	if v, ok := os.LookupEnv(EnvHooksFile); ok {
		c.HooksFile = v
	}
	if v, ok := os.LookupEnv(EnvListenAddr); ok {
		c.ListenAddr = v
	}
	if v, ok := os.LookupEnv(EnvHTTPTimeout); ok {
		timeout, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("config: %s: %w", EnvHTTPTimeout, err)
		}
		c.HTTPTimeout = timeout
	}
	return nil
}

// Normalize trims surrounding whitespace from path-like fields.
func (c *Config) Normalize() {
	c.BasePath = strings.TrimSpace(c.BasePath)
	c.DBPath = strings.TrimSpace(c.DBPath)
	c.HooksFile = strings.TrimSpace(c.HooksFile)
	c.ListenAddr = strings.TrimSpace(c.ListenAddr)
}

// Validate checks that the configuration is valid and complete.
// It normalizes the configuration first.
func (c *Config) Validate() error {
	c.Normalize()

	if c.BasePath == "" {
		return errors.New("config: BasePath is required")
	}
	if c.DBPath == "" {
		return errors.New("config: DBPath is required")
	}
	if c.HTTPTimeout <= 0 {
		return errors.New("config: HTTPTimeout must be positive")
	}
	if c.MaxAttempts < 1 {
		return errors.New("config: MaxAttempts must be at least 1")
	}
	if c.RetryDelay < 0 {
		return errors.New("config: RetryDelay must not be negative")
	}
	if c.Concurrency < 1 {
		return errors.New("config: Concurrency must be at least 1")
	}
	return nil
}
