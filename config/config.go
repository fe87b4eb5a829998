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


package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// Backend names accepted in Config.Backend.
const (
	BackendFilesystem = "fs"
	BackendBadger     = "badger"
)

// Config holds process configuration for the scriptvault server.
type Config struct {
	// Listen is the HTTP listen address.
	// Default: ":8000"
	Listen string `yaml:"listen"`

	// DataDir is the storage root.
	// Default: "./data_storage"
	DataDir string `yaml:"data_dir"`

	// Backend selects the storage backend, "fs" or "badger".
	// Default: "fs"
	Backend string `yaml:"backend"`

	// APIKeys lists the keys accepted in the x-api-key header for writes.
	APIKeys []string `yaml:"api_keys"`

	// MaxPayloadBytes caps the size of an uploaded version.
	// Default: 1 MiB
	MaxPayloadBytes int64 `yaml:"max_payload_bytes"`

	// Retention is the number of versions kept per namespace.
	// Default: 3
	Retention int `yaml:"retention"`

	// WorkerPoolSize bounds concurrent storage operations in the HTTP layer.
	// Default: 64
	WorkerPoolSize int `yaml:"worker_pool_size"`

	// LogLevel is one of debug, info, warn, error.
	// Default: "info"
	LogLevel string `yaml:"log_level"`
}

// Option is a functional option for configuring a Config.
type Option func(*Config)

// WithListen sets the HTTP listen address.
func WithListen(addr string) Option {
	return func(c *Config) {
		c.Listen = addr
	}
}

// WithDataDir sets the storage root.
func WithDataDir(dir string) Option {
	return func(c *Config) {
		c.DataDir = dir
	}
}

// WithBackend selects the storage backend.
func WithBackend(name string) Option {
	return func(c *Config) {
		c.Backend = name
	}
}

// WithAPIKeys replaces the accepted API keys.
func WithAPIKeys(keys ...string) Option {
	return func(c *Config) {
		c.APIKeys = keys
	}
}

// WithMaxPayloadBytes sets the upload size limit.
func WithMaxPayloadBytes(n int64) Option {
	return func(c *Config) {
		c.MaxPayloadBytes = n
	}
}

// WithRetention sets the number of versions kept per namespace.
func WithRetention(keep int) Option {
	return func(c *Config) {
		c.Retention = keep
	}
}

// WithWorkerPoolSize sets the storage worker pool size.
func WithWorkerPoolSize(size int) Option {
	return func(c *Config) {
		c.WorkerPoolSize = size
	}
}

// WithLogLevel sets the log level.
func WithLogLevel(level string) Option {
	return func(c *Config) {
		c.LogLevel = level
	}
}

// DefaultConfig returns a Config matching the historical service defaults.
func DefaultConfig() *Config {
	return &Config{
		Listen:          ":8000",
		DataDir:         "./data_storage",
		Backend:         BackendFilesystem,
		MaxPayloadBytes: 1 << 20,
		Retention:       3,
		WorkerPoolSize:  64,
		LogLevel:        "info",
	}
}

// NewConfig creates a Config from defaults with the given options applied.
func NewConfig(opts ...Option) *Config {
	cfg := DefaultConfig()
	for _, opt := range opts {
		opt(cfg)
	}
	return cfg
}

// LoadFile reads a YAML file over the defaults and applies opts on top.
func LoadFile(path string, opts ...Option) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	cfg, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	for _, opt := range opts {
		opt(cfg)
	}
	return cfg, nil
}

// Parse decodes YAML over the defaults. Unknown fields are rejected.
func Parse(data []byte) (*Config, error) {
	cfg := DefaultConfig()
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}
	return cfg, nil
}

// Validate checks that the configuration is usable.
func (c *Config) Validate() error {
	if c.Listen == "" {
		return fmt.Errorf("%w: listen address is required", ErrInvalidConfig)
	}
	if c.DataDir == "" {
		return fmt.Errorf("%w: data_dir is required", ErrInvalidConfig)
	}
	switch c.Backend {
	case BackendFilesystem, BackendBadger:
	default:
		return fmt.Errorf("%w: unknown backend %q: must be %q or %q",
			ErrInvalidConfig, c.Backend, BackendFilesystem, BackendBadger)
	}
	if len(c.APIKeys) == 0 {
		return fmt.Errorf("%w: at least one api key is required", ErrInvalidConfig)
	}
	for i, key := range c.APIKeys {
		if strings.TrimSpace(key) == "" {
			return fmt.Errorf("%w: api_keys[%d] is empty", ErrInvalidConfig, i)
		}
	}
	if c.MaxPayloadBytes <= 0 {
		return fmt.Errorf("%w: max_payload_bytes must be greater than 0", ErrInvalidConfig)
	}
	if c.Retention < 1 {
		return fmt.Errorf("%w: retention must be at least 1", ErrInvalidConfig)
	}
	if c.WorkerPoolSize < 1 {
		return fmt.Errorf("%w: worker_pool_size must be at least 1", ErrInvalidConfig)
	}
	switch strings.ToLower(c.LogLevel) {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("%w: invalid log level %q: must be one of debug, info, warn, error",
			ErrInvalidConfig, c.LogLevel)
	}
	return nil
}
