// Copyright 2023 Canonical Ltd.
// Licensed under Apache 2.0, see LICENCE file for details.

// Package config loads the settings of a lightsql environment from YAML.
//
// A configuration file looks like this:
//
//	Database: PostgreSQL
//	ConnectionSupplier: DB
//	url: sql:postgres:host=db user=app password=${DB_PASSWORD}
//	maxStringLiteralLength: 256
//	inlineLiterals: true
//	slowQueryThreshold: 200ms
//
// Every key is optional. Environment variables in url are expanded.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/canonical/lightsql"
)

// EnvVar names the file read by LoadDefault.
const EnvVar = "LIGHTSQL_CONFIG"

// Config holds the settings of an environment.
type Config struct {
	// Database is the name of the dialect, e.g. "MySQL".
	Database string `yaml:"Database"`
	// ConnectionSupplier names how connections are obtained, e.g. "DB".
	ConnectionSupplier string `yaml:"ConnectionSupplier"`
	// URL is the connection URL, of the form "sql:<vendor>:<dsn>".
	URL string `yaml:"url"`

	MaxStringLiteralLength int  `yaml:"maxStringLiteralLength"`
	MaxBinaryLiteralLength int  `yaml:"maxBinaryLiteralLength"`
	InlineLiterals         bool `yaml:"inlineLiterals"`

	// SlowQueryThreshold is the duration above which statements are
	// logged as slow. Zero disables slow query logging.
	SlowQueryThreshold time.Duration `yaml:"slowQueryThreshold"`
}

// Error reports an invalid configuration. It matches lightsql.ErrConfig.
type Error struct {
	// Key is the offending key. It is empty when the whole document is
	// at fault.
	Key string
	Err error
}

func (e *Error) Error() string {
	if e.Key == "" {
		return fmt.Sprintf("%s: %s", lightsql.ErrConfig, e.Err)
	}
	return fmt.Sprintf("%s: %s: %s", lightsql.ErrConfig, e.Key, e.Err)
}

func (e *Error) Unwrap() []error {
	return []error{lightsql.ErrConfig, e.Err}
}

// Default returns the configuration used when no file is given.
func Default() *Config {
	return &Config{
		Database:               "Standard",
		ConnectionSupplier:     "DB",
		MaxStringLiteralLength: 128,
		MaxBinaryLiteralLength: 128,
	}
}

// Parse reads a configuration from YAML. Keys missing from data keep their
// default value.
func Parse(data []byte) (*Config, error) {
	cfg := Default()
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return nil, &Error{Err: err}
	}
	cfg.URL = os.ExpandEnv(cfg.URL)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Load reads the configuration file at path.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, &Error{Err: err}
	}
	cfg, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("cannot load %s: %w", path, err)
	}
	return cfg, nil
}

// LoadDefault loads the file named by the LIGHTSQL_CONFIG environment
// variable, or returns Default() when it is not set.
func LoadDefault() (*Config, error) {
	path := os.Getenv(EnvVar)
	if path == "" {
		return Default(), nil
	}
	return Load(path)
}

// Validate checks that every setting can be used.
func (cfg *Config) Validate() error {
	if _, err := lightsql.DialectByName(cfg.Database); err != nil {
		return &Error{Key: "Database", Err: fmt.Errorf("unknown dialect %q", cfg.Database)}
	}
	if cfg.ConnectionSupplier == "" {
		return &Error{Key: "ConnectionSupplier", Err: errors.New("empty supplier name")}
	}
	if cfg.MaxStringLiteralLength < 0 {
		return &Error{Key: "maxStringLiteralLength", Err: fmt.Errorf("negative length %d", cfg.MaxStringLiteralLength)}
	}
	if cfg.MaxBinaryLiteralLength < 0 {
		return &Error{Key: "maxBinaryLiteralLength", Err: fmt.Errorf("negative length %d", cfg.MaxBinaryLiteralLength)}
	}
	if cfg.SlowQueryThreshold < 0 {
		return &Error{Key: "slowQueryThreshold", Err: fmt.Errorf("negative duration %s", cfg.SlowQueryThreshold)}
	}
	return nil
}

// DialectOptions returns the dialect options set by cfg.
func (cfg *Config) DialectOptions() lightsql.DialectOptions {
	opts := lightsql.DefaultDialectOptions
	opts.Limits.MaxStringLiteralLength = cfg.MaxStringLiteralLength
	opts.Limits.MaxBinaryLiteralLength = cfg.MaxBinaryLiteralLength
	opts.InlineLiterals = cfg.InlineLiterals
	return opts
}
