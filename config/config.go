// seehuhn.de/go/pdfmark - tamper-evident watermarks for PDF files
// Copyright (C) 2026  Jochen Voss <voss@seehuhn.de>
//
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// This program is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
// GNU General Public License for more details.
//
// You should have received a copy of the GNU General Public License
// along with this program.  If not, see <https://www.gnu.org/licenses/>.

// Package config holds the settings of the pdfmark command and server.
//
// Settings start from [Default].  A YAML file can override any subset of
// them, and selected values can be overridden by PDFMARK_* environment
// variables, in this order.
package config

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap/zapcore"
	"gopkg.in/yaml.v3"

	"seehuhn.de/go/pdfmark/internal/logger"
	"seehuhn.de/go/pdfmark/placement"
)

// Store drivers.
const (
	DriverMemory   = "memory"
	DriverPostgres = "postgres"
)

// Config is the complete configuration.
type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Store     StoreConfig     `yaml:"store"`
	Log       LogConfig       `yaml:"log"`
	Watermark WatermarkConfig `yaml:"watermark"`
}

// ServerConfig configures the HTTP server.
type ServerConfig struct {
	Address         string        `yaml:"address"`
	ReadTimeout     time.Duration `yaml:"read_timeout"`
	WriteTimeout    time.Duration `yaml:"write_timeout"`
	IdleTimeout     time.Duration `yaml:"idle_timeout"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`

	// MaxUploadBytes limits the size of request bodies.
	MaxUploadBytes int64 `yaml:"max_upload_bytes"`

	// Mode is the gin mode: "debug", "release" or "test".
	Mode string `yaml:"mode"`
}

// StoreConfig selects and configures the record store.
type StoreConfig struct {
	// Driver is "memory" or "postgres".
	Driver string `yaml:"driver"`

	// DSN is the PostgreSQL connection string.
	DSN string `yaml:"dsn"`

	MaxOpenConns    int           `yaml:"max_open_conns"`
	MaxIdleConns    int           `yaml:"max_idle_conns"`
	ConnMaxLifetime time.Duration `yaml:"conn_max_lifetime"`
	SlowQuery       time.Duration `yaml:"slow_query"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// WatermarkConfig configures signing.
type WatermarkConfig struct {
	// Corner is used when a request names no valid corner.
	Corner string `yaml:"corner"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Address:         ":8000",
			ReadTimeout:     10 * time.Second,
			WriteTimeout:    30 * time.Second,
			IdleTimeout:     120 * time.Second,
			ShutdownTimeout: 5 * time.Second,
			MaxUploadBytes:  32 << 20,
			Mode:            gin.ReleaseMode,
		},
		Store: StoreConfig{
			Driver:          DriverMemory,
			MaxOpenConns:    20,
			MaxIdleConns:    5,
			ConnMaxLifetime: 5 * time.Minute,
			SlowQuery:       200 * time.Millisecond,
		},
		Log: LogConfig{
			Level:  "info",
			Format: logger.FormatJSON,
		},
		Watermark: WatermarkConfig{
			Corner: placement.DefaultCorner.String(),
		},
	}
}

// Load reads a YAML file on top of the default configuration.  Keys which
// are not present in the file keep their default values.  Unknown keys are
// an error.
func Load(path string) (*Config, error) {
	cfg := Default()

	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	dec := yaml.NewDecoder(f)
	dec.KnownFields(true)
	err = dec.Decode(cfg)
	if err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return cfg, nil
}

// ApplyEnv overrides settings from environment variables:
//
//	PDFMARK_ADDRESS           server.address
//	PDFMARK_MAX_UPLOAD_BYTES  server.max_upload_bytes
//	PDFMARK_STORE             store.driver
//	PDFMARK_DSN               store.dsn (DATABASE_URL is used if unset)
//	PDFMARK_LOG_FORMAT        log.format
//	PDFMARK_CORNER            watermark.corner
//
// The log level variable is handled by the logger itself.
func (c *Config) ApplyEnv() error {
	if v, ok := os.LookupEnv("PDFMARK_ADDRESS"); ok {
		c.Server.Address = v
	}
	if v, ok := os.LookupEnv("PDFMARK_MAX_UPLOAD_BYTES"); ok {
		n, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return fmt.Errorf("PDFMARK_MAX_UPLOAD_BYTES: %w", err)
		}
		c.Server.MaxUploadBytes = n
	}
	if v, ok := os.LookupEnv("PDFMARK_STORE"); ok {
		c.Store.Driver = v
	}
	if v, ok := os.LookupEnv("PDFMARK_DSN"); ok {
		c.Store.DSN = v
	} else if v, ok := os.LookupEnv("DATABASE_URL"); ok && c.Store.DSN == "" {
		c.Store.DSN = v
	}
	if v, ok := os.LookupEnv("PDFMARK_LOG_FORMAT"); ok {
		c.Log.Format = v
	}
	if v, ok := os.LookupEnv("PDFMARK_CORNER"); ok {
		c.Watermark.Corner = v
	}
	return nil
}

// Validate checks the configuration for errors.  All problems are
// reported together.
func (c *Config) Validate() error {
	var errs []error

	if c.Server.Address == "" {
		errs = append(errs, errors.New("server.address is required"))
	}
	if c.Server.MaxUploadBytes <= 0 {
		errs = append(errs, fmt.Errorf("server.max_upload_bytes must be positive, not %d", c.Server.MaxUploadBytes))
	}
	switch c.Server.Mode {
	case gin.DebugMode, gin.ReleaseMode, gin.TestMode:
	default:
		errs = append(errs, fmt.Errorf("invalid server.mode %q", c.Server.Mode))
	}
	for name, d := range map[string]time.Duration{
		"server.read_timeout":     c.Server.ReadTimeout,
		"server.write_timeout":    c.Server.WriteTimeout,
		"server.idle_timeout":     c.Server.IdleTimeout,
		"server.shutdown_timeout": c.Server.ShutdownTimeout,
		"store.conn_max_lifetime": c.Store.ConnMaxLifetime,
		"store.slow_query":        c.Store.SlowQuery,
	} {
		if d < 0 {
			errs = append(errs, fmt.Errorf("%s must not be negative", name))
		}
	}

	switch c.Store.Driver {
	case DriverMemory:
	case DriverPostgres:
		if c.Store.DSN == "" {
			errs = append(errs, errors.New("store.dsn is required for the postgres driver"))
		}
	default:
		errs = append(errs, fmt.Errorf("invalid store.driver %q", c.Store.Driver))
	}
	if c.Store.MaxOpenConns < 0 || c.Store.MaxIdleConns < 0 {
		errs = append(errs, errors.New("connection pool sizes must not be negative"))
	}

	if _, err := zapcore.ParseLevel(c.Log.Level); err != nil {
		errs = append(errs, fmt.Errorf("invalid log.level: %w", err))
	}
	switch c.Log.Format {
	case logger.FormatJSON, logger.FormatConsole:
	default:
		errs = append(errs, fmt.Errorf("invalid log.format %q", c.Log.Format))
	}

	if _, ok := placement.ParseCorner(c.Watermark.Corner); !ok {
		errs = append(errs, fmt.Errorf("invalid watermark.corner %q", c.Watermark.Corner))
	}

	return errors.Join(errs...)
}

// DefaultCorner returns the configured default corner.  Invalid values
// give [placement.DefaultCorner].
func (c *Config) DefaultCorner() placement.Corner {
	corner, ok := placement.ParseCorner(c.Watermark.Corner)
	if !ok {
		return placement.DefaultCorner
	}
	return corner
}
