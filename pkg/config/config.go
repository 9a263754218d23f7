// Package config provides configuration handling for the capture tools.
package config

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/irctrakz/pcapbuf/pkg/core"
	"github.com/irctrakz/pcapbuf/pkg/logging"
	"github.com/irctrakz/pcapbuf/pkg/pcap"
	"gopkg.in/yaml.v3"
)

// Config represents the complete configuration.
type Config struct {
	// Capture contains the capture file configuration.
	Capture core.CaptureConfig `json:"capture" yaml:"capture"`

	// Logging contains the logging configuration.
	Logging LoggingConfig `json:"logging" yaml:"logging"`

	// Metrics contains the periodic metrics reporter configuration.
	Metrics MetricsConfig `json:"metrics" yaml:"metrics"`
}

// LoggingConfig contains configuration for logging.
type LoggingConfig struct {
	// Level is the logging level (debug, info, warn, error).
	Level string `json:"level" yaml:"level"`

	// File is the log file path.
	File string `json:"file" yaml:"file"`

	// MaxSize is the maximum size of the log file in megabytes.
	MaxSize int `json:"maxSize" yaml:"maxSize"`

	// MaxBackups is the maximum number of old log files to retain.
	MaxBackups int `json:"maxBackups" yaml:"maxBackups"`

	// MaxAge is the maximum number of days to retain old log files.
	MaxAge int `json:"maxAge" yaml:"maxAge"`
}

// MetricsConfig contains configuration for the metrics reporter.
type MetricsConfig struct {
	// Interval is how often counters are logged, as a Go duration.
	Interval string `json:"interval" yaml:"interval"`

	// Format is text or json.
	Format string `json:"format" yaml:"format"`
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		Capture: core.CaptureConfig{
			BufferCapacity: 65535 + pcap.PacketHeaderSize,
			SnapLen:        65535,
		},
		Logging: LoggingConfig{
			Level:      "info",
			File:       "",
			MaxSize:    10,
			MaxBackups: 3,
			MaxAge:     7,
		},
		Metrics: MetricsConfig{
			Interval: "30s",
			Format:   "text",
		},
	}
}

// LoadFromFile loads configuration from a file.
func LoadFromFile(path string, config *Config) error {
	file, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("failed to open config file: %w", err)
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}

	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		if err := json.Unmarshal(data, config); err != nil {
			return fmt.Errorf("failed to parse JSON config: %w", err)
		}
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, config); err != nil {
			return fmt.Errorf("failed to parse YAML config: %w", err)
		}
	default:
		return fmt.Errorf("unsupported config file format: %s", path)
	}

	return nil
}

// LoadFromEnv loads configuration from environment variables.
func LoadFromEnv(config *Config) {
	if val := os.Getenv("PCAP_BUFFER_CAPACITY"); val != "" {
		if n, err := strconv.Atoi(val); err == nil {
			config.Capture.BufferCapacity = n
		}
	}
	if val := os.Getenv("PCAP_SNAPLEN"); val != "" {
		if n, err := strconv.ParseUint(val, 10, 32); err == nil {
			config.Capture.SnapLen = uint32(n)
		}
	}
	if val := os.Getenv("PCAP_NETWORK"); val != "" {
		if n, err := pcap.ParseNetwork(val); err == nil {
			config.Capture.Network = uint32(n)
		}
	}

	if val := os.Getenv("LOGGING_LEVEL"); val != "" {
		config.Logging.Level = val
	}
	if val := os.Getenv("LOGGING_FILE"); val != "" {
		config.Logging.File = val
	}
	if val := os.Getenv("LOGGING_MAX_SIZE"); val != "" {
		if maxSize, err := strconv.Atoi(val); err == nil {
			config.Logging.MaxSize = maxSize
		}
	}
	if val := os.Getenv("LOGGING_MAX_BACKUPS"); val != "" {
		if maxBackups, err := strconv.Atoi(val); err == nil {
			config.Logging.MaxBackups = maxBackups
		}
	}
	if val := os.Getenv("LOGGING_MAX_AGE"); val != "" {
		if maxAge, err := strconv.Atoi(val); err == nil {
			config.Logging.MaxAge = maxAge
		}
	}

	if val := os.Getenv("METRICS_INTERVAL"); val != "" {
		config.Metrics.Interval = val
	}
	if val := os.Getenv("METRICS_FORMAT"); val != "" {
		config.Metrics.Format = strings.ToLower(val)
	}
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if c.Capture.BufferCapacity < pcap.FileHeaderSize {
		return fmt.Errorf("buffer capacity %d is smaller than the %d byte file header", c.Capture.BufferCapacity, pcap.FileHeaderSize)
	}
	if c.Capture.BufferCapacity <= pcap.PacketHeaderSize {
		return fmt.Errorf("buffer capacity %d leaves no room for packet data", c.Capture.BufferCapacity)
	}
	if c.Capture.SnapLen == 0 {
		return fmt.Errorf("snaplen must be positive")
	}

	if _, err := logging.ParseLevel(c.Logging.Level); err != nil {
		return fmt.Errorf("invalid logging level: %s", c.Logging.Level)
	}

	if _, err := c.MetricsInterval(); err != nil {
		return err
	}
	switch c.Metrics.Format {
	case "text", "json":
	default:
		return fmt.Errorf("invalid metrics format: %s", c.Metrics.Format)
	}

	return nil
}

// MetricsInterval parses Metrics.Interval.
func (c *Config) MetricsInterval() (time.Duration, error) {
	d, err := time.ParseDuration(c.Metrics.Interval)
	if err != nil {
		return 0, fmt.Errorf("invalid metrics interval %q: %w", c.Metrics.Interval, err)
	}
	if d <= 0 {
		return 0, fmt.Errorf("metrics interval must be positive: %s", c.Metrics.Interval)
	}
	return d, nil
}

// ApplyLogging applies the logging configuration.
func (c *Config) ApplyLogging() error {
	level, err := logging.ParseLevel(c.Logging.Level)
	if err != nil {
		return err
	}
	logging.SetLevel(level)

	if c.Logging.File != "" {
		err := logging.EnableFileLogging(
			filepath.Dir(c.Logging.File),
			filepath.Base(c.Logging.File),
			c.Logging.MaxSize,
			c.Logging.MaxBackups,
			c.Logging.MaxAge,
		)
		if err != nil {
			return fmt.Errorf("failed to enable file logging: %w", err)
		}
	}

	return nil
}

// SaveToFile saves the configuration to a file.
func (c *Config) SaveToFile(path string) error {
	var data []byte
	var err error

	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		data, err = json.MarshalIndent(c, "", "  ")
		if err != nil {
			return fmt.Errorf("failed to marshal config to JSON: %w", err)
		}
	case ".yaml", ".yml":
		data, err = yaml.Marshal(c)
		if err != nil {
			return fmt.Errorf("failed to marshal config to YAML: %w", err)
		}
	default:
		return fmt.Errorf("unsupported config file format: %s", path)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}
