// Package config provides centralized configuration management for the
// ingestion service. It loads configuration from environment variables
// with sensible defaults and validates all settings on startup to fail
// fast on misconfiguration.
package config

import (
	"fmt"
	"strings"
	"time"
)

// Config holds all application configuration.
// All settings can be configured via environment variables.
type Config struct {
	Server   ServerConfig
	Database DatabaseConfig
	Storage  StorageConfig
	Ingest   IngestConfig
	Logging  LoggingConfig
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	// Host is the interface to bind to (default: 0.0.0.0)
	Host string `env:"SERVER_HOST" default:"0.0.0.0"`

	// Port is the port to listen on (default: 8080)
	Port int `env:"SERVER_PORT" default:"8080"`

	// ReadTimeout is the maximum duration for reading a request body (default: 30s)
	ReadTimeout time.Duration `env:"SERVER_READ_TIMEOUT" default:"30s"`

	// WriteTimeout is the maximum duration for writing a response (default: 60s)
	WriteTimeout time.Duration `env:"SERVER_WRITE_TIMEOUT" default:"60s"`

	// IdleTimeout is the keep-alive timeout (default: 60s)
	IdleTimeout time.Duration `env:"SERVER_IDLE_TIMEOUT" default:"60s"`

	// ShutdownTimeout is the maximum wait for graceful shutdown (default: 30s)
	ShutdownTimeout time.Duration `env:"SERVER_SHUTDOWN_TIMEOUT" default:"30s"`

	// RequestTimeout is the middleware timeout for requests (default: 120s;
	// loads of large files run inside a request)
	RequestTimeout time.Duration `env:"SERVER_REQUEST_TIMEOUT" default:"120s"`
}

// DatabaseConfig holds warehouse connection settings.
type DatabaseConfig struct {
	// URL is the PostgreSQL connection string (required)
	URL string `env:"DATABASE_URL" envAlt:"WAREHOUSE_URL" required:"true"`

	// MaxConns is the maximum number of pooled connections (default: 20)
	MaxConns int `env:"DB_MAX_CONNS" default:"20"`

	// MinConns is the minimum number of connections kept open (default: 4)
	MinConns int `env:"DB_MIN_CONNS" default:"4"`

	// Migrate runs embedded schema migrations on startup (default: true)
	Migrate bool `env:"DB_MIGRATE" default:"true"`
}

// StorageConfig holds raw object storage settings.
type StorageConfig struct {
	// Driver selects the object store backend: "minio" or "fs" (default: minio)
	Driver string `env:"STORAGE_DRIVER" default:"minio"`

	// Endpoint is the MinIO/S3 host:port (default: localhost:9000)
	Endpoint string `env:"MINIO_ENDPOINT" default:"localhost:9000"`

	// AccessKey authenticates against MinIO (required for the minio driver)
	AccessKey string `env:"MINIO_ACCESS_KEY"`

	// SecretKey authenticates against MinIO (required for the minio driver)
	SecretKey string `env:"MINIO_SECRET_KEY"`

	// Secure enables TLS for the MinIO connection (default: false)
	Secure bool `env:"MINIO_SECURE" default:"false"`

	// Region is passed to the MinIO client (default: us-east-1)
	Region string `env:"MINIO_REGION" default:"us-east-1"`

	// Bucket is the raw-file bucket (default: raw)
	Bucket string `env:"STORAGE_BUCKET" envAlt:"MINIO_BUCKET_RAW" default:"raw"`

	// FSRoot is the root directory for the fs driver (default: ./data/objects)
	FSRoot string `env:"STORAGE_FS_ROOT" default:"./data/objects"`
}

// IngestConfig holds upload and load pipeline settings.
type IngestConfig struct {
	// MaxFileSize is the maximum accepted upload size in bytes (default: 100MB)
	MaxFileSize int64 `env:"INGEST_MAX_FILE_SIZE" default:"104857600"`

	// BatchSize is the number of rows per bronze insert batch (default: 5000)
	BatchSize int `env:"INGEST_BATCH_SIZE" default:"5000"`

	// SourcePrefix is the key prefix for uploaded objects (default: letterboxd)
	SourcePrefix string `env:"INGEST_SOURCE_PREFIX" default:"letterboxd"`

	// MaxConcurrentLoads bounds parallel bronze loads (default: 4)
	MaxConcurrentLoads int `env:"INGEST_MAX_CONCURRENT_LOADS" default:"4"`

	// LoadWait is how long a load waits for a free slot (default: 30s)
	LoadWait time.Duration `env:"INGEST_LOAD_WAIT" default:"30s"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	// Level is the minimum log level: debug, info, warn, error (default: info)
	Level string `env:"LOG_LEVEL" default:"info"`

	// Format is the log format: text or json (default: text)
	Format string `env:"LOG_FORMAT" default:"text"`
}

// Addr returns the server listen address in host:port format.
func (c *ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// Validate checks that the configuration is valid.
// Returns an error describing all validation failures.
func (c *Config) Validate() error {
	var errs []string

	if c.Database.URL == "" {
		errs = append(errs, "DATABASE_URL is required")
	}
	if c.Database.MaxConns <= 0 {
		errs = append(errs, "DB_MAX_CONNS must be positive")
	}
	if c.Database.MinConns < 0 {
		errs = append(errs, "DB_MIN_CONNS must be non-negative")
	}
	if c.Database.MaxConns < c.Database.MinConns {
		errs = append(errs, fmt.Sprintf("DB_MAX_CONNS (%d) must be >= DB_MIN_CONNS (%d)",
			c.Database.MaxConns, c.Database.MinConns))
	}

	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		errs = append(errs, fmt.Sprintf("SERVER_PORT (%d) must be 1-65535", c.Server.Port))
	}
	if c.Server.ShutdownTimeout <= 0 {
		errs = append(errs, "SERVER_SHUTDOWN_TIMEOUT must be positive")
	}

	switch strings.ToLower(c.Storage.Driver) {
	case "minio":
		if c.Storage.AccessKey == "" || c.Storage.SecretKey == "" {
			errs = append(errs, "MINIO_ACCESS_KEY and MINIO_SECRET_KEY are required for the minio storage driver")
		}
	case "fs":
		if c.Storage.FSRoot == "" {
			errs = append(errs, "STORAGE_FS_ROOT is required for the fs storage driver")
		}
	default:
		errs = append(errs, fmt.Sprintf("STORAGE_DRIVER (%q) must be one of: minio, fs", c.Storage.Driver))
	}
	if c.Storage.Bucket == "" {
		errs = append(errs, "STORAGE_BUCKET must not be empty")
	}

	if c.Ingest.MaxFileSize <= 0 {
		errs = append(errs, "INGEST_MAX_FILE_SIZE must be positive")
	}
	if c.Ingest.BatchSize <= 0 {
		errs = append(errs, "INGEST_BATCH_SIZE must be positive")
	}
	if c.Ingest.SourcePrefix == "" {
		errs = append(errs, "INGEST_SOURCE_PREFIX must not be empty")
	}

	validLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLevels[strings.ToLower(c.Logging.Level)] {
		errs = append(errs, fmt.Sprintf("LOG_LEVEL (%q) must be one of: debug, info, warn, error", c.Logging.Level))
	}

	validFormats := map[string]bool{"text": true, "json": true}
	if !validFormats[strings.ToLower(c.Logging.Format)] {
		errs = append(errs, fmt.Sprintf("LOG_FORMAT (%q) must be one of: text, json", c.Logging.Format))
	}

	if len(errs) > 0 {
		return fmt.Errorf("validation failed:\n  - %s", strings.Join(errs, "\n  - "))
	}

	return nil
}

// String returns a safe string representation of the config for logging.
// Credentials and connection strings are masked.
func (c *Config) String() string {
	var b strings.Builder
	b.WriteString("Config{")
	b.WriteString(fmt.Sprintf("Server: {Host: %q, Port: %d}, ", c.Server.Host, c.Server.Port))
	b.WriteString(fmt.Sprintf("Database: {URL: [MASKED], MaxConns: %d, MinConns: %d, Migrate: %v}, ",
		c.Database.MaxConns, c.Database.MinConns, c.Database.Migrate))
	b.WriteString(fmt.Sprintf("Storage: {Driver: %q, Endpoint: %q, Bucket: %q, Credentials: [MASKED]}, ",
		c.Storage.Driver, c.Storage.Endpoint, c.Storage.Bucket))
	b.WriteString(fmt.Sprintf("Ingest: {MaxFileSize: %d, BatchSize: %d, SourcePrefix: %q}, ",
		c.Ingest.MaxFileSize, c.Ingest.BatchSize, c.Ingest.SourcePrefix))
	b.WriteString(fmt.Sprintf("Logging: {Level: %q, Format: %q}",
		c.Logging.Level, c.Logging.Format))
	b.WriteString("}")
	return b.String()
}
