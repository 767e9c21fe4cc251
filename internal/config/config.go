// Package config loads fluxproc settings from the environment.
//
// Variables use the FLUXPROC_ prefix and "__" between nesting levels, so
// FLUXPROC_DATABASE__DSN maps to Config.Database.DSN. A .env file in the
// working directory is loaded first when present.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	_ "github.com/joho/godotenv/autoload"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/v2"
)

const envPrefix = "FLUXPROC_"

// Config is the root configuration.
type Config struct {
	Database DatabaseConfig `koanf:"database" validate:"required"`
	Export   ExportConfig   `koanf:"export" validate:"required"`
	Log      LogConfig      `koanf:"log" validate:"required"`
}

// DatabaseConfig selects the dialect and tunes the connection pool.
type DatabaseConfig struct {
	// Dialect is one of mysql, postgres, pgx, sqlserver (or mssql).
	Dialect string `koanf:"dialect" validate:"required,oneof=mysql postgres pgx sqlserver mssql"`
	DSN     string `koanf:"dsn" validate:"required"`
	// Isolation is the default level for --tx runs (e.g. "read-committed").
	Isolation       string        `koanf:"isolation"`
	MaxOpenConns    int           `koanf:"max_open_conns" validate:"gte=0"`
	MaxIdleConns    int           `koanf:"max_idle_conns" validate:"gte=0"`
	ConnMaxLifetime time.Duration `koanf:"conn_max_lifetime"`
	ConnMaxIdleTime time.Duration `koanf:"conn_max_idle_time"`
	// Timeout bounds a single CLI invocation.
	Timeout time.Duration `koanf:"timeout" validate:"gt=0"`
}

// ExportConfig controls where and how exports are written.
type ExportConfig struct {
	// Storage is "local" or "s3".
	Storage     string   `koanf:"storage" validate:"required,oneof=local s3"`
	LocalPath   string   `koanf:"local_path" validate:"required_if=Storage local"`
	Format      string   `koanf:"format" validate:"required,oneof=csv json excel pdf"`
	Compression bool     `koanf:"compression"`
	S3          S3Config `koanf:"s3"`
}

// S3Config configures the S3 storage provider. Endpoint and PathStyle are
// for S3-compatible providers such as MinIO.
type S3Config struct {
	Bucket          string `koanf:"bucket"`
	Region          string `koanf:"region"`
	Endpoint        string `koanf:"endpoint"`
	PathStyle       bool   `koanf:"path_style"`
	AccessKeyID     string `koanf:"access_key_id"`
	SecretAccessKey string `koanf:"secret_access_key"`
}

// LogConfig configures the zerolog logger.
type LogConfig struct {
	Level  string `koanf:"level" validate:"required,oneof=trace debug info warn error disabled"`
	Pretty bool   `koanf:"pretty"`
}

// Default returns the configuration used when no variable overrides a key.
func Default() Config {
	return Config{
		Database: DatabaseConfig{
			Dialect:         "mysql",
			MaxOpenConns:    4,
			MaxIdleConns:    2,
			ConnMaxLifetime: 30 * time.Minute,
			ConnMaxIdleTime: 5 * time.Minute,
			Timeout:         15 * time.Minute,
		},
		Export: ExportConfig{
			Storage:   "local",
			LocalPath: "./exports",
			Format:    "csv",
			S3:        S3Config{Region: "us-east-1"},
		},
		Log: LogConfig{
			Level:  "info",
			Pretty: true,
		},
	}
}

// Load reads the environment on top of Default and validates the result.
func Load() (*Config, error) {
	k := koanf.New(".")

	err := k.Load(env.Provider(envPrefix, ".", func(s string) string {
		s = strings.ToLower(strings.TrimPrefix(s, envPrefix))
		return strings.ReplaceAll(s, "__", ".")
	}), nil)
	if err != nil {
		return nil, fmt.Errorf("load environment: %w", err)
	}

	cfg := Default()
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks struct constraints and the cross-field S3 requirements.
func (c *Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	if c.Export.Storage == "s3" && c.Export.S3.Bucket == "" {
		return fmt.Errorf("invalid config: export.s3.bucket is required when export.storage is s3")
	}
	return nil
}
