package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all application configuration.
type Config struct {
	Server  ServerConfig
	DB      DBConfig
	Storage StorageConfig
	Render  RenderConfig
	Ingest  IngestConfig
	Log     LogConfig
	CORS    CORSConfig
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Port         string        `mapstructure:"port"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
	Environment  string        `mapstructure:"environment"`
}

// DBConfig holds PostgreSQL connection settings.
type DBConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
	Name     string `mapstructure:"name"`
	SSLMode  string `mapstructure:"sslmode"`
	MaxOpen  int    `mapstructure:"max_open"`
	MaxIdle  int    `mapstructure:"max_idle"`
}

// DSN returns the PostgreSQL connection string.
func (d *DBConfig) DSN() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=%s",
		d.User, d.Password, d.Host, d.Port, d.Name, d.SSLMode,
	)
}

// StorageConfig holds artifact store settings. Backend selects the
// implementation: "fs" (local directory tree) or "s3".
type StorageConfig struct {
	Backend string   `mapstructure:"backend"`
	Root    string   `mapstructure:"root"`
	S3      S3Config `mapstructure:"s3"`
}

// S3Config holds AWS S3 settings for the s3 storage backend.
type S3Config struct {
	Region    string `mapstructure:"region"`
	Bucket    string `mapstructure:"bucket"`
	Endpoint  string `mapstructure:"endpoint"`
	AccessKey string `mapstructure:"access_key"`
	SecretKey string `mapstructure:"secret_key"`
	Prefix    string `mapstructure:"prefix"`
}

// RenderConfig holds headless PDF rendering settings.
type RenderConfig struct {
	Timeout  time.Duration `mapstructure:"timeout"`
	ExecPath string        `mapstructure:"exec_path"`
}

// IngestConfig holds ingestion batch settings.
type IngestConfig struct {
	MaxFileSizeMB int64         `mapstructure:"max_file_size_mb"`
	Concurrency   int           `mapstructure:"concurrency"`
	JobRetention  time.Duration `mapstructure:"job_retention"`
}

// LogConfig holds logging settings.
type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// CORSConfig holds CORS settings.
type CORSConfig struct {
	AllowedOrigins []string `mapstructure:"allowed_origins"`
}

// Load reads configuration from environment variables with the FATTURA_ prefix.
func Load() (*Config, error) {
	v := viper.New()
	v.SetEnvPrefix("FATTURA")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Server defaults
	v.SetDefault("server.port", ":8080")
	v.SetDefault("server.read_timeout", "15s")
	v.SetDefault("server.write_timeout", "0") // SSE streams must not be cut off
	v.SetDefault("server.environment", "development")

	// DB defaults
	v.SetDefault("db.host", "localhost")
	v.SetDefault("db.port", 5432)
	v.SetDefault("db.user", "fattura")
	v.SetDefault("db.password", "fattura_secret")
	v.SetDefault("db.name", "fattura_db")
	v.SetDefault("db.sslmode", "disable")
	v.SetDefault("db.max_open", 25)
	v.SetDefault("db.max_idle", 5)

	// Storage defaults
	v.SetDefault("storage.backend", "fs")
	v.SetDefault("storage.root", "./data/artifacts")
	v.SetDefault("storage.s3.region", "eu-south-1")
	v.SetDefault("storage.s3.prefix", "artifacts")

	// Render defaults. Headless rendering can hang on malformed HTML, so the
	// call always carries a bounded timeout.
	v.SetDefault("render.timeout", "30s")
	v.SetDefault("render.exec_path", "")

	// Ingest defaults
	v.SetDefault("ingest.max_file_size_mb", 10)
	v.SetDefault("ingest.concurrency", 4)
	v.SetDefault("ingest.job_retention", "5m")

	// Log defaults
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "console")

	// CORS defaults
	v.SetDefault("cors.allowed_origins", []string{"http://localhost:3000", "http://127.0.0.1:3000"})

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshaling config: %w", err)
	}

	if cfg.Storage.Backend != "fs" && cfg.Storage.Backend != "s3" {
		return nil, fmt.Errorf("unknown storage backend %q (use fs or s3)", cfg.Storage.Backend)
	}

	return &cfg, nil
}
