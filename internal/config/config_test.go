package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, ":8080", cfg.Server.Port)
	assert.Equal(t, time.Duration(0), cfg.Server.WriteTimeout, "SSE requires no write timeout")
	assert.Equal(t, "fs", cfg.Storage.Backend)
	assert.Equal(t, int64(10), cfg.Ingest.MaxFileSizeMB)
	assert.Equal(t, 4, cfg.Ingest.Concurrency)
	assert.Equal(t, 5*time.Minute, cfg.Ingest.JobRetention)
	assert.Equal(t, 30*time.Second, cfg.Render.Timeout)
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("FATTURA_SERVER_PORT", ":9090")
	t.Setenv("FATTURA_DB_HOST", "db.internal")
	t.Setenv("FATTURA_INGEST_CONCURRENCY", "8")
	t.Setenv("FATTURA_STORAGE_BACKEND", "s3")
	t.Setenv("FATTURA_STORAGE_S3_BUCKET", "fatture-prod")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, ":9090", cfg.Server.Port)
	assert.Equal(t, "db.internal", cfg.DB.Host)
	assert.Equal(t, 8, cfg.Ingest.Concurrency)
	assert.Equal(t, "s3", cfg.Storage.Backend)
	assert.Equal(t, "fatture-prod", cfg.Storage.S3.Bucket)
}

func TestLoad_RejectsUnknownBackend(t *testing.T) {
	t.Setenv("FATTURA_STORAGE_BACKEND", "gcs")

	_, err := Load()
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "storage backend")
}

func TestDSN(t *testing.T) {
	d := DBConfig{
		Host: "localhost", Port: 5432,
		User: "fattura", Password: "pw",
		Name: "fattura_db", SSLMode: "disable",
	}
	assert.Equal(t, "postgres://fattura:pw@localhost:5432/fattura_db?sslmode=disable", d.DSN())
}
