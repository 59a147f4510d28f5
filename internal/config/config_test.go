package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestParse_Defaults(t *testing.T) {
	opts, err := Parse(nil)
	require.NoError(t, err)

	assert.Equal(t, "localhost:8080", opts.Port)
	assert.Equal(t, StorageFile, opts.Storage)
	assert.Equal(t, "qatm-data.json", opts.DataFile)
	assert.Equal(t, "info", opts.LogLevel)
	assert.Equal(t, "qatm", opts.JWTIssuer)
	assert.Equal(t, 24*time.Hour, opts.JWTTTL)
	assert.Equal(t, 30*24*time.Hour, opts.BackupRetention)
	assert.Equal(t, int64(10<<20), opts.MaxUploadBytes)
	assert.Empty(t, opts.JWTSecret)
	assert.False(t, opts.TLSEnabled())
}

func TestParse_Precedence(t *testing.T) {
	path := writeFile(t, "config.yaml", `
port: "file:1"
storage: memory
log_level: debug
backup_interval: 2h
`)

	t.Run("file over defaults", func(t *testing.T) {
		opts, err := Parse([]string{"-c", path})
		require.NoError(t, err)
		assert.Equal(t, "file:1", opts.Port)
		assert.Equal(t, StorageMemory, opts.Storage)
		assert.Equal(t, "debug", opts.LogLevel)
		assert.Equal(t, 2*time.Hour, opts.BackupInterval)
		assert.Equal(t, "qatm-data.json", opts.DataFile)
		assert.Equal(t, path, opts.Config)
	})

	t.Run("env over file", func(t *testing.T) {
		t.Setenv("SERVER_ADDRESS", "env:2")
		opts, err := Parse([]string{"-config", path})
		require.NoError(t, err)
		assert.Equal(t, "env:2", opts.Port)
		assert.Equal(t, StorageMemory, opts.Storage)
	})

	t.Run("flags over env", func(t *testing.T) {
		t.Setenv("SERVER_ADDRESS", "env:2")
		opts, err := Parse([]string{"-c", path, "-a", "flag:3", "-backup-interval", "5m"})
		require.NoError(t, err)
		assert.Equal(t, "flag:3", opts.Port)
		assert.Equal(t, 5*time.Minute, opts.BackupInterval)
	})

	t.Run("CONFIG env selects the file", func(t *testing.T) {
		t.Setenv("CONFIG", path)
		opts, err := Parse(nil)
		require.NoError(t, err)
		assert.Equal(t, "file:1", opts.Port)
	})
}

func TestParse_JSONFile(t *testing.T) {
	path := writeFile(t, "config.json", `{"storage":"postgres","database_dsn":"postgres://localhost/qatm"}`)

	opts, err := Parse([]string{"-c", path})
	require.NoError(t, err)
	assert.Equal(t, StoragePostgres, opts.Storage)
	assert.Equal(t, "postgres://localhost/qatm", opts.DatabaseDSN)
}

func TestParse_Errors(t *testing.T) {
	tests := []struct {
		name string
		args []string
	}{
		{"missing explicit file", []string{"-c", filepath.Join(t.TempDir(), "nope.yaml")}},
		{"unknown flag", []string{"-zzz"}},
		{"unknown storage", []string{"-s", "redis"}},
		{"postgres without dsn", []string{"-s", "postgres"}},
		{"half tls", []string{"-tls-cert", "server.crt"}},
		{"non-positive ttl", []string{"-jwt-ttl", "0s"}},
		{"backup without interval", []string{"-backup-dir", "/tmp/b", "-backup-interval", "0s"}},
		{"backup without retention", []string{"-backup-dir", "/tmp/b", "-backup-retention", "0s"}},
		{"backup with negative retention", []string{"-backup-dir", "/tmp/b", "-backup-retention", "-1h"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse(tt.args)
			assert.Error(t, err)
		})
	}
}

func TestOptions_ValidateBackupRetention(t *testing.T) {
	opts, err := Parse([]string{"-s", "memory", "-backup-retention", "0s"})
	require.NoError(t, err, "retention is ignored while backups are off")
	assert.Zero(t, opts.BackupRetention)

	opts.BackupDir = t.TempDir()
	assert.ErrorContains(t, opts.Validate(), "backup retention must be positive")

	opts.BackupRetention = time.Hour
	assert.NoError(t, opts.Validate())
}

func TestOptions_TLSEnabled(t *testing.T) {
	opts, err := Parse([]string{"-tls-cert", "server.crt", "-tls-key", "server.key"})
	require.NoError(t, err)
	assert.True(t, opts.TLSEnabled())
}
