package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, data string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(data), 0o600))
	return path
}

func TestLoadAppliesDefaults(t *testing.T) {
	path := writeConfig(t, `
monitor:
  interval: 250ms
logging:
  log_level: debug
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 250*time.Millisecond, cfg.Monitor.Interval)
	assert.Equal(t, SourceSimulated, cfg.Monitor.Source)
	assert.Equal(t, 30*time.Millisecond, cfg.Monitor.EchoTimeout)
	assert.Equal(t, "debug", cfg.Logging.LogLevel)
	assert.Equal(t, "monitor.log", cfg.Logging.LogFile)
	assert.Equal(t, "stdout", cfg.Logging.Console)
	assert.Equal(t, "/metrics", cfg.Metrics.Path)
	assert.Empty(t, cfg.Metrics.Addr)
	assert.Equal(t, 4, cfg.Scan.Workers)
	assert.Equal(t, []string{".csv", ".txt", ".log"}, cfg.Scan.Extensions)
	assert.ErrorIs(t, cfg.ValidateDatabase(), ErrNoDatabase)
}

func TestLoadMissingExplicitFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	assert.Error(t, err)
}

func TestLoadRejectsReplayWithoutFile(t *testing.T) {
	path := writeConfig(t, `
monitor:
  source: replay
`)
	_, err := Load(path)
	assert.ErrorContains(t, err, "replay_file")
}

func TestLoadValidatesDatabase(t *testing.T) {
	path := writeConfig(t, `
database:
  driver: postgres
  postgres:
    host: localhost
`)
	_, err := Load(path)
	assert.ErrorContains(t, err, "postgres user is required")

	path = writeConfig(t, `
database:
  driver: oracle
`)
	_, err = Load(path)
	assert.ErrorContains(t, err, "unsupported database driver")
}

func TestGetDSN(t *testing.T) {
	cfg := &Config{Database: DatabaseConfig{
		Driver: "postgres",
		PostgreSQL: PostgresConfig{
			Host: "db", Port: 5432, User: "u", Password: "p", DBName: "plant", SSLMode: "disable", TimeZone: "UTC",
		},
	}}
	assert.Equal(t, "host=db port=5432 user=u password=p dbname=plant sslmode=disable TimeZone=UTC", cfg.GetDSN())

	cfg.Database = DatabaseConfig{Driver: "sqlite", SQLite: SQLiteConfig{Path: "plant.db"}}
	assert.Equal(t, "plant.db", cfg.GetDSN())
	assert.NoError(t, cfg.ValidateDatabase())
}
