package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	// GIVEN: No config file in the working directory
	t.Chdir(t.TempDir())

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, 15*time.Second, cfg.Server.ReadTimeout)
	assert.Equal(t, "./calendario.db", cfg.Database.Path)
	assert.Equal(t, 30, cfg.Audit.RetentionDays)
	assert.Equal(t, "calendario.audit", cfg.NATS.Subject)
	assert.Empty(t, cfg.NATS.URL)
	assert.GreaterOrEqual(t, cfg.Calendar.Workers, 1)
}

func TestLoad_FileAndEnv(t *testing.T) {
	// GIVEN: A YAML file and an environment override
	path := filepath.Join(t.TempDir(), "calendario.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
server:
  port: 9090
  write_timeout: 30s
database:
  path: /var/lib/calendario/data.db
audit:
  retention_days: 0
calendar:
  workers: 4
`), 0o600))
	t.Setenv("CALENDARIO_LOGGING_LEVEL", "debug")

	// WHEN: Loading it
	cfg, err := Load(path)
	require.NoError(t, err)

	// THEN: File values, env values and defaults all apply
	assert.Equal(t, 9090, cfg.Server.Port)
	assert.Equal(t, 30*time.Second, cfg.Server.WriteTimeout)
	assert.Equal(t, 15*time.Second, cfg.Server.ReadTimeout)
	assert.Equal(t, "/var/lib/calendario/data.db", cfg.Database.Path)
	assert.Equal(t, "debug", cfg.Logging.Level)
	assert.Equal(t, 4, cfg.Calendar.Workers)
	assert.Zero(t, cfg.Audit.RetentionDays)
}

func TestLoad_MissingExplicitFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	valid := func() Config {
		return Config{
			Server:   ServerConfig{Port: 8080, ReadTimeout: time.Second, WriteTimeout: time.Second},
			Database: DatabaseConfig{Path: "x.db"},
			Logging:  LoggingConfig{Level: "info"},
			Calendar: CalendarConfig{Workers: 1},
		}
	}

	cfg := valid()
	require.NoError(t, cfg.Validate())

	cases := map[string]func(*Config){
		"port":      func(c *Config) { c.Server.Port = 0 },
		"db path":   func(c *Config) { c.Database.Path = "" },
		"log level": func(c *Config) { c.Logging.Level = "verbose" },
		"retention": func(c *Config) { c.Audit.RetentionDays = -1 },
		"nats":      func(c *Config) { c.NATS.URL = "nats://localhost:4222" },
		"workers":   func(c *Config) { c.Calendar.Workers = 0 },
	}
	for name, mutate := range cases {
		cfg := valid()
		mutate(&cfg)
		assert.Error(t, cfg.Validate(), name)
	}
}
