package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "plugscan.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestDefaultConfig_Valid(t *testing.T) {
	cfg := DefaultConfig()
	require.NoError(t, cfg.Validate())
	assert.Equal(t, ":memory:", cfg.Database)
	assert.Equal(t, "implements", cfg.Discovery.Relation)
}

func TestLoad_EmptyPathUsesDefaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, DefaultConfig(), cfg)
}

func TestLoad_File(t *testing.T) {
	path := writeConfig(t, `
database: /tmp/registry.db
format: text
logging:
  level: debug
  output: /tmp/plugscan.log
discovery:
  formats: [php]
  relation: inherits
`)
	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "/tmp/registry.db", cfg.Database)
	assert.Equal(t, "text", cfg.Format)
	assert.Equal(t, "debug", cfg.Logging.Level)
	assert.Equal(t, "/tmp/plugscan.log", cfg.Logging.Output)
	assert.Equal(t, 10, cfg.Logging.MaxSizeMB, "unset keys keep defaults")
	assert.Equal(t, []string{"php"}, cfg.Discovery.Formats)
	assert.Equal(t, "inherits", cfg.Discovery.Relation)
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestLoad_EnvOverride(t *testing.T) {
	t.Setenv("PLUGSCAN_LOGGING_LEVEL", "error")
	t.Setenv("PLUGSCAN_DATABASE", "/env/registry.db")

	cfg, err := Load(writeConfig(t, "format: text\n"))
	require.NoError(t, err)
	assert.Equal(t, "error", cfg.Logging.Level)
	assert.Equal(t, "/env/registry.db", cfg.Database)
	assert.Equal(t, "text", cfg.Format)
}

func TestLoad_EnvExpansion(t *testing.T) {
	t.Setenv("PLUGSCAN_TEST_DIR", "/var/lib/plugscan")
	cfg, err := Load(writeConfig(t, "database: ${PLUGSCAN_TEST_DIR}/registry.db\n"))
	require.NoError(t, err)
	assert.Equal(t, "/var/lib/plugscan/registry.db", cfg.Database)
}

func TestExpandEnvVar_Unset(t *testing.T) {
	assert.Equal(t, "${PLUGSCAN_SURELY_UNSET}/x", expandEnvVar("${PLUGSCAN_SURELY_UNSET}/x"))
}

func TestLoadFromViper(t *testing.T) {
	v := viper.New()
	v.Set("format", "text")
	cfg, err := LoadFromViper(v)
	require.NoError(t, err)
	assert.Equal(t, "text", cfg.Format)
	assert.Equal(t, "warn", cfg.Logging.Level)
}

func TestApplyOverrides(t *testing.T) {
	cfg := DefaultConfig()
	cfg.ApplyOverrides("", "text", "debug")
	assert.Equal(t, ":memory:", cfg.Database)
	assert.Equal(t, "text", cfg.Format)
	assert.Equal(t, "debug", cfg.Logging.Level)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		field  string
	}{
		{"bad format", func(c *Config) { c.Format = "xml" }, "Format"},
		{"bad level", func(c *Config) { c.Logging.Level = "trace" }, "Logging.Level"},
		{"empty database", func(c *Config) { c.Database = "" }, "Database"},
		{"negative size", func(c *Config) { c.Logging.MaxSizeMB = -1 }, "Logging.MaxSizeMB"},
		{"bad relation", func(c *Config) { c.Discovery.Relation = "uses" }, "Discovery.Relation"},
		{"bad format name", func(c *Config) { c.Discovery.Formats = []string{"cobol"} }, "Discovery.Formats[0]"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(cfg)
			err := cfg.Validate()
			require.Error(t, err)
			var verrs ValidationErrors
			require.ErrorAs(t, err, &verrs)
			require.Len(t, verrs, 1)
			assert.Equal(t, tt.field, verrs[0].Field)
		})
	}
}
