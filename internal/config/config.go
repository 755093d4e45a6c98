// Package config loads plugscan configuration from YAML, environment and
// command-line overrides.
package config

// Config is the complete plugscan configuration.
type Config struct {
	Database  string          `yaml:"database" mapstructure:"database" validate:"required"`
	Format    string          `yaml:"format" mapstructure:"format" validate:"oneof=json text"`
	Logging   LoggingConfig   `yaml:"logging" mapstructure:"logging"`
	Discovery DiscoveryConfig `yaml:"discovery" mapstructure:"discovery"`
}

// LoggingConfig controls the structured logger.
type LoggingConfig struct {
	Level      string `yaml:"level" mapstructure:"level" validate:"oneof=debug info warn error"`
	Format     string `yaml:"format" mapstructure:"format" validate:"oneof=json text"`
	Output     string `yaml:"output" mapstructure:"output" validate:"required"` // stdout, stderr, none, or a file path
	MaxSizeMB  int    `yaml:"max_size_mb" mapstructure:"max_size_mb" validate:"gte=0"`
	MaxBackups int    `yaml:"max_backups" mapstructure:"max_backups" validate:"gte=0"`
	MaxAgeDays int    `yaml:"max_age_days" mapstructure:"max_age_days" validate:"gte=0"`
	Compress   bool   `yaml:"compress" mapstructure:"compress"`
}

// DiscoveryConfig sets defaults for discovery commands.
type DiscoveryConfig struct {
	Formats  []string `yaml:"formats" mapstructure:"formats" validate:"dive,oneof=php java risor manifest"`
	Relation string   `yaml:"relation" mapstructure:"relation" validate:"oneof=implements extends inherits"`
}

// DefaultConfig returns a configuration with all defaults applied.
func DefaultConfig() *Config {
	return &Config{
		Database: ":memory:",
		Format:   "json",
		Logging: LoggingConfig{
			Level:      "warn",
			Format:     "text",
			Output:     "stderr",
			MaxSizeMB:  10,
			MaxBackups: 3,
			MaxAgeDays: 28,
		},
		Discovery: DiscoveryConfig{
			Formats:  []string{"php", "java", "risor", "manifest"},
			Relation: "implements",
		},
	}
}
