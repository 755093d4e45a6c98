package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/jward/plugscan"
	"github.com/jward/plugscan/internal/config"
	"github.com/jward/plugscan/internal/logger"
	"github.com/jward/plugscan/internal/output"
)

var (
	flagConfig   string
	flagDB       string
	flagFormat   string
	flagLogLevel string
)

var (
	cfg *config.Config
	log *logger.Logger
)

// stdout is where results are written. Tests replace it.
var stdout io.Writer = os.Stdout

// errorHandled is set by outputError so main() doesn't double-print.
var errorHandled bool

func main() {
	if err := rootCmd.Execute(); err != nil {
		if !errorHandled {
			fmt.Fprintf(os.Stderr, "Error: %s\n", err)
		}
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:           "plugscan",
	Short:         "Capability-based plugin type discovery",
	Long:          "plugscan loads PHP, Java, Risor and manifest units into a type registry and reports which newly loaded types satisfy a capability.",
	SilenceErrors: true,
	SilenceUsage:  true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		return setup()
	},
	PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
		if log != nil {
			_ = log.Sync()
		}
		return nil
	},
	// No Run: prints help by default.
}

func init() {
	rootCmd.PersistentFlags().StringVar(&flagConfig, "config", "", "config file (YAML)")
	rootCmd.PersistentFlags().StringVar(&flagDB, "db", "", "registry database path (default :memory:)")
	rootCmd.PersistentFlags().StringVar(&flagFormat, "format", "", "output format: json|text (default json)")
	rootCmd.PersistentFlags().StringVar(&flagLogLevel, "log-level", "", "log level: debug|info|warn|error")

	rootCmd.AddCommand(discoverCmd)
	rootCmd.AddCommand(checkCmd)
	rootCmd.AddCommand(hierarchyCmd)
	rootCmd.AddCommand(typesCmd)
	rootCmd.AddCommand(unitsCmd)
	rootCmd.AddCommand(contractsCmd)
	rootCmd.AddCommand(schemaCmd)
}

// setup loads configuration, applies flag overrides and builds the logger.
func setup() error {
	c, err := config.Load(flagConfig)
	if err != nil {
		return err
	}
	c.ApplyOverrides(flagDB, flagFormat, flagLogLevel)
	if err := validateFormat(c.Format); err != nil {
		return err
	}
	if err := c.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	l, err := logger.New(&c.Logging)
	if err != nil {
		return fmt.Errorf("creating logger: %w", err)
	}
	cfg, log = c, l
	return nil
}

// openEngine creates an Engine from the loaded configuration. Unit output
// goes to stderr so it never mixes with results.
func openEngine() (*plugscan.Engine, error) {
	if cfg.Database != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(cfg.Database), 0o755); err != nil {
			return nil, fmt.Errorf("creating %s: %w", filepath.Dir(cfg.Database), err)
		}
	}
	e, err := plugscan.New(cfg.Database,
		plugscan.WithLogger(log),
		plugscan.WithFormats(cfg.Discovery.Formats...),
		plugscan.WithOutput(output.New(os.Stderr)),
	)
	if err != nil {
		return nil, fmt.Errorf("creating engine: %w", err)
	}
	return e, nil
}

// loadPatterns loads every file matched by patterns before a query. Units
// that fail to load are logged and skipped.
func loadPatterns(ctx context.Context, e *plugscan.Engine, patterns []string) error {
	if len(patterns) == 0 {
		return nil
	}
	before, err := e.Snapshot()
	if err != nil {
		return err
	}
	for _, pattern := range patterns {
		matches, err := filepath.Glob(pattern)
		if err != nil {
			return fmt.Errorf("pattern %q: %w", pattern, err)
		}
		for _, path := range matches {
			if info, err := os.Stat(path); err != nil || !info.Mode().IsRegular() {
				continue
			}
			if _, err := e.Load(ctx, path); err != nil {
				log.WithUnit(path).Warnw("unit not loaded", "error", err)
			}
		}
	}
	after, err := e.Snapshot()
	if err != nil {
		return err
	}
	log.Infow("units loaded", "new_types", plugscan.Diff(before, after))
	return nil
}
