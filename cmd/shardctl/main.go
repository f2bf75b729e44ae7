// Package main implements the shardctl CLI.
package main

import (
	"fmt"
	"os"

	"shardctl/internal/config"
	"shardctl/internal/logging"
	"shardctl/internal/runner"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var (
	// Global flags
	verbose    bool
	configPath string

	// Loaded configuration, available to all commands
	cfg *config.Config

	// Logger
	logger *zap.Logger
)

// rootCmd represents the base command
var rootCmd = &cobra.Command{
	Use:   "shardctl",
	Short: "shardctl - keep the request-sharding config generated and the proxy reloaded",
	Long: `shardctl keeps an nginx request-sharding configuration correctly
generated across two deployment roots ("current" and "next") and reloads
the proxy exactly once per relevant change.

It owns two artifacts (the proxy-variable fragment and the shard map),
creating each once with default content and never overwriting it, and it
runs the deployment's own generation script when the operator config
changes.`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		// Initialize logger
		zapCfg := zap.NewProductionConfig()
		if verbose {
			zapCfg.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
		}
		var err error
		logger, err = zapCfg.Build()
		if err != nil {
			return fmt.Errorf("failed to initialize logger: %w", err)
		}

		cfg, err = config.LoadOrDefault(configPath)
		if err != nil {
			return err
		}

		return logging.Initialize(logging.Options{
			DebugMode:  cfg.Logging.DebugMode,
			Dir:        cfg.Logging.Dir,
			Categories: cfg.Logging.Categories,
			Level:      cfg.Logging.Level,
		})
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if logger != nil {
			_ = logger.Sync()
		}
		logging.CloseAll()
	},
	RunE: func(cmd *cobra.Command, args []string) error {
		return cmd.Help()
	},
}

// newRunner builds the shared script runner, wiring the audit log when
// configured.
func newRunner() (*runner.Runner, func()) {
	r := runner.New(runner.Config{DefaultTimeout: cfg.Deploy.ScriptTimeoutDuration()})

	cleanup := func() {}
	if cfg.Deploy.AuditLog != "" {
		audit, err := runner.OpenAuditLog(cfg.Deploy.AuditLog)
		if err != nil {
			logger.Warn("audit log unavailable", zap.Error(err))
		} else {
			r.SetAuditSink(audit.Record)
			cleanup = func() { _ = audit.Close() }
		}
	}
	return r, cleanup
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "/etc/shardctl/config.yaml", "path to shardctl config")

	rootCmd.AddCommand(syncCmd)
	rootCmd.AddCommand(materializeCmd)
	rootCmd.AddCommand(generateCmd)
	rootCmd.AddCommand(watchCmd)
	rootCmd.AddCommand(statusCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
