package main

import (
	"shardctl/internal/notify"
	"shardctl/internal/sharding"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var generateNoReload bool

// generateCmd runs the built-in sharding generator
var generateCmd = &cobra.Command{
	Use:   "generate",
	Short: "Regenerate the sharding artifacts from the operator config",
	Long: `Reads the sharding section of the operator configuration and
rewrites the proxy-variable fragment and the shard map. Writes are
atomic and skipped when the rendered content is byte-identical to what
is already on disk; the proxy is reloaded only on an actual change.

This is the built-in equivalent of the per-deployment generation
script, for hosts where no deployment root carries one.`,
	RunE: runGenerate,
}

func init() {
	generateCmd.Flags().BoolVar(&generateNoReload, "no-reload", false, "skip the proxy reload even if artifacts changed")
}

func runGenerate(cmd *cobra.Command, args []string) error {
	gen := sharding.NewGenerator(cfg.Sharding, cfg.Artifacts)
	changed, err := gen.Run()
	if err != nil {
		return err
	}
	if !changed {
		logger.Info("sharding artifacts already up to date")
		return nil
	}

	logger.Info("sharding artifacts regenerated")
	if generateNoReload {
		return nil
	}

	r, cleanup := newRunner()
	defer cleanup()
	notifier, err := notify.NewServiceNotifier(r, cfg.Reload.Command)
	if err != nil {
		return err
	}
	if err := notifier.Notify(cmd.Context()); err != nil {
		logger.Warn("proxy reload failed", zap.Error(err))
	}
	return nil
}
