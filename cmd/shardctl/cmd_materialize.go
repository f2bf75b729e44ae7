package main

import (
	"shardctl/internal/materialize"
	"shardctl/internal/notify"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// materializeCmd ensures the managed artifacts exist
var materializeCmd = &cobra.Command{
	Use:   "materialize",
	Short: "Ensure the sharding artifacts exist with default content",
	Long: `Creates the proxy-variable fragment and the shard map file with
their default content if absent. Existing files are never modified,
whatever their content. The proxy is reloaded only when a file was
actually created.`,
	RunE: runMaterialize,
}

func runMaterialize(cmd *cobra.Command, args []string) error {
	mat, err := materialize.New(cfg.Artifacts)
	if err != nil {
		return err
	}

	created, err := mat.Run()
	if err != nil {
		return err
	}
	if len(created) == 0 {
		logger.Info("all artifacts already present")
		return nil
	}

	logger.Info("artifacts created", zap.Strings("paths", created))

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
