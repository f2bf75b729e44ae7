package main

import (
	"fmt"
	"os"

	"shardctl/internal/deploy"

	"github.com/spf13/cobra"
)

// statusCmd prints the computed deployment and artifact state
var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show deployment state, artifact presence and trigger state",
	RunE:  runStatus,
}

func runStatus(cmd *cobra.Command, args []string) error {
	out := cmd.OutOrStdout()
	prober := deploy.FSProber{}

	state := deploy.ComputeState(prober, cfg.Deploy.CurrentScript(), cfg.Deploy.NextScript())
	fmt.Fprintf(out, "Deployment state: %s\n", state)
	fmt.Fprintf(out, "  current script: %s (%s)\n", cfg.Deploy.CurrentScript(), presence(prober.Exists(cfg.Deploy.CurrentScript())))
	fmt.Fprintf(out, "  next script:    %s (%s)\n", cfg.Deploy.NextScript(), presence(prober.Exists(cfg.Deploy.NextScript())))

	fmt.Fprintln(out, "Artifacts:")
	for _, path := range []string{cfg.Artifacts.ProxyVariable.Path, cfg.Artifacts.ShardMap.Path} {
		fmt.Fprintf(out, "  %s (%s)\n", path, presence(prober.Exists(path)))
	}

	trigger := deploy.NewTrigger(cfg.Deploy.TriggerFile, cfg.Deploy.StateFile)
	last, err := trigger.Last()
	switch {
	case err == nil:
		fmt.Fprintf(out, "Last evaluation: %s (trigger mtime %s)\n",
			last.EvaluatedAt.Format("2006-01-02 15:04:05"), last.ModTime.Format("2006-01-02 15:04:05"))
	case os.IsNotExist(err):
		fmt.Fprintln(out, "Last evaluation: never")
	default:
		fmt.Fprintf(out, "Last evaluation: unknown (%v)\n", err)
	}

	changed, _, err := trigger.Check()
	if err != nil {
		fmt.Fprintf(out, "Trigger: %v\n", err)
	} else if changed {
		fmt.Fprintln(out, "Trigger: changed since last evaluation (sync pending)")
	} else {
		fmt.Fprintln(out, "Trigger: unchanged")
	}
	return nil
}

func presence(exists bool) string {
	if exists {
		return "present"
	}
	return "absent"
}
