package deploy

import (
	"context"
	"errors"
	"fmt"

	"shardctl/internal/config"
	"shardctl/internal/logging"
	"shardctl/internal/runner"
)

// ScriptError reports a failed generation script invocation.
type ScriptError struct {
	Root     string // "current" or "next"
	Path     string
	ExitCode int
	Err      error
}

func (e *ScriptError) Error() string {
	return fmt.Sprintf("generation script for %s root failed: %s (exit %d): %v; fix the deployment under that root and re-run",
		e.Root, e.Path, e.ExitCode, e.Err)
}

func (e *ScriptError) Unwrap() error { return e.Err }

// Watcher evaluates the per-root guards and invokes the generation
// scripts that own the sharding artifacts.
type Watcher struct {
	cfg    config.DeployConfig
	runner *runner.Runner
	prober Prober
}

// NewWatcher builds a Watcher. A nil prober defaults to the real
// filesystem.
func NewWatcher(cfg config.DeployConfig, r *runner.Runner, prober Prober) *Watcher {
	if prober == nil {
		prober = FSProber{}
	}
	return &Watcher{cfg: cfg, runner: r, prober: prober}
}

// Evaluation records what one Evaluate pass did.
type Evaluation struct {
	State      State
	RanCurrent bool
	RanNext    bool
}

// Evaluate computes the deployment state and runs the scripts whose
// guards fire. Each root is evaluated independently; a failure in one
// does not suppress the other. Errors from both are joined.
func (w *Watcher) Evaluate(ctx context.Context) (Evaluation, error) {
	state := ComputeState(w.prober, w.cfg.CurrentScript(), w.cfg.NextScript())
	eval := Evaluation{State: state}
	logging.Deploy("deployment state: %s", state)

	var errs []error
	if state.RunCurrent() {
		if err := w.runScript(ctx, w.cfg.CurrentName, w.cfg.CurrentScript()); err != nil {
			errs = append(errs, err)
		} else {
			eval.RanCurrent = true
		}
	}
	if state.RunNext() {
		if err := w.runScript(ctx, w.cfg.NextName, w.cfg.NextScript()); err != nil {
			errs = append(errs, err)
		} else {
			eval.RanNext = true
		}
	}
	return eval, errors.Join(errs...)
}

func (w *Watcher) runScript(ctx context.Context, root, script string) error {
	// The guard saw the script; it vanishing now is a deployment-state
	// inconsistency worth surfacing distinctly.
	if !w.prober.Exists(script) {
		return &ScriptError{
			Root:     root,
			Path:     script,
			ExitCode: -1,
			Err:      fmt.Errorf("script disappeared between probe and invocation"),
		}
	}

	logging.Deploy("running generation script for %s root: %s", root, script)
	result, err := w.runner.Run(ctx, runner.Command{
		Binary:  script,
		Timeout: w.cfg.ScriptTimeoutDuration(),
	})
	if err != nil {
		exitCode := -1
		if result != nil {
			exitCode = result.ExitCode
			if result.Stderr != "" {
				logging.Get(logging.CategoryDeploy).Error("script stderr: %s", result.Stderr)
			}
		}
		return &ScriptError{Root: root, Path: script, ExitCode: exitCode, Err: err}
	}
	logging.Deploy("generation script for %s root succeeded in %s", root, result.Duration)
	return nil
}
