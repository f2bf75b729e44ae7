// Package pipeline wires the trigger gate, the config materializer, the
// deployment watcher and the reload notifier into the single evaluation
// pass behind `shardctl sync` and `shardctl watch`.
package pipeline

import (
	"context"
	"errors"

	"shardctl/internal/config"
	"shardctl/internal/deploy"
	"shardctl/internal/logging"
	"shardctl/internal/materialize"
	"shardctl/internal/notify"
	"shardctl/internal/runner"
)

// Report describes what one pipeline run did.
type Report struct {
	Skipped          bool // trigger unchanged, nothing evaluated
	State            deploy.State
	ArtifactsCreated bool
	RanCurrent       bool
	RanNext          bool
	Notified         bool
	NotifyErr        error // warning only, never fails the run
}

// Pipeline is one edge-triggered evaluation unit.
type Pipeline struct {
	trigger      *deploy.Trigger
	materializer *materialize.Materializer
	watcher      *deploy.Watcher
	notifier     notify.Notifier
}

// New assembles a pipeline from configuration. The notifier may be
// overridden for tests; nil builds the configured service notifier.
func New(cfg *config.Config, r *runner.Runner, notifier notify.Notifier) (*Pipeline, error) {
	mat, err := materialize.New(cfg.Artifacts)
	if err != nil {
		return nil, err
	}
	if notifier == nil {
		notifier, err = notify.NewServiceNotifier(r, cfg.Reload.Command)
		if err != nil {
			return nil, err
		}
	}
	return &Pipeline{
		trigger:      deploy.NewTrigger(cfg.Deploy.TriggerFile, cfg.Deploy.StateFile),
		materializer: mat,
		watcher:      deploy.NewWatcher(cfg.Deploy, r, nil),
		notifier:     notifier,
	}, nil
}

// Run performs one evaluation. With force false the run is skipped
// unless the trigger file changed since the last committed evaluation.
// The trigger state is committed only after a fully successful run, so
// failures are retried on the next invocation.
func (p *Pipeline) Run(ctx context.Context, force bool) (Report, error) {
	changed, modTime, err := p.trigger.Check()
	if err != nil {
		return Report{}, err
	}
	if !changed && !force {
		logging.Deploy("trigger unchanged, skipping evaluation")
		return Report{Skipped: true}, nil
	}

	report := Report{}
	var errs []error

	created, err := p.materializer.Run()
	if err != nil {
		errs = append(errs, err)
	}
	report.ArtifactsCreated = len(created) > 0

	eval, err := p.watcher.Evaluate(ctx)
	if err != nil {
		errs = append(errs, err)
	}
	report.State = eval.State
	report.RanCurrent = eval.RanCurrent
	report.RanNext = eval.RanNext

	// A script run counts as an artifact change: the script's whole job
	// is regenerating the artifacts.
	if len(created) > 0 || eval.RanCurrent || eval.RanNext {
		if err := p.notifier.Notify(ctx); err != nil {
			report.NotifyErr = err
			logging.Get(logging.CategoryNotify).Warn("%v", err)
		} else {
			report.Notified = true
		}
	}

	if len(errs) == 0 {
		if err := p.trigger.Commit(modTime); err != nil {
			errs = append(errs, err)
		}
	}
	return report, errors.Join(errs...)
}
