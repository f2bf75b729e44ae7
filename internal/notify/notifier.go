// Package notify delivers the proxy-reload signal after artifact
// changes. Delivery is fire-and-forget: a failed reload is reported for
// logging but never invalidates the artifact work that preceded it.
package notify

import (
	"context"
	"fmt"
	"sync"

	"shardctl/internal/logging"
	"shardctl/internal/runner"
)

// Notifier signals the proxy to re-read its configuration.
type Notifier interface {
	Notify(ctx context.Context) error
}

// ServiceNotifier runs a configured reload command.
type ServiceNotifier struct {
	runner  *runner.Runner
	command []string
}

// NewServiceNotifier builds a notifier around the reload command argv.
func NewServiceNotifier(r *runner.Runner, command []string) (*ServiceNotifier, error) {
	if len(command) == 0 {
		return nil, fmt.Errorf("notify: reload command is required")
	}
	return &ServiceNotifier{runner: r, command: command}, nil
}

// Notify invokes the reload command and waits for it.
func (n *ServiceNotifier) Notify(ctx context.Context) error {
	logging.Notify("reloading proxy: %v", n.command)
	result, err := n.runner.Run(ctx, runner.Command{
		Binary:    n.command[0],
		Arguments: n.command[1:],
	})
	if err != nil {
		if result != nil && result.Stderr != "" {
			return fmt.Errorf("proxy reload %v failed: %w; stderr: %s (is the proxy service installed and running?)", n.command, err, result.Stderr)
		}
		return fmt.Errorf("proxy reload %v failed: %w (is the proxy service installed and running?)", n.command, err)
	}
	logging.Notify("proxy reloaded")
	return nil
}

// Recorder counts notifications; used in tests.
type Recorder struct {
	mu    sync.Mutex
	count int
}

func (r *Recorder) Notify(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.count++
	return nil
}

// Count returns the number of notifications delivered.
func (r *Recorder) Count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.count
}
