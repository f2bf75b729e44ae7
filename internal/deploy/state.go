// Package deploy decides, per deployment root, whether the sharding
// generation script must run, and gates that decision on changes to the
// operator trigger file.
package deploy

import "os"

// State classifies the deployment layout found on disk.
type State int

const (
	// NoDeployment means neither root carries a generation script.
	NoDeployment State = iota
	// CurrentActive means only the active root carries the script.
	CurrentActive
	// Transitioning means both roots carry the script; the staged root
	// owns generation until the flip completes.
	Transitioning
	// NextActive means only the staged root carries the script.
	NextActive
)

func (s State) String() string {
	switch s {
	case NoDeployment:
		return "no-deployment"
	case CurrentActive:
		return "current-active"
	case Transitioning:
		return "transitioning"
	case NextActive:
		return "next-active"
	default:
		return "unknown"
	}
}

// RunCurrent reports whether the active root's script should run.
// The exclusivity guard: once the staged root's script is visible,
// ownership of generation shifts there.
func (s State) RunCurrent() bool {
	return s == CurrentActive
}

// RunNext reports whether the staged root's script should run.
func (s State) RunNext() bool {
	return s == Transitioning || s == NextActive
}

// Prober answers file-existence questions. Injected so guard logic is
// testable without a filesystem.
type Prober interface {
	Exists(path string) bool
}

// FSProber probes the real filesystem.
type FSProber struct{}

func (FSProber) Exists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

// ComputeState derives the deployment state from the two script probes.
func ComputeState(p Prober, currentScript, nextScript string) State {
	current := p.Exists(currentScript)
	next := p.Exists(nextScript)

	switch {
	case current && next:
		return Transitioning
	case current:
		return CurrentActive
	case next:
		return NextActive
	default:
		return NoDeployment
	}
}
