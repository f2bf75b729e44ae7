package deploy

import "testing"

// fakeProber answers existence probes from a fixed set.
type fakeProber map[string]bool

func (f fakeProber) Exists(path string) bool { return f[path] }

func TestComputeState_GuardTable(t *testing.T) {
	const (
		currentScript = "/deploy/current/scripts/lib/sharding.py"
		nextScript    = "/deploy/next/scripts/lib/sharding.py"
	)

	cases := []struct {
		name       string
		current    bool
		next       bool
		state      State
		runCurrent bool
		runNext    bool
	}{
		{"current only", true, false, CurrentActive, true, false},
		{"both", true, true, Transitioning, false, true},
		{"next only", false, true, NextActive, false, true},
		{"neither", false, false, NoDeployment, false, false},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			prober := fakeProber{currentScript: tc.current, nextScript: tc.next}
			state := ComputeState(prober, currentScript, nextScript)
			if state != tc.state {
				t.Errorf("expected state %s, got %s", tc.state, state)
			}
			if state.RunCurrent() != tc.runCurrent {
				t.Errorf("RunCurrent: expected %v, got %v", tc.runCurrent, state.RunCurrent())
			}
			if state.RunNext() != tc.runNext {
				t.Errorf("RunNext: expected %v, got %v", tc.runNext, state.RunNext())
			}
		})
	}
}

func TestState_String(t *testing.T) {
	if NoDeployment.String() != "no-deployment" {
		t.Errorf("unexpected string: %s", NoDeployment)
	}
	if Transitioning.String() != "transitioning" {
		t.Errorf("unexpected string: %s", Transitioning)
	}
}
