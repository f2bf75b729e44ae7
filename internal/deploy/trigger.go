package deploy

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"shardctl/internal/logging"
)

// TriggerState records the trigger file mtime last acted upon, so the
// pipeline is edge-triggered rather than run on a schedule.
type TriggerState struct {
	TriggerFile string    `json:"trigger_file"`
	ModTime     time.Time `json:"mod_time"`
	EvaluatedAt time.Time `json:"evaluated_at"`
}

// Trigger gates pipeline runs on changes to the trigger file.
type Trigger struct {
	triggerFile string
	stateFile   string
}

// NewTrigger builds a Trigger for the given trigger and state files.
func NewTrigger(triggerFile, stateFile string) *Trigger {
	return &Trigger{triggerFile: triggerFile, stateFile: stateFile}
}

// Check reports whether the trigger file has changed since the last
// committed evaluation, along with its current mtime. A missing state
// file means no evaluation has happened yet and the pipeline must run.
// A missing trigger file is a configuration error.
func (t *Trigger) Check() (changed bool, modTime time.Time, err error) {
	info, err := os.Stat(t.triggerFile)
	if err != nil {
		return false, time.Time{}, fmt.Errorf("trigger file %s: %w (is the host configured?)", t.triggerFile, err)
	}
	modTime = info.ModTime()

	prev, err := t.load()
	if err != nil {
		if os.IsNotExist(err) {
			return true, modTime, nil
		}
		// Unreadable state is treated as "never evaluated": running one
		// extra time is safe, skipping a needed run is not.
		logging.Get(logging.CategoryDeploy).Warn("trigger state %s unreadable (%v), forcing evaluation", t.stateFile, err)
		return true, modTime, nil
	}
	return !modTime.Equal(prev.ModTime) || prev.TriggerFile != t.triggerFile, modTime, nil
}

// Commit records that the pipeline acted on the given trigger mtime.
// Call only after a successful run so failures are retried on the next
// invocation.
func (t *Trigger) Commit(modTime time.Time) error {
	state := TriggerState{
		TriggerFile: t.triggerFile,
		ModTime:     modTime,
		EvaluatedAt: time.Now(),
	}
	data, err := json.MarshalIndent(state, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal trigger state: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(t.stateFile), 0o755); err != nil {
		return fmt.Errorf("create state directory: %w", err)
	}

	tmp := t.stateFile + ".tmp"
	if err := os.WriteFile(tmp, append(data, '\n'), 0o644); err != nil {
		return fmt.Errorf("write trigger state: %w", err)
	}
	if err := os.Rename(tmp, t.stateFile); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("commit trigger state: %w", err)
	}
	return nil
}

// Last returns the last committed state, if any.
func (t *Trigger) Last() (*TriggerState, error) {
	return t.load()
}

func (t *Trigger) load() (*TriggerState, error) {
	data, err := os.ReadFile(t.stateFile)
	if err != nil {
		return nil, err
	}
	var state TriggerState
	if err := json.Unmarshal(data, &state); err != nil {
		return nil, fmt.Errorf("parse trigger state %s: %w", t.stateFile, err)
	}
	return &state, nil
}
