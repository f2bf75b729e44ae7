package runner

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"
)

// AuditEventType identifies the lifecycle stage of an execution.
type AuditEventType string

const (
	AuditEventStart    AuditEventType = "start"
	AuditEventComplete AuditEventType = "complete"
	AuditEventError    AuditEventType = "error"
)

// AuditEvent is one record in the execution audit trail.
type AuditEvent struct {
	Type      AuditEventType `json:"type"`
	Timestamp time.Time      `json:"timestamp"`
	RunID     string         `json:"run_id"`
	Binary    string         `json:"binary"`
	Arguments []string       `json:"arguments,omitempty"`
	ExitCode  int            `json:"exit_code,omitempty"`
	Error     string         `json:"error,omitempty"`
}

// AuditLog appends audit events as JSON lines to a file.
type AuditLog struct {
	mu   sync.Mutex
	path string
	file *os.File
}

// OpenAuditLog opens (creating if needed) the audit log at path.
func OpenAuditLog(path string) (*AuditLog, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("audit: create directory: %w", err)
	}
	file, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, fmt.Errorf("audit: open %s: %w", path, err)
	}
	return &AuditLog{path: path, file: file}, nil
}

// Record appends one event. Failures are swallowed; the audit trail is
// best effort and must not affect the execution it describes.
func (a *AuditLog) Record(event AuditEvent) {
	a.mu.Lock()
	defer a.mu.Unlock()

	data, err := json.Marshal(event)
	if err != nil {
		return
	}
	_, _ = a.file.Write(append(data, '\n'))
}

// Close closes the underlying file.
func (a *AuditLog) Close() error {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.file.Close()
}
