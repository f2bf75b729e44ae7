// Package runner executes external generation and reload commands as
// subprocesses, with timeouts, capped output capture and an optional
// JSONL audit trail.
package runner

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os/exec"
	"sync"
	"time"

	"shardctl/internal/logging"

	"github.com/google/uuid"
)

// Command describes one subprocess invocation.
type Command struct {
	Binary           string
	Arguments        []string
	WorkingDirectory string
	Environment      []string // appended to the inherited environment
	Timeout          time.Duration
}

// Result captures the outcome of a subprocess invocation.
type Result struct {
	RunID      string
	ExitCode   int
	Stdout     string
	Stderr     string
	Truncated  bool
	Killed     bool
	KillReason string
	StartedAt  time.Time
	FinishedAt time.Time
	Duration   time.Duration
}

// Config controls runner defaults.
type Config struct {
	DefaultTimeout time.Duration
	MaxOutputBytes int64
}

// DefaultConfig returns sensible runner defaults.
func DefaultConfig() Config {
	return Config{
		DefaultTimeout: 5 * time.Minute,
		MaxOutputBytes: 1 << 20, // 1 MiB per stream
	}
}

// Runner executes commands directly on the host using os/exec.
type Runner struct {
	mu     sync.RWMutex
	config Config

	// auditSink is called for execution events
	auditSink func(AuditEvent)
}

// New creates a Runner with the given config.
func New(config Config) *Runner {
	if config.DefaultTimeout == 0 {
		config.DefaultTimeout = DefaultConfig().DefaultTimeout
	}
	if config.MaxOutputBytes == 0 {
		config.MaxOutputBytes = DefaultConfig().MaxOutputBytes
	}
	return &Runner{config: config}
}

// SetAuditSink sets the callback for audit events.
func (r *Runner) SetAuditSink(sink func(AuditEvent)) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.auditSink = sink
}

func (r *Runner) emitAudit(event AuditEvent) {
	r.mu.RLock()
	sink := r.auditSink
	r.mu.RUnlock()

	if sink != nil {
		sink(event)
	}
}

// Run executes a command and waits for completion. A non-zero exit code
// is reported as an error carrying the Result; the caller decides
// whether that fails the pipeline.
func (r *Runner) Run(ctx context.Context, cmd Command) (*Result, error) {
	if cmd.Binary == "" {
		return nil, fmt.Errorf("runner: binary is required")
	}

	timeout := cmd.Timeout
	if timeout == 0 {
		timeout = r.config.DefaultTimeout
	}
	execCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	result := &Result{
		RunID:    uuid.NewString(),
		ExitCode: -1,
	}

	r.emitAudit(AuditEvent{
		Type:      AuditEventStart,
		Timestamp: time.Now(),
		RunID:     result.RunID,
		Binary:    cmd.Binary,
		Arguments: cmd.Arguments,
	})

	execCmd := exec.CommandContext(execCtx, cmd.Binary, cmd.Arguments...)
	execCmd.Dir = cmd.WorkingDirectory
	if len(cmd.Environment) > 0 {
		execCmd.Env = append(execCmd.Environ(), cmd.Environment...)
	}

	var stdoutBuf, stderrBuf bytes.Buffer
	stdoutLimited := &limitedWriter{w: &stdoutBuf, max: r.config.MaxOutputBytes}
	stderrLimited := &limitedWriter{w: &stderrBuf, max: r.config.MaxOutputBytes}
	execCmd.Stdout = stdoutLimited
	execCmd.Stderr = stderrLimited

	logging.DeployDebug("runner: starting %s %v (timeout=%s)", cmd.Binary, cmd.Arguments, timeout)
	result.StartedAt = time.Now()
	err := execCmd.Run()
	result.FinishedAt = time.Now()
	result.Duration = result.FinishedAt.Sub(result.StartedAt)
	result.Stdout = stdoutBuf.String()
	result.Stderr = stderrBuf.String()
	result.Truncated = stdoutLimited.truncated || stderrLimited.truncated

	if err != nil {
		switch {
		case execCtx.Err() == context.DeadlineExceeded:
			result.Killed = true
			result.KillReason = fmt.Sprintf("timeout after %s", timeout)
		case execCtx.Err() == context.Canceled:
			result.Killed = true
			result.KillReason = "canceled"
		}
		if exitErr, ok := err.(*exec.ExitError); ok {
			result.ExitCode = exitErr.ExitCode()
		}
		r.emitAudit(AuditEvent{
			Type:      AuditEventError,
			Timestamp: time.Now(),
			RunID:     result.RunID,
			Binary:    cmd.Binary,
			Arguments: cmd.Arguments,
			ExitCode:  result.ExitCode,
			Error:     err.Error(),
		})
		if result.Killed {
			return result, fmt.Errorf("runner: %s killed (%s)", cmd.Binary, result.KillReason)
		}
		return result, fmt.Errorf("runner: %s: %w", cmd.Binary, err)
	}

	result.ExitCode = 0
	r.emitAudit(AuditEvent{
		Type:      AuditEventComplete,
		Timestamp: time.Now(),
		RunID:     result.RunID,
		Binary:    cmd.Binary,
		Arguments: cmd.Arguments,
		ExitCode:  0,
	})
	logging.DeployDebug("runner: %s completed in %s", cmd.Binary, result.Duration)
	return result, nil
}

// limitedWriter is an io.Writer that limits total bytes written.
type limitedWriter struct {
	w         io.Writer
	max       int64
	written   int64
	truncated bool
}

func (lw *limitedWriter) Write(p []byte) (int, error) {
	n := len(p)

	if lw.written >= lw.max {
		lw.truncated = true
		return n, nil // Pretend we wrote it
	}

	remaining := lw.max - lw.written
	if int64(n) > remaining {
		lw.truncated = true
		written, err := lw.w.Write(p[:remaining])
		lw.written += int64(written)
		return n, err // Return original length to avoid short-write errors
	}

	written, err := lw.w.Write(p)
	lw.written += int64(written)
	return written, err
}
