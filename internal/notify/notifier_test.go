package notify

import (
	"context"
	"strings"
	"testing"

	"shardctl/internal/runner"
)

func TestServiceNotifier_Success(t *testing.T) {
	n, err := NewServiceNotifier(runner.New(runner.Config{}), []string{"/bin/sh", "-c", "true"})
	if err != nil {
		t.Fatalf("NewServiceNotifier failed: %v", err)
	}
	if err := n.Notify(context.Background()); err != nil {
		t.Errorf("Notify failed: %v", err)
	}
}

func TestServiceNotifier_FailureIsReported(t *testing.T) {
	n, err := NewServiceNotifier(runner.New(runner.Config{}), []string{"/bin/sh", "-c", "echo 'unit nginx.service not found' >&2; exit 1"})
	if err != nil {
		t.Fatalf("NewServiceNotifier failed: %v", err)
	}

	err = n.Notify(context.Background())
	if err == nil {
		t.Fatal("expected error for failing reload command")
	}
	// The message should carry the service's own diagnostics.
	if got := err.Error(); !strings.Contains(got, "not found") {
		t.Errorf("error should include stderr, got %q", got)
	}
}

func TestServiceNotifier_EmptyCommandRejected(t *testing.T) {
	if _, err := NewServiceNotifier(runner.New(runner.Config{}), nil); err == nil {
		t.Fatal("expected error for empty command")
	}
}

func TestRecorder_Counts(t *testing.T) {
	r := &Recorder{}
	if r.Count() != 0 {
		t.Errorf("expected 0, got %d", r.Count())
	}
	_ = r.Notify(context.Background())
	_ = r.Notify(context.Background())
	if r.Count() != 2 {
		t.Errorf("expected 2, got %d", r.Count())
	}
}
