package runner

import (
	"bufio"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestAuditLog_AppendsJSONLines(t *testing.T) {
	path := filepath.Join(t.TempDir(), "audit", "runs.jsonl")

	audit, err := OpenAuditLog(path)
	if err != nil {
		t.Fatalf("OpenAuditLog failed: %v", err)
	}

	audit.Record(AuditEvent{Type: AuditEventStart, Timestamp: time.Now(), RunID: "run-1", Binary: "/bin/true"})
	audit.Record(AuditEvent{Type: AuditEventComplete, Timestamp: time.Now(), RunID: "run-1", Binary: "/bin/true"})
	if err := audit.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}

	file, err := os.Open(path)
	if err != nil {
		t.Fatalf("open audit log: %v", err)
	}
	defer file.Close()

	var count int
	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		var event AuditEvent
		if err := json.Unmarshal(scanner.Bytes(), &event); err != nil {
			t.Fatalf("line %d does not parse: %v", count+1, err)
		}
		if event.RunID != "run-1" {
			t.Errorf("line %d: unexpected run ID %q", count+1, event.RunID)
		}
		count++
	}
	if count != 2 {
		t.Errorf("expected 2 audit lines, got %d", count)
	}
}
