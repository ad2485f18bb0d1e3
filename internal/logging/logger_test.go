package logging

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"
)

func newBufferedLogger(buf *bytes.Buffer) *Logger {
	l := New(&Config{Level: "DEBUG", JSONFormat: true})
	l.output = buf
	return l
}

func lastEntry(t *testing.T, buf *bytes.Buffer) LogEntry {
	t.Helper()
	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	var entry LogEntry
	if err := json.Unmarshal([]byte(lines[len(lines)-1]), &entry); err != nil {
		t.Fatalf("unmarshal log line %q: %v", lines[len(lines)-1], err)
	}
	return entry
}

func TestLoggerKeyValueArgs(t *testing.T) {
	var buf bytes.Buffer
	l := newBufferedLogger(&buf)

	l.Info("batch finished", "period_key", "2026-03-10", "succeeded", 12)

	entry := lastEntry(t, &buf)
	if entry.Message != "batch finished" {
		t.Errorf("message = %q, want the literal message untouched", entry.Message)
	}
	if entry.Fields["period_key"] != "2026-03-10" {
		t.Errorf("period_key field = %v, want 2026-03-10", entry.Fields["period_key"])
	}
	if entry.Fields["succeeded"] != float64(12) {
		t.Errorf("succeeded field = %v, want 12", entry.Fields["succeeded"])
	}
}

func TestLoggerPrintfArgs(t *testing.T) {
	var buf bytes.Buffer
	l := newBufferedLogger(&buf)

	l.Error("retry %d of %d failed", 2, 3)

	entry := lastEntry(t, &buf)
	if entry.Message != "retry 2 of 3 failed" {
		t.Errorf("message = %q, want formatted message", entry.Message)
	}
	if len(entry.Fields) != 0 {
		t.Errorf("printf-style call should not produce fields, got %v", entry.Fields)
	}
}

func TestLoggerMessageWithoutArgs(t *testing.T) {
	// A bare message containing a percent sign must pass through verbatim;
	// no formatting happens when there are no args.
	var buf bytes.Buffer
	l := newBufferedLogger(&buf)

	l.Info("utilization at 85% capacity")

	entry := lastEntry(t, &buf)
	if entry.Message != "utilization at 85% capacity" {
		t.Errorf("message = %q, want verbatim message", entry.Message)
	}
}

func TestLoggerErrorValueInKeyValueArgs(t *testing.T) {
	var buf bytes.Buffer
	l := newBufferedLogger(&buf)

	l.Warn("accrual failed", "investment_id", "inv-1", "error", errTest("boom"))

	entry := lastEntry(t, &buf)
	if entry.Fields["error"] != "boom" {
		t.Errorf("error field = %v, want the error string", entry.Fields["error"])
	}
}

type errTest string

func (e errTest) Error() string { return string(e) }
