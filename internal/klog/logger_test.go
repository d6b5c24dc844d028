package klog

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"
)

func TestWithScopeAttachesAttribute(t *testing.T) {
	var buf bytes.Buffer
	l := New(&buf, LevelDebug).WithScope("scope-1")
	l.Info("mounted")

	var entry map[string]any
	if err := json.Unmarshal(bytes.TrimSpace(buf.Bytes()), &entry); err != nil {
		t.Fatalf("expected valid JSON log line, got error %v, body %s", err, buf.String())
	}
	if entry["scope_id"] != "scope-1" {
		t.Fatalf("expected scope_id attribute, got %v", entry)
	}
}

func TestWithTaskChildInheritsParentAttrs(t *testing.T) {
	var buf bytes.Buffer
	l := New(&buf, LevelDebug).WithScope("scope-1").WithTask("ref-1")
	l.Info("running")

	body := buf.String()
	if !strings.Contains(body, "scope-1") || !strings.Contains(body, "ref-1") {
		t.Fatalf("expected both scope and task attrs in log body, got %s", body)
	}
}

func TestLevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	l := New(&buf, LevelWarn)
	l.Info("should be filtered")
	if buf.Len() != 0 {
		t.Fatalf("expected info to be filtered at warn level, got %s", buf.String())
	}
	l.Warn("should appear")
	if buf.Len() == 0 {
		t.Fatalf("expected warn entry to be written")
	}
}

func TestNopDiscardsOutput(t *testing.T) {
	l := Nop()
	l.Error("anything")
}
