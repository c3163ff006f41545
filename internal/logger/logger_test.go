package logger

import (
	"bytes"
	"encoding/json"
	"testing"

	"go.uber.org/zap/zapcore"
)

func TestBuildWritesJSONAtLevel(t *testing.T) {
	var buf bytes.Buffer
	log := build("warn", &buf)

	log.InfoObj("dropped", "k", 1)
	log.WarnObj("kept", "query", map[string]any{"id": "latest-block"})

	lines := bytes.Split(bytes.TrimSpace(buf.Bytes()), []byte("\n"))
	if len(lines) != 1 {
		t.Fatalf("expected 1 log line, got %d: %s", len(lines), buf.String())
	}

	var entry map[string]any
	if err := json.Unmarshal(lines[0], &entry); err != nil {
		t.Fatalf("decode log line: %v", err)
	}
	if entry["msg"] != "kept" {
		t.Fatalf("unexpected msg %v", entry["msg"])
	}
	if _, ok := entry["ts"]; !ok {
		t.Fatalf("expected ts key in %v", entry)
	}
	q, ok := entry["query"].(map[string]any)
	if !ok || q["id"] != "latest-block" {
		t.Fatalf("unexpected query field %v", entry["query"])
	}
}

func TestParseLevelDefaultsToInfo(t *testing.T) {
	if got := parseLevel("verbose"); got != zapcore.InfoLevel {
		t.Fatalf("parseLevel returned %v", got)
	}
	if got := parseLevel("warning"); got != zapcore.WarnLevel {
		t.Fatalf("parseLevel returned %v", got)
	}
}
