package logging

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"strings"
	"testing"
)

func TestDefaultReplaceAttrFormatsLevelNames(t *testing.T) {
	attr := slog.Any(slog.LevelKey, LevelTrace)
	got := defaultReplaceAttr(nil, attr)
	if got.Value.String() != "TRACE" {
		t.Fatalf("level name = %q, want TRACE", got.Value.String())
	}

	attr = slog.Any(slog.LevelKey, LevelFatal)
	got = defaultReplaceAttr(nil, attr)
	if got.Value.String() != "FATAL" {
		t.Fatalf("level name = %q, want FATAL", got.Value.String())
	}
}

func TestDefaultReplaceAttrTruncatesFloats(t *testing.T) {
	attr := slog.Float64("snr", 12.3456)
	got := defaultReplaceAttr(nil, attr)
	if got.Value.Float64() != 12.34 {
		t.Fatalf("truncated float = %v, want 12.34", got.Value.Float64())
	}
}

func TestSetOutputRejectsNilWriters(t *testing.T) {
	var buf bytes.Buffer
	if err := SetOutput(nil, &buf); err == nil {
		t.Fatalf("expected error for nil structuredOutput")
	}
	if err := SetOutput(&buf, nil); err == nil {
		t.Fatalf("expected error for nil humanReadableOutput")
	}
}

func TestSetOutputWritesStructuredJSON(t *testing.T) {
	var structured, human bytes.Buffer
	if err := SetOutput(&structured, &human); err != nil {
		t.Fatalf("SetOutput returned error: %v", err)
	}

	Structured().Info("frame decoded", "msgId", "abc123")

	var entry map[string]any
	if err := json.Unmarshal(structured.Bytes(), &entry); err != nil {
		t.Fatalf("structured output is not valid JSON: %v (output: %s)", err, structured.String())
	}
	if entry["msg"] != "frame decoded" {
		t.Fatalf("msg = %v, want %q", entry["msg"], "frame decoded")
	}
	if entry["msgId"] != "abc123" {
		t.Fatalf("msgId = %v, want %q", entry["msgId"], "abc123")
	}
}

func TestForServiceAddsServiceAttribute(t *testing.T) {
	var structured, human bytes.Buffer
	if err := SetOutput(&structured, &human); err != nil {
		t.Fatalf("SetOutput returned error: %v", err)
	}

	ForService("framer").Info("frame emitted")

	if !strings.Contains(structured.String(), `"service":"framer"`) {
		t.Fatalf("expected service attribute in output, got: %s", structured.String())
	}
}
