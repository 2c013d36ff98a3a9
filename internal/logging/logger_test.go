package logging

import (
	"bytes"
	"log/slog"
	"strings"
	"testing"
)

func TestConsoleHandlerRendersAttrs(t *testing.T) {
	var buf bytes.Buffer
	levelVar := new(slog.LevelVar)
	logger := slog.New(newConsoleHandler(&buf, levelVar, false))

	logger.Info("scan complete", String("session", "abc"), Int("files", 3))

	line := buf.String()
	if !strings.Contains(line, "INFO") {
		t.Fatalf("missing level tag: %q", line)
	}
	if !strings.Contains(line, "scan complete") {
		t.Fatalf("missing message: %q", line)
	}
	if !strings.Contains(line, "session=abc") || !strings.Contains(line, "files=3") {
		t.Fatalf("missing attrs: %q", line)
	}
}

func TestConsoleHandlerQuotesSpacedValues(t *testing.T) {
	var buf bytes.Buffer
	levelVar := new(slog.LevelVar)
	logger := slog.New(newConsoleHandler(&buf, levelVar, false))

	logger.Warn("download failed", String("name", "Some Show S01E01.mkv"))

	if !strings.Contains(buf.String(), `name="Some Show S01E01.mkv"`) {
		t.Fatalf("expected quoted value, got %q", buf.String())
	}
}

func TestConsoleHandlerRespectsLevel(t *testing.T) {
	var buf bytes.Buffer
	levelVar := new(slog.LevelVar)
	levelVar.Set(slog.LevelWarn)
	logger := slog.New(newConsoleHandler(&buf, levelVar, false))

	logger.Info("suppressed")
	if buf.Len() != 0 {
		t.Fatalf("expected no output below level, got %q", buf.String())
	}
	logger.Error("emitted", Error(nil))
	if !strings.Contains(buf.String(), "emitted") {
		t.Fatalf("expected error output, got %q", buf.String())
	}
}

func TestParseLevel(t *testing.T) {
	if parseLevel("debug") != slog.LevelDebug {
		t.Fatal("debug level")
	}
	if parseLevel("WARN") != slog.LevelWarn {
		t.Fatal("warn level")
	}
	if parseLevel("unknown") != slog.LevelInfo {
		t.Fatal("default level")
	}
}
