package logging

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestNewWritesToLogFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logs", "archive.log")
	log, err := New(Options{Mode: "prod", File: path})
	if err != nil {
		t.Fatalf("new logger: %v", err)
	}
	log.Info("build finished", "pages", 3)
	log.Sync()

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read log file: %v", err)
	}
	if !strings.Contains(string(data), "build finished") || !strings.Contains(string(data), `"pages":3`) {
		t.Fatalf("log file missing entry: %s", data)
	}
}

func TestNewRejectsUnknownLevel(t *testing.T) {
	if _, err := New(Options{Level: "loud"}); err == nil {
		t.Fatalf("expected error for unknown level")
	}
}

func TestNilLoggerIsSafe(t *testing.T) {
	var log *Logger
	log.Info("ignored")
	log.Warn("ignored", "k", "v")
	if log.With("k", "v") != nil {
		t.Fatalf("With on nil logger should stay nil")
	}
	log.Sync()
}

func TestWithCarriesFields(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	log := FromZap(zap.New(core)).With("section", "bg-lectures")
	log.Warn("collision", "id", "x")

	entries := logs.All()
	if len(entries) != 1 {
		t.Fatalf("entries = %d, want 1", len(entries))
	}
	fields := entries[0].ContextMap()
	if fields["section"] != "bg-lectures" || fields["id"] != "x" {
		t.Fatalf("unexpected fields: %v", fields)
	}
}
