package journal

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestTailReturnsRecentLinesAndTotal(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logs", "builds.log")
	j, err := Open(path)
	if err != nil {
		t.Fatalf("open journal: %v", err)
	}
	for i := 0; i < 5; i++ {
		if err := j.Info("build-%d", i); err != nil {
			t.Fatalf("append: %v", err)
		}
	}
	lines, total, err := j.Tail(3)
	if err != nil {
		t.Fatalf("tail: %v", err)
	}
	if total != 5 {
		t.Fatalf("total lines = %d, want 5", total)
	}
	if len(lines) != 3 {
		t.Fatalf("len(lines) = %d, want 3", len(lines))
	}
	for idx, want := range []string{"build-2", "build-3", "build-4"} {
		if !strings.Contains(lines[idx], want) {
			t.Fatalf("line %d = %q, missing %s", idx, lines[idx], want)
		}
	}
}

func TestAppendFormatsSingleLine(t *testing.T) {
	path := filepath.Join(t.TempDir(), "builds.log")
	clock := func() time.Time { return time.Date(2025, 7, 9, 6, 30, 0, 0, time.UTC) }
	j, err := Open(path, WithClock(clock))
	if err != nil {
		t.Fatalf("open journal: %v", err)
	}
	if err := j.Warn("collision on\nbg-lectures/%s", "x"); err != nil {
		t.Fatalf("append: %v", err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	want := "2025-07-09T06:30:00Z WARN  collision on bg-lectures/x\n"
	if string(data) != want {
		t.Fatalf("entry = %q, want %q", data, want)
	}
}

func TestTailOnMissingFile(t *testing.T) {
	j, err := Open(filepath.Join(t.TempDir(), "never.log"))
	if err != nil {
		t.Fatalf("open journal: %v", err)
	}
	lines, total, err := j.Tail(10)
	if err != nil || total != 0 || len(lines) != 0 {
		t.Fatalf("tail = %v, %d, %v; want empty", lines, total, err)
	}
}

func TestNilJournalIsSafe(t *testing.T) {
	var j *Journal
	if err := j.Info("ignored"); err != nil {
		t.Fatalf("nil journal append: %v", err)
	}
	if j.Path() != "" {
		t.Fatalf("nil journal path should be empty")
	}
}
