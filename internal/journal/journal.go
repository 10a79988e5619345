// Package journal keeps an append-only, human-readable history of build and
// maintenance runs under the project's .archive/logs directory.
package journal

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"
)

// Level represents the severity of a journal entry.
type Level string

const (
	LevelInfo  Level = "INFO"
	LevelWarn  Level = "WARN"
	LevelError Level = "ERROR"
)

// Journal persists one line per run to a text file.
type Journal struct {
	path string
	now  func() time.Time
	mu   sync.Mutex
}

// Option customizes a Journal.
type Option func(*Journal)

// WithClock overrides the clock used for entry timestamps.
func WithClock(clock func() time.Time) Option {
	return func(j *Journal) {
		j.now = clock
	}
}

// Open creates the journal's directory and returns a journal writing to path.
func Open(path string, opts ...Option) (*Journal, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("journal: ensure dir: %w", err)
	}
	j := &Journal{path: path, now: time.Now}
	for _, opt := range opts {
		opt(j)
	}
	return j, nil
}

// Path returns the file backing this journal.
func (j *Journal) Path() string {
	if j == nil {
		return ""
	}
	return j.path
}

// Append writes a single entry. Newlines in message are folded so every entry
// stays on one line.
func (j *Journal) Append(level Level, message string) error {
	if j == nil {
		return nil
	}
	j.mu.Lock()
	defer j.mu.Unlock()
	message = strings.Join(strings.Fields(message), " ")
	line := fmt.Sprintf("%s %-5s %s\n", j.now().UTC().Format(time.RFC3339), string(level), message)
	file, err := os.OpenFile(j.path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return fmt.Errorf("journal: open: %w", err)
	}
	defer file.Close()
	if _, err := file.WriteString(line); err != nil {
		return fmt.Errorf("journal: write: %w", err)
	}
	return nil
}

// Tail returns up to maxLines of the most recent entries and the total number
// of entries in the journal. A journal that was never written is empty.
func (j *Journal) Tail(maxLines int) ([]string, int, error) {
	if j == nil || maxLines <= 0 {
		return nil, 0, nil
	}
	j.mu.Lock()
	defer j.mu.Unlock()
	file, err := os.Open(j.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, 0, nil
		}
		return nil, 0, fmt.Errorf("journal: open: %w", err)
	}
	defer file.Close()

	var lines []string
	total := 0
	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		total++
		lines = append(lines, scanner.Text())
		if len(lines) > maxLines {
			lines = lines[1:]
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, 0, fmt.Errorf("journal: read: %w", err)
	}
	return lines, total, nil
}

func (j *Journal) Info(format string, args ...any) error {
	return j.Append(LevelInfo, fmt.Sprintf(format, args...))
}

func (j *Journal) Warn(format string, args ...any) error {
	return j.Append(LevelWarn, fmt.Sprintf(format, args...))
}

func (j *Journal) Error(format string, args ...any) error {
	return j.Append(LevelError, fmt.Sprintf(format, args...))
}
