package lecture

import (
	"errors"
	"fmt"

	"github.com/kingrea/lecture-archive/internal/section"
)

// SourceErrorKind classifies why a source file was skipped.
type SourceErrorKind string

const (
	ReadError  SourceErrorKind = "read"
	ParseError SourceErrorKind = "parse"
	IDError    SourceErrorKind = "id"
)

// ErrMissingDataDir is returned when the data root does not exist. Nothing can
// be loaded, so the whole run stops before touching output.
var ErrMissingDataDir = errors.New("lecture: data directory not found")

// ErrUnusableID marks a record whose ID cannot name a page file.
var ErrUnusableID = errors.New("lecture: id is not a plain file name")

// SourceError describes a record that could not be loaded. It is reported and
// skipped; it never aborts a run.
type SourceError struct {
	Kind     SourceErrorKind
	Section  section.Key
	Filename string
	Err      error
}

func (e *SourceError) Error() string {
	return fmt.Sprintf("lecture %s error: %s/%s: %v", e.Kind, e.Section, e.Filename, e.Err)
}

func (e *SourceError) Unwrap() error {
	return e.Err
}
