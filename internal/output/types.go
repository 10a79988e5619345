// Package output owns the generated site tree: where each page lives, how it
// is written, and how existing pages are inspected and removed.
package output

import (
	"fmt"
	"path/filepath"

	"github.com/kingrea/lecture-archive/internal/section"
)

// Kind captures the storage shape of a generated file.
type Kind string

const (
	// KindDetail is a lecture page at <out>/<section>/<id>.html.
	KindDetail Kind = "detail"
	// KindListing is a section page at <out>/<section>.html.
	KindListing Kind = "listing"
	// KindIndex is the section summary at <out>/<section>/index.json.
	KindIndex Kind = "index"
)

const (
	pageExt       = ".html"
	indexJSONName = "index.json"
	indexPageName = "index.html"
)

// Ref identifies one generated file.
type Ref struct {
	Kind    Kind
	Section section.Key
	ID      string
}

// DetailRef points at a lecture page.
func DetailRef(sec section.Key, id string) Ref {
	return Ref{Kind: KindDetail, Section: sec, ID: id}
}

// ListingRef points at a section page.
func ListingRef(sec section.Key) Ref {
	return Ref{Kind: KindListing, Section: sec}
}

// IndexRef points at a section summary.
func IndexRef(sec section.Key) Ref {
	return Ref{Kind: KindIndex, Section: sec}
}

// Path resolves the ref below root.
func (r Ref) Path(root string) string {
	switch r.Kind {
	case KindDetail:
		return filepath.Join(root, string(r.Section), r.ID+pageExt)
	case KindListing:
		return filepath.Join(root, string(r.Section)+pageExt)
	case KindIndex:
		return filepath.Join(root, string(r.Section), indexJSONName)
	default:
		return ""
	}
}

// Validate ensures the ref is well-formed.
func (r Ref) Validate() error {
	if r.Section == "" {
		return fmt.Errorf("output: section is required")
	}
	switch r.Kind {
	case KindDetail:
		if r.ID == "" {
			return fmt.Errorf("output: id is required for %s detail page", r.Section)
		}
		if filepath.Base(r.ID) != r.ID || r.ID == "." || r.ID == ".." {
			return fmt.Errorf("output: id %q is not a plain file name", r.ID)
		}
	case KindListing, KindIndex:
	default:
		return fmt.Errorf("output: unknown kind %q", r.Kind)
	}
	return nil
}

func (r Ref) String() string {
	if r.Kind == KindDetail {
		return fmt.Sprintf("%s %s/%s", r.Kind, r.Section, r.ID)
	}
	return fmt.Sprintf("%s %s", r.Kind, r.Section)
}

// State captures the readiness of a generated file on disk.
type State string

const (
	StateMissing State = "missing"
	StateReady   State = "ready"
	StateInvalid State = "invalid"
	StateError   State = "error"
)

// CheckResult captures Store.Check results.
type CheckResult struct {
	Ref   Ref
	Path  string
	State State
	Err   error
}

// Error wraps a filesystem failure while writing, listing or removing output.
// Any Error aborts the build.
type Error struct {
	Op   string
	Path string
	Err  error
}

func (e *Error) Error() string {
	return fmt.Sprintf("output: %s %s: %v", e.Op, e.Path, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}
