package output

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/kingrea/lecture-archive/internal/section"
)

// Meta tag names every rendered page carries so Check can tell which
// placement a file belongs to.
const (
	MetaID      = "archive-id"
	MetaSection = "archive-section"
)

// Store manages page IO rooted at the output directory.
type Store struct {
	root     string
	dirMode  fs.FileMode
	fileMode fs.FileMode
}

// StoreOption customizes a Store during construction.
type StoreOption func(*Store)

// WithFileMode overrides the permissions used for written files.
func WithFileMode(mode fs.FileMode) StoreOption {
	return func(s *Store) {
		s.fileMode = mode
	}
}

// NewStore builds a store for the given output directory.
func NewStore(root string, opts ...StoreOption) *Store {
	store := &Store{
		root:     root,
		dirMode:  0o755,
		fileMode: 0o644,
	}
	for _, opt := range opts {
		opt(store)
	}
	return store
}

// Root returns the output directory.
func (s *Store) Root() string {
	return s.root
}

// Path resolves ref below the store root.
func (s *Store) Path(ref Ref) string {
	return ref.Path(s.root)
}

// WriteDetail persists a lecture page.
func (s *Store) WriteDetail(sec section.Key, id string, body []byte) error {
	return s.Write(DetailRef(sec, id), body)
}

// WriteListing persists a section page.
func (s *Store) WriteListing(sec section.Key, body []byte) error {
	return s.Write(ListingRef(sec), body)
}

// WriteIndexJSON persists a section summary. body must be valid JSON.
func (s *Store) WriteIndexJSON(sec section.Key, body []byte) error {
	if !json.Valid(body) {
		return fmt.Errorf("output: invalid json body for %s", IndexRef(sec))
	}
	return s.Write(IndexRef(sec), body)
}

// Write creates parent directories and replaces the file behind ref.
func (s *Store) Write(ref Ref, body []byte) error {
	if err := ref.Validate(); err != nil {
		return err
	}
	path := s.Path(ref)
	if err := os.MkdirAll(filepath.Dir(path), s.dirMode); err != nil {
		return &Error{Op: "mkdir", Path: filepath.Dir(path), Err: err}
	}
	if body == nil {
		body = []byte{}
	}
	if err := os.WriteFile(path, body, s.fileMode); err != nil {
		return &Error{Op: "write", Path: path, Err: err}
	}
	return nil
}

// List returns the IDs of detail pages present for sec, sorted. The section
// page index.html is never reported. A section without a directory has no
// pages.
func (s *Store) List(sec section.Key) ([]string, error) {
	dir := filepath.Join(s.root, string(sec))
	entries, err := os.ReadDir(dir)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return []string{}, nil
		}
		return nil, &Error{Op: "list", Path: dir, Err: err}
	}
	ids := make([]string, 0, len(entries))
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || name == indexPageName || !strings.HasSuffix(name, pageExt) {
			continue
		}
		ids = append(ids, strings.TrimSuffix(name, pageExt))
	}
	sort.Strings(ids)
	return ids, nil
}

// Remove deletes a detail page. Removing a page that is already gone is not
// an error.
func (s *Store) Remove(sec section.Key, id string) error {
	ref := DetailRef(sec, id)
	if err := ref.Validate(); err != nil {
		return err
	}
	path := s.Path(ref)
	if err := os.Remove(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return &Error{Op: "remove", Path: path, Err: err}
	}
	return nil
}

// Check inspects the file behind ref and reports whether it exists and
// belongs to the placement it is stored under.
func (s *Store) Check(ref Ref) (CheckResult, error) {
	path := s.Path(ref)
	if err := ref.Validate(); err != nil {
		return CheckResult{Ref: ref, Path: path, State: StateError, Err: err}, err
	}
	info, err := os.Stat(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return CheckResult{Ref: ref, Path: path, State: StateMissing}, nil
		}
		return CheckResult{Ref: ref, Path: path, State: StateError, Err: err}, err
	}
	if info.IsDir() {
		return invalidResult(ref, path, fmt.Errorf("output: expected file got directory"))
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return CheckResult{Ref: ref, Path: path, State: StateError, Err: err}, err
	}

	switch ref.Kind {
	case KindIndex:
		var payload struct {
			Section string `json:"section"`
		}
		if err := json.Unmarshal(data, &payload); err != nil {
			return invalidResult(ref, path, fmt.Errorf("output: parse index json: %w", err))
		}
		if payload.Section != string(ref.Section) {
			return invalidResult(ref, path, fmt.Errorf("output: index section %q does not match %s", payload.Section, ref.Section))
		}
	default:
		doc, err := goquery.NewDocumentFromReader(bytes.NewReader(data))
		if err != nil {
			return invalidResult(ref, path, fmt.Errorf("output: parse html: %w", err))
		}
		if got := metaContent(doc, MetaSection); got != string(ref.Section) {
			return invalidResult(ref, path, fmt.Errorf("output: page section %q does not match %s", got, ref.Section))
		}
		if ref.Kind == KindDetail {
			if got := metaContent(doc, MetaID); got != ref.ID {
				return invalidResult(ref, path, fmt.Errorf("output: page id %q does not match %s", got, ref.ID))
			}
		}
	}
	return CheckResult{Ref: ref, Path: path, State: StateReady}, nil
}

func metaContent(doc *goquery.Document, name string) string {
	content, _ := doc.Find(`meta[name="` + name + `"]`).First().Attr("content")
	return content
}

func invalidResult(ref Ref, path string, err error) (CheckResult, error) {
	return CheckResult{Ref: ref, Path: path, State: StateInvalid, Err: err}, err
}
