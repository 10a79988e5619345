// Package lecture turns raw per-lecture JSON documents into resolved records
// with a canonical date, ID, primary section and cross-listed sections.
package lecture

import (
	"strings"

	"github.com/kingrea/lecture-archive/internal/section"
)

// Undated stands in for a missing date inside generated IDs and file names.
const Undated = "undated"

// Record is one lecture loaded from a source JSON file.
type Record struct {
	// Raw holds every author-supplied key. Renderers read from it; the
	// resolver only interprets the fields it needs for identity.
	Raw map[string]any

	SourceFilename string

	// Date is YYYY-MM-DD, or empty when no source provided one.
	Date string

	Section       section.Key
	ID            string
	CrossSections []section.Key
}

// HasDate reports whether the record resolved to a calendar date.
func (r Record) HasDate() bool {
	return r.Date != "" && r.Date != Undated
}

// Sections returns the primary section followed by the cross-listed ones.
func (r Record) Sections() []section.Key {
	out := make([]section.Key, 0, 1+len(r.CrossSections))
	out = append(out, r.Section)
	return append(out, r.CrossSections...)
}

// Value returns the raw value stored under a dotted path such as
// "stream_metadata.video_id".
func (r Record) Value(path string) (any, bool) {
	return lookup(r.Raw, path)
}

// String returns the trimmed string stored under path, or "".
func (r Record) String(path string) string {
	v, ok := lookup(r.Raw, path)
	if !ok {
		return ""
	}
	s, _ := v.(string)
	return strings.TrimSpace(s)
}

// List returns the array stored under path, or nil.
func (r Record) List(path string) []any {
	v, ok := lookup(r.Raw, path)
	if !ok {
		return nil
	}
	items, _ := v.([]any)
	return items
}

// Title returns the lecture title.
func (r Record) Title() string {
	return r.String("title")
}

// PrimaryVerse returns the primary verse reference, e.g. "BG 9.34".
func (r Record) PrimaryVerse() string {
	return firstString(r.Raw, fieldPrimaryVerse...)
}

// Takeaway returns the one-line takeaway, falling back to the short summary.
func (r Record) Takeaway() string {
	if s := r.String("takeaway"); s != "" {
		return s
	}
	return r.String("summary_short")
}

// VideoID returns the YouTube video ID from media or stream metadata.
func (r Record) VideoID() string {
	if id := r.String("media.video.youtube_id"); id != "" {
		return id
	}
	return firstString(r.Raw, fieldVideoID...)
}

// Speaker returns the speaker name, which may be stored as a string or as an
// object with a name key.
func (r Record) Speaker() string {
	if s := r.String("speaker.name"); s != "" {
		return s
	}
	return r.String("speaker")
}

// Featured reports whether the author flagged the lecture as featured.
func (r Record) Featured() bool {
	v, ok := lookup(r.Raw, "featured")
	if !ok {
		return false
	}
	b, _ := v.(bool)
	return b
}

var (
	fieldPrimaryVerse  = []string{"primary_verse", "primaryVerse"}
	fieldPublishedDate = []string{"stream_metadata.published_date", "streamMetadata.publishedDate", "stream_metadata.publishedDate"}
	fieldVideoID       = []string{"stream_metadata.video_id", "streamMetadata.videoId"}
)

func lookup(raw map[string]any, path string) (any, bool) {
	if raw == nil {
		return nil, false
	}
	var cur any = raw
	for _, part := range strings.Split(path, ".") {
		m, ok := cur.(map[string]any)
		if !ok {
			return nil, false
		}
		cur, ok = m[part]
		if !ok || cur == nil {
			return nil, false
		}
	}
	return cur, true
}

func firstString(raw map[string]any, paths ...string) string {
	for _, p := range paths {
		v, ok := lookup(raw, p)
		if !ok {
			continue
		}
		if s, ok := v.(string); ok && strings.TrimSpace(s) != "" {
			return strings.TrimSpace(s)
		}
	}
	return ""
}
