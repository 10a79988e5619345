// Package render turns resolved lecture records into the site's HTML pages and
// per-section summary JSON. Every function here is pure: the same records
// always produce the same bytes.
package render

import (
	"bytes"
	"embed"
	"encoding/json"
	"fmt"
	"html/template"

	"github.com/kingrea/lecture-archive/internal/lecture"
	"github.com/kingrea/lecture-archive/internal/section"
)

// DefaultSiteTitle is used when the configuration leaves site.title empty.
const DefaultSiteTitle = "Auburn Hills Bhakti Vriksha"

//go:embed templates/*.tmpl
var templateFS embed.FS

// Renderer holds the parsed page templates.
type Renderer struct {
	siteTitle string
	tmpl      *template.Template
}

// New parses the embedded templates.
func New(siteTitle string) (*Renderer, error) {
	if siteTitle == "" {
		siteTitle = DefaultSiteTitle
	}
	tmpl, err := template.New("pages").ParseFS(templateFS, "templates/*.tmpl")
	if err != nil {
		return nil, fmt.Errorf("render: parse templates: %w", err)
	}
	return &Renderer{siteTitle: siteTitle, tmpl: tmpl}, nil
}

// SiteTitle returns the title shown in every page header.
func (r *Renderer) SiteTitle() string {
	return r.siteTitle
}

// Listing renders the section page linking every record's detail page.
func (r *Renderer) Listing(sec section.Key, title string, records []lecture.Record) ([]byte, error) {
	view := listingView{
		SiteTitle:    r.siteTitle,
		Section:      string(sec),
		SectionTitle: title,
		Count:        len(records),
		Cards:        make([]card, 0, len(records)),
	}
	for _, rec := range records {
		view.Cards = append(view.Cards, newCard(rec, sec))
	}
	return r.execute("listing", view)
}

// Detail renders one lecture as it appears under sec, which may be a cross
// section rather than the record's primary one.
func (r *Renderer) Detail(rec lecture.Record, sec section.Key, sectionTitle string) ([]byte, error) {
	view := newDetailView(rec, sec)
	view.SiteTitle = r.siteTitle
	view.SectionTitle = sectionTitle
	return r.execute("detail", view)
}

func (r *Renderer) execute(name string, data any) ([]byte, error) {
	var buf bytes.Buffer
	if err := r.tmpl.ExecuteTemplate(&buf, name, data); err != nil {
		return nil, fmt.Errorf("render: %s: %w", name, err)
	}
	return buf.Bytes(), nil
}

// IndexEntry is one lecture inside a section summary.
type IndexEntry struct {
	ID             string      `json:"id"`
	Title          string      `json:"title,omitempty"`
	Date           string      `json:"date,omitempty"`
	PrimaryVerse   string      `json:"primary_verse,omitempty"`
	Takeaway       string      `json:"takeaway,omitempty"`
	SummaryShort   string      `json:"summary_short,omitempty"`
	Featured       bool        `json:"featured"`
	Media          any         `json:"media,omitempty"`
	StreamMetadata any         `json:"stream_metadata,omitempty"`
	Section        section.Key `json:"section"`
}

// Index is the document written to <section>/index.json.
type Index struct {
	Section  section.Key  `json:"section"`
	Title    string       `json:"title"`
	Count    int          `json:"count"`
	Lectures []IndexEntry `json:"lectures"`
}

// IndexJSON renders the section summary consumed by client-side search.
func IndexJSON(sec section.Key, title string, records []lecture.Record) ([]byte, error) {
	idx := Index{
		Section:  sec,
		Title:    title,
		Count:    len(records),
		Lectures: make([]IndexEntry, 0, len(records)),
	}
	for _, rec := range records {
		media, _ := rec.Value("media")
		stream, _ := rec.Value("stream_metadata")
		idx.Lectures = append(idx.Lectures, IndexEntry{
			ID:             rec.ID,
			Title:          rec.Title(),
			Date:           rec.Date,
			PrimaryVerse:   rec.PrimaryVerse(),
			Takeaway:       rec.String("takeaway"),
			SummaryShort:   rec.String("summary_short"),
			Featured:       rec.Featured(),
			Media:          media,
			StreamMetadata: stream,
			Section:        sec,
		})
	}
	data, err := json.MarshalIndent(idx, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("render: index json for %s: %w", sec, err)
	}
	return data, nil
}
