// Package rename proposes and applies canonical file names for lecture source
// JSON so that names follow <date>-<identifier>.json.
package rename

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/kingrea/lecture-archive/internal/lecture"
	"github.com/kingrea/lecture-archive/internal/logging"
	"github.com/kingrea/lecture-archive/internal/section"
)

// MaxTitleLen caps the title slug used in a file name.
const MaxTitleLen = 50

const unknownIdentifier = "unknown"

// Canonical returns the file name a lecture should be stored under. The date
// is the explicit date or the date part of the stream's published date; the
// identifier comes from the verse, the title, the existing id or the video id,
// in that order.
func Canonical(raw map[string]any) string {
	rec := lecture.Record{Raw: raw}
	date := rec.String("date")
	if date == "" {
		date, _, _ = strings.Cut(rec.String("stream_metadata.published_date"), "T")
	}
	if date == "" {
		date = lecture.Undated
	}

	var identifier string
	switch {
	case rec.PrimaryVerse() != "":
		identifier = lecture.VerseToken(rec.PrimaryVerse())
	case rec.Title() != "":
		identifier = lecture.TitleToken(rec.Title(), MaxTitleLen)
	case rec.String("id") != "":
		identifier = lecture.SanitizeID(rec.String("id"))
	case rec.String("stream_metadata.video_id") != "":
		identifier = rec.String("stream_metadata.video_id")
	default:
		identifier = unknownIdentifier
	}
	return date + "-" + identifier + ".json"
}

// Status classifies a proposal.
type Status string

const (
	StatusCorrect      Status = "already-correct"
	StatusTargetExists Status = "target-exists"
	StatusRename       Status = "rename"
	StatusError        Status = "error"
)

// Proposal is the planned outcome for one source file.
type Proposal struct {
	Section section.Key
	From    string
	To      string
	Status  Status
	Err     error
}

func (p Proposal) String() string {
	switch p.Status {
	case StatusRename, StatusTargetExists:
		return fmt.Sprintf("%s/%s -> %s", p.Section, p.From, p.To)
	case StatusError:
		return fmt.Sprintf("%s/%s: %v", p.Section, p.From, p.Err)
	default:
		return fmt.Sprintf("%s/%s", p.Section, p.From)
	}
}

// Planner inspects data/<section>/*.json and proposes renames.
type Planner struct {
	dataDir string
	catalog section.Catalog
	log     *logging.Logger
}

func NewPlanner(dataDir string, catalog section.Catalog, log *logging.Logger) *Planner {
	return &Planner{dataDir: dataDir, catalog: catalog, log: log}
}

// DataDir returns the directory proposals are relative to.
func (p *Planner) DataDir() string {
	return p.dataDir
}

// Plan returns one proposal per source file, grouped by section in catalog
// order. When two files in a section map to the same name only the first is
// proposed for renaming; the others are reported as target-exists.
func (p *Planner) Plan(ctx context.Context) ([]Proposal, error) {
	if info, err := os.Stat(p.dataDir); err != nil || !info.IsDir() {
		return nil, fmt.Errorf("%w: %s", lecture.ErrMissingDataDir, p.dataDir)
	}
	var proposals []Proposal
	for _, key := range p.catalog.Keys() {
		if err := ctx.Err(); err != nil {
			return proposals, err
		}
		dir := filepath.Join(p.dataDir, string(key))
		files, err := lecture.ListJSON(dir)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				p.log.Debug("skipping section without folder", "section", key)
				continue
			}
			return proposals, fmt.Errorf("rename: list %s: %w", key, err)
		}
		present := make(map[string]bool, len(files))
		for _, name := range files {
			present[name] = true
		}
		claimed := map[string]bool{}
		for _, name := range files {
			proposals = append(proposals, p.propose(key, dir, name, present, claimed))
		}
	}
	return proposals, nil
}

func (p *Planner) propose(key section.Key, dir, name string, present, claimed map[string]bool) Proposal {
	prop := Proposal{Section: key, From: name}
	data, err := os.ReadFile(filepath.Join(dir, name))
	if err != nil {
		prop.Status, prop.Err = StatusError, err
		return prop
	}
	raw, err := lecture.DecodeObject(data)
	if err != nil {
		prop.Status, prop.Err = StatusError, err
		return prop
	}
	prop.To = Canonical(raw)
	switch {
	case prop.To == name:
		prop.Status = StatusCorrect
	case present[prop.To] || claimed[prop.To]:
		prop.Status = StatusTargetExists
	default:
		prop.Status = StatusRename
		claimed[prop.To] = true
	}
	return prop
}

// Result counts what Apply did.
type Result struct {
	Renamed int
	Skipped int
	Errors  int
}

// Apply renames every proposal with StatusRename. The target is checked again
// right before renaming so a file created since planning is never replaced.
// With dryRun nothing is touched but counts are reported as if it were.
func Apply(dataDir string, proposals []Proposal, dryRun bool, log *logging.Logger) (Result, []Proposal) {
	var result Result
	applied := make([]Proposal, 0, len(proposals))
	for _, prop := range proposals {
		switch prop.Status {
		case StatusRename:
		case StatusError:
			result.Errors++
			applied = append(applied, prop)
			continue
		default:
			result.Skipped++
			applied = append(applied, prop)
			continue
		}
		from := filepath.Join(dataDir, string(prop.Section), prop.From)
		to := filepath.Join(dataDir, string(prop.Section), prop.To)
		if _, err := os.Stat(to); err == nil {
			prop.Status = StatusTargetExists
			result.Skipped++
			applied = append(applied, prop)
			continue
		}
		if !dryRun {
			if err := os.Rename(from, to); err != nil {
				prop.Status, prop.Err = StatusError, err
				result.Errors++
				log.Error("rename failed", "section", prop.Section, "from", prop.From, "error", err)
				applied = append(applied, prop)
				continue
			}
			log.Info("renamed", "section", prop.Section, "from", prop.From, "to", prop.To)
		}
		result.Renamed++
		applied = append(applied, prop)
	}
	return result, applied
}

// Pending filters proposals down to those that would rename a file.
func Pending(proposals []Proposal) []Proposal {
	var out []Proposal
	for _, p := range proposals {
		if p.Status == StatusRename {
			out = append(out, p)
		}
	}
	return out
}
