package main

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/kingrea/lecture-archive/internal/metrics"
	"github.com/kingrea/lecture-archive/internal/output"
	"github.com/kingrea/lecture-archive/internal/site"
)

type BuildCmd struct {
	DryRun bool `name:"dry-run" help:"Report what would change without writing or removing anything."`
}

func newBuilder(e *env, m *metrics.Metrics, dryRun bool) (*site.Builder, error) {
	return site.New(site.Config{
		DataDir:    e.cfg.DataDir(),
		OutputDir:  e.cfg.OutputDir(),
		SiteTitle:  e.cfg.Project.Site.Title,
		Catalog:    e.cfg.Catalog(),
		CrossRules: e.cfg.CrossRules(),
		Planner:    e.cfg.Planner(),
		Manual:     e.cfg.Placements(),
	}, site.WithLogger(e.log), site.WithMetrics(m), site.WithDryRun(dryRun))
}

func (c *BuildCmd) Run(g *Globals) error {
	e, err := g.open()
	if err != nil {
		return err
	}
	defer e.close()

	m := metrics.New()
	b, err := newBuilder(e, m, c.DryRun)
	if err != nil {
		return err
	}
	ctx, cancel := signalContext()
	defer cancel()

	summary, err := b.Build(ctx)
	if err != nil {
		_ = e.journal.Error("build failed: %v", err)
		return err
	}
	_ = e.journal.Info("%s", journalLine(summary))
	fmt.Println(buildPanel(summary, e.cfg.OutputDir()))

	if path := e.cfg.MetricsFile(); path != "" && !c.DryRun {
		if err := m.WriteTextfile(path); err != nil {
			e.log.Warn("metrics not written", "path", path, "error", err)
		}
	}
	return nil
}

func journalLine(s site.Summary) string {
	if s.NoOp {
		return "build: no lecture data found, nothing generated"
	}
	prefix := "build"
	if s.DryRun {
		prefix = "build (dry run)"
	}
	return fmt.Sprintf("%s: loaded=%d skipped=%d collisions=%d placements=%d removed=%d pages=%d duration=%s",
		prefix, s.Loaded, len(s.Skipped), len(s.Collisions), s.Expected, len(s.Removed), s.Pages, s.Duration.Round(time.Millisecond))
}

func buildPanel(s site.Summary, outDir string) string {
	if s.NoOp {
		return styles.warn.Render("No lecture data found; nothing was generated.")
	}
	title := "Build complete"
	if s.DryRun {
		title = "Dry run (nothing written)"
	}
	rows := []row{
		{"Lectures loaded", s.Loaded},
		{"Files skipped", len(s.Skipped)},
		{"Placements", s.Expected},
		{"Collisions", len(s.Collisions)},
		{"Orphans removed", len(s.Removed)},
		{"Pages written", s.Pages},
		{"Output", outDir},
		{"Duration", s.Duration.Round(time.Millisecond)},
	}
	out := panel(title, rows)
	var notes []string
	for _, skipped := range s.Skipped {
		notes = append(notes, styles.warn.Render("skipped ")+skipped.Error())
	}
	for _, c := range s.Collisions {
		notes = append(notes, styles.warn.Render("collision ")+fmt.Sprintf("%s: %s replaced by %s", c.Placement, c.First, c.Second))
	}
	for _, p := range s.Removed {
		notes = append(notes, styles.muted.Render("removed ")+p.String())
	}
	if len(notes) > 0 {
		out += "\n" + strings.Join(notes, "\n")
	}
	return out
}

type VerifyCmd struct{}

func (c *VerifyCmd) Run(g *Globals) error {
	e, err := g.open()
	if err != nil {
		return err
	}
	defer e.close()

	b, err := newBuilder(e, nil, false)
	if err != nil {
		return err
	}
	ctx, cancel := signalContext()
	defer cancel()
	results, err := b.Verify(ctx)
	if err != nil {
		return err
	}

	var bad int
	for _, r := range results {
		if r.State == output.StateReady {
			continue
		}
		bad++
		line := fmt.Sprintf("%-8s %s", r.State, r.Path)
		if r.Err != nil {
			line += ": " + r.Err.Error()
		}
		fmt.Println(styles.err.Render(line))
	}
	fmt.Println(panel("Verify", []row{
		{"Checked", len(results)},
		{"Ready", len(results) - bad},
		{"Problems", bad},
	}))
	if bad > 0 {
		_ = e.journal.Warn("verify: %d of %d outputs not ready", bad, len(results))
		return errors.New("verify: generated output is incomplete")
	}
	return nil
}
