// Package site runs the full build: load, resolve, plan, reconcile and
// regenerate, strictly in that order.
package site

import (
	"context"
	"fmt"
	"runtime"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/kingrea/lecture-archive/internal/lecture"
	"github.com/kingrea/lecture-archive/internal/logging"
	"github.com/kingrea/lecture-archive/internal/metrics"
	"github.com/kingrea/lecture-archive/internal/output"
	"github.com/kingrea/lecture-archive/internal/placement"
	"github.com/kingrea/lecture-archive/internal/reconcile"
	"github.com/kingrea/lecture-archive/internal/render"
	"github.com/kingrea/lecture-archive/internal/section"
)

// Config describes one site.
type Config struct {
	DataDir    string
	OutputDir  string
	SiteTitle  string
	Catalog    section.Catalog
	CrossRules []lecture.CrossRule
	Planner    placement.Planner
	Manual     []placement.Placement
}

// Summary reports what a build did.
type Summary struct {
	Loaded     int
	Skipped    []*lecture.SourceError
	Collisions []placement.Collision
	Expected   int
	Removed    []placement.Placement
	Pages      int
	Sections   map[section.Key]int
	NoOp       bool
	DryRun     bool
	Duration   time.Duration
}

// Builder composes the pipeline stages.
type Builder struct {
	cfg      Config
	loader   *lecture.Loader
	store    *output.Store
	renderer *render.Renderer
	log      *logging.Logger
	metrics  *metrics.Metrics
	dryRun   bool
	workers  int
	now      func() time.Time
}

// Option customizes a Builder.
type Option func(*Builder)

func WithLogger(log *logging.Logger) Option {
	return func(b *Builder) {
		b.log = log
	}
}

// WithMetrics records every build outcome on m.
func WithMetrics(m *metrics.Metrics) Option {
	return func(b *Builder) {
		b.metrics = m
	}
}

// WithDryRun plans and reports orphans without writing or deleting anything.
func WithDryRun(dryRun bool) Option {
	return func(b *Builder) {
		b.dryRun = dryRun
	}
}

// WithWorkers bounds how many lecture pages render at once.
func WithWorkers(n int) Option {
	return func(b *Builder) {
		if n > 0 {
			b.workers = n
		}
	}
}

// WithClock overrides the clock used for durations and metrics.
func WithClock(clock func() time.Time) Option {
	return func(b *Builder) {
		b.now = clock
	}
}

// New wires a builder for cfg.
func New(cfg Config, opts ...Option) (*Builder, error) {
	if cfg.Catalog.Len() == 0 {
		cfg.Catalog = section.Default()
	}
	if cfg.DataDir == "" || cfg.OutputDir == "" {
		return nil, fmt.Errorf("site: data and output directories are required")
	}
	renderer, err := render.New(cfg.SiteTitle)
	if err != nil {
		return nil, err
	}
	b := &Builder{
		cfg:      cfg,
		store:    output.NewStore(cfg.OutputDir),
		renderer: renderer,
		workers:  runtime.GOMAXPROCS(0),
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(b)
	}
	b.loader = lecture.NewLoader(cfg.DataDir, cfg.Catalog, lecture.NewResolver(cfg.CrossRules), b.log)
	return b, nil
}

// Store exposes the output store the builder writes to.
func (b *Builder) Store() *output.Store {
	return b.store
}

// Build runs the pipeline once. Source files that fail to load are skipped
// and reported; a missing data directory or any output failure aborts the
// run. When no record loads at all the output tree is left untouched.
func (b *Builder) Build(ctx context.Context) (Summary, error) {
	start := b.now()
	summary := Summary{DryRun: b.dryRun, Sections: map[section.Key]int{}}

	loaded, err := b.loader.Load(ctx)
	if err != nil {
		return summary, fmt.Errorf("site: load: %w", err)
	}
	summary.Loaded = len(loaded.Records)
	summary.Skipped = loaded.Skipped
	if len(loaded.Records) == 0 {
		b.log.Warn("no lecture records loaded, leaving output untouched", "data_dir", b.cfg.DataDir)
		summary.NoOp = true
		summary.Duration = b.now().Sub(start)
		b.observe(summary)
		return summary, nil
	}

	records := loaded.Records
	plan := b.cfg.Planner.Plan(records, b.cfg.Manual)
	summary.Expected = plan.Expected.Len()
	summary.Collisions = plan.Collisions
	for _, c := range plan.Collisions {
		b.log.Warn("placement collision, last loaded record wins",
			"section", c.Placement.Section, "id", c.Placement.ID, "first", c.First, "second", c.Second)
	}

	rec := reconcile.New(b.store, reconcile.WithDryRun(b.dryRun), reconcile.WithLogger(b.log))
	report, err := rec.Run(ctx, plan.Expected, b.cfg.Catalog.Keys())
	if err != nil {
		return summary, fmt.Errorf("site: reconcile: %w", err)
	}
	summary.Removed = report.Removed

	pages, err := b.regenerate(ctx, plan.Entries(records), summary.Sections)
	summary.Pages = pages
	if err != nil {
		return summary, err
	}
	summary.Duration = b.now().Sub(start)
	b.log.Info("build finished",
		"loaded", summary.Loaded, "skipped", len(summary.Skipped), "removed", len(summary.Removed),
		"pages", summary.Pages, "dry_run", b.dryRun)
	b.observe(summary)
	return summary, nil
}

func (b *Builder) regenerate(ctx context.Context, entries map[section.Key][]lecture.Record, counts map[section.Key]int) (int, error) {
	pages := 0
	write := func(ref output.Ref, body []byte) error {
		pages++
		if b.dryRun {
			return nil
		}
		if err := b.store.Write(ref, body); err != nil {
			return fmt.Errorf("site: %w", err)
		}
		return nil
	}

	for _, entry := range b.cfg.Catalog.Entries() {
		if err := ctx.Err(); err != nil {
			return pages, err
		}
		records := entries[entry.Key]
		counts[entry.Key] = len(records)

		index, err := render.IndexJSON(entry.Key, entry.Title, records)
		if err != nil {
			return pages, err
		}
		if err := write(output.IndexRef(entry.Key), index); err != nil {
			return pages, err
		}
		listing, err := b.renderer.Listing(entry.Key, entry.Title, records)
		if err != nil {
			return pages, err
		}
		if err := write(output.ListingRef(entry.Key), listing); err != nil {
			return pages, err
		}
		details, err := b.renderDetails(ctx, entry, records)
		if err != nil {
			return pages, err
		}
		for i, rec := range records {
			if err := write(output.DetailRef(entry.Key, rec.ID), details[i]); err != nil {
				return pages, err
			}
		}
		b.log.Debug("section rendered", "section", entry.Key, "lectures", len(records))
	}
	return pages, nil
}

// renderDetails renders a section's lecture pages concurrently. The result
// is index-aligned with records so writes stay in a fixed order.
func (b *Builder) renderDetails(ctx context.Context, entry section.Entry, records []lecture.Record) ([][]byte, error) {
	pages := make([][]byte, len(records))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(b.workers)
	for i, rec := range records {
		i, rec := i, rec
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			page, err := b.renderer.Detail(rec, entry.Key, entry.Title)
			if err != nil {
				return err
			}
			pages[i] = page
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return pages, nil
}

func (b *Builder) observe(s Summary) {
	if b.metrics == nil {
		return
	}
	sections := make(map[string]int, len(s.Sections))
	for k, v := range s.Sections {
		sections[string(k)] = v
	}
	b.metrics.Observe(metrics.Build{
		Loaded:     s.Loaded,
		Skipped:    len(s.Skipped),
		Collisions: len(s.Collisions),
		Removed:    len(s.Removed),
		Pages:      s.Pages,
		DryRun:     s.DryRun,
		Duration:   s.Duration,
		Sections:   sections,
	}, b.now())
}

// Verify loads and plans like Build, then checks that every page the plan
// implies exists on disk and belongs where it is stored. It never writes.
// With no records loaded there is nothing Build would have produced, so
// nothing is checked.
func (b *Builder) Verify(ctx context.Context) ([]output.CheckResult, error) {
	loaded, err := b.loader.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("site: load: %w", err)
	}
	if len(loaded.Records) == 0 {
		return nil, nil
	}
	plan := b.cfg.Planner.Plan(loaded.Records, b.cfg.Manual)
	entries := plan.Entries(loaded.Records)

	var results []output.CheckResult
	check := func(ref output.Ref) {
		result, _ := b.store.Check(ref)
		results = append(results, result)
	}
	for _, key := range b.cfg.Catalog.Keys() {
		check(output.IndexRef(key))
		check(output.ListingRef(key))
		for _, rec := range entries[key] {
			check(output.DetailRef(key, rec.ID))
		}
	}
	return results, nil
}
