// Package reconcile removes rendered detail pages that no longer correspond to
// an expected placement.
package reconcile

import (
	"context"
	"fmt"
	"sort"

	"github.com/kingrea/lecture-archive/internal/logging"
	"github.com/kingrea/lecture-archive/internal/placement"
	"github.com/kingrea/lecture-archive/internal/section"
)

// Inventory lists and removes rendered detail pages. List must return an
// empty slice, not an error, for a section that has no output yet, and must
// not include the section's own index page.
type Inventory interface {
	List(sec section.Key) ([]string, error)
	Remove(sec section.Key, id string) error
}

// Report describes one reconciliation.
type Report struct {
	Existing int
	Removed  []placement.Placement
	DryRun   bool
}

// Reconciler deletes orphans from an Inventory.
type Reconciler struct {
	inventory Inventory
	log       *logging.Logger
	dryRun    bool
}

// Option customizes a Reconciler.
type Option func(*Reconciler)

// WithDryRun reports orphans without removing them.
func WithDryRun(dryRun bool) Option {
	return func(r *Reconciler) {
		r.dryRun = dryRun
	}
}

// WithLogger attaches a logger.
func WithLogger(log *logging.Logger) Option {
	return func(r *Reconciler) {
		r.log = log
	}
}

func New(inv Inventory, opts ...Option) *Reconciler {
	r := &Reconciler{inventory: inv}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Orphans returns every existing artifact whose placement is not expected,
// ordered by section then ID.
func Orphans(expected placement.Set, existing map[section.Key][]string) []placement.Placement {
	var out []placement.Placement
	for sec, ids := range existing {
		for _, id := range ids {
			p := placement.Placement{Section: sec, ID: id}
			if !expected.Has(p) {
				out = append(out, p)
			}
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Section != out[j].Section {
			return out[i].Section < out[j].Section
		}
		return out[i].ID < out[j].ID
	})
	return out
}

// Run lists every section, computes orphans and removes them. Removal is
// unconditional; the first failure aborts the run.
func (r *Reconciler) Run(ctx context.Context, expected placement.Set, sections []section.Key) (Report, error) {
	report := Report{DryRun: r.dryRun}
	existing := make(map[section.Key][]string, len(sections))
	for _, sec := range sections {
		ids, err := r.inventory.List(sec)
		if err != nil {
			return report, fmt.Errorf("reconcile: list %s: %w", sec, err)
		}
		existing[sec] = ids
		report.Existing += len(ids)
	}

	for _, orphan := range Orphans(expected, existing) {
		if err := ctx.Err(); err != nil {
			return report, err
		}
		if r.dryRun {
			r.log.Info("would remove orphan", "section", orphan.Section, "id", orphan.ID)
			report.Removed = append(report.Removed, orphan)
			continue
		}
		if err := r.inventory.Remove(orphan.Section, orphan.ID); err != nil {
			return report, fmt.Errorf("reconcile: remove %s: %w", orphan, err)
		}
		r.log.Info("removed orphan", "section", orphan.Section, "id", orphan.ID)
		report.Removed = append(report.Removed, orphan)
	}
	return report, nil
}
