// Package placement decides which (section, id) detail pages should exist
// after a build.
package placement

import (
	"fmt"
	"sort"
	"strings"

	"github.com/kingrea/lecture-archive/internal/lecture"
	"github.com/kingrea/lecture-archive/internal/section"
)

// Placement is one detail page location.
type Placement struct {
	Section section.Key `yaml:"section" json:"section"`
	ID      string      `yaml:"id" json:"id"`
}

func (p Placement) String() string {
	return string(p.Section) + "/" + p.ID
}

// Set is an unordered collection of placements.
type Set struct {
	items map[Placement]struct{}
}

// NewSet returns a set holding the given placements.
func NewSet(items ...Placement) Set {
	s := Set{items: make(map[Placement]struct{}, len(items))}
	for _, p := range items {
		s.items[p] = struct{}{}
	}
	return s
}

// Add inserts p and reports whether it was new.
func (s *Set) Add(p Placement) bool {
	if s.items == nil {
		s.items = map[Placement]struct{}{}
	}
	if _, ok := s.items[p]; ok {
		return false
	}
	s.items[p] = struct{}{}
	return true
}

func (s Set) Has(p Placement) bool {
	_, ok := s.items[p]
	return ok
}

func (s Set) Len() int {
	return len(s.items)
}

// Sorted returns the placements ordered by section then ID.
func (s Set) Sorted() []Placement {
	out := make([]Placement, 0, len(s.items))
	for p := range s.items {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Section != out[j].Section {
			return out[i].Section < out[j].Section
		}
		return out[i].ID < out[j].ID
	})
	return out
}

// BySection groups the IDs of the set per section, each list sorted.
func (s Set) BySection() map[section.Key][]string {
	out := map[section.Key][]string{}
	for _, p := range s.Sorted() {
		out[p.Section] = append(out[p.Section], p.ID)
	}
	return out
}

// Policy selects how cross-listed records treat their primary section.
type Policy string

const (
	// Additive lists a record in its primary section and every cross section.
	Additive Policy = "additive"
	// Move drops the primary placement when the primary section is one of
	// MoveFrom and the record has at least one cross section.
	Move Policy = "move"
)

// ParsePolicy accepts "additive" or "move", case-insensitively. Empty means
// Additive.
func ParsePolicy(value string) (Policy, error) {
	switch Policy(strings.ToLower(strings.TrimSpace(value))) {
	case "", Additive:
		return Additive, nil
	case Move:
		return Move, nil
	default:
		return "", fmt.Errorf("placement: unknown cross-listing policy %q", value)
	}
}

// DefaultMoveFrom lists the sections that give up cross-listed records under
// the Move policy when none are configured.
func DefaultMoveFrom() []section.Key {
	return []section.Key{section.BhagavadGita}
}

// Collision records two loaded records resolving to the same placement. The
// later one wins when pages are rendered.
type Collision struct {
	Placement Placement
	First     string
	Second    string
}

// Plan is the outcome of planning a build.
type Plan struct {
	Expected   Set
	Collisions []Collision

	suppressed map[int]bool
	manual     []Placement
}

// Planner computes expected placements.
type Planner struct {
	Policy   Policy
	MoveFrom []section.Key
}

// Plan computes the expected placement set from resolved records and manual
// extras. Manual placements are taken verbatim; an ID that matches no record
// is kept in the set but renders nothing.
func (pl Planner) Plan(records []lecture.Record, manual []Placement) Plan {
	plan := Plan{
		Expected:   NewSet(),
		suppressed: map[int]bool{},
		manual:     append([]Placement(nil), manual...),
	}
	owners := map[Placement]string{}
	claim := func(p Placement, rec lecture.Record) {
		if prev, ok := owners[p]; ok {
			plan.Collisions = append(plan.Collisions, Collision{Placement: p, First: prev, Second: rec.SourceFilename})
		}
		owners[p] = rec.SourceFilename
		plan.Expected.Add(p)
	}

	for i, rec := range records {
		if pl.suppressPrimary(rec) {
			plan.suppressed[i] = true
		} else {
			claim(Placement{Section: rec.Section, ID: rec.ID}, rec)
		}
		for _, cross := range rec.CrossSections {
			claim(Placement{Section: cross, ID: rec.ID}, rec)
		}
	}
	for _, p := range manual {
		plan.Expected.Add(p)
	}
	return plan
}

func (pl Planner) suppressPrimary(rec lecture.Record) bool {
	if pl.Policy != Move || len(rec.CrossSections) == 0 {
		return false
	}
	moveFrom := pl.MoveFrom
	if moveFrom == nil {
		moveFrom = DefaultMoveFrom()
	}
	for _, key := range moveFrom {
		if key == rec.Section {
			return true
		}
	}
	return false
}

// Entries returns, per section, the records rendered there, sorted newest
// first. records must be the same slice passed to Plan. When several records
// claim one placement the last loaded is kept.
func (p Plan) Entries(records []lecture.Record) map[section.Key][]lecture.Record {
	byPlacement := map[Placement]int{}
	var order []Placement
	put := func(pl Placement, idx int) {
		if _, ok := byPlacement[pl]; !ok {
			order = append(order, pl)
		}
		byPlacement[pl] = idx
	}

	byID := map[string]int{}
	for i, rec := range records {
		byID[rec.ID] = i
		if !p.suppressed[i] {
			put(Placement{Section: rec.Section, ID: rec.ID}, i)
		}
		for _, cross := range rec.CrossSections {
			put(Placement{Section: cross, ID: rec.ID}, i)
		}
	}
	for _, m := range p.manual {
		if _, ok := byPlacement[m]; ok {
			continue
		}
		if idx, ok := byID[m.ID]; ok {
			put(m, idx)
		}
	}

	out := map[section.Key][]lecture.Record{}
	for _, pl := range order {
		rec := records[byPlacement[pl]]
		out[pl.Section] = append(out[pl.Section], rec)
	}
	for key := range out {
		lecture.SortByDateDesc(out[key])
	}
	return out
}
