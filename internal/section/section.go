// Package section defines the fixed set of topical sections a lecture can be
// filed under. The catalog is built once at startup and passed to every
// component that needs section keys or display titles.
package section

import (
	"fmt"
	"strings"
)

// Key identifies a section. It doubles as the data subdirectory name and the
// output directory name.
type Key string

// Well-known section keys.
const (
	BhagavadGita       Key = "bg-lectures"
	SrimadBhagavatam   Key = "sb-lectures"
	CaitanyaCaritamrta Key = "cc-lectures"
	NinePMRealizations Key = "9pm-realizations"
	DevoteeRealization Key = "devotee-realizations"
	Sankirtan          Key = "sankirtan"
	VaishnavaBhajans   Key = "vaishnava-bhajans"
	TulasiCare         Key = "tulasi-care"
)

// Entry pairs a section key with its display title.
type Entry struct {
	Key   Key
	Title string
}

// Catalog is an ordered, read-only list of sections.
type Catalog struct {
	entries []Entry
	titles  map[Key]string
}

var defaultEntries = []Entry{
	{Key: BhagavadGita, Title: "Bhagavad Gita Lectures"},
	{Key: SrimadBhagavatam, Title: "Srimad Bhagavatam Lectures"},
	{Key: CaitanyaCaritamrta, Title: "Caitanya Caritamrta Lectures"},
	{Key: NinePMRealizations, Title: "9pm Realizations"},
	{Key: DevoteeRealization, Title: "Devotee Realizations"},
	{Key: Sankirtan, Title: "Sankirtan"},
	{Key: VaishnavaBhajans, Title: "Vaishnava Bhajans"},
	{Key: TulasiCare, Title: "Tulasi Care"},
}

// DefaultEntries returns a copy of the archive's standard eight sections.
func DefaultEntries() []Entry {
	return append([]Entry(nil), defaultEntries...)
}

// Default returns the standard catalog.
func Default() Catalog {
	cat, err := NewCatalog(defaultEntries)
	if err != nil {
		panic(err)
	}
	return cat
}

// NewCatalog validates entries and builds a catalog preserving their order.
func NewCatalog(entries []Entry) (Catalog, error) {
	if len(entries) == 0 {
		return Catalog{}, fmt.Errorf("section: at least one section is required")
	}
	cat := Catalog{
		entries: make([]Entry, 0, len(entries)),
		titles:  make(map[Key]string, len(entries)),
	}
	for i, e := range entries {
		key := Key(strings.TrimSpace(string(e.Key)))
		if key == "" {
			return Catalog{}, fmt.Errorf("section: entry %d has an empty key", i)
		}
		if strings.ContainsAny(string(key), `/\`) {
			return Catalog{}, fmt.Errorf("section: key %q must not contain path separators", key)
		}
		if _, dup := cat.titles[key]; dup {
			return Catalog{}, fmt.Errorf("section: duplicate key %q", key)
		}
		title := strings.TrimSpace(e.Title)
		if title == "" {
			title = string(key)
		}
		cat.entries = append(cat.entries, Entry{Key: key, Title: title})
		cat.titles[key] = title
	}
	return cat, nil
}

// Keys returns the section keys in catalog order.
func (c Catalog) Keys() []Key {
	keys := make([]Key, len(c.entries))
	for i, e := range c.entries {
		keys[i] = e.Key
	}
	return keys
}

// Entries returns a copy of the catalog entries.
func (c Catalog) Entries() []Entry {
	return append([]Entry(nil), c.entries...)
}

// Has reports whether key is part of the catalog.
func (c Catalog) Has(key Key) bool {
	_, ok := c.titles[key]
	return ok
}

// Title returns the display title for key, or the key itself when unknown.
func (c Catalog) Title(key Key) string {
	if title, ok := c.titles[key]; ok {
		return title
	}
	return string(key)
}

// Len returns the number of sections.
func (c Catalog) Len() int {
	return len(c.entries)
}
