package site

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kingrea/lecture-archive/internal/lecture"
	"github.com/kingrea/lecture-archive/internal/metrics"
	"github.com/kingrea/lecture-archive/internal/output"
	"github.com/kingrea/lecture-archive/internal/placement"
	"github.com/kingrea/lecture-archive/internal/section"
)

type fixture struct {
	data string
	out  string
}

func newFixture(t *testing.T) fixture {
	t.Helper()
	root := t.TempDir()
	return fixture{data: filepath.Join(root, "data"), out: filepath.Join(root, "site")}
}

func (f fixture) source(t *testing.T, key section.Key, name, body string) {
	t.Helper()
	dir := filepath.Join(f.data, string(key))
	require.NoError(t, os.MkdirAll(dir, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(body), 0o644))
}

func (f fixture) config(policy placement.Policy) Config {
	return Config{
		DataDir:    f.data,
		OutputDir:  f.out,
		SiteTitle:  "Test Archive",
		Catalog:    section.Default(),
		CrossRules: lecture.DefaultCrossRules(),
		Planner:    placement.Planner{Policy: policy},
	}
}

func listDetails(t *testing.T, store *output.Store, key section.Key) []string {
	t.Helper()
	ids, err := store.List(key)
	require.NoError(t, err)
	return ids
}

func snapshot(t *testing.T, root string) map[string]string {
	t.Helper()
	files := map[string]string{}
	err := filepath.Walk(root, func(path string, info os.FileInfo, err error) error {
		if err != nil || info.IsDir() {
			return err
		}
		data, err := os.ReadFile(path)
		if err != nil {
			return err
		}
		rel, _ := filepath.Rel(root, path)
		files[rel] = string(data)
		return nil
	})
	require.NoError(t, err)
	return files
}

func TestBuildWritesEveryPlacement(t *testing.T) {
	f := newFixture(t)
	f.source(t, section.BhagavadGita, "a.json", `{"primary_verse":"BG 9.34","date":"2025-07-09","title":"Always Think of Me"}`)
	f.source(t, section.BhagavadGita, "b.json", `{"primary_verse":"SB 1.2.6","title":"Highest Dharma"}`)
	f.source(t, section.BhagavadGita, "bad.json", `{oops`)

	b, err := New(f.config(placement.Additive))
	require.NoError(t, err)
	summary, err := b.Build(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 2, summary.Loaded)
	assert.Len(t, summary.Skipped, 1)
	assert.Equal(t, 3, summary.Expected)
	assert.Empty(t, summary.Removed)
	// 8 sections x (index + listing) + 3 detail pages
	assert.Equal(t, 19, summary.Pages)

	store := b.Store()
	assert.Equal(t, []string{"2025-07-09-bg-9-34", "undated-sb-1-2-6"}, listDetails(t, store, section.BhagavadGita))
	assert.Equal(t, []string{"undated-sb-1-2-6"}, listDetails(t, store, section.SrimadBhagavatam))
	assert.Equal(t, 2, summary.Sections[section.BhagavadGita])
	assert.Equal(t, 0, summary.Sections[section.TulasiCare])

	results, err := b.Verify(context.Background())
	require.NoError(t, err)
	for _, r := range results {
		assert.Equal(t, output.StateReady, r.State, r.Ref.String())
	}
}

func TestBuildMovePolicyDropsPrimaryPlacement(t *testing.T) {
	f := newFixture(t)
	f.source(t, section.BhagavadGita, "b.json", `{"primary_verse":"SB 1.2.6"}`)

	b, err := New(f.config(placement.Move))
	require.NoError(t, err)
	_, err = b.Build(context.Background())
	require.NoError(t, err)

	assert.Empty(t, listDetails(t, b.Store(), section.BhagavadGita))
	assert.Equal(t, []string{"undated-sb-1-2-6"}, listDetails(t, b.Store(), section.SrimadBhagavatam))
}

func TestBuildRemovesOrphans(t *testing.T) {
	f := newFixture(t)
	f.source(t, section.BhagavadGita, "a.json", `{"id":"a"}`)
	f.source(t, section.SrimadBhagavatam, "b.json", `{"id":"b"}`)

	b, err := New(f.config(placement.Additive))
	require.NoError(t, err)
	store := b.Store()
	require.NoError(t, store.WriteDetail(section.BhagavadGita, "c", []byte("stale")))
	require.NoError(t, os.MkdirAll(filepath.Join(f.out, "bg-lectures"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(f.out, "bg-lectures", "index.html"), []byte("keep"), 0o644))

	summary, err := b.Build(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []placement.Placement{{Section: section.BhagavadGita, ID: "c"}}, summary.Removed)
	assert.Equal(t, []string{"a"}, listDetails(t, store, section.BhagavadGita))
	assert.Equal(t, []string{"b"}, listDetails(t, store, section.SrimadBhagavatam))
	assert.FileExists(t, filepath.Join(f.out, "bg-lectures", "index.html"))
}

func TestBuildIsIdempotent(t *testing.T) {
	f := newFixture(t)
	f.source(t, section.Sankirtan, "s.json", `{"title":"Harinama","date":"2024-05-05","stream_metadata":{"video_id":"v1"}}`)
	f.source(t, section.BhagavadGita, "c.json", `{"primary_verse":"CC Adi 1.1","date":"2024-01-01"}`)

	b, err := New(f.config(placement.Additive))
	require.NoError(t, err)
	_, err = b.Build(context.Background())
	require.NoError(t, err)
	first := snapshot(t, f.out)

	second, err := b.Build(context.Background())
	require.NoError(t, err)
	assert.Empty(t, second.Removed)
	assert.Equal(t, first, snapshot(t, f.out))
}

func TestBuildEmptyDataDirIsNoOp(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, os.MkdirAll(f.data, 0o755))
	b, err := New(f.config(placement.Additive))
	require.NoError(t, err)
	require.NoError(t, b.Store().WriteDetail(section.BhagavadGita, "keep-me", []byte("x")))

	summary, err := b.Build(context.Background())
	require.NoError(t, err)
	assert.True(t, summary.NoOp)
	assert.Equal(t, 0, summary.Pages)
	assert.Equal(t, []string{"keep-me"}, listDetails(t, b.Store(), section.BhagavadGita))
	assert.NoFileExists(t, filepath.Join(f.out, "bg-lectures.html"))
}

func TestBuildMissingDataDirAborts(t *testing.T) {
	f := newFixture(t)
	b, err := New(f.config(placement.Additive))
	require.NoError(t, err)
	_, err = b.Build(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, lecture.ErrMissingDataDir)
	_, statErr := os.Stat(f.out)
	assert.True(t, os.IsNotExist(statErr))
}

func TestBuildDryRunTouchesNothing(t *testing.T) {
	f := newFixture(t)
	f.source(t, section.BhagavadGita, "a.json", `{"id":"a"}`)
	b, err := New(f.config(placement.Additive), WithDryRun(true))
	require.NoError(t, err)
	require.NoError(t, b.Store().WriteDetail(section.BhagavadGita, "orphan", []byte("x")))

	summary, err := b.Build(context.Background())
	require.NoError(t, err)
	assert.True(t, summary.DryRun)
	assert.Len(t, summary.Removed, 1)
	assert.Equal(t, []string{"orphan"}, listDetails(t, b.Store(), section.BhagavadGita))
	assert.NoFileExists(t, filepath.Join(f.out, "bg-lectures.html"))
}

func TestBuildManualPlacementAndCollisions(t *testing.T) {
	f := newFixture(t)
	f.source(t, section.Sankirtan, "1.json", `{"id":"dup","takeaway":"first"}`)
	f.source(t, section.Sankirtan, "2.json", `{"id":"dup","takeaway":"second"}`)
	cfg := f.config(placement.Additive)
	cfg.Manual = []placement.Placement{
		{Section: section.DevoteeRealization, ID: "dup"},
		{Section: section.TulasiCare, ID: "missing"},
	}

	m := metrics.New()
	clock := time.Unix(1700000000, 0)
	b, err := New(cfg, WithMetrics(m), WithClock(func() time.Time { return clock }))
	require.NoError(t, err)
	summary, err := b.Build(context.Background())
	require.NoError(t, err)

	require.Len(t, summary.Collisions, 1)
	assert.Equal(t, "2.json", summary.Collisions[0].Second)
	assert.Equal(t, []string{"dup"}, listDetails(t, b.Store(), section.DevoteeRealization))
	assert.Empty(t, listDetails(t, b.Store(), section.TulasiCare))

	page, err := os.ReadFile(filepath.Join(f.out, "sankirtan", "dup.html"))
	require.NoError(t, err)
	assert.Contains(t, string(page), `<meta name="description" content="second">`)

	assert.Equal(t, 1.0, testutil.ToFloat64(m.Collisions))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.SectionLectures.WithLabelValues("devotee-realizations")))
}

func TestBuildListingOrderNewestFirst(t *testing.T) {
	f := newFixture(t)
	f.source(t, section.Sankirtan, "a.json", `{"title":"Old","date":"2023-01-01"}`)
	f.source(t, section.Sankirtan, "b.json", `{"title":"New","date":"2025-01-01"}`)
	b, err := New(f.config(placement.Additive))
	require.NoError(t, err)
	_, err = b.Build(context.Background())
	require.NoError(t, err)

	data, err := os.ReadFile(filepath.Join(f.out, "sankirtan", "index.json"))
	require.NoError(t, err)
	var order []int
	for _, id := range []string{"2025-01-01-new", "2023-01-01-old"} {
		order = append(order, strings.Index(string(data), id))
	}
	assert.True(t, sort.IntsAreSorted(order), "newest lecture should be listed first")
}

func TestBuildOutputIndependentOfWorkers(t *testing.T) {
	f := newFixture(t)
	for i, verse := range []string{"BG 2.13", "BG 2.14", "SB 1.1.1", "CC Adi 1.1", "BG 18.66"} {
		f.source(t, section.BhagavadGita, fmt.Sprintf("%d.json", i), fmt.Sprintf(`{"primary_verse":%q,"date":"2024-0%d-01"}`, verse, i+1))
	}

	serial, err := New(f.config(placement.Additive), WithWorkers(1))
	require.NoError(t, err)
	_, err = serial.Build(context.Background())
	require.NoError(t, err)
	first := snapshot(t, f.out)

	parallel, err := New(f.config(placement.Additive), WithWorkers(8))
	require.NoError(t, err)
	_, err = parallel.Build(context.Background())
	require.NoError(t, err)
	assert.Equal(t, first, snapshot(t, f.out))
}

func TestBuildSlashInVerseDoesNotAbort(t *testing.T) {
	f := newFixture(t)
	f.source(t, section.BhagavadGita, "a.json", `{"primary_verse":"BG 9.34","date":"2025-07-09"}`)
	f.source(t, section.SrimadBhagavatam, "b.json", `{"primary_verse":"SB 10.14.8/9","date":"2025-07-10"}`)
	f.source(t, section.TulasiCare, "c.json", `{"title":"Tulasi"}`)

	b, err := New(f.config(placement.Additive))
	require.NoError(t, err)
	require.NoError(t, b.Store().WriteDetail(section.BhagavadGita, "stale", []byte("x")))

	summary, err := b.Build(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []placement.Placement{{Section: section.BhagavadGita, ID: "stale"}}, summary.Removed)
	assert.Equal(t, []string{"2025-07-10-sb-10-14-8-9"}, listDetails(t, b.Store(), section.SrimadBhagavatam))
	assert.Equal(t, []string{"undated-tulasi"}, listDetails(t, b.Store(), section.TulasiCare))
	assert.FileExists(t, filepath.Join(f.out, "tulasi-care.html"))
}

func TestVerifyEmptyDataDirChecksNothing(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, os.MkdirAll(f.data, 0o755))
	b, err := New(f.config(placement.Additive))
	require.NoError(t, err)

	results, err := b.Verify(context.Background())
	require.NoError(t, err)
	assert.Empty(t, results)
}
