package metrics

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestObserveSetsGauges(t *testing.T) {
	m := New()
	m.Observe(Build{
		Loaded:   5,
		Skipped:  1,
		Removed:  2,
		Pages:    9,
		Duration: 1500 * time.Millisecond,
		Sections: map[string]int{"bg-lectures": 3, "sankirtan": 2},
	}, time.Unix(1700000000, 0))

	assert.Equal(t, 5.0, testutil.ToFloat64(m.RecordsLoaded))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.OrphansRemoved))
	assert.Equal(t, 1.5, testutil.ToFloat64(m.BuildDuration))
	assert.Equal(t, 1700000000.0, testutil.ToFloat64(m.LastBuild))
	assert.Equal(t, 3.0, testutil.ToFloat64(m.SectionLectures.WithLabelValues("bg-lectures")))
}

func TestObserveDryRunKeepsLastBuild(t *testing.T) {
	m := New()
	m.Observe(Build{}, time.Unix(100, 0))
	m.Observe(Build{DryRun: true}, time.Unix(200, 0))
	assert.Equal(t, 100.0, testutil.ToFloat64(m.LastBuild))
}

func TestWriteTextfile(t *testing.T) {
	m := New()
	m.Observe(Build{Loaded: 7}, time.Now())
	path := filepath.Join(t.TempDir(), "metrics", "archive.prom")
	require.NoError(t, m.WriteTextfile(path))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.True(t, strings.Contains(string(data), "archive_records_loaded 7"))
}
