package rename

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kingrea/lecture-archive/internal/lecture"
	"github.com/kingrea/lecture-archive/internal/section"
)

func TestCanonical(t *testing.T) {
	tests := []struct {
		name string
		raw  map[string]any
		want string
	}{
		{
			name: "verse with date",
			raw:  map[string]any{"date": "2025-07-09", "primary_verse": "BG 9.34"},
			want: "2025-07-09-bg-9-34.json",
		},
		{
			name: "published date fallback",
			raw:  map[string]any{"primary_verse": "CC Adi 1.1", "stream_metadata": map[string]any{"published_date": "2024-03-03T10:00:00Z"}},
			want: "2024-03-03-cc-adi-1-1.json",
		},
		{
			name: "title capped at fifty",
			raw:  map[string]any{"title": "The Glories of Chanting the Holy Names in Congregation Daily"},
			want: "undated-the-glories-of-chanting-the-holy-names-in-congrega.json",
		},
		{
			name: "existing id sanitized",
			raw:  map[string]any{"id": "Lecture_01"},
			want: "undated--ecture-01.json",
		},
		{
			name: "video id",
			raw:  map[string]any{"stream_metadata": map[string]any{"video_id": "mGwIj-Jhkuw"}},
			want: "undated-mGwIj-Jhkuw.json",
		},
		{
			name: "nothing to go on",
			raw:  map[string]any{},
			want: "undated-unknown.json",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Canonical(tt.raw))
		})
	}
}

func writeFile(t *testing.T, dir, name, body string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(dir, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(body), 0o644))
}

func TestPlanClassifiesFiles(t *testing.T) {
	root := t.TempDir()
	bg := filepath.Join(root, string(section.BhagavadGita))
	writeFile(t, bg, "2025-07-09-bg-9-34.json", `{"date":"2025-07-09","primary_verse":"BG 9.34"}`)
	writeFile(t, bg, "copy.json", `{"date":"2025-07-09","primary_verse":"BG 9.34"}`)
	writeFile(t, bg, "raw1.json", `{"title":"Kirtan"}`)
	writeFile(t, bg, "raw2.json", `{"title":"Kirtan"}`)
	writeFile(t, bg, "broken.json", `{`)

	proposals, err := NewPlanner(root, section.Default(), nil).Plan(context.Background())
	require.NoError(t, err)
	require.Len(t, proposals, 5)

	byName := map[string]Proposal{}
	for _, p := range proposals {
		byName[p.From] = p
	}
	assert.Equal(t, StatusCorrect, byName["2025-07-09-bg-9-34.json"].Status)
	assert.Equal(t, StatusTargetExists, byName["copy.json"].Status)
	assert.Equal(t, StatusRename, byName["raw1.json"].Status)
	assert.Equal(t, "undated-kirtan.json", byName["raw1.json"].To)
	assert.Equal(t, StatusTargetExists, byName["raw2.json"].Status)
	assert.Equal(t, StatusError, byName["broken.json"].Status)
	assert.Len(t, Pending(proposals), 1)
}

func TestPlanMissingDataDir(t *testing.T) {
	_, err := NewPlanner(filepath.Join(t.TempDir(), "nope"), section.Default(), nil).Plan(context.Background())
	assert.ErrorIs(t, err, lecture.ErrMissingDataDir)
}

func TestApplyRenames(t *testing.T) {
	root := t.TempDir()
	dir := filepath.Join(root, string(section.Sankirtan))
	writeFile(t, dir, "raw.json", `{"title":"Harinama","date":"2024-05-05"}`)
	writeFile(t, dir, "2024-05-05-harinama.json", `{"title":"Harinama","date":"2024-05-05"}`)
	writeFile(t, dir, "other.json", `{"title":"Nagar Kirtan"}`)

	planner := NewPlanner(root, section.Default(), nil)
	proposals, err := planner.Plan(context.Background())
	require.NoError(t, err)

	result, applied := Apply(root, proposals, false, nil)
	assert.Equal(t, Result{Renamed: 1, Skipped: 2}, result)
	assert.Len(t, applied, 3)
	assert.FileExists(t, filepath.Join(dir, "undated-nagar-kirtan.json"))
	assert.NoFileExists(t, filepath.Join(dir, "other.json"))
	assert.FileExists(t, filepath.Join(dir, "raw.json"))
}

func TestApplyDryRunLeavesFiles(t *testing.T) {
	root := t.TempDir()
	dir := filepath.Join(root, string(section.Sankirtan))
	writeFile(t, dir, "other.json", `{"title":"Nagar Kirtan"}`)

	proposals, err := NewPlanner(root, section.Default(), nil).Plan(context.Background())
	require.NoError(t, err)
	result, _ := Apply(root, proposals, true, nil)
	assert.Equal(t, 1, result.Renamed)
	assert.FileExists(t, filepath.Join(dir, "other.json"))
}

func TestApplyRechecksTarget(t *testing.T) {
	root := t.TempDir()
	dir := filepath.Join(root, string(section.Sankirtan))
	writeFile(t, dir, "other.json", `{"title":"Nagar Kirtan"}`)
	proposals, err := NewPlanner(root, section.Default(), nil).Plan(context.Background())
	require.NoError(t, err)

	writeFile(t, dir, "undated-nagar-kirtan.json", `{}`)
	result, applied := Apply(root, proposals, false, nil)
	assert.Equal(t, Result{Skipped: 1}, result)
	assert.Equal(t, StatusTargetExists, applied[0].Status)
	assert.FileExists(t, filepath.Join(dir, "other.json"))
}
