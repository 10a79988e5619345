package render

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"github.com/PuerkitoBio/goquery"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kingrea/lecture-archive/internal/lecture"
	"github.com/kingrea/lecture-archive/internal/section"
)

func parseHTML(t *testing.T, data []byte) *goquery.Document {
	t.Helper()
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(data))
	require.NoError(t, err)
	return doc
}

func fullRecord() lecture.Record {
	return lecture.Record{
		ID:      "2025-07-09-bg-9-34",
		Date:    "2025-07-09",
		Section: section.BhagavadGita,
		Raw: map[string]any{
			"title":          "Always Think of Me",
			"primary_verse":  "BG 9.34",
			"takeaway":       "Fix the mind on Krishna.",
			"main_theme":     "Remembrance",
			"summary_medium": "A longer summary.",
			"speaker":        map[string]any{"name": "HG Prabhu"},
			"media":          map[string]any{"video": map[string]any{"youtube_id": "vid123"}},
			"mermaid_chart":  "graph TD\nA[Mind] --> B[Krishna]",
			"themes": []any{
				map[string]any{"title": "Remembrance", "details": "Constant thought.", "examples": []any{"Japa", map[string]any{"content": "Kirtan"}}},
			},
			"sanskrit_terms":    []any{"bhakti: devotion", map[string]any{"term": "smaranam", "devanagari": "स्मरणम्", "definition": "remembering"}},
			"life_applications": []any{"Chant daily", map[string]any{"principle": "Serve"}},
			"quotes":            []any{"Man-mana bhava mad-bhakto"},
			"qa":                []any{map[string]any{"question": "Who to think of?", "answer": "Krishna"}},
			"quiz": []any{
				map[string]any{"question": "Which chapter?", "options": []any{"Two", "Nine"}, "answer": "Nine"},
				map[string]any{"question": "Index answer?", "options": []any{"a", "b"}, "answer": float64(0)},
			},
			"transcript": map[string]any{"full_text": "Line one.\nLine two."},
		},
	}
}

func TestFormatDate(t *testing.T) {
	assert.Equal(t, "July 9, 2025", FormatDate("2025-07-09"))
	assert.Equal(t, "", FormatDate(""))
	assert.Equal(t, "", FormatDate(lecture.Undated))
	assert.Equal(t, "soon", FormatDate("soon"))
}

func TestListingLinksEveryRecord(t *testing.T) {
	r, err := New("")
	require.NoError(t, err)
	records := []lecture.Record{
		fullRecord(),
		{ID: "undated-kirtan", Raw: map[string]any{"title": "Kirtan <live>", "summary_short": "short"}},
	}
	data, err := r.Listing(section.BhagavadGita, "Bhagavad Gita Lectures", records)
	require.NoError(t, err)
	doc := parseHTML(t, data)

	assert.Equal(t, "Bhagavad Gita Lectures | "+DefaultSiteTitle, doc.Find("title").Text())
	assert.Equal(t, "2 lectures", doc.Find(".count").Text())
	content, _ := doc.Find(`meta[name="archive-section"]`).Attr("content")
	assert.Equal(t, "bg-lectures", content)

	cards := doc.Find(".lecture-card")
	require.Equal(t, 2, cards.Length())
	href, _ := cards.Eq(0).Find("a.lecture-link").Attr("href")
	assert.Equal(t, "bg-lectures/2025-07-09-bg-9-34.html", href)
	assert.Equal(t, "📅 July 9, 2025", cards.Eq(0).Find(".badge-date").Text())
	assert.Equal(t, "📖 BG 9.34", cards.Eq(0).Find(".badge-verse").Text())
	src, _ := cards.Eq(0).Find("img").Attr("src")
	assert.Equal(t, "https://img.youtube.com/vi/vid123/mqdefault.jpg", src)

	assert.Equal(t, "Kirtan <live>", cards.Eq(1).Find(".lecture-title").Text())
	assert.Equal(t, "short", cards.Eq(1).Find(".lecture-summary").Text())
	assert.Equal(t, 0, cards.Eq(1).Find(".badge-date").Length())
	assert.NotContains(t, string(data), "<live>")
}

func TestListingSingularCount(t *testing.T) {
	r, err := New("Site")
	require.NoError(t, err)
	data, err := r.Listing(section.Sankirtan, "Sankirtan", []lecture.Record{{ID: "x", Raw: map[string]any{"title": "x"}}})
	require.NoError(t, err)
	assert.Equal(t, "1 lecture", parseHTML(t, data).Find(".count").Text())
}

func TestDetailRendersAllTabs(t *testing.T) {
	r, err := New("Site")
	require.NoError(t, err)
	data, err := r.Detail(fullRecord(), section.BhagavadGita, "Bhagavad Gita Lectures")
	require.NoError(t, err)
	doc := parseHTML(t, data)

	var tabs []string
	doc.Find(".tab-btn").Each(func(_ int, s *goquery.Selection) {
		tabs = append(tabs, s.Text())
	})
	assert.Equal(t, []string{"Overview", "Mind Map", "Study Notes", "Flashcards", "Quiz", "Transcript"}, tabs)

	id, _ := doc.Find(`meta[name="archive-id"]`).Attr("content")
	assert.Equal(t, "2025-07-09-bg-9-34", id)
	crumb, _ := doc.Find(".breadcrumbs a").Eq(1).Attr("href")
	assert.Equal(t, "../bg-lectures.html", crumb)
	assert.Equal(t, "🎤 HG Prabhu", doc.Find(".badge-speaker").Text())

	iframe, _ := doc.Find("#overview iframe").Attr("src")
	assert.Equal(t, "https://www.youtube.com/embed/vid123", iframe)
	assert.Contains(t, doc.Find(".mermaid").Text(), "A[Mind] --> B[Krishna]")

	assert.Equal(t, 1, doc.Find("#notes .theme-card").Not(".term").Length())
	assert.Equal(t, 2, doc.Find("#notes .term").Length())
	assert.Equal(t, "smaranam (स्मरणम्)", doc.Find("#notes .term .theme-title").Eq(1).Text())

	// two terms, one Q&A pair, one theme
	assert.Equal(t, 4, doc.Find(".flashcard").Length())
	assert.Equal(t, "Who to think of?", doc.Find(".flashcard-front").Eq(2).Text())

	options := doc.Find("#quiz .quiz-option")
	require.Equal(t, 4, options.Length())
	correct, _ := options.Eq(1).Attr("data-correct")
	assert.Equal(t, "true", correct)
	correct, _ = options.Eq(2).Attr("data-correct")
	assert.Equal(t, "true", correct)
	correct, _ = options.Eq(0).Attr("data-correct")
	assert.Equal(t, "false", correct)

	assert.Equal(t, "Line one.\nLine two.", doc.Find(".transcript").Text())
}

func TestDetailUsesPlacementSection(t *testing.T) {
	r, err := New("Site")
	require.NoError(t, err)
	rec := fullRecord()
	data, err := r.Detail(rec, section.SrimadBhagavatam, "Srimad Bhagavatam Lectures")
	require.NoError(t, err)
	doc := parseHTML(t, data)
	sec, _ := doc.Find(`meta[name="archive-section"]`).Attr("content")
	assert.Equal(t, "sb-lectures", sec)
	crumb, _ := doc.Find(".breadcrumbs a").Eq(1).Attr("href")
	assert.Equal(t, "../sb-lectures.html", crumb)
}

func TestDetailMinimalRecordShowsPlaceholders(t *testing.T) {
	r, err := New("Site")
	require.NoError(t, err)
	data, err := r.Detail(lecture.Record{ID: "bare", Raw: map[string]any{"title": "Bare"}}, section.TulasiCare, "Tulasi Care")
	require.NoError(t, err)
	doc := parseHTML(t, data)

	assert.Equal(t, 0, doc.Find(`[data-tab="mindmap"]`).Length())
	assert.Equal(t, 0, doc.Find(`[data-tab="quiz"]`).Length())
	assert.Equal(t, 0, doc.Find(`script[src*="mermaid"]`).Length())
	for _, tab := range []string{"#overview", "#notes", "#flashcards", "#transcript"} {
		assert.True(t, strings.HasPrefix(strings.TrimSpace(doc.Find(tab).Text()), "No "), tab)
	}
}

func TestIndexJSON(t *testing.T) {
	rec := fullRecord()
	data, err := IndexJSON(section.SrimadBhagavatam, "Srimad Bhagavatam Lectures", []lecture.Record{rec})
	require.NoError(t, err)

	var idx Index
	require.NoError(t, json.Unmarshal(data, &idx))
	assert.Equal(t, section.SrimadBhagavatam, idx.Section)
	assert.Equal(t, 1, idx.Count)
	require.Len(t, idx.Lectures, 1)
	entry := idx.Lectures[0]
	assert.Equal(t, "2025-07-09-bg-9-34", entry.ID)
	assert.Equal(t, "BG 9.34", entry.PrimaryVerse)
	assert.Equal(t, section.SrimadBhagavatam, entry.Section)
	assert.False(t, entry.Featured)
	assert.NotNil(t, entry.Media)
	assert.Nil(t, entry.StreamMetadata)
}

func TestIndexJSONEmptySection(t *testing.T) {
	data, err := IndexJSON(section.TulasiCare, "Tulasi Care", nil)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"lectures": []`)
	assert.Contains(t, string(data), `"count": 0`)
}
