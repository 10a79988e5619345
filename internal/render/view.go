package render

import (
	"fmt"
	"strings"
	"time"

	"github.com/kingrea/lecture-archive/internal/lecture"
	"github.com/kingrea/lecture-archive/internal/section"
)

const (
	displayDateLayout  = "January 2, 2006"
	maxThemeFlashcards = 5
	maxFlashcardBack   = 200
	maxDescriptionLen  = 150
)

// FormatDate renders YYYY-MM-DD as "July 9, 2025". Anything else is returned
// unchanged, and an empty or undated value yields "".
func FormatDate(date string) string {
	if date == "" || date == lecture.Undated {
		return ""
	}
	t, err := time.Parse(time.DateOnly, date)
	if err != nil {
		return date
	}
	return t.Format(displayDateLayout)
}

type card struct {
	ID       string
	Title    string
	Date     string
	Verse    string
	Summary  string
	VideoID  string
	Link     string
	Featured bool
}

type listingView struct {
	SiteTitle    string
	Section      string
	SectionTitle string
	Count        int
	Cards        []card
}

type theme struct {
	Title    string
	Details  string
	Examples []string
}

type term struct {
	Term       string
	Devanagari string
	Definition string
}

type flashcard struct {
	Front string
	Back  string
}

type quizOption struct {
	Text    string
	Correct bool
}

type quizItem struct {
	Question    string
	Options     []quizOption
	Explanation string
}

type detailView struct {
	SiteTitle    string
	Section      string
	SectionTitle string
	ID           string
	Title        string
	Description  string
	Date         string
	Verse        string
	Speaker      string
	VideoID      string
	Takeaway     string
	MainTheme    string
	Summary      string
	MermaidChart string
	Themes       []theme
	Terms        []term
	Applications []string
	Quotes       []string
	Flashcards   []flashcard
	Quiz         []quizItem
	Transcript   string
}

func newCard(rec lecture.Record, sec section.Key) card {
	return card{
		ID:       rec.ID,
		Title:    rec.Title(),
		Date:     FormatDate(rec.Date),
		Verse:    rec.PrimaryVerse(),
		Summary:  rec.Takeaway(),
		VideoID:  rec.VideoID(),
		Link:     string(sec) + "/" + rec.ID + ".html",
		Featured: rec.Featured(),
	}
}

func newDetailView(rec lecture.Record, sec section.Key) detailView {
	v := detailView{
		Section:      string(sec),
		ID:           rec.ID,
		Title:        rec.Title(),
		Description:  truncate(rec.String("takeaway"), maxDescriptionLen),
		Date:         FormatDate(rec.Date),
		Verse:        rec.PrimaryVerse(),
		Speaker:      rec.Speaker(),
		VideoID:      rec.VideoID(),
		Takeaway:     rec.String("takeaway"),
		MainTheme:    rec.String("main_theme"),
		Summary:      firstNonEmpty(rec.String("summary_medium"), rec.String("summary_short")),
		MermaidChart: rec.String("mermaid_chart"),
		Transcript:   transcriptText(rec),
	}

	themes := rec.List("themes")
	if len(themes) == 0 {
		themes = rec.List("concepts")
	}
	for _, item := range themes {
		if th, ok := parseTheme(item); ok {
			v.Themes = append(v.Themes, th)
		}
	}
	for _, item := range rec.List("sanskrit_terms") {
		if t, ok := parseTerm(item); ok {
			v.Terms = append(v.Terms, t)
		}
	}
	for _, item := range rec.List("life_applications") {
		if s := textOf(item, "principle", "text"); s != "" {
			v.Applications = append(v.Applications, s)
		}
	}
	for _, item := range rec.List("quotes") {
		if s := textOf(item, "text", "quote"); s != "" {
			v.Quotes = append(v.Quotes, s)
		}
	}
	v.Flashcards = buildFlashcards(v.Terms, rec.List("qa"), v.Themes)
	for _, item := range rec.List("quiz") {
		if q, ok := parseQuizItem(item); ok {
			v.Quiz = append(v.Quiz, q)
		}
	}
	return v
}

func buildFlashcards(terms []term, qa []any, themes []theme) []flashcard {
	var cards []flashcard
	for _, t := range terms {
		cards = append(cards, flashcard{Front: termHeading(t), Back: t.Definition})
	}
	for _, item := range qa {
		m, ok := item.(map[string]any)
		if !ok {
			continue
		}
		q, a := stringField(m, "question"), stringField(m, "answer")
		if q == "" {
			continue
		}
		cards = append(cards, flashcard{Front: q, Back: a})
	}
	for i, th := range themes {
		if i == maxThemeFlashcards {
			break
		}
		cards = append(cards, flashcard{Front: th.Title, Back: truncateWithEllipsis(th.Details, maxFlashcardBack)})
	}
	return cards
}

func termHeading(t term) string {
	if t.Devanagari == "" {
		return t.Term
	}
	return fmt.Sprintf("%s (%s)", t.Term, t.Devanagari)
}

func parseTheme(item any) (theme, bool) {
	m, ok := item.(map[string]any)
	if !ok {
		return theme{}, false
	}
	th := theme{
		Title:   firstNonEmpty(stringField(m, "title"), stringField(m, "heading")),
		Details: stringField(m, "details"),
	}
	if examples, ok := m["examples"].([]any); ok {
		for _, ex := range examples {
			if s := textOf(ex, "content", "text"); s != "" {
				th.Examples = append(th.Examples, s)
			}
		}
	}
	return th, th.Title != "" || th.Details != ""
}

// parseTerm accepts either {"term","devanagari","definition"} objects or
// "term: definition" strings.
func parseTerm(item any) (term, bool) {
	switch v := item.(type) {
	case string:
		name, def, _ := strings.Cut(v, ":")
		t := term{Term: strings.TrimSpace(name), Definition: strings.TrimSpace(def)}
		return t, t.Term != ""
	case map[string]any:
		t := term{
			Term:       stringField(v, "term"),
			Devanagari: stringField(v, "devanagari"),
			Definition: firstNonEmpty(stringField(v, "definition"), stringField(v, "definition_short")),
		}
		return t, t.Term != ""
	default:
		return term{}, false
	}
}

// parseQuizItem reads {"question","options":[...],"answer"} where answer is
// either the correct option text or its zero-based index.
func parseQuizItem(item any) (quizItem, bool) {
	m, ok := item.(map[string]any)
	if !ok {
		return quizItem{}, false
	}
	q := quizItem{
		Question:    stringField(m, "question"),
		Explanation: stringField(m, "explanation"),
	}
	rawOptions, _ := m["options"].([]any)
	answerIndex := -1
	answerText := ""
	switch a := m["answer"].(type) {
	case float64:
		answerIndex = int(a)
	case string:
		answerText = strings.TrimSpace(a)
	}
	for i, opt := range rawOptions {
		text, ok := opt.(string)
		if !ok {
			continue
		}
		text = strings.TrimSpace(text)
		q.Options = append(q.Options, quizOption{
			Text:    text,
			Correct: i == answerIndex || (answerText != "" && text == answerText),
		})
	}
	return q, q.Question != "" && len(q.Options) > 0
}

func transcriptText(rec lecture.Record) string {
	if s := rec.String("transcript.full_text"); s != "" {
		return s
	}
	return rec.String("transcript")
}

func textOf(item any, keys ...string) string {
	switch v := item.(type) {
	case string:
		return strings.TrimSpace(v)
	case map[string]any:
		for _, k := range keys {
			if s := stringField(v, k); s != "" {
				return s
			}
		}
	}
	return ""
}

func stringField(m map[string]any, key string) string {
	s, _ := m[key].(string)
	return strings.TrimSpace(s)
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

func truncate(s string, max int) string {
	r := []rune(s)
	if len(r) <= max {
		return s
	}
	return string(r[:max])
}

func truncateWithEllipsis(s string, max int) string {
	if len([]rune(s)) <= max {
		return s
	}
	return truncate(s, max) + "..."
}
