package lecture

import (
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/kingrea/lecture-archive/internal/section"
)

// MaxTitleTokenLen caps the slug derived from a title inside an ID.
const MaxTitleTokenLen = 40

// CrossRule cross-lists a record under Section when its ID carries Token as a
// hyphen-delimited segment.
type CrossRule struct {
	Token   string
	Section section.Key
}

// DefaultCrossRules lists Bhagavatam and Caritamrta verses wherever they were
// filed.
func DefaultCrossRules() []CrossRule {
	return []CrossRule{
		{Token: "sb", Section: section.SrimadBhagavatam},
		{Token: "cc", Section: section.CaitanyaCaritamrta},
	}
}

// Resolver computes identity fields for raw records.
type Resolver struct {
	rules []CrossRule
}

// NewResolver returns a resolver using the given cross-listing rules.
func NewResolver(rules []CrossRule) *Resolver {
	normalized := make([]CrossRule, 0, len(rules))
	for _, r := range rules {
		token := strings.ToLower(strings.Trim(strings.TrimSpace(r.Token), "-"))
		if token == "" || r.Section == "" {
			continue
		}
		normalized = append(normalized, CrossRule{Token: token, Section: r.Section})
	}
	return &Resolver{rules: normalized}
}

// Resolve builds a Record from a parsed JSON object, the file it came from
// and the section folder it was found in.
func (r *Resolver) Resolve(raw map[string]any, filename string, sec section.Key) Record {
	if raw == nil {
		raw = map[string]any{}
	}
	rec := Record{
		Raw:            raw,
		SourceFilename: filename,
		Section:        sec,
	}
	rec.Date = ResolveDate(raw, filename)
	rec.ID = DeriveID(raw, rec.Date, filename)
	rec.CrossSections = r.crossSections(rec.ID, sec)
	backfillVideoID(raw)
	return rec
}

// ResolveDate applies the date priority: explicit date field, then a date
// embedded in the file name, then the stream's published date. It returns ""
// when none yields a valid date.
func ResolveDate(raw map[string]any, filename string) string {
	if d := normalizeDate(firstString(raw, "date")); d != "" {
		return d
	}
	if d, ok := DateFromFilename(filename); ok {
		return d
	}
	published := firstString(raw, fieldPublishedDate...)
	if i := strings.IndexByte(published, 'T'); i >= 0 {
		published = published[:i]
	}
	return normalizeDate(published)
}

var (
	filenameDatePattern = regexp.MustCompile(`__(\d{1,2})-(Jan|Feb|Mar|Apr|May|Jun|Jul|Aug|Sep|Oct|Nov|Dec)-(\d{2})\.`)

	monthNumbers = map[string]string{
		"Jan": "01", "Feb": "02", "Mar": "03", "Apr": "04",
		"May": "05", "Jun": "06", "Jul": "07", "Aug": "08",
		"Sep": "09", "Oct": "10", "Nov": "11", "Dec": "12",
	}
)

// DateFromFilename extracts a date from names like "mGwIj-Jhkuw__9-Jul-25.srt".
// Impossible calendar dates such as 31-Feb are rejected.
func DateFromFilename(filename string) (string, bool) {
	m := filenameDatePattern.FindStringSubmatch(filename)
	if m == nil {
		return "", false
	}
	day := m[1]
	if len(day) == 1 {
		day = "0" + day
	}
	date := normalizeDate("20" + m[3] + "-" + monthNumbers[m[2]] + "-" + day)
	return date, date != ""
}

func normalizeDate(value string) string {
	value = strings.TrimSpace(value)
	if value == "" || value == Undated {
		return ""
	}
	if _, err := time.Parse(time.DateOnly, value); err != nil {
		return ""
	}
	return value
}

var (
	whitespaceRun  = regexp.MustCompile(`\s+`)
	nonAlnumRun    = regexp.MustCompile(`[^a-z0-9]+`)
	disallowedInID = regexp.MustCompile(`[^a-z0-9-]`)

	pathSeparators = strings.NewReplacer("/", "-", `\`, "-")
)

// VerseToken turns a verse reference into an ID segment: "CC Adi 1.1"
// becomes "cc-adi-1-1" and "SB 10.14.8/9" becomes "sb-10-14-8-9".
func VerseToken(verse string) string {
	token := strings.ToLower(verse)
	token = whitespaceRun.ReplaceAllString(token, "-")
	token = pathSeparators.Replace(token)
	return strings.ReplaceAll(token, ".", "-")
}

// TitleToken slugifies a title and truncates it to max bytes.
func TitleToken(title string, max int) string {
	token := nonAlnumRun.ReplaceAllString(strings.ToLower(title), "-")
	token = strings.Trim(token, "-")
	if max > 0 && len(token) > max {
		token = token[:max]
	}
	return token
}

// SanitizeID replaces every character outside [a-z0-9-] with a hyphen.
func SanitizeID(id string) string {
	return disallowedInID.ReplaceAllString(id, "-")
}

// DeriveID computes the canonical ID. A verse or title token yields
// "<date|undated>-<token>"; otherwise the record's own id, with path
// separators replaced, or the file stem is used.
func DeriveID(raw map[string]any, date, filename string) string {
	token := ""
	if verse := firstString(raw, fieldPrimaryVerse...); verse != "" {
		token = VerseToken(verse)
	} else if title := firstString(raw, "title"); title != "" {
		token = TitleToken(title, MaxTitleTokenLen)
	}
	if token != "" {
		if date == "" {
			date = Undated
		}
		return date + "-" + token
	}
	if id := firstString(raw, "id"); id != "" {
		return pathSeparators.Replace(id)
	}
	return strings.TrimSuffix(filename, filepath.Ext(filename))
}

// PlainName reports whether id can be used as a page file name as is.
func PlainName(id string) bool {
	return id != "" && id != "." && id != ".." && !strings.ContainsAny(id, `/\`)
}

func (r *Resolver) crossSections(id string, primary section.Key) []section.Key {
	lower := strings.ToLower(id)
	var out []section.Key
	for _, rule := range r.rules {
		if rule.Section == primary || containsKey(out, rule.Section) {
			continue
		}
		if strings.HasPrefix(lower, rule.Token+"-") || strings.Contains(lower, "-"+rule.Token+"-") {
			out = append(out, rule.Section)
		}
	}
	return out
}

func backfillVideoID(raw map[string]any) {
	if id, ok := lookup(raw, "media.video.youtube_id"); ok {
		if s, _ := id.(string); s != "" {
			return
		}
	}
	videoID := firstString(raw, fieldVideoID...)
	if videoID == "" {
		return
	}
	media, ok := raw["media"].(map[string]any)
	if !ok {
		media = map[string]any{}
		raw["media"] = media
	}
	video, ok := media["video"].(map[string]any)
	if !ok {
		video = map[string]any{}
		media["video"] = video
	}
	video["youtube_id"] = videoID
}

func containsKey(keys []section.Key, target section.Key) bool {
	for _, k := range keys {
		if k == target {
			return true
		}
	}
	return false
}
