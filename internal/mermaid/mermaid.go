// Package mermaid repairs and inspects the mermaid_chart field stored in
// lecture JSON.
package mermaid

import (
	"fmt"
	"regexp"
	"strings"
)

// Field is the lecture key holding the diagram source.
const Field = "mermaid_chart"

var colonParens = regexp.MustCompile(`\(([^)]*:[^)]*)\)`)

// Fix rewrites round-bracket nodes whose label contains a colon into square
// bracket nodes. Mermaid rejects the former.
func Fix(chart string) string {
	if chart == "" {
		return chart
	}
	return colonParens.ReplaceAllString(chart, "[$1]")
}

// Report describes a diagram's shape.
type Report struct {
	Length  int
	Lines   int
	Issues  []string
	Cleaned string
}

// OK reports whether no issues were found.
func (r Report) OK() bool {
	return len(r.Issues) == 0
}

// Diagnose looks for the mistakes that usually stop a chart from rendering.
func Diagnose(chart string) Report {
	report := Report{
		Length:  len(chart),
		Lines:   strings.Count(chart, "\n") + 1,
		Cleaned: Clean(chart),
	}
	if strings.Contains(chart, `\n`) {
		report.Issues = append(report.Issues, `contains literal \n sequences instead of newlines`)
	}
	if !strings.HasPrefix(strings.TrimSpace(chart), "graph") {
		report.Issues = append(report.Issues, `does not start with "graph"`)
	}
	for _, pair := range []struct {
		name        string
		open, close string
	}{
		{"brackets", "[", "]"},
		{"braces", "{", "}"},
		{"parentheses", "(", ")"},
	} {
		o, c := strings.Count(chart, pair.open), strings.Count(chart, pair.close)
		if o != c {
			report.Issues = append(report.Issues, fmt.Sprintf("unbalanced %s: %d open, %d close", pair.name, o, c))
		}
	}
	return report
}

// Clean trims every line and drops blank ones.
func Clean(chart string) string {
	var lines []string
	for _, line := range strings.Split(chart, "\n") {
		if line = strings.TrimSpace(line); line != "" {
			lines = append(lines, line)
		}
	}
	return strings.Join(lines, "\n")
}
