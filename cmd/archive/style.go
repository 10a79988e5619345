package main

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
)

var styles = struct {
	title lipgloss.Style
	ok    lipgloss.Style
	warn  lipgloss.Style
	err   lipgloss.Style
	muted lipgloss.Style
	label lipgloss.Style
	box   lipgloss.Style
}{
	title: lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#5B8DEF")),
	ok:    lipgloss.NewStyle().Foreground(lipgloss.Color("#4CAF50")),
	warn:  lipgloss.NewStyle().Foreground(lipgloss.Color("#E0A030")),
	err:   lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#FF6B6B")),
	muted: lipgloss.NewStyle().Foreground(lipgloss.Color("#888888")),
	label: lipgloss.NewStyle().Foreground(lipgloss.Color("#AAAAAA")).Width(18),
	box: lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(lipgloss.Color("#444444")).
		Padding(0, 1),
}

type row struct {
	label string
	value any
}

// panel renders a titled box of label/value rows.
func panel(title string, rows []row) string {
	lines := []string{styles.title.Render(title)}
	for _, r := range rows {
		lines = append(lines, styles.label.Render(r.label)+fmt.Sprint(r.value))
	}
	return styles.box.Render(strings.Join(lines, "\n"))
}
