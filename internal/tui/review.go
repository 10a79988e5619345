// internal/tui/review.go
//
// Interactive checklist for pending renames. The model follows bubbletea's
// Model/Update/View loop: keys toggle items, enter confirms, q or esc cancels.

package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/list"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/kingrea/lecture-archive/internal/rename"
)

// reviewItem implements list.Item for one proposal
type reviewItem struct {
	proposal rename.Proposal
	selected bool
}

func (i reviewItem) Title() string {
	mark := "[ ]"
	if i.selected {
		mark = "[x]"
	}
	return fmt.Sprintf("%s %s/%s", mark, i.proposal.Section, i.proposal.From)
}

func (i reviewItem) Description() string { return "-> " + i.proposal.To }
func (i reviewItem) FilterValue() string { return i.proposal.From }

// Review is the rename checklist model.
type Review struct {
	list      list.Model
	width     int
	height    int
	confirmed bool
	quitting  bool
}

// NewReview lists the given proposals with every item selected.
func NewReview(proposals []rename.Proposal) *Review {
	items := make([]list.Item, len(proposals))
	for i, p := range proposals {
		items[i] = reviewItem{proposal: p, selected: true}
	}
	l := list.New(items, list.NewDefaultDelegate(), 0, 0)
	l.Title = "Review renames"
	l.SetShowStatusBar(false)
	l.SetFilteringEnabled(false)
	l.SetShowHelp(false)
	l.DisableQuitKeybindings()
	return &Review{list: l}
}

func (r *Review) Init() tea.Cmd {
	return nil
}

func (r *Review) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		r.width = msg.Width
		r.height = msg.Height
		r.list.SetSize(max(0, msg.Width-4), max(0, msg.Height-4))
		return r, nil

	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c", "q", "esc":
			r.quitting = true
			return r, tea.Quit
		case "enter":
			r.confirmed = true
			r.quitting = true
			return r, tea.Quit
		case " ", "space", "x":
			return r, r.toggle(r.list.Index())
		case "a":
			return r, r.toggleAll()
		}
	}

	var cmd tea.Cmd
	r.list, cmd = r.list.Update(msg)
	return r, cmd
}

func (r *Review) toggle(index int) tea.Cmd {
	items := r.list.Items()
	if index < 0 || index >= len(items) {
		return nil
	}
	item := items[index].(reviewItem)
	item.selected = !item.selected
	return r.list.SetItem(index, item)
}

// toggleAll selects everything unless everything is already selected.
func (r *Review) toggleAll() tea.Cmd {
	items := r.list.Items()
	target := false
	for _, it := range items {
		if !it.(reviewItem).selected {
			target = true
			break
		}
	}
	var cmds []tea.Cmd
	for i, it := range items {
		item := it.(reviewItem)
		item.selected = target
		cmds = append(cmds, r.list.SetItem(i, item))
	}
	return tea.Batch(cmds...)
}

// Confirmed reports whether the user accepted the selection.
func (r *Review) Confirmed() bool {
	return r.confirmed
}

// Selected returns the checked proposals in list order.
func (r *Review) Selected() []rename.Proposal {
	var out []rename.Proposal
	for _, it := range r.list.Items() {
		if item := it.(reviewItem); item.selected {
			out = append(out, item.proposal)
		}
	}
	return out
}

func (r *Review) View() string {
	if r.quitting {
		return ""
	}
	total := len(r.list.Items())
	footer := lipgloss.NewStyle().
		Foreground(lipgloss.Color("#888888")).
		Render(fmt.Sprintf("%d of %d selected · space toggle · a all · enter apply · q cancel", len(r.Selected()), total))
	box := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(lipgloss.Color("#444444")).
		Padding(0, 1)
	return box.Render(strings.Join([]string{r.list.View(), footer}, "\n"))
}

// RunReview shows the checklist and returns the proposals the user kept.
// A cancelled review returns nil.
func RunReview(proposals []rename.Proposal, opts ...tea.ProgramOption) ([]rename.Proposal, error) {
	if len(proposals) == 0 {
		return nil, nil
	}
	model := NewReview(proposals)
	final, err := tea.NewProgram(model, opts...).Run()
	if err != nil {
		return nil, fmt.Errorf("tui: review: %w", err)
	}
	review := final.(*Review)
	if !review.Confirmed() {
		return nil, nil
	}
	return review.Selected(), nil
}
