package main

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"golang.org/x/term"

	"github.com/bazelment/yoloswe/agentchat/adapter"
	"github.com/bazelment/yoloswe/agentchat/group"
)

var (
	titleStyle     = lipgloss.NewStyle().Bold(true)
	commandStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#7aa2f7"))
	toolStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("#bb9af7"))
	completedStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#9ece6a"))
	errorStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("#f7768e"))
	dimStyle       = lipgloss.NewStyle().Foreground(lipgloss.Color("#565f89"))
	itemStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("#a9b1d6"))
)

// isTerminal reports whether f is attached to a terminal.
func isTerminal(f *os.File) bool {
	return term.IsTerminal(int(f.Fd()))
}

// renderer draws event groups. Styling is skipped when plain is set.
type renderer struct {
	view  *group.ViewState
	plain bool
}

func newRenderer(plain bool) *renderer {
	return &renderer{view: group.NewViewState(), plain: plain}
}

func (r *renderer) style(s lipgloss.Style, text string) string {
	if r.plain {
		return text
	}
	return s.Render(text)
}

// render returns the text for groups, expanding the ones the view has open.
func (r *renderer) render(groups []group.Group) string {
	var b strings.Builder
	for _, g := range groups {
		r.renderGroup(&b, g)
	}
	return b.String()
}

func (r *renderer) renderGroup(b *strings.Builder, g group.Group) {
	open := r.view.IsOpen(g)
	marker := " "
	if g.Collapsible {
		marker = "▸"
		if open {
			marker = "▾"
		}
	}

	title := g.Title
	if title == "" {
		title = string(g.Kind)
	}
	var styled string
	switch {
	case groupFailed(g):
		styled = r.style(errorStyle, title)
	case g.Kind == group.KindCommand:
		styled = r.style(commandStyle, title)
	case g.Kind == group.KindTool:
		styled = r.style(toolStyle, title)
	case g.Kind == group.KindCompletion:
		styled = r.style(completedStyle, title)
	default:
		styled = r.style(titleStyle, title)
	}

	status := ""
	switch {
	case g.Interrupted:
		status = " " + r.style(dimStyle, "(interrupted)")
	case !g.Completed && g.Kind != group.KindSingle:
		status = " " + r.style(dimStyle, "(running)")
	}
	fmt.Fprintf(b, "%s %s%s\n", marker, styled, status)

	if !open || !g.Collapsible {
		return
	}
	for _, ev := range g.Items {
		for _, line := range itemLines(ev) {
			b.WriteString("    ")
			b.WriteString(r.style(itemStyle, line))
			b.WriteByte('\n')
		}
	}
}

func groupFailed(g group.Group) bool {
	for _, ev := range g.Items {
		if ev.IsError {
			return true
		}
	}
	return false
}

// itemLines returns the body lines shown under an expanded group.
func itemLines(ev adapter.Event) []string {
	var lines []string
	for _, text := range []string{ev.Content, ev.Detail} {
		text = strings.TrimRight(text, "\n")
		if text == "" {
			continue
		}
		lines = append(lines, strings.Split(text, "\n")...)
	}
	return lines
}

// writeGroups renders groups to w.
func writeGroups(w io.Writer, r *renderer, groups []group.Group) {
	fmt.Fprint(w, r.render(groups))
}
