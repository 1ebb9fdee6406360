package main

import (
	"strings"

	"github.com/charmbracelet/lipgloss"

	"termbridge/internal/query"
)

var (
	accent      = lipgloss.Color("#8BC34A")
	destructive = lipgloss.Color("#e53935")
	muted       = lipgloss.Color("#7a8699")

	answerStyle = lipgloss.NewStyle().Foreground(accent)
	errorStyle  = lipgloss.NewStyle().Foreground(destructive).Bold(true)
	mutedStyle  = lipgloss.NewStyle().Foreground(muted)
)

// renderAnswers turns solutions into the lines printed for them. No
// solutions renders as a single "false".
func renderAnswers(sols []query.Bindings) []string {
	if len(sols) == 0 {
		return []string{"false"}
	}
	lines := make([]string, len(sols))
	for i, b := range sols {
		lines[i] = b.String()
	}
	return lines
}

func styleAnswers(lines []string) string {
	styled := make([]string, len(lines))
	for i, l := range lines {
		if l == "false" {
			styled[i] = mutedStyle.Render(l)
		} else {
			styled[i] = answerStyle.Render(l)
		}
	}
	return strings.Join(styled, "\n")
}
