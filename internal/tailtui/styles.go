package tailtui

import (
	"fmt"
	"sort"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/tbraaten/notefeed/internal/feed"
)

var (
	headerStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("15")).
			Background(lipgloss.Color("62")).
			Padding(0, 1)

	bannerStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("0")).
			Background(lipgloss.Color("220")).
			Padding(0, 1)

	selectedStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("212"))

	userStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("39"))

	timeStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("241"))

	reactionStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("214"))

	renoteStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("84"))

	emptyStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("241")).
			Italic(true)

	helpStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("241"))

	statusErrStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("196"))
)

func renderHeader(v feed.Variant, st feed.State, count, width int) string {
	label := fmt.Sprintf("%s · %s · %d notes", v, st, count)
	return headerStyle.Width(max(width, len(label)+2)).Render(label)
}

func renderPendingBanner(pending, width int) string {
	label := fmt.Sprintf("%d new notes — press g", pending)
	return bannerStyle.Width(max(width, len(label)+2)).Render(label)
}

// renderNote draws one note row: timestamp, author, text, and a reaction
// summary. Renotes show the inner note prefixed with the booster.
func renderNote(n *feed.Note, selected bool, width int) string {
	display := n
	prefix := ""
	if n.Renote != nil {
		display = n.Renote
		prefix = renoteStyle.Render(fmt.Sprintf("↻ %s ", shortID(n.UserID)))
	}

	marker := "  "
	if selected {
		marker = selectedStyle.Render("> ")
	}

	line := marker +
		timeStyle.Render(display.CreatedAt.Format("15:04")) + " " +
		prefix +
		userStyle.Render(shortID(display.UserID)) + " " +
		truncate(oneLine(display.Text), width-30)

	if summary := reactionSummary(display); summary != "" {
		line += " " + reactionStyle.Render(summary)
	}
	return line
}

func reactionSummary(n *feed.Note) string {
	if len(n.Reactions) == 0 {
		return ""
	}
	labels := make([]string, 0, len(n.Reactions))
	for label := range n.Reactions {
		labels = append(labels, label)
	}
	sort.Strings(labels)

	parts := make([]string, 0, len(labels))
	for _, label := range labels {
		mark := ""
		if label == n.MyReaction {
			mark = "*"
		}
		parts = append(parts, fmt.Sprintf("%s%s%d", mark, label, n.Reactions[label]))
	}
	return "[" + strings.Join(parts, " ") + "]"
}

func shortID(id string) string {
	if len(id) > 10 {
		return id[:10]
	}
	if id == "" {
		return "?"
	}
	return id
}

func oneLine(s string) string {
	return strings.ReplaceAll(strings.ReplaceAll(s, "\r", ""), "\n", " ")
}

func truncate(s string, limit int) string {
	if limit < 8 {
		limit = 8
	}
	runes := []rune(s)
	if len(runes) <= limit {
		return s
	}
	return string(runes[:limit-1]) + "…"
}
