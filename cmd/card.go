// File: cmd/card.go
package cmd

import (
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"

	"github.com/xkilldash9x/flux-cli/api/schemas"
)

const cardWidth = 64

var (
	cardStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.AdaptiveColor{Light: "#888888", Dark: "#555555"}).
			Padding(1, 2).
			Width(cardWidth)

	cardTitleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.AdaptiveColor{Light: "#111111", Dark: "#F0F0F0"})

	cardMoodStyle = lipgloss.NewStyle().
			Italic(true).
			Foreground(lipgloss.AdaptiveColor{Light: "#555555", Dark: "#BBBBBB"})

	cardMetaStyle = lipgloss.NewStyle().
			Foreground(lipgloss.AdaptiveColor{Light: "#999999", Dark: "#666666"})
)

// renderCard lays out a critique for the terminal.
func renderCard(rec schemas.CritiqueRecord) string {
	c := rec.Critique
	body := lipgloss.JoinVertical(lipgloss.Left,
		cardTitleStyle.Render(c.Title),
		"",
		c.Description,
		"",
		cardMoodStyle.Render(c.Mood),
		"",
		cardMetaStyle.Render(cardMeta(rec)),
	)
	return cardStyle.Render(body)
}

func cardMeta(rec schemas.CritiqueRecord) string {
	var parts []string
	if rec.Model != "" {
		parts = append(parts, rec.Model)
	}
	if !rec.CreatedAt.IsZero() {
		parts = append(parts, rec.CreatedAt.Local().Format(time.DateTime))
	}
	if rec.Fallback {
		parts = append(parts, "signal lost")
	}
	return strings.Join(parts, " · ")
}
