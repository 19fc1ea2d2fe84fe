package cli

import (
	"os"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-isatty"
)

// CLI palette.
var (
	stylePrimary = lipgloss.NewStyle().Foreground(lipgloss.AdaptiveColor{Light: "#C45A3C", Dark: "#DA7756"})
	styleBorder  = lipgloss.NewStyle().Foreground(lipgloss.AdaptiveColor{Light: "#D1D5DB", Dark: "#4B5563"})
	styleSuccess = lipgloss.NewStyle().Foreground(lipgloss.AdaptiveColor{Light: "#059669", Dark: "#10B981"})
	styleError   = lipgloss.NewStyle().Foreground(lipgloss.AdaptiveColor{Light: "#DC2626", Dark: "#EF4444"})
	styleMuted   = lipgloss.NewStyle().Foreground(lipgloss.AdaptiveColor{Light: "#6B7280", Dark: "#9CA3AF"})
)

// cardStyle returns a lipgloss style for a rounded-border card.
func cardStyle() lipgloss.Style {
	return lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(styleBorder.GetForeground()).
		Padding(0, 2)
}

// card renders content inside a rounded border box with a styled title.
func card(title, content string) string {
	titleLine := stylePrimary.Bold(true).Render(title)
	return cardStyle().Render(titleLine + "\n\n" + content)
}

// successLine renders a checkmark-prefixed line.
func successLine(msg string) string {
	return styleSuccess.Render("✓") + " " + msg
}

// errorLine renders a cross-prefixed line.
func errorLine(msg string) string {
	return styleError.Render("✗") + " " + msg
}

// kvLines formats label/value pairs with aligned labels.
func kvLines(pairs [][2]string) string {
	width := 0
	for _, p := range pairs {
		if len(p[0]) > width {
			width = len(p[0])
		}
	}
	var b strings.Builder
	for i, p := range pairs {
		if i > 0 {
			b.WriteString("\n")
		}
		label := p[0] + strings.Repeat(" ", width-len(p[0]))
		b.WriteString(styleMuted.Render(label) + "  " + p[1])
	}
	return b.String()
}

// stdoutIsTTY reports whether stdout is an interactive terminal.
// Plain-text paths (pipes, CI) skip styling and markdown rendering.
func stdoutIsTTY() bool {
	return isatty.IsTerminal(os.Stdout.Fd()) || isatty.IsCygwinTerminal(os.Stdout.Fd())
}
