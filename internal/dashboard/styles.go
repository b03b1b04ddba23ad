package dashboard

import "github.com/charmbracelet/lipgloss"

// Dracula theme colors.
const (
	colorForeground = "#F8F8F2"
	colorCyan       = "#8BE9FD"
	colorGreen      = "#50FA7B"
	colorOrange     = "#FFB86C"
	colorPink       = "#FF79C6"
	colorPurple     = "#BD93F9"
	colorRed        = "#FF5555"
	colorYellow     = "#F1FA8C"
	colorComment    = "#6272A4"
)

type styles struct {
	title    lipgloss.Style
	header   lipgloss.Style
	help     lipgloss.Style
	status   lipgloss.Style
	card     lipgloss.Style
	cardName lipgloss.Style
	active   lipgloss.Style
	inactive lipgloss.Style
	failed   lipgloss.Style
	unknown  lipgloss.Style
	gauge    lipgloss.Style
	logBox   lipgloss.Style
}

func newStyles() styles {
	return styles{
		title: lipgloss.NewStyle().
			Foreground(lipgloss.Color(colorPink)).
			Bold(true),
		header: lipgloss.NewStyle().
			Foreground(lipgloss.Color(colorForeground)),
		help: lipgloss.NewStyle().
			Foreground(lipgloss.Color(colorComment)),
		status: lipgloss.NewStyle().
			Foreground(lipgloss.Color(colorOrange)),
		card: lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color(colorPurple)).
			Padding(0, 1),
		cardName: lipgloss.NewStyle().
			Foreground(lipgloss.Color(colorCyan)).
			Bold(true),
		active: lipgloss.NewStyle().
			Foreground(lipgloss.Color(colorGreen)),
		inactive: lipgloss.NewStyle().
			Foreground(lipgloss.Color(colorComment)),
		failed: lipgloss.NewStyle().
			Foreground(lipgloss.Color(colorRed)).
			Bold(true),
		unknown: lipgloss.NewStyle().
			Foreground(lipgloss.Color(colorYellow)),
		gauge: lipgloss.NewStyle().
			Foreground(lipgloss.Color(colorGreen)),
		logBox: lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color(colorCyan)).
			Padding(0, 1),
	}
}
