package dashboard

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"

	"github.com/chatstack/chatpanel/internal/models"
	"github.com/chatstack/chatpanel/internal/svcmon"
)

const (
	cardWidth    = 24
	gaugeWidth   = 30
	sparkWidth   = 30
	cardsPerRow  = 3
	headerRows   = 2
	gaugeRows    = 3
	footerRows   = 2
	logBoxFrame  = 2
	cardRowsEach = 5
)

var sparkRunes = []rune("▁▂▃▄▅▆▇█")

// View implements tea.Model.
func (m *Model) View() string {
	var b strings.Builder

	b.WriteString(m.renderHeader())
	b.WriteString("\n")
	b.WriteString(m.renderGauges())
	b.WriteString("\n")
	b.WriteString(m.renderCards())
	b.WriteString("\n")
	b.WriteString(m.styles.logBox.Render(m.logs.View()))
	b.WriteString("\n")
	b.WriteString(m.renderFooter())

	return b.String()
}

func (m *Model) renderHeader() string {
	title := m.styles.title.Render("LibreChat Control Panel")

	host := m.host.Hostname
	if m.host.Platform != "" {
		host += " · " + m.host.Platform
	}
	if !m.host.BootTime.IsZero() {
		host += " · up " + svcmon.FormatUptime(time.Since(m.host.BootTime))
	}

	return lipgloss.JoinHorizontal(lipgloss.Top,
		title,
		m.styles.help.Render("  "+host),
	)
}

func (m *Model) renderGauges() string {
	s := m.snapshot

	cpu := lipgloss.JoinVertical(lipgloss.Left,
		gauge("CPU", s.CPUPercent, gaugeWidth, m.styles),
		m.styles.gauge.Render(sparkline(s.CPUHistory, sparkWidth)),
	)
	ram := lipgloss.JoinVertical(lipgloss.Left,
		gauge(fmt.Sprintf("RAM %s/%s", formatBytes(s.RAMUsed), formatBytes(s.RAMTotal)),
			s.RAMPercent, gaugeWidth, m.styles),
		m.styles.gauge.Render(sparkline(s.RAMHistory, sparkWidth)),
	)
	disk := gauge(fmt.Sprintf("Disk %s/%s", formatBytes(s.DiskUsed), formatBytes(s.DiskTotal)),
		s.DiskPercent, gaugeWidth, m.styles)

	return lipgloss.JoinHorizontal(lipgloss.Top, cpu, "   ", ram, "   ", disk)
}

func (m *Model) renderCards() string {
	cards := make([]string, 0, len(m.order))
	for _, name := range m.order {
		cards = append(cards, m.renderCard(name))
	}

	rows := make([]string, 0, (len(cards)+cardsPerRow-1)/cardsPerRow)
	for i := 0; i < len(cards); i += cardsPerRow {
		end := i + cardsPerRow
		if end > len(cards) {
			end = len(cards)
		}
		rows = append(rows, lipgloss.JoinHorizontal(lipgloss.Top, cards[i:end]...))
	}
	return lipgloss.JoinVertical(lipgloss.Left, rows...)
}

func (m *Model) renderCard(name string) string {
	rec, ok := m.records[name]

	dot, state := "●", "waiting"
	style := m.styles.unknown
	if ok {
		state = string(rec.State)
		switch rec.State {
		case models.StateActive:
			style = m.styles.active
		case models.StateInactive:
			style = m.styles.inactive
		case models.StateFailed:
			style = m.styles.failed
		default:
			style = m.styles.unknown
		}
	}

	lines := []string{
		m.styles.cardName.Render(name),
		style.Render(dot + " " + state),
	}
	if ok && rec.Running() {
		lines = append(lines,
			fmt.Sprintf("pid %d · %s", rec.PID, rec.Uptime),
			fmt.Sprintf("cpu %.1f%% · rss %s", rec.CPUPercent, formatBytes(rec.MemoryRSS)),
		)
	} else {
		lines = append(lines, "", "")
	}
	if m.inFlight[name] {
		lines[1] = m.styles.status.Render("● launching")
	}

	return m.styles.card.Width(cardWidth).Render(strings.Join(lines, "\n"))
}

func (m *Model) renderFooter() string {
	help := "s start systemd · e start everything · x stop all · o open chat · tab logs · q quit"
	if m.startBlocked() {
		help = "launch in flight; start keys disabled · " + help
	}

	footer := m.styles.help.Render(help)
	if m.status != "" {
		footer = lipgloss.JoinVertical(lipgloss.Left,
			m.styles.status.Render(m.status), footer)
	}
	return footer
}

// fixedRows is the vertical space everything but the log pane needs.
func (m *Model) fixedRows() int {
	cardRows := (len(m.order) + cardsPerRow - 1) / cardsPerRow
	return headerRows + gaugeRows + cardRows*cardRowsEach + footerRows + logBoxFrame
}

// gauge renders a labelled percentage bar.
func gauge(label string, pct float64, width int, st styles) string {
	if pct < 0 {
		pct = 0
	}
	if pct > 100 {
		pct = 100
	}
	filled := int(pct / 100 * float64(width))
	bar := strings.Repeat("█", filled) + strings.Repeat("░", width-filled)
	return fmt.Sprintf("%s\n%s %5.1f%%", st.header.Render(label), st.gauge.Render(bar), pct)
}

// sparkline condenses a history series into one line of block runes.
func sparkline(values []float64, width int) string {
	if len(values) == 0 {
		return strings.Repeat(" ", width)
	}
	if len(values) > width {
		values = values[len(values)-width:]
	}

	var out strings.Builder
	for _, v := range values {
		if v < 0 {
			v = 0
		}
		if v > 100 {
			v = 100
		}
		idx := int(v / 100 * float64(len(sparkRunes)-1))
		out.WriteRune(sparkRunes[idx])
	}
	return out.String()
}

func formatBytes(n uint64) string {
	const unit = 1024
	if n < unit {
		return fmt.Sprintf("%dB", n)
	}
	div, exp := uint64(unit), 0
	for m := n / unit; m >= unit; m /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f%c", float64(n)/float64(div), "KMGTPE"[exp])
}

func joinLines(lines []string) string {
	return strings.Join(lines, "\n")
}
