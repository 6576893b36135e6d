package cli

import (
	"fmt"
	"strings"
	"time"

	"github.com/GathsaraH/PDF-QA-Assistant/notify"
	"github.com/charmbracelet/lipgloss"
)

func renderLifecycleRail(theme tuiTheme, phases []string, current int) string {
	if len(phases) == 0 {
		return ""
	}

	segments := make([]string, 0, len(phases)*2-1)
	for i, phase := range phases {
		var label string
		switch {
		case i < current:
			label = theme.railDone.Render("[" + phase + "]")
		case i == current:
			label = theme.railCurrent.Render("[" + phase + "]")
		default:
			label = theme.railPending.Render("[" + phase + "]")
		}
		segments = append(segments, label)
		if i < len(phases)-1 {
			connector := theme.railPending.Render("->")
			if i < current {
				connector = theme.railDone.Render("->")
			}
			segments = append(segments, connector)
		}
	}

	return strings.Join(segments, " ")
}

// renderStageChecklist lists processing stages one per line, ticking off the finished ones.
func renderStageChecklist(theme tuiTheme, stages []string, current int, done bool) string {
	lines := make([]string, 0, len(stages))
	for i, stage := range stages {
		switch {
		case done || i < current:
			lines = append(lines, theme.railDone.Render("[x] "+stage))
		case i == current:
			lines = append(lines, theme.railCurrent.Render("[>] "+stage+"..."))
		default:
			lines = append(lines, theme.railPending.Render("[ ] "+stage))
		}
	}
	return strings.Join(lines, "\n")
}

func renderActionCard(theme tuiTheme, title, why, action string, width int) string {
	if width < 20 {
		width = 20
	}
	body := strings.Builder{}
	body.WriteString(theme.subtitle.Render(title))
	body.WriteString("\n")
	body.WriteString(theme.muted.Render("Why: "))
	body.WriteString(theme.text.Render(why))
	body.WriteString("\n")
	body.WriteString(theme.info.Render("Next: "))
	body.WriteString(theme.highlight.Render(action))
	return theme.panel.Width(width).Render(body.String())
}

// renderConfirmCard asks a yes/no question inside a danger-colored panel.
func renderConfirmCard(theme tuiTheme, question, detail string, width int) string {
	if width < 20 {
		width = 20
	}
	body := lipgloss.JoinVertical(lipgloss.Left,
		theme.danger.Render(question),
		theme.muted.Render(truncateRunes(detail, width-4)),
		theme.help.Render("y: confirm  n/esc: cancel"),
	)
	return theme.panel.BorderForeground(theme.danger.GetForeground()).Width(width).Render(body)
}

func renderSelectableList(theme tuiTheme, title string, items []string, selected int, width, height int) string {
	if width < 20 {
		width = 20
	}
	if height < 6 {
		height = 6
	}
	maxRows := height - 2
	if maxRows < 1 {
		maxRows = 1
	}

	start := 0
	if selected >= maxRows {
		start = selected - maxRows + 1
	}
	end := start + maxRows
	if end > len(items) {
		end = len(items)
	}

	lines := make([]string, 0, maxRows+1)
	lines = append(lines, theme.subtitle.Render(title))
	for i := start; i < end; i++ {
		prefix := "  "
		line := items[i]
		if i == selected {
			prefix = "> "
			line = theme.highlight.Render(truncateRunes(line, width-4))
		} else {
			line = theme.text.Render(truncateRunes(line, width-4))
		}
		lines = append(lines, prefix+line)
	}
	return strings.Join(lines, "\n")
}

// renderToasts stacks the visible notifications, oldest on top.
func renderToasts(theme tuiTheme, entries []notify.Entry, width int) string {
	if len(entries) == 0 {
		return ""
	}
	if width < 20 {
		width = 20
	}
	cards := make([]string, 0, len(entries))
	for _, e := range entries {
		icon := "i"
		switch e.Severity {
		case notify.SeveritySuccess:
			icon = "+"
		case notify.SeverityError:
			icon = "x"
		case notify.SeverityWarning:
			icon = "!"
		}
		line := theme.severityStyle(e.Severity).Render(icon) + " " + theme.text.Render(truncateRunes(e.Message, width-6))
		cards = append(cards, theme.toastStyle(e.Severity).Width(width).Render(line))
	}
	return lipgloss.JoinVertical(lipgloss.Right, cards...)
}

func truncateRunes(s string, limit int) string {
	if limit <= 0 {
		return ""
	}
	r := []rune(s)
	if len(r) <= limit {
		return s
	}
	if limit <= 3 {
		return string(r[:limit])
	}
	return fmt.Sprintf("%s...", string(r[:limit-3]))
}

func formatUploadedAt(t time.Time) string {
	if t.IsZero() {
		return "-"
	}
	return t.Local().Format("Jan 2 15:04")
}

func sourceCount(n int) string {
	if n == 1 {
		return "1 source"
	}
	return fmt.Sprintf("%d sources", n)
}

func sidebarWidth(total int) int {
	w := total / 3
	if w < 28 {
		w = 28
	}
	if w > 42 {
		w = 42
	}
	if total-w < 40 {
		return 0
	}
	return w
}
