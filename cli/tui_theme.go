package cli

import (
	"github.com/GathsaraH/PDF-QA-Assistant/notify"
	"github.com/charmbracelet/lipgloss"
)

type tuiTheme struct {
	canvas      lipgloss.Style
	panel       lipgloss.Style
	focusPanel  lipgloss.Style
	title       lipgloss.Style
	subtitle    lipgloss.Style
	text        lipgloss.Style
	muted       lipgloss.Style
	ok          lipgloss.Style
	warn        lipgloss.Style
	danger      lipgloss.Style
	info        lipgloss.Style
	highlight   lipgloss.Style
	help        lipgloss.Style
	railDone    lipgloss.Style
	railCurrent lipgloss.Style
	railPending lipgloss.Style
	userMsg     lipgloss.Style
	botMsg      lipgloss.Style
	errorMsg    lipgloss.Style
	citation    lipgloss.Style
	toast       lipgloss.Style
}

func newTUITheme() tuiTheme {
	return tuiTheme{
		canvas: lipgloss.NewStyle().
			Foreground(lipgloss.Color("#D7DBE0")).
			Background(lipgloss.Color("#0E1116")),
		panel: lipgloss.NewStyle().
			Border(lipgloss.NormalBorder()).
			BorderForeground(lipgloss.Color("#3D4752")).
			Padding(0, 1),
		focusPanel: lipgloss.NewStyle().
			Border(lipgloss.NormalBorder()).
			BorderForeground(lipgloss.Color("#65B5FF")).
			Padding(0, 1),
		title: lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#9FD3FF")),
		subtitle: lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#C0C8D4")),
		text: lipgloss.NewStyle().
			Foreground(lipgloss.Color("#D7DBE0")),
		muted: lipgloss.NewStyle().
			Foreground(lipgloss.Color("#6E7B88")),
		ok: lipgloss.NewStyle().
			Foreground(lipgloss.Color("#63C17A")),
		warn: lipgloss.NewStyle().
			Foreground(lipgloss.Color("#E7B65A")),
		danger: lipgloss.NewStyle().
			Foreground(lipgloss.Color("#E06B75")),
		info: lipgloss.NewStyle().
			Foreground(lipgloss.Color("#65B5FF")),
		highlight: lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#0E1116")).
			Background(lipgloss.Color("#65B5FF")),
		help: lipgloss.NewStyle().
			Foreground(lipgloss.Color("#8FA0B3")),
		railDone: lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#63C17A")),
		railCurrent: lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#65B5FF")),
		railPending: lipgloss.NewStyle().
			Foreground(lipgloss.Color("#6E7B88")),
		userMsg: lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#9FD3FF")),
		botMsg: lipgloss.NewStyle().
			Foreground(lipgloss.Color("#D7DBE0")),
		errorMsg: lipgloss.NewStyle().
			Foreground(lipgloss.Color("#E06B75")),
		citation: lipgloss.NewStyle().
			Italic(true).
			Foreground(lipgloss.Color("#8FA0B3")),
		toast: lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			Padding(0, 1),
	}
}

func (t tuiTheme) severityStyle(s notify.Severity) lipgloss.Style {
	switch s {
	case notify.SeveritySuccess:
		return t.ok
	case notify.SeverityError:
		return t.danger
	case notify.SeverityWarning:
		return t.warn
	default:
		return t.info
	}
}

func (t tuiTheme) toastStyle(s notify.Severity) lipgloss.Style {
	return t.toast.BorderForeground(t.severityStyle(s).GetForeground())
}
