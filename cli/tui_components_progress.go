package cli

import (
	"fmt"

	"github.com/GathsaraH/PDF-QA-Assistant/upload"
	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/lipgloss"
)

// uploadProgressModel renders the transfer bar followed by the processing checklist.
type uploadProgressModel struct {
	bar   progress.Model
	width int
	theme tuiTheme
}

func newUploadProgressModel(theme tuiTheme) uploadProgressModel {
	return uploadProgressModel{
		bar:   progress.New(progress.WithDefaultGradient(), progress.WithoutPercentage()),
		theme: theme,
	}
}

func (m *uploadProgressModel) setSize(w int) {
	m.width = w
	available := w - 16
	if available < 10 {
		available = 10
	}
	m.bar.Width = available
}

func (m uploadProgressModel) View(machine *upload.Machine) string {
	state := machine.State()
	switch state {
	case upload.Idle, upload.Validating:
		return ""
	}

	file, _ := machine.File()
	header := lipgloss.JoinHorizontal(lipgloss.Center,
		m.theme.subtitle.Render(truncateRunes(file.Name, m.width-14)),
		m.theme.muted.Render(" "+upload.FormatSize(file.Size)),
	)

	pct := float64(machine.Progress()) / 100
	barLine := lipgloss.JoinHorizontal(lipgloss.Center,
		m.theme.text.Width(8).Render("Upload"),
		m.bar.ViewAs(pct),
		m.theme.muted.Render(fmt.Sprintf(" %3d%%", machine.Progress())),
	)

	lines := []string{header, barLine}
	switch state {
	case upload.Processing:
		lines = append(lines, "", renderStageChecklist(m.theme, machine.Stages(), machine.Step(), false))
	case upload.Ready:
		lines = append(lines, "", renderStageChecklist(m.theme, machine.Stages(), machine.Step(), true))
		lines = append(lines, m.theme.ok.Render(fmt.Sprintf("Ready: %d chunks indexed", machine.Chunks())))
	}
	return lipgloss.JoinVertical(lipgloss.Left, lines...)
}
