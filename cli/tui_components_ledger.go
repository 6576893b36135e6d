package cli

import (
	"strings"

	"github.com/GathsaraH/PDF-QA-Assistant/conversation"
	"github.com/GathsaraH/PDF-QA-Assistant/remote"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

// transcriptModel is the scrollable chat history. It follows the tail until the
// user scrolls up, and resumes once they are back at the bottom.
type transcriptModel struct {
	viewport   viewport.Model
	messages   []conversation.Message
	thinking   bool
	width      int
	height     int
	theme      tuiTheme
	autoScroll bool
}

func newTranscriptModel(theme tuiTheme) transcriptModel {
	return transcriptModel{
		viewport:   viewport.New(0, 0),
		theme:      theme,
		autoScroll: true,
	}
}

func (m transcriptModel) Update(msg tea.Msg) (transcriptModel, tea.Cmd) {
	var cmd tea.Cmd

	if key, ok := msg.(tea.KeyMsg); ok {
		switch key.String() {
		case "up", "pgup":
			m.autoScroll = false
		}
	}

	m.viewport, cmd = m.viewport.Update(msg)
	if m.viewport.AtBottom() {
		m.autoScroll = true
	}
	return m, cmd
}

func (m *transcriptModel) setSize(w, h int) {
	m.width = w
	m.height = h
	m.viewport.Width = w
	m.viewport.Height = h
	m.updateContent()
}

func (m *transcriptModel) setMessages(messages []conversation.Message, thinking bool) {
	m.messages = messages
	m.thinking = thinking
	m.updateContent()
}

func (m *transcriptModel) updateContent() {
	m.viewport.SetContent(m.renderContent())
	if m.autoScroll {
		m.viewport.GotoBottom()
	}
}

func (m transcriptModel) renderContent() string {
	if len(m.messages) == 0 && !m.thinking {
		return m.theme.muted.Render("Ask anything about your document. Answers cite the pages they come from.")
	}

	wrap := lipgloss.NewStyle().Width(max(m.width-2, 10))
	var b strings.Builder
	pending := -1
	if m.thinking {
		for i := len(m.messages) - 1; i >= 0; i-- {
			if m.messages[i].Role == remote.RoleUser {
				if m.messages[i].Tentative {
					pending = i
				}
				break
			}
		}
	}
	for i, msg := range m.messages {
		switch {
		case msg.Role == remote.RoleUser:
			label := "You"
			if i == pending {
				label = "You (sending)"
			}
			b.WriteString(m.theme.userMsg.Render(label))
			b.WriteString("\n")
			b.WriteString(wrap.Render(m.theme.text.Render(msg.Content)))
		case msg.Synthetic:
			b.WriteString(m.theme.errorMsg.Render("Assistant"))
			b.WriteString("\n")
			b.WriteString(wrap.Render(m.theme.errorMsg.Render(msg.Content)))
		default:
			b.WriteString(m.theme.subtitle.Render("Assistant"))
			b.WriteString("\n")
			b.WriteString(wrap.Render(m.theme.botMsg.Render(msg.Content)))
			if len(msg.Sources) > 0 {
				b.WriteString("\n")
				b.WriteString(wrap.Render(m.theme.citation.Render("Sources: " + strings.Join(msg.Sources, ", "))))
			}
		}
		b.WriteString("\n\n")
	}
	if m.thinking {
		b.WriteString(m.theme.muted.Render("Thinking..."))
	}
	return strings.TrimRight(b.String(), "\n")
}

func (m transcriptModel) View() string {
	return m.viewport.View()
}
