package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/GathsaraH/PDF-QA-Assistant/config"
	"github.com/GathsaraH/PDF-QA-Assistant/conversation"
	"github.com/GathsaraH/PDF-QA-Assistant/logging"
	"github.com/GathsaraH/PDF-QA-Assistant/notify"
	"github.com/GathsaraH/PDF-QA-Assistant/registry"
	"github.com/GathsaraH/PDF-QA-Assistant/remote"
	"github.com/GathsaraH/PDF-QA-Assistant/session"
	"github.com/GathsaraH/PDF-QA-Assistant/upload"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"go.uber.org/zap"
)

// appBackend is everything the interactive app needs from the remote service.
type appBackend interface {
	upload.Transport
	registry.Source
	conversation.Backend
}

type appFocus int

const (
	focusMain appFocus = iota
	focusSidebar
)

const (
	placeholderReady    = "Ask a question..."
	placeholderNotReady = "Upload a PDF first..."
)

type (
	notificationMsg struct{ n notify.Notification }
	toastExpireMsg  struct{ id string }
	uploadTickMsg   struct{ job upload.JobID }
	uploadStageMsg  struct{ job upload.JobID }
	uploadResultMsg struct {
		job upload.JobID
		res remote.UploadResult
		err error
	}
	inboxFileMsg  struct{ path string }
	docsLoadedMsg struct{ err error }
	deleteDoneMsg struct {
		out registry.DeleteOutcome
		err error
	}
	answerMsg struct {
		turn   conversation.Turn
		answer remote.Answer
		err    error
	}
	historyMsg struct {
		sessionID string
		history   []remote.HistoryMessage
		err       error
	}
)

type appModel struct {
	ctx     context.Context
	cfg     *config.Config
	logger  *zap.Logger
	backend appBackend
	emitter notify.Emitter
	state   *session.StateStore
	now     func() time.Time

	controller *session.Controller
	uploads    *upload.Machine
	directory  *registry.Directory
	chat       *conversation.Machine

	theme      tuiTheme
	width      int
	height     int
	tray       *notify.Tray
	progress   uploadProgressModel
	transcript transcriptModel

	pathInput   textinput.Model
	chatInput   textinput.Model
	searchInput textinput.Model

	focus         appFocus
	searching     bool
	docs          []remote.DocumentRecord
	docCursor     int
	confirmDelete *remote.DocumentRecord
	snap          session.Snapshot
}

func newAppModel(ctx context.Context, cfg *config.Config, backend appBackend, emitter notify.Emitter, state *session.StateStore, logger *zap.Logger) appModel {
	logger = logging.OrNop(logger)
	theme := newTUITheme()

	chat := conversation.NewMachine(backend, emitter, logger)
	controller := session.NewController(
		session.WithLogger(logger),
		session.WithActivator(chat),
	)
	uploads := upload.NewMachine(upload.PolicyFromConfig(cfg.Upload),
		upload.WithNotifier(emitter),
		upload.WithLogger(logger),
		upload.WithOnReady(func(done upload.Completion) {
			controller.AdoptUpload(done)
		}),
	)

	pathInput := textinput.New()
	pathInput.Prompt = "File: "
	pathInput.Placeholder = "path/to/document.pdf"
	pathInput.Focus()

	chatInput := textinput.New()
	chatInput.Prompt = "> "
	chatInput.CharLimit = 2000

	searchInput := textinput.New()
	searchInput.Prompt = "/ "
	searchInput.Placeholder = "filter documents"

	tray := notify.NewTray(cfg.Notify.Lifetime)

	m := appModel{
		ctx:         ctx,
		cfg:         cfg,
		logger:      logger.Named("tui"),
		backend:     backend,
		emitter:     emitter,
		state:       state,
		now:         time.Now,
		controller:  controller,
		uploads:     uploads,
		directory:   registry.NewDirectory(backend, emitter, logger),
		chat:        chat,
		theme:       theme,
		tray:        &tray,
		progress:    newUploadProgressModel(theme),
		transcript:  newTranscriptModel(theme),
		pathInput:   pathInput,
		chatInput:   chatInput,
		searchInput: searchInput,
		snap:        controller.Snapshot(),
	}
	m.syncPlaceholder()
	return m
}

func (m appModel) Init() tea.Cmd {
	return tea.Batch(textinput.Blink, m.refreshDocsCmd())
}

func (m appModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.layout()
		return m, nil

	case notificationMsg:
		e := m.tray.Deliver(msg.n, m.now())
		return m, tea.Tick(m.tray.Lifetime(), func(time.Time) tea.Msg {
			return toastExpireMsg{id: e.ID}
		})

	case toastExpireMsg:
		m.tray.Dismiss(msg.id)
		return m, nil

	case uploadTickMsg:
		if m.uploads.Tick(msg.job) {
			return m, m.rampCmd(msg.job)
		}
		return m, nil

	case uploadResultMsg:
		if msg.err != nil {
			m.uploads.Reject(msg.job, msg.err)
			return m, nil
		}
		if m.uploads.Acknowledge(msg.job, msg.res) {
			return m, m.stageCmd(msg.job)
		}
		return m, nil

	case uploadStageMsg:
		before := m.uploads.State()
		if m.uploads.Advance(msg.job) {
			return m, m.stageCmd(msg.job)
		}
		if before == upload.Processing && m.uploads.State() == upload.Ready {
			return m.afterSessionChange(true)
		}
		return m, nil

	case inboxFileMsg:
		return m.selectPath(msg.path)

	case docsLoadedMsg:
		m.syncDocs()
		return m, nil

	case deleteDoneMsg:
		if msg.err != nil {
			return m, nil
		}
		out := msg.out
		if out.WasActive && m.controller.Snapshot().SessionID != out.SessionID {
			// The user moved on while the delete was in flight.
			out.WasActive = false
			out.Fallback = ""
		}
		fallbackName := ""
		if rec, ok := m.directory.Find(out.Fallback); ok {
			fallbackName = rec.Filename
		}
		m.controller.ApplyDelete(out, fallbackName)
		return m.afterSessionChange(out.WasActive)

	case answerMsg:
		reload := m.chat.Complete(msg.turn, msg.answer, msg.err)
		m.syncTranscript()
		if reload {
			return m, m.historyCmd(msg.turn.SessionID)
		}
		return m, nil

	case historyMsg:
		if msg.err != nil {
			m.logger.Warn("history load failed", zap.String("session_id", msg.sessionID), zap.Error(msg.err))
			return m, nil
		}
		m.chat.Apply(msg.sessionID, msg.history)
		m.syncTranscript()
		return m, nil

	case tea.KeyMsg:
		return m.handleKey(msg)
	}

	return m.updateInputs(msg)
}

func (m appModel) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "ctrl+c":
		return m, tea.Quit
	case "ctrl+x":
		m.tray.DismissOldest()
		return m, nil
	}

	if m.confirmDelete != nil {
		return m.handleConfirmKey(msg)
	}
	if m.searching {
		return m.handleSearchKey(msg)
	}

	switch msg.String() {
	case "tab":
		if m.focus == focusMain && sidebarWidth(m.width) > 0 {
			m.focus = focusSidebar
		} else {
			m.focus = focusMain
		}
		return m, m.syncFocus()
	case "ctrl+u":
		m.snap = m.controller.ShowUpload()
		m.focus = focusMain
		return m, m.syncFocus()
	}

	if m.focus == focusSidebar {
		return m.handleSidebarKey(msg)
	}
	if m.snap.Surface == session.SurfaceUpload {
		return m.handleUploadKey(msg)
	}
	return m.handleChatKey(msg)
}

func (m appModel) handleUploadKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "enter":
		path := strings.TrimSpace(m.pathInput.Value())
		if path == "" {
			return m, nil
		}
		return m.selectPath(path)
	case "esc":
		if m.pathInput.Value() != "" || m.uploads.State() != upload.Idle {
			m.pathInput.Reset()
			m.uploads.Clear()
			return m, nil
		}
		m.snap = m.controller.ShowConversation()
		return m, m.syncFocus()
	}
	var cmd tea.Cmd
	m.pathInput, cmd = m.pathInput.Update(msg)
	return m, cmd
}

func (m appModel) handleChatKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "enter":
		turn, err := m.chat.Begin(m.chatInput.Value())
		if err != nil {
			if errors.Is(err, conversation.ErrNotReady) {
				m.emit("Upload a PDF first", notify.SeverityWarning)
			}
			return m, nil
		}
		m.chatInput.Reset()
		m.syncTranscript()
		return m, m.askCmd(turn)
	case "up", "down", "pgup", "pgdown":
		var cmd tea.Cmd
		m.transcript, cmd = m.transcript.Update(msg)
		return m, cmd
	}
	var cmd tea.Cmd
	m.chatInput, cmd = m.chatInput.Update(msg)
	return m, cmd
}

func (m appModel) handleSidebarKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "up", "k":
		if m.docCursor > 0 {
			m.docCursor--
		}
	case "down", "j":
		if m.docCursor < len(m.docs)-1 {
			m.docCursor++
		}
	case "/":
		m.searching = true
		return m, m.searchInput.Focus()
	case "r":
		return m, m.refreshDocsCmd()
	case "u":
		m.snap = m.controller.ShowUpload()
		m.focus = focusMain
		return m, m.syncFocus()
	case "d":
		if rec, ok := m.selectedDoc(); ok {
			m.confirmDelete = &rec
		}
	case "enter":
		rec, ok := m.selectedDoc()
		if !ok {
			return m, nil
		}
		m.controller.Select(rec.SessionID, rec.Filename)
		m.focus = focusMain
		return m.afterSessionChange(true)
	}
	return m, nil
}

func (m appModel) handleSearchKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "esc":
		m.searching = false
		m.searchInput.Reset()
		m.searchInput.Blur()
		m.syncDocs()
		return m, nil
	case "enter":
		m.searching = false
		m.searchInput.Blur()
		return m, nil
	}
	var cmd tea.Cmd
	m.searchInput, cmd = m.searchInput.Update(msg)
	m.syncDocs()
	return m, cmd
}

func (m appModel) handleConfirmKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "y", "Y":
		rec := *m.confirmDelete
		m.confirmDelete = nil
		return m, m.deleteCmd(rec.SessionID, m.snap.SessionID)
	case "n", "N", "esc":
		m.confirmDelete = nil
	}
	return m, nil
}

func (m appModel) updateInputs(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd
	var cmd tea.Cmd
	m.pathInput, cmd = m.pathInput.Update(msg)
	cmds = append(cmds, cmd)
	m.chatInput, cmd = m.chatInput.Update(msg)
	cmds = append(cmds, cmd)
	m.searchInput, cmd = m.searchInput.Update(msg)
	cmds = append(cmds, cmd)
	return m, tea.Batch(cmds...)
}

// selectPath turns a local path into an upload job for the controller's target session.
func (m appModel) selectPath(path string) (tea.Model, tea.Cmd) {
	path = expandHome(path)
	if m.uploads.Busy() {
		m.emit(fmt.Sprintf("Upload in progress, skipped %s", filepath.Base(path)), notify.SeverityWarning)
		return m, nil
	}
	file, err := upload.FileFromPath(path)
	if err != nil {
		m.logger.Info("selection unreadable", zap.String("path", path), zap.Error(err))
		m.emit(fmt.Sprintf("Cannot read %s", filepath.Base(path)), notify.SeverityError)
		return m, nil
	}

	target := m.controller.UploadTarget()
	job, err := m.uploads.Select(file, target)
	if err != nil {
		return m, nil
	}
	m.pathInput.Reset()
	m.snap = m.controller.ShowUpload()
	m.focus = focusMain
	return m, tea.Batch(m.syncFocus(), m.transferCmd(job, file, target), m.rampCmd(job))
}

// afterSessionChange re-reads the controller and schedules the work a new active
// session needs: directory refresh, history load and remembering the session.
func (m appModel) afterSessionChange(changed bool) (tea.Model, tea.Cmd) {
	m.snap = m.controller.Snapshot()
	m.syncPlaceholder()
	m.syncTranscript()

	cmds := []tea.Cmd{m.syncFocus(), m.refreshIfStaleCmd(m.snap.RefreshSeq)}
	if changed {
		cmds = append(cmds, m.saveStateCmd(m.snap))
		if m.snap.Ready {
			cmds = append(cmds, m.historyCmd(m.snap.SessionID))
		}
	}
	return m, tea.Batch(cmds...)
}

func (m *appModel) emit(text string, severity notify.Severity) {
	if m.emitter != nil {
		m.emitter.Emit(text, severity)
	}
}

func (m *appModel) selectedDoc() (remote.DocumentRecord, bool) {
	if m.docCursor < 0 || m.docCursor >= len(m.docs) {
		return remote.DocumentRecord{}, false
	}
	return m.docs[m.docCursor], true
}

func (m *appModel) syncDocs() {
	m.docs = m.directory.Search(m.searchInput.Value())
	if m.docCursor >= len(m.docs) {
		m.docCursor = len(m.docs) - 1
	}
	if m.docCursor < 0 {
		m.docCursor = 0
	}
}

func (m *appModel) syncTranscript() {
	m.transcript.setMessages(m.chat.Messages(), m.chat.InFlight())
}

func (m *appModel) syncPlaceholder() {
	if m.snap.Ready {
		m.chatInput.Placeholder = placeholderReady
	} else {
		m.chatInput.Placeholder = placeholderNotReady
	}
}

func (m *appModel) syncFocus() tea.Cmd {
	m.pathInput.Blur()
	m.chatInput.Blur()
	if m.focus != focusMain {
		return nil
	}
	if m.snap.Surface == session.SurfaceUpload {
		return m.pathInput.Focus()
	}
	return m.chatInput.Focus()
}

func (m *appModel) layout() {
	side := sidebarWidth(m.width)
	mainWidth := m.width - side - 4
	if side > 0 {
		mainWidth -= 4
	}
	m.progress.setSize(mainWidth)
	// header, input, help and panel borders
	m.transcript.setSize(mainWidth, max(m.height-10, 3))
}

func (m appModel) rampCmd(job upload.JobID) tea.Cmd {
	return tea.Tick(m.cfg.Upload.RampInterval, func(time.Time) tea.Msg {
		return uploadTickMsg{job: job}
	})
}

func (m appModel) stageCmd(job upload.JobID) tea.Cmd {
	return tea.Tick(m.cfg.Upload.StageInterval, func(time.Time) tea.Msg {
		return uploadStageMsg{job: job}
	})
}

func (m appModel) transferCmd(job upload.JobID, file upload.File, sessionID string) tea.Cmd {
	ctx, backend := m.ctx, m.backend
	return func() tea.Msg {
		res, err := upload.Transfer(ctx, backend, file, sessionID)
		return uploadResultMsg{job: job, res: res, err: err}
	}
}

func (m appModel) askCmd(turn conversation.Turn) tea.Cmd {
	ctx, chat := m.ctx, m.chat
	return func() tea.Msg {
		answer, err := chat.Ask(ctx, turn)
		return answerMsg{turn: turn, answer: answer, err: err}
	}
}

func (m appModel) historyCmd(sessionID string) tea.Cmd {
	ctx, chat := m.ctx, m.chat
	return func() tea.Msg {
		history, err := chat.Fetch(ctx, sessionID)
		return historyMsg{sessionID: sessionID, history: history, err: err}
	}
}

func (m appModel) refreshDocsCmd() tea.Cmd {
	ctx, dir := m.ctx, m.directory
	return func() tea.Msg {
		_, err := dir.Refresh(ctx)
		return docsLoadedMsg{err: err}
	}
}

func (m appModel) refreshIfStaleCmd(seq uint64) tea.Cmd {
	ctx, dir := m.ctx, m.directory
	return func() tea.Msg {
		refreshed, err := dir.RefreshIfStale(ctx, seq)
		if !refreshed {
			return nil
		}
		return docsLoadedMsg{err: err}
	}
}

func (m appModel) deleteCmd(sessionID, activeID string) tea.Cmd {
	ctx, dir := m.ctx, m.directory
	return func() tea.Msg {
		out, err := dir.Delete(ctx, sessionID, activeID)
		return deleteDoneMsg{out: out, err: err}
	}
}

func (m appModel) saveStateCmd(snap session.Snapshot) tea.Cmd {
	store, logger := m.state, m.logger
	if store == nil {
		return nil
	}
	return func() tea.Msg {
		var err error
		if snap.Ready {
			err = store.Save(session.State{SessionID: snap.SessionID, Filename: snap.Filename, UpdatedAt: time.Now()})
		} else {
			err = store.Clear()
		}
		if err != nil {
			logger.Warn("failed to remember session", zap.Error(err))
		}
		return nil
	}
}

func (m appModel) View() string {
	if m.width == 0 {
		return "Loading..."
	}

	header := m.renderHeader()
	side := sidebarWidth(m.width)
	mainWidth := m.width - 4
	var body string
	if side > 0 {
		mainWidth = m.width - side - 8
		body = lipgloss.JoinHorizontal(lipgloss.Top, m.renderSidebar(side), m.renderMain(mainWidth))
	} else {
		body = m.renderMain(mainWidth)
	}

	parts := []string{header, body}
	if toasts := renderToasts(m.theme, m.tray.Active(m.now()), min(m.width-2, 60)); toasts != "" {
		parts = append(parts, lipgloss.PlaceHorizontal(m.width, lipgloss.Right, toasts))
	}
	parts = append(parts, m.theme.help.Render(m.helpLine()))
	return lipgloss.JoinVertical(lipgloss.Left, parts...)
}

func (m appModel) renderHeader() string {
	doc := m.theme.muted.Render("no document")
	if m.snap.Ready {
		doc = m.theme.subtitle.Render(m.snap.Filename)
	}

	phase := 0
	switch {
	case m.uploads.State() == upload.Processing:
		phase = 1
	case m.snap.Ready && m.snap.Surface == session.SurfaceConversation:
		phase = 2
	}
	rail := renderLifecycleRail(m.theme, []string{"Upload", "Process", "Chat"}, phase)

	return lipgloss.JoinHorizontal(lipgloss.Center,
		m.theme.title.Render("PDF Q&A"),
		"  ",
		doc,
		"  ",
		rail,
	)
}

func (m appModel) renderSidebar(width int) string {
	panel := m.theme.panel
	if m.focus == focusSidebar {
		panel = m.theme.focusPanel
	}
	height := max(m.height-6, 6)

	var content string
	switch {
	case m.confirmDelete != nil:
		content = renderConfirmCard(m.theme,
			"Delete this document?",
			m.confirmDelete.Filename,
			width-4)
	case len(m.docs) == 0:
		content = lipgloss.JoinVertical(lipgloss.Left,
			m.theme.subtitle.Render("Documents"),
			m.theme.muted.Render(registry.EmptyMessage(m.searchInput.Value())),
		)
	default:
		items := make([]string, 0, len(m.docs))
		for _, d := range m.docs {
			marker := ""
			if d.SessionID == m.snap.SessionID && m.snap.Ready {
				marker = "* "
			}
			items = append(items, fmt.Sprintf("%s%s  %d chunks  %s",
				marker, d.Filename, d.ChunkCount, formatUploadedAt(d.UploadedAt.Time)))
		}
		content = renderSelectableList(m.theme, "Documents", items, m.docCursor, width-4, height-2)
	}

	if m.searching || m.searchInput.Value() != "" {
		content = lipgloss.JoinVertical(lipgloss.Left, m.searchInput.View(), content)
	}
	return panel.Width(width).Height(height).Render(content)
}

func (m appModel) renderMain(width int) string {
	panel := m.theme.panel
	if m.focus == focusMain {
		panel = m.theme.focusPanel
	}

	if m.snap.Surface == session.SurfaceUpload {
		lines := []string{
			renderActionCard(m.theme,
				"Upload a PDF",
				"answers come from the document you upload",
				"type a path, press enter",
				width-4),
			m.pathInput.View(),
		}
		if m.cfg.Inbox.Dir != "" {
			lines = append(lines, m.theme.muted.Render("or drop a PDF into "+m.cfg.Inbox.Dir))
		}
		if view := m.progress.View(m.uploads); view != "" {
			lines = append(lines, "", view)
		}
		return panel.Width(width).Render(lipgloss.JoinVertical(lipgloss.Left, lines...))
	}

	return panel.Width(width).Render(lipgloss.JoinVertical(lipgloss.Left,
		m.transcript.View(),
		"",
		m.chatInput.View(),
	))
}

func (m appModel) helpLine() string {
	switch {
	case m.confirmDelete != nil:
		return "y: delete  n/esc: cancel"
	case m.searching:
		return "type to filter  enter: keep  esc: clear"
	case m.focus == focusSidebar:
		return "up/down: move  enter: open  /: search  d: delete  r: refresh  u: upload  tab: main  ctrl+c: quit"
	case m.snap.Surface == session.SurfaceUpload:
		return "enter: upload  esc: clear/back  tab: documents  ctrl+x: dismiss  ctrl+c: quit"
	default:
		return "enter: send  pgup/pgdown: scroll  ctrl+u: upload  tab: documents  ctrl+x: dismiss  ctrl+c: quit"
	}
}

func expandHome(path string) string {
	if path == "~" || strings.HasPrefix(path, "~/") {
		if home, err := os.UserHomeDir(); err == nil {
			return filepath.Join(home, strings.TrimPrefix(path, "~"))
		}
	}
	return path
}
