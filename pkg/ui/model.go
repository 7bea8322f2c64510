// Package ui is the interactive terminal viewer: the card table with trace
// highlighting, the milestone selector, the connector list and the
// assistant chat panel.
package ui

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/vanderheijden86/archtrace/pkg/assistant"
	"github.com/vanderheijden86/archtrace/pkg/config"
	"github.com/vanderheijden86/archtrace/pkg/credential"
	"github.com/vanderheijden86/archtrace/pkg/debug"
	"github.com/vanderheijden86/archtrace/pkg/graph"
	"github.com/vanderheijden86/archtrace/pkg/layout"
	"github.com/vanderheijden86/archtrace/pkg/metrics"
	"github.com/vanderheijden86/archtrace/pkg/model"
	"github.com/vanderheijden86/archtrace/pkg/trace"
	"github.com/vanderheijden86/archtrace/pkg/viewer"
	"github.com/vanderheijden86/archtrace/pkg/watcher"
)

// Fixed chrome around the board, in rows.
const (
	headerRows    = 3 // title, milestone bar, legend
	footerRows    = 1 // status / help
	panelRows     = 5 // connector panel content
	panelChrome   = 2 // connector panel border
	minBoardWidth = 40
)

// Options configures a Model.
type Options struct {
	Arch        model.Architecture
	DataPath    string           // file reloaded on FileChangedMsg; empty for embedded data
	Watcher     *watcher.Watcher // optional
	Credentials credential.Provider
	Assistant   assistant.Responder
	Config      config.Config
	Theme       *Theme
	Selected    string
	Milestone   model.Milestone
	Context     context.Context
	Width       int
	Height      int
}

// Model is the bubbletea model of the viewer.
type Model struct {
	ctx   context.Context
	theme Theme
	cfg   config.Config

	arch   model.Architecture
	graph  *graph.Graph
	state  *viewer.State
	sched  *trace.Scheduler
	layout *layout.Layout

	typeFilter model.SystemType // empty shows every type
	cursor     string
	offset     int
	width      int
	height     int

	dataPath string
	watcher  *watcher.Watcher

	creds            credential.Provider
	conv             *assistant.Conversation
	chat             ChatPanel
	chatOpen         bool
	keyModal         *KeyModal
	openChatAfterKey bool

	showConnectors bool
	showHelp       bool
	status         string
	statusErr      bool
}

// NewModel builds the viewer. The trace scheduler has no timer of its own:
// the model drives it with frame ticks so recomputation happens on the UI
// goroutine.
func NewModel(opts Options) Model {
	if opts.Context == nil {
		opts.Context = context.Background()
	}
	if opts.Credentials == nil {
		opts.Credentials = credential.NewMemoryStore("")
	}
	if opts.Width <= 0 {
		opts.Width = 120
	}
	if opts.Height <= 0 {
		opts.Height = 40
	}
	theme := TestTheme()
	if opts.Theme != nil {
		theme = *opts.Theme
	}

	g := graph.New(opts.Arch)
	sched := trace.NewScheduler(nil)
	state := viewer.New(g, opts.Config.TraceOptions(), sched)
	conv := assistant.NewConversation(responderOrOffline(opts.Assistant))

	m := Model{
		ctx:            opts.Context,
		theme:          theme,
		cfg:            opts.Config,
		arch:           opts.Arch,
		graph:          g,
		state:          state,
		sched:          sched,
		width:          opts.Width,
		height:         opts.Height,
		dataPath:       opts.DataPath,
		watcher:        opts.Watcher,
		creds:          opts.Credentials,
		conv:           conv,
		showConnectors: opts.Config.ConnectorsVisible(),
	}
	m.chat = NewChatPanel(conv, theme, m.chatWidth(), m.bodyHeight())
	m.chat.SetOnline(m.creds.Has())
	m.relayout()

	switch {
	case opts.Milestone.IsValid():
		state.ToggleMilestone(opts.Milestone)
	case opts.Selected != "":
		m.selectNode(opts.Selected)
	}
	state.Flush()
	return m
}

// offlineResponder answers when no assistant is configured.
type offlineResponder struct{}

func (offlineResponder) GenerateResponse(context.Context, string) string {
	return assistant.MsgNoCredential
}

func responderOrOffline(r assistant.Responder) assistant.Responder {
	if r == nil {
		return offlineResponder{}
	}
	return r
}

// State exposes the view state, mainly for tests.
func (m Model) State() *viewer.State { return m.state }

// Cursor returns the id of the card under the cursor.
func (m Model) Cursor() string { return m.cursor }

// Init starts the file watch loop.
func (m Model) Init() tea.Cmd {
	if m.watcher != nil {
		return WatchFileCmd(m.watcher)
	}
	return nil
}

// Update handles one message.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd

	// The key form needs every message, not only keys, for its own field
	// navigation.
	if m.keyModal != nil {
		if key, ok := msg.(tea.KeyMsg); ok {
			return m, m.updateKeyModal(key)
		}
		cmds = append(cmds, m.keyModal.Update(msg))
	}

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
		m.chat.SetSize(m.chatWidth(), m.bodyHeight())
		m.relayout()
		cmds = append(cmds, m.scheduleFrame())

	case frameMsg:
		// Stale frames belong to a trigger that has since been replaced.
		if msg.gen == m.sched.Generation() {
			m.state.Flush()
		}

	case FileChangedMsg:
		if m.dataPath != "" {
			cmds = append(cmds, LoadDataCmd(m.dataPath))
		}
		if m.watcher != nil {
			cmds = append(cmds, WatchFileCmd(m.watcher))
		}

	case DataLoadedMsg:
		if msg.Err != nil {
			m.setStatus(fmt.Sprintf("Reload failed: %v", msg.Err), true)
			break
		}
		m.SetArchitecture(msg.Arch)
		m.setStatus(fmt.Sprintf("Reloaded %d systems", m.graph.Len()), false)
		cmds = append(cmds, m.scheduleFrame())

	case ReplyMsg:
		m.chat.Refresh()

	case spinner.TickMsg:
		cmds = append(cmds, m.chat.Update(msg))

	case clipboardMsg:
		if msg.err != nil {
			m.setStatus(fmt.Sprintf("Clipboard unavailable: %v", msg.err), true)
		} else {
			m.setStatus("Copied "+msg.what, false)
		}

	case tea.KeyMsg:
		if m.chatOpen {
			cmds = append(cmds, m.updateChatKeys(msg))
			break
		}
		cmd, quit := m.updateBoardKeys(msg)
		if quit {
			return m, tea.Quit
		}
		cmds = append(cmds, cmd)
	}

	return m, tea.Batch(cmds...)
}

func (m *Model) updateKeyModal(key tea.KeyMsg) tea.Cmd {
	if key.String() == "esc" {
		m.keyModal = nil
		m.openChatAfterKey = false
		return nil
	}
	cmd := m.keyModal.Update(key)
	switch {
	case m.keyModal.Done():
		if err := m.creds.Set(m.keyModal.Key()); err != nil {
			m.setStatus(fmt.Sprintf("Saving API key failed: %v", err), true)
		} else {
			m.setStatus("API key saved ("+credential.Mask(m.keyModal.Key())+")", false)
		}
		m.keyModal = nil
		m.chat.SetOnline(m.creds.Has())
		if m.openChatAfterKey {
			m.openChatAfterKey = false
			return tea.Batch(cmd, m.openChat())
		}
	case m.keyModal.Aborted():
		m.keyModal = nil
		m.openChatAfterKey = false
	}
	return cmd
}

func (m *Model) updateChatKeys(key tea.KeyMsg) tea.Cmd {
	switch key.String() {
	case "esc":
		m.chatOpen = false
		m.chat.Blur()
		m.relayout()
		return m.scheduleFrame()
	case "tab":
		m.chat.CycleChip()
		return nil
	case "enter":
		return m.chat.Submit(m.ctx)
	case "ctrl+c":
		return tea.Quit
	}
	return m.chat.Update(key)
}

func (m *Model) updateBoardKeys(key tea.KeyMsg) (cmd tea.Cmd, quit bool) {
	switch key.String() {
	case "q", "ctrl+c":
		return nil, true
	case "up", "k":
		m.moveCursor(navUp)
	case "down", "j":
		m.moveCursor(navDown)
	case "left", "h":
		m.moveCursor(navLeft)
	case "right", "l":
		m.moveCursor(navRight)
	case "enter", " ":
		m.selectNode(m.cursor)
		return m.scheduleFrame(), false
	case "esc":
		m.state.ToggleMilestone(model.MilestoneNone)
		m.state.ClearSelection()
		m.chat.SetSelection(nil)
		return m.scheduleFrame(), false
	case "1", "2", "3", "4":
		ms := model.Milestones[int(key.String()[0]-'1')]
		m.state.ToggleMilestone(ms)
		m.chat.SetSelection(nil)
		return m.scheduleFrame(), false
	case "f":
		m.cycleTypeFilter()
		return m.scheduleFrame(), false
	case "p":
		m.showConnectors = !m.showConnectors
		m.relayout()
		return m.scheduleFrame(), false
	case "c":
		if !m.creds.Has() {
			m.openChatAfterKey = true
			return m.openKeyModal(), false
		}
		return m.openChat(), false
	case "K":
		return m.openKeyModal(), false
	case "X":
		if err := m.creds.Remove(); err != nil {
			m.setStatus(fmt.Sprintf("Removing API key failed: %v", err), true)
		} else {
			m.setStatus("API key removed", false)
		}
		m.chat.SetOnline(m.creds.Has())
	case "y":
		return m.copySelection(), false
	case "r":
		if m.dataPath != "" {
			return LoadDataCmd(m.dataPath), false
		}
		m.setStatus("Embedded data cannot be reloaded", true)
	case "?":
		m.showHelp = !m.showHelp
	}
	return nil, false
}

// scheduleFrame defers the pending trace to the next frame.
func (m *Model) scheduleFrame() tea.Cmd {
	if !m.sched.Pending() {
		return nil
	}
	return frameCmd(m.sched.Generation())
}

func (m *Model) setStatus(s string, isErr bool) {
	m.status, m.statusErr = s, isErr
	if isErr {
		debug.Log("ui: %s", s)
	}
}

func (m *Model) moveCursor(d navDir) {
	m.cursor = moveCursor(m.layout, m.cursor, d)
	m.offset = visibleRows(m.layout, m.cursor, m.offset, m.boardHeight())
}

// selectNode traces id. Unknown ids still select: the trace is simply
// empty, as it is for any node without edges.
func (m *Model) selectNode(id string) {
	if id == "" {
		return
	}
	m.state.Select(id)
	if _, ok := m.layout.Card(id); ok {
		m.cursor = id
		m.offset = visibleRows(m.layout, m.cursor, m.offset, m.boardHeight())
	}
	if n, ok := m.graph.Node(id); ok {
		m.chat.SetSelection(&n)
	} else {
		m.chat.SetSelection(nil)
	}
}

func (m *Model) cycleTypeFilter() {
	order := []model.SystemType{"", model.TypeExisting, model.TypeNew, model.TypeCore}
	for i, t := range order {
		if t == m.typeFilter {
			m.typeFilter = order[(i+1)%len(order)]
			break
		}
	}
	m.relayout()
	if m.typeFilter == "" {
		m.setStatus("Showing all systems", false)
	} else {
		m.setStatus("Showing "+string(m.typeFilter)+" systems", false)
	}
}

func (m *Model) keep() func(model.Node) bool {
	if m.typeFilter == "" {
		return nil
	}
	want := m.typeFilter
	return func(n model.Node) bool { return n.Type == want }
}

func (m *Model) openChat() tea.Cmd {
	m.chatOpen = true
	m.chat.SetSize(m.chatWidth(), m.bodyHeight())
	m.relayout()
	return tea.Batch(m.chat.Focus(), m.scheduleFrame())
}

func (m *Model) openKeyModal() tea.Cmd {
	m.keyModal = NewKeyModal(m.width - 4)
	return m.keyModal.Init()
}

func (m *Model) copySelection() tea.Cmd {
	id := m.state.Snapshot().Selected
	if id == "" {
		id = m.cursor
	}
	n, ok := m.graph.Node(id)
	if !ok {
		m.setStatus("Nothing to copy", true)
		return nil
	}
	return copyCmd(n.Name, nodeSummary(n))
}

// nodeSummary is the clipboard text for a system.
func nodeSummary(n model.Node) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s (%s)\n", n.Name, n.ID)
	if n.SubLabel != "" {
		fmt.Fprintf(&b, "%s\n", n.SubLabel)
	}
	fmt.Fprintf(&b, "Type: %s · Milestone: %s\n", n.Type, n.Milestone.Label())
	if n.Description != "" {
		fmt.Fprintf(&b, "\n%s\n", n.Description)
	}
	if len(n.Targets) > 0 {
		fmt.Fprintf(&b, "\nTargets: %s\n", strings.Join(n.Targets, ", "))
	}
	return b.String()
}

// SetArchitecture swaps in reloaded data. The selection survives when its
// node still exists.
func (m *Model) SetArchitecture(arch model.Architecture) {
	m.arch = arch
	m.graph = graph.New(arch)
	m.state.SetGraph(m.graph)
	m.relayout()
	if id := m.state.Snapshot().Selected; id != "" {
		if n, ok := m.graph.Node(id); ok {
			m.chat.SetSelection(&n)
		}
	}
}

// relayout recomputes the card table for the current board size and
// mounts it as the trace geometry.
func (m *Model) relayout() {
	w := m.boardWidth()
	lay := layout.Compute(m.arch, layout.TerminalConfig(w), m.keep())
	m.layout = lay
	m.state.Mount(func(scale float64) trace.Geometry {
		return lay.Geometry(scale, trace.Point{})
	})
	m.state.SetViewportWidth(float64(w))
	if _, ok := lay.Card(m.cursor); !ok {
		m.cursor = firstCard(lay)
	}
	m.offset = visibleRows(lay, m.cursor, m.offset, m.boardHeight())
}

func (m Model) chatWidth() int {
	w := m.cfg.UI.ChatWidth
	if w <= 0 {
		w = 48
	}
	return min(w, max(m.width/2, 20))
}

func (m Model) boardWidth() int {
	w := m.width
	if m.chatOpen {
		w -= m.chatWidth()
	}
	return max(w, minBoardWidth)
}

// bodyHeight is everything between the header and the footer.
func (m Model) bodyHeight() int {
	return max(m.height-headerRows-footerRows, 4)
}

func (m Model) boardHeight() int {
	h := m.bodyHeight()
	if m.showConnectors {
		h -= panelRows + panelChrome
	}
	return max(h, 4)
}

// View renders the whole screen.
func (m Model) View() string {
	defer metrics.Timer(metrics.UIRender)()

	if m.keyModal != nil {
		return lipgloss.Place(m.width, m.height, lipgloss.Center, lipgloss.Center, m.keyModal.View())
	}

	snap := m.state.Snapshot()
	board := boardView{layout: m.layout, snap: snap, cursor: m.cursor, theme: m.theme}.render()
	rows := board.lines(m.offset, m.offset+m.boardHeight())

	left := strings.Join(rows, "\n")
	if m.showConnectors {
		left = lipgloss.JoinVertical(lipgloss.Left, left, m.renderConnectorPanel(snap))
	}
	body := left
	if m.chatOpen {
		body = lipgloss.JoinHorizontal(lipgloss.Top, left, m.chat.View())
	}

	return lipgloss.JoinVertical(lipgloss.Left,
		m.renderTitle(),
		m.renderMilestoneBar(snap),
		m.renderLegend(snap),
		body,
		m.renderFooter(),
	)
}
