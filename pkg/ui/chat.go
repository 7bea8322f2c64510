package ui

import (
	"context"
	"strings"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/vanderheijden86/archtrace/pkg/assistant"
	"github.com/vanderheijden86/archtrace/pkg/model"
)

// ReplyMsg delivers an assistant reply to the program.
type ReplyMsg struct {
	Message model.ChatMessage
}

// sendCmd resolves a posted message off the UI goroutine.
func sendCmd(ctx context.Context, conv *assistant.Conversation, posted model.ChatMessage) tea.Cmd {
	return func() tea.Msg {
		return ReplyMsg{Message: conv.Resolve(ctx, posted)}
	}
}

// ChatPanel is the assistant side panel: message log, suggestion chips
// and an input line.
type ChatPanel struct {
	conv     *assistant.Conversation
	input    textinput.Model
	log      viewport.Model
	spinner  spinner.Model
	renderer *assistant.Renderer
	theme    Theme

	chips []assistant.Suggestion
	chip  int // highlighted chip, -1 for none

	online        bool
	width, height int
}

// NewChatPanel creates a panel over conv.
func NewChatPanel(conv *assistant.Conversation, theme Theme, width, height int) ChatPanel {
	in := textinput.New()
	in.Placeholder = "Ask about the architecture…"
	in.Prompt = "› "
	in.CharLimit = 2000

	p := ChatPanel{
		conv:    conv,
		input:   in,
		log:     viewport.New(width, height),
		spinner: spinner.New(spinner.WithSpinner(spinner.Dot)),
		theme:   theme,
		chip:    -1,
		chips:   assistant.Suggestions(nil),
	}
	p.SetSize(width, height)
	return p
}

// SetSize resizes the panel; the log is re-rendered at the new width.
func (p *ChatPanel) SetSize(width, height int) {
	p.width, p.height = width, height
	inner := max(width-4, 10)
	p.input.Width = inner - 2
	p.log.Width = inner
	// Header, chips, input and the frame take seven rows.
	p.log.Height = max(height-7, 3)
	p.renderer = assistant.NewRenderer(inner)
	p.Refresh()
}

// SetOnline updates the credential indicator.
func (p *ChatPanel) SetOnline(online bool) { p.online = online }

// SetSelection rebuilds the chips for the selected node.
func (p *ChatPanel) SetSelection(n *model.Node) {
	p.chips = assistant.Suggestions(n)
	if p.chip >= len(p.chips) {
		p.chip = -1
	}
}

// Focus gives the input the cursor.
func (p *ChatPanel) Focus() tea.Cmd { return p.input.Focus() }

// Blur releases the cursor.
func (p *ChatPanel) Blur() { p.input.Blur() }

// CycleChip highlights the next chip and copies its question into the
// input.
func (p *ChatPanel) CycleChip() {
	if len(p.chips) == 0 {
		return
	}
	p.chip = (p.chip + 1) % len(p.chips)
	p.input.SetValue(p.chips[p.chip].Query)
	p.input.CursorEnd()
}

// Submit posts the input text and returns the command awaiting the reply.
// Blank input sends nothing.
func (p *ChatPanel) Submit(ctx context.Context) tea.Cmd {
	text := strings.TrimSpace(p.input.Value())
	posted, ok := p.conv.Post(text)
	if !ok {
		return nil
	}
	p.input.Reset()
	p.chip = -1
	p.Refresh()
	return tea.Batch(sendCmd(ctx, p.conv, posted), p.spinner.Tick)
}

// Update routes input keys and spinner ticks.
func (p *ChatPanel) Update(msg tea.Msg) tea.Cmd {
	switch msg := msg.(type) {
	case spinner.TickMsg:
		if !p.conv.Typing() {
			return nil
		}
		var cmd tea.Cmd
		p.spinner, cmd = p.spinner.Update(msg)
		p.Refresh()
		return cmd
	case tea.KeyMsg:
		switch msg.String() {
		case "pgup", "pgdown":
			var cmd tea.Cmd
			p.log, cmd = p.log.Update(msg)
			return cmd
		}
	}
	var cmd tea.Cmd
	p.input, cmd = p.input.Update(msg)
	return cmd
}

// Refresh re-renders the log and scrolls to the newest message.
func (p *ChatPanel) Refresh() {
	var b strings.Builder
	for _, m := range p.conv.Messages() {
		if m.Role == model.RoleUser {
			b.WriteString(p.theme.ChatUser.Render("You"))
			b.WriteString("\n")
			for _, line := range wrapCells(m.Content, p.log.Width) {
				b.WriteString(line)
				b.WriteString("\n")
			}
			b.WriteString("\n")
			continue
		}
		b.WriteString(p.theme.ChatAI.Render("Assistant"))
		b.WriteString("\n")
		b.WriteString(strings.TrimRight(p.renderer.Render(m.Content), "\n"))
		b.WriteString("\n\n")
	}
	if p.conv.Typing() {
		b.WriteString(p.theme.Muted.Render(p.spinner.View() + " thinking…"))
	}
	p.log.SetContent(strings.TrimRight(b.String(), "\n"))
	p.log.GotoBottom()
}

// View renders the framed panel.
func (p ChatPanel) View() string {
	status := p.theme.Status.Render("● Online")
	if !p.online {
		status = p.theme.Error.Render("● API key not set (K)")
	}
	header := p.theme.Title.Render("AI architecture advisor") + "  " + status

	var chips []string
	for i, c := range p.chips {
		style := p.theme.Chip
		if i == p.chip {
			style = p.theme.ChipActive
		}
		chips = append(chips, style.Render(truncate(c.Label, 18)))
	}
	chipLine := p.theme.Renderer.NewStyle().
		MaxWidth(max(p.width-4, 1)).
		Render(lipgloss.JoinHorizontal(lipgloss.Top, chips...))

	body := lipgloss.JoinVertical(lipgloss.Left,
		header,
		p.log.View(),
		p.theme.Help.Render("tab suggestions · enter send · esc close"),
		chipLine,
		p.input.View(),
	)
	return p.theme.Panel.Width(max(p.width-2, 0)).Render(body)
}
