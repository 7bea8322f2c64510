package ui

import (
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/huh"

	"github.com/vanderheijden86/archtrace/pkg/credential"
)

const keyHelp = `Create a free key at https://aistudio.google.com/apikey
(sign in, then "Create API Key") and paste it below.
The key is stored locally and only sent to the Gemini API.`

// KeyModal collects the assistant API key with inline validation.
type KeyModal struct {
	form  *huh.Form
	value string
	width int
}

// NewKeyModal builds the entry form.
func NewKeyModal(width int) *KeyModal {
	km := &KeyModal{width: width}
	km.form = huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Key("api_key").
				Title("Gemini API key").
				Placeholder("AIza...").
				EchoMode(huh.EchoModePassword).
				Validate(credential.Validate).
				Value(&km.value),
		).Title("Set up the assistant").Description(keyHelp),
	).WithTheme(huh.ThemeDracula()).WithShowHelp(true)
	if width > 0 {
		km.form = km.form.WithWidth(min(width, 72))
	}
	return km
}

// Init focuses the input.
func (km *KeyModal) Init() tea.Cmd { return km.form.Init() }

// Update forwards every message to the form; huh drives its field
// navigation through its own internal messages.
func (km *KeyModal) Update(msg tea.Msg) tea.Cmd {
	next, cmd := km.form.Update(msg)
	if f, ok := next.(*huh.Form); ok {
		km.form = f
	}
	return cmd
}

// Done reports whether the key was submitted and passed validation.
func (km *KeyModal) Done() bool { return km.form.State == huh.StateCompleted }

// Aborted reports whether the form was cancelled from inside huh.
func (km *KeyModal) Aborted() bool { return km.form.State == huh.StateAborted }

// Key returns the submitted key, trimmed.
func (km *KeyModal) Key() string { return strings.TrimSpace(km.value) }

// View renders the form.
func (km *KeyModal) View() string { return km.form.View() }
