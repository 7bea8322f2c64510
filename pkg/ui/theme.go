package ui

import (
	"os"
	"strings"

	"github.com/charmbracelet/colorprofile"
	"github.com/charmbracelet/lipgloss"
)

// TermProfile holds the detected terminal color profile. Computed once at
// package init so every style helper can branch without re-detecting.
var TermProfile colorprofile.Profile

func init() {
	TermProfile = colorprofile.Detect(os.Stdout, os.Environ())
}

// ThemeFg returns the given hex color for ANSI256+ terminals and a safe
// ANSI white (color 7) for 16-color or lower terminals.
func ThemeFg(hex string) lipgloss.TerminalColor {
	if TermProfile < colorprofile.ANSI256 {
		return lipgloss.ANSIColor(7)
	}
	return lipgloss.Color(hex)
}

// Theme is the full set of styles the TUI draws with.
type Theme struct {
	Renderer *lipgloss.Renderer

	Base        lipgloss.Style
	Title       lipgloss.Style
	Subtitle    lipgloss.Style
	LayerHeader lipgloss.Style
	Muted       lipgloss.Style
	Help        lipgloss.Style
	Status      lipgloss.Style
	Error       lipgloss.Style

	// Cards: border colour carries the trace status.
	Card         lipgloss.Style
	CardSelected lipgloss.Style
	CardSource   lipgloss.Style
	CardTarget   lipgloss.Style
	CardDim      lipgloss.Style
	CardMatch    lipgloss.Style
	Cursor       lipgloss.Style

	BadgeNew   lipgloss.Style
	BadgeCore  lipgloss.Style
	BadgeMatch lipgloss.Style

	MilestoneOn  lipgloss.Style
	MilestoneOff lipgloss.Style

	Panel      lipgloss.Style
	ChatUser   lipgloss.Style
	ChatAI     lipgloss.Style
	Chip       lipgloss.Style
	ChipActive lipgloss.Style
}

// DefaultTheme returns the adaptive theme.
func DefaultTheme(r *lipgloss.Renderer) Theme {
	t := Theme{Renderer: r}

	t.Base = r.NewStyle().Foreground(ColorText)
	t.Title = r.NewStyle().Foreground(ColorPrimary).Bold(true)
	t.Subtitle = r.NewStyle().Foreground(ColorSubtext)
	t.LayerHeader = r.NewStyle().Foreground(ColorText).Bold(true)
	t.Muted = r.NewStyle().Foreground(ColorMuted)
	t.Help = r.NewStyle().Foreground(ColorMuted)
	t.Status = r.NewStyle().Foreground(ColorSuccess)
	t.Error = r.NewStyle().Foreground(ColorDanger).Bold(true)

	t.Card = r.NewStyle().Foreground(ColorBorder)
	t.CardSelected = r.NewStyle().Foreground(ColorSelected).Bold(true)
	t.CardSource = r.NewStyle().Foreground(ColorSource)
	t.CardTarget = r.NewStyle().Foreground(ColorTarget)
	t.CardDim = r.NewStyle().Foreground(ColorDim).Faint(true)
	t.CardMatch = r.NewStyle().Foreground(ColorMilestone).Bold(true)
	t.Cursor = r.NewStyle().Foreground(ColorPrimary).Bold(true)

	t.BadgeNew = r.NewStyle().Foreground(ColorNew).Bold(true)
	t.BadgeCore = r.NewStyle().Foreground(ColorCore).Bold(true)
	t.BadgeMatch = r.NewStyle().Foreground(ColorMilestone).Bold(true)

	t.MilestoneOn = r.NewStyle().
		Background(ColorMilestone).
		Foreground(lipgloss.AdaptiveColor{Light: "#FFFFFF", Dark: "#1E1F29"}).
		Bold(true).
		Padding(0, 1)
	t.MilestoneOff = r.NewStyle().Foreground(ColorSubtext).Padding(0, 1)

	t.Panel = r.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(ColorBorder).
		Padding(0, 1)
	t.ChatUser = r.NewStyle().Foreground(ColorSelected).Bold(true)
	t.ChatAI = r.NewStyle().Foreground(ColorPrimary).Bold(true)
	t.Chip = r.NewStyle().Foreground(ColorSubtext).Padding(0, 1)
	t.ChipActive = r.NewStyle().
		Foreground(ColorSelected).
		Underline(true).
		Bold(true).
		Padding(0, 1)

	return t
}

// GroupStyle is the frame style of a group with the given colour name.
func (t Theme) GroupStyle(color string) lipgloss.Style {
	return t.Renderer.NewStyle().Foreground(GroupColor(color))
}

// ApplyMode forces a light or dark background; anything else keeps the
// terminal's own detection.
func ApplyMode(r *lipgloss.Renderer, mode string) {
	switch strings.ToLower(strings.TrimSpace(mode)) {
	case "dark":
		r.SetHasDarkBackground(true)
	case "light":
		r.SetHasDarkBackground(false)
	}
}

// TestTheme returns a theme suitable for use in tests.
func TestTheme() Theme {
	return DefaultTheme(lipgloss.NewRenderer(os.Stdout))
}
