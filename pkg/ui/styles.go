package ui

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// ══════════════════════════════════════════════════════════════════════════════
// COLOR PALETTE - Adaptive colors for light and dark terminals
// ══════════════════════════════════════════════════════════════════════════════

var (
	ColorText    = lipgloss.AdaptiveColor{Light: "#1A1A1A", Dark: "#F8F8F2"}
	ColorSubtext = lipgloss.AdaptiveColor{Light: "#555555", Dark: "#BFBFBF"}
	ColorMuted   = lipgloss.AdaptiveColor{Light: "#666666", Dark: "#6272A4"}
	ColorDim     = lipgloss.AdaptiveColor{Light: "#C8C8C8", Dark: "#3A3C4E"}
	ColorBorder  = lipgloss.AdaptiveColor{Light: "#AAAAAA", Dark: "#44475A"}

	ColorPrimary = lipgloss.AdaptiveColor{Light: "#6B47D9", Dark: "#BD93F9"}
	ColorDanger  = lipgloss.AdaptiveColor{Light: "#CC0000", Dark: "#FF5555"}
	ColorSuccess = lipgloss.AdaptiveColor{Light: "#007700", Dark: "#50FA7B"}

	// Trace highlight
	ColorSelected  = lipgloss.AdaptiveColor{Light: "#1D4ED8", Dark: "#60A5FA"} // blue
	ColorSource    = lipgloss.AdaptiveColor{Light: "#B45309", Dark: "#FBBF24"} // amber
	ColorTarget    = lipgloss.AdaptiveColor{Light: "#047857", Dark: "#34D399"} // green
	ColorMilestone = lipgloss.AdaptiveColor{Light: "#4338CA", Dark: "#A5B4FC"} // indigo

	// System types
	ColorNew  = lipgloss.AdaptiveColor{Light: "#047857", Dark: "#10B981"}
	ColorCore = lipgloss.AdaptiveColor{Light: "#1D4ED8", Dark: "#2563EB"}
)

// groupColors maps the palette names used in architecture files.
var groupColors = map[string]lipgloss.AdaptiveColor{
	"slate":  {Light: "#475569", Dark: "#94A3B8"},
	"purple": {Light: "#7E22CE", Dark: "#C084FC"},
	"green":  {Light: "#15803D", Dark: "#4ADE80"},
	"blue":   {Light: "#1D4ED8", Dark: "#60A5FA"},
	"indigo": {Light: "#4338CA", Dark: "#818CF8"},
	"orange": {Light: "#C2410C", Dark: "#FB923C"},
	"rose":   {Light: "#BE123C", Dark: "#FB7185"},
}

// GroupColor resolves a group's colour name, falling back to the border
// colour for names outside the palette.
func GroupColor(name string) lipgloss.AdaptiveColor {
	if c, ok := groupColors[strings.ToLower(name)]; ok {
		return c
	}
	return ColorBorder
}
