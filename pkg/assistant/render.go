package assistant

import (
	"strings"

	"github.com/charmbracelet/glamour"
)

// Renderer turns markdown replies into styled terminal text.
type Renderer struct {
	width int
	tr    *glamour.TermRenderer
}

// NewRenderer wraps replies at width columns. If glamour cannot be set up
// the renderer falls back to plain text.
func NewRenderer(width int) *Renderer {
	if width < 20 {
		width = 20
	}
	tr, _ := glamour.NewTermRenderer(
		glamour.WithAutoStyle(),
		glamour.WithWordWrap(width),
	)
	return &Renderer{width: width, tr: tr}
}

// Width returns the wrap width.
func (r *Renderer) Width() int { return r.width }

// Render formats markdown. Errors fall back to the raw text.
func (r *Renderer) Render(markdown string) string {
	if r == nil || r.tr == nil {
		return markdown
	}
	out, err := r.tr.Render(markdown)
	if err != nil {
		return markdown
	}
	return strings.TrimRight(out, "\n")
}
