package assistant

import (
	"strings"
	"testing"
)

func TestRendererKeepsText(t *testing.T) {
	r := NewRenderer(40)
	out := r.Render("**AODB** feeds the data warehouse.")
	if !strings.Contains(out, "AODB") || !strings.Contains(out, "warehouse") {
		t.Errorf("Render = %q", out)
	}
	if r.Width() != 40 {
		t.Errorf("Width = %d", r.Width())
	}
}

func TestNilRendererPassesThrough(t *testing.T) {
	var r *Renderer
	if got := r.Render("plain"); got != "plain" {
		t.Errorf("Render = %q", got)
	}
}
