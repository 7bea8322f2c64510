package ui

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-runewidth"
)

// canvas is a fixed grid of terminal cells. Each cell carries an index
// into the canvas's style list so runs of equally styled cells render
// with a single lipgloss call.
type canvas struct {
	w, h   int
	cells  [][]cell
	styles []lipgloss.Style
}

type cell struct {
	r     rune
	style int  // 0 is unstyled
	cont  bool // right half of a wide rune
}

func newCanvas(w, h int) *canvas {
	if w < 0 {
		w = 0
	}
	if h < 0 {
		h = 0
	}
	c := &canvas{w: w, h: h, styles: []lipgloss.Style{{}}}
	c.cells = make([][]cell, h)
	for y := range c.cells {
		row := make([]cell, w)
		for x := range row {
			row[x].r = ' '
		}
		c.cells[y] = row
	}
	return c
}

// use registers s and returns its index.
func (c *canvas) use(s lipgloss.Style) int {
	c.styles = append(c.styles, s)
	return len(c.styles) - 1
}

func (c *canvas) inside(x, y int) bool {
	return x >= 0 && y >= 0 && x < c.w && y < c.h
}

func (c *canvas) set(x, y int, r rune, style int) {
	if !c.inside(x, y) {
		return
	}
	row := c.cells[y]
	// Overwriting either half of a wide rune blanks the other half.
	if row[x].cont && x > 0 {
		row[x-1] = cell{r: ' ', style: row[x-1].style}
	}
	if x+1 < c.w && row[x+1].cont {
		row[x+1] = cell{r: ' ', style: row[x+1].style}
	}
	row[x] = cell{r: r, style: style}
}

// text writes s at (x, y), clipped to maxW cells. Wide runes that would
// straddle the clip edge are dropped.
func (c *canvas) text(x, y int, s string, maxW, style int) {
	used := 0
	for _, r := range s {
		rw := runewidth.RuneWidth(r)
		if rw == 0 {
			continue
		}
		if used+rw > maxW {
			return
		}
		c.set(x+used, y, r, style)
		if rw == 2 && c.inside(x+used+1, y) {
			c.set(x+used+1, y, ' ', style)
			c.cells[y][x+used+1].cont = true
		}
		used += rw
	}
}

// box draws a single-line frame.
func (c *canvas) box(x, y, w, h, style int) {
	if w < 2 || h < 2 {
		return
	}
	right, bottom := x+w-1, y+h-1
	for i := x + 1; i < right; i++ {
		c.set(i, y, '─', style)
		c.set(i, bottom, '─', style)
	}
	for j := y + 1; j < bottom; j++ {
		c.set(x, j, '│', style)
		c.set(right, j, '│', style)
	}
	c.set(x, y, '┌', style)
	c.set(right, y, '┐', style)
	c.set(x, bottom, '└', style)
	c.set(right, bottom, '┘', style)
}

// heavyBox draws a bold frame, used for the selected card.
func (c *canvas) heavyBox(x, y, w, h, style int) {
	if w < 2 || h < 2 {
		return
	}
	right, bottom := x+w-1, y+h-1
	for i := x + 1; i < right; i++ {
		c.set(i, y, '━', style)
		c.set(i, bottom, '━', style)
	}
	for j := y + 1; j < bottom; j++ {
		c.set(x, j, '┃', style)
		c.set(right, j, '┃', style)
	}
	c.set(x, y, '┏', style)
	c.set(right, y, '┓', style)
	c.set(x, bottom, '┗', style)
	c.set(right, bottom, '┛', style)
}

// lines renders rows [from, to) as styled strings.
func (c *canvas) lines(from, to int) []string {
	if from < 0 {
		from = 0
	}
	if to > c.h {
		to = c.h
	}
	out := make([]string, 0, max(to-from, 0))
	for y := from; y < to; y++ {
		out = append(out, c.renderRow(c.cells[y]))
	}
	return out
}

func (c *canvas) renderRow(row []cell) string {
	var b, run strings.Builder
	current := 0
	flush := func() {
		if run.Len() == 0 {
			return
		}
		if current == 0 {
			b.WriteString(run.String())
		} else {
			b.WriteString(c.styles[current].Render(run.String()))
		}
		run.Reset()
	}
	for _, cl := range row {
		if cl.cont {
			continue
		}
		if cl.style != current {
			flush()
			current = cl.style
		}
		run.WriteRune(cl.r)
	}
	flush()
	return b.String()
}

// String renders the whole canvas.
func (c *canvas) String() string {
	return strings.Join(c.lines(0, c.h), "\n")
}
