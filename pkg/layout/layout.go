// Package layout places architecture cards on the diagram surface: one
// column per layer, groups stacked inside each column, and a one- or
// two-column card grid inside each group. All coordinates are logical
// (unscaled); Geometry turns them into the screen-space boxes the trace
// engine consumes.
package layout

import (
	"github.com/vanderheijden86/archtrace/pkg/model"
	"github.com/vanderheijden86/archtrace/pkg/trace"
)

// BaseWidth is the native logical width of the diagram.
const BaseWidth = 1400.0

// Config holds the spacing constants of a layout.
type Config struct {
	Width        float64 // total logical width
	PaddingX     float64 // left/right padding of the table
	TopPadding   float64
	HeaderHeight float64 // layer title row
	ColumnGap    float64
	GroupGap     float64
	GroupPadding float64
	GroupTitle   float64 // extra height when a group has a name
	CardHeight   float64
	CardGap      float64
}

// DefaultConfig matches the pixel metrics of the web diagram.
func DefaultConfig() Config {
	return Config{
		Width:        BaseWidth,
		PaddingX:     16,
		TopPadding:   24,
		HeaderHeight: 48,
		ColumnGap:    24,
		GroupGap:     24,
		GroupPadding: 16,
		GroupTitle:   32,
		CardHeight:   88,
		CardGap:      12,
	}
}

// TerminalConfig lays cards out in character cells for a terminal of the
// given width.
func TerminalConfig(width int) Config {
	if width < 40 {
		width = 40
	}
	return Config{
		Width:        float64(width),
		PaddingX:     0,
		TopPadding:   0,
		HeaderHeight: 2,
		ColumnGap:    1,
		GroupGap:     1,
		GroupPadding: 1,
		GroupTitle:   1,
		CardHeight:   4,
		CardGap:      0,
	}
}

// Box is a logical rectangle.
type Box struct {
	X, Y, W, H float64
}

// Center returns the middle of the box.
func (b Box) Center() trace.Point {
	return trace.Point{X: b.X + b.W/2, Y: b.Y + b.H/2}
}

// Column is the area assigned to one layer.
type Column struct {
	Layer model.Layer
	Box   Box
}

// GroupBox is the framed area of one group.
type GroupBox struct {
	Layer int
	Group model.Group
	Box   Box
}

// Card is a placed node.
type Card struct {
	Node  model.Node
	Layer int
	Group int // index into Layout.Groups
	Row   int
	Col   int
	Box   Box
}

// Layout is the result of placing an architecture.
type Layout struct {
	Config  Config
	Width   float64
	Height  float64
	Columns []Column
	Groups  []GroupBox
	Cards   []Card

	index map[string]int
}

// Compute places every card of arch. Cards rejected by keep are left out
// entirely, as if they were filtered from view; keep may be nil.
func Compute(arch model.Architecture, cfg Config, keep func(model.Node) bool) *Layout {
	l := &Layout{Config: cfg, Width: cfg.Width, index: make(map[string]int)}
	n := len(arch.Layers)
	if n == 0 {
		l.Height = cfg.TopPadding
		return l
	}

	colW := (cfg.Width - 2*cfg.PaddingX - float64(n-1)*cfg.ColumnGap) / float64(n)
	if colW < 1 {
		colW = 1
	}
	bodyTop := cfg.TopPadding + cfg.HeaderHeight
	maxBottom := bodyTop

	for li, layer := range arch.Layers {
		x := cfg.PaddingX + float64(li)*(colW+cfg.ColumnGap)
		y := bodyTop
		for _, group := range layer.Groups {
			gb := l.placeGroup(li, group, Box{X: x, Y: y, W: colW}, keep)
			y = gb.Y + gb.H + cfg.GroupGap
		}
		bottom := y - cfg.GroupGap
		if len(layer.Groups) == 0 {
			bottom = bodyTop
		}
		if bottom > maxBottom {
			maxBottom = bottom
		}
		l.Columns = append(l.Columns, Column{Layer: layer, Box: Box{X: x, Y: cfg.TopPadding, W: colW}})
	}

	for i := range l.Columns {
		l.Columns[i].Box.H = maxBottom - cfg.TopPadding
	}
	l.Height = maxBottom + cfg.TopPadding
	return l
}

func (l *Layout) placeGroup(layerIdx int, group model.Group, frame Box, keep func(model.Node) bool) Box {
	cfg := l.Config
	cols := group.Columns()
	inner := frame.W - 2*cfg.GroupPadding
	cellW := (inner - float64(cols-1)*cfg.CardGap) / float64(cols)
	if cellW < 1 {
		cellW = 1
	}

	top := frame.Y + cfg.GroupPadding
	if group.Name != "" {
		top += cfg.GroupTitle
	}

	groupIdx := len(l.Groups)
	row, col, rows := 0, 0, 0
	for _, node := range group.Systems {
		if keep != nil && !keep(node) {
			continue
		}
		span := node.Span()
		if span > cols {
			span = cols
		}
		if col+span > cols {
			row++
			col = 0
		}
		box := Box{
			X: frame.X + cfg.GroupPadding + float64(col)*(cellW+cfg.CardGap),
			Y: top + float64(row)*(cfg.CardHeight+cfg.CardGap),
			W: cellW*float64(span) + cfg.CardGap*float64(span-1),
			H: cfg.CardHeight,
		}
		if _, dup := l.index[node.ID]; !dup {
			l.index[node.ID] = len(l.Cards)
		}
		l.Cards = append(l.Cards, Card{Node: node, Layer: layerIdx, Group: groupIdx, Row: row, Col: col, Box: box})
		rows = row + 1
		col += span
		if col >= cols {
			row++
			col = 0
		}
	}

	h := top - frame.Y + cfg.GroupPadding
	if rows > 0 {
		h += float64(rows)*cfg.CardHeight + float64(rows-1)*cfg.CardGap
	}
	gb := Box{X: frame.X, Y: frame.Y, W: frame.W, H: h}
	l.Groups = append(l.Groups, GroupBox{Layer: layerIdx, Group: group, Box: gb})
	return gb
}

// Card returns the placed card for id.
func (l *Layout) Card(id string) (Card, bool) {
	i, ok := l.index[id]
	if !ok {
		return Card{}, false
	}
	return l.Cards[i], true
}

// CardsInLayer returns the cards of one layer in placement order.
func (l *Layout) CardsInLayer(layer int) []Card {
	var out []Card
	for _, c := range l.Cards {
		if c.Layer == layer {
			out = append(out, c)
		}
	}
	return out
}

// Geometry exposes the layout as a trace.Geometry drawn at scale with its
// container at origin. Logical boxes are scaled into screen space, which
// the engine projects back.
func (l *Layout) Geometry(scale float64, origin trace.Point) trace.Geometry {
	return screenGeometry{layout: l, scale: scale, origin: origin}
}

type screenGeometry struct {
	layout *Layout
	scale  float64
	origin trace.Point
}

func (g screenGeometry) Bounds(id string) (trace.Rect, bool) {
	if g.layout == nil {
		return trace.Rect{}, false
	}
	c, ok := g.layout.Card(id)
	if !ok {
		return trace.Rect{}, false
	}
	return trace.Rect{
		Left:   g.origin.X + c.Box.X*g.scale,
		Top:    g.origin.Y + c.Box.Y*g.scale,
		Width:  c.Box.W * g.scale,
		Height: c.Box.H * g.scale,
	}, true
}

func (g screenGeometry) Origin() trace.Point { return g.origin }
