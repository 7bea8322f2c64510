package ui

import (
	"math"

	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-runewidth"

	"github.com/vanderheijden86/archtrace/pkg/layout"
	"github.com/vanderheijden86/archtrace/pkg/model"
	"github.com/vanderheijden86/archtrace/pkg/trace"
	"github.com/vanderheijden86/archtrace/pkg/viewer"
)

// cellRect snaps a logical layout box to whole terminal cells. Both edges
// are rounded so adjacent boxes never overlap.
func cellRect(b layout.Box) (x, y, w, h int) {
	x = int(math.Round(b.X))
	y = int(math.Round(b.Y))
	w = int(math.Round(b.X+b.W)) - x
	h = int(math.Round(b.Y+b.H)) - y
	return x, y, w, h
}

// boardView is everything one frame of the card table depends on.
type boardView struct {
	layout *layout.Layout
	snap   viewer.Snapshot
	cursor string
	theme  Theme
}

// render draws the card table: one column per layer, framed groups, and
// cards whose border colour carries the trace status.
func (v boardView) render() *canvas {
	l := v.layout
	c := newCanvas(int(math.Ceil(l.Width)), int(math.Ceil(l.Height)))
	t := v.theme

	header := c.use(t.LayerHeader)
	rule := c.use(t.Muted)
	for _, col := range l.Columns {
		x, y, w, _ := cellRect(col.Box)
		title := truncate(col.Layer.Title, w)
		pad := (w - runewidth.StringWidth(title)) / 2
		c.text(x+pad, y, title, w-pad, header)
		for i := 0; i < w; i++ {
			c.set(x+i, y+1, '─', rule)
		}
	}

	for _, g := range l.Groups {
		x, y, w, h := cellRect(g.Box)
		frame := c.use(t.GroupStyle(g.Group.Color))
		c.box(x, y, w, h, frame)
		if g.Group.Name != "" {
			c.text(x+2, y+1, truncate(g.Group.Name, w-4), w-4, frame)
		}
	}

	for _, card := range l.Cards {
		v.drawCard(c, card)
	}
	return c
}

func (v boardView) drawCard(c *canvas, card layout.Card) {
	t := v.theme
	n := card.Node
	x, y, w, h := cellRect(card.Box)
	inner := w - 2

	border, text := t.Card, t.Base
	selected := !v.snap.MilestoneMode() && n.ID == v.snap.Selected && n.ID != ""
	switch {
	case v.snap.MilestoneMode() && !v.snap.MilestoneMatch(n):
		border, text = t.CardDim, t.CardDim
	case v.snap.MilestoneMode():
		border = t.CardMatch
	case selected:
		border = t.CardSelected
	default:
		switch v.snap.Status(n.ID) {
		case trace.StatusSource:
			border = t.CardSource
		case trace.StatusTarget:
			border = t.CardTarget
		}
	}

	bs := c.use(border)
	if selected {
		c.heavyBox(x, y, w, h, bs)
	} else {
		c.box(x, y, w, h, bs)
	}
	if h < 3 || inner <= 0 {
		return
	}

	name := n.Name
	nameStyle := c.use(text.Bold(true))
	if n.ID == v.cursor {
		name = "▸" + name
		nameStyle = c.use(t.Cursor)
	}
	c.text(x+1, y+1, truncate(name, inner), inner, nameStyle)

	if h < 4 {
		return
	}
	badge, badgeStyle := v.badgeFor(n)
	bw := runewidth.StringWidth(badge)
	sub := n.SubLabel
	subW := inner
	if badge != "" && bw < inner {
		subW = inner - bw - 1
		c.text(x+1+inner-bw, y+2, badge, bw, c.use(badgeStyle))
	}
	subStyle := t.Muted
	if v.snap.MilestoneMode() && !v.snap.MilestoneMatch(n) {
		subStyle = t.CardDim
	}
	c.text(x+1, y+2, truncate(sub, subW), subW, c.use(subStyle))
}

func (v boardView) badgeFor(n model.Node) (string, lipgloss.Style) {
	t := v.theme
	if v.snap.MilestoneMode() {
		if v.snap.MilestoneMatch(n) {
			return "V" + n.Milestone.String(), t.BadgeMatch
		}
		return "", t.Muted
	}
	switch v.snap.Status(n.ID) {
	case trace.StatusSource:
		return "Source", t.CardSource
	case trace.StatusTarget:
		return "Dest", t.CardTarget
	}
	switch n.Type {
	case model.TypeNew:
		return "NEW", t.BadgeNew
	case model.TypeCore:
		return "CORE", t.BadgeCore
	}
	return "", t.Muted
}

// visibleRows returns the first board row to show so the cursor card
// stays inside a window of height rows.
func visibleRows(l *layout.Layout, cursor string, offset, height int) int {
	total := int(math.Ceil(l.Height))
	if height <= 0 || total <= height {
		return 0
	}
	if card, ok := l.Card(cursor); ok {
		_, y, _, h := cellRect(card.Box)
		// Leave a row of context below and the group title above.
		if y-2 < offset {
			offset = y - 2
		}
		if y+h+1 > offset+height {
			offset = y + h + 1 - height
		}
	}
	if offset > total-height {
		offset = total - height
	}
	if offset < 0 {
		offset = 0
	}
	return offset
}
