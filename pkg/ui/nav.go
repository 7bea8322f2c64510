package ui

import (
	"math"
	"sort"

	"github.com/vanderheijden86/archtrace/pkg/layout"
)

// navDir is a cursor movement on the card table.
type navDir int

const (
	navUp navDir = iota
	navDown
	navLeft
	navRight
)

// layerCards returns the cards of one layer in reading order.
func layerCards(l *layout.Layout, layer int) []layout.Card {
	cards := l.CardsInLayer(layer)
	sort.SliceStable(cards, func(i, j int) bool {
		if cards[i].Box.Y != cards[j].Box.Y {
			return cards[i].Box.Y < cards[j].Box.Y
		}
		return cards[i].Box.X < cards[j].Box.X
	})
	return cards
}

// firstCard returns the first card in reading order of the first
// non-empty layer, or "" for an empty layout.
func firstCard(l *layout.Layout) string {
	for i := range l.Columns {
		if cards := layerCards(l, i); len(cards) > 0 {
			return cards[0].Node.ID
		}
	}
	return ""
}

// moveCursor returns the card reached from cursor in direction d. Up and
// down walk the layer in reading order; left and right jump to the
// vertically closest card of the neighbouring non-empty layer. An unknown
// cursor lands on the first card.
func moveCursor(l *layout.Layout, cursor string, d navDir) string {
	cur, ok := l.Card(cursor)
	if !ok {
		return firstCard(l)
	}

	switch d {
	case navUp, navDown:
		cards := layerCards(l, cur.Layer)
		for i, c := range cards {
			if c.Node.ID != cur.Node.ID {
				continue
			}
			if d == navUp && i > 0 {
				return cards[i-1].Node.ID
			}
			if d == navDown && i < len(cards)-1 {
				return cards[i+1].Node.ID
			}
			break
		}
		return cursor

	case navLeft, navRight:
		step := 1
		if d == navLeft {
			step = -1
		}
		cy := cur.Box.Center().Y
		for layer := cur.Layer + step; layer >= 0 && layer < len(l.Columns); layer += step {
			cards := layerCards(l, layer)
			if len(cards) == 0 {
				continue
			}
			best, bestDist := cards[0], math.Inf(1)
			for _, c := range cards {
				if dist := math.Abs(c.Box.Center().Y - cy); dist < bestDist {
					best, bestDist = c, dist
				}
			}
			return best.Node.ID
		}
	}
	return cursor
}
