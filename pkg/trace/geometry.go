package trace

import (
	"fmt"
	"math"
)

// Point is a coordinate in logical (unscaled) diagram space unless noted.
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Rect is a screen-space bounding box as reported by the rendering surface.
type Rect struct {
	Left   float64 `json:"left"`
	Top    float64 `json:"top"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// Geometry resolves the current screen bounds of the element drawn for a
// node. Bounds returns false when the element is not mounted (filtered
// out, off-surface, or the identifier is unknown).
type Geometry interface {
	Bounds(id string) (Rect, bool)
	// Origin is the screen position of the container the diagram is drawn in.
	Origin() Point
}

// GeometryFunc adapts a lookup function and a fixed origin to Geometry.
type GeometryFunc struct {
	Lookup    func(id string) (Rect, bool)
	Container Point
}

// Bounds implements Geometry.
func (g GeometryFunc) Bounds(id string) (Rect, bool) {
	if g.Lookup == nil {
		return Rect{}, false
	}
	return g.Lookup(id)
}

// Origin implements Geometry.
func (g GeometryFunc) Origin() Point { return g.Container }

// Center projects a screen-space box back into logical space and returns
// its center: the container origin is subtracted, the visual scale is
// undone, and half the unscaled size is added.
func Center(r Rect, origin Point, scale float64) Point {
	return Point{
		X: (r.Left-origin.X)/scale + (r.Width/scale)/2,
		Y: (r.Top-origin.Y)/scale + (r.Height/scale)/2,
	}
}

// Shorten pulls both ends of the segment start->end toward each other by
// offset along the segment's angle.
func Shorten(start, end Point, offset float64) (Point, Point) {
	angle := math.Atan2(end.Y-start.Y, end.X-start.X)
	dx := math.Cos(angle) * offset
	dy := math.Sin(angle) * offset
	return Point{X: start.X + dx, Y: start.Y + dy}, Point{X: end.X - dx, Y: end.Y - dy}
}

// CurvePath returns the SVG path data for a cubic Bezier from start to end
// whose control points sit curve units to the right of start and to the
// left of end.
func CurvePath(start, end Point, curve float64) string {
	return fmt.Sprintf("M %s %s C %s %s, %s %s, %s %s",
		num(start.X), num(start.Y),
		num(start.X+curve), num(start.Y),
		num(end.X-curve), num(end.Y),
		num(end.X), num(end.Y))
}

func num(v float64) string {
	return fmt.Sprintf("%.2f", v)
}
