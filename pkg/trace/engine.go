// Package trace implements the selection trace: starting from a selected
// node it walks the data-flow graph upstream and downstream, projects every
// touched card into logical diagram space and emits the connector segments
// the rendering surface draws between them.
//
// The walk is an explicit worklist guarded by a per-direction visited set,
// so cyclic graphs terminate and every node is expanded at most once.
// Connector emission is guarded separately by edge identity ("from-to").
// Missing elements and dangling targets are never errors; they simply
// produce fewer connectors.
package trace

import (
	"sort"
	"time"

	"github.com/vanderheijden86/archtrace/pkg/debug"
	"github.com/vanderheijden86/archtrace/pkg/metrics"
	"github.com/vanderheijden86/archtrace/pkg/model"
)

// Default presentation offsets, in logical units.
const (
	DefaultEndOffset   = 40.0
	DefaultCurveOffset = 60.0
)

// Graph is the read-only view of the data-flow graph the engine walks.
// *graph.Graph satisfies it.
type Graph interface {
	IncomingEdges(id string) []model.Node
	OutgoingTargets(id string) []string
}

// Direction tags a connector for styling only.
type Direction int

const (
	// Upstream connectors feed into the selection (drawn as "Source").
	Upstream Direction = iota
	// Downstream connectors carry data away from it (drawn as "Target").
	Downstream
)

func (d Direction) String() string {
	if d == Downstream {
		return "target"
	}
	return "source"
}

// MarshalText encodes the direction as "source" or "target".
func (d Direction) MarshalText() ([]byte, error) {
	return []byte(d.String()), nil
}

// Connector is a directed segment between two cards, already shortened so
// it starts and ends outside the card shapes.
type Connector struct {
	ID        string    `json:"id"`
	From      string    `json:"from"`
	To        string    `json:"to"`
	Start     Point     `json:"start"`
	End       Point     `json:"end"`
	Direction Direction `json:"direction"`
}

// EdgeID returns the stable identity of the edge from -> to.
func EdgeID(from, to string) string {
	return from + "-" + to
}

// Path returns the Bezier path data for the connector.
func (c Connector) Path(curve float64) string {
	return CurvePath(c.Start, c.End, curve)
}

// Midpoint is where the Source/Target badge is placed.
func (c Connector) Midpoint() Point {
	return Point{X: (c.Start.X + c.End.X) / 2, Y: (c.Start.Y + c.End.Y) / 2}
}

// Set is an unordered set of node identifiers.
type Set map[string]struct{}

// Has reports membership; a nil set is empty.
func (s Set) Has(id string) bool {
	_, ok := s[id]
	return ok
}

func (s Set) add(id string) { s[id] = struct{}{} }

// Sorted returns the members in lexical order.
func (s Set) Sorted() []string {
	out := make([]string, 0, len(s))
	for id := range s {
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}

// Status is how a card relates to the current selection.
type Status int

const (
	StatusNone Status = iota
	StatusSource
	StatusTarget
)

func (s Status) String() string {
	switch s {
	case StatusSource:
		return "source"
	case StatusTarget:
		return "target"
	}
	return ""
}

// Result is one complete trace. It is rebuilt from scratch on every
// recomputation and never updated in place.
type Result struct {
	Selected    string      `json:"selected,omitempty"`
	Connectors  []Connector `json:"connectors"`
	Ancestors   Set         `json:"-"`
	Descendants Set         `json:"-"`
}

// Empty reports whether the trace highlights nothing.
func (r Result) Empty() bool {
	return len(r.Connectors) == 0 && len(r.Ancestors) == 0 && len(r.Descendants) == 0
}

// Status classifies id against the trace. Ancestors win when a node is on
// both sides of a cycle.
func (r Result) Status(id string) Status {
	if r.Ancestors.Has(id) {
		return StatusSource
	}
	if r.Descendants.Has(id) {
		return StatusTarget
	}
	return StatusNone
}

// Connector looks up an emitted connector by identity.
func (r Result) Connector(id string) (Connector, bool) {
	for _, c := range r.Connectors {
		if c.ID == id {
			return c, true
		}
	}
	return Connector{}, false
}

func emptyResult() Result {
	return Result{Ancestors: Set{}, Descendants: Set{}}
}

// Options holds the presentation constants.
type Options struct {
	// EndOffset shortens each connector at both ends.
	EndOffset float64
	// CurveOffset is the horizontal control-point distance of drawn curves.
	CurveOffset float64
}

// DefaultOptions returns the stock offsets (40 and 60).
func DefaultOptions() Options {
	return Options{EndOffset: DefaultEndOffset, CurveOffset: DefaultCurveOffset}
}

// Input is everything one trace pass depends on.
type Input struct {
	Selected      string
	MilestoneMode bool
	Scale         float64
	Geometry      Geometry
}

// Engine computes trace results over a fixed graph.
type Engine struct {
	graph Graph
	opts  Options
}

// NewEngine creates an engine for g.
func NewEngine(g Graph, opts Options) *Engine {
	return &Engine{graph: g, opts: opts}
}

// Options returns the engine's presentation constants.
func (e *Engine) Options() Options { return e.opts }

// Trace runs one full pass. It never fails: with no selection, milestone
// mode active, no geometry provider, or a non-positive scale the result
// is empty.
func (e *Engine) Trace(in Input) Result {
	if in.Selected == "" || in.MilestoneMode || in.Geometry == nil || in.Scale <= 0 || e.graph == nil {
		return emptyResult()
	}

	start := time.Now()
	defer metrics.Timer(metrics.TraceRecompute)()

	p := pass{
		engine:   e,
		in:       in,
		origin:   in.Geometry.Origin(),
		centers:  make(map[string]*Point),
		tried:    make(map[string]bool),
		result:   emptyResult(),
		selected: in.Selected,
	}
	p.result.Selected = in.Selected
	p.walkUpstream()
	p.walkDownstream()

	debug.Log("trace %s: %d connectors, %d ancestors, %d descendants",
		in.Selected, len(p.result.Connectors), len(p.result.Ancestors), len(p.result.Descendants))
	debug.LogTiming("trace", time.Since(start))
	return p.result
}

type pass struct {
	engine   *Engine
	in       Input
	origin   Point
	selected string

	// centers caches projections for the pass; nil means not mounted.
	centers map[string]*Point
	// tried holds every edge identity already considered for emission.
	tried  map[string]bool
	result Result
}

func (p *pass) walkUpstream() {
	visited := map[string]bool{p.selected: true}
	queue := []string{p.selected}
	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]
		for _, src := range p.engine.graph.IncomingEdges(cur) {
			if src.ID != p.selected {
				p.result.Ancestors.add(src.ID)
			}
			p.emit(src.ID, cur, Upstream)
			if !visited[src.ID] {
				visited[src.ID] = true
				queue = append(queue, src.ID)
			}
		}
	}
}

func (p *pass) walkDownstream() {
	visited := map[string]bool{p.selected: true}
	queue := []string{p.selected}
	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]
		for _, dst := range p.engine.graph.OutgoingTargets(cur) {
			if dst != p.selected {
				p.result.Descendants.add(dst)
			}
			p.emit(cur, dst, Downstream)
			if !visited[dst] {
				visited[dst] = true
				queue = append(queue, dst)
			}
		}
	}
}

// emit appends the connector from -> to unless that identity was already
// considered. Connectors with an unresolved endpoint are dropped.
func (p *pass) emit(from, to string, dir Direction) {
	id := EdgeID(from, to)
	if p.tried[id] {
		return
	}
	p.tried[id] = true

	start := p.center(from)
	end := p.center(to)
	if start == nil || end == nil {
		return
	}
	s, e := Shorten(*start, *end, p.engine.opts.EndOffset)
	p.result.Connectors = append(p.result.Connectors, Connector{
		ID:        id,
		From:      from,
		To:        to,
		Start:     s,
		End:       e,
		Direction: dir,
	})
}

func (p *pass) center(id string) *Point {
	if c, ok := p.centers[id]; ok {
		return c
	}
	var c *Point
	if r, ok := p.in.Geometry.Bounds(id); ok {
		pt := Center(r, p.origin, p.in.Scale)
		c = &pt
	}
	p.centers[id] = c
	return c
}
