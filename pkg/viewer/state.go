// Package viewer holds the explicit view state of the diagram: the selected
// node, the milestone filter, the scale, and the trace derived from them.
// Every change goes through the trace.Scheduler so bursts of triggers
// collapse into a single recomputation; the current Result is replaced
// wholesale and subscribers are told about it.
package viewer

import (
	"sync"

	"github.com/vanderheijden86/archtrace/pkg/graph"
	"github.com/vanderheijden86/archtrace/pkg/model"
	"github.com/vanderheijden86/archtrace/pkg/trace"
)

// Viewport scaling constants.
const (
	BaseContentWidth = 1400.0
	ViewportMargin   = 40.0
	MinScale         = 0.4
	MaxScale         = 1.0
)

// ScaleForWidth fits the base diagram width into a viewport, clamped to
// [MinScale, MaxScale].
func ScaleForWidth(width float64) float64 {
	s := (width - ViewportMargin) / BaseContentWidth
	if s > MaxScale {
		s = MaxScale
	}
	if s < MinScale {
		s = MinScale
	}
	return s
}

// Surface returns the geometry of the mounted diagram at the given scale,
// or nil while nothing is mounted.
type Surface func(scale float64) trace.Geometry

// Snapshot is an immutable copy of the view state.
type Snapshot struct {
	Selected  string
	Milestone model.Milestone
	Scale     float64
	Result    trace.Result
	Revision  uint64
}

// MilestoneMode reports whether milestone browsing is active.
func (s Snapshot) MilestoneMode() bool { return s.Milestone.IsValid() }

// Status is the highlight of id: none in milestone mode, otherwise the
// trace status.
func (s Snapshot) Status(id string) trace.Status {
	if s.MilestoneMode() {
		return trace.StatusNone
	}
	return s.Result.Status(id)
}

// MilestoneMatch reports whether n is lit by the active milestone.
func (s Snapshot) MilestoneMatch(n model.Node) bool {
	return s.MilestoneMode() && n.Milestone.Matches(s.Milestone)
}

// State is the single owner of selection, milestone, scale and trace.
type State struct {
	mu        sync.Mutex
	graph     *graph.Graph
	engine    *trace.Engine
	opts      trace.Options
	surface   Surface
	scheduler *trace.Scheduler

	selected  string
	milestone model.Milestone
	scale     float64
	result    trace.Result
	revision  uint64

	listeners []func(Snapshot)
}

// New creates a State over g. A nil scheduler gets a manual one, so
// recomputation only happens through Flush or Recompute.
func New(g *graph.Graph, opts trace.Options, sched *trace.Scheduler) *State {
	if sched == nil {
		sched = trace.NewScheduler(nil)
	}
	return &State{
		graph:     g,
		engine:    trace.NewEngine(g, opts),
		opts:      opts,
		scheduler: sched,
		scale:     MaxScale,
		result:    trace.Result{Ancestors: trace.Set{}, Descendants: trace.Set{}},
	}
}

// Graph returns the graph being traced.
func (s *State) Graph() *graph.Graph {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.graph
}

// Options returns the trace presentation constants.
func (s *State) Options() trace.Options { return s.opts }

// OnChange registers fn to run after every result replacement.
func (s *State) OnChange(fn func(Snapshot)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.listeners = append(s.listeners, fn)
}

// Snapshot returns the current state.
func (s *State) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshotLocked()
}

func (s *State) snapshotLocked() Snapshot {
	return Snapshot{
		Selected:  s.selected,
		Milestone: s.milestone,
		Scale:     s.scale,
		Result:    s.result,
		Revision:  s.revision,
	}
}

// Mount installs the rendering surface. Passing nil unmounts it.
func (s *State) Mount(surface Surface) {
	s.mu.Lock()
	s.surface = surface
	s.mu.Unlock()
	s.Invalidate()
}

// SetGraph swaps in a reloaded graph. A selection that no longer exists
// is cleared.
func (s *State) SetGraph(g *graph.Graph) {
	s.mu.Lock()
	s.graph = g
	s.engine = trace.NewEngine(g, s.opts)
	if s.selected != "" && !g.Has(s.selected) {
		s.selected = ""
	}
	s.mu.Unlock()
	s.Invalidate()
}

// Select makes id the traced node and leaves milestone mode.
func (s *State) Select(id string) {
	s.mu.Lock()
	s.milestone = model.MilestoneNone
	s.selected = id
	s.mu.Unlock()
	s.Invalidate()
}

// ClearSelection drops the selection; the next trace is empty.
func (s *State) ClearSelection() {
	s.Select("")
}

// ToggleMilestone enters milestone mode for m, or leaves it when m is
// already active. Entering clears the selection and the current trace at
// once, before the deferred recomputation runs.
func (s *State) ToggleMilestone(m model.Milestone) {
	s.mu.Lock()
	if s.milestone == m || !m.IsValid() {
		s.milestone = model.MilestoneNone
		s.mu.Unlock()
		s.Invalidate()
		return
	}
	s.milestone = m
	s.selected = ""
	s.result = trace.Result{Ancestors: trace.Set{}, Descendants: trace.Set{}}
	s.revision++
	snap, listeners := s.snapshotLocked(), s.listenersLocked()
	s.mu.Unlock()

	notify(listeners, snap)
	s.Invalidate()
}

// SetScale sets the visual scale; non-positive values are ignored.
func (s *State) SetScale(scale float64) {
	if scale <= 0 {
		return
	}
	s.mu.Lock()
	changed := s.scale != scale
	s.scale = scale
	s.mu.Unlock()
	if changed {
		s.Invalidate()
	}
}

// SetViewportWidth derives the scale from a viewport width.
func (s *State) SetViewportWidth(width float64) {
	s.SetScale(ScaleForWidth(width))
}

// Invalidate schedules a recomputation for the next frame, replacing any
// pending one.
func (s *State) Invalidate() {
	s.scheduler.Trigger(s.Recompute)
}

// Flush runs a pending recomputation now. Tests use it in place of frames.
func (s *State) Flush() bool {
	return s.scheduler.Flush()
}

// Recompute traces synchronously and replaces the result.
func (s *State) Recompute() {
	s.mu.Lock()
	in := trace.Input{
		Selected:      s.selected,
		MilestoneMode: s.milestone.IsValid(),
		Scale:         s.scale,
	}
	if s.surface != nil {
		in.Geometry = s.surface(s.scale)
	}
	engine := s.engine
	s.mu.Unlock()

	result := engine.Trace(in)

	s.mu.Lock()
	// A trigger that landed while tracing changed the inputs; its own
	// recomputation will publish the fresh result.
	if s.selected != in.Selected || s.milestone.IsValid() != in.MilestoneMode || s.scale != in.Scale {
		s.mu.Unlock()
		return
	}
	s.result = result
	s.revision++
	snap, listeners := s.snapshotLocked(), s.listenersLocked()
	s.mu.Unlock()

	notify(listeners, snap)
}

func (s *State) listenersLocked() []func(Snapshot) {
	out := make([]func(Snapshot), len(s.listeners))
	copy(out, s.listeners)
	return out
}

func notify(listeners []func(Snapshot), snap Snapshot) {
	for _, fn := range listeners {
		fn(snap)
	}
}
