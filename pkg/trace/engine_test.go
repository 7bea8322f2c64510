package trace_test

import (
	"fmt"
	"math"
	"testing"

	"github.com/vanderheijden86/archtrace/pkg/graph"
	"github.com/vanderheijden86/archtrace/pkg/model"
	"github.com/vanderheijden86/archtrace/pkg/trace"
)

// gridGeometry places node i of ids at (i*200, 0) with a 40x40 box.
func gridGeometry(ids ...string) trace.GeometryFunc {
	boxes := make(map[string]trace.Rect, len(ids))
	for i, id := range ids {
		boxes[id] = trace.Rect{Left: float64(i * 200), Top: 0, Width: 40, Height: 40}
	}
	return trace.GeometryFunc{
		Lookup: func(id string) (trace.Rect, bool) {
			r, ok := boxes[id]
			return r, ok
		},
	}
}

func nodes(edges map[string][]string, order ...string) *graph.Graph {
	var ns []model.Node
	for _, id := range order {
		ns = append(ns, model.Node{ID: id, Name: id, Targets: edges[id]})
	}
	return graph.FromNodes(ns)
}

func connectorIDs(r trace.Result) map[string]int {
	out := make(map[string]int, len(r.Connectors))
	for _, c := range r.Connectors {
		out[c.ID]++
	}
	return out
}

func assertSet(t *testing.T, name string, got trace.Set, want ...string) {
	t.Helper()
	if len(got) != len(want) {
		t.Fatalf("%s = %v, want %v", name, got.Sorted(), want)
	}
	for _, id := range want {
		if !got.Has(id) {
			t.Fatalf("%s = %v, missing %s", name, got.Sorted(), id)
		}
	}
}

func TestTraceDiamondExample(t *testing.T) {
	g := nodes(map[string][]string{
		"A": {"B"},
		"B": {"C"},
		"D": {"B"},
	}, "A", "B", "C", "D")
	e := trace.NewEngine(g, trace.DefaultOptions())

	r := e.Trace(trace.Input{Selected: "B", Scale: 1, Geometry: gridGeometry("A", "B", "C", "D")})

	assertSet(t, "ancestors", r.Ancestors, "A", "D")
	assertSet(t, "descendants", r.Descendants, "C")

	ids := connectorIDs(r)
	if len(r.Connectors) != 3 {
		t.Fatalf("expected 3 connectors, got %d: %v", len(r.Connectors), ids)
	}
	for _, want := range []string{"A-B", "D-B", "B-C"} {
		if ids[want] != 1 {
			t.Errorf("connector %s emitted %d times, want 1", want, ids[want])
		}
	}

	ab, _ := r.Connector("A-B")
	if ab.Direction != trace.Upstream {
		t.Errorf("A-B direction = %v, want source", ab.Direction)
	}
	bc, _ := r.Connector("B-C")
	if bc.Direction != trace.Downstream {
		t.Errorf("B-C direction = %v, want target", bc.Direction)
	}
}

func TestTraceCycleTerminates(t *testing.T) {
	g := nodes(map[string][]string{
		"X": {"Y"},
		"Y": {"X"},
	}, "X", "Y")
	e := trace.NewEngine(g, trace.DefaultOptions())

	r := e.Trace(trace.Input{Selected: "X", Scale: 1, Geometry: gridGeometry("X", "Y")})

	assertSet(t, "ancestors", r.Ancestors, "Y")
	assertSet(t, "descendants", r.Descendants, "Y")
	ids := connectorIDs(r)
	if len(r.Connectors) != 2 || ids["Y-X"] != 1 || ids["X-Y"] != 1 {
		t.Fatalf("connectors = %v, want exactly Y-X and X-Y once each", ids)
	}
}

func TestTraceLongCycle(t *testing.T) {
	g := nodes(map[string][]string{
		"a": {"b"},
		"b": {"c"},
		"c": {"d"},
		"d": {"a"},
	}, "a", "b", "c", "d")
	e := trace.NewEngine(g, trace.DefaultOptions())

	r := e.Trace(trace.Input{Selected: "b", Scale: 1, Geometry: gridGeometry("a", "b", "c", "d")})
	assertSet(t, "ancestors", r.Ancestors, "a", "c", "d")
	assertSet(t, "descendants", r.Descendants, "a", "c", "d")
	if len(r.Connectors) != 4 {
		t.Errorf("expected each of the 4 cycle edges once, got %v", connectorIDs(r))
	}
	for id, n := range connectorIDs(r) {
		if n != 1 {
			t.Errorf("connector %s emitted %d times", id, n)
		}
	}
}

func TestTraceSharedPredecessorEmitsEachEdgeOnce(t *testing.T) {
	// S feeds both P and Q, which both feed T. S is reached twice when
	// tracing up from T but must be expanded and connected once per edge.
	g := nodes(map[string][]string{
		"S": {"P", "Q"},
		"P": {"T"},
		"Q": {"T"},
	}, "S", "P", "Q", "T")
	e := trace.NewEngine(g, trace.DefaultOptions())

	r := e.Trace(trace.Input{Selected: "T", Scale: 1, Geometry: gridGeometry("S", "P", "Q", "T")})
	assertSet(t, "ancestors", r.Ancestors, "S", "P", "Q")
	assertSet(t, "descendants", r.Descendants)
	ids := connectorIDs(r)
	if len(ids) != 4 {
		t.Fatalf("connectors = %v, want 4 distinct", ids)
	}
	for id, n := range ids {
		if n != 1 {
			t.Errorf("connector %s emitted %d times", id, n)
		}
	}
}

func TestTraceMissingElementDropsConnector(t *testing.T) {
	g := nodes(map[string][]string{
		"A": {"B"},
		"B": {"C"},
	}, "A", "B", "C")
	e := trace.NewEngine(g, trace.DefaultOptions())

	// C is filtered out of view: no box.
	r := e.Trace(trace.Input{Selected: "B", Scale: 1, Geometry: gridGeometry("A", "B")})

	assertSet(t, "ancestors", r.Ancestors, "A")
	assertSet(t, "descendants", r.Descendants, "C")
	for _, c := range r.Connectors {
		if c.From == "C" || c.To == "C" {
			t.Fatalf("connector %s references unmounted node", c.ID)
		}
	}
	if len(r.Connectors) != 1 {
		t.Errorf("expected only A-B, got %v", connectorIDs(r))
	}
}

func TestTraceDanglingTarget(t *testing.T) {
	g := nodes(map[string][]string{
		"A": {"ghost", "B"},
	}, "A", "B")
	e := trace.NewEngine(g, trace.DefaultOptions())

	r := e.Trace(trace.Input{Selected: "A", Scale: 1, Geometry: gridGeometry("A", "B")})
	assertSet(t, "descendants", r.Descendants, "ghost", "B")
	if ids := connectorIDs(r); len(ids) != 1 || ids["A-B"] != 1 {
		t.Errorf("connectors = %v, want only A-B", ids)
	}
}

func TestTraceEmptyCases(t *testing.T) {
	g := nodes(map[string][]string{"A": {"B"}}, "A", "B")
	e := trace.NewEngine(g, trace.DefaultOptions())
	geo := gridGeometry("A", "B")

	tests := []struct {
		name string
		in   trace.Input
	}{
		{"no selection", trace.Input{Scale: 1, Geometry: geo}},
		{"milestone mode", trace.Input{Selected: "A", MilestoneMode: true, Scale: 1, Geometry: geo}},
		{"no geometry", trace.Input{Selected: "A", Scale: 1}},
		{"zero scale", trace.Input{Selected: "A", Geometry: geo}},
		{"unknown selection", trace.Input{Selected: "nope", Scale: 1, Geometry: geo}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := e.Trace(tt.in)
			if !r.Empty() {
				t.Errorf("expected empty result, got %d connectors, %v / %v",
					len(r.Connectors), r.Ancestors.Sorted(), r.Descendants.Sorted())
			}
			if r.Ancestors == nil || r.Descendants == nil {
				t.Error("highlight sets should be non-nil even when empty")
			}
		})
	}
}

func TestTraceConnectorGeometry(t *testing.T) {
	g := nodes(map[string][]string{"A": {"B"}}, "A", "B")
	e := trace.NewEngine(g, trace.Options{EndOffset: 40, CurveOffset: 60})

	// Boxes at screen (0,0) and (100,0), size 20x20, scale 0.5:
	// logical centers are (20,20) and (220,20).
	geo := trace.GeometryFunc{
		Lookup: func(id string) (trace.Rect, bool) {
			switch id {
			case "A":
				return trace.Rect{Left: 0, Top: 0, Width: 20, Height: 20}, true
			case "B":
				return trace.Rect{Left: 100, Top: 0, Width: 20, Height: 20}, true
			}
			return trace.Rect{}, false
		},
	}
	r := e.Trace(trace.Input{Selected: "A", Scale: 0.5, Geometry: geo})
	c, ok := r.Connector("A-B")
	if !ok {
		t.Fatal("A-B missing")
	}
	if !near(c.Start.X, 60) || !near(c.Start.Y, 20) || !near(c.End.X, 180) || !near(c.End.Y, 20) {
		t.Errorf("connector = %+v -> %+v, want (60,20) -> (180,20)", c.Start, c.End)
	}
}

func TestTraceStatus(t *testing.T) {
	g := nodes(map[string][]string{
		"A": {"B"},
		"B": {"C"},
	}, "A", "B", "C")
	e := trace.NewEngine(g, trace.DefaultOptions())
	r := e.Trace(trace.Input{Selected: "B", Scale: 1, Geometry: gridGeometry("A", "B", "C")})

	if r.Status("A") != trace.StatusSource {
		t.Errorf("A status = %v", r.Status("A"))
	}
	if r.Status("C") != trace.StatusTarget {
		t.Errorf("C status = %v", r.Status("C"))
	}
	if r.Status("B") != trace.StatusNone {
		t.Errorf("selected node status = %v, want none", r.Status("B"))
	}
}

func TestTraceLargeChainNoRecursionLimit(t *testing.T) {
	const n = 20000
	edges := make(map[string][]string, n)
	order := make([]string, n)
	for i := 0; i < n; i++ {
		id := fmt.Sprintf("n%d", i)
		order[i] = id
		if i+1 < n {
			edges[id] = []string{fmt.Sprintf("n%d", i+1)}
		}
	}
	g := nodes(edges, order...)
	e := trace.NewEngine(g, trace.DefaultOptions())

	r := e.Trace(trace.Input{Selected: "n0", Scale: 1, Geometry: gridGeometry(order...)})
	if len(r.Descendants) != n-1 {
		t.Errorf("descendants = %d, want %d", len(r.Descendants), n-1)
	}
	if len(r.Connectors) != n-1 {
		t.Errorf("connectors = %d, want %d", len(r.Connectors), n-1)
	}
}

func near(a, b float64) bool {
	return math.Abs(a-b) < 1e-9
}
