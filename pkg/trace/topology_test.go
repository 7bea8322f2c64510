package trace_test

import (
	"testing"

	"github.com/vanderheijden86/archtrace/pkg/graph"
	"github.com/vanderheijden86/archtrace/pkg/layout"
	"github.com/vanderheijden86/archtrace/pkg/model"
	"github.com/vanderheijden86/archtrace/pkg/testutil"
	"github.com/vanderheijden86/archtrace/pkg/trace"
)

// traceArch traces selected over the default diagram layout of arch.
func traceArch(arch model.Architecture, selected string) trace.Result {
	lay := layout.Compute(arch, layout.DefaultConfig(), nil)
	return trace.NewEngine(graph.New(arch), trace.DefaultOptions()).Trace(trace.Input{
		Selected: selected,
		Scale:    1,
		Geometry: lay.Geometry(1, trace.Point{}),
	})
}

func TestTopology_Chain(t *testing.T) {
	r := traceArch(testutil.QuickChain(6), "n2")

	testutil.AssertTraced(t, r, []string{"n0", "n1"}, []string{"n3", "n4", "n5"})
	testutil.AssertConnectorCount(t, r, 2, 3)
}

func TestTopology_Star(t *testing.T) {
	r := traceArch(testutil.QuickStar(5), "hub")

	testutil.AssertTraced(t, r, []string{"spoke1", "spoke2", "spoke3", "spoke4", "spoke5"}, nil)
	testutil.AssertConnectorCount(t, r, 5, 0)
}

func TestTopology_ReverseStarSpoke(t *testing.T) {
	gen := testutil.NewDefault()
	r := traceArch(gen.ToArchitecture(gen.ReverseStar(5)), "spoke3")

	// Siblings are not related through the shared hub.
	testutil.AssertTraced(t, r, []string{"hub"}, nil)
	testutil.AssertConnectorCount(t, r, 1, 0)
}

func TestTopology_DiamondFromTop(t *testing.T) {
	r := traceArch(testutil.QuickDiamond(3), "top")

	testutil.AssertTraced(t, r, nil, []string{"mid1", "mid2", "mid3", "bottom"})
	testutil.AssertConnectorCount(t, r, 0, 6)
}

func TestTopology_CycleEmitsEachEdgeOnce(t *testing.T) {
	r := traceArch(testutil.QuickCycle(4), "n0")

	testutil.AssertTraced(t, r, []string{"n1", "n2", "n3"}, []string{"n1", "n2", "n3"})
	// The upstream walk closes the loop, so the downstream walk finds
	// every edge already emitted.
	testutil.AssertConnectorCount(t, r, 4, 0)
}

func TestTopology_Tree(t *testing.T) {
	r := traceArch(testutil.QuickTree(2, 2), "n0")

	testutil.AssertTraced(t, r, nil, []string{"n1", "n2", "n3", "n4", "n5", "n6"})
	testutil.AssertConnectorCount(t, r, 0, 6)
}

func TestTopology_LadderRung(t *testing.T) {
	gen := testutil.NewDefault()
	r := traceArch(gen.ToArchitecture(gen.Ladder(3)), "B1")

	// B1 is fed by B0 and A1; A1 by A0, and B0 by A0.
	testutil.AssertTraced(t, r, []string{"A0", "A1", "B0"}, []string{"B2"})
	testutil.AssertConnectorCount(t, r, 4, 1)
}

func TestTopology_RandomDAGConnectorsResolve(t *testing.T) {
	arch := testutil.QuickRandom(40, 0.15)
	for _, n := range arch.Nodes() {
		r := traceArch(arch, n.ID)
		for _, c := range r.Connectors {
			if c.From == n.ID && c.Direction != trace.Downstream {
				t.Errorf("%s: edge %s leaves the selection but is not downstream", n.ID, c.ID)
			}
			if c.ID != trace.EdgeID(c.From, c.To) {
				t.Errorf("%s: connector id %s does not match %s -> %s", n.ID, c.ID, c.From, c.To)
			}
		}
	}
}
