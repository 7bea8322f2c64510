// Package testutil provides architecture fixtures with known data-flow
// topologies. All generators produce deterministic output for reproducible
// tests.
package testutil

import (
	"fmt"
	"math/rand"

	"github.com/vanderheijden86/archtrace/pkg/model"
)

// GraphFixture is an abstract data-flow graph.
type GraphFixture struct {
	Description string     `json:"description"`
	Nodes       []string   `json:"nodes"`
	Edges       [][2]int   `json:"edges"` // [from_idx, to_idx]: from sends data to to
	Properties  Properties `json:"properties,omitempty"`
}

// Properties holds optional metadata about the fixture.
type Properties struct {
	HasCycles     bool `json:"has_cycles,omitempty"`
	IsConnected   bool `json:"is_connected,omitempty"`
	ExpectedDepth int  `json:"expected_depth,omitempty"`
}

// GeneratorConfig controls how fixtures become architectures.
type GeneratorConfig struct {
	Seed         int64              // Random seed for determinism (0 = use current time)
	Title        string             // Architecture title (default: "Fixture")
	Layers       int                // Layers to spread nodes over, 1-4 (default: 4)
	TypeMix      []model.SystemType // Type distribution (nil = all EXISTING)
	MilestoneMix []model.Milestone  // Milestone distribution (nil = all 1.0)
	Direction    model.Direction    // Group grid (default: col)
}

// DefaultConfig returns a config suitable for most tests.
func DefaultConfig() GeneratorConfig {
	return GeneratorConfig{
		Seed:         42, // Deterministic
		Title:        "Fixture",
		Layers:       4,
		TypeMix:      []model.SystemType{model.TypeExisting},
		MilestoneMix: []model.Milestone{model.MilestoneV1},
		Direction:    model.DirectionCol,
	}
}

// Generator creates fixtures with various topologies.
type Generator struct {
	cfg GeneratorConfig
	rng *rand.Rand
}

// New creates a Generator with the given config.
func New(cfg GeneratorConfig) *Generator {
	seed := cfg.Seed
	if seed == 0 {
		seed = rand.Int63()
	}
	if cfg.Title == "" {
		cfg.Title = "Fixture"
	}
	if cfg.Layers < 1 || cfg.Layers > len(layerOrder) {
		cfg.Layers = len(layerOrder)
	}
	if len(cfg.TypeMix) == 0 {
		cfg.TypeMix = []model.SystemType{model.TypeExisting}
	}
	if len(cfg.MilestoneMix) == 0 {
		cfg.MilestoneMix = []model.Milestone{model.MilestoneV1}
	}
	if cfg.Direction == "" {
		cfg.Direction = model.DirectionCol
	}
	return &Generator{
		cfg: cfg,
		rng: rand.New(rand.NewSource(seed)),
	}
}

// NewDefault creates a Generator with default config.
func NewDefault() *Generator {
	return New(DefaultConfig())
}

// ============================================================================
// Graph Topology Generators
// ============================================================================

// Chain creates a linear flow: n0 -> n1 -> ... -> n{size-1}.
func (g *Generator) Chain(size int) GraphFixture {
	nodes := make([]string, size)
	edges := make([][2]int, 0, max(size-1, 0))

	for i := 0; i < size; i++ {
		nodes[i] = fmt.Sprintf("n%d", i)
		if i > 0 {
			edges = append(edges, [2]int{i - 1, i})
		}
	}

	return GraphFixture{
		Description: fmt.Sprintf("Linear chain of %d nodes: n0 -> n1 -> ... -> n%d", size, size-1),
		Nodes:       nodes,
		Edges:       edges,
		Properties: Properties{
			IsConnected:   true,
			ExpectedDepth: size - 1,
		},
	}
}

// Star creates a hub fed by every spoke (spoke -> hub).
func (g *Generator) Star(spokes int) GraphFixture {
	size := spokes + 1
	nodes := make([]string, size)
	edges := make([][2]int, spokes)

	nodes[0] = "hub"
	for i := 1; i < size; i++ {
		nodes[i] = fmt.Sprintf("spoke%d", i)
		edges[i-1] = [2]int{i, 0}
	}

	return GraphFixture{
		Description: fmt.Sprintf("Star with %d spokes feeding the hub", spokes),
		Nodes:       nodes,
		Edges:       edges,
		Properties: Properties{
			IsConnected:   true,
			ExpectedDepth: 1,
		},
	}
}

// ReverseStar creates a hub broadcasting to every spoke (hub -> spoke).
func (g *Generator) ReverseStar(spokes int) GraphFixture {
	size := spokes + 1
	nodes := make([]string, size)
	edges := make([][2]int, spokes)

	nodes[0] = "hub"
	for i := 1; i < size; i++ {
		nodes[i] = fmt.Sprintf("spoke%d", i)
		edges[i-1] = [2]int{0, i}
	}

	return GraphFixture{
		Description: fmt.Sprintf("Hub broadcasting to %d spokes", spokes),
		Nodes:       nodes,
		Edges:       edges,
		Properties: Properties{
			IsConnected:   true,
			ExpectedDepth: 1,
		},
	}
}

// Diamond creates top -> mid1..midN -> bottom.
func (g *Generator) Diamond(width int) GraphFixture {
	if width < 1 {
		width = 1
	}

	size := width + 2
	nodes := make([]string, size)
	edges := make([][2]int, 0, width*2)

	nodes[0] = "top"
	nodes[size-1] = "bottom"

	for i := 1; i <= width; i++ {
		nodes[i] = fmt.Sprintf("mid%d", i)
		edges = append(edges, [2]int{0, i})
		edges = append(edges, [2]int{i, size - 1})
	}

	return GraphFixture{
		Description: fmt.Sprintf("Diamond with %d middle nodes: top -> mid1..mid%d -> bottom", width, width),
		Nodes:       nodes,
		Edges:       edges,
		Properties: Properties{
			IsConnected:   true,
			ExpectedDepth: 2,
		},
	}
}

// Cycle creates n0 -> n1 -> ... -> n{size-1} -> n0.
func (g *Generator) Cycle(size int) GraphFixture {
	nodes := make([]string, size)
	edges := make([][2]int, size)

	for i := 0; i < size; i++ {
		nodes[i] = fmt.Sprintf("n%d", i)
		edges[i] = [2]int{i, (i + 1) % size}
	}

	return GraphFixture{
		Description: fmt.Sprintf("Cycle of %d nodes: n0 -> n1 -> ... -> n%d -> n0", size, size-1),
		Nodes:       nodes,
		Edges:       edges,
		Properties: Properties{
			HasCycles:   true,
			IsConnected: true,
		},
	}
}

// SelfLoop creates a single node targeting itself.
func (g *Generator) SelfLoop() GraphFixture {
	return GraphFixture{
		Description: "Single node with self-loop",
		Nodes:       []string{"n0"},
		Edges:       [][2]int{{0, 0}},
		Properties: Properties{
			HasCycles:   true,
			IsConnected: true,
		},
	}
}

// Tree creates a fan-out tree with the given depth and branching factor.
func (g *Generator) Tree(depth, breadth int) GraphFixture {
	if depth < 1 {
		depth = 1
	}
	if breadth < 1 {
		breadth = 1
	}

	nodes := []string{"n0"}
	var edges [][2]int
	currentLevel := []int{0}

	for d := 0; d < depth; d++ {
		var nextLevel []int
		for _, parent := range currentLevel {
			for b := 0; b < breadth; b++ {
				child := len(nodes)
				nodes = append(nodes, fmt.Sprintf("n%d", child))
				edges = append(edges, [2]int{parent, child})
				nextLevel = append(nextLevel, child)
			}
		}
		currentLevel = nextLevel
	}

	return GraphFixture{
		Description: fmt.Sprintf("Tree with depth=%d, breadth=%d (%d nodes)", depth, breadth, len(nodes)),
		Nodes:       nodes,
		Edges:       edges,
		Properties: Properties{
			IsConnected:   true,
			ExpectedDepth: depth,
		},
	}
}

// Disconnected creates isolated chains of componentSize nodes.
func (g *Generator) Disconnected(components, componentSize int) GraphFixture {
	var nodes []string
	var edges [][2]int

	for c := 0; c < components; c++ {
		for i := 0; i < componentSize; i++ {
			idx := len(nodes)
			nodes = append(nodes, fmt.Sprintf("c%d_n%d", c, i))
			if i > 0 {
				edges = append(edges, [2]int{idx - 1, idx})
			}
		}
	}

	return GraphFixture{
		Description: fmt.Sprintf("%d disconnected components, each a chain of %d nodes", components, componentSize),
		Nodes:       nodes,
		Edges:       edges,
		Properties: Properties{
			ExpectedDepth: componentSize - 1,
		},
	}
}

// Complete creates a dense DAG where every node feeds every later node.
func (g *Generator) Complete(size int) GraphFixture {
	nodes := make([]string, size)
	edges := make([][2]int, 0, size*(size-1)/2)

	for i := 0; i < size; i++ {
		nodes[i] = fmt.Sprintf("n%d", i)
		for j := i + 1; j < size; j++ {
			edges = append(edges, [2]int{i, j})
		}
	}

	return GraphFixture{
		Description: fmt.Sprintf("Complete DAG with %d nodes (%d edges)", size, len(edges)),
		Nodes:       nodes,
		Edges:       edges,
		Properties: Properties{
			IsConnected:   true,
			ExpectedDepth: size - 1,
		},
	}
}

// RandomDAG creates a random acyclic flow; density is the probability of
// each forward edge.
func (g *Generator) RandomDAG(size int, density float64) GraphFixture {
	density = min(max(density, 0), 1)

	nodes := make([]string, size)
	var edges [][2]int
	for i := 0; i < size; i++ {
		nodes[i] = fmt.Sprintf("n%d", i)
	}
	// Forward edges only, so the result stays acyclic
	for i := 0; i < size; i++ {
		for j := i + 1; j < size; j++ {
			if g.rng.Float64() < density {
				edges = append(edges, [2]int{i, j})
			}
		}
	}

	return GraphFixture{
		Description: fmt.Sprintf("Random DAG with %d nodes, density=%.2f (%d edges)", size, density, len(edges)),
		Nodes:       nodes,
		Edges:       edges,
	}
}

// Ladder creates two parallel chains A and B with a rung Ai -> Bi at each
// level.
func (g *Generator) Ladder(length int) GraphFixture {
	if length < 1 {
		length = 1
	}

	nodes := make([]string, length*2)
	var edges [][2]int

	for i := 0; i < length; i++ {
		nodes[i] = fmt.Sprintf("A%d", i)
		nodes[length+i] = fmt.Sprintf("B%d", i)

		if i > 0 {
			edges = append(edges, [2]int{i - 1, i})
			edges = append(edges, [2]int{length + i - 1, length + i})
		}
		edges = append(edges, [2]int{i, length + i})
	}

	return GraphFixture{
		Description: fmt.Sprintf("Ladder with %d rungs: two parallel chains A0..A%d and B0..B%d", length, length-1, length-1),
		Nodes:       nodes,
		Edges:       edges,
		Properties: Properties{
			IsConnected:   true,
			ExpectedDepth: length,
		},
	}
}

// ============================================================================
// Architecture Generators
// ============================================================================

var layerOrder = []model.LayerType{
	model.LayerSource,
	model.LayerIntegration,
	model.LayerIntelligence,
	model.LayerApplication,
}

var groupColors = []string{"slate", "blue", "indigo", "green"}

// ToNodes converts a fixture to nodes in fixture order. Node ids are the
// fixture names; an edge from i to j makes j one of i's targets.
func (g *Generator) ToNodes(gf GraphFixture) []model.Node {
	targets := make(map[int][]string)
	for _, e := range gf.Edges {
		targets[e[0]] = append(targets[e[0]], gf.Nodes[e[1]])
	}

	nodes := make([]model.Node, len(gf.Nodes))
	for i, name := range gf.Nodes {
		nodes[i] = model.Node{
			ID:        name,
			Name:      "System " + name,
			Type:      g.pickType(),
			Milestone: g.pickMilestone(),
			Targets:   targets[i],
		}
	}
	return nodes
}

// ToArchitecture spreads the fixture's nodes over the configured layers in
// order, one group per layer.
func (g *Generator) ToArchitecture(gf GraphFixture) model.Architecture {
	nodes := g.ToNodes(gf)
	arch := model.Architecture{Title: g.cfg.Title}

	for l := 0; l < g.cfg.Layers; l++ {
		lo := l * len(nodes) / g.cfg.Layers
		hi := (l + 1) * len(nodes) / g.cfg.Layers
		arch.Layers = append(arch.Layers, model.Layer{
			ID:    layerOrder[l],
			Title: fmt.Sprintf("%d. %s", l+1, layerOrder[l]),
			Groups: []model.Group{{
				Color:     groupColors[l],
				Direction: g.cfg.Direction,
				Systems:   nodes[lo:hi],
			}},
		})
	}
	return arch
}

func (g *Generator) pickType() model.SystemType {
	return g.cfg.TypeMix[g.rng.Intn(len(g.cfg.TypeMix))]
}

func (g *Generator) pickMilestone() model.Milestone {
	return g.cfg.MilestoneMix[g.rng.Intn(len(g.cfg.MilestoneMix))]
}

// ============================================================================
// Convenience Functions
// ============================================================================

// QuickChain creates a chain architecture with default settings.
func QuickChain(size int) model.Architecture {
	gen := NewDefault()
	return gen.ToArchitecture(gen.Chain(size))
}

// QuickStar creates a star architecture with default settings.
func QuickStar(spokes int) model.Architecture {
	gen := NewDefault()
	return gen.ToArchitecture(gen.Star(spokes))
}

// QuickDiamond creates a diamond architecture with default settings.
func QuickDiamond(width int) model.Architecture {
	gen := NewDefault()
	return gen.ToArchitecture(gen.Diamond(width))
}

// QuickCycle creates a cycle architecture with default settings.
func QuickCycle(size int) model.Architecture {
	gen := NewDefault()
	return gen.ToArchitecture(gen.Cycle(size))
}

// QuickTree creates a tree architecture with default settings.
func QuickTree(depth, breadth int) model.Architecture {
	gen := NewDefault()
	return gen.ToArchitecture(gen.Tree(depth, breadth))
}

// QuickRandom creates a random DAG architecture with default settings.
func QuickRandom(size int, density float64) model.Architecture {
	gen := NewDefault()
	return gen.ToArchitecture(gen.RandomDAG(size, density))
}
