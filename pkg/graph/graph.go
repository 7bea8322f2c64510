// Package graph provides the read-only, identifier-keyed data-flow graph
// built from an architecture document.
//
// The layer/group nesting of the document is presentation only; the graph
// sees a flat set of nodes whose declared targets are its outgoing edges.
// Lookups never fail: an unknown identifier yields an empty result.
package graph

import (
	"github.com/vanderheijden86/archtrace/pkg/model"
)

// Graph is an immutable directed graph of architecture nodes.
type Graph struct {
	nodes    []model.Node
	index    map[string]int
	incoming map[string][]int // target id -> indices of nodes declaring it
}

// New flattens arch into a Graph. When two nodes share an identifier the
// first declaration wins and later ones are ignored.
func New(arch model.Architecture) *Graph {
	return FromNodes(arch.Nodes())
}

// FromNodes builds a Graph from an already flat node list.
func FromNodes(nodes []model.Node) *Graph {
	g := &Graph{
		nodes:    make([]model.Node, 0, len(nodes)),
		index:    make(map[string]int, len(nodes)),
		incoming: make(map[string][]int),
	}
	for _, n := range nodes {
		if _, dup := g.index[n.ID]; dup {
			continue
		}
		g.index[n.ID] = len(g.nodes)
		g.nodes = append(g.nodes, n)
	}
	for i, n := range g.nodes {
		seen := make(map[string]bool, len(n.Targets))
		for _, t := range n.Targets {
			if seen[t] {
				continue
			}
			seen[t] = true
			g.incoming[t] = append(g.incoming[t], i)
		}
	}
	return g
}

// AllNodes returns every node in declaration order.
func (g *Graph) AllNodes() []model.Node {
	if g == nil {
		return nil
	}
	out := make([]model.Node, len(g.nodes))
	copy(out, g.nodes)
	return out
}

// Len returns the number of nodes.
func (g *Graph) Len() int {
	if g == nil {
		return 0
	}
	return len(g.nodes)
}

// Node looks up a node by identifier.
func (g *Graph) Node(id string) (model.Node, bool) {
	if g == nil {
		return model.Node{}, false
	}
	i, ok := g.index[id]
	if !ok {
		return model.Node{}, false
	}
	return g.nodes[i], true
}

// Has reports whether id names a node.
func (g *Graph) Has(id string) bool {
	_, ok := g.Node(id)
	return ok
}

// IncomingEdges returns the nodes whose target list contains id, in
// declaration order.
func (g *Graph) IncomingEdges(id string) []model.Node {
	if g == nil {
		return nil
	}
	idx := g.incoming[id]
	if len(idx) == 0 {
		return nil
	}
	out := make([]model.Node, 0, len(idx))
	for _, i := range idx {
		out = append(out, g.nodes[i])
	}
	return out
}

// OutgoingTargets returns the declared targets of id, including targets
// that do not resolve to a node.
func (g *Graph) OutgoingTargets(id string) []string {
	n, ok := g.Node(id)
	if !ok || len(n.Targets) == 0 {
		return nil
	}
	out := make([]string, len(n.Targets))
	copy(out, n.Targets)
	return out
}

// DanglingTargets lists "source->target" pairs whose target has no node.
// The engine tolerates them; this is only surfaced for diagnostics.
func (g *Graph) DanglingTargets() []string {
	if g == nil {
		return nil
	}
	var out []string
	for _, n := range g.nodes {
		for _, t := range n.Targets {
			if !g.Has(t) {
				out = append(out, n.ID+"->"+t)
			}
		}
	}
	return out
}

// EdgeCount returns the number of declared edges, dangling ones included.
func (g *Graph) EdgeCount() int {
	if g == nil {
		return 0
	}
	total := 0
	for _, n := range g.nodes {
		total += len(n.Targets)
	}
	return total
}
