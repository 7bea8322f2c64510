package export

import (
	"crypto/sha256"
	"encoding/hex"
	"io"
	"time"

	json "github.com/goccy/go-json"

	"github.com/vanderheijden86/archtrace/pkg/graph"
	"github.com/vanderheijden86/archtrace/pkg/model"
	"github.com/vanderheijden86/archtrace/pkg/trace"
)

// TraceNode is a node reference in robot output.
type TraceNode struct {
	ID        string           `json:"id"`
	Name      string           `json:"name,omitempty"`
	Type      model.SystemType `json:"type,omitempty"`
	Milestone model.Milestone  `json:"milestone,omitempty"`
	Known     bool             `json:"known"`
}

// TraceReport is the machine-readable form of one trace.
type TraceReport struct {
	GeneratedAt string            `json:"generated_at"`
	DataHash    string            `json:"data_hash"`
	Selected    *TraceNode        `json:"selected,omitempty"`
	Milestone   string            `json:"milestone,omitempty"`
	Ancestors   []TraceNode       `json:"ancestors"`
	Descendants []TraceNode       `json:"descendants"`
	Connectors  []trace.Connector `json:"connectors"`
	Matching    []TraceNode       `json:"milestone_matches,omitempty"`
	Dangling    []string          `json:"dangling_targets,omitempty"`
}

// BuildTraceReport assembles the report for result over g. In milestone
// mode the trace lists are empty and Matching lists the lit systems.
func BuildTraceReport(result trace.Result, g *graph.Graph, milestone model.Milestone) TraceReport {
	ref := func(id string) TraceNode {
		n, ok := g.Node(id)
		if !ok {
			return TraceNode{ID: id}
		}
		return TraceNode{ID: id, Name: n.Name, Type: n.Type, Milestone: n.Milestone, Known: true}
	}

	r := TraceReport{
		GeneratedAt: time.Now().UTC().Format(time.RFC3339),
		DataHash:    DataHash(g),
		Ancestors:   []TraceNode{},
		Descendants: []TraceNode{},
		Connectors:  result.Connectors,
		Dangling:    g.DanglingTargets(),
	}
	if r.Connectors == nil {
		r.Connectors = []trace.Connector{}
	}
	if result.Selected != "" {
		sel := ref(result.Selected)
		r.Selected = &sel
	}
	for _, id := range result.Ancestors.Sorted() {
		r.Ancestors = append(r.Ancestors, ref(id))
	}
	for _, id := range result.Descendants.Sorted() {
		r.Descendants = append(r.Descendants, ref(id))
	}
	if milestone.IsValid() {
		r.Milestone = milestone.String()
		for _, n := range g.AllNodes() {
			if n.Milestone.Matches(milestone) {
				r.Matching = append(r.Matching, ref(n.ID))
			}
		}
	}
	return r
}

// WriteTraceJSON writes the report as indented JSON.
func WriteTraceJSON(w io.Writer, report TraceReport) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(report)
}

// DataHash fingerprints the graph structure (ids and targets in
// declaration order) so scripted consumers can detect data changes.
func DataHash(g *graph.Graph) string {
	h := sha256.New()
	for _, n := range g.AllNodes() {
		io.WriteString(h, n.ID)
		h.Write([]byte{0})
		for _, t := range n.Targets {
			io.WriteString(h, t)
			h.Write([]byte{1})
		}
		h.Write([]byte{'\n'})
	}
	return hex.EncodeToString(h.Sum(nil))[:16]
}
