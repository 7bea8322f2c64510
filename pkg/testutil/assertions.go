package testutil

import (
	"os"
	"path/filepath"
	"slices"
	"testing"

	"gopkg.in/yaml.v3"

	"github.com/vanderheijden86/archtrace/pkg/model"
	"github.com/vanderheijden86/archtrace/pkg/trace"
)

// AssertNodeCount verifies the expected number of nodes.
func AssertNodeCount(t *testing.T, arch model.Architecture, expected int) {
	t.Helper()
	if got := len(arch.Nodes()); got != expected {
		t.Errorf("expected %d nodes, got %d", expected, got)
	}
}

// AssertNoDuplicateIDs verifies all node IDs are unique.
func AssertNoDuplicateIDs(t *testing.T, nodes []model.Node) {
	t.Helper()
	seen := make(map[string]bool)
	for _, n := range nodes {
		if seen[n.ID] {
			t.Errorf("duplicate node ID: %s", n.ID)
		}
		seen[n.ID] = true
	}
}

// AssertAllValid verifies every node has a known type and milestone.
func AssertAllValid(t *testing.T, nodes []model.Node) {
	t.Helper()
	for i, n := range nodes {
		if !n.Type.IsValid() {
			t.Errorf("node %d (%s) has invalid type %q", i, n.ID, n.Type)
		}
		if !n.Milestone.IsValid() {
			t.Errorf("node %d (%s) has invalid milestone %d", i, n.ID, int(n.Milestone))
		}
	}
}

// AssertTargetExists verifies that fromID declares toID as a target.
func AssertTargetExists(t *testing.T, nodes []model.Node, fromID, toID string) {
	t.Helper()
	for _, n := range nodes {
		if n.ID == fromID {
			if !n.HasTarget(toID) {
				t.Errorf("expected target from %s to %s not found", fromID, toID)
			}
			return
		}
	}
	t.Errorf("node %s not found", fromID)
}

// AssertTraced verifies the exact ancestor and descendant sets of a trace.
func AssertTraced(t *testing.T, result trace.Result, ancestors, descendants []string) {
	t.Helper()
	if got, want := result.Ancestors.Sorted(), sorted(ancestors); !slices.Equal(got, want) {
		t.Errorf("ancestors = %v, want %v", got, want)
	}
	if got, want := result.Descendants.Sorted(), sorted(descendants); !slices.Equal(got, want) {
		t.Errorf("descendants = %v, want %v", got, want)
	}
}

// AssertConnectorCount verifies the number of connectors in each direction.
func AssertConnectorCount(t *testing.T, result trace.Result, upstream, downstream int) {
	t.Helper()
	var up, down int
	for _, c := range result.Connectors {
		if c.Direction == trace.Downstream {
			down++
		} else {
			up++
		}
	}
	if up != upstream || down != downstream {
		t.Errorf("connectors = %d up / %d down, want %d / %d", up, down, upstream, downstream)
	}
}

func sorted(ids []string) []string {
	out := slices.Clone(ids)
	if out == nil {
		out = []string{}
	}
	slices.Sort(out)
	return out
}

// WriteArchitectureFile writes arch as YAML to dir/name and returns the path.
func WriteArchitectureFile(t *testing.T, dir, name string, arch model.Architecture) string {
	t.Helper()

	data, err := yaml.Marshal(arch)
	if err != nil {
		t.Fatalf("failed to marshal architecture: %v", err)
	}
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, data, 0644); err != nil {
		t.Fatalf("failed to write architecture file: %v", err)
	}
	return path
}
