package export

import (
	"bytes"
	"strings"
	"testing"

	"github.com/vanderheijden86/archtrace/pkg/model"
)

func renderMermaidString(t *testing.T, opts DiagramOptions) string {
	t.Helper()
	var buf bytes.Buffer
	if err := WriteDiagram(&buf, "mermaid", opts); err != nil {
		t.Fatalf("WriteDiagram: %v", err)
	}
	return buf.String()
}

func TestMermaid_TracedEdgesAreBold(t *testing.T) {
	opts := DiagramOptions{Arch: airport(t), Selected: "aodb"}
	doc := renderMermaidString(t, opts)

	if !strings.Contains(doc, "flowchart LR\n") {
		t.Fatalf("Expected a flowchart header, got:\n%s", doc)
	}
	want := len(buildDiagram(opts).result.Connectors)
	if want == 0 {
		t.Fatal("Expected aodb to have connectors")
	}
	if got := strings.Count(doc, " ==> "); got != want {
		t.Errorf("Expected %d traced edges, got %d", want, got)
	}
	if got := strings.Count(doc, "linkStyle "); got != want {
		t.Errorf("Expected %d link styles, got %d", want, got)
	}
	if !strings.Contains(doc, "class n_aodb selected\n") {
		t.Error("Expected the selection to carry the selected class")
	}
}

func TestMermaid_NoSelectionDrawsPlainEdges(t *testing.T) {
	doc := renderMermaidString(t, DiagramOptions{Arch: airport(t)})

	if strings.Contains(doc, "==>") || strings.Contains(doc, "linkStyle") {
		t.Error("Expected no traced edges without a selection")
	}
	if !strings.Contains(doc, " --> ") {
		t.Error("Expected plain edges")
	}
	if strings.Count(doc, "subgraph ") < 4 {
		t.Error("Expected a subgraph per layer")
	}
}

func TestMermaid_MilestoneClasses(t *testing.T) {
	doc := renderMermaidString(t, DiagramOptions{
		Arch:      airport(t),
		Selected:  "aodb",
		Milestone: model.MilestoneV1,
	})

	if strings.Contains(doc, " selected\n") || strings.Contains(doc, "==>") {
		t.Error("Expected milestone mode to suppress the trace")
	}
	if !strings.Contains(doc, " match\n") || !strings.Contains(doc, " dim\n") {
		t.Error("Expected both match and dim classes")
	}
}

func TestMermaid_KeepFilterDropsEdges(t *testing.T) {
	doc := renderMermaidString(t, DiagramOptions{
		Arch: airport(t),
		Keep: func(n model.Node) bool { return n.ID != "aodb" },
	})
	if strings.Contains(doc, "n_aodb") {
		t.Error("Expected hidden card to be absent with its edges")
	}
}

func TestMermaidIDs(t *testing.T) {
	ids := newMermaidIDs()

	if got := ids.get("end"); got != "n_end" {
		t.Errorf("get(end) = %q", got)
	}
	a := ids.get("a-b")
	b := ids.get("a.b")
	if a == b {
		t.Errorf("Expected distinct ids, both %q", a)
	}
	if ids.get("a-b") != a {
		t.Error("Expected stable ids")
	}
	if got := ids.get("值机"); got != "n___" {
		t.Errorf("Expected non-ASCII replaced, got %q", got)
	}
}

func TestMermaidText(t *testing.T) {
	if got := mermaidText("say \"hi\" <b>\nnow", 40); got != "say 'hi' &lt;b&gt; now" {
		t.Errorf("mermaidText = %q", got)
	}
	if got := mermaidText("   ", 40); got != "" {
		t.Errorf("Expected blank to trim to empty, got %q", got)
	}
}
