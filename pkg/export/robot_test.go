package export

import (
	"bytes"
	"strings"
	"testing"

	json "github.com/goccy/go-json"

	"github.com/vanderheijden86/archtrace/pkg/graph"
	"github.com/vanderheijden86/archtrace/pkg/layout"
	"github.com/vanderheijden86/archtrace/pkg/model"
	"github.com/vanderheijden86/archtrace/pkg/trace"
)

func TestTraceReport_JSON(t *testing.T) {
	arch := airport(t)
	g := graph.New(arch)
	lay := layout.Compute(arch, layout.DefaultConfig(), nil)
	result := trace.NewEngine(g, trace.DefaultOptions()).Trace(trace.Input{
		Selected: "bas",
		Scale:    1,
		Geometry: lay.Geometry(1, trace.Point{}),
	})

	var buf bytes.Buffer
	if err := WriteTraceJSON(&buf, BuildTraceReport(result, g, model.MilestoneNone)); err != nil {
		t.Fatalf("WriteTraceJSON: %v", err)
	}

	var decoded struct {
		DataHash string `json:"data_hash"`
		Selected struct {
			ID   string `json:"id"`
			Name string `json:"name"`
		} `json:"selected"`
		Ancestors   []struct{ ID string } `json:"ancestors"`
		Descendants []struct{ ID string } `json:"descendants"`
		Connectors  []struct {
			ID        string `json:"id"`
			Direction string `json:"direction"`
		} `json:"connectors"`
	}
	if err := json.Unmarshal(buf.Bytes(), &decoded); err != nil {
		t.Fatalf("decode: %v\n%s", err, buf.String())
	}

	if decoded.Selected.ID != "bas" || decoded.Selected.Name != "BAS" {
		t.Errorf("selected = %+v", decoded.Selected)
	}
	// pms, hvac, wcs, fls, scs, evs, water, swms feed bas.
	if len(decoded.Ancestors) != 8 {
		t.Errorf("Expected 8 ancestors, got %d", len(decoded.Ancestors))
	}
	// dw, ems, then acdmp, bis, rms, mcps.
	if len(decoded.Descendants) != 6 {
		t.Errorf("Expected 6 descendants, got %d", len(decoded.Descendants))
	}
	var targets int
	for _, c := range decoded.Connectors {
		if c.Direction == "target" {
			targets++
		}
	}
	if targets != 6 || len(decoded.Connectors) != 14 {
		t.Errorf("connectors: %d total, %d downstream", len(decoded.Connectors), targets)
	}
	if len(decoded.DataHash) != 16 {
		t.Errorf("data hash %q", decoded.DataHash)
	}
}

func TestTraceReport_MilestoneMode(t *testing.T) {
	g := graph.New(airport(t))
	report := BuildTraceReport(trace.Result{}, g, model.MilestoneV1)
	if report.Milestone != "1.0" {
		t.Errorf("milestone = %q", report.Milestone)
	}
	// atc, amhs, pms, hvac, wcs, fls, pa.
	if len(report.Matching) != 7 {
		t.Errorf("Expected 7 matching systems, got %d", len(report.Matching))
	}
	if report.Selected != nil || len(report.Connectors) != 0 {
		t.Error("milestone report should carry no trace")
	}
}

func TestTraceReport_UnknownSelection(t *testing.T) {
	g := graph.FromNodes([]model.Node{{ID: "a", Targets: []string{"ghost"}}})
	report := BuildTraceReport(trace.Result{Selected: "zzz"}, g, model.MilestoneNone)
	if report.Selected == nil || report.Selected.Known {
		t.Errorf("unknown selection should be reported as not known: %+v", report.Selected)
	}
	if len(report.Dangling) != 1 || !strings.Contains(report.Dangling[0], "ghost") {
		t.Errorf("dangling = %v", report.Dangling)
	}
}

func TestDataHashChangesWithEdges(t *testing.T) {
	a := graph.FromNodes([]model.Node{{ID: "a", Targets: []string{"b"}}, {ID: "b"}})
	b := graph.FromNodes([]model.Node{{ID: "a"}, {ID: "b", Targets: []string{"a"}}})
	if DataHash(a) == DataHash(b) {
		t.Error("different edges should hash differently")
	}
	if DataHash(a) != DataHash(graph.FromNodes(a.AllNodes())) {
		t.Error("hash should be deterministic")
	}
}
