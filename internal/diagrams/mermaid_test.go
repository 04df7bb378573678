package diagrams

import (
	"strings"
	"testing"

	"github.com/Afuraka666/Ungana-Medical-sub000/internal/casedoc"
	"github.com/Afuraka666/Ungana-Medical-sub000/internal/knowledge"
)

func TestMermaidRendersNodesAndEdges(t *testing.T) {
	g := &casedoc.DiagramGraph{
		Nodes: []casedoc.DiagramNode{
			{ID: "assess", Label: "Assess (ABC)"},
			{ID: "treat", Label: "Treat"},
		},
		Edges: []casedoc.DiagramEdge{
			{From: "assess", To: "treat", Label: "then"},
		},
	}

	out := Mermaid(g)
	if !strings.HasPrefix(out, "graph TD\n") {
		t.Errorf("expected graph TD header, got %q", out)
	}
	if !strings.Contains(out, `assess["Assess #lpar;ABC#rpar;"]`) {
		t.Errorf("labels should be escaped: %q", out)
	}
	if !strings.Contains(out, "assess -->|then| treat") {
		t.Errorf("missing labelled edge: %q", out)
	}
}

func TestMermaidSkipsDanglingEdges(t *testing.T) {
	g := &casedoc.DiagramGraph{
		Nodes: []casedoc.DiagramNode{{ID: "a", Label: "A"}},
		Edges: []casedoc.DiagramEdge{{From: "a", To: "missing"}},
	}
	if strings.Contains(Mermaid(g), "missing") {
		t.Error("edges to unknown nodes must not render")
	}
}

func TestMermaidNilGraph(t *testing.T) {
	if out := Mermaid(nil); out != "" {
		t.Errorf("nil graph should render empty, got %q", out)
	}
}

func TestKnowledgeMapRendering(t *testing.T) {
	g := knowledge.New(
		[]knowledge.Node{{ID: "sepsis", Label: "Sepsis"}, {ID: "lactate", Label: "Lactate"}},
		[]knowledge.Link{{Source: "sepsis", Target: "lactate", Label: "elevates"}},
	)
	out := KnowledgeMap(g)
	if !strings.HasPrefix(out, "graph LR\n") {
		t.Errorf("expected graph LR header, got %q", out)
	}
	if !strings.Contains(out, "sepsis -->|elevates| lactate") {
		t.Errorf("missing link: %q", out)
	}
}
