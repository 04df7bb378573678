// Package diagrams renders the node/edge graphs embedded in case
// content as mermaid source.
package diagrams

import (
	"fmt"
	"strings"

	"github.com/Afuraka666/Ungana-Medical-sub000/internal/casedoc"
	"github.com/Afuraka666/Ungana-Medical-sub000/internal/knowledge"
)

// Mermaid renders an embedded diagram graph as a mermaid graph TD.
func Mermaid(g *casedoc.DiagramGraph) string {
	if g == nil {
		return ""
	}
	var b strings.Builder
	b.WriteString("graph TD\n")

	known := make(map[string]bool, len(g.Nodes))
	for _, n := range g.Nodes {
		if n.ID == "" {
			continue
		}
		known[n.ID] = true
		b.WriteString(fmt.Sprintf("    %s[\"%s\"]\n", sanitizeID(n.ID), escapeMermaid(n.Label)))
	}

	for _, e := range g.Edges {
		if !known[e.From] || !known[e.To] {
			continue
		}
		if e.Label != "" {
			b.WriteString(fmt.Sprintf("    %s -->|%s| %s\n", sanitizeID(e.From), escapeMermaid(e.Label), sanitizeID(e.To)))
		} else {
			b.WriteString(fmt.Sprintf("    %s --> %s\n", sanitizeID(e.From), sanitizeID(e.To)))
		}
	}

	return b.String()
}

// KnowledgeMap renders a knowledge graph as a mermaid graph LR, used
// by the case export.
func KnowledgeMap(g *knowledge.Graph) string {
	if g == nil {
		return ""
	}
	var b strings.Builder
	b.WriteString("graph LR\n")

	for _, n := range g.Nodes() {
		b.WriteString(fmt.Sprintf("    %s[\"%s\"]\n", sanitizeID(n.ID), escapeMermaid(n.Label)))
	}
	for _, l := range g.Links() {
		if l.Label != "" {
			b.WriteString(fmt.Sprintf("    %s -->|%s| %s\n", sanitizeID(l.Source), escapeMermaid(l.Label), sanitizeID(l.Target)))
		} else {
			b.WriteString(fmt.Sprintf("    %s --> %s\n", sanitizeID(l.Source), sanitizeID(l.Target)))
		}
	}
	return b.String()
}

// sanitizeID converts a string into a safe mermaid node ID.
func sanitizeID(s string) string {
	replacer := strings.NewReplacer(
		"/", "_",
		"\\", "_",
		".", "_",
		"-", "_",
		" ", "_",
		"(", "_",
		")", "_",
		"[", "_",
		"]", "_",
		"{", "_",
		"}", "_",
		":", "_",
	)
	return replacer.Replace(s)
}

// escapeMermaid escapes characters that have special meaning in mermaid labels.
func escapeMermaid(s string) string {
	s = strings.ReplaceAll(s, "\"", "#quot;")
	s = strings.ReplaceAll(s, "(", "#lpar;")
	s = strings.ReplaceAll(s, ")", "#rpar;")
	s = strings.ReplaceAll(s, "[", "#lsqb;")
	s = strings.ReplaceAll(s, "]", "#rsqb;")
	s = strings.ReplaceAll(s, "{", "#lbrace;")
	s = strings.ReplaceAll(s, "}", "#rbrace;")
	s = strings.ReplaceAll(s, "<", "#lt;")
	s = strings.ReplaceAll(s, ">", "#gt;")
	return s
}
