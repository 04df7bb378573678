// Package knowledge models the concept map generated alongside a
// case: a node/link graph with a single click-to-explore selection slot.
package knowledge

import (
	"encoding/json"
	"fmt"
	"strings"
)

// Node is one concept on the map. Summaries are pre-baked during
// generation so opening a node never triggers a fetch.
type Node struct {
	ID         string `json:"id"`
	Label      string `json:"label"`
	Discipline string `json:"discipline,omitempty"`
	Summary    string `json:"summary,omitempty"`
}

// Link is a labelled edge between two nodes.
type Link struct {
	Source string `json:"source"`
	Target string `json:"target"`
	Label  string `json:"label,omitempty"`
}

// Selection is the currently-open node, if any.
type Selection struct {
	Node    Node
	Summary string
	Loading bool
}

// Graph is the knowledge map for one generation run. It is replaced
// wholesale on a new run, never merged incrementally.
type Graph struct {
	nodes    []Node
	links    []Link
	byID     map[string]Node
	selected *Selection
}

// New builds a graph from untrusted node and link sets. Links whose
// source or target does not reference a known node id are dropped
// silently; that is data hygiene, not an error.
func New(nodes []Node, links []Link) *Graph {
	byID := make(map[string]Node, len(nodes))
	kept := make([]Node, 0, len(nodes))
	for _, n := range nodes {
		if n.ID == "" {
			continue
		}
		if _, dup := byID[n.ID]; dup {
			continue
		}
		byID[n.ID] = n
		kept = append(kept, n)
	}

	validLinks := make([]Link, 0, len(links))
	for _, l := range links {
		if _, ok := byID[l.Source]; !ok {
			continue
		}
		if _, ok := byID[l.Target]; !ok {
			continue
		}
		validLinks = append(validLinks, l)
	}

	return &Graph{nodes: kept, links: validLinks, byID: byID}
}

// Parse decodes a knowledge-map payload and constructs a graph,
// enforcing the link-endpoint invariant regardless of what the
// upstream generator produced.
func Parse(raw string) (*Graph, error) {
	raw = strings.TrimSpace(raw)
	if strings.HasPrefix(raw, "```") {
		lines := strings.Split(raw, "\n")
		end := len(lines)
		if end > 1 && strings.TrimSpace(lines[end-1]) == "```" {
			end--
		}
		raw = strings.Join(lines[1:end], "\n")
	}

	var payload struct {
		Nodes []Node `json:"nodes"`
		Links []Link `json:"links"`
	}
	if err := json.Unmarshal([]byte(raw), &payload); err != nil {
		return nil, fmt.Errorf("json parse: %w", err)
	}
	if len(payload.Nodes) == 0 {
		return nil, fmt.Errorf("knowledge map has no nodes")
	}
	return New(payload.Nodes, payload.Links), nil
}

// Nodes returns the node set in construction order.
func (g *Graph) Nodes() []Node { return g.nodes }

// Links returns the surviving link set.
func (g *Graph) Links() []Link { return g.links }

// Node looks up a node by id.
func (g *Graph) Node(id string) (Node, bool) {
	n, ok := g.byID[id]
	return n, ok
}

// Select opens a node. Selecting the already-open node closes it
// (toggle); selecting a different node replaces the slot. The node's
// pre-baked summary is available immediately, so the selection is
// never in a loading state.
func (g *Graph) Select(id string) *Selection {
	if g.selected != nil && g.selected.Node.ID == id {
		g.selected = nil
		return nil
	}
	n, ok := g.byID[id]
	if !ok {
		return g.selected
	}
	g.selected = &Selection{Node: n, Summary: n.Summary, Loading: false}
	return g.selected
}

// Clear closes any open node.
func (g *Graph) Clear() { g.selected = nil }

// Selected returns the open selection, or nil.
func (g *Graph) Selected() *Selection { return g.selected }
