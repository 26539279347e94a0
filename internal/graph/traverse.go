package graph

import (
	"sort"
	"strings"
	"time"
)

// DefaultDepth is how many hops a traversal explores when the caller does
// not say otherwise.
const DefaultDepth = 2

// VisitedNode is a node reached during traversal, annotated with the depth
// at which it was first seen.
type VisitedNode struct {
	Title     string    `json:"title"`
	Category  string    `json:"category"`
	Date      string    `json:"date,omitempty"`
	Priority  string    `json:"priority,omitempty"`
	UpdatedAt time.Time `json:"updated_at"`
	Depth     int       `json:"depth"`
}

// Result is the outcome of a bounded traversal. When the start reference
// does not resolve, Found is false and Nodes and Edges are empty rather
// than nil, so the result always encodes to the same JSON shape.
type Result struct {
	Start         string                 `json:"start"`
	Found         bool                   `json:"found"`
	Nodes         map[string]VisitedNode `json:"nodes"`
	Edges         []Edge                 `json:"edges"`
	DepthSearched int                    `json:"depth_searched"`
}

// Traverse explores the neighborhood of start breadth-first, up to depth
// hops. Start may be an exact id or any reference resolvable the way the
// builder resolves metadata references (exact title, then substring).
// Every edge examined along the way is recorded, including edges whose far
// end was already visited, so the caller can render the full local
// subgraph. Each node is reported at the first depth it was seen.
func (idx *Index) Traverse(start string, depth int) Result {
	if depth <= 0 {
		depth = DefaultDepth
	}
	res := Result{
		Start:         start,
		Nodes:         map[string]VisitedNode{},
		Edges:         []Edge{},
		DepthSearched: depth,
	}

	startID, ok := idx.resolveStart(start)
	if !ok {
		return res
	}
	res.Found = true

	// Adjacency over the directed edge list.
	adj := map[string][]Edge{}
	for _, e := range idx.Edges {
		adj[e.From] = append(adj[e.From], e)
	}

	visited := map[string]int{startID: 0}
	res.Nodes[startID] = idx.visitedNode(startID, 0)

	frontier := []string{startID}
	for d := 0; d < depth && len(frontier) > 0; d++ {
		var next []string
		for _, id := range frontier {
			for _, e := range adj[id] {
				res.Edges = append(res.Edges, e)
				if _, seen := visited[e.To]; seen {
					continue
				}
				visited[e.To] = d + 1
				res.Nodes[e.To] = idx.visitedNode(e.To, d+1)
				next = append(next, e.To)
			}
		}
		frontier = next
	}
	return res
}

// resolveStart maps a start reference to a node id: exact id, exact title
// match, then substring match, both case-insensitive and resolved in
// sorted-id order for determinism.
func (idx *Index) resolveStart(ref string) (string, bool) {
	ref = strings.TrimSpace(ref)
	if ref == "" {
		return "", false
	}
	if _, ok := idx.Nodes[ref]; ok {
		return ref, true
	}
	ids := make([]string, 0, len(idx.Nodes))
	for id := range idx.Nodes {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	low := strings.ToLower(ref)
	for _, id := range ids {
		if strings.ToLower(idx.Nodes[id].Title) == low {
			return id, true
		}
	}
	for _, id := range ids {
		if strings.Contains(strings.ToLower(idx.Nodes[id].Title), low) {
			return id, true
		}
	}
	return "", false
}

func (idx *Index) visitedNode(id string, depth int) VisitedNode {
	n := idx.Nodes[id]
	return VisitedNode{
		Title:     n.Title,
		Category:  n.Category,
		Date:      n.Date,
		Priority:  n.Priority,
		UpdatedAt: n.UpdatedAt,
		Depth:     depth,
	}
}
