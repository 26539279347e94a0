package graph

import (
	"testing"
	"time"
)

// chainIndex builds a -> b -> c -> d with forward and reverse edges, the
// shape a rebuild produces.
func chainIndex() *Index {
	idx := EmptyIndex()
	ids := []string{"decisions/a-0001", "decisions/b-0002", "decisions/c-0003", "decisions/d-0004"}
	titles := []string{"Alpha", "Bravo", "Charlie", "Delta"}
	for i, id := range ids {
		idx.Nodes[id] = Node{Title: titles[i], Category: "decisions"}
	}
	for i := 0; i+1 < len(ids); i++ {
		idx.Edges = append(idx.Edges,
			Edge{From: ids[i], To: ids[i+1], Relation: RelRelatesTo},
			Edge{From: ids[i+1], To: ids[i], Relation: RelBacklink},
		)
	}
	idx.RebuiltAt = time.Now()
	return idx
}

func TestTraverseDepthBound(t *testing.T) {
	idx := chainIndex()

	res := idx.Traverse("decisions/a-0001", 1)
	if !res.Found {
		t.Fatal("start not found")
	}
	if len(res.Nodes) != 2 {
		t.Errorf("depth 1 reached %d nodes, want 2", len(res.Nodes))
	}
	if _, ok := res.Nodes["decisions/c-0003"]; ok {
		t.Error("depth 1 must not reach a two-hop node")
	}

	res = idx.Traverse("decisions/a-0001", 3)
	if len(res.Nodes) != 4 {
		t.Errorf("depth 3 reached %d nodes, want 4", len(res.Nodes))
	}
	if res.Nodes["decisions/d-0004"].Depth != 3 {
		t.Errorf("d depth = %d, want 3", res.Nodes["decisions/d-0004"].Depth)
	}
}

func TestTraverseDefaultDepth(t *testing.T) {
	idx := chainIndex()
	res := idx.Traverse("decisions/a-0001", 0)
	if res.DepthSearched != DefaultDepth {
		t.Errorf("DepthSearched = %d, want %d", res.DepthSearched, DefaultDepth)
	}
	if len(res.Nodes) != 3 {
		t.Errorf("default depth reached %d nodes, want 3", len(res.Nodes))
	}
}

func TestTraverseFirstDepthWins(t *testing.T) {
	idx := chainIndex()
	// Extra shortcut edge a -> c: c must be reported at depth 1, not 2.
	idx.Edges = append(idx.Edges, Edge{From: "decisions/a-0001", To: "decisions/c-0003", Relation: RelRelatesTo})

	res := idx.Traverse("decisions/a-0001", 2)
	if got := res.Nodes["decisions/c-0003"].Depth; got != 1 {
		t.Errorf("c depth = %d, want 1 (shortest path)", got)
	}
}

func TestTraverseRecordsExaminedEdges(t *testing.T) {
	idx := chainIndex()
	res := idx.Traverse("decisions/b-0002", 1)
	// b has four incident directed edges from its position in the chain;
	// all outgoing ones examined at depth 0 must be recorded, including the
	// one leading back to an already-visited node.
	if len(res.Edges) < 2 {
		t.Errorf("examined edges = %d, want at least the outgoing pair", len(res.Edges))
	}
	for _, e := range res.Edges {
		if e.From != "decisions/b-0002" {
			t.Errorf("depth-1 traversal examined an edge not leaving the frontier: %+v", e)
		}
	}
}

func TestTraverseByTitleAndFragment(t *testing.T) {
	idx := chainIndex()
	res := idx.Traverse("bravo", 1)
	if !res.Found {
		t.Fatal("exact title (case-insensitive) should resolve")
	}
	if res.Nodes["decisions/b-0002"].Depth != 0 {
		t.Error("resolved title is not the start node")
	}

	res = idx.Traverse("rav", 1)
	if !res.Found {
		t.Fatal("title fragment should resolve")
	}
}

func TestTraverseNotFound(t *testing.T) {
	idx := chainIndex()
	res := idx.Traverse("no such thing", 2)
	if res.Found {
		t.Fatal("expected Found=false")
	}
	if len(res.Nodes) != 0 || len(res.Edges) != 0 {
		t.Error("not-found result must carry no nodes or edges")
	}
	if res.Nodes == nil || res.Edges == nil {
		t.Error("not-found result must still encode as empty collections")
	}
}
