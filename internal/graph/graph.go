// Package graph builds, persists, and traverses the knowledge graph: a
// derived bidirectional adjacency structure over every record in the vault.
// The index is rebuilt wholesale after every vault write and stored as a
// single JSON artifact; it is never patched incrementally or hand-edited.
package graph

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/starford/othala/internal/storage"
)

// IndexFile is the persisted index artifact, relative to the vault root.
const IndexFile = "_graph.json"

// Relation labels. Forward relations are declared in record metadata;
// reverse relations are generated by the builder so every link is
// navigable from both ends.
const (
	RelRelatesTo    = "relates-to"
	RelBacklink     = "backlink"
	RelDerivedFrom  = "derived-from"
	RelReferencedBy = "referenced-by"
)

// reverseOf maps each declared relation to its generated counterpart.
var reverseOf = map[string]string{
	RelRelatesTo:   RelBacklink,
	RelDerivedFrom: RelReferencedBy,
}

// Node is a denormalized summary of one record.
type Node struct {
	Title     string    `json:"title"`
	Category  string    `json:"category"`
	Date      string    `json:"date,omitempty"`
	Priority  string    `json:"priority,omitempty"`
	Quadrant  string    `json:"quadrant,omitempty"`
	Deadline  string    `json:"deadline,omitempty"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Edge is one directed, labelled edge between two record ids.
type Edge struct {
	From     string `json:"from"`
	To       string `json:"to"`
	Relation string `json:"relation"`
}

// Index is the persisted graph artifact.
//
// Invariant: for every relates-to edge (A,B) there is exactly one backlink
// edge (B,A); likewise for derived-from/referenced-by. No duplicate
// (from,to,relation) triples, no self-edges.
type Index struct {
	Nodes     map[string]Node `json:"nodes"`
	Edges     []Edge          `json:"edges"`
	RebuiltAt time.Time       `json:"rebuilt_at"`
}

// EmptyIndex returns an index with no nodes or edges.
func EmptyIndex() *Index {
	return &Index{Nodes: map[string]Node{}, Edges: []Edge{}}
}

// Load reads the persisted index. A vault that has never been rebuilt
// loads as an empty index, not an error.
func Load(store storage.Provider) (*Index, error) {
	data, err := store.Read(IndexFile)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return EmptyIndex(), nil
		}
		return nil, fmt.Errorf("graph: load index: %w", err)
	}
	var idx Index
	if err := json.Unmarshal(data, &idx); err != nil {
		return nil, fmt.Errorf("graph: decode index: %w", err)
	}
	if idx.Nodes == nil {
		idx.Nodes = map[string]Node{}
	}
	if idx.Edges == nil {
		idx.Edges = []Edge{}
	}
	return &idx, nil
}
