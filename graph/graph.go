// Copyright (C) 2026 Seaward AI (oss@seaward.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package graph

import (
	"sync"
)

// Graph is an append-only store of thoughts and single-parent edges.
//
// Invariants: ids are unique; every non-root thought has exactly one parent;
// edges that would create a cycle are rejected; thoughts are never deleted,
// so pruned-but-unexpanded thoughts stay queryable for provenance and
// best-ever reconstruction. A failed Add leaves the graph unchanged.
//
// Scores and grounding state are running estimates kept in side tables keyed
// by id, separate from the immutable thought values.
//
// Thread Safety: Safe for concurrent use.
type Graph struct {
	mu       sync.RWMutex
	thoughts map[string]*Thought
	order    []*Thought
	children map[string][]string
	rootIDs  []string
	nextSeq  uint64

	scores   map[string]float64
	grounded map[string]bool
	verified map[string]Verification
}

// New creates an empty graph.
func New() *Graph {
	return &Graph{
		thoughts: make(map[string]*Thought),
		children: make(map[string][]string),
		scores:   make(map[string]float64),
		grounded: make(map[string]bool),
		verified: make(map[string]Verification),
	}
}

// Add registers a thought, optionally under a parent.
//
// Inputs:
//   - t: The thought to add. Its depth, parent, and creation sequence are
//     assigned here.
//   - parentID: Id of the parent thought, or "" to add a root.
//
// Outputs:
//   - *Thought: The registered thought (same pointer as t).
//   - error: A *StructuralError wrapping ErrDuplicateID, ErrUnknownParent,
//     or ErrCycleDetected. The graph is unchanged on error. A cycle-closing
//     edge can only reuse an existing id, so the duplicate-id check subsumes
//     ErrCycleDetected; the ancestor walk stays as a structural backstop.
func (g *Graph) Add(t *Thought, parentID string) (*Thought, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if _, exists := g.thoughts[t.ID]; exists {
		return nil, structural("add", t.ID, ErrDuplicateID)
	}

	var parent *Thought
	if parentID != "" {
		p, ok := g.thoughts[parentID]
		if !ok {
			return nil, structural("add", parentID, ErrUnknownParent)
		}
		// Reject an edge whose target is an ancestor of its source.
		for a := p; a != nil; a = a.parent {
			if a.ID == t.ID {
				return nil, structural("add", t.ID, ErrCycleDetected)
			}
		}
		parent = p
	}

	t.seq = g.nextSeq
	g.nextSeq++
	t.parent = parent
	if parent != nil {
		t.depth = parent.depth + 1
		g.children[parent.ID] = append(g.children[parent.ID], t.ID)
	} else {
		t.depth = 0
		g.rootIDs = append(g.rootIDs, t.ID)
	}

	g.thoughts[t.ID] = t
	g.order = append(g.order, t)
	return t, nil
}

// Get returns the thought with the given id.
func (g *Graph) Get(id string) (*Thought, bool) {
	g.mu.RLock()
	defer g.mu.RUnlock()
	t, ok := g.thoughts[id]
	return t, ok
}

// Len returns the number of thoughts in the graph.
func (g *Graph) Len() int {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return len(g.order)
}

// NonRootCount returns the number of thoughts produced by expansion.
func (g *Graph) NonRootCount() int {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return len(g.order) - len(g.rootIDs)
}

// AllThoughts returns a snapshot of every thought ever added, in creation
// order. The snapshot is finite and restartable; mutating it does not affect
// the graph.
func (g *Graph) AllThoughts() []*Thought {
	g.mu.RLock()
	defer g.mu.RUnlock()
	all := make([]*Thought, len(g.order))
	copy(all, g.order)
	return all
}

// Roots returns the thoughts without incoming edges, in creation order.
func (g *Graph) Roots() []*Thought {
	g.mu.RLock()
	defer g.mu.RUnlock()
	roots := make([]*Thought, 0, len(g.rootIDs))
	for _, id := range g.rootIDs {
		roots = append(roots, g.thoughts[id])
	}
	return roots
}

// Leaves returns the thoughts without children, in creation order.
func (g *Graph) Leaves() []*Thought {
	g.mu.RLock()
	defer g.mu.RUnlock()
	var leaves []*Thought
	for _, t := range g.order {
		if len(g.children[t.ID]) == 0 {
			leaves = append(leaves, t)
		}
	}
	return leaves
}

// Children returns the direct children of a thought, in creation order.
func (g *Graph) Children(id string) []*Thought {
	g.mu.RLock()
	defer g.mu.RUnlock()
	ids := g.children[id]
	out := make([]*Thought, 0, len(ids))
	for _, cid := range ids {
		out = append(out, g.thoughts[cid])
	}
	return out
}

// PathToRoot follows parent edges from the thought to a root.
//
// Outputs:
//   - []*Thought: The path ordered leaf first, root last. O(depth).
//   - error: ErrUnknownThought if the id was never added.
func (g *Graph) PathToRoot(id string) ([]*Thought, error) {
	g.mu.RLock()
	defer g.mu.RUnlock()
	t, ok := g.thoughts[id]
	if !ok {
		return nil, structural("path", id, ErrUnknownThought)
	}
	var path []*Thought
	for cur := t; cur != nil; cur = cur.parent {
		path = append(path, cur)
	}
	return path, nil
}

// PathFromRoot returns the path from a root down to the thought.
func (g *Graph) PathFromRoot(id string) ([]*Thought, error) {
	path, err := g.PathToRoot(id)
	if err != nil {
		return nil, err
	}
	for i, j := 0, len(path)-1; i < j; i, j = i+1, j-1 {
		path[i], path[j] = path[j], path[i]
	}
	return path, nil
}

// MaxDepth returns the maximum depth reached by any thought.
func (g *Graph) MaxDepth() int {
	g.mu.RLock()
	defer g.mu.RUnlock()
	maxDepth := 0
	for _, t := range g.order {
		if t.depth > maxDepth {
			maxDepth = t.depth
		}
	}
	return maxDepth
}

// SetScore records or refines the running score estimate for a thought.
func (g *Graph) SetScore(id string, score float64) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	if _, ok := g.thoughts[id]; !ok {
		return structural("score", id, ErrUnknownThought)
	}
	g.scores[id] = score
	return nil
}

// Score returns the current score estimate for a thought.
func (g *Graph) Score(id string) (float64, bool) {
	g.mu.RLock()
	defer g.mu.RUnlock()
	s, ok := g.scores[id]
	return s, ok
}

// BestThought returns the highest-scoring thought ever added, with earliest
// creation breaking ties. It scans all thoughts, not only leaves, since a
// pruned branch may hold the best score seen.
func (g *Graph) BestThought() (*Thought, float64, bool) {
	g.mu.RLock()
	defer g.mu.RUnlock()
	var best *Thought
	bestScore := 0.0
	for _, t := range g.order {
		s, ok := g.scores[t.ID]
		if !ok {
			continue
		}
		if best == nil || s > bestScore {
			best = t
			bestScore = s
		}
	}
	if best == nil {
		return nil, 0, false
	}
	return best, bestScore, true
}

// MinRootScore returns the lowest score among scored roots.
func (g *Graph) MinRootScore() (float64, bool) {
	g.mu.RLock()
	defer g.mu.RUnlock()
	found := false
	minScore := 0.0
	for _, id := range g.rootIDs {
		s, ok := g.scores[id]
		if !ok {
			continue
		}
		if !found || s < minScore {
			minScore = s
			found = true
		}
	}
	return minScore, found
}

// SetGrounding records the grounding outcome for a thought.
func (g *Graph) SetGrounding(id string, grounded bool, v Verification) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	if _, ok := g.thoughts[id]; !ok {
		return structural("ground", id, ErrUnknownThought)
	}
	g.grounded[id] = grounded
	g.verified[id] = v
	return nil
}

// Grounded reports whether a thought has been grounded.
func (g *Graph) Grounded(id string) bool {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.grounded[id]
}

// Verified returns the verification tri-state for a thought.
func (g *Graph) Verified(id string) Verification {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.verified[id]
}
