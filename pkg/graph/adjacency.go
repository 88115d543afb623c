package graph

import "slices"

// Adjacency holds the parent/child relation once, indexed from both ends.
// Link and Unlink are the only mutators and always update both indexes.
// Neighbour order is insertion order.
//
// Adjacency is not safe for concurrent use; stores guard it.
type Adjacency struct {
	children map[GoalID][]GoalID
	parents  map[GoalID][]GoalID
}

// NewAdjacency returns an empty relation.
func NewAdjacency() *Adjacency {
	return &Adjacency{
		children: make(map[GoalID][]GoalID),
		parents:  make(map[GoalID][]GoalID),
	}
}

// Link adds parent→child. It reports false if the edge already existed.
func (a *Adjacency) Link(parent, child GoalID) bool {
	if a.Has(parent, child) {
		return false
	}
	a.children[parent] = append(a.children[parent], child)
	a.parents[child] = append(a.parents[child], parent)
	return true
}

// Unlink removes parent→child. It reports false if there was no such edge.
func (a *Adjacency) Unlink(parent, child GoalID) bool {
	if !a.Has(parent, child) {
		return false
	}
	a.children[parent] = without(a.children[parent], child)
	a.parents[child] = without(a.parents[child], parent)
	if len(a.children[parent]) == 0 {
		delete(a.children, parent)
	}
	if len(a.parents[child]) == 0 {
		delete(a.parents, child)
	}
	return true
}

// Has reports whether parent→child exists.
func (a *Adjacency) Has(parent, child GoalID) bool {
	for _, c := range a.children[parent] {
		if c == child {
			return true
		}
	}
	return false
}

// Children returns a copy of the child view for id.
func (a *Adjacency) Children(id GoalID) []GoalID {
	return append([]GoalID(nil), a.children[id]...)
}

// Parents returns a copy of the parent view for id.
func (a *Adjacency) Parents(id GoalID) []GoalID {
	return append([]GoalID(nil), a.parents[id]...)
}

// Detach removes every edge incident to id and returns them.
func (a *Adjacency) Detach(id GoalID) []Edge {
	var removed []Edge
	for _, c := range a.Children(id) {
		a.Unlink(id, c)
		removed = append(removed, Edge{Parent: id, Child: c})
	}
	for _, p := range a.Parents(id) {
		a.Unlink(p, id)
		removed = append(removed, Edge{Parent: p, Child: id})
	}
	return removed
}

// edges lists every edge, grouped by ascending parent.
func (a *Adjacency) edges() []Edge {
	parents := make([]GoalID, 0, len(a.children))
	for p := range a.children {
		parents = append(parents, p)
	}
	slices.Sort(parents)
	var out []Edge
	for _, p := range parents {
		for _, c := range a.children[p] {
			out = append(out, Edge{Parent: p, Child: c})
		}
	}
	return out
}

// Len returns the number of edges.
func (a *Adjacency) Len() int {
	n := 0
	for _, cs := range a.children {
		n += len(cs)
	}
	return n
}

func without(ids []GoalID, id GoalID) []GoalID {
	out := ids[:0]
	for _, x := range ids {
		if x != id {
			out = append(out, x)
		}
	}
	return out
}
