package graph

// Snapshot is a consistent copy of a whole goal graph.
type Snapshot struct {
	IDs      []GoalID // ascending
	Goals    map[GoalID]*Goal
	Children map[GoalID][]GoalID
	Parents  map[GoalID][]GoalID // ascending by parent ID
}

// Roots returns the goals without parents, ascending by ID.
func (s *Snapshot) Roots() []GoalID {
	var roots []GoalID
	for _, id := range s.IDs {
		if len(s.Parents[id]) == 0 {
			roots = append(roots, id)
		}
	}
	return roots
}

// Family returns the weakly connected component of id within the snapshot.
// It is empty when id is not in the snapshot.
func (s *Snapshot) Family(id GoalID) IDSet {
	fam := NewIDSet()
	if _, ok := s.Goals[id]; !ok {
		return fam
	}
	stack := []GoalID{id}
	fam.Add(id)
	for len(stack) > 0 {
		cur := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		for _, n := range s.Children[cur] {
			if fam.Add(n) {
				stack = append(stack, n)
			}
		}
		for _, n := range s.Parents[cur] {
			if fam.Add(n) {
				stack = append(stack, n)
			}
		}
	}
	return fam
}
