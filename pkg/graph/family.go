package graph

import "context"

// Family returns the weakly connected component containing id: every goal
// reachable over parent or child edges, id included. Each goal is expanded
// once, so wide and deep graphs are traversed in O(V+E) without recursion.
func Family(ctx context.Context, v View, id GoalID) (IDSet, error) {
	if _, err := v.Goal(ctx, id); err != nil {
		return nil, err
	}
	members := NewIDSet(id)
	work := []GoalID{id}
	for len(work) > 0 {
		cur := work[len(work)-1]
		work = work[:len(work)-1]

		parents, err := v.Parents(ctx, cur)
		if err != nil {
			return nil, err
		}
		children, err := v.Children(ctx, cur)
		if err != nil {
			return nil, err
		}
		for _, n := range append(parents, children...) {
			if members.Add(n.ID) {
				work = append(work, n.ID)
			}
		}
	}
	return members, nil
}
