package tui

import (
	"context"
	"strconv"
	"strings"

	"github.com/stefanpenner/goalgraph/pkg/engine"
	"github.com/stefanpenner/goalgraph/pkg/graph"
)

// Snapshot is a point-in-time copy of the goal graph used for rendering.
type Snapshot struct {
	Goals    map[graph.GoalID]*graph.Goal
	Children map[graph.GoalID][]graph.GoalID
	Parents  map[graph.GoalID][]graph.GoalID
	Roots    []graph.GoalID
}

// LoadSnapshot reads every goal and its edges through the coordinator.
func LoadSnapshot(ctx context.Context, c *engine.Coordinator) (*Snapshot, error) {
	gs, err := c.Snapshot(ctx)
	if err != nil {
		return nil, err
	}
	return &Snapshot{
		Goals:    gs.Goals,
		Children: gs.Children,
		Parents:  gs.Parents,
		Roots:    gs.Roots(),
	}, nil
}

// Counts returns the number of goals and how many are achieved.
func (s *Snapshot) Counts() (total, achieved int) {
	for _, g := range s.Goals {
		total++
		if g.Achieved {
			achieved++
		}
	}
	return total, achieved
}

// TreeItem is one visible row. A goal with several parents shows up once
// under each of them, so rows are keyed by their path from a root.
type TreeItem struct {
	Key         string // path of IDs from the root, e.g. "1/4/7"
	ParentKey   string
	Goal        *graph.Goal
	Parent      graph.GoalID // 0 for roots
	Depth       int
	HasChildren bool
	IsExpanded  bool
}

// Name is the first line of the description.
func (t TreeItem) Name() string {
	return displayName(t.Goal)
}

func displayName(g *graph.Goal) string {
	name, _, _ := strings.Cut(strings.TrimSpace(g.Description), "\n")
	name = strings.TrimLeft(name, "# ")
	if name == "" {
		return "#" + g.ID.String()
	}
	return name
}

func itemKey(parentKey string, id graph.GoalID) string {
	if parentKey == "" {
		return strconv.FormatInt(int64(id), 10)
	}
	return parentKey + "/" + strconv.FormatInt(int64(id), 10)
}

// FlattenVisibleItems lists the rows visible under the expanded state,
// starting from roots. A nil filter shows everything; otherwise only goals
// in filter are listed, and goals whose parents are all filtered out are
// promoted to roots.
func FlattenVisibleItems(s *Snapshot, expandedState map[string]bool, filter graph.IDSet) []TreeItem {
	if s == nil {
		return nil
	}
	roots := s.Roots
	if filter != nil {
		roots = nil
		for _, id := range filter.Sorted() {
			if _, ok := s.Goals[id]; !ok {
				continue
			}
			visibleParent := false
			for _, p := range s.Parents[id] {
				if filter.Has(p) {
					visibleParent = true
					break
				}
			}
			if !visibleParent {
				roots = append(roots, id)
			}
		}
	}

	var result []TreeItem
	flattenGoals(s, roots, 0, "", 0, expandedState, filter, graph.NewIDSet(), &result)
	return result
}

func flattenGoals(s *Snapshot, ids []graph.GoalID, depth int, parentKey string, parent graph.GoalID,
	expandedState map[string]bool, filter graph.IDSet, onPath graph.IDSet, result *[]TreeItem) {
	for _, id := range ids {
		g, ok := s.Goals[id]
		if !ok || onPath.Has(id) {
			continue
		}
		if filter != nil && !filter.Has(id) {
			continue
		}
		key := itemKey(parentKey, id)
		item := TreeItem{
			Key:         key,
			ParentKey:   parentKey,
			Goal:        g,
			Parent:      parent,
			Depth:       depth,
			HasChildren: len(s.Children[id]) > 0,
			IsExpanded:  expandedState[key],
		}
		*result = append(*result, item)

		if item.HasChildren && item.IsExpanded {
			onPath.Add(id)
			flattenGoals(s, s.Children[id], depth+1, key, id, expandedState, filter, onPath, result)
			delete(onPath, id)
		}
	}
}

// ExpandAll marks every row that has children as expanded.
func ExpandAll(s *Snapshot, filter graph.IDSet) map[string]bool {
	expanded := make(map[string]bool)
	for {
		grew := false
		for _, item := range FlattenVisibleItems(s, expanded, filter) {
			if item.HasChildren && !expanded[item.Key] {
				expanded[item.Key] = true
				grew = true
			}
		}
		if !grew {
			return expanded
		}
	}
}
