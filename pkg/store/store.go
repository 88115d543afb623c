// Package store keeps a goal graph as markdown files with YAML frontmatter,
// one file per goal under goals/<id>.md. A parent's file lists its children;
// parent views are rebuilt from those lists on load.
package store

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/stefanpenner/goalgraph/pkg/graph"
)

// Store manages the filesystem-backed goal graph. The whole graph is held in
// memory and written through on every change.
type Store struct {
	Root string // e.g., ~/.local/share/goalgraph

	mu     sync.RWMutex
	goals  map[graph.GoalID]*graph.Goal
	edges  *graph.Adjacency
	nextID graph.GoalID
	now    func() time.Time
}

var _ graph.Store = (*Store)(nil)

// NewStore opens the store rooted at the given directory, creating the
// directory structure if it doesn't exist.
func NewStore(root string) (*Store, error) {
	goalsDir := filepath.Join(root, "goals")
	if err := os.MkdirAll(goalsDir, 0755); err != nil {
		return nil, fmt.Errorf("creating goals directory: %w", err)
	}
	s := &Store{Root: root, now: time.Now}
	if err := s.Reload(); err != nil {
		return nil, err
	}
	return s, nil
}

// GoalsDir returns the path to the goals directory.
func (s *Store) GoalsDir() string {
	return filepath.Join(s.Root, "goals")
}

// MetaPath returns the path to meta.yaml.
func (s *Store) MetaPath() string {
	return filepath.Join(s.Root, "meta.yaml")
}

// GoalPath returns the file that holds goal id.
func (s *Store) GoalPath(id graph.GoalID) string {
	return filepath.Join(s.GoalsDir(), id.String()+".md")
}

// Reload re-reads every goal file from disk. Files that fail to parse are
// skipped, as are children that point at missing goals.
func (s *Store) Reload() error {
	entries, err := os.ReadDir(s.GoalsDir())
	if err != nil {
		return fmt.Errorf("reading goals directory: %w", err)
	}

	goals := make(map[graph.GoalID]*graph.Goal)
	files := make(map[graph.GoalID]*GoalFile)
	var maxID graph.GoalID
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".md") {
			continue
		}
		n, err := strconv.ParseInt(strings.TrimSuffix(entry.Name(), ".md"), 10, 64)
		if err != nil || n <= 0 {
			continue
		}
		id := graph.GoalID(n)
		data, err := os.ReadFile(filepath.Join(s.GoalsDir(), entry.Name()))
		if err != nil {
			continue
		}
		f, err := ParseFrontmatter(string(data))
		if err != nil {
			continue // skip broken goals
		}
		files[id] = f
		goals[id] = f.goal(id)
		if id > maxID {
			maxID = id
		}
	}

	edges := graph.NewAdjacency()
	ids := make([]graph.GoalID, 0, len(files))
	for id := range files {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	for _, id := range ids {
		for _, child := range files[id].Children {
			if _, ok := goals[child]; ok {
				edges.Link(id, child)
			}
		}
	}

	next := maxID + 1
	if data, err := os.ReadFile(s.MetaPath()); err == nil {
		if m, err := parseMeta(data); err == nil && m.NextID > next {
			next = m.NextID
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.goals = goals
	s.edges = edges
	s.nextID = next
	return nil
}

// Goal returns a copy of goal id.
func (s *Store) Goal(ctx context.Context, id graph.GoalID) (*graph.Goal, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	g, ok := s.goals[id]
	if !ok {
		return nil, fmt.Errorf("goal %d: %w", id, graph.ErrNotFound)
	}
	return g.Clone(), nil
}

func (s *Store) Parents(ctx context.Context, id graph.GoalID) ([]*graph.Goal, error) {
	return s.neighbours(ctx, id, func(id graph.GoalID) []graph.GoalID { return s.edges.Parents(id) })
}

func (s *Store) Children(ctx context.Context, id graph.GoalID) ([]*graph.Goal, error) {
	return s.neighbours(ctx, id, func(id graph.GoalID) []graph.GoalID { return s.edges.Children(id) })
}

func (s *Store) neighbours(ctx context.Context, id graph.GoalID, view func(graph.GoalID) []graph.GoalID) ([]*graph.Goal, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	if _, ok := s.goals[id]; !ok {
		return nil, fmt.Errorf("goal %d: %w", id, graph.ErrNotFound)
	}
	ids := view(id)
	out := make([]*graph.Goal, 0, len(ids))
	for _, n := range ids {
		out = append(out, s.goals[n].Clone())
	}
	return out, nil
}

// InsertEdge records child in the parent's file. Existing edges are left alone.
func (s *Store) InsertEdge(ctx context.Context, parent, child graph.GoalID) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, id := range []graph.GoalID{parent, child} {
		if _, ok := s.goals[id]; !ok {
			return fmt.Errorf("goal %d: %w", id, graph.ErrNotFound)
		}
	}
	if !s.edges.Link(parent, child) {
		return nil
	}
	if err := s.writeGoal(parent); err != nil {
		s.edges.Unlink(parent, child)
		return err
	}
	return nil
}

// RemoveEdge drops child from the parent's file. Missing edges are a no-op.
func (s *Store) RemoveEdge(ctx context.Context, parent, child graph.GoalID) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.edges.Unlink(parent, child) {
		return nil
	}
	if err := s.writeGoal(parent); err != nil {
		s.edges.Link(parent, child)
		return err
	}
	return nil
}

func (s *Store) GetField(ctx context.Context, id graph.GoalID, field graph.Field) (any, error) {
	g, err := s.Goal(ctx, id)
	if err != nil {
		return nil, err
	}
	return g.Get(field)
}

func (s *Store) SetField(ctx context.Context, id graph.GoalID, field graph.Field, value any) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	g, ok := s.goals[id]
	if !ok {
		return fmt.Errorf("goal %d: %w", id, graph.ErrNotFound)
	}
	prev := g.Clone()
	if err := g.Set(field, value); err != nil {
		return err
	}
	g.Updated = s.now()
	if err := s.writeGoal(id); err != nil {
		s.goals[id] = prev
		return err
	}
	return nil
}

// Insert writes a new goal file and assigns the goal its identity.
func (s *Store) Insert(ctx context.Context, g *graph.Goal) (graph.GoalID, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	if g.IsCommitted() {
		return 0, fmt.Errorf("goal %d: %w", g.ID, graph.ErrAlreadyCommitted)
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	id := s.nextID
	if err := s.saveMeta(id + 1); err != nil {
		return 0, err
	}
	s.nextID = id + 1

	stored := g.Clone()
	stored.ID = id
	now := s.now()
	if stored.Created.IsZero() {
		stored.Created = now
	}
	stored.Updated = now
	s.goals[id] = stored
	if err := s.writeGoal(id); err != nil {
		delete(s.goals, id)
		return 0, err
	}
	return id, nil
}

// Delete removes the goal file and rewrites the files of its parents.
func (s *Store) Delete(ctx context.Context, id graph.GoalID) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.goals[id]; !ok {
		return fmt.Errorf("goal %d: %w", id, graph.ErrNotFound)
	}
	if err := os.Remove(s.GoalPath(id)); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("removing goal %d: %w", id, err)
	}
	parents := s.edges.Parents(id)
	s.edges.Detach(id)
	delete(s.goals, id)
	for _, p := range parents {
		if err := s.writeGoal(p); err != nil {
			return err
		}
	}
	return nil
}

// IDs returns every goal identity in ascending order.
func (s *Store) IDs(ctx context.Context) ([]graph.GoalID, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	ids := make([]graph.GoalID, 0, len(s.goals))
	for id := range s.goals {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids, nil
}

// writeGoal serializes goal id with its current children. Callers hold mu.
func (s *Store) writeGoal(id graph.GoalID) error {
	g := s.goals[id]
	content, err := SerializeFrontmatter(fileFor(g, s.edges.Children(id)))
	if err != nil {
		return fmt.Errorf("serializing goal %d: %w", id, err)
	}
	if err := os.WriteFile(s.GoalPath(id), []byte(content), 0644); err != nil {
		return fmt.Errorf("writing goal %d: %w", id, err)
	}
	return nil
}

func (s *Store) saveMeta(next graph.GoalID) error {
	data, err := serializeMeta(&meta{NextID: next})
	if err != nil {
		return fmt.Errorf("serializing meta.yaml: %w", err)
	}
	if err := os.WriteFile(s.MetaPath(), data, 0644); err != nil {
		return fmt.Errorf("writing meta.yaml: %w", err)
	}
	return nil
}
