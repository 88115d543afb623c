package graph

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"
)

// MemStore is an in-memory Store. It is safe for concurrent use.
type MemStore struct {
	mu     sync.RWMutex
	goals  map[GoalID]*Goal
	edges  *Adjacency
	nextID GoalID
	now    func() time.Time
}

// NewMemStore returns an empty in-memory store.
func NewMemStore() *MemStore {
	return &MemStore{
		goals:  make(map[GoalID]*Goal),
		edges:  NewAdjacency(),
		nextID: 1,
		now:    time.Now,
	}
}

// Goal returns a copy of the stored goal.
func (s *MemStore) Goal(ctx context.Context, id GoalID) (*Goal, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	g, ok := s.goals[id]
	if !ok {
		return nil, fmt.Errorf("goal %d: %w", id, ErrNotFound)
	}
	return g.Clone(), nil
}

func (s *MemStore) Parents(ctx context.Context, id GoalID) ([]*Goal, error) {
	return s.neighbours(ctx, id, s.edges.Parents)
}

func (s *MemStore) Children(ctx context.Context, id GoalID) ([]*Goal, error) {
	return s.neighbours(ctx, id, s.edges.Children)
}

func (s *MemStore) neighbours(ctx context.Context, id GoalID, view func(GoalID) []GoalID) ([]*Goal, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	if _, ok := s.goals[id]; !ok {
		return nil, fmt.Errorf("goal %d: %w", id, ErrNotFound)
	}
	ids := view(id)
	out := make([]*Goal, 0, len(ids))
	for _, n := range ids {
		out = append(out, s.goals[n].Clone())
	}
	return out, nil
}

// InsertEdge adds parent→child. Inserting an existing edge is a no-op.
func (s *MemStore) InsertEdge(ctx context.Context, parent, child GoalID) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.mustExist(parent, child); err != nil {
		return err
	}
	s.edges.Link(parent, child)
	return nil
}

// RemoveEdge removes parent→child. Removing a missing edge is a no-op.
func (s *MemStore) RemoveEdge(ctx context.Context, parent, child GoalID) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.edges.Unlink(parent, child)
	return nil
}

func (s *MemStore) GetField(ctx context.Context, id GoalID, field Field) (any, error) {
	g, err := s.Goal(ctx, id)
	if err != nil {
		return nil, err
	}
	return g.Get(field)
}

func (s *MemStore) SetField(ctx context.Context, id GoalID, field Field, value any) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	g, ok := s.goals[id]
	if !ok {
		return fmt.Errorf("goal %d: %w", id, ErrNotFound)
	}
	if err := g.Set(field, value); err != nil {
		return err
	}
	g.Updated = s.now()
	return nil
}

// Insert stores a new goal and assigns its identity.
func (s *MemStore) Insert(ctx context.Context, g *Goal) (GoalID, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	if g.IsCommitted() {
		return 0, fmt.Errorf("goal %d: %w", g.ID, ErrAlreadyCommitted)
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	stored := g.Clone()
	stored.ID = s.nextID
	s.nextID++
	now := s.now()
	if stored.Created.IsZero() {
		stored.Created = now
	}
	stored.Updated = now
	s.goals[stored.ID] = stored
	return stored.ID, nil
}

// Delete removes a goal and all of its edges.
func (s *MemStore) Delete(ctx context.Context, id GoalID) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.goals[id]; !ok {
		return fmt.Errorf("goal %d: %w", id, ErrNotFound)
	}
	s.edges.Detach(id)
	delete(s.goals, id)
	return nil
}

// IDs returns every stored identity in ascending order.
func (s *MemStore) IDs(ctx context.Context) ([]GoalID, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	ids := make([]GoalID, 0, len(s.goals))
	for id := range s.goals {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids, nil
}

func (s *MemStore) mustExist(ids ...GoalID) error {
	for _, id := range ids {
		if _, ok := s.goals[id]; !ok {
			return fmt.Errorf("goal %d: %w", id, ErrNotFound)
		}
	}
	return nil
}
