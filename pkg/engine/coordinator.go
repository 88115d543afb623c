// Package engine applies goal graph mutations only when the resulting graph
// keeps its invariants.
//
// Every mutation is staged in a graph.Overlay, validated against that overlay
// and only then written to the store, so a rejected mutation is never visible
// to readers. Mutations lock the connected component(s) they touch; unrelated
// components are mutated in parallel.
package engine

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/stefanpenner/goalgraph/pkg/graph"
)

// Coordinator is the mutation gate in front of a graph.Store.
type Coordinator struct {
	store  graph.Store
	locks  *componentLocks
	logger *slog.Logger
	seq    atomic.Uint64
}

// Option configures a Coordinator.
type Option func(*Coordinator)

// WithLogger sets the logger used for mutation tracing.
func WithLogger(l *slog.Logger) Option {
	return func(c *Coordinator) {
		if l != nil {
			c.logger = l
		}
	}
}

// New returns a Coordinator over store.
func New(store graph.Store, opts ...Option) *Coordinator {
	c := &Coordinator{
		store:  store,
		locks:  newComponentLocks(),
		logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Store returns the underlying store.
func (c *Coordinator) Store() graph.Store {
	return c.store
}

// lockComponent locks every goal in the families of ids. The families are
// recomputed under lock; if one grew in the meantime the locks are retaken
// over the larger set.
func (c *Coordinator) lockComponent(ctx context.Context, write bool, ids ...graph.GoalID) (func(), error) {
	members, err := c.familyUnion(ctx, ids)
	if err != nil {
		return nil, err
	}
	for {
		release := c.locks.acquire(members, write)
		current, err := c.familyUnion(ctx, ids)
		if err != nil {
			release()
			return nil, err
		}
		if members.ContainsAll(current) {
			return release, nil
		}
		release()
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		for id := range current {
			members.Add(id)
		}
	}
}

func (c *Coordinator) familyUnion(ctx context.Context, ids []graph.GoalID) (graph.IDSet, error) {
	union := graph.NewIDSet()
	for _, id := range ids {
		if union.Has(id) {
			continue
		}
		fam, err := graph.Family(ctx, c.store, id)
		if err != nil {
			return nil, err
		}
		for m := range fam {
			union.Add(m)
		}
	}
	return union, nil
}

func committed(ids ...graph.GoalID) error {
	for _, id := range ids {
		if !id.Committed() {
			return graph.ErrUncommitted
		}
	}
	return nil
}

// Commit persists g. A new goal is inserted and receives its identity; no
// validation is needed because it has no edges yet. For a committed goal the
// fields that differ from the store are staged together and validated as one
// mutation; if none differ the store is not written.
func (c *Coordinator) Commit(ctx context.Context, g *graph.Goal) error {
	if !g.IsCommitted() {
		id, err := c.store.Insert(ctx, g)
		if err != nil {
			return fmt.Errorf("inserting goal: %w", err)
		}
		stored, err := c.store.Goal(ctx, id)
		if err != nil {
			return err
		}
		*g = *stored
		c.logger.Debug("goal committed", slog.Int64("goal", int64(id)))
		return nil
	}

	return c.mutateFields(ctx, g, "commit", func(o *graph.Overlay) error {
		stored, err := c.store.Goal(ctx, g.ID)
		if err != nil {
			return err
		}
		for _, f := range g.Diff(stored) {
			v, err := g.Get(f)
			if err != nil {
				return err
			}
			if err := o.SetField(g.ID, f, v); err != nil {
				return err
			}
		}
		return nil
	})
}

// SetField changes one field of g. Uncommitted goals are changed in place
// without validation. For committed goals the change is validated first and
// g is refreshed from the store on success; on failure neither g nor the
// store changes.
func (c *Coordinator) SetField(ctx context.Context, g *graph.Goal, field graph.Field, value any) error {
	if !g.IsCommitted() {
		return g.Set(field, value)
	}
	return c.mutateFields(ctx, g, "set "+string(field), func(o *graph.Overlay) error {
		return o.SetField(g.ID, field, value)
	})
}

func (c *Coordinator) mutateFields(ctx context.Context, g *graph.Goal, op string, stage func(*graph.Overlay) error) error {
	release, err := c.lockComponent(ctx, true, g.ID)
	if err != nil {
		return err
	}
	defer release()

	t := c.begin(op, g.ID)
	if err := t.stage(stage); err != nil {
		return err
	}
	if err := t.resolve(ctx); err != nil {
		return err
	}

	stored, err := c.store.Goal(ctx, g.ID)
	if err != nil {
		return err
	}
	*g = *stored
	return nil
}

// SetDescription is SetField for the description.
func (c *Coordinator) SetDescription(ctx context.Context, g *graph.Goal, desc string) error {
	return c.SetField(ctx, g, graph.FieldDescription, desc)
}

// SetDeadline is SetField for the deadline; nil clears it.
func (c *Coordinator) SetDeadline(ctx context.Context, g *graph.Goal, deadline *time.Time) error {
	return c.SetField(ctx, g, graph.FieldDeadline, deadline)
}

// SetAchieved is SetField for the achieved flag.
func (c *Coordinator) SetAchieved(ctx context.Context, g *graph.Goal, achieved bool) error {
	return c.SetField(ctx, g, graph.FieldAchieved, achieved)
}

// SetColor is SetField for the display color.
func (c *Coordinator) SetColor(ctx context.Context, g *graph.Goal, color string) error {
	return c.SetField(ctx, g, graph.FieldColor, color)
}

// AddParentEdge makes parent a parent of child. The child, whose parent set
// grows, is the goal the invariants are checked from.
func (c *Coordinator) AddParentEdge(ctx context.Context, parent, child graph.GoalID) error {
	return c.addEdge(ctx, "add parent", parent, child, child)
}

// AddChildEdge makes child a child of parent. The parent, whose child set
// grows, is the goal the invariants are checked from.
func (c *Coordinator) AddChildEdge(ctx context.Context, parent, child graph.GoalID) error {
	return c.addEdge(ctx, "add child", parent, child, parent)
}

func (c *Coordinator) addEdge(ctx context.Context, op string, parent, child, subject graph.GoalID) error {
	if err := committed(parent, child); err != nil {
		return err
	}
	release, err := c.lockComponent(ctx, true, parent, child)
	if err != nil {
		return err
	}
	defer release()

	t := c.begin(op, subject)
	if err := t.stage(func(o *graph.Overlay) error {
		o.InsertEdge(parent, child)
		return nil
	}); err != nil {
		return err
	}
	return t.resolve(ctx)
}

// RemoveParentEdge removes parent→child. Removing a constraint cannot break
// an invariant, so nothing is validated. Removing a missing edge is a no-op.
func (c *Coordinator) RemoveParentEdge(ctx context.Context, parent, child graph.GoalID) error {
	return c.removeEdge(ctx, parent, child)
}

// RemoveChildEdge removes parent→child; see RemoveParentEdge.
func (c *Coordinator) RemoveChildEdge(ctx context.Context, parent, child graph.GoalID) error {
	return c.removeEdge(ctx, parent, child)
}

func (c *Coordinator) removeEdge(ctx context.Context, parent, child graph.GoalID) error {
	if err := committed(parent, child); err != nil {
		return err
	}
	release, err := c.lockComponent(ctx, true, parent, child)
	if err != nil {
		return err
	}
	defer release()

	if err := c.store.RemoveEdge(ctx, parent, child); err != nil {
		return fmt.Errorf("removing edge %d→%d: %w", parent, child, err)
	}
	c.logger.Debug("edge removed", slog.Int64("parent", int64(parent)), slog.Int64("child", int64(child)))
	return nil
}

// Delete removes a goal and its edges. Like edge removal it is not validated.
func (c *Coordinator) Delete(ctx context.Context, id graph.GoalID) error {
	if err := committed(id); err != nil {
		return err
	}
	release, err := c.lockComponent(ctx, true, id)
	if err != nil {
		return err
	}
	defer release()

	if err := c.store.Delete(ctx, id); err != nil {
		return fmt.Errorf("deleting goal %d: %w", id, err)
	}
	c.locks.forget(id)
	c.logger.Info("goal deleted", slog.Int64("goal", int64(id)))
	return nil
}

// FamilyOf returns the weakly connected component containing id.
func (c *Coordinator) FamilyOf(ctx context.Context, id graph.GoalID) (graph.IDSet, error) {
	if err := committed(id); err != nil {
		return nil, err
	}
	release, err := c.lockComponent(ctx, false, id)
	if err != nil {
		return nil, err
	}
	defer release()
	return graph.Family(ctx, c.store, id)
}

// Goal reads a goal under its component's read lock.
func (c *Coordinator) Goal(ctx context.Context, id graph.GoalID) (*graph.Goal, error) {
	if err := committed(id); err != nil {
		return nil, err
	}
	release, err := c.lockComponent(ctx, false, id)
	if err != nil {
		return nil, err
	}
	defer release()
	return c.store.Goal(ctx, id)
}

// Parents returns the parents of id.
func (c *Coordinator) Parents(ctx context.Context, id graph.GoalID) ([]*graph.Goal, error) {
	return c.neighbours(ctx, id, c.store.Parents)
}

// Children returns the children of id.
func (c *Coordinator) Children(ctx context.Context, id graph.GoalID) ([]*graph.Goal, error) {
	return c.neighbours(ctx, id, c.store.Children)
}

func (c *Coordinator) neighbours(ctx context.Context, id graph.GoalID, read func(context.Context, graph.GoalID) ([]*graph.Goal, error)) ([]*graph.Goal, error) {
	if err := committed(id); err != nil {
		return nil, err
	}
	release, err := c.lockComponent(ctx, false, id)
	if err != nil {
		return nil, err
	}
	defer release()
	return read(ctx, id)
}

// Roots returns every goal without parents, ascending by ID.
func (c *Coordinator) Roots(ctx context.Context) ([]*graph.Goal, error) {
	ids, err := c.store.IDs(ctx)
	if err != nil {
		return nil, err
	}
	var roots []*graph.Goal
	for _, id := range ids {
		parents, err := c.store.Parents(ctx, id)
		if errors.Is(err, graph.ErrNotFound) {
			continue // deleted since listing
		}
		if err != nil {
			return nil, err
		}
		if len(parents) > 0 {
			continue
		}
		g, err := c.store.Goal(ctx, id)
		if errors.Is(err, graph.ErrNotFound) {
			continue
		}
		if err != nil {
			return nil, err
		}
		roots = append(roots, g)
	}
	return roots, nil
}

// Snapshot reads the whole graph under one read lock over every goal. Each
// goal and its child list is read once, so the cost is linear in the graph.
func (c *Coordinator) Snapshot(ctx context.Context) (*graph.Snapshot, error) {
	ids, err := c.store.IDs(ctx)
	if err != nil {
		return nil, err
	}
	members := graph.NewIDSet(ids...)
	var release func()
	for {
		release = c.locks.acquire(members, false)
		current, err := c.store.IDs(ctx)
		if err != nil {
			release()
			return nil, err
		}
		if members.ContainsAll(graph.NewIDSet(current...)) {
			ids = current
			break
		}
		release()
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		for _, id := range current {
			members.Add(id)
		}
	}
	defer release()

	s := &graph.Snapshot{
		Goals:    make(map[graph.GoalID]*graph.Goal, len(ids)),
		Children: make(map[graph.GoalID][]graph.GoalID, len(ids)),
		Parents:  make(map[graph.GoalID][]graph.GoalID, len(ids)),
	}
	for _, id := range ids {
		g, err := c.store.Goal(ctx, id)
		if errors.Is(err, graph.ErrNotFound) {
			continue
		}
		if err != nil {
			return nil, err
		}
		kids, err := c.store.Children(ctx, id)
		if err != nil && !errors.Is(err, graph.ErrNotFound) {
			return nil, err
		}
		s.IDs = append(s.IDs, id)
		s.Goals[id] = g
		s.Children[id] = graph.IDs(kids)
	}
	for _, id := range s.IDs {
		for _, child := range s.Children[id] {
			s.Parents[child] = append(s.Parents[child], id)
		}
	}
	return s, nil
}
