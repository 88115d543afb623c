package graph

import (
	"context"
	"errors"
	"fmt"
)

// Overlay stages edge and field changes on top of a Store. Reads through the
// overlay see the staged changes; the underlying store is untouched until
// Apply. Discarding an overlay is a matter of dropping it.
type Overlay struct {
	base    Store
	added   *Adjacency
	removed *Adjacency
	fields  map[GoalID]map[Field]any
	order   []stagedField
}

type stagedField struct {
	id    GoalID
	field Field
}

// NewOverlay returns an empty overlay over base.
func NewOverlay(base Store) *Overlay {
	return &Overlay{
		base:    base,
		added:   NewAdjacency(),
		removed: NewAdjacency(),
		fields:  make(map[GoalID]map[Field]any),
	}
}

// InsertEdge stages parent→child.
func (o *Overlay) InsertEdge(parent, child GoalID) {
	if o.removed.Unlink(parent, child) {
		return
	}
	o.added.Link(parent, child)
}

// RemoveEdge stages removal of parent→child.
func (o *Overlay) RemoveEdge(parent, child GoalID) {
	if o.added.Unlink(parent, child) {
		return
	}
	o.removed.Link(parent, child)
}

// SetField stages field=value on goal id. The value is type checked against
// the field immediately.
func (o *Overlay) SetField(id GoalID, field Field, value any) error {
	var scratch Goal
	if err := scratch.Set(field, value); err != nil {
		return err
	}
	staged, ok := o.fields[id]
	if !ok {
		staged = make(map[Field]any)
		o.fields[id] = staged
	}
	if _, seen := staged[field]; !seen {
		o.order = append(o.order, stagedField{id: id, field: field})
	}
	staged[field] = value
	return nil
}

// Empty reports whether nothing is staged.
func (o *Overlay) Empty() bool {
	return o.added.Len() == 0 && o.removed.Len() == 0 && len(o.order) == 0
}

// Goal returns the base goal with staged fields applied.
func (o *Overlay) Goal(ctx context.Context, id GoalID) (*Goal, error) {
	g, err := o.base.Goal(ctx, id)
	if err != nil {
		return nil, err
	}
	return o.patch(g)
}

func (o *Overlay) Parents(ctx context.Context, id GoalID) ([]*Goal, error) {
	base, err := o.base.Parents(ctx, id)
	if err != nil {
		return nil, err
	}
	return o.merge(ctx, base, o.added.Parents(id), func(n GoalID) bool {
		return o.removed.Has(n, id)
	})
}

func (o *Overlay) Children(ctx context.Context, id GoalID) ([]*Goal, error) {
	base, err := o.base.Children(ctx, id)
	if err != nil {
		return nil, err
	}
	return o.merge(ctx, base, o.added.Children(id), func(n GoalID) bool {
		return o.removed.Has(id, n)
	})
}

func (o *Overlay) merge(ctx context.Context, base []*Goal, added []GoalID, isRemoved func(GoalID) bool) ([]*Goal, error) {
	seen := NewIDSet()
	out := make([]*Goal, 0, len(base)+len(added))
	for _, g := range base {
		if isRemoved(g.ID) || !seen.Add(g.ID) {
			continue
		}
		patched, err := o.patch(g)
		if err != nil {
			return nil, err
		}
		out = append(out, patched)
	}
	for _, id := range added {
		if !seen.Add(id) {
			continue
		}
		g, err := o.Goal(ctx, id)
		if err != nil {
			return nil, err
		}
		out = append(out, g)
	}
	return out, nil
}

func (o *Overlay) patch(g *Goal) (*Goal, error) {
	staged, ok := o.fields[g.ID]
	if !ok {
		return g, nil
	}
	g = g.Clone()
	for _, f := range Fields {
		if v, ok := staged[f]; ok {
			if err := g.Set(f, v); err != nil {
				return nil, err
			}
		}
	}
	return g, nil
}

// Apply writes the staged changes to the base store: removals, then
// insertions, then fields in staging order. If a write fails, the writes
// already made are undone from pre-images read before applying, so the base
// store ends up as it was.
func (o *Overlay) Apply(ctx context.Context) error {
	undo, err := o.preimages(ctx)
	if err != nil {
		return err
	}

	var done []func(context.Context) error
	fail := func(err error) error {
		for i := len(done) - 1; i >= 0; i-- {
			if uerr := done[i](ctx); uerr != nil {
				return errors.Join(err, fmt.Errorf("restoring store: %w", uerr))
			}
		}
		return err
	}

	for _, e := range o.removed.edges() {
		if err := o.base.RemoveEdge(ctx, e.Parent, e.Child); err != nil {
			return fail(fmt.Errorf("removing edge %d→%d: %w", e.Parent, e.Child, err))
		}
		if undo.hadEdge[e] {
			done = append(done, func(ctx context.Context) error { return o.base.InsertEdge(ctx, e.Parent, e.Child) })
		}
	}
	for _, e := range o.added.edges() {
		if err := o.base.InsertEdge(ctx, e.Parent, e.Child); err != nil {
			return fail(fmt.Errorf("inserting edge %d→%d: %w", e.Parent, e.Child, err))
		}
		if !undo.hadEdge[e] {
			done = append(done, func(ctx context.Context) error { return o.base.RemoveEdge(ctx, e.Parent, e.Child) })
		}
	}
	for _, sf := range o.order {
		if err := o.base.SetField(ctx, sf.id, sf.field, o.fields[sf.id][sf.field]); err != nil {
			return fail(fmt.Errorf("setting %s on goal %d: %w", sf.field, sf.id, err))
		}
		prev := undo.fields[sf]
		done = append(done, func(ctx context.Context) error { return o.base.SetField(ctx, sf.id, sf.field, prev) })
	}
	return nil
}

type preimage struct {
	hadEdge map[Edge]bool
	fields  map[stagedField]any
}

// preimages records, for every staged write, what the base store holds now.
func (o *Overlay) preimages(ctx context.Context) (*preimage, error) {
	p := &preimage{hadEdge: make(map[Edge]bool), fields: make(map[stagedField]any)}
	staged := append(o.removed.edges(), o.added.edges()...)
	byParent := make(map[GoalID]IDSet)
	for _, e := range staged {
		kids, ok := byParent[e.Parent]
		if !ok {
			children, err := o.base.Children(ctx, e.Parent)
			if err != nil {
				return nil, fmt.Errorf("reading children of %d: %w", e.Parent, err)
			}
			kids = NewIDSet(IDs(children)...)
			byParent[e.Parent] = kids
		}
		p.hadEdge[e] = kids.Has(e.Child)
	}
	for _, sf := range o.order {
		v, err := o.base.GetField(ctx, sf.id, sf.field)
		if err != nil {
			return nil, fmt.Errorf("reading %s of goal %d: %w", sf.field, sf.id, err)
		}
		p.fields[sf] = v
	}
	return p, nil
}
