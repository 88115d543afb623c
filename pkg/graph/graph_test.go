package graph

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func insert(t *testing.T, s *MemStore, desc string) GoalID {
	t.Helper()
	id, err := s.Insert(context.Background(), &Goal{Description: desc})
	require.NoError(t, err)
	return id
}

func TestAdjacencyViewsStayInSync(t *testing.T) {
	a := NewAdjacency()

	assert.True(t, a.Link(1, 2))
	assert.False(t, a.Link(1, 2)) // duplicate
	assert.True(t, a.Link(1, 3))
	assert.True(t, a.Link(4, 2))

	assert.Equal(t, []GoalID{2, 3}, a.Children(1))
	assert.Equal(t, []GoalID{1, 4}, a.Parents(2))
	assert.Equal(t, 3, a.Len())

	assert.True(t, a.Unlink(1, 2))
	assert.False(t, a.Unlink(1, 2))
	assert.Equal(t, []GoalID{3}, a.Children(1))
	assert.Equal(t, []GoalID{4}, a.Parents(2))
}

func TestAdjacencyDetach(t *testing.T) {
	a := NewAdjacency()
	a.Link(1, 2)
	a.Link(2, 3)
	a.Link(4, 2)

	removed := a.Detach(2)
	assert.Len(t, removed, 3)
	assert.Equal(t, 0, a.Len())
	assert.Empty(t, a.Children(1))
	assert.Empty(t, a.Parents(3))
}

func TestMemStoreAssignsMonotonicIDs(t *testing.T) {
	s := NewMemStore()
	ctx := context.Background()

	a := insert(t, s, "a")
	b := insert(t, s, "b")
	assert.Equal(t, GoalID(1), a)
	assert.Equal(t, GoalID(2), b)

	require.NoError(t, s.Delete(ctx, b))
	c := insert(t, s, "c")
	assert.Equal(t, GoalID(3), c, "ids are never reused")

	_, err := s.Insert(ctx, &Goal{ID: a})
	assert.ErrorIs(t, err, ErrAlreadyCommitted)
}

func TestMemStoreEdgesAreIdempotent(t *testing.T) {
	s := NewMemStore()
	ctx := context.Background()
	a := insert(t, s, "a")
	b := insert(t, s, "b")

	require.NoError(t, s.InsertEdge(ctx, a, b))
	require.NoError(t, s.InsertEdge(ctx, a, b))

	children, err := s.Children(ctx, a)
	require.NoError(t, err)
	assert.Equal(t, []GoalID{b}, IDs(children))

	require.NoError(t, s.RemoveEdge(ctx, a, b))
	require.NoError(t, s.RemoveEdge(ctx, a, b))
	parents, err := s.Parents(ctx, b)
	require.NoError(t, err)
	assert.Empty(t, parents)
}

func TestMemStoreInsertEdgeUnknownGoal(t *testing.T) {
	s := NewMemStore()
	a := insert(t, s, "a")

	err := s.InsertEdge(context.Background(), a, 99)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestMemStoreFields(t *testing.T) {
	s := NewMemStore()
	ctx := context.Background()
	a := insert(t, s, "a")

	deadline := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	require.NoError(t, s.SetField(ctx, a, FieldDeadline, deadline))
	require.NoError(t, s.SetField(ctx, a, FieldAchieved, true))

	v, err := s.GetField(ctx, a, FieldDeadline)
	require.NoError(t, err)
	assert.Equal(t, deadline, *v.(*time.Time))

	v, err = s.GetField(ctx, a, FieldAchieved)
	require.NoError(t, err)
	assert.Equal(t, true, v)

	err = s.SetField(ctx, a, FieldAchieved, "yes")
	assert.ErrorIs(t, err, ErrInvalidField)

	require.NoError(t, s.SetField(ctx, a, FieldDeadline, nil))
	g, err := s.Goal(ctx, a)
	require.NoError(t, err)
	assert.Nil(t, g.Deadline)
}

func TestParseField(t *testing.T) {
	f, err := ParseField("deadline")
	require.NoError(t, err)
	assert.Equal(t, FieldDeadline, f)

	f, err = ParseField("achieved")
	require.NoError(t, err)
	assert.Equal(t, FieldAchieved, f)

	_, err = ParseField("owner")
	assert.ErrorIs(t, err, ErrInvalidField)
}

func TestOverlayDoesNotTouchBase(t *testing.T) {
	s := NewMemStore()
	ctx := context.Background()
	a := insert(t, s, "a")
	b := insert(t, s, "b")

	o := NewOverlay(s)
	o.InsertEdge(a, b)
	require.NoError(t, o.SetField(b, FieldAchieved, true))

	children, err := o.Children(ctx, a)
	require.NoError(t, err)
	require.Len(t, children, 1)
	assert.True(t, children[0].Achieved, "staged fields show through neighbour reads")

	baseChildren, err := s.Children(ctx, a)
	require.NoError(t, err)
	assert.Empty(t, baseChildren)
	stored, err := s.Goal(ctx, b)
	require.NoError(t, err)
	assert.False(t, stored.Achieved)

	require.NoError(t, o.Apply(ctx))
	baseChildren, err = s.Children(ctx, a)
	require.NoError(t, err)
	assert.Equal(t, []GoalID{b}, IDs(baseChildren))
	stored, err = s.Goal(ctx, b)
	require.NoError(t, err)
	assert.True(t, stored.Achieved)
}

func TestOverlayRemoveHidesBaseEdge(t *testing.T) {
	s := NewMemStore()
	ctx := context.Background()
	a := insert(t, s, "a")
	b := insert(t, s, "b")
	require.NoError(t, s.InsertEdge(ctx, a, b))

	o := NewOverlay(s)
	o.RemoveEdge(a, b)
	parents, err := o.Parents(ctx, b)
	require.NoError(t, err)
	assert.Empty(t, parents)

	o.InsertEdge(a, b) // cancels the staged removal
	assert.True(t, o.Empty())
}

func TestOverlayRejectsBadFieldType(t *testing.T) {
	o := NewOverlay(NewMemStore())
	assert.ErrorIs(t, o.SetField(1, FieldDeadline, 42), ErrInvalidField)
}

func TestFamily(t *testing.T) {
	s := NewMemStore()
	ctx := context.Background()
	a := insert(t, s, "a")
	b := insert(t, s, "b")
	c := insert(t, s, "c")
	d := insert(t, s, "d")
	lone := insert(t, s, "lone")

	// a → b ← c, c → d
	require.NoError(t, s.InsertEdge(ctx, a, b))
	require.NoError(t, s.InsertEdge(ctx, c, b))
	require.NoError(t, s.InsertEdge(ctx, c, d))

	fam, err := Family(ctx, s, a)
	require.NoError(t, err)
	assert.Equal(t, []GoalID{a, b, c, d}, fam.Sorted())

	for id := range fam {
		other, err := Family(ctx, s, id)
		require.NoError(t, err)
		assert.True(t, other.Has(a), "family is symmetric")
	}

	fam, err = Family(ctx, s, lone)
	require.NoError(t, err)
	assert.Equal(t, []GoalID{lone}, fam.Sorted())

	_, err = Family(ctx, s, 404)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestFamilyWideGraph(t *testing.T) {
	s := NewMemStore()
	ctx := context.Background()
	root := insert(t, s, "root")
	prev := root
	for i := 0; i < 2000; i++ {
		id := insert(t, s, "n")
		require.NoError(t, s.InsertEdge(ctx, prev, id))
		require.NoError(t, s.InsertEdge(ctx, root, id))
		prev = id
	}

	fam, err := Family(ctx, s, prev)
	require.NoError(t, err)
	assert.Len(t, fam, 2001)
}

// failingStore fails SetField for one field and passes everything else to
// the wrapped MemStore.
type failingStore struct {
	*MemStore
	failOn Field
}

func (f *failingStore) SetField(ctx context.Context, id GoalID, field Field, value any) error {
	if field == f.failOn {
		return errors.New("disk full")
	}
	return f.MemStore.SetField(ctx, id, field, value)
}

func TestOverlayApplyRestoresStoreOnFailure(t *testing.T) {
	s := &failingStore{MemStore: NewMemStore(), failOn: FieldColor}
	ctx := context.Background()
	a := insert(t, s.MemStore, "a")
	b := insert(t, s.MemStore, "b")
	c := insert(t, s.MemStore, "c")
	require.NoError(t, s.InsertEdge(ctx, a, c))

	o := NewOverlay(s)
	o.RemoveEdge(a, c)
	o.InsertEdge(a, b)
	require.NoError(t, o.SetField(b, FieldDescription, "renamed"))
	require.NoError(t, o.SetField(b, FieldColor, "#fff"))

	err := o.Apply(ctx)
	require.ErrorContains(t, err, "disk full")

	stored, err := s.Goal(ctx, b)
	require.NoError(t, err)
	assert.Equal(t, "b", stored.Description)
	assert.Empty(t, stored.Color)

	children, err := s.Children(ctx, a)
	require.NoError(t, err)
	assert.Equal(t, []GoalID{c}, IDs(children))
}

func TestOverlayApplyKeepsPreexistingEdgeOnFailure(t *testing.T) {
	s := &failingStore{MemStore: NewMemStore(), failOn: FieldAchieved}
	ctx := context.Background()
	a := insert(t, s.MemStore, "a")
	b := insert(t, s.MemStore, "b")
	require.NoError(t, s.InsertEdge(ctx, a, b))

	o := NewOverlay(s)
	o.InsertEdge(a, b) // already stored
	require.NoError(t, o.SetField(b, FieldAchieved, true))
	assert.Error(t, o.Apply(ctx))

	children, err := s.Children(ctx, a)
	require.NoError(t, err)
	assert.Equal(t, []GoalID{b}, IDs(children), "rollback must not remove an edge it did not add")
}

func TestGoalDiff(t *testing.T) {
	d1 := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	d2 := d1.In(time.FixedZone("x", 3600))
	g := &Goal{Description: "a", Deadline: &d1}

	assert.Empty(t, g.Diff(&Goal{Description: "a", Deadline: &d2}), "same instant in another zone")
	assert.Equal(t, []Field{FieldDeadline}, g.Diff(&Goal{Description: "a"}))
	assert.Equal(t, []Field{FieldDescription, FieldAchieved, FieldColor},
		g.Diff(&Goal{Description: "b", Deadline: &d1, Achieved: true, Color: "red"}))
}

func TestSnapshotRootsAndFamily(t *testing.T) {
	s := &Snapshot{
		IDs:      []GoalID{1, 2, 3, 4},
		Goals:    map[GoalID]*Goal{1: {ID: 1}, 2: {ID: 2}, 3: {ID: 3}, 4: {ID: 4}},
		Children: map[GoalID][]GoalID{1: {2}, 3: {2}},
		Parents:  map[GoalID][]GoalID{2: {1, 3}},
	}
	assert.Equal(t, []GoalID{1, 3, 4}, s.Roots())
	assert.Equal(t, []GoalID{1, 2, 3}, s.Family(1).Sorted())
	assert.Equal(t, []GoalID{4}, s.Family(4).Sorted())
	assert.Empty(t, s.Family(9))
}
