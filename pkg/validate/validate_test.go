package validate

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stefanpenner/goalgraph/pkg/graph"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func day(d int) *time.Time {
	t := time.Date(2025, 1, d, 0, 0, 0, 0, time.UTC)
	return &t
}

type fixture struct {
	t     *testing.T
	store *graph.MemStore
}

func newFixture(t *testing.T) *fixture {
	return &fixture{t: t, store: graph.NewMemStore()}
}

func (f *fixture) goal(g graph.Goal) graph.GoalID {
	f.t.Helper()
	id, err := f.store.Insert(context.Background(), &g)
	require.NoError(f.t, err)
	return id
}

func (f *fixture) edge(parent, child graph.GoalID) {
	f.t.Helper()
	require.NoError(f.t, f.store.InsertEdge(context.Background(), parent, child))
}

func TestDeadline(t *testing.T) {
	tests := []struct {
		name       string
		parent     *time.Time
		child      *time.Time
		fromChild  Reason
		fromParent Reason
	}{
		{name: "ordered", parent: day(1), child: day(5)},
		{name: "equal", parent: day(3), child: day(3)},
		{name: "no parent deadline", parent: nil, child: day(5)},
		{name: "no child deadline", parent: day(5), child: nil},
		{name: "neither", parent: nil, child: nil},
		{name: "inverted", parent: day(5), child: day(1),
			fromChild: ReasonDeadlineBeforeParent, fromParent: ReasonDeadlineAfterChild},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			p := f.goal(graph.Goal{Deadline: tt.parent})
			c := f.goal(graph.Goal{Deadline: tt.child})
			f.edge(p, c)
			ctx := context.Background()

			err := Deadline(ctx, f.store, c)
			if tt.fromChild == "" {
				assert.NoError(t, err)
			} else {
				r, ok := ReasonOf(err)
				require.True(t, ok)
				assert.Equal(t, tt.fromChild, r)
			}

			err = Deadline(ctx, f.store, p)
			if tt.fromParent == "" {
				assert.NoError(t, err)
			} else {
				r, ok := ReasonOf(err)
				require.True(t, ok)
				assert.Equal(t, tt.fromParent, r)
			}
		})
	}
}

func TestCompletion(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	p := f.goal(graph.Goal{})
	c := f.goal(graph.Goal{Achieved: true})
	f.edge(p, c)

	err := Completion(ctx, f.store, c)
	r, _ := ReasonOf(err)
	assert.Equal(t, ReasonAchievedBeforeParent, r)

	err = Completion(ctx, f.store, p)
	r, _ = ReasonOf(err)
	assert.Equal(t, ReasonChildAchievedFirst, r)

	require.NoError(t, f.store.SetField(ctx, p, graph.FieldAchieved, true))
	assert.NoError(t, Completion(ctx, f.store, c))
	assert.NoError(t, Completion(ctx, f.store, p))
}

func TestCompletionUnachievedChildIsFine(t *testing.T) {
	f := newFixture(t)
	p := f.goal(graph.Goal{Achieved: true})
	c := f.goal(graph.Goal{})
	f.edge(p, c)

	assert.NoError(t, Completion(context.Background(), f.store, p))
	assert.NoError(t, Completion(context.Background(), f.store, c))
}

func TestAcyclic(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	a := f.goal(graph.Goal{})
	b := f.goal(graph.Goal{})
	c := f.goal(graph.Goal{})
	f.edge(a, b)
	f.edge(b, c)

	assert.NoError(t, Acyclic(ctx, f.store, a))

	o := graph.NewOverlay(f.store)
	o.InsertEdge(c, a)
	for _, id := range []graph.GoalID{a, b, c} {
		r, ok := ReasonOf(Acyclic(ctx, o, id))
		require.True(t, ok, "cycle visible from %d", id)
		assert.Equal(t, ReasonFormsCycle, r)
	}
}

func TestAcyclicSelfLoop(t *testing.T) {
	f := newFixture(t)
	a := f.goal(graph.Goal{})

	o := graph.NewOverlay(f.store)
	o.InsertEdge(a, a)
	r, _ := ReasonOf(Acyclic(context.Background(), o, a))
	assert.Equal(t, ReasonFormsCycle, r)
}

func TestAcyclicDiamondIsNotACycle(t *testing.T) {
	f := newFixture(t)
	a := f.goal(graph.Goal{})
	b := f.goal(graph.Goal{})
	c := f.goal(graph.Goal{})
	d := f.goal(graph.Goal{})
	f.edge(a, b)
	f.edge(a, c)
	f.edge(b, d)
	f.edge(c, d)

	assert.NoError(t, Acyclic(context.Background(), f.store, a))
}

func TestAcyclicDeepChain(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	first := f.goal(graph.Goal{})
	prev := first
	for i := 0; i < 10000; i++ {
		next := f.goal(graph.Goal{})
		f.edge(prev, next)
		prev = next
	}
	assert.NoError(t, Acyclic(ctx, f.store, first))

	o := graph.NewOverlay(f.store)
	o.InsertEdge(prev, first)
	r, _ := ReasonOf(Acyclic(ctx, o, first))
	assert.Equal(t, ReasonFormsCycle, r)
}

func TestAllReportsFirstFailureInOrder(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	p := f.goal(graph.Goal{Deadline: day(5)})
	c := f.goal(graph.Goal{Deadline: day(1), Achieved: true})
	f.edge(p, c)

	// deadline and completion both broken: deadline wins
	r, _ := ReasonOf(All(ctx, f.store, c))
	assert.Equal(t, ReasonDeadlineBeforeParent, r)

	require.NoError(t, f.store.SetField(ctx, c, graph.FieldDeadline, nil))
	r, _ = ReasonOf(All(ctx, f.store, c))
	assert.Equal(t, ReasonAchievedBeforeParent, r)

	require.NoError(t, f.store.SetField(ctx, c, graph.FieldAchieved, false))
	assert.NoError(t, All(ctx, f.store, c))
}

func TestStoreErrorsAreNotViolations(t *testing.T) {
	f := newFixture(t)
	err := All(context.Background(), f.store, 42)
	require.Error(t, err)
	assert.ErrorIs(t, err, graph.ErrNotFound)
	assert.False(t, errors.Is(err, ErrViolation))
}

func TestViolationError(t *testing.T) {
	err := fmt.Errorf("linking: %w", &Violation{Goal: 3, Reason: ReasonFormsCycle})
	assert.ErrorIs(t, err, ErrViolation)
	assert.Equal(t, "linking: forms cycle", err.Error())

	r, ok := ReasonOf(err)
	assert.True(t, ok)
	assert.Equal(t, ReasonFormsCycle, r)

	_, ok = ReasonOf(errors.New("boom"))
	assert.False(t, ok)
}
