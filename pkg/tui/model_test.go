package tui

import (
	"context"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stefanpenner/goalgraph/pkg/engine"
	"github.com/stefanpenner/goalgraph/pkg/graph"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func runeKey(r rune) tea.KeyMsg {
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{r}}
}

func press(t *testing.T, m Model, msgs ...tea.Msg) Model {
	t.Helper()
	for _, msg := range msgs {
		next, _ := m.Update(msg)
		m = next.(Model)
	}
	return m
}

func typeText(t *testing.T, m Model, text string) Model {
	t.Helper()
	for _, r := range text {
		m = press(t, m, runeKey(r))
	}
	return m
}

func newTestModel(t *testing.T, c *engine.Coordinator) Model {
	t.Helper()
	m := NewModel(c, Options{})
	m.width, m.height = 100, 30
	m.reload()
	return m
}

func goal(t *testing.T, c *engine.Coordinator, id graph.GoalID) *graph.Goal {
	t.Helper()
	g, err := c.Goal(context.Background(), id)
	require.NoError(t, err)
	return g
}

func TestToggleAchievedShowsRejection(t *testing.T) {
	c := newCoordinator(t)
	parent := addGoal(t, c, "parent")
	child := addGoal(t, c, "child", parent)
	m := newTestModel(t, c)

	// Expand the parent and select the child.
	m = press(t, m, runeKey('l'), runeKey('j'))
	item, ok := m.selected()
	require.True(t, ok)
	require.Equal(t, child, item.Goal.ID)

	m = press(t, m, tea.KeyMsg{Type: tea.KeySpace})
	assert.Equal(t, "Rejected: goal achieved before its parent", m.statusMsg)
	assert.True(t, m.statusRejected)
	assert.False(t, goal(t, c, child).Achieved)

	// Achieve the parent first, then the child.
	m = press(t, m, runeKey('k'), tea.KeyMsg{Type: tea.KeySpace})
	assert.True(t, goal(t, c, parent).Achieved)
	m = press(t, m, runeKey('j'), tea.KeyMsg{Type: tea.KeySpace})
	assert.True(t, goal(t, c, child).Achieved)
	assert.False(t, m.statusRejected)
}

func TestAddTopLevelAndSubGoal(t *testing.T) {
	c := newCoordinator(t)
	m := newTestModel(t, c)

	m = press(t, m, runeKey('A'))
	m = typeText(t, m, "root")
	m = press(t, m, tea.KeyMsg{Type: tea.KeyEnter})
	require.Len(t, m.visibleItems, 1)
	root := m.visibleItems[0].Goal.ID

	m = press(t, m, runeKey('a'))
	m = typeText(t, m, "leaf")
	m = press(t, m, tea.KeyMsg{Type: tea.KeyEnter})

	kids, err := c.Children(context.Background(), root)
	require.NoError(t, err)
	require.Len(t, kids, 1)
	assert.Equal(t, "leaf", kids[0].Description)

	item, ok := m.selected()
	require.True(t, ok)
	assert.Equal(t, kids[0].ID, item.Goal.ID, "cursor follows the new goal")
}

func TestAchievedParentAcceptsOpenSubGoal(t *testing.T) {
	c := newCoordinator(t)
	parent := addGoal(t, c, "done")
	require.NoError(t, c.SetAchieved(context.Background(), goal(t, c, parent), true))
	m := newTestModel(t, c)

	m = press(t, m, runeKey('a'))
	m = typeText(t, m, "follow-up")
	m = press(t, m, tea.KeyMsg{Type: tea.KeyEnter})

	assert.False(t, m.statusRejected)
	kids, err := c.Children(context.Background(), parent)
	require.NoError(t, err)
	require.Len(t, kids, 1)
	assert.False(t, kids[0].Achieved)
}

func TestLinkPromptRejectsCycle(t *testing.T) {
	c := newCoordinator(t)
	a := addGoal(t, c, "a")
	addGoal(t, c, "b", a)
	m := newTestModel(t, c)

	// Try to make b (id 2) the parent of a.
	m = press(t, m, runeKey('p'))
	m = typeText(t, m, "2")
	m = press(t, m, tea.KeyMsg{Type: tea.KeyEnter})
	assert.Equal(t, "Rejected: forms cycle", m.statusMsg)
}

func TestUnlinkAndDelete(t *testing.T) {
	c := newCoordinator(t)
	a := addGoal(t, c, "a")
	b := addGoal(t, c, "b", a)
	m := newTestModel(t, c)

	m = press(t, m, runeKey('l'), runeKey('j'), runeKey('u'))
	kids, err := c.Children(context.Background(), a)
	require.NoError(t, err)
	assert.Empty(t, kids)

	// b is a root now; select it and delete.
	m.moveCursorToGoal(b)
	m = press(t, m, runeKey('d'))
	assert.True(t, m.showDeleteConfirm)
	m = press(t, m, runeKey('y'))
	_, err = c.Goal(context.Background(), b)
	assert.ErrorIs(t, err, graph.ErrNotFound)
}

func TestSetDeadlineViaPrompt(t *testing.T) {
	c := newCoordinator(t)
	parent := addGoal(t, c, "parent")
	addGoal(t, c, "child", parent)
	ctx := context.Background()

	late := time.Date(2026, 9, 1, 0, 0, 0, 0, time.UTC)
	require.NoError(t, c.SetDeadline(ctx, goal(t, c, parent), &late))
	m := newTestModel(t, c)

	m = press(t, m, runeKey('l'), runeKey('j'), runeKey('D'))
	m = typeText(t, m, "2026-01-01")
	m = press(t, m, tea.KeyMsg{Type: tea.KeyEnter})
	assert.Equal(t, "Rejected: deadline before parent", m.statusMsg)
}

func TestFamilyFilterToggle(t *testing.T) {
	c := newCoordinator(t)
	a := addGoal(t, c, "a")
	addGoal(t, c, "a1", a)
	addGoal(t, c, "other")
	m := newTestModel(t, c)
	require.Len(t, m.visibleItems, 2)

	m = press(t, m, runeKey('f'))
	require.NotNil(t, m.family)
	assert.Len(t, m.visibleItems, 1)
	assert.Contains(t, m.View(), "family of #1")

	m = press(t, m, runeKey('f'))
	assert.Nil(t, m.family)
	assert.Len(t, m.visibleItems, 2)
}

func TestColorCycle(t *testing.T) {
	c := newCoordinator(t)
	a := addGoal(t, c, "a")
	m := newTestModel(t, c)

	m = press(t, m, runeKey('c'))
	assert.Equal(t, GoalColors[1], goal(t, c, a).Color)
	press(t, m, runeKey('c'))
	assert.Equal(t, GoalColors[2], goal(t, c, a).Color)
}

func TestFileChangedCallsReload(t *testing.T) {
	c := newCoordinator(t)
	calls := 0
	m := NewModel(c, Options{Reload: func() error { calls++; return nil }})

	m = press(t, m, FileChangedMsg{})
	assert.Equal(t, 1, calls)
}

func TestViewRendersWithoutGoals(t *testing.T) {
	m := newTestModel(t, newCoordinator(t))
	assert.Contains(t, m.View(), "No goals yet")
}
