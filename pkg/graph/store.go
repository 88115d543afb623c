// Package graph defines the goal graph model and the store contract the
// integrity engine is written against.
//
// Parents and children are two views of one edge relation. Every store keeps
// that relation in a single structure so the views cannot disagree.
package graph

import (
	"context"
	"errors"
)

var (
	ErrNotFound          = errors.New("goal not found")
	ErrUncommitted       = errors.New("goal has no identity yet")
	ErrAlreadyCommitted  = errors.New("goal already has an identity")
	ErrInvalidField      = errors.New("invalid field")
	ErrStoreNotAvailable = errors.New("store is not configured")
)

// View is read access to a goal graph. Neighbour slices are ordered by edge
// insertion and contain each goal once.
type View interface {
	Goal(ctx context.Context, id GoalID) (*Goal, error)
	Parents(ctx context.Context, id GoalID) ([]*Goal, error)
	Children(ctx context.Context, id GoalID) ([]*Goal, error)
}

// Store is durable read/write access to a goal graph.
//
// InsertEdge and RemoveEdge are idempotent. SetField is visible to the next
// read. Insert assigns an identity exactly once; identities are never reused.
type Store interface {
	View

	InsertEdge(ctx context.Context, parent, child GoalID) error
	RemoveEdge(ctx context.Context, parent, child GoalID) error

	GetField(ctx context.Context, id GoalID, field Field) (any, error)
	SetField(ctx context.Context, id GoalID, field Field, value any) error

	Insert(ctx context.Context, g *Goal) (GoalID, error)
	Delete(ctx context.Context, id GoalID) error

	IDs(ctx context.Context) ([]GoalID, error)
}

// IDs extracts identities from goals, preserving order.
func IDs(goals []*Goal) []GoalID {
	out := make([]GoalID, len(goals))
	for i, g := range goals {
		out[i] = g.ID
	}
	return out
}
