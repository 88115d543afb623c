// Package validate checks goal graph invariants around a single goal.
//
// Deadline and Completion are local: they look at immediate neighbours only.
// Every committed edge was validated when it was added, so local checks on
// the mutated goal keep the whole graph consistent. Acyclic walks everything
// reachable below the goal.
package validate

import (
	"context"
	"errors"

	"github.com/stefanpenner/goalgraph/pkg/graph"
)

// Reason is the fixed, user-facing cause of a rejected mutation.
type Reason string

const (
	ReasonDeadlineBeforeParent Reason = "deadline before parent"
	ReasonDeadlineAfterChild   Reason = "deadline after child"
	ReasonAchievedBeforeParent Reason = "goal achieved before its parent"
	ReasonChildAchievedFirst   Reason = "child achieved before this goal"
	ReasonFormsCycle           Reason = "forms cycle"
)

// ErrViolation matches every *Violation under errors.Is.
var ErrViolation = errors.New("invariant violation")

// Violation reports a broken invariant, seen from Goal.
type Violation struct {
	Goal   graph.GoalID
	Reason Reason
}

func (v *Violation) Error() string {
	if v == nil {
		return ""
	}
	return string(v.Reason)
}

func (v *Violation) Is(target error) bool {
	return target == ErrViolation
}

func violation(id graph.GoalID, r Reason) error {
	return &Violation{Goal: id, Reason: r}
}

// ReasonOf returns the violation reason carried by err, if any.
func ReasonOf(err error) (Reason, bool) {
	var v *Violation
	if errors.As(err, &v) {
		return v.Reason, true
	}
	return "", false
}

// Check is one invariant check.
type Check func(ctx context.Context, v graph.View, id graph.GoalID) error

// Deadline fails if the goal's deadline is earlier than a parent's or later
// than a child's. A missing deadline on either side is never compared.
func Deadline(ctx context.Context, v graph.View, id graph.GoalID) error {
	g, err := v.Goal(ctx, id)
	if err != nil {
		return err
	}
	if !g.HasDeadline() {
		return nil
	}

	parents, err := v.Parents(ctx, id)
	if err != nil {
		return err
	}
	for _, p := range parents {
		if p.HasDeadline() && g.Deadline.Before(*p.Deadline) {
			return violation(id, ReasonDeadlineBeforeParent)
		}
	}

	children, err := v.Children(ctx, id)
	if err != nil {
		return err
	}
	for _, c := range children {
		if c.HasDeadline() && g.Deadline.After(*c.Deadline) {
			return violation(id, ReasonDeadlineAfterChild)
		}
	}
	return nil
}

// Completion fails if an achieved goal has an unachieved parent, or an
// unachieved goal has an achieved child.
func Completion(ctx context.Context, v graph.View, id graph.GoalID) error {
	g, err := v.Goal(ctx, id)
	if err != nil {
		return err
	}

	if g.Achieved {
		parents, err := v.Parents(ctx, id)
		if err != nil {
			return err
		}
		for _, p := range parents {
			if !p.Achieved {
				return violation(id, ReasonAchievedBeforeParent)
			}
		}
		return nil
	}

	children, err := v.Children(ctx, id)
	if err != nil {
		return err
	}
	for _, c := range children {
		if c.Achieved {
			return violation(id, ReasonChildAchievedFirst)
		}
	}
	return nil
}

// Acyclic fails if the goal can reach itself over child edges.
//
// It assumes the graph was acyclic before the mutation being checked, so any
// new cycle must pass through this goal and one traversal from it suffices.
func Acyclic(ctx context.Context, v graph.View, id graph.GoalID) error {
	children, err := v.Children(ctx, id)
	if err != nil {
		return err
	}

	visited := graph.NewIDSet()
	stack := graph.IDs(children)
	for len(stack) > 0 {
		cur := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		if cur == id {
			return violation(id, ReasonFormsCycle)
		}
		if !visited.Add(cur) {
			continue
		}

		next, err := v.Children(ctx, cur)
		if err != nil {
			return err
		}
		for _, c := range next {
			if !visited.Has(c.ID) {
				stack = append(stack, c.ID)
			}
		}
	}
	return nil
}

// order decides which reason is reported when several invariants break at once.
var order = []Check{Deadline, Completion, Acyclic}

// All runs Deadline, Completion and Acyclic in that order and returns the
// first failure.
func All(ctx context.Context, v graph.View, id graph.GoalID) error {
	for _, check := range order {
		if err := check(ctx, v, id); err != nil {
			return err
		}
	}
	return nil
}
