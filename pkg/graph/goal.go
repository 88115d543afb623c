package graph

import (
	"fmt"
	"sort"
	"time"
)

// GoalID identifies a committed goal. The zero value means the goal has not
// been committed to a store yet.
type GoalID int64

// Committed reports whether the ID was assigned by a store.
func (id GoalID) Committed() bool {
	return id > 0
}

func (id GoalID) String() string {
	return fmt.Sprintf("%d", int64(id))
}

// Goal is a node in the goal graph.
type Goal struct {
	ID          GoalID
	Description string
	Deadline    *time.Time // nil means unconstrained
	Achieved    bool
	Color       string

	Created time.Time
	Updated time.Time
}

// IsCommitted returns true once a store has assigned the goal an identity.
func (g *Goal) IsCommitted() bool {
	return g != nil && g.ID.Committed()
}

// HasDeadline returns true if the goal carries a deadline.
func (g *Goal) HasDeadline() bool {
	return g.Deadline != nil
}

// Clone returns a deep copy of the goal.
func (g *Goal) Clone() *Goal {
	if g == nil {
		return nil
	}
	c := *g
	if g.Deadline != nil {
		d := *g.Deadline
		c.Deadline = &d
	}
	return &c
}

// Field names a mutable goal attribute.
type Field string

const (
	FieldDescription Field = "description"
	FieldDeadline    Field = "deadline"
	FieldAchieved    Field = "is_achieved"
	FieldColor       Field = "color"
)

// Fields lists every mutable field in a stable order.
var Fields = []Field{FieldDescription, FieldDeadline, FieldAchieved, FieldColor}

// ParseField maps a field name to a Field.
func ParseField(name string) (Field, error) {
	for _, f := range Fields {
		if string(f) == name {
			return f, nil
		}
	}
	if name == "achieved" {
		return FieldAchieved, nil
	}
	return "", fmt.Errorf("%w: unknown field %q", ErrInvalidField, name)
}

// Get returns the current value of field f.
// Deadlines are returned as *time.Time (nil when unset).
func (g *Goal) Get(f Field) (any, error) {
	switch f {
	case FieldDescription:
		return g.Description, nil
	case FieldDeadline:
		if g.Deadline == nil {
			return (*time.Time)(nil), nil
		}
		d := *g.Deadline
		return &d, nil
	case FieldAchieved:
		return g.Achieved, nil
	case FieldColor:
		return g.Color, nil
	}
	return nil, fmt.Errorf("%w: unknown field %q", ErrInvalidField, f)
}

// Set assigns value to field f, checking the value's type.
// A deadline accepts time.Time, *time.Time or nil.
func (g *Goal) Set(f Field, value any) error {
	switch f {
	case FieldDescription, FieldColor:
		s, ok := value.(string)
		if !ok {
			return fmt.Errorf("%w: %s wants a string, got %T", ErrInvalidField, f, value)
		}
		if f == FieldDescription {
			g.Description = s
		} else {
			g.Color = s
		}
	case FieldDeadline:
		switch v := value.(type) {
		case nil:
			g.Deadline = nil
		case time.Time:
			g.Deadline = &v
		case *time.Time:
			if v == nil {
				g.Deadline = nil
			} else {
				d := *v
				g.Deadline = &d
			}
		default:
			return fmt.Errorf("%w: deadline wants a time, got %T", ErrInvalidField, value)
		}
	case FieldAchieved:
		b, ok := value.(bool)
		if !ok {
			return fmt.Errorf("%w: is_achieved wants a bool, got %T", ErrInvalidField, value)
		}
		g.Achieved = b
	default:
		return fmt.Errorf("%w: unknown field %q", ErrInvalidField, f)
	}
	return nil
}

// Diff lists the fields whose values differ between g and other, in Fields
// order. Deadlines compare as instants.
func (g *Goal) Diff(other *Goal) []Field {
	var out []Field
	if g.Description != other.Description {
		out = append(out, FieldDescription)
	}
	if !sameDeadline(g.Deadline, other.Deadline) {
		out = append(out, FieldDeadline)
	}
	if g.Achieved != other.Achieved {
		out = append(out, FieldAchieved)
	}
	if g.Color != other.Color {
		out = append(out, FieldColor)
	}
	return out
}

func sameDeadline(a, b *time.Time) bool {
	if a == nil || b == nil {
		return a == b
	}
	return a.Equal(*b)
}

// Edge is a parent→child relationship between two committed goals.
type Edge struct {
	Parent GoalID
	Child  GoalID
}

// IDSet is a set of goal identities.
type IDSet map[GoalID]struct{}

// NewIDSet builds a set from ids.
func NewIDSet(ids ...GoalID) IDSet {
	s := make(IDSet, len(ids))
	for _, id := range ids {
		s[id] = struct{}{}
	}
	return s
}

// Add inserts id and reports whether it was new.
func (s IDSet) Add(id GoalID) bool {
	if _, ok := s[id]; ok {
		return false
	}
	s[id] = struct{}{}
	return true
}

// Has reports membership.
func (s IDSet) Has(id GoalID) bool {
	_, ok := s[id]
	return ok
}

// Sorted returns the members in ascending order.
func (s IDSet) Sorted() []GoalID {
	out := make([]GoalID, 0, len(s))
	for id := range s {
		out = append(out, id)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// ContainsAll reports whether every member of other is in s.
func (s IDSet) ContainsAll(other IDSet) bool {
	for id := range other {
		if !s.Has(id) {
			return false
		}
	}
	return true
}
