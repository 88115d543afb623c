package engine

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/stefanpenner/goalgraph/pkg/graph"
	"github.com/stefanpenner/goalgraph/pkg/validate"
)

// txState is the lifecycle of one mutation.
type txState int

const (
	txProposed txState = iota
	txStaged
	txCommitted
	txRolledBack
)

func (s txState) String() string {
	switch s {
	case txProposed:
		return "proposed"
	case txStaged:
		return "staged"
	case txCommitted:
		return "committed"
	case txRolledBack:
		return "rolled-back"
	}
	return fmt.Sprintf("txState(%d)", int(s))
}

func (s txState) terminal() bool {
	return s == txCommitted || s == txRolledBack
}

// tx stages a mutation in an overlay, validates it from one goal and then
// either applies it to the store or drops it.
type tx struct {
	seq     uint64
	op      string
	subject graph.GoalID
	state   txState
	overlay *graph.Overlay
	logger  *slog.Logger
}

func (c *Coordinator) begin(op string, subject graph.GoalID) *tx {
	t := &tx{
		seq:     c.seq.Add(1),
		op:      op,
		subject: subject,
		state:   txProposed,
		overlay: graph.NewOverlay(c.store),
		logger:  c.logger,
	}
	t.logger.Debug("mutation proposed", t.attrs()...)
	return t
}

func (t *tx) attrs() []any {
	return []any{
		slog.Uint64("tx", t.seq),
		slog.String("op", t.op),
		slog.Int64("goal", int64(t.subject)),
		slog.String("state", t.state.String()),
	}
}

func (t *tx) moveTo(next txState) {
	if t.state.terminal() {
		panic(fmt.Sprintf("engine: tx %d already %s", t.seq, t.state))
	}
	t.state = next
	t.logger.Debug("mutation "+next.String(), t.attrs()...)
}

// stage runs fn against the overlay and marks the tx staged.
func (t *tx) stage(fn func(o *graph.Overlay) error) error {
	if err := fn(t.overlay); err != nil {
		t.moveTo(txRolledBack)
		return err
	}
	t.moveTo(txStaged)
	return nil
}

// resolve validates the staged change and commits or rolls back. An empty
// change commits without touching the store.
func (t *tx) resolve(ctx context.Context) error {
	if t.overlay.Empty() {
		t.moveTo(txCommitted)
		return nil
	}
	if err := validate.All(ctx, t.overlay, t.subject); err != nil {
		t.moveTo(txRolledBack)
		if reason, ok := validate.ReasonOf(err); ok {
			t.logger.Info("mutation rejected",
				slog.Uint64("tx", t.seq),
				slog.String("op", t.op),
				slog.Int64("goal", int64(t.subject)),
				slog.String("reason", string(reason)))
		}
		return err
	}
	if err := t.overlay.Apply(ctx); err != nil {
		t.moveTo(txRolledBack)
		return fmt.Errorf("%s: committing: %w", t.op, err)
	}
	t.moveTo(txCommitted)
	return nil
}
