package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"github.com/stefanpenner/goalgraph/pkg/config"
	"github.com/stefanpenner/goalgraph/pkg/engine"
	"github.com/stefanpenner/goalgraph/pkg/graph"
	"github.com/stefanpenner/goalgraph/pkg/logging"
	"github.com/stefanpenner/goalgraph/pkg/store"
	"github.com/stefanpenner/goalgraph/pkg/store/sqlite"
	"github.com/stefanpenner/goalgraph/pkg/validate"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		if reason, ok := validate.ReasonOf(err); ok {
			fmt.Fprintf(os.Stderr, "Rejected: %s\n", reason)
		} else {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		}
		os.Exit(1)
	}
}

// app is the state shared by every command of one invocation.
type app struct {
	dir     string
	json    bool
	cfg     *config.Config
	logger  *slog.Logger
	store   graph.Store
	coord   *engine.Coordinator
	reload  func() error
	closers []io.Closer
}

func newRootCmd() *cobra.Command {
	a := &app{}

	root := &cobra.Command{
		Use:   "goalgraph",
		Short: "Goals with deadlines, arranged as a graph that stays consistent",
		Long: `goalgraph keeps goals in a directed acyclic graph. Every change is
checked before it is saved: a child's deadline may not precede its parent's,
a goal may not be achieved before its parent, and no edge may form a cycle.

Run without a command to open the interactive browser.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.open()
		},
		PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
			return a.close()
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.runTUI(cmd)
		},
	}

	root.PersistentFlags().StringVar(&a.dir, "dir", "", "data directory (default: $GOALGRAPH_DIR or the OS data dir)")
	root.PersistentFlags().BoolVar(&a.json, "json", false, "print JSON output")

	root.AddCommand(
		newAddCmd(a),
		newListCmd(a),
		newShowCmd(a),
		newFamilyCmd(a),
		newLinkCmd(a),
		newUnlinkCmd(a),
		newSetCmd(a),
		newDeleteCmd(a),
		newInitCmd(a),
		newSyncCmd(a),
		newTUICmd(a),
	)
	return root
}

func (a *app) open() error {
	cfg, err := config.Load(config.New(), a.dir)
	if err != nil {
		return err
	}
	a.cfg = cfg

	logger, closer, err := logging.New(cfg.Log)
	if err != nil {
		return err
	}
	a.logger = logger
	a.closers = append(a.closers, closer)

	switch cfg.Backend {
	case config.BackendFile:
		s, err := store.NewStore(cfg.DataDir)
		if err != nil {
			return err
		}
		a.store, a.reload = s, s.Reload
	case config.BackendSQLite:
		if err := os.MkdirAll(cfg.DataDir, 0755); err != nil {
			return fmt.Errorf("creating data directory: %w", err)
		}
		s, err := sqlite.Open(cfg.SQLitePath())
		if err != nil {
			return err
		}
		a.store = s
		a.closers = append(a.closers, s)
	case config.BackendMemory:
		a.store = graph.NewMemStore()
	}

	a.coord = engine.New(a.store, engine.WithLogger(logger))
	logger.Debug("opened goal store", slog.String("backend", string(cfg.Backend)), slog.String("dir", cfg.DataDir))
	return nil
}

func (a *app) close() error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		errs = append(errs, a.closers[i].Close())
	}
	a.closers = nil
	return errors.Join(errs...)
}

func parseID(s string) (graph.GoalID, error) {
	n, err := strconv.ParseInt(strings.TrimPrefix(s, "#"), 10, 64)
	if err != nil || n <= 0 {
		return 0, fmt.Errorf("invalid goal ID %q", s)
	}
	return graph.GoalID(n), nil
}

// parseDeadline accepts YYYY-MM-DD (local time), RFC 3339, or "none".
func parseDeadline(s string) (*time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" || s == "none" {
		return nil, nil
	}
	if t, err := time.ParseInLocation(time.DateOnly, s, time.Local); err == nil {
		return &t, nil
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return nil, fmt.Errorf("invalid deadline %q (use YYYY-MM-DD, RFC 3339 or none)", s)
	}
	return &t, nil
}

// JSON helpers

func outputJSON(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func goalToMap(g *graph.Goal) map[string]interface{} {
	m := map[string]interface{}{
		"id":          int64(g.ID),
		"description": g.Description,
		"achieved":    g.Achieved,
	}
	if g.Deadline != nil {
		m["deadline"] = g.Deadline.UTC().Format(time.RFC3339)
	}
	if g.Color != "" {
		m["color"] = g.Color
	}
	if !g.Created.IsZero() {
		m["created"] = g.Created.UTC().Format(time.RFC3339)
	}
	if !g.Updated.IsZero() {
		m["updated"] = g.Updated.UTC().Format(time.RFC3339)
	}
	return m
}

func idsToInts(ids []graph.GoalID) []int64 {
	out := make([]int64, len(ids))
	for i, id := range ids {
		out[i] = int64(id)
	}
	return out
}

func title(g *graph.Goal) string {
	name, _, _ := strings.Cut(strings.TrimSpace(g.Description), "\n")
	if name == "" {
		return "(untitled)"
	}
	return name
}

func statusIcon(g *graph.Goal) string {
	if g.Achieved {
		return "✓"
	}
	return "○"
}
