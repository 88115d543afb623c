package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
	"github.com/stefanpenner/goalgraph/pkg/graph"
)

func newAddCmd(a *app) *cobra.Command {
	var (
		parents  []string
		deadline string
		color    string
	)
	cmd := &cobra.Command{
		Use:   "add <description>",
		Short: "Create a goal, optionally under one or more parents",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			g := &graph.Goal{Description: strings.Join(args, " "), Color: color}
			d, err := parseDeadline(deadline)
			if err != nil {
				return err
			}
			g.Deadline = d

			var parentIDs []graph.GoalID
			for _, p := range parents {
				id, err := parseID(p)
				if err != nil {
					return err
				}
				parentIDs = append(parentIDs, id)
			}

			if err := a.coord.Commit(ctx, g); err != nil {
				return err
			}
			for _, p := range parentIDs {
				if err := a.coord.AddParentEdge(ctx, p, g.ID); err != nil {
					// Don't leave a half-linked goal behind.
					_ = a.coord.Delete(ctx, g.ID)
					return err
				}
			}

			if a.json {
				return outputJSON(cmd.OutOrStdout(), goalToMap(g))
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Created: #%d %s\n", g.ID, title(g))
			return nil
		},
	}
	cmd.Flags().StringSliceVarP(&parents, "parent", "p", nil, "parent goal ID (repeatable)")
	cmd.Flags().StringVar(&deadline, "deadline", "", "deadline (YYYY-MM-DD or RFC 3339)")
	cmd.Flags().StringVar(&color, "color", "", "display color, e.g. #E05252")
	return cmd
}

func newListCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "Print the goal graph as a tree from its roots",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			snap, err := a.coord.Snapshot(cmd.Context())
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()

			if a.json {
				result := make([]map[string]interface{}, 0, len(snap.IDs))
				for _, id := range snap.IDs {
					m := goalToMap(snap.Goals[id])
					m["children"] = idsToInts(snap.Children[id])
					result = append(result, m)
				}
				return outputJSON(out, result)
			}

			roots := snap.Roots()
			if len(roots) == 0 {
				fmt.Fprintln(out, "No goals yet. Use 'goalgraph add' to create one.")
				return nil
			}

			type frame struct {
				id    graph.GoalID
				depth int
			}
			stack := make([]frame, 0, len(roots))
			for i := len(roots) - 1; i >= 0; i-- {
				stack = append(stack, frame{roots[i], 0})
			}
			for len(stack) > 0 {
				f := stack[len(stack)-1]
				stack = stack[:len(stack)-1]
				g := snap.Goals[f.id]

				line := fmt.Sprintf("%s%s #%d %s", strings.Repeat("  ", f.depth), statusIcon(g), g.ID, title(g))
				if g.Deadline != nil {
					line += " [due " + g.Deadline.Local().Format("2006-01-02") + "]"
				}
				fmt.Fprintln(out, line)

				kids := snap.Children[f.id]
				for i := len(kids) - 1; i >= 0; i-- {
					stack = append(stack, frame{kids[i], f.depth + 1})
				}
			}
			return nil
		},
	}
}

func newShowCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "show <id>",
		Short: "Show one goal with its parents and children",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			g, err := a.coord.Goal(ctx, id)
			if err != nil {
				return err
			}
			parents, err := a.coord.Parents(ctx, id)
			if err != nil {
				return err
			}
			kids, err := a.coord.Children(ctx, id)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if a.json {
				m := goalToMap(g)
				m["parents"] = idsToInts(graph.IDs(parents))
				m["children"] = idsToInts(graph.IDs(kids))
				return outputJSON(out, m)
			}

			status := "open"
			if g.Achieved {
				status = "achieved"
			}
			fmt.Fprintf(out, "#%d %s: %s\n", g.ID, title(g), status)
			if g.Deadline != nil {
				fmt.Fprintf(out, "Deadline: %s\n", g.Deadline.Local().Format("2006-01-02 15:04"))
			}
			if g.Color != "" {
				fmt.Fprintf(out, "Color: %s\n", g.Color)
			}
			printRelatives(cmd, "Parents", parents)
			printRelatives(cmd, "Children", kids)
			if strings.Contains(strings.TrimSpace(g.Description), "\n") {
				fmt.Fprintln(out)
				fmt.Fprintln(out, g.Description)
			}
			return nil
		},
	}
}

func printRelatives(cmd *cobra.Command, label string, goals []*graph.Goal) {
	if len(goals) == 0 {
		return
	}
	fmt.Fprintf(cmd.OutOrStdout(), "%s:\n", label)
	for _, g := range goals {
		fmt.Fprintf(cmd.OutOrStdout(), "  %s #%d %s\n", statusIcon(g), g.ID, title(g))
	}
}

func newFamilyCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "family <id>",
		Short: "List every goal connected to a goal through any edges",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			snap, err := a.coord.Snapshot(cmd.Context())
			if err != nil {
				return err
			}
			if _, ok := snap.Goals[id]; !ok {
				return fmt.Errorf("goal %d: %w", id, graph.ErrNotFound)
			}
			ids := snap.Family(id).Sorted()
			if a.json {
				return outputJSON(cmd.OutOrStdout(), map[string]interface{}{
					"goal":   int64(id),
					"family": idsToInts(ids),
				})
			}
			for _, member := range ids {
				g := snap.Goals[member]
				fmt.Fprintf(cmd.OutOrStdout(), "%s #%d %s\n", statusIcon(g), g.ID, title(g))
			}
			return nil
		},
	}
}

func newDeleteCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete a goal and the edges touching it",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			if err := a.coord.Delete(cmd.Context(), id); err != nil {
				return err
			}
			if a.json {
				return outputJSON(cmd.OutOrStdout(), map[string]int64{"deleted": int64(id)})
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Deleted: #%d\n", id)
			return nil
		},
	}
}
