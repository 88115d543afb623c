package main

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"
	"github.com/stefanpenner/goalgraph/pkg/graph"
)

func newSetCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "set",
		Short: "Change a field of a goal",
	}

	cmd.AddCommand(
		fieldCmd(a, "deadline <id> <date|none>", "Set or clear the deadline",
			func(ctx context.Context, g *graph.Goal, value string) error {
				d, err := parseDeadline(value)
				if err != nil {
					return err
				}
				return a.coord.SetDeadline(ctx, g, d)
			}),
		fieldCmd(a, "achieved <id> <true|false>", "Mark a goal achieved or open",
			func(ctx context.Context, g *graph.Goal, value string) error {
				achieved, err := strconv.ParseBool(value)
				if err != nil {
					return fmt.Errorf("invalid achieved value %q", value)
				}
				return a.coord.SetAchieved(ctx, g, achieved)
			}),
		fieldCmd(a, "description <id> <text>", "Replace the description",
			func(ctx context.Context, g *graph.Goal, value string) error {
				return a.coord.SetDescription(ctx, g, value)
			}),
		fieldCmd(a, "color <id> <color|none>", "Set or clear the display color",
			func(ctx context.Context, g *graph.Goal, value string) error {
				if value == "none" {
					value = ""
				}
				return a.coord.SetColor(ctx, g, value)
			}),
	)
	return cmd
}

// fieldCmd builds a "set <field> <id> <value...>" subcommand. Remaining
// arguments are joined with spaces into the value.
func fieldCmd(a *app, use, short string, apply func(context.Context, *graph.Goal, string) error) *cobra.Command {
	return &cobra.Command{
		Use:   use,
		Short: short,
		Args:  cobra.MinimumNArgs(2),
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
			if err := apply(ctx, g, strings.Join(args[1:], " ")); err != nil {
				return err
			}
			if a.json {
				return outputJSON(cmd.OutOrStdout(), goalToMap(g))
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Updated: #%d %s\n", g.ID, title(g))
			return nil
		},
	}
}
