package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newLinkCmd(a *app) *cobra.Command {
	var side string
	cmd := &cobra.Command{
		Use:   "link <parent> <child>",
		Short: "Add a parent→child edge",
		Long: `Add a parent→child edge. The edge is checked from one endpoint:
the child by default, or the parent with --validate parent.`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			parent, err := parseID(args[0])
			if err != nil {
				return err
			}
			child, err := parseID(args[1])
			if err != nil {
				return err
			}

			switch side {
			case "child":
				err = a.coord.AddParentEdge(cmd.Context(), parent, child)
			case "parent":
				err = a.coord.AddChildEdge(cmd.Context(), parent, child)
			default:
				return fmt.Errorf("invalid --validate %q (use child or parent)", side)
			}
			if err != nil {
				return err
			}

			if a.json {
				return outputJSON(cmd.OutOrStdout(), map[string]int64{"parent": int64(parent), "child": int64(child)})
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Linked: #%d → #%d\n", parent, child)
			return nil
		},
	}
	cmd.Flags().StringVar(&side, "validate", "child", "endpoint to validate: child or parent")
	return cmd
}

func newUnlinkCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "unlink <parent> <child>",
		Short: "Remove a parent→child edge",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			parent, err := parseID(args[0])
			if err != nil {
				return err
			}
			child, err := parseID(args[1])
			if err != nil {
				return err
			}
			if err := a.coord.RemoveParentEdge(cmd.Context(), parent, child); err != nil {
				return err
			}
			if a.json {
				return outputJSON(cmd.OutOrStdout(), map[string]int64{"parent": int64(parent), "child": int64(child)})
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Unlinked: #%d → #%d\n", parent, child)
			return nil
		},
	}
}
