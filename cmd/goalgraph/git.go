package main

import (
	"github.com/spf13/cobra"
	gsync "github.com/stefanpenner/goalgraph/pkg/sync"
)

func newInitCmd(a *app) *cobra.Command {
	var remote string
	cmd := &cobra.Command{
		Use:   "init",
		Short: "Make the data directory a git repository",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return gsync.NewRepo(a.cfg.DataDir, cmd.OutOrStdout(), a.logger).Init(cmd.Context(), remote)
		},
	}
	cmd.Flags().StringVar(&remote, "remote", "", "git remote URL to use as origin")
	return cmd
}

func newSyncCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "sync",
		Short: "Commit, pull and push the data directory",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return gsync.NewRepo(a.cfg.DataDir, cmd.OutOrStdout(), a.logger).Sync(cmd.Context())
		},
	}
}
