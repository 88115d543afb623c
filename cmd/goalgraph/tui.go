package main

import (
	"fmt"
	"log/slog"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"
	"github.com/stefanpenner/goalgraph/pkg/config"
	gsync "github.com/stefanpenner/goalgraph/pkg/sync"
	"github.com/stefanpenner/goalgraph/pkg/tui"
)

func newTUICmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "tui",
		Short: "Open the interactive goal browser",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.runTUI(cmd)
		},
	}
}

func (a *app) runTUI(cmd *cobra.Command) error {
	// git output would tear the alt screen; results show in the status line.
	repo := gsync.NewRepo(a.cfg.DataDir, nil, a.logger)

	m := tui.NewModel(a.coord, tui.Options{
		DataDir: a.cfg.DataDir,
		Reload:  a.reload,
		Sync:    repo.Sync,
		Logger:  a.logger,
	})
	p := tea.NewProgram(m, tea.WithAltScreen(), tea.WithContext(cmd.Context()))

	if a.cfg.Backend == config.BackendFile {
		stop, err := tui.StartWatcher(a.cfg.DataDir, p.Send, a.logger)
		if err != nil {
			a.logger.Warn("file watcher failed", slog.Any("err", err))
			fmt.Fprintf(cmd.ErrOrStderr(), "Warning: file watcher failed: %v\n", err)
		} else {
			defer stop()
		}
	}

	_, err := p.Run()
	return err
}
