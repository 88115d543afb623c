// Package sync keeps the data directory in a git repository and
// synchronizes it with a remote.
package sync

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"
)

const gitignore = "*.log\ngoals.db-wal\ngoals.db-shm\n"

// Repo runs git against one data directory.
type Repo struct {
	Dir    string
	Out    io.Writer // progress and git output; nil discards
	Logger *slog.Logger
}

// NewRepo returns a Repo for dir.
func NewRepo(dir string, out io.Writer, logger *slog.Logger) *Repo {
	if out == nil {
		out = io.Discard
	}
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Repo{Dir: dir, Out: out, Logger: logger}
}

func (r *Repo) git(ctx context.Context, args ...string) *exec.Cmd {
	cmd := exec.CommandContext(ctx, "git", append([]string{"-C", r.Dir}, args...)...)
	cmd.Stdout = r.Out
	cmd.Stderr = r.Out
	return cmd
}

func (r *Repo) quiet(ctx context.Context, args ...string) error {
	cmd := exec.CommandContext(ctx, "git", append([]string{"-C", r.Dir}, args...)...)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return fmt.Errorf("git %s: %w: %s", args[0], err, strings.TrimSpace(stderr.String()))
	}
	return nil
}

// IsRepo reports whether the data directory already holds a git repository.
func (r *Repo) IsRepo() bool {
	_, err := os.Stat(filepath.Join(r.Dir, ".git"))
	return err == nil
}

// Init makes the data directory a git repository if it is not one yet and,
// when remote is non-empty, points origin at it.
func (r *Repo) Init(ctx context.Context, remote string) error {
	if !r.IsRepo() {
		if err := os.MkdirAll(r.Dir, 0755); err != nil {
			return fmt.Errorf("creating data directory: %w", err)
		}
		if err := r.quiet(ctx, "init"); err != nil {
			return err
		}
		if err := os.WriteFile(filepath.Join(r.Dir, ".gitignore"), []byte(gitignore), 0644); err != nil {
			return fmt.Errorf("writing .gitignore: %w", err)
		}
		r.Logger.Info("initialized git repository", slog.String("dir", r.Dir))
	}

	if remote == "" {
		fmt.Fprintln(r.Out, "No remote specified. Use --remote <url> to set one.")
		return nil
	}

	// Replace any existing origin.
	_ = r.quiet(ctx, "remote", "remove", "origin")
	if err := r.quiet(ctx, "remote", "add", "origin", remote); err != nil {
		return fmt.Errorf("setting remote: %w", err)
	}
	r.Logger.Info("remote set", slog.String("remote", remote))
	fmt.Fprintf(r.Out, "Remote set to: %s\n", remote)
	return nil
}

// ErrConflict is returned when neither rebase nor merge can integrate the
// remote changes.
var ErrConflict = errors.New("sync failed: could not rebase or merge, resolve conflicts manually")

// Sync commits local changes, integrates the remote (rebase first, merge as
// a fallback) and pushes.
func (r *Repo) Sync(ctx context.Context) error {
	if !r.IsRepo() {
		return fmt.Errorf("not a git repository, run 'goalgraph init' first")
	}

	fmt.Fprintln(r.Out, "Staging changes...")
	if err := r.quiet(ctx, "add", "-A"); err != nil {
		return err
	}
	if err := r.quiet(ctx, "diff", "--cached", "--quiet"); err != nil {
		msg := "sync " + time.Now().Format("2006-01-02 15:04:05")
		if err := r.git(ctx, "commit", "-m", msg).Run(); err != nil {
			return fmt.Errorf("commit failed: %w", err)
		}
		r.Logger.Debug("committed local changes", slog.String("message", msg))
	}

	if r.hasUpstream(ctx) {
		fmt.Fprintln(r.Out, "Pulling...")
		if err := r.git(ctx, "pull", "--rebase").Run(); err != nil {
			fmt.Fprintln(r.Out, "Rebase failed, trying merge...")
			r.Logger.Warn("rebase failed, falling back to merge", slog.Any("err", err))
			_ = r.quiet(ctx, "rebase", "--abort")

			if err := r.git(ctx, "pull", "--no-rebase").Run(); err != nil {
				_ = r.quiet(ctx, "merge", "--abort")
				return ErrConflict
			}
		}
	}

	fmt.Fprintln(r.Out, "Pushing...")
	if err := r.git(ctx, "push", "-u", "origin", "HEAD").Run(); err != nil {
		return fmt.Errorf("push failed: %w", err)
	}

	r.Logger.Info("sync complete", slog.String("dir", r.Dir))
	fmt.Fprintln(r.Out, "Sync complete.")
	return nil
}

func (r *Repo) hasUpstream(ctx context.Context) bool {
	return r.quiet(ctx, "rev-parse", "--abbrev-ref", "--symbolic-full-name", "@{u}") == nil
}
