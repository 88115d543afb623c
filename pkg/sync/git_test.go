package sync

import (
	"bytes"
	"context"
	"os"
	"os/exec"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func requireGit(t *testing.T) {
	t.Helper()
	if _, err := exec.LookPath("git"); err != nil {
		t.Skip("git not installed")
	}
	t.Setenv("GIT_AUTHOR_NAME", "goalgraph")
	t.Setenv("GIT_AUTHOR_EMAIL", "goalgraph@example.com")
	t.Setenv("GIT_COMMITTER_NAME", "goalgraph")
	t.Setenv("GIT_COMMITTER_EMAIL", "goalgraph@example.com")
}

func TestInitCreatesRepo(t *testing.T) {
	requireGit(t)
	dir := filepath.Join(t.TempDir(), "data")
	var out bytes.Buffer
	r := NewRepo(dir, &out, nil)

	require.NoError(t, r.Init(context.Background(), ""))
	assert.True(t, r.IsRepo())
	assert.FileExists(t, filepath.Join(dir, ".gitignore"))
	assert.Contains(t, out.String(), "No remote specified")

	// Running again is harmless.
	require.NoError(t, r.Init(context.Background(), ""))
}

func TestSyncRequiresRepo(t *testing.T) {
	r := NewRepo(t.TempDir(), nil, nil)
	assert.ErrorContains(t, r.Sync(context.Background()), "goalgraph init")
}

func TestSyncPushesToRemote(t *testing.T) {
	requireGit(t)
	ctx := context.Background()

	remote := filepath.Join(t.TempDir(), "remote.git")
	require.NoError(t, exec.Command("git", "init", "--bare", remote).Run())

	dir := filepath.Join(t.TempDir(), "data")
	r := NewRepo(dir, nil, nil)
	require.NoError(t, r.Init(ctx, remote))
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "goals"), 0755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "goals", "1.md"), []byte("---\nachieved: false\n---\n"), 0644))

	require.NoError(t, r.Sync(ctx))

	// A second sync has an upstream and nothing to commit.
	require.NoError(t, r.Sync(ctx))

	log, err := exec.Command("git", "-C", remote, "log", "--oneline").Output()
	require.NoError(t, err)
	assert.Contains(t, string(log), "sync ")
}
