package main

import (
	"bytes"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

// run executes rootCmd with args and returns what it printed: cobra's own
// output (usage, errors) via SetOut/SetErr, followed by everything the
// commands wrote to os.Stdout, which is redirected through a pipe for the
// duration of the call. Flag state is not reset between calls
// (cobra.Command.Flags() retain values between Execute calls on the same
// package-level command tree).
func run(t *testing.T, args ...string) (stdout string, err error) {
	t.Helper()
	r, w, pipeErr := os.Pipe()
	require.NoError(t, pipeErr)
	origStdout := os.Stdout
	os.Stdout = w
	var printed bytes.Buffer
	copied := make(chan struct{})
	go func() {
		_, _ = io.Copy(&printed, r)
		close(copied)
	}()

	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&out)
	rootCmd.SetArgs(args)
	err = rootCmd.Execute()

	os.Stdout = origStdout
	w.Close()
	<-copied
	r.Close()
	out.Write(printed.Bytes())
	return out.String(), err
}

func TestStoreInitAndCollectionLifecycle(t *testing.T) {
	dir := t.TempDir()

	_, err := run(t, "store", "init", "--path", dir)
	require.NoError(t, err)
	require.FileExists(t, filepath.Join(dir, ".sentinel.json"))

	_, err = run(t, "collection", "create", "--store", dir, "--name", "widgets")
	require.NoError(t, err)

	_, err = run(t, "collection", "insert", "--store", dir, "--name", "widgets",
		"--id", "w1", "--data", `{"color":"red","qty":3}`)
	require.NoError(t, err)

	out, err := run(t, "collection", "get", "--store", dir, "--name", "widgets", "--id", "w1")
	require.NoError(t, err)
	require.Contains(t, out, `"id": "w1"`)
	require.Contains(t, out, "red")

	out, err = run(t, "collection", "list", "--store", dir, "--name", "widgets")
	require.NoError(t, err)
	require.Contains(t, out, "w1")

	_, err = run(t, "collection", "update", "--store", dir, "--name", "widgets",
		"--id", "w1", "--data", `{"color":"blue","qty":5}`)
	require.NoError(t, err)

	out, err = run(t, "collection", "query", "--store", dir, "--name", "widgets",
		"--filter", "qty>=4")
	require.NoError(t, err)
	require.Contains(t, out, "blue")

	_, err = run(t, "collection", "delete", "--store", dir, "--name", "widgets", "--id", "w1")
	require.NoError(t, err)

	out, err = run(t, "collection", "list", "--store", dir, "--name", "widgets")
	require.NoError(t, err)
	require.NotContains(t, out, "w1")

	_, err = run(t, "store", "list-collections", "--path", dir)
	require.NoError(t, err)
}

func TestWalStatsAndCheckpoint(t *testing.T) {
	dir := t.TempDir()

	_, err := run(t, "store", "init", "--path", dir)
	require.NoError(t, err)

	_, err = run(t, "collection", "insert", "--store", dir, "--name", "events",
		"--id", "e1", "--data", `{"kind":"click"}`)
	require.NoError(t, err)

	out, err := run(t, "wal", "stats", "--store-path", dir, "--collection", "events")
	require.NoError(t, err)
	require.Contains(t, out, "live_records")

	_, err = run(t, "wal", "checkpoint", "--store-path", dir, "--collection", "events")
	require.NoError(t, err)
}

func TestFilterExprRejectsNotEquals(t *testing.T) {
	dir := t.TempDir()

	_, err := run(t, "store", "init", "--path", dir)
	require.NoError(t, err)

	_, err = run(t, "collection", "insert", "--store", dir, "--name", "items",
		"--id", "i1", "--data", `{"status":"active"}`)
	require.NoError(t, err)

	_, err = run(t, "collection", "query", "--store", dir, "--name", "items",
		"--filter", "status!=active")
	require.Error(t, err)
}
