package main

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	out := &bytes.Buffer{}
	rootCmd.SetOut(out)
	rootCmd.SetErr(out)
	rootCmd.SetArgs(args)
	err := rootCmd.Execute()
	return out.String(), err
}

func TestVersionCommand(t *testing.T) {
	out, err := execute(t, "version")
	require.NoError(t, err)
	assert.Contains(t, out, "lantern version 0.1.0")
}

func TestValidateCommand(t *testing.T) {
	dir := t.TempDir()
	good := filepath.Join(dir, "tour.yaml")
	bad := filepath.Join(dir, "empty.json")
	require.NoError(t, os.WriteFile(good, []byte("id: tour\ngroups:\n  - id: g\n    steps:\n      - id: a\n"), 0o644))
	require.NoError(t, os.WriteFile(bad, []byte(`{"id": "empty", "groups": []}`), 0o644))

	out, err := execute(t, "validate", good)
	require.NoError(t, err)
	assert.Contains(t, out, "✓ "+good)

	out, err = execute(t, "validate", good, bad)
	assert.EqualError(t, err, "1 of 2 documents are invalid")
	assert.Contains(t, out, "✗ "+bad)
}

func TestGraphCommand(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "tour.yaml"), []byte("id: tour\ngroups:\n  - id: g\n    steps:\n      - id: a\n"), 0o644))

	out, err := execute(t, "graph", "tour", "--dir", dir, "--config", filepath.Join(dir, "none.yaml"))
	require.NoError(t, err)
	assert.Contains(t, out, "graph TD")
}
