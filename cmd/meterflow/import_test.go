package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func mustWrite(t *testing.T, path string) {
	t.Helper()
	require.NoError(t, os.WriteFile(path, []byte("ZHV|1|D0010002|\n"), 0o644))
}

func TestExpandPathsDirectory(t *testing.T) {
	dir := t.TempDir()
	mustWrite(t, filepath.Join(dir, "b.uff"))
	mustWrite(t, filepath.Join(dir, "a.uff"))
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "nested"), 0o755))
	mustWrite(t, filepath.Join(dir, "nested", "c.uff"))
	mustWrite(t, filepath.Join(dir, "ignore.txt"))

	paths, err := expandPaths([]string{dir}, "**/*.uff")

	require.NoError(t, err)
	assert.Equal(t, []string{
		filepath.Join(dir, "a.uff"),
		filepath.Join(dir, "b.uff"),
		filepath.Join(dir, "nested", "c.uff"),
	}, paths)
}

func TestExpandPathsPassesThroughFilesAndMissing(t *testing.T) {
	file := filepath.Join(t.TempDir(), "x.uff")
	mustWrite(t, file)

	paths, err := expandPaths([]string{file, "/no/such/file.uff"}, "**/*.uff")

	require.NoError(t, err)
	assert.Equal(t, []string{file, "/no/such/file.uff"}, paths)
}

func TestExpandPathsGlobArgument(t *testing.T) {
	dir := t.TempDir()
	mustWrite(t, filepath.Join(dir, "one.uff"))
	mustWrite(t, filepath.Join(dir, "two.uff"))
	mustWrite(t, filepath.Join(dir, "three.txt"))

	paths, err := expandPaths([]string{filepath.Join(dir, "*.uff")}, "**/*.uff")

	require.NoError(t, err)
	assert.Equal(t, []string{
		filepath.Join(dir, "one.uff"),
		filepath.Join(dir, "two.uff"),
	}, paths)
}

func TestHasGlobMeta(t *testing.T) {
	tests := []struct {
		arg  string
		want bool
	}{
		{"data/*.uff", true},
		{"data/**/x.uff", true},
		{"file?.uff", true},
		{"[ab].uff", true},
		{"{a,b}.uff", true},
		{"/plain/path.uff", false},
		{"", false},
	}
	for _, tt := range tests {
		t.Run(tt.arg, func(t *testing.T) {
			assert.Equal(t, tt.want, hasGlobMeta(tt.arg))
		})
	}
}
