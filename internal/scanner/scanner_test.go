package scanner

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeTestTree(t *testing.T) string {
	t.Helper()
	root := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(root, "node_modules"), 0755))
	require.NoError(t, os.WriteFile(filepath.Join(root, "node_modules", "ignored.js"), []byte("x"), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(root, "main.go"), []byte("package main"), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(root, "README.md"), []byte("# hi"), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(root, "config.yaml"), []byte("a: 1"), 0644))
	return root
}

func TestScanClassifiesAndIgnores(t *testing.T) {
	root := writeTestTree(t)

	result, err := Scan(root, Options{
		MaxDepth:     10,
		MaxFiles:     100,
		IgnoredNames: map[string]bool{"node_modules": true},
	})
	require.NoError(t, err)

	assert.Equal(t, 3, len(result.Files))
	assert.Equal(t, 1, result.CountsByKind["code"])
	assert.Equal(t, 1, result.CountsByKind["docs"])
	assert.Equal(t, 1, result.CountsByKind["config"])
	assert.False(t, result.Truncated)
}

func TestScanTruncatesAtMaxFiles(t *testing.T) {
	root := writeTestTree(t)

	result, err := Scan(root, Options{
		MaxDepth:     10,
		MaxFiles:     1,
		IgnoredNames: map[string]bool{"node_modules": true},
	})
	require.NoError(t, err)

	assert.LessOrEqual(t, len(result.Files), 1)
	assert.True(t, result.Truncated)
}
