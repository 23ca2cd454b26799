package analyzer

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ternarybob/docugen/internal/pipeline"
)

const goSample = `package sample

// Widget does widget things.
type Widget struct {
	Name string
}

func (w *Widget) Greet(prefix string) string {
	return prefix + w.Name
}

func NewWidget(name string) *Widget {
	return &Widget{Name: name}
}
`

const jsSample = `import React from "react";

export class Button {
}

function render(props) {
	return props;
}
`

func writeAnalyzerTree(t *testing.T) string {
	t.Helper()
	root := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(root, "widget.go"), []byte(goSample), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(root, "button.js"), []byte(jsSample), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(root, "broken.go"), []byte("package sample\nfunc ("), 0644))
	return root
}

func TestAnalyzeGoFile(t *testing.T) {
	root := writeAnalyzerTree(t)
	candidates := []pipeline.FileEntry{
		{Path: "widget.go", Size: int64(len(goSample)), Category: "code"},
	}

	result, err := Analyze(root, candidates, 20)
	require.NoError(t, err)
	require.Len(t, result.Files, 1)

	f := result.Files[0]
	assert.Empty(t, f.ParseErr)
	require.Len(t, f.Classes, 1)
	assert.Equal(t, "Widget", f.Classes[0].Name)
	assert.Contains(t, f.Classes[0].Methods, "Greet")
	assert.NotEmpty(t, f.Functions)
}

func TestAnalyzeBraceDelimitedFile(t *testing.T) {
	root := writeAnalyzerTree(t)
	candidates := []pipeline.FileEntry{
		{Path: "button.js", Size: int64(len(jsSample)), Category: "code"},
	}

	result, err := Analyze(root, candidates, 20)
	require.NoError(t, err)
	require.Len(t, result.Files, 1)

	f := result.Files[0]
	require.Len(t, f.Classes, 1)
	assert.Equal(t, "Button", f.Classes[0].Name)
	assert.Contains(t, f.Imports, "react")
}

func TestAnalyzeToleratesParseFailure(t *testing.T) {
	root := writeAnalyzerTree(t)
	candidates := []pipeline.FileEntry{
		{Path: "broken.go", Size: 20, Category: "code"},
	}

	result, err := Analyze(root, candidates, 20)
	require.NoError(t, err)
	require.Len(t, result.Files, 1)
	assert.NotEmpty(t, result.Files[0].ParseErr)
}

func TestAnalyzeSelectionOrderCapsAtMaxFiles(t *testing.T) {
	root := writeAnalyzerTree(t)
	candidates := []pipeline.FileEntry{
		{Path: "widget.go", Size: int64(len(goSample)), Category: "code"},
		{Path: "button.js", Size: int64(len(jsSample)), Category: "code"},
		{Path: "broken.go", Size: 20, Category: "code"},
	}

	result, err := Analyze(root, candidates, 2)
	require.NoError(t, err)
	assert.Len(t, result.Files, 2)
}

func TestAnalyzeNoCodeFilesErrors(t *testing.T) {
	root := writeAnalyzerTree(t)
	candidates := []pipeline.FileEntry{
		{Path: "README.md", Size: 10, Category: "docs"},
	}

	_, err := Analyze(root, candidates, 20)
	assert.Error(t, err)
}
