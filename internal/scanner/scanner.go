// Package scanner implements the S2 Scan stage tool: recursive workspace
// enumeration bounded by depth and file-count caps, classified into
// {code, docs, config, other}. Traversal is breadth-first and alphabetical
// within each directory so truncation at MaxFiles/MaxDepth is deterministic
// (a plain filepath.WalkDir is depth-first and would truncate unpredictably).
package scanner

import (
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/ternarybob/docugen/internal/errs"
	"github.com/ternarybob/docugen/internal/pipeline"
)

var codeExtensions = map[string]bool{
	".go": true, ".py": true, ".js": true, ".ts": true, ".tsx": true, ".jsx": true,
	".java": true, ".c": true, ".h": true, ".cpp": true, ".hpp": true, ".cs": true,
	".rb": true, ".rs": true, ".php": true, ".kt": true, ".swift": true, ".scala": true,
}

var docsExtensions = map[string]bool{
	".md": true, ".rst": true, ".txt": true, ".adoc": true,
}

var configNames = map[string]bool{
	"dockerfile": true, "makefile": true,
}

var configExtensions = map[string]bool{
	".toml": true, ".yaml": true, ".yml": true, ".json": true, ".ini": true, ".cfg": true,
}

// Options bounds a single Scan invocation, sourced from ScannerConfig.
type Options struct {
	MaxDepth     int
	MaxFiles     int
	IgnoredNames map[string]bool
}

// Scan enumerates workspaceRoot per spec.md §4.5 S2: breadth-first,
// alphabetical within a directory, so truncation at MaxFiles or MaxDepth is
// deterministic.
func Scan(workspaceRoot string, opts Options) (*pipeline.ScanResult, error) {
	type dirLevel struct {
		path  string
		depth int
	}

	result := &pipeline.ScanResult{
		CountsByKind: map[string]int{"code": 0, "docs": 0, "config": 0, "other": 0},
	}

	queue := []dirLevel{{path: workspaceRoot, depth: 0}}
	for len(queue) > 0 {
		level := queue[0]
		queue = queue[1:]

		if opts.MaxDepth > 0 && level.depth > opts.MaxDepth {
			result.Truncated = true
			continue
		}

		entries, err := readDirSorted(level.path)
		if err != nil {
			return nil, errs.Wrap(errs.KindInternal, "reading workspace directory", err)
		}

		for _, entry := range entries {
			if opts.IgnoredNames[entry.Name()] {
				continue
			}

			full := filepath.Join(level.path, entry.Name())
			if entry.IsDir() {
				queue = append(queue, dirLevel{path: full, depth: level.depth + 1})
				continue
			}

			if opts.MaxFiles > 0 && len(result.Files) >= opts.MaxFiles {
				result.Truncated = true
				continue
			}

			info, err := entry.Info()
			if err != nil {
				continue
			}

			rel, err := filepath.Rel(workspaceRoot, full)
			if err != nil {
				rel = full
			}

			category := classify(entry.Name())
			result.Files = append(result.Files, pipeline.FileEntry{
				Path:     rel,
				Size:     info.Size(),
				Category: category,
			})
			result.TotalSize += info.Size()
			result.CountsByKind[category]++

			if level.depth == 0 && strings.EqualFold(entry.Name(), "README.md") {
				if data, err := os.ReadFile(full); err == nil {
					result.ReadmeExcerpt = string(data)
				}
			}
		}
	}

	return result, nil
}

func readDirSorted(dir string) ([]fs.DirEntry, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].Name() < entries[j].Name() })
	return entries, nil
}

func classify(name string) string {
	lower := strings.ToLower(name)
	if configNames[lower] {
		return "config"
	}
	ext := strings.ToLower(filepath.Ext(name))
	switch {
	case codeExtensions[ext]:
		return "code"
	case docsExtensions[ext]:
		return "docs"
	case configExtensions[ext]:
		return "config"
	default:
		return "other"
	}
}
