// Package analyzer implements the S3 Analyze stage tool: a registry keyed
// by file extension returning a common FileAnalysis shape (spec.md §9
// "Dynamic per-file dispatch" redesign note). New languages are added by
// registering a new entry; callers never inspect the extractor's concrete
// implementation.
package analyzer

import (
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/ternarybob/docugen/internal/errs"
	"github.com/ternarybob/docugen/internal/pipeline"
)

// Extractor parses one file's source into the common FileAnalysis shape. A
// tolerant extractor never returns an error for malformed input; instead it
// sets FileAnalysis.ParseErr and returns what it could salvage.
type Extractor func(path string, src []byte) pipeline.FileAnalysis

var registry = map[string]Extractor{
	".go": extractGo,
}

var braceLanguages = map[string]bool{
	".js": true, ".ts": true, ".tsx": true, ".jsx": true, ".java": true,
	".c": true, ".h": true, ".cpp": true, ".hpp": true, ".cs": true,
}

func init() {
	for ext := range braceLanguages {
		registry[ext] = extractBraceDelimited
	}
}

func lookup(ext string) Extractor {
	if e, ok := registry[ext]; ok {
		return e
	}
	return extractGeneric
}

// Analyze selects up to maxFiles code files from candidates by the priority
// order of spec.md §4.5 S3 (root-level first, then larger files, ties
// broken alphabetically) and runs each through its extractor.
func Analyze(workspaceRoot string, candidates []pipeline.FileEntry, maxFiles int) (*pipeline.AnalysisResult, error) {
	codeFiles := make([]pipeline.FileEntry, 0, len(candidates))
	for _, f := range candidates {
		if f.Category == "code" {
			codeFiles = append(codeFiles, f)
		}
	}

	if len(codeFiles) == 0 {
		return nil, errs.New(errs.KindInternal, "no-analyzable-files")
	}

	sort.Slice(codeFiles, func(i, j int) bool {
		a, b := codeFiles[i], codeFiles[j]
		aRoot := !strings.Contains(a.Path, string(filepath.Separator))
		bRoot := !strings.Contains(b.Path, string(filepath.Separator))
		if aRoot != bRoot {
			return aRoot
		}
		if a.Size != b.Size {
			return a.Size > b.Size
		}
		return a.Path < b.Path
	})

	if maxFiles > 0 && len(codeFiles) > maxFiles {
		codeFiles = codeFiles[:maxFiles]
	}

	result := &pipeline.AnalysisResult{}
	for _, f := range codeFiles {
		full := filepath.Join(workspaceRoot, f.Path)
		src, err := os.ReadFile(full)
		if err != nil {
			result.Files = append(result.Files, pipeline.FileAnalysis{
				Path:     f.Path,
				ParseErr: err.Error(),
			})
			continue
		}

		ext := strings.ToLower(filepath.Ext(f.Path))
		extract := lookup(ext)
		analysis := extract(f.Path, src)
		result.Files = append(result.Files, analysis)
	}

	return result, nil
}
