package analyzer

import (
	"regexp"

	"github.com/ternarybob/docugen/internal/pipeline"
)

// extractBraceDelimited handles the C-family brace languages (JS/TS/Java/
// C/C#) with regexp heuristics rather than a real parser — none of the
// corpus's dependencies bundle a multi-language AST front end, so this
// extractor is pattern-based by necessity (see DESIGN.md).
var (
	braceClassRe = regexp.MustCompile(`(?m)^\s*(?:export\s+)?(?:public\s+|private\s+)?(?:abstract\s+)?class\s+(\w+)`)
	braceFuncRe  = regexp.MustCompile(`(?m)^\s*(?:export\s+)?(?:async\s+)?(?:public\s+|private\s+|static\s+)*function\s+(\w+)\s*\(([^)]*)\)`)
	braceImportRe = regexp.MustCompile(`(?m)^\s*(?:import|#include)\s+[^\n]*?["'<]([^"'>]+)["'>]`)
)

func extractBraceDelimited(path string, src []byte) pipeline.FileAnalysis {
	text := string(src)
	analysis := pipeline.FileAnalysis{Path: path}

	for _, m := range braceImportRe.FindAllStringSubmatch(text, -1) {
		analysis.Imports = append(analysis.Imports, m[1])
	}

	for _, m := range braceClassRe.FindAllStringSubmatchIndex(text, -1) {
		name := text[m[2]:m[3]]
		analysis.Classes = append(analysis.Classes, pipeline.ClassInfo{
			Name: name,
			Line: lineOf(text, m[0]),
		})
	}

	for _, m := range braceFuncRe.FindAllStringSubmatchIndex(text, -1) {
		name := text[m[2]:m[3]]
		params := splitParams(text[m[4]:m[5]])
		analysis.Functions = append(analysis.Functions, pipeline.FuncInfo{
			Name:   name,
			Params: params,
			Line:   lineOf(text, m[0]),
		})
	}

	return analysis
}

func lineOf(text string, byteOffset int) int {
	line := 1
	for i := 0; i < byteOffset && i < len(text); i++ {
		if text[i] == '\n' {
			line++
		}
	}
	return line
}

func splitParams(raw string) []string {
	if len(raw) == 0 {
		return nil
	}
	var params []string
	depth := 0
	start := 0
	for i, r := range raw {
		switch r {
		case '(', '<', '[':
			depth++
		case ')', '>', ']':
			depth--
		case ',':
			if depth == 0 {
				params = append(params, trimParam(raw[start:i]))
				start = i + 1
			}
		}
	}
	params = append(params, trimParam(raw[start:]))
	return params
}

func trimParam(s string) string {
	start, end := 0, len(s)
	for start < end && (s[start] == ' ' || s[start] == '\t' || s[start] == '\n') {
		start++
	}
	for end > start && (s[end-1] == ' ' || s[end-1] == '\t' || s[end-1] == '\n') {
		end--
	}
	return s[start:end]
}
