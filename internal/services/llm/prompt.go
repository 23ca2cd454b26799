package llm

import (
	"fmt"
	"strings"

	"github.com/ternarybob/docugen/internal/pipeline"
)

// generateSystemPrompt is the single structured documentation prompt the
// Generate stage always sends (spec.md §4.5 S4), grounded on the teacher's
// prompt_templates.go pattern of a package-level const system prompt.
const generateSystemPrompt = `You are a senior software engineer writing documentation for a repository you have never seen before. You are given a summary of its structure, a sample of its source files, and (if present) the start of its existing README.

When writing:
1. Open with a one-paragraph description of what the project does.
2. Describe the project layout using the file/directory summary provided.
3. Call out the notable types and functions from the analysis summary, grouped by file.
4. Include a short "Getting Started" section only if the analysis gives you enough to say something concrete - never invent commands.
5. Write valid, well-structured Markdown with headings (##), not a single wall of text.
6. Never fabricate APIs, dependencies, or behavior not present in the provided summary.`

// BuildDocsRequest assembles the one documentation-generation request from
// the pipeline's accumulated RunState, capping the README excerpt at
// readmeCharBudget (N_readme).
func BuildDocsRequest(rs *pipeline.RunState, readmeCharBudget int) *ContentRequest {
	var b strings.Builder

	fmt.Fprintf(&b, "# Repository\n\n")
	if rs.Repo != nil {
		fmt.Fprintf(&b, "Name: %s\nBranch: %s\nRevision: %s\n\n", rs.Repo.DisplayName, rs.Repo.Branch, rs.Repo.Revision)
	}

	if rs.Scan != nil {
		fmt.Fprintf(&b, "## File Summary\n\n")
		fmt.Fprintf(&b, "%d files scanned (%d code, %d docs, %d config, %d other)%s\n\n",
			len(rs.Scan.Files), rs.Scan.CountsByKind["code"], rs.Scan.CountsByKind["docs"],
			rs.Scan.CountsByKind["config"], rs.Scan.CountsByKind["other"], truncatedNote(rs.Scan.Truncated))
		for _, f := range rs.Scan.Files {
			fmt.Fprintf(&b, "- %s (%s, %d bytes)\n", f.Path, f.Category, f.Size)
		}
		b.WriteString("\n")
	}

	if rs.Analysis != nil {
		fmt.Fprintf(&b, "## Analysis Summary\n\n")
		for _, fa := range rs.Analysis.Files {
			fmt.Fprintf(&b, "### %s\n", fa.Path)
			if fa.ParseErr != "" {
				fmt.Fprintf(&b, "(could not be parsed: %s)\n\n", fa.ParseErr)
				continue
			}
			for _, c := range fa.Classes {
				fmt.Fprintf(&b, "- type %s (methods: %s)\n", c.Name, strings.Join(c.Methods, ", "))
			}
			for _, fn := range fa.Functions {
				fmt.Fprintf(&b, "- func %s(%s)\n", fn.Name, strings.Join(fn.Params, ", "))
			}
			b.WriteString("\n")
		}
	}

	if rs.Scan != nil && rs.Scan.ReadmeExcerpt != "" {
		readme := rs.Scan.ReadmeExcerpt
		if len(readme) > readmeCharBudget {
			readme = readme[:readmeCharBudget]
		}
		fmt.Fprintf(&b, "## Existing README excerpt\n\n%s\n", readme)
	}

	return &ContentRequest{
		SystemInstruction: generateSystemPrompt,
		Messages: []Message{
			{Role: "user", Content: b.String()},
		},
	}
}

// commentSystemPrompt drives the docs-plus-comments per-file pass: one
// source file in, the same file back out with explanatory comments added.
const commentSystemPrompt = `You add explanatory comments to source code without changing its behavior.

Rules:
1. Return the complete file, unchanged except for added comments.
2. Use the comment syntax of the file's own language.
3. Comment on intent and non-obvious logic, not on syntax a reader already knows.
4. Never reformat, reorder, or rewrite existing code.
5. Never wrap the output in a Markdown code fence - return raw source only.`

// BuildCommentRequest assembles the per-file request for the
// docs-plus-comments variant's commented-source pass (spec.md §4.5 S4).
func BuildCommentRequest(path, source string) *ContentRequest {
	return &ContentRequest{
		SystemInstruction: commentSystemPrompt,
		Messages: []Message{
			{Role: "user", Content: fmt.Sprintf("File: %s\n\n%s", path, source)},
		},
	}
}

func truncatedNote(truncated bool) string {
	if truncated {
		return " (truncated at the scan limit)"
	}
	return ""
}
