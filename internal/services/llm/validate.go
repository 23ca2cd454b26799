package llm

import (
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/text"

	"github.com/ternarybob/docugen/internal/errs"
)

// ValidateMarkdown parses md with goldmark (grounded on the teacher's
// convertMarkdownToHTML usage in internal/workers/output/formatter_worker.go)
// and rejects output with no heading, since a documentation page consisting
// of a single unstructured paragraph almost always means the model ignored
// the system instruction rather than that the repo had nothing to say.
func ValidateMarkdown(md string) error {
	if md == "" {
		return errs.New(errs.KindEmptyOutput, "generated markdown is empty")
	}

	source := []byte(md)
	doc := goldmark.New().Parser().Parse(text.NewReader(source))

	hasHeading := false
	err := ast.Walk(doc, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
		if entering {
			if _, ok := n.(*ast.Heading); ok {
				hasHeading = true
				return ast.WalkStop, nil
			}
		}
		return ast.WalkContinue, nil
	})
	if err != nil {
		return errs.Wrap(errs.KindInternal, "walking generated markdown", err)
	}
	if !hasHeading {
		return errs.New(errs.KindModelRefused, "generated markdown has no headings")
	}

	return nil
}
