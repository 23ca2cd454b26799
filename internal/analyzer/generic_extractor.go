package analyzer

import "github.com/ternarybob/docugen/internal/pipeline"

// extractGeneric is the fallback for any extension with no registered
// extractor: it records the file as seen with no structural detail, so the
// Generate stage still lists it rather than silently dropping it.
func extractGeneric(path string, src []byte) pipeline.FileAnalysis {
	return pipeline.FileAnalysis{Path: path}
}
