package scanner

import (
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/ternarybob/docugen/internal/pipeline"
)

// manifest is the operator-debugging summary written alongside the
// workspace (expansion, spec.md §4.5 S6 note). It carries no invariant and
// is deleted by Cleanup along with the rest of the workspace.
type manifest struct {
	FileCount    int            `yaml:"file_count"`
	TotalSize    int64          `yaml:"total_size"`
	CountsByKind map[string]int `yaml:"counts_by_kind"`
	Truncated    bool           `yaml:"truncated"`
}

// WriteManifest serializes the scan result to manifest.yaml in workspaceRoot.
func WriteManifest(workspaceRoot string, result *pipeline.ScanResult) error {
	m := manifest{
		FileCount:    len(result.Files),
		TotalSize:    result.TotalSize,
		CountsByKind: result.CountsByKind,
		Truncated:    result.Truncated,
	}
	data, err := yaml.Marshal(m)
	if err != nil {
		return err
	}
	return os.WriteFile(filepath.Join(workspaceRoot, "manifest.yaml"), data, 0644)
}
