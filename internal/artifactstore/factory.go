package artifactstore

import (
	"github.com/ternarybob/arbor"

	"github.com/ternarybob/docugen/internal/common"
)

// New selects the configured Gateway per spec.md §4.7: S3-compatible when
// ArtifactStore.Enabled is true, the embedded Badger store otherwise.
func New(cfg *common.ArtifactStoreConfig, logger arbor.ILogger) (Gateway, error) {
	if cfg.Enabled {
		return NewS3Gateway(cfg, logger)
	}
	return NewBadgerGateway(&cfg.Badger, logger)
}
