package app

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ternarybob/arbor"

	"github.com/ternarybob/docugen/internal/common"
)

func newTestConfig(t *testing.T) *common.Config {
	t.Helper()
	dir := t.TempDir()

	cfg := common.NewDefaultConfig()
	cfg.Storage.SQLite.Path = filepath.Join(dir, "docugen.db")
	cfg.ArtifactStore.Enabled = false
	cfg.ArtifactStore.Badger.Path = filepath.Join(dir, "artifacts")
	cfg.Pipeline.PublishDir = filepath.Join(dir, "docs")
	cfg.Claude.APIKey = "test-key"
	cfg.Workers.Count = 1
	return cfg
}

func TestNewWiresEveryComponent(t *testing.T) {
	cfg := newTestConfig(t)
	logger := arbor.NewLogger()

	a, err := New(cfg, logger)
	require.NoError(t, err)
	require.NotNil(t, a)
	defer a.Close()

	assert.NotNil(t, a.JobStore)
	assert.NotNil(t, a.Queue)
	assert.NotNil(t, a.Gateway)
	assert.NotNil(t, a.Provider)
	assert.NotNil(t, a.Submitter)
	assert.NotNil(t, a.Runtime)
	assert.NotNil(t, a.Reaper)
	assert.NotNil(t, a.API)
}

func TestNewFailsWhenLLMProviderUnconfigured(t *testing.T) {
	cfg := newTestConfig(t)
	cfg.Claude.APIKey = ""

	_, err := New(cfg, arbor.NewLogger())
	assert.Error(t, err)
}

func TestCloseSucceedsAfterSuccessfulNew(t *testing.T) {
	cfg := newTestConfig(t)

	a, err := New(cfg, arbor.NewLogger())
	require.NoError(t, err)

	assert.NoError(t, a.Close())
}
