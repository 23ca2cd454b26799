package reaper

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ternarybob/arbor"

	"github.com/ternarybob/docugen/internal/common"
	"github.com/ternarybob/docugen/internal/models"
	"github.com/ternarybob/docugen/internal/storage/sqlite"
)

func newTestStorage(t *testing.T) *sqlite.JobStorage {
	t.Helper()
	dir := t.TempDir()
	db, err := sqlite.Open(filepath.Join(dir, "test.db"))
	require.NoError(t, err)
	require.NoError(t, sqlite.Migrate(db))
	t.Cleanup(func() { db.Close() })
	return sqlite.NewJobStorage(db, arbor.NewLogger())
}

func TestSweepFailsStalePendingJobs(t *testing.T) {
	ctx := context.Background()
	jobs := newTestStorage(t)

	stale := &models.Job{ID: "stale-id", Locator: "acme/stale", NormalizedLocator: "acme/stale", Caller: "tester", Variant: models.VariantDocsOnly}
	_, err := jobs.Create(ctx, stale)
	require.NoError(t, err)

	r := New(jobs, &common.ReaperConfig{Schedule: "@every 1h", EnqueueTimeout: "1ms"}, arbor.NewLogger())
	time.Sleep(5 * time.Millisecond)
	r.sweep(ctx, time.Millisecond)

	got, err := jobs.Get(ctx, stale.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusFailed, got.Status)
	assert.Equal(t, "enqueue-timeout", func() string {
		transitions, terr := jobs.Transitions(ctx, stale.ID)
		require.NoError(t, terr)
		require.NotEmpty(t, transitions)
		return transitions[len(transitions)-1].Reason
	}())
}

func TestSweepLeavesFreshPendingJobsAlone(t *testing.T) {
	ctx := context.Background()
	jobs := newTestStorage(t)

	fresh := &models.Job{ID: "fresh-id", Locator: "acme/fresh", NormalizedLocator: "acme/fresh", Caller: "tester", Variant: models.VariantDocsOnly}
	_, err := jobs.Create(ctx, fresh)
	require.NoError(t, err)

	r := New(jobs, &common.ReaperConfig{Schedule: "@every 1h", EnqueueTimeout: "1h"}, arbor.NewLogger())
	r.sweep(ctx, time.Hour)

	got, err := jobs.Get(ctx, fresh.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusPending, got.Status)
}

func TestSweepLeavesEnqueuedBacklogJobsAlone(t *testing.T) {
	ctx := context.Background()
	jobs := newTestStorage(t)

	queued := &models.Job{ID: "queued-id", Locator: "acme/queued", NormalizedLocator: "acme/queued", Caller: "tester", Variant: models.VariantDocsOnly}
	_, err := jobs.Create(ctx, queued)
	require.NoError(t, err)
	require.NoError(t, jobs.MarkEnqueued(ctx, queued.ID))

	r := New(jobs, &common.ReaperConfig{Schedule: "@every 1h", EnqueueTimeout: "1ms"}, arbor.NewLogger())
	time.Sleep(5 * time.Millisecond)
	r.sweep(ctx, time.Millisecond)

	got, err := jobs.Get(ctx, queued.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusPending, got.Status)
}

func TestSweepIgnoresNonPendingJobs(t *testing.T) {
	ctx := context.Background()
	jobs := newTestStorage(t)

	job := &models.Job{ID: "done-id", Locator: "acme/done", NormalizedLocator: "acme/done", Caller: "tester", Variant: models.VariantDocsOnly}
	_, err := jobs.Create(ctx, job)
	require.NoError(t, err)
	_, err = jobs.SetStatus(ctx, job.ID, models.StatusProcessing, sqlite.JobFields{})
	require.NoError(t, err)

	r := New(jobs, &common.ReaperConfig{Schedule: "@every 1h", EnqueueTimeout: "1ms"}, arbor.NewLogger())
	time.Sleep(5 * time.Millisecond)
	r.sweep(ctx, time.Millisecond)

	got, err := jobs.Get(ctx, job.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusProcessing, got.Status)
}
