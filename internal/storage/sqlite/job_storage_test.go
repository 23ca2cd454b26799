package sqlite

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ternarybob/arbor"

	"github.com/ternarybob/docugen/internal/models"
)

func newTestStorage(t *testing.T) *JobStorage {
	t.Helper()
	dir := t.TempDir()
	db, err := Open(filepath.Join(dir, "test.db"))
	require.NoError(t, err)
	require.NoError(t, Migrate(db))
	t.Cleanup(func() { db.Close() })
	return NewJobStorage(db, arbor.NewLogger())
}

func newTestJob(locator string) *models.Job {
	return &models.Job{
		ID:                locator + "-id",
		Locator:           locator,
		NormalizedLocator: locator,
		Caller:            "tester",
		Variant:           models.VariantDocsOnly,
	}
}

func TestCreateRejectsDuplicateActiveLocator(t *testing.T) {
	ctx := context.Background()
	store := newTestStorage(t)

	job := newTestJob("github.com/acme/widgets")
	created, err := store.Create(ctx, job)
	require.NoError(t, err)
	assert.Equal(t, models.StatusPending, created.Status)

	dup := newTestJob("github.com/acme/widgets")
	dup.ID = "other-id"
	_, err = store.Create(ctx, dup)
	assert.ErrorIs(t, err, ErrJobConflict)
}

func TestSetStatusEnforcesAllowedTransitions(t *testing.T) {
	ctx := context.Background()
	store := newTestStorage(t)

	job, err := store.Create(ctx, newTestJob("github.com/acme/one"))
	require.NoError(t, err)

	_, err = store.SetStatus(ctx, job.ID, models.StatusCompleted, JobFields{})
	assert.ErrorIs(t, err, ErrIllegalTransition, "pending cannot jump directly to completed")

	_, err = store.SetStatus(ctx, job.ID, models.StatusProcessing, JobFields{Reason: "reserved"})
	require.NoError(t, err)

	_, err = store.SetStatus(ctx, job.ID, models.StatusCompleted, JobFields{})
	assert.Error(t, err, "completing without artifact_url or pull_request_url must fail (P3)")

	updated, err := store.SetStatus(ctx, job.ID, models.StatusCompleted, JobFields{ArtifactURL: "https://artifacts.example/x"})
	require.NoError(t, err)
	assert.Equal(t, models.StatusCompleted, updated.Status)

	_, err = store.SetStatus(ctx, job.ID, models.StatusFailed, JobFields{Error: "too late"})
	assert.ErrorIs(t, err, ErrIllegalTransition, "terminal jobs never transition again")
}

func TestSetStatusFailedRequiresErrorMessage(t *testing.T) {
	ctx := context.Background()
	store := newTestStorage(t)

	job, err := store.Create(ctx, newTestJob("github.com/acme/two"))
	require.NoError(t, err)
	_, err = store.SetStatus(ctx, job.ID, models.StatusProcessing, JobFields{})
	require.NoError(t, err)

	_, err = store.SetStatus(ctx, job.ID, models.StatusFailed, JobFields{})
	assert.Error(t, err, "failed without an error message must fail (P4)")

	failed, err := store.SetStatus(ctx, job.ID, models.StatusFailed, JobFields{Error: "boom", ErrorKind: "internal"})
	require.NoError(t, err)
	assert.Equal(t, models.StatusFailed, failed.Status)
}

func TestResetToPendingOmitsTransitionRow(t *testing.T) {
	ctx := context.Background()
	store := newTestStorage(t)

	job, err := store.Create(ctx, newTestJob("github.com/acme/three"))
	require.NoError(t, err)
	_, err = store.SetStatus(ctx, job.ID, models.StatusProcessing, JobFields{})
	require.NoError(t, err)

	require.NoError(t, store.ResetToPending(ctx, job.ID))

	got, err := store.Get(ctx, job.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusPending, got.Status)

	transitions, err := store.Transitions(ctx, job.ID)
	require.NoError(t, err)
	for _, tr := range transitions {
		assert.False(t, tr.FromState == models.StatusProcessing && tr.ToState == models.StatusPending,
			"processing->pending reset must never appear in recorded history")
	}
}

func TestDeleteRemovesJobAndTransitions(t *testing.T) {
	ctx := context.Background()
	store := newTestStorage(t)

	job, err := store.Create(ctx, newTestJob("github.com/acme/four"))
	require.NoError(t, err)
	_, err = store.SetStatus(ctx, job.ID, models.StatusProcessing, JobFields{})
	require.NoError(t, err)

	require.NoError(t, store.Delete(ctx, job.ID))

	_, err = store.Get(ctx, job.ID)
	assert.True(t, IsNotFound(err))

	transitions, err := store.Transitions(ctx, job.ID)
	require.NoError(t, err)
	assert.Empty(t, transitions)
}

func TestCompletedLocatorStillBlocksResubmission(t *testing.T) {
	ctx := context.Background()
	store := newTestStorage(t)

	job, err := store.Create(ctx, newTestJob("github.com/acme/five"))
	require.NoError(t, err)
	_, err = store.SetStatus(ctx, job.ID, models.StatusProcessing, JobFields{})
	require.NoError(t, err)
	_, err = store.SetStatus(ctx, job.ID, models.StatusCompleted, JobFields{ArtifactURL: "https://artifacts.example/y"})
	require.NoError(t, err)

	dup := newTestJob("github.com/acme/five")
	dup.ID = "five-again"
	_, err = store.Create(ctx, dup)
	assert.ErrorIs(t, err, ErrJobConflict, "P1: completed jobs still count as active for the uniqueness check")
}
