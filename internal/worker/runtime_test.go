package worker

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ternarybob/arbor"

	"github.com/ternarybob/docugen/internal/errs"
	"github.com/ternarybob/docugen/internal/models"
	"github.com/ternarybob/docugen/internal/pipeline"
	"github.com/ternarybob/docugen/internal/queue"
	"github.com/ternarybob/docugen/internal/storage/sqlite"
)

type fakePipeline struct {
	run func(ctx context.Context, rs *pipeline.RunState) error
}

func (f *fakePipeline) Run(ctx context.Context, rs *pipeline.RunState) error {
	return f.run(ctx, rs)
}

func newTestDeps(t *testing.T) (*sqlite.JobStorage, *queue.Manager) {
	t.Helper()
	dir := t.TempDir()
	db, err := sqlite.Open(filepath.Join(dir, "test.db"))
	require.NoError(t, err)
	require.NoError(t, sqlite.Migrate(db))
	t.Cleanup(func() { db.Close() })

	jobs := sqlite.NewJobStorage(db, arbor.NewLogger())
	q, err := queue.NewManager(db, "test_jobs", 5)
	require.NoError(t, err)
	return jobs, q
}

func submitTestJob(t *testing.T, jobs *sqlite.JobStorage, q *queue.Manager, locator string) *models.Job {
	t.Helper()
	ctx := context.Background()
	job := &models.Job{ID: locator + "-id", Locator: locator, NormalizedLocator: locator, Caller: "tester", Variant: models.VariantDocsOnly}
	created, err := jobs.Create(ctx, job)
	require.NoError(t, err)
	require.NoError(t, q.Enqueue(ctx, models.WorkItem{JobID: created.ID, Locator: created.Locator, Variant: created.Variant}))
	return created
}

func TestRuntimeCompletesJobOnSuccessfulPipeline(t *testing.T) {
	jobs, q := newTestDeps(t)
	job := submitTestJob(t, jobs, q, "acme/widgets")

	p := &fakePipeline{run: func(ctx context.Context, rs *pipeline.RunState) error {
		rs.Publish = &pipeline.PublishResult{ArtifactURL: "badger://artifacts/docs/" + rs.JobID}
		return nil
	}}

	rt := NewRuntime(Config{Slots: 1, PollInterval: 10 * time.Millisecond, SoftDeadline: time.Second, HardDeadline: 2 * time.Second},
		q, jobs, p, arbor.NewLogger())

	ctx, cancel := context.WithCancel(context.Background())
	rt.Start(ctx)

	require.Eventually(t, func() bool {
		got, err := jobs.Get(context.Background(), job.ID)
		return err == nil && got.Status == models.StatusCompleted
	}, 2*time.Second, 20*time.Millisecond)

	cancel()
	rt.Stop()

	got, err := jobs.Get(context.Background(), job.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusCompleted, got.Status)
	assert.Contains(t, got.ArtifactURL, job.ID)
}

func TestRuntimeFailsJobOnPipelineError(t *testing.T) {
	jobs, q := newTestDeps(t)
	job := submitTestJob(t, jobs, q, "acme/broken")

	p := &fakePipeline{run: func(ctx context.Context, rs *pipeline.RunState) error {
		return errs.New(errs.KindModelRefused, "model refused to answer")
	}}

	rt := NewRuntime(Config{Slots: 1, PollInterval: 10 * time.Millisecond, SoftDeadline: time.Second, HardDeadline: 2 * time.Second},
		q, jobs, p, arbor.NewLogger())

	ctx, cancel := context.WithCancel(context.Background())
	rt.Start(ctx)

	require.Eventually(t, func() bool {
		got, err := jobs.Get(context.Background(), job.ID)
		return err == nil && got.Status == models.StatusFailed
	}, 2*time.Second, 20*time.Millisecond)

	cancel()
	rt.Stop()

	got, err := jobs.Get(context.Background(), job.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusFailed, got.Status)
	assert.Contains(t, got.Error, "model refused")
}

func TestRuntimeDropsJobThatNoLongerExists(t *testing.T) {
	jobs, q := newTestDeps(t)
	ctx := context.Background()

	require.NoError(t, q.Enqueue(ctx, models.WorkItem{JobID: "ghost-job", Locator: "acme/ghost", Variant: models.VariantDocsOnly}))

	called := false
	p := &fakePipeline{run: func(ctx context.Context, rs *pipeline.RunState) error {
		called = true
		return nil
	}}

	rt := NewRuntime(Config{Slots: 1, PollInterval: 10 * time.Millisecond, SoftDeadline: time.Second, HardDeadline: 2 * time.Second},
		q, jobs, p, arbor.NewLogger())

	runCtx, cancel := context.WithCancel(context.Background())
	rt.Start(runCtx)
	time.Sleep(150 * time.Millisecond)
	cancel()
	rt.Stop()

	assert.False(t, called, "pipeline should never run for a job that no longer exists in the store")
}

func TestRuntimeHardDeadlineFailsJobAsDeadlineExceeded(t *testing.T) {
	jobs, q := newTestDeps(t)
	job := submitTestJob(t, jobs, q, "acme/slow")

	p := &fakePipeline{run: func(ctx context.Context, rs *pipeline.RunState) error {
		<-ctx.Done()
		<-time.After(200 * time.Millisecond) // simulate an uncooperative stage that ignores cancellation
		return ctx.Err()
	}}

	rt := NewRuntime(Config{Slots: 1, PollInterval: 10 * time.Millisecond, SoftDeadline: 30 * time.Millisecond, HardDeadline: 60 * time.Millisecond},
		q, jobs, p, arbor.NewLogger())

	ctx, cancel := context.WithCancel(context.Background())
	rt.Start(ctx)

	require.Eventually(t, func() bool {
		got, err := jobs.Get(context.Background(), job.ID)
		return err == nil && got.Status == models.StatusFailed
	}, 2*time.Second, 20*time.Millisecond)

	cancel()
	rt.Stop()

	got, err := jobs.Get(context.Background(), job.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusFailed, got.Status)
	assert.Equal(t, "deadline-exceeded", got.ErrorKind)
}
