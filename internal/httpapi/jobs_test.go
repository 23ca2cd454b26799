package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ternarybob/arbor"

	"github.com/ternarybob/docugen/internal/artifactstore"
	"github.com/ternarybob/docugen/internal/common"
	"github.com/ternarybob/docugen/internal/models"
	"github.com/ternarybob/docugen/internal/queue"
	"github.com/ternarybob/docugen/internal/storage/sqlite"
	"github.com/ternarybob/docugen/internal/submitter"
)

func newTestHandlers(t *testing.T) *Handlers {
	t.Helper()
	dir := t.TempDir()
	db, err := sqlite.Open(filepath.Join(dir, "test.db"))
	require.NoError(t, err)
	require.NoError(t, sqlite.Migrate(db))
	t.Cleanup(func() { db.Close() })

	jobs := sqlite.NewJobStorage(db, arbor.NewLogger())
	q, err := queue.NewManager(db, "test_jobs", 5)
	require.NoError(t, err)
	svc := submitter.NewService(jobs, q, arbor.NewLogger())

	gw, err := artifactstore.NewBadgerGateway(&common.BadgerGatewayConfig{Path: filepath.Join(dir, "artifacts")}, arbor.NewLogger())
	require.NoError(t, err)
	t.Cleanup(func() { gw.Close() })

	return NewHandlers(svc, jobs, gw, arbor.NewLogger())
}

func newMux(h *Handlers) *http.ServeMux {
	mux := http.NewServeMux()
	h.Register(mux)
	return mux
}

func TestCreateJobReturnsCreatedForNewLocator(t *testing.T) {
	h := newTestHandlers(t)
	mux := newMux(h)

	body, _ := json.Marshal(createJobRequest{Locator: "acme/widgets"})
	req := httptest.NewRequest(http.MethodPost, "/v1/jobs", bytes.NewReader(body))
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)

	require.Equal(t, http.StatusCreated, rec.Code)
	var job models.Job
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &job))
	assert.Equal(t, models.VariantDocsOnly, job.Variant)
	assert.Equal(t, models.StatusPending, job.Status)
}

func TestCreateJobReturnsOKForDuplicateLocator(t *testing.T) {
	h := newTestHandlers(t)
	mux := newMux(h)

	body, _ := json.Marshal(createJobRequest{Locator: "acme/widgets"})

	first := httptest.NewRequest(http.MethodPost, "/v1/jobs", bytes.NewReader(body))
	rec1 := httptest.NewRecorder()
	mux.ServeHTTP(rec1, first)
	require.Equal(t, http.StatusCreated, rec1.Code)

	second := httptest.NewRequest(http.MethodPost, "/v1/jobs", bytes.NewReader(body))
	rec2 := httptest.NewRecorder()
	mux.ServeHTTP(rec2, second)
	assert.Equal(t, http.StatusOK, rec2.Code)
}

func TestCreateJobRejectsMissingLocator(t *testing.T) {
	h := newTestHandlers(t)
	mux := newMux(h)

	body, _ := json.Marshal(createJobRequest{})
	req := httptest.NewRequest(http.MethodPost, "/v1/jobs", bytes.NewReader(body))
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestCreateJobRejectsUnknownVariant(t *testing.T) {
	h := newTestHandlers(t)
	mux := newMux(h)

	body, _ := json.Marshal(map[string]string{"locator": "acme/widgets", "variant": "docs-in-interpretive-dance"})
	req := httptest.NewRequest(http.MethodPost, "/v1/jobs", bytes.NewReader(body))
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestGetJobReturnsNotFoundForUnknownID(t *testing.T) {
	h := newTestHandlers(t)
	mux := newMux(h)

	req := httptest.NewRequest(http.MethodGet, "/v1/jobs/does-not-exist", nil)
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestGetJobReturnsCreatedJob(t *testing.T) {
	h := newTestHandlers(t)
	mux := newMux(h)

	created, err := h.submitter.Submit(context.Background(), "acme/gadgets", "tester", "", models.VariantDocsOnly)
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodGet, "/v1/jobs/"+created.Job.ID, nil)
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var job models.Job
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &job))
	assert.Equal(t, created.Job.ID, job.ID)
}

func TestListJobsReturnsSubmittedJobs(t *testing.T) {
	h := newTestHandlers(t)
	mux := newMux(h)

	_, err := h.submitter.Submit(context.Background(), "acme/one", "tester", "", models.VariantDocsOnly)
	require.NoError(t, err)
	_, err = h.submitter.Submit(context.Background(), "acme/two", "tester", "", models.VariantDocsOnly)
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodGet, "/v1/jobs", nil)
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var jobs []models.Job
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &jobs))
	assert.Len(t, jobs, 2)
}

func TestDeleteJobRemovesIt(t *testing.T) {
	h := newTestHandlers(t)
	mux := newMux(h)

	created, err := h.submitter.Submit(context.Background(), "acme/gone", "tester", "", models.VariantDocsOnly)
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodDelete, "/v1/jobs/"+created.Job.ID, nil)
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)
	require.Equal(t, http.StatusNoContent, rec.Code)

	getReq := httptest.NewRequest(http.MethodGet, "/v1/jobs/"+created.Job.ID, nil)
	getRec := httptest.NewRecorder()
	mux.ServeHTTP(getRec, getReq)
	assert.Equal(t, http.StatusNotFound, getRec.Code)
}

func TestDownloadBundleReturnsNotFoundWithoutBundleURL(t *testing.T) {
	h := newTestHandlers(t)
	mux := newMux(h)

	created, err := h.submitter.Submit(context.Background(), "acme/nobundle", "tester", "", models.VariantDocsOnly)
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodGet, "/v1/jobs/"+created.Job.ID+"/bundle", nil)
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestDownloadBundleReturnsStoredBytes(t *testing.T) {
	h := newTestHandlers(t)
	mux := newMux(h)

	created, err := h.submitter.Submit(context.Background(), "acme/bundled", "tester", "", models.VariantDocsPlusComments)
	require.NoError(t, err)

	payload := []byte(`[{"path":"main.go","original":"package main","commented":"// commented\npackage main"}]`)
	_, err = h.gateway.Put(context.Background(), "commented/"+created.Job.ID, payload, "application/json", "")
	require.NoError(t, err)
	_, err = h.jobs.SetStatus(context.Background(), created.Job.ID, models.StatusProcessing, sqlite.JobFields{})
	require.NoError(t, err)
	_, err = h.jobs.SetStatus(context.Background(), created.Job.ID, models.StatusCompleted, sqlite.JobFields{BundleURL: "badger://artifacts/commented/" + created.Job.ID})
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodGet, "/v1/jobs/"+created.Job.ID+"/bundle", nil)
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, string(payload), rec.Body.String())
}

func TestDownloadArtifactReturnsConflictBeforeCompletion(t *testing.T) {
	h := newTestHandlers(t)
	mux := newMux(h)

	created, err := h.submitter.Submit(context.Background(), "acme/inflight", "tester", "", models.VariantDocsOnly)
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodGet, "/v1/jobs/"+created.Job.ID+"/artifact", nil)
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestDownloadArtifactReturnsNotFoundForUnknownJob(t *testing.T) {
	h := newTestHandlers(t)
	mux := newMux(h)

	req := httptest.NewRequest(http.MethodGet, "/v1/jobs/does-not-exist/artifact", nil)
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestDownloadArtifactReturnsMarkdownOnceCompleted(t *testing.T) {
	h := newTestHandlers(t)
	mux := newMux(h)

	created, err := h.submitter.Submit(context.Background(), "acme/finished", "tester", "", models.VariantDocsOnly)
	require.NoError(t, err)

	markdown := []byte("# Finished\n\nGenerated docs.")
	_, err = h.gateway.Put(context.Background(), "docs/"+created.Job.ID, markdown, "text/markdown", "")
	require.NoError(t, err)
	_, err = h.jobs.SetStatus(context.Background(), created.Job.ID, models.StatusProcessing, sqlite.JobFields{})
	require.NoError(t, err)
	_, err = h.jobs.SetStatus(context.Background(), created.Job.ID, models.StatusCompleted, sqlite.JobFields{ArtifactURL: "/v1/jobs/" + created.Job.ID + "/artifact"})
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodGet, "/v1/jobs/"+created.Job.ID+"/artifact", nil)
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "text/markdown", rec.Header().Get("Content-Type"))
	assert.Equal(t, string(markdown), rec.Body.String())
}
