package server

import (
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ternarybob/arbor"

	"github.com/ternarybob/docugen/internal/artifactstore"
	"github.com/ternarybob/docugen/internal/common"
	"github.com/ternarybob/docugen/internal/httpapi"
	"github.com/ternarybob/docugen/internal/queue"
	"github.com/ternarybob/docugen/internal/storage/sqlite"
	"github.com/ternarybob/docugen/internal/submitter"
)

func newTestServer(t *testing.T) *Server {
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

	api := httpapi.NewHandlers(svc, jobs, gw, arbor.NewLogger())
	cfg := common.NewDefaultConfig()
	return New(cfg, arbor.NewLogger(), api)
}

func TestHealthEndpointReportsOK(t *testing.T) {
	s := newTestServer(t)

	req := httptest.NewRequest(http.MethodGet, "/api/health", nil)
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "ok")
}

func TestJobsRouteIsReachableThroughMiddleware(t *testing.T) {
	s := newTestServer(t)

	req := httptest.NewRequest(http.MethodGet, "/v1/jobs", nil)
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.NotEmpty(t, rec.Header().Get("X-Correlation-ID"))
}
