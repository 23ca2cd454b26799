package httpapi

import (
	"encoding/json"
	"net/http"
	"strconv"
	"strings"

	"github.com/ternarybob/arbor"

	"github.com/ternarybob/docugen/internal/artifactstore"
	"github.com/ternarybob/docugen/internal/errs"
	"github.com/ternarybob/docugen/internal/models"
	"github.com/ternarybob/docugen/internal/storage/sqlite"
	"github.com/ternarybob/docugen/internal/submitter"
)

// Handlers implements the /v1/jobs surface over the Submitter and Job Store.
type Handlers struct {
	submitter *submitter.Service
	jobs      *sqlite.JobStorage
	gateway   artifactstore.Gateway
	logger    arbor.ILogger
}

func NewHandlers(s *submitter.Service, jobs *sqlite.JobStorage, gateway artifactstore.Gateway, logger arbor.ILogger) *Handlers {
	return &Handlers{submitter: s, jobs: jobs, gateway: gateway, logger: logger}
}

// Register wires every /v1/jobs route onto mux, following the teacher's
// routes.go style of one entry-point handler per path prefix that then
// dispatches on method and path suffix.
func (h *Handlers) Register(mux *http.ServeMux) {
	mux.HandleFunc("/v1/jobs", h.handleCollection)
	mux.HandleFunc("/v1/jobs/", h.handleItem)
}

// handleCollection handles GET /v1/jobs (list) and POST /v1/jobs (submit).
func (h *Handlers) handleCollection(w http.ResponseWriter, r *http.Request) {
	routeResourceCollection(w, r, h.listJobs, h.createJob)
}

// handleItem handles GET/DELETE /v1/jobs/{id}, GET /v1/jobs/{id}/bundle and
// GET /v1/jobs/{id}/artifact.
func (h *Handlers) handleItem(w http.ResponseWriter, r *http.Request) {
	path := strings.TrimPrefix(r.URL.Path, "/v1/jobs/")
	if path == "" {
		writeError(w, http.StatusNotFound, "job id required")
		return
	}

	if id, ok := strings.CutSuffix(path, "/bundle"); ok {
		routeResourceItem(w, r, func(w http.ResponseWriter, r *http.Request) {
			h.downloadBundle(w, r, id)
		}, nil)
		return
	}

	if id, ok := strings.CutSuffix(path, "/artifact"); ok {
		routeResourceItem(w, r, func(w http.ResponseWriter, r *http.Request) {
			h.downloadArtifact(w, r, id)
		}, nil)
		return
	}

	routeResourceItem(w, r,
		func(w http.ResponseWriter, r *http.Request) { h.getJob(w, r, path) },
		func(w http.ResponseWriter, r *http.Request) { h.deleteJob(w, r, path) },
	)
}

// createJob handles POST /v1/jobs, the HTTP face of submit() (spec.md §4.3).
func (h *Handlers) createJob(w http.ResponseWriter, r *http.Request) {
	var req createJobRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}
	req.normalize()
	if err := req.validateRequest(); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	result, err := h.submitter.Submit(r.Context(), req.Locator, req.Caller, req.Credential, req.Variant)
	if err != nil {
		h.logger.Error().Err(err).Str("locator", req.Locator).Msg("httpapi: submit failed")
		writeError(w, http.StatusInternalServerError, "submitting job failed")
		return
	}

	status := http.StatusCreated
	if !result.Created {
		status = http.StatusOK
	}
	writeJSON(w, status, result.Job)
}

// listJobs handles GET /v1/jobs?skip=&limit=
func (h *Handlers) listJobs(w http.ResponseWriter, r *http.Request) {
	skip := intQuery(r, "skip", 0)
	limit := intQuery(r, "limit", 100)

	jobs, err := h.jobs.List(r.Context(), skip, limit)
	if err != nil {
		h.logger.Error().Err(err).Msg("httpapi: listing jobs failed")
		writeError(w, http.StatusInternalServerError, "listing jobs failed")
		return
	}
	writeJSON(w, http.StatusOK, jobs)
}

// getJob handles GET /v1/jobs/{id}
func (h *Handlers) getJob(w http.ResponseWriter, r *http.Request, id string) {
	job, err := h.jobs.Get(r.Context(), id)
	if err != nil {
		if sqlite.IsNotFound(err) {
			writeError(w, http.StatusNotFound, "job not found")
			return
		}
		h.logger.Error().Err(err).Str("job_id", id).Msg("httpapi: loading job failed")
		writeError(w, http.StatusInternalServerError, "loading job failed")
		return
	}
	writeJSON(w, http.StatusOK, job)
}

// deleteJob handles DELETE /v1/jobs/{id}
func (h *Handlers) deleteJob(w http.ResponseWriter, r *http.Request, id string) {
	if err := h.jobs.Delete(r.Context(), id); err != nil {
		if sqlite.IsNotFound(err) {
			writeError(w, http.StatusNotFound, "job not found")
			return
		}
		h.logger.Error().Err(err).Str("job_id", id).Msg("httpapi: deleting job failed")
		writeError(w, http.StatusInternalServerError, "deleting job failed")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// downloadBundle handles GET /v1/jobs/{id}/bundle, the docs-plus-comments
// fallback path: the commented-files JSON bundle the Publish stage wrote to
// the Artifact Store Gateway when the job had no write access and no PR
// could be opened.
func (h *Handlers) downloadBundle(w http.ResponseWriter, r *http.Request, id string) {
	job, err := h.jobs.Get(r.Context(), id)
	if err != nil {
		if sqlite.IsNotFound(err) {
			writeError(w, http.StatusNotFound, "job not found")
			return
		}
		h.logger.Error().Err(err).Str("job_id", id).Msg("httpapi: loading job failed")
		writeError(w, http.StatusInternalServerError, "loading job failed")
		return
	}
	if job.BundleURL == "" {
		writeError(w, http.StatusNotFound, "job has no commented-files bundle")
		return
	}

	data, err := h.gateway.Get(r.Context(), "commented/"+id)
	if err != nil {
		h.logger.Error().Err(err).Str("job_id", id).Msg("httpapi: reading bundle failed")
		kind := errs.KindOf(err)
		if kind == errs.KindStorageUnavail {
			writeError(w, http.StatusNotFound, "bundle not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "reading bundle failed")
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	w.Write(data)
}

// downloadArtifact handles GET /v1/jobs/{id}/artifact, streaming the
// generated markdown document the Publish stage wrote to the Artifact
// Store Gateway (spec.md external-interfaces table: 200, 404, 409 if not
// yet completed).
func (h *Handlers) downloadArtifact(w http.ResponseWriter, r *http.Request, id string) {
	job, err := h.jobs.Get(r.Context(), id)
	if err != nil {
		if sqlite.IsNotFound(err) {
			writeError(w, http.StatusNotFound, "job not found")
			return
		}
		h.logger.Error().Err(err).Str("job_id", id).Msg("httpapi: loading job failed")
		writeError(w, http.StatusInternalServerError, "loading job failed")
		return
	}
	if job.Status != models.StatusCompleted {
		writeError(w, http.StatusConflict, "job is not yet completed")
		return
	}

	data, err := h.gateway.Get(r.Context(), "docs/"+id)
	if err != nil {
		h.logger.Error().Err(err).Str("job_id", id).Msg("httpapi: reading artifact failed")
		kind := errs.KindOf(err)
		if kind == errs.KindStorageUnavail {
			writeError(w, http.StatusNotFound, "artifact not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "reading artifact failed")
		return
	}

	w.Header().Set("Content-Type", "text/markdown")
	w.WriteHeader(http.StatusOK)
	w.Write(data)
}

func intQuery(r *http.Request, key string, def int) int {
	v := r.URL.Query().Get(key)
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil || n < 0 {
		return def
	}
	return n
}
