package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"github.com/ternarybob/arbor"

	"github.com/ternarybob/docugen/internal/models"
	"github.com/ternarybob/docugen/internal/storage/sqlite"
	"github.com/ternarybob/docugen/internal/submitter"
)

// handleSubmitDocJob implements the submit_doc_job tool.
func handleSubmitDocJob(svc *submitter.Service, logger arbor.ILogger) server.ToolHandlerFunc {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		locator, err := request.RequireString("locator")
		if err != nil || locator == "" {
			return errorResult("locator parameter is required"), nil
		}

		variant := models.Variant(request.GetString("variant", string(models.VariantDocsOnly)))
		if variant != models.VariantDocsOnly && variant != models.VariantDocsPlusComments {
			return errorResult(fmt.Sprintf("unknown variant %q", variant)), nil
		}
		credential := request.GetString("credential", "")
		caller := request.GetString("caller", "mcp")

		result, err := svc.Submit(ctx, locator, caller, credential, variant)
		if err != nil {
			logger.Error().Err(err).Str("locator", locator).Msg("mcp: submit failed")
			return errorResult(fmt.Sprintf("submit error: %v", err)), nil
		}

		verb := "submitted"
		if !result.Created {
			verb = "already tracked"
		}
		return &mcp.CallToolResult{
			Content: []mcp.Content{
				mcp.NewTextContent(fmt.Sprintf("Job %s (%s): id=%s status=%s", verb, locator, result.Job.ID, result.Job.Status)),
			},
		}, nil
	}
}

// handleGetDocJob implements the get_doc_job tool.
func handleGetDocJob(jobs *sqlite.JobStorage, logger arbor.ILogger) server.ToolHandlerFunc {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		jobID, err := request.RequireString("job_id")
		if err != nil || jobID == "" {
			return errorResult("job_id parameter is required"), nil
		}

		job, err := jobs.Get(ctx, jobID)
		if err != nil {
			if sqlite.IsNotFound(err) {
				return errorResult(fmt.Sprintf("job %s not found", jobID)), nil
			}
			logger.Error().Err(err).Str("job_id", jobID).Msg("mcp: get job failed")
			return errorResult(fmt.Sprintf("error loading job: %v", err)), nil
		}

		return &mcp.CallToolResult{
			Content: []mcp.Content{
				mcp.NewTextContent(formatJob(job)),
			},
		}, nil
	}
}

// handleListDocJobs implements the list_doc_jobs tool.
func handleListDocJobs(jobs *sqlite.JobStorage, logger arbor.ILogger) server.ToolHandlerFunc {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		limit := request.GetInt("limit", 20)
		if limit > 100 {
			limit = 100
		}

		list, err := jobs.List(ctx, 0, limit)
		if err != nil {
			logger.Error().Err(err).Msg("mcp: list jobs failed")
			return errorResult(fmt.Sprintf("error listing jobs: %v", err)), nil
		}

		var b strings.Builder
		if len(list) == 0 {
			b.WriteString("No jobs found.")
		}
		for _, job := range list {
			fmt.Fprintf(&b, "- %s\n", formatJob(job))
		}

		return &mcp.CallToolResult{
			Content: []mcp.Content{
				mcp.NewTextContent(b.String()),
			},
		}, nil
	}
}

func formatJob(job *models.Job) string {
	var b strings.Builder
	fmt.Fprintf(&b, "id=%s locator=%s variant=%s status=%s", job.ID, job.Locator, job.Variant, job.Status)
	if job.Error != "" {
		fmt.Fprintf(&b, " error=%q", job.Error)
	}
	if job.ArtifactURL != "" {
		fmt.Fprintf(&b, " artifact_url=%s", job.ArtifactURL)
	}
	if job.PullRequestURL != "" {
		fmt.Fprintf(&b, " pull_request_url=%s", job.PullRequestURL)
	}
	if job.BundleURL != "" {
		fmt.Fprintf(&b, " bundle_url=%s", job.BundleURL)
	}
	return b.String()
}

func errorResult(msg string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{
			mcp.NewTextContent("Error: " + msg),
		},
	}
}
