package main

import (
	"github.com/mark3labs/mcp-go/mcp"
)

// createSubmitDocJobTool returns the submit_doc_job tool definition.
func createSubmitDocJobTool() mcp.Tool {
	return mcp.NewTool("submit_doc_job",
		mcp.WithDescription("Submit a repository for documentation generation"),
		mcp.WithString("locator",
			mcp.Required(),
			mcp.Description("Repository URL to document, e.g. https://github.com/owner/repo"),
		),
		mcp.WithString("variant",
			mcp.Description("docs-only (default) or docs-plus-comments"),
		),
		mcp.WithString("credential",
			mcp.Description("GitHub token to use for private repositories or publishing a pull request"),
		),
		mcp.WithString("caller",
			mcp.Description("Identifier of the requester, recorded on the job"),
		),
	)
}

// createGetDocJobTool returns the get_doc_job tool definition.
func createGetDocJobTool() mcp.Tool {
	return mcp.NewTool("get_doc_job",
		mcp.WithDescription("Fetch the current status of a documentation job"),
		mcp.WithString("job_id",
			mcp.Required(),
			mcp.Description("Job ID returned by submit_doc_job"),
		),
	)
}

// createListDocJobsTool returns the list_doc_jobs tool definition.
func createListDocJobsTool() mcp.Tool {
	return mcp.NewTool("list_doc_jobs",
		mcp.WithDescription("List recent documentation jobs"),
		mcp.WithNumber("limit",
			mcp.Description("Max results (default: 20)"),
		),
	)
}
