// -----------------------------------------------------------------------
// Last Modified: Wednesday, 5th November 2025 8:17:54 pm
// Modified By: Bob McAllan
// -----------------------------------------------------------------------

// Command docugen-mcp exposes job submission and inspection as MCP tools
// over stdio, so an editor or agent can request documentation generation
// without going through the HTTP API.
package main

import (
	"fmt"
	"os"

	"github.com/mark3labs/mcp-go/server"
	"github.com/ternarybob/arbor"
	arbor_models "github.com/ternarybob/arbor/models"

	"github.com/ternarybob/docugen/internal/common"
	"github.com/ternarybob/docugen/internal/queue"
	"github.com/ternarybob/docugen/internal/storage/sqlite"
	"github.com/ternarybob/docugen/internal/submitter"
)

func main() {
	configPath := os.Getenv("DOCUGEN_CONFIG")
	if configPath == "" {
		configPath = "docugen.toml"
	}

	config, err := common.LoadFromFiles(configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	// Minimal console-only logging at warn level, to avoid cluttering the
	// MCP stdio transport with routine request traces.
	logger := arbor.NewLogger().WithConsoleWriter(arbor_models.WriterConfiguration{
		Type:             arbor_models.LogWriterTypeConsole,
		TimeFormat:       "15:04:05",
		DisableTimestamp: false,
	}).WithLevelFromString("warn")

	db, err := sqlite.Open(config.Storage.SQLite.Path)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to open job store")
	}
	defer db.Close()
	if err := sqlite.Migrate(db); err != nil {
		logger.Fatal().Err(err).Msg("failed to migrate job store")
	}

	jobs := sqlite.NewJobStorage(db, logger)

	q, err := queue.NewManager(db, config.Queue.QueueName, config.Queue.MaxReceive)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to initialize queue manager")
	}
	defer q.Close()

	svc := submitter.NewService(jobs, q, logger)

	mcpServer := server.NewMCPServer(
		"docugen",
		common.GetVersion(),
		server.WithToolCapabilities(true),
	)

	mcpServer.AddTool(createSubmitDocJobTool(), handleSubmitDocJob(svc, logger))
	mcpServer.AddTool(createGetDocJobTool(), handleGetDocJob(jobs, logger))
	mcpServer.AddTool(createListDocJobsTool(), handleListDocJobs(jobs, logger))

	if err := server.ServeStdio(mcpServer); err != nil {
		logger.Fatal().Err(err).Msg("MCP server failed")
	}
}
