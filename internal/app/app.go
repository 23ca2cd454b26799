// -----------------------------------------------------------------------
// Last Modified: Wednesday, 5th November 2025 8:17:54 pm
// Modified By: Bob McAllan
// -----------------------------------------------------------------------

package app

import (
	"context"
	"fmt"

	"github.com/ternarybob/arbor"

	"github.com/ternarybob/docugen/internal/artifactstore"
	"github.com/ternarybob/docugen/internal/common"
	"github.com/ternarybob/docugen/internal/httpapi"
	"github.com/ternarybob/docugen/internal/pipeline/stages"
	"github.com/ternarybob/docugen/internal/queue"
	"github.com/ternarybob/docugen/internal/reaper"
	"github.com/ternarybob/docugen/internal/services/llm"
	"github.com/ternarybob/docugen/internal/storage/sqlite"
	"github.com/ternarybob/docugen/internal/submitter"
	"github.com/ternarybob/docugen/internal/worker"
)

// App holds every long-lived component wired together for one running
// instance: the Job Store, the queue broker, the LLM provider, the
// Artifact Store Gateway, the Submitter, the Pipeline, the Worker Runtime,
// the Reaper and the HTTP API handlers built on top of them.
type App struct {
	Config *common.Config
	Logger arbor.ILogger

	db        *sqliteDB
	JobStore  *sqlite.JobStorage
	Queue     *queue.Manager
	Gateway   artifactstore.Gateway
	Provider  llm.Provider
	Submitter *submitter.Service
	Runtime   *worker.Runtime
	Reaper    *reaper.Reaper
	API       *httpapi.Handlers

	ctx       context.Context
	cancelCtx context.CancelFunc
}

// sqliteDB exists only so App.Close has a single typed field to call
// Close on, mirroring the teacher's StorageManager.Close() seam without
// pulling in the teacher's broader storage.Manager interface.
type sqliteDB struct {
	close func() error
}

// New initializes every component in dependency order: storage, queue,
// provider, gateway, submitter, pipeline, worker runtime, reaper, API.
func New(cfg *common.Config, logger arbor.ILogger) (*App, error) {
	a := &App{Config: cfg, Logger: logger}
	a.ctx, a.cancelCtx = context.WithCancel(context.Background())

	db, err := sqlite.Open(cfg.Storage.SQLite.Path)
	if err != nil {
		return nil, fmt.Errorf("opening sqlite database: %w", err)
	}
	if err := sqlite.Migrate(db); err != nil {
		return nil, fmt.Errorf("running migrations: %w", err)
	}
	a.db = &sqliteDB{close: db.Close}
	a.JobStore = sqlite.NewJobStorage(db, logger)
	logger.Info().Str("path", cfg.Storage.SQLite.Path).Msg("job store initialized")

	q, err := queue.NewManager(db, cfg.Queue.QueueName, cfg.Queue.MaxReceive)
	if err != nil {
		return nil, fmt.Errorf("initializing queue manager: %w", err)
	}
	a.Queue = q
	logger.Info().Str("queue_name", cfg.Queue.QueueName).Msg("queue manager initialized")

	provider, err := llm.NewProvider(a.ctx, cfg, logger)
	if err != nil {
		return nil, fmt.Errorf("initializing LLM provider: %w", err)
	}
	a.Provider = provider
	logger.Info().Str("provider", string(provider.Type())).Msg("LLM provider initialized")

	gateway, err := artifactstore.New(&cfg.ArtifactStore, logger)
	if err != nil {
		return nil, fmt.Errorf("initializing artifact store gateway: %w", err)
	}
	a.Gateway = gateway
	logger.Info().Bool("configured", gateway.Configured()).Msg("artifact store gateway initialized")

	a.Submitter = submitter.NewService(a.JobStore, a.Queue, logger)

	pipe := stages.Build(cfg, a.Provider, a.Gateway, logger)

	a.Runtime = worker.NewRuntime(worker.Config{
		Slots:             cfg.Workers.Count,
		PollInterval:      common.ParseDurationOr(cfg.Queue.PollInterval, 0),
		SoftDeadline:      common.ParseDurationOr(cfg.Pipeline.SoftDeadline, 0),
		HardDeadline:      common.ParseDurationOr(cfg.Pipeline.HardDeadline, 0),
		DefaultCredential: cfg.Github.DefaultCredential,
	}, a.Queue, a.JobStore, pipe, logger)

	a.Reaper = reaper.New(a.JobStore, &cfg.Reaper, logger)

	a.API = httpapi.NewHandlers(a.Submitter, a.JobStore, a.Gateway, logger)

	a.Runtime.Start(a.ctx)
	logger.Info().Int("slots", cfg.Workers.Count).Msg("worker runtime started")

	if err := a.Reaper.Start(); err != nil {
		return nil, fmt.Errorf("starting reaper: %w", err)
	}
	logger.Info().Str("schedule", cfg.Reaper.Schedule).Msg("reaper started")

	logger.Info().Msg("application initialization complete")
	return a, nil
}

// Close stops every background component in reverse dependency order.
func (a *App) Close() error {
	a.Logger.Info().Msg("shutting down application")

	if a.Reaper != nil {
		a.Reaper.Stop()
		a.Logger.Info().Msg("reaper stopped")
	}

	if a.cancelCtx != nil {
		a.cancelCtx()
	}
	if a.Runtime != nil {
		a.Runtime.Stop()
		a.Logger.Info().Msg("worker runtime stopped")
	}

	if a.Provider != nil {
		if err := a.Provider.Close(); err != nil {
			a.Logger.Warn().Err(err).Msg("failed to close LLM provider")
		}
	}

	if a.Gateway != nil {
		if err := a.Gateway.Close(); err != nil {
			a.Logger.Warn().Err(err).Msg("failed to close artifact store gateway")
		}
	}

	if a.Queue != nil {
		if err := a.Queue.Close(); err != nil {
			a.Logger.Warn().Err(err).Msg("failed to close queue manager")
		}
	}

	common.Stop()

	if a.db != nil {
		if err := a.db.close(); err != nil {
			return fmt.Errorf("closing database: %w", err)
		}
		a.Logger.Info().Msg("database closed")
	}
	return nil
}
