// -----------------------------------------------------------------------
// Last Modified: Wednesday, 5th November 2025 8:17:54 pm
// Modified By: Bob McAllan
// -----------------------------------------------------------------------

// Command docugen-worker runs the Worker Runtime and Reaper without the
// HTTP API, for deployments that submit jobs through a separate docugen
// instance and only need extra processing capacity.
package main

import (
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/arbor/models"

	"github.com/ternarybob/docugen/internal/app"
	"github.com/ternarybob/docugen/internal/common"
)

// Exit codes per the worker CLI contract: clean shutdown, configuration
// error, broker unavailable at startup, uncaught runtime fault.
const (
	exitOK            = 0
	exitConfigError   = 64
	exitBrokerUnavail = 69
	exitRuntimeFault  = 70
)

type configPaths []string

func (c *configPaths) String() string { return fmt.Sprintf("%v", *c) }
func (c *configPaths) Set(value string) error {
	*c = append(*c, value)
	return nil
}

func main() {
	var configFiles configPaths
	flag.Var(&configFiles, "config", "Configuration file path (can be specified multiple times)")
	flag.Var(&configFiles, "c", "Configuration file path (shorthand)")
	flag.Parse()

	if len(configFiles) == 0 {
		if _, err := os.Stat("docugen.toml"); err == nil {
			configFiles = append(configFiles, "docugen.toml")
		}
	}

	config, err := common.LoadFromFiles(configFiles...)
	if err != nil {
		arbor.NewLogger().Fatal().Err(err).Msg("failed to load configuration")
		os.Exit(exitConfigError)
	}

	logger := arbor.NewLogger().
		WithConsoleWriter(models.WriterConfiguration{
			Type:             models.LogWriterTypeConsole,
			TimeFormat:       "15:04:05",
			TextOutput:       true,
			DisableTimestamp: false,
		}).
		WithLevelFromString(config.Logging.Level)
	common.InitLogger(logger)
	common.PrintBanner(config, logger)

	application, err := app.New(config, logger)
	if err != nil {
		logger.Error().Err(err).Msg("failed to initialize worker application")
		os.Exit(classifyStartupError(err))
	}

	logger.Info().
		Int("slots", config.Workers.Count).
		Str("schedule", config.Reaper.Schedule).
		Msg("docugen-worker ready - press Ctrl+C to stop")

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	<-sigChan

	logger.Info().Msg("interrupt signal received, shutting down")

	done := make(chan error, 1)
	go func() { done <- application.Close() }()

	select {
	case err := <-done:
		if err != nil {
			logger.Error().Err(err).Msg("worker shutdown encountered errors")
			os.Exit(exitRuntimeFault)
		}
	case <-time.After(10 * time.Second):
		logger.Warn().Msg("worker shutdown timed out")
	}

	logger.Info().Msg("stopped")
	os.Exit(exitOK)
}

// classifyStartupError maps an app.New failure onto the worker CLI's exit
// code contract: queue/broker initialization failures are distinguished
// from configuration mistakes, everything else is a runtime fault.
func classifyStartupError(err error) int {
	msg := err.Error()
	switch {
	case strings.Contains(msg, "queue manager"), strings.Contains(msg, "sqlite database"):
		return exitBrokerUnavail
	case strings.Contains(msg, "LLM provider"), strings.Contains(msg, "artifact store gateway"):
		return exitConfigError
	default:
		return exitRuntimeFault
	}
}
