// Command disrupt simulates electricity grid degradation for a set of storm
// wind fields. It loads the network, the edge-to-cell fragment table and
// one wind field per event, sweeps the configured failure thresholds, and
// writes per-event exposure and disruption tensors.
//
// Usage:
//
//	disrupt -scenario scenario.toml
package main

import (
	"context"
	"errors"
	"flag"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"

	fileadapter "github.com/couchcryptid/storm-grid-disruption/internal/adapter/file"
	httpadapter "github.com/couchcryptid/storm-grid-disruption/internal/adapter/http"
	"github.com/couchcryptid/storm-grid-disruption/internal/config"
	"github.com/couchcryptid/storm-grid-disruption/internal/disruption"
	"github.com/couchcryptid/storm-grid-disruption/internal/grid"
	"github.com/couchcryptid/storm-grid-disruption/internal/observability"
	"github.com/couchcryptid/storm-grid-disruption/internal/pipeline"
)

func main() {
	scenarioPath := flag.String("scenario", "", "path to scenario TOML file")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger := observability.NewLogger(cfg.LogLevel, cfg.LogFormat)
	metrics := observability.NewMetrics()

	if *scenarioPath == "" {
		logger.Error("missing required flag -scenario")
		os.Exit(1)
	}
	scenario, err := config.LoadScenario(*scenarioPath)
	if err != nil {
		logger.Error("failed to load scenario", "error", err)
		os.Exit(1)
	}

	logger.Info("loading network", "nodes", scenario.NodesPath, "edges", scenario.EdgesPath)
	network, err := fileadapter.LoadNetwork(scenario.NodesPath, scenario.EdgesPath)
	if err != nil {
		logger.Error("failed to load network", "error", err)
		os.Exit(1)
	}
	logger.Info("network loaded", "nodes", len(network.Nodes), "edges", len(network.Edges))

	fragments, err := fileadapter.LoadFragments(scenario.FragmentsPath)
	if err != nil {
		logger.Error("failed to load fragments", "error", err)
		os.Exit(1)
	}
	logger.Info("fragments loaded", "count", len(fragments))
	logger.Info("using failure thresholds", "thresholds", scenario.FailureThresholds)

	var weight grid.WeightColumn
	if scenario.WeightColumn != "" {
		weight, err = grid.ParseWeightColumn(scenario.WeightColumn)
		if err != nil {
			logger.Error("invalid weight column", "error", err)
			os.Exit(1)
		}
	}

	degrader, err := pipeline.NewGridDegrader(network, disruption.Config{
		Thresholds: scenario.FailureThresholds,
		Weight:     weight,
	}, logger, metrics)
	if err != nil {
		logger.Error("failed to build degrader", "error", err)
		os.Exit(1)
	}

	if err := os.MkdirAll(scenario.OutputDir, 0o755); err != nil {
		logger.Error("failed to create output directory", "error", err)
		os.Exit(1)
	}

	source := fileadapter.NewEventSource(scenario.WindFieldPaths, fragments, logger)
	sink := fileadapter.NewSink(
		scenario.OutputDir,
		scenario.MaxSupplyFactor,
		scenario.CompressionLevel,
		uuid.NewString(),
		clockwork.NewRealClock(),
		logger,
	)

	p := pipeline.New(source, degrader, sink, logger, metrics)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var srv *httpadapter.Server
	if cfg.MetricsAddr != "" {
		srv = httpadapter.NewServer(cfg.MetricsAddr, p, logger)
		go func() {
			if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				logger.Error("metrics server error", "error", err)
			}
		}()
	}

	runErr := p.Run(ctx)

	if srv != nil {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Error("metrics server shutdown error", "error", err)
		}
	}

	if runErr != nil {
		logger.Error("pipeline error", "error", runErr)
		os.Exit(1)
	}
	logger.Info("run complete")
}
