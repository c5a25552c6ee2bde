package pipeline

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/couchcryptid/storm-grid-disruption/internal/disruption"
	"github.com/couchcryptid/storm-grid-disruption/internal/grid"
	"github.com/couchcryptid/storm-grid-disruption/internal/observability"
)

// GridDegrader implements Degrader against a fixed electricity network.
// The network is validated and component-labelled once, then shared
// read-only across events.
type GridDegrader struct {
	network *grid.Network
	cfg     disruption.Config
	logger  *slog.Logger
	metrics *observability.Metrics
}

// NewGridDegrader validates the network, labels its components, and wraps
// it for per-event degradation. A structurally broken network (edges
// referencing missing nodes) is fatal here, before any event runs.
func NewGridDegrader(network *grid.Network, cfg disruption.Config, logger *slog.Logger, metrics *observability.Metrics) (*GridDegrader, error) {
	if err := network.Validate(); err != nil {
		return nil, fmt.Errorf("grid degrader: %w", err)
	}
	network.AssignComponentIDs()
	return &GridDegrader{network: network, cfg: cfg, logger: logger, metrics: metrics}, nil
}

// Degrade runs the threshold sweep for one event. An empty hazard field is
// the defined degenerate input and yields the null result rather than an
// error.
func (d *GridDegrader) Degrade(_ context.Context, event StormEvent) (*disruption.Result, error) {
	if event.Field.Empty() {
		d.logger.Info("empty wind field, producing null result", "event_id", event.ID)
		return disruption.NullResult(event.ID, d.cfg.Thresholds), nil
	}
	return disruption.DegradeWithStorm(d.logger, d.metrics, event.ID, event.Field, event.Fragments, d.network, d.cfg)
}
