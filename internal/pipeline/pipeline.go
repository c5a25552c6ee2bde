package pipeline

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/couchcryptid/storm-grid-disruption/internal/disruption"
	"github.com/couchcryptid/storm-grid-disruption/internal/hazard"
	"github.com/couchcryptid/storm-grid-disruption/internal/observability"
)

// StormEvent bundles one storm's hazard inputs.
type StormEvent struct {
	ID        string
	Field     *hazard.Field
	Fragments []hazard.Fragment
}

// EventSource yields storm events to simulate; io.EOF ends the run.
type EventSource interface {
	Next(ctx context.Context) (StormEvent, error)
}

// Degrader runs the degradation sweep for one storm event.
type Degrader interface {
	Degrade(ctx context.Context, event StormEvent) (*disruption.Result, error)
}

// ResultSink persists one event's exposure and disruption output.
type ResultSink interface {
	Write(ctx context.Context, eventID string, result *disruption.Result) error
}

// Pipeline orchestrates the per-event extract-degrade-write loop. Events
// are independent: a failed event is logged and counted but never corrupts
// another event's output.
type Pipeline struct {
	source   EventSource
	degrader Degrader
	sink     ResultSink
	logger   *slog.Logger
	metrics  *observability.Metrics
	ready    atomic.Bool
}

// New creates a Pipeline with the given stages and observability.
func New(source EventSource, degrader Degrader, sink ResultSink, logger *slog.Logger, metrics *observability.Metrics) *Pipeline {
	return &Pipeline{
		source:   source,
		degrader: degrader,
		sink:     sink,
		logger:   logger,
		metrics:  metrics,
	}
}

// CheckReadiness returns nil once the pipeline has completed at least one
// event, or an error describing why the worker is not yet ready.
func (p *Pipeline) CheckReadiness(_ context.Context) error {
	if !p.ready.Load() {
		return errors.New("pipeline has not completed any events yet")
	}
	return nil
}

// Run processes events until the source is exhausted or the context is
// cancelled.
func (p *Pipeline) Run(ctx context.Context) error {
	p.logger.Info("pipeline started")
	p.metrics.PipelineRunning.Set(1)
	defer p.metrics.PipelineRunning.Set(0)

	for {
		select {
		case <-ctx.Done():
			p.logger.Info("pipeline stopping", "reason", ctx.Err())
			return nil
		default:
		}

		event, err := p.source.Next(ctx)
		if errors.Is(err, io.EOF) {
			p.logger.Info("all events processed")
			return nil
		}
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return err
		}

		p.processEvent(ctx, event)
	}
}

// processEvent degrades and persists a single event, isolating its failures.
func (p *Pipeline) processEvent(ctx context.Context, event StormEvent) {
	start := time.Now()

	result, err := p.degrader.Degrade(ctx, event)
	if err != nil {
		p.logger.Error("degrade failed, skipping event", "event_id", event.ID, "error", err)
		p.metrics.EventErrors.Inc()
		return
	}

	if err := p.sink.Write(ctx, event.ID, result); err != nil {
		p.logger.Error("write results failed", "event_id", event.ID, "error", err)
		p.metrics.EventErrors.Inc()
		return
	}

	p.metrics.EventsProcessed.Inc()
	p.metrics.EventDuration.Observe(time.Since(start).Seconds())
	p.ready.Store(true)

	p.logger.Info("event complete",
		"event_id", event.ID,
		"exposed_edges", result.Exposure.Count(disruption.VarLengthM),
		"targets_assessed", result.Disruption.Count(disruption.VarSupplyFactor),
	)
}
