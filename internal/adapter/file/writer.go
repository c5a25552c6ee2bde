package file

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"

	"github.com/jonboulle/clockwork"

	"github.com/couchcryptid/storm-grid-disruption/internal/disruption"
	"github.com/couchcryptid/storm-grid-disruption/internal/results"
)

// Sink persists per-event exposure and disruption tensors, pruning entries
// of no interest first to keep output sizes manageable on large networks.
type Sink struct {
	outDir string

	// maxSupplyFactor bounds the stored disruption: targets supplied at or
	// above this fraction of nominal are not considered disrupted.
	maxSupplyFactor  float64
	compressionLevel int

	runID  string
	clock  clockwork.Clock
	logger *slog.Logger
}

// NewSink creates a result sink writing into outDir.
func NewSink(outDir string, maxSupplyFactor float64, compressionLevel int, runID string, clock clockwork.Clock, logger *slog.Logger) *Sink {
	return &Sink{
		outDir:           outDir,
		maxSupplyFactor:  maxSupplyFactor,
		compressionLevel: compressionLevel,
		runID:            runID,
		clock:            clock,
		logger:           logger,
	}
}

// ExposurePath returns the output path for an event's exposure tensor.
func (s *Sink) ExposurePath(eventID string) string {
	return filepath.Join(s.outDir, eventID+"_exposure.tensor")
}

// DisruptionPath returns the output path for an event's disruption tensor.
func (s *Sink) DisruptionPath(eventID string) string {
	return filepath.Join(s.outDir, eventID+"_disruption.tensor")
}

// Write implements pipeline.ResultSink. Exposure keeps only edges with a
// positive exposed length; disruption keeps only targets materially
// disrupted (supply factor below the cutoff). The event coordinate always
// survives pruning so even a fully empty result is a well-formed file.
func (s *Sink) Write(_ context.Context, eventID string, result *disruption.Result) error {
	meta := results.Meta{RunID: s.runID, CreatedAt: s.clock.Now().UTC()}

	exposure, err := result.Exposure.SelectEvent(disruption.DimEventID, eventID)
	if err != nil {
		return fmt.Errorf("select exposure event %q: %w", eventID, err)
	}
	exposure.PruneWhere(disruption.VarLengthM, func(v float64) bool { return v > 0 })
	exposure.DropEmptyCoords(disruption.DimThreshold, disruption.DimEdge)
	if err := results.WriteFile(s.ExposurePath(eventID), exposure, s.compressionLevel, meta); err != nil {
		return fmt.Errorf("write exposure for %q: %w", eventID, err)
	}

	cutoff := s.maxSupplyFactor
	disrupted, err := result.Disruption.SelectEvent(disruption.DimEventID, eventID)
	if err != nil {
		return fmt.Errorf("select disruption event %q: %w", eventID, err)
	}
	disrupted.PruneWhere(disruption.VarSupplyFactor, func(v float64) bool { return v < cutoff })
	disrupted.DropEmptyCoords(disruption.DimThreshold, disruption.DimTarget)
	if err := results.WriteFile(s.DisruptionPath(eventID), disrupted, s.compressionLevel, meta); err != nil {
		return fmt.Errorf("write disruption for %q: %w", eventID, err)
	}

	s.logger.Info("results written",
		"event_id", eventID,
		"exposure_entries", exposure.Count(disruption.VarLengthM),
		"disruption_entries", disrupted.Count(disruption.VarSupplyFactor),
	)
	return nil
}
