// Package disruption degrades an electricity network under a storm's
// maximum wind field and estimates the resulting loss of supply.
//
// For each failure threshold, in ascending order: fail the edges whose
// fragments exceed the threshold, record the exposed length, relabel the
// connected components of what survives, reallocate power from surviving
// sources to targets, and derive per-target supply factors and affected
// customers.
package disruption

import (
	"errors"
	"fmt"
	"log/slog"
	"math"
	"sort"

	"github.com/paulmach/orb/geo"

	"github.com/couchcryptid/storm-grid-disruption/internal/grid"
	"github.com/couchcryptid/storm-grid-disruption/internal/hazard"
	"github.com/couchcryptid/storm-grid-disruption/internal/observability"
	"github.com/couchcryptid/storm-grid-disruption/internal/results"
)

// Variable and dimension names of the output tensors.
const (
	VarLengthM           = "length_m"
	VarSupplyFactor      = "supply_factor"
	VarCustomersAffected = "customers_affected"

	DimEventID   = "event_id"
	DimThreshold = "threshold"
	DimEdge      = "edge"
	DimTarget    = "target"
)

// Config controls a degradation run.
type Config struct {
	// Thresholds are the intensity values at which edges fail, in the same
	// units as the hazard field. Processed in ascending order.
	Thresholds []float64

	// Weight selects the allocation weighting column; empty means choose
	// automatically (gdp unless its sum over targets is zero).
	Weight grid.WeightColumn
}

// Result pairs the exposure and disruption tensors for one event.
type Result struct {
	Exposure   *results.Tensor
	Disruption *results.Tensor
}

func newExposure(eventID string, thresholds []float64, edges []int64) *results.Tensor {
	return results.New(
		[]string{VarLengthM},
		results.StringDim(DimEventID, []string{eventID}),
		results.FloatDim(DimThreshold, thresholds),
		results.IntDim(DimEdge, edges),
	)
}

func newDisruption(eventID string, thresholds []float64, targets []int64) *results.Tensor {
	return results.New(
		[]string{VarSupplyFactor, VarCustomersAffected},
		results.StringDim(DimEventID, []string{eventID}),
		results.FloatDim(DimThreshold, thresholds),
		results.IntDim(DimTarget, targets),
	)
}

// NullResult is the well-formed empty output for an event with no usable
// hazard field: the event id and thresholds are present as coordinates but
// no cell is populated, so downstream consumers always find a valid file.
func NullResult(eventID string, thresholds []float64) *Result {
	ascending := ascendingThresholds(thresholds)
	return &Result{
		Exposure:   newExposure(eventID, ascending, nil),
		Disruption: newDisruption(eventID, ascending, nil),
	}
}

func ascendingThresholds(thresholds []float64) []float64 {
	ascending := append([]float64(nil), thresholds...)
	sort.Float64s(ascending)
	return ascending
}

// DegradeWithStorm runs the full threshold sweep for one storm event.
//
// The network must have component ids assigned. A network without target
// nodes yields a null result, as does a hazard lookup miss ("no wind field
// available"); neither is an error. Thresholds are swept in ascending order
// and the sweep exits early at the first threshold with zero failed
// fragments: any higher threshold is strictly harder to exceed, so it
// cannot fail anything either. Skipped thresholds stay unpopulated.
func DegradeWithStorm(
	logger *slog.Logger,
	metrics *observability.Metrics,
	eventID string,
	field *hazard.Field,
	fragments []hazard.Fragment,
	network *grid.Network,
	cfg Config,
) (*Result, error) {
	targets := network.Targets()
	if len(targets) == 0 {
		logger.Info("no viable network, returning null result", "event_id", eventID)
		return &Result{
			Exposure:   newExposure(eventID, nil, nil),
			Disruption: newDisruption(eventID, nil, nil),
		}, nil
	}

	targetIDs := make([]int64, len(targets))
	for i, t := range targets {
		targetIDs[i] = t.TargetID
	}
	edgeIDs := make([]int64, len(network.Edges))
	for i, e := range network.Edges {
		edgeIDs[i] = e.ID
	}

	thresholds := ascendingThresholds(cfg.Thresholds)
	result := &Result{
		Exposure:   newExposure(eventID, thresholds, edgeIDs),
		Disruption: newDisruption(eventID, thresholds, targetIDs),
	}

	intensities, err := hazard.SampleFragments(field, fragments)
	if errors.Is(err, hazard.ErrNoCoverage) {
		logger.Info("no wind field available, returning null result", "event_id", eventID)
		return result, nil
	}
	if err != nil {
		return nil, err
	}

	nominalComponents := network.ComponentCount()

	for _, threshold := range thresholds {
		metrics.ThresholdsEvaluated.Inc()

		// A fragment fails when it experiences the threshold intensity or
		// more; an edge with at least one failed fragment fails in full.
		failedLength := make(map[int64]float64)
		failedFragments := 0
		for i, frag := range fragments {
			if intensities[i] < threshold {
				continue
			}
			failedFragments++
			failedLength[frag.EdgeID] += geo.Length(frag.Geometry)
		}
		metrics.EdgesFailed.Observe(float64(len(failedLength)))

		if failedFragments == 0 {
			logger.Info("no damage detected, exiting threshold sweep early",
				"event_id", eventID, "threshold", threshold)
			return result, nil
		}

		eventCoord := eventID
		thresholdCoord := results.FloatCoord(threshold)

		for edgeID, length := range failedLength {
			if err := result.Exposure.Set(VarLengthM, length,
				eventCoord, thresholdCoord, results.IntCoord(edgeID)); err != nil {
				return nil, fmt.Errorf("record exposure for edge %d: %w", edgeID, err)
			}
		}

		surviving := make(map[int64]bool, len(network.Edges))
		for _, e := range network.Edges {
			if _, failed := failedLength[e.ID]; !failed {
				surviving[e.ID] = true
			}
		}

		sub := network.Subnetwork(surviving)
		sub.AssignComponentIDs()
		metrics.AllocationComponents.Observe(float64(sub.ComponentCount()))

		logger.Info("degraded network",
			"event_id", eventID,
			"threshold", threshold,
			"fraction_edges_failed", float64(len(failedLength))/float64(len(network.Edges)),
			"components_nominal", nominalComponents,
			"components_surviving", sub.ComponentCount(),
		)

		// About to overwrite power_mw with the allocation, keep the nominal.
		for i := range sub.Nodes {
			sub.Nodes[i].PowerNominalMW = sub.Nodes[i].PowerMW
		}

		weight := cfg.Weight
		if weight == "" {
			weight = grid.ChooseWeightColumn(sub.Nodes)
		}

		for _, t := range grid.WeightedAllocation(sub.Nodes, weight) {
			supplyFactor, customers := disruptionMetrics(t)
			if err := result.Disruption.Set(VarSupplyFactor, supplyFactor,
				eventCoord, thresholdCoord, results.IntCoord(t.TargetID)); err != nil {
				return nil, fmt.Errorf("record supply factor for target %d: %w", t.TargetID, err)
			}
			if err := result.Disruption.Set(VarCustomersAffected, customers,
				eventCoord, thresholdCoord, results.IntCoord(t.TargetID)); err != nil {
				return nil, fmt.Errorf("record customers affected for target %d: %w", t.TargetID, err)
			}
		}
	}

	return result, nil
}

// disruptionMetrics derives the supply factor and affected customers for an
// allocated target. The supply factor may exceed 1 in components with
// oversupply, so the affected fraction clips at zero; a target with no
// nominal demand counts as fully supplied.
func disruptionMetrics(t grid.Node) (supplyFactor, customersAffected float64) {
	if t.PowerNominalMW <= 0 {
		return 1, 0
	}
	supplyFactor = t.PowerMW / t.PowerNominalMW
	customersAffected = math.Max(0, 1-supplyFactor) * t.Population
	return supplyFactor, customersAffected
}
