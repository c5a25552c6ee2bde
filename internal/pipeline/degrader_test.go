package pipeline_test

import (
	"context"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/couchcryptid/storm-grid-disruption/internal/disruption"
	"github.com/couchcryptid/storm-grid-disruption/internal/grid"
	"github.com/couchcryptid/storm-grid-disruption/internal/hazard"
	"github.com/couchcryptid/storm-grid-disruption/internal/pipeline"
)

func degraderNetwork() *grid.Network {
	return &grid.Network{
		Nodes: []grid.Node{
			{ID: 0, AssetType: grid.AssetSource, PowerMW: 100},
			{ID: 1, AssetType: grid.AssetTarget, TargetID: 10, PowerMW: 40, Population: 100},
		},
		Edges: []grid.Edge{{ID: 1, FromID: 0, ToID: 1}},
	}
}

func TestNewGridDegrader_RejectsBrokenNetwork(t *testing.T) {
	network := degraderNetwork()
	network.Edges[0].ToID = 99 // dangling endpoint

	_, err := pipeline.NewGridDegrader(network, disruption.Config{Thresholds: []float64{20}},
		slog.Default(), newTestMetrics())
	assert.Error(t, err)
}

func TestGridDegrader_EmptyFieldYieldsNullResult(t *testing.T) {
	degrader, err := pipeline.NewGridDegrader(degraderNetwork(),
		disruption.Config{Thresholds: []float64{30, 20}}, slog.Default(), newTestMetrics())
	require.NoError(t, err)

	result, err := degrader.Degrade(context.Background(), pipeline.StormEvent{
		ID:    "X",
		Field: &hazard.Field{EventID: "X"},
	})
	require.NoError(t, err)

	event, ok := result.Exposure.Dim(disruption.DimEventID)
	require.True(t, ok)
	assert.Equal(t, []string{"X"}, event.Coords)

	threshold, ok := result.Exposure.Dim(disruption.DimThreshold)
	require.True(t, ok)
	assert.Equal(t, []string{"20", "30"}, threshold.Coords)
	assert.Equal(t, 0, result.Exposure.Count(disruption.VarLengthM))
	assert.Equal(t, 0, result.Disruption.Count(disruption.VarSupplyFactor))
}
