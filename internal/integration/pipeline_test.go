package integration_test

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/couchcryptid/storm-grid-disruption/internal/adapter/file"
	"github.com/couchcryptid/storm-grid-disruption/internal/disruption"
	"github.com/couchcryptid/storm-grid-disruption/internal/grid"
	"github.com/couchcryptid/storm-grid-disruption/internal/observability"
	"github.com/couchcryptid/storm-grid-disruption/internal/pipeline"
	"github.com/couchcryptid/storm-grid-disruption/internal/results"
)

const eventID = "2017260N12310"

// Corridor fixture: source (300 MW) feeding three targets over three spans,
// one fragment per span, cell intensities 5/15/25 m/s. At threshold 10 the
// last two spans fail, at 20 only the last, at 30 none.
const (
	nodesJSONL = `{"id": 0, "asset_type": "source", "power_mw": 300}
{"id": 1, "asset_type": "target", "target_id": 10, "power_mw": 40, "gdp": 30, "population": 100}
{"id": 2, "asset_type": "target", "target_id": 20, "power_mw": 90, "gdp": 70, "population": 200}
{"id": 3, "asset_type": "target", "target_id": 30, "power_mw": 50, "gdp": 50, "population": 300}
`
	edgesJSONL = `{"id": 1, "from_id": 0, "to_id": 1, "coordinates": [[0.00, 10.0], [0.01, 10.0]]}
{"id": 2, "from_id": 1, "to_id": 2, "coordinates": [[0.01, 10.0], [0.02, 10.0]]}
{"id": 3, "from_id": 2, "to_id": 3, "coordinates": [[0.02, 10.0], [0.03, 10.0]]}
`
	fragmentsJSONL = `{"edge_id": 1, "raster_i": 0, "raster_j": 0, "coordinates": [[0.00, 10.0], [0.01, 10.0]]}
{"edge_id": 2, "raster_i": 0, "raster_j": 1, "coordinates": [[0.01, 10.0], [0.02, 10.0]]}
{"edge_id": 3, "raster_i": 0, "raster_j": 2, "coordinates": [[0.02, 10.0], [0.03, 10.0]]}
`
	windJSON = `{"event_id": "` + eventID + `", "rows": 1, "cols": 3, "max_intensity": [5, 15, 25]}`
)

func writeFixture(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

// TestPipeline_EndToEnd runs the full source-degrade-sink chain against real
// files: fixtures in a temp directory, wind field in, tensor files out.
func TestPipeline_EndToEnd(t *testing.T) {
	dir := t.TempDir()
	outDir := filepath.Join(dir, "results")
	require.NoError(t, os.MkdirAll(outDir, 0o755))

	nodesPath := writeFixture(t, dir, "nodes.jsonl", nodesJSONL)
	edgesPath := writeFixture(t, dir, "edges.jsonl", edgesJSONL)
	fragmentsPath := writeFixture(t, dir, "fragments.jsonl", fragmentsJSONL)
	windPath := writeFixture(t, dir, eventID+"_wind.json", windJSON)

	logger := slog.Default()
	metrics := observability.NewMetricsForTesting()

	network, err := file.LoadNetwork(nodesPath, edgesPath)
	require.NoError(t, err)
	fragments, err := file.LoadFragments(fragmentsPath)
	require.NoError(t, err)

	degrader, err := pipeline.NewGridDegrader(network, disruption.Config{
		Thresholds: []float64{10, 20, 30},
		Weight:     grid.WeightGDP,
	}, logger, metrics)
	require.NoError(t, err)

	source := file.NewEventSource([]string{windPath}, fragments, logger)
	sink := file.NewSink(outDir, 0.95, results.DefaultCompressionLevel, "run-e2e", clockwork.NewFakeClock(), logger)

	p := pipeline.New(source, degrader, sink, logger, metrics)
	require.NoError(t, p.Run(context.Background()))
	require.NoError(t, p.CheckReadiness(context.Background()))

	exposure, exposureMeta, err := results.ReadFile(sink.ExposurePath(eventID))
	require.NoError(t, err)
	assert.Equal(t, "run-e2e", exposureMeta.RunID)

	// Edges 2 and 3 fail at 10, edge 3 at 20, none at 30.
	assert.Equal(t, 3, exposure.Count(disruption.VarLengthM))
	for _, want := range [][2]string{{"10", "2"}, {"10", "3"}, {"20", "3"}} {
		length, ok := exposure.Value(disruption.VarLengthM, eventID, want[0], want[1])
		require.True(t, ok, "expected exposure at threshold %s edge %s", want[0], want[1])
		assert.Greater(t, length, 0.0)
	}

	disrupted, disruptionMeta, err := results.ReadFile(sink.DisruptionPath(eventID))
	require.NoError(t, err)
	assert.Equal(t, exposureMeta.RunID, disruptionMeta.RunID)

	// Islanded targets: 20 and 30 at threshold 10, 30 alone at threshold 20.
	// Fully supplied targets sit at the cutoff and are pruned.
	assert.Equal(t, 3, disrupted.Count(disruption.VarSupplyFactor))

	sf, ok := disrupted.Value(disruption.VarSupplyFactor, eventID, "20", "30")
	require.True(t, ok)
	assert.Zero(t, sf)

	customers, ok := disrupted.Value(disruption.VarCustomersAffected, eventID, "20", "30")
	require.True(t, ok)
	assert.InDelta(t, 300, customers, 1e-9)

	_, ok = disrupted.Value(disruption.VarSupplyFactor, eventID, "20", "10")
	assert.False(t, ok, "fully supplied target must be pruned")
}
