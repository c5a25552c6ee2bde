// Command genmock generates a synthetic electricity network, fragment
// table and storm wind field, plus a scenario file wiring them together.
// It exists so the pipeline and its tests can run against deterministic
// fixtures without real OSM or cyclone data.
//
// Usage:
//
//	go run ./cmd/genmock -out testdata/mock -event 2017260N12310 -seed 7
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"math/rand"
	"os"
	"path/filepath"

	"github.com/paulmach/orb"

	"github.com/couchcryptid/storm-grid-disruption/internal/grid"
)

func main() {
	if err := run(); err != nil {
		log.Fatal(err)
	}
}

func run() error {
	outDir := flag.String("out", "", "output directory for fixtures")
	eventID := flag.String("event", "2017260N12310", "storm event identifier")
	spans := flag.Int("spans", 20, "number of transmission spans to generate")
	seed := flag.Int64("seed", 1, "random seed for reproducible fixtures")
	flag.Parse()

	if *outDir == "" {
		flag.Usage()
		return fmt.Errorf("missing required flag: -out")
	}
	if err := os.MkdirAll(*outDir, 0o755); err != nil {
		return err
	}

	rng := rand.New(rand.NewSource(*seed))

	// A single transmission corridor: source at one end, targets hanging
	// off every junction, each span split into one fragment per raster cell.
	var nodes []grid.Node
	var edges []edgeRecord
	var fragments []fragmentRecord

	nodes = append(nodes, grid.Node{ID: 0, AssetType: grid.AssetSource, PowerMW: float64(*spans) * 10})
	for i := 1; i <= *spans; i++ {
		junction := int64(i * 2)
		target := int64(i*2 + 1)
		lon := float64(i) * 0.05

		nodes = append(nodes,
			grid.Node{ID: junction, AssetType: grid.AssetOther},
			grid.Node{
				ID:         target,
				AssetType:  grid.AssetTarget,
				TargetID:   int64(i),
				PowerMW:    5 + rng.Float64()*10,
				Population: float64(1000 + rng.Intn(9000)),
				GDP:        float64(1e6+rng.Intn(9e6)) * rng.Float64(),
			},
		)

		from := int64((i - 1) * 2)
		span := edgeRecord{
			ID:     int64(i),
			FromID: from,
			ToID:   junction,
			Coordinates: []orb.Point{
				{lon - 0.05, 10}, {lon, 10},
			},
		}
		drop := edgeRecord{
			ID:     int64(*spans + i),
			FromID: junction,
			ToID:   target,
			Coordinates: []orb.Point{
				{lon, 10}, {lon, 10.01},
			},
		}
		edges = append(edges, span, drop)

		fragments = append(fragments,
			fragmentRecord{EdgeID: span.ID, RasterI: 0, RasterJ: i - 1, Coordinates: span.Coordinates},
			fragmentRecord{EdgeID: drop.ID, RasterI: 0, RasterJ: i - 1, Coordinates: drop.Coordinates},
		)
	}

	// Wind speeds ramp along the corridor so different thresholds fail
	// different prefixes of the network.
	field := map[string]any{
		"event_id":      *eventID,
		"rows":          1,
		"cols":          *spans,
		"max_intensity": windRamp(*spans, rng),
	}

	if err := writeLines(filepath.Join(*outDir, "nodes.jsonl"), nodes); err != nil {
		return err
	}
	if err := writeLines(filepath.Join(*outDir, "edges.jsonl"), edges); err != nil {
		return err
	}
	if err := writeLines(filepath.Join(*outDir, "fragments.jsonl"), fragments); err != nil {
		return err
	}
	if err := writeJSON(filepath.Join(*outDir, *eventID+"_wind.json"), field); err != nil {
		return err
	}
	if err := writeScenario(*outDir, *eventID); err != nil {
		return err
	}

	log.Printf("wrote %d nodes, %d edges, %d fragments to %s", len(nodes), len(edges), len(fragments), *outDir)
	return nil
}

type edgeRecord struct {
	ID          int64       `json:"id"`
	FromID      int64       `json:"from_id"`
	ToID        int64       `json:"to_id"`
	Coordinates []orb.Point `json:"coordinates"`
}

type fragmentRecord struct {
	EdgeID      int64       `json:"edge_id"`
	RasterI     int         `json:"raster_i"`
	RasterJ     int         `json:"raster_j"`
	Coordinates []orb.Point `json:"coordinates"`
}

func windRamp(cols int, rng *rand.Rand) []float64 {
	speeds := make([]float64, cols)
	for i := range speeds {
		speeds[i] = 15 + float64(i)*45/float64(cols) + rng.Float64()*5
	}
	return speeds
}

func writeLines[T any](path string, records []T) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	enc := json.NewEncoder(f)
	for _, rec := range records {
		if err := enc.Encode(rec); err != nil {
			return fmt.Errorf("encode record for %s: %w", path, err)
		}
	}
	return nil
}

func writeJSON(path string, v any) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()
	return json.NewEncoder(f).Encode(v)
}

func writeScenario(dir, eventID string) error {
	scenario := fmt.Sprintf(`nodes_path = %q
edges_path = %q
fragments_path = %q
wind_field_paths = [%q]
output_dir = %q
failure_thresholds = [20.0, 30.0, 40.0, 50.0]
`,
		filepath.Join(dir, "nodes.jsonl"),
		filepath.Join(dir, "edges.jsonl"),
		filepath.Join(dir, "fragments.jsonl"),
		filepath.Join(dir, eventID+"_wind.json"),
		filepath.Join(dir, "results"),
	)
	return os.WriteFile(filepath.Join(dir, "scenario.toml"), []byte(scenario), 0o644)
}
