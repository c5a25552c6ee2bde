// Package file provides the local-file source and sink adapters: the
// pipeline reads network tables, fragment tables and wind fields from disk
// and writes result tensors back, with no other I/O.
package file

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"unicode"

	"github.com/klauspost/compress/gzip"
	"github.com/paulmach/orb"

	"github.com/couchcryptid/storm-grid-disruption/internal/grid"
	"github.com/couchcryptid/storm-grid-disruption/internal/hazard"
	"github.com/couchcryptid/storm-grid-disruption/internal/pipeline"
)

// edgeRecord is the JSON-lines form of a network edge; geometry travels as
// a [lon, lat] coordinate list.
type edgeRecord struct {
	ID          int64       `json:"id"`
	FromID      int64       `json:"from_id"`
	ToID        int64       `json:"to_id"`
	LengthKM    float64     `json:"length_km,omitempty"`
	Coordinates []orb.Point `json:"coordinates"`
}

// fragmentRecord is the JSON-lines form of an edge fragment: one row per
// (edge, raster cell) pair.
type fragmentRecord struct {
	EdgeID      int64       `json:"edge_id"`
	RasterI     int         `json:"raster_i"`
	RasterJ     int         `json:"raster_j"`
	Coordinates []orb.Point `json:"coordinates"`
}

// openMaybeGzip opens a file, transparently decompressing a .gz suffix.
func openMaybeGzip(path string) (io.ReadCloser, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	if !strings.HasSuffix(path, ".gz") {
		return f, nil
	}
	zr, err := gzip.NewReader(f)
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("gzip %s: %w", path, err)
	}
	return &gzipReadCloser{zr: zr, f: f}, nil
}

type gzipReadCloser struct {
	zr *gzip.Reader
	f  *os.File
}

func (g *gzipReadCloser) Read(p []byte) (int, error) { return g.zr.Read(p) }

func (g *gzipReadCloser) Close() error {
	if err := g.zr.Close(); err != nil {
		g.f.Close()
		return err
	}
	return g.f.Close()
}

// readLines decodes one JSON document per line, skipping blank lines.
func readLines(path string, decode func([]byte) error) error {
	r, err := openMaybeGzip(path)
	if err != nil {
		return fmt.Errorf("open %s: %w", path, err)
	}
	defer r.Close()

	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 1024*1024), 16*1024*1024)
	line := 0
	for scanner.Scan() {
		line++
		text := strings.TrimSpace(scanner.Text())
		if text == "" {
			continue
		}
		if err := decode([]byte(text)); err != nil {
			return fmt.Errorf("%s:%d: %w", path, line, err)
		}
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("scan %s: %w", path, err)
	}
	return nil
}

// LoadNetwork reads the node and edge tables into a Network. It does not
// validate topology; callers do that before use.
func LoadNetwork(nodesPath, edgesPath string) (*grid.Network, error) {
	network := &grid.Network{}

	err := readLines(nodesPath, func(data []byte) error {
		var node grid.Node
		if err := json.Unmarshal(data, &node); err != nil {
			return fmt.Errorf("parse node: %w", err)
		}
		network.Nodes = append(network.Nodes, node)
		return nil
	})
	if err != nil {
		return nil, err
	}

	err = readLines(edgesPath, func(data []byte) error {
		var rec edgeRecord
		if err := json.Unmarshal(data, &rec); err != nil {
			return fmt.Errorf("parse edge: %w", err)
		}
		network.Edges = append(network.Edges, grid.Edge{
			ID:       rec.ID,
			FromID:   rec.FromID,
			ToID:     rec.ToID,
			LengthKM: rec.LengthKM,
			Geometry: orb.LineString(rec.Coordinates),
		})
		return nil
	})
	if err != nil {
		return nil, err
	}

	return network, nil
}

// LoadFragments reads the edge-to-cell mapping table.
func LoadFragments(path string) ([]hazard.Fragment, error) {
	var fragments []hazard.Fragment
	err := readLines(path, func(data []byte) error {
		var rec fragmentRecord
		if err := json.Unmarshal(data, &rec); err != nil {
			return fmt.Errorf("parse fragment: %w", err)
		}
		fragments = append(fragments, hazard.Fragment{
			EdgeID:   rec.EdgeID,
			Row:      rec.RasterI,
			Col:      rec.RasterJ,
			Geometry: orb.LineString(rec.Coordinates),
		})
		return nil
	})
	if err != nil {
		return nil, err
	}
	return fragments, nil
}

// LoadField reads one event's wind field.
func LoadField(path string) (*hazard.Field, error) {
	r, err := openMaybeGzip(path)
	if err != nil {
		return nil, fmt.Errorf("open wind field %s: %w", path, err)
	}
	defer r.Close()

	var field hazard.Field
	if err := json.NewDecoder(r).Decode(&field); err != nil {
		return nil, fmt.Errorf("parse wind field %s: %w", path, err)
	}
	if field.EventID == "" {
		return nil, fmt.Errorf("wind field %s has no event id", path)
	}
	if strings.ContainsFunc(field.EventID, unicode.IsControl) {
		return nil, fmt.Errorf("wind field %s: event id %q contains control characters", path, field.EventID)
	}
	if len(field.Values) != 0 && len(field.Values) != field.Rows*field.Cols {
		return nil, fmt.Errorf("wind field %s: %d values for %dx%d grid",
			path, len(field.Values), field.Rows, field.Cols)
	}
	return &field, nil
}

// EventSource yields one StormEvent per configured wind field file. The
// fragment table is shared across events.
type EventSource struct {
	paths     []string
	fragments []hazard.Fragment
	logger    *slog.Logger
	next      int
}

// NewEventSource creates a source over the given wind field files.
func NewEventSource(windFieldPaths []string, fragments []hazard.Fragment, logger *slog.Logger) *EventSource {
	return &EventSource{paths: windFieldPaths, fragments: fragments, logger: logger}
}

// Next implements pipeline.EventSource, returning io.EOF when every wind
// field has been yielded.
func (s *EventSource) Next(ctx context.Context) (pipeline.StormEvent, error) {
	if err := ctx.Err(); err != nil {
		return pipeline.StormEvent{}, err
	}
	if s.next >= len(s.paths) {
		return pipeline.StormEvent{}, io.EOF
	}

	path := s.paths[s.next]
	s.next++

	field, err := LoadField(path)
	if err != nil {
		return pipeline.StormEvent{}, err
	}
	s.logger.Info("loaded wind field", "path", path, "event_id", field.EventID,
		"rows", field.Rows, "cols", field.Cols)

	return pipeline.StormEvent{
		ID:        field.EventID,
		Field:     field,
		Fragments: s.fragments,
	}, nil
}
