// Package hazard models gridded hazard intensity fields and the
// return-period map families used for expected annual damage integration.
package hazard

import (
	"errors"
	"fmt"

	"github.com/paulmach/orb"
)

// ErrNoCoverage reports a cell lookup outside the field's grid. A miss is
// treated as "no wind field available" and short-circuits the event's
// computation to an empty result rather than failing it.
var ErrNoCoverage = errors.New("hazard: no coverage for cell")

// Field is the maximum intensity (e.g. wind speed in m/s) experienced over
// one event, on a 2-D grid addressed by (row, column).
type Field struct {
	EventID string    `json:"event_id"`
	Rows    int       `json:"rows"`
	Cols    int       `json:"cols"`
	Values  []float64 `json:"max_intensity"` // row-major, len Rows*Cols
}

// Empty reports whether the field carries no data at all, the defined
// degenerate input for an event with no hazard footprint.
func (f *Field) Empty() bool {
	return f == nil || len(f.Values) == 0
}

// At returns the intensity at (row, col), or ErrNoCoverage if the cell is
// outside the grid.
func (f *Field) At(row, col int) (float64, error) {
	if f.Empty() || row < 0 || row >= f.Rows || col < 0 || col >= f.Cols {
		return 0, fmt.Errorf("%w: row=%d col=%d", ErrNoCoverage, row, col)
	}
	return f.Values[row*f.Cols+col], nil
}

// Fragment is the portion of an edge's geometry confined to a single raster
// cell, produced upstream by grid/geometry intersection.
type Fragment struct {
	EdgeID   int64          `json:"edge_id"`
	Row      int            `json:"raster_i"`
	Col      int            `json:"raster_j"`
	Geometry orb.LineString `json:"-"`
}

// SampleFragments looks up the field intensity for every fragment,
// returning one value per fragment in input order. Any cell miss aborts the
// sampling with an ErrNoCoverage-wrapped error.
func SampleFragments(f *Field, fragments []Fragment) ([]float64, error) {
	intensities := make([]float64, len(fragments))
	for i, frag := range fragments {
		v, err := f.At(frag.Row, frag.Col)
		if err != nil {
			return nil, fmt.Errorf("sample fragment of edge %d: %w", frag.EdgeID, err)
		}
		intensities[i] = v
	}
	return intensities, nil
}
