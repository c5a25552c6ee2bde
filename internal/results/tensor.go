// Package results provides the multi-dimensional result containers for
// exposure and disruption output, and their compressed on-disk form.
//
// Cells are held sparsely, keyed by coordinate tuples, with NaN as the
// "unset" sentinel; a dense array per variable is materialized only at
// serialization time.
package results

import (
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"
)

// DType declares how a dimension's coordinate strings should be interpreted
// by consumers of the persisted file.
type DType string

const (
	TypeString DType = "str"
	TypeInt    DType = "int"
	TypeFloat  DType = "float"
)

// Dimension is a typed, ordered coordinate axis. Coordinate values are held
// in canonical string form regardless of type. Zero-length dimensions are
// valid and describe a well-formed empty result.
type Dimension struct {
	Name   string   `json:"name"`
	Type   DType    `json:"type"`
	Coords []string `json:"coords"`
}

// StringDim builds a string-typed dimension.
func StringDim(name string, coords []string) Dimension {
	return Dimension{Name: name, Type: TypeString, Coords: coords}
}

// IntDim builds an integer-typed dimension from ids.
func IntDim(name string, ids []int64) Dimension {
	coords := make([]string, len(ids))
	for i, id := range ids {
		coords[i] = IntCoord(id)
	}
	return Dimension{Name: name, Type: TypeInt, Coords: coords}
}

// FloatDim builds a float-typed dimension from values.
func FloatDim(name string, values []float64) Dimension {
	coords := make([]string, len(values))
	for i, v := range values {
		coords[i] = FloatCoord(v)
	}
	return Dimension{Name: name, Type: TypeFloat, Coords: coords}
}

// IntCoord is the canonical string encoding of an integer coordinate.
func IntCoord(id int64) string {
	return strconv.FormatInt(id, 10)
}

// FloatCoord is the canonical string encoding of a float coordinate.
func FloatCoord(v float64) string {
	return strconv.FormatFloat(v, 'g', -1, 64)
}

// keySep joins coordinate tuples into sparse map keys. Numeric coordinate
// encodings never contain it; string coordinates are rejected by key() if
// they do, so a stored key always splits back into its tuple.
const keySep = "\x1f"

// Tensor is a set of named float variables over shared coordinate
// dimensions. Unset cells read as NaN.
type Tensor struct {
	vars []string
	dims []Dimension
	pos  []map[string]int              // per dim: coord -> position
	data map[string]map[string]float64 // var -> coord key -> value
}

// New builds an all-unset tensor over the given variables and dimensions.
func New(vars []string, dims ...Dimension) *Tensor {
	t := &Tensor{
		vars: append([]string(nil), vars...),
		dims: make([]Dimension, len(dims)),
		pos:  make([]map[string]int, len(dims)),
		data: make(map[string]map[string]float64, len(vars)),
	}
	for i, d := range dims {
		t.dims[i] = Dimension{Name: d.Name, Type: d.Type, Coords: append([]string(nil), d.Coords...)}
		t.pos[i] = make(map[string]int, len(d.Coords))
		for j, c := range d.Coords {
			t.pos[i][c] = j
		}
	}
	for _, v := range vars {
		t.data[v] = make(map[string]float64)
	}
	return t
}

// Vars returns the variable names.
func (t *Tensor) Vars() []string { return append([]string(nil), t.vars...) }

// Dims returns the coordinate dimensions.
func (t *Tensor) Dims() []Dimension { return append([]Dimension(nil), t.dims...) }

// Dim returns the named dimension.
func (t *Tensor) Dim(name string) (Dimension, bool) {
	for _, d := range t.dims {
		if d.Name == name {
			return d, true
		}
	}
	return Dimension{}, false
}

func (t *Tensor) key(coords []string) (string, error) {
	if len(coords) != len(t.dims) {
		return "", fmt.Errorf("results: got %d coordinates for %d dimensions", len(coords), len(t.dims))
	}
	for i, c := range coords {
		if strings.Contains(c, keySep) {
			return "", fmt.Errorf("results: coordinate %q in dimension %q contains a reserved separator byte", c, t.dims[i].Name)
		}
		if _, ok := t.pos[i][c]; !ok {
			return "", fmt.Errorf("results: coordinate %q not in dimension %q", c, t.dims[i].Name)
		}
	}
	return strings.Join(coords, keySep), nil
}

// Set writes a value at the given coordinate tuple, one coordinate per
// dimension in declaration order.
func (t *Tensor) Set(varName string, value float64, coords ...string) error {
	cells, ok := t.data[varName]
	if !ok {
		return fmt.Errorf("results: unknown variable %q", varName)
	}
	key, err := t.key(coords)
	if err != nil {
		return err
	}
	cells[key] = value
	return nil
}

// Value reads the cell at the given coordinates; ok is false for unset
// cells and unknown coordinates alike.
func (t *Tensor) Value(varName string, coords ...string) (float64, bool) {
	cells, ok := t.data[varName]
	if !ok {
		return math.NaN(), false
	}
	key, err := t.key(coords)
	if err != nil {
		return math.NaN(), false
	}
	v, ok := cells[key]
	if !ok {
		return math.NaN(), false
	}
	return v, true
}

// Count returns the number of populated cells for a variable.
func (t *Tensor) Count(varName string) int {
	return len(t.data[varName])
}

// Dense materializes a variable as a row-major dense array over the
// dimension cross product, NaN-filled at unset cells.
func (t *Tensor) Dense(varName string) []float64 {
	size := 1
	for _, d := range t.dims {
		size *= len(d.Coords)
	}
	dense := make([]float64, size)
	for i := range dense {
		dense[i] = math.NaN()
	}
	for key, v := range t.data[varName] {
		dense[t.flatIndex(key)] = v
	}
	return dense
}

func (t *Tensor) flatIndex(key string) int {
	coords := strings.Split(key, keySep)
	index := 0
	for i, c := range coords {
		index = index*len(t.dims[i].Coords) + t.pos[i][c]
	}
	return index
}

// SelectEvent returns a copy of the tensor with the named dimension reduced
// to the single given coordinate, dropping entries for other coordinates.
func (t *Tensor) SelectEvent(dimName, coord string) (*Tensor, error) {
	axis := -1
	for i, d := range t.dims {
		if d.Name == dimName {
			axis = i
			break
		}
	}
	if axis < 0 {
		return nil, fmt.Errorf("results: unknown dimension %q", dimName)
	}
	if _, ok := t.pos[axis][coord]; !ok {
		return nil, fmt.Errorf("results: coordinate %q not in dimension %q", coord, dimName)
	}

	dims := t.Dims()
	dims[axis].Coords = []string{coord}
	selected := New(t.vars, dims...)
	for varName, cells := range t.data {
		for key, v := range cells {
			coords := strings.Split(key, keySep)
			if coords[axis] == coord {
				selected.data[varName][key] = v
			}
		}
	}
	return selected, nil
}

// PruneWhere drops every coordinate tuple whose value for varName fails
// keep, across all variables, so that co-indexed variables stay aligned.
func (t *Tensor) PruneWhere(varName string, keep func(float64) bool) {
	cells, ok := t.data[varName]
	if !ok {
		return
	}
	for key, v := range cells {
		if keep(v) {
			continue
		}
		for _, other := range t.data {
			delete(other, key)
		}
	}
}

// DropEmptyCoords removes, along each named dimension, the coordinate
// values for which no variable holds any populated cell. Dimensions not
// named (typically the event dimension) keep their coordinates even when
// empty, so a degenerate output still carries its event id.
func (t *Tensor) DropEmptyCoords(dimNames ...string) {
	named := make(map[string]bool, len(dimNames))
	for _, n := range dimNames {
		named[n] = true
	}

	used := make([]map[string]bool, len(t.dims))
	for i := range used {
		used[i] = make(map[string]bool)
	}
	for _, cells := range t.data {
		for key := range cells {
			for i, c := range strings.Split(key, keySep) {
				used[i][c] = true
			}
		}
	}

	for i, d := range t.dims {
		if !named[d.Name] {
			continue
		}
		kept := d.Coords[:0:0]
		for _, c := range d.Coords {
			if used[i][c] {
				kept = append(kept, c)
			}
		}
		t.dims[i].Coords = kept
		t.pos[i] = make(map[string]int, len(kept))
		for j, c := range kept {
			t.pos[i][c] = j
		}
	}
}

// SortedKeys returns the populated coordinate tuples of a variable in
// dimension order, for deterministic iteration.
func (t *Tensor) SortedKeys(varName string) [][]string {
	cells := t.data[varName]
	keys := make([]string, 0, len(cells))
	for key := range cells {
		keys = append(keys, key)
	}
	sort.Slice(keys, func(i, j int) bool {
		return t.flatIndex(keys[i]) < t.flatIndex(keys[j])
	})
	tuples := make([][]string, len(keys))
	for i, key := range keys {
		tuples[i] = strings.Split(key, keySep)
	}
	return tuples
}
