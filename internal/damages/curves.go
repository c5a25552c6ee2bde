// Package damages provides damage-cost curve lookups and expected annual
// damage integration across return-period hazard map families.
package damages

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"

	"gonum.org/v1/gonum/integrate"

	"github.com/couchcryptid/storm-grid-disruption/internal/hazard"
)

// commentPrefix marks ignorable lines in damage curve CSV files.
const commentPrefix = '#'

// Curve maps hazard intensity to a damage fraction in [0, 1], linearly
// interpolated between the given points and clamped at the ends.
type Curve struct {
	intensities []float64
	fractions   []float64
}

// NewCurve validates and builds a curve from (intensity, damage fraction)
// pairs. Intensities must be strictly increasing and non-negative; fractions
// must lie in [0, 1].
func NewCurve(intensities, fractions []float64) (*Curve, error) {
	if len(intensities) < 2 {
		return nil, fmt.Errorf("damages: curve needs at least two points, got %d", len(intensities))
	}
	if len(intensities) != len(fractions) {
		return nil, fmt.Errorf("damages: %d intensities but %d fractions", len(intensities), len(fractions))
	}
	for i := range intensities {
		if intensities[i] < 0 {
			return nil, fmt.Errorf("damages: negative intensity %v", intensities[i])
		}
		if i > 0 && intensities[i] <= intensities[i-1] {
			return nil, fmt.Errorf("damages: intensities not strictly increasing at %v", intensities[i])
		}
		if fractions[i] < 0 || fractions[i] > 1 {
			return nil, fmt.Errorf("damages: damage fraction %v outside [0, 1]", fractions[i])
		}
	}
	return &Curve{intensities: intensities, fractions: fractions}, nil
}

// DamageFraction interpolates the damage fraction for the given intensity,
// clamping below the first and above the last curve point.
func (c *Curve) DamageFraction(intensity float64) float64 {
	n := len(c.intensities)
	if intensity <= c.intensities[0] {
		return c.fractions[0]
	}
	if intensity >= c.intensities[n-1] {
		return c.fractions[n-1]
	}
	i := sort.SearchFloat64s(c.intensities, intensity)
	x0, x1 := c.intensities[i-1], c.intensities[i]
	y0, y1 := c.fractions[i-1], c.fractions[i]
	return y0 + (y1-y0)*(intensity-x0)/(x1-x0)
}

// LoadCurve reads a two-column CSV (intensity, damage fraction) with an
// initial header row. Lines starting with '#' are comments.
func LoadCurve(path string) (*Curve, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open damage curve: %w", err)
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.Comment = commentPrefix
	rows, err := r.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("read damage curve %s: %w", path, err)
	}
	if len(rows) < 3 {
		return nil, fmt.Errorf("damages: %s has too few rows", path)
	}

	var intensities, fractions []float64
	for _, row := range rows[1:] { // skip header
		if len(row) < 2 {
			return nil, fmt.Errorf("damages: %s has a row with fewer than two columns", path)
		}
		x, err := strconv.ParseFloat(row[0], 64)
		if err != nil {
			return nil, fmt.Errorf("damages: parse intensity %q in %s: %w", row[0], path, err)
		}
		y, err := strconv.ParseFloat(row[1], 64)
		if err != nil {
			return nil, fmt.Errorf("damages: parse fraction %q in %s: %w", row[1], path, err)
		}
		intensities = append(intensities, x)
		fractions = append(fractions, y)
	}
	return NewCurve(intensities, fractions)
}

// LoadCurves loads all curves for a hazard type from
// <dir>/<hazardType>/<assetType>.csv and checks every requested asset type
// is covered.
func LoadCurves(dir, hazardType string, assetTypes []string) (map[string]*Curve, error) {
	paths, err := filepath.Glob(filepath.Join(dir, hazardType, "*.csv"))
	if err != nil {
		return nil, fmt.Errorf("glob damage curves: %w", err)
	}

	curves := make(map[string]*Curve, len(paths))
	for _, path := range paths {
		name := filepath.Base(path)
		name = name[:len(name)-len(filepath.Ext(name))]
		curve, err := LoadCurve(path)
		if err != nil {
			return nil, err
		}
		curves[name] = curve
	}

	for _, asset := range assetTypes {
		if _, ok := curves[asset]; !ok {
			return nil, fmt.Errorf("damages: no curve for asset type %q under %s/%s", asset, dir, hazardType)
		}
	}
	return curves, nil
}

// ExpectedAnnualDamage integrates damage cost over annual probability across
// a family of return-period maps, using the trapezoid rule. The damage
// argument maps canonical map names to damage cost; every map in the family
// must be present. Maps are integrated least-probable first.
func ExpectedAnnualDamage(family []hazard.Map, damage map[string]float64) (float64, error) {
	if len(family) < 2 {
		return 0, fmt.Errorf("damages: need at least two return periods to integrate, got %d", len(family))
	}

	sorted := make([]hazard.Map, len(family))
	copy(sorted, family)
	hazard.SortMaps(sorted)

	probabilities := make([]float64, len(sorted))
	costs := make([]float64, len(sorted))
	for i, m := range sorted {
		cost, ok := damage[m.Name]
		if !ok {
			return 0, fmt.Errorf("damages: no damage value for map %q", m.Name)
		}
		probabilities[i] = m.AnnualProbability()
		costs[i] = cost
	}

	return integrate.Trapezoidal(probabilities, costs), nil
}
