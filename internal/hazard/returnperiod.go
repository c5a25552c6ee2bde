package hazard

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
)

// Kind tags the concrete variant of a return-period map.
type Kind string

const (
	KindRiverine Kind = "riverine"
	KindCoastal  Kind = "coastal"
)

// Name prefixes and subsidence tokens used by the aqueduct map collection.
const (
	prefixRiverine    = "inunriver"
	prefixCoastal     = "inuncoast"
	withSubsidence    = "wtsub"
	withoutSubsidence = "nosub"
)

// Map describes one return-period hazard map: a raster whose event is
// expected to recur on average every ReturnPeriodYears years. The canonical
// name string captures everything unique about the map; equality and
// ordering are defined on it and on the derived annual probability, never
// on identity.
type Map struct {
	Name              string
	Kind              Kind
	Scenario          string // e.g. rcp4p5, historical
	Model             string // climate model (riverine) or subsidence token (coastal)
	Year              int
	ReturnPeriodYears float64

	// Coastal-only fields.
	Subsidence    bool
	SLRPercentile float64 // sea level rise percentile
}

// ParseMap infers a Map from a canonical name string. Expected formats:
//
//	riverine: inunriver_rcp8p5_00000NorESM1-M_2080_rp00005
//	coastal:  inuncoast_rcp8p5_wtsub_2080_rp1000_0_perc_50
func ParseMap(name string) (Map, error) {
	if strings.Contains(name, ".") {
		return Map{}, fmt.Errorf("hazard: map name %q contains dots; remove any file extension", name)
	}

	parts := strings.Split(name, "_")
	switch parts[0] {
	case prefixRiverine:
		return parseRiverine(name, parts[1:])
	case prefixCoastal:
		return parseCoastal(name, parts[1:])
	default:
		return Map{}, fmt.Errorf("hazard: unrecognised map kind in %q", name)
	}
}

func parseRiverine(name string, rest []string) (Map, error) {
	if len(rest) != 4 {
		return Map{}, fmt.Errorf("hazard: malformed riverine map name %q", name)
	}
	year, rp, err := parseYearRP(rest[2], rest[3])
	if err != nil {
		return Map{}, fmt.Errorf("hazard: malformed riverine map name %q: %w", name, err)
	}
	return Map{
		Name:              name,
		Kind:              KindRiverine,
		Scenario:          rest[0],
		Model:             rest[1],
		Year:              year,
		ReturnPeriodYears: rp,
	}, nil
}

func parseCoastal(name string, rest []string) (Map, error) {
	if len(rest) < 4 {
		return Map{}, fmt.Errorf("hazard: malformed coastal map name %q", name)
	}

	var subsidence bool
	switch rest[1] {
	case withSubsidence:
		subsidence = true
	case withoutSubsidence:
		subsidence = false
	default:
		return Map{}, fmt.Errorf("hazard: malformed subsidence token %q in %q", rest[1], name)
	}

	year, rp, err := parseYearRP(rest[2], rest[3])
	if err != nil {
		return Map{}, fmt.Errorf("hazard: malformed coastal map name %q: %w", name, err)
	}

	// Sea level rise percentile suffix; plain "0" means the 95th percentile.
	var percentile float64
	switch suffix := strings.Join(rest[4:], "_"); suffix {
	case "0":
		percentile = 95
	case "0_perc_50":
		percentile = 50
	case "0_perc_05":
		percentile = 5
	default:
		return Map{}, fmt.Errorf("hazard: malformed sea level percentile %q in %q", suffix, name)
	}

	return Map{
		Name:              name,
		Kind:              KindCoastal,
		Scenario:          rest[0],
		Model:             rest[1],
		Year:              year,
		ReturnPeriodYears: rp,
		Subsidence:        subsidence,
		SLRPercentile:     percentile,
	}, nil
}

func parseYearRP(yearStr, rpStr string) (int, float64, error) {
	year, err := strconv.Atoi(yearStr)
	if err != nil {
		return 0, 0, fmt.Errorf("year %q: %w", yearStr, err)
	}
	if !strings.HasPrefix(rpStr, "rp") {
		return 0, 0, fmt.Errorf("return period %q lacks rp prefix", rpStr)
	}
	rp, err := strconv.ParseFloat(strings.TrimPrefix(rpStr, "rp"), 64)
	if err != nil || rp <= 0 {
		return 0, 0, fmt.Errorf("return period %q invalid", rpStr)
	}
	return year, rp, nil
}

// AnnualProbability is the likelihood of the hazard occurring in any given
// year.
func (m Map) AnnualProbability() float64 {
	return 1 / m.ReturnPeriodYears
}

// WithoutRP is a name identifying the kind of hazard without its return
// period, used to group a family of maps for collapsing into expected
// annual damages.
func (m Map) WithoutRP() string {
	return dropNamePart(m.Name, 4)
}

// WithoutModel is a name identifying the hazard without its climate model or
// subsidence component.
func (m Map) WithoutModel() string {
	return dropNamePart(m.Name, 2)
}

func dropNamePart(name string, index int) string {
	parts := strings.Split(name, "_")
	if index >= len(parts) {
		return name
	}
	return strings.Join(append(parts[:index:index], parts[index+1:]...), "_")
}

// Equal reports whether two maps describe the same raster. The name string
// captures all that is unique about a map.
func (m Map) Equal(other Map) bool {
	return m.Name == other.Name
}

// Less orders maps by ascending annual probability, the usual order for an
// expected annual damages integration (least likely events first). Ties
// break on the canonical name so the order is total.
func Less(a, b Map) bool {
	pa, pb := a.AnnualProbability(), b.AnnualProbability()
	if pa != pb {
		return pa < pb
	}
	return a.Name < b.Name
}

// SortMaps sorts a family of maps into integration order.
func SortMaps(maps []Map) {
	sort.Slice(maps, func(i, j int) bool { return Less(maps[i], maps[j]) })
}

// ParseMaps parses a list of names, optionally trimming a common prefix
// first, and returns the maps in integration order.
func ParseMaps(names []string, prefix string) ([]Map, error) {
	maps := make([]Map, 0, len(names))
	for _, name := range names {
		m, err := ParseMap(strings.TrimPrefix(name, prefix))
		if err != nil {
			return nil, err
		}
		maps = append(maps, m)
	}
	SortMaps(maps)
	return maps, nil
}
