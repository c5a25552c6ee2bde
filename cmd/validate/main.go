// Command validate performs integrity checks on persisted exposure and
// disruption tensor files: coordinate structure, value bounds, pruning
// rules, and cross-variable alignment.
//
// Usage:
//
//	go run ./cmd/validate \
//	  -exposure results/2017260N12310_exposure.tensor \
//	  -disruption results/2017260N12310_disruption.tensor
package main

import (
	"flag"
	"fmt"
	"os"
	"strconv"

	"github.com/couchcryptid/storm-grid-disruption/internal/disruption"
	"github.com/couchcryptid/storm-grid-disruption/internal/results"
)

// phase tracks pass/fail for a validation phase.
type phase struct {
	name   string
	errors []string
}

func (p *phase) errorf(format string, args ...any) {
	p.errors = append(p.errors, fmt.Sprintf(format, args...))
}

func (p *phase) passed() bool { return len(p.errors) == 0 }

func main() {
	exposurePath := flag.String("exposure", "", "path to exposure tensor file")
	disruptionPath := flag.String("disruption", "", "path to disruption tensor file")
	maxSupplyFactor := flag.Float64("max-supply-factor", 0.95, "configured disruption pruning cutoff")
	flag.Parse()

	if *exposurePath == "" || *disruptionPath == "" {
		flag.Usage()
		os.Exit(1)
	}

	if code := run(*exposurePath, *disruptionPath, *maxSupplyFactor); code != 0 {
		os.Exit(code)
	}
}

func run(exposurePath, disruptionPath string, maxSupplyFactor float64) int {
	phases := []*phase{}

	exposure, exposureMeta, err := results.ReadFile(exposurePath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "read exposure: %v\n", err)
		return 1
	}
	disrupted, disruptionMeta, err := results.ReadFile(disruptionPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "read disruption: %v\n", err)
		return 1
	}

	phases = append(phases,
		checkStructure("exposure structure", exposure, disruption.VarLengthM, disruption.DimEdge),
		checkStructure("disruption structure", disrupted, disruption.VarSupplyFactor, disruption.DimTarget),
		checkExposureValues(exposure),
		checkDisruptionValues(disrupted, maxSupplyFactor),
		checkConsistency(exposure, disrupted),
	)

	if exposureMeta.RunID != disruptionMeta.RunID {
		p := &phase{name: "metadata"}
		p.errorf("run ids differ: exposure %q vs disruption %q", exposureMeta.RunID, disruptionMeta.RunID)
		phases = append(phases, p)
	}

	failed := 0
	for _, p := range phases {
		if p.passed() {
			fmt.Printf("PASS %s\n", p.name)
			continue
		}
		failed++
		fmt.Printf("FAIL %s\n", p.name)
		for _, e := range p.errors {
			fmt.Printf("  %s\n", e)
		}
	}
	if failed > 0 {
		fmt.Printf("%d of %d phases failed\n", failed, len(phases))
		return 1
	}
	fmt.Printf("all %d phases passed\n", len(phases))
	return 0
}

// checkStructure verifies the expected dimensions exist, the event
// coordinate is present, and threshold coordinates parse as floats.
func checkStructure(name string, t *results.Tensor, wantVar, entityDim string) *phase {
	p := &phase{name: name}

	found := false
	for _, v := range t.Vars() {
		if v == wantVar {
			found = true
		}
	}
	if !found {
		p.errorf("missing variable %q", wantVar)
	}

	event, ok := t.Dim(disruption.DimEventID)
	if !ok || len(event.Coords) == 0 {
		p.errorf("missing or empty %s dimension", disruption.DimEventID)
	}
	if _, ok := t.Dim(entityDim); !ok {
		p.errorf("missing %s dimension", entityDim)
	}
	thresholds, ok := t.Dim(disruption.DimThreshold)
	if !ok {
		p.errorf("missing %s dimension", disruption.DimThreshold)
		return p
	}
	for _, c := range thresholds.Coords {
		if _, err := strconv.ParseFloat(c, 64); err != nil {
			p.errorf("threshold coordinate %q is not a float", c)
		}
	}
	return p
}

// checkExposureValues verifies pruning left only positive exposed lengths.
func checkExposureValues(t *results.Tensor) *phase {
	p := &phase{name: "exposure values"}
	for _, coords := range t.SortedKeys(disruption.VarLengthM) {
		v, _ := t.Value(disruption.VarLengthM, coords...)
		if v <= 0 {
			p.errorf("non-positive exposed length %v at %v", v, coords)
		}
	}
	return p
}

// checkDisruptionValues verifies bounds and pruning on the disruption
// variables and that the two variables cover the same cells.
func checkDisruptionValues(t *results.Tensor, maxSupplyFactor float64) *phase {
	p := &phase{name: "disruption values"}
	for _, coords := range t.SortedKeys(disruption.VarSupplyFactor) {
		sf, _ := t.Value(disruption.VarSupplyFactor, coords...)
		if sf < 0 {
			p.errorf("negative supply factor %v at %v", sf, coords)
		}
		if sf >= maxSupplyFactor {
			p.errorf("supply factor %v at %v should have been pruned (cutoff %v)", sf, coords, maxSupplyFactor)
		}
		customers, ok := t.Value(disruption.VarCustomersAffected, coords...)
		if !ok {
			p.errorf("customers_affected missing at %v", coords)
			continue
		}
		if customers < 0 {
			p.errorf("negative customers_affected %v at %v", customers, coords)
		}
	}
	return p
}

// checkConsistency verifies the two files describe the same event.
func checkConsistency(exposure, disrupted *results.Tensor) *phase {
	p := &phase{name: "cross-file consistency"}
	expEvent, _ := exposure.Dim(disruption.DimEventID)
	disEvent, _ := disrupted.Dim(disruption.DimEventID)
	if len(expEvent.Coords) != 1 || len(disEvent.Coords) != 1 {
		p.errorf("expected exactly one event coordinate, got %v and %v", expEvent.Coords, disEvent.Coords)
		return p
	}
	if expEvent.Coords[0] != disEvent.Coords[0] {
		p.errorf("event ids differ: %q vs %q", expEvent.Coords[0], disEvent.Coords[0])
	}
	return p
}
