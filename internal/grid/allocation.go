package grid

import (
	"fmt"

	"gonum.org/v1/gonum/floats"
)

// WeightColumn selects the attribute used to share supply between targets.
type WeightColumn string

const (
	WeightGDP        WeightColumn = "gdp"
	WeightPopulation WeightColumn = "population"
)

// ParseWeightColumn validates a configured weight column name.
func ParseWeightColumn(s string) (WeightColumn, error) {
	switch WeightColumn(s) {
	case WeightGDP, WeightPopulation:
		return WeightColumn(s), nil
	default:
		return "", fmt.Errorf("grid: unknown weight column %q", s)
	}
}

// ChooseWeightColumn applies the documented selection rule: weight by gdp
// unless the gdp sum over target nodes is zero, in which case fall back to
// population. The choice is made once, up front, so the allocation itself
// stays free of runtime column sniffing.
func ChooseWeightColumn(nodes []Node) WeightColumn {
	var gdpSum float64
	for _, n := range nodes {
		if n.AssetType == AssetTarget {
			gdpSum += n.GDP
		}
	}
	if gdpSum == 0 {
		return WeightPopulation
	}
	return WeightGDP
}

func (w WeightColumn) value(n Node) float64 {
	if w == WeightPopulation {
		return n.Population
	}
	return n.GDP
}

// WeightedAllocation distributes available supply from source nodes to
// target nodes within each connected component, proportional to the chosen
// weight, capped at each target's nominal demand.
//
// Nominal demand is read from PowerNominalMW; callers must copy PowerMW
// into PowerNominalMW before the first allocation. Reading nominal rather
// than current power makes the operation idempotent.
//
// Per component with source capacity S, total nominal demand D and weight
// sum W:
//   - S >= D: every target receives its nominal demand.
//   - 0 < S < D: target i receives min(nominal_i, S*w_i/W).
//   - S == 0: every target receives zero.
//   - W == 0 with S > 0 is degenerate; the choice here is to allocate zero
//     rather than invent a fallback share, so unweighted targets are
//     reported as fully disrupted instead of silently dividing by zero.
//
// The input slice is never mutated and components share no state; the
// result holds copies of the target nodes with PowerMW set to the
// allocated supply.
func WeightedAllocation(nodes []Node, weight WeightColumn) []Node {
	components := make(map[int][]int) // component id -> node indices
	for i, n := range nodes {
		components[n.ComponentID] = append(components[n.ComponentID], i)
	}

	var targets []Node
	for _, members := range components {
		var supply float64
		var demand, weights []float64
		var componentTargets []Node

		for _, i := range members {
			n := nodes[i]
			switch n.AssetType {
			case AssetSource:
				supply += n.PowerMW
			case AssetTarget:
				demand = append(demand, n.PowerNominalMW)
				weights = append(weights, weight.value(n))
				componentTargets = append(componentTargets, n)
			}
		}
		if len(componentTargets) == 0 {
			continue
		}

		totalDemand := floats.Sum(demand)
		totalWeight := floats.Sum(weights)

		for i := range componentTargets {
			componentTargets[i].PowerMW = allocate(
				supply, totalDemand, totalWeight, demand[i], weights[i],
			)
		}
		targets = append(targets, componentTargets...)
	}
	return targets
}

// allocate computes a single target's share of its component's supply.
func allocate(supply, totalDemand, totalWeight, nominal, weight float64) float64 {
	switch {
	case supply <= 0:
		return 0
	case supply >= totalDemand:
		return nominal
	case totalWeight <= 0:
		return 0
	default:
		share := supply * weight / totalWeight
		return min(nominal, share)
	}
}
