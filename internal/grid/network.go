package grid

import (
	"fmt"

	"github.com/paulmach/orb"
	"gonum.org/v1/gonum/graph/simple"
	"gonum.org/v1/gonum/graph/topo"
)

// AssetType classifies a node's role in the electricity network.
type AssetType string

const (
	AssetSource AssetType = "source"
	AssetTarget AssetType = "target"
	AssetOther  AssetType = "other"
)

// Node is a junction, generator (source) or demand centre (target) in the grid.
type Node struct {
	ID          int64     `json:"id"`
	AssetType   AssetType `json:"asset_type"`
	ComponentID int       `json:"component_id,omitempty"`

	// PowerMW holds nominal demand for targets and generating capacity for
	// sources. During reallocation the nominal value is preserved in
	// PowerNominalMW and PowerMW is overwritten with the allocated supply.
	PowerMW        float64 `json:"power_mw"`
	PowerNominalMW float64 `json:"power_nominal_mw,omitempty"`

	Population float64 `json:"population,omitempty"`
	GDP        float64 `json:"gdp,omitempty"`

	// TargetID is a stable external identifier, set only for target nodes.
	// It corresponds to the global targets file holding their geometry.
	TargetID int64 `json:"target_id,omitempty"`
}

// Edge is a transmission line between two nodes.
type Edge struct {
	ID       int64          `json:"id"`
	FromID   int64          `json:"from_id"`
	ToID     int64          `json:"to_id"`
	Geometry orb.LineString `json:"-"`
	LengthKM float64        `json:"length_km,omitempty"`
}

// Network owns the node and edge collections of an electricity grid.
type Network struct {
	Nodes []Node
	Edges []Edge
}

// Validate checks structural integrity: node ids must be unique and every
// edge must reference existing nodes. A violation is fatal for the event's
// computation, no partial output should be written after it.
func (n *Network) Validate() error {
	seen := make(map[int64]bool, len(n.Nodes))
	for _, node := range n.Nodes {
		if seen[node.ID] {
			return fmt.Errorf("grid: duplicate node id %d", node.ID)
		}
		seen[node.ID] = true
	}
	for _, e := range n.Edges {
		if !seen[e.FromID] {
			return fmt.Errorf("grid: edge %d references missing node %d", e.ID, e.FromID)
		}
		if !seen[e.ToID] {
			return fmt.Errorf("grid: edge %d references missing node %d", e.ID, e.ToID)
		}
	}
	return nil
}

// Targets returns the network's target nodes.
func (n *Network) Targets() []Node {
	var targets []Node
	for _, node := range n.Nodes {
		if node.AssetType == AssetTarget {
			targets = append(targets, node)
		}
	}
	return targets
}

// AssignComponentIDs recomputes connected components of the network and
// labels every node with its component id. Ids are arbitrary but internally
// consistent for a single invocation: same id iff same component. The
// labelling is always a full recompute, never an incremental update.
func (n *Network) AssignComponentIDs() {
	g := simple.NewUndirectedGraph()
	for _, node := range n.Nodes {
		g.AddNode(simple.Node(node.ID))
	}
	for _, e := range n.Edges {
		if e.FromID == e.ToID {
			continue
		}
		g.SetEdge(simple.Edge{F: simple.Node(e.FromID), T: simple.Node(e.ToID)})
	}

	componentOf := make(map[int64]int, len(n.Nodes))
	for i, component := range topo.ConnectedComponents(g) {
		for _, member := range component {
			componentOf[member.ID()] = i + 1
		}
	}
	for i := range n.Nodes {
		n.Nodes[i].ComponentID = componentOf[n.Nodes[i].ID]
	}
}

// ComponentCount returns the number of distinct component ids assigned to
// nodes. Zero before AssignComponentIDs has run.
func (n *Network) ComponentCount() int {
	ids := make(map[int]bool)
	for _, node := range n.Nodes {
		if node.ComponentID != 0 {
			ids[node.ComponentID] = true
		}
	}
	return len(ids)
}

// Subnetwork builds a new network containing copies of all nodes but only
// the edges whose ids are in keep. The parent network is never mutated;
// per-threshold surviving subgraphs are ephemeral.
func (n *Network) Subnetwork(keep map[int64]bool) *Network {
	sub := &Network{
		Nodes: make([]Node, len(n.Nodes)),
		Edges: make([]Edge, 0, len(n.Edges)),
	}
	copy(sub.Nodes, n.Nodes)
	for _, e := range n.Edges {
		if keep[e.ID] {
			sub.Edges = append(sub.Edges, e)
		}
	}
	return sub
}
