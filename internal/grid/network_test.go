package grid_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/couchcryptid/storm-grid-disruption/internal/grid"
)

// twoIslandNetwork builds two disconnected chains:
// 1-2-3 (source, junction, target) and 4-5 (source, target).
func twoIslandNetwork() *grid.Network {
	return &grid.Network{
		Nodes: []grid.Node{
			{ID: 1, AssetType: grid.AssetSource, PowerMW: 100},
			{ID: 2, AssetType: grid.AssetOther},
			{ID: 3, AssetType: grid.AssetTarget, TargetID: 30, PowerMW: 40},
			{ID: 4, AssetType: grid.AssetSource, PowerMW: 10},
			{ID: 5, AssetType: grid.AssetTarget, TargetID: 50, PowerMW: 5},
		},
		Edges: []grid.Edge{
			{ID: 100, FromID: 1, ToID: 2},
			{ID: 101, FromID: 2, ToID: 3},
			{ID: 102, FromID: 4, ToID: 5},
		},
	}
}

func TestValidate_OK(t *testing.T) {
	require.NoError(t, twoIslandNetwork().Validate())
}

func TestValidate_MissingNode(t *testing.T) {
	n := twoIslandNetwork()
	n.Edges = append(n.Edges, grid.Edge{ID: 103, FromID: 5, ToID: 999})

	err := n.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "missing node 999")
}

func TestValidate_DuplicateNodeID(t *testing.T) {
	n := twoIslandNetwork()
	n.Nodes = append(n.Nodes, grid.Node{ID: 1, AssetType: grid.AssetOther})

	err := n.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "duplicate node id 1")
}

func TestAssignComponentIDs_PartitionsIslands(t *testing.T) {
	n := twoIslandNetwork()
	n.AssignComponentIDs()

	assert.Equal(t, 2, n.ComponentCount())

	byID := make(map[int64]int)
	for _, node := range n.Nodes {
		byID[node.ID] = node.ComponentID
	}
	assert.Equal(t, byID[1], byID[2])
	assert.Equal(t, byID[1], byID[3])
	assert.Equal(t, byID[4], byID[5])
	assert.NotEqual(t, byID[1], byID[4])
}

func TestAssignComponentIDs_IsolatedNodeGetsOwnComponent(t *testing.T) {
	n := &grid.Network{
		Nodes: []grid.Node{
			{ID: 1, AssetType: grid.AssetSource},
			{ID: 2, AssetType: grid.AssetTarget, TargetID: 20},
			{ID: 3, AssetType: grid.AssetOther},
		},
		Edges: []grid.Edge{{ID: 100, FromID: 1, ToID: 2}},
	}
	n.AssignComponentIDs()

	assert.Equal(t, 2, n.ComponentCount())
}

func TestAssignComponentIDs_FullRecomputeAfterEdgeLoss(t *testing.T) {
	n := twoIslandNetwork()
	n.AssignComponentIDs()
	require.Equal(t, 2, n.ComponentCount())

	// Losing the middle edge splits the first island.
	sub := n.Subnetwork(map[int64]bool{100: true, 102: true})
	sub.AssignComponentIDs()
	assert.Equal(t, 3, sub.ComponentCount())
}

func TestSubnetwork_DoesNotMutateParent(t *testing.T) {
	n := twoIslandNetwork()
	n.AssignComponentIDs()
	parentComponents := make([]int, len(n.Nodes))
	for i, node := range n.Nodes {
		parentComponents[i] = node.ComponentID
	}

	sub := n.Subnetwork(map[int64]bool{102: true})
	sub.AssignComponentIDs()
	sub.Nodes[0].PowerMW = -1

	assert.Len(t, n.Edges, 3)
	assert.Len(t, sub.Edges, 1)
	assert.Equal(t, 100.0, n.Nodes[0].PowerMW)
	for i, node := range n.Nodes {
		assert.Equal(t, parentComponents[i], node.ComponentID, "parent component ids must be untouched")
	}
}

func TestTargets(t *testing.T) {
	targets := twoIslandNetwork().Targets()
	require.Len(t, targets, 2)
	assert.Equal(t, int64(30), targets[0].TargetID)
	assert.Equal(t, int64(50), targets[1].TargetID)
}
