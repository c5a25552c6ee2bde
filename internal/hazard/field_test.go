package hazard_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/couchcryptid/storm-grid-disruption/internal/hazard"
)

func testField() *hazard.Field {
	return &hazard.Field{
		EventID: "2017260N12310",
		Rows:    2,
		Cols:    3,
		Values:  []float64{10, 20, 30, 40, 50, 60},
	}
}

func TestField_At(t *testing.T) {
	f := testField()

	v, err := f.At(0, 0)
	require.NoError(t, err)
	assert.Equal(t, 10.0, v)

	v, err = f.At(1, 2)
	require.NoError(t, err)
	assert.Equal(t, 60.0, v)
}

func TestField_At_OutOfRange(t *testing.T) {
	f := testField()

	for _, cell := range [][2]int{{-1, 0}, {0, -1}, {2, 0}, {0, 3}} {
		_, err := f.At(cell[0], cell[1])
		assert.ErrorIs(t, err, hazard.ErrNoCoverage, "cell %v", cell)
	}
}

func TestField_Empty(t *testing.T) {
	assert.True(t, (&hazard.Field{EventID: "X"}).Empty())
	assert.True(t, (*hazard.Field)(nil).Empty())
	assert.False(t, testField().Empty())
}

func TestSampleFragments(t *testing.T) {
	f := testField()
	fragments := []hazard.Fragment{
		{EdgeID: 1, Row: 0, Col: 0},
		{EdgeID: 1, Row: 0, Col: 1},
		{EdgeID: 2, Row: 1, Col: 2},
	}

	intensities, err := hazard.SampleFragments(f, fragments)
	require.NoError(t, err)
	assert.Equal(t, []float64{10, 20, 60}, intensities)
}

func TestSampleFragments_Miss(t *testing.T) {
	f := testField()
	fragments := []hazard.Fragment{
		{EdgeID: 1, Row: 0, Col: 0},
		{EdgeID: 7, Row: 5, Col: 5},
	}

	_, err := hazard.SampleFragments(f, fragments)
	require.Error(t, err)
	assert.ErrorIs(t, err, hazard.ErrNoCoverage)
	assert.Contains(t, err.Error(), "edge 7")
}
