package hazard_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/couchcryptid/storm-grid-disruption/internal/hazard"
)

func TestParseMap_Riverine(t *testing.T) {
	m, err := hazard.ParseMap("inunriver_rcp8p5_00000NorESM1-M_2080_rp00005")
	require.NoError(t, err)

	assert.Equal(t, hazard.KindRiverine, m.Kind)
	assert.Equal(t, "rcp8p5", m.Scenario)
	assert.Equal(t, "00000NorESM1-M", m.Model)
	assert.Equal(t, 2080, m.Year)
	assert.Equal(t, 5.0, m.ReturnPeriodYears)
	assert.InDelta(t, 0.2, m.AnnualProbability(), 1e-12)
}

func TestParseMap_Coastal(t *testing.T) {
	tests := []struct {
		name           string
		wantSubsidence bool
		wantPercentile float64
	}{
		{"inuncoast_rcp8p5_wtsub_2080_rp1000_0_perc_50", true, 50},
		{"inuncoast_rcp8p5_wtsub_2080_rp1000_0_perc_05", true, 5},
		{"inuncoast_historical_nosub_2005_rp0100_0", false, 95},
	}
	for _, tc := range tests {
		m, err := hazard.ParseMap(tc.name)
		require.NoError(t, err, tc.name)
		assert.Equal(t, hazard.KindCoastal, m.Kind, tc.name)
		assert.Equal(t, tc.wantSubsidence, m.Subsidence, tc.name)
		assert.Equal(t, tc.wantPercentile, m.SLRPercentile, tc.name)
	}
}

func TestParseMap_Malformed(t *testing.T) {
	names := []string{
		"inunriver_rcp8p5_2080_rp00005",                // missing model
		"inuncoast_rcp8p5_maybe_2080_rp1000_0",         // bad subsidence token
		"inuncoast_rcp8p5_wtsub_2080_rp1000_0_perc_99", // bad percentile
		"landslide_2080_rp00005",                       // unknown kind
		"inunriver_rcp8p5_model_2080_00005",            // no rp prefix
		"inunriver_rcp8p5_model_2080_rp00005.tif",      // file extension left on
	}
	for _, name := range names {
		_, err := hazard.ParseMap(name)
		assert.Error(t, err, name)
	}
}

func TestMap_GroupingNames(t *testing.T) {
	m, err := hazard.ParseMap("inunriver_rcp8p5_00000NorESM1-M_2080_rp00005")
	require.NoError(t, err)

	assert.Equal(t, "inunriver_rcp8p5_00000NorESM1-M_2080", m.WithoutRP())
	assert.Equal(t, "inunriver_rcp8p5_2080_rp00005", m.WithoutModel())
}

func TestMap_Equal(t *testing.T) {
	a, err := hazard.ParseMap("inunriver_rcp8p5_00000NorESM1-M_2080_rp00005")
	require.NoError(t, err)
	b, err := hazard.ParseMap("inunriver_rcp8p5_00000NorESM1-M_2080_rp00005")
	require.NoError(t, err)
	c, err := hazard.ParseMap("inunriver_rcp8p5_00000NorESM1-M_2080_rp00100")
	require.NoError(t, err)

	assert.True(t, a.Equal(b))
	assert.False(t, a.Equal(c))
}

func TestSortMaps_IntegrationOrder(t *testing.T) {
	names := []string{
		"inunriver_rcp8p5_00000NorESM1-M_2080_rp00005",
		"inunriver_rcp8p5_00000NorESM1-M_2080_rp01000",
		"inunriver_rcp8p5_00000NorESM1-M_2080_rp00100",
	}
	maps, err := hazard.ParseMaps(names, "")
	require.NoError(t, err)

	// Least likely first: rp1000, rp100, rp5.
	assert.Equal(t, 1000.0, maps[0].ReturnPeriodYears)
	assert.Equal(t, 100.0, maps[1].ReturnPeriodYears)
	assert.Equal(t, 5.0, maps[2].ReturnPeriodYears)
}

func TestParseMaps_TrimsPrefix(t *testing.T) {
	maps, err := hazard.ParseMaps(
		[]string{"hazard-inunriver_rcp8p5_00000NorESM1-M_2080_rp00005"}, "hazard-")
	require.NoError(t, err)
	require.Len(t, maps, 1)
	assert.Equal(t, "inunriver_rcp8p5_00000NorESM1-M_2080_rp00005", maps[0].Name)
}
