package projection

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/mediaplan-cli/internal/model"
)

func stations(t *testing.T, table []model.StationAllocation) []string {
	t.Helper()
	out := make([]string, len(table))
	for i, s := range table {
		out[i] = s.Station
	}
	return out
}

func TestProject_StableDescendingCost(t *testing.T) {
	result := model.OptimizationResult{
		Plan: []model.StationAllocation{
			{Station: "A", Cost: 10},
			{Station: "B", Cost: 30},
			{Station: "C", Cost: 30},
			{Station: "D", Cost: 5},
		},
	}

	p := Project(result)
	assert.Equal(t, []string{"B", "C", "A", "D"}, stations(t, p.Table))

	// Reversed tie order in the input is preserved too.
	result.Plan[1], result.Plan[2] = result.Plan[2], result.Plan[1]
	p = Project(result)
	assert.Equal(t, []string{"C", "B", "A", "D"}, stations(t, p.Table))
}

func TestProject_DoesNotMutateInput(t *testing.T) {
	plan := []model.StationAllocation{
		{Station: "A", Cost: 1},
		{Station: "B", Cost: 2},
	}
	Project(model.OptimizationResult{Plan: plan})
	assert.Equal(t, "A", plan[0].Station)
	assert.Equal(t, "B", plan[1].Station)
}

func TestProject_Summary(t *testing.T) {
	result := model.OptimizationResult{
		TotalCost:          9000,
		NetReachPercentage: 41.5,
		NetReachPeople:     103750,
		AvgFrequency:       2.1,
		GRPs:               87.2,
		TotalGrossCume:     218000,
		Plan: []model.StationAllocation{
			{Station: "WAAA", Cost: 5000, Cume: 120000},
			{Station: "WBBB", Cost: 4000, Cume: 98000},
		},
	}

	s := Project(result).Summary
	assert.Equal(t, SummaryMetrics{
		TotalCost:          9000,
		NetReachPercentage: 41.5,
		NetReachPeople:     103750,
		AvgFrequency:       2.1,
		GRPs:               87.2,
		TotalGrossCume:     218000,
		SpotCount:          2,
	}, s)
}

func TestProject_EmptyPlan(t *testing.T) {
	p := Project(model.OptimizationResult{})
	assert.Equal(t, 0, p.Summary.SpotCount)
	assert.NotNil(t, p.Table)
	assert.Empty(t, p.Table)
}

func TestToChartSeries(t *testing.T) {
	s := ToChartSeries([]model.ReachPoint{
		{Budget: 1000, Reach: 10},
		{Budget: 5000, Reach: 40},
	})
	assert.Equal(t, []string{"1,000", "5,000"}, s.XLabels)
	assert.Equal(t, []float64{10, 40}, s.YValues)
	assert.Equal(t, 0.0, s.YMin)
	assert.InDelta(t, 44.0, s.YMax, 1e-9)
}

func TestToChartSeries_Empty(t *testing.T) {
	s := ToChartSeries(nil)
	require.NotNil(t, s.XLabels)
	assert.Empty(t, s.XLabels)
	assert.Empty(t, s.YValues)
	assert.Equal(t, 0.0, s.YMax)
}

func TestFormatting(t *testing.T) {
	assert.Equal(t, "1,000", FormatBudget(1000))
	assert.Equal(t, "2,500.5", FormatBudget(2500.5))
	assert.Equal(t, "1,234,567", FormatNumber(1234567, 0))
	assert.Equal(t, "1,234.50", FormatNumber(1234.5, 2))
	assert.Equal(t, "$9,000.00", FormatCurrency(9000))
	assert.Equal(t, "-$12.00", FormatCurrency(-12))
	assert.Equal(t, "41.50%", FormatPercent(41.5))
}
