// Package projection turns optimizer results into the flat records the
// presentation layers render: summary metrics, the allocation table and the
// reach-curve chart series.
package projection

import (
	"cmp"
	"slices"

	"github.com/sells-group/mediaplan-cli/internal/model"
)

// headroom is the fraction added above the highest reach value so the line
// never touches the top of the chart.
const headroom = 0.10

// SummaryMetrics are the scalar metrics of a result.
type SummaryMetrics struct {
	TotalCost          float64 `json:"total_cost" yaml:"total_cost"`
	NetReachPercentage float64 `json:"net_reach_percentage" yaml:"net_reach_percentage"`
	NetReachPeople     float64 `json:"net_reach_people" yaml:"net_reach_people"`
	AvgFrequency       float64 `json:"avg_frequency" yaml:"avg_frequency"`
	GRPs               float64 `json:"grps" yaml:"grps"`
	TotalGrossCume     float64 `json:"total_gross_cume" yaml:"total_gross_cume"`
	SpotCount          int     `json:"spot_count" yaml:"spot_count"`
}

// Projection is a result ready for rendering.
type Projection struct {
	Summary SummaryMetrics            `json:"summary" yaml:"summary"`
	Table   []model.StationAllocation `json:"table" yaml:"table"`
}

// ChartSeries is the reach curve as parallel label/value slices with a
// fixed y-axis range.
type ChartSeries struct {
	XLabels []string  `json:"x_labels" yaml:"x_labels"`
	YValues []float64 `json:"y_values" yaml:"y_values"`
	YMin    float64   `json:"y_min" yaml:"y_min"`
	YMax    float64   `json:"y_max" yaml:"y_max"`
}

// Project builds the summary and the allocation table sorted by descending
// cost. Stations with equal cost keep their original order. The result is
// not modified.
func Project(result model.OptimizationResult) Projection {
	table := slices.Clone(result.Plan)
	slices.SortStableFunc(table, func(a, b model.StationAllocation) int {
		return cmp.Compare(b.Cost, a.Cost)
	})
	if table == nil {
		table = []model.StationAllocation{}
	}

	return Projection{
		Summary: SummaryMetrics{
			TotalCost:          result.TotalCost,
			NetReachPercentage: result.NetReachPercentage,
			NetReachPeople:     result.NetReachPeople,
			AvgFrequency:       result.AvgFrequency,
			GRPs:               result.GRPs,
			TotalGrossCume:     result.TotalGrossCume,
			SpotCount:          len(result.Plan),
		},
		Table: table,
	}
}

// ToChartSeries maps points positionally. Points must already be ordered by
// ascending budget.
func ToChartSeries(points []model.ReachPoint) ChartSeries {
	s := ChartSeries{
		XLabels: make([]string, 0, len(points)),
		YValues: make([]float64, 0, len(points)),
	}
	var maxReach float64
	for _, p := range points {
		s.XLabels = append(s.XLabels, FormatBudget(p.Budget))
		s.YValues = append(s.YValues, p.Reach)
		maxReach = max(maxReach, p.Reach)
	}
	s.YMax = maxReach * (1 + headroom)
	return s
}
