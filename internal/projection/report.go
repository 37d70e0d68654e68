package projection

import "github.com/sells-group/mediaplan-cli/internal/model"

// Report is a job snapshot together with everything a results view draws
// from it. Summary and Table are set once a result exists, Chart once the
// reach curve has points; both may appear while the job is still running.
type Report struct {
	Job     model.JobView             `json:"job" yaml:"job"`
	Summary *SummaryMetrics           `json:"summary,omitempty" yaml:"summary,omitempty"`
	Table   []model.StationAllocation `json:"table,omitempty" yaml:"table,omitempty"`
	Chart   *ChartSeries              `json:"chart,omitempty" yaml:"chart,omitempty"`
}

// ForView projects v.
func ForView(v model.JobView) Report {
	r := Report{Job: v}
	if v.Result != nil {
		p := Project(*v.Result)
		r.Summary = &p.Summary
		r.Table = p.Table
	}
	if len(v.ReachCurve) > 0 {
		series := ToChartSeries(v.ReachCurve)
		r.Chart = &series
	}
	return r
}
