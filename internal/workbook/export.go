package workbook

import (
	"github.com/rotisserie/eris"
	"github.com/tealeg/xlsx/v2"

	"github.com/sells-group/mediaplan-cli/internal/model"
	"github.com/sells-group/mediaplan-cli/internal/projection"
)

// Sheet names written by ExportPlan.
const (
	SummarySheet = "Summary"
	PlanSheet    = "Plan"
	CurveSheet   = "Reach Curve"
)

// ExportPlan writes the projected plan and reach curve to an XLSX file.
func ExportPlan(path string, p projection.Projection, curve []model.ReachPoint) error {
	f := xlsx.NewFile()

	summary, err := f.AddSheet(SummarySheet)
	if err != nil {
		return eris.Wrap(err, "workbook: add summary sheet")
	}
	s := p.Summary
	for _, kv := range []struct {
		label string
		value float64
	}{
		{"Total Cost", s.TotalCost},
		{"Net Reach %", s.NetReachPercentage},
		{"Net Reach People", s.NetReachPeople},
		{"Avg Frequency", s.AvgFrequency},
		{"GRPs", s.GRPs},
		{"Total Gross Cume", s.TotalGrossCume},
		{"Spots", float64(s.SpotCount)},
	} {
		row := summary.AddRow()
		row.AddCell().SetString(kv.label)
		row.AddCell().SetFloat(kv.value)
	}

	plan, err := f.AddSheet(PlanSheet)
	if err != nil {
		return eris.Wrap(err, "workbook: add plan sheet")
	}
	addHeader(plan, "Station", "Cost", "Cume")
	for _, a := range p.Table {
		row := plan.AddRow()
		row.AddCell().SetString(a.Station)
		row.AddCell().SetFloat(a.Cost)
		row.AddCell().SetFloat(a.Cume)
	}

	reach, err := f.AddSheet(CurveSheet)
	if err != nil {
		return eris.Wrap(err, "workbook: add reach curve sheet")
	}
	addHeader(reach, "Budget", "Reach %")
	for _, pt := range curve {
		row := reach.AddRow()
		row.AddCell().SetFloat(pt.Budget)
		row.AddCell().SetFloat(pt.Reach)
	}

	if err := f.Save(path); err != nil {
		return eris.Wrapf(err, "workbook: save %s", path)
	}
	return nil
}

func addHeader(sheet *xlsx.Sheet, cols ...string) {
	row := sheet.AddRow()
	for _, c := range cols {
		row.AddCell().SetString(c)
	}
}
