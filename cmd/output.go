package main

import (
	"encoding/json"
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/rotisserie/eris"
	"gopkg.in/yaml.v3"

	"github.com/sells-group/mediaplan-cli/internal/model"
	"github.com/sells-group/mediaplan-cli/internal/projection"
)

// Output formats accepted by --output.
const (
	outputTable = "table"
	outputJSON  = "json"
	outputYAML  = "yaml"
)

func checkOutputFormat(format string) error {
	switch format {
	case outputTable, outputJSON, outputYAML:
		return nil
	default:
		return eris.Errorf("unknown output format %q (want table, json or yaml)", format)
	}
}

// renderReport writes r to out in the given format.
func renderReport(out io.Writer, format string, r projection.Report) error {
	switch format {
	case outputJSON:
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return eris.Wrap(enc.Encode(r), "encode json")
	case outputYAML:
		enc := yaml.NewEncoder(out)
		enc.SetIndent(2)
		if err := enc.Encode(r); err != nil {
			return eris.Wrap(err, "encode yaml")
		}
		return eris.Wrap(enc.Close(), "encode yaml")
	case outputTable:
		formatJob(out, r.Job)
		if r.Summary != nil {
			_, _ = fmt.Fprintln(out)
			formatSummary(out, *r.Summary)
			_, _ = fmt.Fprintln(out)
			formatAllocations(out, r.Table)
		}
		if r.Chart != nil {
			_, _ = fmt.Fprintln(out)
			formatChart(out, *r.Chart)
		}
		return nil
	default:
		return checkOutputFormat(format)
	}
}

// formatJob writes the job status block to w.
func formatJob(out io.Writer, v model.JobView) {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	if v.JobID != "" {
		_, _ = fmt.Fprintf(w, "Job:\t%s\n", v.JobID)
	}
	_, _ = fmt.Fprintf(w, "State:\t%s\n", v.State)
	if v.Status != "" {
		_, _ = fmt.Fprintf(w, "Status:\t%s\n", v.Status)
	}
	_, _ = fmt.Fprintf(w, "Progress:\t%s\n", projection.FormatPercent(v.Progress*100))
	if v.StatusMessage != "" {
		_, _ = fmt.Fprintf(w, "Message:\t%s\n", v.StatusMessage)
	}
	if v.ErrorMessage != "" {
		_, _ = fmt.Fprintf(w, "Error:\t%s\n", v.ErrorMessage)
	}
	_ = w.Flush()
}

// formatSummary writes the result metrics to w.
func formatSummary(out io.Writer, s projection.SummaryMetrics) {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintf(w, "Total cost:\t%s\n", projection.FormatCurrency(s.TotalCost))
	_, _ = fmt.Fprintf(w, "Net reach:\t%s\n", projection.FormatPercent(s.NetReachPercentage))
	_, _ = fmt.Fprintf(w, "Net reach people:\t%s\n", projection.FormatNumber(s.NetReachPeople, 0))
	_, _ = fmt.Fprintf(w, "Avg frequency:\t%s\n", projection.FormatNumber(s.AvgFrequency, 2))
	_, _ = fmt.Fprintf(w, "GRPs:\t%s\n", projection.FormatNumber(s.GRPs, 2))
	_, _ = fmt.Fprintf(w, "Gross cume:\t%s\n", projection.FormatNumber(s.TotalGrossCume, 0))
	_, _ = fmt.Fprintf(w, "Spots:\t%d\n", s.SpotCount)
	_ = w.Flush()
}

// formatAllocations writes the allocation table to w, highest cost first.
func formatAllocations(out io.Writer, rows []model.StationAllocation) {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(w, "STATION\tCOST\tCUME")
	_, _ = fmt.Fprintln(w, "-------\t----\t----")
	for _, r := range rows {
		_, _ = fmt.Fprintf(w, "%s\t%s\t%s\n",
			r.Station,
			projection.FormatCurrency(r.Cost),
			projection.FormatNumber(r.Cume, 0),
		)
	}
	_ = w.Flush()
}

// formatChart writes the reach curve as a budget/reach table.
func formatChart(out io.Writer, c projection.ChartSeries) {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(w, "BUDGET\tREACH")
	_, _ = fmt.Fprintln(w, "------\t-----")
	for i, label := range c.XLabels {
		_, _ = fmt.Fprintf(w, "%s\t%s\n", label, projection.FormatPercent(c.YValues[i]))
	}
	_ = w.Flush()
}
