package main

import (
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/mediaplan-cli/internal/jobs"
	"github.com/sells-group/mediaplan-cli/internal/model"
	"github.com/sells-group/mediaplan-cli/internal/projection"
	"github.com/sells-group/mediaplan-cli/internal/workbook"
)

var (
	optimizeFile     string
	optimizeAudience float64
	optimizeBudget   float64
	optimizeSheet    string
	optimizeExport   string
	optimizeOutput   string
)

var optimizeCmd = &cobra.Command{
	Use:   "optimize",
	Short: "Submit a station workbook and wait for the optimized plan",
	Example: `  mediaplan-cli optimize --file stations.xlsx --audience 250000 --budget 10000
  mediaplan-cli optimize --file stations.xlsx --audience 250000 --budget 10000 --sheet "Raleigh 7 day" --export plan.xlsx`,
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := cfg.Validate("client"); err != nil {
			return err
		}
		if err := checkOutputFormat(optimizeOutput); err != nil {
			return err
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		req, err := buildRequest(optimizeFile, optimizeSheet, optimizeAudience, optimizeBudget)
		if err != nil {
			return err
		}

		ctrl := jobs.New(newOptimizerClient(), jobs.WithPollInterval(cfg.Optimizer.PollInterval()))
		defer ctrl.Dispose()

		views, unsubscribe := ctrl.Subscribe()
		reported := make(chan struct{})
		go func() {
			defer close(reported)
			reportProgress(os.Stderr, views)
		}()

		if err := ctrl.Submit(ctx, req); err != nil {
			unsubscribe()
			<-reported
			return eris.Wrap(err, "submit optimization")
		}

		v, err := ctrl.Wait(ctx)
		unsubscribe()
		<-reported
		if err != nil {
			if ctx.Err() != nil {
				zap.L().Info("interrupted, abandoning job", zap.String("job_id", v.JobID))
			}
			return err
		}

		report := projection.ForView(v)
		if err := renderReport(cmd.OutOrStdout(), optimizeOutput, report); err != nil {
			return err
		}

		if optimizeExport != "" && v.Result != nil {
			if err := workbook.ExportPlan(optimizeExport, projection.Project(*v.Result), v.ReachCurve); err != nil {
				return err
			}
			zap.L().Info("plan exported", zap.String("path", optimizeExport))
		}
		return nil
	},
}

// buildRequest reads the workbook and resolves the sheet to optimize.
// Without --sheet it falls back to workbook.default_sheet, then to the
// suggested sheet of an XLSX workbook.
func buildRequest(path, sheet string, audience, budget float64) (model.OptimizationRequest, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return model.OptimizationRequest{}, eris.Wrapf(err, "read workbook %s", path)
	}

	isXLSX := strings.EqualFold(filepath.Ext(path), ".xlsx")
	if sheet == "" {
		sheet = cfg.Workbook.DefaultSheet
	}
	if sheet == "" && isXLSX {
		if names, err := workbook.ListSheets(content); err == nil {
			sheet = workbook.Suggest(names)
		}
	}
	if sheet != "" && isXLSX && cfg.Workbook.Preflight {
		if err := workbook.RequireSheet(content, sheet); err != nil {
			return model.OptimizationRequest{}, err
		}
	}

	return model.OptimizationRequest{
		TotalAudience: audience,
		Budget:        budget,
		SheetName:     sheet,
		SourceFile: model.SourceFile{
			Name:    filepath.Base(path),
			Content: content,
		},
	}, nil
}

// reportProgress prints a line for every visible change until views closes.
func reportProgress(out io.Writer, views <-chan model.JobView) {
	var last string
	for v := range views {
		if v.State == model.StateIdle {
			continue
		}
		parts := []string{fmt.Sprintf("[%s]", v.State), projection.FormatPercent(v.Progress * 100)}
		if v.StatusMessage != "" {
			parts = append(parts, v.StatusMessage)
		}
		if v.ErrorMessage != "" {
			parts = append(parts, "- "+v.ErrorMessage)
		}
		line := strings.Join(parts, " ")
		if line == last {
			continue
		}
		last = line
		_, _ = fmt.Fprintln(out, line)
	}
}

func init() {
	optimizeCmd.Flags().StringVar(&optimizeFile, "file", "", "station workbook (.xlsx or .xls)")
	optimizeCmd.Flags().Float64Var(&optimizeAudience, "audience", 0, "total target audience")
	optimizeCmd.Flags().Float64Var(&optimizeBudget, "budget", 0, "campaign budget")
	optimizeCmd.Flags().StringVar(&optimizeSheet, "sheet", "", "sheet to optimize (default from config or workbook)")
	optimizeCmd.Flags().StringVar(&optimizeExport, "export", "", "write the optimized plan to this .xlsx path")
	optimizeCmd.Flags().StringVarP(&optimizeOutput, "output", "o", outputTable, "output format: table, json or yaml")
	_ = optimizeCmd.MarkFlagRequired("file")
	rootCmd.AddCommand(optimizeCmd)
}
