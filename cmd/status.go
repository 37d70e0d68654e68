package main

import (
	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/sells-group/mediaplan-cli/internal/jobs"
	"github.com/sells-group/mediaplan-cli/internal/model"
	"github.com/sells-group/mediaplan-cli/internal/projection"
)

var statusOutput string

var statusCmd = &cobra.Command{
	Use:   "status <job-id>",
	Short: "Fetch and render the current status of a job once",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := cfg.Validate("client"); err != nil {
			return err
		}
		if err := checkOutputFormat(statusOutput); err != nil {
			return err
		}

		jobID := args[0]
		resp, err := newOptimizerClient().GetJobStatus(cmd.Context(), jobID)
		if err != nil {
			return eris.Wrap(err, "fetch job status")
		}

		v := jobs.MergeStatus(model.JobView{JobID: jobID}, resp)
		v.State = stateForStatus(v.Status)
		if v.Status == model.JobStatusFailed {
			v.ErrorMessage = resp.Error
			if v.ErrorMessage == "" {
				v.ErrorMessage = model.MsgJobFailed
			}
		}

		return renderReport(cmd.OutOrStdout(), statusOutput, projection.ForView(v))
	},
}

// stateForStatus maps a service status onto the state a watching
// controller would be in.
func stateForStatus(s model.JobStatus) model.ControllerState {
	switch s {
	case model.JobStatusCompleted:
		return model.StateCompleted
	case model.JobStatusFailed:
		return model.StateFailed
	default:
		return model.StatePolling
	}
}

func init() {
	statusCmd.Flags().StringVarP(&statusOutput, "output", "o", outputTable, "output format: table, json or yaml")
	rootCmd.AddCommand(statusCmd)
}
