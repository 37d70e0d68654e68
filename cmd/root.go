package main

import (
	"os"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/mediaplan-cli/internal/config"
	"github.com/sells-group/mediaplan-cli/pkg/optimizer"
)

var cfg *config.Config

var rootCmd = &cobra.Command{
	Use:   "mediaplan-cli",
	Short: "Media plan optimization client",
	Long:  "Uploads a station workbook to the media plan optimizer, follows the job to completion, and renders the budget allocation and reach curve.",
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		c, err := config.Load()
		if err != nil {
			return eris.Wrap(err, "load config")
		}
		cfg = c

		if err := config.InitLogger(cfg.Log); err != nil {
			return eris.Wrap(err, "init logger")
		}

		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		_ = zap.L().Sync()
	},
	SilenceUsage: true,
}

// newOptimizerClient builds the service client from config.
func newOptimizerClient() optimizer.Client {
	return optimizer.NewClient(
		optimizer.WithBaseURL(cfg.Optimizer.BaseURL),
		optimizer.WithTimeout(cfg.Optimizer.RequestTimeout()),
	)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
