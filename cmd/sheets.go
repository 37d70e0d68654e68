package main

import (
	"fmt"
	"io"
	"os"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/sells-group/mediaplan-cli/internal/workbook"
)

var sheetsFile string

var sheetsCmd = &cobra.Command{
	Use:   "sheets",
	Short: "List the sheets of a station workbook",
	RunE: func(cmd *cobra.Command, args []string) error {
		content, err := os.ReadFile(sheetsFile)
		if err != nil {
			return eris.Wrapf(err, "read workbook %s", sheetsFile)
		}
		names, err := workbook.ListSheets(content)
		if err != nil {
			return err
		}
		formatSheets(cmd.OutOrStdout(), names, workbook.Suggest(names))
		return nil
	},
}

// formatSheets lists names one per line, marking the suggested sheet.
func formatSheets(out io.Writer, names []string, suggested string) {
	for _, n := range names {
		marker := "  "
		if n == suggested {
			marker = "* "
		}
		_, _ = fmt.Fprintf(out, "%s%s\n", marker, n)
	}
	if suggested == "" {
		_, _ = fmt.Fprintln(out, "no sheet matches the 7-day Raleigh layout; pass --sheet explicitly")
	}
}

func init() {
	sheetsCmd.Flags().StringVar(&sheetsFile, "file", "", "station workbook (.xlsx)")
	_ = sheetsCmd.MarkFlagRequired("file")
	rootCmd.AddCommand(sheetsCmd)
}
