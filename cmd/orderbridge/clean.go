package main

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/joseph-ayodele/orderbridge/internal/report"
)

func newCleanCmd(root *rootFlags) *cobra.Command {
	var input, output string
	cmd := &cobra.Command{
		Use:   "clean",
		Short: "Normalize the field columns of a report and write it as CSV",
		RunE: func(*cobra.Command, []string) error {
			_, logger, err := root.setup()
			if err != nil {
				return err
			}
			t, err := report.ReadTable(input)
			if err != nil {
				return fail(logger, "clean.read.failed", err, "input", input)
			}
			changed := report.Clean(t)

			if output == "" {
				output = strings.TrimSuffix(input, filepath.Ext(input)) + "_clean.csv"
			}
			if err := report.WriteCSV(output, t); err != nil {
				return fail(logger, "clean.write.failed", err, "output", output)
			}
			logger.Info("clean.done", "input", input, "output", output, "rows", len(t.Rows), "changed", changed)
			fmt.Println(output)
			return nil
		},
	}
	cmd.Flags().StringVar(&input, "input", "", "CSV or XLSX report to clean")
	cmd.Flags().StringVar(&output, "output", "", "CSV to write (default <input>_clean.csv)")
	_ = cmd.MarkFlagRequired("input")
	return cmd
}
