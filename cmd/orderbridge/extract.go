package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/joseph-ayodele/orderbridge/constants"
	"github.com/joseph-ayodele/orderbridge/internal/app"
	"github.com/joseph-ayodele/orderbridge/internal/report"
	"github.com/joseph-ayodele/orderbridge/internal/telemetry"
)

type extractFlags struct {
	input  string
	docIDs []string
	helper string
	from   string
	to     string
	kind   string
	format string
	dryRun bool
	wav    bool
	blob   bool
}

func newExtractCmd(root *rootFlags) *cobra.Command {
	f := &extractFlags{}
	cmd := &cobra.Command{
		Use:   "extract",
		Short: "Process each input row's document and write a results report",
		Example: `  orderbridge extract --input received.xlsx --helper 42 --from 01/01/2024 --to 01/31/2024
  orderbridge extract --doc-ids 9001,9002 --kind order --dry-run`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runExtract(cmd.Context(), root, f)
		},
	}
	cmd.Flags().StringVar(&f.input, "input", "", "CSV or XLSX file with a document id column")
	cmd.Flags().StringSliceVar(&f.docIDs, "doc-ids", nil, "comma-separated document ids")
	cmd.Flags().StringVar(&f.helper, "helper", "", "helper id sent with platform requests")
	cmd.Flags().StringVar(&f.from, "from", "", "first received date to process")
	cmd.Flags().StringVar(&f.to, "to", "", "last received date to process")
	cmd.Flags().StringVar(&f.kind, "kind", "", "record kind: patient or order")
	cmd.Flags().StringVar(&f.format, "format", "", "report format: csv or xlsx")
	cmd.Flags().BoolVar(&f.dryRun, "dry-run", false, "extract and check but create nothing")
	cmd.Flags().BoolVar(&f.wav, "wav", false, "upload the finished report to the bulk-list backend")
	cmd.Flags().BoolVar(&f.blob, "blob", false, "copy the finished report to blob storage")
	cmd.MarkFlagsOneRequired("input", "doc-ids")
	cmd.MarkFlagsMutuallyExclusive("input", "doc-ids")
	return cmd
}

func runExtract(ctx context.Context, root *rootFlags, f *extractFlags) error {
	cfg, logger, err := root.setup()
	if err != nil {
		return err
	}
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	var kind constants.RecordKind
	if f.kind != "" {
		k, ok := constants.ParseKind(f.kind)
		if !ok {
			return fmt.Errorf("--kind %q must be patient or order", f.kind)
		}
		kind = k
	}
	from, to, err := app.ParseWindow(f.from, f.to)
	if err != nil {
		return fail(logger, "extract.window.invalid", err)
	}

	var table *report.Table
	if f.input != "" {
		if table, err = report.ReadTable(f.input); err != nil {
			return fail(logger, "extract.input.failed", err, "input", f.input)
		}
	} else {
		table = report.FromDocIDs(f.docIDs)
	}

	shutdown, err := telemetry.Setup(ctx, cfg.Telemetry, version, logger)
	if err != nil {
		return fail(logger, "telemetry.setup.failed", err)
	}
	defer func() {
		sctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdown(sctx); err != nil {
			logger.Warn("telemetry.shutdown.failed", "error", err)
		}
	}()

	a, err := app.Build(ctx, cfg, app.Options{
		Kind:        kind,
		DryRun:      f.dryRun,
		PublishWAV:  f.wav,
		PublishBlob: f.blob,
	}, logger)
	if err != nil {
		return fail(logger, "extract.setup.failed", err)
	}
	defer func() {
		if err := a.Close(); err != nil {
			logger.Warn("ledger.close.failed", "error", err)
		}
	}()

	sum, err := a.Runner.Run(ctx, table, a.RunOptions(f.helper, f.format, from, to))
	if err != nil {
		return fail(logger, "extract.run.failed", err, "report", sum.ReportPath)
	}
	fmt.Printf("%s: %d rows, %d created, %d already existed, %d failed, %d skipped, %d low confidence\n",
		sum.ReportPath, sum.Total, sum.Created, sum.AlreadyExists, sum.Failed, sum.Skipped, sum.LowConfidence)
	return nil
}
