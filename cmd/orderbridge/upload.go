package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/joseph-ayodele/orderbridge/internal/storage"
	"github.com/joseph-ayodele/orderbridge/internal/wav"
)

func newUploadCmd(root *rootFlags) *cobra.Command {
	var (
		reportPath string
		toWAV      bool
		toBlob     bool
	)
	cmd := &cobra.Command{
		Use:   "upload",
		Short: "Send a finished report to the bulk-list backend or blob storage",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, logger, err := root.setup()
			if err != nil {
				return err
			}
			if !toWAV && !toBlob {
				return errors.New("choose at least one of --wav and --blob")
			}
			ctx := cmd.Context()

			if toBlob {
				store, err := storage.New(cfg.Storage, logger)
				if err != nil {
					return fail(logger, "upload.blob.setup_failed", err)
				}
				key, err := store.UploadReport(ctx, reportPath)
				if err != nil {
					return fail(logger, "upload.blob.failed", err, "report", reportPath)
				}
				fmt.Printf("blob: %s/%s\n", cfg.Storage.Container, key)
			}
			if toWAV {
				client, err := wav.NewClient(cfg.WAV, logger)
				if err != nil {
					return fail(logger, "upload.wav.setup_failed", err)
				}
				outcomes, err := client.UploadReport(ctx, reportPath)
				if err != nil {
					return fail(logger, "upload.wav.failed", err, "report", reportPath)
				}
				ok := 0
				for _, o := range outcomes {
					if o.OK() {
						ok++
						continue
					}
					fmt.Printf("row %d: %s %s\n", o.Row, o.Status, o.Reason)
				}
				fmt.Printf("wav: %d of %d rows accepted\n", ok, len(outcomes))
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&reportPath, "report", "", "report file to upload")
	cmd.Flags().BoolVar(&toWAV, "wav", false, "upload to the bulk-list backend")
	cmd.Flags().BoolVar(&toBlob, "blob", false, "copy to blob storage")
	_ = cmd.MarkFlagRequired("report")
	return cmd
}
