package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/joseph-ayodele/orderbridge/constants"
	"github.com/joseph-ayodele/orderbridge/internal/extract"
	"github.com/joseph-ayodele/orderbridge/internal/mapper"
	"github.com/joseph-ayodele/orderbridge/internal/ocr"
)

// newTextCmd prints what the text stage and the regex rules make of a local
// PDF, without touching any remote system.
func newTextCmd(root *rootFlags) *cobra.Command {
	var showText bool
	var serviceLine string
	cmd := &cobra.Command{
		Use:   "text <file.pdf>",
		Short: "Extract text and candidate fields from a local PDF",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := root.setup()
			if err != nil {
				return err
			}
			path := args[0]
			data, err := os.ReadFile(path)
			if err != nil {
				return fail(logger, "text.read.failed", err, "pdf", path)
			}
			docID := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))

			src := extract.NewOCRAdapter(ocr.NewExtractor(cfg.OCR, logger), logger)
			res, err := src.Extract(cmd.Context(), docID, data)
			if err != nil {
				return fail(logger, "text.extract.failed", err, "pdf", path)
			}
			logger.Info("text.extract.ok",
				"method", res.Method,
				"pages", res.Pages,
				"chars", len(res.Text),
				"duration_ms", res.Duration.Milliseconds(),
			)
			if showText {
				fmt.Println(res.Text)
			}

			cands, err := extract.NewExtractor(extract.DefaultRules(), logger).Extract(extract.Input{
				DocID: docID,
				Text:  res.Text,
			})
			if err != nil {
				return fail(logger, "text.rules.failed", err)
			}
			for _, c := range cands {
				fmt.Printf("%-14s %-22s %s\n", c.Field, c.Rule, c.Value)
			}

			rec, _ := mapper.NewMapper(logger).Map(docID, cands)
			defaulted := mapper.DefaultEpisodeEnd(rec, serviceLine)
			fmt.Println()
			for _, f := range constants.Fields() {
				note := ""
				if f == constants.EpisodeEnd && defaulted {
					note = " (default)"
				}
				fmt.Printf("%-14s %s%s\n", f, rec.Get(f), note)
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&showText, "show-text", false, "print the extracted text")
	cmd.Flags().StringVar(&serviceLine, "service-line", "", "service line used for the episode length")
	return cmd
}
