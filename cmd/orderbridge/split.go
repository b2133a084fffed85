package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/joseph-ayodele/orderbridge/internal/ocr"
	"github.com/joseph-ayodele/orderbridge/internal/report"
)

// orderColumns are the headers an order list may carry its numbers under.
var orderColumns = []string{"Order Number", "OrderNumber", "Order #", "order_number"}

func newSplitCmd(root *rootFlags) *cobra.Command {
	var pdfPath, outDir, ordersPath string
	cmd := &cobra.Command{
		Use:   "split",
		Short: "Cut a bulk order PDF into one file per order",
		RunE: func(cmd *cobra.Command, _ []string) error {
			_, logger, err := root.setup()
			if err != nil {
				return err
			}
			data, err := os.ReadFile(pdfPath)
			if err != nil {
				return fail(logger, "split.read.failed", err, "pdf", pdfPath)
			}

			var orders []string
			if ordersPath != "" {
				t, err := report.ReadTable(ordersPath)
				if err != nil {
					return fail(logger, "split.orders.failed", err, "orders", ordersPath)
				}
				col := t.Column(orderColumns...)
				if col < 0 {
					return fmt.Errorf("%s has no order number column", ordersPath)
				}
				for _, r := range t.Rows {
					if v := r.Get(col); v != "" {
						orders = append(orders, v)
					}
				}
			}

			parts, err := ocr.NewSplitter(logger).Split(cmd.Context(), data, outDir, orders)
			if err != nil {
				return fail(logger, "split.failed", err, "pdf", pdfPath)
			}
			for _, p := range parts {
				fmt.Printf("%s\tpages %d-%d\t%s\n", p.Path, p.From, p.To, p.OrderNumber)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&pdfPath, "pdf", "", "bulk PDF to split")
	cmd.Flags().StringVar(&outDir, "out", "split", "directory for the per-order PDFs")
	cmd.Flags().StringVar(&ordersPath, "orders", "", "CSV or XLSX listing known order numbers")
	_ = cmd.MarkFlagRequired("pdf")
	return cmd
}
