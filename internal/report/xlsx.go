package report

import (
	"fmt"
	"os"

	"github.com/xuri/excelize/v2"

	"github.com/joseph-ayodele/orderbridge/constants"
	"github.com/joseph-ayodele/orderbridge/internal/entity"
)

const sheet = "Results"

type xlsxWriter struct {
	f     *excelize.File
	path  string
	row   int
	width int // input columns
}

func openXLSX(opts Options, header []string) (*xlsxWriter, error) {
	claimed, err := claim(opts, constants.FormatXLSX)
	if err != nil {
		return nil, err
	}
	path := claimed.Name()
	_ = claimed.Close()

	f := excelize.NewFile()
	if index, _ := f.GetSheetIndex(sheet); index == -1 {
		if _, err := f.NewSheet(sheet); err != nil {
			_ = os.Remove(path)
			return nil, err
		}
	}
	activeIndex, _ := f.GetSheetIndex(sheet)
	f.SetActiveSheet(activeIndex)
	_ = f.DeleteSheet("Sheet1")

	x := &xlsxWriter{f: f, path: path, row: 1, width: len(opts.Header)}
	if err := x.write(header); err != nil {
		_ = os.Remove(path)
		return nil, err
	}

	// Widen the derived columns
	first, _ := excelize.ColumnNumberToName(len(opts.Header) + 1)
	last, _ := excelize.ColumnNumberToName(len(header))
	_ = f.SetColWidth(sheet, first, last, 16)
	msg, _ := excelize.ColumnNumberToName(len(header) - 2)
	_ = f.SetColWidth(sheet, msg, msg, 48)
	return x, nil
}

func (x *xlsxWriter) WriteRow(input []string, res entity.ReconciliationResult) error {
	return x.write(Values(input, x.width, res))
}

// write sets one row and saves the whole workbook.
func (x *xlsxWriter) write(values []string) error {
	cell, err := excelize.CoordinatesToCellName(1, x.row)
	if err != nil {
		return err
	}
	row := make([]any, len(values))
	for i, v := range values {
		row[i] = v
	}
	if err := x.f.SetSheetRow(sheet, cell, &row); err != nil {
		return fmt.Errorf("set row %d: %w", x.row, err)
	}
	if err := x.f.SaveAs(x.path); err != nil {
		return fmt.Errorf("xlsx save: %w", err)
	}
	x.row++
	return nil
}

func (x *xlsxWriter) Path() string { return x.path }

func (x *xlsxWriter) Close() error { return x.f.Close() }
