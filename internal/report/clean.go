package report

import (
	"encoding/csv"
	"fmt"
	"os"

	"github.com/joseph-ayodele/orderbridge/constants"
	"github.com/joseph-ayodele/orderbridge/internal/normalize"
)

// FieldFor maps a header to its canonical field, accepting both report
// column names ("start_of_care") and free-text labels ("Start of Care").
func FieldFor(header string) (constants.Field, bool) {
	for _, f := range constants.Fields() {
		if f.Column() == header {
			return f, true
		}
	}
	return constants.Canonicalize(header)
}

// Clean rewrites every cell under a canonical column to its bare value and
// returns the number of cells changed.
func Clean(t *Table) int {
	fields := make(map[int]constants.Field)
	for i, h := range t.Header {
		if f, ok := FieldFor(h); ok {
			fields[i] = f
		}
	}
	changed := 0
	for _, row := range t.Rows {
		for i, f := range fields {
			if i >= len(row.Cells) {
				continue
			}
			v := normalize.CleanValue(f, row.Cells[i])
			if f.IsDate() {
				if d, err := normalize.Date(v); err == nil {
					v = d
				}
			}
			if v != row.Cells[i] {
				row.Cells[i] = v
				changed++
			}
		}
	}
	return changed
}

// WriteCSV writes t to path, replacing any existing file.
func WriteCSV(path string, t *Table) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	w := csv.NewWriter(f)
	if err := w.Write(t.Header); err != nil {
		_ = f.Close()
		return err
	}
	for _, row := range t.Rows {
		if err := w.Write(row.Cells); err != nil {
			_ = f.Close()
			return fmt.Errorf("row %d: %w", row.Index, err)
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		_ = f.Close()
		return err
	}
	return f.Close()
}
