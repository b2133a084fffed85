package report

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/joseph-ayodele/orderbridge/constants"
	"github.com/joseph-ayodele/orderbridge/internal/common"
)

// DocIDColumns are the headers searched, in order, for the document id.
var DocIDColumns = []string{"ID", "DocID", "DocumentID"}

// Table is a header row plus data rows read from a CSV or XLSX manifest.
type Table struct {
	Header []string
	Rows   []Row
}

// Row is one data row. Cells is aligned to the table header.
type Row struct {
	Index int // 1-based position among data rows
	Cells []string
}

// ReadTable reads the first sheet of an XLSX file, or a CSV file, whose
// first row is the header.
func ReadTable(path string) (*Table, error) {
	switch ext := constants.NormalizeExt(filepath.Ext(path)); ext {
	case constants.FormatCSV:
		return readCSV(path)
	case constants.FormatXLSX:
		return readXLSX(path)
	default:
		return nil, common.NewAppError(common.CodeValidation, fmt.Sprintf("unsupported input extension %q", ext), common.ErrInvalidInput)
	}
}

// FromDocIDs builds a one-column table for ad-hoc runs.
func FromDocIDs(ids []string) *Table {
	t := &Table{Header: []string{DocIDColumns[0]}}
	for _, id := range ids {
		if id = strings.TrimSpace(id); id != "" {
			t.Rows = append(t.Rows, Row{Index: len(t.Rows) + 1, Cells: []string{id}})
		}
	}
	return t
}

func readCSV(path string) (*Table, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, common.NewAppError(common.CodeValidation, "open input", err)
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = -1
	r.LazyQuotes = true

	header, err := r.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, common.NewAppError(common.CodeValidation, "input "+path+" is empty", common.ErrInvalidInput)
		}
		return nil, common.NewAppError(common.CodeValidation, "read input header", err)
	}
	if len(header) > 0 {
		header[0] = strings.TrimPrefix(header[0], "\uFEFF")
	}

	t := &Table{Header: trimAll(header)}
	for {
		rec, err := r.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, common.NewAppError(common.CodeValidation, fmt.Sprintf("read input row %d", len(t.Rows)+2), err)
		}
		t.add(rec)
	}
	return t, nil
}

func readXLSX(path string) (*Table, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, common.NewAppError(common.CodeValidation, "open input", err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, common.NewAppError(common.CodeValidation, "input "+path+" has no sheets", common.ErrInvalidInput)
	}
	rows, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, common.NewAppError(common.CodeValidation, "read input sheet", err)
	}
	if len(rows) == 0 {
		return nil, common.NewAppError(common.CodeValidation, "input "+path+" is empty", common.ErrInvalidInput)
	}

	t := &Table{Header: trimAll(rows[0])}
	for _, rec := range rows[1:] {
		t.add(rec)
	}
	return t, nil
}

// add appends rec unless it is entirely blank.
func (t *Table) add(rec []string) {
	blank := true
	for _, c := range rec {
		if strings.TrimSpace(c) != "" {
			blank = false
			break
		}
	}
	if blank {
		return
	}
	cells := make([]string, len(t.Header))
	copy(cells, rec)
	t.Rows = append(t.Rows, Row{Index: len(t.Rows) + 1, Cells: cells})
}

// Column returns the index of the first header matching one of names,
// case-insensitively, or -1.
func (t *Table) Column(names ...string) int {
	for _, n := range names {
		for i, h := range t.Header {
			if strings.EqualFold(strings.TrimSpace(h), n) {
				return i
			}
		}
	}
	return -1
}

// Get returns the cell in column col, or "" when col is out of range.
func (r Row) Get(col int) string {
	if col < 0 || col >= len(r.Cells) {
		return ""
	}
	return strings.TrimSpace(r.Cells[col])
}

// DocID returns the row's document id using DocIDColumns.
func (t *Table) DocID(r Row) string {
	return r.Get(t.Column(DocIDColumns...))
}

func trimAll(in []string) []string {
	out := make([]string, len(in))
	for i, s := range in {
		out[i] = strings.TrimSpace(s)
	}
	return out
}
