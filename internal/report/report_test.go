package report_test

import (
	"encoding/csv"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/joseph-ayodele/orderbridge/constants"
	"github.com/joseph-ayodele/orderbridge/internal/common"
	"github.com/joseph-ayodele/orderbridge/internal/entity"
	"github.com/joseph-ayodele/orderbridge/internal/report"
)

var runAt = time.Date(2024, 3, 5, 14, 7, 9, 0, time.UTC)

func writeFile(t *testing.T, name, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func readCSV(t *testing.T, path string) [][]string {
	t.Helper()
	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()
	r := csv.NewReader(f)
	r.FieldsPerRecord = -1
	rows, err := r.ReadAll()
	require.NoError(t, err)
	return rows
}

func TestReadTable_CSV(t *testing.T) {
	path := writeFile(t, "in.csv", "\uFEFFName,DocID,Service Line\nJane,101,Hospice\n,,\nBob,102\n")

	tbl, err := report.ReadTable(path)
	require.NoError(t, err)

	assert.Equal(t, []string{"Name", "DocID", "Service Line"}, tbl.Header)
	require.Len(t, tbl.Rows, 2)
	assert.Equal(t, "101", tbl.DocID(tbl.Rows[0]))
	assert.Equal(t, "102", tbl.DocID(tbl.Rows[1]))
	assert.Equal(t, 2, tbl.Rows[1].Index)
	assert.Len(t, tbl.Rows[1].Cells, 3)
	assert.Empty(t, tbl.Rows[1].Get(2))
}

func TestReadTable_XLSX(t *testing.T) {
	path := filepath.Join(t.TempDir(), "in.xlsx")
	f := excelize.NewFile()
	require.NoError(t, f.SetSheetRow("Sheet1", "A1", &[]any{"DocumentID", "ID"}))
	require.NoError(t, f.SetSheetRow("Sheet1", "A2", &[]any{"x", "7"}))
	require.NoError(t, f.SaveAs(path))
	require.NoError(t, f.Close())

	tbl, err := report.ReadTable(path)
	require.NoError(t, err)
	require.Len(t, tbl.Rows, 1)
	// ID is preferred over DocumentID
	assert.Equal(t, "7", tbl.DocID(tbl.Rows[0]))
}

func TestReadTable_Rejects(t *testing.T) {
	tests := []struct {
		name string
		path func(t *testing.T) string
	}{
		{name: "unsupported extension", path: func(t *testing.T) string { return writeFile(t, "in.txt", "ID\n1\n") }},
		{name: "empty csv", path: func(t *testing.T) string { return writeFile(t, "in.csv", "") }},
		{name: "missing file", path: func(t *testing.T) string { return filepath.Join(t.TempDir(), "nope.csv") }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := report.ReadTable(tt.path(t))
			require.Error(t, err)
			var appErr *common.AppError
			assert.True(t, errors.As(err, &appErr))
		})
	}
}

func TestFromDocIDs(t *testing.T) {
	tbl := report.FromDocIDs([]string{" 1", "", "2 "})
	require.Len(t, tbl.Rows, 2)
	assert.Equal(t, "1", tbl.DocID(tbl.Rows[0]))
	assert.Equal(t, "2", tbl.DocID(tbl.Rows[1]))
}

func sampleResult() entity.ReconciliationResult {
	rec := entity.NewCanonicalRecord("101")
	rec.Fields[constants.PatientName] = "Jane Roe"
	rec.Fields[constants.MRN] = "M-1"
	return entity.NewCreated(rec, "55", "Add:55")
}

func TestOpen_CSVHeaderAndRows(t *testing.T) {
	dir := t.TempDir()
	w, err := report.Open(report.Options{Dir: dir, Prefix: "patients", Format: "csv", Header: []string{"Name", "DocID"}, Now: runAt}, nil)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "patients_2024-03-05_14-07-09.csv"), w.Path())

	require.NoError(t, w.WriteRow([]string{"Jane", "101"}, sampleResult()))
	// rows are durable before Close
	rows := readCSV(t, w.Path())
	require.NoError(t, w.Close())

	require.Len(t, rows, 2)
	want := append([]string{"Name", "DocID"}, report.DerivedColumns()...)
	assert.Equal(t, want, rows[0])
	assert.Equal(t, []string{
		"patient_name", "dob", "mrn", "start_of_care", "episode_start", "episode_end", "npi",
		"order_number", "icd_codes", "creation_status", "creation_message", "error_kind", "processed_at",
	}, report.DerivedColumns())

	row := rows[1]
	require.Len(t, row, len(want))
	assert.Equal(t, "Jane", row[0])
	assert.Equal(t, "Jane Roe", row[2])
	assert.Equal(t, "M-1", row[4])
	assert.Equal(t, "Created", row[11])
	assert.Equal(t, "Add:55", row[12])
	assert.Empty(t, row[13])
	assert.NotEmpty(t, row[14])
}

func TestOpen_NeverOverwrites(t *testing.T) {
	dir := t.TempDir()
	existing := filepath.Join(dir, report.FileName("report", "csv", runAt, 0))
	require.NoError(t, os.WriteFile(existing, []byte("keep"), 0o644))

	w, err := report.Open(report.Options{Dir: dir, Format: "csv", Now: runAt}, nil)
	require.NoError(t, err)
	defer w.Close()

	assert.Equal(t, filepath.Join(dir, "report_2024-03-05_14-07-09_2.csv"), w.Path())
	data, err := os.ReadFile(existing)
	require.NoError(t, err)
	assert.Equal(t, "keep", string(data))
}

func TestOpen_XLSXSavesEachRow(t *testing.T) {
	dir := t.TempDir()
	w, err := report.Open(report.Options{Dir: dir, Prefix: "orders", Format: "xlsx", Header: []string{"ID"}, Now: runAt}, nil)
	require.NoError(t, err)

	failed := entity.NewFailure(entity.NewCanonicalRecord("9"), common.ErrDocumentUnavailable)
	require.NoError(t, w.WriteRow([]string{"9"}, failed))

	f, err := excelize.OpenFile(w.Path())
	require.NoError(t, err)
	rows, err := f.GetRows("Results")
	require.NoError(t, err)
	require.NoError(t, f.Close())
	require.NoError(t, w.Close())

	require.Len(t, rows, 2)
	assert.Equal(t, "ID", rows[0][0])
	assert.Equal(t, "9", rows[1][0])
	assert.Equal(t, "Failed", rows[1][10])
	assert.Equal(t, string(common.KindDocumentUnavailable), rows[1][12])
}

func TestOpen_UnknownFormat(t *testing.T) {
	_, err := report.Open(report.Options{Dir: t.TempDir(), Format: "pdf", Now: runAt}, nil)
	assert.ErrorIs(t, err, common.ErrInvalidInput)
}

func TestClean(t *testing.T) {
	path := writeFile(t, "raw.csv", "ID,Date of Birth,mrn,Notes\n1,DOB: 2/2/1950,MRN: A-991,Date of Birth: keep\n")
	tbl, err := report.ReadTable(path)
	require.NoError(t, err)

	assert.Equal(t, 2, report.Clean(tbl))
	assert.Equal(t, []string{"1", "02/02/1950", "A-991", "Date of Birth: keep"}, tbl.Rows[0].Cells)

	out := filepath.Join(t.TempDir(), "clean.csv")
	require.NoError(t, report.WriteCSV(out, tbl))
	assert.Equal(t, [][]string{tbl.Header, tbl.Rows[0].Cells}, readCSV(t, out))
}
