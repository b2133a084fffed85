package wav

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/joseph-ayodele/orderbridge/constants"
	"github.com/joseph-ayodele/orderbridge/internal/common"
	"github.com/joseph-ayodele/orderbridge/internal/entity"
	"github.com/joseph-ayodele/orderbridge/internal/reconcile"
	"github.com/joseph-ayodele/orderbridge/internal/report"
)

// OrderColumns is the bulk-list template header. Column positions matter to
// the backend; unused positions stay blank.
var OrderColumns = []string{
	"ID", "Order Number", "Patient", "Order Date", "Cert Period From", "Cert Period To",
	"MRN", "DOB", "Signed Date", "NPI", "ICD Codes", "Signed By Physician",
	"Service Line", "Doc ID", "Type", "Upload Status", "RPA", "Agency", "Location",
	"", "", "", "", "Start Of Care",
}

// OrderRow renders rec in template column order.
func OrderRow(rec entity.CanonicalRecord) []string {
	p := rec.Patient()
	row := make([]string, len(OrderColumns))
	row[1] = rec.Get(constants.OrderNumber)
	row[2] = rec.Get(constants.PatientName)
	row[4] = p.CertFrom
	row[5] = p.CertTo
	row[6] = rec.Get(constants.MRN)
	row[7] = rec.Get(constants.DOB)
	row[9] = rec.Get(constants.NPI)
	row[10] = rec.Get(constants.ICDCodes)
	row[12] = rec.Attr(entity.AttrServiceLine)
	row[13] = rec.DocID
	row[23] = p.StartOfCare
	return row
}

// Workbook builds an in-memory XLSX with header and rows.
func Workbook(header []string, rows [][]string) ([]byte, error) {
	f := excelize.NewFile()
	defer f.Close()
	const sheet = "Sheet1"

	write := func(r int, values []string) error {
		cell, err := excelize.CoordinatesToCellName(1, r)
		if err != nil {
			return err
		}
		row := make([]any, len(values))
		for i, v := range values {
			row[i] = v
		}
		return f.SetSheetRow(sheet, cell, &row)
	}
	if err := write(1, header); err != nil {
		return nil, err
	}
	for i, values := range rows {
		if err := write(i+2, values); err != nil {
			return nil, err
		}
	}
	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("xlsx write: %w", err)
	}
	return buf.Bytes(), nil
}

// OrderCreator files each order as a one-row bulk upload.
type OrderCreator struct {
	client *Client
}

func (c *Client) Orders() *OrderCreator {
	return &OrderCreator{client: c}
}

func (o *OrderCreator) Create(ctx context.Context, rec entity.CanonicalRecord) (reconcile.Creation, error) {
	data, err := Workbook(OrderColumns, [][]string{OrderRow(rec)})
	if err != nil {
		return reconcile.Creation{}, err
	}
	name := fmt.Sprintf("order_%s.xlsx", safeName(rec.DocID))
	outcomes, err := o.client.UploadBulkList(ctx, name, data)
	if err != nil {
		return reconcile.Creation{}, err
	}
	outcome, ok := Find(outcomes, 2)
	if !ok {
		return reconcile.Creation{}, common.NewCollaboratorError(service, 0, "no outcome reported for the order row")
	}
	if !outcome.OK() {
		return reconcile.Creation{}, common.NewCollaboratorError(service, 0, outcome.Reason)
	}
	return reconcile.Creation{ExternalID: outcome.ID, Message: outcome.Status + ":" + outcome.ID}, nil
}

// UploadReport pushes a whole report. CSV reports are converted to XLSX first.
func (c *Client) UploadReport(ctx context.Context, path string) ([]RowOutcome, error) {
	name := filepath.Base(path)
	var data []byte
	switch constants.NormalizeExt(filepath.Ext(path)) {
	case constants.FormatXLSX:
		raw, err := os.ReadFile(path)
		if err != nil {
			return nil, common.WrapError(err, "read report")
		}
		data = raw
	default:
		t, err := report.ReadTable(path)
		if err != nil {
			return nil, err
		}
		rows := make([][]string, len(t.Rows))
		for i, r := range t.Rows {
			rows[i] = r.Cells
		}
		if data, err = Workbook(t.Header, rows); err != nil {
			return nil, err
		}
		name = strings.TrimSuffix(name, filepath.Ext(name)) + ".xlsx"
	}

	outcomes, err := c.UploadBulkList(ctx, name, data)
	if err != nil {
		return nil, err
	}
	failed := 0
	for _, o := range outcomes {
		if !o.OK() {
			failed++
			c.logger.Warn("wav.upload.row_failed", "file", name, "row", o.Row, "reason", o.Reason)
		}
	}
	c.logger.Info("wav.report.uploaded", "file", name, "rows", len(outcomes), "failed", failed)
	return outcomes, nil
}

func safeName(s string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return "unknown"
	}
	return strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_':
			return r
		}
		return '_'
	}, s)
}

