package pipeline

import (
	"context"
	"log/slog"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/joseph-ayodele/orderbridge/constants"
	"github.com/joseph-ayodele/orderbridge/internal/common"
	"github.com/joseph-ayodele/orderbridge/internal/entity"
	"github.com/joseph-ayodele/orderbridge/internal/normalize"
	"github.com/joseph-ayodele/orderbridge/internal/report"
)

// Messages written for rows that never reach the processor.
const (
	MsgNoDocID        = "No document id"
	MsgOutOfRange     = "Outside the run's date range"
	MsgUndatedInRange = "No parseable date for the run's date range"
)

// AttributeColumns maps record attributes to the input headers they are
// read from, in lookup order.
var AttributeColumns = map[string][]string{
	entity.AttrServiceLine:     {"Service Line", "ServiceLine", "Line of Service"},
	entity.AttrSex:             {"Sex", "Gender"},
	entity.AttrPayor:           {"Payor", "Pay Source", "Payer"},
	entity.AttrInsuranceNumber: {"Insurance Number", "HI Claim", "HIC"},
}

// Options are the per-run settings.
type Options struct {
	HelperID          string
	From, To          time.Time // zero bounds are open
	DateColumn        string
	ServiceLineColumn string
	Report            report.Options
}

// Summary counts outcomes of one run.
type Summary struct {
	RunID         string
	Total         int
	Created       int
	AlreadyExists int
	Failed        int
	Skipped       int
	LowConfidence int
	WriteErrors   int
	ReportPath    string
}

func (s *Summary) add(status constants.ResultStatus) {
	switch status {
	case constants.StatusCreated:
		s.Created++
	case constants.StatusAlreadyExists:
		s.AlreadyExists++
	case constants.StatusFailed:
		s.Failed++
	case constants.StatusSkipped:
		s.Skipped++
	case constants.StatusLowConfidence:
		s.LowConfidence++
	}
}

// Publisher receives the finished report, e.g. an artifact store or the
// bulk-list backend.
type Publisher interface {
	Publish(ctx context.Context, path string) error
}

// PublishFunc adapts a function to Publisher.
type PublishFunc func(ctx context.Context, path string) error

func (f PublishFunc) Publish(ctx context.Context, path string) error { return f(ctx, path) }

// Runner walks an input table sequentially and writes one report row per
// input row.
type Runner struct {
	Processor  *Processor
	Publishers []Publisher
	Logger     *slog.Logger
}

func NewRunner(p *Processor, logger *slog.Logger, publishers ...Publisher) *Runner {
	if logger == nil {
		logger = slog.Default()
	}
	return &Runner{Processor: p, Publishers: publishers, Logger: logger}
}

// Run processes every row of t. Failing to open the report is fatal; a
// failed row write is counted and the run continues. A cancelled context
// stops the run after the current row.
func (r *Runner) Run(ctx context.Context, t *report.Table, opts Options) (Summary, error) {
	sum := Summary{RunID: uuid.New().String()}
	ctx = common.WithRunID(ctx, sum.RunID)
	if opts.HelperID != "" {
		ctx = common.WithHelperID(ctx, opts.HelperID)
	}

	ropts := opts.Report
	ropts.Header = t.Header
	w, err := report.Open(ropts, r.Logger)
	if err != nil {
		r.Logger.Error("pipeline.run.report_open_failed", "run_id", sum.RunID, "error", err)
		return sum, err
	}
	sum.ReportPath = w.Path()
	r.Logger.Info("pipeline.run.start", "run_id", sum.RunID, "rows", len(t.Rows), "report", sum.ReportPath, "helper_id", opts.HelperID)
	start := time.Now()

	dateCol := -1
	if !opts.From.IsZero() || !opts.To.IsZero() {
		dateCol = t.Column(opts.DateColumn)
	}
	attrCols := attributeColumns(t, opts.ServiceLineColumn)
	fieldCols := fieldColumns(t)

	var runErr error
	for _, row := range t.Rows {
		if err := ctx.Err(); err != nil {
			r.Logger.Warn("pipeline.run.cancelled", "run_id", sum.RunID, "processed", sum.Total)
			runErr = err
			break
		}
		sum.Total++

		res := r.processRow(ctx, t, row, opts, dateCol, attrCols, fieldCols)
		sum.add(res.Status())
		if err := w.WriteRow(row.Cells, res); err != nil {
			sum.WriteErrors++
			r.Logger.Error("pipeline.report.write_failed", "run_id", sum.RunID, "row", row.Index, "error", err)
		}
	}
	if err := w.Close(); err != nil {
		r.Logger.Error("pipeline.report.close_failed", "run_id", sum.RunID, "error", err)
		if runErr == nil {
			runErr = common.WrapError(err, "close report")
		}
	}

	r.Logger.Info("pipeline.run.done",
		"run_id", sum.RunID,
		"total", sum.Total,
		"created", sum.Created,
		"already_exists", sum.AlreadyExists,
		"failed", sum.Failed,
		"skipped", sum.Skipped,
		"low_confidence", sum.LowConfidence,
		"write_errors", sum.WriteErrors,
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	if runErr != nil {
		return sum, runErr
	}

	for _, p := range r.Publishers {
		if err := p.Publish(ctx, sum.ReportPath); err != nil {
			r.Logger.Error("pipeline.report.publish_failed", "run_id", sum.RunID, "error", err)
		}
	}
	return sum, nil
}

func (r *Runner) processRow(ctx context.Context, t *report.Table, row report.Row, opts Options, dateCol int, attrCols map[string]int, fieldCols map[constants.Field]int) entity.ReconciliationResult {
	docID := t.DocID(row)
	if docID == "" {
		return entity.NewResult(entity.NewCanonicalRecord(""), constants.StatusSkipped, MsgNoDocID)
	}
	if dateCol >= 0 {
		in, err := normalize.InRange(row.Get(dateCol), opts.From, opts.To)
		if err != nil || normalize.Null(row.Get(dateCol)) == "" {
			r.Logger.Info("pipeline.row.skipped", "doc_id", docID, "reason", "undated")
			return entity.NewResult(entity.NewCanonicalRecord(docID), constants.StatusSkipped, MsgUndatedInRange)
		}
		if !in {
			r.Logger.Info("pipeline.row.skipped", "doc_id", docID, "reason", "out_of_range")
			return entity.NewResult(entity.NewCanonicalRecord(docID), constants.StatusSkipped, MsgOutOfRange)
		}
	}

	attrs := make(map[string]string, len(attrCols)+1)
	for attr, col := range attrCols {
		if v := normalize.Null(row.Get(col)); v != "" {
			attrs[attr] = v
		}
	}
	if opts.HelperID != "" {
		attrs[entity.AttrHelperID] = opts.HelperID
	}
	fields := make(map[constants.Field]string, len(fieldCols))
	for f, col := range fieldCols {
		if v := normalize.Null(row.Get(col)); v != "" {
			fields[f] = v
		}
	}
	return r.Processor.ProcessRow(ctx, Row{DocID: docID, Attributes: attrs, Fields: fields})
}

// fieldColumns finds input headers naming a canonical field. The first
// such column wins per field; the document id column is never one.
func fieldColumns(t *report.Table) map[constants.Field]int {
	docCol := t.Column(report.DocIDColumns...)
	out := make(map[constants.Field]int)
	for i, h := range t.Header {
		if i == docCol {
			continue
		}
		f, ok := report.FieldFor(h)
		if !ok {
			continue
		}
		if _, seen := out[f]; !seen {
			out[f] = i
		}
	}
	return out
}

func attributeColumns(t *report.Table, serviceLineColumn string) map[string]int {
	out := make(map[string]int, len(AttributeColumns))
	for attr, names := range AttributeColumns {
		if attr == entity.AttrServiceLine && serviceLineColumn != "" {
			names = append([]string{serviceLineColumn}, names...)
		}
		if col := t.Column(names...); col >= 0 {
			out[attr] = col
		}
	}
	return out
}

func sortedKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
