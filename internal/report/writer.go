package report

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/joseph-ayodele/orderbridge/constants"
	"github.com/joseph-ayodele/orderbridge/internal/common"
	"github.com/joseph-ayodele/orderbridge/internal/entity"
)

// TimestampLayout is the time part of report file names.
const TimestampLayout = "2006-01-02_15-04-05"

// Derived report columns after the canonical fields.
const (
	ColStatus      = "creation_status"
	ColMessage     = "creation_message"
	ColErrorKind   = "error_kind"
	ColProcessedAt = "processed_at"
)

// DerivedColumns returns the headers appended after the input columns.
func DerivedColumns() []string {
	cols := make([]string, 0, len(constants.Fields())+4)
	for _, f := range constants.Fields() {
		cols = append(cols, f.Column())
	}
	return append(cols, ColStatus, ColMessage, ColErrorKind, ColProcessedAt)
}

// Writer appends one result row at a time and makes each row durable
// before returning.
type Writer interface {
	WriteRow(input []string, res entity.ReconciliationResult) error
	Path() string
	Close() error
}

// Options selects where and how a report is written.
type Options struct {
	Dir    string
	Prefix string
	Format string // csv | xlsx
	Header []string
	Now    time.Time
}

// Open creates a new report file named <prefix>_<timestamp>.<ext>. An
// existing file is never overwritten; a numeric suffix is added instead.
func Open(opts Options, logger *slog.Logger) (Writer, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if opts.Now.IsZero() {
		opts.Now = time.Now()
	}
	if opts.Prefix == "" {
		opts.Prefix = "report"
	}
	if err := os.MkdirAll(opts.Dir, 0o755); err != nil {
		return nil, common.NewAppError(common.CodeConfig, "create report directory", err)
	}

	header := append(append([]string{}, opts.Header...), DerivedColumns()...)
	var (
		w   Writer
		err error
	)
	switch constants.NormalizeExt(opts.Format) {
	case constants.FormatCSV:
		w, err = openCSV(opts, header)
	case constants.FormatXLSX:
		w, err = openXLSX(opts, header)
	default:
		return nil, common.NewAppError(common.CodeConfig, fmt.Sprintf("unsupported report format %q", opts.Format), common.ErrInvalidInput)
	}
	if err != nil {
		return nil, common.NewAppError(common.CodeConfig, "open report", err)
	}
	logger.Info("report.open", "path", w.Path(), "columns", len(header))
	return w, nil
}

// FileName returns the report name for a given attempt; attempt 0 has no suffix.
func FileName(prefix, ext string, now time.Time, attempt int) string {
	if attempt == 0 {
		return fmt.Sprintf("%s_%s.%s", prefix, now.Format(TimestampLayout), ext)
	}
	return fmt.Sprintf("%s_%s_%d.%s", prefix, now.Format(TimestampLayout), attempt+1, ext)
}

// claim creates a new, empty file that did not exist before.
func claim(opts Options, ext string) (*os.File, error) {
	for attempt := 0; attempt < 100; attempt++ {
		path := filepath.Join(opts.Dir, FileName(opts.Prefix, ext, opts.Now, attempt))
		f, err := os.OpenFile(path, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o644)
		if err == nil {
			return f, nil
		}
		if !os.IsExist(err) {
			return nil, err
		}
	}
	return nil, fmt.Errorf("no free report name for prefix %q", opts.Prefix)
}

// Values renders the input cells padded to width followed by the derived columns.
func Values(input []string, width int, res entity.ReconciliationResult) []string {
	if width < len(input) {
		width = len(input)
	}
	out := make([]string, width, width+len(constants.Fields())+4)
	copy(out, input)
	rec := res.Record()
	for _, f := range constants.Fields() {
		out = append(out, rec.Get(f))
	}
	processed := ""
	if !res.DecidedAt().IsZero() {
		processed = res.DecidedAt().Format(time.RFC3339)
	}
	return append(out, string(res.Status()), res.Message(), string(res.ErrorKind()), processed)
}
