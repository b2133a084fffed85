package ocr

import (
	"context"
	"log/slog"
	"os"
	"time"

	"github.com/joseph-ayodele/orderbridge/internal/common"
	"github.com/joseph-ayodele/orderbridge/internal/normalize"
)

// MinTextChars is the shortest normalized text layer accepted before
// falling back to the next strategy.
const MinTextChars = 16

// Methods reported in Result.Method.
const (
	MethodTextLayer = "pdf-text"
	MethodPdftotext = "pdftotext"
	MethodOCR       = "pdf-ocr"
	MethodNone      = "none"
)

type Result struct {
	Text     string
	Pages    int
	Method   string
	Duration time.Duration
	Warnings []string
}

type Extractor struct {
	cfg    common.OCRConfig
	runner Runner
	logger *slog.Logger
}

func NewExtractor(cfg common.OCRConfig, logger *slog.Logger) *Extractor {
	return NewExtractorWithRunner(cfg, nil, logger)
}

// NewExtractorWithRunner is NewExtractor with the external command runner replaced.
func NewExtractorWithRunner(cfg common.OCRConfig, runner Runner, logger *slog.Logger) *Extractor {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.Pdftotext == "" {
		cfg.Pdftotext = "pdftotext"
	}
	if cfg.Pdftoppm == "" {
		cfg.Pdftoppm = "pdftoppm"
	}
	if cfg.Tesseract == "" {
		cfg.Tesseract = "tesseract"
	}
	if cfg.Lang == "" {
		cfg.Lang = "eng"
	}
	if cfg.DPI <= 0 {
		cfg.DPI = 300
	}
	if runner == nil {
		runner = newExecRunner(logger)
	}
	return &Extractor{cfg: cfg, runner: runner, logger: logger}
}

// Extract returns the text of a PDF, trying the embedded text layer first,
// then pdftotext, then rasterize-and-OCR. A document no strategy can read
// yields an empty Result with MethodNone and a nil error; only context
// cancellation is returned as an error.
func (e *Extractor) Extract(ctx context.Context, docID string, data []byte) (res Result, err error) {
	start := time.Now()
	res.Method = MethodNone
	defer func() { res.Duration = time.Since(start) }()

	pages, err := PageCount(data)
	if err != nil {
		res.Warnings = append(res.Warnings, "page count: "+err.Error())
	}
	res.Pages = pages

	if txt, err := TextLayer(data); err != nil {
		res.Warnings = append(res.Warnings, "text layer: "+err.Error())
	} else if usable(txt) {
		res.Text, res.Method = normalize.Text(txt), MethodTextLayer
		e.logged(docID, res)
		return res, nil
	}

	path, cleanup, err := spill(data)
	if err != nil {
		res.Warnings = append(res.Warnings, err.Error())
		return res, nil
	}
	defer cleanup()

	txt, n, warn, err := e.pdfToText(ctx, path)
	res.Warnings = append(res.Warnings, warn...)
	if err == nil && usable(txt) {
		res.Text, res.Method = normalize.Text(txt), MethodPdftotext
		if res.Pages == 0 {
			res.Pages = n
		}
		e.logged(docID, res)
		return res, nil
	}
	if ctx.Err() != nil {
		return res, ctx.Err()
	}

	txt, n, warn, err = e.pdfToOCR(ctx, path)
	res.Warnings = append(res.Warnings, warn...)
	if err != nil {
		res.Warnings = append(res.Warnings, err.Error())
	}
	if ctx.Err() != nil {
		return res, ctx.Err()
	}
	if usable(txt) {
		res.Text, res.Method = normalize.Text(txt), MethodOCR
		if res.Pages == 0 {
			res.Pages = n
		}
	}
	e.logged(docID, res)
	return res, nil
}

func (e *Extractor) logged(docID string, res Result) {
	e.logger.Debug("ocr.extract.done",
		"doc_id", docID,
		"method", res.Method,
		"pages", res.Pages,
		"text_bytes", len(res.Text),
		"warnings", len(res.Warnings),
	)
}

func usable(txt string) bool {
	return len(normalize.Text(txt)) >= MinTextChars
}

// spill writes data to a temp file for the command-line tools.
func spill(data []byte) (string, func(), error) {
	f, err := os.CreateTemp("", "ob-doc-*.pdf")
	if err != nil {
		return "", nil, err
	}
	cleanup := func() { _ = os.Remove(f.Name()) }
	if _, err := f.Write(data); err != nil {
		_ = f.Close()
		cleanup()
		return "", nil, err
	}
	if err := f.Close(); err != nil {
		cleanup()
		return "", nil, err
	}
	return f.Name(), cleanup, nil
}
