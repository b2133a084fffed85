package extract

import (
	"context"
	"log/slog"

	"github.com/joseph-ayodele/orderbridge/internal/ocr"
)

type OCRAdapter struct {
	e *ocr.Extractor
}

func NewOCRAdapter(e *ocr.Extractor, _ *slog.Logger) *OCRAdapter {
	return &OCRAdapter{e: e}
}

func (a *OCRAdapter) Extract(ctx context.Context, docID string, pdf []byte) (TextExtractionResult, error) {
	r, err := a.e.Extract(ctx, docID, pdf)
	return TextExtractionResult{
		Text:     r.Text,
		Pages:    r.Pages,
		Method:   r.Method,
		Duration: r.Duration,
		Warnings: r.Warnings,
	}, err
}
