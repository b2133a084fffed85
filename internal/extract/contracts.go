package extract

import (
	"context"
	"time"

	"github.com/joseph-ayodele/orderbridge/internal/entity"
)

// TextSource is stage one: document bytes -> text.
type TextSource interface {
	Extract(ctx context.Context, docID string, pdf []byte) (TextExtractionResult, error)
}

type TextExtractionResult struct {
	Text     string
	Pages    int
	Method   string // "pdf-text" | "pdftotext" | "pdf-ocr" | "none"
	Duration time.Duration
	Warnings []string
}

// Analyzer is the optional document-AI stage: document bytes -> structured output.
type Analyzer interface {
	Analyze(ctx context.Context, docID string, pdf []byte) (*entity.Analysis, error)
}
