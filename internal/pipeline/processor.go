// Package pipeline runs documents through fetch, text extraction, analysis,
// field extraction, mapping and reconciliation, one input row at a time.
package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"runtime/debug"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/joseph-ayodele/orderbridge/constants"
	"github.com/joseph-ayodele/orderbridge/internal/common"
	"github.com/joseph-ayodele/orderbridge/internal/entity"
	"github.com/joseph-ayodele/orderbridge/internal/extract"
	"github.com/joseph-ayodele/orderbridge/internal/mapper"
	"github.com/joseph-ayodele/orderbridge/internal/normalize"
	"github.com/joseph-ayodele/orderbridge/internal/reconcile"
)

const tracerName = "github.com/joseph-ayodele/orderbridge/internal/pipeline"

// Fetcher downloads a source document.
type Fetcher interface {
	Fetch(ctx context.Context, docID string) (entity.RawDocument, error)
}

// Reconciler decides the outcome of one mapped record.
type Reconciler interface {
	Reconcile(ctx context.Context, rec entity.CanonicalRecord) entity.ReconciliationResult
}

var _ Reconciler = (*reconcile.Reconciler)(nil)

// Row is one unit of work: a document id plus what the input row already
// says about it. Fields only fill canonical fields the document left blank.
type Row struct {
	DocID      string
	Attributes map[string]string
	Fields     map[constants.Field]string
}

// Processor coordinates the per-document stages. Analyzer may be nil.
type Processor struct {
	Logger     *slog.Logger
	Fetcher    Fetcher
	Text       extract.TextSource
	Analyzer   extract.Analyzer
	Extractor  *extract.Extractor
	Mapper     *mapper.Mapper
	Reconciler Reconciler
	tracer     trace.Tracer
}

func NewProcessor(logger *slog.Logger, fetcher Fetcher, text extract.TextSource, analyzer extract.Analyzer, extractor *extract.Extractor, m *mapper.Mapper, rec Reconciler) *Processor {
	if logger == nil {
		logger = slog.Default()
	}
	if extractor == nil {
		extractor = extract.NewExtractor(nil, logger)
	}
	if m == nil {
		m = mapper.NewMapper(logger)
	}
	return &Processor{
		Logger:     logger,
		Fetcher:    fetcher,
		Text:       text,
		Analyzer:   analyzer,
		Extractor:  extractor,
		Mapper:     m,
		Reconciler: rec,
		tracer:     otel.Tracer(tracerName),
	}
}

// ProcessRow never returns an error: every failure, panics included, ends
// as a Failed result classified into the error taxonomy.
func (p *Processor) ProcessRow(ctx context.Context, row Row) (res entity.ReconciliationResult) {
	ctx = common.WithDocID(ctx, row.DocID)
	ctx, span := p.tracer.Start(ctx, "pipeline.row", trace.WithAttributes(attribute.String("doc_id", row.DocID)))
	rec := entity.NewCanonicalRecord(row.DocID)

	defer func() {
		if r := recover(); r != nil {
			p.Logger.Error("pipeline.row.panic", "doc_id", row.DocID, "panic", r, "stack", string(debug.Stack()))
			res = entity.NewFailure(rec, fmt.Errorf("panic: %v", r))
		}
		span.SetAttributes(
			attribute.String("status", string(res.Status())),
			attribute.String("error_kind", string(res.ErrorKind())),
		)
		if res.Status() == constants.StatusFailed {
			span.SetStatus(codes.Error, res.Message())
		}
		span.End()
	}()

	fail := func(stage string, err error) entity.ReconciliationResult {
		p.Logger.Warn("pipeline.row.failed", "doc_id", row.DocID, "stage", stage, "error_kind", common.Classify(err), "error", err)
		span.RecordError(err)
		return entity.NewFailure(rec, err)
	}

	doc, err := p.Fetcher.Fetch(ctx, row.DocID)
	if err != nil {
		return fail("fetch", err)
	}

	text, err := p.Text.Extract(ctx, row.DocID, doc.Bytes)
	if err != nil {
		return fail("text", err)
	}
	doc.Text, doc.Pages = text.Text, text.Pages

	var analysis *entity.Analysis
	if p.Analyzer != nil {
		analysis, err = p.Analyzer.Analyze(ctx, row.DocID, doc.Bytes)
		if err != nil {
			// the text layer alone can still carry the row
			if !doc.HasText() || ctx.Err() != nil {
				return fail("analyze", err)
			}
			p.Logger.Warn("pipeline.analyze.skipped", "doc_id", row.DocID, "error", err)
			analysis = nil
		}
	}

	cands, err := p.Extractor.Extract(extract.Input{
		DocID:    row.DocID,
		Text:     doc.Text,
		Analysis: analysis,
	})
	if err != nil {
		return fail("extract", err)
	}
	cands = append(cands, platformCandidates(doc)...)

	mapped, _ := p.Mapper.Map(row.DocID, cands)
	for k, v := range row.Attributes {
		mapped.Attributes[k] = v
	}
	for f, v := range row.Fields {
		if mapped.Fields[f] == "" {
			mapped.Fields[f] = inputValue(f, v)
		}
	}
	// only once every source is merged, so an explicit end always wins
	if mapper.DefaultEpisodeEnd(mapped, mapped.Attr(entity.AttrServiceLine)) {
		p.Logger.Debug("pipeline.episode.defaulted", "doc_id", row.DocID, "episode_end", mapped.Get(constants.EpisodeEnd))
	}
	rec = mapped

	res = p.Reconciler.Reconcile(ctx, rec)
	p.Logger.Info("pipeline.row.done",
		"doc_id", row.DocID,
		"text_method", text.Method,
		"pages", text.Pages,
		"candidates", len(cands),
		"status", res.Status(),
	)
	return res
}

func inputValue(f constants.Field, raw string) string {
	v := normalize.CleanValue(f, raw)
	if f.IsDate() {
		return normalize.DateOrEmpty(v)
	}
	return v
}

// platformCandidates turns values the document platform recorded into
// structured candidates. They rank below document-AI structured fields
// because those are extracted first.
func platformCandidates(doc entity.RawDocument) []entity.Candidate {
	out := make([]entity.Candidate, 0, len(doc.Fields))
	for _, name := range sortedKeys(doc.Fields) {
		out = append(out, entity.Candidate{Key: name, Value: doc.Fields[name], Source: constants.SourceStructured})
	}
	return out
}
