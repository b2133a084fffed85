// Package app wires configuration into a ready pipeline runner for the
// command-line tool and the daemon.
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/joseph-ayodele/orderbridge/constants"
	"github.com/joseph-ayodele/orderbridge/internal/common"
	"github.com/joseph-ayodele/orderbridge/internal/da"
	"github.com/joseph-ayodele/orderbridge/internal/docai"
	"github.com/joseph-ayodele/orderbridge/internal/extract"
	"github.com/joseph-ayodele/orderbridge/internal/ledger"
	"github.com/joseph-ayodele/orderbridge/internal/mapper"
	"github.com/joseph-ayodele/orderbridge/internal/normalize"
	"github.com/joseph-ayodele/orderbridge/internal/ocr"
	"github.com/joseph-ayodele/orderbridge/internal/pipeline"
	"github.com/joseph-ayodele/orderbridge/internal/reconcile"
	"github.com/joseph-ayodele/orderbridge/internal/report"
	"github.com/joseph-ayodele/orderbridge/internal/storage"
	"github.com/joseph-ayodele/orderbridge/internal/wav"
)

// Options select what a run does beyond the configured defaults.
type Options struct {
	Kind        constants.RecordKind
	DryRun      bool
	PublishWAV  bool
	PublishBlob bool
}

// App holds the collaborators of one process. Close releases them.
type App struct {
	Config *common.Config
	Kind   constants.RecordKind
	Ledger ledger.Store
	DA     *da.Client
	WAV    *wav.Client
	Store  *storage.Store
	Runner *pipeline.Runner
	Logger *slog.Logger
}

// Build validates cfg and connects every collaborator the run needs. Any
// failure here is fatal to the run.
func Build(ctx context.Context, cfg *common.Config, opts Options, logger *slog.Logger) (*App, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	kind := opts.Kind
	if kind == "" {
		k, ok := constants.ParseKind(cfg.Run.Kind)
		if !ok {
			return nil, common.NewAppError(common.CodeConfig, "unknown run kind "+cfg.Run.Kind, common.ErrInvalidInput)
		}
		kind = k
	}
	if err := reconcile.CheckRequired(cfg.Run.RequiredFields); err != nil {
		return nil, err
	}

	a := &App{Config: cfg, Kind: kind, Logger: logger}

	daClient, err := da.NewClient(ctx, cfg.DA, logger.With("system", "da"))
	if err != nil {
		return nil, err
	}
	a.DA = daClient

	if cfg.WAV.BaseURL != "" || kind == constants.KindOrder || opts.PublishWAV {
		if a.WAV, err = wav.NewClient(cfg.WAV, logger.With("system", "wav")); err != nil {
			return nil, err
		}
	}
	if opts.PublishBlob {
		if a.Store, err = storage.New(cfg.Storage, logger); err != nil {
			return nil, err
		}
	}

	var analyzer extract.Analyzer
	if cfg.DocAI.Enabled() {
		client, err := docai.NewClient(cfg.DocAI, logger.With("system", "docai"))
		if err != nil {
			return nil, err
		}
		analyzer = client
	}

	store, err := ledger.Open(ctx, cfg.Ledger, logger.With("system", "ledger"))
	if err != nil {
		return nil, err
	}
	a.Ledger = store

	var creator reconcile.Creator
	switch {
	case opts.DryRun:
	case kind == constants.KindOrder:
		creator = a.WAV.Orders()
	default:
		creator = a.DA
	}
	rec := reconcile.NewReconciler(kind, creator, store, logger, reconcile.WithRequired(cfg.Run.RequiredFields...))

	text := extract.NewOCRAdapter(ocr.NewExtractor(cfg.OCR, logger), logger)
	proc := pipeline.NewProcessor(logger, a.DA, text, analyzer, extract.NewExtractor(extract.DefaultRules(), logger), mapper.NewMapper(logger), rec)
	a.Runner = pipeline.NewRunner(proc, logger, a.publishers(opts)...)
	return a, nil
}

func (a *App) publishers(opts Options) []pipeline.Publisher {
	var out []pipeline.Publisher
	if opts.PublishBlob && a.Store != nil {
		out = append(out, pipeline.PublishFunc(func(ctx context.Context, path string) error {
			_, err := a.Store.UploadReport(ctx, path)
			return err
		}))
	}
	if opts.PublishWAV && a.WAV != nil {
		out = append(out, pipeline.PublishFunc(func(ctx context.Context, path string) error {
			_, err := a.WAV.UploadReport(ctx, path)
			return err
		}))
	}
	return out
}

// RunOptions fills per-run settings from the configuration.
func (a *App) RunOptions(helperID, format string, from, to time.Time) pipeline.Options {
	if helperID == "" {
		helperID = a.Config.Run.HelperID
	}
	if format == "" {
		format = a.Config.Run.ReportFormat
	}
	prefix := a.Config.Run.ReportPrefix
	if prefix == "" {
		prefix = string(a.Kind)
	} else {
		prefix += "_" + string(a.Kind)
	}
	return pipeline.Options{
		HelperID:          helperID,
		From:              from,
		To:                to,
		DateColumn:        a.Config.Run.DateColumn,
		ServiceLineColumn: a.Config.Run.ServiceLine,
		Report: report.Options{
			Dir:    a.Config.Run.ReportDir,
			Prefix: prefix,
			Format: format,
		},
	}
}

func (a *App) Close() error {
	if a.Ledger == nil {
		return nil
	}
	return a.Ledger.Close()
}

// ParseWindow parses the optional --from/--to bounds. Either may be blank.
func ParseWindow(from, to string) (time.Time, time.Time, error) {
	var f, t time.Time
	var errs []error
	if s := strings.TrimSpace(from); s != "" {
		v, err := normalize.ParseDate(s)
		if err != nil {
			errs = append(errs, fmt.Errorf("from %q: %w", s, err))
		}
		f = v
	}
	if s := strings.TrimSpace(to); s != "" {
		v, err := normalize.ParseDate(s)
		if err != nil {
			errs = append(errs, fmt.Errorf("to %q: %w", s, err))
		}
		t = v
	}
	if err := errors.Join(errs...); err != nil {
		return time.Time{}, time.Time{}, common.NewAppError(common.CodeValidation, "invalid date window", err)
	}
	if !f.IsZero() && !t.IsZero() && t.Before(f) {
		return time.Time{}, time.Time{}, common.NewAppError(common.CodeValidation, "to date is before from date", common.ErrInvalidInput)
	}
	return f, t, nil
}
