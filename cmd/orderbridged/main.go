package main

import (
	"context"
	"errors"
	"flag"
	"io/fs"
	"log/slog"
	"net"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joseph-ayodele/orderbridge/internal/app"
	"github.com/joseph-ayodele/orderbridge/internal/async"
	"github.com/joseph-ayodele/orderbridge/internal/common"
	"github.com/joseph-ayodele/orderbridge/internal/ingest"
	"github.com/joseph-ayodele/orderbridge/internal/ledger"
	"github.com/joseph-ayodele/orderbridge/internal/report"
	"github.com/joseph-ayodele/orderbridge/internal/server"
	"github.com/joseph-ayodele/orderbridge/internal/telemetry"
)

var version = "dev"

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	configPath := flag.String("config", os.Getenv("ORDERBRIDGE_CONFIG"), "YAML config file")
	publishWAV := flag.Bool("wav", false, "upload each report to the bulk-list backend")
	publishBlob := flag.Bool("blob", false, "copy each report to blob storage")
	flag.Parse()

	cfg, err := common.LoadConfig(*configPath)
	if err != nil {
		logger.Error("config.load.failed", "error", err)
		os.Exit(2)
	}

	if cfg.Server.Interval <= 0 {
		cfg.Server.Interval = 15 * time.Minute
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	shutdownTracing, err := telemetry.Setup(ctx, cfg.Telemetry, version, logger)
	if err != nil {
		logger.Error("telemetry.setup.failed", "error", err)
		os.Exit(1)
	}

	a, err := app.Build(ctx, cfg, app.Options{PublishWAV: *publishWAV, PublishBlob: *publishBlob}, logger)
	if err != nil {
		logger.Error("daemon.setup.failed", "error", err)
		os.Exit(1)
	}
	defer a.Close()

	if err := ledger.HealthCheck(ctx, a.Ledger, 5*time.Second, logger); err != nil {
		logger.Error("ledger.health.failed", "error", err)
		os.Exit(1)
	}
	if err := os.MkdirAll(cfg.Server.InboxDir, 0o755); err != nil {
		logger.Error("daemon.inbox.failed", "dir", cfg.Server.InboxDir, "error", err)
		os.Exit(1)
	}

	lis, err := net.Listen("tcp", cfg.Server.GRPCAddr)
	if err != nil {
		logger.Error("daemon.listen.failed", "addr", cfg.Server.GRPCAddr, "error", err)
		os.Exit(1)
	}
	srv := server.New(logger)
	srv.SetServing(server.ServiceLedger, true)
	srv.SetServing(server.ServicePipeline, true)
	go func() {
		if err := srv.Serve(lis); err != nil {
			logger.Error("daemon.serve.failed", "error", err)
			stop()
		}
	}()

	inbox := app.Inbox{Dir: cfg.Server.InboxDir}
	queue := async.NewRunQueue(func(jctx context.Context, job async.Job) error {
		return runFile(jctx, a, inbox, job.Path, srv)
	}, logger, async.WithProcessTimeout(cfg.Server.Interval*4))

	events, watchErrs, err := ingest.Watch(ctx, ingest.WatchConfig{Dir: inbox.Dir, Debounce: 2 * time.Second}, logger)
	if err != nil {
		logger.Warn("daemon.watch.unavailable", "error", err)
	}

	logger.Info("daemon.started", "inbox", inbox.Dir, "interval", cfg.Server.Interval.String(), "kind", a.Kind)
	tick := time.NewTicker(cfg.Server.Interval)
	defer tick.Stop()
	poll(ctx, a, inbox, queue, srv)
	for {
		select {
		case <-ctx.Done():
			logger.Info("daemon.stopping")
			drain, cancel := context.WithTimeout(context.Background(), time.Minute)
			queue.Shutdown(drain)
			cancel()
			srv.Stop()
			flush, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			if err := shutdownTracing(flush); err != nil {
				logger.Warn("telemetry.shutdown.failed", "error", err)
			}
			cancel()
			return
		case <-tick.C:
			poll(ctx, a, inbox, queue, srv)
		case p, ok := <-events:
			if !ok {
				events = nil
				continue
			}
			if err := queue.Enqueue(ctx, async.Job{Path: p}); err != nil {
				logger.Warn("daemon.enqueue.failed", "path", p, "error", err)
			}
		case err, ok := <-watchErrs:
			if !ok {
				watchErrs = nil
				continue
			}
			logger.Warn("daemon.watch.error", "error", err)
		}
	}
}

// poll checks the ledger and queues every file waiting in the inbox.
func poll(ctx context.Context, a *app.App, inbox app.Inbox, queue async.Queue, srv *server.Server) {
	ledgerOK := ledger.HealthCheck(ctx, a.Ledger, 5*time.Second, a.Logger) == nil
	srv.SetServing(server.ServiceLedger, ledgerOK)
	if !ledgerOK {
		a.Logger.Warn("daemon.poll.skipped", "reason", "ledger unreachable")
		return
	}

	paths, err := inbox.Pending()
	if err != nil {
		a.Logger.Error("daemon.poll.failed", "error", err)
		return
	}
	for _, p := range paths {
		if err := queue.Enqueue(ctx, async.Job{Path: p}); err != nil {
			a.Logger.Warn("daemon.enqueue.failed", "path", p, "error", err)
			return
		}
	}
}

func runFile(ctx context.Context, a *app.App, inbox app.Inbox, path string, srv *server.Server) error {
	if _, err := os.Stat(path); errors.Is(err, fs.ErrNotExist) {
		// already archived by an earlier job for the same file
		return nil
	}
	t, err := report.ReadTable(path)
	if err != nil {
		if _, aerr := inbox.Archive(path, false, time.Now()); aerr != nil {
			a.Logger.Error("daemon.archive.failed", "path", path, "error", aerr)
		}
		return err
	}

	sum, err := a.Runner.Run(ctx, t, a.RunOptions("", "", time.Time{}, time.Time{}))
	srv.SetServing(server.ServicePipeline, err == nil)
	dest, aerr := inbox.Archive(path, err == nil, time.Now())
	if aerr != nil {
		a.Logger.Error("daemon.archive.failed", "path", path, "error", aerr)
	}
	if err != nil {
		return err
	}
	a.Logger.Info("daemon.run.done",
		"input", dest,
		"report", sum.ReportPath,
		"rows", sum.Total,
		"created", sum.Created,
		"failed", sum.Failed,
	)
	return nil
}
