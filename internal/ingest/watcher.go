// Package ingest notices input spreadsheets dropped into the daemon's inbox.
package ingest

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/joseph-ayodele/orderbridge/constants"
)

type WatchConfig struct {
	Dir         string        // inbox directory; subdirectories are not watched
	InitialScan bool          // if true, emit files already present
	Debounce    time.Duration // coalesce the write bursts of one copy
}

// Watch emits the path of every CSV or XLSX file created or written in
// cfg.Dir. Both channels close when ctx ends.
func Watch(ctx context.Context, cfg WatchConfig, logger *slog.Logger) (<-chan string, <-chan error, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.Dir == "" {
		return nil, nil, errors.New("no inbox directory provided")
	}

	w, err := fsnotify.NewWatcher()
	if err != nil {
		logger.Error("ingest.watch.failed", "error", err)
		return nil, nil, err
	}
	if err := w.Add(cfg.Dir); err != nil {
		_ = w.Close()
		logger.Error("ingest.watch.failed", "dir", cfg.Dir, "error", err)
		return nil, nil, err
	}

	var initial []string
	if cfg.InitialScan {
		entries, err := os.ReadDir(cfg.Dir)
		if err != nil {
			_ = w.Close()
			return nil, nil, err
		}
		for _, e := range entries {
			if p := filepath.Join(cfg.Dir, e.Name()); !e.IsDir() && Allowed(p) {
				initial = append(initial, p)
			}
		}
	}

	evCh := make(chan string, 64)
	errCh := make(chan error, 1)

	go func() {
		defer close(evCh)
		defer close(errCh)
		defer func() {
			if err := w.Close(); err != nil {
				logger.Warn("ingest.watch.close_failed", "error", err)
			}
		}()

		send := func(p string) bool {
			select {
			case evCh <- p:
				return true
			case <-ctx.Done():
				return false
			}
		}
		for _, p := range initial {
			if !send(p) {
				return
			}
		}

		var (
			timer   *time.Timer
			flush   <-chan time.Time
			pending = map[string]struct{}{}
		)
		sendPending := func() bool {
			for p := range pending {
				delete(pending, p)
				if !send(p) {
					return false
				}
			}
			return true
		}

		for {
			select {
			case <-ctx.Done():
				return
			case e, ok := <-w.Events:
				if !ok {
					return
				}
				if !Allowed(e.Name) || e.Op&(fsnotify.Create|fsnotify.Write) == 0 {
					continue
				}
				pending[e.Name] = struct{}{}
				if cfg.Debounce <= 0 {
					if !sendPending() {
						return
					}
					continue
				}
				if timer != nil {
					timer.Stop()
				}
				timer = time.NewTimer(cfg.Debounce)
				flush = timer.C
			case <-flush:
				flush = nil
				if !sendPending() {
					return
				}
			case err, ok := <-w.Errors:
				if !ok {
					return
				}
				logger.Error("ingest.watch.error", "error", err)
				select {
				case errCh <- err:
				default:
				}
			}
		}
	}()

	return evCh, errCh, nil
}

// Allowed reports whether path names an input spreadsheet. Hidden files and
// office lock files ("~$x.xlsx") are not inputs.
func Allowed(path string) bool {
	name := filepath.Base(path)
	if strings.HasPrefix(name, ".") || strings.HasPrefix(name, "~$") {
		return false
	}
	return constants.IsTabular(filepath.Ext(name))
}
