package ocr

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os/exec"
	"strings"
	"sync"
	"time"
)

// ErrToolMissing means a command-line tool is not on PATH.
var ErrToolMissing = errors.New("tool not installed")

// Runner runs the poppler and tesseract tools. Tests swap in a stub.
type Runner interface {
	Run(ctx context.Context, name string, args ...string) (stdout, stderr []byte, err error)
}

// execRunner runs real processes. A tool found missing once is not looked
// up again for the life of the runner.
type execRunner struct {
	logger  *slog.Logger
	missing sync.Map
}

func newExecRunner(logger *slog.Logger) *execRunner {
	return &execRunner{logger: logger}
}

func (r *execRunner) Run(ctx context.Context, name string, args ...string) ([]byte, []byte, error) {
	if _, gone := r.missing.Load(name); gone {
		return nil, nil, fmt.Errorf("%w: %s", ErrToolMissing, name)
	}
	if _, err := exec.LookPath(name); err != nil {
		r.missing.Store(name, struct{}{})
		r.logger.Warn("ocr.exec.missing", "cmd", name, "error", err)
		return nil, nil, fmt.Errorf("%w: %s", ErrToolMissing, name)
	}

	start := time.Now()
	cmd := exec.CommandContext(ctx, name, args...)
	var out, errb bytes.Buffer
	cmd.Stdout = &out
	cmd.Stderr = &errb

	err := cmd.Run()
	if err != nil {
		r.logger.Error("ocr.exec.failed",
			"cmd", name,
			"args", strings.Join(args, " "),
			"duration_ms", time.Since(start).Milliseconds(),
			"error", err,
			"stderr", truncate(errb.String(), 8<<10),
		)
		return out.Bytes(), errb.Bytes(), err
	}
	r.logger.Debug("ocr.exec.ok",
		"cmd", name,
		"duration_ms", time.Since(start).Milliseconds(),
		"stdout_bytes", out.Len(),
	)
	return out.Bytes(), errb.Bytes(), nil
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max] + "...(truncated)"
}
