package report

import (
	"bytes"
	"encoding/csv"
	"io"
	"os"

	"github.com/joseph-ayodele/orderbridge/constants"
	"github.com/joseph-ayodele/orderbridge/internal/entity"
)

// csvWriter encodes each row on its own so one failed write leaves no
// sticky error behind for the rows after it.
type csvWriter struct {
	f     *os.File
	dst   io.Writer
	width int // input columns
}

func openCSV(opts Options, header []string) (*csvWriter, error) {
	f, err := claim(opts, constants.FormatCSV)
	if err != nil {
		return nil, err
	}
	cw := &csvWriter{f: f, dst: f, width: len(opts.Header)}
	if err := cw.write(header); err != nil {
		_ = f.Close()
		return nil, err
	}
	return cw, nil
}

func (c *csvWriter) WriteRow(input []string, res entity.ReconciliationResult) error {
	return c.write(Values(input, c.width, res))
}

func (c *csvWriter) write(rec []string) error {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	if err := w.Write(rec); err != nil {
		return err
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return err
	}
	if _, err := c.dst.Write(buf.Bytes()); err != nil {
		return err
	}
	return c.f.Sync()
}

func (c *csvWriter) Path() string { return c.f.Name() }

func (c *csvWriter) Close() error { return c.f.Close() }
