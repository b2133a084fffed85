package ocr

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"

	"github.com/pdfcpu/pdfcpu/pkg/api"

	"github.com/joseph-ayodele/orderbridge/internal/common"
)

var (
	rePageOf  = regexp.MustCompile(`(?i)Page\s*(\d+)\s*of\s*(\d+)`)
	reOrderNo = regexp.MustCompile(`(?i)Order\s*#\s*:?\s*(\d+)`)
)

// Part is one document cut out of a bulk PDF. Pages are 1-based and inclusive.
type Part struct {
	Name        string
	Path        string
	From, To    int
	OrderNumber string
}

// Splitter cuts bulk order PDFs into one file per order.
type Splitter struct {
	logger *slog.Logger
}

func NewSplitter(logger *slog.Logger) *Splitter {
	if logger == nil {
		logger = slog.Default()
	}
	return &Splitter{logger: logger}
}

// Split writes one PDF per order into outDir. Each part is named after the
// first known order number found in its text, or Order_<n> otherwise.
func (s *Splitter) Split(ctx context.Context, data []byte, outDir string, orders []string) ([]Part, error) {
	texts, err := PageTexts(data)
	if err != nil {
		return nil, common.WrapError(common.ErrDocumentUnreadable, err.Error())
	}
	if err := os.MkdirAll(outDir, 0o755); err != nil {
		return nil, common.NewAppError(common.CodeConfig, "create split directory", err)
	}

	used := make(map[string]int)
	var parts []Part
	for i, g := range Boundaries(texts) {
		if err := ctx.Err(); err != nil {
			return parts, err
		}
		text := strings.Join(texts[g[0]-1:g[1]], "\n")
		order := OrderFor(text, orders)

		base := order
		if base == "" {
			base = fmt.Sprintf("Order_%d", i+1)
		}
		name := base
		if n := used[base]; n > 0 {
			name = fmt.Sprintf("%s_%d", base, n+1)
		}
		used[base]++

		var buf bytes.Buffer
		sel := []string{fmt.Sprintf("%d-%d", g[0], g[1])}
		if err := api.Trim(bytes.NewReader(data), &buf, sel, nil); err != nil {
			return parts, fmt.Errorf("trim pages %s: %w", sel[0], err)
		}
		path := filepath.Join(outDir, name+".pdf")
		if err := os.WriteFile(path, buf.Bytes(), 0o644); err != nil {
			return parts, fmt.Errorf("write %s: %w", path, err)
		}

		p := Part{Name: name, Path: path, From: g[0], To: g[1], OrderNumber: order}
		parts = append(parts, p)
		s.logger.Info("ocr.split.part",
			"name", p.Name,
			"from", p.From,
			"to", p.To,
			"order_number", p.OrderNumber,
		)
	}
	return parts, nil
}

// Boundaries groups pages into documents. A document ends on the page whose
// footer reads "Page N of N"; pages after the last such footer form a final
// document of their own.
func Boundaries(pageTexts []string) [][2]int {
	var out [][2]int
	start := 1
	for i, txt := range pageTexts {
		page := i + 1
		if isLastPage(txt) {
			out = append(out, [2]int{start, page})
			start = page + 1
		}
	}
	if start <= len(pageTexts) {
		out = append(out, [2]int{start, len(pageTexts)})
	}
	return out
}

func isLastPage(txt string) bool {
	flat := strings.ReplaceAll(txt, "\n", " ")
	for _, m := range rePageOf.FindAllStringSubmatch(flat, -1) {
		n, err1 := strconv.Atoi(m[1])
		total, err2 := strconv.Atoi(m[2])
		if err1 == nil && err2 == nil && n > 0 && n == total {
			return true
		}
	}
	return false
}

// OrderFor returns the first of orders that appears in text. With no known
// orders it falls back to an "Order #" label in the text.
func OrderFor(text string, orders []string) string {
	for _, o := range orders {
		o = strings.TrimSpace(o)
		if o != "" && strings.Contains(text, o) {
			return o
		}
	}
	if len(orders) > 0 {
		return ""
	}
	if m := reOrderNo.FindStringSubmatch(text); m != nil {
		return m[1]
	}
	return ""
}
