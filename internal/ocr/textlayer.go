package ocr

import (
	"bytes"
	"fmt"
	"io"
	"strings"

	"github.com/ledongthuc/pdf"
	"github.com/pdfcpu/pdfcpu/pkg/api"
)

// PageCount returns the number of pages in a PDF.
func PageCount(data []byte) (n int, err error) {
	defer recoverInto(&err)

	if len(data) == 0 {
		return 0, fmt.Errorf("empty document")
	}
	return api.PageCount(bytes.NewReader(data), nil)
}

// TextLayer returns the embedded text of a PDF without rendering it.
// Scanned documents return an empty string.
func TextLayer(data []byte) (text string, err error) {
	defer recoverInto(&err)

	r, err := open(data)
	if err != nil {
		return "", err
	}
	plain, err := r.GetPlainText()
	if err != nil {
		return "", err
	}
	var b bytes.Buffer
	if _, err := io.Copy(&b, plain); err != nil {
		return "", err
	}
	return b.String(), nil
}

// PageTexts returns the embedded text of each page, in page order.
func PageTexts(data []byte) (texts []string, err error) {
	defer recoverInto(&err)

	r, err := open(data)
	if err != nil {
		return nil, err
	}
	n := r.NumPage()
	texts = make([]string, 0, n)
	for i := 1; i <= n; i++ {
		p := r.Page(i)
		if p.V.IsNull() {
			texts = append(texts, "")
			continue
		}
		txt, err := p.GetPlainText(nil)
		if err != nil {
			return nil, fmt.Errorf("page %d: %w", i, err)
		}
		texts = append(texts, strings.TrimSpace(txt))
	}
	return texts, nil
}

func open(data []byte) (*pdf.Reader, error) {
	if len(data) == 0 {
		return nil, fmt.Errorf("empty document")
	}
	return pdf.NewReader(bytes.NewReader(data), int64(len(data)))
}

// both pdf readers can panic on malformed input
func recoverInto(err *error) {
	if r := recover(); r != nil {
		*err = fmt.Errorf("malformed pdf: %v", r)
	}
}
