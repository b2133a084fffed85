package ocr

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
)

// pageBreak separates pages in extracted text, as pdftotext does.
const pageBreak = "\f"

func (e *Extractor) pdfToText(ctx context.Context, path string) (string, int, []string, error) {
	out, errb, err := e.runner.Run(ctx, e.cfg.Pdftotext, "-layout", "-enc", "UTF-8", "-eol", "unix", path, "-")
	if err != nil {
		return "", 0, []string{"pdftotext: " + strings.TrimSpace(string(errb))}, err
	}
	text := string(out)
	return text, 1 + strings.Count(strings.TrimRight(text, pageBreak), pageBreak), nil, nil
}

// pdfToOCR rasterizes the PDF and OCRs each page image. Pages tesseract
// cannot read are reported as warnings and left out.
func (e *Extractor) pdfToOCR(ctx context.Context, path string) (string, int, []string, error) {
	dir, err := os.MkdirTemp("", "ob-pages-*")
	if err != nil {
		return "", 0, nil, err
	}
	defer func() {
		if err := os.RemoveAll(dir); err != nil {
			e.logger.Warn("ocr.tmp.cleanup_failed", "dir", dir, "error", err)
		}
	}()

	images, warns, err := e.render(ctx, path, dir)
	if err != nil {
		return "", 0, warns, err
	}

	texts := make([]string, 0, len(images))
	for i, img := range images {
		if err := ctx.Err(); err != nil {
			return "", 0, warns, err
		}
		txt, err := e.tesseract(ctx, img)
		if err != nil {
			warns = append(warns, fmt.Sprintf("page %d: %v", i+1, err))
			continue
		}
		texts = append(texts, txt)
	}
	if len(texts) == 0 {
		return "", len(images), warns, errors.New("no page could be read")
	}
	return strings.Join(texts, "\n"+pageBreak+"\n"), len(images), warns, nil
}

// render writes one PNG per page (at most MaxPages) into dir.
func (e *Extractor) render(ctx context.Context, path, dir string) ([]string, []string, error) {
	prefix := filepath.Join(dir, "page")
	args := []string{"-r", strconv.Itoa(e.cfg.DPI), "-png"}
	if e.cfg.MaxPages > 0 {
		args = append(args, "-l", strconv.Itoa(e.cfg.MaxPages))
	}
	args = append(args, path, prefix)

	if _, errb, err := e.runner.Run(ctx, e.cfg.Pdftoppm, args...); err != nil {
		return nil, []string{"pdftoppm: " + strings.TrimSpace(string(errb))}, err
	}

	// pdftoppm pads page numbers to the page count's width, so a plain sort
	// keeps page order
	images, _ := filepath.Glob(prefix + "-*.png")
	sort.Strings(images)
	if e.cfg.MaxPages > 0 && len(images) > e.cfg.MaxPages {
		images = images[:e.cfg.MaxPages]
	}
	if len(images) == 0 {
		return nil, []string{"pdftoppm produced no images"}, errors.New("no pages rendered")
	}
	return images, nil, nil
}

func (e *Extractor) tesseract(ctx context.Context, img string) (string, error) {
	args := []string{img, "stdout", "-l", e.cfg.Lang}
	if e.cfg.TessdataDir != "" {
		args = append(args, "--tessdata-dir", e.cfg.TessdataDir)
	}
	out, errb, err := e.runner.Run(ctx, e.cfg.Tesseract, args...)
	if err != nil {
		if msg := strings.TrimSpace(string(errb)); msg != "" {
			return "", fmt.Errorf("tesseract: %w: %s", err, msg)
		}
		return "", fmt.Errorf("tesseract: %w", err)
	}
	return string(out), nil
}
