package extract

import (
	"bytes"
	"context"
	"fmt"
	"strings"

	"github.com/chainguard-dev/clog"
	"github.com/ledongthuc/pdf"
)

// pageSource is the slice of a PDF reader the extractor needs. Pages are 1-based.
type pageSource interface {
	NumPage() int
	PageText(n int) (string, error)
}

type pdfSource struct {
	r *pdf.Reader
}

func (s pdfSource) NumPage() int { return s.r.NumPage() }

func (s pdfSource) PageText(n int) (string, error) {
	p := s.r.Page(n)
	if p.V.IsNull() {
		return "", nil
	}
	return p.GetPlainText(nil)
}

// openPDF parses the document container. The pdf package panics on some
// malformed inputs, so panics are reported as errors.
func openPDF(data []byte) (src pageSource, err error) {
	defer func() {
		if r := recover(); r != nil {
			src, err = nil, fmt.Errorf("parse pdf: %v", r)
		}
	}()
	r, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, fmt.Errorf("parse pdf: %w", err)
	}
	return pdfSource{r: r}, nil
}

// pagesText joins the text of at most maxPages pages with newlines.
// A page that fails contributes an empty string.
func pagesText(ctx context.Context, src pageSource, maxPages int) (string, int) {
	n := min(src.NumPage(), maxPages)
	if n < 0 {
		n = 0
	}
	parts := make([]string, 0, n)
	for i := 1; i <= n; i++ {
		text, err := safePageText(src, i)
		if err != nil {
			clog.FromContext(ctx).Warn("extract.pdf.page_failed", "page", i, "error", err)
			text = ""
		}
		parts = append(parts, text)
	}
	return strings.Join(parts, "\n"), n
}

func safePageText(src pageSource, n int) (text string, err error) {
	defer func() {
		if r := recover(); r != nil {
			text, err = "", fmt.Errorf("page %d: %v", n, r)
		}
	}()
	return src.PageText(n)
}
