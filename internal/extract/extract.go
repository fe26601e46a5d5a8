// Package extract turns uploaded bytes into plain essay text.
package extract

import (
	"bytes"
	"context"
	"path/filepath"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/chainguard-dev/clog"
	"github.com/gabriel-vasile/mimetype"

	"essaygrader/internal/apperrors"
)

// DefaultMaxPages caps how many PDF pages are read.
const DefaultMaxPages = 5

type Format string

const (
	FormatText Format = "text"
	FormatPDF  Format = "pdf"
	FormatHTML Format = "html"
)

// FormatFor picks the extraction strategy from the filename extension.
func FormatFor(filename string) Format {
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".pdf":
		return FormatPDF
	case ".html", ".htm":
		return FormatHTML
	default:
		return FormatText
	}
}

type Config struct {
	MaxPages int // 0 -> DefaultMaxPages
}

type Result struct {
	Text   string
	Format Format
	Pages  int    // pages read, PDF only
	MIME   string // sniffed from content
}

type Extractor struct {
	cfg Config
}

func New(cfg Config) *Extractor {
	if cfg.MaxPages <= 0 {
		cfg.MaxPages = DefaultMaxPages
	}
	return &Extractor{cfg: cfg}
}

// Extract reads text out of data according to the filename extension.
// Only a PDF whose container cannot be parsed fails; text and HTML degrade
// to whatever valid UTF-8 can be recovered.
func (e *Extractor) Extract(ctx context.Context, data []byte, filename string) (Result, error) {
	log := clog.FromContext(ctx)
	format := FormatFor(filename)
	detected := mimetype.Detect(data)

	log.Debug("extract.start", "format", format, "mime", detected.String(), "bytes", len(data))
	if format == FormatPDF && !detected.Is("application/pdf") {
		log.Warn("extract.mime_mismatch", "filename", filename, "mime", detected.String())
	}

	res := Result{Format: format, MIME: detected.String()}
	switch format {
	case FormatPDF:
		src, err := openPDF(data)
		if err != nil {
			log.Warn("extract.pdf.open_failed", "filename", filename, "error", err)
			return Result{}, &apperrors.ExtractionError{Filename: filename, Cause: err}
		}
		res.Text, res.Pages = pagesText(ctx, src, e.cfg.MaxPages)
	case FormatHTML:
		res.Text = htmlText(ctx, data)
	default:
		res.Text = DecodeText(data)
	}

	log.Debug("extract.ok", "format", format, "chars", len(res.Text), "pages", res.Pages)
	return res, nil
}

// DecodeText decodes data as UTF-8, dropping invalid byte sequences.
func DecodeText(data []byte) string {
	return strings.ToValidUTF8(string(data), "")
}

func htmlText(ctx context.Context, data []byte) string {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(data))
	if err != nil {
		clog.FromContext(ctx).Warn("extract.html.parse_failed", "error", err)
		return DecodeText(data)
	}
	doc.Find("script, style, noscript, template").Remove()
	return strings.Join(strings.Fields(DecodeText([]byte(doc.Text()))), " ")
}
