// Package textsource turns an uploaded certificate into ordered text lines.
// PDFs are read through their own text layer when it carries certificate
// fields and are rasterized and OCRed otherwise; images go straight to OCR.
package textsource

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/pdfcpu/pdfcpu/pkg/api"

	"certverify/internal/arabic"
	"certverify/internal/certificate"
	"certverify/pkg/platform/circuit"
	"certverify/pkg/platform/sentinel"
)

// Acquirer reads documents with pdftotext, pdftoppm and tesseract.
type Acquirer struct {
	runner    Runner
	cfg       Config
	logger    *slog.Logger
	breaker   *circuit.Breaker
	pageCount func(path string) (int, error)
}

// Option configures an Acquirer.
type Option func(*Acquirer)

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(a *Acquirer) {
		if logger != nil {
			a.logger = logger
		}
	}
}

// WithBreaker replaces the OCR circuit breaker.
func WithBreaker(b *circuit.Breaker) Option {
	return func(a *Acquirer) {
		if b != nil {
			a.breaker = b
		}
	}
}

// WithPageCounter replaces the pdfcpu page counter.
func WithPageCounter(fn func(path string) (int, error)) Option {
	return func(a *Acquirer) {
		if fn != nil {
			a.pageCount = fn
		}
	}
}

// New builds an Acquirer. A nil runner executes the real binaries.
func New(runner Runner, cfg Config, opts ...Option) *Acquirer {
	a := &Acquirer{
		runner:    runner,
		cfg:       cfg.withDefaults(),
		logger:    slog.Default(),
		pageCount: pdfPageCount,
	}
	for _, opt := range opts {
		opt(a)
	}
	if a.runner == nil {
		a.runner = NewExecRunner(a.logger)
	}
	if a.breaker == nil {
		a.breaker = circuit.New("ocr",
			circuit.WithFailureThreshold(a.cfg.BreakerThreshold),
			circuit.WithCooldown(a.cfg.BreakerCooldown),
		)
	}
	return a
}

// Acquire implements the text source port.
func (a *Acquirer) Acquire(ctx context.Context, doc certificate.Document) (certificate.TextDocument, error) {
	switch doc.Format {
	case certificate.FormatPDF:
		return a.acquirePDF(ctx, doc)
	case certificate.FormatImage:
		return a.acquireImage(ctx, doc)
	}
	return certificate.TextDocument{}, fmt.Errorf("format %q: %w", doc.Format, sentinel.ErrUnsupported)
}

func (a *Acquirer) acquirePDF(ctx context.Context, doc certificate.Document) (certificate.TextDocument, error) {
	var td certificate.TextDocument

	pages, err := a.pageCount(doc.Path)
	if err != nil {
		td.Warnings = append(td.Warnings, "page count unavailable: "+err.Error())
	} else {
		td.Pages = pages
	}

	native, err := a.nativeText(ctx, doc.Path)
	if err != nil {
		if ctx.Err() != nil {
			return certificate.TextDocument{}, ctx.Err()
		}
		td.Warnings = append(td.Warnings, "native text extraction failed: "+err.Error())
	}
	if arabic.LooksReversed(native) {
		native = arabic.FixReversed(native)
		td.Warnings = append(td.Warnings, "reversed arabic repaired in native text")
	}
	nativeLines := certificate.LinesFromText(native, certificate.SourceNative)
	nativeDoc := certificate.TextDocument{Lines: nativeLines}

	if nativeDoc.TextLength() >= a.cfg.MinNativeLength && arabic.HintHits(native) >= a.cfg.MinHintHits {
		td.Lines = nativeLines
		td.Quality = certificate.QualityNativeText
		return td, nil
	}

	ocrLines, conf, ocrErr := a.ocrPDF(ctx, doc.Path)
	if ctx.Err() != nil {
		return certificate.TextDocument{}, ctx.Err()
	}
	td.OCRConfidence = conf
	if td.Pages == 0 {
		td.Pages = pageSpan(ocrLines)
	}

	switch {
	case ocrErr != nil && len(nativeLines) == 0:
		return certificate.TextDocument{}, fmt.Errorf("no native text and ocr failed: %w", ocrErr)
	case ocrErr != nil:
		td.Warnings = append(td.Warnings, "ocr failed, using native text: "+ocrErr.Error())
		td.Lines = nativeLines
		td.Quality = certificate.QualityNativeText
	case len(ocrLines) == 0 && len(nativeLines) == 0:
		return certificate.TextDocument{}, fmt.Errorf("pdf %s: %w", doc.Filename, sentinel.ErrNoText)
	case len(nativeLines) == 0:
		td.Lines = ocrLines
		td.Quality = certificate.QualityOCRFallback
	case len(ocrLines) == 0:
		td.Warnings = append(td.Warnings, "ocr produced no text, using native text")
		td.Lines = nativeLines
		td.Quality = certificate.QualityNativeText
	default:
		td.Lines = mergeLines(nativeLines, ocrLines)
		td.Quality = certificate.QualityMerged
	}
	return td, nil
}

func (a *Acquirer) acquireImage(ctx context.Context, doc certificate.Document) (certificate.TextDocument, error) {
	lines, conf, err := a.guardedOCR(ctx, func(ctx context.Context) ([]certificate.TextLine, float64, error) {
		var lines []certificate.TextLine
		var conf float64
		err := a.withRetry(ctx, func() error {
			var err error
			lines, conf, err = a.tesseract(ctx, doc.Path, 0)
			return err
		})
		return lines, conf, err
	})
	if ctx.Err() != nil {
		return certificate.TextDocument{}, ctx.Err()
	}
	if err != nil {
		return certificate.TextDocument{}, fmt.Errorf("image ocr: %w", err)
	}
	if len(lines) == 0 {
		return certificate.TextDocument{}, fmt.Errorf("image %s: %w", doc.Filename, sentinel.ErrNoText)
	}
	return certificate.TextDocument{
		Lines:         lines,
		Quality:       certificate.QualityImageOCR,
		Pages:         1,
		OCRConfidence: conf,
	}, nil
}

// nativeText runs pdftotext in layout mode and returns its UTF-8 output.
func (a *Acquirer) nativeText(ctx context.Context, path string) (string, error) {
	stdout, stderr, err := a.runner.Run(ctx, a.cfg.PDFToText, "-layout", "-enc", "UTF-8", "-eol", "unix", path, "-")
	if err != nil {
		return "", toolError(a.cfg.PDFToText, err, stderr)
	}
	return string(stdout), nil
}

func pdfPageCount(path string) (int, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, err
	}
	defer f.Close()
	return api.PageCount(f, nil)
}

// mergeLines appends OCR lines after the native ones and renumbers them.
func mergeLines(native, ocr []certificate.TextLine) []certificate.TextLine {
	out := make([]certificate.TextLine, 0, len(native)+len(ocr))
	out = append(out, native...)
	out = append(out, ocr...)
	for i := range out {
		out[i].Index = i
	}
	return out
}

func pageSpan(lines []certificate.TextLine) int {
	pages := 0
	for _, l := range lines {
		if l.Region != nil {
			pages = max(pages, l.Region.Page)
		}
	}
	return pages
}

func toolError(name string, err error, stderr []byte) error {
	msg := strings.TrimSpace(truncate(string(stderr), 512))
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) || msg == "" {
		return fmt.Errorf("%s: %w", name, err)
	}
	return fmt.Errorf("%s: %w: %s", name, err, msg)
}
