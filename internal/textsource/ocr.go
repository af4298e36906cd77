package textsource

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strconv"

	"github.com/avast/retry-go/v4"
	"golang.org/x/sync/errgroup"

	"certverify/internal/arabic"
	"certverify/internal/certificate"
	"certverify/pkg/platform/sentinel"
)

type ocrFunc func(ctx context.Context) ([]certificate.TextLine, float64, error)

// guardedOCR runs fn behind the circuit breaker. While the breaker is open
// OCR is skipped and reported as unavailable.
func (a *Acquirer) guardedOCR(ctx context.Context, fn ocrFunc) ([]certificate.TextLine, float64, error) {
	if !a.breaker.Allow() {
		return nil, 0, fmt.Errorf("ocr unavailable: %w", sentinel.ErrUnavailable)
	}
	lines, conf, err := fn(ctx)
	if err != nil {
		if ctx.Err() == nil {
			if _, change := a.breaker.RecordFailure(); change.Opened {
				a.logger.WarnContext(ctx, "ocr circuit opened", "breaker", a.breaker.Name(), "error", err)
			}
		}
		return nil, 0, err
	}
	if _, change := a.breaker.RecordSuccess(); change.Closed {
		a.logger.InfoContext(ctx, "ocr circuit closed", "breaker", a.breaker.Name())
	}
	return lines, conf, nil
}

// withRetry retries transient tool failures; cancellation is never retried.
func (a *Acquirer) withRetry(ctx context.Context, fn func() error) error {
	return retry.Do(fn,
		retry.Context(ctx),
		retry.Attempts(a.cfg.RetryAttempts),
		retry.Delay(a.cfg.RetryDelay),
		retry.LastErrorOnly(true),
		retry.RetryIf(func(err error) bool {
			return ctx.Err() == nil && !errors.Is(err, sentinel.ErrNoText)
		}),
		retry.OnRetry(func(n uint, err error) {
			a.logger.WarnContext(ctx, "retrying ocr step", "attempt", n+1, "error", err)
		}),
	)
}

// ocrPDF rasterizes the PDF and OCRs every page, a bounded number at a time.
// Lines come back in page order.
func (a *Acquirer) ocrPDF(ctx context.Context, path string) ([]certificate.TextLine, float64, error) {
	return a.guardedOCR(ctx, func(ctx context.Context) ([]certificate.TextLine, float64, error) {
		dir, err := os.MkdirTemp(a.cfg.WorkDir, "certverify-ocr-*")
		if err != nil {
			return nil, 0, fmt.Errorf("create ocr workdir: %w", err)
		}
		defer os.RemoveAll(dir)

		var images []string
		err = a.withRetry(ctx, func() error {
			images, err = a.rasterize(ctx, path, dir)
			return err
		})
		if err != nil {
			return nil, 0, err
		}

		perPage := make([][]certificate.TextLine, len(images))
		confs := make([]float64, len(images))
		g, gctx := errgroup.WithContext(ctx)
		g.SetLimit(a.cfg.Concurrency)
		for i, img := range images {
			g.Go(func() error {
				return a.withRetry(gctx, func() error {
					lines, conf, err := a.tesseract(gctx, img, i)
					if err != nil {
						return err
					}
					perPage[i], confs[i] = lines, conf
					return nil
				})
			})
		}
		if err := g.Wait(); err != nil {
			return nil, 0, err
		}

		var lines []certificate.TextLine
		var confSum float64
		var confN int
		for i, page := range perPage {
			lines = append(lines, page...)
			if len(page) > 0 {
				confSum += confs[i]
				confN++
			}
		}
		for i := range lines {
			lines[i].Index = i
		}
		var conf float64
		if confN > 0 {
			conf = confSum / float64(confN)
		}
		return lines, conf, nil
	})
}

// rasterize renders up to MaxPages pages to PNG files in dir and returns
// their paths in page order.
func (a *Acquirer) rasterize(ctx context.Context, path, dir string) ([]string, error) {
	prefix := filepath.Join(dir, "page")
	_, stderr, err := a.runner.Run(ctx, a.cfg.PDFToPPM,
		"-r", strconv.Itoa(a.cfg.DPI),
		"-png",
		"-f", "1",
		"-l", strconv.Itoa(a.cfg.MaxPages),
		path,
		prefix,
	)
	if err != nil {
		return nil, toolError(a.cfg.PDFToPPM, err, stderr)
	}
	images, err := filepath.Glob(prefix + "-*.png")
	if err != nil {
		return nil, err
	}
	if len(images) == 0 {
		return nil, fmt.Errorf("%s rendered no pages", a.cfg.PDFToPPM)
	}
	// pdftoppm zero-pads page numbers to a common width.
	slices.Sort(images)
	return images, nil
}

// tesseract OCRs one image. page is the zero-based page the image came from.
func (a *Acquirer) tesseract(ctx context.Context, image string, page int) ([]certificate.TextLine, float64, error) {
	stdout, stderr, err := a.runner.Run(ctx, a.cfg.Tesseract, image, "stdout", "-l", a.cfg.Languages, "tsv")
	if err != nil {
		return nil, 0, toolError(a.cfg.Tesseract, err, stderr)
	}
	lines, conf := ParseTSV(stdout, page)
	repairReversedLines(lines)
	return lines, conf, nil
}

// repairReversedLines fixes visually ordered Arabic when reversed label
// hints dominate the page.
func repairReversedLines(lines []certificate.TextLine) {
	if !arabic.LooksReversed(certificate.TextDocument{Lines: lines}.Joined()) {
		return
	}
	for i := range lines {
		lines[i].Content = arabic.FixReversed(lines[i].Content)
	}
}
