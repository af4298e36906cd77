package textsource

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"certverify/internal/certificate"
	"certverify/internal/platform/config"
	"certverify/pkg/platform/circuit"
	"certverify/pkg/platform/sentinel"
)

type toolFunc func(args []string) ([]byte, error)

// fakeRunner dispatches by binary name and records every call.
type fakeRunner struct {
	mu    sync.Mutex
	tools map[string]toolFunc
	calls map[string][][]string
}

func newFakeRunner() *fakeRunner {
	return &fakeRunner{tools: map[string]toolFunc{}, calls: map[string][][]string{}}
}

func (f *fakeRunner) Run(ctx context.Context, name string, args ...string) ([]byte, []byte, error) {
	f.mu.Lock()
	f.calls[name] = append(f.calls[name], args)
	tool := f.tools[name]
	f.mu.Unlock()
	if err := ctx.Err(); err != nil {
		return nil, nil, err
	}
	if tool == nil {
		return nil, []byte(name + ": not found"), errors.New("exit status 127")
	}
	out, err := tool(args)
	if err != nil {
		return nil, []byte("boom"), err
	}
	return out, nil, nil
}

func (f *fakeRunner) count(name string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.calls[name])
}

// pdftoppm writes n empty page images next to the requested prefix.
func pdftoppm(n int) toolFunc {
	return func(args []string) ([]byte, error) {
		prefix := args[len(args)-1]
		for i := 1; i <= n; i++ {
			name := prefix + "-" + string(rune('0'+i)) + ".png"
			if err := os.WriteFile(name, []byte("png"), 0o600); err != nil {
				return nil, err
			}
		}
		return nil, nil
	}
}

// tesseractPages answers with a different line per rendered page.
func tesseractPages(byPage map[string]string) toolFunc {
	return func(args []string) ([]byte, error) {
		base := filepath.Base(args[0])
		text, ok := byPage[base]
		if !ok {
			return tsv(), nil
		}
		return tsv(tsvWord{1, 1, 1, 1, 100, 100, 400, 90, text}), nil
	}
}

const strongNative = "جامعة القاهرة\nالتخصص: علوم الحاسب\nالمعدل: 3.80\nالاسم: أحمد علي محمود"

func newTestAcquirer(r Runner, cfg Config, opts ...Option) *Acquirer {
	opts = append([]Option{
		WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))),
		WithPageCounter(func(string) (int, error) { return 2, nil }),
	}, opts...)
	cfg.WorkDir = os.TempDir()
	return New(r, cfg, opts...)
}

var pdf = certificate.Document{Path: "/uploads/cert.pdf", Filename: "cert.pdf", Format: certificate.FormatPDF}

func TestAcquireNativeText(t *testing.T) {
	r := newFakeRunner()
	r.tools["pdftotext"] = func(args []string) ([]byte, error) {
		assert.Equal(t, []string{"-layout", "-enc", "UTF-8", "-eol", "unix", pdf.Path, "-"}, args)
		return []byte(strongNative), nil
	}

	td, err := newTestAcquirer(r, DefaultConfig()).Acquire(context.Background(), pdf)
	require.NoError(t, err)

	assert.Equal(t, certificate.QualityNativeText, td.Quality)
	assert.Equal(t, 2, td.Pages)
	assert.Len(t, td.Lines, 4)
	assert.Equal(t, certificate.SourceNative, td.Lines[0].Source)
	assert.Empty(t, td.Warnings)
	assert.Zero(t, r.count("pdftoppm"), "strong native text skips OCR")
}

func TestAcquireRepairsReversedNativeText(t *testing.T) {
	r := newFakeRunner()
	r.tools["pdftotext"] = func([]string) ([]byte, error) {
		return []byte("ةعماجلا: ةرهاقلا\nصصختلا: ةبساحم\nلدعملا: 3.2 ثيح ناك بلاطلا ازيمتم"), nil
	}

	td, err := newTestAcquirer(r, DefaultConfig()).Acquire(context.Background(), pdf)
	require.NoError(t, err)
	assert.Equal(t, "الجامعة: القاهرة", td.Lines[0].Content)
	assert.Contains(t, td.Warnings, "reversed arabic repaired in native text")
}

func TestAcquireFallsBackToOCR(t *testing.T) {
	tests := []struct {
		name        string
		native      string
		wantQuality certificate.Quality
		wantFirst   string
		wantLines   int
	}{
		{"no text layer", "", certificate.QualityOCRFallback, "الاسم: أحمد علي", 2},
		{"weak text layer is merged", "Certificate", certificate.QualityMerged, "Certificate", 3},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := newFakeRunner()
			r.tools["pdftotext"] = func([]string) ([]byte, error) { return []byte(tt.native), nil }
			r.tools["pdftoppm"] = pdftoppm(2)
			r.tools["tesseract"] = tesseractPages(map[string]string{
				"page-1.png": "الاسم: أحمد علي",
				"page-2.png": "المعدل: 3.80",
			})

			td, err := newTestAcquirer(r, DefaultConfig()).Acquire(context.Background(), pdf)
			require.NoError(t, err)

			assert.Equal(t, tt.wantQuality, td.Quality)
			require.Len(t, td.Lines, tt.wantLines)
			assert.Equal(t, tt.wantFirst, td.Lines[0].Content)
			last := td.Lines[len(td.Lines)-1]
			assert.Equal(t, "المعدل: 3.80", last.Content, "pages stay in order")
			assert.Equal(t, len(td.Lines)-1, last.Index)
			require.NotNil(t, last.Region)
			assert.Equal(t, 2, last.Region.Page)
			assert.InDelta(t, 0.9, td.OCRConfidence, 1e-9)
			assert.Equal(t, 2, r.count("tesseract"))
		})
	}
}

func TestAcquireClampsDPIAndPages(t *testing.T) {
	r := newFakeRunner()
	r.tools["pdftotext"] = func([]string) ([]byte, error) { return nil, nil }
	r.tools["pdftoppm"] = pdftoppm(1)
	r.tools["tesseract"] = tesseractPages(map[string]string{"page-1.png": "x"})

	cfg := DefaultConfig()
	cfg.DPI = 600
	cfg.MaxPages = 3
	_, err := newTestAcquirer(r, cfg).Acquire(context.Background(), pdf)
	require.NoError(t, err)

	args := r.calls["pdftoppm"][0]
	assert.Equal(t, []string{"-r", "260", "-png", "-f", "1", "-l", "3"}, args[:7])
	assert.Equal(t, []string{"stdout", "-l", "ara+eng", "tsv"}, r.calls["tesseract"][0][1:])
}

func TestAcquireOCRFailure(t *testing.T) {
	t.Run("native text survives", func(t *testing.T) {
		r := newFakeRunner()
		r.tools["pdftotext"] = func([]string) ([]byte, error) { return []byte("Certificate"), nil }

		td, err := newTestAcquirer(r, DefaultConfig()).Acquire(context.Background(), pdf)
		require.NoError(t, err)
		assert.Equal(t, certificate.QualityNativeText, td.Quality)
		require.Len(t, td.Warnings, 1)
		assert.True(t, strings.HasPrefix(td.Warnings[0], "ocr failed, using native text: pdftoppm"))
	})

	t.Run("nothing produced", func(t *testing.T) {
		r := newFakeRunner()
		_, err := newTestAcquirer(r, DefaultConfig()).Acquire(context.Background(), pdf)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "no native text and ocr failed")
	})

	t.Run("ocr found nothing either", func(t *testing.T) {
		r := newFakeRunner()
		r.tools["pdftotext"] = func([]string) ([]byte, error) { return nil, nil }
		r.tools["pdftoppm"] = pdftoppm(1)
		r.tools["tesseract"] = tesseractPages(nil)

		_, err := newTestAcquirer(r, DefaultConfig()).Acquire(context.Background(), pdf)
		assert.ErrorIs(t, err, sentinel.ErrNoText)
	})
}

func TestAcquireRetriesTransientOCRFailure(t *testing.T) {
	r := newFakeRunner()
	r.tools["pdftotext"] = func([]string) ([]byte, error) { return nil, nil }
	r.tools["pdftoppm"] = pdftoppm(1)
	var mu sync.Mutex
	attempts := 0
	r.tools["tesseract"] = func(args []string) ([]byte, error) {
		mu.Lock()
		defer mu.Unlock()
		attempts++
		if attempts == 1 {
			return nil, errors.New("signal: killed")
		}
		return tsv(tsvWord{1, 1, 1, 1, 10, 10, 100, 80, "جامعة"}), nil
	}

	cfg := DefaultConfig()
	cfg.RetryDelay = 0
	td, err := newTestAcquirer(r, cfg).Acquire(context.Background(), pdf)
	require.NoError(t, err)
	assert.Equal(t, certificate.QualityOCRFallback, td.Quality)
	assert.Equal(t, 2, attempts)
}

func TestAcquireSkipsOCRWhileBreakerOpen(t *testing.T) {
	r := newFakeRunner()
	r.tools["pdftotext"] = func([]string) ([]byte, error) { return []byte("Certificate"), nil }
	breaker := circuit.New("ocr", circuit.WithFailureThreshold(1))

	cfg := DefaultConfig()
	cfg.RetryAttempts = 1
	a := newTestAcquirer(r, cfg, WithBreaker(breaker))

	_, err := a.Acquire(context.Background(), pdf)
	require.NoError(t, err)
	assert.True(t, breaker.IsOpen())
	assert.Equal(t, 1, r.count("pdftoppm"))

	td, err := a.Acquire(context.Background(), pdf)
	require.NoError(t, err)
	assert.Equal(t, 1, r.count("pdftoppm"), "open breaker skips OCR")
	require.Len(t, td.Warnings, 1)
	assert.Contains(t, td.Warnings[0], "ocr unavailable")
}

func TestAcquireImage(t *testing.T) {
	img := certificate.Document{Path: "/uploads/scan.png", Filename: "scan.png", Format: certificate.FormatImage}

	t.Run("ocr text", func(t *testing.T) {
		r := newFakeRunner()
		r.tools["tesseract"] = func(args []string) ([]byte, error) {
			assert.Equal(t, img.Path, args[0])
			return tsv(tsvWord{1, 1, 1, 1, 10, 10, 100, 75, "بكالوريوس"}), nil
		}
		td, err := newTestAcquirer(r, DefaultConfig()).Acquire(context.Background(), img)
		require.NoError(t, err)
		assert.Equal(t, certificate.QualityImageOCR, td.Quality)
		assert.Equal(t, 1, td.Pages)
		assert.InDelta(t, 0.75, td.OCRConfidence, 1e-9)
		assert.Zero(t, r.count("pdftotext"))
	})

	t.Run("blank image", func(t *testing.T) {
		r := newFakeRunner()
		r.tools["tesseract"] = tesseractPages(nil)
		_, err := newTestAcquirer(r, DefaultConfig()).Acquire(context.Background(), img)
		assert.ErrorIs(t, err, sentinel.ErrNoText)
	})
}

func TestAcquireUnsupportedFormat(t *testing.T) {
	_, err := newTestAcquirer(newFakeRunner(), DefaultConfig()).Acquire(context.Background(), certificate.Document{Format: "DOCX"})
	assert.ErrorIs(t, err, sentinel.ErrUnsupported)
}

func TestAcquireCancelled(t *testing.T) {
	r := newFakeRunner()
	r.tools["pdftotext"] = func([]string) ([]byte, error) { return nil, nil }
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := newTestAcquirer(r, DefaultConfig()).Acquire(ctx, pdf)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestClampDPI(t *testing.T) {
	assert.Equal(t, DefaultDPI, ClampDPI(0))
	assert.Equal(t, MinDPI, ClampDPI(72))
	assert.Equal(t, MaxDPI, ClampDPI(300))
	assert.Equal(t, 200, ClampDPI(200))
}

func TestFromPlatform(t *testing.T) {
	cfg := FromPlatform(config.OCR{Tesseract: "/opt/tesseract", DPI: 400, RetryAttempts: 3})

	assert.Equal(t, "/opt/tesseract", cfg.Tesseract)
	assert.Equal(t, "pdftotext", cfg.PDFToText)
	assert.Equal(t, MaxDPI, cfg.DPI)
	assert.Equal(t, uint(3), cfg.RetryAttempts)
	assert.Equal(t, 50, cfg.MinNativeLength)
	assert.Equal(t, 5, cfg.BreakerThreshold)
}
