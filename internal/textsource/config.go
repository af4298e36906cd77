package textsource

import (
	"time"

	"certverify/internal/platform/config"
)

// DPI bounds for rasterizing PDF pages before OCR.
const (
	MinDPI     = 170
	MaxDPI     = 260
	DefaultDPI = 220
)

// Config tunes text acquisition.
type Config struct {
	PDFToText string
	PDFToPPM  string
	Tesseract string
	Languages string
	DPI       int
	// MaxPages caps how many pages are rasterized for OCR.
	MaxPages int
	// MinNativeLength and MinHintHits decide when a PDF's own text layer is
	// good enough to skip OCR.
	MinNativeLength int
	MinHintHits     int
	RetryAttempts   uint
	RetryDelay      time.Duration
	// Concurrency bounds how many pages are OCRed at once.
	Concurrency      int
	BreakerThreshold int
	BreakerCooldown  time.Duration
	WorkDir          string
}

// DefaultConfig returns production defaults.
func DefaultConfig() Config {
	return Config{
		PDFToText:        "pdftotext",
		PDFToPPM:         "pdftoppm",
		Tesseract:        "tesseract",
		Languages:        "ara+eng",
		DPI:              DefaultDPI,
		MaxPages:         10,
		MinNativeLength:  50,
		MinHintHits:      2,
		RetryAttempts:    2,
		RetryDelay:       200 * time.Millisecond,
		Concurrency:      2,
		BreakerThreshold: 5,
		BreakerCooldown:  30 * time.Second,
	}
}

// FromPlatform maps the environment OCR settings onto a Config. Values
// the environment leaves unset fall back to DefaultConfig.
func FromPlatform(c config.OCR) Config {
	return Config{
		PDFToText:        c.PDFToText,
		PDFToPPM:         c.PDFToPPM,
		Tesseract:        c.Tesseract,
		Languages:        c.Languages,
		DPI:              c.DPI,
		MaxPages:         c.MaxPages,
		RetryAttempts:    c.RetryAttempts,
		RetryDelay:       c.RetryDelay,
		Concurrency:      c.Concurrency,
		BreakerThreshold: c.BreakerThreshold,
		BreakerCooldown:  c.BreakerCooldown,
	}.withDefaults()
}

// ClampDPI keeps dpi within [MinDPI, MaxDPI]; zero selects DefaultDPI.
func ClampDPI(dpi int) int {
	if dpi == 0 {
		return DefaultDPI
	}
	return max(MinDPI, min(MaxDPI, dpi))
}

func (c Config) withDefaults() Config {
	d := DefaultConfig()
	if c.PDFToText == "" {
		c.PDFToText = d.PDFToText
	}
	if c.PDFToPPM == "" {
		c.PDFToPPM = d.PDFToPPM
	}
	if c.Tesseract == "" {
		c.Tesseract = d.Tesseract
	}
	if c.Languages == "" {
		c.Languages = d.Languages
	}
	c.DPI = ClampDPI(c.DPI)
	if c.MaxPages <= 0 {
		c.MaxPages = d.MaxPages
	}
	if c.MinNativeLength <= 0 {
		c.MinNativeLength = d.MinNativeLength
	}
	if c.MinHintHits <= 0 {
		c.MinHintHits = d.MinHintHits
	}
	if c.RetryAttempts == 0 {
		c.RetryAttempts = d.RetryAttempts
	}
	if c.Concurrency <= 0 {
		c.Concurrency = d.Concurrency
	}
	if c.BreakerThreshold <= 0 {
		c.BreakerThreshold = d.BreakerThreshold
	}
	if c.BreakerCooldown <= 0 {
		c.BreakerCooldown = d.BreakerCooldown
	}
	return c
}
