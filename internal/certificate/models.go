// Package certificate defines the domain types shared by every verification
// stage: documents and their text lines, field kinds, extracted and submitted
// values, comparisons and the final result.
package certificate

import (
	"fmt"
	"path/filepath"
	"strings"

	dErrors "certverify/pkg/domain-errors"
)

// FieldKind identifies one verifiable certificate field.
type FieldKind string

const (
	FieldFullName   FieldKind = "full_name"
	FieldUniversity FieldKind = "university"
	FieldMajor      FieldKind = "major"
	FieldGPA        FieldKind = "gpa"
	FieldNationalID FieldKind = "national_id"
	FieldDegree     FieldKind = "degree"
)

// AllFields lists every kind in result order.
var AllFields = []FieldKind{
	FieldFullName,
	FieldUniversity,
	FieldMajor,
	FieldGPA,
	FieldNationalID,
	FieldDegree,
}

// ParseFieldKind accepts the wire key of a field. "name" is accepted as the
// legacy alias of full_name.
func ParseFieldKind(s string) (FieldKind, error) {
	k := FieldKind(strings.ToLower(strings.TrimSpace(s)))
	if k == "name" {
		return FieldFullName, nil
	}
	for _, f := range AllFields {
		if f == k {
			return k, nil
		}
	}
	return "", dErrors.New(dErrors.CodeValidation, fmt.Sprintf("unknown field %q", s))
}

func (k FieldKind) String() string { return string(k) }

// IdentitySensitive reports whether a DIFFERENT verdict on this field alone
// rejects the certificate.
func (k FieldKind) IdentitySensitive() bool {
	return k == FieldFullName || k == FieldNationalID
}

// IsText reports whether the field is compared by string similarity.
func (k FieldKind) IsText() bool {
	return k == FieldFullName || k == FieldUniversity || k == FieldMajor
}

// Source says how a text line was obtained.
type Source string

const (
	SourceNative Source = "NATIVE"
	SourceOCR    Source = "OCR"
)

// Region is the optional bounding box of a line on its page, in pixels of
// the rasterized page.
type Region struct {
	Page   int `json:"page"`
	Left   int `json:"left"`
	Top    int `json:"top"`
	Width  int `json:"width"`
	Height int `json:"height"`
}

// SameRow reports whether two regions sit on the same visual row.
func (r Region) SameRow(o Region) bool {
	if r.Page != o.Page {
		return false
	}
	tol := max(r.Height, o.Height)
	if tol == 0 {
		tol = 18
	}
	d := r.Top - o.Top
	if d < 0 {
		d = -d
	}
	return d <= tol
}

// TextLine is one line of document text in reading order.
type TextLine struct {
	Content string  `json:"content"`
	Index   int     `json:"order_index"`
	Source  Source  `json:"source"`
	Region  *Region `json:"region,omitempty"`
}

// Quality annotates where the text of a document came from.
type Quality string

const (
	QualityNativeText  Quality = "native_text"
	QualityOCRFallback Quality = "ocr_fallback"
	QualityMerged      Quality = "merged"
	QualityImageOCR    Quality = "image_ocr"
	QualityNone        Quality = "none"
)

// TextDocument is what the text source adapter hands to the pipeline.
// Failure is set when acquisition failed upstream; Lines may then be empty.
type TextDocument struct {
	Lines         []TextLine `json:"lines"`
	Quality       Quality    `json:"quality"`
	Pages         int        `json:"pages"`
	OCRConfidence float64    `json:"ocr_confidence,omitempty"`
	Warnings      []string   `json:"warnings,omitempty"`
	Failure       string     `json:"failure,omitempty"`
}

// TextLength returns the total number of runes across all lines.
func (d TextDocument) TextLength() int {
	n := 0
	for _, l := range d.Lines {
		n += len([]rune(strings.TrimSpace(l.Content)))
	}
	return n
}

// Joined returns all line contents separated by newlines.
func (d TextDocument) Joined() string {
	parts := make([]string, 0, len(d.Lines))
	for _, l := range d.Lines {
		parts = append(parts, l.Content)
	}
	return strings.Join(parts, "\n")
}

// LinesFromText splits raw text into ordered lines, skipping blank ones.
func LinesFromText(text string, source Source) []TextLine {
	var lines []TextLine
	for _, raw := range strings.Split(strings.ReplaceAll(text, "\r", "\n"), "\n") {
		raw = strings.TrimSpace(strings.ReplaceAll(raw, "\f", ""))
		if raw == "" {
			continue
		}
		lines = append(lines, TextLine{Content: raw, Index: len(lines), Source: source})
	}
	return lines
}

// Format is the coarse document type.
type Format string

const (
	FormatPDF   Format = "PDF"
	FormatImage Format = "IMAGE"
)

var extensions = map[string]Format{
	".pdf":  FormatPDF,
	".png":  FormatImage,
	".jpg":  FormatImage,
	".jpeg": FormatImage,
	".webp": FormatImage,
	".bmp":  FormatImage,
	".tif":  FormatImage,
	".tiff": FormatImage,
}

// FormatFromFilename maps an upload filename to a Format. Unsupported
// extensions are an input-contract violation.
func FormatFromFilename(name string) (Format, error) {
	ext := strings.ToLower(filepath.Ext(name))
	if f, ok := extensions[ext]; ok {
		return f, nil
	}
	if ext == "" {
		return "", dErrors.New(dErrors.CodeBadRequest, "file has no extension")
	}
	return "", dErrors.New(dErrors.CodeBadRequest, fmt.Sprintf("unsupported file type %q", ext))
}

// Document is an uploaded certificate staged on local disk.
type Document struct {
	Path     string
	Filename string
	Format   Format
}
