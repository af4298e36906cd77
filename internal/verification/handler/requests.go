package handler

import (
	"mime/multipart"
	"strings"

	"certverify/internal/certificate"
	dErrors "certverify/pkg/domain-errors"
	liststrings "certverify/pkg/platform/strings"
)

// ClaimsFromForm collects the submitted field values of a multipart form.
// Blank values are left out; "name" is read as full_name when full_name
// itself is blank.
func ClaimsFromForm(form *multipart.Form) certificate.Claims {
	claims := certificate.Claims{}
	if form == nil {
		return claims
	}
	value := func(key string) string {
		if vs := form.Value[key]; len(vs) > 0 {
			return strings.TrimSpace(vs[0])
		}
		return ""
	}
	for _, kind := range certificate.AllFields {
		if v := value(kind.String()); v != "" {
			claims[kind] = v
		}
	}
	if v := liststrings.FirstNonEmpty(value(certificate.FieldFullName.String()), value("name")); v != "" {
		claims[certificate.FieldFullName] = v
	}
	return claims
}

// ClaimsFromMap parses submitted values keyed by field name. Unknown keys
// are rejected; "name" is an alias of full_name.
func ClaimsFromMap(submitted map[string]string) (certificate.Claims, error) {
	claims := certificate.Claims{}
	var alias string
	for key, v := range submitted {
		v = strings.TrimSpace(v)
		if v == "" {
			continue
		}
		if strings.EqualFold(strings.TrimSpace(key), "name") {
			alias = v
			continue
		}
		kind, err := certificate.ParseFieldKind(key)
		if err != nil {
			return nil, err
		}
		claims[kind] = v
	}
	if _, ok := claims[certificate.FieldFullName]; !ok && alias != "" {
		claims[certificate.FieldFullName] = alias
	}
	return claims, nil
}

// VerifyTextRequest is the HTTP request body for POST /verify/text.
type VerifyTextRequest struct {
	Lines     []TextLineRequest `json:"lines"`
	Source    string            `json:"source"`
	Quality   string            `json:"quality"`
	Submitted map[string]string `json:"submitted"`

	// Parsed values (populated by Validate)
	claims certificate.Claims
	doc    certificate.TextDocument
}

// TextLineRequest is one supplied line of document text.
type TextLineRequest struct {
	Content string              `json:"content"`
	Region  *certificate.Region `json:"region,omitempty"`
}

// Validate validates and parses the request.
// Implements the Validatable interface for httputil.DecodeAndPrepare.
func (r *VerifyTextRequest) Validate() error {
	if r == nil {
		return dErrors.New(dErrors.CodeBadRequest, "request body is required")
	}

	source := certificate.SourceNative
	switch strings.ToUpper(strings.TrimSpace(r.Source)) {
	case "", string(certificate.SourceNative):
	case string(certificate.SourceOCR):
		source = certificate.SourceOCR
	default:
		return dErrors.New(dErrors.CodeValidation, "source must be NATIVE or OCR")
	}

	quality := certificate.QualityNativeText
	if source == certificate.SourceOCR {
		quality = certificate.QualityImageOCR
	}
	if q := strings.TrimSpace(r.Quality); q != "" {
		quality = certificate.Quality(strings.ToLower(q))
	}

	lines := make([]certificate.TextLine, 0, len(r.Lines))
	for i, l := range r.Lines {
		lines = append(lines, certificate.TextLine{
			Content: l.Content,
			Index:   i,
			Source:  source,
			Region:  l.Region,
		})
	}
	r.doc = certificate.TextDocument{Lines: lines, Quality: quality, Pages: pageCount(lines)}

	claims, err := ClaimsFromMap(r.Submitted)
	if err != nil {
		return err
	}
	r.claims = claims
	return nil
}

// TextDocument returns the parsed lines. Only valid after Validate.
func (r *VerifyTextRequest) TextDocument() certificate.TextDocument {
	return r.doc
}

// Claims returns the parsed submitted values. Only valid after Validate.
func (r *VerifyTextRequest) Claims() certificate.Claims {
	return r.claims
}

func pageCount(lines []certificate.TextLine) int {
	pages := 0
	for _, l := range lines {
		if l.Region != nil && l.Region.Page > pages {
			pages = l.Region.Page
		}
	}
	if pages == 0 && len(lines) > 0 {
		return 1
	}
	return pages
}
