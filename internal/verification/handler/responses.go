package handler

import (
	"certverify/internal/certificate"
	"certverify/internal/diagnostics"
)

// VerifyResponse is the HTTP response for POST /verify and POST /verify/text.
type VerifyResponse struct {
	RequestID         string                              `json:"request_id,omitempty" yaml:"request_id,omitempty"`
	Status            string                              `json:"status" yaml:"status"`
	Confidence        float64                             `json:"confidence" yaml:"confidence"`
	SourceQuality     string                              `json:"source_quality" yaml:"source_quality"`
	ExtractedData     map[string]*string                  `json:"extracted_data" yaml:"extracted_data"`
	ExtractionDetails map[string]ExtractionDetailResponse `json:"extraction_details" yaml:"extraction_details"`
	ComparisonDetails map[string]ComparisonResponse       `json:"comparison_details" yaml:"comparison_details"`
	Debug             []diagnostics.Entry                 `json:"debug" yaml:"debug"`
}

// ExtractionDetailResponse says where an extracted value came from.
type ExtractionDetailResponse struct {
	RawValue string `json:"raw_value,omitempty" yaml:"raw_value,omitempty"`
	Method   string `json:"method" yaml:"method"`
	Anchor   string `json:"anchor,omitempty" yaml:"anchor,omitempty"`
	Line     int    `json:"line" yaml:"line"`
}

// ComparisonResponse is the comparison of one submitted field.
type ComparisonResponse struct {
	Score   float64 `json:"score" yaml:"score"`
	Verdict string  `json:"verdict" yaml:"verdict"`
	Details string  `json:"details" yaml:"details"`
}

// FromResult converts a domain Result to an HTTP response.
func FromResult(requestID string, result *certificate.Result) *VerifyResponse {
	resp := &VerifyResponse{
		RequestID:         requestID,
		Status:            string(result.Status),
		Confidence:        result.Confidence,
		SourceQuality:     string(result.Quality),
		ExtractedData:     make(map[string]*string, len(certificate.AllFields)),
		ExtractionDetails: make(map[string]ExtractionDetailResponse, len(certificate.AllFields)),
		ComparisonDetails: make(map[string]ComparisonResponse, len(result.Comparisons)),
		Debug:             result.Trace.Entries(),
	}
	for _, kind := range certificate.AllFields {
		field, ok := result.Extracted[kind]
		if !ok {
			field = certificate.NotFound(kind)
		}
		resp.ExtractedData[kind.String()] = normalizedValue(field)
		resp.ExtractionDetails[kind.String()] = ExtractionDetailResponse{
			RawValue: field.Raw,
			Method:   string(field.Method),
			Anchor:   field.Anchor,
			Line:     field.Line,
		}
	}
	for kind, c := range result.Comparisons {
		resp.ComparisonDetails[kind.String()] = ComparisonResponse{
			Score:   c.Score,
			Verdict: string(c.Verdict),
			Details: c.Details,
		}
	}
	if resp.Debug == nil {
		resp.Debug = []diagnostics.Entry{}
	}
	return resp
}

func normalizedValue(f certificate.ExtractedField) *string {
	if !f.Found() || !f.Normalized.Present {
		return nil
	}
	v := f.Normalized.Value
	return &v
}

// legacyKeys maps field kinds to the keys of the legacy response.
var legacyKeys = map[certificate.FieldKind]string{
	certificate.FieldFullName:   "name",
	certificate.FieldUniversity: "university",
	certificate.FieldMajor:      "major",
	certificate.FieldGPA:        "gpa",
	certificate.FieldNationalID: "national_id",
	certificate.FieldDegree:     "degree",
}

// LegacyResponse is the response shape of POST /upload.
type LegacyResponse struct {
	Status            string                      `json:"status"`
	Confidence        float64                     `json:"confidence"`
	ExtractedData     map[string]*string          `json:"extracted_data"`
	ComparisonDetails map[string]LegacyComparison `json:"comparison_details"`
	Debug             []diagnostics.Entry         `json:"debug,omitempty"`
	Error             string                      `json:"error,omitempty"`
}

// LegacyComparison is the boolean-plus-score form of a comparison.
type LegacyComparison struct {
	Match bool    `json:"match"`
	Score float64 `json:"score"`
}

// FromResultLegacy converts a domain Result to the legacy response. Every
// field has a comparison entry; fields that were not submitted read as no
// match with score zero.
func FromResultLegacy(result *certificate.Result) *LegacyResponse {
	resp := &LegacyResponse{
		Status:            string(result.Status),
		Confidence:        result.Confidence,
		ExtractedData:     make(map[string]*string, len(certificate.AllFields)),
		ComparisonDetails: make(map[string]LegacyComparison, len(certificate.AllFields)),
		Debug:             result.Trace.Entries(),
	}
	for _, kind := range certificate.AllFields {
		key := legacyKeys[kind]
		field, ok := result.Extracted[kind]
		if !ok {
			field = certificate.NotFound(kind)
		}
		resp.ExtractedData[key] = normalizedValue(field)

		c, ok := result.Comparisons[kind]
		if !ok {
			resp.ComparisonDetails[key] = LegacyComparison{}
			continue
		}
		resp.ComparisonDetails[key] = LegacyComparison{Match: c.Verdict.Accepting(), Score: c.Score}
	}
	return resp
}

// LegacyFailure is the legacy body for a run that failed after its input was
// accepted.
func LegacyFailure(err error) *LegacyResponse {
	return &LegacyResponse{
		Status:            string(certificate.StatusMismatch),
		Confidence:        0,
		ExtractedData:     map[string]*string{},
		ComparisonDetails: map[string]LegacyComparison{},
		Error:             err.Error(),
	}
}
