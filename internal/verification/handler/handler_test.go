package handler

import (
	"bytes"
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/suite"
	"go.uber.org/mock/gomock"

	"certverify/internal/certificate"
	"certverify/internal/diagnostics"
	"certverify/internal/verification/handler/mocks"
	dErrors "certverify/pkg/domain-errors"
	"certverify/pkg/testutil"
)

//go:generate mockgen -source=handler.go -destination=mocks/service-mocks.go -package=mocks Service
type HandlerSuite struct {
	suite.Suite
	service *mocks.MockService
	router  chi.Router
	dir     string
}

func TestHandlerSuite(t *testing.T) {
	suite.Run(t, new(HandlerSuite))
}

func (s *HandlerSuite) SetupTest() {
	ctrl := gomock.NewController(s.T())
	s.service = mocks.NewMockService(ctrl)
	s.dir = s.T().TempDir()
	h := New(s.service, slog.New(slog.NewTextHandler(io.Discard, nil)),
		WithMaxUploadBytes(64<<10),
		WithUploadDir(s.dir),
	)
	s.router = chi.NewRouter()
	h.Register(s.router)
}

func sampleResult() *certificate.Result {
	tr := diagnostics.New()
	tr.Add(diagnostics.StageAggregation, "status decided", "status", "MATCH")
	return &certificate.Result{
		Status:     certificate.StatusMatch,
		Confidence: 0.99,
		Quality:    certificate.QualityNativeText,
		Extracted: map[certificate.FieldKind]certificate.ExtractedField{
			certificate.FieldFullName: {
				Kind:       certificate.FieldFullName,
				Raw:        "أحمد علي",
				Method:     certificate.MethodLabeled,
				Anchor:     "الاسم: أحمد علي",
				Normalized: certificate.Normalized{Value: "احمد علي", Present: true},
			},
			certificate.FieldGPA: {
				Kind:       certificate.FieldGPA,
				Raw:        "٣.٨٠",
				Method:     certificate.MethodLabeled,
				Line:       3,
				Normalized: certificate.Normalized{Value: "3.80", Present: true},
			},
		},
		Comparisons: map[certificate.FieldKind]certificate.FieldComparison{
			certificate.FieldFullName: {Kind: certificate.FieldFullName, Score: 1, Verdict: certificate.VerdictExact, Details: "similarity 1.00"},
			certificate.FieldGPA:      {Kind: certificate.FieldGPA, Score: 0.98, Verdict: certificate.VerdictClose, Details: "difference 0.01"},
		},
		Trace: tr,
	}
}

func (s *HandlerSuite) multipartRequest(path string, u testutil.Upload) *http.Request {
	return testutil.WithRequestID(testutil.NewMultipartRequest(s.T(), path, u), "req-123")
}

func (s *HandlerSuite) serve(req *http.Request) *httptest.ResponseRecorder {
	return testutil.DoRequest(s.router, req)
}

func (s *HandlerSuite) decode(w *httptest.ResponseRecorder) map[string]any {
	return testutil.DecodeJSON(s.T(), w)
}

func (s *HandlerSuite) TestVerifyStagesUploadAndRemovesIt() {
	var staged string
	s.service.EXPECT().Verify(gomock.Any(), gomock.Any(), gomock.Any()).DoAndReturn(
		func(_ context.Context, doc certificate.Document, claims certificate.Claims) (*certificate.Result, error) {
			staged = doc.Path
			content, err := os.ReadFile(doc.Path)
			s.Require().NoError(err)
			s.Equal("%PDF-1.7 body", string(content))
			s.Equal(certificate.FormatPDF, doc.Format)
			s.Equal("cert.pdf", doc.Filename)
			s.Equal(certificate.Claims{
				certificate.FieldFullName: "احمد علي",
				certificate.FieldGPA:      "3.80",
			}, claims)
			return sampleResult(), nil
		})

	w := s.serve(s.multipartRequest("/verify", testutil.Upload{
		Filename: "cert.pdf",
		Content:  []byte("%PDF-1.7 body"),
		Fields:   map[string]string{"name": "احمد علي", "gpa": "3.80", "major": "  "},
	}))

	s.Equal(http.StatusOK, w.Code)
	_, err := os.Stat(staged)
	s.True(errors.Is(err, os.ErrNotExist), "staged upload must be removed")

	body := s.decode(w)
	s.Equal("req-123", body["request_id"])
	s.Equal("MATCH", body["status"])
	s.Equal("native_text", body["source_quality"])

	extracted := body["extracted_data"].(map[string]any)
	s.Len(extracted, len(certificate.AllFields))
	s.Equal("احمد علي", extracted["full_name"])
	s.Equal("3.80", extracted["gpa"])
	s.Nil(extracted["national_id"])

	details := body["extraction_details"].(map[string]any)
	s.Equal("NOT_FOUND", details["degree"].(map[string]any)["method"])

	comparisons := body["comparison_details"].(map[string]any)
	s.Len(comparisons, 2)
	s.Equal("CLOSE", comparisons["gpa"].(map[string]any)["verdict"])

	s.Len(body["debug"], 1)
}

func (s *HandlerSuite) TestVerifyFullNameWinsOverAlias() {
	s.service.EXPECT().Verify(gomock.Any(), gomock.Any(), certificate.Claims{
		certificate.FieldFullName: "سارة حسن",
	}).Return(sampleResult(), nil)

	w := s.serve(s.multipartRequest("/verify", testutil.Upload{
		Filename: "cert.png",
		Content:  []byte{0x89, 'P', 'N', 'G'},
		Fields:   map[string]string{"full_name": "سارة حسن", "name": "ignored"},
	}))
	s.Equal(http.StatusOK, w.Code)
}

func (s *HandlerSuite) TestVerifyRejectsBadUploads() {
	tests := []struct {
		name   string
		upload testutil.Upload
		status int
		desc   string
	}{
		{"missing file", testutil.Upload{Fields: map[string]string{"name": "x"}}, http.StatusBadRequest, "file required"},
		{"unsupported extension", testutil.Upload{Filename: "cert.docx", Content: []byte("x")}, http.StatusBadRequest, "unsupported file type"},
		{"empty file", testutil.Upload{Filename: "cert.pdf"}, http.StatusBadRequest, "empty file"},
		{"oversized file", testutil.Upload{Filename: "cert.pdf", Content: bytes.Repeat([]byte("a"), 128<<10)}, http.StatusRequestEntityTooLarge, "upload limit"},
	}
	for _, tt := range tests {
		s.Run(tt.name, func() {
			w := s.serve(s.multipartRequest("/verify", tt.upload))
			s.Equal(tt.status, w.Code)
			s.Contains(s.decode(w)["error_description"], tt.desc)
		})
	}

	entries, err := os.ReadDir(s.dir)
	s.Require().NoError(err)
	s.Empty(entries, "rejected uploads leave nothing staged")
}

func (s *HandlerSuite) TestVerifyMissingRequiredField() {
	s.service.EXPECT().Verify(gomock.Any(), gomock.Any(), gomock.Any()).
		Return(nil, dErrors.New(dErrors.CodeValidation, "missing required field: full_name"))

	w := s.serve(s.multipartRequest("/verify", testutil.Upload{Filename: "cert.pdf", Content: []byte("%PDF")}))

	testutil.AssertStatusAndError(s.T(), w, http.StatusBadRequest, "validation_error")
	s.Equal("missing required field: full_name", s.decode(w)["error_description"])
}

func (s *HandlerSuite) TestVerifyAuthenticatedCaller() {
	s.service.EXPECT().Verify(gomock.Any(), gomock.Any(), gomock.Any()).Return(sampleResult(), nil)

	req := s.multipartRequest("/verify", testutil.Upload{
		Filename: "cert.pdf",
		Content:  []byte("%PDF"),
		Fields:   map[string]string{"full_name": "احمد علي"},
	})
	var logs bytes.Buffer
	r := chi.NewRouter()
	New(s.service, slog.New(slog.NewJSONHandler(&logs, nil)), WithUploadDir(s.dir)).Register(r)

	w := testutil.DoRequest(r, testutil.WithSubject(req, "registrar-portal"))

	s.Equal(http.StatusOK, w.Code)
	s.Equal("req-123", s.decode(w)["request_id"])
	s.Contains(logs.String(), `"subject":"registrar-portal"`)
}

func (s *HandlerSuite) TestUploadLegacyShape() {
	s.service.EXPECT().Verify(gomock.Any(), gomock.Any(), gomock.Any()).Return(sampleResult(), nil)

	w := s.serve(s.multipartRequest("/upload", testutil.Upload{
		Filename: "cert.jpg",
		Content:  []byte("jpeg"),
		Fields:   map[string]string{"name": "احمد علي", "gpa": "3.80"},
	}))

	s.Equal(http.StatusOK, w.Code)
	body := s.decode(w)
	s.Equal("MATCH", body["status"])
	s.NotContains(body, "request_id")

	extracted := body["extracted_data"].(map[string]any)
	s.Equal("احمد علي", extracted["name"])
	s.NotContains(extracted, "full_name")

	comparisons := body["comparison_details"].(map[string]any)
	s.Len(comparisons, 6)
	s.Equal(map[string]any{"match": true, "score": 1.0}, comparisons["name"])
	s.Equal(map[string]any{"match": true, "score": 0.98}, comparisons["gpa"])
	s.Equal(map[string]any{"match": false, "score": 0.0}, comparisons["degree"])
}

func (s *HandlerSuite) TestUploadPipelineFailureKeepsLegacyBody() {
	s.service.EXPECT().Verify(gomock.Any(), gomock.Any(), gomock.Any()).
		Return(nil, dErrors.New(dErrors.CodeUnavailable, "no text source configured"))

	w := s.serve(s.multipartRequest("/upload", testutil.Upload{Filename: "cert.pdf", Content: []byte("%PDF")}))

	s.Equal(http.StatusOK, w.Code)
	body := s.decode(w)
	s.Equal("MISMATCH", body["status"])
	s.Equal(0.0, body["confidence"])
	s.Empty(body["extracted_data"])
	s.Empty(body["comparison_details"])
	s.Contains(body["error"], "no text source configured")
}

func (s *HandlerSuite) TestUploadInputErrorStays400() {
	w := s.serve(s.multipartRequest("/upload", testutil.Upload{Filename: "cert.txt", Content: []byte("x")}))
	s.Equal(http.StatusBadRequest, w.Code)
}

func (s *HandlerSuite) textRequest(body string) *http.Request {
	req := testutil.NewRequestWithBody(s.T(), http.MethodPost, "/verify/text", body)
	return testutil.WithRequestID(req, "req-456")
}

func (s *HandlerSuite) TestVerifyText() {
	s.service.EXPECT().VerifyText(gomock.Any(), gomock.Any(), gomock.Any()).DoAndReturn(
		func(_ context.Context, text certificate.TextDocument, claims certificate.Claims) (*certificate.Result, error) {
			s.Require().Len(text.Lines, 2)
			s.Equal("الاسم: أحمد علي", text.Lines[0].Content)
			s.Equal(1, text.Lines[1].Index)
			s.Equal(certificate.SourceOCR, text.Lines[1].Source)
			s.Require().NotNil(text.Lines[1].Region)
			s.Equal(120, text.Lines[1].Region.Top)
			s.Equal(certificate.QualityImageOCR, text.Quality)
			s.Equal(2, text.Pages)
			s.Equal(certificate.Claims{
				certificate.FieldFullName: "احمد علي",
				certificate.FieldGPA:      "3.80",
			}, claims)
			return sampleResult(), nil
		})

	w := s.serve(s.textRequest(`{
		"lines": [
			{"content": "الاسم: أحمد علي"},
			{"content": "المعدل: ٣.٨٠", "region": {"page": 2, "left": 10, "top": 120, "width": 300, "height": 20}}
		],
		"source": "OCR",
		"submitted": {"name": "احمد علي", "gpa": "3.80", "major": ""}
	}`))

	s.Equal(http.StatusOK, w.Code)
	body := s.decode(w)
	s.Equal("req-456", body["request_id"])
	s.Equal("MATCH", body["status"])
}

func (s *HandlerSuite) TestVerifyTextRejectsInvalidBodies() {
	tests := []struct {
		name string
		body string
		code string
		desc string
	}{
		{"malformed json", `{"lines": [`, "bad_request", "invalid JSON body"},
		{"missing lines", `{"submitted": {"full_name": "x"}}`, "validation_error", "lines"},
		{"unknown submitted field", `{"lines": [], "submitted": {"email": "a@b.c"}}`, "validation_error", "email"},
		{"line without content", `{"lines": [{"region": {"top": 1}}], "submitted": {}}`, "validation_error", "content"},
		{"unknown quality", `{"lines": [], "quality": "great", "submitted": {}}`, "validation_error", "/quality"},
		{"numeric gpa", `{"lines": [], "submitted": {"gpa": 3.8}}`, "validation_error", "/submitted/gpa"},
	}
	for _, tt := range tests {
		s.Run(tt.name, func() {
			w := s.serve(s.textRequest(tt.body))
			s.Equal(http.StatusBadRequest, w.Code)
			body := s.decode(w)
			s.Equal(tt.code, body["error"])
			s.Contains(body["error_description"], tt.desc)
		})
	}
}

func (s *HandlerSuite) TestVerifyTextServiceError() {
	s.service.EXPECT().VerifyText(gomock.Any(), gomock.Any(), gomock.Any()).
		Return(nil, dErrors.New(dErrors.CodeValidation, "at least one field must be submitted"))

	w := s.serve(s.textRequest(`{"lines": [{"content": "x"}], "submitted": {}}`))

	s.Equal(http.StatusBadRequest, w.Code)
	s.Equal("at least one field must be submitted", s.decode(w)["error_description"])
}
