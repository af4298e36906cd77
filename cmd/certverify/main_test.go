package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"certverify/internal/certificate"
	"certverify/internal/diagnostics"
	jwttoken "certverify/internal/jwt_token"
	"certverify/internal/platform/config"
	"certverify/internal/verification/handler"
	authmw "certverify/pkg/platform/middleware/auth"
)

type call struct {
	doc    certificate.Document
	claims certificate.Claims
}

// fakeVerifier records calls and returns a fixed MATCH result.
type fakeVerifier struct {
	mu    sync.Mutex
	calls []call
	err   error
}

func (f *fakeVerifier) Verify(_ context.Context, doc certificate.Document, claims certificate.Claims) (*certificate.Result, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, call{doc, claims})
	if f.err != nil {
		return nil, f.err
	}
	tr := diagnostics.New()
	tr.Add(diagnostics.StageAggregation, "status decided", "status", "MATCH")
	return &certificate.Result{
		Status:     certificate.StatusMatch,
		Confidence: 0.97,
		Quality:    certificate.QualityNativeText,
		Comparisons: map[certificate.FieldKind]certificate.FieldComparison{
			certificate.FieldFullName: {Kind: certificate.FieldFullName, Score: 1, Verdict: certificate.VerdictExact},
		},
		Trace: tr,
	}, nil
}

func testApp(fake *fakeVerifier) *app {
	return &app{
		env:         config.Config{Server: config.Server{JWTSigningKey: "cli-test-key"}},
		stderr:      io.Discard,
		newVerifier: func(*app) (verifier, error) { return fake, nil },
	}
}

func execute(t *testing.T, a *app, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	cmd := newRootCmd(a)
	cmd.SetOut(&out)
	cmd.SetErr(io.Discard)
	cmd.SetArgs(args)
	err := cmd.ExecuteContext(context.Background())
	return out.String(), err
}

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestVerifyCommand(t *testing.T) {
	fake := &fakeVerifier{}
	path := writeFile(t, t.TempDir(), "degree.pdf", "%PDF-1.7")

	out, err := execute(t, testApp(fake), "verify", "--file", path,
		"--name", "أحمد علي", "--gpa", "3.2", "--national-id", "29801011234567")
	require.NoError(t, err)

	require.Len(t, fake.calls, 1)
	got := fake.calls[0]
	assert.Equal(t, certificate.FormatPDF, got.doc.Format)
	assert.Equal(t, "degree.pdf", got.doc.Filename)
	assert.Equal(t, certificate.Claims{
		certificate.FieldFullName:   "أحمد علي",
		certificate.FieldGPA:        "3.2",
		certificate.FieldNationalID: "29801011234567",
	}, got.claims)

	var resp handler.VerifyResponse
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.Equal(t, "MATCH", resp.Status)
	assert.NotEmpty(t, resp.RequestID)
	assert.Len(t, resp.ExtractedData, len(certificate.AllFields))
}

func TestVerifyCommandYAML(t *testing.T) {
	path := writeFile(t, t.TempDir(), "scan.png", "png bytes")

	out, err := execute(t, testApp(&fakeVerifier{}), "verify", "-o", "yaml", "-f", path, "--full-name", "سارة")
	require.NoError(t, err)

	var resp map[string]any
	require.NoError(t, yaml.Unmarshal([]byte(out), &resp))
	assert.Equal(t, "MATCH", resp["status"])
	assert.Equal(t, "native_text", resp["source_quality"])
}

func TestVerifyCommandErrors(t *testing.T) {
	dir := t.TempDir()
	tests := []struct {
		name string
		args []string
		want string
	}{
		{"unsupported type", []string{"verify", "-f", writeFile(t, dir, "cv.docx", "x")}, "unsupported file type"},
		{"empty file", []string{"verify", "-f", writeFile(t, dir, "empty.pdf", "")}, "empty file"},
		{"missing file", []string{"verify", "-f", filepath.Join(dir, "absent.pdf")}, "cannot read certificate file"},
		{"missing flag", []string{"verify"}, `required flag(s) "file" not set`},
		{"bad output", []string{"verify", "-o", "xml", "-f", writeFile(t, dir, "ok.pdf", "x")}, "unknown output format"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fake := &fakeVerifier{}
			_, err := execute(t, testApp(fake), tt.args...)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
			assert.Empty(t, fake.calls)
		})
	}
}

func TestVerifyCommandServiceError(t *testing.T) {
	path := writeFile(t, t.TempDir(), "degree.pdf", "%PDF-1.7")
	fake := &fakeVerifier{err: errors.New("missing required field: full_name")}

	_, err := execute(t, testApp(fake), "verify", "-f", path)
	assert.EqualError(t, err, "missing required field: full_name")
}

func TestBatchCommand(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "scans/a.pdf", "%PDF-1.7 a")
	abs := writeFile(t, t.TempDir(), "b.jpg", "jpeg")
	manifest := writeFile(t, dir, "batch.yaml", `
entries:
  - id: applicant-1
    file: scans/a.pdf
    submitted:
      name: أحمد علي
      gpa: "3.5"
  - file: `+abs+`
    submitted:
      full_name: سارة
  - id: applicant-3
    file: scans/missing.pdf
  - id: applicant-4
    file: scans/a.pdf
    submitted:
      hobby: chess
`)
	fake := &fakeVerifier{}

	out, err := execute(t, testApp(fake), "batch", "--manifest", manifest, "--concurrency", "3")
	require.NoError(t, err)

	var report BatchReport
	require.NoError(t, json.Unmarshal([]byte(out), &report))
	assert.NotEmpty(t, report.BatchID)
	require.Len(t, report.Results, 4)

	first := report.Results[0]
	assert.Equal(t, "applicant-1", first.ID)
	assert.Equal(t, filepath.Join(dir, "scans", "a.pdf"), first.File)
	require.NotNil(t, first.Result)
	assert.Equal(t, "applicant-1", first.Result.RequestID)

	assert.NotEmpty(t, report.Results[1].ID, "missing ids are generated")
	assert.NotNil(t, report.Results[1].Result)

	assert.Nil(t, report.Results[2].Result)
	assert.Contains(t, report.Results[2].Error, "cannot read certificate file")
	assert.Contains(t, report.Results[3].Error, `unknown field "hobby"`)

	require.Len(t, fake.calls, 2)
	for _, c := range fake.calls {
		if c.doc.Format == certificate.FormatPDF {
			assert.Equal(t, "أحمد علي", c.claims[certificate.FieldFullName])
			assert.Equal(t, "3.5", c.claims[certificate.FieldGPA])
		}
	}
}

func TestBatchCommandBadManifest(t *testing.T) {
	dir := t.TempDir()
	tests := []struct {
		name    string
		content string
		want    string
	}{
		{"no entries", "entries: []\n", "has no entries"},
		{"entry without file", "entries:\n  - id: x\n", "manifest entry 0 has no file"},
		{"not yaml", "entries: [\n", "parse manifest"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := writeFile(t, dir, tt.name+".yaml", tt.content)
			_, err := execute(t, testApp(&fakeVerifier{}), "batch", "-m", path)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestTokenCommand(t *testing.T) {
	out, err := execute(t, testApp(&fakeVerifier{}), "token", "--subject", "admissions-portal", "--ttl", "15m")
	require.NoError(t, err)

	var tok TokenOutput
	require.NoError(t, json.Unmarshal([]byte(out), &tok))
	assert.Equal(t, "Bearer", tok.TokenType)

	svc := jwttoken.NewJWTService("cli-test-key", jwttoken.Issuer, jwttoken.Audience)
	claims, err := svc.ValidateToken(tok.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, "admissions-portal", claims.Subject)
	assert.Equal(t, authmw.ScopeVerify, claims.Scope)
}

func TestTokenCommandRejectsNonPositiveTTL(t *testing.T) {
	_, err := execute(t, testApp(&fakeVerifier{}), "token", "--subject", "x", "--ttl", "0s")
	assert.EqualError(t, err, "--ttl must be positive")
}
