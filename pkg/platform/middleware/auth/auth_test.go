package auth

import (
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"

	"certverify/pkg/requestcontext"
)

type stubValidator struct {
	claims *JWTClaims
	err    error
}

func (s stubValidator) ValidateToken(string) (*JWTClaims, error) { return s.claims, s.err }

func TestRequireAuth(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	tests := []struct {
		name        string
		header      string
		validator   stubValidator
		wantStatus  int
		wantSubject string
	}{
		{
			name:       "missing header",
			wantStatus: http.StatusUnauthorized,
		},
		{
			name:       "wrong scheme",
			header:     "Basic abc",
			wantStatus: http.StatusUnauthorized,
		},
		{
			name:       "invalid token",
			header:     "Bearer bad",
			validator:  stubValidator{err: errors.New("signature invalid")},
			wantStatus: http.StatusUnauthorized,
		},
		{
			name:       "missing scope",
			header:     "Bearer ok",
			validator:  stubValidator{claims: &JWTClaims{Subject: "portal", Scope: "profile"}},
			wantStatus: http.StatusForbidden,
		},
		{
			name:        "valid token",
			header:      "Bearer ok",
			validator:   stubValidator{claims: &JWTClaims{Subject: "portal", Scope: "profile " + ScopeVerify}},
			wantStatus:  http.StatusOK,
			wantSubject: "portal",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var subject string
			h := RequireAuth(tt.validator, logger)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				subject = requestcontext.Subject(r.Context())
				w.WriteHeader(http.StatusOK)
			}))

			r := httptest.NewRequest(http.MethodPost, "/verify", nil)
			if tt.header != "" {
				r.Header.Set("Authorization", tt.header)
			}
			w := httptest.NewRecorder()
			h.ServeHTTP(w, r)

			assert.Equal(t, tt.wantStatus, w.Code)
			assert.Equal(t, tt.wantSubject, subject)
		})
	}
}
