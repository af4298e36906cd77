package testutil

import (
	"net/http"

	"certverify/pkg/requestcontext"
)

// WithRequestID attaches a request id the way the request middleware would.
func WithRequestID(req *http.Request, requestID string) *http.Request {
	return req.WithContext(requestcontext.WithRequestID(req.Context(), requestID))
}

// WithSubject simulates a request authenticated by the bearer middleware.
func WithSubject(req *http.Request, subject string) *http.Request {
	return req.WithContext(requestcontext.WithSubject(req.Context(), subject))
}
