package ports

import (
	"context"

	"certverify/internal/certificate"
)

// TextSource acquires the text of an uploaded document.
// This port keeps the pipeline independent of pdftotext, tesseract or any
// cache in front of them.
type TextSource interface {
	// Acquire returns the document's ordered lines and a quality annotation.
	// An error means no text could be produced at all; the pipeline treats
	// it as an upstream failure and still returns a result.
	Acquire(ctx context.Context, doc certificate.Document) (certificate.TextDocument, error)
}

// PolicySource hands out the current tuning snapshot.
type PolicySource interface {
	Current() certificate.Policy
}

// StaticPolicy is a PolicySource that never changes.
type StaticPolicy certificate.Policy

// Current returns the policy.
func (p StaticPolicy) Current() certificate.Policy {
	return certificate.Policy(p)
}
