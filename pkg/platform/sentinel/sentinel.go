package sentinel

import "errors"

// Sentinel errors for infrastructure facts. Adapters and caches return these
// (optionally wrapped) so services can translate them into domain errors or
// diagnostic entries.
//
//   - ErrNotFound: cache miss or missing artifact
//   - ErrUnavailable: external tool or backing service temporarily unavailable
//   - ErrUnsupported: document format the adapter cannot read
//   - ErrNoText: the document produced no usable text
//
// For validation errors (bad input, missing fields), use pkg/domain-errors directly.
var (
	ErrNotFound    = errors.New("not found")
	ErrUnavailable = errors.New("unavailable")
	ErrUnsupported = errors.New("unsupported")
	ErrNoText      = errors.New("no text")
)
