// Package verification runs the certificate verification pipeline:
// text acquisition, field extraction, normalization of both sides,
// per-field comparison and aggregation into a status and confidence.
package verification

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"certverify/internal/aggregate"
	"certverify/internal/certificate"
	"certverify/internal/compare"
	"certverify/internal/diagnostics"
	"certverify/internal/extraction"
	"certverify/internal/normalize"
	"certverify/internal/verification/metrics"
	"certverify/internal/verification/ports"
	dErrors "certverify/pkg/domain-errors"
	"certverify/pkg/requestcontext"
)

// State is a step of a verification run. A run moves strictly forward
// through the states and never retries.
type State string

const (
	StateExtracting  State = "EXTRACTING"
	StateComparing   State = "COMPARING"
	StateAggregating State = "AGGREGATING"
	StateDone        State = "DONE"
)

const tracerName = "certverify/verification"

// Service verifies certificates. It holds no per-run state; every call
// builds its own trace, extractor and comparator from a policy snapshot.
type Service struct {
	source   ports.TextSource
	policies ports.PolicySource
	logger   *slog.Logger
	metrics  *metrics.Metrics
	tracer   trace.Tracer
}

// Option configures a Service.
type Option func(*Service)

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) { s.logger = logger }
}

// WithMetrics sets the metrics sink.
func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) { s.metrics = m }
}

// NewService creates a verification service. source may be nil when only
// VerifyText is used.
func NewService(source ports.TextSource, policies ports.PolicySource, opts ...Option) *Service {
	s := &Service{
		source:   source,
		policies: policies,
		logger:   slog.Default(),
		tracer:   otel.Tracer(tracerName),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Verify acquires the text of doc and checks it against claims.
//
// Only input-contract violations and cancellation return an error. A
// document without usable text still yields a full MISMATCH result whose
// trace records why.
func (s *Service) Verify(ctx context.Context, doc certificate.Document, claims certificate.Claims) (*certificate.Result, error) {
	start := time.Now()
	policy := s.policies.Current()
	submitted, err := validateClaims(claims, policy)
	if err != nil {
		return nil, err
	}
	if s.source == nil {
		return nil, dErrors.New(dErrors.CodeUnavailable, "no text source configured")
	}

	text, err := s.acquire(ctx, doc)
	if err != nil {
		return nil, err
	}

	result, err := s.run(ctx, text, submitted, policy)
	if err != nil {
		return nil, err
	}
	s.finish(ctx, result, start)
	return result, nil
}

// VerifyText runs the pipeline on text the caller already has.
func (s *Service) VerifyText(ctx context.Context, text certificate.TextDocument, claims certificate.Claims) (*certificate.Result, error) {
	start := time.Now()
	policy := s.policies.Current()
	submitted, err := validateClaims(claims, policy)
	if err != nil {
		return nil, err
	}
	result, err := s.run(ctx, text, submitted, policy)
	if err != nil {
		return nil, err
	}
	s.finish(ctx, result, start)
	return result, nil
}

func (s *Service) acquire(ctx context.Context, doc certificate.Document) (certificate.TextDocument, error) {
	ctx, span := s.tracer.Start(ctx, "verification.acquire",
		trace.WithAttributes(attribute.String("document.format", string(doc.Format))))
	defer span.End()

	start := time.Now()
	text, err := s.source.Acquire(ctx, doc)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			span.SetStatus(codes.Error, ctxErr.Error())
			return certificate.TextDocument{}, ctxErr
		}
		span.RecordError(err)
		s.logger.WarnContext(ctx, "text acquisition failed",
			"request_id", requestcontext.RequestID(ctx),
			"filename", doc.Filename,
			"error", err,
		)
		text = certificate.TextDocument{Quality: certificate.QualityNone, Failure: err.Error()}
	}
	if text.Quality == "" {
		text.Quality = certificate.QualityNone
	}

	s.metrics.ObserveAcquisition(string(text.Quality), time.Since(start))
	if text.Quality == certificate.QualityOCRFallback || text.Quality == certificate.QualityMerged || text.Quality == certificate.QualityImageOCR {
		s.metrics.IncrementOCRFallback()
	}
	span.SetAttributes(
		attribute.String("text.quality", string(text.Quality)),
		attribute.Int("text.lines", len(text.Lines)),
	)
	return text, nil
}

// run is the pipeline proper. The trace is created here and dropped with
// everything else if ctx is cancelled between stages.
func (s *Service) run(ctx context.Context, text certificate.TextDocument, submitted []certificate.SubmittedField, policy certificate.Policy) (*certificate.Result, error) {
	tr := diagnostics.New()
	recordAcquisition(tr, text)

	// EXTRACTING
	tr.Add(diagnostics.StagePipeline, "state entered", "state", StateExtracting)
	extracted, err := s.extract(ctx, text, policy, tr)
	if err != nil {
		return nil, err
	}

	// COMPARING
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	tr.Add(diagnostics.StagePipeline, "state entered", "state", StateComparing)
	comparisons := s.compare(ctx, submitted, extracted, policy, tr)

	// AGGREGATING
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	tr.Add(diagnostics.StagePipeline, "state entered", "state", StateAggregating)
	_, span := s.tracer.Start(ctx, "verification.aggregate")
	outcome := aggregate.Aggregate(comparisons, policy)
	span.SetAttributes(
		attribute.String("verification.status", string(outcome.Status)),
		attribute.Float64("verification.confidence", outcome.Confidence),
	)
	span.End()
	tr.Add(diagnostics.StageAggregation, "status decided",
		"status", outcome.Status, "confidence", outcome.Confidence, "reason", outcome.Reason)

	tr.Add(diagnostics.StagePipeline, "state entered", "state", StateDone)
	return &certificate.Result{
		Status:      outcome.Status,
		Confidence:  outcome.Confidence,
		Quality:     text.Quality,
		Extracted:   extracted,
		Comparisons: comparisons,
		Trace:       tr,
	}, nil
}

func recordAcquisition(tr *diagnostics.Trace, text certificate.TextDocument) {
	tr.Add(diagnostics.StageAcquisition, "text received",
		"quality", text.Quality, "lines", len(text.Lines), "pages", text.Pages)
	if text.OCRConfidence > 0 {
		tr.Add(diagnostics.StageAcquisition, "ocr confidence", "mean", text.OCRConfidence)
	}
	for _, w := range text.Warnings {
		tr.Add(diagnostics.StageAcquisition, "warning", "message", w)
	}
	if text.Failure != "" {
		tr.Add(diagnostics.StageAcquisition, "upstream failure", "reason", text.Failure)
	}
}

func (s *Service) extract(ctx context.Context, text certificate.TextDocument, policy certificate.Policy, tr *diagnostics.Trace) (map[certificate.FieldKind]certificate.ExtractedField, error) {
	ctx, span := s.tracer.Start(ctx, "verification.extract")
	defer span.End()

	extracted, err := extraction.New(policy).Extract(ctx, text.Lines, tr)
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	n := normalize.New(policy)
	for _, kind := range certificate.AllFields {
		f := extracted[kind]
		if !f.Found() {
			continue
		}
		f.Normalized = n.Value(kind, f.Raw)
		extracted[kind] = f
		tr.Add(diagnostics.StageNormalization, "extracted value normalized",
			"field", kind, "raw", f.Raw, "normalized", f.Normalized.Value, "present", f.Normalized.Present)
		if f.Normalized.LengthMismatch {
			tr.Add(diagnostics.StageNormalization, "national id length mismatch",
				"side", "extracted", "digits", len(f.Normalized.Value), "expected", policy.NationalIDLength)
		}
		s.metrics.IncrementMethod(string(kind), string(f.Method))
	}
	span.SetAttributes(attribute.Int("extraction.score", extraction.Score(extracted)))
	return extracted, nil
}

func (s *Service) compare(ctx context.Context, submitted []certificate.SubmittedField, extracted map[certificate.FieldKind]certificate.ExtractedField, policy certificate.Policy, tr *diagnostics.Trace) map[certificate.FieldKind]certificate.FieldComparison {
	_, span := s.tracer.Start(ctx, "verification.compare")
	defer span.End()

	n := normalize.New(policy)
	c := compare.New(policy)
	out := make(map[certificate.FieldKind]certificate.FieldComparison, len(submitted))
	for _, sub := range submitted {
		sub.Normalized = n.Value(sub.Kind, sub.Raw)
		tr.Add(diagnostics.StageNormalization, "submitted value normalized",
			"field", sub.Kind, "raw", sub.Raw, "normalized", sub.Normalized.Value, "present", sub.Normalized.Present)
		if sub.Normalized.LengthMismatch {
			tr.Add(diagnostics.StageNormalization, "national id length mismatch",
				"side", "submitted", "digits", len(sub.Normalized.Value), "expected", policy.NationalIDLength)
		}

		ext, ok := extracted[sub.Kind]
		if !ok {
			ext = certificate.NotFound(sub.Kind)
		}
		cmp := c.Compare(sub, ext)
		out[sub.Kind] = cmp
		tr.Add(diagnostics.StageComparison, "field compared",
			"field", sub.Kind, "verdict", cmp.Verdict, "score", cmp.Score, "details", cmp.Details)
		s.metrics.IncrementVerdict(string(sub.Kind), string(cmp.Verdict))
	}
	span.SetAttributes(attribute.Int("comparison.fields", len(out)))
	return out
}

func (s *Service) finish(ctx context.Context, result *certificate.Result, start time.Time) {
	elapsed := time.Since(start)
	s.metrics.IncrementOutcome(string(result.Status))
	s.metrics.ObservePipeline(elapsed)
	s.logger.InfoContext(ctx, "certificate verified",
		"request_id", requestcontext.RequestID(ctx),
		"status", result.Status,
		"confidence", result.Confidence,
		"quality", result.Quality,
		"duration_ms", elapsed.Milliseconds(),
	)
}

// validateClaims rejects requests missing a required field and turns the
// remaining non-blank claims into submitted fields in result order.
func validateClaims(claims certificate.Claims, policy certificate.Policy) ([]certificate.SubmittedField, error) {
	var missing []string
	for _, kind := range policy.Required() {
		if strings.TrimSpace(claims[kind]) == "" {
			missing = append(missing, string(kind))
		}
	}
	if len(missing) > 0 {
		return nil, dErrors.New(dErrors.CodeValidation, fmt.Sprintf("missing required field: %s", strings.Join(missing, ", ")))
	}

	var out []certificate.SubmittedField
	for _, kind := range certificate.AllFields {
		raw := strings.TrimSpace(claims[kind])
		if raw == "" {
			continue
		}
		out = append(out, certificate.SubmittedField{Kind: kind, Raw: raw})
	}
	if len(out) == 0 {
		return nil, dErrors.New(dErrors.CodeValidation, "at least one field must be submitted")
	}
	return out, nil
}

// IsInputError reports whether err is an input-contract violation that
// callers should surface as a client error.
func IsInputError(err error) bool {
	if err == nil {
		return false
	}
	switch dErrors.CodeOf(err) {
	case dErrors.CodeValidation, dErrors.CodeBadRequest, dErrors.CodeUnsupportedMedia, dErrors.CodePayloadTooLarge:
		return true
	}
	return false
}
