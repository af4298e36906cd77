// Package extraction turns ordered document text lines into one
// ExtractedField per field kind.
//
// Each kind has an ordered plan of strategies. A strategy is a pure function
// of the prepared document; it either returns a value or the reason it gave
// up, and the next strategy in the plan is tried. Every decision is written
// to the run's diagnostic trace with the order index of the line involved.
package extraction

import (
	"context"

	"certverify/internal/arabic"
	"certverify/internal/certificate"
	"certverify/internal/diagnostics"
)

// Attempt is the outcome of one strategy. An empty Value means the strategy
// failed for Reason.
type Attempt struct {
	Value  string
	Anchor string
	Line   int
	Reason string
}

type strategyFunc func(d *document, kind certificate.FieldKind, p certificate.Policy, rec *diagnostics.Trace) Attempt

type strategy struct {
	method certificate.Method
	apply  strategyFunc
}

var (
	labeledStrategy    = strategy{certificate.MethodLabeled, labeled}
	positionalStrategy = strategy{certificate.MethodPositional, positional}
	boxedStrategy      = strategy{certificate.MethodBoxed, boxed}
)

var plans = map[certificate.FieldKind][]strategy{
	certificate.FieldFullName:   {labeledStrategy, positionalStrategy},
	certificate.FieldUniversity: {labeledStrategy, positionalStrategy},
	certificate.FieldMajor:      {labeledStrategy, positionalStrategy},
	certificate.FieldGPA:        {labeledStrategy, positionalStrategy},
	certificate.FieldNationalID: {labeledStrategy, positionalStrategy, boxedStrategy},
	certificate.FieldDegree:     {labeledStrategy, positionalStrategy},
}

// Extractor runs the per-field plans under one policy snapshot.
type Extractor struct {
	policy certificate.Policy
}

// New creates an Extractor.
func New(policy certificate.Policy) *Extractor {
	return &Extractor{policy: policy}
}

// Extract returns an entry for every field kind; kinds nothing could be found
// for are NOT_FOUND. Only context cancellation produces an error.
//
// When the text carries reversed-order label hints the plans also run on a
// copy with Arabic letter runs flipped, and the copy wins only if it yields a
// strictly higher extraction score.
func (e *Extractor) Extract(ctx context.Context, lines []certificate.TextLine, trace *diagnostics.Trace) (map[certificate.FieldKind]certificate.ExtractedField, error) {
	doc := prepare(lines)
	if n := doc.textLength(); n < e.policy.MinTextLength {
		trace.Add(diagnostics.StageExtraction, "insufficient text", "length", n, "min", e.policy.MinTextLength)
	}

	fields, rec, err := e.run(ctx, doc)
	if err != nil {
		return nil, err
	}

	if arabic.HasReversedHints(doc.joined()) {
		revFields, revRec, err := e.run(ctx, doc.reversed())
		if err != nil {
			return nil, err
		}
		normal, reversed := Score(fields), Score(revFields)
		chosen := "normal"
		if reversed > normal {
			fields, rec, chosen = revFields, revRec, "reversed"
		}
		trace.Add(diagnostics.StageExtraction, "reversed variant evaluated",
			"normal_score", normal, "reversed_score", reversed, "chosen", chosen)
	}
	trace.Append(rec)

	repair(fields, trace)
	return fields, nil
}

func (e *Extractor) run(ctx context.Context, doc *document) (map[certificate.FieldKind]certificate.ExtractedField, *diagnostics.Trace, error) {
	rec := diagnostics.New()
	fields := make(map[certificate.FieldKind]certificate.ExtractedField, len(certificate.AllFields))
	for _, kind := range certificate.AllFields {
		if err := ctx.Err(); err != nil {
			return nil, nil, err
		}
		fields[kind] = e.extractField(doc, kind, rec)
	}
	return fields, rec, nil
}

func (e *Extractor) extractField(doc *document, kind certificate.FieldKind, rec *diagnostics.Trace) certificate.ExtractedField {
	for _, s := range plans[kind] {
		a := s.apply(doc, kind, e.policy, rec)
		if a.Value == "" {
			rec.Add(diagnostics.StageExtraction, "strategy failed",
				"field", kind, "method", s.method, "reason", a.Reason)
			continue
		}
		rec.Add(diagnostics.StageExtraction, "field extracted",
			"field", kind, "method", s.method, "line", a.Line, "value", a.Value)
		return certificate.ExtractedField{
			Kind:   kind,
			Raw:    a.Value,
			Method: s.method,
			Anchor: a.Anchor,
			Line:   a.Line,
		}
	}
	rec.Add(diagnostics.StageExtraction, "field not found", "field", kind)
	return certificate.NotFound(kind)
}

// Score weighs found fields: two points for each descriptive or name field
// and one for the national id, which is often reconstructed from fragments.
func Score(fields map[certificate.FieldKind]certificate.ExtractedField) int {
	score := 0
	for kind, f := range fields {
		if !f.Found() {
			continue
		}
		if kind == certificate.FieldNationalID {
			score++
			continue
		}
		score += 2
	}
	return score
}
