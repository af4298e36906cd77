// Package aggregate turns per-field comparisons into a confidence score and
// an overall status.
package aggregate

import (
	"fmt"
	"math"

	"certverify/internal/certificate"
)

// Outcome is the aggregated decision with a human readable reason.
type Outcome struct {
	Status     certificate.Status
	Confidence float64
	Reason     string
}

// Aggregate is a pure function of the comparison set and policy.
//
// Confidence is the weighted mean of scores rounded to two decimals. Any
// DIFFERENT identity field or a confidence below the low threshold is a
// MISMATCH; all-accepting comparisons at or above the match threshold are a
// MATCH; everything else is PARTIAL_MATCH.
func Aggregate(comparisons map[certificate.FieldKind]certificate.FieldComparison, policy certificate.Policy) Outcome {
	if len(comparisons) == 0 {
		return Outcome{Status: certificate.StatusMismatch, Reason: "no fields to compare"}
	}

	var weighted, total float64
	allAccepting := true
	for _, kind := range certificate.AllFields {
		c, ok := comparisons[kind]
		if !ok {
			continue
		}
		w := policy.Weights.Of(kind)
		weighted += w * c.Score
		total += w
		if !c.Verdict.Accepting() {
			allAccepting = false
		}
	}

	confidence := 0.0
	if total > 0 {
		confidence = math.Round(weighted/total*100) / 100
	}

	for _, kind := range certificate.AllFields {
		c, ok := comparisons[kind]
		if ok && kind.IdentitySensitive() && c.Verdict == certificate.VerdictDifferent {
			return Outcome{
				Status:     certificate.StatusMismatch,
				Confidence: confidence,
				Reason:     fmt.Sprintf("identity field %s differs", kind),
			}
		}
	}

	switch {
	case confidence < policy.LowThreshold:
		return Outcome{
			Status:     certificate.StatusMismatch,
			Confidence: confidence,
			Reason:     fmt.Sprintf("confidence %.2f below %.2f", confidence, policy.LowThreshold),
		}
	case allAccepting && confidence >= policy.MatchThreshold:
		return Outcome{
			Status:     certificate.StatusMatch,
			Confidence: confidence,
			Reason:     "all fields agree",
		}
	}
	return Outcome{
		Status:     certificate.StatusPartialMatch,
		Confidence: confidence,
		Reason:     "some fields missing or differing",
	}
}
