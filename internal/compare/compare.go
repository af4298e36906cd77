// Package compare scores a submitted field against its extracted value.
package compare

import (
	"fmt"
	"math"
	"sort"
	"strings"
	"unicode/utf8"

	"github.com/agext/levenshtein"
	"github.com/shopspring/decimal"

	"certverify/internal/certificate"
)

// Comparator applies field-specific similarity rules under one policy.
type Comparator struct {
	policy certificate.Policy
}

// New creates a Comparator.
func New(policy certificate.Policy) *Comparator {
	return &Comparator{policy: policy}
}

// Compare produces the comparison for one submitted field.
func (c *Comparator) Compare(submitted certificate.SubmittedField, extracted certificate.ExtractedField) certificate.FieldComparison {
	kind := submitted.Kind
	if !extracted.Found() || !extracted.Normalized.Present {
		return certificate.FieldComparison{
			Kind:    kind,
			Score:   0,
			Verdict: certificate.VerdictMissing,
			Details: "extraction failed",
		}
	}
	if !submitted.Normalized.Present {
		return certificate.FieldComparison{
			Kind:    kind,
			Score:   0,
			Verdict: certificate.VerdictDifferent,
			Details: "submitted value could not be normalized",
		}
	}

	s, e := submitted.Normalized, extracted.Normalized
	var out certificate.FieldComparison
	switch {
	case kind.IsText():
		out = c.text(kind, s.Value, e.Value)
	case kind == certificate.FieldGPA:
		out = c.gpa(s.Value, e.Value)
	case kind == certificate.FieldNationalID:
		out = c.nationalID(s, e)
	case kind == certificate.FieldDegree:
		out = degree(s.Value, e.Value)
	default:
		out = certificate.FieldComparison{Verdict: certificate.VerdictDifferent, Details: "unsupported field"}
	}
	out.Kind = kind
	out.Score = round(out.Score, 4)
	return out
}

// textScores holds the similarity components of a text comparison. Names
// use every component; university and major use direct, sorted and partial.
type textScores struct {
	direct, sorted, partial, tokenSet float64
}

func (t textScores) best() float64 {
	return max(t.direct, t.sorted, t.partial, t.tokenSet)
}

func (c *Comparator) text(kind certificate.FieldKind, submitted, extracted string) certificate.FieldComparison {
	scores := textScores{
		direct:  Similarity(submitted, extracted),
		sorted:  Similarity(sortTokens(submitted), sortTokens(extracted)),
		partial: PartialSimilarity(submitted, extracted),
	}
	if kind == certificate.FieldFullName {
		a, b := dedupeTokens(submitted), dedupeTokens(extracted)
		scores.sorted = max(scores.sorted, Similarity(sortTokens(a), sortTokens(b)))
		scores.tokenSet = TokenSetSimilarity(a, b)
	}
	score := scores.best()

	verdict := certificate.VerdictDifferent
	switch {
	case score >= c.policy.Thresholds.Exact:
		verdict = certificate.VerdictExact
	case score >= c.policy.CloseThreshold(kind):
		verdict = certificate.VerdictClose
	}

	details := fmt.Sprintf("similarity %.2f (direct %.2f, token-sorted %.2f, partial %.2f",
		score, scores.direct, scores.sorted, scores.partial)
	if kind == certificate.FieldFullName {
		details += fmt.Sprintf(", token-set %.2f", scores.tokenSet)
	}
	return certificate.FieldComparison{
		Score:   score,
		Verdict: verdict,
		Details: details + ")",
	}
}

// Similarity is 1 - levenshtein/max rune length. Two empty strings are identical.
func Similarity(a, b string) float64 {
	la, lb := utf8.RuneCountInString(a), utf8.RuneCountInString(b)
	longest := max(la, lb)
	if longest == 0 {
		return 1
	}
	d := levenshtein.Distance(a, b, nil)
	return 1 - float64(d)/float64(longest)
}

// PartialSimilarity aligns the shorter token sequence with every window of
// the same length in the longer one and keeps the best Similarity.
func PartialSimilarity(a, b string) float64 {
	ta, tb := strings.Fields(a), strings.Fields(b)
	if len(ta) > len(tb) {
		ta, tb = tb, ta
	}
	if len(ta) == 0 {
		return Similarity(a, b)
	}
	short := strings.Join(ta, " ")
	best := 0.0
	for i := 0; i+len(ta) <= len(tb); i++ {
		best = max(best, Similarity(short, strings.Join(tb[i:i+len(ta)], " ")))
	}
	return best
}

// TokenSetSimilarity compares the shared tokens against each side's full
// token set, so a name that is a token subset of the other scores 1.
func TokenSetSimilarity(a, b string) float64 {
	setA, setB := tokenSet(a), tokenSet(b)
	var common, onlyA, onlyB []string
	for t := range setA {
		if setB[t] {
			common = append(common, t)
		} else {
			onlyA = append(onlyA, t)
		}
	}
	for t := range setB {
		if !setA[t] {
			onlyB = append(onlyB, t)
		}
	}
	if len(common) == 0 {
		return Similarity(sortTokens(a), sortTokens(b))
	}
	sort.Strings(common)
	sort.Strings(onlyA)
	sort.Strings(onlyB)

	base := strings.Join(common, " ")
	withA := strings.TrimSpace(base + " " + strings.Join(onlyA, " "))
	withB := strings.TrimSpace(base + " " + strings.Join(onlyB, " "))
	return max(Similarity(base, withA), Similarity(base, withB), Similarity(withA, withB))
}

func tokenSet(s string) map[string]bool {
	set := make(map[string]bool)
	for _, t := range strings.Fields(s) {
		set[t] = true
	}
	return set
}

// dedupeTokens drops repeated tokens, keeping first occurrences. OCR
// sometimes emits a name part twice.
func dedupeTokens(s string) string {
	seen := make(map[string]bool)
	var out []string
	for _, t := range strings.Fields(s) {
		if !seen[t] {
			seen[t] = true
			out = append(out, t)
		}
	}
	return strings.Join(out, " ")
}

func sortTokens(s string) string {
	tokens := strings.Fields(s)
	sort.Strings(tokens)
	return strings.Join(tokens, " ")
}

func (c *Comparator) gpa(submitted, extracted string) certificate.FieldComparison {
	s, errS := decimal.NewFromString(submitted)
	e, errE := decimal.NewFromString(extracted)
	if errS != nil || errE != nil {
		return certificate.FieldComparison{Verdict: certificate.VerdictDifferent, Details: "gpa not numeric"}
	}
	diff := s.Sub(e).Abs()
	tol := decimal.NewFromFloat(c.policy.Thresholds.GPATolerance)
	scale := decimal.NewFromFloat(c.policy.Thresholds.GPAScale)

	score, _ := decimal.NewFromInt(1).Sub(diff.Div(scale)).Float64()
	score = clamp(score)

	verdict := certificate.VerdictDifferent
	switch {
	case diff.IsZero():
		verdict = certificate.VerdictExact
	case diff.LessThanOrEqual(tol):
		verdict = certificate.VerdictClose
	}
	return certificate.FieldComparison{
		Score:   score,
		Verdict: verdict,
		Details: fmt.Sprintf("difference %s (tolerance %s)", diff.StringFixed(2), tol.StringFixed(2)),
	}
}

func (c *Comparator) nationalID(submitted, extracted certificate.Normalized) certificate.FieldComparison {
	if submitted.Value == extracted.Value {
		details := "identical"
		if submitted.LengthMismatch {
			details = "identical (unexpected length)"
		}
		return certificate.FieldComparison{Score: 1, Verdict: certificate.VerdictExact, Details: details}
	}

	agreement := DigitAgreement(submitted.Value, extracted.Value)
	score := agreement * c.policy.Thresholds.IdentityPenalty
	details := fmt.Sprintf("digits differ (%.0f%% positional agreement)", agreement*100)
	if submitted.LengthMismatch || extracted.LengthMismatch {
		score *= 0.5
		details += fmt.Sprintf(", length mismatch (%d vs %d digits, expected %d)",
			len(submitted.Value), len(extracted.Value), c.policy.NationalIDLength)
	}
	return certificate.FieldComparison{Score: score, Verdict: certificate.VerdictDifferent, Details: details}
}

// DigitAgreement is the fraction of positions, over the longer string, where
// both strings hold the same digit.
func DigitAgreement(a, b string) float64 {
	longest := max(len(a), len(b))
	if longest == 0 {
		return 0
	}
	same := 0
	for i := 0; i < min(len(a), len(b)); i++ {
		if a[i] == b[i] {
			same++
		}
	}
	return float64(same) / float64(longest)
}

func degree(submitted, extracted string) certificate.FieldComparison {
	if submitted == extracted && submitted != certificate.DegreeUnknown {
		return certificate.FieldComparison{Score: 1, Verdict: certificate.VerdictExact, Details: "same degree"}
	}
	return certificate.FieldComparison{
		Score:   0,
		Verdict: certificate.VerdictDifferent,
		Details: fmt.Sprintf("submitted %s, extracted %s", submitted, extracted),
	}
}

func clamp(v float64) float64 {
	return math.Max(0, math.Min(1, v))
}

func round(v float64, places int) float64 {
	p := math.Pow(10, float64(places))
	return math.Round(v*p) / p
}
