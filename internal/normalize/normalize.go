// Package normalize canonicalizes extracted and submitted field values.
//
// Every function here is deterministic, stateless and idempotent, and the
// same function is applied to both sides of a comparison.
package normalize

import (
	"regexp"
	"strings"
	"unicode"

	"github.com/shopspring/decimal"
	"golang.org/x/text/unicode/norm"

	"certverify/internal/arabic"
	"certverify/internal/certificate"
)

// Normalizer applies per-kind rules. The only tunable is the expected
// national ID length.
type Normalizer struct {
	nationalIDLength int
}

// New creates a Normalizer for the given policy.
func New(policy certificate.Policy) *Normalizer {
	return &Normalizer{nationalIDLength: policy.NationalIDLength}
}

// Value normalizes a raw value of kind.
func (n *Normalizer) Value(kind certificate.FieldKind, raw string) certificate.Normalized {
	switch kind {
	case certificate.FieldFullName:
		return present(Text(raw))
	case certificate.FieldUniversity, certificate.FieldMajor:
		return present(Institution(raw))
	case certificate.FieldGPA:
		return present(GPA(raw))
	case certificate.FieldNationalID:
		digits := NationalID(raw)
		return certificate.Normalized{
			Value:          digits,
			Present:        digits != "",
			LengthMismatch: digits != "" && len(digits) != n.nationalIDLength,
		}
	case certificate.FieldDegree:
		return present(Degree(raw))
	}
	return certificate.Normalized{}
}

func present(v string) certificate.Normalized {
	return certificate.Normalized{Value: v, Present: v != ""}
}

// Text normalizes free text: NFKC (which also resolves Arabic presentation
// forms), diacritic and tatweel removal, letter unification, ASCII digits,
// lower case, punctuation to spaces and whitespace collapse.
func Text(raw string) string {
	s := norm.NFKC.String(raw)
	s = arabic.FoldString(s)
	s = strings.Map(func(r rune) rune {
		if unicode.IsPunct(r) || unicode.IsSymbol(r) {
			return ' '
		}
		return r
	}, s)
	return strings.Join(strings.Fields(s), " ")
}

// Institution normalizes a university or major value and drops generic
// institution words. When only generic words remain the text form is kept.
func Institution(raw string) string {
	t := Text(raw)
	tokens := strings.Fields(t)
	kept := tokens[:0:0]
	for _, tok := range tokens {
		if !isGeneric(tok) {
			kept = append(kept, tok)
		}
	}
	if len(kept) == 0 {
		return t
	}
	return strings.Join(kept, " ")
}

func isGeneric(tok string) bool {
	for _, g := range arabic.GenericInstitutionWords {
		if tok == g {
			return true
		}
	}
	return false
}

var reNumber = regexp.MustCompile(`\d+(?:[.,]\d+)?`)

// GPA returns the first numeric token with two decimal places, or "" when
// the text holds no number.
func GPA(raw string) string {
	s := arabic.NormalizeDigits(norm.NFKC.String(raw))
	m := reNumber.FindString(s)
	if m == "" {
		return ""
	}
	d, err := decimal.NewFromString(strings.Replace(m, ",", ".", 1))
	if err != nil {
		return ""
	}
	return d.StringFixed(2)
}

// NationalID keeps only the digits.
func NationalID(raw string) string {
	s := arabic.NormalizeDigits(norm.NFKC.String(raw))
	var b strings.Builder
	for _, r := range s {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// Degree maps degree text to BACHELOR, MASTER or UNKNOWN; empty input stays
// empty.
func Degree(raw string) string {
	t := Text(raw)
	if t == "" {
		return ""
	}
	// keep dots for "b.sc"-style abbreviations
	dotted := strings.ToLower(arabic.FoldString(norm.NFKC.String(raw)))
	switch {
	case hasKeyword(t, dotted, arabic.MasterKeywords):
		return certificate.DegreeMaster
	case hasKeyword(t, dotted, arabic.BachelorKeywords):
		return certificate.DegreeBachelor
	}
	return certificate.DegreeUnknown
}

// DegreeKeyword reports the canonical degree named in a folded line, if any.
func DegreeKeyword(folded string) string {
	switch {
	case hasKeyword(folded, folded, arabic.MasterKeywords):
		return certificate.DegreeMaster
	case hasKeyword(folded, folded, arabic.BachelorKeywords):
		return certificate.DegreeBachelor
	}
	return ""
}

func hasKeyword(plain, dotted string, keywords []string) bool {
	for _, k := range keywords {
		if strings.Contains(k, ".") {
			if arabic.ContainsWord(dotted, k) {
				return true
			}
			continue
		}
		if arabic.ContainsArabic(k) {
			if strings.Contains(plain, k) {
				return true
			}
			continue
		}
		if arabic.ContainsWord(plain, k) {
			return true
		}
	}
	return false
}
