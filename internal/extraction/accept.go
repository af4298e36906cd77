package extraction

import (
	"regexp"
	"slices"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/shopspring/decimal"

	"certverify/internal/arabic"
	"certverify/internal/certificate"
	"certverify/internal/normalize"
)

const (
	maxNameTokens = 5
	minIDDigits   = 7
	maxIDDigits   = 18
)

var (
	gpaMin = decimal.Zero
	gpaMax = decimal.NewFromInt(5)

	reNumber  = regexp.MustCompile(`\d+(?:[.,]\d+)?`)
	reIDDigit = regexp.MustCompile(`\d[\d\s\-]*\d`)
)

const valueCutset = " \t:-–—=|.،,;"

// accept validates a candidate value for kind and returns it cleaned, or an
// empty value and the reason it was rejected.
func accept(kind certificate.FieldKind, value string) (string, string) {
	v := strings.Trim(value, valueCutset)
	if v == "" {
		return "", "empty value"
	}
	switch kind {
	case certificate.FieldFullName:
		return acceptName(v)
	case certificate.FieldUniversity:
		return acceptUniversity(v)
	case certificate.FieldMajor:
		if utf8.RuneCountInString(v) < 2 || !strings.ContainsFunc(v, unicode.IsLetter) {
			return "", "not a major"
		}
		return v, ""
	case certificate.FieldGPA:
		return acceptGPA(v)
	case certificate.FieldNationalID:
		return acceptNationalID(v)
	case certificate.FieldDegree:
		if normalize.DegreeKeyword(arabic.FoldString(v)) == "" {
			return "", "unrecognized degree"
		}
		return v, ""
	}
	return "", "unknown field"
}

func acceptName(v string) (string, string) {
	var kept []string
	weak := 0
	for _, t := range tokens(v) {
		if t.folded == "" || slices.Contains(nameStops, t.folded) {
			continue
		}
		if slices.Contains(weakTokens, t.folded) {
			weak++
		}
		kept = append(kept, t.text)
	}
	if len(kept) > maxNameTokens {
		kept = kept[:maxNameTokens]
	}
	name := strings.Join(kept, " ")
	switch {
	case utf8.RuneCountInString(name) < 3:
		return "", "too short for a name"
	case hasDigit(name):
		return "", "name contains digits"
	case hasInstitutionWord(name):
		return "", "institution word in name"
	case weak >= 2:
		return "", "function words in name"
	}
	return name, ""
}

func acceptUniversity(v string) (string, string) {
	folded := normalize.Text(v)
	switch {
	case utf8.RuneCountInString(folded) < 2:
		return "", "too short for an institution"
	case arabic.IsMonth(folded):
		return "", "month, not an institution"
	case hasDigit(v):
		return "", "institution contains digits"
	}
	return v, ""
}

func acceptGPA(v string) (string, string) {
	num, ok := submatch(reNumber, v, 0)
	if !ok {
		return "", "no number"
	}
	d, err := decimal.NewFromString(normalize.GPA(num))
	if err != nil {
		return "", "no number"
	}
	if d.LessThan(gpaMin) || d.GreaterThan(gpaMax) {
		return "", "gpa out of range"
	}
	return num, ""
}

func acceptNationalID(v string) (string, string) {
	run, ok := submatch(reIDDigit, v, 0)
	if !ok {
		return "", "no digits"
	}
	n := len(normalize.NationalID(run))
	if n < minIDDigits || n > maxIDDigits {
		return "", "digit count out of range"
	}
	return strings.TrimSpace(run), ""
}

func hasInstitutionWord(s string) bool {
	for _, t := range tokens(s) {
		if slices.Contains(institutions, t.folded) {
			return true
		}
	}
	return false
}

// looksLikePersonName is a stricter check used when deciding to move a value
// from an institution field to the name.
func looksLikePersonName(v string) bool {
	toks := tokens(v)
	if len(toks) < 2 || len(toks) > maxNameTokens {
		return false
	}
	arabicTokens, weak := 0, 0
	for _, t := range toks {
		if utf8.RuneCountInString(t.text) < 2 || strings.ContainsFunc(t.text, func(r rune) bool { return !unicode.IsLetter(r) }) {
			return false
		}
		if arabic.ContainsArabic(t.text) {
			arabicTokens++
		}
		if slices.Contains(weakTokens, t.folded) {
			weak++
		}
		if slices.Contains(institutions, t.folded) {
			return false
		}
	}
	if arabic.ContainsArabic(v) && arabicTokens < 2 {
		return false
	}
	return weak < 2
}
