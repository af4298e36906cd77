package arabic

import (
	"strings"
	"unicode"
	"unicode/utf8"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
)

const tatweel = 'ـ'

// IsDiacritic reports whether r is a tashkeel mark, a Quranic annotation
// sign or tatweel. These carry no identity information.
func IsDiacritic(r rune) bool {
	switch {
	case r >= 0x064B && r <= 0x065F:
		return true
	case r == 0x0670:
		return true
	case r >= 0x06D6 && r <= 0x06ED:
		return true
	case r == tatweel:
		return true
	}
	return false
}

// IsArabicLetter reports whether r is a letter in the Arabic block.
func IsArabicLetter(r rune) bool {
	return r >= 0x0600 && r <= 0x06FF && unicode.IsLetter(r)
}

// ContainsArabic reports whether s has at least one Arabic letter.
func ContainsArabic(s string) bool {
	for _, r := range s {
		if IsArabicLetter(r) {
			return true
		}
	}
	return false
}

// NormalizeDigits maps Arabic-Indic digit forms and separators to ASCII.
func NormalizeDigits(s string) string {
	return strings.Map(func(r rune) rune {
		if d, ok := digitForms[r]; ok {
			return d
		}
		return r
	}, s)
}

var stripMarks = runes.Remove(runes.Predicate(IsDiacritic))

// StripDiacritics removes tashkeel and tatweel.
func StripDiacritics(s string) string {
	out, _, err := transform.String(stripMarks, s)
	if err != nil {
		return s
	}
	return out
}

// UnifyLetters maps alef/hamza/yeh/teh-marbuta variants to one form.
func UnifyLetters(s string) string {
	return strings.Map(func(r rune) rune {
		if u, ok := letterForms[r]; ok {
			return u
		}
		return r
	}, s)
}

// FoldRune maps a single rune to its comparison form: ASCII digits, unified
// letters and lower case. It is the identity for everything else.
func FoldRune(r rune) rune {
	if d, ok := digitForms[r]; ok {
		return d
	}
	if u, ok := letterForms[r]; ok {
		return u
	}
	return unicode.ToLower(r)
}

// Folded is a comparison-friendly rendering of a string that remembers where
// each of its bytes came from, so a match found in the folded text can be
// cut out of the original.
type Folded struct {
	Text string
	orig string
	src  []int
}

// Fold drops diacritics and folds every remaining rune with FoldRune.
func Fold(s string) Folded {
	var b strings.Builder
	b.Grow(len(s))
	src := make([]int, 0, len(s)+1)
	for i, r := range s {
		if IsDiacritic(r) {
			continue
		}
		f := FoldRune(r)
		b.WriteRune(f)
		for range utf8.RuneLen(f) {
			src = append(src, i)
		}
	}
	src = append(src, len(s))
	return Folded{Text: b.String(), orig: s, src: src}
}

// FoldString is Fold(s).Text.
func FoldString(s string) string {
	return Fold(s).Text
}

// Original returns the original text behind the folded byte range [start, end).
func (f Folded) Original(start, end int) string {
	if start < 0 {
		start = 0
	}
	if end > len(f.Text) {
		end = len(f.Text)
	}
	if start >= end {
		return ""
	}
	return f.orig[f.src[start]:f.src[end]]
}

// IndexWord finds needle in haystack at word boundaries, starting the search
// at byte offset from. Both arguments are expected in folded form.
func IndexWord(haystack, needle string, from int) int {
	if needle == "" {
		return -1
	}
	for from <= len(haystack)-len(needle) {
		i := strings.Index(haystack[from:], needle)
		if i < 0 {
			return -1
		}
		i += from
		if boundaryBefore(haystack, i) && boundaryAfter(haystack, i+len(needle)) {
			return i
		}
		_, size := utf8.DecodeRuneInString(haystack[i:])
		from = i + size
	}
	return -1
}

// ContainsWord reports whether needle occurs in haystack at word boundaries.
func ContainsWord(haystack, needle string) bool {
	return IndexWord(haystack, needle, 0) >= 0
}

func boundaryBefore(s string, i int) bool {
	if i == 0 {
		return true
	}
	r, _ := utf8.DecodeLastRuneInString(s[:i])
	return !isWordRune(r)
}

func boundaryAfter(s string, i int) bool {
	if i >= len(s) {
		return true
	}
	r, _ := utf8.DecodeRuneInString(s[i:])
	return !isWordRune(r)
}

func isWordRune(r rune) bool {
	return unicode.IsLetter(r) || unicode.IsDigit(r)
}

// IsMonth reports whether a folded token is an Arabic month name.
func IsMonth(folded string) bool {
	for _, m := range Months {
		if folded == m {
			return true
		}
	}
	return false
}

// FixReversed reverses every run of Arabic letters in s, repairing text that
// a PDF producer or OCR engine emitted in visual order. Non-letter runes keep
// their positions.
func FixReversed(s string) string {
	rs := []rune(s)
	out := make([]rune, 0, len(rs))
	for i := 0; i < len(rs); {
		if !IsArabicLetter(rs[i]) {
			out = append(out, rs[i])
			i++
			continue
		}
		j := i
		for j < len(rs) && IsArabicLetter(rs[j]) {
			j++
		}
		for k := j - 1; k >= i; k-- {
			out = append(out, rs[k])
		}
		i = j
	}
	return string(out)
}

// ReversalScores counts normal-order and reversed-order label hints in s.
func ReversalScores(s string) (normal, reversed int) {
	for _, h := range normalHints {
		normal += strings.Count(s, h)
	}
	for _, h := range reversedHints {
		reversed += strings.Count(s, h)
	}
	return normal, reversed
}

// LooksReversed reports whether reversed-order hints dominate s.
func LooksReversed(s string) bool {
	normal, reversed := ReversalScores(s)
	return reversed > normal
}

// HasReversedHints reports whether s contains any reversed-order hint.
func HasReversedHints(s string) bool {
	_, reversed := ReversalScores(s)
	return reversed > 0
}

// HintHits counts how many distinct FieldHints occur in s, case-insensitively.
func HintHits(s string) int {
	lower := strings.ToLower(s)
	hits := 0
	for _, h := range FieldHints {
		if strings.Contains(lower, h) {
			hits++
		}
	}
	return hits
}

// StripNoise replaces decorative box glyphs with spaces.
func StripNoise(s string) string {
	return strings.Map(func(r rune) rune {
		if strings.ContainsRune(NoiseGlyphs, r) {
			return ' '
		}
		return r
	}, s)
}

// IsNoiseOnly reports whether s consists solely of noise glyphs and spaces.
func IsNoiseOnly(s string) bool {
	return strings.TrimSpace(StripNoise(s)) == "" && strings.TrimSpace(s) != ""
}
