package extraction

import (
	"cmp"
	"regexp"
	"slices"
	"strings"
	"unicode"
	"unicode/utf8"

	"golang.org/x/text/unicode/norm"

	"certverify/internal/arabic"
	"certverify/internal/certificate"
)

// line is a TextLine prepared for matching: NFKC text, its folded form and
// the label spans found in it.
type line struct {
	index  int
	text   string
	folded arabic.Folded
	region *certificate.Region
	spans  []span
}

// span is a label occurrence in folded text.
type span struct {
	start, end int
	kind       certificate.FieldKind
}

type document struct {
	lines []line
}

func prepare(lines []certificate.TextLine) *document {
	ordered := slices.Clone(lines)
	slices.SortStableFunc(ordered, func(a, b certificate.TextLine) int {
		return cmp.Compare(a.Index, b.Index)
	})

	d := &document{lines: make([]line, 0, len(ordered))}
	for _, l := range ordered {
		text := strings.TrimSpace(norm.NFKC.String(l.Content))
		if text == "" {
			continue
		}
		f := arabic.Fold(text)
		d.lines = append(d.lines, line{
			index:  l.Index,
			text:   text,
			folded: f,
			region: l.Region,
			spans:  findSpans(f.Text),
		})
	}
	return d
}

func (d *document) textLength() int {
	n := 0
	for _, l := range d.lines {
		n += utf8.RuneCountInString(l.text)
	}
	return n
}

func (d *document) joined() string {
	parts := make([]string, len(d.lines))
	for i, l := range d.lines {
		parts[i] = l.text
	}
	return strings.Join(parts, "\n")
}

// reversed returns a copy with every Arabic letter run flipped.
func (d *document) reversed() *document {
	lines := make([]certificate.TextLine, len(d.lines))
	for i, l := range d.lines {
		lines[i] = certificate.TextLine{Content: arabic.FixReversed(l.text), Index: l.index, Region: l.region}
	}
	return prepare(lines)
}

type labelVariant struct {
	folded string
	kind   certificate.FieldKind
}

var (
	labelVariants = buildLabels()

	markerTokens  = lastTokens(arabic.CertifyMarkers)
	verbTokens    = foldAll(arabic.CertifyVerbs)
	birthTokens   = foldAll(arabic.BirthMarkers)
	nameStops     = foldAll(arabic.NameStopTokens)
	institutions  = foldAll(arabic.InstitutionWords)
	weakTokens    = foldAll(arabic.WeakTokens)
	valueStops    = foldAll(arabic.ValueStopWords)
	gpaKeywords   = foldAll(arabic.GPAKeywords)
	labelStarters = labelFirstTokens()
)

func buildLabels() []labelVariant {
	byKind := map[certificate.FieldKind][]string{
		certificate.FieldFullName:   arabic.NameLabels,
		certificate.FieldUniversity: arabic.UniversityLabels,
		certificate.FieldMajor:      arabic.MajorLabels,
		certificate.FieldGPA:        arabic.GPALabels,
		certificate.FieldNationalID: arabic.NationalIDLabels,
		certificate.FieldDegree:     arabic.DegreeLabels,
	}
	seen := make(map[string]bool)
	var out []labelVariant
	for _, kind := range certificate.AllFields {
		for _, l := range byKind[kind] {
			f := arabic.FoldString(l)
			if seen[f] {
				continue
			}
			seen[f] = true
			out = append(out, labelVariant{folded: f, kind: kind})
		}
	}
	slices.SortStableFunc(out, func(a, b labelVariant) int {
		return cmp.Compare(len(b.folded), len(a.folded))
	})
	return out
}

// findSpans locates label variants greedily, longest first, so that
// "اسم الجامعة" is a university label and not a name label.
func findSpans(folded string) []span {
	var spans []span
	for _, lv := range labelVariants {
		for from := 0; ; {
			i := arabic.IndexWord(folded, lv.folded, from)
			if i < 0 {
				break
			}
			s := span{start: i, end: i + len(lv.folded), kind: lv.kind}
			if !overlaps(spans, s) {
				spans = append(spans, s)
			}
			from = s.end
		}
	}
	slices.SortFunc(spans, func(a, b span) int { return cmp.Compare(a.start, b.start) })
	return spans
}

func overlaps(spans []span, s span) bool {
	for _, o := range spans {
		if s.start < o.end && o.start < s.end {
			return true
		}
	}
	return false
}

func foldAll(words []string) []string {
	out := make([]string, len(words))
	for i, w := range words {
		out[i] = arabic.FoldString(w)
	}
	return out
}

func lastTokens(phrases []string) []string {
	var out []string
	for _, p := range phrases {
		fields := strings.Fields(arabic.FoldString(p))
		if len(fields) > 0 && !slices.Contains(out, fields[len(fields)-1]) {
			out = append(out, fields[len(fields)-1])
		}
	}
	return out
}

func labelFirstTokens() []string {
	var out []string
	for _, lv := range labelVariants {
		first := strings.Fields(lv.folded)[0]
		if !slices.Contains(out, first) {
			out = append(out, first)
		}
	}
	return out
}

// token is a whitespace-separated word with surrounding punctuation removed.
type token struct {
	text   string
	folded string
}

func tokens(text string) []token {
	fields := strings.Fields(text)
	out := make([]token, 0, len(fields))
	for _, f := range fields {
		clean := strings.TrimFunc(f, isPunct)
		out = append(out, token{text: clean, folded: arabic.FoldString(clean)})
	}
	return out
}

func isPunct(r rune) bool {
	return unicode.IsPunct(r) || unicode.IsSymbol(r)
}

func hasDigit(s string) bool {
	return strings.ContainsFunc(arabic.NormalizeDigits(s), func(r rune) bool {
		return r >= '0' && r <= '9'
	})
}

// submatch runs re against the ASCII-digit form of s and returns the
// matched group cut from s itself, so Arabic-Indic digits survive.
func submatch(re *regexp.Regexp, s string, group int) (string, bool) {
	ascii := arabic.NormalizeDigits(s)
	m := re.FindStringSubmatchIndex(ascii)
	if m == nil || m[2*group] < 0 {
		return "", false
	}
	rs := []rune(s)
	a := utf8.RuneCountInString(ascii[:m[2*group]])
	b := utf8.RuneCountInString(ascii[:m[2*group+1]])
	return string(rs[a:b]), true
}

const maxSnippet = 80

func snippet(s string) string {
	rs := []rune(s)
	if len(rs) <= maxSnippet {
		return s
	}
	return string(rs[:maxSnippet]) + "…"
}
