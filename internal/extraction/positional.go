package extraction

import (
	"regexp"
	"slices"
	"strings"

	"certverify/internal/arabic"
	"certverify/internal/certificate"
	"certverify/internal/diagnostics"
	"certverify/internal/normalize"
)

var (
	reGPAOverScale = regexp.MustCompile(`(\d[.,]\d{1,2})\s*/\s*[45](?:[.,]0+)?\b`)
	reScaleOverGPA = regexp.MustCompile(`\b[45]\s*/\s*(\d[.,]\d{1,2})`)
	reGPAValue     = regexp.MustCompile(`\d[.,]\d{1,2}`)
	reNIDMarker    = regexp.MustCompile(`(?i)\bnid\b[\s:\-]*(\d[\d\s\-]*\d)`)
	reIDRun        = regexp.MustCompile(`\d{7,18}`)
	reLongRun      = regexp.MustCompile(`\d{9,15}`)
)

// idWindow is how many lines around an ID marker are searched for digits.
const idWindow = 3

// positional covers fields that sit at a conventional place in the document
// rather than next to a label.
func positional(d *document, kind certificate.FieldKind, p certificate.Policy, rec *diagnostics.Trace) Attempt {
	switch kind {
	case certificate.FieldFullName:
		return positionalName(d, rec)
	case certificate.FieldUniversity:
		return positionalUniversity(d, rec)
	case certificate.FieldMajor:
		return positionalMajor(d, rec)
	case certificate.FieldGPA:
		return positionalGPA(d, rec)
	case certificate.FieldNationalID:
		return positionalNationalID(d, p, rec)
	case certificate.FieldDegree:
		return positionalDegree(d, rec)
	}
	return Attempt{Reason: "no positional rule"}
}

// phrase collects up to limit tokens, stopping at punctuation, digits, stop
// words and the first word of any field label.
func phrase(toks []token, limit int) []string {
	var out []string
	for _, t := range toks {
		if len(out) == limit || t.folded == "" || hasDigit(t.text) || isStop(t.folded) {
			break
		}
		out = append(out, t.text)
	}
	return out
}

func isStop(folded string) bool {
	return slices.Contains(valueStops, folded) ||
		slices.Contains(markerTokens, folded) ||
		slices.Contains(verbTokens, folded) ||
		slices.Contains(birthTokens, folded) ||
		slices.Contains(institutions, folded) ||
		slices.Contains(labelStarters, folded)
}

// positionalName reads the holder's name from certifying prose
// ("تشهد الجامعة بأن الطالب ...") or from the words before a birth marker.
func positionalName(d *document, rec *diagnostics.Trace) Attempt {
	for i, l := range d.lines {
		toks := tokens(l.text)
		verb := i > 0 && containsAny(d.lines[i-1], verbTokens)
		for j, t := range toks {
			if slices.Contains(verbTokens, t.folded) {
				verb = true
				continue
			}
			if !verb || !slices.Contains(markerTokens, t.folded) {
				continue
			}
			candidate := strings.Join(nameTail(toks[j+1:]), " ")
			if v, why := accept(certificate.FieldFullName, candidate); why == "" {
				rec.Add(diagnostics.StageExtraction, "certifying phrase matched", "field", certificate.FieldFullName, "line", l.index)
				return Attempt{Value: v, Anchor: snippet(l.text), Line: l.index}
			} else if candidate != "" {
				rec.Add(diagnostics.StageExtraction, "value rejected",
					"field", certificate.FieldFullName, "line", l.index, "value", candidate, "reason", why)
			}
		}
	}

	for _, l := range d.lines {
		if len(l.spans) > 0 {
			continue
		}
		toks := tokens(l.text)
		for j, t := range toks {
			if j < 2 || !slices.Contains(birthTokens, t.folded) {
				continue
			}
			start := max(0, j-maxNameTokens)
			var words []string
			for _, w := range toks[start:j] {
				words = append(words, w.text)
			}
			candidate := strings.Join(words, " ")
			if !looksLikePersonName(candidate) {
				continue
			}
			if v, why := accept(certificate.FieldFullName, candidate); why == "" {
				rec.Add(diagnostics.StageExtraction, "birth marker matched", "field", certificate.FieldFullName, "line", l.index)
				return Attempt{Value: v, Anchor: snippet(l.text), Line: l.index}
			}
		}
	}
	return Attempt{Reason: "no certifying phrase or birth marker"}
}

// nameTail is phrase with titles such as "الطالب" allowed through; they are
// dropped later by accept.
func nameTail(toks []token) []string {
	var out []string
	for _, t := range toks {
		if slices.Contains(nameStops, t.folded) {
			out = append(out, t.text)
			continue
		}
		if len(out) == maxNameTokens+1 || t.folded == "" || hasDigit(t.text) || isStop(t.folded) {
			break
		}
		out = append(out, t.text)
	}
	return out
}

func positionalUniversity(d *document, rec *diagnostics.Trace) Attempt {
	for _, l := range d.lines {
		toks := tokens(l.text)
		for j, t := range toks {
			var candidate string
			switch t.folded {
			case "جامعه":
				if rest := phrase(toks[j+1:], 3); len(rest) > 0 {
					candidate = t.text + " " + strings.Join(rest, " ")
				}
			case "university":
				if j+1 < len(toks) && toks[j+1].folded == "of" {
					if rest := phrase(toks[j+2:], 3); len(rest) > 0 {
						candidate = t.text + " of " + strings.Join(rest, " ")
					}
				} else if lead := latinBefore(toks[:j], 3); len(lead) > 0 {
					candidate = strings.Join(lead, " ") + " " + t.text
				}
			}
			if candidate == "" {
				continue
			}
			v, why := accept(certificate.FieldUniversity, candidate)
			if why != "" {
				rec.Add(diagnostics.StageExtraction, "value rejected",
					"field", certificate.FieldUniversity, "line", l.index, "value", candidate, "reason", why)
				continue
			}
			rec.Add(diagnostics.StageExtraction, "institution phrase matched", "field", certificate.FieldUniversity, "line", l.index)
			return Attempt{Value: v, Anchor: snippet(l.text), Line: l.index}
		}
	}
	return Attempt{Reason: "no institution phrase"}
}

// latinBefore returns up to limit Latin words directly preceding the end of
// toks, in reading order.
func latinBefore(toks []token, limit int) []string {
	var out []string
	for k := len(toks) - 1; k >= 0 && len(out) < limit; k-- {
		t := toks[k]
		if t.folded == "" || arabic.ContainsArabic(t.text) || hasDigit(t.text) || isStop(t.folded) || t.folded == "the" {
			break
		}
		out = append([]string{t.text}, out...)
	}
	return out
}

var majorHeads = []string{"كليه", "قسم", "faculty", "department", "college"}

func positionalMajor(d *document, rec *diagnostics.Trace) Attempt {
	for _, l := range d.lines {
		toks := tokens(l.text)
		for j, t := range toks {
			if !slices.Contains(majorHeads, t.folded) {
				continue
			}
			rest := toks[j+1:]
			head := t.text
			if len(rest) > 0 && rest[0].folded == "of" {
				head += " " + rest[0].text
				rest = rest[1:]
			}
			words := phrase(rest, 3)
			if len(words) == 0 {
				continue
			}
			candidate := head + " " + strings.Join(words, " ")
			v, why := accept(certificate.FieldMajor, candidate)
			if why != "" {
				rec.Add(diagnostics.StageExtraction, "value rejected",
					"field", certificate.FieldMajor, "line", l.index, "value", candidate, "reason", why)
				continue
			}
			rec.Add(diagnostics.StageExtraction, "faculty phrase matched", "field", certificate.FieldMajor, "line", l.index)
			return Attempt{Value: v, Anchor: snippet(l.text), Line: l.index}
		}
	}
	return Attempt{Reason: "no faculty or department phrase"}
}

func positionalGPA(d *document, rec *diagnostics.Trace) Attempt {
	for _, l := range d.lines {
		for _, re := range []*regexp.Regexp{reGPAOverScale, reScaleOverGPA} {
			num, ok := submatch(re, l.text, 1)
			if !ok {
				continue
			}
			if v, why := accept(certificate.FieldGPA, num); why == "" {
				rec.Add(diagnostics.StageExtraction, "gpa over scale matched", "field", certificate.FieldGPA, "line", l.index)
				return Attempt{Value: v, Anchor: snippet(l.text), Line: l.index}
			} else {
				rec.Add(diagnostics.StageExtraction, "value rejected",
					"field", certificate.FieldGPA, "line", l.index, "value", num, "reason", why)
			}
		}
	}
	for _, l := range d.lines {
		if !containsAny(l, gpaKeywords) {
			continue
		}
		num, ok := submatch(reGPAValue, l.text, 0)
		if !ok {
			continue
		}
		if v, why := accept(certificate.FieldGPA, num); why == "" {
			rec.Add(diagnostics.StageExtraction, "gpa keyword matched", "field", certificate.FieldGPA, "line", l.index)
			return Attempt{Value: v, Anchor: snippet(l.text), Line: l.index}
		} else {
			rec.Add(diagnostics.StageExtraction, "value rejected",
				"field", certificate.FieldGPA, "line", l.index, "value", num, "reason", why)
		}
	}
	return Attempt{Reason: "no gpa pattern"}
}

// positionalNationalID tries, in order, an OCR-injected NID marker line,
// digit runs within idWindow lines of an ID label and finally a single long
// digit run anywhere in the document.
func positionalNationalID(d *document, p certificate.Policy, rec *diagnostics.Trace) Attempt {
	for _, l := range d.lines {
		run, ok := submatch(reNIDMarker, l.text, 1)
		if !ok {
			continue
		}
		if v, why := accept(certificate.FieldNationalID, run); why == "" {
			rec.Add(diagnostics.StageExtraction, "nid marker matched", "field", certificate.FieldNationalID, "line", l.index)
			return Attempt{Value: v, Anchor: snippet(l.text), Line: l.index}
		}
	}

	var candidates []Attempt
	for i, l := range d.lines {
		if !hasSpan(l, certificate.FieldNationalID) {
			continue
		}
		for _, off := range windowOffsets(idWindow) {
			k := i + off
			if k < 0 || k >= len(d.lines) {
				continue
			}
			run, ok := submatch(reIDRun, d.lines[k].text, 0)
			if !ok {
				continue
			}
			rec.Add(diagnostics.StageExtraction, "digit run near marker",
				"field", certificate.FieldNationalID, "line", d.lines[k].index, "marker_line", l.index, "digits", len(run))
			candidates = append(candidates, Attempt{Value: run, Anchor: snippet(d.lines[k].text), Line: d.lines[k].index})
		}
	}
	if len(candidates) > 0 {
		for _, c := range candidates {
			if len(normalize.NationalID(c.Value)) == p.NationalIDLength {
				return c
			}
		}
		return candidates[0]
	}

	runs := make(map[string]Attempt)
	var order []string
	for _, l := range d.lines {
		ascii := arabic.NormalizeDigits(l.text)
		for _, m := range reLongRun.FindAllStringIndex(ascii, -1) {
			digits := ascii[m[0]:m[1]]
			if _, ok := runs[digits]; ok {
				continue
			}
			runs[digits] = Attempt{Value: digits, Anchor: snippet(l.text), Line: l.index}
			order = append(order, digits)
		}
	}
	switch len(order) {
	case 0:
		return Attempt{Reason: "no id marker or long digit run"}
	case 1:
		rec.Add(diagnostics.StageExtraction, "single digit run used", "field", certificate.FieldNationalID, "line", runs[order[0]].Line)
		return runs[order[0]]
	}
	return Attempt{Reason: "ambiguous match: several long digit runs"}
}

func windowOffsets(n int) []int {
	out := []int{0}
	for k := 1; k <= n; k++ {
		out = append(out, k, -k)
	}
	return out
}

func positionalDegree(d *document, rec *diagnostics.Trace) Attempt {
	var first Attempt
	seen := make(map[string]bool)
	for _, l := range d.lines {
		for _, t := range tokens(l.text) {
			canonical := normalize.DegreeKeyword(t.folded)
			if canonical == "" {
				continue
			}
			if first.Value == "" {
				rec.Add(diagnostics.StageExtraction, "degree keyword matched",
					"field", certificate.FieldDegree, "line", l.index, "canonical", canonical)
				first = Attempt{Value: t.text, Anchor: snippet(l.text), Line: l.index}
			}
			seen[canonical] = true
		}
	}
	if first.Value == "" {
		return Attempt{Reason: "no degree keyword"}
	}
	if len(seen) > 1 {
		rec.Add(diagnostics.StageExtraction, "ambiguous match",
			"field", certificate.FieldDegree, "candidates", len(seen), "chosen_line", first.Line)
	}
	return first
}

func containsAny(l line, words []string) bool {
	for _, w := range words {
		if arabic.ContainsWord(l.folded.Text, w) {
			return true
		}
	}
	return false
}

func hasSpan(l line, kind certificate.FieldKind) bool {
	for _, s := range l.spans {
		if s.kind == kind {
			return true
		}
	}
	return false
}
