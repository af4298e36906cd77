package extraction

import (
	"fmt"
	"regexp"
	"strings"

	"certverify/internal/arabic"
	"certverify/internal/certificate"
	"certverify/internal/diagnostics"
)

// reSingleDecimal matches lines that hold one decimal number such as a GPA;
// their digits are never ID fragments.
var reSingleDecimal = regexp.MustCompile(`^\D*\d{1,2}[.,]\d{1,2}\D*$`)

type fragmentRun struct {
	digits     strings.Builder
	first, end int
	lastRegion *certificate.Region
	parts      int
}

// boxed rebuilds an ID printed one digit (or a few) per box. OCR emits each
// box as its own short line; consecutive numeric fragments are merged,
// decorative lines are dropped and anything else ends the run.
func boxed(d *document, kind certificate.FieldKind, p certificate.Policy, rec *diagnostics.Trace) Attempt {
	if kind != certificate.FieldNationalID {
		return Attempt{Reason: "not applicable"}
	}

	var candidates []Attempt
	var run *fragmentRun
	flush := func(reason string) {
		if run == nil {
			return
		}
		digits := run.digits.String()
		n := len(digits)
		switch {
		case n >= minIDDigits && n <= maxIDDigits:
			rec.Add(diagnostics.StageExtraction, "fragments merged",
				"field", kind, "first_line", run.first, "last_line", run.end, "fragments", run.parts, "digits", n)
			candidates = append(candidates, Attempt{
				Value:  digits,
				Anchor: fmt.Sprintf("%d fragments on lines %d-%d", run.parts, run.first, run.end),
				Line:   run.first,
			})
		case run.parts > 1:
			rec.Add(diagnostics.StageExtraction, "fragment run rejected",
				"field", kind, "first_line", run.first, "digits", n, "reason", runReason(n, reason))
		}
		run = nil
	}

	for _, l := range d.lines {
		if arabic.IsNoiseOnly(l.text) {
			rec.Add(diagnostics.StageExtraction, "fragment discarded",
				"field", kind, "line", l.index, "reason", "decorative glyphs")
			continue
		}
		groups, ok := digitGroups(l.text)
		if !ok {
			if run != nil {
				rec.Add(diagnostics.StageExtraction, "non-numeric fragment",
					"field", kind, "line", l.index)
			}
			flush("non-numeric fragment")
			continue
		}
		if run != nil && run.lastRegion != nil && l.region != nil && !run.lastRegion.SameRow(*l.region) {
			flush("row changed")
		}
		if run == nil {
			run = &fragmentRun{first: l.index}
		}
		for _, g := range groups {
			run.digits.WriteString(g)
		}
		run.parts++
		run.end = l.index
		run.lastRegion = l.region
	}
	flush("")

	if len(candidates) == 0 {
		return Attempt{Reason: "no digit run of acceptable length"}
	}
	best := candidates[0]
	for _, c := range candidates {
		if len(c.Value) == p.NationalIDLength {
			return c
		}
		if len(c.Value) > len(best.Value) {
			best = c
		}
	}
	return best
}

// digitGroups reports whether a line, once noise glyphs are removed, is made
// only of groups of one to three digits, and returns them.
func digitGroups(text string) ([]string, bool) {
	ascii := arabic.NormalizeDigits(text)
	if reSingleDecimal.MatchString(ascii) {
		return nil, false
	}
	fields := strings.Fields(arabic.StripNoise(ascii))
	if len(fields) == 0 {
		return nil, false
	}
	for _, f := range fields {
		if len(f) > 3 {
			return nil, false
		}
		for _, r := range f {
			if r < '0' || r > '9' {
				return nil, false
			}
		}
	}
	return fields, true
}

func runReason(n int, reason string) string {
	switch {
	case n < minIDDigits && reason != "":
		return "too short, ended by " + reason
	case n < minIDDigits:
		return "too short"
	}
	return "too long"
}
