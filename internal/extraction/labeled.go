package extraction

import (
	"strings"

	"certverify/internal/certificate"
	"certverify/internal/diagnostics"
	"certverify/internal/normalize"
)

const separators = ":-–—="

// labeled finds a line holding a label of kind and takes the value next to
// it: after a separator on the same line, before a trailing "value : label"
// pair (right-to-left OCR output), or on the following line when the label
// stands alone.
func labeled(d *document, kind certificate.FieldKind, _ certificate.Policy, rec *diagnostics.Trace) Attempt {
	var found []Attempt
	sawLabel := false
	for i, l := range d.lines {
		for si, s := range l.spans {
			if s.kind != kind {
				continue
			}
			sawLabel = true
			raw, at, reason := labelValue(d, i, si)
			if reason != "" {
				rec.Add(diagnostics.StageExtraction, "label skipped",
					"field", kind, "line", l.index, "label", l.folded.Original(s.start, s.end), "reason", reason)
				continue
			}
			v, why := accept(kind, raw)
			if why != "" {
				rec.Add(diagnostics.StageExtraction, "value rejected",
					"field", kind, "line", at, "value", raw, "reason", why)
				continue
			}
			rec.Add(diagnostics.StageExtraction, "label matched",
				"field", kind, "line", l.index, "label", l.folded.Original(s.start, s.end))
			found = append(found, Attempt{Value: v, Anchor: snippet(l.text), Line: at})
			break
		}
	}

	switch {
	case len(found) == 0 && !sawLabel:
		return Attempt{Reason: "no label found"}
	case len(found) == 0:
		return Attempt{Reason: "no acceptable value next to label"}
	}
	if n := distinctValues(found); n > 1 {
		rec.Add(diagnostics.StageExtraction, "ambiguous match",
			"field", kind, "candidates", n, "chosen_line", found[0].Line)
	}
	return found[0]
}

// labelValue returns the raw value belonging to span si of line i, the
// order index of the line it was read from, or a reason for skipping.
func labelValue(d *document, i, si int) (string, int, string) {
	l := d.lines[i]
	s := l.spans[si]
	f := l.folded.Text

	// A value may repeat its own label ("الجامعة: جامعة القاهرة"), so it
	// runs up to the next label of a different field.
	nextStart := len(f)
	for _, o := range l.spans[si+1:] {
		if o.kind != s.kind {
			nextStart = o.start
			break
		}
	}
	prevEnd := 0
	if si > 0 {
		prevEnd = l.spans[si-1].end
		if strings.TrimSpace(f[prevEnd:s.start]) == "" {
			return "", l.index, "label qualified by another label"
		}
	}

	after := f[s.end:nextStart]
	if rest := strings.TrimLeft(after, " \t"); rest != "" && strings.ContainsRune(separators, []rune(rest)[0]) {
		off := s.end + len(after) - len(strings.TrimLeft(after, " \t"+separators))
		if v := strings.TrimSpace(l.folded.Original(off, nextStart)); v != "" {
			return v, l.index, ""
		}
		if nextStart < len(f) {
			return "", l.index, "label followed by another label"
		}
		return nextLineValue(d, i)
	}

	before := strings.TrimRight(f[prevEnd:s.start], " \t")
	if before != "" && strings.ContainsRune(separators, []rune(before)[len([]rune(before))-1]) {
		end := prevEnd + len(strings.TrimRight(before, " \t"+separators))
		if v := strings.TrimSpace(l.folded.Original(prevEnd, end)); v != "" {
			return v, l.index, ""
		}
	}

	if strings.TrimSpace(after) == "" {
		if nextStart < len(f) {
			return "", l.index, "label followed by another label"
		}
		return nextLineValue(d, i)
	}
	return "", l.index, "label without separator"
}

func nextLineValue(d *document, i int) (string, int, string) {
	if i+1 >= len(d.lines) {
		return "", d.lines[i].index, "label at end of text"
	}
	n := d.lines[i+1]
	end := len(n.folded.Text)
	if len(n.spans) > 0 {
		if strings.TrimSpace(n.folded.Text[:n.spans[0].start]) == "" {
			return "", n.index, "next line starts with a label"
		}
		end = n.spans[0].start
	}
	return strings.TrimSpace(n.folded.Original(0, end)), n.index, ""
}

func distinctValues(as []Attempt) int {
	seen := make(map[string]bool, len(as))
	for _, a := range as {
		seen[normalize.Text(a.Value)] = true
	}
	return len(seen)
}
