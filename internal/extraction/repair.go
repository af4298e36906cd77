package extraction

import (
	"certverify/internal/arabic"
	"certverify/internal/certificate"
	"certverify/internal/diagnostics"
	"certverify/internal/normalize"
)

// repair fixes layout mistakes the strategies cannot see on their own: a
// person name read as the institution, a major that merely repeats the name
// and institution names OCR is known to truncate.
func repair(fields map[certificate.FieldKind]certificate.ExtractedField, trace *diagnostics.Trace) {
	if !fields[certificate.FieldFullName].Found() {
		for _, kind := range []certificate.FieldKind{certificate.FieldUniversity, certificate.FieldMajor} {
			f := fields[kind]
			if !f.Found() || !looksLikePersonName(f.Raw) {
				continue
			}
			f.Kind = certificate.FieldFullName
			fields[certificate.FieldFullName] = f
			fields[kind] = certificate.NotFound(kind)
			trace.Add(diagnostics.StageExtraction, "field swap repaired",
				"from", kind, "to", certificate.FieldFullName, "line", f.Line)
			break
		}
	}

	name, major := fields[certificate.FieldFullName], fields[certificate.FieldMajor]
	if name.Found() && major.Found() && normalize.Text(name.Raw) == normalize.Text(major.Raw) {
		fields[certificate.FieldMajor] = certificate.NotFound(certificate.FieldMajor)
		trace.Add(diagnostics.StageExtraction, "major duplicates name", "line", major.Line)
	}

	for _, kind := range []certificate.FieldKind{certificate.FieldUniversity, certificate.FieldMajor} {
		f := fields[kind]
		if !f.Found() {
			continue
		}
		fixed, ok := arabic.OCRCorrections[normalize.Text(f.Raw)]
		if !ok {
			continue
		}
		trace.Add(diagnostics.StageExtraction, "ocr correction applied",
			"field", kind, "from", f.Raw, "to", fixed)
		f.Raw = fixed
		fields[kind] = f
	}
}
