package compare

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"certverify/internal/certificate"
	"certverify/internal/normalize"
)

var policy = certificate.DefaultPolicy()

func submitted(kind certificate.FieldKind, raw string) certificate.SubmittedField {
	return certificate.SubmittedField{Kind: kind, Raw: raw, Normalized: normalize.New(policy).Value(kind, raw)}
}

func extracted(kind certificate.FieldKind, raw string) certificate.ExtractedField {
	return certificate.ExtractedField{
		Kind:       kind,
		Raw:        raw,
		Method:     certificate.MethodLabeled,
		Normalized: normalize.New(policy).Value(kind, raw),
	}
}

func TestCompareText(t *testing.T) {
	c := New(policy)

	tests := []struct {
		name      string
		kind      certificate.FieldKind
		submitted string
		extracted string
		want      certificate.Verdict
	}{
		{"hamza variant is exact", certificate.FieldFullName, "احمد علي", "أحمد علي", certificate.VerdictExact},
		{"reordered tokens", certificate.FieldFullName, "علي احمد محمود", "احمد علي محمود", certificate.VerdictExact},
		{"one letter off", certificate.FieldFullName, "محمد عبد الرحمن", "محمد عبد الرحمان", certificate.VerdictClose},
		{"different person", certificate.FieldFullName, "سارة حسن", "أحمد علي", certificate.VerdictDifferent},
		{"university prefix ignored", certificate.FieldUniversity, "جامعة القاهرة", "القاهرة", certificate.VerdictExact},
		{"major close", certificate.FieldMajor, "علوم الحاسب", "علوم الحاسوب", certificate.VerdictClose},
		{"submitted name is a subset of the four-part name", certificate.FieldFullName, "أحمد علي", "أحمد علي محمد حسن", certificate.VerdictExact},
		{"latin name subset", certificate.FieldFullName, "Ahmed Ali", "Ahmed Ali Mohamed Hassan", certificate.VerdictExact},
		{"duplicated token from ocr", certificate.FieldFullName, "أحمد علي", "أحمد أحمد علي", certificate.VerdictExact},
		{"university line also names the faculty", certificate.FieldUniversity, "جامعة عين شمس", "جامعة عين شمس - كلية التجارة", certificate.VerdictExact},
		{"major inside a longer department line", certificate.FieldMajor, "نظم المعلومات", "قسم نظم المعلومات الادارية", certificate.VerdictExact},
		{"different university with shared word", certificate.FieldUniversity, "جامعة عين شمس", "جامعة القاهرة", certificate.VerdictDifferent},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := c.Compare(submitted(tt.kind, tt.submitted), extracted(tt.kind, tt.extracted))
			assert.Equal(t, tt.want, got.Verdict, got.Details)
			assert.Equal(t, tt.kind, got.Kind)
			assert.GreaterOrEqual(t, got.Score, 0.0)
			assert.LessOrEqual(t, got.Score, 1.0)
		})
	}
}

func TestCompareGPA(t *testing.T) {
	c := New(policy)

	tests := []struct {
		name      string
		submitted string
		extracted string
		want      certificate.Verdict
		score     float64
	}{
		{"equal across digit forms", "3.80", "٣.٨٠", certificate.VerdictExact, 1},
		{"one hundredth apart", "3.75", "3.76", certificate.VerdictClose, 0.98},
		{"at tolerance", "3.70", "3.75", certificate.VerdictClose, 0.9},
		{"far apart", "3.75", "3.95", certificate.VerdictDifferent, 0.6},
		{"clamped at zero", "1.00", "3.00", certificate.VerdictDifferent, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := c.Compare(submitted(certificate.FieldGPA, tt.submitted), extracted(certificate.FieldGPA, tt.extracted))
			assert.Equal(t, tt.want, got.Verdict)
			assert.InDelta(t, tt.score, got.Score, 1e-9)
		})
	}
}

func TestCompareNationalID(t *testing.T) {
	c := New(policy)

	t.Run("equal is exact", func(t *testing.T) {
		got := c.Compare(submitted(certificate.FieldNationalID, "29801011234567"), extracted(certificate.FieldNationalID, "٢٩٨٠١٠١١٢٣٤٥٦٧"))
		assert.Equal(t, certificate.VerdictExact, got.Verdict)
		assert.Equal(t, 1.0, got.Score)
	})

	t.Run("one digit off is never close", func(t *testing.T) {
		got := c.Compare(submitted(certificate.FieldNationalID, "29801011234567"), extracted(certificate.FieldNationalID, "29801011234568"))
		assert.Equal(t, certificate.VerdictDifferent, got.Verdict)
		assert.InDelta(t, 13.0/14.0*0.5, got.Score, 1e-4)
	})

	t.Run("length mismatch halves the score again", func(t *testing.T) {
		got := c.Compare(submitted(certificate.FieldNationalID, "1234567890"), extracted(certificate.FieldNationalID, "123456789"))
		assert.Equal(t, certificate.VerdictDifferent, got.Verdict)
		assert.InDelta(t, 0.9*0.5*0.5, got.Score, 1e-4)
		assert.Contains(t, got.Details, "length mismatch")
	})
}

func TestCompareDegree(t *testing.T) {
	c := New(policy)

	got := c.Compare(submitted(certificate.FieldDegree, "Bachelor"), extracted(certificate.FieldDegree, "بكالوريوس"))
	assert.Equal(t, certificate.VerdictExact, got.Verdict)

	got = c.Compare(submitted(certificate.FieldDegree, "Master"), extracted(certificate.FieldDegree, "بكالوريوس"))
	assert.Equal(t, certificate.VerdictDifferent, got.Verdict)

	got = c.Compare(submitted(certificate.FieldDegree, "دبلوم"), extracted(certificate.FieldDegree, "diploma"))
	assert.Equal(t, certificate.VerdictDifferent, got.Verdict, "UNKNOWN never matches")
}

func TestCompareMissingAndUnparsable(t *testing.T) {
	c := New(policy)

	got := c.Compare(submitted(certificate.FieldGPA, "3.5"), certificate.NotFound(certificate.FieldGPA))
	assert.Equal(t, certificate.VerdictMissing, got.Verdict)
	assert.Zero(t, got.Score)
	assert.Equal(t, "extraction failed", got.Details)

	got = c.Compare(submitted(certificate.FieldGPA, "excellent"), extracted(certificate.FieldGPA, "3.5"))
	assert.Equal(t, certificate.VerdictDifferent, got.Verdict)
	assert.Zero(t, got.Score)
}

func TestCompareTextDetailsListComponents(t *testing.T) {
	c := New(policy)

	name := c.Compare(submitted(certificate.FieldFullName, "أحمد علي"), extracted(certificate.FieldFullName, "أحمد علي محمد حسن"))
	assert.Equal(t, 1.0, name.Score)
	assert.Contains(t, name.Details, "partial 1.00")
	assert.Contains(t, name.Details, "token-set 1.00")

	uni := c.Compare(submitted(certificate.FieldUniversity, "جامعة عين شمس"), extracted(certificate.FieldUniversity, "جامعة عين شمس - كلية التجارة"))
	assert.Contains(t, uni.Details, "partial 1.00")
	assert.NotContains(t, uni.Details, "token-set")
}

func TestPartialSimilarity(t *testing.T) {
	tests := []struct {
		name string
		a, b string
		want float64
	}{
		{"window at start", "عين شمس", "عين شمس التجاره", 1},
		{"window at end", "شمس التجاره", "عين شمس التجاره", 1},
		{"order is symmetric", "عين شمس التجاره", "عين شمس", 1},
		{"equal token counts fall back to direct", "abcd", "abce", 0.75},
		{"no tokens", "", "", 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.want, PartialSimilarity(tt.a, tt.b), 1e-9)
		})
	}
}

func TestTokenSetSimilarity(t *testing.T) {
	assert.Equal(t, 1.0, TokenSetSimilarity("احمد علي", "علي احمد محمد"))
	assert.Equal(t, 1.0, TokenSetSimilarity("احمد احمد علي", "علي احمد"))
	assert.Less(t, TokenSetSimilarity("ساره حسن", "احمد علي"), 0.5)
}

func TestSimilarity(t *testing.T) {
	assert.Equal(t, 1.0, Similarity("", ""))
	assert.Equal(t, 0.0, Similarity("abc", ""))
	assert.InDelta(t, 0.5, Similarity("احمد", "امحد"), 1e-9)
	assert.Equal(t, 1.0, Similarity("علي", "علي"))
}

func TestDigitAgreement(t *testing.T) {
	assert.Equal(t, 1.0, DigitAgreement("123", "123"))
	assert.Equal(t, 0.5, DigitAgreement("1234", "12"))
	assert.Equal(t, 0.0, DigitAgreement("", ""))
}
