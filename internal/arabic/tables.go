// Package arabic holds the static tables and rune-level helpers used to read
// Arabic certificates: digit forms, letter variants, field label variants
// (including common OCR misreadings), decorative noise glyphs and the hints
// used to detect visually reversed text.
//
// Everything here is immutable package data; callers must not modify the
// exported slices.
package arabic

// digitForms maps Arabic-Indic and Extended Arabic-Indic digits plus the
// Arabic decimal and thousands separators to ASCII.
var digitForms = map[rune]rune{
	'٠': '0', '١': '1', '٢': '2', '٣': '3', '٤': '4',
	'٥': '5', '٦': '6', '٧': '7', '٨': '8', '٩': '9',
	'۰': '0', '۱': '1', '۲': '2', '۳': '3', '۴': '4',
	'۵': '5', '۶': '6', '۷': '7', '۸': '8', '۹': '9',
	'٫': '.',
	'٬': ',',
}

// letterForms unifies letters that OCR and typists use interchangeably.
var letterForms = map[rune]rune{
	'أ': 'ا',
	'إ': 'ا',
	'آ': 'ا',
	'ٱ': 'ا',
	'ى': 'ي',
	'ة': 'ه',
	'ؤ': 'و',
	'ئ': 'ي',
	'ی': 'ي', // Farsi yeh
	'ک': 'ك', // keheh
}

// Field label variants in their written form. Matching folds both sides, so
// hamza and teh-marbuta variants need not be listed twice.
var (
	NameLabels = []string{
		"اسم الطالب", "اسم الطالبة", "الاسم الكامل", "الاسم الرباعي", "الاسم",
		"االسم", "اسم", "student name", "full name", "name",
	}
	UniversityLabels = []string{
		"اسم الجامعة", "الجامعة", "جامعة", "university",
	}
	MajorLabels = []string{
		"التخصص", "تخصص", "الكلية", "القسم", "الشعبة", "specialization", "major", "department",
	}
	GPALabels = []string{
		"المعدل التراكمي", "المعدل", "معدل", "التقدير العام", "cgpa", "gpa", "grade point average",
	}
	NationalIDLabels = []string{
		"الرقم القومي", "الرقم الوطني", "رقم الهوية", "رقم الهويه", "رقم قومي", "رقم البطاقة",
		"national id", "id number", "id no", "nid",
	}
	DegreeLabels = []string{
		"الدرجة العلمية", "الدرجة", "درجة", "المؤهل", "degree",
	}
)

// CertifyMarkers introduce the holder's name in certificate prose
// ("تشهد جامعة ... بأن الطالب ...").
var CertifyMarkers = []string{"بأن", "بان", "أن", "certify that", "certifies that", "this is to certify that"}

// CertifyVerbs must appear before a CertifyMarker on the same line.
var CertifyVerbs = []string{"تشهد", "يشهد", "نشهد", "certify", "certifies"}

// BirthMarkers often follow the holder's name on the same line.
var BirthMarkers = []string{"المولود", "المولودة", "مواليد", "born"}

// NameStopTokens are dropped from name values; they are nationality or
// section words that OCR glues onto the name.
var NameStopTokens = []string{"مصري", "مصريه", "الجنسيه", "الاسم", "محل", "الميلاد", "تاريخ", "الطالب", "الطالبه", "السيد", "السيده"}

// InstitutionWords mark a value as an institution rather than a person.
var InstitutionWords = []string{"جامعه", "الجامعه", "كليه", "الكليه", "قسم", "القسم", "معهد", "university", "college", "faculty", "department", "institute"}

// WeakTokens are function words that make a phrase unlikely to be a name.
var WeakTokens = []string{"مجلس", "في", "من", "ال", "و", "الي", "عن"}

// GenericInstitutionWords are dropped when normalizing university and major
// values so "جامعة القاهرة" and "القاهرة" compare equal.
var GenericInstitutionWords = []string{
	"جامعه", "الجامعه", "كليه", "الكليه", "قسم", "القسم", "معهد", "المعهد",
	"university", "of", "the", "faculty", "college", "department", "dept", "institute",
}

// Months are rejected as university values; OCR often places the issue date
// where the institution should be.
var Months = []string{
	"يناير", "فبراير", "مارس", "ابريل", "مايو", "يونيو",
	"يوليو", "اغسطس", "سبتمبر", "اكتوبر", "نوفمبر", "ديسمبر",
}

// Degree keywords in folded form.
var (
	MasterKeywords   = []string{"ماجستير", "master", "masters", "m.sc", "msc", "m.a", "mba"}
	BachelorKeywords = []string{"بكالوريوس", "بكالوريس", "بكالور", "البكالوريوس", "ليسانس", "bachelor", "bachelors", "b.sc", "bsc", "b.a", "licence"}
)

// Stop phrases that end a free-text value scanned from prose.
var ValueStopWords = []string{
	"بأن", "أن", "بتقدير", "دور", "عام", "درجه", "بمعدل", "تاريخ", "المولود", "الجنسيه",
	"مركز", "محل", "الميلاد", "قد", "حصل",
	"grade", "with", "dated", "on", "has", "born",
}

// GPAKeywords introduce a GPA in certificate prose ("بمعدل تراكمي 3.2").
var GPAKeywords = []string{"بمعدل", "معدل", "المعدل", "تراكمي", "التراكمي", "gpa", "cgpa"}

// NoiseGlyphs are decorative characters that surround boxed digits.
const NoiseGlyphs = "|[]_□■▢☐-.:،,/\\()"

// FieldHints are the substrings that indicate a native PDF text layer
// actually contains certificate fields.
var FieldHints = []string{"الجامعة", "جامعة", "التخصص", "تخصص", "المعدل", "gpa"}

// normalHints and reversedHints detect text whose Arabic letter runs were
// emitted in visual (reversed) order.
var (
	normalHints   = []string{"الجامعة", "جامعة", "التخصص", "تخصص", "المعدل", "الرقم"}
	reversedHints = []string{"ةعماجلا", "ةعماج", "صصختلا", "صصخت", "لدعملا", "مقرلا"}
)

// OCRCorrections maps known OCR misreadings of institution and major names,
// keyed by folded form.
var OCRCorrections = map[string]string{
	"الدلت": "الدلتا",
	"دلتا":  "الدلتا",
	"ذكا":   "ذكاء",
	"الذكا": "ذكاء",
}
