package certificate

import "certverify/internal/diagnostics"

// Method records which extraction strategy produced a value.
type Method string

const (
	MethodLabeled    Method = "LABELED_MATCH"
	MethodPositional Method = "POSITIONAL_HEURISTIC"
	MethodBoxed      Method = "BOXED_DIGIT_RECONSTRUCTION"
	MethodNotFound   Method = "NOT_FOUND"
)

// Canonical degree values.
const (
	DegreeBachelor = "BACHELOR"
	DegreeMaster   = "MASTER"
	DegreeUnknown  = "UNKNOWN"
)

// Normalized is the canonical form of a raw value. Present is false when the
// raw value was empty or could not be parsed for its field type.
type Normalized struct {
	Value          string `json:"value,omitempty"`
	Present        bool   `json:"present"`
	LengthMismatch bool   `json:"length_mismatch,omitempty"`
}

// ExtractedField is the extractor's answer for one kind. NOT_FOUND is a
// valid terminal state with an empty Raw value.
type ExtractedField struct {
	Kind       FieldKind  `json:"kind"`
	Raw        string     `json:"raw_value,omitempty"`
	Method     Method     `json:"extraction_method"`
	Anchor     string     `json:"anchor_snippet,omitempty"`
	Line       int        `json:"line"`
	Normalized Normalized `json:"normalized"`
}

// Found reports whether any strategy produced a value.
func (f ExtractedField) Found() bool {
	return f.Method != MethodNotFound && f.Raw != ""
}

// NotFound returns the terminal absent value for kind.
func NotFound(kind FieldKind) ExtractedField {
	return ExtractedField{Kind: kind, Method: MethodNotFound, Line: -1}
}

// SubmittedField is one claim made by the student.
type SubmittedField struct {
	Kind       FieldKind  `json:"kind"`
	Raw        string     `json:"raw_value"`
	Normalized Normalized `json:"normalized"`
}

// Verdict is the outcome of comparing one field.
type Verdict string

const (
	VerdictExact     Verdict = "EXACT"
	VerdictClose     Verdict = "CLOSE"
	VerdictDifferent Verdict = "DIFFERENT"
	VerdictMissing   Verdict = "MISSING"
)

// Accepting reports whether the verdict counts towards a match.
func (v Verdict) Accepting() bool {
	return v == VerdictExact || v == VerdictClose
}

// FieldComparison scores one submitted field against its extracted value.
type FieldComparison struct {
	Kind    FieldKind `json:"kind"`
	Score   float64   `json:"score"`
	Verdict Verdict   `json:"verdict"`
	Details string    `json:"details"`
}

// Status is the overall verification outcome.
type Status string

const (
	StatusMatch        Status = "MATCH"
	StatusPartialMatch Status = "PARTIAL_MATCH"
	StatusMismatch     Status = "MISMATCH"
)

// Result is the complete output of one verification run. Extracted always
// holds all six kinds; Comparisons holds exactly the submitted kinds.
type Result struct {
	Status      Status
	Confidence  float64
	Quality     Quality
	Extracted   map[FieldKind]ExtractedField
	Comparisons map[FieldKind]FieldComparison
	Trace       *diagnostics.Trace
}

// Claims is the set of submitted raw values keyed by kind. Kinds the student
// left blank are simply absent.
type Claims map[FieldKind]string
