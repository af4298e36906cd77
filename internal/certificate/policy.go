package certificate

import (
	"fmt"

	dErrors "certverify/pkg/domain-errors"
)

// Thresholds tune the field comparator.
type Thresholds struct {
	Exact            float64 `mapstructure:"exact" yaml:"exact"`
	NameClose        float64 `mapstructure:"name_close" yaml:"name_close"`
	InstitutionClose float64 `mapstructure:"institution_close" yaml:"institution_close"`
	GPATolerance     float64 `mapstructure:"gpa_tolerance" yaml:"gpa_tolerance"`
	GPAScale         float64 `mapstructure:"gpa_scale" yaml:"gpa_scale"`
	IdentityPenalty  float64 `mapstructure:"identity_penalty" yaml:"identity_penalty"`
}

// Weights are the per-field contributions to the confidence score.
type Weights struct {
	FullName   float64 `mapstructure:"full_name" yaml:"full_name"`
	NationalID float64 `mapstructure:"national_id" yaml:"national_id"`
	GPA        float64 `mapstructure:"gpa" yaml:"gpa"`
	Degree     float64 `mapstructure:"degree" yaml:"degree"`
	University float64 `mapstructure:"university" yaml:"university"`
	Major      float64 `mapstructure:"major" yaml:"major"`
}

// Of returns the weight of kind.
func (w Weights) Of(kind FieldKind) float64 {
	switch kind {
	case FieldFullName:
		return w.FullName
	case FieldNationalID:
		return w.NationalID
	case FieldGPA:
		return w.GPA
	case FieldDegree:
		return w.Degree
	case FieldUniversity:
		return w.University
	case FieldMajor:
		return w.Major
	}
	return 0
}

// Policy is the immutable tuning snapshot a run is evaluated under.
type Policy struct {
	Thresholds       Thresholds `mapstructure:"thresholds" yaml:"thresholds"`
	Weights          Weights    `mapstructure:"weights" yaml:"weights"`
	MatchThreshold   float64    `mapstructure:"match_threshold" yaml:"match_threshold"`
	LowThreshold     float64    `mapstructure:"low_threshold" yaml:"low_threshold"`
	NationalIDLength int        `mapstructure:"national_id_length" yaml:"national_id_length"`
	RequiredFields   []string   `mapstructure:"required_fields" yaml:"required_fields"`
	MinTextLength    int        `mapstructure:"min_text_length" yaml:"min_text_length"`
}

// DefaultPolicy returns the production defaults.
func DefaultPolicy() Policy {
	return Policy{
		Thresholds: Thresholds{
			Exact:            0.95,
			NameClose:        0.85,
			InstitutionClose: 0.75,
			GPATolerance:     0.05,
			GPAScale:         0.5,
			IdentityPenalty:  0.5,
		},
		Weights: Weights{
			FullName:   3,
			NationalID: 3,
			GPA:        2,
			Degree:     1.5,
			University: 1,
			Major:      1,
		},
		MatchThreshold:   0.80,
		LowThreshold:     0.50,
		NationalIDLength: 14,
		RequiredFields:   []string{string(FieldFullName)},
		MinTextLength:    40,
	}
}

// CloseThreshold returns the CLOSE cutoff of a text field.
func (p Policy) CloseThreshold(kind FieldKind) float64 {
	if kind == FieldFullName {
		return p.Thresholds.NameClose
	}
	return p.Thresholds.InstitutionClose
}

// Required returns the parsed required field kinds.
func (p Policy) Required() []FieldKind {
	out := make([]FieldKind, 0, len(p.RequiredFields))
	for _, s := range p.RequiredFields {
		if k, err := ParseFieldKind(s); err == nil {
			out = append(out, k)
		}
	}
	return out
}

// Validate rejects policies that would make the aggregator meaningless.
func (p Policy) Validate() error {
	t := p.Thresholds
	for name, v := range map[string]float64{
		"thresholds.exact":             t.Exact,
		"thresholds.name_close":        t.NameClose,
		"thresholds.institution_close": t.InstitutionClose,
		"thresholds.identity_penalty":  t.IdentityPenalty,
		"match_threshold":              p.MatchThreshold,
		"low_threshold":                p.LowThreshold,
	} {
		if v < 0 || v > 1 {
			return dErrors.New(dErrors.CodeValidation, fmt.Sprintf("%s must be within [0,1], got %v", name, v))
		}
	}
	if t.NameClose > t.Exact || t.InstitutionClose > t.Exact {
		return dErrors.New(dErrors.CodeValidation, "close thresholds must not exceed the exact threshold")
	}
	if p.LowThreshold > p.MatchThreshold {
		return dErrors.New(dErrors.CodeValidation, "low_threshold must not exceed match_threshold")
	}
	if t.GPATolerance < 0 || t.GPAScale <= 0 {
		return dErrors.New(dErrors.CodeValidation, "gpa_tolerance must be >= 0 and gpa_scale > 0")
	}
	if p.NationalIDLength <= 0 {
		return dErrors.New(dErrors.CodeValidation, "national_id_length must be positive")
	}
	for _, k := range AllFields {
		if p.Weights.Of(k) < 0 {
			return dErrors.New(dErrors.CodeValidation, fmt.Sprintf("weight of %s must not be negative", k))
		}
	}
	for _, s := range p.RequiredFields {
		if _, err := ParseFieldKind(s); err != nil {
			return err
		}
	}
	return nil
}
