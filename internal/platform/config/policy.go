package config

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"slices"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"

	"certverify/internal/certificate"
	liststrings "certverify/pkg/platform/strings"
)

// PolicyManager loads the verification policy and hot-reloads it.
// Each call to Current returns an independent snapshot, so a run in flight
// never observes a reload.
type PolicyManager struct {
	v      *viper.Viper
	file   string
	logger *slog.Logger
	policy atomic.Pointer[certificate.Policy]

	mu        sync.Mutex
	callbacks []func(certificate.Policy)
}

// NewPolicyManager reads defaults, the optional YAML file at path and
// CERTVERIFY_* environment overrides (e.g. CERTVERIFY_THRESHOLDS_EXACT).
// A missing file is not an error; an invalid policy is.
func NewPolicyManager(path string, logger *slog.Logger) (*PolicyManager, error) {
	if logger == nil {
		logger = slog.Default()
	}
	pm := &PolicyManager{v: viper.New(), file: path, logger: logger}
	if err := pm.init(); err != nil {
		return nil, err
	}
	p, err := pm.load()
	if err != nil {
		return nil, err
	}
	pm.policy.Store(&p)
	return pm, nil
}

func (pm *PolicyManager) init() error {
	d := certificate.DefaultPolicy()
	defaults := map[string]any{
		"thresholds.exact":             d.Thresholds.Exact,
		"thresholds.name_close":        d.Thresholds.NameClose,
		"thresholds.institution_close": d.Thresholds.InstitutionClose,
		"thresholds.gpa_tolerance":     d.Thresholds.GPATolerance,
		"thresholds.gpa_scale":         d.Thresholds.GPAScale,
		"thresholds.identity_penalty":  d.Thresholds.IdentityPenalty,
		"weights.full_name":            d.Weights.FullName,
		"weights.national_id":          d.Weights.NationalID,
		"weights.gpa":                  d.Weights.GPA,
		"weights.degree":               d.Weights.Degree,
		"weights.university":           d.Weights.University,
		"weights.major":                d.Weights.Major,
		"match_threshold":              d.MatchThreshold,
		"low_threshold":                d.LowThreshold,
		"national_id_length":           d.NationalIDLength,
		"required_fields":              d.RequiredFields,
		"min_text_length":              d.MinTextLength,
	}
	for key, value := range defaults {
		pm.v.SetDefault(key, value)
	}

	pm.v.SetEnvPrefix(EnvPrefix)
	pm.v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	pm.v.AutomaticEnv()

	if pm.file == "" {
		return nil
	}
	pm.v.SetConfigFile(pm.file)
	pm.v.SetConfigType("yaml")
	if err := pm.v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if errors.As(err, &notFound) || errors.Is(err, fs.ErrNotExist) {
			pm.logger.Warn("policy file not found, using defaults", "path", pm.file)
			return nil
		}
		return fmt.Errorf("read policy file: %w", err)
	}
	return nil
}

func (pm *PolicyManager) load() (certificate.Policy, error) {
	var p certificate.Policy
	if err := pm.v.Unmarshal(&p); err != nil {
		return certificate.Policy{}, fmt.Errorf("unmarshal policy: %w", err)
	}
	p.RequiredFields = liststrings.DedupeAndTrimLower(p.RequiredFields)
	if err := p.Validate(); err != nil {
		return certificate.Policy{}, fmt.Errorf("invalid policy: %w", err)
	}
	return p, nil
}

// Current returns a copy of the active policy.
func (pm *PolicyManager) Current() certificate.Policy {
	p := *pm.policy.Load()
	p.RequiredFields = slices.Clone(p.RequiredFields)
	return p
}

// OnChange registers a callback invoked after every successful reload.
func (pm *PolicyManager) OnChange(fn func(certificate.Policy)) {
	pm.mu.Lock()
	defer pm.mu.Unlock()
	pm.callbacks = append(pm.callbacks, fn)
}

// Watch enables hot reloading of the policy file. Reloads that fail to
// parse or validate are logged and the previous policy stays active.
func (pm *PolicyManager) Watch() {
	if pm.file == "" {
		return
	}
	pm.v.OnConfigChange(func(e fsnotify.Event) {
		pm.reload(e.Name)
	})
	pm.v.WatchConfig()
}

func (pm *PolicyManager) reload(source string) {
	p, err := pm.load()
	if err != nil {
		pm.logger.Error("policy reload rejected", "path", source, "error", err)
		return
	}
	pm.policy.Store(&p)
	pm.logger.Info("policy reloaded", "path", source,
		"match_threshold", p.MatchThreshold,
		"low_threshold", p.LowThreshold,
	)

	pm.mu.Lock()
	callbacks := slices.Clone(pm.callbacks)
	pm.mu.Unlock()
	for _, fn := range callbacks {
		fn(pm.Current())
	}
}
