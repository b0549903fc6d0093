package config

import (
	"os"
	"slices"
	"strconv"
	"strings"
	"sync"
	"time"
)

// FeatureFlags toggles optional API surfaces at runtime.
// Flags can be limited to a set of classes and to a time window, e.g.
// opening parent downloads only during report card week.
type FeatureFlags struct {
	mu       sync.RWMutex
	features map[string]*Feature
	now      func() time.Time
}

// Feature represents a single feature flag.
type Feature struct {
	Name        string
	Description string
	Enabled     bool

	// TargetClasses limits the flag to these class IDs; empty means all.
	TargetClasses []string

	EnabledFrom  *time.Time
	EnabledUntil *time.Time
}

// FeatureContext provides context for feature flag evaluation.
type FeatureContext struct {
	ClassID string
}

// Predefined feature flag names.
const (
	FeatureWholeSchoolReports = "reports.whole_school" // satu-sekolah PDF, heavy on Chrome
	FeatureClassReports       = "reports.class"        // per-kelas PDF
	FeatureDashboard          = "analytics.dashboard"
	FeatureTrend              = "analytics.trend"
)

// LoadFeatureFlags loads defaults and applies FEATURE_* overrides.
func LoadFeatureFlags() *FeatureFlags {
	ff := &FeatureFlags{
		features: make(map[string]*Feature),
		now:      time.Now,
	}
	ff.initializeDefaults()
	ff.loadFromEnvironment()
	return ff
}

func (ff *FeatureFlags) initializeDefaults() {
	for _, f := range []*Feature{
		{Name: FeatureWholeSchoolReports, Description: "Whole-school report generation", Enabled: true},
		{Name: FeatureClassReports, Description: "Per-class report generation", Enabled: true},
		{Name: FeatureDashboard, Description: "Subject dashboard with ranking and distribution", Enabled: true},
		{Name: FeatureTrend, Description: "Per-student trends across periods", Enabled: true},
	} {
		ff.features[f.Name] = f
	}
}

// loadFromEnvironment reads FEATURE_<NAME>=true|false and
// FEATURE_<NAME>_CLASSES=id1,id2.
// Example: FEATURE_REPORTS_WHOLE_SCHOOL=false
func (ff *FeatureFlags) loadFromEnvironment() {
	for name, feature := range ff.features {
		envKey := featureNameToEnvKey(name)
		if b, err := strconv.ParseBool(os.Getenv(envKey)); err == nil {
			feature.Enabled = b
		}
		if classes := getEnvSlice(envKey+"_CLASSES", nil); len(classes) > 0 {
			feature.TargetClasses = classes
		}
	}
}

// featureNameToEnvKey converts feature name to environment variable key.
// "reports.whole_school" -> "FEATURE_REPORTS_WHOLE_SCHOOL"
func featureNameToEnvKey(name string) string {
	key := strings.ToUpper(name)
	key = strings.ReplaceAll(key, ".", "_")
	return "FEATURE_" + key
}

// IsEnabled checks if a feature is enabled for the given context.
// Unknown features are disabled.
func (ff *FeatureFlags) IsEnabled(featureName string, ctx *FeatureContext) bool {
	ff.mu.RLock()
	defer ff.mu.RUnlock()

	feature, ok := ff.features[featureName]
	if !ok || !feature.Enabled {
		return false
	}

	now := ff.now()
	if feature.EnabledFrom != nil && now.Before(*feature.EnabledFrom) {
		return false
	}
	if feature.EnabledUntil != nil && now.After(*feature.EnabledUntil) {
		return false
	}

	if len(feature.TargetClasses) > 0 {
		return ctx != nil && slices.Contains(feature.TargetClasses, ctx.ClassID)
	}
	return true
}

// SetEnabled switches a feature on or off.
func (ff *FeatureFlags) SetEnabled(featureName string, enabled bool) error {
	ff.mu.Lock()
	defer ff.mu.Unlock()

	feature, ok := ff.features[featureName]
	if !ok {
		return &FeatureFlagError{Feature: featureName, Message: "feature not found"}
	}
	feature.Enabled = enabled
	return nil
}

// SetWindow limits a feature to [from, until]; nil bounds are open.
func (ff *FeatureFlags) SetWindow(featureName string, from, until *time.Time) error {
	ff.mu.Lock()
	defer ff.mu.Unlock()

	feature, ok := ff.features[featureName]
	if !ok {
		return &FeatureFlagError{Feature: featureName, Message: "feature not found"}
	}
	feature.EnabledFrom = from
	feature.EnabledUntil = until
	return nil
}

// GetAllFeatures returns a copy of all features.
func (ff *FeatureFlags) GetAllFeatures() map[string]Feature {
	ff.mu.RLock()
	defer ff.mu.RUnlock()

	result := make(map[string]Feature, len(ff.features))
	for name, f := range ff.features {
		result[name] = *f
	}
	return result
}

// FeatureFlagError represents a feature flag operation error.
type FeatureFlagError struct {
	Feature string
	Message string
}

func (e *FeatureFlagError) Error() string {
	return "feature flag " + e.Feature + ": " + e.Message
}
