package config

import (
	"fmt"
	"hash/fnv"
	"os"
	"strconv"
	"strings"
	"sync"
)

// FeatureFlags manages feature toggles with percentage rollout.
// Users are bucketed by a hash of their id so they stay in the same bucket.
type FeatureFlags struct {
	mu sync.RWMutex

	features map[string]*Feature

	// Override rules (for testing/debugging)
	userOverrides map[string]map[string]bool // userID -> feature -> enabled
}

// Feature represents a single feature flag.
type Feature struct {
	Name        string
	Description string
	Enabled     bool

	// Rollout percentage (0-100)
	RolloutPercent int
}

// Predefined feature flag names.
const (
	// Serve statistics reports from the Redis cache
	FeatureStatsCache = "stats.cache"

	// Forward domain events to Redis pub/sub for other instances
	FeatureEventsRedisForward = "events.redis_forward"

	// Unlock profile achievements on completion and streak milestones
	FeatureUserAchievements = "rewards.user_achievements"
)

// LoadFeatureFlags loads feature flags from environment variables.
func LoadFeatureFlags() *FeatureFlags {
	ff := NewFeatureFlags()
	ff.loadFromEnvironment()
	return ff
}

// NewFeatureFlags returns the defaults without reading the environment.
func NewFeatureFlags() *FeatureFlags {
	ff := &FeatureFlags{
		features:      make(map[string]*Feature),
		userOverrides: make(map[string]map[string]bool),
	}

	ff.features[FeatureStatsCache] = &Feature{
		Name:           FeatureStatsCache,
		Description:    "Cache statistics reports in Redis",
		Enabled:        true,
		RolloutPercent: 100,
	}
	ff.features[FeatureEventsRedisForward] = &Feature{
		Name:           FeatureEventsRedisForward,
		Description:    "Publish domain events to Redis pub/sub",
		Enabled:        false,
		RolloutPercent: 0,
	}
	ff.features[FeatureUserAchievements] = &Feature{
		Name:           FeatureUserAchievements,
		Description:    "Profile-wide achievements",
		Enabled:        true,
		RolloutPercent: 100,
	}

	return ff
}

// loadFromEnvironment loads feature flag overrides from env vars.
// Format: FEATURE_<NAME>=true|false|<percent>
// Example: FEATURE_STATS_CACHE=false
// Example: FEATURE_REWARDS_USER_ACHIEVEMENTS=25 (25% rollout)
func (ff *FeatureFlags) loadFromEnvironment() {
	for name, feature := range ff.features {
		val := os.Getenv(featureNameToEnvKey(name))
		if val == "" {
			continue
		}
		if b, err := strconv.ParseBool(val); err == nil {
			feature.Enabled = b
			feature.RolloutPercent = 0
			if b {
				feature.RolloutPercent = 100
			}
			continue
		}
		if p, err := strconv.Atoi(val); err == nil && p >= 0 && p <= 100 {
			feature.Enabled = p > 0
			feature.RolloutPercent = p
		}
	}
}

// featureNameToEnvKey converts feature name to environment variable key.
// "stats.cache" -> "FEATURE_STATS_CACHE"
func featureNameToEnvKey(name string) string {
	key := strings.ToUpper(name)
	key = strings.ReplaceAll(key, ".", "_")
	return "FEATURE_" + key
}

// IsEnabled checks if a feature is enabled. userID may be empty for
// process-wide checks, in which case partial rollouts count as enabled.
func (ff *FeatureFlags) IsEnabled(featureName, userID string) bool {
	if ff == nil {
		return false
	}
	ff.mu.RLock()
	defer ff.mu.RUnlock()

	if userID != "" {
		if overrides, ok := ff.userOverrides[userID]; ok {
			if enabled, ok := overrides[featureName]; ok {
				return enabled
			}
		}
	}

	feature, ok := ff.features[featureName]
	if !ok || !feature.Enabled {
		return false
	}

	if feature.RolloutPercent < 100 && userID != "" {
		return isInRollout(userID, featureName, feature.RolloutPercent)
	}
	return feature.RolloutPercent > 0
}

// isInRollout maps user+feature to a stable 0-99 bucket.
func isInRollout(userID, featureName string, percent int) bool {
	h := fnv.New32a()
	h.Write([]byte(featureName))
	h.Write([]byte(userID))
	return int(h.Sum32()%100) < percent
}

// SetUserOverride forces a feature on or off for one user.
func (ff *FeatureFlags) SetUserOverride(userID, featureName string, enabled bool) {
	ff.mu.Lock()
	defer ff.mu.Unlock()

	if ff.userOverrides[userID] == nil {
		ff.userOverrides[userID] = make(map[string]bool)
	}
	ff.userOverrides[userID][featureName] = enabled
}

// SetRolloutPercent updates the rollout percentage for a feature.
func (ff *FeatureFlags) SetRolloutPercent(featureName string, percent int) error {
	if percent < 0 || percent > 100 {
		return &FeatureFlagError{Feature: featureName, Reason: "rollout percent must be 0-100"}
	}

	ff.mu.Lock()
	defer ff.mu.Unlock()

	feature, ok := ff.features[featureName]
	if !ok {
		return &FeatureFlagError{Feature: featureName, Reason: "unknown feature"}
	}
	feature.RolloutPercent = percent
	feature.Enabled = percent > 0
	return nil
}

// EnableFeature turns a feature fully on.
func (ff *FeatureFlags) EnableFeature(featureName string) error {
	return ff.SetRolloutPercent(featureName, 100)
}

// DisableFeature turns a feature off.
func (ff *FeatureFlags) DisableFeature(featureName string) error {
	return ff.SetRolloutPercent(featureName, 0)
}

// FeatureFlagError reports an invalid flag operation.
type FeatureFlagError struct {
	Feature string
	Reason  string
}

func (e *FeatureFlagError) Error() string {
	return fmt.Sprintf("feature flag %q: %s", e.Feature, e.Reason)
}
