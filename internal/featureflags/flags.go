// Package featureflags provides feature flag management for runtime configuration.
package featureflags

import "time"

// Well-known feature flag keys.
const (
	// FlagIgnoreWhileLoading drops lookup submissions made while another
	// lookup is still loading instead of letting the latest one win.
	FlagIgnoreWhileLoading = "ignore_while_loading"

	// FlagAutoLoadLastCity looks up the last searched city on startup.
	FlagAutoLoadLastCity = "auto_load_last_city"
)

// Flag represents a feature flag with its current value.
type Flag struct {
	Key       string      `json:"key"`
	Value     interface{} `json:"value"`
	UpdatedAt time.Time   `json:"updatedAt"`
}

// FlagList represents a list of feature flags.
type FlagList struct {
	Items []Flag `json:"items"`
}

// FlagUpdate represents a single flag update request.
type FlagUpdate struct {
	Key   string      `json:"key"`
	Value interface{} `json:"value"`
}

// BoolValue returns the flag value as a boolean.
// Returns the default value if the flag is nil or not a boolean.
func (f *Flag) BoolValue(defaultValue bool) bool {
	if f == nil {
		return defaultValue
	}
	switch v := f.Value.(type) {
	case bool:
		return v
	case float64:
		// JSON unmarshals numbers as float64
		return v != 0
	default:
		return defaultValue
	}
}

// Defaults holds the startup values of the well-known flags, usually taken
// from configuration.
type Defaults struct {
	IgnoreWhileLoading bool
	AutoLoadLastCity   bool
}

// DefaultFlags returns the well-known flags set to the given defaults.
func DefaultFlags(d Defaults) map[string]*Flag {
	now := time.Now()
	return map[string]*Flag{
		FlagIgnoreWhileLoading: {
			Key:       FlagIgnoreWhileLoading,
			Value:     d.IgnoreWhileLoading,
			UpdatedAt: now,
		},
		FlagAutoLoadLastCity: {
			Key:       FlagAutoLoadLastCity,
			Value:     d.AutoLoadLastCity,
			UpdatedAt: now,
		},
	}
}
