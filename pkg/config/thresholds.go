package config

import "time"

// Thresholds holds the tunable parameters of the repair pipeline.
// The defaults are the empirically chosen values from production runs;
// none of them have a derivation beyond "worked across the Loghub corpora",
// so they stay configurable rather than baked in.
type Thresholds struct {
	// MaxRedirects is the redirect budget of one state-machine run.
	MaxRedirects int

	// SplitCoverage is the minimum combined match coverage for accepting a
	// template split.
	SplitCoverage float64

	// GapAbsolute and GapRelative gate the length-gap grouper: the oracle is
	// consulted only when the largest gap is at least GapAbsolute characters
	// or at least GapRelative of the maximum parameter length.
	GapAbsolute int
	GapRelative float64

	// SampleCount bounds the fixed-stride corpus sample fed to the grouper.
	SampleCount int

	// MaxMismatchSamples bounds the mismatching lines retained by a
	// verification pass for inspection.
	MaxMismatchSamples int

	// RetryAttempts and RetryDelay bound the oracle transport retry.
	RetryAttempts int
	RetryDelay    time.Duration
}

// DefaultThresholds returns the production defaults.
func DefaultThresholds() Thresholds {
	return Thresholds{
		MaxRedirects:       3,
		SplitCoverage:      0.9,
		GapAbsolute:        10,
		GapRelative:        0.3,
		SampleCount:        50,
		MaxMismatchSamples: 10,
		RetryAttempts:      3,
		RetryDelay:         3 * time.Second,
	}
}
