package constants

// Threshold values used across the application. These are not configuration
// knobs; use pkg/config for env-driven settings.

const (
	// Matching defaults, used when config leaves a knob unset
	MatchThresholdDefault  = 80
	AmbiguityMarginDefault = 5
	MaxBatchSizeDefault    = 500

	// Recent match log listing
	RecentMatchesDefaultLimit = 50
	RecentMatchesMaxLimit     = 500

	// Request bodies larger than this are rejected before decoding
	MaxRequestBodyBytes = 1 << 20
)
