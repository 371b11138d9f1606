package config

import (
	"strings"
	"time"
)

// RetryBackoffMode selects how retry delays grow between attempts.
type RetryBackoffMode string

const (
	RetryBackoffFixed       RetryBackoffMode = "fixed"
	RetryBackoffLinear      RetryBackoffMode = "linear"
	RetryBackoffExponential RetryBackoffMode = "exponential"
)

// Valid reports whether m names a known mode. Matching ignores case.
func (m RetryBackoffMode) Valid() bool {
	switch RetryBackoffMode(strings.ToLower(string(m))) {
	case RetryBackoffFixed, RetryBackoffLinear, RetryBackoffExponential:
		return true
	}
	return false
}

// RetryDelays returns the parsed initial and maximum push retry delays.
// Unparseable values come back as zero so the retry policy falls back to its defaults.
func (g GitConfig) RetryDelays() (initial, maxDelay time.Duration) {
	initial, _ = time.ParseDuration(g.RetryDelay)
	maxDelay, _ = time.ParseDuration(g.RetryMaxDelay)
	return initial, maxDelay
}
