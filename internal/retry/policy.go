// Package retry spaces out repeated attempts of a failing operation.
package retry

import (
	"strings"
	"time"

	"git.home.luguber.info/inful/sitebuilder/internal/config"
	"git.home.luguber.info/inful/sitebuilder/internal/foundation/errors"
)

// Policy controls how often and how far apart an operation is retried.
type Policy struct {
	Mode config.RetryBackoffMode
	// Initial is the first delay; later delays grow from it per Mode.
	Initial time.Duration
	// Max caps every delay.
	Max time.Duration
	// MaxRetries counts attempts after the first; zero disables retrying.
	MaxRetries int
}

// DefaultPolicy is used for publish pushes when nothing is configured.
func DefaultPolicy() Policy {
	return Policy{
		Mode:       config.RetryBackoffLinear,
		Initial:    time.Second,
		Max:        30 * time.Second,
		MaxRetries: 2,
	}
}

// NewPolicy overlays the given settings on DefaultPolicy. Non-positive
// durations, negative retry counts and unknown modes are ignored.
func NewPolicy(mode config.RetryBackoffMode, initial, maxDelay time.Duration, maxRetries int) Policy {
	p := DefaultPolicy()
	if mode.Valid() {
		p.Mode = config.RetryBackoffMode(strings.ToLower(string(mode)))
	}
	if initial > 0 {
		p.Initial = initial
	}
	if maxDelay > 0 {
		p.Max = maxDelay
	}
	if maxRetries >= 0 {
		p.MaxRetries = maxRetries
	}
	p.Initial = min(p.Initial, p.Max)
	return p
}

// FromGit reads the push retry settings of deploy.git.
func FromGit(cfg config.GitConfig) Policy {
	initial, maxDelay := cfg.RetryDelays()
	return NewPolicy(cfg.RetryBackoff, initial, maxDelay, cfg.MaxRetries)
}

// Delay is the wait before retry n, counting from 1.
func (p Policy) Delay(n int) time.Duration {
	if n < 1 {
		return 0
	}
	var d time.Duration
	switch p.Mode {
	case config.RetryBackoffFixed:
		d = p.Initial
	case config.RetryBackoffExponential:
		d = p.Initial
		for i := 1; i < n && d < p.Max; i++ {
			d *= 2
		}
	case config.RetryBackoffLinear:
		d = time.Duration(n) * p.Initial
	default:
		d = time.Duration(n) * p.Initial
	}
	if d <= 0 || d > p.Max {
		return p.Max
	}
	return d
}

// Validate rejects policies that cannot produce a delay.
func (p Policy) Validate() error {
	switch {
	case p.Initial <= 0:
		return errors.ConfigError("retry delay must be positive").WithContext("key", "deploy.git.retry_delay").Build()
	case p.Max <= 0:
		return errors.ConfigError("retry max delay must be positive").WithContext("key", "deploy.git.retry_max_delay").Build()
	case p.MaxRetries < 0:
		return errors.ConfigError("max retries must not be negative").WithContext("key", "deploy.git.max_retries").Build()
	}
	return nil
}
