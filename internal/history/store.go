// Package history keeps a record of past builds and the page fingerprints
// each one produced, so a build can report what changed since the last one.
package history

import (
	"context"
	"time"
)

// Build is one recorded build.
type Build struct {
	ID       string
	Start    time.Time
	End      time.Time
	Outcome  string
	Summary  string
	Warnings int
	Errors   int
	// Stages maps stage name to its result.
	Stages map[string]string
	// Pages maps a page or post relative path to its fingerprint.
	Pages map[string]string
}

// Duration returns how long the build ran.
func (b Build) Duration() time.Duration { return b.End.Sub(b.Start) }

// Change summarizes fingerprint differences against the previous build.
type Change struct {
	Added    []string
	Modified []string
	Removed  []string
}

// Count returns the total number of changed paths.
func (c Change) Count() int { return len(c.Added) + len(c.Modified) + len(c.Removed) }

// Store persists build history.
type Store interface {
	// Record stores a build and prunes old entries.
	Record(ctx context.Context, b Build) error

	// Diff compares pages against the most recently recorded build.
	Diff(ctx context.Context, pages map[string]string) (Change, error)

	// List returns up to limit builds, newest first. Pages are not loaded.
	List(ctx context.Context, limit int) ([]Build, error)

	// Close closes the store and releases resources.
	Close() error
}
