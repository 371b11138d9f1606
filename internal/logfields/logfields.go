package logfields

import (
	"log/slog"
	"time"
)

// Canonical log field name constants to avoid drift across packages.
const (
	KeyStep       = "step"
	KeyDurationMS = "duration_ms"
	KeyPath       = "path"
	KeyDest       = "dest"
	KeyRole       = "role"
	KeyTemplate   = "template"
	KeyCommand    = "command"
	KeyURL        = "url"
	KeyTag        = "tag"
	KeyCount      = "count"
	KeyBuildID    = "build_id"
	KeyOutcome    = "outcome"
	KeyError      = "error"
)

// Simple helpers returning slog.Attr. Keeping each granular means callers can compose.
func Step(name string) slog.Attr      { return slog.String(KeyStep, name) }
func DurationMS(ms float64) slog.Attr { return slog.Float64(KeyDurationMS, ms) }
func Path(p string) slog.Attr         { return slog.String(KeyPath, p) }
func Dest(p string) slog.Attr         { return slog.String(KeyDest, p) }
func Role(r string) slog.Attr         { return slog.String(KeyRole, r) }
func Template(n string) slog.Attr     { return slog.String(KeyTemplate, n) }
func Command(c string) slog.Attr      { return slog.String(KeyCommand, c) }
func URL(u string) slog.Attr          { return slog.String(KeyURL, u) }
func Tag(t string) slog.Attr          { return slog.String(KeyTag, t) }
func Count(n int) slog.Attr           { return slog.Int(KeyCount, n) }
func BuildID(id string) slog.Attr     { return slog.String(KeyBuildID, id) }
func Outcome(o string) slog.Attr      { return slog.String(KeyOutcome, o) }

// Duration renders d as fractional milliseconds under KeyDurationMS.
func Duration(d time.Duration) slog.Attr {
	return DurationMS(float64(d.Microseconds()) / 1000)
}

func Error(err error) slog.Attr {
	if err == nil {
		return slog.String(KeyError, "")
	}
	return slog.String(KeyError, err.Error())
}
