package logfields

import "log/slog"

// Canonical log field name constants to avoid drift across packages.
const (
	KeyBuildID    = "build_id"
	KeyStage      = "stage"
	KeyDurationMS = "duration_ms"
	KeyPath       = "path"
	KeyURL        = "url"
	KeyLayout     = "layout"
	KeyExtension  = "extension"
	KeyPriority   = "priority"
	KeyAction     = "action"
	KeyCount      = "count"
	KeyBackend    = "backend"
	KeyOutcome    = "outcome"
	KeyError      = "error"
)

// Simple helpers returning slog.Attr. Keeping each granular means callers can compose.
func BuildID(id string) slog.Attr      { return slog.String(KeyBuildID, id) }
func Stage(name string) slog.Attr      { return slog.String(KeyStage, name) }
func DurationMS(ms float64) slog.Attr  { return slog.Float64(KeyDurationMS, ms) }
func Path(p string) slog.Attr          { return slog.String(KeyPath, p) }
func URL(u string) slog.Attr           { return slog.String(KeyURL, u) }
func Layout(l string) slog.Attr        { return slog.String(KeyLayout, l) }
func Extension(name string) slog.Attr  { return slog.String(KeyExtension, name) }
func Priority(p int) slog.Attr         { return slog.Int(KeyPriority, p) }
func Action(a string) slog.Attr        { return slog.String(KeyAction, a) }
func Count(n int) slog.Attr            { return slog.Int(KeyCount, n) }
func Backend(name string) slog.Attr    { return slog.String(KeyBackend, name) }
func Outcome(o string) slog.Attr       { return slog.String(KeyOutcome, o) }
func Error(err error) slog.Attr {
	if err == nil {
		return slog.String(KeyError, "")
	}
	return slog.String(KeyError, err.Error())
}
