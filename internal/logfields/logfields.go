package logfields

import (
	"log/slog"
	"time"
)

// Canonical log field name constants to avoid drift across packages.
const (
	KeyStage       = "stage"
	KeyDurationMS  = "duration_ms"
	KeyError       = "error"
	KeyPath        = "path"
	KeyOutput      = "output"
	KeyKind        = "kind"
	KeyClass       = "classification"
	KeyHash        = "hash"
	KeyCount       = "count"
	KeyTemplate    = "template"
	KeyShortcode   = "shortcode"
	KeyURL         = "url"
	KeyPermalink   = "permalink"
	KeyEvent       = "event"
	KeyMethod      = "method"
	KeyStatus      = "status"
	KeyResponseSz  = "response_size"
	KeyRemoteAddr  = "remote_addr"
	KeySchedule    = "schedule"
	KeyBuildID     = "build_id"
	KeyDevelopment = "development"
)

// Simple helpers returning slog.Attr. Keeping each granular means callers can compose.
func Stage(name string) slog.Attr       { return slog.String(KeyStage, name) }
func DurationMS(ms float64) slog.Attr   { return slog.Float64(KeyDurationMS, ms) }
func Path(p string) slog.Attr           { return slog.String(KeyPath, p) }
func Output(p string) slog.Attr         { return slog.String(KeyOutput, p) }
func Kind(k string) slog.Attr           { return slog.String(KeyKind, k) }
func Classification(c string) slog.Attr { return slog.String(KeyClass, c) }
func Hash(h string) slog.Attr           { return slog.String(KeyHash, h) }
func Count(n int) slog.Attr             { return slog.Int(KeyCount, n) }
func Template(name string) slog.Attr    { return slog.String(KeyTemplate, name) }
func Shortcode(name string) slog.Attr   { return slog.String(KeyShortcode, name) }
func URL(u string) slog.Attr            { return slog.String(KeyURL, u) }
func Permalink(u string) slog.Attr      { return slog.String(KeyPermalink, u) }
func Event(e string) slog.Attr          { return slog.String(KeyEvent, e) }
func Method(m string) slog.Attr         { return slog.String(KeyMethod, m) }
func Status(code int) slog.Attr         { return slog.Int(KeyStatus, code) }
func ResponseSize(n int) slog.Attr      { return slog.Int(KeyResponseSz, n) }
func RemoteAddr(a string) slog.Attr     { return slog.String(KeyRemoteAddr, a) }
func Schedule(s string) slog.Attr       { return slog.String(KeySchedule, s) }
func BuildID(id string) slog.Attr       { return slog.String(KeyBuildID, id) }
func Development(on bool) slog.Attr     { return slog.Bool(KeyDevelopment, on) }

// Duration reports d in milliseconds under KeyDurationMS.
func Duration(d time.Duration) slog.Attr {
	return DurationMS(float64(d) / float64(time.Millisecond))
}

func Error(err error) slog.Attr {
	if err == nil {
		return slog.String(KeyError, "")
	}
	return slog.String(KeyError, err.Error())
}
