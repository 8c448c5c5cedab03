package script

import (
	"strconv"
	"strings"
	"time"
)

// StampKind describes the normalized kind of a timestamp token.
//
// We intentionally keep this small: either an absolute point in time or a
// signed offset applied to the caller's cursor.
type StampKind int

const (
	StampAbsolute StampKind = iota
	StampRelative
)

// Stamp is a parsed timestamp token.
//
// Supported forms:
//   - RFC3339: "2030-01-01T00:00:00Z", "2022-03-28T10:23:33+02:00"
//   - RFC2822: "Mon, 28 Mar 2022 10:23:33 GMT" (weekday optional,
//     single-digit day accepted)
//   - Relative duration: "+10s", "-1h30m", "5m" (sign optional)
//   - Relative bare seconds: "25", "-40"
type Stamp struct {
	Kind   StampKind
	At     time.Time     // absolute forms
	Offset time.Duration // relative forms
}

// rfc2822Layouts covers the shapes RFC2822 date-times actually appear in.
// time.RFC1123Z is the canonical one; the rest relax the weekday and the
// zero-padded day, both optional per the RFC.
var rfc2822Layouts = []string{
	time.RFC1123Z,
	time.RFC1123,
	"Mon, 2 Jan 2006 15:04:05 -0700",
	"Mon, 2 Jan 2006 15:04:05 MST",
	"02 Jan 2006 15:04:05 -0700",
	"02 Jan 2006 15:04:05 MST",
	"2 Jan 2006 15:04:05 -0700",
	"2 Jan 2006 15:04:05 MST",
}

// ParseStamp parses one timestamp token. It probes the absolute grammars
// first, then the relative ones, and fails with ErrInvalidTimestamp naming
// the token when nothing matches.
func ParseStamp(raw string) (Stamp, error) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return Stamp{}, &ParseError{Token: raw, Kind: ErrInvalidTimestamp}
	}

	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return Stamp{Kind: StampAbsolute, At: t}, nil
	}
	for _, layout := range rfc2822Layouts {
		if t, err := time.Parse(layout, s); err == nil {
			return Stamp{Kind: StampAbsolute, At: t}, nil
		}
	}

	// Bare integers are offsets in seconds. This predates the duration
	// grammar and existing cue sheets rely on it.
	if n, err := strconv.ParseInt(s, 10, 64); err == nil {
		return Stamp{Kind: StampRelative, Offset: time.Duration(n) * time.Second}, nil
	}

	// Signed Go duration: "+5m", "-1h30m", "90s".
	if d, err := time.ParseDuration(s); err == nil {
		return Stamp{Kind: StampRelative, Offset: d}, nil
	}

	return Stamp{}, &ParseError{Token: raw, Kind: ErrInvalidTimestamp}
}

// Resolve turns the stamp into an absolute time. Absolute stamps ignore the
// cursor; relative stamps offset it. Callers chain relative entries by
// feeding each result back in as the next cursor.
func (s Stamp) Resolve(cursor time.Time) time.Time {
	if s.Kind == StampAbsolute {
		return s.At
	}
	return cursor.Add(s.Offset)
}
