package script

import (
	"errors"
	"fmt"
)

// Sentinel kinds for parse failures. Wrapped by ParseError so callers can
// match with errors.Is while still getting file/line context.
var (
	ErrInvalidTimestamp = errors.New("invalid timestamp")
	ErrMalformedLine    = errors.New("malformed line")
	ErrRead             = errors.New("read failed")
)

// ParseError describes why a fragment was rejected. A fragment fails
// atomically: the first bad line invalidates the whole file so a typo never
// silently drops part of a cue sheet.
type ParseError struct {
	Path  string // fragment file, may be empty when parsing raw content
	Line  int    // 1-based line number, 0 when not line-scoped
	Token string // offending token for timestamp errors
	Kind  error  // one of the sentinels above
	Cause error
}

func (e *ParseError) Error() string {
	where := e.Path
	if e.Line > 0 {
		if where != "" {
			where += ":"
		}
		where += fmt.Sprintf("%d", e.Line)
	}
	msg := e.Kind.Error()
	if e.Token != "" {
		msg += fmt.Sprintf(" %q", e.Token)
	}
	if e.Cause != nil {
		msg += ": " + e.Cause.Error()
	}
	if where == "" {
		return msg
	}
	return where + ": " + msg
}

func (e *ParseError) Unwrap() error { return e.Kind }
