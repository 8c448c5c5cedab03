package script

import (
	"fmt"
	"strings"
	"time"
)

// DefaultDelimiter separates the timestamp, topic and payload fields of a
// cue-sheet line.
const DefaultDelimiter = '|'

// Message is one parsed cue-sheet line with its timestamp already resolved
// against the fragment's cursor chain.
//
// Seq is the line's position among accepted lines in its file and is the
// in-file tie-break for entries sharing a due time.
type Message struct {
	Due     time.Time
	Topic   string
	Payload []byte
	Seq     int
	Line    int // 1-based source line, for logs
}

// Parse parses the raw content of one fragment file.
//
// Each non-blank line must split on the delimiter into exactly three
// fields: timestamp, topic, payload. The timestamp cursor starts at
// loadTime and advances to every resolved value, so a run of relative
// stamps composes cumulatively. Topic is trimmed; payload is kept
// byte-exact because leading or trailing whitespace may be meaningful to
// the subscriber.
//
// Parsing is atomic per file: the first bad line rejects the whole
// fragment.
func Parse(content string, delimiter byte, loadTime time.Time) ([]Message, error) {
	cursor := loadTime
	var msgs []Message

	for i, line := range strings.Split(content, "\n") {
		lineNo := i + 1
		if strings.TrimSpace(line) == "" {
			continue
		}
		line = strings.TrimSuffix(line, "\r")

		fields := strings.Split(line, string(delimiter))
		if len(fields) != 3 {
			return nil, &ParseError{
				Line: lineNo,
				Kind: ErrMalformedLine,
				Cause: fmt.Errorf("expected 3 fields separated by %q, got %d",
					string(delimiter), len(fields)),
			}
		}

		stamp, err := ParseStamp(fields[0])
		if err != nil {
			if pe, ok := err.(*ParseError); ok {
				pe.Line = lineNo
				return nil, pe
			}
			return nil, err
		}

		due := stamp.Resolve(cursor)
		cursor = due

		msgs = append(msgs, Message{
			Due:     due,
			Topic:   strings.TrimSpace(fields[1]),
			Payload: []byte(fields[2]),
			Seq:     len(msgs),
			Line:    lineNo,
		})
	}

	return msgs, nil
}
