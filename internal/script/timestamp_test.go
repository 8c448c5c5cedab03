package script

import (
	"errors"
	"testing"
	"time"
)

func TestParseStampAbsolute(t *testing.T) {
	t.Parallel()
	want := time.Date(2022, 3, 28, 10, 23, 33, 0, time.UTC)

	tests := []struct {
		name string
		raw  string
	}{
		{name: "rfc3339", raw: "2022-03-28T10:23:33Z"},
		{name: "rfc3339 offset", raw: "2022-03-28T12:23:33+02:00"},
		{name: "rfc2822", raw: "Mon, 28 Mar 2022 10:23:33 GMT"},
		{name: "rfc2822 numeric zone", raw: "Mon, 28 Mar 2022 10:23:33 +0000"},
		{name: "rfc2822 no weekday", raw: "28 Mar 2022 10:23:33 GMT"},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseStamp(tt.raw)
			if err != nil {
				t.Fatalf("ParseStamp(%q) error: %v", tt.raw, err)
			}
			if got.Kind != StampAbsolute {
				t.Fatalf("Kind = %v, want StampAbsolute", got.Kind)
			}
			if !got.At.Equal(want) {
				t.Fatalf("At = %v, want %v", got.At, want)
			}
		})
	}
}

func TestParseStampAbsoluteIgnoresCursor(t *testing.T) {
	t.Parallel()
	s, err := ParseStamp("2030-01-01T00:00:00Z")
	if err != nil {
		t.Fatal(err)
	}
	want := time.Date(2030, 1, 1, 0, 0, 0, 0, time.UTC)
	for _, cursor := range []time.Time{{}, time.Now(), want.Add(72 * time.Hour)} {
		if got := s.Resolve(cursor); !got.Equal(want) {
			t.Fatalf("Resolve(%v) = %v, want %v", cursor, got, want)
		}
	}
}

func TestParseStampRelative(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name   string
		raw    string
		offset time.Duration
	}{
		{name: "bare seconds", raw: "25", offset: 25 * time.Second},
		{name: "negative seconds", raw: "-40", offset: -40 * time.Second},
		{name: "plus duration", raw: "+10s", offset: 10 * time.Second},
		{name: "compound duration", raw: "-1h30m", offset: -(time.Hour + 30*time.Minute)},
		{name: "unsigned duration", raw: "5m", offset: 5 * time.Minute},
	}

	cursor := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseStamp(tt.raw)
			if err != nil {
				t.Fatalf("ParseStamp(%q) error: %v", tt.raw, err)
			}
			if got.Kind != StampRelative {
				t.Fatalf("Kind = %v, want StampRelative", got.Kind)
			}
			if got.Offset != tt.offset {
				t.Fatalf("Offset = %v, want %v", got.Offset, tt.offset)
			}
			if want := cursor.Add(tt.offset); !got.Resolve(cursor).Equal(want) {
				t.Fatalf("Resolve = %v, want %v", got.Resolve(cursor), want)
			}
		})
	}
}

func TestParseStampInvalid(t *testing.T) {
	t.Parallel()
	for _, raw := range []string{"", "soon", "2022-13-45T99:99:99Z", "10 bananas"} {
		_, err := ParseStamp(raw)
		if err == nil {
			t.Fatalf("ParseStamp(%q): expected error", raw)
		}
		if !errors.Is(err, ErrInvalidTimestamp) {
			t.Fatalf("ParseStamp(%q) err = %v, want ErrInvalidTimestamp", raw, err)
		}
	}
}
