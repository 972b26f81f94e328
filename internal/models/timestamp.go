package models

import (
	"fmt"
	"strings"
	"time"
)

// TimestampLayout is the canonical created_at encoding: UTC, fixed six
// fractional digits, literal Z. Fixed width keeps byte order equal to time order.
const TimestampLayout = "2006-01-02T15:04:05.000000Z"

// legacyLayouts are the shapes producers have written historically.
// Layouts without a zone are interpreted as UTC.
var legacyLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04:05.999999999Z07:00",
	"2006-01-02 15:04:05.999999999",
	"2006-01-02",
}

// FormatTimestamp renders t in the canonical encoding.
func FormatTimestamp(t time.Time) string {
	return t.UTC().Format(TimestampLayout)
}

// Now returns the current time in the canonical encoding.
func Now() string {
	return FormatTimestamp(time.Now())
}

// ParseTimestamp parses any accepted encoding, canonical or legacy.
func ParseTimestamp(raw string) (time.Time, error) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return time.Time{}, fmt.Errorf("models: empty timestamp")
	}
	for _, layout := range legacyLayouts {
		if t, err := time.ParseInLocation(layout, s, time.UTC); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("models: unrecognized timestamp %q", raw)
}

// CanonicalTimestamp re-encodes raw in the canonical layout.
func CanonicalTimestamp(raw string) (string, error) {
	t, err := ParseTimestamp(raw)
	if err != nil {
		return "", err
	}
	return FormatTimestamp(t), nil
}

// IsCanonical reports whether raw is already in the canonical encoding.
func IsCanonical(raw string) bool {
	t, err := time.Parse(TimestampLayout, raw)
	return err == nil && t.Format(TimestampLayout) == raw
}
