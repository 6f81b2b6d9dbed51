package common

import "time"

// ISO8601 is the layout used when award timestamps are rendered as text.
const ISO8601 = "2006-01-02T15:04:05.000000Z07:00"

// Clock returns the current time. Components take a Clock so tests can pin awarded_at.
type Clock func() time.Time

// NowUTC returns the current time in UTC, truncated to microseconds.
// This matches PostgreSQL TIMESTAMPTZ precision so a value read back equals the value written.
//
// Example:
//   - Input: 2025-10-17 14:23:45.123456789 UTC
//   - Output: 2025-10-17 14:23:45.123456 UTC
func NowUTC() time.Time {
	return TruncateToMicrosUTC(time.Now())
}

// TruncateToMicrosUTC converts t to UTC and drops sub-microsecond precision.
func TruncateToMicrosUTC(t time.Time) time.Time {
	return t.UTC().Truncate(time.Microsecond)
}

// FormatISO8601 renders t in UTC using the ISO8601 layout.
func FormatISO8601(t time.Time) string {
	return t.UTC().Format(ISO8601)
}

// FixedClock returns a Clock that always reports t.
func FixedClock(t time.Time) Clock {
	return func() time.Time { return t }
}
