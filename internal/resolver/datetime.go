package resolver

import "time"

// MinDateTime is the earliest wall-clock time a classic DATETIME column can
// store. Earlier values need the wider DateTime2 type.
var MinDateTime = time.Date(1753, time.January, 1, 0, 0, 0, 0, time.UTC)

// DateTimeResolver redirects time.Time values before MinDateTime to DateTime2.
// DATETIME carries no zone, so the value's own wall clock is compared.
func DateTimeResolver() Resolver {
	return Typed(func(t time.Time) (DBType, bool) {
		if wallClock(t).Before(MinDateTime) {
			return DateTime2, true
		}
		return Unspecified, false
	})
}

func wallClock(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), t.Hour(), t.Minute(), t.Second(), t.Nanosecond(), time.UTC)
}
