package subscription

import "time"

// AddMonths adds n calendar months to t, preserving the day of month
// where possible. When the target month is shorter than the original day
// (e.g. Jan 31 + 1 month), the result clamps to the last day of that
// month instead of rolling over.
func AddMonths(t time.Time, n int) time.Time {
	year, month, day := t.Date()

	// First day of the target month; time.Date normalizes month overflow.
	first := time.Date(year, month+time.Month(n), 1,
		t.Hour(), t.Minute(), t.Second(), t.Nanosecond(), t.Location())

	if last := first.AddDate(0, 1, -1).Day(); day > last {
		day = last
	}

	return time.Date(first.Year(), first.Month(), day,
		t.Hour(), t.Minute(), t.Second(), t.Nanosecond(), t.Location())
}
