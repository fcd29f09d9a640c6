package warranty

import "time"

// DurationMonths counts calendar months between start and expiry. A trailing
// partial month of at least 15 days rounds up. Expiry before start yields 0.
func DurationMonths(start, expiry time.Time) int {
	start = truncateDay(start)
	expiry = truncateDay(expiry)
	if !expiry.After(start) {
		return 0
	}

	months := (expiry.Year()-start.Year())*12 + int(expiry.Month()-start.Month())
	anchor := start.AddDate(0, months, 0)
	if anchor.After(expiry) {
		months--
		anchor = start.AddDate(0, months, 0)
	}
	if expiry.Sub(anchor) >= 15*24*time.Hour {
		months++
	}
	return months
}

func truncateDay(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
