package services

import "time"

const dayLayout = "2006-01-02"

// ResolveLocation loads an IANA timezone, falling back to UTC when the name
// is empty or unknown. A bad timezone must never fail a check-in.
func ResolveLocation(tz string) *time.Location {
	if tz == "" {
		return time.UTC
	}
	loc, err := time.LoadLocation(tz)
	if err != nil {
		return time.UTC
	}
	return loc
}

// LocalDay converts an instant to a calendar date string in the given
// location. Dates are compared as strings everywhere; the conversion from
// instant to date happens exactly once per request.
func LocalDay(t time.Time, loc *time.Location) string {
	return t.In(loc).Format(dayLayout)
}

// PreviousLocalDay returns the calendar date one day before the instant's
// local date.
func PreviousLocalDay(t time.Time, loc *time.Location) string {
	return t.In(loc).AddDate(0, 0, -1).Format(dayLayout)
}

// NextStreak computes the streak after checking in on today. Only a check-in
// on the immediately preceding local day continues the streak; a first-ever
// check-in, a gap, or a clock-skewed future date all reset to 1.
func NextStreak(lastDate, yesterday string, current int) int {
	if lastDate == yesterday {
		return current + 1
	}
	return 1
}

// BonusDue reports whether reaching streak triggers the periodic bonus.
// lastBonusStreak guards against double-awarding when a retried write
// observes the same streak value twice.
func BonusDue(streak, interval, lastBonusStreak int) bool {
	if interval <= 0 || streak <= 0 {
		return false
	}
	return streak%interval == 0 && streak != lastBonusStreak
}

// DaysUntilBonus returns how many consecutive days remain until the next
// bonus milestone.
func DaysUntilBonus(streak, interval int) int {
	if interval <= 0 {
		return 0
	}
	if streak < 0 {
		streak = 0
	}
	return interval - streak%interval
}
