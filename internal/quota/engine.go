package quota

import (
	"time"
)

// Tier caps. Lifetime users extend their monthly cap with purchased credits.
const (
	freeDailyCap       = 5
	proMonthlyCap      = 500
	lifetimeMonthlyCap = 100
)

// location is the reference time zone for quota windows. Vantag's user base
// is Turkish, so windows roll over at Istanbul midnight regardless of where
// the server runs.
var location = loadLocation()

func loadLocation() *time.Location {
	loc, err := time.LoadLocation("Europe/Istanbul")
	if err != nil {
		// Turkey has been fixed at UTC+3 since 2016.
		return time.FixedZone("+03", 3*60*60)
	}
	return loc
}

// Location returns the reference time zone for quota windows.
func Location() *time.Location {
	return location
}

// DayKey formats t's calendar day in the reference time zone.
func DayKey(t time.Time) string {
	return t.In(location).Format("2006-01-02")
}

// MonthKey formats t's calendar month in the reference time zone.
func MonthKey(t time.Time) string {
	return t.In(location).Format("2006-01")
}

// Decide evaluates a usage record against the tier policy at the given
// instant. It is a pure function and total over its inputs: unknown tiers
// get the free policy, and a stale window key reads as a zero count.
func Decide(rec *UsageRecord, tier Tier, now time.Time) Decision {
	switch tier {
	case TierPro:
		return monthlyDecision(rec, proMonthlyCap, now)
	case TierLifetime:
		return monthlyDecision(rec, lifetimeMonthlyCap+rec.PurchasedCredits, now)
	default:
		return dailyDecision(rec, freeDailyCap, now)
	}
}

func dailyDecision(rec *UsageRecord, cap int, now time.Time) Decision {
	count := 0
	if rec.DailyWindowKey == DayKey(now) {
		count = rec.DailyCount
	}
	return Decision{
		Allowed:   count < cap,
		Remaining: max(0, cap-count),
		ResetAt:   nextMidnight(now),
		LimitType: LimitDaily,
	}
}

func monthlyDecision(rec *UsageRecord, cap int, now time.Time) Decision {
	count := 0
	if rec.MonthlyWindowKey == MonthKey(now) {
		count = rec.MonthlyCount
	}
	return Decision{
		Allowed:   count < cap,
		Remaining: max(0, cap-count),
		ResetAt:   firstOfNextMonth(now),
		LimitType: LimitMonthly,
	}
}

func nextMidnight(now time.Time) time.Time {
	local := now.In(location)
	return time.Date(local.Year(), local.Month(), local.Day()+1, 0, 0, 0, 0, location)
}

func firstOfNextMonth(now time.Time) time.Time {
	local := now.In(location)
	return time.Date(local.Year(), local.Month()+1, 1, 0, 0, 0, 0, location)
}
