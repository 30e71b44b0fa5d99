// Package calendar holds weekday-only trading-day arithmetic and the US
// equity market clock. No holiday calendar is applied.
package calendar

import (
	"time"
	_ "time/tzdata"
)

// Regular session in New York time.
const (
	OpenHour    = 9
	OpenMinute  = 30
	CloseHour   = 16
	CloseMinute = 0
)

// NewYork is the exchange time zone.
var NewYork = loadNewYork()

func loadNewYork() *time.Location {
	loc, err := time.LoadLocation("America/New_York")
	if err != nil {
		return time.FixedZone("EST", -5*3600)
	}
	return loc
}

// IsTradingDay reports whether t falls on Monday through Friday.
func IsTradingDay(t time.Time) bool {
	wd := t.Weekday()
	return wd != time.Saturday && wd != time.Sunday
}

// IsWithinTradingDays reports whether target falls within `days` trading
// days counted forward from now, today included when it is a weekday. Dates
// are compared as calendar dates in now's location. A target dated today is
// always within a non-negative window; earlier dates never are.
func IsWithinTradingDays(now, target time.Time, days int) bool {
	if days < 0 {
		return false
	}
	today := dateOf(now)
	day := dateOf(target.In(now.Location()))
	if day.Before(today) {
		return false
	}
	if day.Equal(today) {
		return true
	}

	count := 0
	for d := today; !d.After(day); d = d.AddDate(0, 0, 1) {
		if IsTradingDay(d) {
			count++
			if count > days {
				return false
			}
		}
	}
	return true
}

// IsMarketOpen reports whether t is inside the regular NYSE session.
func IsMarketOpen(t time.Time) bool {
	ny := t.In(NewYork)
	if !IsTradingDay(ny) {
		return false
	}
	hm := ny.Hour()*60 + ny.Minute()
	return hm >= OpenHour*60+OpenMinute && hm < CloseHour*60+CloseMinute
}

func dateOf(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}
