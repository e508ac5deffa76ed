// Package markethours implements the equities market-hours calendar (§6):
// session classification in Eastern time, a holiday calendar, and an
// early-close calendar. Grounded on the teacher's Alpaca-oriented
// session helpers in trader/alpaca_trader.go, generalized into a standalone
// calendar the HunterService gate and the orchestrator endpoints share.
package markethours

import "time"

// Session is one of the named trading sessions.
type Session string

const (
	SessionClosed     Session = "closed"
	SessionPreMarket  Session = "pre_market"
	SessionRegular    Session = "regular"
	SessionAfterHours Session = "after_hours"
	SessionWeekend    Session = "weekend"
	SessionHoliday    Session = "holiday"
)

var eastern *time.Location

func init() {
	loc, err := time.LoadLocation("America/New_York")
	if err != nil {
		loc = time.FixedZone("EST", -5*60*60)
	}
	eastern = loc
}

// holidays is the enumerated 2024-2026 NYSE holiday set (closed all day).
// Add new years by appending "YYYY-MM-DD" entries here.
var holidays = map[string]bool{
	"2024-01-01": true, "2024-01-15": true, "2024-02-19": true, "2024-03-29": true,
	"2024-05-27": true, "2024-06-19": true, "2024-07-04": true, "2024-09-02": true,
	"2024-11-28": true, "2024-12-25": true,
	"2025-01-01": true, "2025-01-20": true, "2025-02-17": true, "2025-04-18": true,
	"2025-05-26": true, "2025-06-19": true, "2025-07-04": true, "2025-09-01": true,
	"2025-11-27": true, "2025-12-25": true,
	"2026-01-01": true, "2026-01-19": true, "2026-02-16": true, "2026-04-03": true,
	"2026-05-25": true, "2026-06-19": true, "2026-07-03": true, "2026-09-07": true,
	"2026-11-26": true, "2026-12-25": true,
}

// earlyCloses are 13:00 ET close days (day before Independence Day, day
// after Thanksgiving, Christmas Eve when a trading day).
var earlyCloses = map[string]bool{
	"2024-07-03": true, "2024-11-29": true, "2024-12-24": true,
	"2025-07-03": true, "2025-11-28": true, "2025-12-24": true,
	"2026-07-02": true, "2026-11-27": true, "2026-12-24": true,
}

func dateKey(t time.Time) string { return t.Format("2006-01-02") }

// IsHoliday reports whether t's Eastern calendar date is a market holiday.
func IsHoliday(t time.Time) bool { return holidays[dateKey(t.In(eastern))] }

// IsEarlyClose reports whether t's Eastern calendar date closes at 13:00.
func IsEarlyClose(t time.Time) bool { return earlyCloses[dateKey(t.In(eastern))] }

// Classify returns the trading session containing instant t (§6: sessions
// {closed, pre_market [04:00-09:30), regular [09:30-close), after_hours
// [close-20:00), weekend, holiday}).
func Classify(t time.Time) Session {
	et := t.In(eastern)
	if wd := et.Weekday(); wd == time.Saturday || wd == time.Sunday {
		return SessionWeekend
	}
	if IsHoliday(et) {
		return SessionHoliday
	}

	minuteOfDay := et.Hour()*60 + et.Minute()
	preOpen := 4 * 60
	regularOpen := 9*60 + 30
	closeMinute := 16 * 60
	if IsEarlyClose(et) {
		closeMinute = 13 * 60
	}
	afterClose := 20 * 60

	switch {
	case minuteOfDay >= preOpen && minuteOfDay < regularOpen:
		return SessionPreMarket
	case minuteOfDay >= regularOpen && minuteOfDay < closeMinute:
		return SessionRegular
	case minuteOfDay >= closeMinute && minuteOfDay < afterClose:
		return SessionAfterHours
	default:
		return SessionClosed
	}
}

// IsRegularSession reports whether options/equities trading is permitted
// at t (§4.8 gate 1, §6: "Options trading permitted only in regular").
func IsRegularSession(t time.Time) bool { return Classify(t) == SessionRegular }
