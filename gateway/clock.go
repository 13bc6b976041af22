package gateway

import "time"

// chinaLocation is loaded once; all exchanges in scope share Asia/Shanghai,
// including daylight-saving-free arithmetic (ported from original_source's
// timezone.py).
var chinaLocation = mustLoadChina()

func mustLoadChina() *time.Location {
	loc, err := time.LoadLocation("Asia/Shanghai")
	if err != nil {
		return time.FixedZone("CST", 8*60*60)
	}
	return loc
}

// Day/night trading session boundaries, in China local time (§9, clock.go
// supplemented feature). The night session wraps past midnight.
var (
	daySessionStart   = mkTimeOfDay(9, 0)
	daySessionEnd     = mkTimeOfDay(15, 0)
	nightSessionStart = mkTimeOfDay(21, 0)
	nightSessionEnd   = mkTimeOfDay(2, 30)
)

type timeOfDay struct {
	hour, minute int
}

func mkTimeOfDay(h, m int) timeOfDay { return timeOfDay{hour: h, minute: m} }

// ToChinaTime converts t to Asia/Shanghai wall-clock time, treating a zero
// Location (naive) input as already UTC.
func ToChinaTime(t time.Time) time.Time {
	return t.In(chinaLocation)
}

// IsTradingTime reports whether t falls within the day session
// (09:00-15:00) or the night session (21:00-02:30 next day), in China
// local time.
func IsTradingTime(t time.Time) bool {
	local := ToChinaTime(t)
	h, m, _ := local.Clock()

	if cmpHM(h, m, daySessionStart) >= 0 && cmpHM(h, m, daySessionEnd) <= 0 {
		return true
	}
	if cmpHM(h, m, nightSessionStart) >= 0 {
		return true
	}
	if cmpHM(h, m, nightSessionEnd) <= 0 {
		return true
	}
	return false
}

func cmpHM(h, m int, ref timeOfDay) int {
	if h != ref.hour {
		return h - ref.hour
	}
	return m - ref.minute
}

// TradingDay returns the YYYYMMDD trading-day label for t: the night
// session (21:00 and later, China local time) rolls forward to the next
// calendar day; the early-morning tail of the night session (before
// 02:30) stays on the current calendar day.
func TradingDay(t time.Time) string {
	local := ToChinaTime(t)
	h, m, _ := local.Clock()
	if cmpHM(h, m, nightSessionStart) >= 0 {
		local = local.AddDate(0, 0, 1)
	}
	return local.Format("20060102")
}
