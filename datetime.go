package rowql

import (
	"strconv"
	"strings"
	"time"

	"github.com/araddon/dateparse"
	"github.com/lestrrat-go/strftime"
)

var (
	dateOnlyFormat     = mustStrftime("%Y-%m-%d")
	dateTimeFullFormat = mustStrftime("%Y-%m-%d %H:%M:%S")
)

func mustStrftime(pattern string) *strftime.Strftime {
	f, err := strftime.New(pattern)
	if err != nil {
		panic(err)
	}
	return f
}

// DateTimeFromString accepts "YYYY-MM-DD", "HH:MM:SS[.fff]", or both
// separated by a space (or passed as two pre-split arguments via
// DateTimeFromParts). Two-digit years 00-49 map to 2000+Y, 50-99 to
// 1900+Y. Out-of-range components set the Error flag.
func DateTimeFromString(s string) DateTime {
	s = strings.TrimSpace(s)
	if s == "" {
		return DateTime{Error: true}
	}
	if date, clock, ok := strings.Cut(s, " "); ok {
		return DateTimeFromParts(date, clock)
	}
	if strings.Contains(s, "T") {
		if date, clock, ok := strings.Cut(s, "T"); ok {
			return DateTimeFromParts(date, clock)
		}
	}
	if strings.Contains(s, ":") && !strings.Contains(s, "-") {
		return DateTimeFromParts("", s)
	}
	return DateTimeFromParts(s, "")
}

// DateTimeFromParts parses a date component and a clock component
// independently, either of which may be empty.
func DateTimeFromParts(date, clock string) DateTime {
	var d DateTime
	if date == "" && clock == "" {
		d.Error = true
		return d
	}
	if date != "" {
		y, m, day, ok := parseDatePart(date)
		if !ok {
			d.Error = true
			return d
		}
		d.Year, d.Month, d.Day = y, m, day
	}
	d.DateOnly = clock == ""
	if clock != "" {
		h, mi, sec, ms, ok := parseClockPart(clock)
		if !ok {
			d.Error = true
			return d
		}
		d.Hour, d.Minute, d.Second, d.Millis = h, mi, sec, ms
	}
	if !validDate(d.Year, d.Month, d.Day) || !validClock(d.Hour, d.Minute, d.Second) {
		d.Error = true
	}
	return d
}

func parseDatePart(s string) (year, month, day int, ok bool) {
	parts := strings.FieldsFunc(s, func(r rune) bool { return r == '-' || r == '/' })
	if len(parts) != 3 {
		// fall back to a general-purpose parser for odd shapes
		if t, err := dateparse.ParseAny(s); err == nil {
			return t.Year(), int(t.Month()), t.Day(), true
		}
		return 0, 0, 0, false
	}
	nums := make([]int, 3)
	for i, p := range parts {
		n, err := strconv.Atoi(p)
		if err != nil {
			return 0, 0, 0, false
		}
		nums[i] = n
	}
	year, month, day = nums[0], nums[1], nums[2]
	if year < 100 {
		if year <= 49 {
			year += 2000
		} else {
			year += 1900
		}
	}
	return year, month, day, true
}

func parseClockPart(s string) (hour, minute, second, millis int, ok bool) {
	whole, frac, hasFrac := strings.Cut(s, ".")
	parts := strings.Split(whole, ":")
	if len(parts) < 2 || len(parts) > 3 {
		return 0, 0, 0, 0, false
	}
	nums := make([]int, len(parts))
	for i, p := range parts {
		n, err := strconv.Atoi(p)
		if err != nil {
			return 0, 0, 0, 0, false
		}
		nums[i] = n
	}
	hour, minute = nums[0], nums[1]
	if len(nums) == 3 {
		second = nums[2]
	}
	if hasFrac {
		// keep the first four fractional digits (0-9999 ten-thousandths);
		// further digits are dropped, not rounded
		for len(frac) < 4 {
			frac += "0"
		}
		n, err := strconv.Atoi(frac[:4])
		if err != nil {
			return 0, 0, 0, 0, false
		}
		millis = n
	}
	return hour, minute, second, millis, true
}

func validDate(y, m, d int) bool {
	if y == 0 && m == 0 && d == 0 {
		return true // date omitted
	}
	if m < 1 || m > 12 || d < 1 || d > 31 {
		return false
	}
	return true
}

func validClock(h, m, s int) bool {
	if h == 0 && m == 0 && s == 0 {
		return true
	}
	return h >= 0 && h < 24 && m >= 0 && m < 60 && s >= 0 && s < 60
}

func dateTimeToEpochSeconds(d DateTime) int64 {
	if d.Error {
		return 0
	}
	t := time.Date(d.Year, time.Month(d.Month), d.Day, d.Hour, d.Minute, d.Second, 0, time.UTC)
	return t.Unix()
}

func epochSecondsToDateTime(sec int64) DateTime {
	t := time.Unix(sec, 0).UTC()
	return DateTime{
		Year: t.Year(), Month: int(t.Month()), Day: t.Day(),
		Hour: t.Hour(), Minute: t.Minute(), Second: t.Second(),
	}
}

// AddSeconds returns a new DateTime offset by n seconds, used by datetime
// arithmetic expressions (e.g. applying a timezone offset).
func (d DateTime) AddSeconds(n int64) DateTime {
	if d.Error {
		return d
	}
	t := time.Date(d.Year, time.Month(d.Month), d.Day, d.Hour, d.Minute, d.Second, 0, time.UTC)
	t = t.Add(time.Duration(n) * time.Second)
	return DateTime{
		Year: t.Year(), Month: int(t.Month()), Day: t.Day(),
		Hour: t.Hour(), Minute: t.Minute(), Second: t.Second(),
		Millis: d.Millis,
	}
}

func formatDateTime(d DateTime) string {
	if d.Error {
		return ""
	}
	t := time.Date(d.Year, time.Month(d.Month), d.Day, d.Hour, d.Minute, d.Second, 0, time.UTC)
	if d.DateOnly {
		var sb strings.Builder
		dateOnlyFormat.Format(&sb, t)
		return sb.String()
	}
	var sb strings.Builder
	dateTimeFullFormat.Format(&sb, t)
	if d.Millis != 0 {
		frac := strconv.Itoa(d.Millis)
		for len(frac) < 4 {
			frac = "0" + frac
		}
		frac = strings.TrimRight(frac, "0")
		sb.WriteString(".")
		sb.WriteString(frac)
	}
	return sb.String()
}
