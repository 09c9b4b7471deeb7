package markethours

import "time"

// CalculateEaster calculates the date of Easter for a given year and calendar type.
func CalculateEaster(year int, calendarType CalendarType) time.Time {
	if calendarType == Julian {
		return calculateJulianEaster(year)
	}
	return calculateGregorianEaster(year)
}

// calculateGregorianEaster uses the anonymous Gregorian computus.
func calculateGregorianEaster(year int) time.Time {
	a := year % 19
	b := year / 100
	c := year % 100
	d := b / 4
	e := b % 4
	f := (b + 8) / 25
	g := (b - f + 1) / 3
	h := (19*a + b - d - g + 15) % 30
	i := c / 4
	k := c % 4
	l := (32 + 2*e + 2*i - h - k) % 7
	m := (a + 11*h + 22*l) / 451

	month := (h + l - 7*m + 114) / 31
	day := ((h + l - 7*m + 114) % 31) + 1

	return time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)
}

// calculateJulianEaster uses the Julian computus and converts the result to the
// Gregorian calendar. Valid for years 1900-2099 (13-day offset).
func calculateJulianEaster(year int) time.Time {
	a := year % 19
	b := year % 4
	c := year % 7
	d := (19*a + 15) % 30
	e := (2*b + 4*c + 6*d + 6) % 7

	day := 22 + d + e
	month := time.March
	if day > 31 {
		day -= 31
		month = time.April
	}

	julianDate := time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
	return julianDate.AddDate(0, 0, 13)
}

// findNthWeekday finds the nth occurrence of a weekday in a given month/year.
func findNthWeekday(year, month int, weekday time.Weekday, n int) time.Time {
	date := time.Date(year, time.Month(month), 1, 0, 0, 0, 0, time.UTC)

	daysToAdd := int(weekday - date.Weekday())
	if daysToAdd < 0 {
		daysToAdd += 7
	}

	return date.AddDate(0, 0, daysToAdd+(n-1)*7)
}

// findLastWeekday finds the last occurrence of a weekday in a given month/year.
func findLastWeekday(year, month int, weekday time.Weekday) time.Time {
	// Day 0 of the next month is the last day of this month.
	date := time.Date(year, time.Month(month+1), 0, 0, 0, 0, 0, time.UTC)

	daysToSubtract := int(date.Weekday() - weekday)
	if daysToSubtract < 0 {
		daysToSubtract += 7
	}

	return date.AddDate(0, 0, -daysToSubtract)
}

// observeOnWeekday moves a date to the nearest weekday if it falls on a weekend:
// Saturday -> Friday, Sunday -> Monday.
func observeOnWeekday(date time.Time) time.Time {
	switch date.Weekday() {
	case time.Saturday:
		return date.AddDate(0, 0, -1)
	case time.Sunday:
		return date.AddDate(0, 0, 1)
	default:
		return date
	}
}
