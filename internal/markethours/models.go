package markethours

import "time"

// CalendarType represents the calendar system used for Easter calculation
type CalendarType int

const (
	// Gregorian calendar (Western/Catholic)
	Gregorian CalendarType = iota
	// Julian calendar (Orthodox)
	Julian
)

// TradingHours represents regular trading hours for an exchange
type TradingHours struct {
	OpenHour    int // Hour (0-23)
	OpenMinute  int // Minute (0-59)
	CloseHour   int // Hour (0-23)
	CloseMinute int // Minute (0-59)
}

// LunchBreak represents a midday trading break
type LunchBreak struct {
	StartHour   int
	StartMinute int
	EndHour     int
	EndMinute   int
}

// FixedDateHoliday represents a holiday on a fixed date
type FixedDateHoliday struct {
	Month int // 1-12
	Day   int // 1-31
	// If true, observe on nearest weekday if falls on weekend
	ObserveOnWeekday bool
}

// RuleBasedHoliday represents a holiday calculated by rule (nth weekday of month)
type RuleBasedHoliday struct {
	Month   int
	Weekday time.Weekday
	N       int // Nth occurrence (1 = first, -1 = last)
}

// EasterBasedHoliday represents a holiday relative to Easter
type EasterBasedHoliday struct {
	DaysOffset int // Days from Easter (negative = before, positive = after)
}

// HolidayRuleSet defines holidays for an exchange
type HolidayRuleSet struct {
	FixedDateHolidays   []FixedDateHoliday
	RuleBasedHolidays   []RuleBasedHoliday
	EasterBasedHolidays []EasterBasedHoliday
}

// ExchangeConfig represents configuration for a single exchange
type ExchangeConfig struct {
	Code         string
	Name         string
	TradingHours TradingHours
	Timezone     *time.Location
	EasterType   CalendarType
	LunchBreak   *LunchBreak
	HolidayRules HolidayRuleSet
}

// MarketStatus represents the current status of a market
type MarketStatus struct {
	Open      bool   `json:"open"`
	Exchange  string `json:"exchange"`
	Timezone  string `json:"timezone"`
	ClosesAt  string `json:"closes_at,omitempty"`  // Time when market closes (if open)
	OpensAt   string `json:"opens_at,omitempty"`   // Time when market opens (if closed)
	OpensDate string `json:"opens_date,omitempty"` // Date when market opens (if closed and opens tomorrow or later)
}
