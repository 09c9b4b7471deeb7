package markethours

import (
	"strings"
	"time"
)

// exchangeNameToCode maps exchange names as reported by the upstream quote API
// to MIC exchange codes. The API uses both short venue codes ("NMS", "NYQ")
// and full names ("NasdaqGS", "London"), depending on the endpoint.
var exchangeNameToCode = map[string]string{
	// US venues
	"NMS":      "XNAS",
	"NGM":      "XNAS",
	"NCM":      "XNAS",
	"NasdaqCM": "XNAS",
	"NasdaqGS": "XNAS",
	"NasdaqGM": "XNAS",
	"NASDAQ":   "XNAS",
	"NYQ":      "XNYS",
	"NYSE":     "XNYS",
	"New York": "XNYS",
	"PCX":      "XNYS", // NYSE Arca follows NYSE hours
	"AMEX":     "XNYS",

	// Europe
	"LSE":       "XLON",
	"London":    "XLON",
	"GER":       "XETR",
	"XETRA":     "XETR",
	"Frankfurt": "XETR",
	"PAR":       "XPAR",
	"Paris":     "XPAR",
	"AMS":       "XAMS",
	"Amsterdam": "XAMS",
	"MIL":       "XMIL",
	"Milan":     "XMIL",
	"ATH":       "ASEX",
	"Athens":    "ASEX",

	// Asia-Pacific
	"JPX":       "XTSE",
	"Tokyo":     "XTSE",
	"HKG":       "XHKG",
	"HKSE":      "XHKG",
	"Hong Kong": "XHKG",
}

// GetExchangeCode returns the MIC code for an exchange name reported upstream.
// Unknown names return an empty string; callers treat those venues as always
// trading, since serving stale prices is worse than an extra refetch.
func GetExchangeCode(exchangeName string) string {
	normalized := strings.TrimSpace(exchangeName)

	if _, exists := exchangeConfigs[normalized]; exists {
		return normalized
	}

	if code, ok := exchangeNameToCode[normalized]; ok {
		return code
	}

	for name, code := range exchangeNameToCode {
		if strings.EqualFold(normalized, name) {
			return code
		}
	}

	return ""
}

// getExchangeConfig returns the configuration for an exchange code, or nil
// for venues without a calendar.
func getExchangeConfig(exchangeCode string) *ExchangeConfig {
	if config, ok := exchangeConfigs[exchangeCode]; ok {
		return &config
	}
	return nil
}

// usHolidays is shared by NYSE and NASDAQ.
var usHolidays = HolidayRuleSet{
	FixedDateHolidays: []FixedDateHoliday{
		{Month: 1, Day: 1, ObserveOnWeekday: true},   // New Year's Day
		{Month: 6, Day: 19, ObserveOnWeekday: true},  // Juneteenth
		{Month: 7, Day: 4, ObserveOnWeekday: true},   // Independence Day
		{Month: 12, Day: 25, ObserveOnWeekday: true}, // Christmas
	},
	RuleBasedHolidays: []RuleBasedHoliday{
		{Month: 1, Weekday: time.Monday, N: 3},    // MLK Day
		{Month: 2, Weekday: time.Monday, N: 3},    // Presidents Day
		{Month: 5, Weekday: time.Monday, N: -1},   // Memorial Day
		{Month: 9, Weekday: time.Monday, N: 1},    // Labor Day
		{Month: 11, Weekday: time.Thursday, N: 4}, // Thanksgiving
	},
	EasterBasedHolidays: []EasterBasedHoliday{
		{DaysOffset: -2}, // Good Friday
	},
}

// exchangeConfigs contains all supported exchange configurations.
var exchangeConfigs = map[string]ExchangeConfig{
	"XNYS": {
		Code:         "XNYS",
		Name:         "New York Stock Exchange",
		TradingHours: TradingHours{OpenHour: 9, OpenMinute: 30, CloseHour: 16, CloseMinute: 0},
		Timezone:     mustLoadLocation("America/New_York"),
		EasterType:   Gregorian,
		HolidayRules: usHolidays,
	},
	"XNAS": {
		Code:         "XNAS",
		Name:         "NASDAQ",
		TradingHours: TradingHours{OpenHour: 9, OpenMinute: 30, CloseHour: 16, CloseMinute: 0},
		Timezone:     mustLoadLocation("America/New_York"),
		EasterType:   Gregorian,
		HolidayRules: usHolidays,
	},
	"XLON": {
		Code:         "XLON",
		Name:         "London Stock Exchange",
		TradingHours: TradingHours{OpenHour: 8, OpenMinute: 0, CloseHour: 16, CloseMinute: 30},
		Timezone:     mustLoadLocation("Europe/London"),
		EasterType:   Gregorian,
		HolidayRules: HolidayRuleSet{
			FixedDateHolidays: []FixedDateHoliday{
				{Month: 1, Day: 1, ObserveOnWeekday: true},
				{Month: 12, Day: 25, ObserveOnWeekday: true},
				{Month: 12, Day: 26, ObserveOnWeekday: true}, // Boxing Day
			},
			RuleBasedHolidays: []RuleBasedHoliday{
				{Month: 5, Weekday: time.Monday, N: 1},  // Early May Bank Holiday
				{Month: 5, Weekday: time.Monday, N: -1}, // Spring Bank Holiday
				{Month: 8, Weekday: time.Monday, N: -1}, // Summer Bank Holiday
			},
			EasterBasedHolidays: []EasterBasedHoliday{
				{DaysOffset: -2}, // Good Friday
				{DaysOffset: 1},  // Easter Monday
			},
		},
	},
	"XETR": {
		Code:         "XETR",
		Name:         "Deutsche Boerse Xetra",
		TradingHours: TradingHours{OpenHour: 9, OpenMinute: 0, CloseHour: 17, CloseMinute: 30},
		Timezone:     mustLoadLocation("Europe/Berlin"),
		EasterType:   Gregorian,
		HolidayRules: HolidayRuleSet{
			FixedDateHolidays: []FixedDateHoliday{
				{Month: 1, Day: 1},
				{Month: 5, Day: 1}, // Labour Day
				{Month: 12, Day: 24},
				{Month: 12, Day: 25},
				{Month: 12, Day: 26},
				{Month: 12, Day: 31},
			},
			EasterBasedHolidays: []EasterBasedHoliday{
				{DaysOffset: -2},
				{DaysOffset: 1},
			},
		},
	},
	"XPAR": {
		Code:         "XPAR",
		Name:         "Euronext Paris",
		TradingHours: TradingHours{OpenHour: 9, OpenMinute: 0, CloseHour: 17, CloseMinute: 30},
		Timezone:     mustLoadLocation("Europe/Paris"),
		EasterType:   Gregorian,
		HolidayRules: euronextHolidays,
	},
	"XAMS": {
		Code:         "XAMS",
		Name:         "Euronext Amsterdam",
		TradingHours: TradingHours{OpenHour: 9, OpenMinute: 0, CloseHour: 17, CloseMinute: 30},
		Timezone:     mustLoadLocation("Europe/Amsterdam"),
		EasterType:   Gregorian,
		HolidayRules: euronextHolidays,
	},
	"XMIL": {
		Code:         "XMIL",
		Name:         "Borsa Italiana",
		TradingHours: TradingHours{OpenHour: 9, OpenMinute: 0, CloseHour: 17, CloseMinute: 30},
		Timezone:     mustLoadLocation("Europe/Rome"),
		EasterType:   Gregorian,
		HolidayRules: euronextHolidays,
	},
	"ASEX": {
		Code:         "ASEX",
		Name:         "Athens Stock Exchange",
		TradingHours: TradingHours{OpenHour: 10, OpenMinute: 30, CloseHour: 17, CloseMinute: 20},
		Timezone:     mustLoadLocation("Europe/Athens"),
		EasterType:   Julian,
		HolidayRules: HolidayRuleSet{
			FixedDateHolidays: []FixedDateHoliday{
				{Month: 1, Day: 1},
				{Month: 1, Day: 6},   // Epiphany
				{Month: 3, Day: 25},  // Independence Day
				{Month: 5, Day: 1},   // Labour Day
				{Month: 8, Day: 15},  // Assumption
				{Month: 10, Day: 28}, // Ochi Day
				{Month: 12, Day: 25},
				{Month: 12, Day: 26},
			},
			EasterBasedHolidays: []EasterBasedHoliday{
				{DaysOffset: -48}, // Clean Monday
				{DaysOffset: -2},  // Good Friday (Orthodox)
				{DaysOffset: 1},   // Easter Monday (Orthodox)
				{DaysOffset: 50},  // Whit Monday
			},
		},
	},
	"XTSE": {
		Code:         "XTSE",
		Name:         "Tokyo Stock Exchange",
		TradingHours: TradingHours{OpenHour: 9, OpenMinute: 0, CloseHour: 15, CloseMinute: 30},
		Timezone:     mustLoadLocation("Asia/Tokyo"),
		EasterType:   Gregorian,
		LunchBreak:   &LunchBreak{StartHour: 11, StartMinute: 30, EndHour: 12, EndMinute: 30},
		HolidayRules: HolidayRuleSet{
			FixedDateHolidays: []FixedDateHoliday{
				{Month: 1, Day: 1},
				{Month: 1, Day: 2},
				{Month: 1, Day: 3},
				{Month: 2, Day: 11, ObserveOnWeekday: false}, // Foundation Day
				{Month: 4, Day: 29},                          // Showa Day
				{Month: 5, Day: 3},
				{Month: 5, Day: 4},
				{Month: 5, Day: 5},
				{Month: 12, Day: 31},
			},
			RuleBasedHolidays: []RuleBasedHoliday{
				{Month: 1, Weekday: time.Monday, N: 2}, // Coming of Age Day
				{Month: 7, Weekday: time.Monday, N: 3}, // Marine Day
				{Month: 9, Weekday: time.Monday, N: 3}, // Respect for the Aged Day
			},
		},
	},
	"XHKG": {
		Code:         "XHKG",
		Name:         "Hong Kong Stock Exchange",
		TradingHours: TradingHours{OpenHour: 9, OpenMinute: 30, CloseHour: 16, CloseMinute: 0},
		Timezone:     mustLoadLocation("Asia/Hong_Kong"),
		EasterType:   Gregorian,
		LunchBreak:   &LunchBreak{StartHour: 12, StartMinute: 0, EndHour: 13, EndMinute: 0},
		HolidayRules: HolidayRuleSet{
			FixedDateHolidays: []FixedDateHoliday{
				{Month: 1, Day: 1, ObserveOnWeekday: true},
				{Month: 7, Day: 1, ObserveOnWeekday: true},  // HKSAR Establishment Day
				{Month: 10, Day: 1, ObserveOnWeekday: true}, // National Day
				{Month: 12, Day: 25},
				{Month: 12, Day: 26},
			},
			EasterBasedHolidays: []EasterBasedHoliday{
				{DaysOffset: -2},
				{DaysOffset: 1},
			},
		},
	},
}

// euronextHolidays is shared by the Euronext venues (Paris, Amsterdam, Milan).
var euronextHolidays = HolidayRuleSet{
	FixedDateHolidays: []FixedDateHoliday{
		{Month: 1, Day: 1},
		{Month: 5, Day: 1},
		{Month: 12, Day: 25},
		{Month: 12, Day: 26},
	},
	EasterBasedHolidays: []EasterBasedHoliday{
		{DaysOffset: -2},
		{DaysOffset: 1},
	},
}

// mustLoadLocation panics if the IANA timezone database is unavailable.
// The server binary embeds a copy via time/tzdata for hosts without one.
func mustLoadLocation(name string) *time.Location {
	loc, err := time.LoadLocation(name)
	if err != nil {
		panic("markethours: failed to load timezone " + name + ": " + err.Error())
	}
	return loc
}
