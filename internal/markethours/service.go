// Package markethours answers whether an exchange is currently open for trading.
// The price cache consults it to decide whether a cached quote can still change.
package markethours

import (
	"fmt"
	"sync"
	"time"
)

// Service provides market hours checking functionality.
// Safe for concurrent use.
type Service struct {
	mu           sync.Mutex
	holidayCache map[string][]time.Time // Holidays keyed by "<exchange>/<year>"
}

// NewService creates a new market hours service.
func NewService() *Service {
	return &Service{
		holidayCache: make(map[string][]time.Time),
	}
}

// IsMarketOpen checks if a market is currently open for trading.
// Venues without a calendar are reported open, so their cached prices are
// refreshed on the normal TTL instead of being served stale forever.
func (s *Service) IsMarketOpen(exchangeName string, t time.Time) bool {
	config := getExchangeConfig(GetExchangeCode(exchangeName))
	if config == nil {
		return true
	}

	marketTime := t.In(config.Timezone)

	if marketTime.Weekday() == time.Saturday || marketTime.Weekday() == time.Sunday {
		return false
	}

	marketDate := time.Date(marketTime.Year(), marketTime.Month(), marketTime.Day(), 0, 0, 0, 0, config.Timezone)
	if s.isHoliday(config, marketDate) {
		return false
	}

	openTime := time.Date(marketTime.Year(), marketTime.Month(), marketTime.Day(),
		config.TradingHours.OpenHour, config.TradingHours.OpenMinute, 0, 0, config.Timezone)
	closeTime := time.Date(marketTime.Year(), marketTime.Month(), marketTime.Day(),
		config.TradingHours.CloseHour, config.TradingHours.CloseMinute, 0, 0, config.Timezone)

	if marketTime.Before(openTime) || !marketTime.Before(closeTime) {
		return false
	}

	// Lunch break closes the market [start, end)
	if config.LunchBreak != nil {
		lunchStart := time.Date(marketTime.Year(), marketTime.Month(), marketTime.Day(),
			config.LunchBreak.StartHour, config.LunchBreak.StartMinute, 0, 0, config.Timezone)
		lunchEnd := time.Date(marketTime.Year(), marketTime.Month(), marketTime.Day(),
			config.LunchBreak.EndHour, config.LunchBreak.EndMinute, 0, 0, config.Timezone)

		if !marketTime.Before(lunchStart) && marketTime.Before(lunchEnd) {
			return false
		}
	}

	return true
}

// GetMarketStatus returns detailed status for a market.
func (s *Service) GetMarketStatus(exchangeName string, t time.Time) (*MarketStatus, error) {
	exchangeCode := GetExchangeCode(exchangeName)
	config := getExchangeConfig(exchangeCode)
	if config == nil {
		return nil, fmt.Errorf("exchange not found: %s", exchangeName)
	}

	marketTime := t.In(config.Timezone)
	isOpen := s.IsMarketOpen(exchangeCode, t)

	status := &MarketStatus{
		Open:     isOpen,
		Exchange: exchangeCode,
		Timezone: config.Timezone.String(),
	}

	if isOpen {
		closeTime := time.Date(marketTime.Year(), marketTime.Month(), marketTime.Day(),
			config.TradingHours.CloseHour, config.TradingHours.CloseMinute, 0, 0, config.Timezone)
		status.ClosesAt = closeTime.Format("15:04")
	} else if nextOpen := s.findNextTradingSession(config, marketTime); nextOpen != nil {
		status.OpensAt = nextOpen.Format("15:04")
		if nextOpen.Day() != marketTime.Day() || nextOpen.Month() != marketTime.Month() {
			status.OpensDate = nextOpen.Format("2006-01-02")
		}
	}

	return status, nil
}

// GetOpenMarkets returns the codes of all currently open exchanges.
func (s *Service) GetOpenMarkets(t time.Time) []string {
	openMarkets := make([]string, 0)
	for code := range exchangeConfigs {
		if s.IsMarketOpen(code, t) {
			openMarkets = append(openMarkets, code)
		}
	}
	return openMarkets
}

// isHoliday checks if a date is a holiday for the given exchange.
func (s *Service) isHoliday(config *ExchangeConfig, date time.Time) bool {
	holidays := s.getHolidaysForYear(config, date.Year())

	dateStr := date.Format("2006-01-02")
	for _, holiday := range holidays {
		if holiday.Format("2006-01-02") == dateStr {
			return true
		}
	}

	return false
}

// getHolidaysForYear calculates all holidays for a given year and exchange.
func (s *Service) getHolidaysForYear(config *ExchangeConfig, year int) []time.Time {
	cacheKey := fmt.Sprintf("%s/%d", config.Code, year)

	s.mu.Lock()
	defer s.mu.Unlock()

	if holidays, ok := s.holidayCache[cacheKey]; ok {
		return holidays
	}

	holidays := make([]time.Time, 0)

	for _, h := range config.HolidayRules.FixedDateHolidays {
		date := time.Date(year, time.Month(h.Month), h.Day, 0, 0, 0, 0, config.Timezone)
		if h.ObserveOnWeekday {
			date = observeOnWeekday(date)
		}
		holidays = append(holidays, date)
	}

	for _, h := range config.HolidayRules.RuleBasedHolidays {
		if h.N == -1 {
			holidays = append(holidays, findLastWeekday(year, h.Month, h.Weekday))
		} else {
			holidays = append(holidays, findNthWeekday(year, h.Month, h.Weekday, h.N))
		}
	}

	for _, h := range config.HolidayRules.EasterBasedHolidays {
		easter := CalculateEaster(year, config.EasterType)
		holidays = append(holidays, easter.AddDate(0, 0, h.DaysOffset))
	}

	s.holidayCache[cacheKey] = holidays

	return holidays
}

// findNextTradingSession finds the next time the market will be open.
// Looks up to 7 days ahead.
func (s *Service) findNextTradingSession(config *ExchangeConfig, currentTime time.Time) *time.Time {
	for i := 0; i < 7; i++ {
		checkTime := currentTime.AddDate(0, 0, i)
		if checkTime.Weekday() == time.Saturday || checkTime.Weekday() == time.Sunday {
			continue
		}

		checkDate := time.Date(checkTime.Year(), checkTime.Month(), checkTime.Day(), 0, 0, 0, 0, config.Timezone)
		if s.isHoliday(config, checkDate) {
			continue
		}

		openTime := time.Date(checkTime.Year(), checkTime.Month(), checkTime.Day(),
			config.TradingHours.OpenHour, config.TradingHours.OpenMinute, 0, 0, config.Timezone)

		// For today, the market must open later than now.
		if i == 0 && !currentTime.Before(openTime) {
			continue
		}

		return &openTime
	}
	return nil
}
