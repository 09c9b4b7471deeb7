// Package prices serves live quote data through a market-aware in-memory
// cache. A cached price is considered fresh while its TTL has not elapsed or
// while the security's exchange is closed - closed markets do not move, so
// refetching them is wasted upstream traffic.
package prices

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/tickerwatch/tickerwatch/internal/clientdata"
	"github.com/tickerwatch/tickerwatch/internal/clients/quoteapi"
)

// Sentinel description values for symbols that could not be priced.
const (
	// DescUnavailable marks a transient upstream failure. Never cached, so
	// the next request retries.
	DescUnavailable = "Data Unavailable"

	// DescInvalidTicker marks a symbol the upstream does not recognize.
	// Cached like a normal result so repeated typos do not hammer upstream.
	DescInvalidTicker = "Invalid Ticker"
)

// cacheTTL bounds how long an open-market price is served from cache.
const cacheTTL = 5 * time.Minute

// PriceRecord is one symbol's quote snapshot plus display fields.
type PriceRecord struct {
	Symbol           string  `json:"symbol" msgpack:"symbol"`
	Description      string  `json:"description" msgpack:"description"`
	Price            float64 `json:"price" msgpack:"price"`
	PreviousClose    float64 `json:"previous_close" msgpack:"previous_close"`
	DayLow           float64 `json:"day_low" msgpack:"day_low"`
	DayHigh          float64 `json:"day_high" msgpack:"day_high"`
	FiftyTwoWeekLow  float64 `json:"fifty_two_week_low" msgpack:"fifty_two_week_low"`
	FiftyTwoWeekHigh float64 `json:"fifty_two_week_high" msgpack:"fifty_two_week_high"`
	Currency         string  `json:"currency,omitempty" msgpack:"currency"`
	Exchange         string  `json:"exchange,omitempty" msgpack:"exchange"`

	// Valid is false for sentinel records (unavailable or invalid symbols).
	Valid bool `json:"valid" msgpack:"valid"`
}

// cacheEntry pairs a record with its expiry.
type cacheEntry struct {
	Record    PriceRecord `json:"record" msgpack:"record"`
	ExpiresAt time.Time   `json:"expires_at" msgpack:"expires_at"`
}

// QuoteProvider supplies quote data. Satisfied by quoteapi.Client.
type QuoteProvider interface {
	GetQuotes(ctx context.Context, symbols []string) ([]quoteapi.SecurityInfo, error)
	GetQuote(ctx context.Context, symbol string) (*quoteapi.SecurityInfo, error)
}

// MarketHours answers whether an exchange is trading at a given instant.
// Satisfied by markethours.Service.
type MarketHours interface {
	IsMarketOpen(exchangeName string, t time.Time) bool
}

// Service is the price cache and fetch coordinator.
type Service struct {
	mu       sync.Mutex
	cache    map[string]cacheEntry
	provider QuoteProvider
	hours    MarketHours
	repo     *clientdata.Repository
	log      zerolog.Logger

	// now is replaceable in tests.
	now func() time.Time
}

// NewService creates a price service with an empty cache.
// repo may be nil, which disables write-through persistence (the snapshot
// still covers clean shutdowns).
func NewService(provider QuoteProvider, hours MarketHours, repo *clientdata.Repository, log zerolog.Logger) *Service {
	return &Service{
		cache:    make(map[string]cacheEntry),
		provider: provider,
		hours:    hours,
		repo:     repo,
		log:      log.With().Str("service", "prices").Logger(),
		now:      time.Now,
	}
}

// GetPrices returns one record per requested symbol, in request order, with
// duplicates collapsed to their first occurrence. Symbols with a fresh cache
// entry are served from memory; the rest are fetched in a single batch
// request, falling back to per-symbol requests when the batch fails.
// forceRefresh skips cache reads but still writes results back.
func (s *Service) GetPrices(ctx context.Context, symbols []string, forceRefresh bool) []PriceRecord {
	ordered := normalizeSymbols(symbols)
	if len(ordered) == 0 {
		return nil
	}

	now := s.now()
	results := make(map[string]PriceRecord, len(ordered))

	var toFetch []string
	if forceRefresh {
		toFetch = ordered
	} else {
		s.mu.Lock()
		for _, symbol := range ordered {
			entry, ok := s.cache[symbol]
			if ok && s.isFresh(entry, now) {
				results[symbol] = entry.Record
			} else {
				toFetch = append(toFetch, symbol)
			}
		}
		s.mu.Unlock()
	}

	if len(toFetch) > 0 {
		s.fetchInto(ctx, toFetch, results)
	}

	records := make([]PriceRecord, 0, len(ordered))
	for _, symbol := range ordered {
		if record, ok := results[symbol]; ok {
			records = append(records, record)
		} else {
			records = append(records, unavailableRecord(symbol))
		}
	}
	return records
}

// isFresh reports whether a cache entry may still be served. An expired entry
// remains acceptable while the security's exchange is closed.
func (s *Service) isFresh(entry cacheEntry, now time.Time) bool {
	if now.Before(entry.ExpiresAt) {
		return true
	}
	if entry.Record.Exchange == "" {
		return false
	}
	return !s.hours.IsMarketOpen(entry.Record.Exchange, now)
}

// fetchInto fetches the given symbols and merges records into results,
// caching every definite outcome.
func (s *Service) fetchInto(ctx context.Context, symbols []string, results map[string]PriceRecord) {
	infos, err := s.provider.GetQuotes(ctx, symbols)
	if err != nil {
		s.log.Warn().Err(err).Int("count", len(symbols)).Msg("Batch quote fetch failed, retrying per symbol")
		s.fetchIndividually(ctx, symbols, results)
		return
	}

	returned := make(map[string]*quoteapi.SecurityInfo, len(infos))
	for i := range infos {
		returned[quoteKey(infos[i].Symbol)] = &infos[i]
	}

	// Iterate the requested symbols, not the response: the upstream may
	// normalize a symbol's spelling, and a symbol it silently dropped is
	// unknown to it.
	for _, symbol := range symbols {
		var record PriceRecord
		if info, ok := returned[quoteKey(symbol)]; ok {
			record = recordFromInfo(info)
			record.Symbol = symbol
		} else {
			record = invalidRecord(symbol)
		}
		results[symbol] = record
		s.storeRecord(record)
	}
}

// quoteKey normalizes a symbol for matching requests against responses.
// The upstream reports class shares with a dash ("BRK-B") even when the
// request used a dot.
func quoteKey(symbol string) string {
	return strings.ReplaceAll(strings.ToUpper(symbol), ".", "-")
}

// fetchIndividually isolates per-symbol failures so one bad symbol cannot
// take down a whole batch.
func (s *Service) fetchIndividually(ctx context.Context, symbols []string, results map[string]PriceRecord) {
	for _, symbol := range symbols {
		info, err := s.provider.GetQuote(ctx, symbol)
		if err != nil {
			s.log.Warn().Err(err).Str("symbol", symbol).Msg("Quote fetch failed")
			results[symbol] = unavailableRecord(symbol)
			continue
		}

		var record PriceRecord
		if info == nil {
			record = invalidRecord(symbol)
		} else {
			record = recordFromInfo(info)
			record.Symbol = symbol
		}
		results[symbol] = record
		s.storeRecord(record)
	}
}

// storeRecord caches a definite outcome and writes it through to the
// persistent price table. Transient failures never reach here.
func (s *Service) storeRecord(record PriceRecord) {
	entry := cacheEntry{
		Record:    record,
		ExpiresAt: s.now().Add(cacheTTL),
	}

	s.mu.Lock()
	s.cache[record.Symbol] = entry
	s.mu.Unlock()

	if s.repo != nil {
		if err := s.repo.Store(clientdata.TableCurrentPrices, record.Symbol, entry, clientdata.TTLCurrentPrice); err != nil {
			s.log.Warn().Err(err).Str("symbol", record.Symbol).Msg("Failed to persist price record")
		}
	}
}

// LoadPersisted fills cache gaps from the persistent price table. It runs
// after the snapshot restore, so snapshot entries win; rows keep their
// original expiries and are refetched on first use unless the market is
// closed. Covers crashes, where no shutdown snapshot was written.
func (s *Service) LoadPersisted() error {
	if s.repo == nil {
		return nil
	}

	rows, err := s.repo.GetAll(clientdata.TableCurrentPrices)
	if err != nil {
		return fmt.Errorf("failed to read persisted prices: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	restored := 0
	for symbol, data := range rows {
		if _, ok := s.cache[symbol]; ok {
			continue
		}
		var entry cacheEntry
		if err := json.Unmarshal(data, &entry); err != nil {
			s.log.Warn().Err(err).Str("symbol", symbol).Msg("Discarding corrupt persisted price")
			continue
		}
		s.cache[symbol] = entry
		restored++
	}

	if restored > 0 {
		s.log.Info().Int("entries", restored).Msg("Restored persisted prices")
	}
	return nil
}

// CachedSymbols returns the symbols currently held in cache, for diagnostics.
func (s *Service) CachedSymbols() []string {
	s.mu.Lock()
	defer s.mu.Unlock()

	symbols := make([]string, 0, len(s.cache))
	for symbol := range s.cache {
		symbols = append(symbols, symbol)
	}
	return symbols
}

func recordFromInfo(info *quoteapi.SecurityInfo) PriceRecord {
	description := info.Name()
	if description == "" {
		description = info.Symbol
	}
	return PriceRecord{
		Symbol:           strings.ToUpper(info.Symbol),
		Description:      description,
		Price:            info.RegularMarketPrice,
		PreviousClose:    info.PreviousClose,
		DayLow:           info.DayLow,
		DayHigh:          info.DayHigh,
		FiftyTwoWeekLow:  info.FiftyTwoWeekLow,
		FiftyTwoWeekHigh: info.FiftyTwoWeekHigh,
		Currency:         info.Currency,
		Exchange:         info.Exchange,
		Valid:            true,
	}
}

func unavailableRecord(symbol string) PriceRecord {
	return PriceRecord{Symbol: symbol, Description: DescUnavailable}
}

func invalidRecord(symbol string) PriceRecord {
	return PriceRecord{Symbol: symbol, Description: DescInvalidTicker}
}

// normalizeSymbols uppercases, trims, and deduplicates while preserving the
// first-occurrence order.
func normalizeSymbols(symbols []string) []string {
	seen := make(map[string]bool, len(symbols))
	ordered := make([]string, 0, len(symbols))
	for _, symbol := range symbols {
		symbol = strings.ToUpper(strings.TrimSpace(symbol))
		if symbol == "" || seen[symbol] {
			continue
		}
		seen[symbol] = true
		ordered = append(ordered, symbol)
	}
	return ordered
}
