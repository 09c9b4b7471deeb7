package metadata

import (
	"context"
	"fmt"
	"math"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/rs/zerolog"

	"github.com/tickerwatch/tickerwatch/internal/clients/quoteapi"
)

// QuoteInfoProvider supplies descriptive security information by symbol.
// Satisfied by quoteapi.Client.
type QuoteInfoProvider interface {
	GetQuote(ctx context.Context, symbol string) (*quoteapi.SecurityInfo, error)
}

// FundQuoteFetcher resolves fund metadata from the quote API. In fund-only
// mode it handles ETFs and mutual funds exclusively, leaving everything else
// to later fetchers; without the restriction it acts as the chain's general
// fallback.
type FundQuoteFetcher struct {
	provider QuoteInfoProvider
	fundOnly bool
	log      zerolog.Logger
}

// NewFundQuoteFetcher creates a quote-API fund fetcher.
func NewFundQuoteFetcher(provider QuoteInfoProvider, fundOnly bool, log zerolog.Logger) *FundQuoteFetcher {
	f := &FundQuoteFetcher{
		provider: provider,
		fundOnly: fundOnly,
	}
	f.log = log.With().Str("fetcher", f.Name()).Logger()
	return f
}

// Name implements Fetcher.
func (f *FundQuoteFetcher) Name() string {
	if f.fundOnly {
		return "quoteapi_fund"
	}
	return "quoteapi_fallback"
}

// CanHandle requires a ticker - the quote API has no ISIN lookup.
func (f *FundQuoteFetcher) CanHandle(_, ticker string) bool {
	return ticker != ""
}

// Fetch looks the ticker up on the quote API and maps the result to fund
// metadata.
func (f *FundQuoteFetcher) Fetch(ctx context.Context, isin, ticker string) (*SecurityMetadata, error) {
	info, err := f.provider.GetQuote(ctx, ticker)
	if err != nil {
		return nil, fmt.Errorf("quote lookup for %s failed: %w", ticker, err)
	}
	if info == nil {
		return nil, nil
	}

	if f.fundOnly && !isFundType(info.QuoteType) {
		f.log.Debug().
			Str("ticker", ticker).
			Str("quote_type", info.QuoteType).
			Msg("Not a fund, deferring to later fetchers")
		return nil, nil
	}

	if info.Name() == "" {
		return nil, nil
	}

	fund := &FundAttributes{
		FundFamily: info.FundFamily,
	}
	if info.NetExpenseRatio > 0 {
		ter := info.NetExpenseRatio
		fund.TER = &ter
	}

	return &SecurityMetadata{
		ISIN:      strings.ToUpper(isin),
		Ticker:    strings.ToUpper(ticker),
		Name:      info.Name(),
		Currency:  info.Currency,
		SourceURL: quoteSourceURL(ticker),
		Fund:      fund,
	}, nil
}

// EquityQuoteFetcher resolves equity profile metadata from the quote API.
// Funds are skipped so the dedicated fund fetchers keep ownership of them.
type EquityQuoteFetcher struct {
	provider QuoteInfoProvider
	log      zerolog.Logger
}

// NewEquityQuoteFetcher creates a quote-API equity fetcher.
func NewEquityQuoteFetcher(provider QuoteInfoProvider, log zerolog.Logger) *EquityQuoteFetcher {
	return &EquityQuoteFetcher{
		provider: provider,
		log:      log.With().Str("fetcher", "quoteapi_equity").Logger(),
	}
}

// Name implements Fetcher.
func (f *EquityQuoteFetcher) Name() string {
	return "quoteapi_equity"
}

// CanHandle requires a ticker.
func (f *EquityQuoteFetcher) CanHandle(_, ticker string) bool {
	return ticker != ""
}

// Fetch looks the ticker up and maps the result to equity metadata.
func (f *EquityQuoteFetcher) Fetch(ctx context.Context, isin, ticker string) (*SecurityMetadata, error) {
	info, err := f.provider.GetQuote(ctx, ticker)
	if err != nil {
		return nil, fmt.Errorf("quote lookup for %s failed: %w", ticker, err)
	}
	if info == nil {
		return nil, nil
	}

	if isFundType(info.QuoteType) {
		return nil, nil
	}

	if info.Name() == "" {
		return nil, nil
	}

	equity := &EquityAttributes{
		QuoteType: info.QuoteType,
		Sector:    info.Sector,
		Industry:  info.Industry,
		Country:   info.Country,
	}
	if info.MarketCap > 0 {
		equity.MarketCap = FormatMarketCap(info.MarketCap)
	}
	if info.TrailingPE > 0 {
		equity.PERatio = fmt.Sprintf("%.2f", info.TrailingPE)
	}
	if info.DividendYield > 0 {
		equity.DividendYield = fmt.Sprintf("%.2f%%", info.DividendYield*100)
	}

	return &SecurityMetadata{
		ISIN:      strings.ToUpper(isin),
		Ticker:    strings.ToUpper(ticker),
		Name:      info.Name(),
		Currency:  info.Currency,
		SourceURL: quoteSourceURL(ticker),
		Equity:    equity,
	}, nil
}

func isFundType(quoteType string) bool {
	switch strings.ToUpper(quoteType) {
	case "ETF", "MUTUALFUND":
		return true
	}
	return false
}

func quoteSourceURL(ticker string) string {
	return "https://finance.yahoo.com/quote/" + strings.ToUpper(ticker)
}

// FormatMarketCap renders a market capitalization for display: trillions and
// billions with two decimals, millions with two decimals, anything smaller as
// a full dollar amount with thousands separators.
func FormatMarketCap(value float64) string {
	switch {
	case value >= 1e12:
		return fmt.Sprintf("$%.2fT", value/1e12)
	case value >= 1e9:
		return fmt.Sprintf("$%.2fB", value/1e9)
	case value >= 1e6:
		return fmt.Sprintf("$%.2fM", value/1e6)
	default:
		return "$" + humanize.Comma(int64(math.Round(value)))
	}
}
