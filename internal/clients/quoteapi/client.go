// Package quoteapi provides a client for the upstream market-data API.
// The API exposes a single quote endpoint that returns both live price data
// and descriptive security information for one or more symbols.
package quoteapi

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

const (
	defaultBaseURL = "https://query1.finance.yahoo.com"
	quotePath      = "/v7/finance/quote"

	// Some upstream mirrors reject requests without a browser user agent.
	userAgent = "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 Chrome/120.0.0.0 Safari/537.36"
)

// SecurityInfo is one quote result. The upstream API omits fields freely
// depending on the instrument type, so every field decodes to its zero value
// when absent - callers must treat zero values as "not reported".
type SecurityInfo struct {
	Symbol    string `json:"symbol"`
	QuoteType string `json:"quoteType"` // EQUITY, ETF, MUTUALFUND, CRYPTOCURRENCY, ...
	Currency  string `json:"currency"`
	Exchange  string `json:"exchange"`
	ShortName string `json:"shortName"`
	LongName  string `json:"longName"`

	RegularMarketPrice float64 `json:"regularMarketPrice"`
	PreviousClose      float64 `json:"regularMarketPreviousClose"`
	DayLow             float64 `json:"regularMarketDayLow"`
	DayHigh            float64 `json:"regularMarketDayHigh"`
	FiftyTwoWeekLow    float64 `json:"fiftyTwoWeekLow"`
	FiftyTwoWeekHigh   float64 `json:"fiftyTwoWeekHigh"`

	// Fund attributes (ETFs, mutual funds)
	NetExpenseRatio float64 `json:"netExpenseRatio"`
	FundFamily      string  `json:"fundFamily"`

	// Equity attributes
	Sector        string  `json:"sector"`
	Industry      string  `json:"industry"`
	Country       string  `json:"country"`
	MarketCap     float64 `json:"marketCap"`
	TrailingPE    float64 `json:"trailingPE"`
	DividendYield float64 `json:"trailingAnnualDividendYield"` // Proper decimal (0.0065 = 0.65%)
}

// Name returns the best available descriptive name for the security.
func (s *SecurityInfo) Name() string {
	if s.LongName != "" {
		return s.LongName
	}
	return s.ShortName
}

// quoteResponse is the upstream envelope.
type quoteResponse struct {
	QuoteResponse struct {
		Result []SecurityInfo `json:"result"`
		Error  *struct {
			Code        string `json:"code"`
			Description string `json:"description"`
		} `json:"error"`
	} `json:"quoteResponse"`
}

// Client is the market-data API client.
type Client struct {
	baseURL    string
	httpClient *http.Client
	log        zerolog.Logger
}

// NewClient creates a new market-data API client.
// baseURL is optional - empty uses the default upstream.
func NewClient(baseURL string, log zerolog.Logger) *Client {
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	return &Client{
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
		},
		log: log.With().Str("client", "quoteapi").Logger(),
	}
}

// GetQuotes fetches quote data for multiple symbols in a single request.
// Symbols missing from the response were not recognized upstream; callers
// must handle the gap.
func (c *Client) GetQuotes(ctx context.Context, symbols []string) ([]SecurityInfo, error) {
	if len(symbols) == 0 {
		return nil, nil
	}

	c.log.Debug().Int("count", len(symbols)).Msg("Fetching quotes")

	return c.doQuoteRequest(ctx, strings.Join(symbols, ","))
}

// GetQuote fetches quote data for a single symbol.
// Returns nil, nil if the symbol is unknown upstream.
func (c *Client) GetQuote(ctx context.Context, symbol string) (*SecurityInfo, error) {
	results, err := c.doQuoteRequest(ctx, symbol)
	if err != nil {
		return nil, err
	}

	for i := range results {
		if strings.EqualFold(results[i].Symbol, symbol) {
			return &results[i], nil
		}
	}

	return nil, nil
}

// doQuoteRequest performs the HTTP request to the quote endpoint.
func (c *Client) doQuoteRequest(ctx context.Context, symbolList string) ([]SecurityInfo, error) {
	reqURL := c.baseURL + quotePath + "?symbols=" + url.QueryEscape(symbolList)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("HTTP request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		bodyBytes, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("quote API error: status %d, body: %s", resp.StatusCode, string(bodyBytes))
	}

	var parsed quoteResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}

	if apiErr := parsed.QuoteResponse.Error; apiErr != nil {
		return nil, fmt.Errorf("quote API error: %s (%s)", apiErr.Description, apiErr.Code)
	}

	return parsed.QuoteResponse.Result, nil
}
