// Package metadata resolves reference metadata for securities (fund costs,
// risk ratings, equity profile data) through an ordered chain of data sources,
// with persistent caching in front of the chain.
package metadata

import "github.com/tickerwatch/tickerwatch/internal/metadata/kidparse"

// Distribution policy values.
const (
	DistributionAccumulating = kidparse.DistributionAccumulating
	DistributionDistributing = kidparse.DistributionDistributing
)

// Replication method values.
const (
	ReplicationPhysical  = kidparse.ReplicationPhysical
	ReplicationSynthetic = kidparse.ReplicationSynthetic
)

// SecurityMetadata identifies one security by ticker and/or ISIN and carries
// one of two disjoint attribute groups, selected at construction. Pointer
// fields and omitempty tags keep serialization restricted to populated
// fields; unknown keys in stored data are ignored on load, so older records
// survive schema additions.
type SecurityMetadata struct {
	ISIN      string `json:"isin,omitempty"`
	Ticker    string `json:"ticker,omitempty"`
	Name      string `json:"name,omitempty"`
	Currency  string `json:"currency,omitempty"`
	SourceURL string `json:"source_url,omitempty"`

	Fund   *FundAttributes   `json:"fund,omitempty"`
	Equity *EquityAttributes `json:"equity,omitempty"`
}

// FundAttributes describe an ETF or mutual fund.
type FundAttributes struct {
	TER          *float64 `json:"ter,omitempty"`        // Total Expense Ratio (0.19 = 0.19%)
	RiskLevel    *int     `json:"risk_level,omitempty"` // 1-7 SRRI scale (EU only)
	Distribution string   `json:"distribution,omitempty"`
	Replication  string   `json:"replication,omitempty"`
	FundFamily   string   `json:"fund_family,omitempty"` // Vanguard, iShares, etc.
}

// EquityAttributes describe a stock. Display-oriented fields are stored
// pre-formatted, matching what the modal layer renders.
type EquityAttributes struct {
	QuoteType     string `json:"quote_type,omitempty"`
	Sector        string `json:"sector,omitempty"`
	Industry      string `json:"industry,omitempty"`
	Country       string `json:"country,omitempty"`
	MarketCap     string `json:"market_cap,omitempty"`
	PERatio       string `json:"pe_ratio,omitempty"`
	DividendYield string `json:"dividend_yield,omitempty"`
}

// Usable reports whether the record carries enough substance to be worth
// returning or caching. Empty shells are discarded.
func (m *SecurityMetadata) Usable() bool {
	if m == nil {
		return false
	}
	if m.Name != "" {
		return true
	}
	return m.Fund != nil && m.Fund.TER != nil
}
