package metadata

import (
	"context"
	"sync"

	"github.com/rs/zerolog"
)

// Fetcher is one metadata source strategy.
//
// CanHandle must be a pure predicate over the identifiers - no I/O.
// Fetch performs the actual lookup; all transport and parse failures are
// returned as errors and never panic past the fetcher boundary. A nil result
// with a nil error is the normal negative outcome (source has nothing for
// this security).
type Fetcher interface {
	Name() string
	CanHandle(isin, ticker string) bool
	Fetch(ctx context.Context, isin, ticker string) (*SecurityMetadata, error)
}

// Chain tries fetchers in registration order, most specific first, until one
// produces a usable record. Individual fetcher errors are logged and treated
// as "try next" rather than aborting resolution.
type Chain struct {
	mu       sync.RWMutex
	fetchers []Fetcher
	log      zerolog.Logger
}

// NewChain creates a fetcher chain with the given initial fetchers, in order.
func NewChain(log zerolog.Logger, fetchers ...Fetcher) *Chain {
	return &Chain{
		fetchers: fetchers,
		log:      log.With().Str("component", "metadata_chain").Logger(),
	}
}

// Register adds a fetcher at the given priority index.
// A negative priority appends at the end of the chain.
func (c *Chain) Register(f Fetcher, priority int) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if priority < 0 || priority >= len(c.fetchers) {
		c.fetchers = append(c.fetchers, f)
		return
	}

	c.fetchers = append(c.fetchers[:priority], append([]Fetcher{f}, c.fetchers[priority:]...)...)
}

// Resolve routes the identifiers through the chain and returns the first
// usable record, or nil if every source came up empty.
func (c *Chain) Resolve(ctx context.Context, isin, ticker string) *SecurityMetadata {
	for _, fetcher := range c.snapshot() {
		if !fetcher.CanHandle(isin, ticker) {
			continue
		}

		result, err := fetcher.Fetch(ctx, isin, ticker)
		if err != nil {
			c.log.Warn().
				Err(err).
				Str("fetcher", fetcher.Name()).
				Str("isin", isin).
				Str("ticker", ticker).
				Msg("Fetcher failed, trying next")
			continue
		}

		if result.Usable() {
			c.log.Info().
				Str("fetcher", fetcher.Name()).
				Str("isin", isin).
				Str("ticker", ticker).
				Msg("Metadata resolved")
			return result
		}
	}

	return nil
}

// SupportsISIN reports whether any registered fetcher can handle the ISIN.
func (c *Chain) SupportsISIN(isin string) bool {
	if isin == "" {
		return false
	}

	for _, fetcher := range c.snapshot() {
		if fetcher.CanHandle(isin, "") {
			return true
		}
	}
	return false
}

// snapshot returns the current fetcher list for lock-free iteration.
func (c *Chain) snapshot() []Fetcher {
	c.mu.RLock()
	defer c.mu.RUnlock()

	fetchers := make([]Fetcher, len(c.fetchers))
	copy(fetchers, c.fetchers)
	return fetchers
}
