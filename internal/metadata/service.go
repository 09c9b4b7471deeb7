package metadata

import (
	"context"
	"encoding/json"
	"strings"

	"github.com/rs/zerolog"

	"github.com/tickerwatch/tickerwatch/internal/clientdata"
)

// Service is the metadata gateway: a persistent cache in front of the fetcher
// chain. Fund metadata changes on the order of months, so cache hits serve a
// 30-day TTL and only successful resolutions are ever written back - a failed
// resolution stays retryable on the next request.
type Service struct {
	chain     *Chain
	cacheRepo *clientdata.Repository
	log       zerolog.Logger
}

// NewService creates the metadata gateway.
// cacheRepo may be nil, which disables caching entirely (every call goes
// through the chain).
func NewService(chain *Chain, cacheRepo *clientdata.Repository, log zerolog.Logger) *Service {
	return &Service{
		chain:     chain,
		cacheRepo: cacheRepo,
		log:       log.With().Str("service", "metadata").Logger(),
	}
}

// Get resolves metadata for a security, consulting the cache first.
// At least one identifier must be given; the ISIN is preferred as the cache
// key because it is globally unique where tickers are exchange-scoped.
// bypassCache forces a fresh resolution (the result is still written back).
// Returns nil when no source could produce a usable record.
func (s *Service) Get(ctx context.Context, isin, ticker string, bypassCache bool) *SecurityMetadata {
	isin = strings.ToUpper(strings.TrimSpace(isin))
	ticker = strings.ToUpper(strings.TrimSpace(ticker))
	if isin == "" && ticker == "" {
		return nil
	}

	cacheKey := isin
	if cacheKey == "" {
		cacheKey = ticker
	}

	if s.cacheRepo != nil && !bypassCache {
		if cached := s.loadCached(cacheKey); cached != nil {
			return cached
		}
	}

	result := s.chain.Resolve(ctx, isin, ticker)
	if result == nil {
		return nil
	}

	if s.cacheRepo != nil {
		if err := s.cacheRepo.Store(clientdata.TableSecurityMetadata, cacheKey, result, clientdata.TTLSecurityMetadata); err != nil {
			s.log.Warn().Err(err).Str("key", cacheKey).Msg("Failed to cache metadata")
		}
	}

	return result
}

// SupportedIdentifier reports whether any fetcher in the chain could handle
// the given ISIN. Lets callers skip securities no source covers.
func (s *Service) SupportedIdentifier(isin string) bool {
	return s.chain.SupportsISIN(strings.ToUpper(strings.TrimSpace(isin)))
}

func (s *Service) loadCached(cacheKey string) *SecurityMetadata {
	data, err := s.cacheRepo.GetIfFresh(clientdata.TableSecurityMetadata, cacheKey)
	if err != nil {
		s.log.Warn().Err(err).Str("key", cacheKey).Msg("Metadata cache read failed")
		return nil
	}
	if data == nil {
		return nil
	}

	var cached SecurityMetadata
	if err := json.Unmarshal(data, &cached); err != nil {
		// A corrupt entry falls through to a fresh fetch, which overwrites it.
		s.log.Warn().Err(err).Str("key", cacheKey).Msg("Discarding corrupt cached metadata")
		return nil
	}

	s.log.Debug().Str("key", cacheKey).Msg("Metadata cache hit")
	return &cached
}
