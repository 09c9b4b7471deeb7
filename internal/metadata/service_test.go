package metadata

import (
	"context"
	"database/sql"
	"testing"
	"time"

	_ "modernc.org/sqlite"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tickerwatch/tickerwatch/internal/clientdata"
)

func setupCacheRepo(t *testing.T) (*clientdata.Repository, *sql.DB) {
	t.Helper()

	db, err := sql.Open("sqlite", ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	require.NoError(t, clientdata.Migrate(db))

	return clientdata.NewRepository(db), db
}

func TestServiceGet_CacheMissThenHit(t *testing.T) {
	repo, _ := setupCacheRepo(t)

	ter := 0.19
	fetcher := &stubFetcher{name: "stub", result: &SecurityMetadata{
		ISIN: "IE00BK5BQT80",
		Name: "Vanguard FTSE All-World",
		Fund: &FundAttributes{TER: &ter},
	}}
	service := NewService(NewChain(zerolog.Nop(), fetcher), repo, zerolog.Nop())

	// First call resolves through the chain
	result := service.Get(context.Background(), "IE00BK5BQT80", "", false)
	require.NotNil(t, result)
	assert.Equal(t, "Vanguard FTSE All-World", result.Name)
	assert.Equal(t, 1, fetcher.calls)

	// Second call is served from cache
	result = service.Get(context.Background(), "IE00BK5BQT80", "", false)
	require.NotNil(t, result)
	assert.Equal(t, "Vanguard FTSE All-World", result.Name)
	require.NotNil(t, result.Fund)
	require.NotNil(t, result.Fund.TER)
	assert.InDelta(t, 0.19, *result.Fund.TER, 0.0001)
	assert.Equal(t, 1, fetcher.calls, "cache hit must not consult the chain")
}

func TestServiceGet_NormalizesIdentifiers(t *testing.T) {
	repo, _ := setupCacheRepo(t)

	fetcher := &stubFetcher{name: "stub", result: usableResult("Found")}
	service := NewService(NewChain(zerolog.Nop(), fetcher), repo, zerolog.Nop())

	require.NotNil(t, service.Get(context.Background(), "  ie00bk5bqt80 ", "", false))

	// Same identifier in canonical form hits the cache
	require.NotNil(t, service.Get(context.Background(), "IE00BK5BQT80", "", false))
	assert.Equal(t, 1, fetcher.calls)
}

func TestServiceGet_FailureNotCached(t *testing.T) {
	repo, db := setupCacheRepo(t)

	fetcher := &stubFetcher{name: "stub", result: nil}
	service := NewService(NewChain(zerolog.Nop(), fetcher), repo, zerolog.Nop())

	assert.Nil(t, service.Get(context.Background(), "IE00BK5BQT80", "", false))

	var count int
	db.QueryRow("SELECT COUNT(*) FROM security_metadata").Scan(&count)
	assert.Equal(t, 0, count, "failed resolutions must not be cached")

	// Next request retries the chain
	service.Get(context.Background(), "IE00BK5BQT80", "", false)
	assert.Equal(t, 2, fetcher.calls)
}

func TestServiceGet_BypassCache(t *testing.T) {
	repo, _ := setupCacheRepo(t)

	fetcher := &stubFetcher{name: "stub", result: usableResult("Fresh")}
	service := NewService(NewChain(zerolog.Nop(), fetcher), repo, zerolog.Nop())

	service.Get(context.Background(), "IE00BK5BQT80", "", false)
	service.Get(context.Background(), "IE00BK5BQT80", "", true)
	assert.Equal(t, 2, fetcher.calls, "bypass must skip the cache read")

	// The bypassed result was still written back
	service.Get(context.Background(), "IE00BK5BQT80", "", false)
	assert.Equal(t, 2, fetcher.calls)
}

func TestServiceGet_ISINPreferredAsKey(t *testing.T) {
	repo, db := setupCacheRepo(t)

	fetcher := &stubFetcher{name: "stub", result: usableResult("Found")}
	service := NewService(NewChain(zerolog.Nop(), fetcher), repo, zerolog.Nop())

	service.Get(context.Background(), "IE00BK5BQT80", "VWCE.DE", false)

	var key string
	err := db.QueryRow("SELECT isin FROM security_metadata").Scan(&key)
	require.NoError(t, err)
	assert.Equal(t, "IE00BK5BQT80", key)
}

func TestServiceGet_TickerKeyWhenNoISIN(t *testing.T) {
	repo, db := setupCacheRepo(t)

	fetcher := &stubFetcher{name: "stub", result: usableResult("Apple Inc")}
	service := NewService(NewChain(zerolog.Nop(), fetcher), repo, zerolog.Nop())

	service.Get(context.Background(), "", "aapl", false)

	var key string
	err := db.QueryRow("SELECT isin FROM security_metadata").Scan(&key)
	require.NoError(t, err)
	assert.Equal(t, "AAPL", key)
}

func TestServiceGet_NoIdentifiers(t *testing.T) {
	repo, _ := setupCacheRepo(t)

	fetcher := &stubFetcher{name: "stub", result: usableResult("never")}
	service := NewService(NewChain(zerolog.Nop(), fetcher), repo, zerolog.Nop())

	assert.Nil(t, service.Get(context.Background(), "", "", false))
	assert.Nil(t, service.Get(context.Background(), "  ", " ", false))
	assert.Equal(t, 0, fetcher.calls)
}

func TestServiceGet_NilRepoPassesThrough(t *testing.T) {
	fetcher := &stubFetcher{name: "stub", result: usableResult("Direct")}
	service := NewService(NewChain(zerolog.Nop(), fetcher), nil, zerolog.Nop())

	require.NotNil(t, service.Get(context.Background(), "IE00BK5BQT80", "", false))
	require.NotNil(t, service.Get(context.Background(), "IE00BK5BQT80", "", false))
	assert.Equal(t, 2, fetcher.calls, "no cache means every call resolves")
}

func TestServiceGet_ExpiredEntryRefetched(t *testing.T) {
	repo, db := setupCacheRepo(t)

	fetcher := &stubFetcher{name: "stub", result: usableResult("Fresh again")}
	service := NewService(NewChain(zerolog.Nop(), fetcher), repo, zerolog.Nop())

	// Seed an expired entry directly
	expiredAt := time.Now().Add(-time.Hour).Unix()
	_, err := db.Exec(
		"INSERT INTO security_metadata (isin, data, expires_at) VALUES (?, ?, ?)",
		"IE00BK5BQT80", `{"name":"Old"}`, expiredAt,
	)
	require.NoError(t, err)

	result := service.Get(context.Background(), "IE00BK5BQT80", "", false)
	require.NotNil(t, result)
	assert.Equal(t, "Fresh again", result.Name)
	assert.Equal(t, 1, fetcher.calls)
}

func TestServiceGet_CachedRecordRoundTrips(t *testing.T) {
	repo, _ := setupCacheRepo(t)

	ter := 0.22
	risk := 5
	fetcher := &stubFetcher{name: "stub", result: &SecurityMetadata{
		ISIN:      "IE00B3RBWM25",
		Ticker:    "VWRL.AS",
		Name:      "Vanguard FTSE All-World UCITS ETF",
		Currency:  "EUR",
		SourceURL: "https://docs.example.com/doc.pdf",
		Fund: &FundAttributes{
			TER:          &ter,
			RiskLevel:    &risk,
			Distribution: DistributionDistributing,
			Replication:  ReplicationPhysical,
			FundFamily:   "Vanguard",
		},
	}}
	service := NewService(NewChain(zerolog.Nop(), fetcher), repo, zerolog.Nop())

	service.Get(context.Background(), "IE00B3RBWM25", "VWRL.AS", false)

	cached := service.Get(context.Background(), "IE00B3RBWM25", "VWRL.AS", false)
	require.NotNil(t, cached)
	assert.Equal(t, 1, fetcher.calls)

	assert.Equal(t, "IE00B3RBWM25", cached.ISIN)
	assert.Equal(t, "VWRL.AS", cached.Ticker)
	assert.Equal(t, "Vanguard FTSE All-World UCITS ETF", cached.Name)
	assert.Equal(t, "EUR", cached.Currency)
	require.NotNil(t, cached.Fund)
	assert.InDelta(t, 0.22, *cached.Fund.TER, 0.0001)
	assert.Equal(t, 5, *cached.Fund.RiskLevel)
	assert.Equal(t, DistributionDistributing, cached.Fund.Distribution)
	assert.Equal(t, ReplicationPhysical, cached.Fund.Replication)
	assert.Nil(t, cached.Equity)
}

func TestServiceSupportedIdentifier(t *testing.T) {
	ieOnly := &stubFetcher{
		name:      "ie_only",
		canHandle: func(isin, _ string) bool { return len(isin) >= 2 && isin[:2] == "IE" },
	}
	service := NewService(NewChain(zerolog.Nop(), ieOnly), nil, zerolog.Nop())

	assert.True(t, service.SupportedIdentifier("ie00bk5bqt80"))
	assert.False(t, service.SupportedIdentifier("US0378331005"))
}
