package prices

import (
	"context"
	"database/sql"
	"encoding/json"
	"testing"
	"time"

	_ "modernc.org/sqlite"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tickerwatch/tickerwatch/internal/clientdata"
	"github.com/tickerwatch/tickerwatch/internal/clients/quoteapi"
)

func setupPriceRepo(t *testing.T) (*clientdata.Repository, *sql.DB) {
	t.Helper()

	db, err := sql.Open("sqlite", ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	require.NoError(t, clientdata.Migrate(db))

	return clientdata.NewRepository(db), db
}

func TestStoreRecord_WritesThrough(t *testing.T) {
	repo, _ := setupPriceRepo(t)

	provider := &fakeProvider{quotes: map[string]quoteapi.SecurityInfo{
		"AAPL": quote("AAPL", "Apple Inc.", 225.50),
	}}
	service := NewService(provider, &fakeMarketHours{open: map[string]bool{"NMS": true}}, repo, zerolog.Nop())

	service.GetPrices(context.Background(), []string{"AAPL"}, false)

	data, err := repo.Get(clientdata.TableCurrentPrices, "AAPL")
	require.NoError(t, err)
	require.NotNil(t, data, "fetched records must reach the persistent table")

	var entry struct {
		Record PriceRecord `json:"record"`
	}
	require.NoError(t, json.Unmarshal(data, &entry))
	assert.Equal(t, "AAPL", entry.Record.Symbol)
	assert.Equal(t, 225.50, entry.Record.Price)
}

func TestLoadPersisted_RestoresAcrossRestart(t *testing.T) {
	repo, _ := setupPriceRepo(t)

	provider := &fakeProvider{quotes: map[string]quoteapi.SecurityInfo{
		"AAPL": quote("AAPL", "Apple Inc.", 225.50),
	}}
	service := NewService(provider, &fakeMarketHours{open: map[string]bool{"NMS": false}}, repo, zerolog.Nop())
	service.GetPrices(context.Background(), []string{"AAPL"}, false)

	// A new service on the same table starts warm: with the market closed,
	// the restored entry is served without going upstream.
	fresh := &fakeProvider{}
	restored := NewService(fresh, &fakeMarketHours{open: map[string]bool{"NMS": false}}, repo, zerolog.Nop())
	require.NoError(t, restored.LoadPersisted())

	records := restored.GetPrices(context.Background(), []string{"AAPL"}, false)
	require.Len(t, records, 1)
	assert.Equal(t, 225.50, records[0].Price)
	assert.Equal(t, 0, fresh.batchCalls)
}

func TestLoadPersisted_SkipsCorruptRows(t *testing.T) {
	repo, db := setupPriceRepo(t)

	expiresAt := time.Now().Add(time.Hour).Unix()
	_, err := db.Exec(
		"INSERT INTO current_prices (symbol, data, expires_at) VALUES (?, ?, ?)",
		"BADROW", "{not json", expiresAt,
	)
	require.NoError(t, err)

	service := NewService(&fakeProvider{}, &fakeMarketHours{}, repo, zerolog.Nop())
	require.NoError(t, service.LoadPersisted())
	assert.Empty(t, service.CachedSymbols())
}

func TestLoadPersisted_NilRepo(t *testing.T) {
	service := newTestService(&fakeProvider{}, &fakeMarketHours{})

	require.NoError(t, service.LoadPersisted())
	assert.Empty(t, service.CachedSymbols())
}

func TestLoadPersisted_ExistingEntriesWin(t *testing.T) {
	repo, db := setupPriceRepo(t)

	// A fetch populates the in-memory cache first, as a snapshot restore would
	provider := &fakeProvider{quotes: map[string]quoteapi.SecurityInfo{
		"AAPL": quote("AAPL", "Apple Inc.", 225.50),
	}}
	service := NewService(provider, &fakeMarketHours{open: map[string]bool{"NMS": false}}, repo, zerolog.Nop())
	service.GetPrices(context.Background(), []string{"AAPL"}, false)

	// Replace the persisted row with an older price behind the cache's back
	stale := cacheEntry{
		Record:    PriceRecord{Symbol: "AAPL", Description: "Apple Inc.", Price: 100.00, Valid: true},
		ExpiresAt: time.Now().Add(time.Hour),
	}
	staleJSON, err := json.Marshal(stale)
	require.NoError(t, err)
	_, err = db.Exec(
		"INSERT OR REPLACE INTO current_prices (symbol, data, expires_at) VALUES (?, ?, ?)",
		"AAPL", string(staleJSON), time.Now().Add(time.Hour).Unix(),
	)
	require.NoError(t, err)

	require.NoError(t, service.LoadPersisted())

	records := service.GetPrices(context.Background(), []string{"AAPL"}, false)
	require.Len(t, records, 1)
	assert.Equal(t, 225.50, records[0].Price, "existing cache entries must not be overwritten")
}
