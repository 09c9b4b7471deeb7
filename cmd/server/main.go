// Package main is the entry point for the tickerwatch market-data service.
// The service resolves prices and security metadata for a watchlist-oriented
// terminal dashboard, keeping a persistent cache between runs so restarts do
// not hammer upstream data sources.
package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"
	_ "time/tzdata" // Exchange calendars need IANA zones even on hosts without a tz database

	"github.com/robfig/cron/v3"

	"github.com/tickerwatch/tickerwatch/internal/clientdata"
	"github.com/tickerwatch/tickerwatch/internal/clients/quoteapi"
	"github.com/tickerwatch/tickerwatch/internal/config"
	"github.com/tickerwatch/tickerwatch/internal/database"
	"github.com/tickerwatch/tickerwatch/internal/markethours"
	"github.com/tickerwatch/tickerwatch/internal/metadata"
	"github.com/tickerwatch/tickerwatch/internal/pdftext"
	"github.com/tickerwatch/tickerwatch/internal/prices"
	"github.com/tickerwatch/tickerwatch/internal/server"
	"github.com/tickerwatch/tickerwatch/pkg/logger"
)

func main() {
	// Load configuration first to get log level
	cfg, err := config.Load()
	if err != nil {
		fallbackLog := logger.New(logger.Config{
			Level:  "info",
			Pretty: true,
		})
		fallbackLog.Fatal().Err(err).Msg("Failed to load configuration")
	}

	log := logger.New(logger.Config{
		Level:  cfg.LogLevel,
		Pretty: cfg.DevMode,
	})
	logger.SetGlobalLogger(log)

	log.Info().Msg("Starting tickerwatch")

	// Persistent cache database. Metadata resolutions survive restarts here,
	// which matters because document fetches are slow and rate-limited.
	cacheDB, err := database.New(database.Config{
		Path:    cfg.CacheDBPath(),
		Profile: database.ProfileCache,
		Name:    "client_data",
	})
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to open cache database")
	}
	defer cacheDB.Close()

	if err := clientdata.Migrate(cacheDB.Conn()); err != nil {
		log.Fatal().Err(err).Msg("Failed to migrate cache database")
	}

	cacheRepo := clientdata.NewRepository(cacheDB.Conn())

	// Nightly cleanup keeps the cache database from accumulating expired rows.
	scheduler := cron.New()
	cleanupJob := clientdata.NewCleanupJob(cacheRepo, log)
	if _, err := scheduler.AddJob("0 3 * * *", cleanupJob); err != nil {
		log.Fatal().Err(err).Msg("Failed to schedule cache cleanup")
	}
	scheduler.Start()
	defer scheduler.Stop()

	// Upstream clients and domain services
	quoteClient := quoteapi.NewClient(cfg.QuoteAPIURL, log)
	marketHours := markethours.NewService()

	priceService := prices.NewService(quoteClient, marketHours, cacheRepo, log)
	if err := priceService.LoadSnapshot(cfg.PriceSnapshotPath()); err != nil {
		log.Warn().Err(err).Msg("Failed to load price snapshot")
	}
	// The write-through table backfills whatever the snapshot missed, which
	// is everything after a crash.
	if err := priceService.LoadPersisted(); err != nil {
		log.Warn().Err(err).Msg("Failed to restore persisted prices")
	}

	// Fetcher chain, most specific source first. The unrestricted quote
	// fetcher at the end guarantees every known ticker gets at least a name.
	pdfExtractor := pdftext.NewExtractor(log)
	chain := metadata.NewChain(log,
		metadata.NewKIDFetcher(cfg.FundDocsURL, pdfExtractor, log),
		metadata.NewFundQuoteFetcher(quoteClient, true, log),
		metadata.NewEquityQuoteFetcher(quoteClient, log),
		metadata.NewFundQuoteFetcher(quoteClient, false, log),
	)
	metadataService := metadata.NewService(chain, cacheRepo, log)

	srv := server.New(server.Config{
		Log:             log,
		Port:            cfg.Port,
		DevMode:         cfg.DevMode,
		CacheDB:         cacheDB,
		PriceService:    priceService,
		MetadataService: metadataService,
		MarketHours:     marketHours,
	})

	go func() {
		if err := srv.Start(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("Failed to start server")
		}
	}()

	log.Info().Int("port", cfg.Port).Msg("Server started successfully")

	// Wait for shutdown signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("Shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Server shutdown failed")
	}

	// Persist the price cache so the next run starts warm.
	if err := priceService.SaveSnapshot(cfg.PriceSnapshotPath()); err != nil {
		log.Error().Err(err).Msg("Failed to save price snapshot")
	}

	log.Info().Msg("Shutdown complete")
}
