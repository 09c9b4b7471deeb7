package server

import (
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"github.com/tickerwatch/tickerwatch/internal/database"
	"github.com/tickerwatch/tickerwatch/internal/markethours"
	"github.com/tickerwatch/tickerwatch/internal/metadata"
	"github.com/tickerwatch/tickerwatch/internal/prices"
)

// Handlers holds the API handlers and their dependencies.
type Handlers struct {
	priceService    *prices.Service
	metadataService *metadata.Service
	marketHours     *markethours.Service
	cacheDB         *database.DB
	log             zerolog.Logger
}

// NewHandlers creates the API handlers.
func NewHandlers(
	priceService *prices.Service,
	metadataService *metadata.Service,
	marketHours *markethours.Service,
	cacheDB *database.DB,
	log zerolog.Logger,
) *Handlers {
	return &Handlers{
		priceService:    priceService,
		metadataService: metadataService,
		marketHours:     marketHours,
		cacheDB:         cacheDB,
		log:             log.With().Str("component", "handlers").Logger(),
	}
}

// envelope wraps every API payload with response metadata.
type envelope struct {
	Data     interface{}      `json:"data"`
	Metadata responseMetadata `json:"metadata"`
}

type responseMetadata struct {
	Timestamp time.Time `json:"timestamp"`
}

// HandleHealth handles health check requests
func (h *Handlers) HandleHealth(w http.ResponseWriter, r *http.Request) {
	status := "healthy"
	if h.cacheDB != nil {
		if err := h.cacheDB.HealthCheck(r.Context()); err != nil {
			h.log.Error().Err(err).Msg("Cache database health check failed")
			status = "degraded"
		}
	}

	response := map[string]interface{}{
		"status":  status,
		"service": "tickerwatch",
	}

	code := http.StatusOK
	if status != "healthy" {
		code = http.StatusServiceUnavailable
	}
	h.writeJSON(w, code, response)
}

// HandleQuotes serves price records for a comma-separated symbols parameter.
// GET /api/quotes?symbols=AAPL,VOO&refresh=true
func (h *Handlers) HandleQuotes(w http.ResponseWriter, r *http.Request) {
	symbolsParam := r.URL.Query().Get("symbols")
	if symbolsParam == "" {
		h.writeError(w, http.StatusBadRequest, "symbols parameter is required")
		return
	}

	symbols := strings.Split(symbolsParam, ",")
	forceRefresh := r.URL.Query().Get("refresh") == "true"

	records := h.priceService.GetPrices(r.Context(), symbols, forceRefresh)

	h.writeEnvelope(w, http.StatusOK, records)
}

// HandleMetadata serves security metadata by ISIN and/or ticker.
// GET /api/metadata?isin=IE00BK5BQT80&ticker=VWCE.DE&refresh=true
func (h *Handlers) HandleMetadata(w http.ResponseWriter, r *http.Request) {
	isin := r.URL.Query().Get("isin")
	ticker := r.URL.Query().Get("ticker")
	if isin == "" && ticker == "" {
		h.writeError(w, http.StatusBadRequest, "isin or ticker parameter is required")
		return
	}

	bypassCache := r.URL.Query().Get("refresh") == "true"

	result := h.metadataService.Get(r.Context(), isin, ticker, bypassCache)
	if result == nil {
		h.writeError(w, http.StatusNotFound, "no metadata found")
		return
	}

	h.writeEnvelope(w, http.StatusOK, result)
}

// HandleMarketStatus serves the trading status of one exchange.
// GET /api/markets/{exchange}
func (h *Handlers) HandleMarketStatus(w http.ResponseWriter, r *http.Request) {
	exchange := chi.URLParam(r, "exchange")

	status, err := h.marketHours.GetMarketStatus(exchange, time.Now())
	if err != nil {
		h.writeError(w, http.StatusNotFound, err.Error())
		return
	}

	h.writeEnvelope(w, http.StatusOK, status)
}

// HandleOpenMarkets lists exchanges currently trading.
// GET /api/markets
func (h *Handlers) HandleOpenMarkets(w http.ResponseWriter, r *http.Request) {
	open := h.marketHours.GetOpenMarkets(time.Now())

	h.writeEnvelope(w, http.StatusOK, map[string]interface{}{
		"open": open,
	})
}

// writeEnvelope writes a JSON response wrapped in the standard envelope.
func (h *Handlers) writeEnvelope(w http.ResponseWriter, status int, data interface{}) {
	h.writeJSON(w, status, envelope{
		Data:     data,
		Metadata: responseMetadata{Timestamp: time.Now().UTC()},
	})
}

// writeError writes a JSON error response.
func (h *Handlers) writeError(w http.ResponseWriter, status int, message string) {
	h.writeJSON(w, status, map[string]interface{}{
		"error": message,
	})
}

// writeJSON writes a JSON response
func (h *Handlers) writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.log.Error().Err(err).Msg("Failed to encode JSON response")
	}
}
