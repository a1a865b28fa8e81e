package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"stock-lookup/models"
	"stock-lookup/search"
	"time"

	"github.com/dgraph-io/ristretto"
)

// Handler serves the development backend: catalog search plus the price and
// AI endpoints the lookup client consumes.
type Handler struct {
	Engine  search.SearchEngine
	Quotes  QuoteProvider
	Analyst *TrendAnalyst

	cache    *ristretto.Cache
	cacheTTL time.Duration
	logger   *slog.Logger
}

// NewHandler wires a handler. A zero cacheTTL disables response caching.
func NewHandler(engine search.SearchEngine, quotes QuoteProvider, analyst *TrendAnalyst, cacheTTL time.Duration, logger *slog.Logger) (*Handler, error) {
	if logger == nil {
		logger = slog.Default()
	}
	h := &Handler{
		Engine:   engine,
		Quotes:   quotes,
		Analyst:  analyst,
		cacheTTL: cacheTTL,
		logger:   logger,
	}
	if cacheTTL > 0 {
		cache, err := ristretto.NewCache(&ristretto.Config{
			NumCounters:        10000,
			MaxCost:            1000, // one unit per cached response
			BufferItems:        64,
			IgnoreInternalCost: true,
		})
		if err != nil {
			return nil, fmt.Errorf("create response cache: %w", err)
		}
		h.cache = cache
	}
	return h, nil
}

// Close releases the response cache.
func (h *Handler) Close() {
	if h.cache != nil {
		h.cache.Close()
	}
}

func (h *Handler) Search(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query().Get("q")
	if query == "" {
		writeError(w, http.StatusBadRequest, "missing query parameter 'q'")
		return
	}

	results := h.Engine.Search(query)
	if results == nil {
		results = []models.Security{}
	}
	writeJSON(w, http.StatusOK, results)
}

func (h *Handler) Price(w http.ResponseWriter, r *http.Request) {
	stock, ok := h.lookup(w, r)
	if !ok {
		return
	}

	value, err := h.cached(r.Context(), "price:"+stock.Key().String(), func(ctx context.Context) (interface{}, error) {
		closePrice, err := h.Quotes.Close(ctx, *stock)
		if err != nil {
			return nil, err
		}
		return priceResponse{Close: &closePrice}, nil
	})
	if err != nil {
		h.logger.Warn("price lookup failed", "key", stock.Key().String(), "error", err)
		writeError(w, http.StatusBadGateway, "price unavailable")
		return
	}
	writeJSON(w, http.StatusOK, value)
}

func (h *Handler) Analysis(w http.ResponseWriter, r *http.Request) {
	stock, ok := h.lookup(w, r)
	if !ok {
		return
	}

	value, err := h.cached(r.Context(), "ai:"+stock.Key().String(), func(ctx context.Context) (interface{}, error) {
		return h.Analyst.Analyze(ctx, *stock)
	})
	if err != nil {
		h.logger.Warn("analysis failed", "key", stock.Key().String(), "error", err)
		status := http.StatusBadGateway
		if errors.Is(err, ErrInsufficientHistory) {
			status = http.StatusUnprocessableEntity
		}
		writeError(w, status, "analysis unavailable")
		return
	}
	writeJSON(w, http.StatusOK, value)
}

func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// lookup resolves the symbol/market query parameters to a catalog entry,
// writing the error response itself when it cannot.
func (h *Handler) lookup(w http.ResponseWriter, r *http.Request) (*models.Security, bool) {
	symbol := r.URL.Query().Get("symbol")
	market := r.URL.Query().Get("market")
	if symbol == "" || market == "" {
		writeError(w, http.StatusBadRequest, "missing symbol or market parameter")
		return nil, false
	}

	stock := h.Engine.GetStock(symbol, models.Market(market))
	if stock == nil {
		writeError(w, http.StatusNotFound, "stock not found")
		return nil, false
	}
	return stock, true
}

func (h *Handler) cached(ctx context.Context, key string, load func(context.Context) (interface{}, error)) (interface{}, error) {
	if h.cache != nil {
		if v, ok := h.cache.Get(key); ok {
			return v, nil
		}
	}
	v, err := load(ctx)
	if err != nil {
		return nil, err
	}
	if h.cache != nil {
		h.cache.SetWithTTL(key, v, 1, h.cacheTTL)
	}
	return v, nil
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
