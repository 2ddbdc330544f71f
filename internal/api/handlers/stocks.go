package handlers

import (
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"github.com/fenghou-lab/hotpick/internal/contracts"
	"github.com/fenghou-lab/hotpick/pkg/logger"
	"github.com/fenghou-lab/hotpick/pkg/redis"
)

// quoteTTL keeps delayed quotes hot for dashboards polling the same codes.
const quoteTTL = time.Minute

// StockHandler serves single-stock quotes.
type StockHandler struct {
	market contracts.MarketData
	cache  *redis.Cache
	logger *logger.Logger
}

// NewStockHandler creates a new stock handler.
func NewStockHandler(market contracts.MarketData, cache *redis.Cache, log *logger.Logger) *StockHandler {
	return &StockHandler{market: market, cache: cache, logger: log}
}

// GetQuote returns a stock's delayed quote snapshot.
// GET /api/stocks/{code}/quote
func (h *StockHandler) GetQuote(w http.ResponseWriter, r *http.Request) {
	code := mux.Vars(r)["code"]
	ctx := r.Context()

	var snap contracts.Snapshot
	hit, err := h.cache.Get(ctx, redis.SnapshotKey(code), &snap)
	if err != nil {
		h.logger.WithError(err).Warn("Quote cache read failed")
	}
	if !hit {
		snap, err = h.market.GetSnapshot(ctx, code)
		if err != nil {
			h.logger.WithError(err).WithField("code", code).Error("Quote fetch failed")
			respondError(w, http.StatusBadGateway, "Failed to fetch quote")
			return
		}
		if err := h.cache.Set(ctx, redis.SnapshotKey(code), snap, quoteTTL); err != nil {
			h.logger.WithError(err).Warn("Quote cache write failed")
		}
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"code":     code,
		"snapshot": snap,
	})
}
