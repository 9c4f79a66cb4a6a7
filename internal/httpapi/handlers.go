package httpapi

import (
	"encoding/json"
	"errors"
	"log/slog"
	"math"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/rickgao/arbwatch/internal/model"
	"github.com/rickgao/arbwatch/internal/store"
)

type handler struct {
	deps    Deps
	logger  *slog.Logger
	started time.Time
}

// ErrorResponse is the body of every non-2xx response.
type ErrorResponse struct {
	Error string `json:"error"`
}

// RecordView renders a record. Prices of empty sides are null.
type RecordView struct {
	Asset          string   `json:"asset"`
	BestBuyPrice   *float64 `json:"best_buy_price"`
	BestBuyMarket  string   `json:"best_buy_market"`
	BestSellPrice  *float64 `json:"best_sell_price"`
	BestSellMarket string   `json:"best_sell_market"`
}

func newRecordView(asset string, rec model.AssetBestRecord) RecordView {
	return RecordView{
		Asset:          asset,
		BestBuyPrice:   finite(rec.BestBuyPrice),
		BestBuyMarket:  rec.BestBuyMarket,
		BestSellPrice:  finite(rec.BestSellPrice),
		BestSellMarket: rec.BestSellMarket,
	}
}

func finite(v float64) *float64 {
	if math.IsInf(v, 0) || math.IsNaN(v) {
		return nil
	}
	return &v
}

func (h *handler) health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":  "ok",
		"version": h.deps.Version,
		"uptime":  time.Since(h.started).Round(time.Second).String(),
	})
}

func (h *handler) listPrices(w http.ResponseWriter, r *http.Request) {
	snap := h.deps.Store.Snapshot()
	out := make(map[string]RecordView, len(snap))
	for asset, rec := range snap {
		out[asset] = newRecordView(asset, rec)
	}
	writeJSON(w, http.StatusOK, out)
}

func (h *handler) getPrice(w http.ResponseWriter, r *http.Request) {
	asset := chi.URLParam(r, "asset")
	rec, err := h.deps.Store.Read(asset)
	if errors.Is(err, store.ErrUnknownAsset) {
		writeJSON(w, http.StatusNotFound, ErrorResponse{Error: "asset not tracked: " + asset})
		return
	}
	if err != nil {
		h.logger.Error("read record failed", "asset", asset, "error", err)
		writeJSON(w, http.StatusInternalServerError, ErrorResponse{Error: "internal error"})
		return
	}
	writeJSON(w, http.StatusOK, newRecordView(asset, rec))
}

func (h *handler) stats(w http.ResponseWriter, r *http.Request) {
	out := make(map[string]any, len(h.deps.Stats))
	for name, fn := range h.deps.Stats {
		out[name] = fn()
	}
	writeJSON(w, http.StatusOK, out)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
