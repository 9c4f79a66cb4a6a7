package generator

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"

	"github.com/rickgao/arbwatch/internal/api"
)

type errorResponse struct {
	Detail string `json:"detail"`
}

// NewHandler serves GET /price?asset_name=&market= from m.
func NewHandler(m *Manager, logger *slog.Logger) http.Handler {
	if logger == nil {
		logger = slog.Default()
	}

	r := chi.NewRouter()
	r.Use(middleware.Recoverer)

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	r.Get("/price", func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		asset, market := q.Get("asset_name"), q.Get("market")
		if asset == "" || market == "" {
			writeJSON(w, http.StatusBadRequest, errorResponse{Detail: "asset_name and market are required"})
			return
		}

		p, ok := m.Get(asset, market)
		if !ok {
			writeJSON(w, http.StatusNotFound, errorResponse{Detail: "Asset and market pair not found"})
			return
		}

		// Each served quote gets its own id.
		resp := api.PriceResponse{
			Name:         p.Asset,
			Market:       p.Market,
			Price:        p.Price,
			Spread:       p.Spread,
			PriceQuoteID: uuid.New(),
		}
		logger.Debug("price served", "asset", asset, "market", market, "quote_id", resp.PriceQuoteID)
		writeJSON(w, http.StatusOK, resp)
	})

	return r
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
