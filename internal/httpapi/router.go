package httpapi

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/rickgao/arbwatch/internal/model"
)

// RecordStore is the read surface of the price store.
type RecordStore interface {
	Read(asset string) (model.AssetBestRecord, error)
	Snapshot() map[string]model.AssetBestRecord
}

// Deps holds the components served by the router.
type Deps struct {
	Store RecordStore

	// Stats maps a component name to its counters, rendered by GET /stats.
	Stats map[string]func() any

	// Feed serves the opportunity WebSocket. Route omitted when nil.
	Feed http.Handler

	Version string
}

// NewRouter builds the analyzer HTTP handler.
func NewRouter(d Deps, logger *slog.Logger) http.Handler {
	if logger == nil {
		logger = slog.Default()
	}
	h := &handler{deps: d, logger: logger, started: time.Now()}

	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(requestLogger(logger))

	r.Get("/health", h.health)
	r.Get("/prices", h.listPrices)
	r.Get("/prices/{asset}", h.getPrice)
	r.Get("/stats", h.stats)
	if d.Feed != nil {
		r.Handle("/ws/opportunities", d.Feed)
	}

	return r
}

// requestLogger logs each request at debug level.
func requestLogger(logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r)
			logger.Debug("http request",
				"method", r.Method,
				"path", r.URL.Path,
				"status", ww.Status(),
				"duration", time.Since(start),
			)
		})
	}
}
