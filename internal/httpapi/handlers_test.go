package httpapi

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/rickgao/arbwatch/internal/model"
	"github.com/rickgao/arbwatch/internal/store"
)

func newTestRouter(t *testing.T) (http.Handler, *store.Store) {
	t.Helper()
	s := store.New([]string{"Copper", "Oil"})
	if _, err := s.Merge("Copper", model.Quote{Asset: "Copper", Market: "US", Price: 100, Spread: 2}); err != nil {
		t.Fatalf("Merge: %v", err)
	}

	deps := Deps{
		Store: s,
		Stats: map[string]func() any{
			"poller": func() any { return map[string]int{"fetched": 7} },
		},
		Version: "test",
	}
	return NewRouter(deps, nil), s
}

func doGet(t *testing.T, h http.Handler, path string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, path, nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestHealth(t *testing.T) {
	h, _ := newTestRouter(t)
	rec := doGet(t, h, "/health")

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	var body map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body["status"] != "ok" || body["version"] != "test" {
		t.Errorf("body = %v", body)
	}
}

func TestGetPrice(t *testing.T) {
	h, _ := newTestRouter(t)

	tests := []struct {
		name       string
		path       string
		wantStatus int
		check      func(t *testing.T, v RecordView)
	}{
		{
			name:       "merged asset",
			path:       "/prices/Copper",
			wantStatus: http.StatusOK,
			check: func(t *testing.T, v RecordView) {
				if v.BestBuyPrice == nil || *v.BestBuyPrice != 102 {
					t.Errorf("BestBuyPrice = %v, want 102", v.BestBuyPrice)
				}
				if v.BestSellPrice == nil || *v.BestSellPrice != 98 {
					t.Errorf("BestSellPrice = %v, want 98", v.BestSellPrice)
				}
				if v.BestBuyMarket != "US" || v.BestSellMarket != "US" {
					t.Errorf("markets = (%q, %q), want (US, US)", v.BestBuyMarket, v.BestSellMarket)
				}
			},
		},
		{
			name:       "empty record renders null buy price",
			path:       "/prices/Oil",
			wantStatus: http.StatusOK,
			check: func(t *testing.T, v RecordView) {
				if v.BestBuyPrice != nil {
					t.Errorf("BestBuyPrice = %v, want nil", *v.BestBuyPrice)
				}
				if v.BestSellPrice == nil || *v.BestSellPrice != 0 {
					t.Errorf("BestSellPrice = %v, want 0", v.BestSellPrice)
				}
			},
		},
		{
			name:       "untracked asset",
			path:       "/prices/Gold",
			wantStatus: http.StatusNotFound,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := doGet(t, h, tt.path)
			if rec.Code != tt.wantStatus {
				t.Fatalf("status = %d, want %d", rec.Code, tt.wantStatus)
			}
			if tt.check == nil {
				var e ErrorResponse
				if err := json.Unmarshal(rec.Body.Bytes(), &e); err != nil || e.Error == "" {
					t.Errorf("expected error body, got %q", rec.Body.String())
				}
				return
			}
			var v RecordView
			if err := json.Unmarshal(rec.Body.Bytes(), &v); err != nil {
				t.Fatalf("decode: %v", err)
			}
			tt.check(t, v)
		})
	}
}

func TestListPrices(t *testing.T) {
	h, _ := newTestRouter(t)
	rec := doGet(t, h, "/prices")

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	var body map[string]RecordView
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(body) != 2 {
		t.Fatalf("len = %d, want 2", len(body))
	}
	if body["Oil"].BestBuyPrice != nil {
		t.Error("Oil buy price should be null")
	}
	if body["Copper"].Asset != "Copper" {
		t.Errorf("Asset = %q, want Copper", body["Copper"].Asset)
	}
}

func TestStats(t *testing.T) {
	h, _ := newTestRouter(t)
	rec := doGet(t, h, "/stats")

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	var body map[string]map[string]int
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body["poller"]["fetched"] != 7 {
		t.Errorf("poller.fetched = %d, want 7", body["poller"]["fetched"])
	}
}

func TestFeedRouteOptional(t *testing.T) {
	h, _ := newTestRouter(t)
	if rec := doGet(t, h, "/ws/opportunities"); rec.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404 without feed", rec.Code)
	}

	called := false
	withFeed := NewRouter(Deps{
		Store: store.New(nil),
		Feed:  http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) { called = true }),
	}, nil)
	doGet(t, withFeed, "/ws/opportunities")
	if !called {
		t.Error("feed handler not called")
	}
}
