package generator

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"

	"github.com/rickgao/arbwatch/internal/api"
)

func TestHandler_Price(t *testing.T) {
	m, err := NewManager(testConfig(), nil)
	if err != nil {
		t.Fatalf("NewManager() error = %v", err)
	}
	h := NewHandler(m, nil)

	tests := []struct {
		name       string
		query      string
		wantStatus int
	}{
		{"known pair", "?asset_name=Copper&market=US", http.StatusOK},
		{"missing market", "?asset_name=Copper", http.StatusBadRequest},
		{"missing asset", "?market=US", http.StatusBadRequest},
		{"unknown pair", "?asset_name=Gold&market=US", http.StatusNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/price"+tt.query, nil)
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, req)

			if rec.Code != tt.wantStatus {
				t.Fatalf("status = %d, want %d", rec.Code, tt.wantStatus)
			}
			if tt.wantStatus != http.StatusOK {
				return
			}

			var resp api.PriceResponse
			if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
				t.Fatalf("decode: %v", err)
			}
			want, _ := m.Get("Copper", "US")
			if resp.Name != "Copper" || resp.Market != "US" {
				t.Errorf("pair = %s/%s, want Copper/US", resp.Name, resp.Market)
			}
			if resp.Price != want.Price || resp.Spread != want.Spread {
				t.Errorf("price = (%v, %v), want (%v, %v)", resp.Price, resp.Spread, want.Price, want.Spread)
			}
			if resp.PriceQuoteID == uuid.Nil {
				t.Error("price_quote_id is nil")
			}
		})
	}
}

func TestHandler_QuoteIDsAreUnique(t *testing.T) {
	m, _ := NewManager(testConfig(), nil)
	h := NewHandler(m, nil)

	seen := make(map[uuid.UUID]bool)
	for i := 0; i < 5; i++ {
		req := httptest.NewRequest(http.MethodGet, "/price?asset_name=Oil&market=UK", nil)
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)

		var resp api.PriceResponse
		if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
			t.Fatalf("decode: %v", err)
		}
		if seen[resp.PriceQuoteID] {
			t.Fatalf("duplicate quote id %s", resp.PriceQuoteID)
		}
		seen[resp.PriceQuoteID] = true
	}
}
