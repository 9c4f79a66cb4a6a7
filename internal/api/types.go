package api

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/rickgao/arbwatch/internal/model"
)

// PriceResponse from GET /price
type PriceResponse struct {
	Name         string    `json:"name"`
	Market       string    `json:"market"`
	Price        float64   `json:"price"`
	Spread       float64   `json:"spread"`
	PriceQuoteID uuid.UUID `json:"price_quote_id"`
}

// UnmarshalJSON rejects payloads missing name, market, price or spread.
// price_quote_id is optional.
func (p *PriceResponse) UnmarshalJSON(data []byte) error {
	var raw struct {
		Name         *string   `json:"name"`
		Market       *string   `json:"market"`
		Price        *float64  `json:"price"`
		Spread       *float64  `json:"spread"`
		PriceQuoteID uuid.UUID `json:"price_quote_id"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	switch {
	case raw.Name == nil:
		return missingField("name")
	case raw.Market == nil:
		return missingField("market")
	case raw.Price == nil:
		return missingField("price")
	case raw.Spread == nil:
		return missingField("spread")
	}

	*p = PriceResponse{
		Name:         *raw.Name,
		Market:       *raw.Market,
		Price:        *raw.Price,
		Spread:       *raw.Spread,
		PriceQuoteID: raw.PriceQuoteID,
	}
	return nil
}

func missingField(name string) error {
	return fmt.Errorf("%w: missing field %q", model.ErrInvalidQuote, name)
}

// ToQuote converts the response to a model.Quote received at receivedAt.
func (p *PriceResponse) ToQuote(receivedAt time.Time) model.Quote {
	return model.Quote{
		Asset:      p.Name,
		Market:     p.Market,
		Price:      p.Price,
		Spread:     p.Spread,
		QuoteID:    p.PriceQuoteID,
		ReceivedAt: receivedAt,
	}
}
