package api

import (
	"context"
	"fmt"
	"net/url"
)

// GetPrice fetches the current quote for an asset on a market.
func (c *Client) GetPrice(ctx context.Context, asset, market string) (*PriceResponse, error) {
	query := url.Values{}
	query.Set("asset_name", asset)
	query.Set("market", market)

	var resp PriceResponse
	if err := c.get(ctx, "/price", query, &resp); err != nil {
		return nil, fmt.Errorf("get price %s/%s: %w", asset, market, err)
	}

	return &resp, nil
}
