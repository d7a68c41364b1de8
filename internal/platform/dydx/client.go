// Package dydx reads perpetual funding rates from the dYdX v4 indexer.
package dydx

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/alanyoungcy/crossarb/internal/domain"
)

// DefaultBaseURL is the public dYdX v4 indexer.
const DefaultBaseURL = "https://indexer.dydx.trade"

// PerpetualMarket is one entry of GET /v4/perpetualMarkets.
type PerpetualMarket struct {
	Ticker          string `json:"ticker"`
	Status          string `json:"status"`
	NextFundingRate string `json:"nextFundingRate"`
	OraclePrice     string `json:"oraclePrice"`
	Volume24H       string `json:"volume24H"`
	OpenInterest    string `json:"openInterest"`
}

type perpetualMarketsResponse struct {
	Markets map[string]PerpetualMarket `json:"markets"`
}

// Client is the REST client for the dYdX indexer.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// NewClient creates a new indexer client.
func NewClient(baseURL string) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

// GetPerpetualMarkets returns the perpetual markets keyed by ticker.
func (c *Client) GetPerpetualMarkets(ctx context.Context, limit int) (map[string]PerpetualMarket, error) {
	params := url.Values{}
	if limit > 0 {
		params.Set("limit", strconv.Itoa(limit))
	}
	path := "/v4/perpetualMarkets"
	if len(params) > 0 {
		path += "?" + params.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return nil, fmt.Errorf("dydx: create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("dydx: get perpetual markets: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("dydx: read response: %w", err)
	}
	if err := checkStatus(resp.StatusCode, body); err != nil {
		return nil, fmt.Errorf("dydx: get perpetual markets: %w", err)
	}

	var out perpetualMarketsResponse
	if err := json.Unmarshal(body, &out); err != nil {
		return nil, fmt.Errorf("dydx: decode perpetual markets: %w", err)
	}
	return out.Markets, nil
}

func checkStatus(statusCode int, body []byte) error {
	if statusCode >= 200 && statusCode < 300 {
		return nil
	}
	switch statusCode {
	case http.StatusNotFound:
		return fmt.Errorf("%w: %s", domain.ErrNotFound, body)
	case http.StatusUnauthorized, http.StatusForbidden:
		return fmt.Errorf("%w: %s", domain.ErrUnauthorized, body)
	case http.StatusTooManyRequests:
		return fmt.Errorf("%w: %s", domain.ErrRateLimited, body)
	default:
		return fmt.Errorf("HTTP %d: %s", statusCode, body)
	}
}
