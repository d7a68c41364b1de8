// Package hyperliquid reads perpetual funding rates from the Hyperliquid info
// endpoint.
package hyperliquid

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/alanyoungcy/crossarb/internal/domain"
)

// DefaultBaseURL is the public Hyperliquid API root.
const DefaultBaseURL = "https://api.hyperliquid.xyz"

// Asset is one entry of the perpetuals universe.
type Asset struct {
	Name       string `json:"name"`
	IsDelisted bool   `json:"isDelisted"`
}

// Meta is the first element of the metaAndAssetCtxs response.
type Meta struct {
	Universe []Asset `json:"universe"`
}

// AssetContext is the live state of one asset, aligned by index with
// Meta.Universe.
type AssetContext struct {
	Funding      string `json:"funding"`
	DayNtlVlm    string `json:"dayNtlVlm"`
	MarkPx       string `json:"markPx"`
	OpenInterest string `json:"openInterest"`
}

// Client is the REST client for the Hyperliquid info endpoint.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// NewClient creates a new info client.
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

// MetaAndAssetContexts returns the perpetuals universe and the matching
// asset contexts.
func (c *Client) MetaAndAssetContexts(ctx context.Context) (Meta, []AssetContext, error) {
	body, err := c.postInfo(ctx, map[string]string{"type": "metaAndAssetCtxs"})
	if err != nil {
		return Meta{}, nil, fmt.Errorf("hyperliquid: meta and asset contexts: %w", err)
	}

	var raw []json.RawMessage
	if err := json.Unmarshal(body, &raw); err != nil {
		return Meta{}, nil, fmt.Errorf("hyperliquid: decode response: %w", err)
	}
	if len(raw) != 2 {
		return Meta{}, nil, fmt.Errorf("hyperliquid: expected [meta, contexts], got %d elements", len(raw))
	}

	var meta Meta
	if err := json.Unmarshal(raw[0], &meta); err != nil {
		return Meta{}, nil, fmt.Errorf("hyperliquid: decode meta: %w", err)
	}
	var ctxs []AssetContext
	if err := json.Unmarshal(raw[1], &ctxs); err != nil {
		return Meta{}, nil, fmt.Errorf("hyperliquid: decode asset contexts: %w", err)
	}
	return meta, ctxs, nil
}

func (c *Client) postInfo(ctx context.Context, payload any) ([]byte, error) {
	jsonBody, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal request body: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/info", bytes.NewReader(jsonBody))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("http request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		switch resp.StatusCode {
		case http.StatusTooManyRequests:
			return nil, fmt.Errorf("%w: %s", domain.ErrRateLimited, body)
		case http.StatusUnauthorized, http.StatusForbidden:
			return nil, fmt.Errorf("%w: %s", domain.ErrUnauthorized, body)
		case http.StatusNotFound:
			return nil, fmt.Errorf("%w: %s", domain.ErrNotFound, body)
		default:
			return nil, fmt.Errorf("HTTP %d: %s", resp.StatusCode, body)
		}
	}
	return body, nil
}
