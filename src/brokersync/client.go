// Package brokersync pulls executed fills from a broker's REST API and feeds
// them to the ingestion pipeline as source "broker-sync". Credentials are an
// explicit per-call value, never client state, so concurrent syncs for
// different users cannot leak tokens across requests.
package brokersync

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/shopspring/decimal"
	"github.com/username/tradevault/src/models"
	"github.com/username/tradevault/src/normalize"
	"golang.org/x/oauth2"
)

// execution is the broker's wire representation of one fill.
type execution struct {
	Symbol   string `json:"symbol"`
	Side     string `json:"side"`
	Quantity string `json:"quantity"`
	Price    string `json:"price"`
	FilledAt string `json:"filled_at"`
	Fee      string `json:"fee"`
	OrderID  string `json:"order_id"`
}

type executionsResponse struct {
	Executions []execution `json:"executions"`
}

type Client struct {
	baseURL string
	http    *http.Client
}

func NewClient(baseURL string) *Client {
	return &Client{
		baseURL: baseURL,
		http:    &http.Client{Timeout: 30 * time.Second},
	}
}

// FetchExecutions lists the fills of one broker account since a point in
// time. The caller threads the session's token through each call.
func (c *Client) FetchExecutions(ctx context.Context, token *oauth2.Token, brokerAccountRef string, since time.Time) ([]models.TradeCandidate, error) {
	u := fmt.Sprintf("%s/v1/accounts/%s/executions?since=%s",
		c.baseURL, url.PathEscape(brokerAccountRef), url.QueryEscape(since.UTC().Format(time.RFC3339)))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, err
	}
	token.SetAuthHeader(req)

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("broker request failed: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("broker returned status %d", resp.StatusCode)
	}

	var payload executionsResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, fmt.Errorf("decoding broker response: %w", err)
	}

	var candidates []models.TradeCandidate
	for _, exec := range payload.Executions {
		candidate, err := executionToCandidate(exec)
		if err != nil {
			// One malformed fill must not sink the sync.
			continue
		}
		candidates = append(candidates, candidate)
	}
	return candidates, nil
}

func executionToCandidate(exec execution) (models.TradeCandidate, error) {
	symbol := normalize.Symbol(exec.Symbol)
	side := normalize.Side(exec.Side)
	qty, qtyOK := normalize.Number(exec.Quantity)
	price, priceOK := normalize.Number(exec.Price)
	filledAt, timeOK := normalize.Date(exec.FilledAt)

	if symbol == "" || side == "" || !qtyOK || !qty.IsPositive() || !priceOK || !timeOK {
		return models.TradeCandidate{}, fmt.Errorf("incomplete execution %q", exec.OrderID)
	}

	fees := decimal.Zero
	if f, ok := normalize.Number(exec.Fee); ok {
		fees = f.Abs()
	}

	return models.TradeCandidate{
		Symbol:     symbol,
		Side:       side,
		Quantity:   qty,
		EntryPrice: price,
		EntryTime:  filledAt,
		Fees:       fees,
		OrderID:    exec.OrderID,
	}, nil
}
