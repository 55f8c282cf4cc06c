// Package api is the REST client for the wheel tracker backend. It owns no
// state beyond the connection; every call returns a fresh decoded snapshot.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/wheeltrack/wheel/pkg/wheel/types"
)

const defaultTimeout = 15 * time.Second

// Client wraps the backend REST surface under /api.
type Client struct {
	baseURL    *url.URL
	httpClient *http.Client
}

// NewClient builds a client for the given base URL, e.g.
// "http://localhost:8000". The /api prefix is appended here.
func NewClient(rawURL string, timeout time.Duration) (*Client, error) {
	raw := strings.TrimSpace(rawURL)
	if raw == "" {
		return nil, fmt.Errorf("api url must not be empty")
	}
	parsed, err := url.Parse(strings.TrimRight(raw, "/"))
	if err != nil {
		return nil, fmt.Errorf("parse api url: %w", err)
	}
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	return &Client{
		baseURL:    parsed,
		httpClient: &http.Client{Timeout: timeout},
	}, nil
}

// SetHTTPClient sets the HTTP client for testing.
func (c *Client) SetHTTPClient(client *http.Client) {
	c.httpClient = client
}

// StatusError is returned for non-2xx responses.
type StatusError struct {
	Code int
	Body string
}

func (e *StatusError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("backend returned %d", e.Code)
	}
	return fmt.Sprintf("backend returned %d: %s", e.Code, e.Body)
}

func (c *Client) doRequest(ctx context.Context, method, path string, payload, out any) error {
	var body io.Reader
	if payload != nil {
		buf, err := json.Marshal(payload)
		if err != nil {
			return fmt.Errorf("encode %s %s payload: %w", method, path, err)
		}
		body = bytes.NewReader(buf)
	}
	u := *c.baseURL
	u.Path = strings.TrimRight(u.Path, "/") + "/api" + path
	req, err := http.NewRequestWithContext(ctx, method, u.String(), body)
	if err != nil {
		return fmt.Errorf("build %s %s: %w", method, path, err)
	}
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read %s %s response: %w", method, path, err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return &StatusError{Code: resp.StatusCode, Body: strings.TrimSpace(string(data))}
	}
	if out == nil {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("decode %s %s response: %w", method, path, err)
	}
	return nil
}

// CreateTradePayload carries the fields of a fresh trade, sans id and status.
type CreateTradePayload struct {
	UnderlyingTicker  string          `json:"underlying_ticker"`
	TradeType         types.TradeType `json:"trade_type"`
	StrikePrice       decimal.Decimal `json:"strike_price"`
	PremiumReceived   decimal.Decimal `json:"premium_received"`
	NumberOfContracts int             `json:"number_of_contracts"`
	TransactionDate   types.Date      `json:"transaction_date"`
	ExpirationDate    types.Date      `json:"expiration_date"`
	Fees              decimal.Decimal `json:"fees"`
}

// ClosePayload mirrors PUT /trades/{id}/close.
type ClosePayload struct {
	BuyBackPrice decimal.Decimal `json:"buy_back_price"`
	ClosingFees  decimal.Decimal `json:"closing_fees"`
	BuyBackDate  types.Date      `json:"buy_back_date"`
}

// RollPayload mirrors POST /trades/{id}/roll: the old leg is closed and a
// replacement opened in one backend transaction.
type RollPayload struct {
	NewExpirationDate types.Date      `json:"new_expiration_date"`
	StrikePrice       decimal.Decimal `json:"strike_price"`
	PremiumReceived   decimal.Decimal `json:"premium_received"`
	Fees              decimal.Decimal `json:"fees"`
	ClosingFees       decimal.Decimal `json:"closing_fees"`
	RollDate          types.Date      `json:"roll_date"`
}

// ListTrades fetches the full trade collection.
func (c *Client) ListTrades(ctx context.Context) ([]types.Trade, error) {
	var trades []types.Trade
	if err := c.doRequest(ctx, http.MethodGet, "/trades/", nil, &trades); err != nil {
		return nil, err
	}
	return trades, nil
}

// CreateTrade opens a new trade and returns the created record.
func (c *Client) CreateTrade(ctx context.Context, payload CreateTradePayload) (*types.Trade, error) {
	var out types.Trade
	if err := c.doRequest(ctx, http.MethodPost, "/trades/", payload, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// CloseTrade buys back an open trade.
func (c *Client) CloseTrade(ctx context.Context, id int64, payload ClosePayload) (*types.Trade, error) {
	var out types.Trade
	if err := c.doRequest(ctx, http.MethodPut, fmt.Sprintf("/trades/%d/close", id), payload, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// AssignTrade marks an open put as assigned.
func (c *Client) AssignTrade(ctx context.Context, id int64) (*types.Trade, error) {
	var out types.Trade
	if err := c.doRequest(ctx, http.MethodPut, fmt.Sprintf("/trades/%d/assign", id), nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// RollTrade closes the current leg and opens its replacement; the response is
// the new leg.
func (c *Client) RollTrade(ctx context.Context, id int64, payload RollPayload) (*types.Trade, error) {
	var out types.Trade
	if err := c.doRequest(ctx, http.MethodPost, fmt.Sprintf("/trades/%d/roll", id), payload, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// UpdateTrade overwrites the whole record; field-level merging is the
// backend's concern.
func (c *Client) UpdateTrade(ctx context.Context, id int64, trade types.Trade) (*types.Trade, error) {
	var out types.Trade
	if err := c.doRequest(ctx, http.MethodPut, fmt.Sprintf("/trades/%d", id), trade, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// ExpireTrade marks an open trade as expired worthless.
func (c *Client) ExpireTrade(ctx context.Context, id int64) (*types.Trade, error) {
	var out types.Trade
	if err := c.doRequest(ctx, http.MethodPut, fmt.Sprintf("/trades/%d/expire", id), nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// GetCostBasis fetches the cost-basis snapshot for one ticker.
func (c *Client) GetCostBasis(ctx context.Context, ticker string) (*types.CostBasis, error) {
	var out types.CostBasis
	if err := c.doRequest(ctx, http.MethodGet, "/cost_basis/"+url.PathEscape(ticker), nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// GetCumulativePnl fetches the realized-P&L snapshot for one ticker.
func (c *Client) GetCumulativePnl(ctx context.Context, ticker string) (*types.CumulativePnl, error) {
	var out types.CumulativePnl
	if err := c.doRequest(ctx, http.MethodGet, "/cumulative_pnl/"+url.PathEscape(ticker), nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// GetDashboard fetches the aggregate metrics.
func (c *Client) GetDashboard(ctx context.Context) (*types.DashboardSummary, error) {
	var out types.DashboardSummary
	if err := c.doRequest(ctx, http.MethodGet, "/dashboard/", nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}
