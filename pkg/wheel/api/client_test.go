package api

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wheeltrack/wheel/pkg/wheel/types"
)

type recorded struct {
	method string
	path   string
	body   map[string]any
}

func newRecordingServer(t *testing.T, status int, response string) (*httptest.Server, *recorded) {
	t.Helper()
	rec := &recorded{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rec.method = r.Method
		rec.path = r.URL.Path
		data, _ := io.ReadAll(r.Body)
		if len(data) > 0 {
			_ = json.Unmarshal(data, &rec.body)
		}
		w.WriteHeader(status)
		_, _ = w.Write([]byte(response))
	}))
	t.Cleanup(srv.Close)
	return srv, rec
}

const tradeJSON = `{"id": 9, "underlying_ticker": "CRWV", "trade_type": "Sell Put",
	"strike_price": 140, "premium_received": 2.5, "number_of_contracts": 1,
	"transaction_date": "2025-01-03", "expiration_date": "2025-02-21",
	"status": "Open", "fees": 0.66, "net_premium_received": null,
	"closing_fees": 0, "assigned": false}`

func TestListTrades(t *testing.T) {
	srv, rec := newRecordingServer(t, http.StatusOK, "["+tradeJSON+"]")
	c, err := NewClient(srv.URL, time.Second)
	require.NoError(t, err)

	trades, err := c.ListTrades(context.Background())
	require.NoError(t, err)
	assert.Equal(t, http.MethodGet, rec.method)
	assert.Equal(t, "/api/trades/", rec.path)
	require.Len(t, trades, 1)
	assert.Equal(t, int64(9), trades[0].ID)
	assert.Nil(t, trades[0].NetPremiumReceived)
}

func TestCloseTradeSendsTriple(t *testing.T) {
	srv, rec := newRecordingServer(t, http.StatusOK, tradeJSON)
	c, err := NewClient(srv.URL, time.Second)
	require.NoError(t, err)

	date, _ := types.ParseDate("2025-01-20")
	_, err = c.CloseTrade(context.Background(), 9, ClosePayload{
		BuyBackPrice: decimal.NewFromFloat(0.9),
		ClosingFees:  decimal.NewFromFloat(0.66),
		BuyBackDate:  date,
	})
	require.NoError(t, err)
	assert.Equal(t, http.MethodPut, rec.method)
	assert.Equal(t, "/api/trades/9/close", rec.path)
	assert.Equal(t, 0.9, rec.body["buy_back_price"])
	assert.Equal(t, 0.66, rec.body["closing_fees"])
	assert.Equal(t, "2025-01-20", rec.body["buy_back_date"])
}

func TestRollTradeSendsAllLegParameters(t *testing.T) {
	srv, rec := newRecordingServer(t, http.StatusOK, tradeJSON)
	c, err := NewClient(srv.URL, time.Second)
	require.NoError(t, err)

	exp, _ := types.ParseDate("2025-03-21")
	rollDate, _ := types.ParseDate("2025-02-20")
	_, err = c.RollTrade(context.Background(), 9, RollPayload{
		NewExpirationDate: exp,
		StrikePrice:       decimal.NewFromInt(135),
		PremiumReceived:   decimal.NewFromFloat(1.8),
		Fees:              decimal.NewFromFloat(0.66),
		ClosingFees:       decimal.NewFromFloat(0.66),
		RollDate:          rollDate,
	})
	require.NoError(t, err)
	assert.Equal(t, http.MethodPost, rec.method)
	assert.Equal(t, "/api/trades/9/roll", rec.path)
	assert.Equal(t, "2025-03-21", rec.body["new_expiration_date"])
	assert.Equal(t, "2025-02-20", rec.body["roll_date"])
	assert.Equal(t, float64(135), rec.body["strike_price"])
}

func TestMutationsWithoutBody(t *testing.T) {
	tests := []struct {
		name     string
		call     func(c *Client) error
		wantPath string
	}{
		{"assign", func(c *Client) error { _, err := c.AssignTrade(context.Background(), 4); return err }, "/api/trades/4/assign"},
		{"expire", func(c *Client) error { _, err := c.ExpireTrade(context.Background(), 4); return err }, "/api/trades/4/expire"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv, rec := newRecordingServer(t, http.StatusOK, tradeJSON)
			c, err := NewClient(srv.URL, time.Second)
			require.NoError(t, err)
			require.NoError(t, tt.call(c))
			assert.Equal(t, http.MethodPut, rec.method)
			assert.Equal(t, tt.wantPath, rec.path)
			assert.Empty(t, rec.body)
		})
	}
}

func TestSnapshotEndpoints(t *testing.T) {
	t.Run("cost_basis", func(t *testing.T) {
		srv, rec := newRecordingServer(t, http.StatusOK,
			`{"original_cost_basis": 100, "cumulative_premium": 30, "cumulative_fees_per_share": 2}`)
		c, err := NewClient(srv.URL, time.Second)
		require.NoError(t, err)
		cb, err := c.GetCostBasis(context.Background(), "CRWV")
		require.NoError(t, err)
		assert.Equal(t, "/api/cost_basis/CRWV", rec.path)
		assert.Equal(t, "72.00", cb.Adjusted().StringFixed(2))
	})

	t.Run("cumulative_pnl", func(t *testing.T) {
		srv, rec := newRecordingServer(t, http.StatusOK, `{"cumulative_pnl": -12.5}`)
		c, err := NewClient(srv.URL, time.Second)
		require.NoError(t, err)
		p, err := c.GetCumulativePnl(context.Background(), "CRWV")
		require.NoError(t, err)
		assert.Equal(t, "/api/cumulative_pnl/CRWV", rec.path)
		assert.Equal(t, "-12.50", p.CumulativePnl.StringFixed(2))
	})

	t.Run("dashboard", func(t *testing.T) {
		srv, rec := newRecordingServer(t, http.StatusOK,
			`{"total_premium_collected": 1200.5, "total_net_premium": null, "win_rate": 66.7}`)
		c, err := NewClient(srv.URL, time.Second)
		require.NoError(t, err)
		d, err := c.GetDashboard(context.Background())
		require.NoError(t, err)
		assert.Equal(t, "/api/dashboard/", rec.path)
		require.NotNil(t, d.TotalPremiumCollected)
		assert.Nil(t, d.TotalNetPremium)
		assert.Equal(t, "66.70", d.WinRate.StringFixed(2))
	})
}

func TestNon2xxBecomesStatusError(t *testing.T) {
	srv, _ := newRecordingServer(t, http.StatusNotFound, `{"detail": "Trade not found"}`)
	c, err := NewClient(srv.URL, time.Second)
	require.NoError(t, err)

	_, err = c.AssignTrade(context.Background(), 999)
	require.Error(t, err)
	var se *StatusError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, http.StatusNotFound, se.Code)
	assert.Contains(t, se.Error(), "Trade not found")
}

func TestNewClientRejectsEmptyURL(t *testing.T) {
	_, err := NewClient("   ", time.Second)
	assert.Error(t, err)
}
