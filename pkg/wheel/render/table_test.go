package render

import (
	"bytes"
	"encoding/json"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wheeltrack/wheel/pkg/wheel/filter"
	"github.com/wheeltrack/wheel/pkg/wheel/types"
	"github.com/wheeltrack/wheel/pkg/wheel/view"
)

func sampleSnapshot() view.Snapshot {
	net := decimal.NewFromFloat(150.25)
	put := types.Trade{
		ID:                1,
		UnderlyingTicker:  "AAPL",
		TradeType:         types.SellPut,
		StrikePrice:       decimal.NewFromInt(180),
		PremiumReceived:   decimal.NewFromFloat(2.5),
		NumberOfContracts: 1,
		TransactionDate:   types.NewDate(2024, time.January, 1),
		ExpirationDate:    types.NewDate(2024, time.February, 16),
		Status:            types.StatusOpen,
	}
	call := types.Trade{
		ID:                 2,
		UnderlyingTicker:   "CRWV",
		TradeType:          types.SellCall,
		StrikePrice:        decimal.NewFromInt(140),
		PremiumReceived:    decimal.NewFromFloat(1.8),
		NumberOfContracts:  2,
		TransactionDate:    types.NewDate(2024, time.January, 2),
		ExpirationDate:     types.NewDate(2024, time.February, 16),
		Status:             types.StatusClosed,
		NetPremiumReceived: &net,
	}
	callNoBasis := types.Trade{
		ID:               3,
		UnderlyingTicker: "SOFI",
		TradeType:        types.SellCall,
		Status:           types.StatusOpen,
	}
	return view.Snapshot{
		Trades:    []types.Trade{put, call, callNoBasis},
		SellPuts:  []types.Trade{put},
		SellCalls: []types.Trade{call, callNoBasis},
		CostBasis: map[string]types.CostBasis{
			"CRWV": {
				OriginalCostBasis:      decimal.NewFromInt(100),
				CumulativePremium:      decimal.NewFromInt(30),
				CumulativeFeesPerShare: decimal.NewFromInt(2),
			},
		},
		CumulativePnl: map[string]types.CumulativePnl{
			"CRWV": {CumulativePnl: decimal.NewFromFloat(55.5)},
		},
	}
}

func TestTableRendererShowsDerivedValues(t *testing.T) {
	var buf bytes.Buffer
	opts := Options{Today: types.NewDate(2024, time.January, 10)}
	require.NoError(t, NewTableRenderer().Render(&buf, sampleSnapshot(), opts))

	out := buf.String()
	assert.Contains(t, out, "SELL PUTS")
	assert.Contains(t, out, "SELL CALLS")
	// Days held for the open put: 2024-01-01 → 2024-01-10 = 9.
	assert.Contains(t, out, "9")
	// Adjusted basis 100 - 30 + 2.
	assert.Contains(t, out, "72.00")
	assert.Contains(t, out, "102.00")
	// Unfetched ticker renders the sentinel.
	assert.Contains(t, out, Unavailable)
	// Dashboard placeholder when the aggregate is absent.
	assert.Contains(t, out, "0.00")
	// Status-gated actions.
	assert.Contains(t, out, "edit,close,assign,roll")
	assert.Contains(t, out, "edit,expire,roll")
}

func TestTableRendererFiltersByTicker(t *testing.T) {
	var buf bytes.Buffer
	f, err := filter.Parse("CRWV")
	require.NoError(t, err)
	opts := Options{Today: types.NewDate(2024, time.January, 10), Filter: f}
	require.NoError(t, NewTableRenderer().Render(&buf, sampleSnapshot(), opts))

	out := buf.String()
	assert.Contains(t, out, "CRWV")
	assert.NotContains(t, out, "AAPL")
	assert.NotContains(t, out, "SOFI")
}

func TestJSONRenderer(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, NewJSONRenderer().Render(&buf, sampleSnapshot(), Options{}))

	var model map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &model))
	assert.Len(t, model["sell_puts"], 1)
	assert.Len(t, model["sell_calls"], 2)
	assert.Nil(t, model["dashboard"])
}

func TestYAMLRendererRoundTrips(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, NewYAMLRenderer().Render(&buf, sampleSnapshot(), Options{}))
	out := buf.String()
	assert.Contains(t, out, "sell_puts:")
	assert.Contains(t, out, "CRWV")
}
