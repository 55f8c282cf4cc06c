package view

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wheeltrack/wheel/pkg/wheel/api"
	"github.com/wheeltrack/wheel/pkg/wheel/types"
)

// fakeBackend counts calls and can fail selected endpoints.
type fakeBackend struct {
	mu sync.Mutex

	trades    []types.Trade
	costBasis map[string]types.CostBasis
	pnl       map[string]types.CumulativePnl
	dashboard *types.DashboardSummary

	listCalls      int
	dashboardCalls int
	costBasisCalls map[string]int
	pnlCalls       map[string]int

	listErr      error
	dashboardErr error
	costBasisErr map[string]error
}

func newFakeBackend() *fakeBackend {
	return &fakeBackend{
		costBasis:      map[string]types.CostBasis{},
		pnl:            map[string]types.CumulativePnl{},
		costBasisCalls: map[string]int{},
		pnlCalls:       map[string]int{},
		costBasisErr:   map[string]error{},
	}
}

func (f *fakeBackend) ListTrades(ctx context.Context) ([]types.Trade, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.listCalls++
	if f.listErr != nil {
		return nil, f.listErr
	}
	return f.trades, nil
}

func (f *fakeBackend) GetCostBasis(ctx context.Context, ticker string) (*types.CostBasis, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.costBasisCalls[ticker]++
	if err := f.costBasisErr[ticker]; err != nil {
		return nil, err
	}
	cb, ok := f.costBasis[ticker]
	if !ok {
		return nil, errors.New("no cost basis")
	}
	return &cb, nil
}

func (f *fakeBackend) GetCumulativePnl(ctx context.Context, ticker string) (*types.CumulativePnl, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.pnlCalls[ticker]++
	p, ok := f.pnl[ticker]
	if !ok {
		return nil, errors.New("no pnl")
	}
	return &p, nil
}

func (f *fakeBackend) GetDashboard(ctx context.Context) (*types.DashboardSummary, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.dashboardCalls++
	if f.dashboardErr != nil {
		return nil, f.dashboardErr
	}
	return f.dashboard, nil
}

func (f *fakeBackend) CreateTrade(ctx context.Context, payload api.CreateTradePayload) (*types.Trade, error) {
	return &types.Trade{}, nil
}

func (f *fakeBackend) CloseTrade(ctx context.Context, id int64, payload api.ClosePayload) (*types.Trade, error) {
	return &types.Trade{}, nil
}

func (f *fakeBackend) AssignTrade(ctx context.Context, id int64) (*types.Trade, error) {
	return &types.Trade{}, nil
}

func (f *fakeBackend) RollTrade(ctx context.Context, id int64, payload api.RollPayload) (*types.Trade, error) {
	return &types.Trade{}, nil
}

func (f *fakeBackend) UpdateTrade(ctx context.Context, id int64, trade types.Trade) (*types.Trade, error) {
	return &types.Trade{}, nil
}

func (f *fakeBackend) ExpireTrade(ctx context.Context, id int64) (*types.Trade, error) {
	return &types.Trade{}, nil
}

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func d(s string) decimal.Decimal {
	v, err := decimal.NewFromString(s)
	if err != nil {
		panic(err)
	}
	return v
}

func TestRefreshFansOutPerCallTicker(t *testing.T) {
	f := newFakeBackend()
	f.trades = []types.Trade{
		{ID: 1, TradeType: types.SellPut, UnderlyingTicker: "AAPL"},
		{ID: 2, TradeType: types.SellCall, UnderlyingTicker: "CRWV"},
		{ID: 3, TradeType: types.SellCall, UnderlyingTicker: "SOFI"},
		{ID: 4, TradeType: types.SellCall, UnderlyingTicker: "CRWV"},
	}
	f.costBasis["CRWV"] = types.CostBasis{OriginalCostBasis: d("100"), CumulativePremium: d("30"), CumulativeFeesPerShare: d("2")}
	f.costBasis["SOFI"] = types.CostBasis{OriginalCostBasis: d("10")}
	f.pnl["CRWV"] = types.CumulativePnl{CumulativePnl: d("55")}
	f.pnl["SOFI"] = types.CumulativePnl{CumulativePnl: d("-3")}
	f.dashboard = &types.DashboardSummary{}

	s := NewSession(f, quietLogger())
	require.NoError(t, s.Refresh(context.Background()))

	snap := s.Snapshot()
	assert.Len(t, snap.SellPuts, 1)
	assert.Len(t, snap.SellCalls, 3)
	// One fetch per distinct call ticker, puts excluded.
	assert.Equal(t, map[string]int{"CRWV": 1, "SOFI": 1}, f.costBasisCalls)
	assert.Equal(t, map[string]int{"CRWV": 1, "SOFI": 1}, f.pnlCalls)
	assert.Equal(t, "72.00", snap.CostBasis["CRWV"].Adjusted().StringFixed(2))
	assert.Equal(t, "-3.00", snap.CumulativePnl["SOFI"].CumulativePnl.StringFixed(2))
	require.NotNil(t, snap.Dashboard)
}

func TestRefreshDegradesOnSnapshotFailures(t *testing.T) {
	f := newFakeBackend()
	f.trades = []types.Trade{
		{ID: 1, TradeType: types.SellCall, UnderlyingTicker: "CRWV"},
		{ID: 2, TradeType: types.SellCall, UnderlyingTicker: "SOFI"},
	}
	f.costBasis["SOFI"] = types.CostBasis{OriginalCostBasis: d("10")}
	f.pnl["SOFI"] = types.CumulativePnl{CumulativePnl: d("1")}
	f.costBasisErr["CRWV"] = errors.New("boom")
	f.dashboardErr = errors.New("dashboard down")

	s := NewSession(f, quietLogger())
	require.NoError(t, s.Refresh(context.Background()))

	snap := s.Snapshot()
	_, ok := snap.CostBasis["CRWV"]
	assert.False(t, ok, "failed ticker must be absent, not zero-valued")
	_, ok = snap.CostBasis["SOFI"]
	assert.True(t, ok)
	assert.Nil(t, snap.Dashboard, "dashboard failure degrades to placeholder")
}

func TestRefreshPropagatesTradeListError(t *testing.T) {
	f := newFakeBackend()
	f.listErr = errors.New("list down")
	s := NewSession(f, quietLogger())
	assert.Error(t, s.Refresh(context.Background()))
}

func TestMutationsRefreshExactlyOnce(t *testing.T) {
	mutations := []struct {
		name string
		call func(ctx context.Context, s *Session) error
	}{
		{"create", func(ctx context.Context, s *Session) error { return s.Create(ctx, api.CreateTradePayload{}) }},
		{"close", func(ctx context.Context, s *Session) error { return s.Close(ctx, 1, api.ClosePayload{}) }},
		{"assign", func(ctx context.Context, s *Session) error { return s.Assign(ctx, 1) }},
		{"roll", func(ctx context.Context, s *Session) error { return s.Roll(ctx, 1, api.RollPayload{}) }},
		{"update", func(ctx context.Context, s *Session) error { return s.Update(ctx, 1, types.Trade{}) }},
		{"expire", func(ctx context.Context, s *Session) error { return s.Expire(ctx, 1) }},
	}
	for _, m := range mutations {
		t.Run(m.name, func(t *testing.T) {
			f := newFakeBackend()
			f.dashboard = &types.DashboardSummary{}
			s := NewSession(f, quietLogger())
			require.NoError(t, m.call(context.Background(), s))
			assert.Equal(t, 1, f.listCalls)
			assert.Equal(t, 1, f.dashboardCalls)
		})
	}
}

func TestSnapshotIsWholesaleReplaced(t *testing.T) {
	f := newFakeBackend()
	f.trades = []types.Trade{{ID: 1, TradeType: types.SellCall, UnderlyingTicker: "CRWV"}}
	f.costBasis["CRWV"] = types.CostBasis{OriginalCostBasis: d("100")}
	f.pnl["CRWV"] = types.CumulativePnl{}
	f.dashboard = &types.DashboardSummary{}

	s := NewSession(f, quietLogger())
	require.NoError(t, s.Refresh(context.Background()))
	require.Len(t, s.Snapshot().Trades, 1)

	// Server drops the trade; the next refresh must not retain stale rows
	// or stale map entries.
	f.mu.Lock()
	f.trades = nil
	f.mu.Unlock()
	require.NoError(t, s.Refresh(context.Background()))
	assert.Empty(t, s.Snapshot().Trades)
	assert.Empty(t, s.Snapshot().CostBasis)
}

func TestFindTrade(t *testing.T) {
	f := newFakeBackend()
	f.trades = []types.Trade{{ID: 42, TradeType: types.SellPut, UnderlyingTicker: "AAPL"}}
	f.dashboard = &types.DashboardSummary{}
	s := NewSession(f, quietLogger())
	require.NoError(t, s.Refresh(context.Background()))

	tr, ok := s.FindTrade(42)
	assert.True(t, ok)
	assert.Equal(t, "AAPL", tr.UnderlyingTicker)
	_, ok = s.FindTrade(7)
	assert.False(t, ok)
}
