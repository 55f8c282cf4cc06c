// Package view owns the in-memory page state: the trade list, the dashboard
// aggregate and the per-ticker snapshot maps. State is wholesale-replaced on
// every refresh and never patched in place; each mutating action calls the
// backend, then refreshes exactly once.
package view

import (
	"context"
	"log/slog"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/wheeltrack/wheel/pkg/wheel/api"
	"github.com/wheeltrack/wheel/pkg/wheel/derive"
	"github.com/wheeltrack/wheel/pkg/wheel/types"
)

// Backend is the slice of the API client the view consumes.
type Backend interface {
	ListTrades(ctx context.Context) ([]types.Trade, error)
	CreateTrade(ctx context.Context, payload api.CreateTradePayload) (*types.Trade, error)
	CloseTrade(ctx context.Context, id int64, payload api.ClosePayload) (*types.Trade, error)
	AssignTrade(ctx context.Context, id int64) (*types.Trade, error)
	RollTrade(ctx context.Context, id int64, payload api.RollPayload) (*types.Trade, error)
	UpdateTrade(ctx context.Context, id int64, trade types.Trade) (*types.Trade, error)
	ExpireTrade(ctx context.Context, id int64) (*types.Trade, error)
	GetCostBasis(ctx context.Context, ticker string) (*types.CostBasis, error)
	GetCumulativePnl(ctx context.Context, ticker string) (*types.CumulativePnl, error)
	GetDashboard(ctx context.Context) (*types.DashboardSummary, error)
}

// Snapshot is one render cycle's worth of server state.
type Snapshot struct {
	Trades    []types.Trade
	SellPuts  []types.Trade
	SellCalls []types.Trade

	// Keyed by underlying ticker; an absent entry means the fetch failed or
	// never happened, and rows render the unavailable sentinel.
	CostBasis     map[string]types.CostBasis
	CumulativePnl map[string]types.CumulativePnl

	// Nil when the aggregate fetch failed; the dashboard renders placeholders.
	Dashboard *types.DashboardSummary
}

// Session drives refresh cycles and mutations against one backend.
type Session struct {
	backend Backend
	log     *slog.Logger

	snapshot Snapshot
}

// NewSession builds a session. A nil logger falls back to slog.Default.
func NewSession(backend Backend, log *slog.Logger) *Session {
	if log == nil {
		log = slog.Default()
	}
	return &Session{backend: backend, log: log}
}

// Snapshot returns the state loaded by the last Refresh.
func (s *Session) Snapshot() Snapshot { return s.snapshot }

// Refresh replaces the whole snapshot from the backend. The trade-list fetch
// is load-bearing and its error propagates; the dashboard and the per-ticker
// batch degrade to placeholders on failure. Refresh returns only once every
// batch member has resolved.
func (s *Session) Refresh(ctx context.Context) error {
	trades, err := s.backend.ListTrades(ctx)
	if err != nil {
		return err
	}

	next := Snapshot{
		Trades:        trades,
		CostBasis:     make(map[string]types.CostBasis),
		CumulativePnl: make(map[string]types.CumulativePnl),
	}
	next.SellPuts, next.SellCalls = derive.Partition(trades)

	var mu sync.Mutex
	g, gctx := errgroup.WithContext(ctx)

	for _, ticker := range derive.CallTickers(trades) {
		ticker := ticker
		g.Go(func() error {
			cb, err := s.backend.GetCostBasis(gctx, ticker)
			if err != nil {
				s.log.Warn("cost basis fetch failed", "ticker", ticker, "err", err)
				return nil
			}
			mu.Lock()
			next.CostBasis[ticker] = *cb
			mu.Unlock()
			return nil
		})
		g.Go(func() error {
			p, err := s.backend.GetCumulativePnl(gctx, ticker)
			if err != nil {
				s.log.Warn("cumulative pnl fetch failed", "ticker", ticker, "err", err)
				return nil
			}
			mu.Lock()
			next.CumulativePnl[ticker] = *p
			mu.Unlock()
			return nil
		})
	}
	g.Go(func() error {
		d, err := s.backend.GetDashboard(gctx)
		if err != nil {
			s.log.Warn("dashboard fetch failed", "err", err)
			return nil
		}
		mu.Lock()
		next.Dashboard = d
		mu.Unlock()
		return nil
	})
	// Workers swallow their errors; Wait is a join point only.
	_ = g.Wait()

	s.snapshot = next
	return nil
}

// mutate runs the backend call, then refreshes once. The stale snapshot is
// kept when the mutation itself failed.
func (s *Session) mutate(ctx context.Context, call func(context.Context) error) error {
	if err := call(ctx); err != nil {
		return err
	}
	return s.Refresh(ctx)
}

// Create submits a new trade.
func (s *Session) Create(ctx context.Context, payload api.CreateTradePayload) error {
	return s.mutate(ctx, func(ctx context.Context) error {
		_, err := s.backend.CreateTrade(ctx, payload)
		return err
	})
}

// Close buys back an open trade.
func (s *Session) Close(ctx context.Context, id int64, payload api.ClosePayload) error {
	return s.mutate(ctx, func(ctx context.Context) error {
		_, err := s.backend.CloseTrade(ctx, id, payload)
		return err
	})
}

// Assign marks an open put as assigned.
func (s *Session) Assign(ctx context.Context, id int64) error {
	return s.mutate(ctx, func(ctx context.Context) error {
		_, err := s.backend.AssignTrade(ctx, id)
		return err
	})
}

// Roll replaces a leg in one backend transaction.
func (s *Session) Roll(ctx context.Context, id int64, payload api.RollPayload) error {
	return s.mutate(ctx, func(ctx context.Context) error {
		_, err := s.backend.RollTrade(ctx, id, payload)
		return err
	})
}

// Update overwrites a whole trade record.
func (s *Session) Update(ctx context.Context, id int64, trade types.Trade) error {
	return s.mutate(ctx, func(ctx context.Context) error {
		_, err := s.backend.UpdateTrade(ctx, id, trade)
		return err
	})
}

// Expire marks an open trade as expired.
func (s *Session) Expire(ctx context.Context, id int64) error {
	return s.mutate(ctx, func(ctx context.Context) error {
		_, err := s.backend.ExpireTrade(ctx, id)
		return err
	})
}

// FindTrade returns the trade with the given id from the current snapshot.
func (s *Session) FindTrade(id int64) (types.Trade, bool) {
	for _, t := range s.snapshot.Trades {
		if t.ID == id {
			return t, true
		}
	}
	return types.Trade{}, false
}
