// Package derive computes the display values the tracker shows next to raw
// trade records: row classification, days held, adjusted cost basis and the
// per-ticker snapshot lookups. Everything here is a pure function of its
// inputs.
package derive

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/wheeltrack/wheel/pkg/wheel/types"
)

// RowClass tags a trade row for rendering. It is never stored.
type RowClass int

const (
	ClassNone    RowClass = iota // Open
	ClassProfit                  // Closed/Expired, net premium >= 0
	ClassLoss                    // Closed/Expired, net premium < 0
	ClassInfo                    // Rolled
	ClassWarning                 // Assigned
)

// Classify maps a trade's status and net premium onto a row class.
// The profit boundary is inclusive at zero.
func Classify(t types.Trade) RowClass {
	switch t.Status {
	case types.StatusClosed, types.StatusExpired:
		if t.NetPremiumReceived != nil && t.NetPremiumReceived.IsNegative() {
			return ClassLoss
		}
		return ClassProfit
	case types.StatusRolled:
		return ClassInfo
	case types.StatusAssigned:
		return ClassWarning
	default:
		return ClassNone
	}
}

// DaysHeld returns the calendar days a put has been held: the span from the
// transaction date to the buy-back date if set, otherwise to today. Partial
// days round up.
func DaysHeld(t types.Trade, today types.Date) int {
	end := today.Time
	if t.BuyBackDate != nil && !t.BuyBackDate.IsZero() {
		end = t.BuyBackDate.Time
	}
	span := end.Sub(t.TransactionDate.Time)
	if span <= 0 {
		return 0
	}
	days := int(span / (24 * time.Hour))
	if span%(24*time.Hour) != 0 {
		days++
	}
	return days
}

// Partition splits trades into puts and calls, preserving fetch order within
// each subset.
func Partition(trades []types.Trade) (puts, calls []types.Trade) {
	for _, t := range trades {
		switch t.TradeType {
		case types.SellPut:
			puts = append(puts, t)
		case types.SellCall:
			calls = append(calls, t)
		}
	}
	return puts, calls
}

// CallTickers returns the distinct underlying tickers across call trades, in
// first-seen order. These are the tickers whose cost-basis and cumulative-P&L
// snapshots the view fetches.
func CallTickers(trades []types.Trade) []string {
	seen := map[string]struct{}{}
	var out []string
	for _, t := range trades {
		if t.TradeType != types.SellCall {
			continue
		}
		if _, ok := seen[t.UnderlyingTicker]; ok {
			continue
		}
		seen[t.UnderlyingTicker] = struct{}{}
		out = append(out, t.UnderlyingTicker)
	}
	return out
}

// LookupCostBasis finds the ticker's cost-basis snapshot. A miss is a normal
// outcome (the fetch failed or the ticker was never fetched) and the caller
// renders the unavailable sentinel.
func LookupCostBasis(m map[string]types.CostBasis, ticker string) (types.CostBasis, bool) {
	cb, ok := m[ticker]
	return cb, ok
}

// LookupCumulativePnl is the cumulative-P&L counterpart of LookupCostBasis.
func LookupCumulativePnl(m map[string]types.CumulativePnl, ticker string) (decimal.Decimal, bool) {
	p, ok := m[ticker]
	return p.CumulativePnl, ok
}
