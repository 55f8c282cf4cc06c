// Package types defines the wire-level records served by the wheel tracker
// backend. The client treats every record as an immutable snapshot; nothing
// here is mutated after decoding.
package types

import (
	"fmt"

	"github.com/shopspring/decimal"
)

func init() {
	// The backend speaks plain JSON numbers for monetary fields.
	decimal.MarshalJSONWithoutQuotes = true
}

// TradeType distinguishes the two legs of the wheel.
type TradeType string

const (
	SellPut  TradeType = "Sell Put"
	SellCall TradeType = "Sell Call"
)

// Valid reports whether t is one of the two known trade types.
func (t TradeType) Valid() bool { return t == SellPut || t == SellCall }

// TradeStatus is the lifecycle state of a trade.
type TradeStatus string

const (
	StatusOpen     TradeStatus = "Open"
	StatusClosed   TradeStatus = "Closed"
	StatusExpired  TradeStatus = "Expired"
	StatusRolled   TradeStatus = "Rolled"
	StatusAssigned TradeStatus = "Assigned"
)

// Trade is a single short-option position as the backend reports it.
type Trade struct {
	ID                 int64            `json:"id" yaml:"id"`
	UnderlyingTicker   string           `json:"underlying_ticker" yaml:"underlying_ticker"`
	TradeType          TradeType        `json:"trade_type" yaml:"trade_type"`
	StrikePrice        decimal.Decimal  `json:"strike_price" yaml:"strike_price"`
	PremiumReceived    decimal.Decimal  `json:"premium_received" yaml:"premium_received"`
	NumberOfContracts  int              `json:"number_of_contracts" yaml:"number_of_contracts"`
	TransactionDate    Date             `json:"transaction_date" yaml:"transaction_date"`
	ExpirationDate     Date             `json:"expiration_date" yaml:"expiration_date"`
	Status             TradeStatus      `json:"status" yaml:"status"`
	Fees               decimal.Decimal  `json:"fees" yaml:"fees"`
	NetPremiumReceived *decimal.Decimal `json:"net_premium_received" yaml:"net_premium_received,omitempty"`
	BuyBackPrice       *decimal.Decimal `json:"buy_back_price,omitempty" yaml:"buy_back_price,omitempty"`
	BuyBackDate        *Date            `json:"buy_back_date,omitempty" yaml:"buy_back_date,omitempty"`
	ClosingFees        decimal.Decimal  `json:"closing_fees" yaml:"closing_fees"`
	Assigned           bool             `json:"assigned" yaml:"assigned"`
	RolledFromID       *int64           `json:"rolled_from_id,omitempty" yaml:"rolled_from_id,omitempty"`
}

// Terminal reports whether the trade has left the Open state.
func (t Trade) Terminal() bool { return t.Status != StatusOpen }

// CheckInvariant verifies status = Open iff net_premium_received is unset.
// The backend owns the invariant; the client only refuses to render records
// that violate it silently.
func (t Trade) CheckInvariant() error {
	if t.Status == StatusOpen && t.NetPremiumReceived != nil {
		return fmt.Errorf("trade %d: open trade carries net_premium_received", t.ID)
	}
	if t.Terminal() && t.NetPremiumReceived == nil {
		return fmt.Errorf("trade %d: %s trade missing net_premium_received", t.ID, t.Status)
	}
	return nil
}

// CostBasis is the backend-computed position snapshot for one ticker.
type CostBasis struct {
	OriginalCostBasis      decimal.Decimal `json:"original_cost_basis" yaml:"original_cost_basis"`
	CumulativePremium      decimal.Decimal `json:"cumulative_premium" yaml:"cumulative_premium"`
	CumulativeFeesPerShare decimal.Decimal `json:"cumulative_fees_per_share" yaml:"cumulative_fees_per_share"`
}

// Adjusted returns original − cumulative premium + cumulative fees per share,
// at full precision.
func (c CostBasis) Adjusted() decimal.Decimal {
	return c.OriginalCostBasis.Sub(c.CumulativePremium).Add(c.CumulativeFeesPerShare)
}

// CumulativePnl is the realized P&L snapshot for one ticker.
type CumulativePnl struct {
	CumulativePnl decimal.Decimal `json:"cumulative_pnl" yaml:"cumulative_pnl"`
}

// DashboardSummary is the backend aggregate. Every field may be absent.
type DashboardSummary struct {
	TotalPremiumCollected *decimal.Decimal `json:"total_premium_collected" yaml:"total_premium_collected"`
	TotalNetPremium       *decimal.Decimal `json:"total_net_premium" yaml:"total_net_premium"`
	WinRate               *decimal.Decimal `json:"win_rate" yaml:"win_rate"`
}
