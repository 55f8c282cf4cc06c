package forms

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/wheeltrack/wheel/pkg/wheel/types"
)

// EditBuffer is the short-lived mutable copy behind the edit surface. It is
// seeded from a trade snapshot, takes free-form field overrides, and yields
// the whole record for an update-by-id request. It is discarded or submitted,
// never merged back into view state.
type EditBuffer struct {
	seededFrom int64
	trade      types.Trade
}

// NewEditBuffer seeds a buffer from a trade snapshot.
func NewEditBuffer(t types.Trade) *EditBuffer {
	return &EditBuffer{seededFrom: t.ID, trade: t}
}

// Sync re-seeds the buffer when the selected trade has changed, discarding
// pending edits. Same id keeps the buffer as-is.
func (b *EditBuffer) Sync(selected types.Trade) {
	if selected.ID == b.seededFrom {
		return
	}
	b.seededFrom = selected.ID
	b.trade = selected
}

// Record returns the edited copy for submission.
func (b *EditBuffer) Record() types.Trade { return b.trade }

// SetTicker overrides the underlying ticker.
func (b *EditBuffer) SetTicker(s string) error {
	s = strings.ToUpper(strings.TrimSpace(s))
	if s == "" {
		return fmt.Errorf("ticker is required")
	}
	b.trade.UnderlyingTicker = s
	return nil
}

// SetTradeType overrides the trade type.
func (b *EditBuffer) SetTradeType(s string) error {
	tt, err := parseTradeType(s)
	if err != nil {
		return err
	}
	b.trade.TradeType = tt
	return nil
}

// SetStrike overrides the strike price.
func (b *EditBuffer) SetStrike(s string) error {
	d, err := parseRequiredDecimal("strike price", s)
	if err != nil {
		return err
	}
	b.trade.StrikePrice = d
	return nil
}

// SetPremium overrides the premium received.
func (b *EditBuffer) SetPremium(s string) error {
	d, err := parseRequiredDecimal("premium received", s)
	if err != nil {
		return err
	}
	b.trade.PremiumReceived = d
	return nil
}

// SetContracts overrides the contract count.
func (b *EditBuffer) SetContracts(s string) error {
	n, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil || n <= 0 {
		return fmt.Errorf("number of contracts must be a positive integer, got %q", s)
	}
	b.trade.NumberOfContracts = n
	return nil
}

// SetTransactionDate overrides the transaction date.
func (b *EditBuffer) SetTransactionDate(s string) error {
	d, err := parseRequiredDate("transaction date", s)
	if err != nil {
		return err
	}
	b.trade.TransactionDate = d
	return nil
}

// SetExpirationDate overrides the expiration date.
func (b *EditBuffer) SetExpirationDate(s string) error {
	d, err := parseRequiredDate("expiration date", s)
	if err != nil {
		return err
	}
	b.trade.ExpirationDate = d
	return nil
}

// SetFees overrides the opening fees.
func (b *EditBuffer) SetFees(s string) error {
	d, err := parseRequiredDecimal("fees", s)
	if err != nil {
		return err
	}
	b.trade.Fees = d
	return nil
}
