// Package forms is the typed boundary between textual user input and the API
// payloads. Every numeric and date field is parsed and rejected here; nothing
// is passed through to the backend as a raw string.
package forms

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/wheeltrack/wheel/pkg/wheel/api"
	"github.com/wheeltrack/wheel/pkg/wheel/types"
)

// DefaultFees is the per-contract commission the broker charges; every fees
// field defaults to it.
var DefaultFees = decimal.RequireFromString("0.66")

func parseRequiredDecimal(field, s string) (decimal.Decimal, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return decimal.Decimal{}, fmt.Errorf("%s is required", field)
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Decimal{}, fmt.Errorf("%s: not a number: %q", field, s)
	}
	return d, nil
}

func parseDecimalDefault(field, s string, def decimal.Decimal) (decimal.Decimal, error) {
	if strings.TrimSpace(s) == "" {
		return def, nil
	}
	return parseRequiredDecimal(field, s)
}

func parseRequiredDate(field, s string) (types.Date, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return types.Date{}, fmt.Errorf("%s is required", field)
	}
	d, err := types.ParseDate(s)
	if err != nil {
		return types.Date{}, fmt.Errorf("%s: %w", field, err)
	}
	return d, nil
}

func parseDateDefaultToday(field, s string) (types.Date, error) {
	if strings.TrimSpace(s) == "" {
		return types.Today(), nil
	}
	return parseRequiredDate(field, s)
}

func parseTradeType(s string) (types.TradeType, error) {
	tt := types.TradeType(strings.TrimSpace(s))
	if !tt.Valid() {
		return "", fmt.Errorf("trade type must be %q or %q, got %q", types.SellPut, types.SellCall, s)
	}
	return tt, nil
}

// TradeForm collects a fresh trade. Zero-valued string fields are either
// required (rejected on Payload) or defaulted.
type TradeForm struct {
	UnderlyingTicker  string
	TradeType         types.TradeType
	StrikePrice       string
	PremiumReceived   string
	NumberOfContracts string
	TransactionDate   string
	ExpirationDate    string
	Fees              string
}

// NewTradeForm returns a form at its documented defaults: type Sell Put,
// fees 0.66, transaction date today, everything else empty.
func NewTradeForm() TradeForm {
	return TradeForm{
		TradeType:       types.SellPut,
		TransactionDate: types.Today().String(),
		Fees:            DefaultFees.String(),
	}
}

// Reset restores the defaults after a successful submission.
func (f *TradeForm) Reset() {
	*f = NewTradeForm()
}

// Payload validates the form and produces the create request.
func (f TradeForm) Payload() (api.CreateTradePayload, error) {
	var p api.CreateTradePayload

	ticker := strings.ToUpper(strings.TrimSpace(f.UnderlyingTicker))
	if ticker == "" {
		return p, fmt.Errorf("ticker is required")
	}
	tt, err := parseTradeType(string(f.TradeType))
	if err != nil {
		return p, err
	}
	strike, err := parseRequiredDecimal("strike price", f.StrikePrice)
	if err != nil {
		return p, err
	}
	premium, err := parseRequiredDecimal("premium received", f.PremiumReceived)
	if err != nil {
		return p, err
	}
	qty := strings.TrimSpace(f.NumberOfContracts)
	if qty == "" {
		return p, fmt.Errorf("number of contracts is required")
	}
	contracts, err := strconv.Atoi(qty)
	if err != nil || contracts <= 0 {
		return p, fmt.Errorf("number of contracts must be a positive integer, got %q", qty)
	}
	txDate, err := parseDateDefaultToday("transaction date", f.TransactionDate)
	if err != nil {
		return p, err
	}
	expDate, err := parseRequiredDate("expiration date", f.ExpirationDate)
	if err != nil {
		return p, err
	}
	fees, err := parseDecimalDefault("fees", f.Fees, DefaultFees)
	if err != nil {
		return p, err
	}

	return api.CreateTradePayload{
		UnderlyingTicker:  ticker,
		TradeType:         tt,
		StrikePrice:       strike,
		PremiumReceived:   premium,
		NumberOfContracts: contracts,
		TransactionDate:   txDate,
		ExpirationDate:    expDate,
		Fees:              fees,
	}, nil
}

// CloseForm collects the close-trade triple.
type CloseForm struct {
	BuyBackPrice string
	ClosingFees  string
	BuyBackDate  string
}

// Payload validates the form; buy-back price is the only required field,
// fees default to 0.66 and the date to today.
func (f CloseForm) Payload() (api.ClosePayload, error) {
	var p api.ClosePayload

	price, err := parseRequiredDecimal("buy back price", f.BuyBackPrice)
	if err != nil {
		return p, err
	}
	fees, err := parseDecimalDefault("closing fees", f.ClosingFees, DefaultFees)
	if err != nil {
		return p, err
	}
	date, err := parseDateDefaultToday("close date", f.BuyBackDate)
	if err != nil {
		return p, err
	}
	return api.ClosePayload{BuyBackPrice: price, ClosingFees: fees, BuyBackDate: date}, nil
}

// RollForm collects both legs of a roll.
type RollForm struct {
	NewExpirationDate string
	StrikePrice       string
	PremiumReceived   string
	Fees              string
	ClosingFees       string
	RollDate          string
}

// Payload validates the form; the new expiration, strike and premium are
// required, both fees default to 0.66 and the roll date to today.
func (f RollForm) Payload() (api.RollPayload, error) {
	var p api.RollPayload

	exp, err := parseRequiredDate("new expiration date", f.NewExpirationDate)
	if err != nil {
		return p, err
	}
	strike, err := parseRequiredDecimal("new strike price", f.StrikePrice)
	if err != nil {
		return p, err
	}
	premium, err := parseRequiredDecimal("new premium received", f.PremiumReceived)
	if err != nil {
		return p, err
	}
	fees, err := parseDecimalDefault("new fees", f.Fees, DefaultFees)
	if err != nil {
		return p, err
	}
	closingFees, err := parseDecimalDefault("closing fees", f.ClosingFees, DefaultFees)
	if err != nil {
		return p, err
	}
	rollDate, err := parseDateDefaultToday("roll date", f.RollDate)
	if err != nil {
		return p, err
	}
	return api.RollPayload{
		NewExpirationDate: exp,
		StrikePrice:       strike,
		PremiumReceived:   premium,
		Fees:              fees,
		ClosingFees:       closingFees,
		RollDate:          rollDate,
	}, nil
}
