// Package importer replays a broker transaction-history CSV against the
// backend: sells-to-open become trades, buy-to-close/expired/assigned rows
// become the matching state transitions, and a buy-to-close immediately
// followed by a sell-to-open on the same underlying is collapsed into one
// roll.
package importer

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"log/slog"
	"regexp"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/wheeltrack/wheel/pkg/wheel/api"
	"github.com/wheeltrack/wheel/pkg/wheel/types"
)

// Backend is the mutation slice of the API client the importer drives.
type Backend interface {
	CreateTrade(ctx context.Context, payload api.CreateTradePayload) (*types.Trade, error)
	CloseTrade(ctx context.Context, id int64, payload api.ClosePayload) (*types.Trade, error)
	AssignTrade(ctx context.Context, id int64) (*types.Trade, error)
	RollTrade(ctx context.Context, id int64, payload api.RollPayload) (*types.Trade, error)
	ExpireTrade(ctx context.Context, id int64) (*types.Trade, error)
}

// Option symbols come as "CRWV 11/07/2025 143.00 C".
var optionSymbolRe = regexp.MustCompile(`([A-Z]+)\s+([\d\/]+)\s+([\d\.]+)\s+(C|P)`)

type leg struct {
	ticker     string
	strike     decimal.Decimal
	expiration types.Date
	tradeType  types.TradeType
}

// key normalizes the strike so "143" and "143.00" land on the same open trade.
func (l leg) key() string {
	return fmt.Sprintf("%s|%s|%s|%s", l.ticker, l.strike.String(), l.expiration, l.tradeType)
}

type row struct {
	line     int
	date     string
	action   string
	symbol   string
	price    string
	quantity string
	fees     string
}

// Result reports the outcome of one processed transaction.
type Result struct {
	Line   int
	Action string
	Detail string
	Err    error
}

// Importer replays transactions oldest-first and tracks open trades by leg.
type Importer struct {
	backend Backend
	log     *slog.Logger

	open map[string]int64
}

func New(backend Backend, log *slog.Logger) *Importer {
	if log == nil {
		log = slog.Default()
	}
	return &Importer{backend: backend, log: log, open: map[string]int64{}}
}

// Run reads the CSV (newest-first, as brokers export it) and replays it
// oldest-first. Per-row failures are reported, not fatal; only a malformed
// file aborts.
func (imp *Importer) Run(ctx context.Context, r io.Reader) ([]Result, error) {
	rows, err := readRows(r)
	if err != nil {
		return nil, err
	}
	// Oldest transaction first.
	for i, j := 0, len(rows)-1; i < j; i, j = i+1, j-1 {
		rows[i], rows[j] = rows[j], rows[i]
	}

	var results []Result
	for i := 0; i < len(rows); i++ {
		rw := rows[i]
		switch rw.action {
		case "Sell to Open", "Buy to Close", "Expired", "Assigned":
		default:
			imp.log.Debug("row ignored", "line", rw.line, "action", rw.action)
			continue
		}

		l, ok := parseOptionSymbol(rw.symbol)
		if !ok {
			results = append(results, Result{Line: rw.line, Action: rw.action,
				Detail: "skipped: not an option symbol"})
			continue
		}

		// A buy-to-close directly followed by a sell-to-open on the same
		// ticker is one roll transaction.
		if rw.action == "Buy to Close" && i+1 < len(rows) && rows[i+1].action == "Sell to Open" {
			if next, ok := parseOptionSymbol(rows[i+1].symbol); ok && next.ticker == l.ticker {
				res := imp.roll(ctx, rw, rows[i+1], l, next)
				results = append(results, res)
				i++
				continue
			}
		}

		results = append(results, imp.apply(ctx, rw, l))
	}
	return results, nil
}

// OpenTrades returns the legs still open after a run, for reporting.
func (imp *Importer) OpenTrades() map[string]int64 {
	out := make(map[string]int64, len(imp.open))
	for k, v := range imp.open {
		out[k] = v
	}
	return out
}

func (imp *Importer) apply(ctx context.Context, rw row, l leg) Result {
	res := Result{Line: rw.line, Action: rw.action, Detail: l.key()}

	if rw.action == "Sell to Open" {
		price, err := parseMoney(rw.price)
		if err != nil {
			res.Err = err
			return res
		}
		fees, err := parseMoneyDefault(rw.fees)
		if err != nil {
			res.Err = err
			return res
		}
		qty, err := strconv.Atoi(strings.TrimSpace(rw.quantity))
		if err != nil || qty <= 0 {
			res.Err = fmt.Errorf("bad quantity %q", rw.quantity)
			return res
		}
		txDate, err := parseBrokerDate(rw.date)
		if err != nil {
			res.Err = err
			return res
		}
		created, err := imp.backend.CreateTrade(ctx, api.CreateTradePayload{
			UnderlyingTicker:  l.ticker,
			TradeType:         l.tradeType,
			StrikePrice:       l.strike,
			PremiumReceived:   price,
			NumberOfContracts: qty,
			TransactionDate:   txDate,
			ExpirationDate:    l.expiration,
			Fees:              fees,
		})
		if err != nil {
			res.Err = err
			return res
		}
		imp.open[l.key()] = created.ID
		return res
	}

	id, ok := imp.open[l.key()]
	if !ok {
		res.Err = fmt.Errorf("no open trade for %s", l.key())
		return res
	}

	switch rw.action {
	case "Buy to Close":
		price, err := parseMoney(rw.price)
		if err != nil {
			res.Err = err
			return res
		}
		fees, err := parseMoneyDefault(rw.fees)
		if err != nil {
			res.Err = err
			return res
		}
		date, err := parseBrokerDate(rw.date)
		if err != nil {
			res.Err = err
			return res
		}
		_, err = imp.backend.CloseTrade(ctx, id, api.ClosePayload{
			BuyBackPrice: price, ClosingFees: fees, BuyBackDate: date,
		})
		res.Err = err
	case "Expired":
		_, res.Err = imp.backend.ExpireTrade(ctx, id)
	case "Assigned":
		_, res.Err = imp.backend.AssignTrade(ctx, id)
	}
	// Assignment keeps the underlying position; the option leg itself is done
	// either way, so drop the key unless the call failed.
	if res.Err == nil {
		delete(imp.open, l.key())
	}
	return res
}

func (imp *Importer) roll(ctx context.Context, closeRow, openRow row, oldLeg, newLeg leg) Result {
	res := Result{Line: closeRow.line, Action: "Roll",
		Detail: fmt.Sprintf("%s -> %s", oldLeg.key(), newLeg.key())}

	id, ok := imp.open[oldLeg.key()]
	if !ok {
		res.Err = fmt.Errorf("no open trade to roll for %s", oldLeg.key())
		return res
	}

	premium, err := parseMoney(openRow.price)
	if err != nil {
		res.Err = err
		return res
	}
	fees, err := parseMoneyDefault(openRow.fees)
	if err != nil {
		res.Err = err
		return res
	}
	closingFees, err := parseMoneyDefault(closeRow.fees)
	if err != nil {
		res.Err = err
		return res
	}
	rollDate, err := parseBrokerDate(closeRow.date)
	if err != nil {
		res.Err = err
		return res
	}

	created, err := imp.backend.RollTrade(ctx, id, api.RollPayload{
		NewExpirationDate: newLeg.expiration,
		StrikePrice:       newLeg.strike,
		PremiumReceived:   premium,
		Fees:              fees,
		ClosingFees:       closingFees,
		RollDate:          rollDate,
	})
	if err != nil {
		res.Err = err
		return res
	}
	delete(imp.open, oldLeg.key())
	imp.open[newLeg.key()] = created.ID
	return res
}

func readRows(r io.Reader) ([]row, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	records, err := cr.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("read csv: %w", err)
	}
	if len(records) == 0 {
		return nil, fmt.Errorf("empty csv")
	}
	col := map[string]int{}
	for i, name := range records[0] {
		col[strings.TrimSpace(name)] = i
	}
	for _, required := range []string{"Date", "Action", "Symbol", "Price", "Quantity"} {
		if _, ok := col[required]; !ok {
			return nil, fmt.Errorf("csv missing %q column", required)
		}
	}
	field := func(rec []string, name string) string {
		idx, ok := col[name]
		if !ok || idx >= len(rec) {
			return ""
		}
		return strings.TrimSpace(rec[idx])
	}
	rows := make([]row, 0, len(records)-1)
	for i, rec := range records[1:] {
		rows = append(rows, row{
			line:     i + 2,
			date:     field(rec, "Date"),
			action:   field(rec, "Action"),
			symbol:   field(rec, "Symbol"),
			price:    field(rec, "Price"),
			quantity: field(rec, "Quantity"),
			fees:     field(rec, "Fees & Comm"),
		})
	}
	return rows, nil
}

func parseOptionSymbol(symbol string) (leg, bool) {
	m := optionSymbolRe.FindStringSubmatch(symbol)
	if m == nil {
		return leg{}, false
	}
	strike, err := decimal.NewFromString(m[3])
	if err != nil {
		return leg{}, false
	}
	expiration, err := parseBrokerDate(m[2])
	if err != nil {
		return leg{}, false
	}
	tradeType := types.SellPut
	if m[4] == "C" {
		tradeType = types.SellCall
	}
	return leg{ticker: m[1], strike: strike, expiration: expiration, tradeType: tradeType}, true
}

// parseBrokerDate handles "MM/DD/YYYY", with an optional "as of" clause on
// settlement rows.
func parseBrokerDate(s string) (types.Date, error) {
	if idx := strings.Index(s, " as of "); idx >= 0 {
		s = s[idx+len(" as of "):]
	}
	parts := strings.Split(strings.TrimSpace(s), "/")
	if len(parts) != 3 {
		return types.Date{}, fmt.Errorf("bad broker date %q", s)
	}
	month, err1 := strconv.Atoi(parts[0])
	day, err2 := strconv.Atoi(parts[1])
	year, err3 := strconv.Atoi(parts[2])
	if err1 != nil || err2 != nil || err3 != nil {
		return types.Date{}, fmt.Errorf("bad broker date %q", s)
	}
	return types.ParseDate(fmt.Sprintf("%04d-%02d-%02d", year, month, day))
}

func parseMoney(s string) (decimal.Decimal, error) {
	s = strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(s), "$"))
	if s == "" {
		return decimal.Decimal{}, fmt.Errorf("missing amount")
	}
	d, err := decimal.NewFromString(strings.ReplaceAll(s, ",", ""))
	if err != nil {
		return decimal.Decimal{}, fmt.Errorf("bad amount %q", s)
	}
	return d, nil
}

func parseMoneyDefault(s string) (decimal.Decimal, error) {
	if strings.TrimSpace(s) == "" {
		return decimal.Zero, nil
	}
	return parseMoney(s)
}
