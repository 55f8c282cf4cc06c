package render

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
	"github.com/shopspring/decimal"

	"github.com/wheeltrack/wheel/pkg/wheel/derive"
	"github.com/wheeltrack/wheel/pkg/wheel/types"
	"github.com/wheeltrack/wheel/pkg/wheel/view"
)

// TableRenderer renders the dashboard line plus the two trade tables.
type TableRenderer struct{}

func NewTableRenderer() *TableRenderer { return &TableRenderer{} }

func (r *TableRenderer) Render(w io.Writer, snap view.Snapshot, opts Options) error {
	today := opts.Today
	if today.IsZero() {
		today = types.Today()
	}

	renderDashboard(w, snap.Dashboard, opts)
	fmt.Fprintln(w)

	fmt.Fprintln(w, text.Bold.Sprint("SELL PUTS"))
	r.renderPuts(w, keepRows(snap.SellPuts, opts), today, opts)
	fmt.Fprintln(w)

	fmt.Fprintln(w, text.Bold.Sprint("SELL CALLS"))
	r.renderCalls(w, keepRows(snap.SellCalls, opts), snap, opts)
	return nil
}

func keepRows(trades []types.Trade, opts Options) []types.Trade {
	if opts.Filter == nil {
		return trades
	}
	out := make([]types.Trade, 0, len(trades))
	for _, t := range trades {
		if opts.Filter.Match(t.UnderlyingTicker) {
			out = append(out, t)
		}
	}
	return out
}

func newTableWriter(w io.Writer) table.Writer {
	tw := table.NewWriter()
	tw.SetOutputMirror(w)
	tw.SetStyle(table.StyleColoredDark)
	tw.Style().Options.DrawBorder = false
	tw.Style().Options.SeparateRows = false
	tw.Style().Options.SeparateColumns = false
	return tw
}

func setHeader(tw table.Writer, cols []string, opts Options) {
	hdr := make(table.Row, len(cols))
	for i, c := range cols {
		hdr[i] = strings.ToUpper(c)
	}
	tw.AppendHeader(hdr)

	maxWidth := opts.MaxColWidth
	if maxWidth <= 0 {
		maxWidth = 40
	}
	cfgs := make([]table.ColumnConfig, 0, len(cols))
	for i := range cols {
		cfgs = append(cfgs, table.ColumnConfig{Number: i + 1, WidthMax: maxWidth})
	}
	tw.SetColumnConfigs(cfgs)
}

func (r *TableRenderer) renderPuts(w io.Writer, puts []types.Trade, today types.Date, opts Options) {
	cols := []string{"id", "ticker", "expiration", "strike", "premium", "contracts", "trade date", "status", "net premium", "days held"}
	cols = appendQuoteCols(cols, opts)
	cols = append(cols, "actions")

	tw := newTableWriter(w)
	setHeader(tw, cols, opts)
	for _, t := range puts {
		row := table.Row{
			t.ID,
			t.UnderlyingTicker,
			t.ExpirationDate.String(),
			t.StrikePrice.StringFixed(2),
			t.PremiumReceived.StringFixed(2),
			t.NumberOfContracts,
			t.TransactionDate.String(),
			string(t.Status),
			netPremium(t),
			derive.DaysHeld(t, today),
		}
		row = appendQuoteCells(row, t.UnderlyingTicker, opts)
		row = append(row, actionsCell(t))
		tw.AppendRow(tint(row, t, opts))
	}
	tw.Render()
}

func (r *TableRenderer) renderCalls(w io.Writer, calls []types.Trade, snap view.Snapshot, opts Options) {
	cols := []string{"id", "ticker", "expiration", "strike", "premium", "contracts", "trade date", "status", "orig basis", "adj basis", "net premium", "cum p&l"}
	cols = appendQuoteCols(cols, opts)
	cols = append(cols, "actions")

	tw := newTableWriter(w)
	setHeader(tw, cols, opts)
	for _, t := range calls {
		origBasis, adjBasis := Unavailable, Unavailable
		if cb, ok := derive.LookupCostBasis(snap.CostBasis, t.UnderlyingTicker); ok {
			origBasis = cb.OriginalCostBasis.StringFixed(2)
			adjBasis = cb.Adjusted().StringFixed(2)
		}
		cumPnl := Unavailable
		if p, ok := derive.LookupCumulativePnl(snap.CumulativePnl, t.UnderlyingTicker); ok {
			cumPnl = p.StringFixed(2)
		}
		row := table.Row{
			t.ID,
			t.UnderlyingTicker,
			t.ExpirationDate.String(),
			t.StrikePrice.StringFixed(2),
			t.PremiumReceived.StringFixed(2),
			t.NumberOfContracts,
			t.TransactionDate.String(),
			string(t.Status),
			origBasis,
			adjBasis,
			netPremium(t),
			cumPnl,
		}
		row = appendQuoteCells(row, t.UnderlyingTicker, opts)
		row = append(row, actionsCell(t))
		tw.AppendRow(tint(row, t, opts))
	}
	tw.Render()
}

func netPremium(t types.Trade) string {
	if t.NetPremiumReceived == nil {
		return ""
	}
	return t.NetPremiumReceived.StringFixed(2)
}

func actionsCell(t types.Trade) string {
	acts := derive.Actions(t)
	parts := make([]string, 0, len(acts))
	for _, a := range acts {
		parts = append(parts, string(a))
	}
	return strings.Join(parts, ",")
}

func rowColors(c derive.RowClass) text.Colors {
	switch c {
	case derive.ClassProfit:
		return text.Colors{text.FgGreen}
	case derive.ClassLoss:
		return text.Colors{text.FgRed}
	case derive.ClassInfo:
		return text.Colors{text.FgCyan}
	case derive.ClassWarning:
		return text.Colors{text.FgYellow}
	default:
		return nil
	}
}

// tint colors every cell of the row by the trade's class.
func tint(row table.Row, t types.Trade, opts Options) table.Row {
	if !opts.Color {
		return row
	}
	colors := rowColors(derive.Classify(t))
	if colors == nil {
		return row
	}
	out := make(table.Row, len(row))
	for i, cell := range row {
		out[i] = colors.Sprintf("%v", cell)
	}
	return out
}

func appendQuoteCols(cols []string, opts Options) []string {
	if opts.Quotes == nil {
		return cols
	}
	return append(cols, "price", "chg%")
}

func appendQuoteCells(row table.Row, ticker string, opts Options) table.Row {
	if opts.Quotes == nil {
		return row
	}
	q, err := opts.Quotes.Get(context.Background(), ticker)
	if err != nil {
		return append(row, "", "")
	}
	price, chg := q.Price, q.ChgFmt
	if opts.Color {
		if q.ChgRaw > 0 {
			price = text.Colors{text.FgGreen}.Sprint(price)
			chg = text.Colors{text.FgGreen}.Sprint(chg)
		} else if q.ChgRaw < 0 {
			price = text.Colors{text.FgRed}.Sprint(price)
			chg = text.Colors{text.FgRed}.Sprint(chg)
		}
	}
	return append(row, price, chg)
}

func renderDashboard(w io.Writer, d *types.DashboardSummary, opts Options) {
	premium := metricOrZero(nil)
	net := metricOrZero(nil)
	winRate := metricOrZero(nil)
	netNegative := false
	if d != nil {
		premium = metricOrZero(d.TotalPremiumCollected)
		net = metricOrZero(d.TotalNetPremium)
		winRate = metricOrZero(d.WinRate)
		netNegative = d.TotalNetPremium != nil && d.TotalNetPremium.IsNegative()
	}
	netDisplay := "$" + net
	if opts.Color {
		if netNegative {
			netDisplay = text.Colors{text.FgRed}.Sprint(netDisplay)
		} else {
			netDisplay = text.Colors{text.FgGreen}.Sprint(netDisplay)
		}
	}
	fmt.Fprintln(w, text.Bold.Sprint("DASHBOARD"))
	fmt.Fprintf(w, "Total Premium Collected: $%s  Total Net Premium: %s  Win Rate: %s%%\n",
		premium, netDisplay, winRate)
}

func metricOrZero(d *decimal.Decimal) string {
	if d == nil {
		return "0.00"
	}
	return d.StringFixed(2)
}
