package main

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/wheeltrack/wheel/pkg/wheel/api"
	"github.com/wheeltrack/wheel/pkg/wheel/derive"
	"github.com/wheeltrack/wheel/pkg/wheel/filter"
	"github.com/wheeltrack/wheel/pkg/wheel/forms"
	"github.com/wheeltrack/wheel/pkg/wheel/importer"
	"github.com/wheeltrack/wheel/pkg/wheel/quotes"
	"github.com/wheeltrack/wheel/pkg/wheel/render"
	"github.com/wheeltrack/wheel/pkg/wheel/types"
	"github.com/wheeltrack/wheel/pkg/wheel/view"
)

const defaultAPIURL = "http://localhost:8000"

// app wires the session and render options shared by all subcommands.
type app struct {
	client  *api.Client
	session *view.Session

	color       bool
	maxColWidth int
	filterExpr  string
	withQuotes  bool
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	a := &app{}

	root := &cobra.Command{
		Use:           "wheel",
		Short:         "Track options wheel trades against the wheel tracker backend",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.setup(cmd)
		},
	}

	root.PersistentFlags().String("api-url", defaultAPIURL, "backend base URL")
	root.PersistentFlags().Duration("timeout", 15*time.Second, "request timeout")
	root.PersistentFlags().String("log-level", "warn", "log level (debug|info|warn|error)")
	root.PersistentFlags().BoolVar(&a.color, "color", true, "colorize table rows by trade outcome")
	root.PersistentFlags().IntVar(&a.maxColWidth, "max-col-width", 0, "max table column width (0 = auto)")

	root.AddCommand(
		newListCmd(a),
		newDashboardCmd(a),
		newNewCmd(a),
		newCloseCmd(a),
		newAssignCmd(a),
		newRollCmd(a),
		newEditCmd(a),
		newExpireCmd(a),
		newImportCmd(a),
		newExportCmd(a),
	)
	return root
}

func (a *app) setup(cmd *cobra.Command) error {
	viper.SetEnvPrefix("wheel")
	viper.AutomaticEnv()
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	for _, key := range []string{"api-url", "timeout", "log-level"} {
		if err := viper.BindPFlag(key, cmd.Root().PersistentFlags().Lookup(key)); err != nil {
			return err
		}
	}
	// Optional ~/.wheel.yaml; flags and env win over it.
	viper.SetConfigName(".wheel")
	viper.SetConfigType("yaml")
	if home, err := os.UserHomeDir(); err == nil {
		viper.AddConfigPath(home)
	}
	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return fmt.Errorf("read config: %w", err)
		}
	}

	setupLogging(viper.GetString("log-level"))

	client, err := api.NewClient(viper.GetString("api-url"), viper.GetDuration("timeout"))
	if err != nil {
		return err
	}
	a.client = client
	a.session = view.NewSession(client, slog.Default())
	return nil
}

func setupLogging(level string) {
	var lv slog.Level
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug":
		lv = slog.LevelDebug
	case "info":
		lv = slog.LevelInfo
	case "error":
		lv = slog.LevelError
	default:
		lv = slog.LevelWarn
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: lv})))
}

func (a *app) renderOptions() (render.Options, error) {
	opts := render.Options{
		Color:       a.color,
		MaxColWidth: a.maxColWidth,
	}
	if opts.MaxColWidth <= 0 {
		// Narrow terminals get tighter columns; go-pretty wraps the rest.
		opts.MaxColWidth = 40
		if w := detectTerminalWidth(); w > 0 && w < 120 {
			opts.MaxColWidth = 16
		}
	}
	if a.filterExpr != "" {
		f, err := filter.Parse(a.filterExpr)
		if err != nil {
			return opts, fmt.Errorf("parse filter: %w", err)
		}
		opts.Filter = f
	}
	if a.withQuotes {
		opts.Quotes = quotes.NewCacheService(quotes.NewYFService(5*time.Second), time.Minute, 128)
	}
	return opts, nil
}

// refreshAndRender is the post-mutation discipline: one full refresh, then
// the tables and dashboard from the fresh snapshot.
func (a *app) refreshAndRender(cmd *cobra.Command) error {
	if err := a.session.Refresh(cmd.Context()); err != nil {
		return err
	}
	return a.renderSnapshot(cmd)
}

func (a *app) renderSnapshot(cmd *cobra.Command) error {
	opts, err := a.renderOptions()
	if err != nil {
		return err
	}
	return render.NewTableRenderer().Render(cmd.OutOrStdout(), a.session.Snapshot(), opts)
}

func parseTradeID(arg string) (int64, error) {
	id, err := strconv.ParseInt(strings.TrimSpace(arg), 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid trade id %q", arg)
	}
	return id, nil
}

// requireAction refreshes, locates the trade and verifies the action is
// available for its status and leg type.
func (a *app) requireAction(cmd *cobra.Command, arg string, action derive.Action) (int64, error) {
	id, err := parseTradeID(arg)
	if err != nil {
		return 0, err
	}
	if err := a.session.Refresh(cmd.Context()); err != nil {
		return 0, err
	}
	t, ok := a.session.FindTrade(id)
	if !ok {
		return 0, fmt.Errorf("trade %d not found", id)
	}
	if !derive.Allows(t, action) {
		return 0, fmt.Errorf("%s not available for %s trade %d in status %s",
			action, t.TradeType, t.ID, t.Status)
	}
	return id, nil
}

func newListCmd(a *app) *cobra.Command {
	var format string
	var pretty bool

	cmd := &cobra.Command{
		Use:   "list",
		Short: "Fetch and render the trade tables and dashboard",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.session.Refresh(cmd.Context()); err != nil {
				return err
			}
			opts, err := a.renderOptions()
			if err != nil {
				return err
			}
			opts.PrettyJSON = pretty
			var r render.Renderer
			switch format {
			case "table":
				r = render.NewTableRenderer()
			case "json":
				r = render.NewJSONRenderer()
			case "yaml":
				r = render.NewYAMLRenderer()
			default:
				return fmt.Errorf("unknown format %q", format)
			}
			return r.Render(cmd.OutOrStdout(), a.session.Snapshot(), opts)
		},
	}
	cmd.Flags().StringVarP(&format, "format", "f", "table", "output format (table|json|yaml)")
	cmd.Flags().BoolVar(&pretty, "pretty", false, "indent JSON output")
	cmd.Flags().StringVar(&a.filterExpr, "filter", "", "restrict rows by ticker (exact set, glob, /regex/ or substring)")
	cmd.Flags().BoolVar(&a.withQuotes, "quotes", false, "add live price/chg% columns")
	return cmd
}

func newDashboardCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "dashboard",
		Short: "Render the dashboard metrics",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.session.Refresh(cmd.Context()); err != nil {
				return err
			}
			opts, err := a.renderOptions()
			if err != nil {
				return err
			}
			snap := a.session.Snapshot()
			snap.SellPuts, snap.SellCalls = nil, nil
			return render.NewTableRenderer().Render(cmd.OutOrStdout(), snap, opts)
		},
	}
}

func newNewCmd(a *app) *cobra.Command {
	form := forms.NewTradeForm()
	var tradeType string

	cmd := &cobra.Command{
		Use:   "new",
		Short: "Open a new trade",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if cmd.Flags().Changed("type") {
				form.TradeType = typeFromFlag(tradeType)
			}
			payload, err := form.Payload()
			if err != nil {
				return err
			}
			if err := a.session.Create(cmd.Context(), payload); err != nil {
				return err
			}
			form.Reset()
			fmt.Fprintf(cmd.OutOrStdout(), "Created %s %s %s @ %s\n\n",
				payload.UnderlyingTicker, payload.TradeType,
				payload.ExpirationDate, payload.StrikePrice.StringFixed(2))
			return a.renderSnapshot(cmd)
		},
	}
	cmd.Flags().StringVar(&form.UnderlyingTicker, "ticker", "", "underlying ticker (required)")
	cmd.Flags().StringVar(&tradeType, "type", "put", "leg type (put|call)")
	cmd.Flags().StringVar(&form.StrikePrice, "strike", "", "strike price (required)")
	cmd.Flags().StringVar(&form.PremiumReceived, "premium", "", "premium received per share (required)")
	cmd.Flags().StringVar(&form.NumberOfContracts, "contracts", "", "number of contracts (required)")
	cmd.Flags().StringVar(&form.TransactionDate, "date", form.TransactionDate, "transaction date (YYYY-MM-DD)")
	cmd.Flags().StringVar(&form.ExpirationDate, "expiration", "", "expiration date (YYYY-MM-DD, required)")
	cmd.Flags().StringVar(&form.Fees, "fees", form.Fees, "opening fees")
	_ = cmd.MarkFlagRequired("ticker")
	_ = cmd.MarkFlagRequired("strike")
	_ = cmd.MarkFlagRequired("premium")
	_ = cmd.MarkFlagRequired("contracts")
	_ = cmd.MarkFlagRequired("expiration")
	return cmd
}

func typeFromFlag(s string) types.TradeType {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "call", "sell call":
		return types.SellCall
	default:
		return types.SellPut
	}
}

func newCloseCmd(a *app) *cobra.Command {
	var form forms.CloseForm

	cmd := &cobra.Command{
		Use:   "close <id>",
		Short: "Buy back an open put",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := a.requireAction(cmd, args[0], derive.ActionClose)
			if err != nil {
				return err
			}
			payload, err := form.Payload()
			if err != nil {
				return err
			}
			if err := a.session.Close(cmd.Context(), id, payload); err != nil {
				return err
			}
			return a.renderSnapshot(cmd)
		},
	}
	cmd.Flags().StringVar(&form.BuyBackPrice, "price", "", "buy-back price per share (required)")
	cmd.Flags().StringVar(&form.ClosingFees, "fees", "", "closing fees (default 0.66)")
	cmd.Flags().StringVar(&form.BuyBackDate, "date", "", "close date (default today)")
	_ = cmd.MarkFlagRequired("price")
	return cmd
}

func newAssignCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "assign <id>",
		Short: "Mark an open put as assigned",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := a.requireAction(cmd, args[0], derive.ActionAssign)
			if err != nil {
				return err
			}
			if err := a.session.Assign(cmd.Context(), id); err != nil {
				return err
			}
			return a.renderSnapshot(cmd)
		},
	}
}

func newRollCmd(a *app) *cobra.Command {
	var form forms.RollForm

	cmd := &cobra.Command{
		Use:   "roll <id>",
		Short: "Close the current leg and open a replacement",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := a.requireAction(cmd, args[0], derive.ActionRoll)
			if err != nil {
				return err
			}
			payload, err := form.Payload()
			if err != nil {
				return err
			}
			if err := a.session.Roll(cmd.Context(), id, payload); err != nil {
				return err
			}
			return a.renderSnapshot(cmd)
		},
	}
	cmd.Flags().StringVar(&form.NewExpirationDate, "expiration", "", "new expiration date (required)")
	cmd.Flags().StringVar(&form.StrikePrice, "strike", "", "new strike price (required)")
	cmd.Flags().StringVar(&form.PremiumReceived, "premium", "", "new premium received (required)")
	cmd.Flags().StringVar(&form.Fees, "fees", "", "new leg fees (default 0.66)")
	cmd.Flags().StringVar(&form.ClosingFees, "closing-fees", "", "closing fees for the old leg (default 0.66)")
	cmd.Flags().StringVar(&form.RollDate, "date", "", "roll date (default today)")
	_ = cmd.MarkFlagRequired("expiration")
	_ = cmd.MarkFlagRequired("strike")
	_ = cmd.MarkFlagRequired("premium")
	return cmd
}

func newEditCmd(a *app) *cobra.Command {
	var ticker, tradeType, strike, premium, contracts, txDate, expDate, fees string

	cmd := &cobra.Command{
		Use:   "edit <id>",
		Short: "Edit a trade record and submit the whole record back",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := a.requireAction(cmd, args[0], derive.ActionEdit)
			if err != nil {
				return err
			}
			t, _ := a.session.FindTrade(id)
			buf := forms.NewEditBuffer(t)

			set := []struct {
				flag  string
				value string
				apply func(string) error
			}{
				{"ticker", ticker, buf.SetTicker},
				{"type", tradeType, buf.SetTradeType},
				{"strike", strike, buf.SetStrike},
				{"premium", premium, buf.SetPremium},
				{"contracts", contracts, buf.SetContracts},
				{"date", txDate, buf.SetTransactionDate},
				{"expiration", expDate, buf.SetExpirationDate},
				{"fees", fees, buf.SetFees},
			}
			changed := false
			for _, s := range set {
				if !cmd.Flags().Changed(s.flag) {
					continue
				}
				if err := s.apply(s.value); err != nil {
					return err
				}
				changed = true
			}
			if !changed {
				return fmt.Errorf("nothing to edit: pass at least one field flag")
			}
			if err := a.session.Update(cmd.Context(), id, buf.Record()); err != nil {
				return err
			}
			return a.renderSnapshot(cmd)
		},
	}
	cmd.Flags().StringVar(&ticker, "ticker", "", "underlying ticker")
	cmd.Flags().StringVar(&tradeType, "type", "", `trade type ("Sell Put"|"Sell Call")`)
	cmd.Flags().StringVar(&strike, "strike", "", "strike price")
	cmd.Flags().StringVar(&premium, "premium", "", "premium received")
	cmd.Flags().StringVar(&contracts, "contracts", "", "number of contracts")
	cmd.Flags().StringVar(&txDate, "date", "", "transaction date")
	cmd.Flags().StringVar(&expDate, "expiration", "", "expiration date")
	cmd.Flags().StringVar(&fees, "fees", "", "opening fees")
	return cmd
}

func newExpireCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "expire <id>",
		Short: "Mark an open call as expired worthless",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := a.requireAction(cmd, args[0], derive.ActionExpire)
			if err != nil {
				return err
			}
			if err := a.session.Expire(cmd.Context(), id); err != nil {
				return err
			}
			return a.renderSnapshot(cmd)
		},
	}
}

func newImportCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "import <file.csv>",
		Short: "Replay a broker transaction-history CSV against the backend",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := os.Open(args[0])
			if err != nil {
				return err
			}
			defer f.Close()

			imp := importer.New(a.client, slog.Default())
			results, err := imp.Run(cmd.Context(), f)
			if err != nil {
				return err
			}
			failed := 0
			for _, r := range results {
				if r.Err != nil {
					failed++
					fmt.Fprintf(cmd.OutOrStdout(), "line %d: %s: ERROR: %v\n", r.Line, r.Action, r.Err)
					continue
				}
				fmt.Fprintf(cmd.OutOrStdout(), "line %d: %s: %s\n", r.Line, r.Action, r.Detail)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%d transactions processed, %d failed, %d still open\n\n",
				len(results), failed, len(imp.OpenTrades()))
			return a.refreshAndRender(cmd)
		},
	}
}

func newExportCmd(a *app) *cobra.Command {
	var format string
	var pretty bool

	cmd := &cobra.Command{
		Use:   "export",
		Short: "Dump the full snapshot as JSON or YAML",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.session.Refresh(cmd.Context()); err != nil {
				return err
			}
			opts, err := a.renderOptions()
			if err != nil {
				return err
			}
			opts.PrettyJSON = pretty
			var r render.Renderer
			switch format {
			case "json":
				r = render.NewJSONRenderer()
			case "yaml":
				r = render.NewYAMLRenderer()
			default:
				return fmt.Errorf("unknown format %q", format)
			}
			return r.Render(cmd.OutOrStdout(), a.session.Snapshot(), opts)
		},
	}
	cmd.Flags().StringVarP(&format, "format", "f", "yaml", "output format (json|yaml)")
	cmd.Flags().BoolVar(&pretty, "pretty", true, "indent JSON output")
	return cmd
}
