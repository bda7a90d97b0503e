package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"backcast/internal/backtest"
	"backcast/internal/config"
	"backcast/internal/marketdata"
	"backcast/internal/params"
	"backcast/internal/regime"
	"backcast/internal/report"
	"backcast/internal/store"
	"backcast/internal/strategy/builtins"
	"backcast/internal/util"
)

// app holds the shared dependencies wired up before any subcommand runs.
type app struct {
	cfg  *config.Config
	log  *slog.Logger
	bars *store.ParquetStore
	db   *store.SQLiteStore
}

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	a := &app{}
	var cfgPath string

	root := &cobra.Command{
		Use:           "backcast",
		Short:         "Signal backtesting and parameter sensitivity analysis for leveraged ETFs",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			// .env is optional; real env vars always win.
			_ = godotenv.Load()

			cfg, err := config.LoadOrDefault(cfgPath)
			if err != nil {
				return fmt.Errorf("loading config: %w", err)
			}
			a.cfg = cfg
			a.log = util.NewLogger(cfg.Logging.Level, cfg.Logging.Format)
			util.SetDefault(a.log)

			a.bars = store.NewParquetStore(cfg.Storage.DataDir)
			a.db, err = store.NewSQLiteStore(cfg.Storage.SQLitePath)
			if err != nil {
				return fmt.Errorf("opening database: %w", err)
			}
			return nil
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			if a.db != nil {
				a.db.Close()
			}
		},
	}

	root.PersistentFlags().StringVar(&cfgPath, "config", "config/backcast.yaml", "path to config file")

	root.AddCommand(
		newFetchCmd(a),
		newBacktestCmd(a),
		newSweepCmd(a),
		newRegimeCmd(a),
		newParamsCmd(a),
	)
	return root
}

// ---------------------------------------------------------------------------
// fetch
// ---------------------------------------------------------------------------

func newFetchCmd(a *app) *cobra.Command {
	var startStr, endStr, providerName string

	cmd := &cobra.Command{
		Use:   "fetch",
		Short: "Fetch daily bars from a market-data provider into local storage",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			start, end, err := parseDateRange(startStr, endStr, 365)
			if err != nil {
				return err
			}

			provider, err := a.provider(providerName)
			if err != nil {
				return err
			}

			bars, err := provider.DailyBars(ctx, a.cfg.Symbol, start, end)
			if err != nil {
				return fmt.Errorf("fetching %s: %w", a.cfg.Symbol, err)
			}
			if len(bars) == 0 {
				return fmt.Errorf("provider %s returned no bars for %s", provider.Name(), a.cfg.Symbol)
			}

			if err := a.bars.WriteBars(ctx, bars); err != nil {
				return fmt.Errorf("storing bars: %w", err)
			}

			a.log.Info("fetch complete",
				"symbol", a.cfg.Symbol,
				"provider", provider.Name(),
				"bars", len(bars),
				"first", bars[0].Date.Format("2006-01-02"),
				"last", bars[len(bars)-1].Date.Format("2006-01-02"),
			)
			return a.db.LogEvent(ctx, "fetch", "daily bars stored", map[string]any{
				"symbol":   a.cfg.Symbol,
				"provider": provider.Name(),
				"bars":     len(bars),
			})
		},
	}

	cmd.Flags().StringVar(&startStr, "start", "", "start date (YYYY-MM-DD, default one year back)")
	cmd.Flags().StringVar(&endStr, "end", "", "end date (YYYY-MM-DD, default today)")
	cmd.Flags().StringVar(&providerName, "provider", "", "data provider: alpaca or yahoo (default: alpaca when credentials are set)")
	return cmd
}

// provider selects the market-data provider: an explicit name wins, otherwise
// Alpaca when credentials are configured, Yahoo as the keyless fallback.
func (a *app) provider(name string) (marketdata.Provider, error) {
	switch name {
	case "alpaca":
		if a.cfg.Alpaca.APIKey == "" || a.cfg.Alpaca.APISecret == "" {
			return nil, fmt.Errorf("alpaca provider requires APCA_API_KEY_ID and APCA_API_SECRET_KEY")
		}
		return marketdata.NewAlpacaProvider(a.cfg.Alpaca.APIKey, a.cfg.Alpaca.APISecret, a.cfg.Alpaca.DataURL), nil
	case "yahoo":
		return marketdata.NewYahooProvider(), nil
	case "":
		if a.cfg.Alpaca.APIKey != "" && a.cfg.Alpaca.APISecret != "" {
			return marketdata.NewAlpacaProvider(a.cfg.Alpaca.APIKey, a.cfg.Alpaca.APISecret, a.cfg.Alpaca.DataURL), nil
		}
		return marketdata.NewYahooProvider(), nil
	default:
		return nil, fmt.Errorf("unknown provider %q", name)
	}
}

// ---------------------------------------------------------------------------
// backtest
// ---------------------------------------------------------------------------

func newBacktestCmd(a *app) *cobra.Command {
	var startStr, endStr, strategyName string

	cmd := &cobra.Command{
		Use:   "backtest",
		Short: "Replay stored bars through a signal strategy",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			start, end, err := parseDateRange(startStr, endStr, 365)
			if err != nil {
				return err
			}

			bars, err := a.bars.ReadBars(ctx, a.cfg.Symbol, start, end)
			if err != nil {
				return fmt.Errorf("reading bars: %w", err)
			}
			if len(bars) == 0 {
				return fmt.Errorf("no stored bars for %s in range; run fetch first", a.cfg.Symbol)
			}

			set := params.NewSet(a.cfg.Storage.ParamsPath, a.log)
			engine := a.engine(ctx, start, end)

			rule, err := buildRule(strategyName, set)
			if err != nil {
				return err
			}

			res := engine.Run(bars, rule, strategyName)
			fmt.Println(report.Backtest(res))

			return a.db.LogEvent(ctx, "backtest", "backtest complete", map[string]any{
				"symbol":     a.cfg.Symbol,
				"strategy":   res.StrategyID,
				"trades":     res.Metrics.TotalTrades,
				"return_pct": res.Metrics.TotalReturnPct,
			})
		},
	}

	cmd.Flags().StringVar(&startStr, "start", "", "start date (YYYY-MM-DD, default one year back)")
	cmd.Flags().StringVar(&endStr, "end", "", "end date (YYYY-MM-DD, default today)")
	cmd.Flags().StringVar(&strategyName, "strategy", "combined", "strategy to run (combined, mean_reversion, calendar_effect, intraday_bounce, trend_following)")
	return cmd
}

// buildRule resolves a strategy name into an executable rule. The combined
// chain and the bounce rule are built from the current parameter set; the
// remaining names come from the registry with their defaults.
func buildRule(name string, set *params.Set) (backtest.Rule, error) {
	switch name {
	case "", "combined":
		chain := builtins.NewConfiguredChain(
			set.Float("mr_threshold"),
			set.Bool("mean_reversion_enabled"),
			set.Bool("calendar_effect_enabled"),
			set.Enum("signal_priority") == params.PriorityCalendarFirst,
			builtins.DefaultCalendarWeekday,
		)
		return chain.Generate, nil
	case "intraday_bounce":
		return backtest.BounceRule(set.Float("bounce_threshold")), nil
	default:
		g, ok := builtins.DefaultRegistry().Get(name)
		if !ok {
			return nil, fmt.Errorf("unknown strategy %q", name)
		}
		return g.Generate, nil
	}
}

// engine builds the simulation engine from configuration, with the Alpaca
// trading calendar when credentials are present and plain weekdays otherwise.
func (a *app) engine(ctx context.Context, start, end time.Time) *backtest.Engine {
	isTradingDay := util.Weekdays
	if a.cfg.Alpaca.APIKey != "" && a.cfg.Alpaca.APISecret != "" {
		holidays, err := util.AlpacaHolidays(a.cfg.Alpaca.APIKey, a.cfg.Alpaca.APISecret, a.cfg.Alpaca.BaseURL, start, end)
		if err != nil {
			a.log.Warn("falling back to weekday calendar", "error", err)
		} else {
			isTradingDay = util.WithHolidays(util.Weekdays, holidays)
		}
	}

	return &backtest.Engine{
		InitialCapital:  a.cfg.Backtest.InitialCapital,
		Commission:      a.cfg.Backtest.Commission,
		SlippagePct:     a.cfg.Backtest.SlippagePct,
		PositionSizePct: a.cfg.Backtest.PositionSizePct,
		IsTradingDay:    isTradingDay,
		Log:             a.log,
		OnAnomaly: func(metric, actual, expected string) {
			a.log.Warn("data anomaly", "metric", metric, "actual", actual, "expected", expected)
			_ = a.db.LogEvent(ctx, "anomaly", "backtest anomaly detected", map[string]any{
				"metric":   metric,
				"actual":   actual,
				"expected": expected,
			})
		},
	}
}

// ---------------------------------------------------------------------------
// sweep
// ---------------------------------------------------------------------------

func newSweepCmd(a *app) *cobra.Command {
	var startStr, endStr string

	cmd := &cobra.Command{
		Use:   "sweep",
		Short: "Run the parameter sensitivity sweep and store the review",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			start, end, err := parseDateRange(startStr, endStr, 365)
			if err != nil {
				return err
			}

			bars, err := a.bars.ReadBars(ctx, a.cfg.Symbol, start, end)
			if err != nil {
				return fmt.Errorf("reading bars: %w", err)
			}
			if len(bars) == 0 {
				return fmt.Errorf("no stored bars for %s in range; run fetch first", a.cfg.Symbol)
			}

			set := params.NewSet(a.cfg.Storage.ParamsPath, a.log)
			sw := &backtest.Sweep{
				Engine:          a.engine(ctx, start, end),
				MaxWorkers:      a.cfg.Sweep.MaxWorkers,
				CalendarWeekday: builtins.DefaultCalendarWeekday,
				Log:             a.log,
			}

			out := sw.Run(bars, set)
			rendered := report.Sweep(out)
			fmt.Println(rendered)

			best := out.Rows[0]
			for _, r := range out.Rows {
				if r.ReturnPct > best.ReturnPct {
					best = r
				}
			}
			summary := fmt.Sprintf("%d variants for %s over %d bars; best %s at %+.2f%%; regime %s",
				len(out.Rows), a.cfg.Symbol, len(bars), best.Name, best.ReturnPct, out.Regime.Regime)

			id, err := a.db.SaveReview(ctx, store.Review{
				Summary: summary,
				Report:  rendered,
				Regime:  out.Regime,
			})
			if err != nil {
				return fmt.Errorf("saving review: %w", err)
			}
			a.log.Info("review saved", "id", id, "summary", summary)
			return nil
		},
	}

	cmd.Flags().StringVar(&startStr, "start", "", "start date (YYYY-MM-DD, default one year back)")
	cmd.Flags().StringVar(&endStr, "end", "", "end date (YYYY-MM-DD, default today)")
	return cmd
}

// ---------------------------------------------------------------------------
// regime
// ---------------------------------------------------------------------------

func newRegimeCmd(a *app) *cobra.Command {
	var days int

	cmd := &cobra.Command{
		Use:   "regime",
		Short: "Classify the recent market regime from stored bars",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			end := time.Now().UTC()
			start := end.AddDate(0, 0, -days)

			bars, err := a.bars.ReadBars(ctx, a.cfg.Symbol, start, end)
			if err != nil {
				return fmt.Errorf("reading bars: %w", err)
			}

			fmt.Println(report.Regime(regime.Classify(bars)))
			return nil
		},
	}

	cmd.Flags().IntVar(&days, "days", 120, "calendar days of history to classify")
	return cmd
}

// ---------------------------------------------------------------------------
// params
// ---------------------------------------------------------------------------

func newParamsCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "params",
		Short: "Inspect and change strategy parameters",
	}
	cmd.AddCommand(newParamsShowCmd(a), newParamsApplyCmd(a))
	return cmd
}

func newParamsShowCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Show current parameter values",
		RunE: func(cmd *cobra.Command, args []string) error {
			set := params.NewSet(a.cfg.Storage.ParamsPath, a.log)
			fmt.Println(report.Params(set.Snapshot(), params.Order))
			return nil
		},
	}
}

func newParamsApplyCmd(a *app) *cobra.Command {
	var reason, confidence string

	cmd := &cobra.Command{
		Use:   "apply <parameter> <value>",
		Short: "Validate and apply one parameter change",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			name, raw := args[0], args[1]

			value, err := parseParamValue(name, raw)
			if err != nil {
				return err
			}

			set := params.NewSet(a.cfg.Storage.ParamsPath, a.log)
			subID, events := set.Subscribe(1)
			defer set.Unsubscribe(subID)

			if err := set.Apply(name, value, reason, confidence); err != nil {
				return err
			}

			select {
			case ev := <-events:
				if err := a.db.SaveParamChange(ctx, ev); err != nil {
					return fmt.Errorf("recording change: %w", err)
				}
			default:
			}

			fmt.Printf("%s = %v\n", name, value)
			return nil
		},
	}

	cmd.Flags().StringVar(&reason, "reason", "manual change", "why this change is being made")
	cmd.Flags().StringVar(&confidence, "confidence", "medium", "confidence in the change: low, medium, high")
	return cmd
}

// parseParamValue converts the raw CLI string by the parameter's declared
// type so that Apply sees properly typed values.
func parseParamValue(name, raw string) (any, error) {
	def, ok := params.Definitions[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", params.ErrUnknownParameter, name)
	}
	switch def.Type {
	case params.TypeFloat:
		f, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return nil, fmt.Errorf("%s expects a number: %w", name, err)
		}
		return f, nil
	case params.TypeBool:
		b, err := strconv.ParseBool(raw)
		if err != nil {
			return nil, fmt.Errorf("%s expects true or false: %w", name, err)
		}
		return b, nil
	default:
		return raw, nil
	}
}

// ---------------------------------------------------------------------------
// helpers
// ---------------------------------------------------------------------------

// parseDateRange parses optional start/end flags, defaulting to the last
// defaultSpanDays calendar days ending today.
func parseDateRange(startStr, endStr string, defaultSpanDays int) (time.Time, time.Time, error) {
	end := time.Now().UTC()
	if endStr != "" {
		var err error
		end, err = time.Parse("2006-01-02", endStr)
		if err != nil {
			return time.Time{}, time.Time{}, fmt.Errorf("invalid end date %q: %w", endStr, err)
		}
	}

	start := end.AddDate(0, 0, -defaultSpanDays)
	if startStr != "" {
		var err error
		start, err = time.Parse("2006-01-02", startStr)
		if err != nil {
			return time.Time{}, time.Time{}, fmt.Errorf("invalid start date %q: %w", startStr, err)
		}
	}

	if end.Before(start) {
		return time.Time{}, time.Time{}, fmt.Errorf("end date %s precedes start date %s",
			end.Format("2006-01-02"), start.Format("2006-01-02"))
	}
	return start, end, nil
}
