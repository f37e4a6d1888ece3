package main

import (
	"barreplay/internal/config"
	"barreplay/internal/engine"
	"barreplay/internal/logging"
	"barreplay/internal/repository"
	"barreplay/strategies/donchian"
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var version = "0.1.0"

func main() {
	rootCmd := &cobra.Command{
		Use:           "backtester",
		Short:         "Replay historical bars through a trading strategy",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	rootCmd.AddCommand(runCmd())
	rootCmd.AddCommand(versionCmd())

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "backtester version %s\n", version)
		},
	}
}

type runOptions struct {
	file       string
	valuations string
	orders     string
	progress   bool
}

func runCmd() *cobra.Command {
	var opts runOptions

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run a Donchian breakout backtest described by a run file",
		Long: `Load bars for the run file's symbols from the market data store, replay
them through the Donchian breakout strategy and print a performance report.

Example:
  backtester run --file run.yaml
  backtester run --file run.yaml --valuations out.csv --orders orders.csv --progress`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runBacktest(cmd.Context(), cmd, opts)
		},
	}

	cmd.Flags().StringVarP(&opts.file, "file", "f", "", "path to the YAML run file")
	cmd.Flags().StringVar(&opts.valuations, "valuations", "", "write the valuation series to this CSV file")
	cmd.Flags().StringVar(&opts.orders, "orders", "", "write the order list to this CSV file")
	cmd.Flags().BoolVar(&opts.progress, "progress", false, "show a progress bar while replaying")
	_ = cmd.MarkFlagRequired("file")

	return cmd
}

func runBacktest(ctx context.Context, cmd *cobra.Command, opts runOptions) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	logger, err := logging.NewLogger(cfg.App.LogLevel)
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()
	logger = logger.With(zap.String("app", cfg.App.Name), zap.String("env", cfg.App.Environment))

	run, err := config.LoadRunFile(opts.file)
	if err != nil {
		return err
	}

	db, err := repository.NewDatabase(ctx, cfg.Database.URL)
	if err != nil {
		return fmt.Errorf("connect market data store: %w", err)
	}
	defer db.Close()

	strat, err := donchian.NewStrategy(strategyParams(run.Strategy), logger.Named("donchian"))
	if err != nil {
		return err
	}

	engineOpts := []engine.Option{
		engine.WithInitialCash(run.InitialCash),
		engine.WithLogger(logger.Named("engine")),
	}
	if run.LimitOrders {
		engineOpts = append(engineOpts, engine.WithLimitOrders())
	}
	if opts.progress {
		engineOpts = append(engineOpts, engine.WithProgress(cmd.ErrOrStderr()))
	}
	eng := engine.NewEngine(engineOpts...)

	feed := engine.NewDataFeedConfig(run.Symbols, run.Interval, run.Start, run.End)
	if run.WarmupBars != nil {
		feed.WithWarmup(*run.WarmupBars)
	}

	valuations, runErr := eng.RunFeed(ctx, db, feed, strat)
	if runErr != nil {
		var inv *engine.InvariantError
		if !errors.As(runErr, &inv) || len(valuations) == 0 {
			return runErr
		}
		// keep going so the partial run can still be inspected
		logger.Error("backtest stopped early", zap.Error(runErr), zap.Int("valuations", len(valuations)))
	}

	orders := eng.Orders()
	report := engine.GenerateReport(valuations, orders, run.RiskFreeRate)
	engine.PrintReport(cmd.OutOrStdout(), report)

	if opts.valuations != "" {
		if err := engine.WriteValuationsCSVFile(opts.valuations, valuations); err != nil {
			return err
		}
	}
	if opts.orders != "" {
		if err := engine.WriteOrdersCSVFile(opts.orders, orders); err != nil {
			return err
		}
	}
	return runErr
}

func strategyParams(sc config.StrategyConfig) donchian.Params {
	params := donchian.DefaultParams()
	if sc.Lookback > 0 {
		params.Lookback = sc.Lookback
	}
	if sc.ATRPeriod > 0 {
		params.ATRPeriod = sc.ATRPeriod
	}
	if d, err := decimal.NewFromString(sc.ATRMultiplier); err == nil {
		params.ATRMultiplier = d
	}
	if d, err := decimal.NewFromString(sc.PositionPercent); err == nil {
		params.PositionPercent = d
	}
	return params
}
