package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/shopspring/decimal"
	"github.com/urfave/cli/v3"
	"go.uber.org/zap"

	"github.com/breeze-labs/breeze/internal/api"
	"github.com/breeze-labs/breeze/internal/backtest"
	"github.com/breeze-labs/breeze/internal/config"
	"github.com/breeze-labs/breeze/internal/engine"
	"github.com/breeze-labs/breeze/internal/executor"
	"github.com/breeze-labs/breeze/internal/feed"
	"github.com/breeze-labs/breeze/internal/jobs"
	"github.com/breeze-labs/breeze/internal/ledger"
	"github.com/breeze-labs/breeze/internal/logger"
	"github.com/breeze-labs/breeze/internal/market"
	"github.com/breeze-labs/breeze/internal/notifier"
	"github.com/breeze-labs/breeze/internal/types"
	"github.com/breeze-labs/breeze/internal/wallet"
	"github.com/breeze-labs/breeze/pkg/errors"
	"github.com/breeze-labs/breeze/pkg/strategy/examples"
)

func runAction(ctx context.Context, cmd *cli.Command) error {
	cfg, err := config.Load(cmd.String("config"))
	if err != nil {
		return err
	}

	log, err := logger.NewLogger()
	if err != nil {
		return fmt.Errorf("failed to create logger: %w", err)
	}
	defer func() {
		_ = log.Sync()
	}()

	store, err := ledger.NewStore(cfg.LedgerPath, log)
	if err != nil {
		return err
	}

	marketClient := market.NewClient(cfg.APIHost)
	stream := feed.NewClient(cfg.FeedHost, log)

	var channels []notifier.Notifier
	if cfg.SlackWebhookURL != "" {
		channels = append(channels, notifier.NewSlackNotifier(cfg.SlackWebhookURL))
	}

	paper := cmd.Bool("paper")

	var engineWallet *wallet.Wallet

	if cfg.CanSubmitOrders {
		// Orders execute against the paper adapter and a simulated
		// wallet; a chain-backed execution adapter plugs in behind the
		// same interface.
		if !paper {
			return errors.New(errors.ErrCodeInvalidProviderConfig, "this build submits orders in paper mode only; pass --paper or disable can_submit_orders")
		}

		engineWallet = wallet.NewSimulated(map[string]int64{
			types.LovelaceID: cfg.BacktestWalletLovelace(),
		}, log)
	}

	eng := engine.New(cfg, log, engine.Dependencies{
		Wallet:  engineWallet,
		Adapter: executor.NewSimAdapter(),
		Stream:  stream,
		Ledger:  store,
		Market:  marketClient,
		Notify:  notifier.NewService(log, channels...),
	})

	tradeLovelace := cmd.Int("trade-ada") * 1_000000
	slippage := decimal.RequireFromString(cmd.String("slippage"))

	for _, pool := range cmd.StringSlice("pool") {
		def := examples.NewTrendFollow("trend-"+pool, examples.TrendFollowConfig{
			PoolIdentifier:  pool,
			TradeLovelace:   tradeLovelace,
			SlippagePercent: slippage,
		})
		def.CancelAfter = 30 * time.Minute

		if err := eng.RegisterStrategy(def); err != nil {
			return err
		}
	}

	runCtx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := eng.Boot(runCtx); err != nil {
		return err
	}

	replays := backtest.NewEngine(
		marketClient,
		store,
		eng.StrategyByID,
		map[string]int64{types.LovelaceID: cfg.BacktestWalletLovelace()},
		log,
	)

	server := api.NewServer(eng, replays, log)
	server.Start(cfg.APIPort)

	var sweep *jobs.AutoCancelSweep
	if cfg.CanSubmitOrders && cfg.SweepIntervalSeconds > 0 {
		sweep = jobs.NewAutoCancelSweep(
			time.Duration(cfg.SweepIntervalSeconds)*time.Second,
			store,
			marketClient,
			eng,
			eng.StrategyByID,
			log,
		)
		sweep.Start(runCtx)
	}

	<-runCtx.Done()

	log.Info("Shutdown signal received", zap.String("app", cfg.AppName))

	server.Stop(context.Background())

	if sweep != nil {
		sweep.Stop()
	}

	eng.Shutdown(context.Background())

	return nil
}

func main() {
	cmd := &cli.Command{
		Name:  "breeze",
		Usage: "DEX strategy execution engine",
		Commands: []*cli.Command{
			{
				Name:   "run",
				Usage:  "Run the trading engine",
				Action: runAction,
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:     "config",
						Aliases:  []string{"c"},
						Usage:    "Path to the engine YAML config",
						Required: true,
					},
					&cli.StringSliceFlag{
						Name:  "pool",
						Usage: "Liquidity pool identifier to trade (repeatable)",
					},
					&cli.IntFlag{
						Name:  "trade-ada",
						Usage: "Spend per trend entry, in whole ADA",
						Value: 50,
					},
					&cli.StringFlag{
						Name:  "slippage",
						Usage: "Slippage tolerance percent for orders",
						Value: "0.5",
					},
					&cli.BoolFlag{
						Name:  "paper",
						Usage: "Execute orders against the paper adapter instead of the chain",
					},
				},
			},
		},
	}

	if err := cmd.Run(context.Background(), os.Args); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
