package bootstrap

import (
	"context"
	"database/sql"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/krobus00/backtest-service/internal/config"
	"github.com/krobus00/backtest-service/internal/entity"
	"github.com/krobus00/backtest-service/internal/infrastructure"
	"github.com/krobus00/backtest-service/internal/repository"
	"github.com/krobus00/backtest-service/internal/service/backtest"
	"github.com/krobus00/backtest-service/internal/service/strategy"
	"github.com/krobus00/backtest-service/internal/util"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

// StartBacktest replays the configured symbols through the configured
// strategies and, when enabled, persists the run's equity curve and
// fills trail.
func StartBacktest(cmd *cobra.Command, args []string) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	cfg := config.Env.Backtest
	util.ContinueOrFatal(cfg.Validate())

	from, to, err := cfg.TimeRange()
	util.ContinueOrFatal(err)

	db, err := infrastructure.NewPostgresConnection(ctx, config.Env.Database["marketdata"])
	util.ContinueOrFatal(err)
	defer db.Close()

	barRepo := repository.NewMarketBarRepository(db)

	data := make(map[string]entity.Series, len(cfg.Symbols))
	for _, symbol := range cfg.Symbols {
		series, err := barRepo.GetSeries(ctx, symbol, from, to)
		util.ContinueOrFatal(err)
		if series.Len() == 0 {
			logrus.Warnf("no bars stored for %s in the requested window", symbol)
			continue
		}
		data[symbol] = series
	}

	registry := strategy.NewRegistry()
	strategies := make([]strategy.Strategy, 0, len(cfg.Strategies))
	for _, name := range cfg.Strategies {
		strat, err := registry.Create(name)
		util.ContinueOrFatal(err)
		strategies = append(strategies, strat)
	}

	engine, err := backtest.NewEngine(backtest.Config{
		Data:             data,
		Strategies:       strategies,
		StartingCash:     cfg.StartingCash,
		Commission:       cfg.Commission,
		LotSize:          cfg.LotSize,
		MaxQtyPerFill:    cfg.MaxQtyPerFill,
		ProgressInterval: cfg.ProgressInterval,
	})
	util.ContinueOrFatal(err)

	startedAt := time.Now().UTC()
	equityCurve, err := engine.Run(ctx)
	util.ContinueOrFatal(err)
	finishedAt := time.Now().UTC()

	finalEquity := cfg.StartingCash
	if len(equityCurve) > 0 {
		finalEquity = equityCurve[len(equityCurve)-1].Equity
	}

	logrus.WithFields(logrus.Fields{
		"samples":     len(equityCurve),
		"fills":       len(engine.Ledger().TradeHistory()),
		"finalEquity": finalEquity,
		"elapsed":     finishedAt.Sub(startedAt).String(),
	}).Info("backtest finished")

	if cfg.PersistResults {
		resultRepo := repository.NewBacktestResultRepository(db)
		run := &entity.BacktestRun{
			ID:           uuid.NewString(),
			Symbols:      strings.Join(cfg.Symbols, ","),
			Strategies:   strings.Join(cfg.Strategies, ","),
			StartingCash: cfg.StartingCash,
			Commission:   cfg.Commission,
			FinalEquity:  finalEquity,
			StartedAt:    startedAt,
			FinishedAt:   sql.NullTime{Time: finishedAt, Valid: true},
			CreatedAt:    time.Now().UTC(),
		}
		util.ContinueOrFatal(resultRepo.CreateRun(ctx, run))
		util.ContinueOrFatal(resultRepo.InsertEquityCurve(ctx, run.ID, equityCurve))
		util.ContinueOrFatal(resultRepo.InsertFills(ctx, run.ID, engine.Ledger().TradeHistory()))

		logrus.WithFields(logrus.Fields{
			"runId": run.ID,
		}).Info("backtest results persisted")
	}
}
