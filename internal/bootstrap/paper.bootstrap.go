package bootstrap

import (
	"context"
	"net/url"
	"time"

	"github.com/krobus00/backtest-service/internal/config"
	"github.com/krobus00/backtest-service/internal/constant"
	"github.com/krobus00/backtest-service/internal/entity"
	"github.com/krobus00/backtest-service/internal/infrastructure"
	"github.com/krobus00/backtest-service/internal/service/events"
	"github.com/krobus00/backtest-service/internal/service/ledger"
	"github.com/krobus00/backtest-service/internal/service/paperbroker"
	"github.com/krobus00/backtest-service/internal/service/strategy"
	"github.com/krobus00/backtest-service/internal/util"
	"github.com/nats-io/nats.go"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

// StartPaperTrade runs the paper broker against a live websocket kline
// feed. One message is processed at a time, so broker ticks stay
// serialized.
func StartPaperTrade(cmd *cobra.Command, args []string) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	cfg := config.Env.Paper
	util.ContinueOrFatal(cfg.Validate())

	broker := paperbroker.NewBroker(paperbroker.Config{
		StartingCash:  cfg.StartingCash,
		Latency:       cfg.Latency,
		SlippagePct:   cfg.SlippagePct,
		MaxQtyPerFill: cfg.MaxQtyPerFill,
	})

	var snapshotStore *ledger.RedisSnapshotStore
	if cfg.SnapshotKey != "" {
		var err error
		snapshotStore, err = ledger.NewRedisSnapshotStore(config.Env.Redis["paper"].CacheDSN)
		util.ContinueOrFatal(err)

		snapshot, found, err := snapshotStore.Load(ctx, cfg.SnapshotKey)
		util.ContinueOrFatal(err)
		if found {
			broker.Ledger().RestoreSnapshot(snapshot)
			logrus.WithFields(logrus.Fields{
				"snapshotKey": cfg.SnapshotKey,
				"cash":        snapshot.Cash,
				"positions":   len(snapshot.Positions),
				"capturedAt":  snapshot.CapturedAt,
			}).Info("paper ledger restored from redis")
		}
	}

	var nc *nats.Conn
	var fillPublisher *events.FillPublisher
	if cfg.PublishFills {
		var js nats.JetStreamContext
		var err error
		nc, js, err = infrastructure.NewJetstream()
		util.ContinueOrFatal(err)

		fillPublisher = events.NewFillPublisher(js)
		util.ContinueOrFatal(fillPublisher.JetstreamEventInit(ctx))
	}

	registry := strategy.NewRegistry()
	strategies := make([]strategy.Strategy, 0, len(cfg.Strategies))
	for _, name := range cfg.Strategies {
		strat, err := registry.Create(name)
		util.ContinueOrFatal(err)
		strategies = append(strategies, strat)
	}

	lotSize := cfg.LotSize
	if lotSize <= 0 {
		lotSize = constant.DefaultLotSize
	}

	history := entity.Series{Symbol: cfg.Symbol}

	onTick := func(tick klineTick) {
		history = history.Append(entity.Bar{
			Time:  tick.Time,
			High:  tick.High,
			Low:   tick.Low,
			Close: tick.Close,
		})

		for _, strat := range strategies {
			signals := strat.GenerateSignals(history)
			for symbol, signal := range signals {
				if signal.Side == entity.SideHold {
					continue
				}

				order, err := entity.NewOrder(entity.OrderParams{
					Symbol:    symbol,
					Side:      signal.Side,
					Type:      entity.OrderTypeMarket,
					Quantity:  lotSize,
					CreatedAt: tick.Time,
				})
				if err != nil {
					logrus.WithFields(logrus.Fields{
						"strategy": strat.Name(),
						"symbol":   symbol,
					}).Warnf("order rejected: %v", err)
					continue
				}
				broker.SubmitOrder(order, tick.Time)
			}
		}

		fills := broker.OnPriceTick(cfg.Symbol, tick.Time, tick.Close, tick.High, tick.Low, cfg.Commission)
		for _, fill := range fills {
			logrus.WithFields(logrus.Fields{
				"symbol": fill.Symbol,
				"side":   fill.Side,
				"qty":    fill.Quantity,
				"price":  fill.Price,
			}).Info("paper fill")

			if fillPublisher != nil {
				if err := fillPublisher.Publish(fill); err != nil {
					logrus.Errorf("publish fill: %v", err)
				}
			}
		}

		if snapshotStore != nil {
			snapshot := broker.Ledger().Snapshot(tick.Time)
			if err := snapshotStore.Save(ctx, cfg.SnapshotKey, snapshot); err != nil {
				logrus.Errorf("save ledger snapshot: %v", err)
			}
		}
	}

	feedURL, err := url.Parse(cfg.FeedURL)
	util.ContinueOrFatal(err)

	go func() {
		_, err := runWS(ctx, *feedURL, nil, func(ctx context.Context, message []byte) error {
			tick, ok := parseClosedKline(message)
			if !ok {
				return nil
			}
			onTick(tick)
			return nil
		})
		if err != nil {
			logrus.Errorf("kline feed stopped: %v", err)
		}
	}()

	wait := gracefulShutdown(ctx, config.Env.GracefulShutdownTimeout, map[string]operation{
		"paper session": func(ctx context.Context) error {
			cancel()

			equityCurve, fills, err := broker.Results()
			if err != nil {
				return err
			}
			logrus.WithFields(logrus.Fields{
				"samples": len(equityCurve),
				"fills":   len(fills),
				"equity":  equityCurve[len(equityCurve)-1].Equity,
			}).Info("paper session summary")
			return nil
		},
		"redis cache": func(ctx context.Context) error {
			if snapshotStore == nil {
				return nil
			}
			snapshot := broker.Ledger().Snapshot(time.Now().UTC())
			if err := snapshotStore.Save(context.Background(), cfg.SnapshotKey, snapshot); err != nil {
				return err
			}
			return snapshotStore.Close()
		},
		"nats connection": func(ctx context.Context) error {
			return infrastructure.CloseJetstream(nc)
		},
	})

	<-wait
}
