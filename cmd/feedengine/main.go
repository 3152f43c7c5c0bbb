// Command feedengine is the process entrypoint wiring the full feed and
// quoting pipeline (C1-C9) for one instrument on one venue: connection
// manager, venue adapter, book synchronizer, quoting engine, market
// maker and quoters, plus the ambient diagnostics HTTP surface and
// graceful shutdown.
package main

import (
	"context"
	"errors"
	"flag"
	"net/http"
	"os"
	"strings"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/time/rate"

	"github.com/BullionBear/sequex/internal/config"
	"github.com/BullionBear/sequex/internal/feed/adapter"
	"github.com/BullionBear/sequex/internal/feed/book"
	"github.com/BullionBear/sequex/internal/feed/conn"
	"github.com/BullionBear/sequex/internal/feed/core"
	"github.com/BullionBear/sequex/internal/feed/sink"
	"github.com/BullionBear/sequex/internal/feed/store"
	"github.com/BullionBear/sequex/internal/quoting/engine"
	"github.com/BullionBear/sequex/internal/quoting/maker"
	"github.com/BullionBear/sequex/internal/quoting/quoter"
	"github.com/BullionBear/sequex/pkg/log"
	"github.com/BullionBear/sequex/pkg/logger"
	"github.com/BullionBear/sequex/pkg/shutdown"

	"github.com/nats-io/nats.go"
)

func main() {
	configPath := flag.String("config", "config.json", "path to feedengine config JSON")
	flag.Parse()

	cfg, err := config.LoadFeedEngineConfig(*configPath)
	if err != nil {
		zerolog.New(os.Stderr).With().Timestamp().Logger().Fatal().Err(err).Msg("load config")
	}

	zl := zerolog.New(os.Stdout).With().Timestamp().Str("exchange", cfg.Exchange).Str("symbol", cfg.Symbol).Logger()
	lg := logger.NewFacade(zl)

	down := shutdown.NewShutdown(lg)
	ctx := down.Context()

	inst, err := instrumentFromConfig(cfg.Config)
	if err != nil {
		lg.Fatal("build instrument", log.Error(err))
	}

	var repo core.InstrumentRepository
	if cfg.Postgres.DSN != "" {
		pgCache, err := store.NewPostgresInstrumentCache(cfg.Postgres.DSN, lg)
		if err != nil {
			lg.Fatal("open postgres instrument cache", log.Error(err))
		}
		refreshCtx, cancelRefresh := context.WithCancel(ctx)
		go pgCache.RunRefreshLoop(refreshCtx, time.Duration(cfg.Postgres.RefreshInterval)*time.Second)
		down.HookShutdownCallback("postgres-refresh", cancelRefresh, 5*time.Second)
		repo = pgCache
	} else {
		repo = newStaticInstrumentRepo(inst)
	}

	retryDelays := make([]time.Duration, 0, len(cfg.RetryDelaysSec))
	for _, s := range cfg.RetryDelaysSec {
		retryDelays = append(retryDelays, time.Duration(s)*time.Second)
	}
	if len(retryDelays) == 0 {
		retryDelays = []time.Duration{time.Second, 2 * time.Second, 5 * time.Second}
	}

	ad, err := adapter.New(strings.ToLower(cfg.Exchange), adapter.Config{
		RetryDelaysSec:    retryDelays,
		InactivityTimeout: time.Duration(cfg.InactivityTimeoutSec) * time.Second,
		PingTimeout:       time.Duration(cfg.PingTimeoutSec) * time.Second,
		Logger:            lg,
		Extra:             map[string]string{"apiKey": os.Getenv("FEEDENGINE_API_KEY"), "apiSecret": os.Getenv("FEEDENGINE_API_SECRET")},
	})
	if err != nil {
		lg.Fatal("build venue adapter", log.Error(err))
	}

	provider := newMidBookProvider()

	var eventSink *sink.NATSEventSink
	if cfg.NATS.URIs != "" {
		nc, err := nats.Connect(firstNATSURI(cfg.NATS))
		if err != nil {
			lg.Error("connect nats, continuing without sink", log.Error(err))
		} else {
			js, err := nc.JetStream()
			if err != nil {
				lg.Error("open jetstream context, continuing without sink", log.Error(err))
			} else {
				eventSink = sink.NewNATSEventSink(js, cfg.NATS.Subject)
			}
			down.HookShutdownCallback("nats-connection", nc.Close, 5*time.Second)
		}
	}

	dispatch := func(ev core.MarketDataEvent) {
		provider.OnMarketDataEvent(ev)
		if eventSink != nil {
			if err := eventSink.PublishMarketDataEvent(ev); err != nil {
				lg.Warn("publish market data event", log.Error(err))
			}
		}
	}

	registerVenue(ad, inst, repo, dispatch, lg)

	ad.Manager().Connect(ctx)
	down.HookShutdownCallback("adapter-disconnect", ad.Manager().Disconnect, 5*time.Second)

	if err := ad.Manager().Subscribe(ctx, []conn.Subscription{{InstrumentID: inst.InstrumentID, Topic: core.TopicDepth}}); err != nil {
		lg.Error("subscribe depth topic", log.Error(err))
	}

	limiter := rate.NewLimiter(rate.Limit(10), 10)
	gateway := quoter.NewRateLimitedGateway(newLoggingGateway(lg), limiter)

	nextOrderID := uint64(0)
	builder := func(side core.Side, price core.Price, quantity core.Quantity) quoter.NewOrder {
		nextOrderID++
		return quoter.NewOrder{
			ClientOrderID: nextOrderID,
			InstrumentID:  inst.InstrumentID,
			Side:          side,
			Price:         price,
			Quantity:      quantity,
			PostOnly:      cfg.Quoting.PostOnly,
		}
	}

	market := instrumentMarketView{provider: provider, instrumentID: inst.InstrumentID}

	bidQuoter := quoter.NewSingleOrderQuoter(quoter.SingleOrderConfig{
		InstrumentID: inst.InstrumentID,
		Side:         core.SideBuy,
		TickSize:     inst.TickSize,
		Gateway:      gateway,
		Market:       market,
		Builder:      builder,
		MinOrderSize: inst.MinOrderSize,
		Logger:       lg,
	})
	askQuoter := quoter.NewSingleOrderQuoter(quoter.SingleOrderConfig{
		InstrumentID: inst.InstrumentID,
		Side:         core.SideSell,
		TickSize:     inst.TickSize,
		Gateway:      gateway,
		Market:       market,
		Builder:      builder,
		MinOrderSize: inst.MinOrderSize,
		Logger:       lg,
	})

	validator := &pausableValidator{}
	mm := maker.NewMarketMaker(maker.Config{
		InstrumentID: inst.InstrumentID,
		Bid:          bidQuoter,
		Ask:          askQuoter,
		Validator:    validator,
		Logger:       lg,
	})
	down.HookShutdownCallback("market-maker-pause", func() { mm.Pause(context.Background()) }, 5*time.Second)

	qe := engine.NewEngine(engine.Config{
		InstrumentID: inst.InstrumentID,
		TickSize:     inst.TickSize,
		Mode:         engine.BestBook,
		Provider:     provider,
		Parameters:   parametersFromConfig(cfg.Quoting),
		Dispatch:     func(pair core.QuotePair) { mm.UpdateQuoteTargetAsync(context.Background(), pair) },
		Logger:       lg,
	})
	if err := qe.Start(engine.BestBook); err != nil {
		lg.Fatal("start quoting engine", log.Error(err))
	}
	qe.Activate()
	down.HookShutdownCallback("quoting-engine-stop", qe.Stop, 5*time.Second)

	if cfg.Diagnostics.Addr != "" {
		books := map[core.InstrumentID]*book.Synchronizer{}
		if b := lookupBinanceBook(ad, inst.InstrumentID); b != nil {
			books[inst.InstrumentID] = b
		}
		diag := newDiagnosticsServer(cfg.Diagnostics.Addr, books)
		go func() {
			if err := diag.run(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				lg.Error("diagnostics server", log.Error(err))
			}
		}()
		down.HookShutdownCallback("diagnostics-server", func() { _ = diag.close() }, 5*time.Second)
	}

	down.WaitForShutdown(os.Interrupt, syscall.SIGTERM)
}

func lookupBinanceBook(ad adapter.Adapter, instrumentID core.InstrumentID) *book.Synchronizer {
	return venueBook(ad, instrumentID)
}

func firstNATSURI(n config.NATSConfig) string {
	uris := n.GetNATSURIs()
	if len(uris) == 0 {
		return ""
	}
	return uris[0]
}

func parametersFromConfig(q config.QuotingConfig) engine.Parameters {
	var hitting engine.HittingLogic
	switch q.HittingLogic {
	case "OurBest":
		hitting = engine.OurBest
	case "Pennying":
		hitting = engine.Pennying
	default:
		hitting = engine.AllowAll
	}
	return engine.Parameters{
		BidSpreadBp:      q.BidSpreadBp,
		AskSpreadBp:      q.AskSpreadBp,
		GroupingBp:       q.GroupingBp,
		SkewBp:           q.SkewBp,
		OrderSize:        core.Quantity(q.OrderSize),
		MaxCumBidFills:   core.Quantity(q.MaxCumBidFills),
		MaxCumAskFills:   core.Quantity(q.MaxCumAskFills),
		CooldownOnFillMs: q.CooldownOnFillMs,
		HittingLogic:     hitting,
		PostOnly:         q.PostOnly,
	}
}
