package main

import (
	"strings"

	"github.com/BullionBear/sequex/internal/feed/adapter"
	"github.com/BullionBear/sequex/internal/feed/book"
	"github.com/BullionBear/sequex/internal/feed/core"
	"github.com/BullionBear/sequex/internal/feed/venue"
	"github.com/BullionBear/sequex/pkg/exchange/binance"
	"github.com/BullionBear/sequex/pkg/log"
)

// registerVenue performs the one piece of per-venue setup adapter.Adapter
// doesn't generalize: Binance's depth topic runs through a C6 book
// Synchronizer (snapshot fetch + gap resync), while BitMEX/Bithumb/Coinone
// publish already-normalized events straight onto the adapter's OnEvent
// source. Every path ends up calling dispatch with core.MarketDataEvent.
func registerVenue(ad adapter.Adapter, inst core.Instrument, repo core.InstrumentRepository, dispatch func(core.MarketDataEvent), lg log.Logger) {
	switch a := ad.(type) {
	case *venue.BinanceAdapter:
		client, err := binance.NewClient(binance.DefaultConfig())
		if err != nil {
			lg.Fatal("build binance rest client", log.Error(err))
		}
		fetcher := newBinanceSnapshotFetcher(client, repo)
		sync := a.NewBookSynchronizer(inst, fetcher, dispatch, lg)
		sync.StartSync()
		a.OnEvent.Subscribe(dispatch)
	case *venue.BitMEXAdapter:
		a.RegisterInstrument(inst.InstrumentID, inst.Symbol)
		a.OnEvent.Subscribe(dispatch)
	case *venue.BithumbAdapter:
		a.RegisterInstrument(inst.InstrumentID, inst.Symbol)
		a.OnEvent.Subscribe(dispatch)
	case *venue.CoinoneAdapter:
		quote, target := splitCoinoneSymbol(inst.Symbol)
		a.RegisterInstrument(inst.InstrumentID, quote, target)
		a.OnEvent.Subscribe(dispatch)
	default:
		lg.Fatal("unsupported venue adapter type")
	}
}

func splitCoinoneSymbol(symbol string) (quote, target string) {
	parts := strings.SplitN(symbol, "-", 2)
	if len(parts) != 2 {
		return "KRW", symbol
	}
	return parts[0], parts[1]
}

// venueBook exposes the Binance book.Synchronizer for diagnostics, when
// applicable; other venues don't maintain one.
func venueBook(ad adapter.Adapter, instrumentID core.InstrumentID) *book.Synchronizer {
	a, ok := ad.(*venue.BinanceAdapter)
	if !ok {
		return nil
	}
	return a.Book(instrumentID)
}
