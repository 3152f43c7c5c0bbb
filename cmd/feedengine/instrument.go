package main

import (
	"fmt"
	"strings"

	"github.com/BullionBear/sequex/internal/config"
	"github.com/BullionBear/sequex/internal/feed/core"
)

// staticInstrumentRepo is the InstrumentRepository fallback used when
// store.PostgresInstrumentCache isn't configured (postgres.dsn empty):
// one process quotes exactly one instrument, so its identity is taken
// straight from the loaded Config rather than a lookup table.
type staticInstrumentRepo struct {
	inst core.Instrument
}

func newStaticInstrumentRepo(inst core.Instrument) *staticInstrumentRepo {
	return &staticInstrumentRepo{inst: inst}
}

func (r *staticInstrumentRepo) FindBySymbol(symbol string, productType core.ProductType, exchange core.Exchange) (core.Instrument, bool) {
	if r.inst.Symbol == symbol && r.inst.ProductType == productType && r.inst.SourceExchange == exchange {
		return r.inst, true
	}
	return core.Instrument{}, false
}

func (r *staticInstrumentRepo) GetByID(id core.InstrumentID) (core.Instrument, bool) {
	if r.inst.InstrumentID == id {
		return r.inst, true
	}
	return core.Instrument{}, false
}

// instrumentFromConfig builds the process's single Instrument from the
// base Config fields, defaulting tick discipline to the 1e-8 raw-tick
// scale every venue adapter parses wire prices into.
func instrumentFromConfig(cfg config.Config) (core.Instrument, error) {
	exchange, err := parseExchange(cfg.Exchange)
	if err != nil {
		return core.Instrument{}, err
	}
	return core.Instrument{
		InstrumentID:   1,
		Symbol:         cfg.Symbol,
		ProductType:    parseProductType(cfg.Type),
		SourceExchange: exchange,
		TickSize:       1,
		MinOrderSize:   1,
	}, nil
}

func parseExchange(name string) (core.Exchange, error) {
	switch strings.ToLower(name) {
	case "binance":
		return core.ExchangeBinance, nil
	case "bitmex":
		return core.ExchangeBitMEX, nil
	case "bithumb":
		return core.ExchangeBithumb, nil
	case "coinone":
		return core.ExchangeCoinone, nil
	default:
		return 0, fmt.Errorf("feedengine: unknown exchange %q", name)
	}
}

func parseProductType(t string) core.ProductType {
	switch strings.ToLower(t) {
	case "perpetual", "perp", "future", "futures":
		return core.ProductPerpetualFuture
	default:
		return core.ProductSpot
	}
}
