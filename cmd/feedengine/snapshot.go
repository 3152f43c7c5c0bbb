package main

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/BullionBear/sequex/internal/feed/core"
	"github.com/BullionBear/sequex/pkg/exchange/binance"
)

// binanceSnapshotFetcher adapts pkg/exchange/binance.Client's REST depth
// endpoint to core.SnapshotFetcher, the opaque collaborator spec.md treats
// as out-of-scope. Resolves InstrumentID -> symbol from the same
// InstrumentRepository wired at boot; prices and quantities are converted
// at the fixed rawTickScale, not at the instrument's tick size.
type binanceSnapshotFetcher struct {
	client *binance.Client
	repo   core.InstrumentRepository
}

func newBinanceSnapshotFetcher(client *binance.Client, repo core.InstrumentRepository) *binanceSnapshotFetcher {
	return &binanceSnapshotFetcher{client: client, repo: repo}
}

func (f *binanceSnapshotFetcher) GetDepthSnapshot(ctx context.Context, instrumentID core.InstrumentID, limit int) (core.DepthSnapshot, error) {
	inst, ok := f.repo.GetByID(instrumentID)
	if !ok {
		return core.DepthSnapshot{}, fmt.Errorf("snapshot: unknown instrument %d", instrumentID)
	}
	ob, err := f.client.GetOrderBook(ctx, inst.Symbol, limit)
	if err != nil {
		return core.DepthSnapshot{}, fmt.Errorf("snapshot: fetch %s: %w", inst.Symbol, err)
	}

	bids, err := convertLevels(ob.Bids, core.SideBuy)
	if err != nil {
		return core.DepthSnapshot{}, err
	}
	asks, err := convertLevels(ob.Asks, core.SideSell)
	if err != nil {
		return core.DepthSnapshot{}, err
	}
	return core.DepthSnapshot{
		LastUpdateID: uint64(ob.LastUpdateId),
		Bids:         bids,
		Asks:         asks,
	}, nil
}

// rawTickScale is the fixed 1e-8 decimal granularity wire prices are
// normalized to, the same scale venue.parseTicks applies to streamed
// depth updates so REST snapshots and WS deltas land on the same unit.
var rawTickScale = decimal.New(1, -8)

func convertLevels(raw [][]string, side core.Side) ([]core.PriceLevelEntry, error) {
	entries := make([]core.PriceLevelEntry, 0, len(raw))
	for _, lvl := range raw {
		if len(lvl) != 2 {
			return nil, fmt.Errorf("snapshot: malformed level %v", lvl)
		}
		price, err := decimal.NewFromString(lvl[0])
		if err != nil {
			return nil, fmt.Errorf("snapshot: parse price %q: %w", lvl[0], err)
		}
		qty, err := decimal.NewFromString(lvl[1])
		if err != nil {
			return nil, fmt.Errorf("snapshot: parse quantity %q: %w", lvl[1], err)
		}
		entries = append(entries, core.PriceLevelEntry{
			Side:     side,
			Price:    core.PriceFromDecimal(price, rawTickScale),
			Quantity: core.QuantityFromDecimal(qty, rawTickScale),
		})
	}
	return entries, nil
}
