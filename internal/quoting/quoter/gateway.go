// Package quoter implements the C9 Quoter variants: SingleOrderQuoter and
// MultiOrderQuoter (LayeredQuoter), each reconciling one side (bid or ask)
// of one instrument against live orders through an OrderGateway.
package quoter

import (
	"context"

	"golang.org/x/time/rate"

	"github.com/BullionBear/sequex/internal/feed/core"
)

// NewOrder is the order-submission payload an OrderBuilder constructs and
// an OrderGateway accepts.
type NewOrder struct {
	ClientOrderID uint64
	InstrumentID  core.InstrumentID
	Side          core.Side
	Price         core.Price
	Quantity      core.Quantity
	PostOnly      bool
}

// OrderBuilder mints a NewOrder (including a fresh ClientOrderID) for one
// side's target price/size.
type OrderBuilder func(side core.Side, price core.Price, quantity core.Quantity) NewOrder

// OrderGateway is the external order-routing collaborator. Replace may not
// be supported by every venue; SupportsReplace tells callers whether to
// fall back to cancel-and-reenter.
type OrderGateway interface {
	Submit(ctx context.Context, order NewOrder) (core.OrderStatusReport, error)
	Replace(ctx context.Context, clientOrderID uint64, newPrice core.Price) (core.OrderStatusReport, error)
	Cancel(ctx context.Context, clientOrderID uint64) (core.OrderStatusReport, error)
	BulkCancel(ctx context.Context, clientOrderIDs []uint64) ([]core.OrderStatusReport, error)
	SupportsReplace() bool
}

// MarketView supplies the live top-of-book reference a Quoter needs for
// hitting logic and the partial-fill-near-mid check.
type MarketView interface {
	BestBid() (core.Price, bool)
	BestAsk() (core.Price, bool)
}

// nearMidBps is the ±3bp band spec 4.9 uses to decide whether a partially
// filled order may be replaced in place rather than cancelled outright.
const nearMidBps = 3

// rateLimitedGateway shapes every OrderGateway call through a
// golang.org/x/time/rate.Limiter, satisfying spec.md §4.9's "respect rate
// limits" requirement without the Quoter implementations needing to know
// the gateway is throttled.
type rateLimitedGateway struct {
	gw      OrderGateway
	limiter *rate.Limiter
}

// NewRateLimitedGateway wraps gw so every call blocks on limiter.Wait
// before reaching the venue. A nil limiter disables throttling.
func NewRateLimitedGateway(gw OrderGateway, limiter *rate.Limiter) OrderGateway {
	if limiter == nil {
		return gw
	}
	return &rateLimitedGateway{gw: gw, limiter: limiter}
}

func (g *rateLimitedGateway) Submit(ctx context.Context, order NewOrder) (core.OrderStatusReport, error) {
	if err := g.limiter.Wait(ctx); err != nil {
		return core.OrderStatusReport{}, err
	}
	return g.gw.Submit(ctx, order)
}

func (g *rateLimitedGateway) Replace(ctx context.Context, clientOrderID uint64, newPrice core.Price) (core.OrderStatusReport, error) {
	if err := g.limiter.Wait(ctx); err != nil {
		return core.OrderStatusReport{}, err
	}
	return g.gw.Replace(ctx, clientOrderID, newPrice)
}

func (g *rateLimitedGateway) Cancel(ctx context.Context, clientOrderID uint64) (core.OrderStatusReport, error) {
	if err := g.limiter.Wait(ctx); err != nil {
		return core.OrderStatusReport{}, err
	}
	return g.gw.Cancel(ctx, clientOrderID)
}

func (g *rateLimitedGateway) BulkCancel(ctx context.Context, clientOrderIDs []uint64) ([]core.OrderStatusReport, error) {
	if err := g.limiter.Wait(ctx); err != nil {
		return nil, err
	}
	return g.gw.BulkCancel(ctx, clientOrderIDs)
}

func (g *rateLimitedGateway) SupportsReplace() bool { return g.gw.SupportsReplace() }
