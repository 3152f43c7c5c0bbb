package quoter

import (
	"context"
	"sync"

	"github.com/BullionBear/sequex/internal/feed/core"
	"github.com/BullionBear/sequex/internal/quoting/engine"
	"github.com/BullionBear/sequex/pkg/eventbus"
	"github.com/BullionBear/sequex/pkg/log"
)

// SingleOrderConfig bundles a SingleOrderQuoter's construction parameters.
type SingleOrderConfig struct {
	InstrumentID   core.InstrumentID
	Side           core.Side
	TickSize       core.Price
	Gateway        OrderGateway
	Market         MarketView
	Builder        OrderBuilder
	HittingLogic   engine.HittingLogic
	MinOrderSize   core.Quantity
	IsSpotSell     bool // clamp sell size to AvailablePosition
	AvailablePosition func() core.Quantity
	Logger         log.Logger
}

// SingleOrderQuoter drives one side of one instrument through a single
// resting order: submit, replace-in-place where the gateway allows it, or
// cancel-and-reenter where it doesn't.
type SingleOrderQuoter struct {
	instrumentID core.InstrumentID
	side         core.Side
	tickSize     core.Price
	gateway      OrderGateway
	market       MarketView
	builder      OrderBuilder
	minOrderSize core.Quantity
	isSpotSell   bool
	availablePosition func() core.Quantity
	logger       log.Logger

	mu                   sync.Mutex
	hittingLogic         engine.HittingLogic
	active               *core.OrderStatusReport
	pendingReentryQuote  *core.Quote

	OnFullyFilled *eventbus.EventSource[core.Fill]
}

// NewSingleOrderQuoter constructs a SingleOrderQuoter with no active order.
func NewSingleOrderQuoter(cfg SingleOrderConfig) *SingleOrderQuoter {
	return &SingleOrderQuoter{
		instrumentID:      cfg.InstrumentID,
		side:              cfg.Side,
		tickSize:          cfg.TickSize,
		gateway:           cfg.Gateway,
		market:            cfg.Market,
		builder:           cfg.Builder,
		hittingLogic:      cfg.HittingLogic,
		minOrderSize:      cfg.MinOrderSize,
		isSpotSell:        cfg.IsSpotSell,
		availablePosition: cfg.AvailablePosition,
		logger:            cfg.Logger,
		OnFullyFilled:     eventbus.NewEventSource[core.Fill](),
	}
}

// SetHittingLogic swaps the hitting-logic mode applied to future quotes.
func (q *SingleOrderQuoter) SetHittingLogic(h engine.HittingLogic) {
	q.mu.Lock()
	q.hittingLogic = h
	q.mu.Unlock()
}

// applyHitting clamps price against the live top-of-book per the active
// HittingLogic:
//   - AllowAll: no clamp, any price is submitted as given.
//   - OurBest: never price beyond the best already standing on our side of
//     the book: a buy above the best bid is clamped to the best bid, a
//     sell below the best ask to the best ask.
//   - Pennying: improve the opposing best by one tick at most, never cross
//     it outright.
func (q *SingleOrderQuoter) applyHitting(price core.Price) core.Price {
	if q.market == nil {
		return price
	}
	switch q.hittingLogic {
	case engine.OurBest:
		if q.side == core.SideBuy {
			if best, ok := q.market.BestBid(); ok && price > best {
				return best
			}
		} else {
			if best, ok := q.market.BestAsk(); ok && price < best {
				return best
			}
		}
	case engine.Pennying:
		if q.side == core.SideBuy {
			if opp, ok := q.market.BestAsk(); ok && price >= opp {
				return opp - q.tickSize
			}
		} else {
			if opp, ok := q.market.BestBid(); ok && price <= opp {
				return opp + q.tickSize
			}
		}
	}
	return price
}

// nearMid reports whether price sits within ±3bp of the book mid, the band
// spec 4.9 uses to decide whether a partial fill may be replaced in place.
func (q *SingleOrderQuoter) nearMid(price core.Price) bool {
	if q.market == nil {
		return false
	}
	bid, ok1 := q.market.BestBid()
	ask, ok2 := q.market.BestAsk()
	if !ok1 || !ok2 {
		return false
	}
	mid := (int64(bid) + int64(ask)) / 2
	if mid == 0 {
		return false
	}
	diff := int64(price) - mid
	if diff < 0 {
		diff = -diff
	}
	return diff*10000/mid <= nearMidBps
}

// UpdateQuote reconciles the active order toward quote. A nil quote cancels
// outright (the inventory-cap / pause case).
func (q *SingleOrderQuoter) UpdateQuote(ctx context.Context, quote *core.Quote) error {
	if quote == nil {
		return q.CancelQuote(ctx)
	}

	targetPrice := q.applyHitting(quote.Price)
	targetSize := quote.Size
	if q.isSpotSell && q.availablePosition != nil {
		if avail := q.availablePosition(); avail < targetSize {
			targetSize = avail
		}
		if targetSize < q.minOrderSize {
			return q.CancelQuote(ctx)
		}
	}

	q.mu.Lock()
	cur := q.active
	q.mu.Unlock()

	if cur == nil {
		order := q.builder(q.side, targetPrice, targetSize)
		report, err := q.gateway.Submit(ctx, order)
		if err != nil {
			return err
		}
		q.recordReport(report)
		return nil
	}

	if cur.Price == targetPrice && cur.Quantity == targetSize {
		return nil
	}

	if cur.Status == core.OrderPartiallyFilled && !q.nearMid(targetPrice) {
		return q.cancelAndStage(ctx, &core.Quote{Price: targetPrice, Size: targetSize})
	}

	if q.gateway.SupportsReplace() {
		report, err := q.gateway.Replace(ctx, cur.ClientOrderID, targetPrice)
		if err != nil {
			return err
		}
		q.recordReport(report)
		return nil
	}

	return q.cancelAndStage(ctx, &core.Quote{Price: targetPrice, Size: targetSize})
}

// cancelAndStage cancels the active order and stages quote for resubmission
// once the cancel's terminal report arrives.
func (q *SingleOrderQuoter) cancelAndStage(ctx context.Context, quote *core.Quote) error {
	q.mu.Lock()
	cur := q.active
	q.pendingReentryQuote = quote
	q.mu.Unlock()
	if cur == nil {
		return nil
	}
	report, err := q.gateway.Cancel(ctx, cur.ClientOrderID)
	if err != nil {
		return err
	}
	q.recordReport(report)
	return nil
}

// CancelQuote cancels the active order, if any, and drops any staged
// re-entry.
func (q *SingleOrderQuoter) CancelQuote(ctx context.Context) error {
	q.mu.Lock()
	cur := q.active
	q.pendingReentryQuote = nil
	q.mu.Unlock()
	if cur == nil {
		return nil
	}
	report, err := q.gateway.Cancel(ctx, cur.ClientOrderID)
	if err != nil {
		return err
	}
	q.recordReport(report)
	return nil
}

// OnOrderStatus feeds an execution report back into the quoter: updates the
// active-order record, fires OnFullyFilled on Filled, and submits a staged
// re-entry once a Cancelled report clears the slot.
func (q *SingleOrderQuoter) OnOrderStatus(ctx context.Context, report core.OrderStatusReport) {
	q.recordReport(report)

	if fill, ok := core.FillFromReport(report); ok {
		q.OnFullyFilled.Publish(fill)
	}

	if !report.Status.IsTerminal() {
		return
	}

	q.mu.Lock()
	q.active = nil
	reentry := q.pendingReentryQuote
	q.pendingReentryQuote = nil
	q.mu.Unlock()

	if reentry != nil && report.Status == core.OrderCancelled {
		if err := q.UpdateQuote(ctx, reentry); err != nil && q.logger != nil {
			q.logger.Error("single quoter re-entry failed", log.Error(err))
		}
	}
}

func (q *SingleOrderQuoter) recordReport(report core.OrderStatusReport) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if report.Status.IsTerminal() {
		q.active = nil
		return
	}
	r := report
	q.active = &r
}
