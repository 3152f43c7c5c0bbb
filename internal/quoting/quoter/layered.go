package quoter

import (
	"context"
	"sort"
	"sync"

	"github.com/BullionBear/sequex/internal/feed/core"
	"github.com/BullionBear/sequex/internal/quoting/engine"
	"github.com/BullionBear/sequex/pkg/eventbus"
	"github.com/BullionBear/sequex/pkg/log"
)

// LayeredConfig bundles a MultiOrderQuoter's construction parameters.
type LayeredConfig struct {
	InstrumentID core.InstrumentID
	Side         core.Side
	TickSize     core.Price
	Depth        int
	GroupingBp   int64
	Gateway      OrderGateway
	Market       MarketView
	Builder      OrderBuilder
	HittingLogic engine.HittingLogic
	Logger       log.Logger
}

// MultiOrderQuoter (LayeredQuoter) maintains up to Depth resting orders
// laid out inside-out from the innermost target price, reconciling one
// gateway action per UpdateQuote call to respect rate limits.
type MultiOrderQuoter struct {
	instrumentID core.InstrumentID
	side         core.Side
	tickSize     core.Price
	depth        int
	groupingBp   int64
	gateway      OrderGateway
	market       MarketView
	builder      OrderBuilder
	logger       log.Logger

	sem sync.Mutex // per-group semaphore serializing overlapping UpdateAsync calls

	mu           sync.Mutex
	hittingLogic engine.HittingLogic
	targets      []core.Price                // inside-out, most recent UpdateQuote
	live         []core.OrderStatusReport     // inside-out, sorted by distance from innermost target
	cancelling   map[uint64]struct{}          // ClientOrderIDs with an outstanding CancelRequested

	OnFullyFilled *eventbus.EventSource[core.Fill]
}

// NewMultiOrderQuoter constructs a MultiOrderQuoter with no live orders.
func NewMultiOrderQuoter(cfg LayeredConfig) *MultiOrderQuoter {
	depth := cfg.Depth
	if depth < 1 {
		depth = 1
	}
	return &MultiOrderQuoter{
		instrumentID:  cfg.InstrumentID,
		side:          cfg.Side,
		tickSize:      cfg.TickSize,
		depth:         depth,
		groupingBp:    cfg.GroupingBp,
		gateway:       cfg.Gateway,
		market:        cfg.Market,
		builder:       cfg.Builder,
		hittingLogic:  cfg.HittingLogic,
		logger:        cfg.Logger,
		cancelling:    make(map[uint64]struct{}),
		OnFullyFilled: eventbus.NewEventSource[core.Fill](),
	}
}

// stepSize is the per-layer price increment: max(tick, round(groupingBp *
// 1e-4 * refPrice / depth / tick) * tick).
func (q *MultiOrderQuoter) stepSize(refPrice core.Price) core.Price {
	if q.groupingBp <= 0 || q.tickSize <= 0 {
		return q.tickSize
	}
	numerator := int64(refPrice) * q.groupingBp
	denom := 10000 * int64(q.depth) * int64(q.tickSize)
	ticks := roundDivLayer(numerator, denom)
	if ticks < 1 {
		ticks = 1
	}
	step := core.Price(ticks) * q.tickSize
	if step < q.tickSize {
		return q.tickSize
	}
	return step
}

func roundDivLayer(num, den int64) int64 {
	if den == 0 {
		return 0
	}
	if (num < 0) != (den < 0) {
		return -roundDivLayer(-num, den)
	}
	return (num + den/2) / den
}

// layerPrices lays out depth target prices from innermost outward,
// applies hitting logic per layer, collapses duplicates, and re-sorts
// inside-out.
func (q *MultiOrderQuoter) layerPrices(innermost core.Price, refPrice core.Price) []core.Price {
	step := q.stepSize(refPrice)
	seen := make(map[core.Price]struct{}, q.depth)
	out := make([]core.Price, 0, q.depth)
	for i := 0; i < q.depth; i++ {
		var p core.Price
		if q.side == core.SideBuy {
			p = innermost - core.Price(i)*step
		} else {
			p = innermost + core.Price(i)*step
		}
		p = q.applyHittingLocked(p)
		if _, dup := seen[p]; dup {
			continue
		}
		seen[p] = struct{}{}
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool {
		if q.side == core.SideBuy {
			return out[i] > out[j] // inside-out for bids: highest first
		}
		return out[i] < out[j] // inside-out for asks: lowest first
	})
	return out
}

func (q *MultiOrderQuoter) applyHittingLocked(price core.Price) core.Price {
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

// UpdateQuote recomputes the target layers from quote (the innermost price
// and per-layer size) and performs exactly one reconciliation action: cancel
// the innermost excess order, replace one mismatched layer, or submit one
// missing layer.
func (q *MultiOrderQuoter) UpdateQuote(ctx context.Context, quote *core.Quote) error {
	if quote == nil {
		return q.CancelQuote(ctx)
	}
	q.sem.Lock()
	defer q.sem.Unlock()

	refPrice := quote.Price
	targets := q.layerPrices(quote.Price, refPrice)

	q.mu.Lock()
	q.targets = targets
	live := append([]core.OrderStatusReport(nil), q.live...)
	q.mu.Unlock()

	targetCount, activeCount := len(targets), len(live)

	// Step 1: too many live orders — cancel the innermost.
	if activeCount > targetCount {
		innermost := live[0]
		report, err := q.gateway.Cancel(ctx, innermost.ClientOrderID)
		if err != nil {
			return err
		}
		q.markCancelling(innermost.ClientOrderID)
		q.recordReport(report)
		return nil
	}

	// Step 2: walk outer -> inner, replace the first mismatched layer.
	offset := targetCount - activeCount
	for i := activeCount - 1; i >= 0; i-- {
		layerIdx := i + offset
		if layerIdx < 0 || layerIdx >= targetCount {
			continue
		}
		if live[i].Price == targets[layerIdx] {
			continue
		}
		if q.gateway.SupportsReplace() {
			report, err := q.gateway.Replace(ctx, live[i].ClientOrderID, targets[layerIdx])
			if err != nil {
				return err
			}
			q.recordReport(report)
			return nil
		}
		report, err := q.gateway.Cancel(ctx, live[i].ClientOrderID)
		if err != nil {
			return err
		}
		q.markCancelling(live[i].ClientOrderID)
		q.recordReport(report)
		return nil
	}

	// Step 3: a target layer has no matching live order — submit it.
	if targetCount > activeCount {
		missingIdx := offset - 1 // outermost layer not yet covered by a live order
		if missingIdx < 0 {
			missingIdx = 0
		}
		order := q.builder(q.side, targets[missingIdx], quote.Size)
		report, err := q.gateway.Submit(ctx, order)
		if err != nil {
			return err
		}
		q.recordReport(report)
	}
	return nil
}

// CancelQuote snapshots all cancellable live orders, marks each
// CancelRequested under the group lock, then issues a single bulk-cancel.
func (q *MultiOrderQuoter) CancelQuote(ctx context.Context) error {
	q.sem.Lock()
	defer q.sem.Unlock()

	q.mu.Lock()
	ids := make([]uint64, 0, len(q.live))
	for _, r := range q.live {
		if _, pending := q.cancelling[r.ClientOrderID]; pending {
			continue
		}
		ids = append(ids, r.ClientOrderID)
		q.cancelling[r.ClientOrderID] = struct{}{}
	}
	q.targets = nil
	q.mu.Unlock()

	if len(ids) == 0 {
		return nil
	}
	reports, err := q.gateway.BulkCancel(ctx, ids)
	if err != nil {
		q.mu.Lock()
		for _, id := range ids {
			delete(q.cancelling, id)
		}
		q.mu.Unlock()
		return err
	}
	for _, r := range reports {
		q.recordReport(r)
	}
	return nil
}

func (q *MultiOrderQuoter) markCancelling(id uint64) {
	q.mu.Lock()
	q.cancelling[id] = struct{}{}
	q.mu.Unlock()
}

// OnOrderStatus routes an execution report into the live-order book,
// removing terminal orders, firing OnFullyFilled on Filled.
func (q *MultiOrderQuoter) OnOrderStatus(ctx context.Context, report core.OrderStatusReport) {
	if fill, ok := core.FillFromReport(report); ok {
		q.OnFullyFilled.Publish(fill)
	}
	q.recordReport(report)
}

func (q *MultiOrderQuoter) recordReport(report core.OrderStatusReport) {
	q.mu.Lock()
	defer q.mu.Unlock()
	delete(q.cancelling, report.ClientOrderID)

	if report.Status.IsTerminal() {
		for i, r := range q.live {
			if r.ClientOrderID == report.ClientOrderID {
				q.live = append(q.live[:i], q.live[i+1:]...)
				return
			}
		}
		return
	}

	for i, r := range q.live {
		if r.ClientOrderID == report.ClientOrderID {
			q.live[i] = report
			q.resort()
			return
		}
	}
	q.live = append(q.live, report)
	q.resort()
}

// resort keeps q.live ordered inside-out: nearest the touch first.
func (q *MultiOrderQuoter) resort() {
	sort.Slice(q.live, func(i, j int) bool {
		if q.side == core.SideBuy {
			return q.live[i].Price > q.live[j].Price
		}
		return q.live[i].Price < q.live[j].Price
	})
}
