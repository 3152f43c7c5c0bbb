// Package engine implements the C7 Quoting Engine: given a fair-value
// signal and fill feedback, computes the target bid/ask pair the Market
// Maker should drive toward.
package engine

import (
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/BullionBear/sequex/internal/feed/core"
	"github.com/BullionBear/sequex/pkg/eventbus"
	"github.com/BullionBear/sequex/pkg/log"
	"github.com/BullionBear/sequex/pkg/metrics"
)

// DataConsumerMode selects how much book depth a FairValueProvider feeds
// its subscriber.
type DataConsumerMode uint8

const (
	FullBook DataConsumerMode = iota
	BestBook
)

// Subscription is returned by FairValueProvider.Subscribe; Unsubscribe
// stops delivery.
type Subscription interface {
	Unsubscribe()
}

// FairValueProvider is the external signal source the engine reacts to.
type FairValueProvider interface {
	Subscribe(instrumentID core.InstrumentID, mode DataConsumerMode, handler func(core.FairValueUpdate)) (Subscription, error)
}

// FxRateService optionally converts a fair value quoted in a foreign
// currency into the instrument's quote currency before requoting.
type FxRateService interface {
	Convert(amount core.Price, targetCurrency string) (core.Price, bool)
}

// HittingLogic enumerates the passive/aggressive safeguard a Quoter
// applies; the engine does not interpret it, only carries it in
// Parameters through to C9.
type HittingLogic uint8

const (
	AllowAll HittingLogic = iota
	OurBest
	Pennying
)

// Parameters are the engine's tunable knobs, settable at construction and
// mutable thereafter via UpdateParameters.
type Parameters struct {
	BidSpreadBp      int64
	AskSpreadBp      int64
	GroupingBp       int64
	SkewBp           int64
	OrderSize        core.Quantity
	MaxCumBidFills   core.Quantity
	MaxCumAskFills   core.Quantity
	CooldownOnFillMs int64
	HittingLogic     HittingLogic
	PostOnly         bool
}

// Config bundles an Engine's construction parameters.
type Config struct {
	InstrumentID core.InstrumentID
	TickSize     core.Price
	Mode         DataConsumerMode
	Provider     FairValueProvider
	Fx           FxRateService
	Parameters   Parameters
	Dispatch     func(core.QuotePair) // into MarketMaker.UpdateQuoteTargetAsync
	Logger       log.Logger
}

// Engine is the per-instrument C7 state: the requote algorithm, fill-skew
// counters and grouping cache. One Engine feeds exactly one MarketMaker.
type Engine struct {
	instrumentID core.InstrumentID
	tickSize     core.Price
	provider     FairValueProvider
	fx           FxRateService
	dispatch     func(core.QuotePair)
	logger       log.Logger

	mu          sync.Mutex
	params      Parameters
	sub         Subscription
	groupingRef int64 // groupingBp this groupSize was cached for
	groupSize   core.Price

	active int32 // atomic bool: dispatch to MarketMaker when requoting
	paused int32 // atomic bool: pause window in effect
	pauseUntilMs int64 // atomic unix-ms deadline

	unappliedBuy  int64 // atomic ticks, CAS-netted against unappliedSell
	unappliedSell int64
	totalBuy      int64 // atomic cumulative ticks, never decremented
	totalSell     int64

	OnQuote             *eventbus.EventSource[core.QuotePair]
	OnParametersUpdated *eventbus.EventSource[Parameters]
}

// NewEngine constructs an Engine in the inactive state.
func NewEngine(cfg Config) *Engine {
	return &Engine{
		instrumentID:        cfg.InstrumentID,
		tickSize:            cfg.TickSize,
		provider:            cfg.Provider,
		fx:                  cfg.Fx,
		dispatch:            cfg.Dispatch,
		logger:              cfg.Logger,
		params:              cfg.Parameters,
		OnQuote:             eventbus.NewEventSource[core.QuotePair](),
		OnParametersUpdated: eventbus.NewEventSource[Parameters](),
	}
}

// Start subscribes to the fair-value provider; computed quotes begin
// flowing to observers (and, once Activate is called, to the Market
// Maker).
func (e *Engine) Start(mode DataConsumerMode) error {
	sub, err := e.provider.Subscribe(e.instrumentID, mode, e.onFairValueUpdate)
	if err != nil {
		return err
	}
	e.mu.Lock()
	e.sub = sub
	e.mu.Unlock()
	return nil
}

// Stop unsubscribes from the fair-value provider.
func (e *Engine) Stop() {
	e.mu.Lock()
	sub := e.sub
	e.sub = nil
	e.mu.Unlock()
	if sub != nil {
		sub.Unsubscribe()
	}
}

// Activate enables dispatch of computed QuotePairs to the Market Maker.
func (e *Engine) Activate() { atomic.StoreInt32(&e.active, 1) }

// Deactivate stops dispatch; QuotePairs still publish to OnQuote for
// observers.
func (e *Engine) Deactivate() { atomic.StoreInt32(&e.active, 0) }

func (e *Engine) isActive() bool { return atomic.LoadInt32(&e.active) == 1 }

// UpdateParameters replaces the live parameter set and fires
// ParametersUpdated.
func (e *Engine) UpdateParameters(p Parameters) {
	e.mu.Lock()
	e.params = p
	e.mu.Unlock()
	e.OnParametersUpdated.Publish(p)
}

// OnFullyFilled starts the post-fill cooldown: quotes keep publishing to
// observers but stop dispatching to the Market Maker until it elapses.
func (e *Engine) OnFullyFilled(nowMs int64) {
	e.mu.Lock()
	cooldown := e.params.CooldownOnFillMs
	if cooldown <= 0 {
		cooldown = 3000
	}
	e.mu.Unlock()
	atomic.StoreInt64(&e.pauseUntilMs, nowMs+cooldown)
	atomic.StoreInt32(&e.paused, 1)
}

func (e *Engine) isPaused(nowMs int64) bool {
	if atomic.LoadInt32(&e.paused) == 0 {
		return false
	}
	if nowMs >= atomic.LoadInt64(&e.pauseUntilMs) {
		atomic.StoreInt32(&e.paused, 0)
		return false
	}
	return true
}

// OnFill nets a fill against the opposite side's unapplied skew counter
// first, then accumulates the remainder onto the same side; separately
// bumps the monotonic total used for inventory caps.
func (e *Engine) OnFill(fill core.Fill) {
	amount := int64(fill.Quantity)
	if amount <= 0 {
		return
	}
	if fill.Side == core.SideBuy {
		atomic.AddInt64(&e.totalBuy, amount)
		netCAS(&e.unappliedSell, &e.unappliedBuy, amount)
	} else {
		atomic.AddInt64(&e.totalSell, amount)
		netCAS(&e.unappliedBuy, &e.unappliedSell, amount)
	}
}

// netCAS subtracts amount from *against first (down to zero) and adds any
// remainder to *with, via a compare-and-swap retry loop so concurrent
// fills never lose an update.
func netCAS(against, with *int64, amount int64) {
	for {
		old := atomic.LoadInt64(against)
		var consumed, remainder int64
		if old >= amount {
			consumed, remainder = amount, 0
		} else if old > 0 {
			consumed, remainder = old, amount-old
		} else {
			consumed, remainder = 0, amount
		}
		if !atomic.CompareAndSwapInt64(against, old, old-consumed) {
			continue
		}
		if remainder > 0 {
			atomic.AddInt64(with, remainder)
		}
		return
	}
}

// applySkew consumes whole multiples of orderSize from each side's
// unapplied counter and folds the result into the spread parameters,
// publishing ParametersUpdated if anything changed.
func (e *Engine) applySkew(p *Parameters) {
	orderSize := int64(p.OrderSize)
	if orderSize <= 0 {
		return
	}
	changed := false
	if k := drainMultiples(&e.unappliedBuy, orderSize); k > 0 {
		p.BidSpreadBp -= k * p.SkewBp
		p.AskSpreadBp -= k * p.SkewBp
		changed = true
	}
	if k := drainMultiples(&e.unappliedSell, orderSize); k > 0 {
		p.BidSpreadBp += k * p.SkewBp
		p.AskSpreadBp += k * p.SkewBp
		changed = true
	}
	if changed {
		e.mu.Lock()
		e.params = *p
		e.mu.Unlock()
		e.OnParametersUpdated.Publish(*p)
	}
}

// drainMultiples subtracts k*unit from counter (k = counter/unit) via CAS
// and returns k.
func drainMultiples(counter *int64, unit int64) int64 {
	for {
		old := atomic.LoadInt64(counter)
		k := old / unit
		if k <= 0 {
			return 0
		}
		if atomic.CompareAndSwapInt64(counter, old, old-k*unit) {
			return k
		}
	}
}

// onFairValueUpdate is the requote algorithm: skip-if-zero, raw bid/ask
// via spread bps, tick rounding, inventory caps, grouping.
func (e *Engine) onFairValueUpdate(update core.FairValueUpdate) {
	if update.FairBidValue == 0 || update.FairAskValue == 0 {
		return
	}

	e.mu.Lock()
	p := e.params
	e.mu.Unlock()

	e.applySkew(&p)

	rawBid := applyBp(update.FairBidValue, p.BidSpreadBp)
	rawAsk := applyBp(update.FairAskValue, p.AskSpreadBp)

	bidPrice := core.FloorToTick(rawBid, e.tickSize)
	askPrice := core.CeilToTick(rawAsk, e.tickSize)

	var bid, ask *core.Quote
	if atomic.LoadInt64(&e.totalBuy) < int64(p.MaxCumBidFills) || p.MaxCumBidFills <= 0 {
		bid = &core.Quote{Price: bidPrice, Size: p.OrderSize}
	}
	if atomic.LoadInt64(&e.totalSell) < int64(p.MaxCumAskFills) || p.MaxCumAskFills <= 0 {
		ask = &core.Quote{Price: askPrice, Size: p.OrderSize}
	}

	refPrice := (update.FairBidValue + update.FairAskValue) / 2
	if bid != nil || ask != nil {
		groupSize := e.groupSizeFor(p.GroupingBp, refPrice)
		if groupSize > 1 {
			step := groupSize * e.tickSize
			if bid != nil {
				bid.Price = core.FloorToTick(bid.Price, step)
			}
			if ask != nil {
				ask.Price = core.CeilToTick(ask.Price, step)
			}
		}
	}

	pair := core.QuotePair{
		InstrumentID:      e.instrumentID,
		Bid:               bid,
		Ask:               ask,
		CreationTimestamp: uint64(time.Now().UnixMilli()),
		IsPostOnly:        p.PostOnly,
	}
	e.OnQuote.Publish(pair)

	now := int64(pair.CreationTimestamp)
	if e.isActive() && !e.isPaused(now) && e.dispatch != nil {
		metrics.QuoteDispatchTotal.WithLabelValues(strconv.FormatUint(uint64(e.instrumentID), 10)).Inc()
		e.dispatch(pair)
	}
}

// groupSizeFor returns the cached group size (in tick units), recomputing
// it only when groupingBp changes.
func (e *Engine) groupSizeFor(groupingBp int64, refPrice core.Price) core.Price {
	if groupingBp <= 0 {
		return 0
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.groupingRef == groupingBp && e.groupSize > 0 {
		return e.groupSize
	}
	if e.tickSize <= 0 {
		e.groupSize = 1
		e.groupingRef = groupingBp
		return 1
	}
	numerator := int64(refPrice) * groupingBp
	denom := 10000 * int64(e.tickSize)
	size := roundDiv(numerator, denom)
	if size < 1 {
		size = 1
	}
	e.groupSize = core.Price(size)
	e.groupingRef = groupingBp
	return e.groupSize
}

func roundDiv(num, den int64) int64 {
	if den == 0 {
		return 0
	}
	if (num < 0) != (den < 0) {
		return -roundDiv(-num, den)
	}
	return (num + den/2) / den
}

// applyBp scales price by (1 + bp*1e-4) using integer tick arithmetic,
// matching the fixed-point discipline the rest of the core uses.
func applyBp(price core.Price, bp int64) core.Price {
	return price + core.Price(int64(price)*bp/10000)
}
