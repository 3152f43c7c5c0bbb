// Package maker implements the C8 Market Maker: coordinates a bid Quoter
// and an ask Quoter for one instrument behind a single-slot, non-blocking
// target handoff.
package maker

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/BullionBear/sequex/internal/feed/core"
	"github.com/BullionBear/sequex/pkg/eventbus"
	"github.com/BullionBear/sequex/pkg/log"
)

// Status is one side's live/held state after QuoteValidator runs.
type Status uint8

const (
	StatusLive Status = iota
	StatusHeld
)

// Quoter is the C9 collaborator each side of the Market Maker drives.
type Quoter interface {
	UpdateQuote(ctx context.Context, quote *core.Quote) error
	CancelQuote(ctx context.Context) error
}

// QuoteValidator decides, for an incoming QuotePair, whether each side
// should go Live (dispatched to its Quoter) or be Held (cancelled).
// Global-pause and risk-gate checks live behind this interface.
type QuoteValidator interface {
	Validate(pair core.QuotePair) (bidStatus, askStatus Status)
}

// StatusChange is published whenever a side's Live/Held status changes.
type StatusChange struct {
	InstrumentID core.InstrumentID
	Side         core.Side
	Status       Status
}

// Config bundles a MarketMaker's construction parameters.
type Config struct {
	InstrumentID core.InstrumentID
	Bid          Quoter
	Ask          Quoter
	Validator    QuoteValidator
	Logger       log.Logger
}

// MarketMaker coordinates one instrument's bid and ask Quoters. Target
// updates never block the caller: UpdateQuoteTargetAsync overwrites a
// single pending-target slot and lets whichever goroutine holds the
// processing token pick it up.
type MarketMaker struct {
	instrumentID core.InstrumentID
	bid          Quoter
	ask          Quoter
	validator    QuoteValidator
	logger       log.Logger

	mu      sync.Mutex
	pending *core.QuotePair
	token   int32 // atomic: 1 while a processing loop is running

	bidStatus int32 // atomic Status
	askStatus int32 // atomic Status

	OnStatusChanged *eventbus.EventSource[StatusChange]
	OnFullyFilled   *eventbus.EventSource[core.Fill]
}

// NewMarketMaker constructs a MarketMaker with both sides held.
func NewMarketMaker(cfg Config) *MarketMaker {
	return &MarketMaker{
		instrumentID:    cfg.InstrumentID,
		bid:             cfg.Bid,
		ask:             cfg.Ask,
		validator:       cfg.Validator,
		logger:          cfg.Logger,
		bidStatus:       int32(StatusHeld),
		askStatus:       int32(StatusHeld),
		OnStatusChanged: eventbus.NewEventSource[StatusChange](),
		OnFullyFilled:   eventbus.NewEventSource[core.Fill](),
	}
}

// UpdateQuoteTargetAsync overwrites the pending target slot and, if no
// processor is already running, starts one. It never blocks.
func (m *MarketMaker) UpdateQuoteTargetAsync(ctx context.Context, target core.QuotePair) {
	m.mu.Lock()
	m.pending = &target
	m.mu.Unlock()

	if !atomic.CompareAndSwapInt32(&m.token, 0, 1) {
		return // a processor already holds the token; it will see the new pending target
	}
	go m.process(ctx)
}

// process drains the pending-target slot until empty, dispatching each
// target to both Quoters concurrently before taking the next one.
func (m *MarketMaker) process(ctx context.Context) {
	defer atomic.StoreInt32(&m.token, 0)
	for {
		m.mu.Lock()
		t := m.pending
		m.pending = nil
		m.mu.Unlock()
		if t == nil {
			return
		}
		bidStatus, askStatus := m.validator.Validate(*t)
		m.dispatchBoth(ctx, *t, bidStatus, askStatus)
	}
}

// dispatchBoth drives both sides concurrently and waits for both to
// complete before returning, matching the "await both" step of the spec's
// processing loop.
func (m *MarketMaker) dispatchBoth(ctx context.Context, t core.QuotePair, bidStatus, askStatus Status) {
	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		m.dispatchSide(ctx, core.SideBuy, m.bid, t.Bid, bidStatus, &m.bidStatus)
	}()
	go func() {
		defer wg.Done()
		m.dispatchSide(ctx, core.SideSell, m.ask, t.Ask, askStatus, &m.askStatus)
	}()
	wg.Wait()
}

func (m *MarketMaker) dispatchSide(ctx context.Context, side core.Side, quoter Quoter, quote *core.Quote, status Status, statusField *int32) {
	var err error
	if status == StatusLive {
		err = quoter.UpdateQuote(ctx, quote)
	} else {
		err = quoter.CancelQuote(ctx)
	}
	if err != nil && m.logger != nil {
		m.logger.Error("market maker dispatch failed", log.Error(err))
	}
	if atomic.SwapInt32(statusField, int32(status)) != int32(status) {
		m.OnStatusChanged.Publish(StatusChange{InstrumentID: m.instrumentID, Side: side, Status: status})
	}
}

// Pause cancels both sides unconditionally, bypassing QuoteValidator. Used
// when global quoting is paused.
func (m *MarketMaker) Pause(ctx context.Context) {
	m.dispatchBoth(ctx, core.QuotePair{InstrumentID: m.instrumentID}, StatusHeld, StatusHeld)
}

// OnOrderFullyFilled forwards a side's terminal Filled report upward and,
// per spec, is the trigger the Quoting Engine listens on to start its
// pause-on-full-fill cooldown.
func (m *MarketMaker) OnOrderFullyFilled(fill core.Fill) {
	m.OnFullyFilled.Publish(fill)
}
