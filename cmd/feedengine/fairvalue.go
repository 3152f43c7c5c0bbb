package main

import (
	"sync"

	"github.com/BullionBear/sequex/internal/feed/core"
	"github.com/BullionBear/sequex/internal/quoting/engine"
)

// midBookProvider is the default engine.FairValueProvider cmd/feedengine
// wires: it publishes the best bid/ask it tracks from the events the book
// synchronizer and venue adapters dispatch, unchanged, as FairBidValue and
// FairAskValue (no mid is computed), the simplest signal source satisfying spec.md's
// FairValueProvider contract without an external pricing service. It also
// satisfies quoter.MarketView so the same top-of-book feeds both C7 and C9.
type midBookProvider struct {
	mu       sync.RWMutex
	bestBid  map[core.InstrumentID]core.Price
	bestAsk  map[core.InstrumentID]core.Price
	handlers map[core.InstrumentID]map[uint64]func(core.FairValueUpdate)
	nextSub  uint64
}

func newMidBookProvider() *midBookProvider {
	return &midBookProvider{
		bestBid:  make(map[core.InstrumentID]core.Price),
		bestAsk:  make(map[core.InstrumentID]core.Price),
		handlers: make(map[core.InstrumentID]map[uint64]func(core.FairValueUpdate)),
	}
}

type midBookSubscription struct {
	provider     *midBookProvider
	instrumentID core.InstrumentID
	id           uint64
}

func (s *midBookSubscription) Unsubscribe() {
	s.provider.mu.Lock()
	defer s.provider.mu.Unlock()
	delete(s.provider.handlers[s.instrumentID], s.id)
}

// Subscribe implements engine.FairValueProvider. mode is ignored: this
// provider only ever tracks best-book, so FullBook subscribers get the
// same top-of-book-derived signal as BestBook ones.
func (p *midBookProvider) Subscribe(instrumentID core.InstrumentID, _ engine.DataConsumerMode, handler func(core.FairValueUpdate)) (engine.Subscription, error) {
	p.mu.Lock()
	p.nextSub++
	id := p.nextSub
	if p.handlers[instrumentID] == nil {
		p.handlers[instrumentID] = make(map[uint64]func(core.FairValueUpdate))
	}
	p.handlers[instrumentID][id] = handler
	p.mu.Unlock()
	return &midBookSubscription{provider: p, instrumentID: instrumentID, id: id}, nil
}

// OnMarketDataEvent updates the tracked top-of-book from a dispatched
// MarketDataEvent and republishes a FairValueUpdate to subscribers.
func (p *midBookProvider) OnMarketDataEvent(ev core.MarketDataEvent) {
	p.mu.Lock()
	for _, e := range ev.Updates.Slice() {
		switch e.Side {
		case core.SideBuy:
			if e.Quantity > 0 {
				p.bestBid[ev.InstrumentID] = e.Price
			}
		case core.SideSell:
			if e.Quantity > 0 {
				p.bestAsk[ev.InstrumentID] = e.Price
			}
		}
	}
	bid, hasBid := p.bestBid[ev.InstrumentID]
	ask, hasAsk := p.bestAsk[ev.InstrumentID]
	handlers := make([]func(core.FairValueUpdate), 0, len(p.handlers[ev.InstrumentID]))
	for _, h := range p.handlers[ev.InstrumentID] {
		handlers = append(handlers, h)
	}
	p.mu.Unlock()

	if !hasBid || !hasAsk || bid > ask {
		return
	}
	update := core.FairValueUpdate{InstrumentID: ev.InstrumentID, FairBidValue: bid, FairAskValue: ask}
	for _, h := range handlers {
		h(update)
	}
}

// BestBid implements quoter.MarketView.
func (p *midBookProvider) BestBid(instrumentID core.InstrumentID) (core.Price, bool) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	price, ok := p.bestBid[instrumentID]
	return price, ok
}

// BestAsk implements quoter.MarketView.
func (p *midBookProvider) BestAsk(instrumentID core.InstrumentID) (core.Price, bool) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	price, ok := p.bestAsk[instrumentID]
	return price, ok
}

// instrumentMarketView adapts midBookProvider's multi-instrument surface
// to the single-instrument quoter.MarketView a Quoter is constructed with.
type instrumentMarketView struct {
	provider     *midBookProvider
	instrumentID core.InstrumentID
}

func (v instrumentMarketView) BestBid() (core.Price, bool) { return v.provider.BestBid(v.instrumentID) }
func (v instrumentMarketView) BestAsk() (core.Price, bool) { return v.provider.BestAsk(v.instrumentID) }
