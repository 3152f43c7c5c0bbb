package engine

import (
	"sync"
	"testing"
	"time"

	"github.com/BullionBear/sequex/internal/feed/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeProvider struct {
	mu      sync.Mutex
	handler func(core.FairValueUpdate)
}

func (p *fakeProvider) Subscribe(_ core.InstrumentID, _ DataConsumerMode, handler func(core.FairValueUpdate)) (Subscription, error) {
	p.mu.Lock()
	p.handler = handler
	p.mu.Unlock()
	return subFunc(func() {}), nil
}

func (p *fakeProvider) push(u core.FairValueUpdate) {
	p.mu.Lock()
	h := p.handler
	p.mu.Unlock()
	h(u)
}

type subFunc func()

func (s subFunc) Unsubscribe() { s() }

func newTestEngine(t *testing.T, p *fakeProvider, params Parameters) *Engine {
	t.Helper()
	e := NewEngine(Config{
		InstrumentID: 1,
		TickSize:     10,
		Provider:     p,
		Parameters:   params,
	})
	require.NoError(t, e.Start(BestBook))
	return e
}

func TestEngineSkipsZeroFairValue(t *testing.T) {
	t.Parallel()
	p := &fakeProvider{}
	e := newTestEngine(t, p, Parameters{BidSpreadBp: 10, AskSpreadBp: 10, OrderSize: 1})

	var got []core.QuotePair
	e.OnQuote.Subscribe(func(pair core.QuotePair) { got = append(got, pair) })

	p.push(core.FairValueUpdate{InstrumentID: 1, FairBidValue: 0, FairAskValue: 100000})
	assert.Empty(t, got, "zero fair bid must be skipped entirely")
}

func TestEngineRequoteAppliesSpreadAndTickRounding(t *testing.T) {
	t.Parallel()
	p := &fakeProvider{}
	e := newTestEngine(t, p, Parameters{BidSpreadBp: -100, AskSpreadBp: 100, OrderSize: 5})
	e.Activate()

	var dispatched core.QuotePair
	e.dispatch = func(pair core.QuotePair) { dispatched = pair }

	p.push(core.FairValueUpdate{InstrumentID: 1, FairBidValue: 100000, FairAskValue: 100000})

	require.NotNil(t, dispatched.Bid)
	require.NotNil(t, dispatched.Ask)
	assert.Equal(t, core.Price(99000), dispatched.Bid.Price)
	assert.Equal(t, core.Price(101000), dispatched.Ask.Price)
	assert.Equal(t, core.Quantity(5), dispatched.Bid.Size)
	assert.Zero(t, int64(dispatched.Bid.Price)%10, "bid must land on a tick boundary")
}

func TestEngineInactiveDoesNotDispatchButStillPublishes(t *testing.T) {
	t.Parallel()
	p := &fakeProvider{}
	e := newTestEngine(t, p, Parameters{BidSpreadBp: 0, AskSpreadBp: 0, OrderSize: 1})

	dispatchCalled := false
	e.dispatch = func(core.QuotePair) { dispatchCalled = true }

	published := false
	e.OnQuote.Subscribe(func(core.QuotePair) { published = true })

	p.push(core.FairValueUpdate{InstrumentID: 1, FairBidValue: 100000, FairAskValue: 100010})
	assert.True(t, published)
	assert.False(t, dispatchCalled, "inactive engine must not dispatch to the Market Maker")
}

func TestEngineInventoryCapDropsSide(t *testing.T) {
	t.Parallel()
	p := &fakeProvider{}
	e := newTestEngine(t, p, Parameters{OrderSize: 1, MaxCumBidFills: 10})
	e.Activate()

	e.OnFill(core.Fill{Side: core.SideBuy, Quantity: 10})

	var dispatched core.QuotePair
	e.dispatch = func(pair core.QuotePair) { dispatched = pair }
	p.push(core.FairValueUpdate{InstrumentID: 1, FairBidValue: 100000, FairAskValue: 100010})

	assert.Nil(t, dispatched.Bid, "bid must be suppressed once cumulative buy fills hit the cap")
	assert.NotNil(t, dispatched.Ask)
}

func TestEnginePauseOnFullyFilledSuppressesDispatchDuringCooldown(t *testing.T) {
	t.Parallel()
	p := &fakeProvider{}
	e := newTestEngine(t, p, Parameters{OrderSize: 1, CooldownOnFillMs: 1000})
	e.Activate()
	now := time.Now().UnixMilli()
	e.OnFullyFilled(now)

	dispatched := false
	e.dispatch = func(core.QuotePair) { dispatched = true }
	p.push(core.FairValueUpdate{InstrumentID: 1, FairBidValue: 100000, FairAskValue: 100010})
	assert.False(t, dispatched, "dispatch must stay suppressed within the cooldown window")

	assert.True(t, e.isPaused(now+500))
	assert.False(t, e.isPaused(now+2000), "cooldown must lapse once nowMs passes the deadline")
}

func TestEngineFillSkewNetsOppositeCounterFirst(t *testing.T) {
	t.Parallel()
	e := &Engine{}
	e.unappliedSell = 3
	e.OnFill(core.Fill{Side: core.SideBuy, Quantity: 5})

	assert.Equal(t, int64(0), e.unappliedSell, "a buy fill must net against outstanding sell skew first")
	assert.Equal(t, int64(2), e.unappliedBuy, "the remainder after netting carries onto the same side")
	assert.Equal(t, int64(5), e.totalBuy, "totalBuy accumulates the full fill regardless of netting")
}

func TestGroupSizeForCachesUntilGroupingBpChanges(t *testing.T) {
	t.Parallel()
	e := &Engine{tickSize: 10}

	first := e.groupSizeFor(50, 100000)
	assert.Equal(t, e.groupingRef, int64(50))

	e.groupSize = 999 // poison the cache to prove the second call reuses it
	second := e.groupSizeFor(50, 100000)
	assert.Equal(t, core.Price(999), second, "unchanged groupingBp must return the cached size")

	third := e.groupSizeFor(100, 100000)
	assert.NotEqual(t, core.Price(999), third, "a changed groupingBp must recompute")
	_ = first
}

func TestApplyBpAndRoundDiv(t *testing.T) {
	t.Parallel()
	assert.Equal(t, core.Price(101000), applyBp(100000, 100))
	assert.Equal(t, core.Price(99000), applyBp(100000, -100))
	assert.Equal(t, int64(4), roundDiv(7, 2))
	assert.Equal(t, int64(-4), roundDiv(-7, 2))
}
