package maker

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/BullionBear/sequex/internal/feed/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingQuoter struct {
	mu      sync.Mutex
	updates []*core.Quote
	cancels int
}

func (r *recordingQuoter) UpdateQuote(_ context.Context, quote *core.Quote) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.updates = append(r.updates, quote)
	return nil
}

func (r *recordingQuoter) CancelQuote(_ context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.cancels++
	return nil
}

func (r *recordingQuoter) snapshot() (int, int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.updates), r.cancels
}

type alwaysLiveValidator struct{}

func (alwaysLiveValidator) Validate(core.QuotePair) (Status, Status) { return StatusLive, StatusLive }

type alwaysHeldValidator struct{}

func (alwaysHeldValidator) Validate(core.QuotePair) (Status, Status) { return StatusHeld, StatusHeld }

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(time.Millisecond)
	}
	require.True(t, cond(), "condition did not become true before deadline")
}

func TestMarketMakerDispatchesLiveSidesToQuoters(t *testing.T) {
	t.Parallel()
	bid, ask := &recordingQuoter{}, &recordingQuoter{}
	m := NewMarketMaker(Config{InstrumentID: 1, Bid: bid, Ask: ask, Validator: alwaysLiveValidator{}})

	m.UpdateQuoteTargetAsync(context.Background(), core.QuotePair{
		InstrumentID: 1,
		Bid:          &core.Quote{Price: 100, Size: 1},
		Ask:          &core.Quote{Price: 110, Size: 1},
	})

	waitFor(t, func() bool {
		bu, _ := bid.snapshot()
		au, _ := ask.snapshot()
		return bu == 1 && au == 1
	})
}

func TestMarketMakerHeldStatusCancelsBothSides(t *testing.T) {
	t.Parallel()
	bid, ask := &recordingQuoter{}, &recordingQuoter{}
	m := NewMarketMaker(Config{InstrumentID: 1, Bid: bid, Ask: ask, Validator: alwaysHeldValidator{}})

	m.UpdateQuoteTargetAsync(context.Background(), core.QuotePair{InstrumentID: 1})

	waitFor(t, func() bool {
		_, bc := bid.snapshot()
		_, ac := ask.snapshot()
		return bc == 1 && ac == 1
	})
}

func TestMarketMakerCoalescesTargetsUnderLoad(t *testing.T) {
	t.Parallel()
	bid, ask := &recordingQuoter{}, &recordingQuoter{}
	m := NewMarketMaker(Config{InstrumentID: 1, Bid: bid, Ask: ask, Validator: alwaysLiveValidator{}})

	for i := 0; i < 50; i++ {
		m.UpdateQuoteTargetAsync(context.Background(), core.QuotePair{
			InstrumentID: 1,
			Bid:          &core.Quote{Price: core.Price(100 + i), Size: 1},
		})
	}

	waitFor(t, func() bool {
		bu, _ := bid.snapshot()
		return bu >= 1
	})
	bu, _ := bid.snapshot()
	assert.Less(t, bu, 50, "rapid-fire targets must coalesce through the single pending slot, not queue one call per update")
}

func TestMarketMakerPublishesStatusChangedOnTransition(t *testing.T) {
	t.Parallel()
	bid, ask := &recordingQuoter{}, &recordingQuoter{}
	m := NewMarketMaker(Config{InstrumentID: 1, Bid: bid, Ask: ask, Validator: alwaysLiveValidator{}})

	var changes []StatusChange
	var mu sync.Mutex
	m.OnStatusChanged.Subscribe(func(c StatusChange) {
		mu.Lock()
		changes = append(changes, c)
		mu.Unlock()
	})

	m.UpdateQuoteTargetAsync(context.Background(), core.QuotePair{
		InstrumentID: 1,
		Bid:          &core.Quote{Price: 100, Size: 1},
		Ask:          &core.Quote{Price: 110, Size: 1},
	})

	waitFor(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(changes) == 2
	})
}
